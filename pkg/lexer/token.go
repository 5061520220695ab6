package lexer

import (
	"fmt"
)

type TokenType int

type Token struct {
	Type   TokenType // Classification of the lexeme
	Lexeme string    // Actual text from the source line
	Pos    Position  // Position in source code
}

// NewToken creates a new Token instance
func NewToken(tokenType TokenType, lexeme string, pos Position) Token {
	return Token{
		Type:   tokenType,
		Lexeme: lexeme,
		Pos:    pos,
	}
}

const (
	WORD TokenType = iota // anything not matched below, kept as raw text

	LOCAL  // v<n>
	GLOBAL // g<n>
	ARG    // a<n>

	INT    // 42, -7
	FLOAT  // 2.5, .5, 1.
	STRING // "..."

	HASH   // #
	LBRACE // {
	RBRACE // }
)

var tokenNames = map[TokenType]string{
	WORD:   "word",
	LOCAL:  "local",
	GLOBAL: "global",
	ARG:    "arg",
	INT:    "int",
	FLOAT:  "float",
	STRING: "string",
	HASH:   "#",
	LBRACE: "{",
	RBRACE: "}",
}

// String returns a string representation of the Token
func (t Token) String() string {
	return fmt.Sprintf("T_{%s, %q, %s}", t.Type, t.Lexeme, t.Pos.String())
}

// String returns a string representation of the TokenType
func (t TokenType) String() string {
	if str, ok := tokenNames[t]; ok {
		return str
	}

	return fmt.Sprintf("UNKNOWN(%d)", int(t))
}

// IsVariable reports whether the type names a storage slot.
func (t TokenType) IsVariable() bool {
	return t == LOCAL || t == GLOBAL || t == ARG
}

// IsLiteral reports whether the type is a numeric or string literal.
func (t TokenType) IsLiteral() bool {
	return t == INT || t == FLOAT || t == STRING
}
