package lexer

import (
	"regexp"
)

// Token regex patterns. Each one must match the whole lexeme.
var tokenRegexes = map[TokenType]*regexp.Regexp{
	HASH:   regexp.MustCompile(`^#$`),
	LBRACE: regexp.MustCompile(`^\{$`),
	RBRACE: regexp.MustCompile(`^\}$`),

	LOCAL:  regexp.MustCompile(`^v\d+$`),
	GLOBAL: regexp.MustCompile(`^g\d+$`),
	ARG:    regexp.MustCompile(`^a\d+$`),

	STRING: regexp.MustCompile(`^"(?s:.*)"$`),
	INT:    regexp.MustCompile(`^[+-]?\d+$`),
	FLOAT:  regexp.MustCompile(`^[+-]?(\d+\.\d*|\.\d+)([eE][+-]?\d+)?$`),
}

// Token precedence order for matching
var tokenPrecedenceOrder = []TokenType{
	HASH, LBRACE, RBRACE, LOCAL, GLOBAL, ARG, STRING, INT, FLOAT,
}

// Classify returns the type of a single lexeme. A lone `"` is not a string.
func Classify(s string) TokenType {
	if s == `"` {
		return WORD
	}

	for _, tokenType := range tokenPrecedenceOrder {
		if regex, ok := tokenRegexes[tokenType]; ok && regex.MatchString(s) {
			return tokenType
		}
	}

	return WORD
}
