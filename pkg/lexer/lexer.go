package lexer

import (
	"strings"
)

// Line is one non-empty instruction: the opcode followed by its operands.
type Line struct {
	Num     int      // 1-based source line number
	Text    string   // raw source text, comment included
	Tokens  []string // opcode first
	Columns []int    // 1-based column of each token
}

// Opcode returns the first token.
func (l Line) Opcode() string {
	if len(l.Tokens) == 0 {
		return ""
	}
	return l.Tokens[0]
}

// Args returns the operand tokens.
func (l Line) Args() []string {
	if len(l.Tokens) < 2 {
		return nil
	}
	return l.Tokens[1:]
}

// Token returns the i-th token classified and positioned.
func (l Line) Token(i int) Token {
	col := 1
	if i < len(l.Columns) {
		col = l.Columns[i]
	}
	return NewToken(Classify(l.Tokens[i]), l.Tokens[i], NewPosition(l.Num, col))
}

// String renders the tokens separated by single spaces.
func (l Line) String() string {
	return strings.Join(l.Tokens, " ")
}

type Lexer struct {
	lines    []string // source split into lines
	position int      // index of the next line to read
}

// Create a new lexer instance
func NewLexer(s string) *Lexer {
	return &Lexer{
		lines:    strings.Split(s, "\n"),
		position: 0,
	}
}

// NextLine returns the next non-empty line. ok is false once input is exhausted.
func (l *Lexer) NextLine() (line Line, ok bool) {
	for l.position < len(l.lines) {
		text := strings.TrimSuffix(l.lines[l.position], "\r")
		l.position++

		tokens, cols := scan(text)
		if len(tokens) == 0 {
			continue
		}

		return Line{Num: l.position, Text: text, Tokens: tokens, Columns: cols}, true
	}

	return Line{}, false
}

// Lines drains the lexer.
func (l *Lexer) Lines() []Line {
	var out []Line
	for {
		line, ok := l.NextLine()
		if !ok {
			return out
		}
		out = append(out, line)
	}
}

// Tokenize splits one source line. Comments start at ';' outside a string.
// A string token keeps its quotes and backslash pairs verbatim; an
// unterminated string runs to the end of the line.
func Tokenize(line string) []string {
	tokens, _ := scan(line)
	return tokens
}

// Tokenize every line of source, dropping blank and comment-only lines.
func TokenizeAll(source string) []Line {
	return NewLexer(source).Lines()
}

func scan(line string) (tokens []string, cols []int) {
	n := len(line)
	i := 0

	for i < n {
		ch := line[i]

		switch {
		case isSpace(ch):
			i++
			continue
		case ch == ';':
			return tokens, cols
		case ch == '"':
			j := i + 1
			for j < n && line[j] != '"' {
				if line[j] == '\\' {
					j += 2
				} else {
					j++
				}
			}
			end := min(j+1, n)
			tokens = append(tokens, line[i:end])
			cols = append(cols, i+1)
			i = end
			continue
		}

		j := i
		for j < n && !isSpace(line[j]) && line[j] != ';' {
			j++
		}
		tokens = append(tokens, line[i:j])
		cols = append(cols, i+1)
		i = j
	}

	return tokens, cols
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\r'
}
