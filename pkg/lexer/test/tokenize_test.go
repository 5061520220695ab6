package lexer_test

import (
	"reflect"
	"sui/pkg/lexer"
	"testing"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"assign", "= g0 42", []string{"=", "g0", "42"}},
		{"tabs and runs of spaces", "+\tv0   v1\t\t2", []string{"+", "v0", "v1", "2"}},
		{"string literal", `. "hello world"`, []string{".", `"hello world"`}},
		{"escaped quote", `. "say \"hi\""`, []string{".", `"say \"hi\""`}},
		{"escaped backslash", `. "a\\" v0`, []string{".", `"a\\"`, "v0"}},
		{"unterminated string", `. "open ended`, []string{".", `"open ended`}},
		{"trailing comment", "= v0 1 ; set v0", []string{"=", "v0", "1"}},
		{"comment glued to token", "= v0 1;note", []string{"=", "v0", "1"}},
		{"semicolon inside string", `. "a;b" ; real comment`, []string{".", `"a;b"`}},
		{"function header", "# 0 1 {", []string{"#", "0", "1", "{"}},
		{"foreign call", `P v0 "math.sqrt" 16`, []string{"P", "v0", `"math.sqrt"`, "16"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := lexer.Tokenize(tt.input)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Tokenize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestTokenizeEmpty(t *testing.T) {
	inputs := []string{"", "   ", "\t\t", "; only a comment", "   ; indented comment"}

	for _, input := range inputs {
		if got := lexer.Tokenize(input); len(got) != 0 {
			t.Errorf("Tokenize(%q) = %q, want no tokens", input, got)
		}
	}
}

func TestLexerLines(t *testing.T) {
	input := "; header comment\n= g0 42\n\n. g0\r\n   \n^ g0"
	lines := lexer.TokenizeAll(input)

	expected := []struct {
		num    int
		opcode string
		args   int
	}{
		{2, "=", 2},
		{4, ".", 1},
		{6, "^", 1},
	}

	if len(lines) != len(expected) {
		t.Fatalf("expected %d lines, got %d", len(expected), len(lines))
	}

	for i, e := range expected {
		if lines[i].Num != e.num {
			t.Errorf("Line %d: expected number %d, got %d", i, e.num, lines[i].Num)
		}
		if lines[i].Opcode() != e.opcode {
			t.Errorf("Line %d: expected opcode %s, got %s", i, e.opcode, lines[i].Opcode())
		}
		if len(lines[i].Args()) != e.args {
			t.Errorf("Line %d: expected %d args, got %d", i, e.args, len(lines[i].Args()))
		}
	}
}

func TestLinePositions(t *testing.T) {
	mylexer := lexer.NewLexer("\n  + v0  v1 3")

	line, ok := mylexer.NextLine()
	if !ok {
		t.Fatal("expected a line")
	}

	expectedCols := []int{3, 5, 9, 12}
	for i, col := range expectedCols {
		tok := line.Token(i)
		if tok.Pos.Line != 2 || tok.Pos.Column != col {
			t.Errorf("Token %d: expected position 2:%d, got %s", i, col, tok.Pos)
		}
	}

	if _, ok := mylexer.NextLine(); ok {
		t.Error("expected lexer to be exhausted")
	}
}
