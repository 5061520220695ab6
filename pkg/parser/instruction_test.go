package parser_test

import (
	"sui/pkg/lexer"
	"sui/pkg/parser"
	"sui/pkg/value"
	"testing"
)

func TestDecodeOperand(t *testing.T) {
	tests := []struct {
		tok   string
		kind  parser.OperandKind
		index int
		lit   value.Value
	}{
		{"v3", parser.OperandLocal, 3, value.Value{}},
		{"g100", parser.OperandGlobal, 100, value.Value{}},
		{"a0", parser.OperandArg, 0, value.Value{}},
		{"42", parser.OperandLiteral, 0, value.Int(42)},
		{"2.5", parser.OperandLiteral, 0, value.Float(2.5)},
		{`"hi"`, parser.OperandLiteral, 0, value.String("hi")},
		{"word", parser.OperandLiteral, 0, value.String("word")},
	}

	for _, tt := range tests {
		op := parser.DecodeOperand(tt.tok)
		if op.Kind != tt.kind {
			t.Errorf("%s: expected kind %d, got %d", tt.tok, tt.kind, op.Kind)
			continue
		}
		if op.IsVar() {
			if op.Index != tt.index {
				t.Errorf("%s: expected index %d, got %d", tt.tok, tt.index, op.Index)
			}
			continue
		}
		if !value.Equal(op.Lit, tt.lit) || op.Lit.Kind != tt.lit.Kind {
			t.Errorf("%s: expected literal %v, got %v", tt.tok, tt.lit, op.Lit)
		}
	}
}

func TestDecode(t *testing.T) {
	line := lexer.TokenizeAll("$ v0 2 a1 9")[0]
	ins := parser.Decode(line)

	if ins.Op != parser.OpCall {
		t.Fatalf("expected call, got %s", ins.Op)
	}
	if len(ins.Args) != 4 {
		t.Fatalf("expected 4 operands, got %d", len(ins.Args))
	}
	if ins.Arg(3).Lit.I != 9 {
		t.Errorf("expected last operand 9, got %v", ins.Arg(3).Lit)
	}
	if missing := ins.Arg(10); missing.IsVar() || missing.Lit.I != 0 {
		t.Errorf("missing operand should read as literal 0, got %v", missing)
	}
	if ins.String() != "($, v0, 2, a1, 9)" {
		t.Errorf("unexpected rendering %s", ins.String())
	}
}

func TestParseIndex(t *testing.T) {
	for tok, want := range map[string]int{"0": 0, "17": 17, "+3": 3} {
		if got, ok := parser.ParseIndex(tok); !ok || got != want {
			t.Errorf("ParseIndex(%q) = %d, %v", tok, got, ok)
		}
	}
	for _, tok := range []string{"-1", "x", "1.5", ""} {
		if _, ok := parser.ParseIndex(tok); ok {
			t.Errorf("ParseIndex(%q) should fail", tok)
		}
	}
}
