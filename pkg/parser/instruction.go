package parser

import (
	"fmt"
	"strconv"
	"strings"
	"sui/pkg/lexer"
	"sui/pkg/value"
)

type Operation string

// List of opcodes
const (
	OpAssign  Operation = "="
	OpAdd     Operation = "+"
	OpSub     Operation = "-"
	OpMul     Operation = "*"
	OpDiv     Operation = "/"
	OpMod     Operation = "%"
	OpLt      Operation = "<"
	OpGt      Operation = ">"
	OpEq      Operation = "~"
	OpNot     Operation = "!"
	OpAnd     Operation = "&"
	OpOr      Operation = "|"
	OpJmpIf   Operation = "?"
	OpJmp     Operation = "@"
	OpLabel   Operation = ":"
	OpCall    Operation = "$"
	OpRet     Operation = "^"
	OpArrNew  Operation = "["
	OpArrGet  Operation = "]"
	OpArrSet  Operation = "{"
	OpPrint   Operation = "."
	OpInput   Operation = ","
	OpForeign Operation = "P"
	OpFunc    Operation = "#"
	OpEnd     Operation = "}"
)

// operandCount is the accepted operand range of an opcode; max < 0 means variadic.
type operandCount struct {
	min, max int
}

var operandCounts = map[Operation]operandCount{
	OpAssign:  {2, 2},
	OpAdd:     {3, 3},
	OpSub:     {3, 3},
	OpMul:     {3, 3},
	OpDiv:     {3, 3},
	OpMod:     {3, 3},
	OpLt:      {3, 3},
	OpGt:      {3, 3},
	OpEq:      {3, 3},
	OpNot:     {2, 2},
	OpAnd:     {3, 3},
	OpOr:      {3, 3},
	OpJmpIf:   {2, 2},
	OpJmp:     {1, 1},
	OpLabel:   {1, 1},
	OpCall:    {2, -1},
	OpRet:     {1, 1},
	OpArrNew:  {2, 2},
	OpArrGet:  {3, 3},
	OpArrSet:  {3, 3},
	OpPrint:   {1, 1},
	OpInput:   {1, 1},
	OpForeign: {2, -1},
	OpFunc:    {3, 3},
	OpEnd:     {0, 0},
}

// IsKnown reports whether op is a defined opcode.
func (op Operation) IsKnown() bool {
	_, ok := operandCounts[op]
	return ok
}

// IsBinary reports whether op is a three-operand arithmetic, comparison or logic op.
func (op Operation) IsBinary() bool {
	switch op {
	case OpAdd, OpSub, OpMul, OpDiv, OpMod, OpLt, OpGt, OpEq, OpAnd, OpOr:
		return true
	}
	return false
}

// OperandKind says where an operand's value lives.
type OperandKind int

const (
	OperandLiteral OperandKind = iota
	OperandLocal
	OperandGlobal
	OperandArg
)

// Operand is a decoded operand token.
type Operand struct {
	Kind  OperandKind
	Index int         // slot index for variables
	Lit   value.Value // parsed value for literals
	Text  string      // the source token
}

// DecodeOperand turns a token into a variable reference or a literal.
func DecodeOperand(tok string) Operand {
	kind := OperandLiteral
	switch lexer.Classify(tok) {
	case lexer.LOCAL:
		kind = OperandLocal
	case lexer.GLOBAL:
		kind = OperandGlobal
	case lexer.ARG:
		kind = OperandArg
	}

	if kind != OperandLiteral {
		if idx, err := strconv.Atoi(tok[1:]); err == nil {
			return Operand{Kind: kind, Index: idx, Text: tok}
		}
	}

	return Operand{Kind: OperandLiteral, Lit: value.Literal(tok), Text: tok}
}

// IsVar reports whether the operand names a storage slot.
func (o Operand) IsVar() bool {
	return o.Kind != OperandLiteral
}

func (o Operand) String() string {
	return o.Text
}

// Instruction is a decoded line.
type Instruction struct {
	Op   Operation
	Args []Operand
	Line lexer.Line
}

// Decode splits a line into its operation and decoded operands.
func Decode(line lexer.Line) Instruction {
	args := line.Args()
	ops := make([]Operand, len(args))
	for i, a := range args {
		ops[i] = DecodeOperand(a)
	}
	return Instruction{Op: Operation(line.Opcode()), Args: ops, Line: line}
}

// Arg returns operand n, or an empty literal 0 when the line is too short.
func (i Instruction) Arg(n int) Operand {
	if n < len(i.Args) {
		return i.Args[n]
	}
	return Operand{Kind: OperandLiteral, Lit: value.Int(0)}
}

// String returns a string representation of the instruction
func (i Instruction) String() string {
	parts := make([]string, len(i.Args))
	for n, a := range i.Args {
		parts[n] = a.Text
	}
	return fmt.Sprintf("(%s, %s)", i.Op, strings.Join(parts, ", "))
}

// ParseIndex parses a non-negative integer token such as a label, a function
// id or an arity.
func ParseIndex(tok string) (int, bool) {
	if lexer.Classify(tok) != lexer.INT || strings.HasPrefix(tok, "-") {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimPrefix(tok, "+"))
	if err != nil {
		return 0, false
	}
	return n, true
}
