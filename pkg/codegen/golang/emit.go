package golang

import (
	"fmt"
	"strconv"
	"strings"

	"sui/pkg/codegen/flow"
	"sui/pkg/lexer"
	"sui/pkg/parser"
	"sui/pkg/value"
)

var binaryFuncs = map[parser.Operation]string{
	parser.OpAdd: "Add",
	parser.OpSub: "Sub",
	parser.OpMul: "Mul",
	parser.OpDiv: "Div",
	parser.OpMod: "Mod",
	parser.OpLt:  "Lt",
	parser.OpGt:  "Gt",
	parser.OpEq:  "Eq",
	parser.OpAnd: "And",
	parser.OpOr:  "Or",
}

// block translates one function body or main.
type block struct {
	g      *goGen
	arity  int
	m      *flow.Machine
	body   strings.Builder
	locals bool // the body touches v<n>
}

// emitFunction writes `func name(params) Value` for a block.
func (g *goGen) emitFunction(name, params string, arity int, lines []lexer.Line) error {
	m, err := flow.Build(lines)
	if err != nil {
		return err
	}

	b := &block{g: g, arity: arity, m: m}
	endsInReturn := false

	if m.Flat() {
		code := m.Lines()
		for _, line := range code {
			b.emit(parser.Decode(line), 1)
		}
		endsInReturn = len(code) > 0 && parser.Operation(code[len(code)-1].Opcode()) == parser.OpRet
	} else {
		b.stateLoop()
	}

	g.addText(fmt.Sprintf("func %s(%s) Value {", name, params))
	if arity > 0 {
		g.addText(fmt.Sprintf("\ta = bind(a, %d)", arity))
	}
	if b.locals {
		g.addText("\tv := map[int]Value{}")
	}
	g.text.WriteString(b.body.String())
	if !endsInReturn {
		g.addText("\treturn Int(0)")
	}
	g.addText("}")
	g.addText("")

	return nil
}

// stateLoop emits the dispatch loop: one case per state.
func (b *block) stateLoop() {
	b.line(1, "state := 0")
	b.line(1, "for state >= 0 {")
	b.line(2, "switch state {")

	for _, grp := range b.m.Groups {
		if grp.Label >= 0 {
			b.line(2, "case %d: // label %d", grp.State, grp.Label)
		} else {
			b.line(2, "case %d:", grp.State)
		}
		for _, line := range grp.Lines {
			b.emit(parser.Decode(line), 3)
		}
		if !b.m.Terminates(grp.State) {
			b.line(3, "state = %d", b.m.Next(grp.State))
		}
	}

	b.line(2, "}")
	b.line(1, "}")
}

func (b *block) line(depth int, format string, args ...any) {
	b.body.WriteString(strings.Repeat("\t", depth))
	fmt.Fprintf(&b.body, format, args...)
	b.body.WriteString("\n")
}

// emit translates a single instruction at the given indentation.
func (b *block) emit(in parser.Instruction, depth int) {
	switch op := in.Op; {
	case op == parser.OpLabel || op == parser.OpFunc || op == parser.OpEnd:

	case op == parser.OpAssign:
		b.line(depth, "%s", b.assign(in.Arg(0), b.expr(in.Arg(1))))

	case op.IsBinary():
		b.line(depth, "%s", b.assign(in.Arg(0),
			fmt.Sprintf("%s(%s, %s)", binaryFuncs[op], b.expr(in.Arg(1)), b.expr(in.Arg(2)))))

	case op == parser.OpNot:
		b.line(depth, "%s", b.assign(in.Arg(0), fmt.Sprintf("Not(%s)", b.expr(in.Arg(1)))))

	case op == parser.OpJmpIf:
		target, ok := b.m.JumpTarget(in.Arg(1).Text)
		if !ok {
			b.line(depth, "// ? %s: undefined label", in.Arg(1).Text)
			return
		}
		b.line(depth, "if %s.Truthy() {", b.expr(in.Arg(0)))
		b.line(depth+1, "state = %d", target)
		b.line(depth+1, "continue")
		b.line(depth, "}")

	case op == parser.OpJmp:
		target, ok := b.m.JumpTarget(in.Arg(0).Text)
		if !ok {
			b.line(depth, "// @ %s: undefined label", in.Arg(0).Text)
			return
		}
		b.line(depth, "state = %d", target)
		b.line(depth, "continue")

	case op == parser.OpCall:
		b.line(depth, "%s", b.assign(in.Arg(0), b.call(in)))

	case op == parser.OpRet:
		b.line(depth, "return %s", b.expr(in.Arg(0)))

	case op == parser.OpArrNew:
		b.line(depth, "%s", b.assign(in.Arg(0), fmt.Sprintf("NewArray(%s)", b.expr(in.Arg(1)))))

	case op == parser.OpArrGet:
		b.line(depth, "%s", b.assign(in.Arg(0),
			fmt.Sprintf("%s.Index(%s)", b.expr(in.Arg(1)), b.expr(in.Arg(2)))))

	case op == parser.OpArrSet:
		if len(in.Args) < 3 {
			return
		}
		b.line(depth, "%s.SetIndex(%s, %s)", b.expr(in.Arg(0)), b.expr(in.Arg(1)), b.expr(in.Arg(2)))

	case op == parser.OpPrint:
		b.line(depth, "output(%s)", b.expr(in.Arg(0)))

	case op == parser.OpInput:
		b.line(depth, "%s", b.assign(in.Arg(0), "input()"))

	case op == parser.OpForeign:
		args := append([]string{b.expr(in.Arg(1))}, b.exprs(in.Args[min(2, len(in.Args)):])...)
		b.line(depth, "%s", b.assign(in.Arg(0), fmt.Sprintf("foreign(%s)", strings.Join(args, ", "))))

	default:
		b.line(depth, "// unknown instruction %q skipped", in.Line.String())
	}
}

// call renders a function call, or Int(0) for an undefined function.
func (b *block) call(in parser.Instruction) string {
	id, ok := parser.ParseIndex(in.Arg(1).Text)
	if _, defined := b.g.prog.Functions[id]; !ok || !defined {
		return "Int(0)"
	}
	return fmt.Sprintf("f%d(%s)", id, strings.Join(b.exprs(in.Args[min(2, len(in.Args)):]), ", "))
}

func (b *block) exprs(ops []parser.Operand) []string {
	out := make([]string, len(ops))
	for i, op := range ops {
		out[i] = b.expr(op)
	}
	return out
}

// expr renders an operand read.
func (b *block) expr(op parser.Operand) string {
	switch op.Kind {
	case parser.OperandLocal:
		b.locals = true
		return fmt.Sprintf("v[%d]", op.Index)
	case parser.OperandGlobal:
		return fmt.Sprintf("g[%d]", op.Index)
	case parser.OperandArg:
		if op.Index < b.arity {
			return fmt.Sprintf("a[%d]", op.Index)
		}
		return "Int(0)"
	default:
		return literal(op.Lit)
	}
}

// assign renders a store; non-variables and out-of-range arguments discard.
func (b *block) assign(dst parser.Operand, expr string) string {
	switch dst.Kind {
	case parser.OperandLocal:
		b.locals = true
		return fmt.Sprintf("v[%d] = %s", dst.Index, expr)
	case parser.OperandGlobal:
		return fmt.Sprintf("g[%d] = %s", dst.Index, expr)
	case parser.OperandArg:
		if dst.Index < b.arity {
			return fmt.Sprintf("a[%d] = %s", dst.Index, expr)
		}
	}
	return "_ = " + expr
}

func literal(v value.Value) string {
	switch v.Kind {
	case value.KindInt:
		return fmt.Sprintf("Int(%d)", v.I)
	case value.KindFloat:
		return fmt.Sprintf("Float(%s)", strconv.FormatFloat(v.F, 'g', -1, 64))
	case value.KindString:
		return fmt.Sprintf("String(%s)", strconv.Quote(v.S))
	}
	return "Int(0)"
}
