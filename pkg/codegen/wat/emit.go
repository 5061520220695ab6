package wat

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"sui/pkg/codegen/flow"
	"sui/pkg/lexer"
	"sui/pkg/parser"
	"sui/pkg/value"
)

var arithmetic = map[parser.Operation]string{
	parser.OpAdd: "f64.add",
	parser.OpSub: "f64.sub",
	parser.OpMul: "f64.mul",
	parser.OpDiv: "f64.div",
}

var comparisons = map[parser.Operation]string{
	parser.OpLt: "f64.lt",
	parser.OpGt: "f64.gt",
	parser.OpEq: "f64.eq",
}

// block translates one function body or main.
type block struct {
	w      *watGen
	arity  int
	m      *flow.Machine
	locals map[int]bool
	mod    bool // needs the $_x and $_y scratch locals
	body   strings.Builder
}

const (
	intTag   = "(i32.const 0)"
	floatTag = "(i32.const 1)"
)

// emitFunction writes `(func sig (result f64) ...)` for a block.
func (w *watGen) emitFunction(sig string, arity int, lines []lexer.Line) error {
	m, err := flow.Build(lines)
	if err != nil {
		return err
	}

	b := &block{w: w, arity: arity, m: m, locals: make(map[int]bool)}
	if m.Flat() {
		for _, line := range m.Lines() {
			b.emit(parser.Decode(line), 2)
		}
	} else {
		b.stateLoop()
	}

	w.addText(fmt.Sprintf("  (func %s (result f64)", sig))
	idx := make([]int, 0, len(b.locals))
	for i := range b.locals {
		idx = append(idx, i)
	}
	slices.Sort(idx)
	for _, i := range idx {
		w.addText(fmt.Sprintf("    (local $v%d f64)", i))
	}
	if w.floats {
		for _, i := range idx {
			w.addText(fmt.Sprintf("    (local $vt%d i32)", i))
		}
		for i := range arity {
			w.addText(fmt.Sprintf("    (local $at%d i32)", i))
		}
	}
	if b.mod {
		w.addText("    (local $_x f64)")
		w.addText("    (local $_y f64)")
	}
	if !m.Flat() {
		w.addText("    (local $_state i32)")
	}
	if w.floats {
		for i := range arity {
			w.addText(fmt.Sprintf("    (local.set $at%d (global.get $_at%d))", i, i))
		}
	}
	w.text.WriteString(b.body.String())
	if w.floats {
		w.addText("    (global.set $_rt (i32.const 0))")
	}
	w.addText("    (f64.const 0))")

	return nil
}

// stateLoop emits one guarded arm per state inside a single loop. An arm
// either transfers control itself or moves to the next state.
func (b *block) stateLoop() {
	b.line(2, "(block $exit")
	b.line(3, "(loop $loop")

	for _, grp := range b.m.Groups {
		b.line(4, "(if (i32.eq (local.get $_state) (i32.const %d))", grp.State)
		b.line(5, "(then")
		for _, line := range grp.Lines {
			b.emit(parser.Decode(line), 6)
		}
		if !b.m.Terminates(grp.State) {
			if next := b.m.Next(grp.State); next == flow.Exit {
				b.line(6, "(br $exit)")
			} else {
				b.line(6, "(local.set $_state (i32.const %d))", next)
				b.line(6, "(br $loop)")
			}
		}
		b.line(5, "))")
	}

	b.line(3, ")")
	b.line(2, ")")
}

func (b *block) line(depth int, format string, args ...any) {
	b.body.WriteString(strings.Repeat("  ", depth))
	fmt.Fprintf(&b.body, format, args...)
	b.body.WriteString("\n")
}

// store writes the tag of dst before its value, so operands that name dst
// are still read unchanged.
func (b *block) store(depth int, dst parser.Operand, expr, tag string) {
	if t := b.setTag(dst, tag); t != "" {
		b.line(depth, "%s", t)
	}
	b.line(depth, "%s", b.set(dst, expr))
}

// emit translates a single instruction at the given indentation.
func (b *block) emit(in parser.Instruction, depth int) {
	switch op := in.Op; {
	case op == parser.OpLabel || op == parser.OpFunc || op == parser.OpEnd:

	case op == parser.OpAssign:
		b.store(depth, in.Arg(0), b.expr(in.Arg(1)), b.tag(in.Arg(1)))

	case arithmetic[op] != "":
		tag := floatTag
		if op != parser.OpDiv {
			tag = orTags(b.tag(in.Arg(1)), b.tag(in.Arg(2)))
		}
		b.store(depth, in.Arg(0),
			fmt.Sprintf("(%s %s %s)", arithmetic[op], b.expr(in.Arg(1)), b.expr(in.Arg(2))), tag)

	case comparisons[op] != "":
		b.store(depth, in.Arg(0),
			fmt.Sprintf("(f64.convert_i32_u (%s %s %s))", comparisons[op], b.expr(in.Arg(1)), b.expr(in.Arg(2))), intTag)

	case op == parser.OpMod:
		b.mod = true
		b.line(depth, "(local.set $_x %s)", b.expr(in.Arg(1)))
		b.line(depth, "(local.set $_y %s)", b.expr(in.Arg(2)))
		// a zero divisor gives integer 0
		tag := orTags(b.tag(in.Arg(1)), b.tag(in.Arg(2)))
		if tag != intTag {
			tag = fmt.Sprintf("(i32.and %s (f64.ne (local.get $_y) (f64.const 0)))", tag)
		}
		b.store(depth, in.Arg(0), "(if (result f64) (f64.eq (local.get $_y) (f64.const 0))"+
			" (then (f64.const 0))"+
			" (else (f64.sub (local.get $_x) (f64.mul (local.get $_y)"+
			" (f64.floor (f64.div (local.get $_x) (local.get $_y)))))))", tag)

	case op == parser.OpAnd || op == parser.OpOr:
		logic := "i32.and"
		if op == parser.OpOr {
			logic = "i32.or"
		}
		b.store(depth, in.Arg(0), fmt.Sprintf("(f64.convert_i32_u (%s %s %s))",
			logic, truthy(b.expr(in.Arg(1))), truthy(b.expr(in.Arg(2)))), intTag)

	case op == parser.OpNot:
		b.store(depth, in.Arg(0),
			fmt.Sprintf("(f64.convert_i32_u (f64.eq %s (f64.const 0)))", b.expr(in.Arg(1))), intTag)

	case op == parser.OpJmpIf:
		target, ok := b.m.JumpTarget(in.Arg(1).Text)
		if !ok {
			b.line(depth, ";; ? %s: undefined label", in.Arg(1).Text)
			return
		}
		b.line(depth, "(if %s", truthy(b.expr(in.Arg(0))))
		b.line(depth+1, "(then")
		b.line(depth+2, "(local.set $_state (i32.const %d))", target)
		b.line(depth+2, "(br $loop)))")

	case op == parser.OpJmp:
		target, ok := b.m.JumpTarget(in.Arg(0).Text)
		if !ok {
			b.line(depth, ";; @ %s: undefined label", in.Arg(0).Text)
			return
		}
		b.line(depth, "(local.set $_state (i32.const %d))", target)
		b.line(depth, "(br $loop)")

	case op == parser.OpCall:
		b.call(in, depth)

	case op == parser.OpRet:
		if b.w.floats {
			b.line(depth, "(global.set $_rt %s)", b.tag(in.Arg(0)))
		}
		b.line(depth, "(return %s)", b.expr(in.Arg(0)))

	case op == parser.OpArrNew:
		b.store(depth, in.Arg(0),
			fmt.Sprintf("(f64.convert_i32_u (call $alloc %s))", toI32(b.expr(in.Arg(1)))), intTag)

	case op == parser.OpArrGet:
		base, idx := toI32(b.expr(in.Arg(1))), toI32(b.expr(in.Arg(2)))
		tag := intTag
		if b.w.floats {
			tag = fmt.Sprintf("(call $array_tag %s %s)", base, idx)
		}
		b.store(depth, in.Arg(0), fmt.Sprintf("(call $array_get %s %s)", base, idx), tag)

	case op == parser.OpArrSet:
		if len(in.Args) < 3 {
			return
		}
		b.line(depth, "(call $array_set %s %s %s %s)",
			toI32(b.expr(in.Arg(0))), toI32(b.expr(in.Arg(1))), b.expr(in.Arg(2)), b.tag(in.Arg(2)))

	case op == parser.OpPrint:
		b.print(in.Arg(0), depth)

	case op == parser.OpInput:
		b.line(depth, ";; input is not available")
		b.store(depth, in.Arg(0), "(f64.const 0)", intTag)

	case op == parser.OpForeign:
		b.line(depth, ";; foreign call %s is not available", in.Arg(1).Text)
		b.store(depth, in.Arg(0), "(f64.const 0)", intTag)

	default:
		b.line(depth, ";; unknown instruction %q skipped", in.Line.String())
	}
}

// print picks the import from the operand's tag, deciding statically when
// the tag is a constant.
func (b *block) print(x parser.Operand, depth int) {
	if !x.IsVar() && x.Lit.Kind == value.KindString {
		b.line(depth, "(call $print_str (i32.const %d) (i32.const %d))", b.w.strs[x.Lit.S], len(x.Lit.S))
		return
	}

	switch tag := b.tag(x); tag {
	case intTag:
		b.line(depth, "(call $print_i32 %s)", toI32(b.expr(x)))
	case floatTag:
		b.line(depth, "(call $print_f64 %s)", b.expr(x))
	default:
		b.line(depth, "(if %s", tag)
		b.line(depth+1, "(then (call $print_f64 %s))", b.expr(x))
		b.line(depth+1, "(else (call $print_i32 %s)))", toI32(b.expr(x)))
	}
}

// call emits a call with the argument list fitted to the callee's arity.
// Argument tags travel in $_at globals and the result tag in $_rt. An
// undefined function yields 0.
func (b *block) call(in parser.Instruction, depth int) {
	id, ok := parser.ParseIndex(in.Arg(1).Text)
	fn, defined := b.w.prog.Functions[id]
	if !ok || !defined {
		b.store(depth, in.Arg(0), "(f64.const 0)", intTag)
		return
	}

	args := make([]string, fn.Arity)
	for i := range args {
		arg := in.Arg(i + 2)
		args[i] = b.expr(arg)
		if b.w.floats {
			b.line(depth, "(global.set $_at%d %s)", i, b.tag(arg))
		}
	}

	call := fmt.Sprintf("(call $f%d)", id)
	if len(args) > 0 {
		call = fmt.Sprintf("(call $f%d %s)", id, strings.Join(args, " "))
	}
	b.line(depth, "%s", b.set(in.Arg(0), call))
	if t := b.setTag(in.Arg(0), "(global.get $_rt)"); t != "" {
		b.line(depth, "%s", t)
	}
}

// expr renders an operand read.
func (b *block) expr(op parser.Operand) string {
	switch op.Kind {
	case parser.OperandLocal:
		b.locals[op.Index] = true
		return fmt.Sprintf("(local.get $v%d)", op.Index)
	case parser.OperandGlobal:
		return fmt.Sprintf("(global.get $g%d)", op.Index)
	case parser.OperandArg:
		if op.Index < b.arity {
			return fmt.Sprintf("(local.get $a%d)", op.Index)
		}
		return "(f64.const 0)"
	}

	switch op.Lit.Kind {
	case value.KindInt:
		return fmt.Sprintf("(f64.const %d)", op.Lit.I)
	case value.KindFloat:
		return fmt.Sprintf("(f64.const %s)", strconv.FormatFloat(op.Lit.F, 'g', -1, 64))
	}
	return "(f64.const 0)"
}

// tag renders the i32 float tag of an operand.
func (b *block) tag(op parser.Operand) string {
	if !b.w.floats {
		return intTag
	}
	switch op.Kind {
	case parser.OperandLocal:
		b.locals[op.Index] = true
		return fmt.Sprintf("(local.get $vt%d)", op.Index)
	case parser.OperandGlobal:
		return fmt.Sprintf("(global.get $gt%d)", op.Index)
	case parser.OperandArg:
		if op.Index < b.arity {
			return fmt.Sprintf("(local.get $at%d)", op.Index)
		}
		return intTag
	}
	if op.Lit.Kind == value.KindFloat {
		return floatTag
	}
	return intTag
}

// set renders a store; non-variables and out-of-range arguments drop.
func (b *block) set(dst parser.Operand, expr string) string {
	switch dst.Kind {
	case parser.OperandLocal:
		b.locals[dst.Index] = true
		return fmt.Sprintf("(local.set $v%d %s)", dst.Index, expr)
	case parser.OperandGlobal:
		return fmt.Sprintf("(global.set $g%d %s)", dst.Index, expr)
	case parser.OperandArg:
		if dst.Index < b.arity {
			return fmt.Sprintf("(local.set $a%d %s)", dst.Index, expr)
		}
	}
	return fmt.Sprintf("(drop %s)", expr)
}

// setTag renders a tag store, or "" when values carry no tags or dst is
// not a slot.
func (b *block) setTag(dst parser.Operand, tag string) string {
	if !b.w.floats {
		return ""
	}
	switch dst.Kind {
	case parser.OperandLocal:
		b.locals[dst.Index] = true
		return fmt.Sprintf("(local.set $vt%d %s)", dst.Index, tag)
	case parser.OperandGlobal:
		return fmt.Sprintf("(global.set $gt%d %s)", dst.Index, tag)
	case parser.OperandArg:
		if dst.Index < b.arity {
			return fmt.Sprintf("(local.set $at%d %s)", dst.Index, tag)
		}
	}
	return ""
}

// orTags combines operand tags, folding constants.
func orTags(x, y string) string {
	switch {
	case x == floatTag || y == floatTag:
		return floatTag
	case x == intTag:
		return y
	case y == intTag:
		return x
	}
	return fmt.Sprintf("(i32.or %s %s)", x, y)
}

func truthy(expr string) string {
	return fmt.Sprintf("(f64.ne %s (f64.const 0))", expr)
}

func toI32(expr string) string {
	return fmt.Sprintf("(i32.trunc_sat_f64_s %s)", expr)
}
