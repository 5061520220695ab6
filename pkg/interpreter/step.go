package interpreter

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"sui/pkg/lexer"
	"sui/pkg/parser"
	"sui/pkg/value"

	"github.com/charmbracelet/log"
)

// noJump is returned by step when control continues with the next line.
const noJump = -1

// execBlock runs one function body or main until it falls off the end or
// the current frame returns. Labels are indexed once per execution.
func (i *Interpreter) execBlock(block []lexer.Line) error {
	labels := parser.Labels(block)
	code := make([]parser.Instruction, len(block))
	for n, line := range block {
		code[n] = parser.Decode(line)
	}

	frame := i.currentFrame()
	for pc := 0; pc < len(code) && !frame.Returned; {
		if i.maxSteps > 0 && i.steps >= i.maxSteps {
			return ErrMaxStepsExceeded
		}
		i.steps++

		label, err := i.step(code[pc])
		if err != nil {
			return err
		}

		if label != noJump {
			if target, ok := labels[label]; ok {
				pc = target
				continue
			}
			log.Debug("jump to undefined label", "label", label, "line", code[pc].Line.Num)
		}
		pc++
	}

	return nil
}

// step executes a single instruction and returns the label to jump to, or noJump.
func (i *Interpreter) step(in parser.Instruction) (int, error) {
	switch in.Op {
	case parser.OpLabel, parser.OpFunc, parser.OpEnd:
		return noJump, nil

	case parser.OpAssign:
		i.store(in.Arg(0), i.load(in.Arg(1)))

	case parser.OpAdd, parser.OpSub, parser.OpMul, parser.OpDiv, parser.OpMod,
		parser.OpLt, parser.OpGt, parser.OpEq, parser.OpAnd, parser.OpOr:
		i.store(in.Arg(0), evalBinary(in.Op, i.load(in.Arg(1)), i.load(in.Arg(2))))

	case parser.OpNot:
		i.store(in.Arg(0), value.Not(i.load(in.Arg(1))))

	case parser.OpJmpIf:
		if i.load(in.Arg(0)).Truthy() {
			return jumpTarget(in.Arg(1)), nil
		}

	case parser.OpJmp:
		return jumpTarget(in.Arg(0)), nil

	case parser.OpCall:
		return noJump, i.call(in)

	case parser.OpRet:
		f := i.currentFrame()
		f.Return = i.load(in.Arg(0))
		f.Returned = true

	case parser.OpArrNew:
		size := i.load(in.Arg(1))
		if size.Int64() > value.MaxArrayLen {
			log.Warn("array too large, created empty", "size", size, "max", value.MaxArrayLen, "line", in.Line.Num)
		}
		i.store(in.Arg(0), value.NewArray(size))

	case parser.OpArrGet:
		i.store(in.Arg(0), i.load(in.Arg(1)).Index(i.load(in.Arg(2))))

	case parser.OpArrSet:
		if len(in.Args) < 3 {
			// a bare `{` opens a block and does nothing
			return noJump, nil
		}
		arr, idx := i.load(in.Arg(0)), i.load(in.Arg(1))
		if !arr.SetIndex(idx, i.load(in.Arg(2))) {
			log.Debug("array write ignored", "target", in.Arg(0), "kind", value.KindName(arr.Kind), "index", idx, "len", arr.Len())
		}

	case parser.OpPrint:
		v := i.load(in.Arg(0))
		i.output = append(i.output, v)
		if _, err := fmt.Fprintln(i.out, v.String()); err != nil {
			return noJump, fmt.Errorf("output: %w", err)
		}

	case parser.OpInput:
		line, err := i.readLine()
		if err != nil {
			return noJump, fmt.Errorf("input: %w", err)
		}
		i.store(in.Arg(0), value.Parse(line))

	case parser.OpForeign:
		i.store(in.Arg(0), i.callForeign(in))

	default:
		log.Warn("unknown instruction skipped", "instruction", in.String(), "line", in.Line.Num)
	}

	return noJump, nil
}

// call runs a function body in a new frame. Arguments are resolved in the
// caller's frame before the push.
func (i *Interpreter) call(in parser.Instruction) error {
	args := make([]value.Value, 0, len(in.Args))
	for _, a := range in.Args[min(2, len(in.Args)):] {
		args = append(args, i.load(a))
	}

	id, ok := parser.ParseIndex(in.Arg(1).Text)
	fn, defined := i.program.Functions[id]
	if !ok || !defined {
		log.Warn("call to undefined function", "id", in.Arg(1).Text, "line", in.Line.Num)
		i.store(in.Arg(0), value.Int(0))
		return nil
	}

	frame := i.PushFrame(fn.ID, fn.Arity, args)
	err := i.execBlock(fn.Body)
	i.PopFrame()
	if err != nil {
		return err
	}

	i.store(in.Arg(0), frame.Return)
	return nil
}

// callForeign never fails the run: any error is logged and yields Nothing.
func (i *Interpreter) callForeign(in parser.Instruction) value.Value {
	name := i.load(in.Arg(1)).String()

	args := make([]value.Value, 0, len(in.Args))
	for _, a := range in.Args[min(2, len(in.Args)):] {
		args = append(args, i.load(a))
	}

	if i.foreign == nil {
		log.Error("foreign call failed", "name", name, "err", ErrNoForeign)
		return value.Nothing()
	}

	result, err := i.foreign.Call(name, args)
	if err != nil {
		log.Error("foreign call failed", "name", name, "err", err)
		return value.Nothing()
	}
	return result
}

// readLine blocks for one line of input. End of input reads as "".
func (i *Interpreter) readLine() (string, error) {
	line, err := i.in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// load resolves an operand in the current frame
func (i *Interpreter) load(op parser.Operand) value.Value {
	f := i.currentFrame()

	switch op.Kind {
	case parser.OperandLocal:
		return f.Locals[op.Index]
	case parser.OperandGlobal:
		return i.globals[op.Index]
	case parser.OperandArg:
		return f.Arg(op.Index)
	default:
		return op.Lit
	}
}

// store writes v to a variable operand; literals cannot be assigned
func (i *Interpreter) store(op parser.Operand, v value.Value) {
	f := i.currentFrame()

	switch op.Kind {
	case parser.OperandLocal:
		f.Locals[op.Index] = v
	case parser.OperandGlobal:
		i.globals[op.Index] = v
	case parser.OperandArg:
		if !f.SetArg(op.Index, v) {
			log.Debug("argument write out of range", "arg", op.Index, "arity", f.Arity)
		}
	default:
		log.Debug("assignment to non-variable ignored", "target", op.Text)
	}
}

func jumpTarget(op parser.Operand) int {
	label, ok := parser.ParseIndex(op.Text)
	if !ok {
		return noJump
	}
	return label
}

// evalBinary evaluates binary operations
func evalBinary(op parser.Operation, a, b value.Value) value.Value {
	switch op {
	case parser.OpAdd:
		return value.Add(a, b)
	case parser.OpSub:
		return value.Sub(a, b)
	case parser.OpMul:
		return value.Mul(a, b)
	case parser.OpDiv:
		return value.Div(a, b)
	case parser.OpMod:
		return value.Mod(a, b)
	case parser.OpLt:
		return value.Lt(a, b)
	case parser.OpGt:
		return value.Gt(a, b)
	case parser.OpEq:
		return value.Eq(a, b)
	case parser.OpAnd:
		return value.And(a, b)
	case parser.OpOr:
		return value.Or(a, b)
	}
	return value.Int(0)
}
