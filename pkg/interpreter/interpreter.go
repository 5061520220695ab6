package interpreter

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"

	"sui/pkg/parser"
	"sui/pkg/value"
)

const (
	// ArgCountSlot holds the number of command-line arguments.
	ArgCountSlot = 100
	// ArgBaseSlot holds the first argument; the rest follow in order.
	ArgBaseSlot = 101
)

// Foreign resolves and invokes host functions for the P instruction.
type Foreign interface {
	Call(name string, args []value.Value) (value.Value, error)
}

// Interpreter executes loaded programs. One Interpreter is one session:
// globals and functions survive between Execute calls until Reset.
type Interpreter struct {
	program *parser.Program     // function table accumulated by this session
	globals map[int]value.Value // global variables (slot -> value)
	stack   []*Frame            // call stack (frames)
	output  []value.Value       // values printed by the current execution

	out     io.Writer     // output writer for print
	in      *bufio.Reader // source for the input instruction
	foreign Foreign       // host capabilities, nil disables P

	maxSteps int // maximum steps (0 = unlimited)
	steps    int // steps executed
}

// Result is what one execution produced.
type Result struct {
	Output []value.Value // every printed value, in order
	Return value.Value   // value returned by main, Int 0 if it never returned
}

type Option func(*Interpreter)

// WithWriter sets the output writer for print statements
func WithWriter(w io.Writer) Option {
	return func(i *Interpreter) { i.out = w }
}

// WithInput sets the reader the input instruction consumes lines from
func WithInput(r io.Reader) Option {
	return func(i *Interpreter) { i.in = bufio.NewReader(r) }
}

// WithForeign installs the capability table used by foreign calls
func WithForeign(f Foreign) Option {
	return func(i *Interpreter) { i.foreign = f }
}

// WithMaxSteps sets a maximum number of executed lines before returning ErrMaxStepsExceeded
func WithMaxSteps(n int) Option {
	return func(i *Interpreter) { i.maxSteps = n }
}

// NewInterpreter creates a new Interpreter instance
func NewInterpreter(opts ...Option) *Interpreter {
	it := &Interpreter{
		program: parser.NewProgram(),
		globals: make(map[int]value.Value),
		stack:   make([]*Frame, 0, 8),
		out:     nil, // caller should set, or use WithWriter
		in:      nil,
	}

	for _, o := range opts {
		o(it)
	}

	if it.out == nil {
		it.out = os.Stdout
	}
	if it.in == nil {
		it.in = bufio.NewReader(os.Stdin)
	}

	return it
}

// Reset clears runtime state (globals, functions, call stack, counters)
func (i *Interpreter) Reset() {
	i.program = parser.NewProgram()
	i.globals = make(map[int]value.Value)
	i.stack = i.stack[:0]
	i.output = nil
	i.steps = 0
}

// Run loads source into a fresh session, seeds args and executes main.
// Nothing from earlier runs is visible. A program that fails to load is
// never executed.
func (i *Interpreter) Run(source string, args []string) (*Result, error) {
	i.Reset()

	prog, err := parser.Load(source)
	if err != nil {
		return nil, fmt.Errorf("load: %w", err)
	}

	i.SeedArgs(args)
	return i.Execute(prog)
}

// Execute registers prog's functions in the session (later definitions
// win) and runs its main lines against the session's globals.
func (i *Interpreter) Execute(prog *parser.Program) (*Result, error) {
	i.program.Merge(&parser.Program{Functions: prog.Functions})
	i.output = nil
	i.stack = i.stack[:0]

	root := i.PushFrame(-1, 0, nil)
	err := i.execBlock(prog.Main)
	i.PopFrame()

	return &Result{Output: i.output, Return: root.Return}, err
}

// SeedArgs stores command-line arguments in the reserved global slots:
// the count in slot 100 and each parsed argument from slot 101 on.
func (i *Interpreter) SeedArgs(args []string) {
	i.globals[ArgCountSlot] = value.Int(int64(len(args)))
	for n, a := range args {
		i.globals[ArgBaseSlot+n] = value.Parse(a)
	}
}

// Global returns a global slot; unset slots read as Int 0.
func (i *Interpreter) Global(slot int) value.Value {
	return i.globals[slot]
}

// Globals returns a copy of every set global.
func (i *Interpreter) Globals() map[int]value.Value {
	return maps.Clone(i.globals)
}

// Program returns the session's function table
func (i *Interpreter) Program() *parser.Program {
	return i.program
}

// SetInput replaces the reader the input instruction consumes lines from
func (i *Interpreter) SetInput(r io.Reader) {
	i.in = bufio.NewReader(r)
}

// Steps returns the number of lines executed since the last Reset
func (i *Interpreter) Steps() int {
	return i.steps
}

// currentFrame returns the current call frame, or nil if none
func (i *Interpreter) currentFrame() *Frame {
	if len(i.stack) == 0 {
		return nil
	}

	return i.stack[len(i.stack)-1]
}

// PushFrame pushes a new call frame. Arguments are padded with zeros or
// truncated to the declared arity.
func (i *Interpreter) PushFrame(funcID, arity int, args []value.Value) *Frame {
	bound := make([]value.Value, arity)
	copy(bound, args)

	frame := &Frame{
		FuncID: funcID,
		Arity:  arity,
		Args:   bound,
		Locals: make(map[int]value.Value),
	}

	i.stack = append(i.stack, frame)
	return frame
}

// PopFrame pops the current call frame
func (i *Interpreter) PopFrame() *Frame {
	if len(i.stack) == 0 {
		return nil
	}

	f := i.stack[len(i.stack)-1]
	i.stack = i.stack[:len(i.stack)-1]
	return f
}

var (
	ErrMaxStepsExceeded = errors.New("maximum steps exceeded")
	ErrNoForeign        = errors.New("foreign calls are disabled")
)
