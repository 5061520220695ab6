package interpreter

import "sui/pkg/value"

// Frame represents a function call frame.
type Frame struct {
	FuncID   int                 // function id, -1 for main
	Arity    int                 // declared parameter count
	Args     []value.Value       // bound arguments, always Arity long
	Locals   map[int]value.Value // local variables (slot -> value)
	Return   value.Value         // value set by ^
	Returned bool                // set once ^ has executed
}

// Arg reads argument n; anything past the declared arity reads as Int 0.
func (f *Frame) Arg(n int) value.Value {
	if n < 0 || n >= len(f.Args) {
		return value.Value{}
	}
	return f.Args[n]
}

// SetArg overwrites argument n and reports whether it was in range.
func (f *Frame) SetArg(n int, v value.Value) bool {
	if n < 0 || n >= len(f.Args) {
		return false
	}
	f.Args[n] = v
	return true
}
