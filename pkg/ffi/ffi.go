// Package ffi is the table of host functions reachable from the P instruction.
// Only registered names can be called.
package ffi

import (
	"errors"
	"fmt"
	"slices"

	"sui/pkg/value"

	"github.com/charmbracelet/log"
)

var (
	ErrUnknownFunction = errors.New("unknown foreign function")
	ErrArgCount        = errors.New("wrong number of arguments")
	ErrArgType         = errors.New("unsupported argument type")
)

// Func is a host function.
type Func func(args []value.Value) (value.Value, error)

// Registry maps qualified names such as "math.sqrt" to host functions.
type Registry struct {
	funcs map[string]Func
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{funcs: make(map[string]Func)}
}

// Register adds or replaces a function
func (r *Registry) Register(name string, fn Func) {
	r.funcs[name] = fn
}

// Lookup returns the function registered under name
func (r *Registry) Lookup(name string) (Func, bool) {
	fn, ok := r.funcs[name]
	return fn, ok
}

// Names returns the registered names in sorted order
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.funcs))
	for name := range r.funcs {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Call resolves name and invokes it. A panicking host function is reported
// as an error so a bad call never takes the run down.
func (r *Registry) Call(name string, args []value.Value) (result value.Value, err error) {
	fn, ok := r.funcs[name]
	if !ok {
		return value.Nothing(), fmt.Errorf("%w: %s", ErrUnknownFunction, name)
	}

	defer func() {
		if rec := recover(); rec != nil {
			result, err = value.Nothing(), fmt.Errorf("%s: panic: %v", name, rec)
		}
	}()

	log.Debug("foreign call", "name", name, "args", len(args))
	result, err = fn(args)
	if err != nil {
		return value.Nothing(), fmt.Errorf("%s: %w", name, err)
	}
	return result, nil
}

func expect(args []value.Value, n int) error {
	if len(args) != n {
		return fmt.Errorf("%w: expects %d, got %d", ErrArgCount, n, len(args))
	}
	return nil
}

func expectNumber(v value.Value) error {
	if !v.IsNumber() {
		return fmt.Errorf("%w: %s is not a number", ErrArgType, value.KindName(v.Kind))
	}
	return nil
}
