// Package host runs the WebAssembly text modules produced by the wat
// generator on wasmtime and provides the env print imports.
package host

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"sui/pkg/value"

	"github.com/bytecodealliance/wasmtime-go/v25"
	"github.com/charmbracelet/log"
)

var (
	ErrNoExport  = errors.New("no such export")
	ErrTrap      = errors.New("trap")
	ErrStepLimit = errors.New("maximum number of steps exceeded")
)

// unlimited is the fuel given to a run without a step limit.
const unlimited = 1 << 62

// Module is an instantiated module with its own store.
type Module struct {
	store    *wasmtime.Store
	module   *wasmtime.Module
	instance *wasmtime.Instance

	out      io.Writer
	output   []string
	maxSteps int
	fuel     uint64 // fuel given to the last call
	steps    int
}

// Result is what a run of main produced.
type Result struct {
	Return  float64
	Output  []string
	Globals map[string]float64
}

// Option configures a Module.
type Option func(*Module)

// WithWriter sets where printed values are written. Nil discards them.
func WithWriter(w io.Writer) Option {
	return func(m *Module) { m.out = w }
}

// WithMaxSteps bounds the fuel a call may burn, roughly one unit per
// instruction. Zero disables the limit.
func WithMaxSteps(n int) Option {
	return func(m *Module) { m.maxSteps = n }
}

// Load compiles module text and instantiates it with the env imports.
func Load(src string, opts ...Option) (*Module, error) {
	m := &Module{out: os.Stdout}
	for _, opt := range opts {
		opt(m)
	}

	wasm, err := wasmtime.Wat2Wasm(src)
	if err != nil {
		return nil, fmt.Errorf("wat: %w", err)
	}

	config := wasmtime.NewConfig()
	config.SetConsumeFuel(true)
	engine := wasmtime.NewEngineWithConfig(config)

	m.module, err = wasmtime.NewModule(engine, wasm)
	if err != nil {
		return nil, fmt.Errorf("compile: %w", err)
	}
	m.store = wasmtime.NewStore(engine)

	linker := wasmtime.NewLinker(engine)
	if err := m.defineImports(linker); err != nil {
		return nil, err
	}
	if err := m.refuel(); err != nil {
		return nil, err
	}
	m.instance, err = linker.Instantiate(m.store, m.module)
	if err != nil {
		return nil, fmt.Errorf("instantiate: %w", err)
	}

	log.Debug("wat module loaded", "bytes", len(wasm), "exports", len(m.module.Exports()))
	return m, nil
}

// defineImports registers the env functions a generated module may call.
func (m *Module) defineImports(linker *wasmtime.Linker) error {
	imports := map[string]any{
		"print_i32": func(x int32) {
			m.print(value.Int(int64(x)).String())
		},
		"print_f64": func(x float64) {
			m.print(value.Float(x).String())
		},
		"print_str": func(caller *wasmtime.Caller, start, n int32) {
			m.print(readString(caller, start, n))
		},
	}
	for name, fn := range imports {
		if err := linker.FuncWrap("env", name, fn); err != nil {
			return fmt.Errorf("define env.%s: %w", name, err)
		}
	}
	return nil
}

// readString copies a byte range out of the caller's exported memory.
// Ranges outside it read as "".
func readString(caller *wasmtime.Caller, start, n int32) string {
	ext := caller.GetExport("memory")
	if ext == nil || ext.Memory() == nil {
		return ""
	}
	data := ext.Memory().UnsafeData(caller)
	if start < 0 || n < 0 || int(start)+int(n) > len(data) {
		return ""
	}
	return string(data[start : start+n])
}

func (m *Module) print(s string) {
	m.output = append(m.output, s)
	if m.out != nil {
		fmt.Fprintln(m.out, s)
	}
}

// refuel resets the store's fuel before a call.
func (m *Module) refuel() error {
	m.fuel = unlimited
	if m.maxSteps > 0 {
		m.fuel = uint64(m.maxSteps)
	}
	if err := m.store.SetFuel(m.fuel); err != nil {
		return fmt.Errorf("set fuel: %w", err)
	}
	return nil
}

func (m *Module) global(export string) *wasmtime.Global {
	ext := m.instance.GetExport(m.store, export)
	if ext == nil {
		return nil
	}
	return ext.Global()
}

// SetGlobal sets an exported f64 global and reports whether it exists.
func (m *Module) SetGlobal(export string, f float64) bool {
	g := m.global(export)
	if g == nil || g.Get(m.store).Kind() != wasmtime.KindF64 {
		return false
	}
	return g.Set(m.store, wasmtime.ValF64(f)) == nil
}

// Global reads an exported f64 global.
func (m *Module) Global(export string) (float64, bool) {
	g := m.global(export)
	if g == nil {
		return 0, false
	}
	v := g.Get(m.store)
	if v.Kind() != wasmtime.KindF64 {
		return 0, false
	}
	return v.F64(), true
}

// Globals returns every exported variable slot, g0, g1 and so on. Float
// tags are left out.
func (m *Module) Globals() map[string]float64 {
	out := make(map[string]float64)
	for _, exp := range m.module.Exports() {
		name := exp.Name()
		if !isSlot(name) || exp.Type().GlobalType() == nil {
			continue
		}
		if f, ok := m.Global(name); ok {
			out[name] = f
		}
	}
	return out
}

func isSlot(name string) bool {
	n, ok := strings.CutPrefix(name, "g")
	if !ok {
		return false
	}
	_, err := strconv.Atoi(n)
	return err == nil
}

// SeedArgs stores command-line arguments the way the interpreter does:
// the count in g100 and each argument from g101 on, with float arguments
// tagged as floats. Strings become 0 and slots the module never references
// are skipped.
func (m *Module) SeedArgs(args []string) {
	m.SetGlobal("g100", float64(len(args)))
	for i, s := range args {
		v := value.Parse(s)
		slot := 101 + i
		m.SetGlobal(fmt.Sprintf("g%d", slot), v.Float64())
		if g := m.global(fmt.Sprintf("gt%d", slot)); g != nil && v.Kind == value.KindFloat {
			_ = g.Set(m.store, wasmtime.ValI32(1))
		}
	}
}

// Call invokes an exported function with f64 arguments.
func (m *Module) Call(export string, args ...float64) (float64, error) {
	fn := m.instance.GetFunc(m.store, export)
	if fn == nil {
		return 0, fmt.Errorf("%w: %s", ErrNoExport, export)
	}

	if err := m.refuel(); err != nil {
		return 0, err
	}
	in := make([]any, len(args))
	for i, a := range args {
		in[i] = a
	}
	out, err := fn.Call(m.store, in...)
	if left, ferr := m.store.GetFuel(); ferr == nil {
		m.steps = int(m.fuel - left)
	}
	if err != nil {
		return 0, fmt.Errorf("%s: %w", export, classify(err))
	}

	f, _ := out.(float64)
	return f, nil
}

// classify maps wasmtime traps onto the package errors.
func classify(err error) error {
	var trap *wasmtime.Trap
	if !errors.As(err, &trap) {
		return err
	}
	if code := trap.Code(); code != nil && *code == wasmtime.OutOfFuel {
		return ErrStepLimit
	}
	return fmt.Errorf("%w: %s", ErrTrap, trap.Message())
}

// Run calls main and collects what it printed along with the exported globals.
func (m *Module) Run() (*Result, error) {
	m.output = nil

	ret, err := m.Call("main")
	if err != nil {
		return nil, err
	}
	return &Result{Return: ret, Output: m.output, Globals: m.Globals()}, nil
}

// Steps returns the fuel burnt by the last call.
func (m *Module) Steps() int {
	return m.steps
}
