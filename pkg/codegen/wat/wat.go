// Package wat translates programs into a WebAssembly text module.
//
// Every language value is an f64. When a program can produce floats, each
// slot also carries an i32 tag (1 for float) so integers and floats print
// the way the interpreter prints them. Arrays live in linear memory and are
// represented by the address of their first element; strings only survive
// as printed literals.
package wat

import (
	"bytes"
	"fmt"
	"os"
	"slices"
	"strings"

	"sui/pkg/codegen"
	"sui/pkg/lexer"
	"sui/pkg/parser"
	"sui/pkg/value"

	"github.com/charmbracelet/log"
)

const (
	pageSize   = 65536
	headerSize = 8  // i32 length in front of every array
	slotWidth  = 16 // f64 value then i32 tag

	argBase = 101 // first global seeded from a program argument
)

type watGen struct {
	prog   *parser.Program // program being translated
	output string          // output file name

	pages int // initial memory size in pages

	floats   bool           // the program can produce floats, so values carry tags
	arrays   bool           // any array instruction appears
	maxArity int            // largest declared arity, sizes the argument tag globals
	strs     map[string]int // printed string literal -> data offset
	data     bytes.Buffer   // data segment bytes
	heap     int            // first heap address

	header bytes.Buffer // imports, memory, data and globals
	text   bytes.Buffer // functions

	code string // result of Generate
}

// Option configures the generator.
type Option func(*watGen)

// WithMemoryPages sets the initial linear memory size. Values below 1 are ignored.
func WithMemoryPages(n int) Option {
	return func(w *watGen) {
		if n >= 1 {
			w.pages = n
		}
	}
}

// New creates a WebAssembly text generator for prog
func New(prog *parser.Program, output string, opts ...Option) codegen.Backend {
	w := &watGen{prog: prog, output: output, pages: 1}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Generate translates the whole program
func (w *watGen) Generate() error {
	w.header.Reset()
	w.text.Reset()
	w.data.Reset()
	w.strs = make(map[string]int)

	w.scan()

	w.addHeader("(module")
	w.addHeader(`  (import "env" "print_i32" (func $print_i32 (param i32)))`)
	if w.floats {
		w.addHeader(`  (import "env" "print_f64" (func $print_f64 (param f64)))`)
	}
	if len(w.strs) > 0 {
		w.addHeader(`  (import "env" "print_str" (func $print_str (param i32 i32)))`)
	}

	if w.arrays || len(w.strs) > 0 {
		w.addHeader(fmt.Sprintf(`  (memory (export "memory") %d)`, w.pages))
	}
	if w.data.Len() > 0 {
		w.addHeader(fmt.Sprintf(`  (data (i32.const 0) "%s")`, escapeData(w.data.Bytes())))
	}
	if w.arrays {
		w.heap = (w.data.Len() + headerSize - 1) / headerSize * headerSize
		w.addHeader(fmt.Sprintf("  (global $heap_ptr (mut i32) (i32.const %d))", w.heap))
	}
	for _, idx := range w.globals() {
		w.addHeader(fmt.Sprintf(`  (global $g%d (export "g%d") (mut f64) (f64.const 0))`, idx, idx))
		if w.floats {
			w.addHeader(fmt.Sprintf(`  (global $gt%d (export "gt%d") (mut i32) (i32.const 0))`, idx, idx))
		}
	}
	if w.floats {
		w.addHeader("  (global $_rt (mut i32) (i32.const 0))")
		for i := range w.maxArity {
			w.addHeader(fmt.Sprintf("  (global $_at%d (mut i32) (i32.const 0))", i))
		}
	}

	if w.arrays {
		w.addArrayRuntime()
	}

	for _, id := range w.prog.FunctionIDs() {
		fn := w.prog.Functions[id]
		params := make([]string, fn.Arity)
		for i := range params {
			params[i] = fmt.Sprintf("(param $a%d f64)", i)
		}
		sig := strings.TrimSpace(fmt.Sprintf(`$f%d (export "f%d") %s`, id, id, strings.Join(params, " ")))
		if err := w.emitFunction(sig, fn.Arity, fn.Body); err != nil {
			return fmt.Errorf("function %d: %w", id, err)
		}
	}
	if err := w.emitFunction(`$main (export "main")`, 0, w.prog.Main); err != nil {
		return fmt.Errorf("main: %w", err)
	}

	w.code = w.header.String() + w.text.String() + ")\n"

	log.Debug("generated wat module", "functions", len(w.prog.Functions), "arrays", w.arrays, "floats", w.floats)
	return nil
}

// GetCode returns the module text
func (w *watGen) GetCode() string {
	return w.code
}

// Build writes the module text to the output file
func (w *watGen) Build() error {
	if w.output == "" {
		return fmt.Errorf("no output file given")
	}
	if err := os.WriteFile(w.output, []byte(w.code), 0644); err != nil {
		return fmt.Errorf("failed to write wat module: %w", err)
	}
	return nil
}

// scan decides which imports and runtime pieces the module needs, and lays
// out the printed string literals in the data segment. Floats come from
// division, float literals and program arguments.
func (w *watGen) scan() {
	w.arrays = w.prog.UsesOp(parser.OpArrNew, parser.OpArrGet, parser.OpArrSet)
	w.floats = w.prog.UsesOp(parser.OpDiv) || w.prog.Contains(func(line lexer.Line) bool {
		for _, tok := range line.Args() {
			if lexer.Classify(tok) == lexer.FLOAT {
				return true
			}
			if op := parser.DecodeOperand(tok); op.Kind == parser.OperandGlobal && op.Index >= argBase {
				return true
			}
		}
		return false
	})

	w.maxArity = 0
	for _, fn := range w.prog.Functions {
		w.maxArity = max(w.maxArity, fn.Arity)
	}

	w.eachLine(func(line lexer.Line) {
		if parser.Operation(line.Opcode()) != parser.OpPrint || len(line.Args()) == 0 {
			return
		}
		lit := parser.DecodeOperand(line.Args()[0])
		if lit.IsVar() || lit.Lit.Kind != value.KindString {
			return
		}
		if _, ok := w.strs[lit.Lit.S]; !ok {
			w.strs[lit.Lit.S] = w.data.Len()
			w.data.WriteString(lit.Lit.S)
		}
	})
}

// globals returns every global slot referenced anywhere, in ascending order.
func (w *watGen) globals() []int {
	seen := make(map[int]bool)
	w.eachLine(func(line lexer.Line) {
		for _, tok := range line.Args() {
			if op := parser.DecodeOperand(tok); op.Kind == parser.OperandGlobal {
				seen[op.Index] = true
			}
		}
	})

	out := make([]int, 0, len(seen))
	for idx := range seen {
		out = append(out, idx)
	}
	slices.Sort(out)
	return out
}

// eachLine visits function bodies in id order, then main.
func (w *watGen) eachLine(fn func(lexer.Line)) {
	for _, id := range w.prog.FunctionIDs() {
		for _, line := range w.prog.Functions[id].Body {
			fn(line)
		}
	}
	for _, line := range w.prog.Main {
		fn(line)
	}
}

// addArrayRuntime emits the allocator and the bounds-checked accessors.
// An array is the address of its first slot; the i32 length sits in the
// header just before it. Sizes outside 0..value.MaxArrayLen allocate an
// empty array, as in the interpreter.
func (w *watGen) addArrayRuntime() {
	lowest := w.heap + headerSize
	w.addText(fmt.Sprintf(`  (func $alloc (param $n i32) (result i32)
    (local $base i32)
    (if (i32.or (i32.lt_s (local.get $n) (i32.const 0)) (i32.gt_s (local.get $n) (i32.const %[4]d)))
      (then (local.set $n (i32.const 0))))
    (local.set $base (i32.add (global.get $heap_ptr) (i32.const %[1]d)))
    (global.set $heap_ptr
      (i32.add (local.get $base) (i32.mul (local.get $n) (i32.const %[2]d))))
    (if (i32.gt_u (global.get $heap_ptr) (i32.mul (memory.size) (i32.const %[3]d)))
      (then
        (drop (memory.grow
          (i32.add
            (i32.div_u
              (i32.sub (global.get $heap_ptr) (i32.mul (memory.size) (i32.const %[3]d)))
              (i32.const %[3]d))
            (i32.const 1))))))
    (i32.store (i32.sub (local.get $base) (i32.const %[1]d)) (local.get $n))
    (local.get $base))`, headerSize, slotWidth, pageSize, value.MaxArrayLen))

	w.addText("  (func $array_get (param $base i32) (param $idx i32) (result f64)")
	w.addText(boundsCheck(lowest, " (f64.const 0)"))
	w.addText("    (f64.load " + slotAddr + "))")

	if w.floats {
		w.addText("  (func $array_tag (param $base i32) (param $idx i32) (result i32)")
		w.addText(boundsCheck(lowest, " (i32.const 0)"))
		w.addText("    (i32.load offset=8 " + slotAddr + "))")
	}

	w.addText("  (func $array_set (param $base i32) (param $idx i32) (param $x f64) (param $tag i32)")
	w.addText(boundsCheck(lowest, ""))
	w.addText("    (f64.store " + slotAddr + " (local.get $x))")
	w.addText("    (i32.store offset=8 " + slotAddr + " (local.get $tag)))")
}

// slotAddr is the address of element $idx of the array at $base.
const slotAddr = "(i32.add (local.get $base) (i32.shl (local.get $idx) (i32.const 4)))"

// boundsCheck returns early with ret unless $base is a heap array and $idx
// is inside it.
func boundsCheck(lowest int, ret string) string {
	early := fmt.Sprintf("\n      (then (return%s)))", ret)
	return strings.Join([]string{
		fmt.Sprintf("    (if (i32.lt_s (local.get $base) (i32.const %d))", lowest) + early,
		"    (if (i32.gt_u (local.get $base) (global.get $heap_ptr))" + early,
		"    (if (i32.lt_s (local.get $idx) (i32.const 0))" + early,
		fmt.Sprintf("    (if (i32.ge_s (local.get $idx) (i32.load (i32.sub (local.get $base) (i32.const %d))))", headerSize) + early,
	}, "\n")
}

// addHeader adds a line to the header section
func (w *watGen) addHeader(line string) {
	w.header.WriteString(line + "\n")
}

// addText adds a line to the function section
func (w *watGen) addText(line string) {
	w.text.WriteString(line + "\n")
}

// escapeData renders bytes as a WAT string body.
func escapeData(b []byte) string {
	var sb strings.Builder
	for _, c := range b {
		if c >= 0x20 && c < 0x7f && c != '"' && c != '\\' {
			sb.WriteByte(c)
			continue
		}
		fmt.Fprintf(&sb, `\%02x`, c)
	}
	return sb.String()
}
