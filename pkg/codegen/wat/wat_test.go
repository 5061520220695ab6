package wat_test

import (
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"sui/internal/samples"
	"sui/pkg/codegen/wat"
	"sui/pkg/codegen/wat/host"
	"sui/pkg/interpreter"
	"sui/pkg/parser"
)

func generate(t *testing.T, source string) string {
	t.Helper()

	prog, err := parser.Load(source)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	gen := wat.New(prog, "")
	if err := gen.Generate(); err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	return gen.GetCode()
}

// funcText returns the text of `(func $name ...` up to the next function.
func funcText(t *testing.T, code, name string) string {
	t.Helper()

	start := strings.Index(code, "(func $"+name+" ")
	if start < 0 {
		t.Fatalf("function %s not found in:\n%s", name, code)
	}
	rest := code[start+1:]
	if end := strings.Index(rest, "\n  (func "); end >= 0 {
		return code[start : start+1+end]
	}
	return code[start:]
}

func TestFlatBlockHasNoLoop(t *testing.T) {
	main := funcText(t, generate(t, "= g0 1\n+ g0 g0 2\n. g0\n^ g0\n"), "main")

	for _, word := range []string{"$_state", "loop", "br "} {
		if strings.Contains(main, word) {
			t.Errorf("flat block should not contain %q:\n%s", word, main)
		}
	}
}

func TestLabelsBecomeStates(t *testing.T) {
	s, err := samples.Get("array_sum")
	if err != nil {
		t.Fatal(err)
	}
	main := funcText(t, generate(t, s.Source), "main")

	// four labels plus the entry
	if got := strings.Count(main, "(i32.eq (local.get $_state) (i32.const"); got != 5 {
		t.Errorf("expected 5 states, got %d:\n%s", got, main)
	}

	lines := strings.Split(main, "\n")
	for i, line := range lines {
		if !strings.Contains(line, "(local.set $_state") {
			continue
		}
		if i+1 >= len(lines) || !strings.Contains(lines[i+1], "(br $loop)") {
			t.Errorf("state change on line %d is not followed by a loop restart:\n%s", i, main)
		}
	}
}

func TestImportsFollowUsage(t *testing.T) {
	tests := []struct {
		sample string
		f64    bool
		str    bool
		memory bool
	}{
		{"assign", false, false, false},
		{"division", true, false, false},
		{"floats", true, false, false},
		{"branch", false, true, true},
		{"array_sum", false, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.sample, func(t *testing.T) {
			s, err := samples.Get(tt.sample)
			if err != nil {
				t.Fatal(err)
			}
			code := generate(t, s.Source)

			if !strings.Contains(code, `(import "env" "print_i32"`) {
				t.Errorf("print_i32 must always be imported")
			}
			if got := strings.Contains(code, `"print_f64"`); got != tt.f64 {
				t.Errorf("print_f64 imported: %v, want %v", got, tt.f64)
			}
			if got := strings.Contains(code, `"print_str"`); got != tt.str {
				t.Errorf("print_str imported: %v, want %v", got, tt.str)
			}
			if got := strings.Contains(code, "(memory "); got != tt.memory {
				t.Errorf("memory declared: %v, want %v", got, tt.memory)
			}
		})
	}
}

func TestExports(t *testing.T) {
	s, err := samples.Get("factorial")
	if err != nil {
		t.Fatal(err)
	}
	code := generate(t, s.Source)

	for _, want := range []string{
		`(global $g0 (export "g0") (mut f64) (f64.const 0))`,
		`(func $f0 (export "f0") (param $a0 f64) (result f64)`,
		`(func $main (export "main") (result f64)`,
	} {
		if !strings.Contains(code, want) {
			t.Errorf("expected %q in:\n%s", want, code)
		}
	}
}

// TestRoundTrip runs every sample through the interpreter and through the
// generated module. Printed output must match exactly; returns compare as
// numbers since the module result is a bare f64.
func TestRoundTrip(t *testing.T) {
	for _, s := range samples.All() {
		t.Run(s.Name, func(t *testing.T) {
			it := interpreter.NewInterpreter(interpreter.WithWriter(io.Discard), interpreter.WithInput(strings.NewReader("")))
			want, err := it.Run(s.Source, nil)
			if err != nil {
				t.Fatalf("interpreter failed: %v", err)
			}

			m, err := host.Load(generate(t, s.Source), host.WithWriter(nil), host.WithMaxSteps(1_000_000))
			if err != nil {
				t.Fatalf("host load failed: %v", err)
			}
			got, err := m.Run()
			if err != nil {
				t.Fatalf("host run failed: %v", err)
			}

			if len(got.Output) != len(want.Output) {
				t.Fatalf("expected output %v, got %v", want.Output, got.Output)
			}
			for i := range got.Output {
				if got.Output[i] != want.Output[i].String() {
					t.Errorf("output %d: expected %s, got %s", i, want.Output[i], got.Output[i])
				}
			}
			if got.Return != want.Return.Float64() {
				t.Errorf("expected return %s, got %v", want.Return, got.Return)
			}
		})
	}
}

func TestDivisionGlobal(t *testing.T) {
	s, err := samples.Get("division")
	if err != nil {
		t.Fatal(err)
	}
	m, err := host.Load(generate(t, s.Source), host.WithWriter(nil))
	if err != nil {
		t.Fatal(err)
	}
	res, err := m.Run()
	if err != nil {
		t.Fatal(err)
	}

	if res.Globals["g0"] != 25 {
		t.Errorf("expected g0 == 25, got %v", res.Globals["g0"])
	}
	// printed through print_f64, so it formats as a float
	if strings.Join(res.Output, ",") != "25.0" {
		t.Errorf("expected output [25.0], got %v", res.Output)
	}
}

func TestArgumentSeeding(t *testing.T) {
	m, err := host.Load(generate(t, "+ g0 g101 g102\n= g1 g100\n^ g0\n"), host.WithWriter(nil))
	if err != nil {
		t.Fatal(err)
	}
	m.SeedArgs([]string{"10", "20"})

	res, err := m.Run()
	if err != nil {
		t.Fatal(err)
	}
	if res.Return != 30 {
		t.Errorf("expected 30, got %v", res.Return)
	}
	if res.Globals["g1"] != 2 {
		t.Errorf("expected g1 == 2, got %v", res.Globals["g1"])
	}
}

func TestEdgeCases(t *testing.T) {
	tests := []struct {
		name   string
		source string
		ret    float64
		output []string
	}{
		{"undefined function", "$ g0 7 1\n^ g0\n", 0, nil},
		{"undefined label", "@ 9\n= g0 3\n^ g0\n", 3, nil},
		{"escaped string", ". \"say \\\"hi\\\"\"\n^ 1\n", 1, []string{`say \"hi\"`}},
		{"extra call args", "# 0 1 {\n^ a0\n}\n$ g0 0 4 5 6\n^ g0\n", 4, nil},
		{"missing call args", "# 0 2 {\n+ v0 a0 a1\n^ v0\n}\n$ g0 0 4\n^ g0\n", 4, nil},
		{"floored mod", "% g0 7 -3\n^ g0\n", -2, nil},
		{"mod by zero", "% g0 7 0\n^ g0\n", 0, nil},
		{"logic", "& g0 1 0\n| g1 0 2\n! g2 g0\n+ g3 g1 g2\n^ g3\n", 2, nil},
		{"negative array size", "[ g0 -3\n{ g0 0 5\n] g1 g0 0\n^ g1\n", 0, nil},
		{"oversize array", "[ g0 4611686018427387904\n{ g0 0 5\n] g1 g0 0\n. g1\n^ g1\n", 0, []string{"0"}},
		{"just over the array limit", "[ g0 1048577\n{ g0 0 5\n] g1 g0 0\n^ g1\n", 0, nil},
		{"largest array", "[ g0 1048576\n{ g0 1048575 5\n] g1 g0 1048575\n^ g1\n", 5, nil},
		{"mixed kinds", "/ v0 10 4\n. v0\n+ v1 1 2\n. v1\n^ v1\n", 3, []string{"2.5", "3"}},
		{"float flows through a call", "# 0 1 {\n* v0 a0 2\n^ v0\n}\n$ v0 0 1.25\n. v0\n$ v1 0 3\n. v1\n", 0, []string{"2.5", "6"}},
		{"float array element", "[ g0 2\n{ g0 0 0.5\n{ g0 1 4\n] v0 g0 0\n] v1 g0 1\n. v0\n. v1\n", 0, []string{"0.5", "4"}},
		{"float mod by zero is integer", "% v0 7.5 0\n. v0\n% v1 7.5 2\n. v1\n", 0, []string{"0", "1.5"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			it := interpreter.NewInterpreter(interpreter.WithWriter(io.Discard), interpreter.WithInput(strings.NewReader("")))
			want, err := it.Run(tt.source, nil)
			if err != nil {
				t.Fatalf("interpreter failed: %v", err)
			}
			if want.Return.Float64() != tt.ret {
				t.Fatalf("interpreter returned %s, want %v", want.Return, tt.ret)
			}
			printed := make([]string, len(want.Output))
			for i, v := range want.Output {
				printed[i] = v.String()
			}
			if strings.Join(printed, ",") != strings.Join(tt.output, ",") {
				t.Fatalf("interpreter printed %q, want %q", printed, tt.output)
			}

			m, err := host.Load(generate(t, tt.source), host.WithWriter(nil))
			if err != nil {
				t.Fatalf("host load failed: %v", err)
			}
			res, err := m.Run()
			if err != nil {
				t.Fatalf("host run failed: %v", err)
			}
			if res.Return != tt.ret {
				t.Errorf("expected %v, got %v", tt.ret, res.Return)
			}
			if strings.Join(res.Output, ",") != strings.Join(tt.output, ",") {
				t.Errorf("expected output %q, got %q", tt.output, res.Output)
			}
		})
	}
}

func TestBuild(t *testing.T) {
	prog, err := parser.Load("^ 0\n")
	if err != nil {
		t.Fatal(err)
	}

	gen := wat.New(prog, "")
	if err := gen.Generate(); err != nil {
		t.Fatal(err)
	}
	if err := gen.Build(); err == nil {
		t.Errorf("expected error without an output file")
	}

	out := filepath.Join(t.TempDir(), "out.wat")
	gen = wat.New(prog, out)
	if err := gen.Generate(); err != nil {
		t.Fatal(err)
	}
	if err := gen.Build(); err != nil {
		t.Fatalf("build failed: %v", err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), "(module") {
		t.Errorf("unexpected module text: %q", data)
	}
}

func TestMemoryPages(t *testing.T) {
	prog, err := parser.Load("[ g0 3\n{ g0 0 7\n] g1 g0 0\n. g1\n")
	if err != nil {
		t.Fatal(err)
	}

	for _, tt := range []struct{ pages, want int }{{4, 4}, {0, 1}} {
		gen := wat.New(prog, "", wat.WithMemoryPages(tt.pages))
		if err := gen.Generate(); err != nil {
			t.Fatal(err)
		}
		want := `(memory (export "memory") ` + strconv.Itoa(tt.want) + `)`
		if !strings.Contains(gen.GetCode(), want) {
			t.Errorf("pages %d: expected %s in:\n%s", tt.pages, want, gen.GetCode())
		}
	}
}
