package ffi_test

import (
	"errors"
	"testing"

	"sui/pkg/ffi"
	"sui/pkg/value"
)

func TestDefaultFunctions(t *testing.T) {
	r := ffi.Default()

	tests := []struct {
		name string
		args []value.Value
		want value.Value
	}{
		{"len", []value.Value{value.String("héllo")}, value.Int(5)},
		{"len", []value.Value{value.NewArray(value.Int(3))}, value.Int(3)},
		{"abs", []value.Value{value.Int(-4)}, value.Int(4)},
		{"abs", []value.Value{value.Float(-2.5)}, value.Float(2.5)},
		{"min", []value.Value{value.Int(4), value.Float(1.5), value.Int(3)}, value.Float(1.5)},
		{"max", []value.Value{value.Int(4), value.Int(9), value.Int(3)}, value.Int(9)},
		{"str", []value.Value{value.Float(2)}, value.String("2.0")},
		{"int", []value.Value{value.String(" 12 ")}, value.Int(12)},
		{"int", []value.Value{value.Float(-2.7)}, value.Int(-2)},
		{"float", []value.Value{value.Int(3)}, value.Float(3)},
		{"math.sqrt", []value.Value{value.Int(16)}, value.Float(4)},
		{"math.pow", []value.Value{value.Int(2), value.Int(10)}, value.Float(1024)},
		{"math.floor", []value.Value{value.Float(-1.5)}, value.Int(-2)},
		{"math.ceil", []value.Value{value.Float(1.2)}, value.Int(2)},
		{"strings.upper", []value.Value{value.String("abc")}, value.String("ABC")},
		{"strings.lower", []value.Value{value.String("ÀB")}, value.String("àb")},
		{"strings.title", []value.Value{value.String("hello world")}, value.String("Hello World")},
		{"strings.repeat", []value.Value{value.String("ab"), value.Int(3)}, value.String("ababab")},
		{"strings.contains", []value.Value{value.String("haystack"), value.String("st")}, value.Int(1)},
	}

	for _, tt := range tests {
		got, err := r.Call(tt.name, tt.args)
		if err != nil {
			t.Errorf("%s: unexpected error %v", tt.name, err)
			continue
		}
		if got.Kind != tt.want.Kind || !value.Equal(got, tt.want) {
			t.Errorf("%s: expected %v, got %v", tt.name, tt.want, got)
		}
	}
}

func TestCallErrors(t *testing.T) {
	r := ffi.Default()

	if _, err := r.Call("os.remove", nil); !errors.Is(err, ffi.ErrUnknownFunction) {
		t.Errorf("expected ErrUnknownFunction, got %v", err)
	}
	if _, err := r.Call("math.sqrt", nil); !errors.Is(err, ffi.ErrArgCount) {
		t.Errorf("expected ErrArgCount, got %v", err)
	}
	if _, err := r.Call("abs", []value.Value{value.String("x")}); !errors.Is(err, ffi.ErrArgType) {
		t.Errorf("expected ErrArgType, got %v", err)
	}
	if _, err := r.Call("int", []value.Value{value.String("x")}); err == nil {
		t.Error("expected parse error")
	}
}

func TestRegisterAndRecover(t *testing.T) {
	r := ffi.NewRegistry()
	r.Register("explode", func([]value.Value) (value.Value, error) {
		panic("kaboom")
	})

	got, err := r.Call("explode", nil)
	if err == nil {
		t.Fatal("panic should turn into an error")
	}
	if got.Kind != value.KindNothing {
		t.Errorf("expected Nothing, got %v", got)
	}

	if _, ok := r.Lookup("explode"); !ok {
		t.Error("registered function should be found")
	}
	if names := r.Names(); len(names) != 1 || names[0] != "explode" {
		t.Errorf("unexpected names %v", names)
	}
}
