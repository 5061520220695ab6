package ffi

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"sui/pkg/value"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Default returns a registry with the standard host functions.
func Default() *Registry {
	r := NewRegistry()

	r.Register("len", builtinLen)
	r.Register("abs", builtinAbs)
	r.Register("min", extreme(value.Lt))
	r.Register("max", extreme(value.Gt))
	r.Register("str", builtinStr)
	r.Register("int", builtinInt)
	r.Register("float", builtinFloat)

	r.Register("math.sqrt", floatFunc(math.Sqrt))
	r.Register("math.pow", builtinPow)
	r.Register("math.floor", roundFunc(math.Floor))
	r.Register("math.ceil", roundFunc(math.Ceil))

	r.Register("strings.upper", stringFunc(cases.Upper(language.Und).String))
	r.Register("strings.lower", stringFunc(cases.Lower(language.Und).String))
	r.Register("strings.title", stringFunc(cases.Title(language.Und).String))
	r.Register("strings.repeat", builtinRepeat)
	r.Register("strings.contains", builtinContains)

	r.Register("time.now", builtinNow)

	return r
}

func builtinLen(args []value.Value) (value.Value, error) {
	if err := expect(args, 1); err != nil {
		return value.Value{}, err
	}
	switch v := args[0]; v.Kind {
	case value.KindString:
		return value.Int(int64(utf8.RuneCountInString(v.S))), nil
	case value.KindArray:
		return value.Int(int64(v.Len())), nil
	default:
		return value.Value{}, fmt.Errorf("%w: %s has no length", ErrArgType, value.KindName(v.Kind))
	}
}

func builtinAbs(args []value.Value) (value.Value, error) {
	if err := expect(args, 1); err != nil {
		return value.Value{}, err
	}
	switch v := args[0]; v.Kind {
	case value.KindInt:
		if v.I < 0 {
			return value.Int(-v.I), nil
		}
		return v, nil
	case value.KindFloat:
		return value.Float(math.Abs(v.F)), nil
	default:
		return value.Value{}, expectNumber(v)
	}
}

// extreme keeps the argument that wins against every other under better.
func extreme(better func(a, b value.Value) value.Value) Func {
	return func(args []value.Value) (value.Value, error) {
		if len(args) == 0 {
			return value.Value{}, fmt.Errorf("%w: expects at least 1", ErrArgCount)
		}
		best := args[0]
		for _, v := range args[1:] {
			if better(v, best).Truthy() {
				best = v
			}
		}
		return best, nil
	}
}

func builtinStr(args []value.Value) (value.Value, error) {
	if err := expect(args, 1); err != nil {
		return value.Value{}, err
	}
	return value.String(args[0].String()), nil
}

func builtinInt(args []value.Value) (value.Value, error) {
	if err := expect(args, 1); err != nil {
		return value.Value{}, err
	}
	switch v := args[0]; v.Kind {
	case value.KindInt, value.KindFloat:
		return value.Int(v.Int64()), nil
	case value.KindString:
		n, err := strconv.ParseInt(strings.TrimSpace(v.S), 10, 64)
		if err != nil {
			return value.Value{}, err
		}
		return value.Int(n), nil
	default:
		return value.Value{}, expectNumber(v)
	}
}

func builtinFloat(args []value.Value) (value.Value, error) {
	if err := expect(args, 1); err != nil {
		return value.Value{}, err
	}
	switch v := args[0]; v.Kind {
	case value.KindInt, value.KindFloat:
		return value.Float(v.Float64()), nil
	case value.KindString:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.S), 64)
		if err != nil {
			return value.Value{}, err
		}
		return value.Float(f), nil
	default:
		return value.Value{}, expectNumber(v)
	}
}

func floatFunc(fn func(float64) float64) Func {
	return func(args []value.Value) (value.Value, error) {
		if err := expect(args, 1); err != nil {
			return value.Value{}, err
		}
		if err := expectNumber(args[0]); err != nil {
			return value.Value{}, err
		}
		return value.Float(fn(args[0].Float64())), nil
	}
}

// roundFunc rounds to an integer result.
func roundFunc(fn func(float64) float64) Func {
	return func(args []value.Value) (value.Value, error) {
		if err := expect(args, 1); err != nil {
			return value.Value{}, err
		}
		if err := expectNumber(args[0]); err != nil {
			return value.Value{}, err
		}
		return value.Int(value.Float(fn(args[0].Float64())).Int64()), nil
	}
}

func builtinPow(args []value.Value) (value.Value, error) {
	if err := expect(args, 2); err != nil {
		return value.Value{}, err
	}
	for _, a := range args {
		if err := expectNumber(a); err != nil {
			return value.Value{}, err
		}
	}
	return value.Float(math.Pow(args[0].Float64(), args[1].Float64())), nil
}

func stringFunc(fn func(string) string) Func {
	return func(args []value.Value) (value.Value, error) {
		if err := expect(args, 1); err != nil {
			return value.Value{}, err
		}
		return value.String(fn(args[0].String())), nil
	}
}

func builtinRepeat(args []value.Value) (value.Value, error) {
	if err := expect(args, 2); err != nil {
		return value.Value{}, err
	}
	n := args[1].Int64()
	if n < 0 {
		n = 0
	}
	return value.String(strings.Repeat(args[0].String(), int(n))), nil
}

func builtinContains(args []value.Value) (value.Value, error) {
	if err := expect(args, 2); err != nil {
		return value.Value{}, err
	}
	if strings.Contains(args[0].String(), args[1].String()) {
		return value.Int(1), nil
	}
	return value.Int(0), nil
}

func builtinNow(args []value.Value) (value.Value, error) {
	if err := expect(args, 0); err != nil {
		return value.Value{}, err
	}
	return value.Float(float64(time.Now().UnixNano()) / 1e9), nil
}
