package value

import (
	"math"
	"strconv"
	"strings"
)

// Kind tags the variant held by a Value.
type Kind int

const (
	KindInt Kind = iota
	KindFloat
	KindString
	KindArray
	KindNothing
)

// Value is a dynamically-typed runtime value.
// The zero Value is the integer 0, which is what uninitialized slots read as.
type Value struct {
	Kind Kind
	I    int64
	F    float64
	S    string
	Arr  []Value
}

// Int creates a new integer Value.
func Int(i int64) Value {
	return Value{Kind: KindInt, I: i}
}

// Float creates a new float Value.
func Float(f float64) Value {
	return Value{Kind: KindFloat, F: f}
}

// String creates a new string Value.
func String(s string) Value {
	return Value{Kind: KindString, S: s}
}

// Nothing is the empty result of a failed foreign call.
func Nothing() Value {
	return Value{Kind: KindNothing}
}

// MaxArrayLen is the largest array that can be created.
const MaxArrayLen = 1 << 20

// NewArray allocates a zero-filled array. Negative sizes and sizes above
// MaxArrayLen allocate an empty array.
func NewArray(size Value) Value {
	n := size.Int64()
	if n < 0 || n > MaxArrayLen {
		n = 0
	}
	return Value{Kind: KindArray, Arr: make([]Value, n)}
}

// KindName returns a printable name for k.
func KindName(k Kind) string {
	switch k {
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	default:
		return "nothing"
	}
}

// String renders the value the way the output instruction prints it.
func (v Value) String() string {
	switch v.Kind {
	case KindInt:
		return strconv.FormatInt(v.I, 10)
	case KindFloat:
		return formatFloat(v.F)
	case KindString:
		return v.S
	case KindArray:
		parts := make([]string, len(v.Arr))
		for i, e := range v.Arr {
			parts[i] = e.String()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	default:
		return "nil"
	}
}

// formatFloat prints integral floats with a trailing ".0" so they stay
// distinguishable from integers.
func formatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return "nan"
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	}

	abs := math.Abs(f)
	if f == math.Trunc(f) && abs < 1e16 {
		return strconv.FormatFloat(f, 'f', 1, 64)
	}
	if abs >= 1e-4 && abs < 1e16 {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// Truthy reports whether v counts as true for jumps and logic.
func (v Value) Truthy() bool {
	switch v.Kind {
	case KindInt:
		return v.I != 0
	case KindFloat:
		return v.F != 0
	case KindString:
		return v.S != ""
	case KindArray:
		return len(v.Arr) > 0
	default:
		return false
	}
}

// IsNumber reports whether v is an Int or a Float.
func (v Value) IsNumber() bool {
	return v.Kind == KindInt || v.Kind == KindFloat
}

// Int64 converts v to an integer, truncating floats and parsing numeric strings.
// Anything else converts to 0.
func (v Value) Int64() int64 {
	switch v.Kind {
	case KindInt:
		return v.I
	case KindFloat:
		return truncFloat(v.F)
	case KindString:
		if n, err := strconv.ParseInt(strings.TrimSpace(v.S), 10, 64); err == nil {
			return n
		}
	}
	return 0
}

// Float64 converts v to a float; non-numbers convert to 0.
func (v Value) Float64() float64 {
	switch v.Kind {
	case KindInt:
		return float64(v.I)
	case KindFloat:
		return v.F
	}
	return 0
}

// truncFloat saturates like a non-trapping float-to-int conversion.
func truncFloat(f float64) int64 {
	switch {
	case math.IsNaN(f):
		return 0
	case f >= math.MaxInt64:
		return math.MaxInt64
	case f <= math.MinInt64:
		return math.MinInt64
	}
	return int64(f)
}

// Len returns the array length, or 0 for non-arrays.
func (v Value) Len() int {
	if v.Kind != KindArray {
		return 0
	}
	return len(v.Arr)
}

// Index reads element idx. Non-arrays and out-of-range indices read as 0.
func (v Value) Index(idx Value) Value {
	if v.Kind != KindArray {
		return Value{}
	}
	i := idx.Int64()
	if i < 0 || i >= int64(len(v.Arr)) {
		return Value{}
	}
	return v.Arr[i]
}

// SetIndex writes element idx and reports whether the write happened.
// Non-arrays and out-of-range indices are left untouched.
func (v Value) SetIndex(idx, x Value) bool {
	if v.Kind != KindArray {
		return false
	}
	i := idx.Int64()
	if i < 0 || i >= int64(len(v.Arr)) {
		return false
	}
	v.Arr[i] = x
	return true
}

func boolValue(b bool) Value {
	if b {
		return Int(1)
	}
	return Int(0)
}

// Add adds two values; a string on either side concatenates.
func Add(a, b Value) Value {
	if a.Kind == KindString || b.Kind == KindString {
		return String(a.String() + b.String())
	}
	if a.Kind == KindFloat || b.Kind == KindFloat {
		return Float(a.Float64() + b.Float64())
	}
	return Int(a.intOrZero() + b.intOrZero())
}

// Sub subtracts b from a.
func Sub(a, b Value) Value {
	if a.Kind == KindFloat || b.Kind == KindFloat {
		return Float(a.Float64() - b.Float64())
	}
	return Int(a.intOrZero() - b.intOrZero())
}

// Mul multiplies a and b.
func Mul(a, b Value) Value {
	if a.Kind == KindFloat || b.Kind == KindFloat {
		return Float(a.Float64() * b.Float64())
	}
	return Int(a.intOrZero() * b.intOrZero())
}

// Div always produces a float quotient, including for two integers.
func Div(a, b Value) Value {
	return Float(a.Float64() / b.Float64())
}

// Mod is floored modulo: the result takes the sign of the divisor.
// A zero divisor yields 0.
func Mod(a, b Value) Value {
	if a.Kind == KindFloat || b.Kind == KindFloat {
		x, y := a.Float64(), b.Float64()
		if y == 0 {
			return Int(0)
		}
		r := math.Mod(x, y)
		if r != 0 && (r < 0) != (y < 0) {
			r += y
		}
		return Float(r)
	}

	x, y := a.intOrZero(), b.intOrZero()
	if y == 0 {
		return Int(0)
	}
	r := x % y
	if r != 0 && (r < 0) != (y < 0) {
		r += y
	}
	return Int(r)
}

func (v Value) intOrZero() int64 {
	if v.Kind == KindInt {
		return v.I
	}
	return 0
}

// compare orders two numbers or two strings; ok is false for any other pairing.
func compare(a, b Value) (c int, ok bool) {
	switch {
	case a.Kind == KindInt && b.Kind == KindInt:
		switch {
		case a.I < b.I:
			return -1, true
		case a.I > b.I:
			return 1, true
		}
		return 0, true
	case a.IsNumber() && b.IsNumber():
		x, y := a.Float64(), b.Float64()
		switch {
		case x < y:
			return -1, true
		case x > y:
			return 1, true
		case x == y:
			return 0, true
		}
		return 0, false
	case a.Kind == KindString && b.Kind == KindString:
		return strings.Compare(a.S, b.S), true
	}
	return 0, false
}

// Lt yields 1 when a < b, else 0.
func Lt(a, b Value) Value {
	c, ok := compare(a, b)
	return boolValue(ok && c < 0)
}

// Gt yields 1 when a > b, else 0.
func Gt(a, b Value) Value {
	c, ok := compare(a, b)
	return boolValue(ok && c > 0)
}

// Eq yields 1 when a and b are equal, else 0.
func Eq(a, b Value) Value {
	return boolValue(Equal(a, b))
}

// Equal compares numbers across Int and Float, strings by content and arrays
// element by element. Mixed kinds are unequal.
func Equal(a, b Value) bool {
	if a.IsNumber() && b.IsNumber() {
		c, ok := compare(a, b)
		return ok && c == 0
	}
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KindString:
		return a.S == b.S
	case KindArray:
		if len(a.Arr) != len(b.Arr) {
			return false
		}
		for i := range a.Arr {
			if !Equal(a.Arr[i], b.Arr[i]) {
				return false
			}
		}
		return true
	}
	return true
}

// Not yields 0 for a truthy value and 1 otherwise.
func Not(a Value) Value {
	return boolValue(!a.Truthy())
}

// And yields 1 when both values are truthy.
func And(a, b Value) Value {
	return boolValue(a.Truthy() && b.Truthy())
}

// Or yields 1 when either value is truthy.
func Or(a, b Value) Value {
	return boolValue(a.Truthy() || b.Truthy())
}

// Literal converts a source token that is not a variable reference.
// Quoted tokens become strings, tokens containing '.' are floats, the rest
// integers. A token that fails to parse is kept as a string.
func Literal(tok string) Value {
	if len(tok) >= 2 && strings.HasPrefix(tok, `"`) && strings.HasSuffix(tok, `"`) {
		return String(tok[1 : len(tok)-1])
	}
	if strings.Contains(tok, ".") {
		if f, err := strconv.ParseFloat(tok, 64); err == nil {
			return Float(f)
		}
		return String(tok)
	}
	if i, err := strconv.ParseInt(tok, 10, 64); err == nil {
		return Int(i)
	}
	return String(tok)
}

// Parse converts external text (input lines, command-line arguments):
// integer first, then float, else the text itself.
func Parse(s string) Value {
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return Int(i)
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return Float(f)
	}
	return String(s)
}
