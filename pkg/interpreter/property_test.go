package interpreter_test

import (
	"fmt"
	"testing"

	"sui/pkg/value"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// Reads outside an array yield 0 and writes outside it change nothing.
func TestProperty_ArrayBoundsAreLenient(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)

	properties.Property("out of range access never fails", prop.ForAll(
		func(size, idx int) bool {
			src := fmt.Sprintf("[ g0 %d\n{ g0 %d 7\n] g1 g0 %d\n", size, idx, idx)

			it, _ := newQuiet()
			if _, err := it.Run(src, nil); err != nil {
				return false
			}

			arr, got := it.Global(0), it.Global(1)
			inRange := idx >= 0 && idx < size
			if inRange {
				return got.I == 7 && arr.Len() == size
			}

			for _, e := range arr.Arr {
				if !value.Equal(e, value.Int(0)) {
					return false
				}
			}
			return got.Kind == value.KindInt && got.I == 0
		},
		gen.IntRange(0, 16),
		gen.IntRange(-4, 24),
	))

	properties.TestingRun(t)
}

// Loops counting to n print the triangular number.
func TestProperty_LoopSum(t *testing.T) {
	properties := gopter.NewProperties(gopter.DefaultTestParameters())

	properties.Property("sum of 1..n", prop.ForAll(
		func(n int) bool {
			src := fmt.Sprintf("= g0 0\n= g1 1\n: 0\n> v0 g1 %d\n? v0 1\n+ g0 g0 g1\n+ g1 g1 1\n@ 0\n: 1\n. g0", n)

			it, _ := newQuiet()
			res, err := it.Run(src, nil)
			if err != nil || len(res.Output) != 1 {
				return false
			}
			return res.Output[0].I == int64(n*(n+1)/2)
		},
		gen.IntRange(0, 60),
	))

	properties.TestingRun(t)
}
