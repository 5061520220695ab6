package parser

import (
	"fmt"
	"sui/pkg/lexer"
)

// Validate checks every line of source on its own and returns all violations.
// It does not stop at the first problem and does not check block structure.
func Validate(source string) ValidationErrors {
	var errs ValidationErrors
	for _, line := range lexer.TokenizeAll(source) {
		if err := ValidateLine(line); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

// ValidateLine checks the opcode and operand count of one line.
func ValidateLine(line lexer.Line) *ValidationError {
	op := Operation(line.Opcode())
	got := len(line.Args())

	fail := func(format string, args ...any) *ValidationError {
		return &ValidationError{
			Pos:  lexer.NewPosition(line.Num, firstColumn(line)),
			Text: line.Text,
			Msg:  fmt.Sprintf(format, args...),
		}
	}

	count, ok := operandCounts[op]
	if !ok {
		return fail("Unknown instruction '%s'", op)
	}

	if op == OpFunc {
		if got != 3 || line.Tokens[3] != "{" {
			return fail("Function definition must be '# id argc {'")
		}
		if _, ok := ParseIndex(line.Tokens[1]); !ok {
			return fail("Function id must be a non-negative integer, got '%s'", line.Tokens[1])
		}
		if _, ok := ParseIndex(line.Tokens[2]); !ok {
			return fail("Function arity must be a non-negative integer, got '%s'", line.Tokens[2])
		}
		return nil
	}

	switch {
	case count.max < 0 && got < count.min:
		return fail("'%s' requires at least %d arguments, got %d", op, count.min, got)
	case got < count.min:
		return fail("'%s' requires %d arguments, got %d", op, count.min, got)
	case count.max >= 0 && got > count.max:
		return fail("'%s' takes %d arguments, got %d", op, count.max, got)
	}

	switch op {
	case OpLabel, OpJmp:
		if _, ok := ParseIndex(line.Tokens[1]); !ok {
			return fail("'%s' label must be a non-negative integer, got '%s'", op, line.Tokens[1])
		}
	case OpJmpIf:
		if _, ok := ParseIndex(line.Tokens[2]); !ok {
			return fail("'%s' label must be a non-negative integer, got '%s'", op, line.Tokens[2])
		}
	case OpCall:
		if _, ok := ParseIndex(line.Tokens[2]); !ok {
			return fail("'%s' function id must be a non-negative integer, got '%s'", op, line.Tokens[2])
		}
	}

	return nil
}
