package parser

import (
	"errors"
	"fmt"
	"strings"
	"sui/pkg/color"
	"sui/pkg/lexer"
)

var (
	ErrMalformedHeader   = errors.New("malformed function header")
	ErrUnterminatedBlock = errors.New("unterminated function block")
	ErrUnmatchedClose    = errors.New("unmatched block close")
	ErrDuplicateFunction = errors.New("duplicate function id")
	ErrMalformedLabel    = errors.New("malformed label definition")
	ErrDuplicateLabel    = errors.New("duplicate label")
)

// LoadError is a structural fault that stops a program from loading.
type LoadError struct {
	Pos  lexer.Position
	Text string // offending source line
	Err  error  // one of the Err* sentinels
	Msg  string // extra detail, may be empty
}

func newLoadError(line lexer.Line, err error, format string, args ...any) *LoadError {
	return &LoadError{
		Pos:  lexer.NewPosition(line.Num, firstColumn(line)),
		Text: strings.TrimSpace(line.Text),
		Err:  err,
		Msg:  fmt.Sprintf(format, args...),
	}
}

func (e *LoadError) Error() string {
	msg := e.Err.Error()
	if e.Msg != "" {
		msg += ": " + e.Msg
	}
	return fmt.Sprintf("line %d: %s: %q", e.Pos.Line, msg, e.Text)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// Pretty renders the error with source context for terminals.
func (e *LoadError) Pretty() string {
	msg := e.Err.Error()
	if e.Msg != "" {
		msg += ": " + e.Msg
	}
	return color.ErrorWithPosition(e.Pos.Line, e.Pos.Column, msg, e.Text)
}

// ValidationError is one per-line violation found by Validate.
type ValidationError struct {
	Pos  lexer.Position
	Text string
	Msg  string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Pos.Line, e.Msg)
}

// Pretty renders the violation the way the command line prints it.
func (e *ValidationError) Pretty() string {
	return color.RedText(e.Msg) + " at " + color.YellowText(fmt.Sprintf("Line: %d, Column %d", e.Pos.Line, e.Pos.Column))
}

// ValidationErrors aggregates every violation of one source.
type ValidationErrors []*ValidationError

func (errs ValidationErrors) Error() string {
	if len(errs) == 0 {
		return "validation: no issues"
	}
	var b strings.Builder
	b.WriteString("validation failed:")
	for _, e := range errs {
		b.WriteString("\n- ")
		b.WriteString(e.Error())
	}
	return b.String()
}

// Issues returns the plain messages, one per violation.
func (errs ValidationErrors) Issues() []string {
	out := make([]string, len(errs))
	for i, e := range errs {
		out[i] = e.Error()
	}
	return out
}

// Err returns nil when there is nothing to report.
func (errs ValidationErrors) Err() error {
	if len(errs) == 0 {
		return nil
	}
	return errs
}

func firstColumn(line lexer.Line) int {
	if len(line.Columns) > 0 {
		return line.Columns[0]
	}
	return 1
}
