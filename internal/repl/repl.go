// Package repl is the interactive line-by-line session.
package repl

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"sui/pkg/color"
	"sui/pkg/interpreter"
	"sui/pkg/lexer"
	"sui/pkg/parser"

	"github.com/charmbracelet/log"
	"github.com/peterh/liner"
)

const (
	promptMain  = ">>> "
	promptCont  = "... "
	promptInput = "? "

	cmdReset = ".reset"
	cmdQuit  = ".quit"
)

const banner = `sui interactive session
Enter instructions; a blank line runs them. .reset clears all state, .quit exits.`

// Session feeds snippets to one persistent interpreter.
type Session struct {
	it      *interpreter.Interpreter
	out     io.Writer
	history string
	buf     []string
}

// New creates a session. historyFile may be empty to disable history.
func New(it *interpreter.Interpreter, out io.Writer, historyFile string) *Session {
	return &Session{it: it, out: out, history: historyFile}
}

// BlockDepth returns the number of function blocks left open by source.
// A negative result means a block was closed that was never opened.
func BlockDepth(source string) int {
	depth := 0
	for _, line := range lexer.TokenizeAll(source) {
		switch parser.Operation(line.Opcode()) {
		case parser.OpFunc:
			if line.Tokens[len(line.Tokens)-1] == "{" {
				depth++
			}
		case parser.OpEnd:
			depth--
		}
	}
	return depth
}

// Pending reports whether a snippet is being collected.
func (s *Session) Pending() bool {
	return len(s.buf) > 0
}

// Feed handles one input line. It reports quit once the user asked to leave.
func (s *Session) Feed(line string) (quit bool) {
	trimmed := strings.TrimSpace(line)

	if !s.Pending() {
		switch trimmed {
		case cmdQuit:
			return true
		case cmdReset:
			s.it.Reset()
			fmt.Fprintln(s.out, color.GrayText("session reset"))
			return false
		case "":
			return false
		}
	}

	if trimmed != "" {
		s.buf = append(s.buf, line)
	}

	depth := BlockDepth(strings.Join(s.buf, "\n"))
	switch {
	case depth < 0:
		fmt.Fprintln(s.out, color.Error("'}' without an open function block"))
		s.buf = nil
	case depth == 0 && trimmed == "":
		s.submit()
	}
	return false
}

// submit validates and runs the collected snippet.
func (s *Session) submit() {
	src := strings.Join(s.buf, "\n")
	s.buf = nil

	if errs := parser.Validate(src); len(errs) > 0 {
		for _, e := range errs {
			fmt.Fprintln(s.out, e.Pretty())
		}
		return
	}

	prog, err := parser.Load(src)
	if err != nil {
		var lerr *parser.LoadError
		if errors.As(err, &lerr) {
			fmt.Fprintln(s.out, lerr.Pretty())
		} else {
			fmt.Fprintln(s.out, color.Error(err.Error()))
		}
		return
	}

	res, err := s.it.Execute(prog)
	if err != nil {
		fmt.Fprintln(s.out, color.Error(err.Error()))
		return
	}
	if len(prog.Main) > 0 {
		fmt.Fprintln(s.out, color.GrayText("=> "+res.Return.String()))
	}
}

// Prompter reads one line after showing a prompt. *liner.State is one.
type Prompter interface {
	Prompt(prompt string) (string, error)
}

type promptReader struct {
	p   Prompter
	buf []byte
}

// InputReader serves the input instruction through p, one prompted line at
// a time. An aborted prompt reads as end of input.
func InputReader(p Prompter) io.Reader {
	return &promptReader{p: p}
}

func (r *promptReader) Read(b []byte) (int, error) {
	if len(r.buf) == 0 {
		line, err := r.p.Prompt(promptInput)
		if errors.Is(err, liner.ErrPromptAborted) {
			return 0, io.EOF
		}
		if err != nil {
			return 0, err
		}
		r.buf = []byte(line + "\n")
	}
	n := copy(b, r.buf)
	r.buf = r.buf[n:]
	return n, nil
}

// Run reads lines from the terminal until EOF or .quit.
func (s *Session) Run() error {
	fmt.Fprintln(s.out, banner)

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)
	s.it.SetInput(InputReader(ln))

	if s.history != "" {
		if f, err := os.Open(s.history); err == nil {
			_, _ = ln.ReadHistory(f)
			_ = f.Close()
		}
		defer s.saveHistory(ln)
	}

	for {
		prompt := promptMain
		if s.Pending() {
			prompt = promptCont
		}

		line, err := ln.Prompt(prompt)
		switch {
		case errors.Is(err, io.EOF):
			fmt.Fprintln(s.out)
			return nil
		case errors.Is(err, liner.ErrPromptAborted):
			s.buf = nil
			continue
		case err != nil:
			return fmt.Errorf("read input: %w", err)
		}

		if strings.TrimSpace(line) != "" {
			ln.AppendHistory(line)
		}
		if s.Feed(line) {
			return nil
		}
	}
}

func (s *Session) saveHistory(ln *liner.State) {
	f, err := os.Create(s.history)
	if err != nil {
		log.Warn("cannot write history", "file", s.history, "error", err)
		return
	}
	defer f.Close()
	if _, err := ln.WriteHistory(f); err != nil {
		log.Warn("cannot write history", "file", s.history, "error", err)
	}
}
