package parser

import (
	"fmt"
	"slices"
	"strings"
	"sui/pkg/lexer"
	"sui/pkg/parser/stack"

	"github.com/charmbracelet/log"
)

// Function is a loaded function definition.
type Function struct {
	ID     int
	Arity  int
	Body   []lexer.Line
	Header lexer.Line
}

// Program is the function table plus the top-level lines.
type Program struct {
	Functions map[int]*Function
	Main      []lexer.Line
}

// NewProgram creates an empty program
func NewProgram() *Program {
	return &Program{Functions: make(map[int]*Function)}
}

// Load tokenizes source and splits it into function definitions and main.
// Nested definitions are hoisted into the function table. Any structural
// fault aborts the load with a *LoadError.
func Load(source string) (*Program, error) {
	return LoadLines(lexer.TokenizeAll(source))
}

// LoadLines is Load over already tokenized lines.
func LoadLines(lines []lexer.Line) (*Program, error) {
	p := NewProgram()
	open := stack.NewStack[*Function]()

	for _, line := range lines {
		switch Operation(line.Opcode()) {
		case OpFunc:
			id, arity, err := parseHeader(line)
			if err != nil {
				return nil, err
			}
			open.Push(&Function{ID: id, Arity: arity, Header: line})

		case OpEnd:
			fn, ok := open.Pop()
			if !ok {
				return nil, newLoadError(line, ErrUnmatchedClose, "")
			}
			if prev, dup := p.Functions[fn.ID]; dup {
				return nil, newLoadError(fn.Header, ErrDuplicateFunction,
					"%d already defined on line %d", fn.ID, prev.Header.Num)
			}
			if err := checkLabels(fn.Body); err != nil {
				return nil, err
			}
			p.Functions[fn.ID] = fn
			log.Debug("loaded function", "id", fn.ID, "arity", fn.Arity, "lines", len(fn.Body))

		default:
			if fn, ok := open.Peek(); ok {
				fn.Body = append(fn.Body, line)
			} else {
				p.Main = append(p.Main, line)
			}
		}
	}

	if fn, ok := open.Peek(); ok {
		return nil, newLoadError(fn.Header, ErrUnterminatedBlock,
			"%d block(s) still open at end of input", open.Size())
	}

	if err := checkLabels(p.Main); err != nil {
		return nil, err
	}

	return p, nil
}

// parseHeader checks a `# <id> <arity> {` line.
func parseHeader(line lexer.Line) (id, arity int, err error) {
	t := line.Tokens
	if len(t) != 4 || t[3] != "{" {
		return 0, 0, newLoadError(line, ErrMalformedHeader, "expected '# id arity {'")
	}

	id, ok := ParseIndex(t[1])
	if !ok {
		return 0, 0, newLoadError(line, ErrMalformedHeader, "function id %q is not a non-negative integer", t[1])
	}
	arity, ok = ParseIndex(t[2])
	if !ok {
		return 0, 0, newLoadError(line, ErrMalformedHeader, "arity %q is not a non-negative integer", t[2])
	}

	return id, arity, nil
}

// checkLabels rejects malformed and repeated label definitions within one block.
func checkLabels(block []lexer.Line) error {
	seen := make(map[int]lexer.Line)
	for _, line := range block {
		if Operation(line.Opcode()) != OpLabel {
			continue
		}
		args := line.Args()
		if len(args) != 1 {
			return newLoadError(line, ErrMalformedLabel, "expected ': label'")
		}
		label, ok := ParseIndex(args[0])
		if !ok {
			return newLoadError(line, ErrMalformedLabel, "label %q is not a non-negative integer", args[0])
		}
		if prev, dup := seen[label]; dup {
			return newLoadError(line, ErrDuplicateLabel, "%d already defined on line %d", label, prev.Num)
		}
		seen[label] = line
	}
	return nil
}

// Labels maps each label of a block to the index of its definition line.
func Labels(block []lexer.Line) map[int]int {
	labels := make(map[int]int)
	for i, line := range block {
		if Operation(line.Opcode()) != OpLabel || len(line.Tokens) < 2 {
			continue
		}
		if label, ok := ParseIndex(line.Tokens[1]); ok {
			if _, dup := labels[label]; !dup {
				labels[label] = i
			}
		}
	}
	return labels
}

// FunctionIDs returns the defined ids in ascending order.
func (p *Program) FunctionIDs() []int {
	ids := make([]int, 0, len(p.Functions))
	for id := range p.Functions {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Merge copies other's functions over p's and appends its main lines.
func (p *Program) Merge(other *Program) {
	if p.Functions == nil {
		p.Functions = make(map[int]*Function)
	}
	for id, fn := range other.Functions {
		p.Functions[id] = fn
	}
	p.Main = append(p.Main, other.Main...)
}

// Contains reports whether any line in main or a function body satisfies pred.
func (p *Program) Contains(pred func(lexer.Line) bool) bool {
	if slices.ContainsFunc(p.Main, pred) {
		return true
	}
	for _, fn := range p.Functions {
		if slices.ContainsFunc(fn.Body, pred) {
			return true
		}
	}
	return false
}

// UsesOp reports whether any line of the program has one of the given opcodes.
func (p *Program) UsesOp(ops ...Operation) bool {
	return p.Contains(func(line lexer.Line) bool {
		return slices.Contains(ops, Operation(line.Opcode()))
	})
}

// Signature summarises the structure of the program: ids, arities and
// body sizes. Two loads of the same source have the same signature.
func (p *Program) Signature() string {
	var b strings.Builder
	for _, id := range p.FunctionIDs() {
		fn := p.Functions[id]
		fmt.Fprintf(&b, "f%d/%d:%d ", id, fn.Arity, len(fn.Body))
	}
	fmt.Fprintf(&b, "main:%d", len(p.Main))
	return b.String()
}
