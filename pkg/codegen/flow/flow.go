// Package flow rebuilds structured control flow from labels and jumps.
//
// A block is split into numbered states. State 0 is the entry and state k
// starts at the k-th label definition, in source order. A jump becomes
// "set the state, restart the dispatch loop"; falling off the end of a
// state moves to the next one, and falling off the last state leaves the
// loop. Both generators lower blocks through this one partition.
package flow

import (
	"fmt"

	"sui/pkg/lexer"
	"sui/pkg/parser"
)

// Exit is the state that leaves the dispatch loop.
const Exit = -1

// Group is the straight-line code of one state.
type Group struct {
	State int
	Label int          // label that opens the state, -1 for the entry
	Lines []lexer.Line // body without the label line
}

// Machine is the state partition of one block.
type Machine struct {
	Groups []Group
	states map[int]int // label -> state
}

// Build partitions block. Label definitions must be well formed and unique.
func Build(block []lexer.Line) (*Machine, error) {
	m := &Machine{
		Groups: []Group{{State: 0, Label: -1}},
		states: make(map[int]int),
	}

	for _, line := range block {
		if parser.Operation(line.Opcode()) != parser.OpLabel {
			last := &m.Groups[len(m.Groups)-1]
			last.Lines = append(last.Lines, line)
			continue
		}

		if len(line.Tokens) != 2 {
			return nil, fmt.Errorf("line %d: malformed label definition", line.Num)
		}
		label, ok := parser.ParseIndex(line.Tokens[1])
		if !ok {
			return nil, fmt.Errorf("line %d: label %q is not a non-negative integer", line.Num, line.Tokens[1])
		}
		if _, dup := m.states[label]; dup {
			return nil, fmt.Errorf("line %d: duplicate label %d", line.Num, label)
		}

		state := len(m.Groups)
		m.states[label] = state
		m.Groups = append(m.Groups, Group{State: state, Label: label})
	}

	return m, nil
}

// Flat reports whether the block has no labels, so needs no dispatch loop.
func (m *Machine) Flat() bool {
	return len(m.states) == 0
}

// States returns the number of states: labels + 1.
func (m *Machine) States() int {
	return len(m.Groups)
}

// Target returns the state a jump to label enters. ok is false for labels
// the block never defines; such jumps fall through.
func (m *Machine) Target(label int) (state int, ok bool) {
	state, ok = m.states[label]
	return state, ok
}

// JumpTarget resolves the label operand of a jump line.
func (m *Machine) JumpTarget(tok string) (int, bool) {
	label, ok := parser.ParseIndex(tok)
	if !ok {
		return 0, false
	}
	return m.Target(label)
}

// Next returns the state that follows state, or Exit after the last one.
func (m *Machine) Next(state int) int {
	if state+1 < len(m.Groups) {
		return state + 1
	}
	return Exit
}

// Terminates reports whether the state ends with a return or with a jump
// to a defined label, so control never falls off its end.
func (m *Machine) Terminates(state int) bool {
	lines := m.Groups[state].Lines
	if len(lines) == 0 {
		return false
	}

	last := lines[len(lines)-1]
	switch parser.Operation(last.Opcode()) {
	case parser.OpRet:
		return true
	case parser.OpJmp:
		if len(last.Tokens) < 2 {
			return false
		}
		_, ok := m.JumpTarget(last.Tokens[1])
		return ok
	}
	return false
}

// Lines returns the entry group's lines for a flat block.
func (m *Machine) Lines() []lexer.Line {
	return m.Groups[0].Lines
}
