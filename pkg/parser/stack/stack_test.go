package stack_test

import (
	"sui/pkg/parser/stack"
	"testing"
)

func TestStackOrder(t *testing.T) {
	s := stack.NewStack(1, 2)
	s.Push(3)

	if s.Size() != 3 {
		t.Fatalf("expected size 3, got %d", s.Size())
	}
	if top, _ := s.Peek(); top != 3 {
		t.Errorf("expected top 3, got %d", top)
	}

	for _, want := range []int{3, 2, 1} {
		got, ok := s.Pop()
		if !ok || got != want {
			t.Errorf("Pop: expected %d, got %d (ok=%v)", want, got, ok)
		}
	}

	if _, ok := s.Pop(); ok {
		t.Error("Pop on empty stack should report false")
	}
	if _, ok := s.Peek(); ok {
		t.Error("Peek on empty stack should report false")
	}
}
