package domain

import "encoding/json"

// MaxStackDepth bounds the subroutine call stack. Overflowing it is a
// configuration error in the flow (unbounded recursion), not a runtime
// condition worth tolerating.
const MaxStackDepth = 64

// CallStack is a bounded LIFO of node ids. It enables a subroutine node to
// act as both call-site and return-site across separate protocol round-trips:
// the node id pushed on entry is popped when control falls back through it.
//
// The stack is persisted inside the Channel record as a JSON array, most
// recent entry last.
type CallStack struct {
	ids []string
}

// NewCallStack returns an empty stack.
func NewCallStack() *CallStack {
	return &CallStack{}
}

// Push appends a node id, failing with ErrStackOverflow at capacity.
func (s *CallStack) Push(id string) error {
	if len(s.ids) >= MaxStackDepth {
		return ErrStackOverflow
	}
	s.ids = append(s.ids, id)
	return nil
}

// Pop removes and returns the most recently pushed id.
func (s *CallStack) Pop() (string, bool) {
	if len(s.ids) == 0 {
		return "", false
	}
	id := s.ids[len(s.ids)-1]
	s.ids = s.ids[:len(s.ids)-1]
	return id, true
}

// Peek returns the top id without removing it.
func (s *CallStack) Peek() (string, bool) {
	if len(s.ids) == 0 {
		return "", false
	}
	return s.ids[len(s.ids)-1], true
}

// Empty reports whether the stack holds no ids.
func (s *CallStack) Empty() bool {
	return len(s.ids) == 0
}

// Depth returns the number of ids on the stack.
func (s *CallStack) Depth() int {
	return len(s.ids)
}

// Clear drops all entries.
func (s *CallStack) Clear() {
	s.ids = nil
}

// MarshalJSON serializes the stack as a plain JSON array of node ids.
func (s *CallStack) MarshalJSON() ([]byte, error) {
	if s.ids == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(s.ids)
}

// UnmarshalJSON restores the stack from its persisted JSON array form.
func (s *CallStack) UnmarshalJSON(data []byte) error {
	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return err
	}
	s.ids = ids
	return nil
}
