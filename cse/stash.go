package cse

import "github.com/tsammeow/source-go/object"

// Stash is the LIFO operand stack described in spec.md §3: intermediate
// values produced by one step and consumed by a later one (an operand of a
// BinaryOp instruction, a return value waiting for its caller, an argument
// collected for ApplyN).
type Stash []object.Value

// Push appends values, last one given is the next one popped.
func (s *Stash) Push(values ...object.Value) {
	*s = append(*s, values...)
}

// Pop removes and returns the top value. It panics on an empty Stash;
// instructions pop their operands without checking the Stash depth first.
func (s *Stash) Pop() object.Value {
	n := len(*s)
	v := (*s)[n-1]
	*s = (*s)[:n-1]
	return v
}

// PopN removes and returns the top n values in the order they were pushed
// (i.e. PopN(2) after Push(a, b) returns [a, b], not [b, a]) — the shape
// ApplyN needs to rebuild an argument list in source order.
func (s *Stash) PopN(n int) []object.Value {
	l := len(*s)
	out := make([]object.Value, n)
	copy(out, (*s)[l-n:l])
	*s = (*s)[:l-n]
	return out
}

// Peek returns the top value without removing it.
func (s *Stash) Peek() (object.Value, bool) {
	n := len(*s)
	if n == 0 {
		return nil, false
	}
	return (*s)[n-1], true
}

// Len reports the current depth of Stash.
func (s *Stash) Len() int { return len(*s) }
