// Package cse implements the Control-Stash-Environment evaluator: the
// explicit-control work-stack (Control), the operand stash (Stash), the
// instruction tag set those stacks carry (C4), and the step loop that
// drives them (C5). It is grounded on the teacher's evaluator package —
// evaluator.go's `Eval` switch over ast.Node kinds supplies the dispatch
// table this package generalizes from implicit host recursion into
// explicit pushes onto Control, which is what buys pause/resume/interrupt
// and bounded tail calls (spec.md §9's "explicit control vs host call
// stack" design note).
package cse

import "github.com/tsammeow/source-go/ast"

// Item is either an AST node awaiting evaluation or an instruction
// produced by a previous step; Control is a LIFO stack of these.
type Item interface {
	item()
}

// NodeItem re-enters dispatch on an AST node — the `EvalNode(node)` tag of
// spec.md §4.4. Tail marks that this node's value, if it comes from a call,
// is the enclosing call's own result with no further work to do once that
// call returns — the condition under which a call must reuse its caller's
// CallFrame (spec.md §8 invariant 3) instead of growing Frames. Only a
// handful of node kinds look at it (ConditionalExpression propagates it to
// whichever branch is taken; CallExpression consumes it directly); every
// other kind ignores it, since a value it produces always needs further
// work (a binary operand, an array element, ...) and so can never itself be
// in tail position.
type NodeItem struct {
	Node ast.Node
	Tail bool
}

func (NodeItem) item() {}

// Control is the explicit work-stack described in spec.md §3: it encodes
// the future of the computation, and is appended to only by pushes and
// drained only by strictly-LIFO pops. Its size is bounded only by the
// session's step budget (spec.md §4.3).
type Control []Item

// Push appends items in the order given, so the last item given is the
// next one popped — e.g. Push(a, b, c) then Pop() three times yields
// c, b, a.
func (c *Control) Push(items ...Item) {
	*c = append(*c, items...)
}

// PushNode is shorthand for Push(NodeItem{Node: n}).
func (c *Control) PushNode(n ast.Node) {
	c.Push(NodeItem{Node: n})
}

// Pop removes and returns the top of Control. It panics if Control is
// empty — the evaluator's Run loop only calls Pop after Peek has found an
// item.
func (c *Control) Pop() Item {
	n := len(*c)
	item := (*c)[n-1]
	*c = (*c)[:n-1]
	return item
}

// Peek returns the top of Control without removing it. ok is false when
// Control is empty.
func (c *Control) Peek() (Item, bool) {
	n := len(*c)
	if n == 0 {
		return nil, false
	}
	return (*c)[n-1], true
}

// Len reports the current depth of Control, the quantity spec.md §8
// invariant 3 (tail-call boundedness) makes claims about.
func (c *Control) Len() int { return len(*c) }

// Snapshot returns a copy of Control suitable for a Restore instruction or
// for session-level suspend/resume bookkeeping — copying rather than
// aliasing so later pushes to the live Control don't retroactively alter a
// saved snapshot.
func (c Control) Snapshot() Control {
	cp := make(Control, len(c))
	copy(cp, c)
	return cp
}
