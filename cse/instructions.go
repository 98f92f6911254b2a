package cse

import (
	"github.com/tsammeow/source-go/ast"
	"github.com/tsammeow/source-go/object"
)

// InstrBinaryOp applies Operator to the top two Stash values (right popped
// first, then left — i.e. Stash holds [..., left, right] before this runs).
type InstrBinaryOp struct {
	Operator string
	Loc      ast.SourceLocation
}

func (InstrBinaryOp) item() {}

// InstrLogicalRest resolves the short-circuit operand of && / ||: pushed
// after the left operand has already been evaluated and left on Stash, it
// peeks that value and either short-circuits (leaving it on Stash, right
// never evaluated) or pops it and pushes the right operand for evaluation.
type InstrLogicalRest struct {
	Operator string
	Right    ast.Expression
}

func (InstrLogicalRest) item() {}

// InstrUnaryOp applies Operator to the top Stash value.
type InstrUnaryOp struct {
	Operator string
	Loc      ast.SourceLocation
}

func (InstrUnaryOp) item() {}

// InstrBranch pops a test value from Stash and pushes Consequent or
// Alternate depending on its truthiness — shared by IfStatement and
// ConditionalExpression. Tail carries the branch point's own tail-position
// status through to whichever side is taken: a ConditionalExpression in
// tail position (e.g. an arrow's expression body, or a return's argument)
// stays in tail position down whichever branch runs, however deeply
// ConditionalExpressions are nested. IfStatement always leaves this false —
// its branches are statements, and a return statement nested inside one is
// already recognized as tail independent of this flag (see pushReturn).
type InstrBranch struct {
	Consequent ast.Node
	Alternate  ast.Node // nil when there is no else/alternate branch
	Tail       bool
}

func (InstrBranch) item() {}

// InstrPop discards the top Stash value — used between non-final statements
// of a sequence, whose expression results are never observed.
type InstrPop struct{}

func (InstrPop) item() {}

// InstrApplyN pops ArgCount arguments and then the callee from Stash (callee
// pushed first, so it sits below the arguments) and invokes it, per
// spec.md §4.6's call protocol.
type InstrApplyN struct {
	ArgCount int
	CallSite ast.SourceLocation
	TailCall bool // true when this application sits in tail position
}

func (InstrApplyN) item() {}

// InstrReturnMarker marks where a call's body was pushed. Reaching one by
// ordinary popping (rather than via an explicit return or a tail call
// reusing the frame) means the function body ran off the end without an
// explicit return; Undefined is used as the implicit result in that case.
// The actual restore target (environment, Control/Stash depth) lives in
// the Machine's Frames stack rather than on this item, so a tail call can
// reuse that target without needing to find and rewrite a buried Control
// entry (spec.md §4.6, §8 invariant 3).
type InstrReturnMarker struct{}

func (InstrReturnMarker) item() {}

// InstrAssignTo pops a value from Stash and stores it into Target (an
// Identifier, via env.Assign), then pushes the assigned value back as the
// expression's result. A MemberExpression target goes through
// InstrArrayAssign instead.
type InstrAssignTo struct {
	Target ast.Expression
}

func (InstrAssignTo) item() {}

// InstrDefine pops a value from Stash and defines Name in the current
// environment at the given binding kind — the second half of a
// VariableDeclaration once its initializer has been evaluated.
type InstrDefine struct {
	Name string
	Kind object.BindingKind
}

func (InstrDefine) item() {}

// InstrArrayLit pops N values from Stash (in source order, via PopN) and
// pushes a freshly allocated *object.Array wrapping them.
type InstrArrayLit struct {
	N int
}

func (InstrArrayLit) item() {}

// InstrArrayAccess pops an index then an array from Stash (array pushed
// first) and pushes the element at that index, or raises a RangeError-style
// runtime error when the index is out of bounds.
type InstrArrayAccess struct {
	Loc ast.SourceLocation
}

func (InstrArrayAccess) item() {}

// InstrArrayAssign pops a value, then an index, then an array from Stash
// (array pushed first, then index, then value) and stores value at that
// index in-place, pushing value back as the expression's result.
type InstrArrayAssign struct {
	Loc ast.SourceLocation
}

func (InstrArrayAssign) item() {}

// InstrWhileTest re-evaluates Test and, if truthy, pushes Body followed by
// another InstrWhileTest to continue the loop; if falsy, the loop ends with
// Undefined left implicitly as the statement's (unobserved) result.
type InstrWhileTest struct {
	Test ast.Expression
	Body ast.Statement
}

func (InstrWhileTest) item() {}

// InstrForUpdate evaluates Update for its side effect, discards the result
// and continues the loop via a fresh InstrForTest — the counterpart of a
// WhileTest but separated out because `for`'s update clause runs after the
// body rather than before the test.
type InstrForUpdate struct {
	Update ast.Expression
	Next   InstrForTest
}

func (InstrForUpdate) item() {}

// InstrForTest mirrors InstrWhileTest for `for` loops, additionally
// carrying Update so the body's continuation can chain into InstrForUpdate.
type InstrForTest struct {
	Test   ast.Expression
	Body   ast.Statement
	Update ast.Expression
}

func (InstrForTest) item() {}

// InstrEnvEnter installs Env as the machine's current environment — pushed
// ahead of a block's statements so EnvLeave can restore the previous one
// once they've run.
type InstrEnvEnter struct {
	Env *object.Environment
}

func (InstrEnvEnter) item() {}

// InstrEnvLeave restores Prev as the machine's current environment, undoing
// a matching EnvEnter once a block's statements have all executed.
type InstrEnvLeave struct {
	Prev *object.Environment
}

func (InstrEnvLeave) item() {}

// InstrRestore resets Control and Stash to a previously captured snapshot.
// Reserved for a future try/catch-style non-local exit: no current AST node
// kind constructs one, since spec.md §6 does not include a TryStatement,
// but the instruction tag is part of C4's set.
type InstrRestore struct {
	Control Control
	Stash   Stash
}

func (InstrRestore) item() {}
