package cse

import (
	"github.com/tsammeow/source-go/ast"
	"github.com/tsammeow/source-go/errors"
	"github.com/tsammeow/source-go/object"
)

// Machine is the live (Control, Stash, currentEnv) triple spec.md §4.3
// describes as the unit a session suspends and resumes verbatim: calling
// Evaluator.Run again on the same Machine picks up exactly where the
// previous call left off, because nothing about "where we are" lives
// anywhere else.
type Machine struct {
	Control Control
	Stash   Stash
	Env     *object.Environment
	Steps   int

	// Frames is the stack of active call restore targets. A chain of tail
	// calls shares one entry for its whole length (see callClosure).
	Frames []CallFrame

	// SkipBreakpointOnce suppresses a breakpoint check on the very next
	// step. Run sets it when it suspends at a breakpoint, so the Run that
	// resumes on that same line does not immediately re-trip the same
	// breakpoint before any forward progress happens.
	SkipBreakpointOnce bool
}

// NewMachine constructs a Machine with an empty Control/Stash rooted at
// env. Call Load to seed Control with a program before the first Run.
func NewMachine(env *object.Environment) *Machine {
	return &Machine{Env: env}
}

// Load pushes program's top-level statements onto Control, the way any
// statement sequence is pushed (see pushStatements) — the top level has no
// enclosing block and so gets no EnvEnter/EnvLeave pair of its own.
func (m *Machine) Load(program *ast.Program) {
	pushStatements(&m.Control, program.Body)
}

// HostHooks is the Session-provided bridge to whatever the host embedding
// does for output and interaction — spec.md §6's rawDisplay/prompt/alert/
// visualiseList external collaborators. The evaluator and builtins call
// these; they never decide how output is actually rendered.
type HostHooks interface {
	RawDisplay(value object.Value, label string)
	Prompt(message string) string
	Alert(message string)
	VisualiseList(value object.Value)
}

// CallContext is passed to a BuiltinInvoker so a built-in can report errors
// with an accurate call-site location, reach the host hooks, and allocate
// heap entries attributed to the calling environment.
type CallContext struct {
	Loc   ast.SourceLocation
	Hooks HostHooks
	Env   *object.Environment
}

// BuiltinInvoker dispatches a call to the built-in identified by id — the
// opaque index stashed in object.BuiltinFn.ID by package builtins when it
// populated the global environment. Keeping this as an interface (rather
// than cse importing package builtins directly) avoids a dependency from
// the core evaluator onto the specific built-in catalog; package session
// is what wires a concrete builtins.Table in as this interface.
type BuiltinInvoker interface {
	Invoke(ctx *CallContext, id int, args []object.Value) (object.Value, *errors.RuntimeError)
}

// RunOptions configures one call to Evaluator.Run. A zero RunOptions runs
// to completion or error with no cooperative suspension at all.
type RunOptions struct {
	// StepLimit caps the number of instructions popped from Control during
	// this call; 0 means unlimited. Spec.md §4.3's step budget.
	StepLimit int
	// Breakpoints is the set of source line numbers that should suspend
	// execution just before the statement on that line runs.
	Breakpoints map[int]bool
	// Interrupted is polled between steps; when it returns true, Run
	// suspends immediately. Spec.md §5's host-driven interrupt flag.
	Interrupted func() bool
}

// Status is the outcome of one Evaluator.Run call.
type Status int

const (
	StatusFinished Status = iota
	StatusSuspended
	StatusErrored
)

// Result reports how a Run call ended.
type Result struct {
	Status     Status
	Value      object.Value      // valid when Status == StatusFinished
	Error      errors.Diagnostic // valid when Status == StatusErrored
	StepsTaken int
}

// Evaluator drives the step loop over a Machine. It holds no per-run state
// of its own — all of that lives on the Machine — so the same Evaluator can
// drive any number of independently suspended Machines (e.g. a session
// that keeps several paused evaluations around).
type Evaluator struct {
	Builtins BuiltinInvoker
	Hooks    HostHooks
}

// New constructs an Evaluator wired to the given built-in dispatcher and
// host hooks.
func New(builtins BuiltinInvoker, hooks HostHooks) *Evaluator {
	return &Evaluator{Builtins: builtins, Hooks: hooks}
}

// Run pops and dispatches items from m.Control until it empties (Finished),
// an instruction raises a diagnostic (Errored), or opts cuts the run short
// (Suspended) — at which point m's Control/Stash/Env still encode exactly
// where execution stopped, ready for a later Run call to continue from.
func (e *Evaluator) Run(m *Machine, opts RunOptions) Result {
	stepsThisRun := 0
	first := true
	for {
		item, ok := m.Control.Peek()
		if !ok {
			val := object.Value(object.Undefined)
			if v, ok := m.Stash.Peek(); ok {
				val = v
			}
			return Result{Status: StatusFinished, Value: val, StepsTaken: stepsThisRun}
		}
		if opts.Interrupted != nil && opts.Interrupted() {
			return Result{Status: StatusSuspended, StepsTaken: stepsThisRun}
		}
		if opts.StepLimit > 0 && stepsThisRun >= opts.StepLimit {
			return Result{Status: StatusSuspended, StepsTaken: stepsThisRun}
		}
		if line, breakable := breakpointLine(item); breakable && len(opts.Breakpoints) > 0 {
			skip := first && m.SkipBreakpointOnce
			if opts.Breakpoints[line] && !skip {
				m.SkipBreakpointOnce = true
				return Result{Status: StatusSuspended, StepsTaken: stepsThisRun}
			}
		}
		first = false
		m.SkipBreakpointOnce = false
		m.Control.Pop()
		m.Steps++
		stepsThisRun++
		if diag := e.step(m, item); diag != nil {
			return Result{Status: StatusErrored, Error: diag, StepsTaken: stepsThisRun}
		}
	}
}

// breakpointLine extracts the source line a Control item corresponds to,
// for statements only — breakpoints stop execution before a statement, not
// in the middle of evaluating one of its subexpressions.
func breakpointLine(item Item) (int, bool) {
	n, ok := item.(NodeItem)
	if !ok {
		return 0, false
	}
	if _, ok := n.Node.(ast.Statement); !ok {
		return 0, false
	}
	loc := n.Node.Loc()
	if loc.UnknownLocation() {
		return 0, false
	}
	return loc.Start.Line, true
}

// pushStatements pushes stmts onto control so they execute in source order,
// inserting an InstrPop after every non-final ExpressionStatement so its
// discarded value doesn't linger on Stash for the next statement to trip
// over. Statement kinds that never leave a value on Stash (declarations,
// control flow) need no such Pop regardless of position.
func pushStatements(control *Control, stmts []ast.Statement) {
	seq := make([]Item, 0, len(stmts)+len(stmts)/2)
	for i, stmt := range stmts {
		seq = append(seq, NodeItem{Node: stmt})
		if i != len(stmts)-1 {
			if _, ok := stmt.(*ast.ExpressionStatement); ok {
				seq = append(seq, InstrPop{})
			}
		}
	}
	for j := len(seq) - 1; j >= 0; j-- {
		control.Push(seq[j])
	}
}
