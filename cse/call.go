package cse

import (
	"fmt"
	"strings"

	"github.com/tsammeow/source-go/ast"
	"github.com/tsammeow/source-go/errors"
	"github.com/tsammeow/source-go/object"
)

// CallFrame is the restore target for one active (non-tail-reused) call:
// the environment and Control/Stash depths to return to once the call's
// result is known. A chain of tail calls shares a single CallFrame for its
// entire length, which is what keeps Control bounded regardless of how
// many tail calls that chain makes (spec.md §8 invariant 3).
type CallFrame struct {
	Env        *object.Environment
	ControlLen int
	StashLen   int
}

// InstrUnwindReturn pops one value from Stash and unwinds to the current
// top CallFrame, restoring its environment and truncating Control/Stash to
// its recorded depths before pushing the value back as the call
// expression's result. Pushed by every return statement and after an
// expression-bodied closure's body; when the returned expression ends in a
// tail call, that call truncates Control below it before it can run.
type InstrUnwindReturn struct{}

func (InstrUnwindReturn) item() {}

// pushCall schedules evaluation of callee and args followed by an ApplyN
// that invokes the result. Push order is chosen so popping proceeds
// callee, arg[0], arg[1], ..., arg[n-1], ApplyN — each evaluation leaving
// its value on Stash for ApplyN to collect.
func (e *Evaluator) pushCall(m *Machine, callee ast.Expression, args []ast.Expression, loc ast.SourceLocation, tail bool) {
	items := make([]Item, 0, len(args)+2)
	items = append(items, InstrApplyN{ArgCount: len(args), CallSite: loc, TailCall: tail})
	for i := len(args) - 1; i >= 0; i-- {
		items = append(items, NodeItem{Node: args[i]})
	}
	items = append(items, NodeItem{Node: callee})
	m.Control.Push(items...)
}

func (e *Evaluator) execApplyN(m *Machine, it InstrApplyN) errors.Diagnostic {
	args := m.Stash.PopN(it.ArgCount)
	callee := m.Stash.Pop()
	switch fn := callee.(type) {
	case *object.Closure:
		return e.callClosure(m, fn, args, it)
	case *object.BuiltinFn:
		if e.Builtins == nil {
			return errors.NewRuntime(it.CallSite, fmt.Sprintf("%s is not available", fn.Name))
		}
		ctx := &CallContext{Loc: it.CallSite, Hooks: e.Hooks, Env: m.Env}
		v, diag := e.Builtins.Invoke(ctx, fn.ID, args)
		if diag != nil {
			return diag
		}
		m.Stash.Push(v)
		return nil
	default:
		return errors.NewRuntime(it.CallSite, fmt.Sprintf("%s is not a function", callee.Type()))
	}
}

func (e *Evaluator) callClosure(m *Machine, fn *object.Closure, args []object.Value, it InstrApplyN) errors.Diagnostic {
	if len(args) != len(fn.Params) {
		return errors.NewRuntimeDetailed(it.CallSite, fmt.Sprintf("%s expects %d argument(s), got %d", closureLabel(fn), len(fn.Params), len(args)),
			fmt.Sprintf("%s is declared as (%s).", closureLabel(fn), strings.Join(fn.Params, ", ")))
	}

	if it.TailCall {
		top := m.Frames[len(m.Frames)-1]
		m.Control = m.Control[:top.ControlLen+1]
		m.Stash = m.Stash[:top.StashLen]
	} else {
		m.Frames = append(m.Frames, CallFrame{Env: m.Env, ControlLen: m.Control.Len(), StashLen: m.Stash.Len()})
		m.Control.Push(InstrReturnMarker{})
	}

	child := fn.CapturedEnv.Extend(closureLabel(fn), nil, object.BindingLet)
	for i, p := range fn.Params {
		child.Define(p, object.BindingLet, args[i])
	}

	// No EnvLeave is pushed to wrap the body: every exit path (explicit
	// return, a tail call reusing this frame, or falling off the end into
	// InstrReturnMarker) unwinds via the CallFrame above, which restores
	// Env directly — an extra EnvLeave here would just set the same value
	// a second time on the common path and be discarded unexamined on
	// every early-return path.
	switch body := fn.Body.(type) {
	case *ast.BlockStatement:
		pushStatements(&m.Control, body.Body)
		m.Control.Push(InstrEnvEnter{Env: child})
	case ast.Expression:
		// Tail: true — an expression body's value is the call's result with
		// nothing left to do, however many ConditionalExpressions it's
		// nested under (spec.md §8 scenario 3's ternary-bodied recursion).
		m.Control.Push(InstrUnwindReturn{}, NodeItem{Node: body, Tail: true}, InstrEnvEnter{Env: child})
	default:
		return errors.NewRuntime(it.CallSite, "closure has no evaluable body")
	}
	return nil
}

func closureLabel(fn *object.Closure) string {
	if fn.Metadata.Name != "" {
		return fn.Metadata.Name
	}
	return "anonymous function"
}

// unwindCall restores the top CallFrame and delivers value as the call
// expression's result. It is reached either by an InstrReturnMarker
// popping naturally (the function body ran off the end) or by
// InstrUnwindReturn (a return statement or an expression body's value).
func (e *Evaluator) unwindCall(m *Machine, value object.Value) errors.Diagnostic {
	n := len(m.Frames)
	frame := m.Frames[n-1]
	m.Frames = m.Frames[:n-1]
	m.Control = m.Control[:frame.ControlLen]
	m.Stash = m.Stash[:frame.StashLen]
	m.Env = frame.Env
	m.Stash.Push(value)
	return nil
}

// pushReturn schedules a return statement. Its argument is always pushed in
// tail position: a call directly in argument position (`return f(x);`), or
// one reached through any depth of ConditionalExpression branches
// (`return n===0 ? a : f(n-1,n*a);`), reuses the active CallFrame instead of
// layering a new one (see NodeItem's Tail field and execBranch). Any
// argument shape that doesn't resolve to a call evaluates normally and then
// explicitly unwinds via InstrUnwindReturn — the tail path's own call
// truncates Control past this InstrUnwindReturn before it would ever run,
// so pushing it unconditionally here is harmless.
func (e *Evaluator) pushReturn(m *Machine, n *ast.ReturnStatement) errors.Diagnostic {
	if len(m.Frames) == 0 {
		return errors.NewRuntime(n.Loc(), "return outside of a function")
	}
	if n.Argument == nil {
		m.Stash.Push(object.Undefined)
		m.Control.Push(InstrUnwindReturn{})
		return nil
	}
	m.Control.Push(InstrUnwindReturn{}, NodeItem{Node: n.Argument, Tail: true})
	return nil
}

// pushAssignment schedules `target = value`: evaluate value, then store it
// via InstrAssignTo (identifier) or, for a computed member target,
// evaluate the object/property first and store via InstrArrayAssign.
func (e *Evaluator) pushAssignment(m *Machine, n *ast.AssignmentExpression) errors.Diagnostic {
	switch target := n.Target.(type) {
	case *ast.Identifier:
		m.Control.Push(InstrAssignTo{Target: target}, NodeItem{Node: n.Value})
		return nil
	case *ast.MemberExpression:
		m.Control.Push(InstrArrayAssign{Loc: n.Loc()}, NodeItem{Node: n.Value}, NodeItem{Node: target.Property}, NodeItem{Node: target.Object})
		return nil
	default:
		return errors.NewRuntime(n.Loc(), "invalid assignment target")
	}
}

func (e *Evaluator) execAssignTo(m *Machine, it InstrAssignTo) errors.Diagnostic {
	v := m.Stash.Pop()
	id, ok := it.Target.(*ast.Identifier)
	if !ok {
		return errors.NewRuntime(it.Target.Loc(), "invalid assignment target")
	}
	switch m.Env.Assign(id.Name, v) {
	case object.AssignOK:
		m.Stash.Push(v)
		return nil
	case object.AssignConst:
		return errors.NewRuntimeDetailed(id.Loc(), fmt.Sprintf("cannot assign to '%s' because it is a constant", id.Name),
			fmt.Sprintf("'%s' was declared with const, which binds once; use let instead if it needs to be reassigned.", id.Name))
	default:
		return errors.NewRuntimeDetailed(id.Loc(), fmt.Sprintf("'%s' is not declared", id.Name),
			fmt.Sprintf("'%s' was never bound with let, const, or function in this scope or any enclosing one — check for a typo or a missing declaration.", id.Name))
	}
}

// pushFor desugars a for statement onto Control: Init runs once (as a
// statement, so a VariableDeclaration creates its loop-scoped binding in a
// fresh child environment), then it behaves like InstrForTest/InstrWhileTest.
func (e *Evaluator) pushFor(m *Machine, n *ast.ForStatement) errors.Diagnostic {
	child := m.Env.Extend("for", nil, object.BindingLet)
	if vd, ok := n.Init.(*ast.VariableDeclaration); ok {
		child.Declare(vd.Name.Name, bindingKind(vd.Kind))
	}
	loopTest := InstrForTest{Test: n.Test, Body: n.Body, Update: n.Update}
	m.Control.Push(InstrEnvLeave{Prev: m.Env})
	m.Control.Push(loopTest, NodeItem{Node: n.Test})
	if n.Init != nil {
		m.Control.PushNode(n.Init)
	}
	m.Control.Push(InstrEnvEnter{Env: child})
	return nil
}
