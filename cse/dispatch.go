package cse

import (
	"fmt"

	"github.com/tsammeow/source-go/ast"
	"github.com/tsammeow/source-go/errors"
	"github.com/tsammeow/source-go/object"
)

// step pops one item and advances the machine by exactly its effect,
// returning a non-nil diagnostic only when evaluation must abort. This is
// the dispatch table spec.md §4.5 describes in prose, generalized from the
// teacher's `Eval` switch (evaluator/evaluator.go) from implicit host
// recursion into explicit Control pushes.
func (e *Evaluator) step(m *Machine, item Item) errors.Diagnostic {
	switch it := item.(type) {
	case NodeItem:
		return e.evalNode(m, it.Node, it.Tail)
	case InstrBinaryOp:
		return e.execBinaryOp(m, it)
	case InstrLogicalRest:
		return e.execLogicalRest(m, it)
	case InstrUnaryOp:
		return e.execUnaryOp(m, it)
	case InstrBranch:
		return e.execBranch(m, it)
	case InstrPop:
		m.Stash.Pop()
		return nil
	case InstrApplyN:
		return e.execApplyN(m, it)
	case InstrReturnMarker:
		// A return marker popped without an intervening explicit return
		// means the called function's body ran off the end; its implicit
		// result is undefined.
		return e.unwindCall(m, object.Undefined)
	case InstrUnwindReturn:
		return e.unwindCall(m, m.Stash.Pop())
	case InstrAssignTo:
		return e.execAssignTo(m, it)
	case InstrDefine:
		v := m.Stash.Pop()
		m.Env.Define(it.Name, it.Kind, v)
		return nil
	case InstrArrayLit:
		elems := m.Stash.PopN(it.N)
		arr := object.NewArray(append([]object.Value(nil), elems...))
		m.Env.Allocate(arr)
		m.Stash.Push(arr)
		return nil
	case InstrArrayAccess:
		return e.execArrayAccess(m, it)
	case InstrArrayAssign:
		return e.execArrayAssign(m, it)
	case InstrWhileTest:
		return e.execWhileTest(m, it)
	case InstrForTest:
		return e.execForTest(m, it)
	case InstrForUpdate:
		m.Stash.Pop()
		m.Control.Push(it.Next, NodeItem{Node: it.Next.Test})
		return nil
	case InstrEnvEnter:
		m.Env = it.Env
		return nil
	case InstrEnvLeave:
		m.Env = it.Prev
		return nil
	case InstrRestore:
		m.Control = it.Control.Snapshot()
		m.Stash = append(Stash(nil), it.Stash...)
		return nil
	default:
		panic(fmt.Sprintf("cse: unhandled control item %T", item))
	}
}

// evalNode dispatches node per spec.md §4.4/§4.5. tail is true when node's
// value, once produced, needs no further work beyond becoming the result of
// an enclosing call — see NodeItem's doc comment.
func (e *Evaluator) evalNode(m *Machine, node ast.Node, tail bool) errors.Diagnostic {
	switch n := node.(type) {
	case *ast.Program:
		pushStatements(&m.Control, n.Body)
		return nil
	case *ast.StatementSequence:
		pushStatements(&m.Control, n.Body)
		return nil
	case *ast.BlockStatement:
		e.pushBlock(m, n)
		return nil
	case *ast.ExpressionStatement:
		m.Control.PushNode(n.Expr)
		return nil
	case *ast.Literal:
		m.Stash.Push(literalValue(n))
		return nil
	case *ast.Identifier:
		v, res := m.Env.Lookup(n.Name)
		switch res {
		case object.LookupOK:
			m.Stash.Push(v)
			return nil
		case object.LookupTDZ:
			return errors.NewRuntimeDetailed(n.Loc(), fmt.Sprintf("cannot access '%s' before initialization", n.Name),
				fmt.Sprintf("'%s' is declared with let or const later in this block; references to it before the declaration line are in the temporal dead zone and always fail, even if control would reach the declaration eventually.", n.Name))
		default:
			return errors.NewRuntimeDetailed(n.Loc(), fmt.Sprintf("'%s' is not declared", n.Name),
				fmt.Sprintf("'%s' was never bound with let, const, or function in this scope or any enclosing one — check for a typo or a missing declaration.", n.Name))
		}
	case *ast.BinaryExpression:
		m.Control.Push(InstrBinaryOp{Operator: n.Operator, Loc: n.Loc()}, NodeItem{Node: n.Right}, NodeItem{Node: n.Left})
		return nil
	case *ast.LogicalExpression:
		m.Control.Push(InstrLogicalRest{Operator: n.Operator, Right: n.Right}, NodeItem{Node: n.Left})
		return nil
	case *ast.UnaryExpression:
		m.Control.Push(InstrUnaryOp{Operator: n.Operator, Loc: n.Loc()}, NodeItem{Node: n.Argument})
		return nil
	case *ast.ConditionalExpression:
		m.Control.Push(InstrBranch{Consequent: n.Consequent, Alternate: n.Alternate, Tail: tail}, NodeItem{Node: n.Test})
		return nil
	case *ast.CallExpression:
		e.pushCall(m, n.Callee, n.Arguments, n.Loc(), tail)
		return nil
	case *ast.ArrayExpression:
		items := make([]Item, 0, len(n.Elements)+1)
		items = append(items, InstrArrayLit{N: len(n.Elements)})
		for i := len(n.Elements) - 1; i >= 0; i-- {
			items = append(items, NodeItem{Node: n.Elements[i]})
		}
		m.Control.Push(items...)
		return nil
	case *ast.MemberExpression:
		m.Control.Push(InstrArrayAccess{Loc: n.Loc()}, NodeItem{Node: n.Property}, NodeItem{Node: n.Object})
		return nil
	case *ast.AssignmentExpression:
		return e.pushAssignment(m, n)
	case *ast.VariableDeclaration:
		m.Control.Push(InstrDefine{Name: n.Name.Name, Kind: bindingKind(n.Kind)}, NodeItem{Node: n.Init})
		return nil
	case *ast.FunctionDeclaration:
		cl := object.NewClosure(identifierNames(n.Params), n.Body, m.Env, object.ClosureMetadata{Name: n.Name.Name})
		m.Env.Allocate(cl)
		m.Env.Define(n.Name.Name, object.BindingConst, cl)
		return nil
	case *ast.FunctionExpression:
		name := ""
		if n.Name != nil {
			name = n.Name.Name
		}
		cl := object.NewClosure(identifierNames(n.Params), n.Body, m.Env, object.ClosureMetadata{Name: name})
		m.Env.Allocate(cl)
		m.Stash.Push(cl)
		return nil
	case *ast.ArrowFunctionExpression:
		var body interface{}
		if n.BlockBody != nil {
			body = n.BlockBody
		} else {
			body = n.Body
		}
		cl := object.NewClosure(identifierNames(n.Params), body, m.Env, object.ClosureMetadata{})
		m.Env.Allocate(cl)
		m.Stash.Push(cl)
		return nil
	case *ast.ReturnStatement:
		return e.pushReturn(m, n)
	case *ast.IfStatement:
		var alt ast.Node
		if n.Alternate != nil {
			alt = n.Alternate
		}
		m.Control.Push(InstrBranch{Consequent: n.Consequent, Alternate: alt}, NodeItem{Node: n.Test})
		return nil
	case *ast.WhileStatement:
		m.Control.Push(InstrWhileTest{Test: n.Test, Body: n.Body}, NodeItem{Node: n.Test})
		return nil
	case *ast.ForStatement:
		return e.pushFor(m, n)
	default:
		panic(fmt.Sprintf("cse: unhandled ast node %T", node))
	}
}

func literalValue(l *ast.Literal) object.Value {
	switch l.Kind {
	case ast.LiteralNumber:
		return &object.Number{Value: l.Value.(float64)}
	case ast.LiteralString:
		return &object.String{Value: l.Value.(string)}
	case ast.LiteralBoolean:
		return object.NativeBool(l.Value.(bool))
	case ast.LiteralNull:
		return object.Null
	default:
		return object.Undefined
	}
}

func bindingKind(k ast.DeclarationKind) object.BindingKind {
	if k == ast.KindConst {
		return object.BindingConst
	}
	return object.BindingLet
}

func identifierNames(ids []*ast.Identifier) []string {
	names := make([]string, len(ids))
	for i, id := range ids {
		names[i] = id.Name
	}
	return names
}

// pushBlock enters a fresh child environment for block, pre-declaring its
// top-level `let`/`const` names in the temporal dead zone (so a reference
// to one that textually precedes its declaration raises a TDZ error rather
// than resolving to an outer binding of the same name), then pushes its
// statements followed by an EnvLeave to restore the enclosing environment
// once they finish. Function declarations bind when control reaches them,
// like any other statement — see evalNode's *ast.FunctionDeclaration case.
func (e *Evaluator) pushBlock(m *Machine, block *ast.BlockStatement) {
	child := m.Env.Extend("block", nil, object.BindingLet)
	for _, s := range block.Body {
		if vd, ok := s.(*ast.VariableDeclaration); ok {
			child.Declare(vd.Name.Name, bindingKind(vd.Kind))
		}
	}
	m.Control.Push(InstrEnvLeave{Prev: m.Env})
	pushStatements(&m.Control, block.Body)
	m.Control.Push(InstrEnvEnter{Env: child})
}
