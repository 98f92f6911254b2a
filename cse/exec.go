package cse

import (
	"fmt"
	"math"

	"github.com/tsammeow/source-go/ast"
	"github.com/tsammeow/source-go/errors"
	"github.com/tsammeow/source-go/object"
)

func (e *Evaluator) execBinaryOp(m *Machine, it InstrBinaryOp) errors.Diagnostic {
	right := m.Stash.Pop()
	left := m.Stash.Pop()
	v, diag := applyBinaryOp(it.Operator, left, right, it.Loc)
	if diag != nil {
		return diag
	}
	m.Stash.Push(v)
	return nil
}

func applyBinaryOp(op string, left, right object.Value, loc ast.SourceLocation) (object.Value, errors.Diagnostic) {
	switch op {
	case "===":
		return object.NativeBool(object.StrictEquals(left, right)), nil
	case "!==":
		return object.NativeBool(!object.StrictEquals(left, right)), nil
	}
	ln, lok := left.(*object.Number)
	rn, rok := right.(*object.Number)
	if op == "+" {
		ls, lsok := left.(*object.String)
		rs, rsok := right.(*object.String)
		if lsok && rsok {
			return &object.String{Value: ls.Value + rs.Value}, nil
		}
		if lok && rok {
			return &object.Number{Value: ln.Value + rn.Value}, nil
		}
		return nil, errors.NewRuntime(loc, fmt.Sprintf("cannot apply '+' to %s and %s", left.Type(), right.Type()))
	}
	if !lok || !rok {
		return nil, errors.NewRuntime(loc, fmt.Sprintf("cannot apply '%s' to %s and %s", op, left.Type(), right.Type()))
	}
	switch op {
	case "-":
		return &object.Number{Value: ln.Value - rn.Value}, nil
	case "*":
		return &object.Number{Value: ln.Value * rn.Value}, nil
	case "/":
		return &object.Number{Value: ln.Value / rn.Value}, nil
	case "%":
		return &object.Number{Value: math.Mod(ln.Value, rn.Value)}, nil
	case "<":
		return object.NativeBool(ln.Value < rn.Value), nil
	case "<=":
		return object.NativeBool(ln.Value <= rn.Value), nil
	case ">":
		return object.NativeBool(ln.Value > rn.Value), nil
	case ">=":
		return object.NativeBool(ln.Value >= rn.Value), nil
	default:
		return nil, errors.NewRuntime(loc, fmt.Sprintf("unknown operator: %s", op))
	}
}

func (e *Evaluator) execLogicalRest(m *Machine, it InstrLogicalRest) errors.Diagnostic {
	left, _ := m.Stash.Peek()
	truthy := object.IsTruthy(left)
	if (it.Operator == "&&" && !truthy) || (it.Operator == "||" && truthy) {
		return nil // short-circuit: left's value stays on Stash as the result
	}
	m.Stash.Pop()
	m.Control.PushNode(it.Right)
	return nil
}

func (e *Evaluator) execUnaryOp(m *Machine, it InstrUnaryOp) errors.Diagnostic {
	v := m.Stash.Pop()
	switch it.Operator {
	case "!":
		m.Stash.Push(object.NativeBool(!object.IsTruthy(v)))
		return nil
	case "-":
		n, ok := v.(*object.Number)
		if !ok {
			return errors.NewRuntime(it.Loc, fmt.Sprintf("cannot apply unary '-' to %s", v.Type()))
		}
		m.Stash.Push(&object.Number{Value: -n.Value})
		return nil
	case "+":
		n, ok := v.(*object.Number)
		if !ok {
			return errors.NewRuntime(it.Loc, fmt.Sprintf("cannot apply unary '+' to %s", v.Type()))
		}
		m.Stash.Push(&object.Number{Value: n.Value})
		return nil
	case "typeof":
		m.Stash.Push(&object.String{Value: string(v.Type())})
		return nil
	default:
		return errors.NewRuntime(it.Loc, fmt.Sprintf("unknown unary operator: %s", it.Operator))
	}
}

func (e *Evaluator) execBranch(m *Machine, it InstrBranch) errors.Diagnostic {
	test := m.Stash.Pop()
	if object.IsTruthy(test) {
		m.Control.Push(NodeItem{Node: it.Consequent, Tail: it.Tail})
	} else if it.Alternate != nil {
		m.Control.Push(NodeItem{Node: it.Alternate, Tail: it.Tail})
	}
	return nil
}

func (e *Evaluator) execArrayAccess(m *Machine, it InstrArrayAccess) errors.Diagnostic {
	idxV := m.Stash.Pop()
	arrV := m.Stash.Pop()
	arr, ok := arrV.(*object.Array)
	if !ok {
		return errors.NewRuntime(it.Loc, fmt.Sprintf("cannot index into %s", arrV.Type()))
	}
	idx, ok := idxV.(*object.Number)
	if !ok {
		return errors.NewRuntime(it.Loc, fmt.Sprintf("array index must be a number, got %s", idxV.Type()))
	}
	i := int(idx.Value)
	if i < 0 || i >= len(arr.Elements) {
		return errors.NewRuntime(it.Loc, fmt.Sprintf("array index %d out of bounds for length %d", i, len(arr.Elements)))
	}
	m.Stash.Push(arr.Elements[i])
	return nil
}

func (e *Evaluator) execArrayAssign(m *Machine, it InstrArrayAssign) errors.Diagnostic {
	val := m.Stash.Pop()
	idxV := m.Stash.Pop()
	arrV := m.Stash.Pop()
	arr, ok := arrV.(*object.Array)
	if !ok {
		return errors.NewRuntime(it.Loc, fmt.Sprintf("cannot index into %s", arrV.Type()))
	}
	idx, ok := idxV.(*object.Number)
	if !ok {
		return errors.NewRuntime(it.Loc, fmt.Sprintf("array index must be a number, got %s", idxV.Type()))
	}
	i := int(idx.Value)
	if i < 0 || i >= len(arr.Elements) {
		return errors.NewRuntime(it.Loc, fmt.Sprintf("array index %d out of bounds for length %d", i, len(arr.Elements)))
	}
	arr.Elements[i] = val
	m.Stash.Push(val)
	return nil
}

func (e *Evaluator) execWhileTest(m *Machine, it InstrWhileTest) errors.Diagnostic {
	test := m.Stash.Pop()
	if object.IsTruthy(test) {
		m.Control.Push(InstrWhileTest{Test: it.Test, Body: it.Body}, NodeItem{Node: it.Test}, NodeItem{Node: it.Body})
	}
	return nil
}

func (e *Evaluator) execForTest(m *Machine, it InstrForTest) errors.Diagnostic {
	test := m.Stash.Pop()
	if !object.IsTruthy(test) {
		return nil
	}
	if it.Update != nil {
		m.Control.Push(InstrForUpdate{Update: it.Update, Next: InstrForTest{Test: it.Test, Body: it.Body, Update: it.Update}}, NodeItem{Node: it.Update}, NodeItem{Node: it.Body})
	} else {
		m.Control.Push(InstrForTest{Test: it.Test, Body: it.Body, Update: it.Update}, NodeItem{Node: it.Test}, NodeItem{Node: it.Body})
	}
	return nil
}
