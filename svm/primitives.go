package svm

import (
	"fmt"
	"math"

	"github.com/tsammeow/source-go/object"
)

// Primitive ids CALLP addresses. 0 and 1 are reserved for the array
// indexing operations the compiler lowers MemberExpression get/set into,
// since spec.md §4.8 has no dedicated array-index opcode — CALLP with a
// fixed id is how the SVM backend models the same operation C6 gives the
// CSE evaluator's evaluator-level InstrArrayAccess/InstrArrayAssign.
const (
	PrimArrayGet = iota
	PrimArraySet
	PrimPair
	PrimHead
	PrimTail
	PrimSetHead
	PrimSetTail
	PrimIsPair
	PrimIsNull
	PrimArrayLength
	PrimMathAbs
	PrimMathSqrt
	PrimMathFloor
	PrimDisplay
	primCount
)

// Display is the host sink for the SVM's `display` primitive; a Machine
// with a nil Display silently discards output rather than panicking, so a
// Machine built purely to check a final value needn't wire one up.
type Display func(object.Value)

func (m *Machine) invokePrimitive(id, argCount int) error {
	args := make([]object.Value, argCount)
	for i := argCount - 1; i >= 0; i-- {
		args[i] = m.pop()
	}
	switch id {
	case PrimArrayGet:
		arr, ok := args[0].(*object.Array)
		if !ok {
			return fmt.Errorf("cannot index into %s", args[0].Type())
		}
		idx, ok := args[1].(*object.Number)
		if !ok {
			return fmt.Errorf("array index must be a number")
		}
		i := int(idx.Value)
		if i < 0 || i >= len(arr.Elements) {
			return fmt.Errorf("array index %d out of bounds for length %d", i, len(arr.Elements))
		}
		return m.push(arr.Elements[i])
	case PrimArraySet:
		arr, ok := args[0].(*object.Array)
		if !ok {
			return fmt.Errorf("cannot index into %s", args[0].Type())
		}
		idx, ok := args[1].(*object.Number)
		if !ok {
			return fmt.Errorf("array index must be a number")
		}
		i := int(idx.Value)
		if i < 0 || i >= len(arr.Elements) {
			return fmt.Errorf("array index %d out of bounds for length %d", i, len(arr.Elements))
		}
		arr.Elements[i] = args[2]
		return m.push(args[2])
	case PrimPair:
		return m.push(object.NewPair(args[0], args[1]))
	case PrimHead:
		p, ok := args[0].(*object.Pair)
		if !ok {
			return fmt.Errorf("head expects a pair, got %s", args[0].Type())
		}
		return m.push(p.Head)
	case PrimTail:
		p, ok := args[0].(*object.Pair)
		if !ok {
			return fmt.Errorf("tail expects a pair, got %s", args[0].Type())
		}
		return m.push(p.Tail)
	case PrimSetHead:
		p, ok := args[0].(*object.Pair)
		if !ok {
			return fmt.Errorf("set_head expects a pair, got %s", args[0].Type())
		}
		p.Head = args[1]
		return m.push(object.Undefined)
	case PrimSetTail:
		p, ok := args[0].(*object.Pair)
		if !ok {
			return fmt.Errorf("set_tail expects a pair, got %s", args[0].Type())
		}
		p.Tail = args[1]
		return m.push(object.Undefined)
	case PrimIsPair:
		_, ok := args[0].(*object.Pair)
		return m.push(object.NativeBool(ok))
	case PrimIsNull:
		_, ok := args[0].(object.NullValue)
		return m.push(object.NativeBool(ok))
	case PrimArrayLength:
		arr, ok := args[0].(*object.Array)
		if !ok {
			return fmt.Errorf("array_length expects an array, got %s", args[0].Type())
		}
		return m.push(&object.Number{Value: float64(len(arr.Elements))})
	case PrimMathAbs:
		n, ok := args[0].(*object.Number)
		if !ok {
			return fmt.Errorf("math_abs expects a number")
		}
		return m.push(&object.Number{Value: math.Abs(n.Value)})
	case PrimMathSqrt:
		n, ok := args[0].(*object.Number)
		if !ok {
			return fmt.Errorf("math_sqrt expects a number")
		}
		return m.push(&object.Number{Value: math.Sqrt(n.Value)})
	case PrimMathFloor:
		n, ok := args[0].(*object.Number)
		if !ok {
			return fmt.Errorf("math_floor expects a number")
		}
		return m.push(&object.Number{Value: math.Floor(n.Value)})
	case PrimDisplay:
		if m.Display != nil {
			m.Display(args[0])
		}
		return m.push(args[0])
	default:
		return fmt.Errorf("svm: unknown primitive id %d", id)
	}
}

// PrimitiveID resolves a Source built-in name to the CALLP id the compiler
// should emit, or false if the SVM backend has no primitive for it — the
// SVM supports the pure subset of builtins package builtins exposes to the
// CSE evaluator (spec.md §8 invariant 6 is only claimed over that subset;
// host-interactive built-ins like prompt/alert have no SVM equivalent).
func PrimitiveID(name string) (int, bool) {
	id, ok := primitiveNames[name]
	return id, ok
}

var primitiveNames = map[string]int{
	"pair":         PrimPair,
	"head":         PrimHead,
	"tail":         PrimTail,
	"set_head":     PrimSetHead,
	"set_tail":     PrimSetTail,
	"is_pair":      PrimIsPair,
	"is_null":      PrimIsNull,
	"array_length": PrimArrayLength,
	"math_abs":     PrimMathAbs,
	"math_sqrt":    PrimMathSqrt,
	"math_floor":   PrimMathFloor,
	"display":      PrimDisplay,
}
