// Package builtins populates a fresh global environment with Source's
// primitive functions (C6): pair/list operations, array helpers, display/
// output, math, and string conversion. Each entry is a uniform
// {name, arity, invoke} triple, grounded on the teacher's evaluator
// package's handful of inline built-ins (`len`, `puts`, `first`, `last`,
// `rest`, `push`), generalized into a table so the catalog can grow
// without touching the evaluator's dispatch at all.
package builtins

import (
	"fmt"
	"math"

	"github.com/tsammeow/source-go/cse"
	"github.com/tsammeow/source-go/errors"
	"github.com/tsammeow/source-go/object"
)

// Fn is one built-in's shape: Arity is the exact argument count required
// (-1 means variadic, left to Invoke to validate). Invoke receives the call
// context (location, host hooks, calling environment) for error reporting
// and for display-style builtins that need to reach the host.
type Fn struct {
	Name  string
	Arity int
	Invoke func(ctx *cse.CallContext, args []object.Value) (object.Value, *errors.RuntimeError)
}

// Table is the built-in catalog for one session, indexed by the stable ID
// stashed into object.BuiltinFn.ID at Install time. It implements
// cse.BuiltinInvoker.
type Table struct {
	fns []Fn
}

// Invoke implements cse.BuiltinInvoker.
func (t *Table) Invoke(ctx *cse.CallContext, id int, args []object.Value) (object.Value, *errors.RuntimeError) {
	fn := t.fns[id]
	if fn.Arity >= 0 && len(args) != fn.Arity {
		return nil, errors.NewRuntime(ctx.Loc, fmt.Sprintf("%s expects %d argument(s), got %d", fn.Name, fn.Arity, len(args)))
	}
	return fn.Invoke(ctx, args)
}

// Install builds a fresh Table and defines every built-in in env as a
// const-bound object.BuiltinFn, returning the table so a session can wire
// it into an Evaluator as the BuiltinInvoker.
func Install(env *object.Environment) *Table {
	t := &Table{}
	t.add(env, "display", 1, biDisplay)
	t.add(env, "rawDisplay", 2, biRawDisplay)
	t.add(env, "error", -1, biError)
	t.add(env, "pair", 2, biPair)
	t.add(env, "head", 1, biHead)
	t.add(env, "tail", 1, biTail)
	t.add(env, "set_head", 2, biSetHead)
	t.add(env, "set_tail", 2, biSetTail)
	t.add(env, "is_pair", 1, biIsPair)
	t.add(env, "is_null", 1, biIsNull)
	t.add(env, "is_array", 1, biIsArray)
	t.add(env, "is_function", 1, biIsFunction)
	t.add(env, "is_number", 1, biIsNumber)
	t.add(env, "is_string", 1, biIsString)
	t.add(env, "is_boolean", 1, biIsBoolean)
	t.add(env, "array_length", 1, biArrayLength)
	t.add(env, "math_abs", 1, biMathAbs)
	t.add(env, "math_sqrt", 1, biMathSqrt)
	t.add(env, "math_pow", 2, biMathPow)
	t.add(env, "math_floor", 1, biMathFloor)
	t.add(env, "math_max", -1, biMathMax)
	t.add(env, "math_min", -1, biMathMin)
	t.add(env, "stringify", 1, biStringify)
	t.add(env, "prompt", 1, biPrompt)
	t.add(env, "alert", 1, biAlert)
	t.add(env, "visualise_list", 1, biVisualiseList)
	return t
}

func (t *Table) add(env *object.Environment, name string, arity int, invoke func(*cse.CallContext, []object.Value) (object.Value, *errors.RuntimeError)) {
	id := len(t.fns)
	t.fns = append(t.fns, Fn{Name: name, Arity: arity, Invoke: invoke})
	env.Define(name, object.BindingConst, &object.BuiltinFn{Name: name, Arity: arity, ID: id})
}

func biDisplay(ctx *cse.CallContext, args []object.Value) (object.Value, *errors.RuntimeError) {
	ctx.Hooks.RawDisplay(args[0], "")
	return args[0], nil
}

func biRawDisplay(ctx *cse.CallContext, args []object.Value) (object.Value, *errors.RuntimeError) {
	label := ""
	if s, ok := args[1].(*object.String); ok {
		label = s.Value
	}
	ctx.Hooks.RawDisplay(args[0], label)
	return args[0], nil
}

func biError(ctx *cse.CallContext, args []object.Value) (object.Value, *errors.RuntimeError) {
	msg := "error"
	if len(args) > 0 {
		msg = object.Display(args[0])
	}
	return nil, errors.NewRuntime(ctx.Loc, msg)
}

func biPair(ctx *cse.CallContext, args []object.Value) (object.Value, *errors.RuntimeError) {
	p := object.NewPair(args[0], args[1])
	ctx.Env.Allocate(p)
	return p, nil
}

func biHead(ctx *cse.CallContext, args []object.Value) (object.Value, *errors.RuntimeError) {
	p, ok := args[0].(*object.Pair)
	if !ok {
		return nil, errors.NewRuntime(ctx.Loc, fmt.Sprintf("head expects a pair, got %s", args[0].Type()))
	}
	return p.Head, nil
}

func biTail(ctx *cse.CallContext, args []object.Value) (object.Value, *errors.RuntimeError) {
	p, ok := args[0].(*object.Pair)
	if !ok {
		return nil, errors.NewRuntime(ctx.Loc, fmt.Sprintf("tail expects a pair, got %s", args[0].Type()))
	}
	return p.Tail, nil
}

func biSetHead(ctx *cse.CallContext, args []object.Value) (object.Value, *errors.RuntimeError) {
	p, ok := args[0].(*object.Pair)
	if !ok {
		return nil, errors.NewRuntime(ctx.Loc, fmt.Sprintf("set_head expects a pair, got %s", args[0].Type()))
	}
	p.Head = args[1]
	return object.Undefined, nil
}

func biSetTail(ctx *cse.CallContext, args []object.Value) (object.Value, *errors.RuntimeError) {
	p, ok := args[0].(*object.Pair)
	if !ok {
		return nil, errors.NewRuntime(ctx.Loc, fmt.Sprintf("set_tail expects a pair, got %s", args[0].Type()))
	}
	p.Tail = args[1]
	return object.Undefined, nil
}

func biIsPair(_ *cse.CallContext, args []object.Value) (object.Value, *errors.RuntimeError) {
	_, ok := args[0].(*object.Pair)
	return object.NativeBool(ok), nil
}

func biIsNull(_ *cse.CallContext, args []object.Value) (object.Value, *errors.RuntimeError) {
	_, ok := args[0].(object.NullValue)
	return object.NativeBool(ok), nil
}

func biIsArray(_ *cse.CallContext, args []object.Value) (object.Value, *errors.RuntimeError) {
	_, ok := args[0].(*object.Array)
	return object.NativeBool(ok), nil
}

func biIsFunction(_ *cse.CallContext, args []object.Value) (object.Value, *errors.RuntimeError) {
	switch args[0].(type) {
	case *object.Closure, *object.BuiltinFn:
		return object.True, nil
	default:
		return object.False, nil
	}
}

func biIsNumber(_ *cse.CallContext, args []object.Value) (object.Value, *errors.RuntimeError) {
	_, ok := args[0].(*object.Number)
	return object.NativeBool(ok), nil
}

func biIsString(_ *cse.CallContext, args []object.Value) (object.Value, *errors.RuntimeError) {
	_, ok := args[0].(*object.String)
	return object.NativeBool(ok), nil
}

func biIsBoolean(_ *cse.CallContext, args []object.Value) (object.Value, *errors.RuntimeError) {
	_, ok := args[0].(*object.Boolean)
	return object.NativeBool(ok), nil
}

func biArrayLength(ctx *cse.CallContext, args []object.Value) (object.Value, *errors.RuntimeError) {
	arr, ok := args[0].(*object.Array)
	if !ok {
		return nil, errors.NewRuntime(ctx.Loc, fmt.Sprintf("array_length expects an array, got %s", args[0].Type()))
	}
	return &object.Number{Value: float64(len(arr.Elements))}, nil
}

func asNumber(ctx *cse.CallContext, name string, v object.Value) (float64, *errors.RuntimeError) {
	n, ok := v.(*object.Number)
	if !ok {
		return 0, errors.NewRuntime(ctx.Loc, fmt.Sprintf("%s expects a number, got %s", name, v.Type()))
	}
	return n.Value, nil
}

func biMathAbs(ctx *cse.CallContext, args []object.Value) (object.Value, *errors.RuntimeError) {
	n, err := asNumber(ctx, "math_abs", args[0])
	if err != nil {
		return nil, err
	}
	return &object.Number{Value: math.Abs(n)}, nil
}

func biMathSqrt(ctx *cse.CallContext, args []object.Value) (object.Value, *errors.RuntimeError) {
	n, err := asNumber(ctx, "math_sqrt", args[0])
	if err != nil {
		return nil, err
	}
	return &object.Number{Value: math.Sqrt(n)}, nil
}

func biMathPow(ctx *cse.CallContext, args []object.Value) (object.Value, *errors.RuntimeError) {
	base, err := asNumber(ctx, "math_pow", args[0])
	if err != nil {
		return nil, err
	}
	exp, err := asNumber(ctx, "math_pow", args[1])
	if err != nil {
		return nil, err
	}
	return &object.Number{Value: math.Pow(base, exp)}, nil
}

func biMathFloor(ctx *cse.CallContext, args []object.Value) (object.Value, *errors.RuntimeError) {
	n, err := asNumber(ctx, "math_floor", args[0])
	if err != nil {
		return nil, err
	}
	return &object.Number{Value: math.Floor(n)}, nil
}

func biMathMax(ctx *cse.CallContext, args []object.Value) (object.Value, *errors.RuntimeError) {
	if len(args) == 0 {
		return &object.Number{Value: math.Inf(-1)}, nil
	}
	best, err := asNumber(ctx, "math_max", args[0])
	if err != nil {
		return nil, err
	}
	for _, a := range args[1:] {
		n, err := asNumber(ctx, "math_max", a)
		if err != nil {
			return nil, err
		}
		if n > best {
			best = n
		}
	}
	return &object.Number{Value: best}, nil
}

func biMathMin(ctx *cse.CallContext, args []object.Value) (object.Value, *errors.RuntimeError) {
	if len(args) == 0 {
		return &object.Number{Value: math.Inf(1)}, nil
	}
	best, err := asNumber(ctx, "math_min", args[0])
	if err != nil {
		return nil, err
	}
	for _, a := range args[1:] {
		n, err := asNumber(ctx, "math_min", a)
		if err != nil {
			return nil, err
		}
		if n < best {
			best = n
		}
	}
	return &object.Number{Value: best}, nil
}

func biStringify(_ *cse.CallContext, args []object.Value) (object.Value, *errors.RuntimeError) {
	return &object.String{Value: object.Display(args[0])}, nil
}

func biPrompt(ctx *cse.CallContext, args []object.Value) (object.Value, *errors.RuntimeError) {
	msg := object.Display(args[0])
	return &object.String{Value: ctx.Hooks.Prompt(msg)}, nil
}

func biAlert(ctx *cse.CallContext, args []object.Value) (object.Value, *errors.RuntimeError) {
	ctx.Hooks.Alert(object.Display(args[0]))
	return object.Undefined, nil
}

func biVisualiseList(ctx *cse.CallContext, args []object.Value) (object.Value, *errors.RuntimeError) {
	ctx.Hooks.VisualiseList(args[0])
	return args[0], nil
}
