package svm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tsammeow/source-go/code"
	"github.com/tsammeow/source-go/object"
)

func runProgram(t *testing.T, prog *Program) object.Value {
	t.Helper()
	m := New(prog)
	require.NoError(t, m.Run())
	return m.LastValue()
}

// TestArithmeticPrecedence hand-assembles `1 + 2 * 3;` the way C9 would
// compile it, checking spec.md §8 scenario 1's expected result 7.
func TestArithmeticPrecedence(t *testing.T) {
	var ins code.Instructions
	ins = append(ins, code.Make(code.LGCI, 1)...)
	ins = append(ins, code.Make(code.LGCI, 2)...)
	ins = append(ins, code.Make(code.LGCI, 3)...)
	ins = append(ins, code.Make(code.MULG)...)
	ins = append(ins, code.Make(code.ADDG)...)
	ins = append(ins, code.Make(code.DONE)...)

	prog := &Program{EntryFn: 0, Functions: []Function{{Name: "main", Instructions: ins}}}
	v := runProgram(t, prog)
	n, ok := v.(*object.Number)
	require.True(t, ok)
	assert.Equal(t, float64(7), n.Value)
}

// TestTailRecursiveFactorialBoundedFrames hand-assembles the tail-recursive
// accumulator-style factorial of spec.md §8 scenario 3 and checks that a
// large iteration count does not grow the frame stack, by running to
// completion instead of overflowing.
func TestTailRecursiveFactorialBoundedFrames(t *testing.T) {
	// fn loop(n, acc): if n === 0 return acc; return loop(n-1, n*acc) [tail]
	var fn code.Instructions
	fn = append(fn, code.Make(code.LDL, 0)...) // n
	fn = append(fn, code.Make(code.LGCI, 0)...)
	fn = append(fn, code.Make(code.EQG)...)
	brfPos := len(fn)
	fn = append(fn, code.Make(code.BRF, 0)...)
	fn = append(fn, code.Make(code.LDL, 1)...) // acc
	fn = append(fn, code.Make(code.RETG)...)
	patch := func(ins code.Instructions, pos int, offset int) {
		copy(ins[pos:], code.Make(code.Opcode(ins[pos]), offset))
	}
	patch(fn, brfPos, len(fn)-(brfPos+5))
	fn = append(fn, code.Make(code.LDP, 1, 0)...) // the closure itself, bound one level up; the callee sits below its arguments
	fn = append(fn, code.Make(code.LDL, 0)...)
	fn = append(fn, code.Make(code.LGCI, 1)...)
	fn = append(fn, code.Make(code.SUBG)...)
	fn = append(fn, code.Make(code.LDL, 0)...)
	fn = append(fn, code.Make(code.LDL, 1)...)
	fn = append(fn, code.Make(code.MULG)...)
	fn = append(fn, code.Make(code.CALLT, 2)...)

	var main code.Instructions
	main = append(main, code.Make(code.NEWC, 1)...)
	main = append(main, code.Make(code.STL, 0)...)
	main = append(main, code.Make(code.LDL, 0)...)
	main = append(main, code.Make(code.LGCI, 10000)...)
	main = append(main, code.Make(code.LGCI, 1)...)
	main = append(main, code.Make(code.CALL, 2)...)
	main = append(main, code.Make(code.DONE)...)

	prog := &Program{
		EntryFn: 0,
		Functions: []Function{
			{Name: "main", EnvSize: 1, Instructions: main},
			{Name: "loop", Arity: 2, EnvSize: 2, Instructions: fn},
		},
	}
	m := New(prog)
	require.NoError(t, m.Run())
	n, ok := m.LastValue().(*object.Number)
	require.True(t, ok)
	assert.True(t, n.Value > 0)
	assert.LessOrEqual(t, m.framesIdx, 2, "tail calls must not grow the frame stack")
}

func TestLogicalShortCircuitPreservesLeftValue(t *testing.T) {
	var ins code.Instructions
	ins = append(ins, code.Make(code.LGCI, 0)...)
	ins = append(ins, code.Make(code.DUP)...)
	brfPos := len(ins)
	ins = append(ins, code.Make(code.BRF, 0)...)
	ins = append(ins, code.Make(code.POP)...)
	ins = append(ins, code.Make(code.LGCI, 99)...)
	offset := len(ins) - (brfPos + 5)
	copy(ins[brfPos:], code.Make(code.BRF, offset))
	ins = append(ins, code.Make(code.DONE)...)

	prog := &Program{EntryFn: 0, Functions: []Function{{Name: "main", Instructions: ins}}}
	v := runProgram(t, prog)
	n := v.(*object.Number)
	assert.Equal(t, float64(0), n.Value, "&& short-circuits on a falsy left operand, keeping its value")
}

func TestCallPrimitiveArrayGet(t *testing.T) {
	var ins code.Instructions
	ins = append(ins, code.Make(code.LGCI, 10)...)
	ins = append(ins, code.Make(code.LGCI, 20)...)
	ins = append(ins, code.Make(code.NEWA, 2)...)
	ins = append(ins, code.Make(code.LGCI, 1)...)
	ins = append(ins, code.Make(code.CALLP, PrimArrayGet, 2)...)
	ins = append(ins, code.Make(code.DONE)...)

	prog := &Program{EntryFn: 0, Functions: []Function{{Name: "main", Instructions: ins}}}
	v := runProgram(t, prog)
	n := v.(*object.Number)
	assert.Equal(t, float64(20), n.Value)
}

func TestArrayOutOfBoundsErrors(t *testing.T) {
	var ins code.Instructions
	ins = append(ins, code.Make(code.NEWA, 0)...)
	ins = append(ins, code.Make(code.LGCI, 0)...)
	ins = append(ins, code.Make(code.CALLP, PrimArrayGet, 2)...)
	ins = append(ins, code.Make(code.DONE)...)

	prog := &Program{EntryFn: 0, Functions: []Function{{Name: "main", Instructions: ins}}}
	m := New(prog)
	err := m.Run()
	assert.Error(t, err)
}

func TestPairHeadTailPrimitives(t *testing.T) {
	var ins code.Instructions
	ins = append(ins, code.Make(code.LGCI, 1)...)
	ins = append(ins, code.Make(code.LGCI, 2)...)
	ins = append(ins, code.Make(code.CALLP, PrimPair, 2)...)
	ins = append(ins, code.Make(code.DUP)...)
	ins = append(ins, code.Make(code.CALLP, PrimHead, 1)...)
	ins = append(ins, code.Make(code.POP)...)
	ins = append(ins, code.Make(code.CALLP, PrimTail, 1)...)
	ins = append(ins, code.Make(code.DONE)...)

	prog := &Program{EntryFn: 0, Functions: []Function{{Name: "main", Instructions: ins}}}
	v := runProgram(t, prog)
	n := v.(*object.Number)
	assert.Equal(t, float64(2), n.Value)
}

func TestHeadOnNonPairErrors(t *testing.T) {
	var ins code.Instructions
	ins = append(ins, code.Make(code.LGCI, 5)...)
	ins = append(ins, code.Make(code.CALLP, PrimHead, 1)...)
	ins = append(ins, code.Make(code.DONE)...)

	prog := &Program{EntryFn: 0, Functions: []Function{{Name: "main", Instructions: ins}}}
	m := New(prog)
	assert.Error(t, m.Run())
}

func TestMathPrimitives(t *testing.T) {
	var ins code.Instructions
	ins = append(ins, code.Make(code.LGCI, -9)...)
	ins = append(ins, code.Make(code.CALLP, PrimMathAbs, 1)...)
	ins = append(ins, code.Make(code.CALLP, PrimMathSqrt, 1)...)
	ins = append(ins, code.Make(code.DONE)...)

	prog := &Program{EntryFn: 0, Functions: []Function{{Name: "main", Instructions: ins}}}
	v := runProgram(t, prog)
	n := v.(*object.Number)
	assert.Equal(t, float64(3), n.Value)
}

func TestEnvAtDepthWalksParentChain(t *testing.T) {
	grandparent := NewEnv(nil, 1)
	parent := NewEnv(grandparent, 1)
	child := NewEnv(parent, 1)
	assert.Same(t, child, child.At(0))
	assert.Same(t, parent, child.At(1))
	assert.Same(t, grandparent, child.At(2))
}

func TestNewEnvPopEnvRestoresParent(t *testing.T) {
	var ins code.Instructions
	ins = append(ins, code.Make(code.NEWENV, 1)...)
	ins = append(ins, code.Make(code.LGCI, 5)...)
	ins = append(ins, code.Make(code.STL, 0)...)
	ins = append(ins, code.Make(code.LDP, 1, 0)...) // global slot 0 from inside the block
	ins = append(ins, code.Make(code.POPENV)...)
	ins = append(ins, code.Make(code.DONE)...)

	prog := &Program{EntryFn: 0, Functions: []Function{{Name: "main", EnvSize: 1, Instructions: ins}}}
	m := New(prog)
	require.NoError(t, m.Run())
	assert.Same(t, m.globalEnv, m.currentFrame().env)
}
