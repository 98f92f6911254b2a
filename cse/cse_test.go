package cse_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tsammeow/source-go/builtins"
	"github.com/tsammeow/source-go/cse"
	"github.com/tsammeow/source-go/lexer"
	"github.com/tsammeow/source-go/object"
	"github.com/tsammeow/source-go/parser"
)

type noopHooks struct{}

func (noopHooks) RawDisplay(object.Value, string) {}
func (noopHooks) Prompt(string) string             { return "" }
func (noopHooks) Alert(string)                     {}
func (noopHooks) VisualiseList(object.Value)        {}

func evalSource(t *testing.T, src string) cse.Result {
	t.Helper()
	p := parser.New(lexer.New(src), "test")
	program, err := p.ParseProgram()
	require.NoError(t, err)

	env := object.Global()
	table := builtins.Install(env)
	m := cse.NewMachine(env)
	m.Load(program)

	evaluator := cse.New(table, noopHooks{})
	return evaluator.Run(m, cse.RunOptions{})
}

// TestArithmeticPrecedence covers spec.md §8 scenario 1 directly against
// the CSE evaluator.
func TestArithmeticPrecedence(t *testing.T) {
	res := evalSource(t, "1 + 2 * 3;")
	require.Equal(t, cse.StatusFinished, res.Status)
	n := res.Value.(*object.Number)
	assert.Equal(t, float64(7), n.Value)
}

func TestConstReassignmentIsRuntimeError(t *testing.T) {
	res := evalSource(t, "const x = 1; x = 2;")
	require.Equal(t, cse.StatusErrored, res.Status)
	assert.NotNil(t, res.Error)
}

func TestCyclicPairViaSetTailDisplays(t *testing.T) {
	res := evalSource(t, `
		const p = pair(1, 2);
		set_tail(p, p);
		p;
	`)
	require.Equal(t, cse.StatusFinished, res.Status)
	pair, ok := res.Value.(*object.Pair)
	require.True(t, ok)
	assert.Contains(t, object.Display(pair), "...<circular>")
}

// TestStepLimitSuspendsThenResumes mirrors spec.md §8 scenario for a
// step-limited run: a low StepLimit suspends before the program finishes,
// and a follow-up Run on the same Machine (no StepLimit) completes it with
// the same result a single unbounded Run would have produced.
func TestStepLimitSuspendsThenResumes(t *testing.T) {
	p := parser.New(lexer.New("let i = 0; while (i < 50) { i = i + 1; } i;"), "test")
	program, err := p.ParseProgram()
	require.NoError(t, err)

	env := object.Global()
	table := builtins.Install(env)
	m := cse.NewMachine(env)
	m.Load(program)
	evaluator := cse.New(table, noopHooks{})

	res := evaluator.Run(m, cse.RunOptions{StepLimit: 5})
	require.Equal(t, cse.StatusSuspended, res.Status)

	for res.Status == cse.StatusSuspended {
		res = evaluator.Run(m, cse.RunOptions{StepLimit: 5})
	}
	require.Equal(t, cse.StatusFinished, res.Status)
	n := res.Value.(*object.Number)
	assert.Equal(t, float64(50), n.Value)
}

// TestTailCallDoesNotGrowFrames exercises the accumulator-style tail
// recursion spec.md §8 invariant 3 requires stay bounded, over a large
// iteration count, by checking the Frames slice never exceeds a handful of
// entries no matter how deep the logical recursion is.
func TestTailCallDoesNotGrowFrames(t *testing.T) {
	p := parser.New(lexer.New(`
		function loop(n, acc) {
			if (n === 0) { return acc; }
			return loop(n - 1, n * acc);
		}
		loop(500, 1);
	`), "test")
	program, err := p.ParseProgram()
	require.NoError(t, err)

	env := object.Global()
	table := builtins.Install(env)
	m := cse.NewMachine(env)
	m.Load(program)
	evaluator := cse.New(table, noopHooks{})

	res := evaluator.Run(m, cse.RunOptions{})
	require.Equal(t, cse.StatusFinished, res.Status)
	assert.LessOrEqual(t, len(m.Frames), 4, "tail calls must reuse frames rather than growing the frame stack")
}

// TestTailCallThroughConditionalExpressionDoesNotGrowFrames exercises the
// literal shape of spec.md §8 scenario 3: a tail call reached through a
// ConditionalExpression branch in an arrow's expression body, rather than
// through an IfStatement's block body. The call sits in the terminal
// position of the ternary, not as an operand of `*`, so it must be
// recognized as tail regardless of the ConditionalExpression wrapping it.
func TestTailCallThroughConditionalExpressionDoesNotGrowFrames(t *testing.T) {
	p := parser.New(lexer.New(`
		const f = (n, a) => n === 0 ? a : f(n - 1, n * a);
		f(10000, 1);
	`), "test")
	program, err := p.ParseProgram()
	require.NoError(t, err)

	env := object.Global()
	table := builtins.Install(env)
	m := cse.NewMachine(env)
	m.Load(program)
	evaluator := cse.New(table, noopHooks{})

	res := evaluator.Run(m, cse.RunOptions{})
	require.Equal(t, cse.StatusFinished, res.Status)
	assert.LessOrEqual(t, len(m.Frames), 4, "a tail call reached through a ConditionalExpression branch must reuse its caller's frame")
}

// TestTailReturnThroughConditionalExpressionDoesNotGrowFrames exercises the
// same gap via an explicit `return cond ? a : f(...);` in a block-bodied
// function, rather than an arrow's expression body.
func TestTailReturnThroughConditionalExpressionDoesNotGrowFrames(t *testing.T) {
	p := parser.New(lexer.New(`
		function loop(n, acc) {
			return n === 0 ? acc : loop(n - 1, n + acc);
		}
		loop(10000, 0);
	`), "test")
	program, err := p.ParseProgram()
	require.NoError(t, err)

	env := object.Global()
	table := builtins.Install(env)
	m := cse.NewMachine(env)
	m.Load(program)
	evaluator := cse.New(table, noopHooks{})

	res := evaluator.Run(m, cse.RunOptions{})
	require.Equal(t, cse.StatusFinished, res.Status)
	n := res.Value.(*object.Number)
	assert.Equal(t, float64(50005000), n.Value)
	assert.LessOrEqual(t, len(m.Frames), 4, "a tail return through a ConditionalExpression branch must reuse its caller's frame")
}

func TestInterruptSuspendsImmediately(t *testing.T) {
	p := parser.New(lexer.New("let i = 0; while (i < 1000) { i = i + 1; } i;"), "test")
	program, err := p.ParseProgram()
	require.NoError(t, err)

	env := object.Global()
	table := builtins.Install(env)
	m := cse.NewMachine(env)
	m.Load(program)
	evaluator := cse.New(table, noopHooks{})

	res := evaluator.Run(m, cse.RunOptions{Interrupted: func() bool { return true }})
	assert.Equal(t, cse.StatusSuspended, res.Status)
}

func TestArrayAndMemberExpression(t *testing.T) {
	res := evalSource(t, `
		const a = [1, 2, 3];
		a[2];
	`)
	require.Equal(t, cse.StatusFinished, res.Status)
	n := res.Value.(*object.Number)
	assert.Equal(t, float64(3), n.Value)
}
