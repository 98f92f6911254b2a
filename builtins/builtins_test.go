package builtins

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tsammeow/source-go/ast"
	"github.com/tsammeow/source-go/cse"
	"github.com/tsammeow/source-go/object"
)

type recordingHooks struct {
	displayed []object.Value
	prompted  string
	alerted   []string
}

func (h *recordingHooks) RawDisplay(v object.Value, _ string) { h.displayed = append(h.displayed, v) }
func (h *recordingHooks) Prompt(string) string                { return h.prompted }
func (h *recordingHooks) Alert(msg string)                    { h.alerted = append(h.alerted, msg) }
func (h *recordingHooks) VisualiseList(object.Value)          {}

func newTableAndCtx() (*Table, *cse.CallContext, *recordingHooks) {
	env := object.Global()
	table := Install(env)
	hooks := &recordingHooks{}
	ctx := &cse.CallContext{Loc: ast.SourceLocation{}, Hooks: hooks, Env: env}
	return table, ctx, hooks
}

func idOf(t *testing.T, table *Table, name string) int {
	t.Helper()
	for i, fn := range table.fns {
		if fn.Name == name {
			return i
		}
	}
	t.Fatalf("no builtin named %q", name)
	return -1
}

func TestPairHeadTailRoundTrip(t *testing.T) {
	table, ctx, _ := newTableAndCtx()
	p, err := table.Invoke(ctx, idOf(t, table, "pair"), []object.Value{&object.Number{Value: 1}, &object.Number{Value: 2}})
	require.Nil(t, err)

	h, err := table.Invoke(ctx, idOf(t, table, "head"), []object.Value{p})
	require.Nil(t, err)
	assert.Equal(t, float64(1), h.(*object.Number).Value)

	tl, err := table.Invoke(ctx, idOf(t, table, "tail"), []object.Value{p})
	require.Nil(t, err)
	assert.Equal(t, float64(2), tl.(*object.Number).Value)
}

func TestHeadOnNonPairIsRuntimeError(t *testing.T) {
	table, ctx, _ := newTableAndCtx()
	_, err := table.Invoke(ctx, idOf(t, table, "head"), []object.Value{&object.Number{Value: 5}})
	require.NotNil(t, err)
	assert.Contains(t, err.Error(), "head expects a pair")
}

func TestArityMismatchIsRuntimeError(t *testing.T) {
	table, ctx, _ := newTableAndCtx()
	_, err := table.Invoke(ctx, idOf(t, table, "pair"), []object.Value{&object.Number{Value: 1}})
	require.NotNil(t, err)
	assert.Contains(t, err.Error(), "expects 2 argument")
}

func TestArrayLengthAndPredicates(t *testing.T) {
	table, ctx, _ := newTableAndCtx()
	arr := object.NewArray([]object.Value{&object.Number{Value: 1}, &object.Number{Value: 2}})

	length, err := table.Invoke(ctx, idOf(t, table, "array_length"), []object.Value{arr})
	require.Nil(t, err)
	assert.Equal(t, float64(2), length.(*object.Number).Value)

	isArr, err := table.Invoke(ctx, idOf(t, table, "is_array"), []object.Value{arr})
	require.Nil(t, err)
	assert.Equal(t, object.True, isArr)

	isNum, err := table.Invoke(ctx, idOf(t, table, "is_number"), []object.Value{arr})
	require.Nil(t, err)
	assert.Equal(t, object.False, isNum)
}

func TestMathBuiltins(t *testing.T) {
	table, ctx, _ := newTableAndCtx()
	abs, err := table.Invoke(ctx, idOf(t, table, "math_abs"), []object.Value{&object.Number{Value: -4}})
	require.Nil(t, err)
	assert.Equal(t, float64(4), abs.(*object.Number).Value)

	pow, err := table.Invoke(ctx, idOf(t, table, "math_pow"), []object.Value{&object.Number{Value: 2}, &object.Number{Value: 10}})
	require.Nil(t, err)
	assert.Equal(t, float64(1024), pow.(*object.Number).Value)

	max, err := table.Invoke(ctx, idOf(t, table, "math_max"), []object.Value{&object.Number{Value: 3}, &object.Number{Value: 9}, &object.Number{Value: 1}})
	require.Nil(t, err)
	assert.Equal(t, float64(9), max.(*object.Number).Value)
}

func TestMathAbsOnNonNumberErrors(t *testing.T) {
	table, ctx, _ := newTableAndCtx()
	_, err := table.Invoke(ctx, idOf(t, table, "math_abs"), []object.Value{&object.String{Value: "x"}})
	require.NotNil(t, err)
}

func TestDisplayInvokesHooksAndReturnsValue(t *testing.T) {
	table, ctx, hooks := newTableAndCtx()
	v := &object.Number{Value: 7}
	result, err := table.Invoke(ctx, idOf(t, table, "display"), []object.Value{v})
	require.Nil(t, err)
	assert.Same(t, v, result)
	require.Len(t, hooks.displayed, 1)
	assert.Same(t, v, hooks.displayed[0])
}

func TestPromptReturnsHostSuppliedString(t *testing.T) {
	table, ctx, hooks := newTableAndCtx()
	hooks.prompted = "42"
	result, err := table.Invoke(ctx, idOf(t, table, "prompt"), []object.Value{&object.String{Value: "enter a number"}})
	require.Nil(t, err)
	assert.Equal(t, "42", result.(*object.String).Value)
}

func TestErrorBuiltinRaisesRuntimeError(t *testing.T) {
	table, ctx, _ := newTableAndCtx()
	_, err := table.Invoke(ctx, idOf(t, table, "error"), []object.Value{&object.String{Value: "boom"}})
	require.NotNil(t, err)
	assert.Contains(t, err.Error(), "boom")
}
