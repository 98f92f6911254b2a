package object

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStrictEqualsByValueVsIdentity(t *testing.T) {
	assert.True(t, StrictEquals(&Number{Value: 1}, &Number{Value: 1}))
	assert.False(t, StrictEquals(&Number{Value: 1}, &Number{Value: 2}))
	assert.True(t, StrictEquals(&String{Value: "a"}, &String{Value: "a"}))

	p1 := NewPair(&Number{Value: 1}, Null)
	p2 := NewPair(&Number{Value: 1}, Null)
	assert.False(t, StrictEquals(p1, p2), "pairs compare by identity, not structure")
	assert.True(t, StrictEquals(p1, p1))
}

func TestIsTruthy(t *testing.T) {
	assert.False(t, IsTruthy(Undefined))
	assert.False(t, IsTruthy(Null))
	assert.False(t, IsTruthy(&Number{Value: 0}))
	assert.True(t, IsTruthy(&Number{Value: 1}))
	assert.False(t, IsTruthy(&String{Value: ""}))
	assert.True(t, IsTruthy(&String{Value: "x"}))
	assert.True(t, IsTruthy(NewArray(nil)))
}

func TestDisplayCyclicPair(t *testing.T) {
	p := NewPair(&Number{Value: 1}, Null)
	p.Tail = p
	out := Display(p)
	assert.Contains(t, out, "...<circular>")
}

func TestDisplayNestedPairs(t *testing.T) {
	inner := NewPair(&Number{Value: 2}, NewPair(&Number{Value: 3}, Null))
	outer := NewPair(&Number{Value: 1}, inner)
	assert.Equal(t, "[1, [2, [3, null]]]", Display(outer))
}

func TestNumberInspectSpecialValues(t *testing.T) {
	assert.Equal(t, "NaN", (&Number{Value: nan()}).Inspect())
	assert.Equal(t, "42", (&Number{Value: 42}).Inspect())
}

func nan() float64 {
	var zero float64
	return zero / zero
}

func TestEnvironmentConstReassignmentFails(t *testing.T) {
	env := Global()
	env.Define("x", BindingConst, &Number{Value: 1})
	res := env.Assign("x", &Number{Value: 2})
	assert.Equal(t, AssignConst, res)
}

func TestEnvironmentLetReassignmentSucceeds(t *testing.T) {
	env := Global()
	env.Define("x", BindingLet, &Number{Value: 1})
	res := env.Assign("x", &Number{Value: 2})
	assert.Equal(t, AssignOK, res)
	v, lr := env.Lookup("x")
	assert.Equal(t, LookupOK, lr)
	assert.Equal(t, float64(2), v.(*Number).Value)
}

func TestEnvironmentTDZ(t *testing.T) {
	env := Global()
	child := env.Extend("block", []string{"y"}, BindingLet)
	_, res := child.Lookup("y")
	assert.Equal(t, LookupTDZ, res)
	child.Define("y", BindingLet, &Number{Value: 5})
	v, res := child.Lookup("y")
	assert.Equal(t, LookupOK, res)
	assert.Equal(t, float64(5), v.(*Number).Value)
}

func TestEnvironmentLookupUndefined(t *testing.T) {
	env := Global()
	_, res := env.Lookup("nope")
	assert.Equal(t, LookupUndefined, res)
}

func TestAcyclicChain(t *testing.T) {
	root := Global()
	child := root.Extend("block", nil, BindingLet)
	grandchild := child.Extend("block", nil, BindingLet)
	assert.True(t, AcyclicChain(grandchild, 100))
}
