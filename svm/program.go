// Package svm is the Source Virtual Machine: the runtime for bytecode
// emitted by package compiler and round-tripped through package asm. It is
// grounded on the teacher's vm/vm.go and vm/frame.go (the frame stack,
// fetch-decode-execute loop, and operand-stack shape) generalized from
// Monkey's OpConstant/OpGetGlobal/OpClosure model to spec.md §4.8's SVM
// opcode family — notably the lexical-address (envDepth, index) memory
// model in place of Monkey's separate global/local/free opcode families,
// and the tail-call frame-reuse discipline package cse already implements
// for the same spec.md §8 invariant.
package svm

import (
	"fmt"

	"github.com/tsammeow/source-go/code"
	"github.com/tsammeow/source-go/object"
)

// Function is one compiled SVM function: its recorded operand-stack size,
// the size of its own environment frame, its parameter count, and its
// instruction stream. StackSize and EnvSize are fixed at compile time
// (spec.md §4.9): package compiler computes EnvSize from the function's
// declarations and records StackSize as a constant 64. Machine does not
// consult StackSize; all frames share one operand stack.
type Function struct {
	Name         string
	StackSize    int
	EnvSize      int
	Arity        int
	Instructions code.Instructions
}

// Program is the unit package asm serializes: an entry function index, the
// flat function table every NEWC/CALL indexes into, and the deduplicated
// string constant pool LGCS indexes into.
type Program struct {
	EntryFn   int
	Functions []Function
	Strings   []string
}

// Env is the SVM's own runtime environment frame: an indexed slot array
// rather than cse's name-keyed object.Environment, matching the
// (envDepth, index) lexical addresses the compiler resolves ahead of time.
// Distinct from object.Environment because the SVM's addressing is
// positional; the CSE evaluator's is name-based. Both model the same
// acyclic-parent-chain shape (spec.md §8 invariant 4).
type Env struct {
	Parent *Env
	Slots  []object.Value
}

// NewEnv allocates an Env of size slots, initialized to Undefined, chained
// to parent (nil for the outermost/global frame).
func NewEnv(parent *Env, size int) *Env {
	slots := make([]object.Value, size)
	for i := range slots {
		slots[i] = object.Undefined
	}
	return &Env{Parent: parent, Slots: slots}
}

// At walks depth parents up from e and returns that frame, panicking on an
// out-of-range depth — a compiler bug, since depths are resolved statically
// against the same scope nesting the runtime env chain mirrors exactly.
func (e *Env) At(depth int) *Env {
	cur := e
	for i := 0; i < depth; i++ {
		if cur.Parent == nil {
			panic(fmt.Sprintf("svm: env depth %d exceeds chain", depth))
		}
		cur = cur.Parent
	}
	return cur
}

// Closure is the SVM's runtime function value: the function table index it
// was created from, plus the env chain active at its NEWC site. It
// implements object.Value so it can sit in an Array, Pair, or be the final
// result of a Machine run just like a CSE object.Closure.
type Closure struct {
	FnIndex int
	Name    string
	Env     *Env
}

func (c *Closure) Type() object.Type { return object.CLOSURE_OBJ }
func (c *Closure) Inspect() string {
	if c.Name != "" {
		return fmt.Sprintf("<function %s>", c.Name)
	}
	return "<function>"
}
