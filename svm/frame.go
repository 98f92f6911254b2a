package svm

import "github.com/tsammeow/source-go/code"

// Frame is one active call's execution context: the closure it is running,
// its instruction pointer, the env frame its LDL/STL/LDP/STP addresses
// resolve against, and the operand-stack depth to restore to on return.
// Grounded on the teacher's vm/frame.go Frame, generalized to carry an Env
// pointer instead of a basePointer-into-shared-stack local-binding hole,
// since the SVM addresses locals through Env rather than stack slots.
type Frame struct {
	closure     *Closure
	ip          int
	env         *Env
	basePointer int
}

// NewFrame starts a frame at instruction 0, ip initialized to -1 since the
// run loop increments before fetching (see Machine.Run).
func NewFrame(cl *Closure, env *Env, basePointer int) *Frame {
	return &Frame{closure: cl, ip: -1, env: env, basePointer: basePointer}
}

func (f *Frame) Instructions(prog *Program) code.Instructions {
	return prog.Functions[f.closure.FnIndex].Instructions
}
