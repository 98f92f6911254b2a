package svm

import (
	"fmt"
	"math"

	"github.com/tsammeow/source-go/code"
	"github.com/tsammeow/source-go/object"
)

const maxFrames = 2048

// Machine executes one Program to completion. Grounded on the teacher's
// vm/vm.go fetch-decode-execute loop (a switch over code.Opcode driving an
// explicit operand stack and frame stack), generalized to SVM's env-chain
// addressing and to the CALLT tail-call frame-reuse discipline spec.md §8
// invariant 3 requires from both execution backends.
type Machine struct {
	program *Program
	strings []*object.String

	stack []object.Value
	sp    int

	frames    []*Frame
	framesIdx int

	globalEnv *Env

	// Display receives the argument of every `display` primitive call;
	// nil discards it.
	Display Display
}

// New constructs a Machine ready to run program from its entry function.
func New(program *Program) *Machine {
	strings := make([]*object.String, len(program.Strings))
	for i, s := range program.Strings {
		strings[i] = &object.String{Value: s}
	}
	entry := program.Functions[program.EntryFn]
	global := NewEnv(nil, entry.EnvSize)
	m := &Machine{
		program:   program,
		strings:   strings,
		stack:     make([]object.Value, 2048),
		frames:    make([]*Frame, maxFrames),
		globalEnv: global,
	}
	entryClosure := &Closure{FnIndex: program.EntryFn, Name: entry.Name, Env: global}
	m.frames[0] = NewFrame(entryClosure, global, 0)
	m.framesIdx = 1
	return m
}

// FrameDepth reports the number of active call frames, including the entry
// frame. A CALLT tail call reuses the current frame rather than pushing a
// new one, so this stays bounded across an arbitrarily long tail-call chain
// (spec.md §8 invariant 3) — callers outside package svm use this to assert
// that boundedness without reaching into unexported fields.
func (m *Machine) FrameDepth() int { return m.framesIdx }

func (m *Machine) currentFrame() *Frame { return m.frames[m.framesIdx-1] }

func (m *Machine) pushFrame(f *Frame) { m.frames[m.framesIdx] = f; m.framesIdx++ }
func (m *Machine) popFrame() *Frame   { m.framesIdx--; return m.frames[m.framesIdx] }

func (m *Machine) push(v object.Value) error {
	if m.sp >= len(m.stack) {
		return fmt.Errorf("svm: stack overflow")
	}
	m.stack[m.sp] = v
	m.sp++
	return nil
}

func (m *Machine) pop() object.Value {
	m.sp--
	return m.stack[m.sp]
}

// LastValue returns the value on top of the operand stack (Undefined when
// the stack is empty) — the final expression result once the entry
// function's DONE instruction halts the machine.
func (m *Machine) LastValue() object.Value {
	if m.sp == 0 {
		return object.Undefined
	}
	return m.stack[m.sp-1]
}

// Run drives the fetch-decode-execute loop until a DONE instruction halts
// the machine or a runtime error occurs.
func (m *Machine) Run() error {
	for {
		frame := m.currentFrame()
		ins := frame.Instructions(m.program)
		if frame.ip+1 >= len(ins) {
			return fmt.Errorf("svm: instruction pointer ran off the end of the function")
		}
		frame.ip++
		op := code.Opcode(ins[frame.ip])

		switch op {
		case code.DONE:
			return nil
		case code.NOP:
			// no-op
		case code.LGCI:
			v := int32(code.ReadUint32(ins[frame.ip+1:]))
			frame.ip += 4
			if err := m.push(&object.Number{Value: float64(v)}); err != nil {
				return err
			}
		case code.LGCF64:
			v := code.ReadF64(ins[frame.ip+1:])
			frame.ip += 8
			if err := m.push(&object.Number{Value: v}); err != nil {
				return err
			}
		case code.LGCS:
			idx := int(code.ReadUint32(ins[frame.ip+1:]))
			frame.ip += 4
			if err := m.push(m.strings[idx]); err != nil {
				return err
			}
		case code.LGCB0:
			if err := m.push(object.False); err != nil {
				return err
			}
		case code.LGCB1:
			if err := m.push(object.True); err != nil {
				return err
			}
		case code.LGCU:
			if err := m.push(object.Undefined); err != nil {
				return err
			}
		case code.LGCN:
			if err := m.push(object.Null); err != nil {
				return err
			}

		case code.ADDG, code.SUBG, code.MULG, code.DIVG, code.MODG,
			code.ADDN, code.SUBN, code.MULN, code.DIVN, code.MODN, code.ADDS:
			right, left := m.pop(), m.pop()
			v, err := binaryOp(op, left, right)
			if err != nil {
				return err
			}
			if err := m.push(v); err != nil {
				return err
			}
		case code.NEGG, code.NEGN:
			n, ok := m.pop().(*object.Number)
			if !ok {
				return fmt.Errorf("svm: unary '-' on non-number")
			}
			if err := m.push(&object.Number{Value: -n.Value}); err != nil {
				return err
			}
		case code.NOTG:
			v := m.pop()
			if err := m.push(object.NativeBool(!object.IsTruthy(v))); err != nil {
				return err
			}

		case code.EQG, code.NEQG, code.LTG, code.GTG, code.LEG, code.GEG:
			right, left := m.pop(), m.pop()
			v, err := comparisonOp(op, left, right)
			if err != nil {
				return err
			}
			if err := m.push(v); err != nil {
				return err
			}

		case code.NEWC:
			fnIdx := int(code.ReadUint32(ins[frame.ip+1:]))
			frame.ip += 4
			cl := &Closure{FnIndex: fnIdx, Name: m.program.Functions[fnIdx].Name, Env: frame.env}
			if err := m.push(cl); err != nil {
				return err
			}
		case code.NEWP:
			tail, head := m.pop(), m.pop()
			if err := m.push(object.NewPair(head, tail)); err != nil {
				return err
			}
		case code.NEWA:
			n := int(code.ReadUint16(ins[frame.ip+1:]))
			frame.ip += 2
			elems := make([]object.Value, n)
			for i := n - 1; i >= 0; i-- {
				elems[i] = m.pop()
			}
			if err := m.push(object.NewArray(elems)); err != nil {
				return err
			}
		case code.LDL:
			idx := int(ins[frame.ip+1])
			frame.ip++
			if err := m.push(frame.env.Slots[idx]); err != nil {
				return err
			}
		case code.STL:
			idx := int(ins[frame.ip+1])
			frame.ip++
			frame.env.Slots[idx] = m.pop()
		case code.LDP:
			depth := int(ins[frame.ip+1])
			idx := int(ins[frame.ip+2])
			frame.ip += 2
			if err := m.push(frame.env.At(depth).Slots[idx]); err != nil {
				return err
			}
		case code.STP:
			depth := int(ins[frame.ip+1])
			idx := int(ins[frame.ip+2])
			frame.ip += 2
			frame.env.At(depth).Slots[idx] = m.pop()

		case code.BR, code.JMP:
			offset := int(int32(code.ReadUint32(ins[frame.ip+1:])))
			frame.ip += 4 + offset
		case code.BRT:
			offset := int(int32(code.ReadUint32(ins[frame.ip+1:])))
			frame.ip += 4
			if object.IsTruthy(m.pop()) {
				frame.ip += offset
			}
		case code.BRF:
			offset := int(int32(code.ReadUint32(ins[frame.ip+1:])))
			frame.ip += 4
			if !object.IsTruthy(m.pop()) {
				frame.ip += offset
			}

		case code.CALL:
			argCount := int(ins[frame.ip+1])
			frame.ip++
			if err := m.call(argCount, false); err != nil {
				return err
			}
		case code.CALLT:
			argCount := int(ins[frame.ip+1])
			frame.ip++
			if err := m.call(argCount, true); err != nil {
				return err
			}
		case code.CALLP:
			primID := int(code.ReadUint16(ins[frame.ip+1:]))
			argCount := int(ins[frame.ip+3])
			frame.ip += 3
			if err := m.invokePrimitive(primID, argCount); err != nil {
				return err
			}

		case code.RETG, code.RETB:
			v := m.pop()
			if err := m.doReturn(v); err != nil {
				return err
			}
		case code.RETN, code.RETU:
			if err := m.doReturn(object.Undefined); err != nil {
				return err
			}

		case code.POP:
			m.pop()
		case code.DUP:
			v := m.stack[m.sp-1]
			if err := m.push(v); err != nil {
				return err
			}

		case code.NEWENV:
			size := int(code.ReadUint16(ins[frame.ip+1:]))
			frame.ip += 2
			frame.env = NewEnv(frame.env, size)
		case code.POPENV:
			frame.env = frame.env.Parent

		default:
			return fmt.Errorf("svm: unimplemented opcode %d", op)
		}

		if m.framesIdx == 0 {
			return nil
		}
	}
}

// call dispatches CALL/CALLT: pop argCount arguments and the callee, then
// either push a new Frame (ordinary call) or overwrite the current one in
// place (tail call) — the same frame-reuse technique package cse uses to
// keep a tail-call chain's control structures bounded (spec.md §8
// invariant 3).
func (m *Machine) call(argCount int, tail bool) error {
	args := make([]object.Value, argCount)
	for i := argCount - 1; i >= 0; i-- {
		args[i] = m.pop()
	}
	callee := m.pop()
	cl, ok := callee.(*Closure)
	if !ok {
		return fmt.Errorf("svm: %s is not callable", callee.Type())
	}
	fn := m.program.Functions[cl.FnIndex]
	if len(args) != fn.Arity {
		return fmt.Errorf("svm: %s expects %d argument(s), got %d", cl.Inspect(), fn.Arity, len(args))
	}
	env := NewEnv(cl.Env, fn.EnvSize)
	copy(env.Slots, args)

	if tail {
		frame := m.currentFrame()
		frame.closure = cl
		frame.env = env
		frame.ip = -1
		return nil
	}
	if m.framesIdx >= maxFrames {
		return fmt.Errorf("svm: call stack overflow")
	}
	m.pushFrame(NewFrame(cl, env, m.sp))
	return nil
}

// doReturn unwinds the current frame, delivering value as the call
// expression's result in the caller — or halts the machine entirely if the
// entry function itself is returning.
func (m *Machine) doReturn(value object.Value) error {
	f := m.popFrame()
	m.sp = f.basePointer
	return m.push(value)
}

func binaryOp(op code.Opcode, left, right object.Value) (object.Value, error) {
	if op == code.ADDS {
		ls, lok := left.(*object.String)
		rs, rok := right.(*object.String)
		if !lok || !rok {
			return nil, fmt.Errorf("svm: ADDS on non-strings")
		}
		return &object.String{Value: ls.Value + rs.Value}, nil
	}
	if op == code.ADDG {
		if ls, lok := left.(*object.String); lok {
			if rs, rok := right.(*object.String); rok {
				return &object.String{Value: ls.Value + rs.Value}, nil
			}
		}
	}
	ln, lok := left.(*object.Number)
	rn, rok := right.(*object.Number)
	if !lok || !rok {
		return nil, fmt.Errorf("svm: arithmetic on non-numbers (%s, %s)", left.Type(), right.Type())
	}
	switch op {
	case code.ADDG, code.ADDN:
		return &object.Number{Value: ln.Value + rn.Value}, nil
	case code.SUBG, code.SUBN:
		return &object.Number{Value: ln.Value - rn.Value}, nil
	case code.MULG, code.MULN:
		return &object.Number{Value: ln.Value * rn.Value}, nil
	case code.DIVG, code.DIVN:
		return &object.Number{Value: ln.Value / rn.Value}, nil
	case code.MODG, code.MODN:
		return &object.Number{Value: math.Mod(ln.Value, rn.Value)}, nil
	default:
		return nil, fmt.Errorf("svm: unhandled binary opcode %d", op)
	}
}

func comparisonOp(op code.Opcode, left, right object.Value) (object.Value, error) {
	if op == code.EQG {
		return object.NativeBool(object.StrictEquals(left, right)), nil
	}
	if op == code.NEQG {
		return object.NativeBool(!object.StrictEquals(left, right)), nil
	}
	ln, lok := left.(*object.Number)
	rn, rok := right.(*object.Number)
	if !lok || !rok {
		return nil, fmt.Errorf("svm: comparison on non-numbers (%s, %s)", left.Type(), right.Type())
	}
	switch op {
	case code.LTG:
		return object.NativeBool(ln.Value < rn.Value), nil
	case code.GTG:
		return object.NativeBool(ln.Value > rn.Value), nil
	case code.LEG:
		return object.NativeBool(ln.Value <= rn.Value), nil
	case code.GEG:
		return object.NativeBool(ln.Value >= rn.Value), nil
	default:
		return nil, fmt.Errorf("svm: unhandled comparison opcode %d", op)
	}
}
