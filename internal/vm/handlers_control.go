package vm

import (
	"nerdkernel/internal/execlog"
	"nerdkernel/internal/schema"
	"nerdkernel/internal/vmerr"
)

// handleControlOp implements BRANCH/JUMP/CALL/RETURN. Unlike the
// other categories these can redirect the program counter, so they
// return a control signal telling Run whether to fall through normally.
func (m *Machine) handleControlOp(instr schema.Instruction) (control, error) {
	switch instr.Op {
	case schema.OpBranch:
		return m.opBranch(instr)
	case schema.OpJump:
		return m.opJump(instr)
	case schema.OpCall:
		return m.opCall(instr)
	case schema.OpReturn:
		return m.opReturn(instr)
	default:
		return ctrlNext, vmerr.New(vmerr.CodeUnknownOpcode, "not a control opcode", map[string]any{"op": string(instr.Op)})
	}
}

// opBranch consumes one unit of branch budget and jumps to `then`
// or `else` depending on the truthiness of `cond`.
func (m *Machine) opBranch(instr schema.Instruction) (control, error) {
	if err := m.Budget.ConsumeBranch(); err != nil {
		return ctrlNext, err
	}
	args, err := m.resolveArgs(instr.Args)
	if err != nil {
		return ctrlNext, err
	}
	cond, _ := args["cond"].(bool)

	var target any
	if cond {
		target = args["then"]
	} else {
		target = args["else"]
	}
	idx, ok := target.(int)
	if !ok {
		return ctrlNext, vmerr.New(vmerr.CodeInvalidInstruction, "BRANCH target did not resolve to a label", nil)
	}
	m.Log.Record(execlog.EntryBranchStart, map[string]any{"cond": cond, "target": idx})
	m.pc = idx
	return ctrlJumped, nil
}

func (m *Machine) opJump(instr schema.Instruction) (control, error) {
	args, err := m.resolveArgs(instr.Args)
	if err != nil {
		return ctrlNext, err
	}
	idx, ok := args["target"].(int)
	if !ok {
		return ctrlNext, vmerr.New(vmerr.CodeInvalidInstruction, "JUMP target did not resolve to a label", nil)
	}
	m.pc = idx
	return ctrlJumped, nil
}

// opCall pushes the current pc+1 as a return address, enters a new
// binding scope (so the callee's locals don't leak to the caller), binds
// every named argument besides `target` into that scope so the callee
// can read its parameters by name, and charges one unit of recursion
// depth. Arguments are resolved in the caller's scope before the push.
func (m *Machine) opCall(instr schema.Instruction) (control, error) {
	if err := m.Budget.PushDepth(); err != nil {
		return ctrlNext, err
	}
	args, err := m.resolveArgs(instr.Args)
	if err != nil {
		return ctrlNext, err
	}
	idx, ok := args["target"].(int)
	if !ok {
		return ctrlNext, vmerr.New(vmerr.CodeInvalidInstruction, "CALL target did not resolve to a label", nil)
	}
	m.callStack = append(m.callStack, frame{returnPC: m.pc + 1})
	m.Env.Push()
	for name, v := range args {
		if name == "target" {
			continue
		}
		m.Env.Bind(name, v)
	}
	m.pc = idx
	return ctrlJumped, nil
}

// opReturn resolves the optional `value` arg in the callee's scope, pops
// the call stack, the depth budget, and the binding scope, then writes
// the value into the caller's scope through the instruction's output
// binding. RETURN at depth zero ends the program (RETURN with an empty
// call stack is a normal program terminator, not an error).
func (m *Machine) opReturn(instr schema.Instruction) (control, error) {
	args, err := m.resolveArgs(instr.Args)
	if err != nil {
		return ctrlNext, err
	}
	value, hasValue := args["value"]
	if len(m.callStack) == 0 {
		if hasValue {
			m.bindOut(instr, value)
		}
		return ctrlReturned, nil
	}
	top := m.callStack[len(m.callStack)-1]
	m.callStack = m.callStack[:len(m.callStack)-1]
	m.Budget.PopDepth()
	_ = m.Env.Pop()
	if hasValue {
		m.bindOut(instr, value)
	}
	m.pc = top.returnPC
	return ctrlJumped, nil
}
