package vm

import (
	"nerdkernel/internal/execlog"
	"nerdkernel/internal/schema"
	"nerdkernel/internal/vmerr"
)

// dispatch charges the instruction's base cost against the budget, then
// routes it to its category handler. Every opcode is charged before it
// runs, so a budget violation is reported against the instruction that
// would have exceeded the ceiling rather than the one after it.
func (m *Machine) dispatch(instr schema.Instruction) (control, error) {
	if err := m.Budget.ConsumeSteps(string(instr.Op), 0); err != nil {
		return ctrlNext, err
	}
	m.Log.Record(execlog.EntryInstruction, map[string]any{"pc": m.pc, "op": string(instr.Op)})

	switch instr.Op {
	case schema.OpMakeTerm, schema.OpCanonicalize, schema.OpBindSlots:
		return ctrlNext, m.handleTermOp(instr)
	case schema.OpAssert, schema.OpDeny, schema.OpQuery:
		return ctrlNext, m.handleFactOp(instr)
	case schema.OpMatch, schema.OpApplyRule, schema.OpClosure:
		return ctrlNext, m.handleLogicOp(instr)
	case schema.OpBranch, schema.OpJump, schema.OpCall, schema.OpReturn:
		return m.handleControlOp(instr)
	case schema.OpPushContext, schema.OpPopContext, schema.OpMergeContext, schema.OpIsolateContext:
		return ctrlNext, m.handleContextOp(instr)
	case schema.OpCount, schema.OpFilter, schema.OpMap, schema.OpReduce:
		return ctrlNext, m.handleReduceOp(instr)
	default:
		return ctrlNext, vmerr.New(vmerr.CodeUnknownOpcode, "unrecognized opcode", map[string]any{"op": string(instr.Op)})
	}
}

// bindOut stores a handler's result in the output binding, if the
// instruction named one.
func (m *Machine) bindOut(instr schema.Instruction, value any) {
	if instr.Out != "" {
		m.Env.Bind(instr.Out, value)
	}
}
