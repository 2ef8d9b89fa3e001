package vm

import (
	"nerdkernel/internal/execlog"
	"nerdkernel/internal/reason"
	"nerdkernel/internal/schema"
	"nerdkernel/internal/vmerr"
)

func (m *Machine) handleContextOp(instr schema.Instruction) error {
	switch instr.Op {
	case schema.OpPushContext:
		return m.opPushContext(instr, false)
	case schema.OpIsolateContext:
		return m.opPushContext(instr, true)
	case schema.OpPopContext:
		return m.opPopContext(instr)
	case schema.OpMergeContext:
		return m.opMergeContext(instr)
	default:
		return vmerr.New(vmerr.CodeUnknownOpcode, "not a context opcode", map[string]any{"op": string(instr.Op)})
	}
}

// opPushContext enters a nested reasoning Context. PUSH_CONTEXT
// inherits parent fact visibility; ISOLATE_CONTEXT starts from an empty
// view.
func (m *Machine) opPushContext(instr schema.Instruction, isolated bool) error {
	args, err := m.resolveArgs(instr.Args)
	if err != nil {
		return err
	}
	segment, _ := args["segment"].(string)

	var idx int
	if isolated {
		idx = m.Ctx.PushIsolated(segment)
	} else {
		idx = m.Ctx.Push(segment)
	}
	m.Log.Record(execlog.EntryContextPush, map[string]any{"isolated": isolated, "segment": segment, "depth": idx})
	return nil
}

// opPopContext discards the innermost context without merging its local
// facts into the parent - used when a branch's hypothesis did not pan
// out.
func (m *Machine) opPopContext(instr schema.Instruction) error {
	depth := m.Ctx.Depth()
	if err := m.Ctx.Pop(); err != nil {
		return err
	}
	m.Log.Record(execlog.EntryContextPop, map[string]any{"merged": false, "depth": depth})
	return nil
}

// opMergeContext promotes the innermost context's local facts into its
// parent (merge-then-pop) and surfaces any resulting
// conflicts for the final mode determination.
func (m *Machine) opMergeContext(instr schema.Instruction) error {
	depth := m.Ctx.Depth()
	result, err := m.Ctx.Merge()
	if err != nil {
		return err
	}
	m.Log.Record(execlog.EntryContextPop, map[string]any{"merged": true, "depth": depth, "mergedCount": result.MergedCount})
	for i, ct := range result.Conflicts {
		m.conflicts = append(m.conflicts, reason.ConflictReport{
			ConflictID: seqID("conflict", len(m.conflicts)+i+1),
			Type:       ct,
			ScopeID:    m.Ctx.Top().ScopeID,
		})
	}
	m.bindOut(instr, result.MergedCount)
	return nil
}
