package vm

import (
	"nerdkernel/internal/schema"
	"nerdkernel/internal/term"
	"nerdkernel/internal/vmerr"
)

func (m *Machine) handleTermOp(instr schema.Instruction) error {
	switch instr.Op {
	case schema.OpMakeTerm:
		return m.opMakeTerm(instr)
	case schema.OpCanonicalize:
		return m.opCanonicalize(instr)
	case schema.OpBindSlots:
		return m.opBindSlots(instr)
	default:
		return vmerr.New(vmerr.CodeUnknownOpcode, "not a term opcode", map[string]any{"op": string(instr.Op)})
	}
}

// opMakeTerm builds a Term from the `value` arg's literal/binding and
// canonicalizes it immediately, since every Term that enters the system
// must be canonical before it can be used in a fact identity.
func (m *Machine) opMakeTerm(instr schema.Instruction) error {
	args, err := m.resolveArgs(instr.Args)
	if err != nil {
		return err
	}
	raw, ok := args["value"]
	if !ok {
		return vmerr.New(vmerr.CodeInvalidInstruction, "MAKE_TERM requires a value arg", nil)
	}
	t, ok := raw.(term.Term)
	if !ok {
		t, err = literalToTerm(raw)
		if err != nil {
			return err
		}
	}
	ct, err := term.Canonicalize(t, m.Opts)
	if err != nil {
		return err
	}
	m.bindOut(instr, ct)
	return nil
}

// opCanonicalize re-canonicalizes an already-bound term, a no-op in
// practice since Canonicalize is idempotent, but useful when a
// program wants to force canonical form on a value threaded through
// arbitrary literal data (e.g. fetched from a QUERY result).
func (m *Machine) opCanonicalize(instr schema.Instruction) error {
	args, err := m.resolveArgs(instr.Args)
	if err != nil {
		return err
	}
	raw, ok := args["term"]
	if !ok {
		return vmerr.New(vmerr.CodeInvalidInstruction, "CANONICALIZE requires a term arg", nil)
	}
	t, ok := raw.(term.Term)
	if !ok {
		t, err = literalToTerm(raw)
		if err != nil {
			return err
		}
	}
	ct, err := term.Canonicalize(t, m.Opts)
	if err != nil {
		return err
	}
	m.bindOut(instr, ct)
	return nil
}

// opBindSlots destructures a Struct term's slots into fresh bindings in
// the current environment scope, per the `bindings` literal: a map of
// variable-name -> slot-name. Missing slots bind to nil rather than
// erroring, since a program may probe an optional slot.
func (m *Machine) opBindSlots(instr schema.Instruction) error {
	args, err := m.resolveArgs(instr.Args)
	if err != nil {
		return err
	}
	raw, ok := args["source"]
	if !ok {
		return vmerr.New(vmerr.CodeInvalidInstruction, "BIND_SLOTS requires a source arg", nil)
	}
	s, ok := raw.(term.Struct)
	if !ok {
		return vmerr.New(vmerr.CodeInvalidInstruction, "BIND_SLOTS source is not a struct term", nil)
	}
	bindingsRaw, _ := args["bindings"].(map[string]any)
	for varName, slotNameRaw := range bindingsRaw {
		slotName, _ := slotNameRaw.(string)
		m.Env.Bind(varName, s.Slots[slotName])
	}
	return nil
}
