package vm

import (
	"nerdkernel/internal/execlog"
	"nerdkernel/internal/fact"
	"nerdkernel/internal/schema"
	"nerdkernel/internal/term"
	"nerdkernel/internal/vmerr"
)

func (m *Machine) handleFactOp(instr schema.Instruction) error {
	switch instr.Op {
	case schema.OpAssert:
		return m.opAssert(instr)
	case schema.OpDeny:
		return m.opDeny(instr)
	case schema.OpQuery:
		return m.opQuery(instr)
	default:
		return vmerr.New(vmerr.CodeUnknownOpcode, "not a fact opcode", map[string]any{"op": string(instr.Op)})
	}
}

// factArguments resolves the `arguments` literal/binding into a slot-name
// -> Term map, accepting either already-bound Term values or raw literals.
func factArguments(raw any) (map[string]term.Term, error) {
	m, ok := raw.(map[string]any)
	if !ok {
		if m == nil {
			return map[string]term.Term{}, nil
		}
		return nil, vmerr.New(vmerr.CodeInvalidInstruction, "arguments must be an object", nil)
	}
	out := make(map[string]term.Term, len(m))
	for name, v := range m {
		if t, ok := v.(term.Term); ok {
			out[name] = t
			continue
		}
		t, err := literalToTerm(v)
		if err != nil {
			return nil, err
		}
		out[name] = t
	}
	return out, nil
}

func factPredicate(raw any) (term.SymbolId, error) {
	if sym, ok := raw.(term.SymbolId); ok {
		return sym, nil
	}
	m, ok := raw.(map[string]any)
	if !ok {
		return term.SymbolId{}, vmerr.New(vmerr.CodeInvalidInstruction, "predicate must be a symbol", nil)
	}
	return literalToSymbolId(m)
}

func factTime(raw any) (*term.TimeRef, error) {
	if raw == nil {
		return nil, nil
	}
	if tr, ok := raw.(term.TimeRef); ok {
		return &tr, nil
	}
	m, ok := raw.(map[string]any)
	if !ok {
		return nil, vmerr.New(vmerr.CodeInvalidTerm, "time must be an object", nil)
	}
	tr, err := literalToTimeRef(m)
	if err != nil {
		return nil, err
	}
	return &tr, nil
}

// factPolarity reads an optional `polarity` arg, defaulting to ASSERT.
// The ASSERT opcode normally produces ASSERT-polarity facts, but the
// generic Store.Assert contract places a fact of either polarity and
// reports conflicts uniformly - a program can assert a DENY-polarity
// fact directly to record an explicit denial as data rather than
// removing a prior one.
func factPolarity(raw any) fact.Polarity {
	if s, ok := raw.(string); ok && s != "" {
		return fact.Polarity(s)
	}
	return fact.Assert
}

// opAssert builds a fact.Instance from the predicate/arguments/time args
// and the current context's scope, asserts it into the current context's
// local set, and surfaces any store-level conflicts as ConflictReports so
// the final mode determination sees them.
func (m *Machine) opAssert(instr schema.Instruction) error {
	args, err := m.resolveArgs(instr.Args)
	if err != nil {
		return err
	}
	pred, err := factPredicate(args["predicate"])
	if err != nil {
		return err
	}
	fargs, err := factArguments(args["arguments"])
	if err != nil {
		return err
	}
	t, err := factTime(args["time"])
	if err != nil {
		return err
	}
	scope := m.Ctx.Top().ScopeID
	polarity := factPolarity(args["polarity"])

	f, err := fact.New(pred, fargs, polarity, scope, t, m.Opts)
	if err != nil {
		return err
	}

	existing := m.Store.FindConflicting(f)
	for _, other := range existing {
		if ct, ok := fact.Conflicts(f, other, m.Opts); ok {
			m.recordConflict(ct, f, other, scope)
		}
	}
	m.Ctx.PutLocal(f)
	if !m.Ctx.Top().Isolated {
		// A fact lands in the current context's local set
		// and, unless the context is isolated, the backing store too - so
		// a later QUERY (which reads the store directly) can see it without
		// requiring an explicit MERGE_CONTEXT.
		if _, err := m.Store.Assert(f); err != nil {
			return err
		}
	}
	m.Log.Record(execlog.EntryFactAssert, map[string]any{"factId": f.FactID, "predicate": pred.String()})
	m.recordClaim(termToLiteral(term.NewStruct(pred, fargs)), 1.0, f.FactID)
	m.bindOut(instr, f)
	return nil
}

// opDeny constructs the negating FactID for the given predicate/arguments
// and marks it denied in the current context (a DENY shares the
// first 32 id bytes with the ASSERT it negates, differing only in the
// polarity-folding trailing segment).
func (m *Machine) opDeny(instr schema.Instruction) error {
	args, err := m.resolveArgs(instr.Args)
	if err != nil {
		return err
	}
	pred, err := factPredicate(args["predicate"])
	if err != nil {
		return err
	}
	fargs, err := factArguments(args["arguments"])
	if err != nil {
		return err
	}
	t, err := factTime(args["time"])
	if err != nil {
		return err
	}
	scope := m.Ctx.Top().ScopeID

	f, err := fact.New(pred, fargs, fact.Deny, scope, t, m.Opts)
	if err != nil {
		return err
	}
	// The DENY opcode removes a previously-asserted fact rather than
	// recording new data: resolve the ASSERT-polarity counterpart's
	// factId (it shares everything but the polarity-folded trailing
	// segment) and hide/remove that id, not this DENY instance's own id.
	asserted, err := fact.New(pred, fargs, fact.Assert, scope, t, m.Opts)
	if err != nil {
		return err
	}
	m.Ctx.DenyLocal(asserted.FactID)
	if !m.Ctx.Top().Isolated {
		if _, err := m.Store.Deny(asserted.FactID, scope); err != nil {
			return err
		}
	}
	m.Log.Record(execlog.EntryFactDeny, map[string]any{"factId": f.FactID, "predicate": pred.String()})
	m.bindOut(instr, f)
	return nil
}

// opQuery runs a Pattern against the fact store and binds the result
// list. Dispatch already charged QUERY's base weight, so only the
// per-result extra is consumed here - the total lands on base + count.
func (m *Machine) opQuery(instr schema.Instruction) error {
	args, err := m.resolveArgs(instr.Args)
	if err != nil {
		return err
	}
	p, err := buildPattern(args)
	if err != nil {
		return err
	}
	results := m.Store.Query(p)
	if err := m.Budget.ConsumeExtraSteps(len(results)); err != nil {
		return err
	}
	m.Log.Record(execlog.EntryQueryResult, map[string]any{"count": len(results)})

	out := make([]any, len(results))
	for i, f := range results {
		out[i] = f
	}
	m.bindOut(instr, out)
	return nil
}

func buildPattern(args map[string]any) (fact.Pattern, error) {
	var p fact.Pattern
	if raw, ok := args["predicate"]; ok && raw != nil {
		sym, err := factPredicate(raw)
		if err != nil {
			return p, err
		}
		p.Predicate = &sym
	}
	if raw, ok := args["polarity"]; ok && raw != nil {
		s, _ := raw.(string)
		pol := fact.Polarity(s)
		p.Polarity = &pol
	}
	if raw, ok := args["scope"]; ok && raw != nil {
		p.ScopeID = toStringSlice(raw)
	}
	if raw, ok := args["arguments"]; ok && raw != nil {
		fargs, err := factArguments(raw)
		if err != nil {
			return p, err
		}
		p.Arguments = fargs
	}
	return p, nil
}
