package vm

import (
	"strings"

	"nerdkernel/internal/closure"
	"nerdkernel/internal/execlog"
	"nerdkernel/internal/fact"
	"nerdkernel/internal/schema"
	"nerdkernel/internal/term"
	"nerdkernel/internal/vmerr"
)

func (m *Machine) handleLogicOp(instr schema.Instruction) error {
	switch instr.Op {
	case schema.OpMatch:
		return m.opMatch(instr)
	case schema.OpApplyRule:
		return m.opApplyRule(instr)
	case schema.OpClosure:
		return m.opClosure(instr)
	default:
		return vmerr.New(vmerr.CodeUnknownOpcode, "not a logic opcode", map[string]any{"op": string(instr.Op)})
	}
}

// opMatch queries the store for the first fact satisfying `pattern` and,
// if found, destructures it into fresh bindings named by `bind` (a
// varName -> slotName map), giving a single-fact alternative to QUERY+
// BIND_SLOTS for the common "does this exist, and if so what are its
// arguments" case.
func (m *Machine) opMatch(instr schema.Instruction) error {
	args, err := m.resolveArgs(instr.Args)
	if err != nil {
		return err
	}
	patternLiteral, _ := args["pattern"].(map[string]any)
	p, err := buildPattern(patternLiteral)
	if err != nil {
		return err
	}
	results := m.Store.Query(p)
	m.Log.Record(execlog.EntryMatchResult, map[string]any{"matched": len(results) > 0, "count": len(results)})
	if len(results) == 0 {
		m.bindOut(instr, false)
		return nil
	}
	f := results[0]
	bindMap, _ := args["bind"].(map[string]any)
	for varName, slotNameRaw := range bindMap {
		slotName, _ := slotNameRaw.(string)
		if t, ok := f.Arguments[slotName]; ok {
			m.Env.Bind(varName, termToLiteral(t))
		}
	}
	m.bindOut(instr, true)
	return nil
}

// opApplyRule is a single-clause rule application: if `pattern` matches
// an existing fact, `head` is asserted with its variable slots (sigil
// form "$name") substituted from the match's bindings (the `bind` map),
// and constant slots taken from the head literal as-is. Multi-clause,
// multi-round forward chaining belongs to CLOSURE; this opcode is the
// one-shot building block a program can also use standalone.
func (m *Machine) opApplyRule(instr schema.Instruction) error {
	args, err := m.resolveArgs(instr.Args)
	if err != nil {
		return err
	}
	patternLiteral, _ := args["pattern"].(map[string]any)
	p, err := buildPattern(patternLiteral)
	if err != nil {
		return err
	}
	results := m.Store.Query(p)
	if len(results) == 0 {
		m.bindOut(instr, false)
		return nil
	}
	matched := results[0]
	bindMap, _ := args["bind"].(map[string]any)
	extracted := make(map[string]term.Term, len(bindMap))
	for varName, slotNameRaw := range bindMap {
		slotName, _ := slotNameRaw.(string)
		if t, ok := matched.Arguments[slotName]; ok {
			extracted[varName] = t
		}
	}

	headPred, err := factPredicate(args["headPredicate"])
	if err != nil {
		return err
	}
	headArgsRaw, _ := args["headArguments"].(map[string]any)
	headArgs := make(map[string]term.Term, len(headArgsRaw))
	for slot, v := range headArgsRaw {
		if s, ok := v.(string); ok && strings.HasPrefix(s, "$") {
			name := strings.TrimPrefix(s, "$")
			t, ok := extracted[name]
			if !ok {
				return vmerr.New(vmerr.CodeBindingNotFound, "APPLY_RULE head referenced an unbound variable", map[string]any{"var": name})
			}
			headArgs[slot] = t
			continue
		}
		t, err := literalToTerm(v)
		if err != nil {
			return err
		}
		headArgs[slot] = t
	}

	scope := m.Ctx.Top().ScopeID
	nf, err := fact.New(headPred, headArgs, fact.Assert, scope, nil, m.Opts)
	if err != nil {
		return err
	}
	conflicting := m.Store.FindConflicting(nf)
	for _, other := range conflicting {
		if ct, ok := fact.Conflicts(nf, other, m.Opts); ok {
			m.recordConflict(ct, nf, other, scope)
		}
	}
	m.Ctx.PutLocal(nf)
	if !m.Ctx.Top().Isolated {
		if _, err := m.Store.Assert(nf); err != nil {
			return err
		}
	}
	m.recordClaim(termToLiteral(term.NewStruct(headPred, headArgs)), 1.0, nf.FactID)
	m.bindOut(instr, true)
	return nil
}

// opClosure runs the bounded forward-chaining engine over the current
// fact store with the rule set described by the `rules` literal,
// merging its derived claims and conflicts into this machine's result
// and binding a summary (derived fact count, whether the budget was
// exhausted) to the instruction's output.
func (m *Machine) opClosure(instr schema.Instruction) error {
	args, err := m.resolveArgs(instr.Args)
	if err != nil {
		return err
	}
	rawRules, _ := args["rules"].([]any)
	rules, err := closure.ParseRules(rawRules, literalToTerm)
	if err != nil {
		return err
	}
	sub := m.Budget.CreateSubBudget(1.0)
	result, err := closure.Run(m.Store, rules, sub, m.Opts)
	if err != nil {
		return err
	}
	m.claims = append(m.claims, result.DerivedClaims...)
	m.conflicts = append(m.conflicts, result.Conflicts...)
	m.bindOut(instr, map[string]any{
		"derivedCount":    len(result.DerivedFacts),
		"budgetExhausted": result.BudgetExhausted,
	})
	return nil
}
