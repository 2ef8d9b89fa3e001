// Package closure implements the bounded forward-chaining engine:
// repeatedly matching rule bodies against the fact store and asserting
// their heads until a round produces nothing new (fixpoint) or the
// budget runs out. The engine evaluates a caller-supplied rule set
// under this package's own budget and conflict model.
package closure

import (
	"nerdkernel/internal/fact"
	"nerdkernel/internal/term"
	"nerdkernel/internal/vmerr"
)

// SlotMatch is one rule-clause slot: either a constant term to match
// literally, or a variable name to bind (and check for consistency with
// any prior binding of the same name within one rule firing).
type SlotMatch struct {
	Const   term.Term
	VarName string
}

// BodyClause is one conjunct of a rule's body: a predicate plus a
// per-slot match spec. A nil Polarity matches either polarity.
type BodyClause struct {
	Predicate term.SymbolId
	Polarity  *fact.Polarity
	Slots     map[string]SlotMatch
}

// HeadClause is the fact a rule derives once its body is satisfied.
// ScopeID is fixed at rule-authoring time (not var-substitutable) - a
// rule always derives into a known scope.
type HeadClause struct {
	Predicate term.SymbolId
	Slots     map[string]SlotMatch
	ScopeID   []string
}

// Rule is one forward-chaining rule: rules fire in descending Priority
// order within a round (higher fires first), ties broken by ascending
// Cost then RuleID; Cost is also charged as extra steps, on top of
// the CLOSURE base cost, each time the engine evaluates the rule.
type Rule struct {
	RuleID   string
	Priority int
	Cost     int
	Body     []BodyClause
	Head     HeadClause
}

// literalToSlotMatch parses `{"var": "X"}` or `{"const": <term literal>}`.
func literalToSlotMatch(v any, parseTerm func(any) (term.Term, error)) (SlotMatch, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return SlotMatch{}, vmerr.New(vmerr.CodeInvalidInstruction, "rule slot must be an object", nil)
	}
	if name, ok := m["var"].(string); ok {
		return SlotMatch{VarName: name}, nil
	}
	if c, ok := m["const"]; ok {
		t, err := parseTerm(c)
		if err != nil {
			return SlotMatch{}, err
		}
		return SlotMatch{Const: t}, nil
	}
	return SlotMatch{}, vmerr.New(vmerr.CodeInvalidInstruction, "rule slot must have var or const", nil)
}

func literalToSlots(v any, parseTerm func(any) (term.Term, error)) (map[string]SlotMatch, error) {
	raw, _ := v.(map[string]any)
	out := make(map[string]SlotMatch, len(raw))
	for slot, sv := range raw {
		sm, err := literalToSlotMatch(sv, parseTerm)
		if err != nil {
			return nil, err
		}
		out[slot] = sm
	}
	return out, nil
}

func literalToSymbolId(v any) (term.SymbolId, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return term.SymbolId{}, vmerr.New(vmerr.CodeInvalidInstruction, "predicate must be an object", nil)
	}
	ns, _ := m["namespace"].(string)
	name, _ := m["name"].(string)
	if name == "" {
		return term.SymbolId{}, vmerr.New(vmerr.CodeInvalidInstruction, "predicate missing name", nil)
	}
	return term.NewSymbolId(ns, name), nil
}

func literalToClause(v any, parseTerm func(any) (term.Term, error)) (BodyClause, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return BodyClause{}, vmerr.New(vmerr.CodeInvalidInstruction, "body clause must be an object", nil)
	}
	pred, err := literalToSymbolId(m["predicate"])
	if err != nil {
		return BodyClause{}, err
	}
	slots, err := literalToSlots(m["slots"], parseTerm)
	if err != nil {
		return BodyClause{}, err
	}
	var pol *fact.Polarity
	if s, ok := m["polarity"].(string); ok && s != "" {
		p := fact.Polarity(s)
		pol = &p
	}
	return BodyClause{Predicate: pred, Polarity: pol, Slots: slots}, nil
}

func literalToHead(v any, parseTerm func(any) (term.Term, error)) (HeadClause, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return HeadClause{}, vmerr.New(vmerr.CodeInvalidInstruction, "rule head must be an object", nil)
	}
	pred, err := literalToSymbolId(m["predicate"])
	if err != nil {
		return HeadClause{}, err
	}
	slots, err := literalToSlots(m["slots"], parseTerm)
	if err != nil {
		return HeadClause{}, err
	}
	var scope []string
	if raw, ok := m["scope"].([]any); ok {
		for _, e := range raw {
			if s, ok := e.(string); ok {
				scope = append(scope, s)
			}
		}
	}
	return HeadClause{Predicate: pred, Slots: slots, ScopeID: scope}, nil
}

// ParseRules decodes a list of rule literals (the JSON/YAML shape
// accepted by the CLOSURE opcode) into Rules.
// parseTerm converts one atom/struct literal into a term.Term - callers
// pass the vm package's literal parser so the two stay in lockstep
// without this package depending on vm (which would be a cycle, since vm
// calls into closure for the CLOSURE opcode).
func ParseRules(raw []any, parseTerm func(any) (term.Term, error)) ([]Rule, error) {
	rules := make([]Rule, 0, len(raw))
	for i, rv := range raw {
		rm, ok := rv.(map[string]any)
		if !ok {
			return nil, vmerr.New(vmerr.CodeInvalidInstruction, "rule must be an object", map[string]any{"index": i})
		}
		id, _ := rm["ruleId"].(string)
		priority, _ := rm["priority"].(int)
		if f, ok := rm["priority"].(float64); ok {
			priority = int(f)
		}
		cost, _ := rm["cost"].(int)
		if f, ok := rm["cost"].(float64); ok {
			cost = int(f)
		}
		bodyRaw, _ := rm["body"].([]any)
		body := make([]BodyClause, 0, len(bodyRaw))
		for _, bv := range bodyRaw {
			bc, err := literalToClause(bv, parseTerm)
			if err != nil {
				return nil, err
			}
			body = append(body, bc)
		}
		head, err := literalToHead(rm["head"], parseTerm)
		if err != nil {
			return nil, err
		}
		rules = append(rules, Rule{RuleID: id, Priority: priority, Cost: cost, Body: body, Head: head})
	}
	return rules, nil
}
