package closure

import (
	"sort"

	"nerdkernel/internal/budget"
	"nerdkernel/internal/fact"
	"nerdkernel/internal/reason"
	"nerdkernel/internal/term"
)

// binding is one partial solution to a rule body: variable name ->
// canonical term.
type binding map[string]term.Term

func cloneBinding(b binding) binding {
	out := make(binding, len(b))
	for k, v := range b {
		out[k] = v
	}
	return out
}

// matchClause extends each binding in `in` with every way the clause can
// match an existing fact, returning the (possibly larger) set of
// extended bindings. A clause with no matching fact for a given input
// binding simply contributes nothing for that binding.
func matchClause(store fact.Store, clause BodyClause, in []binding, opts term.Options) []binding {
	candidates := store.QueryByPredicate(clause.Predicate)
	var out []binding
	for _, b := range in {
		for _, f := range candidates {
			if clause.Polarity != nil && f.Polarity != *clause.Polarity {
				continue
			}
			nb := cloneBinding(b)
			if extendBinding(nb, clause.Slots, f, opts) {
				out = append(out, nb)
			}
		}
	}
	return out
}

func extendBinding(nb binding, slots map[string]SlotMatch, f fact.Instance, opts term.Options) bool {
	for slot, sm := range slots {
		val, present := f.Arguments[slot]
		if !present {
			return false
		}
		if sm.VarName != "" {
			if existing, bound := nb[sm.VarName]; bound {
				eq, err := term.Equivalent(existing, val, opts)
				if err != nil || !eq {
					return false
				}
				continue
			}
			nb[sm.VarName] = val
			continue
		}
		eq, err := term.Equivalent(val, sm.Const, opts)
		if err != nil || !eq {
			return false
		}
	}
	return true
}

// solve finds every binding that simultaneously satisfies all of a
// rule's body clauses, joining left to right.
func solve(store fact.Store, body []BodyClause, opts term.Options) []binding {
	solutions := []binding{{}}
	for _, clause := range body {
		solutions = matchClause(store, clause, solutions, opts)
		if len(solutions) == 0 {
			return nil
		}
	}
	return solutions
}

func buildHeadArgs(head HeadClause, b binding) (map[string]term.Term, bool) {
	args := make(map[string]term.Term, len(head.Slots))
	for slot, sm := range head.Slots {
		if sm.VarName != "" {
			v, ok := b[sm.VarName]
			if !ok {
				return nil, false
			}
			args[slot] = v
			continue
		}
		args[slot] = sm.Const
	}
	return args, true
}

func sortedRules(rules []Rule) []Rule {
	out := make([]Rule, len(rules))
	copy(out, rules)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority > out[j].Priority
		}
		if out[i].Cost != out[j].Cost {
			return out[i].Cost < out[j].Cost
		}
		return out[i].RuleID < out[j].RuleID
	})
	return out
}

// Run evaluates rules against store to a fixpoint: repeated rounds over
// every rule (highest Priority first, ties broken by ascending Cost then
// RuleID for determinism) until a full round derives nothing new, or
// the budget is exhausted. Within a round, derived facts are staged in a
// pending set - every rule matches against the same working set, and the
// pending set is merged into the store only after the round completes.
// At merge time each new fact is checked against the store for an
// existing opposite-polarity conflict, and any conflict is surfaced on
// the result rather than silently dropped - closure never hides a
// conflict it produces.
func Run(store fact.Store, rules []Rule, b *budget.Budget, opts term.Options) (reason.ClosureResult, error) {
	ordered := sortedRules(rules)
	var result reason.ClosureResult

	for {
		if b.Exhausted() {
			result.BudgetExhausted = true
			return result, nil
		}
		var pending []fact.Instance
		staged := make(map[[48]byte]struct{})
		for _, r := range ordered {
			if err := b.ConsumeSteps("CLOSURE", r.Cost); err != nil {
				result.BudgetExhausted = true
				return result, nil
			}
			solutions := solve(store, r.Body, opts)
			for _, sol := range solutions {
				headArgs, ok := buildHeadArgs(r.Head, sol)
				if !ok {
					continue
				}
				nf, err := fact.New(r.Head.Predicate, headArgs, fact.Assert, r.Head.ScopeID, nil, opts)
				if err != nil {
					return result, err
				}
				if _, exists := store.Get(nf.FactID); exists {
					continue
				}
				if _, dup := staged[nf.FactID]; dup {
					continue
				}
				staged[nf.FactID] = struct{}{}
				pending = append(pending, nf)
			}
		}
		if len(pending) == 0 {
			return result, nil
		}
		for _, nf := range pending {
			conflicting := store.FindConflicting(nf)
			if _, err := store.Assert(nf); err != nil {
				return result, err
			}
			for _, other := range conflicting {
				if ct, ok := fact.Conflicts(nf, other, opts); ok {
					result.Conflicts = append(result.Conflicts, reason.ConflictReport{
						ConflictID: seqID(len(result.Conflicts) + 1),
						Type:       ct,
						Facts:      []fact.Instance{nf, other},
						ScopeID:    nf.ScopeID,
					})
				}
			}
			result.DerivedFacts = append(result.DerivedFacts, nf)
			result.DerivedClaims = append(result.DerivedClaims, reason.Claim{
				ClaimID:         seqID(len(result.DerivedClaims) + 1),
				Content:         nf.Predicate.String(),
				Confidence:      1.0,
				SupportingFacts: [][48]byte{nf.FactID},
			})
		}
	}
}

func seqID(n int) string {
	const alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
	if n == 0 {
		return "closure-0"
	}
	buf := make([]byte, 0, 8)
	for n > 0 {
		buf = append(buf, alphabet[n%len(alphabet)])
		n /= len(alphabet)
	}
	for i, j := 0, len(buf)-1; i < j; i, j = i+1, j-1 {
		buf[i], buf[j] = buf[j], buf[i]
	}
	return "closure-" + string(buf)
}
