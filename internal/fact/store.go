package fact

import "nerdkernel/internal/term"

// Pattern is a conjunctive query filter: fields left at their zero
// value mean "any". An argument value of nil inside Arguments also means
// "any" for that slot.
type Pattern struct {
	Predicate *term.SymbolId
	Polarity  *Polarity
	ScopeID   []string
	Arguments map[string]term.Term
}

// Store is the fact-store contract.
type Store interface {
	Assert(f Instance) (conflicts []Instance, err error)
	Deny(factID [48]byte, currentScope []string) (removed bool, err error)
	Get(factID [48]byte) (Instance, bool)
	Query(p Pattern) []Instance
	QueryByPredicate(pred term.SymbolId) []Instance
	QueryByScope(scopeID []string) []Instance
	QueryByTimeRange(start, end int64) []Instance
	FindConflicting(f Instance) []Instance
	Count() int
	Clear()
	Snapshot() string
	Restore(snapshotID string) error
}

// matches reports whether a fact satisfies a query pattern's conjunctive
// filters.
func matches(f Instance, p Pattern, opts term.Options) bool {
	if p.Predicate != nil && f.Predicate != *p.Predicate {
		return false
	}
	if p.Polarity != nil && f.Polarity != *p.Polarity {
		return false
	}
	if p.ScopeID != nil && !scopeEqual(f.ScopeID, p.ScopeID) {
		return false
	}
	for slot, want := range p.Arguments {
		if want == nil {
			continue // explicit "any"
		}
		got, ok := f.Arguments[slot]
		if !ok {
			return false
		}
		eq, err := term.Equivalent(got, want, opts)
		if err != nil || !eq {
			return false
		}
	}
	return true
}
