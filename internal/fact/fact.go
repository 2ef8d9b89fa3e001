// Package fact implements the content-addressed fact model and store:
// an append-oriented set of polarized facts
// with scope, time, and provenance, supporting conflict detection under
// temporal and scope overlap.
package fact

import (
	"crypto/sha256"
	"sort"
	"strings"

	"nerdkernel/internal/term"
)

// Polarity is whether a fact asserts or denies its predicate/arguments.
type Polarity string

const (
	Assert Polarity = "ASSERT"
	Deny   Polarity = "DENY"
)

// Provenance records one contributing source for a fact.
type Provenance struct {
	SourceID    string
	ExtractorID string
	Timestamp   int64 // epoch ms; zero means unset
}

// Instance is the primary content-addressed object.
type Instance struct {
	FactID     [48]byte
	Predicate  term.SymbolId
	Arguments  map[string]term.Term // canonical, slot-name -> canonical term
	Polarity   Polarity
	ScopeID    []string // ordered path, root-first
	Time       *term.TimeRef
	Confidence *float64
	Provenance []Provenance
	Qualifiers map[string]term.Term
}

// argsKey renders canonical arguments deterministically for hashing and
// equality, slot names in lexicographic order.
func argsKey(args map[string]term.Term, opts term.Options) string {
	names := make([]string, 0, len(args))
	for n := range args {
		names = append(names, n)
	}
	sort.Strings(names)
	var b strings.Builder
	for _, n := range names {
		b.WriteString(n)
		b.WriteByte('=')
		b.WriteString(term.Serialize(args[n], opts))
		b.WriteByte(';')
	}
	return b.String()
}

func timeKey(t *term.TimeRef, opts term.Options) string {
	if t == nil {
		return "none"
	}
	return term.Serialize(term.Atom{Type: term.TypeTime, Payload: *t}, opts)
}

func digest16(s string) [16]byte {
	sum := sha256.Sum256([]byte(s))
	var out [16]byte
	copy(out[:], sum[:16])
	return out
}

// BuildFactID computes the 48-byte factId = digest(predicate) ||
// digest(canonical(arguments)) || digest(scope || polarity || time).
// The first 32 bytes are identical for a fact and the DENY that
// negates it (predicate and arguments match); only the trailing 16-byte
// segment differs because it folds in polarity.
func BuildFactID(predicate term.SymbolId, args map[string]term.Term, scopeID []string, polarity Polarity, t *term.TimeRef, opts term.Options) [48]byte {
	predDigest := digest16(predicate.String())
	argsDigest := digest16(argsKey(args, opts))
	restKey := strings.Join(scopeID, "/") + "|" + string(polarity) + "|" + timeKey(t, opts)
	restDigest := digest16(restKey)

	var out [48]byte
	copy(out[0:16], predDigest[:])
	copy(out[16:32], argsDigest[:])
	copy(out[32:48], restDigest[:])
	return out
}

// New builds an Instance, canonicalizing arguments and time, and
// computing its FactID. Argument values are canonicalized per opts and
// slot names as text, the same way Struct slots are; the predicate is
// used as given (NewSymbolId already trims it).
func New(predicate term.SymbolId, args map[string]term.Term, polarity Polarity, scopeID []string, t *term.TimeRef, opts term.Options) (Instance, error) {
	canon, err := term.Canonicalize(term.NewStruct(predicate, args), opts)
	if err != nil {
		return Instance{}, err
	}
	canonArgs := canon.(term.Struct).Slots
	var canonTime *term.TimeRef
	if t != nil {
		nt := term.NormalizeTime(*t)
		canonTime = &nt
	}
	id := BuildFactID(predicate, canonArgs, scopeID, polarity, canonTime, opts)
	return Instance{
		FactID:    id,
		Predicate: predicate,
		Arguments: canonArgs,
		Polarity:  polarity,
		ScopeID:   append([]string(nil), scopeID...),
		Time:      canonTime,
	}, nil
}

// sameIdentity reports whether two facts share predicate+arguments -
// i.e. they are "identical canonical identity modulo polarity", the
// first leg of the conflict relation. Scope is deliberately excluded
// here: whether differing scopes still conflict is the overlap/equality
// check Conflicts performs separately, classifying the result as direct,
// temporal, or indirect.
func sameIdentity(a, b Instance, opts term.Options) bool {
	if a.Predicate != b.Predicate {
		return false
	}
	return argsKey(a.Arguments, opts) == argsKey(b.Arguments, opts)
}

func scopeEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// ScopeContains reports whether `outer` contains `inner`: outer is a
// prefix of inner (a shallower path contains deeper paths, per the
// GLOSSARY's Scope definition).
func ScopeContains(outer, inner []string) bool {
	if len(outer) > len(inner) {
		return false
	}
	for i, seg := range outer {
		if inner[i] != seg {
			return false
		}
	}
	return true
}

// scopeOverlaps reports whether either scope contains the other - the
// (d) leg of the conflict relation.
func scopeOverlaps(a, b []string) bool {
	return ScopeContains(a, b) || ScopeContains(b, a)
}

// ConflictType classifies why two facts conflict, used by the mode
// adapter's penalty table.
type ConflictType string

const (
	ConflictDirect   ConflictType = "direct"
	ConflictTemporal ConflictType = "temporal"
	ConflictIndirect ConflictType = "indirect"
)

// Conflicts reports whether a and b conflict:
// identical identity modulo polarity, opposite polarity, overlapping
// time, and overlapping scope. Returns a type classification used by the
// mode adapter's penalty table: direct (same scope, same/no time),
// temporal (overlapping but unequal time), indirect (overlap reaches
// across distinct, non-equal scopes).
func Conflicts(a, b Instance, opts term.Options) (ConflictType, bool) {
	if a.Polarity == b.Polarity {
		return "", false
	}
	if !sameIdentity(a, b, opts) {
		return "", false
	}
	if !scopeOverlaps(a.ScopeID, b.ScopeID) {
		return "", false
	}
	if !timeOverlap(a.Time, b.Time) {
		return "", false
	}
	switch {
	case !scopeEqual(a.ScopeID, b.ScopeID):
		return ConflictIndirect, true
	case timeExactlyEqual(a.Time, b.Time):
		return ConflictDirect, true
	default:
		return ConflictTemporal, true
	}
}

func timeExactlyEqual(a, b *term.TimeRef) bool {
	if a == nil && b == nil {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	return *a == *b
}

func timeOverlap(a, b *term.TimeRef) bool {
	if a == nil && b == nil {
		return true // both "no time" - treat as overlapping, per (c)
	}
	if a == nil || b == nil {
		return false
	}
	return term.Overlaps(*a, *b)
}
