package fact

import (
	"testing"

	"github.com/stretchr/testify/require"

	"nerdkernel/internal/term"
)

func newInstance(t *testing.T, pred term.SymbolId, args map[string]term.Term, pol Polarity, scope []string) Instance {
	t.Helper()
	inst, err := New(pred, args, pol, scope, nil, term.DefaultOptions())
	require.NoError(t, err)
	return inst
}

func TestMemStoreAssertAndGet(t *testing.T) {
	s := NewMemStore(term.DefaultOptions())
	pred := term.NewSymbolId("ns", "alive")
	f := newInstance(t, pred, map[string]term.Term{"who": term.NewString("ana")}, Assert, []string{"root"})

	conflicts, err := s.Assert(f)
	require.NoError(t, err)
	require.Empty(t, conflicts)

	got, ok := s.Get(f.FactID)
	require.True(t, ok)
	require.Equal(t, f.FactID, got.FactID)
	require.Equal(t, 1, s.Count())
}

func TestMemStoreAssertReturnsConflicts(t *testing.T) {
	s := NewMemStore(term.DefaultOptions())
	pred := term.NewSymbolId("ns", "alive")
	args := map[string]term.Term{"who": term.NewString("ana")}

	a := newInstance(t, pred, args, Assert, []string{"root"})
	_, err := s.Assert(a)
	require.NoError(t, err)

	b := newInstance(t, pred, args, Deny, []string{"root"})
	conflicts, err := s.Assert(b)
	require.NoError(t, err)
	require.Len(t, conflicts, 1)
	require.Equal(t, a.FactID, conflicts[0].FactID)

	// Both the original assertion and the conflicting denial remain live -
	// conflicts are surfaced, never silently resolved.
	require.Equal(t, 2, s.Count())
}

func TestMemStoreDenyRequiresScopeContainment(t *testing.T) {
	s := NewMemStore(term.DefaultOptions())
	pred := term.NewSymbolId("ns", "alive")
	args := map[string]term.Term{"who": term.NewString("ana")}
	f := newInstance(t, pred, args, Assert, []string{"root", "child"})

	_, err := s.Assert(f)
	require.NoError(t, err)

	// A sibling scope does not contain "root/child" - deny must be refused.
	removed, err := s.Deny(f.FactID, []string{"root", "other"})
	require.NoError(t, err)
	require.False(t, removed)
	_, stillThere := s.Get(f.FactID)
	require.True(t, stillThere)

	// "root" contains "root/child" - deny succeeds.
	removed, err = s.Deny(f.FactID, []string{"root"})
	require.NoError(t, err)
	require.True(t, removed)
	_, gone := s.Get(f.FactID)
	require.False(t, gone)
}

func TestMemStoreQueryByPattern(t *testing.T) {
	s := NewMemStore(term.DefaultOptions())
	pred := term.NewSymbolId("ns", "color")

	red := newInstance(t, pred, map[string]term.Term{"v": term.NewString("red")}, Assert, []string{"root"})
	blue := newInstance(t, pred, map[string]term.Term{"v": term.NewString("blue")}, Assert, []string{"root"})
	_, err := s.Assert(red)
	require.NoError(t, err)
	_, err = s.Assert(blue)
	require.NoError(t, err)

	results := s.Query(Pattern{Predicate: &pred, Arguments: map[string]term.Term{"v": term.NewString("red")}})
	require.Len(t, results, 1)
	require.Equal(t, red.FactID, results[0].FactID)
}

func TestMemStoreQueryByScopeOverlap(t *testing.T) {
	s := NewMemStore(term.DefaultOptions())
	pred := term.NewSymbolId("ns", "thing")

	parent := newInstance(t, pred, map[string]term.Term{"v": term.NewString("p")}, Assert, []string{"root"})
	child := newInstance(t, pred, map[string]term.Term{"v": term.NewString("c")}, Assert, []string{"root", "child"})
	sibling := newInstance(t, pred, map[string]term.Term{"v": term.NewString("s")}, Assert, []string{"other"})

	for _, f := range []Instance{parent, child, sibling} {
		_, err := s.Assert(f)
		require.NoError(t, err)
	}

	results := s.QueryByScope([]string{"root"})
	require.Len(t, results, 2)
}

func TestMemStoreSnapshotRestore(t *testing.T) {
	s := NewMemStore(term.DefaultOptions())
	pred := term.NewSymbolId("ns", "v")
	f1 := newInstance(t, pred, map[string]term.Term{"x": term.NewInteger(1)}, Assert, []string{"root"})
	_, err := s.Assert(f1)
	require.NoError(t, err)

	snap := s.Snapshot()

	f2 := newInstance(t, pred, map[string]term.Term{"x": term.NewInteger(2)}, Assert, []string{"root"})
	_, err = s.Assert(f2)
	require.NoError(t, err)
	require.Equal(t, 2, s.Count())

	require.NoError(t, s.Restore(snap))
	require.Equal(t, 1, s.Count())
	_, ok := s.Get(f1.FactID)
	require.True(t, ok)
}

func TestMemStoreRestoreUnknownSnapshotErrors(t *testing.T) {
	s := NewMemStore(term.DefaultOptions())
	err := s.Restore("nope")
	require.Error(t, err)
}

func TestMemStoreClear(t *testing.T) {
	s := NewMemStore(term.DefaultOptions())
	f := newInstance(t, term.NewSymbolId("ns", "v"), map[string]term.Term{"x": term.NewInteger(1)}, Assert, []string{"root"})
	_, err := s.Assert(f)
	require.NoError(t, err)

	s.Clear()
	require.Equal(t, 0, s.Count())
}
