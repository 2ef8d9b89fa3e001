package ctxstack

import (
	"testing"

	"github.com/stretchr/testify/require"

	"nerdkernel/internal/fact"
	"nerdkernel/internal/term"
)

func mkFact(t *testing.T, pred string, scope []string, opts term.Options) fact.Instance {
	t.Helper()
	f, err := fact.New(term.NewSymbolId("ns", pred), map[string]term.Term{"x": term.NewString("v")}, fact.Assert, scope, nil, opts)
	require.NoError(t, err)
	return f
}

func TestRootContextCannotBePopped(t *testing.T) {
	opts := term.DefaultOptions()
	s := New(fact.NewMemStore(opts), opts)
	require.Error(t, s.Pop())
}

func TestPushInheritsScopeAndVisibility(t *testing.T) {
	opts := term.DefaultOptions()
	store := fact.NewMemStore(opts)
	s := New(store, opts)

	f := mkFact(t, "holds", nil, opts)
	s.PutLocal(f)

	s.Push("child")
	require.Equal(t, []string{"child"}, s.Top().ScopeID)

	got, ok := s.GetFact(f.FactID)
	require.True(t, ok, "non-isolated child must see parent's local facts")
	require.Equal(t, f.FactID, got.FactID)
}

func TestPushIsolatedHidesParentFacts(t *testing.T) {
	opts := term.DefaultOptions()
	store := fact.NewMemStore(opts)
	s := New(store, opts)

	f := mkFact(t, "holds", nil, opts)
	s.PutLocal(f)

	s.PushIsolated("shadow")
	_, ok := s.GetFact(f.FactID)
	require.False(t, ok, "isolated child must not see parent's local facts")
}

func TestDenyLocalHidesFactInSameContext(t *testing.T) {
	opts := term.DefaultOptions()
	store := fact.NewMemStore(opts)
	s := New(store, opts)

	f := mkFact(t, "holds", nil, opts)
	s.PutLocal(f)
	s.DenyLocal(f.FactID)

	_, ok := s.GetFact(f.FactID)
	require.False(t, ok)
}

func TestMergePromotesLocalFactsToParent(t *testing.T) {
	opts := term.DefaultOptions()
	store := fact.NewMemStore(opts)
	s := New(store, opts)

	s.Push("child")
	f := mkFact(t, "holds", []string{"child"}, opts)
	s.PutLocal(f)

	result, err := s.Merge()
	require.NoError(t, err)
	require.Equal(t, 1, result.MergedCount)
	require.Empty(t, result.Conflicts)
	require.Equal(t, 0, s.TopIndex(), "merge pops the child back to the parent")

	got, ok := s.GetFact(f.FactID)
	require.True(t, ok)
	require.Equal(t, f.FactID, got.FactID)
}

func TestMergeRootIsAnError(t *testing.T) {
	opts := term.DefaultOptions()
	s := New(fact.NewMemStore(opts), opts)
	_, err := s.Merge()
	require.Error(t, err)
}

func TestMergeSurfacesPolarityConflicts(t *testing.T) {
	opts := term.DefaultOptions()
	store := fact.NewMemStore(opts)
	s := New(store, opts)

	assertFact, err := fact.New(term.NewSymbolId("logic", "holds"), map[string]term.Term{"x": term.NewString("P")}, fact.Assert, nil, nil, opts)
	require.NoError(t, err)
	_, err = store.Assert(assertFact)
	require.NoError(t, err)

	s.Push("child")
	denyFact, err := fact.New(term.NewSymbolId("logic", "holds"), map[string]term.Term{"x": term.NewString("P")}, fact.Deny, []string{"child"}, nil, opts)
	require.NoError(t, err)
	s.PutLocal(denyFact)

	result, err := s.Merge()
	require.NoError(t, err)
	require.NotEmpty(t, result.Conflicts)
}
