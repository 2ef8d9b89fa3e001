package diskfact

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"nerdkernel/internal/fact"
	"nerdkernel/internal/term"
)

func mkFact(t *testing.T, opts term.Options, name string, scope []string) fact.Instance {
	t.Helper()
	tr := term.Instant(1000, term.PrecisionSecond)
	f, err := fact.New(term.NewSymbolId("ns", "p"), map[string]term.Term{
		"name": term.NewString(name),
		"n":    term.NewInteger(7),
	}, fact.Assert, scope, &tr, opts)
	require.NoError(t, err)
	return f
}

func TestAssertPersistsAndSurvivesReopen(t *testing.T) {
	opts := term.DefaultOptions()
	path := filepath.Join(t.TempDir(), "facts.log")

	s, err := OpenStore(path, opts)
	require.NoError(t, err)
	f := mkFact(t, opts, "Alice", []string{"root"})
	_, err = s.Assert(f)
	require.NoError(t, err)
	require.Equal(t, 1, s.Count())
	require.NoError(t, s.Close())

	reopened, err := OpenStore(path, opts)
	require.NoError(t, err)
	defer reopened.Close()
	require.Equal(t, 1, reopened.Count())
	got, ok := reopened.Get(f.FactID)
	require.True(t, ok)
	require.Equal(t, f.Predicate, got.Predicate)
	require.Equal(t, f.ScopeID, got.ScopeID)
	require.Equal(t, term.NewString("alice"), got.Arguments["name"])
	require.Equal(t, term.NewInteger(7), got.Arguments["n"])
	require.NotNil(t, got.Time)
}

func TestDenyWritesTombstoneAndRemovesOnReplay(t *testing.T) {
	opts := term.DefaultOptions()
	path := filepath.Join(t.TempDir(), "facts.log")

	s, err := OpenStore(path, opts)
	require.NoError(t, err)
	f := mkFact(t, opts, "Bob", []string{"root"})
	_, err = s.Assert(f)
	require.NoError(t, err)

	removed, err := s.Deny(f.FactID, []string{"root"})
	require.NoError(t, err)
	require.True(t, removed)
	require.Equal(t, 0, s.Count())
	require.NoError(t, s.Close())

	reopened, err := OpenStore(path, opts)
	require.NoError(t, err)
	defer reopened.Close()
	require.Equal(t, 0, reopened.Count(), "tombstone must remove the fact on replay, last-write-wins")
}

func TestDenyRequiresScopeContainment(t *testing.T) {
	opts := term.DefaultOptions()
	path := filepath.Join(t.TempDir(), "facts.log")
	s, err := OpenStore(path, opts)
	require.NoError(t, err)
	defer s.Close()

	f := mkFact(t, opts, "Carl", []string{"root", "child"})
	_, err = s.Assert(f)
	require.NoError(t, err)

	removed, err := s.Deny(f.FactID, []string{"unrelated"})
	require.NoError(t, err)
	require.False(t, removed)
	require.Equal(t, 1, s.Count())
}

func TestLastWriteWinsAcrossMultipleAppends(t *testing.T) {
	opts := term.DefaultOptions()
	path := filepath.Join(t.TempDir(), "facts.log")
	s, err := OpenStore(path, opts)
	require.NoError(t, err)

	f := mkFact(t, opts, "Dana", []string{"root"})
	_, err = s.Assert(f)
	require.NoError(t, err)
	_, err = s.Assert(f) // re-assert the same content-addressed fact
	require.NoError(t, err)
	require.NoError(t, s.Close())

	reopened, err := OpenStore(path, opts)
	require.NoError(t, err)
	defer reopened.Close()
	require.Equal(t, 1, reopened.Count())
}
