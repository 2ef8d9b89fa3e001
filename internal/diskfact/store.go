package diskfact

import (
	"nerdkernel/internal/fact"
	"nerdkernel/internal/term"
)

// Store is the disk-backed fact store variant: every Assert/Deny
// is a write-through to the append-only Log, while reads are served from
// an in-memory fact.MemStore rebuilt from the log at Open time (or kept in
// sync incrementally). This gives it the same Store contract as the
// in-memory reference store while persisting across restarts.
type Store struct {
	log *Log
	mem *fact.MemStore
}

// OpenStore opens the disk log at path, replays it to rebuild the
// in-memory index, and returns a ready Store.
func OpenStore(path string, opts term.Options) (*Store, error) {
	log, err := Open(path)
	if err != nil {
		return nil, err
	}
	mem := fact.NewMemStore(opts)
	live, err := log.Replay()
	if err != nil {
		return nil, err
	}
	for _, f := range live {
		if _, err := mem.Assert(f); err != nil {
			return nil, err
		}
	}
	return &Store{log: log, mem: mem}, nil
}

func (s *Store) Assert(f fact.Instance) ([]fact.Instance, error) {
	conflicts, err := s.mem.Assert(f)
	if err != nil {
		return nil, err
	}
	if err := s.log.AppendFact(f); err != nil {
		return nil, err
	}
	return conflicts, nil
}

func (s *Store) Deny(factID [48]byte, currentScope []string) (bool, error) {
	removed, err := s.mem.Deny(factID, currentScope)
	if err != nil || !removed {
		return removed, err
	}
	if err := s.log.AppendTombstone(factID); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) Get(factID [48]byte) (fact.Instance, bool)        { return s.mem.Get(factID) }
func (s *Store) Query(p fact.Pattern) []fact.Instance             { return s.mem.Query(p) }
func (s *Store) QueryByPredicate(pred term.SymbolId) []fact.Instance {
	return s.mem.QueryByPredicate(pred)
}
func (s *Store) QueryByScope(scopeID []string) []fact.Instance { return s.mem.QueryByScope(scopeID) }
func (s *Store) QueryByTimeRange(start, end int64) []fact.Instance {
	return s.mem.QueryByTimeRange(start, end)
}
func (s *Store) FindConflicting(f fact.Instance) []fact.Instance { return s.mem.FindConflicting(f) }
func (s *Store) Count() int                                      { return s.mem.Count() }
func (s *Store) Clear()                                          { s.mem.Clear() }
func (s *Store) Snapshot() string                                { return s.mem.Snapshot() }
func (s *Store) Restore(id string) error                         { return s.mem.Restore(id) }
func (s *Store) Close() error                                    { return s.log.Close() }

var _ fact.Store = (*Store)(nil)
