package fact

import (
	"fmt"
	"sort"
	"sync"

	"nerdkernel/internal/term"
	"nerdkernel/internal/vmerr"
)

// MemStore is the in-memory reference fact store: a canonical-id set
// alongside the slice of live facts, plus predicate and scope indices for fast lookup.
type MemStore struct {
	mu         sync.RWMutex
	opts       term.Options
	facts      map[[48]byte]Instance
	byPredicate map[string]map[[48]byte]struct{}
	byScope     map[string]map[[48]byte]struct{} // keyed by full scope path joined
	snapshots   map[string]map[[48]byte]Instance
	snapSeq     int
}

// NewMemStore creates an empty in-memory store using opts for argument
// equivalence checks during query matching and conflict detection.
func NewMemStore(opts term.Options) *MemStore {
	return &MemStore{
		opts:        opts,
		facts:       make(map[[48]byte]Instance),
		byPredicate: make(map[string]map[[48]byte]struct{}),
		byScope:     make(map[string]map[[48]byte]struct{}),
		snapshots:   make(map[string]map[[48]byte]Instance),
	}
}

func scopePathKey(scope []string) string {
	key := ""
	for _, s := range scope {
		key += "/" + s
	}
	return key
}

// Assert places the fact and returns any existing facts it conflicts with.
// It never fails for conflicts - they are returned data.
func (s *MemStore) Assert(f Instance) ([]Instance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conflicts := s.findConflictingLocked(f)

	s.facts[f.FactID] = f
	if s.byPredicate[f.Predicate.String()] == nil {
		s.byPredicate[f.Predicate.String()] = make(map[[48]byte]struct{})
	}
	s.byPredicate[f.Predicate.String()][f.FactID] = struct{}{}

	key := scopePathKey(f.ScopeID)
	if s.byScope[key] == nil {
		s.byScope[key] = make(map[[48]byte]struct{})
	}
	s.byScope[key][f.FactID] = struct{}{}

	return conflicts, nil
}

// Deny removes the fact if and only if currentScope contains the fact's
// scope (containment, not mere
// dominance).
func (s *MemStore) Deny(factID [48]byte, currentScope []string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, ok := s.facts[factID]
	if !ok {
		return false, nil
	}
	if !ScopeContains(currentScope, f.ScopeID) {
		return false, nil
	}
	delete(s.facts, factID)
	if set := s.byPredicate[f.Predicate.String()]; set != nil {
		delete(set, factID)
	}
	if set := s.byScope[scopePathKey(f.ScopeID)]; set != nil {
		delete(set, factID)
	}
	return true, nil
}

func (s *MemStore) Get(factID [48]byte) (Instance, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.facts[factID]
	return f, ok
}

func (s *MemStore) Query(p Pattern) []Instance {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Instance
	for _, f := range s.facts {
		if matches(f, p, s.opts) {
			out = append(out, f)
		}
	}
	sortByFactID(out)
	return out
}

func (s *MemStore) QueryByPredicate(pred term.SymbolId) []Instance {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Instance
	for id := range s.byPredicate[pred.String()] {
		out = append(out, s.facts[id])
	}
	sortByFactID(out)
	return out
}

// QueryByScope returns facts whose scope contains, or is contained by,
// the given scopeID - containment in either direction.
func (s *MemStore) QueryByScope(scopeID []string) []Instance {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Instance
	for _, f := range s.facts {
		if scopeOverlaps(f.ScopeID, scopeID) {
			out = append(out, f)
		}
	}
	sortByFactID(out)
	return out
}

// QueryByTimeRange returns facts whose time overlaps the [start, end]
// window.
func (s *MemStore) QueryByTimeRange(start, end int64) []Instance {
	s.mu.RLock()
	defer s.mu.RUnlock()
	window := term.Interval(start, end, term.PrecisionMillisecond)
	var out []Instance
	for _, f := range s.facts {
		if f.Time == nil {
			continue
		}
		if term.Overlaps(*f.Time, window) {
			out = append(out, f)
		}
	}
	sortByFactID(out)
	return out
}

func (s *MemStore) FindConflicting(f Instance) []Instance {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.findConflictingLocked(f)
}

func (s *MemStore) findConflictingLocked(f Instance) []Instance {
	var out []Instance
	candidates := s.byPredicate[f.Predicate.String()]
	for id := range candidates {
		other := s.facts[id]
		if _, ok := Conflicts(f, other, s.opts); ok {
			out = append(out, other)
		}
	}
	sortByFactID(out)
	return out
}

func (s *MemStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.facts)
}

func (s *MemStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.facts = make(map[[48]byte]Instance)
	s.byPredicate = make(map[string]map[[48]byte]struct{})
	s.byScope = make(map[string]map[[48]byte]struct{})
}

// Snapshot returns a stable opaque ID capturing the current logical state.
// Restoring truncates to that state without invalidating outstanding
// factIds that still belong to the snapshot, since facts are immutable and
// content-addressed - restore only changes which ones are live.
func (s *MemStore) Snapshot() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapSeq++
	id := fmt.Sprintf("snap-%d", s.snapSeq)
	copyFacts := make(map[[48]byte]Instance, len(s.facts))
	for k, v := range s.facts {
		copyFacts[k] = v
	}
	s.snapshots[id] = copyFacts
	return id
}

func (s *MemStore) Restore(snapshotID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap, ok := s.snapshots[snapshotID]
	if !ok {
		return vmerr.New(vmerr.CodeStorageError, "unknown snapshot", map[string]any{"snapshotId": snapshotID})
	}
	s.facts = make(map[[48]byte]Instance, len(snap))
	s.byPredicate = make(map[string]map[[48]byte]struct{})
	s.byScope = make(map[string]map[[48]byte]struct{})
	for id, f := range snap {
		s.facts[id] = f
		if s.byPredicate[f.Predicate.String()] == nil {
			s.byPredicate[f.Predicate.String()] = make(map[[48]byte]struct{})
		}
		s.byPredicate[f.Predicate.String()][id] = struct{}{}
		key := scopePathKey(f.ScopeID)
		if s.byScope[key] == nil {
			s.byScope[key] = make(map[[48]byte]struct{})
		}
		s.byScope[key][id] = struct{}{}
	}
	return nil
}

func sortByFactID(facts []Instance) {
	sort.Slice(facts, func(i, j int) bool {
		for k := 0; k < 48; k++ {
			if facts[i].FactID[k] != facts[j].FactID[k] {
				return facts[i].FactID[k] < facts[j].FactID[k]
			}
		}
		return false
	})
}

var _ Store = (*MemStore)(nil)
