// Package ctxstack implements the nested reasoning context stack:
// inheritance, isolation, and merge over a fact store.
package ctxstack

import (
	"fmt"

	"nerdkernel/internal/fact"
	"nerdkernel/internal/term"
	"nerdkernel/internal/vmerr"
)

// Context is one reasoning view. ParentIndex is a weak, non-owning
// back-pointer into the Stack's slice - an index, not an owning
// reference, since a child never outlives its parent; -1 marks the root.
type Context struct {
	ID          string
	ScopeID     []string
	ParentIndex int
	Local       map[[48]byte]fact.Instance
	Denied      map[[48]byte]struct{}
	Isolated    bool
}

// Stack is a non-empty stack of Contexts with a root at index 0.
type Stack struct {
	contexts []Context
	store    fact.Store
	opts     term.Options
	seq      int
}

// New creates a Stack with a root context rooted at the given backing
// store, using opts for canonical-term comparisons during merge.
func New(store fact.Store, opts term.Options) *Stack {
	return &Stack{
		contexts: []Context{{ID: "root", ScopeID: nil, ParentIndex: -1, Local: map[[48]byte]fact.Instance{}, Denied: map[[48]byte]struct{}{}}},
		store:    store,
		opts:     opts,
	}
}

func (s *Stack) nextID() string {
	s.seq++
	return fmt.Sprintf("ctx-%d", s.seq)
}

// TopIndex returns the index of the innermost (current) context.
func (s *Stack) TopIndex() int { return len(s.contexts) - 1 }

// Top returns the innermost context.
func (s *Stack) Top() Context { return s.contexts[s.TopIndex()] }

func (s *Stack) push(segment string, isolated bool) int {
	parent := s.Top()
	scope := parent.ScopeID
	if segment != "" {
		scope = append(append([]string(nil), parent.ScopeID...), segment)
	}
	child := Context{
		ID:          s.nextID(),
		ScopeID:     scope,
		ParentIndex: s.TopIndex(),
		Local:       map[[48]byte]fact.Instance{},
		Denied:      map[[48]byte]struct{}{},
		Isolated:    isolated,
	}
	s.contexts = append(s.contexts, child)
	return s.TopIndex()
}

// Push creates a non-isolated child: it inherits the parent's scope path
// (with segment appended, if non-empty) and fact visibility.
func (s *Stack) Push(segment string) int { return s.push(segment, false) }

// PushIsolated creates a child that does not see parent facts at all.
func (s *Stack) PushIsolated(segment string) int { return s.push(segment, true) }

// Pop discards the innermost context without merging. The root context
// cannot be popped.
func (s *Stack) Pop() error {
	if len(s.contexts) <= 1 {
		return vmerr.New(vmerr.CodeInvalidInstruction, "cannot pop root context", nil)
	}
	s.contexts = s.contexts[:len(s.contexts)-1]
	return nil
}

// MergeResult reports the outcome of promoting a child's local facts into
// its parent.
type MergeResult struct {
	MergedCount int
	Conflicts   []fact.ConflictType
}

// Merge promotes the innermost context's local facts into its parent
// (asserting them into the backing store under the parent's scope
// lineage) and propagates its denials, then pops it. Any polarity
// conflicts surfaced by the store are returned for the caller to resolve.
func (s *Stack) Merge() (MergeResult, error) {
	if len(s.contexts) <= 1 {
		return MergeResult{}, vmerr.New(vmerr.CodeInvalidInstruction, "cannot merge root context", nil)
	}
	child := s.Top()
	parentIdx := child.ParentIndex
	parent := s.contexts[parentIdx]

	var result MergeResult
	for id, f := range child.Local {
		conflicts, err := s.store.Assert(f)
		if err != nil {
			return result, err
		}
		for _, c := range conflicts {
			if ct, ok := fact.Conflicts(f, c, s.opts); ok {
				result.Conflicts = append(result.Conflicts, ct)
			}
		}
		parent.Local[id] = f
		result.MergedCount++
	}
	for id := range child.Denied {
		if _, err := s.store.Deny(id, parent.ScopeID); err != nil {
			return result, err
		}
		parent.Denied[id] = struct{}{}
	}
	s.contexts[parentIdx] = parent
	s.contexts = s.contexts[:len(s.contexts)-1]
	return result, nil
}

// GetFact implements the fact visibility rule: null if denied locally; the
// local fact if present; else the parent's view (recursing through
// non-isolated ancestors). Isolated contexts see only their own local set.
func (s *Stack) GetFact(id [48]byte) (fact.Instance, bool) {
	return s.getFactAt(s.TopIndex(), id)
}

func (s *Stack) getFactAt(idx int, id [48]byte) (fact.Instance, bool) {
	ctx := s.contexts[idx]
	if _, denied := ctx.Denied[id]; denied {
		return fact.Instance{}, false
	}
	if f, ok := ctx.Local[id]; ok {
		return f, true
	}
	if ctx.Isolated || ctx.ParentIndex < 0 {
		if ctx.ParentIndex < 0 {
			if f, ok := s.store.Get(id); ok {
				return f, true
			}
		}
		return fact.Instance{}, false
	}
	return s.getFactAt(ctx.ParentIndex, id)
}

// PutLocal adds a fact to the innermost context's local set (used by the
// ASSERT handler).
func (s *Stack) PutLocal(f fact.Instance) {
	s.contexts[s.TopIndex()].Local[f.FactID] = f
}

// DenyLocal marks a fact denied in the innermost context.
func (s *Stack) DenyLocal(id [48]byte) {
	s.contexts[s.TopIndex()].Denied[id] = struct{}{}
	delete(s.contexts[s.TopIndex()].Local, id)
}

// Depth returns the number of contexts on the stack.
func (s *Stack) Depth() int { return len(s.contexts) }
