// Package reason holds the result-shape types shared by the executor,
// closure engine, and mode adapter, kept in their own package so those
// three don't need to import one another just to share a struct
// definition.
package reason

import (
	"nerdkernel/internal/execlog"
	"nerdkernel/internal/fact"
)

// Mode is the final classification of a result (GLOSSARY: Mode).
type Mode string

const (
	Strict        Mode = "STRICT"
	Conditional   Mode = "CONDITIONAL"
	Indeterminate Mode = "INDETERMINATE"
)

// Claim is a result item: content, confidence, supporting facts, and an
// optional derivation trace reference.
type Claim struct {
	ClaimID          string
	Content          any
	Confidence       float64
	SupportingFacts  [][48]byte
	DerivationTrace  *execlog.TraceRef
}

// ConflictReport describes one detected conflict for inclusion in a
// result object.
type ConflictReport struct {
	ConflictID string
	Type       fact.ConflictType
	Facts      []fact.Instance
	ScopeID    []string
	Resolution string
}

// Assumption is an explicit conditional premise attached to a conditional
// result - one per conflict, plus a budget-exhaustion assumption
// when applicable.
type Assumption struct {
	Kind        string // conflict type, or "budget_exhaustion"
	Description string
}

// BudgetUsage mirrors budget.Usage without importing the budget package,
// to keep this a leaf package.
type BudgetUsage struct {
	UsedDepth    int
	UsedSteps    int
	UsedBranches int
	ElapsedMs    int64
}

// ExecutionResult is what the executor (internal/vm) produces at the end
// of a program run, before the mode adapter combines it with the closure
// engine's output.
type ExecutionResult struct {
	Mode        Mode
	Claims      []Claim
	Conflicts   []ConflictReport
	TraceRefs   []execlog.TraceRef
	BudgetUsed  BudgetUsage
	ExecutionMs int64
	Bindings    map[string]any
	Errors      []error
}

// ClosureResult is what the forward-chaining engine (internal/closure)
// produces.
type ClosureResult struct {
	DerivedClaims    []Claim
	DerivedFacts     []fact.Instance
	Conflicts        []ConflictReport
	TraceRefs        []execlog.TraceRef
	BudgetExhausted  bool
}

// Result is the final object returned to callers.
type Result struct {
	Mode        Mode
	BudgetUsed  BudgetUsage
	Claims      []Claim
	Assumptions []Assumption
	Conflicts   []ConflictReport
	TraceRefs   []execlog.TraceRef
	ExecutionMs int64
	Bindings    map[string]any
}
