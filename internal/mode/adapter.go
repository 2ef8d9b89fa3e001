// Package mode implements the response-mode adapter: it
// takes the executor's (and, when closure ran, the closure engine's)
// claims and conflicts and packages them into the final STRICT /
// CONDITIONAL / INDETERMINATE result object, applying the configured
// confidence-penalty table.
package mode

import (
	"nerdkernel/internal/execlog"
	"nerdkernel/internal/fact"
	"nerdkernel/internal/reason"
)

// Penalties is the confidence-penalty table.
type Penalties struct {
	Direct           float64
	Temporal         float64
	Indirect         float64
	BudgetExhaustion float64
}

// DefaultPenalties returns the reference penalty values.
func DefaultPenalties() Penalties {
	return Penalties{Direct: 0.3, Temporal: 0.2, Indirect: 0.1, BudgetExhaustion: 0.2}
}

func (p Penalties) forType(t fact.ConflictType) float64 {
	switch t {
	case fact.ConflictDirect:
		return p.Direct
	case fact.ConflictTemporal:
		return p.Temporal
	case fact.ConflictIndirect:
		return p.Indirect
	default:
		return 0
	}
}

// Config controls adapter behavior (strict-mode refusal of partial
// results, the penalty table, and the confidence floor).
type Config struct {
	Penalties     Penalties
	MinConfidence float64 // floor before escalating CONDITIONAL to INDETERMINATE; default 0.1
	StrictMode    bool    // when true, any conflict or budget exhaustion refuses a partial result outright
}

// DefaultConfig returns the reference configuration.
func DefaultConfig() Config {
	return Config{Penalties: DefaultPenalties(), MinConfidence: 0.1, StrictMode: false}
}

// Adapt combines an executor result with an optional closure result into
// the final result object. closureResult may be nil when no CLOSURE
// opcode ran.
func Adapt(exec *reason.ExecutionResult, closureResult *reason.ClosureResult, cfg Config) reason.Result {
	conflicts := append([]reason.ConflictReport{}, exec.Conflicts...)
	claims := append([]reason.Claim{}, exec.Claims...)
	traceRefs := append([]execlog.TraceRef{}, exec.TraceRefs...)
	budgetExhausted := exec.Mode == reason.Indeterminate

	if closureResult != nil {
		conflicts = append(conflicts, closureResult.Conflicts...)
		claims = append(claims, closureResult.DerivedClaims...)
		traceRefs = append(traceRefs, closureResult.TraceRefs...)
		budgetExhausted = budgetExhausted || closureResult.BudgetExhausted
	}

	hasIssue := len(conflicts) > 0 || budgetExhausted

	base := reason.Result{
		BudgetUsed:  exec.BudgetUsed,
		Conflicts:   conflicts,
		TraceRefs:   traceRefs,
		ExecutionMs: exec.ExecutionMs,
		Bindings:    exec.Bindings,
	}

	if !hasIssue {
		base.Mode = reason.Strict
		for i := range claims {
			claims[i].Confidence = 1.0
		}
		base.Claims = claims
		return base
	}

	if cfg.StrictMode {
		base.Mode = reason.Indeterminate
		if budgetExhausted {
			base.Assumptions = append(base.Assumptions, budgetAssumption())
		}
		return base
	}

	penalty := 0.0
	for _, c := range conflicts {
		penalty += cfg.Penalties.forType(c.Type)
	}
	if budgetExhausted {
		penalty += cfg.Penalties.BudgetExhaustion
	}
	confidence := 1.0 - penalty
	if confidence < 0 {
		confidence = 0
	}

	if confidence < cfg.MinConfidence {
		base.Mode = reason.Indeterminate
		return base
	}

	base.Mode = reason.Conditional
	for i := range claims {
		claims[i].Confidence = confidence
	}
	base.Claims = claims
	for _, c := range conflicts {
		base.Assumptions = append(base.Assumptions, reason.Assumption{
			Kind:        string(c.Type),
			Description: assumptionDescription(c),
		})
	}
	if budgetExhausted {
		base.Assumptions = append(base.Assumptions, budgetAssumption())
	}
	return base
}

func budgetAssumption() reason.Assumption {
	return reason.Assumption{
		Kind:        "budget_exhaustion",
		Description: "budget was exhausted before every derivation could be explored",
	}
}

func assumptionDescription(c reason.ConflictReport) string {
	switch c.Type {
	case fact.ConflictDirect:
		return "assumes the asserted fact holds despite a directly conflicting denial in the same scope and time"
	case fact.ConflictTemporal:
		return "assumes the asserted fact holds despite a conflicting denial over an overlapping but distinct time"
	case fact.ConflictIndirect:
		return "assumes the asserted fact holds despite a conflicting denial surfaced through a related scope"
	default:
		return "assumes the asserted fact holds despite an unresolved conflict"
	}
}
