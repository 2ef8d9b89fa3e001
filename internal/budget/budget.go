// Package budget implements the four-dimensional resource ceiling:
// depth, steps, branches, and wall-clock time,
// enforced at every instruction, with sub-budget derivation for branches.
// The enforcement idiom is ceiling + counter + typed violation error.
package budget

import (
	"sync"
	"time"

	"nerdkernel/internal/vmerr"
)

// Limits is the four-dimensional ceiling.
type Limits struct {
	MaxDepth    int
	MaxSteps    int
	MaxBranches int
	MaxTimeMs   int64
}

// DefaultLimits holds conservative defaults sized to
// reasoning-program workloads.
func DefaultLimits() Limits {
	return Limits{
		MaxDepth:    64,
		MaxSteps:    100000,
		MaxBranches: 10000,
		MaxTimeMs:   30000,
	}
}

// opCost is the fixed, documented per-opcode base cost - implementations
// must match these reference weights for audit replay to stay meaningful.
var opCost = map[string]int{
	"MAKE_TERM":      1,
	"CANONICALIZE":   1,
	"BIND_SLOTS":     1,
	"ASSERT":         2,
	"DENY":           2,
	"QUERY":          1, // plus result count, added by caller
	"MATCH":          2,
	"APPLY_RULE":     3,
	"CLOSURE":        5,
	"BRANCH":         1,
	"JUMP":           1,
	"CALL":           2,
	"RETURN":         1,
	"PUSH_CONTEXT":   1,
	"POP_CONTEXT":    1,
	"MERGE_CONTEXT":  3,
	"ISOLATE_CONTEXT": 1,
	"COUNT":          1,
	"FILTER":         1,
	"MAP":            1,
	"REDUCE":         1,
}

// BaseCost returns the fixed reference weight for an opcode, 1 if unknown.
func BaseCost(opcode string) int {
	if c, ok := opCost[opcode]; ok {
		return c
	}
	return 1
}

// Budget tracks consumption against Limits. Zero value is not usable;
// construct with New.
type Budget struct {
	mu        sync.Mutex
	limits    Limits
	usedSteps int
	usedBranches int
	depthStack []int // one entry per pushDepth level; values unused, length is the depth
	start     time.Time
	elapsed   time.Duration
	nowFn     func() time.Time
}

// New creates a Budget against the given Limits. nowFn is injectable for
// deterministic-replay mode, where elapsed time must read as zero; pass
// nil to use time.Now.
func New(limits Limits, nowFn func() time.Time) *Budget {
	if nowFn == nil {
		nowFn = time.Now
	}
	return &Budget{limits: limits, nowFn: nowFn, start: nowFn()}
}

// ConsumeSteps adds opcode's base cost plus caller-supplied extra (e.g.
// per-match cost for QUERY), updates elapsed time, and raises
// StepLimitExceeded/TimeLimitExceeded if either ceiling is now exceeded.
func (b *Budget) ConsumeSteps(opcode string, extra int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.consumeLocked(BaseCost(opcode) + extra)
}

// ConsumeExtraSteps adds a caller-computed variable cost on its own, for
// handlers whose base cost was already charged at dispatch (QUERY's
// per-result step). Charging through ConsumeSteps there would count the
// base weight twice.
func (b *Budget) ConsumeExtraSteps(extra int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.consumeLocked(extra)
}

func (b *Budget) consumeLocked(cost int) error {
	b.usedSteps += cost
	b.elapsed = b.nowFn().Sub(b.start)

	if b.limits.MaxSteps > 0 && b.usedSteps > b.limits.MaxSteps {
		return vmerr.New(vmerr.CodeStepLimitExceeded, "step limit exceeded", map[string]any{"used": b.usedSteps, "max": b.limits.MaxSteps})
	}
	if b.limits.MaxTimeMs > 0 && b.elapsed.Milliseconds() > b.limits.MaxTimeMs {
		return vmerr.New(vmerr.CodeTimeLimitExceeded, "time limit exceeded", map[string]any{"elapsedMs": b.elapsed.Milliseconds(), "max": b.limits.MaxTimeMs})
	}
	return nil
}

// PushDepth increments the call/recursion depth stack, raising
// DepthLimitExceeded if the new depth exceeds MaxDepth.
func (b *Budget) PushDepth() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.limits.MaxDepth > 0 && len(b.depthStack)+1 > b.limits.MaxDepth {
		return vmerr.New(vmerr.CodeDepthLimitExceeded, "depth limit exceeded", map[string]any{"depth": len(b.depthStack) + 1, "max": b.limits.MaxDepth})
	}
	b.depthStack = append(b.depthStack, 0)
	return nil
}

// PopDepth decrements the depth stack. It is a no-op below depth zero.
func (b *Budget) PopDepth() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.depthStack) > 0 {
		b.depthStack = b.depthStack[:len(b.depthStack)-1]
	}
}

// ConsumeBranch increments the branch counter, raising
// BranchLimitExceeded if it now exceeds MaxBranches.
func (b *Budget) ConsumeBranch() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.usedBranches++
	if b.limits.MaxBranches > 0 && b.usedBranches > b.limits.MaxBranches {
		return vmerr.New(vmerr.CodeBranchLimitExceeded, "branch limit exceeded", map[string]any{"used": b.usedBranches, "max": b.limits.MaxBranches})
	}
	return nil
}

// CreateSubBudget derives a child Budget with remaining x fraction caps in
// each dimension, used when a branch spawns an isolated sub-evaluation.
func (b *Budget) CreateSubBudget(fraction float64) *Budget {
	b.mu.Lock()
	defer b.mu.Unlock()
	scale := func(remaining int) int {
		return int(float64(remaining) * fraction)
	}
	remSteps := b.limits.MaxSteps - b.usedSteps
	remBranches := b.limits.MaxBranches - b.usedBranches
	remTime := b.limits.MaxTimeMs - b.elapsed.Milliseconds()
	sub := Limits{
		MaxDepth:    b.limits.MaxDepth,
		MaxSteps:    scale(remSteps),
		MaxBranches: scale(remBranches),
		MaxTimeMs:   int64(float64(remTime) * fraction),
	}
	return New(sub, b.nowFn)
}

// Usage is a point-in-time snapshot of consumption, surfaced in results.
type Usage struct {
	UsedDepth    int
	UsedSteps    int
	UsedBranches int
	ElapsedMs    int64
	Limits       Limits
}

// Snapshot returns the current Usage.
func (b *Budget) Snapshot() Usage {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Usage{
		UsedDepth:    len(b.depthStack),
		UsedSteps:    b.usedSteps,
		UsedBranches: b.usedBranches,
		ElapsedMs:    b.elapsed.Milliseconds(),
		Limits:       b.limits,
	}
}

// Exhausted reports whether any dimension has reached its ceiling.
func (b *Budget) Exhausted() bool {
	u := b.Snapshot()
	if u.Limits.MaxSteps > 0 && u.UsedSteps >= u.Limits.MaxSteps {
		return true
	}
	if u.Limits.MaxBranches > 0 && u.UsedBranches >= u.Limits.MaxBranches {
		return true
	}
	if u.Limits.MaxTimeMs > 0 && u.ElapsedMs >= u.Limits.MaxTimeMs {
		return true
	}
	if u.Limits.MaxDepth > 0 && u.UsedDepth >= u.Limits.MaxDepth {
		return true
	}
	return false
}
