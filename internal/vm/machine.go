// Package vm implements the bounded executor: a dispatch loop over a
// compiled Program, resolving arguments against a binding environment,
// charging every instruction against a four-dimensional budget, and
// recording an execution trace as it goes.
package vm

import (
	"time"

	"nerdkernel/internal/bindenv"
	"nerdkernel/internal/budget"
	"nerdkernel/internal/ctxstack"
	"nerdkernel/internal/execlog"
	"nerdkernel/internal/fact"
	"nerdkernel/internal/reason"
	"nerdkernel/internal/schema"
	"nerdkernel/internal/term"
	"nerdkernel/internal/vmerr"
)

// frame is a CALL return address.
type frame struct {
	returnPC int
}

// Machine is one program execution: its own binding environment and
// context stack over a shared fact store, its own budget and trace log.
type Machine struct {
	Program *schema.Program
	Store   fact.Store
	Ctx     *ctxstack.Stack
	Env     *bindenv.Env
	Budget  *budget.Budget
	Log     *execlog.Log
	Opts    term.Options

	labels     map[string]int
	slots      map[string]any
	pc         int
	callStack  []frame
	conflicts  []reason.ConflictReport
	claims     []reason.Claim
	traceRefs  []execlog.TraceRef
	errs       []error
	claimSeq   int
}

// New constructs a Machine ready to run p against store, sharing opts for
// every canonicalization performed along the way. The caller supplies the
// context stack, budget, and log so a CALL into a subroutine or a CLOSURE
// opcode can share them with nested evaluation.
func New(p *schema.Program, store fact.Store, ctx *ctxstack.Stack, env *bindenv.Env, b *budget.Budget, log *execlog.Log, opts term.Options) *Machine {
	return &Machine{
		Program: p,
		Store:   store,
		Ctx:     ctx,
		Env:     env,
		Budget:  b,
		Log:     log,
		Opts:    opts,
		labels:  p.LabelIndex(),
		slots:   map[string]any{},
	}
}

// control signals how the dispatch loop should advance the program
// counter after a handler returns.
type control int

const (
	ctrlNext control = iota
	ctrlJumped
	ctrlReturned
)

// Run executes the program to completion (falling off the end, or a
// RETURN at call-stack depth zero), returning a reason.ExecutionResult.
// It never panics: every opcode handler reports vmerr-taxonomy errors,
// which are recorded into the result's Errors and - for budget
// exhaustion specifically - downgrade the result's Mode to
// INDETERMINATE rather than aborting execution outright, since a
// partial claim set is still useful.
func (m *Machine) Run() (*reason.ExecutionResult, error) {
	start := time.Now()
	startID := m.Log.LastID()

	if err := schema.Validate(m.Program); err != nil {
		return nil, err
	}

	budgetExhausted := false
	for m.pc < len(m.Program.Instructions) {
		instr := m.Program.Instructions[m.pc]
		ctrl, err := m.dispatch(instr)
		if err != nil {
			m.Log.Record(execlog.EntryError, map[string]any{"pc": m.pc, "op": string(instr.Op), "error": err.Error()})
			m.errs = append(m.errs, err)
			if isBudgetError(err) {
				budgetExhausted = true
				break
			}
			// Non-budget errors still halt the instruction stream - there
			// is no recovery opcode in the instruction set - but the
			// claims and conflicts accumulated so far are preserved.
			break
		}
		switch ctrl {
		case ctrlJumped:
			// pc already set by the handler.
		case ctrlReturned:
			if len(m.callStack) == 0 {
				goto done
			}
		default:
			m.pc++
		}
	}
done:

	mode := reason.Strict
	if budgetExhausted {
		mode = reason.Indeterminate
	} else if len(m.conflicts) > 0 {
		mode = reason.Conditional
	}

	endID := m.Log.LastID()
	ref := m.Log.CreateTraceRef(startID, endID)
	m.traceRefs = append(m.traceRefs, ref)

	return &reason.ExecutionResult{
		Mode:      mode,
		Claims:    m.claims,
		Conflicts: m.conflicts,
		TraceRefs: m.traceRefs,
		BudgetUsed: reason.BudgetUsage{
			UsedDepth:    m.Budget.Snapshot().UsedDepth,
			UsedSteps:    m.Budget.Snapshot().UsedSteps,
			UsedBranches: m.Budget.Snapshot().UsedBranches,
			ElapsedMs:    m.Budget.Snapshot().ElapsedMs,
		},
		ExecutionMs: time.Since(start).Milliseconds(),
		Bindings:    m.Env.Snapshot(),
		Errors:      m.errs,
	}, nil
}

func isBudgetError(err error) bool {
	e, ok := err.(*vmerr.Error)
	if !ok {
		return false
	}
	switch e.Code {
	case vmerr.CodeDepthLimitExceeded, vmerr.CodeStepLimitExceeded, vmerr.CodeBranchLimitExceeded, vmerr.CodeTimeLimitExceeded:
		return true
	}
	return false
}

// recordClaim appends a claim built from a fact, giving it a stable,
// monotonically increasing claim ID local to this machine.
func (m *Machine) recordClaim(content any, confidence float64, supporting ...[48]byte) {
	m.claimSeq++
	m.claims = append(m.claims, reason.Claim{
		ClaimID:         seqID("claim", m.claimSeq),
		Content:         content,
		Confidence:      confidence,
		SupportingFacts: supporting,
	})
}

// recordConflict appends a ConflictReport for a newly detected conflict
// between two facts, giving it a sequence-local id.
func (m *Machine) recordConflict(ct fact.ConflictType, a, b fact.Instance, scope []string) {
	m.conflicts = append(m.conflicts, reason.ConflictReport{
		ConflictID: seqID("conflict", len(m.conflicts)+1),
		Type:       ct,
		Facts:      []fact.Instance{a, b},
		ScopeID:    scope,
	})
}

// seqID renders a small sequence counter as a stable id, base-36, so ids
// stay short and deterministic across a replayed run.
func seqID(prefix string, seq int) string {
	const alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
	if seq == 0 {
		return prefix + "-0"
	}
	n := seq
	buf := make([]byte, 0, 8)
	for n > 0 {
		buf = append(buf, alphabet[n%len(alphabet)])
		n /= len(alphabet)
	}
	for i, j := 0, len(buf)-1; i < j; i, j = i+1, j-1 {
		buf[i], buf[j] = buf[j], buf[i]
	}
	return prefix + "-" + string(buf)
}
