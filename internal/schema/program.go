// Package schema defines the Program IR: the exchange format for compiled
// programs, plus structural validators.
package schema

// Opcode enumerates the instruction set.
type Opcode string

const (
	// Term opcodes
	OpMakeTerm    Opcode = "MAKE_TERM"
	OpCanonicalize Opcode = "CANONICALIZE"
	OpBindSlots   Opcode = "BIND_SLOTS"

	// Fact opcodes
	OpAssert Opcode = "ASSERT"
	OpDeny   Opcode = "DENY"
	OpQuery  Opcode = "QUERY"

	// Logic opcodes
	OpMatch     Opcode = "MATCH"
	OpApplyRule Opcode = "APPLY_RULE"
	OpClosure   Opcode = "CLOSURE"

	// Control opcodes
	OpBranch Opcode = "BRANCH"
	OpJump   Opcode = "JUMP"
	OpCall   Opcode = "CALL"
	OpReturn Opcode = "RETURN"

	// Context opcodes
	OpPushContext    Opcode = "PUSH_CONTEXT"
	OpPopContext     Opcode = "POP_CONTEXT"
	OpMergeContext   Opcode = "MERGE_CONTEXT"
	OpIsolateContext Opcode = "ISOLATE_CONTEXT"

	// Reducer opcodes
	OpCount  Opcode = "COUNT"
	OpFilter Opcode = "FILTER"
	OpMap    Opcode = "MAP"
	OpReduce Opcode = "REDUCE"
)

var validOpcodes = map[Opcode]bool{
	OpMakeTerm: true, OpCanonicalize: true, OpBindSlots: true,
	OpAssert: true, OpDeny: true, OpQuery: true,
	OpMatch: true, OpApplyRule: true, OpClosure: true,
	OpBranch: true, OpJump: true, OpCall: true, OpReturn: true,
	OpPushContext: true, OpPopContext: true, OpMergeContext: true, OpIsolateContext: true,
	OpCount: true, OpFilter: true, OpMap: true, OpReduce: true,
}

// ArgKind tags how an Arg should be resolved at dispatch time.
type ArgKind string

const (
	ArgLiteral ArgKind = "literal"
	ArgBinding ArgKind = "binding"
	ArgSlot    ArgKind = "slot"
	ArgLabel   ArgKind = "label"
	// ArgExpr is the small BRANCH comparison language: `<expr> op
	// <expr>` for op in {==, !=, <, <=, >, >=}, or `!<cond>` (unary, Left
	// only). Operands are themselves Args, so a binding ref with a dotted
	// property path (".length" or a struct field) can appear on either
	// side.
	ArgExpr ArgKind = "expr"
)

// Arg is one resolvable instruction argument. Binding and slot names may
// carry a dotted path (e.g. "items.length" or "person.name") for property
// access; the base name
// is resolved first and remaining segments walk into it.
type Arg struct {
	Kind    ArgKind `yaml:"kind" json:"kind"`
	Literal any     `yaml:"literal,omitempty" json:"literal,omitempty"`
	Name    string  `yaml:"name,omitempty" json:"name,omitempty"` // binding/slot/label name, dotted path allowed
	Op      string  `yaml:"op,omitempty" json:"op,omitempty"`     // ArgExpr only: ==, !=, <, <=, >, >=, !
	Left    *Arg    `yaml:"left,omitempty" json:"left,omitempty"`
	Right   *Arg    `yaml:"right,omitempty" json:"right,omitempty"` // unused for unary "!"
}

// Instruction is (opcode, args, optional output-binding, optional label).
type Instruction struct {
	Op     Opcode         `yaml:"op" json:"op"`
	Args   map[string]Arg `yaml:"args" json:"args"`
	Out    string         `yaml:"out,omitempty" json:"out,omitempty"`
	Label  string         `yaml:"label,omitempty" json:"label,omitempty"`
}

// Metadata carries program-level exchange-format fields.
type Metadata struct {
	SourceSchemaID  string `yaml:"sourceSchemaId,omitempty" json:"sourceSchemaId,omitempty"`
	CompiledAt      string `yaml:"compiledAt,omitempty" json:"compiledAt,omitempty"`
	EstimatedSteps  int    `yaml:"estimatedSteps,omitempty" json:"estimatedSteps,omitempty"`
	EstimatedBranches int  `yaml:"estimatedBranches,omitempty" json:"estimatedBranches,omitempty"`
	TracePolicy     string `yaml:"tracePolicy,omitempty" json:"tracePolicy,omitempty"`
}

// Program is the compiled unit the executor runs.
type Program struct {
	ProgramID    string        `yaml:"programId" json:"programId"`
	Instructions []Instruction `yaml:"instructions" json:"instructions"`
	Metadata     Metadata      `yaml:"metadata" json:"metadata"`
}

// LabelIndex returns a label -> instruction-index map for jump resolution.
func (p *Program) LabelIndex() map[string]int {
	idx := make(map[string]int)
	for i, instr := range p.Instructions {
		if instr.Label != "" {
			idx[instr.Label] = i
		}
	}
	return idx
}
