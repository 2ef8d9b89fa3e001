package schema

import "nerdkernel/internal/vmerr"

// Validate checks structural well-formedness of a Program: every
// instruction has a recognized opcode, every label-ref arg and every
// instruction's own Label resolve, and every jump target exists. It does
// not resolve bindings (that is a runtime concern - see vm.ResolveArgs).
func Validate(p *Program) error {
	if p == nil {
		return vmerr.New(vmerr.CodeInvalidProgram, "nil program", nil)
	}
	if len(p.Instructions) == 0 {
		return vmerr.New(vmerr.CodeInvalidProgram, "program has no instructions", nil)
	}
	labels := p.LabelIndex()

	for i, instr := range p.Instructions {
		if !validOpcodes[instr.Op] {
			return vmerr.New(vmerr.CodeInvalidInstruction, "unknown opcode", map[string]any{"index": i, "op": string(instr.Op)})
		}
		for name, arg := range instr.Args {
			if err := validateArg(arg, labels, i, name); err != nil {
				return err
			}
		}
	}
	return nil
}

// validateArg checks a single arg, recursing into ArgExpr's Left/Right
// operands so a label reference nested inside a comparison expression is
// still checked.
func validateArg(arg Arg, labels map[string]int, instrIdx int, argName string) error {
	if arg.Kind == ArgLabel {
		if _, ok := labels[arg.Name]; !ok {
			return vmerr.New(vmerr.CodeInvalidProgram, "unresolved label reference", map[string]any{"index": instrIdx, "arg": argName, "label": arg.Name})
		}
	}
	if arg.Kind == ArgExpr {
		if arg.Left != nil {
			if err := validateArg(*arg.Left, labels, instrIdx, argName+".left"); err != nil {
				return err
			}
		}
		if arg.Right != nil {
			if err := validateArg(*arg.Right, labels, instrIdx, argName+".right"); err != nil {
				return err
			}
		}
	}
	return nil
}
