package vm

import (
	"sort"
	"strings"

	"nerdkernel/internal/fact"
	"nerdkernel/internal/schema"
	"nerdkernel/internal/vmerr"
)

func (m *Machine) handleReduceOp(instr schema.Instruction) error {
	switch instr.Op {
	case schema.OpCount:
		return m.opCount(instr)
	case schema.OpFilter:
		return m.opFilter(instr)
	case schema.OpMap:
		return m.opMap(instr)
	case schema.OpReduce:
		return m.opReduce(instr)
	default:
		return vmerr.New(vmerr.CodeUnknownOpcode, "not a reducer opcode", map[string]any{"op": string(instr.Op)})
	}
}

// resolveItems resolves just the "items" arg of a reducer instruction,
// the one argument every reducer shares, without forcing resolution of
// any per-item expression arg that must instead be evaluated inside the
// pushed item/index scope ("FILTER and MAP expose item and index
// bindings inside a pushed scope during evaluation").
func (m *Machine) resolveItems(instr schema.Instruction) ([]any, error) {
	itemsArgSpec, ok := instr.Args["items"]
	if !ok {
		return nil, vmerr.New(vmerr.CodeInvalidInstruction, "reducer missing items argument", nil)
	}
	v, err := m.resolveArg(itemsArgSpec)
	if err != nil {
		return nil, err
	}
	items, _ := v.([]any)
	return items, nil
}

// argumentTerm reads a named argument slot off a fact.Instance, returning
// nil if the fact isn't a slot-bearing instance or the slot is absent.
func argumentTerm(item any, field string) any {
	f, ok := item.(fact.Instance)
	if !ok {
		return nil
	}
	t, ok := f.Arguments[field]
	if !ok {
		return nil
	}
	return termToLiteral(t)
}

func (m *Machine) opCount(instr schema.Instruction) error {
	items, err := m.resolveItems(instr)
	if err != nil {
		return err
	}
	m.bindOut(instr, int64(len(items)))
	return nil
}

// withItemScope pushes a fresh binding scope with `item`/`index` bound,
// runs fn, and pops the scope unconditionally - the per-iteration scope
// FILTER and MAP expose during evaluation.
func (m *Machine) withItemScope(item any, index int, fn func() error) error {
	m.Env.Push()
	m.Env.Bind("item", item)
	m.Env.Bind("index", int64(index))
	err := fn()
	_ = m.Env.Pop()
	return err
}

// opFilter keeps items for which `where` (an ArgExpr/binding evaluated
// with `item`/`index` bound) is true. When no `where` arg is given, it
// falls back to the narrower `field`/`equals` shorthand for a plain
// slot-equality filter.
func (m *Machine) opFilter(instr schema.Instruction) error {
	items, err := m.resolveItems(instr)
	if err != nil {
		return err
	}
	whereSpec, hasWhere := instr.Args["where"]

	var field string
	var want any
	if !hasWhere {
		if fieldSpec, ok := instr.Args["field"]; ok {
			v, err := m.resolveArg(fieldSpec)
			if err != nil {
				return err
			}
			field, _ = v.(string)
		}
		if equalsSpec, ok := instr.Args["equals"]; ok {
			v, err := m.resolveArg(equalsSpec)
			if err != nil {
				return err
			}
			want = v
		}
	}

	out := make([]any, 0, len(items))
	for i, item := range items {
		keep := false
		err := m.withItemScope(item, i, func() error {
			if hasWhere {
				v, err := m.resolveArg(whereSpec)
				if err != nil {
					return err
				}
				keep, _ = v.(bool)
				return nil
			}
			keep = field == "" || argumentTerm(item, field) == want
			return nil
		})
		if err != nil {
			return err
		}
		if keep {
			out = append(out, item)
		}
	}
	m.bindOut(instr, out)
	return nil
}

// opMap projects each item through `expr` (evaluated with `item`/`index`
// bound) into the output list. When no `expr` arg is given, it falls
// back to the narrower `field` shorthand that projects one slot.
func (m *Machine) opMap(instr schema.Instruction) error {
	items, err := m.resolveItems(instr)
	if err != nil {
		return err
	}
	exprSpec, hasExpr := instr.Args["expr"]

	var field string
	if !hasExpr {
		if fieldSpec, ok := instr.Args["field"]; ok {
			v, err := m.resolveArg(fieldSpec)
			if err != nil {
				return err
			}
			field, _ = v.(string)
		}
	}

	out := make([]any, len(items))
	for i, item := range items {
		err := m.withItemScope(item, i, func() error {
			if hasExpr {
				v, err := m.resolveArg(exprSpec)
				if err != nil {
					return err
				}
				out[i] = v
				return nil
			}
			out[i] = argumentTerm(item, field)
			return nil
		})
		if err != nil {
			return err
		}
	}
	m.bindOut(instr, out)
	return nil
}

// opReduce folds `items` (optionally projected through a `field` slot
// read, the same way MAP's shorthand does) using one of the reducers:
// sum, concat, join (with a `separator` arg), and, or, min, max. An optional `initial` arg seeds the accumulator; without one,
// the reducer's identity element is used (0 for sum, "" for concat/join,
// true for and, false for or, and the first element for min/max).
func (m *Machine) opReduce(instr schema.Instruction) error {
	items, err := m.resolveItems(instr)
	if err != nil {
		return err
	}
	var field string
	if fieldSpec, ok := instr.Args["field"]; ok {
		v, err := m.resolveArg(fieldSpec)
		if err != nil {
			return err
		}
		field, _ = v.(string)
	}
	op, err := m.resolveStringArg(instr, "op")
	if err != nil {
		return err
	}
	separator, err := m.resolveStringArg(instr, "separator")
	if err != nil {
		return err
	}
	initialSpec, hasInitial := instr.Args["initial"]
	var initial any
	if hasInitial {
		initial, err = m.resolveArg(initialSpec)
		if err != nil {
			return err
		}
	}

	values := make([]any, len(items))
	for i, item := range items {
		if field != "" {
			values[i] = argumentTerm(item, field)
		} else {
			values[i] = item
		}
	}

	switch op {
	case "sum":
		m.bindOut(instr, reduceSum(values, initial))
	case "concat":
		m.bindOut(instr, reduceJoin(values, "", initial))
	case "join":
		m.bindOut(instr, reduceJoin(values, separator, initial))
	case "and":
		m.bindOut(instr, reduceAnd(values, initial))
	case "or":
		m.bindOut(instr, reduceOr(values, initial))
	case "min":
		v, ok := reduceMinMax(values, initial, false)
		if !ok {
			return vmerr.New(vmerr.CodeInvalidInstruction, "REDUCE min over empty items with no initial value", nil)
		}
		m.bindOut(instr, v)
	case "max":
		v, ok := reduceMinMax(values, initial, true)
		if !ok {
			return vmerr.New(vmerr.CodeInvalidInstruction, "REDUCE max over empty items with no initial value", nil)
		}
		m.bindOut(instr, v)
	case "count":
		m.bindOut(instr, int64(len(items)))
	default:
		return vmerr.New(vmerr.CodeInvalidInstruction, "unknown REDUCE op", map[string]any{"op": op})
	}
	return nil
}

func (m *Machine) resolveStringArg(instr schema.Instruction, name string) (string, error) {
	spec, ok := instr.Args[name]
	if !ok {
		return "", nil
	}
	v, err := m.resolveArg(spec)
	if err != nil {
		return "", err
	}
	s, _ := v.(string)
	return s, nil
}

func reduceSum(values []any, initial any) float64 {
	sum := 0.0
	if f, ok := asFloatValue(initial); ok {
		sum = f
	}
	for _, v := range values {
		if f, ok := asFloatValue(v); ok {
			sum += f
		}
	}
	return sum
}

func reduceJoin(values []any, separator string, initial any) string {
	parts := make([]string, 0, len(values)+1)
	if s, ok := initial.(string); ok && s != "" {
		parts = append(parts, s)
	}
	for _, v := range values {
		if s, ok := asStringValue(v); ok {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, separator)
}

func reduceAnd(values []any, initial any) bool {
	acc := true
	if b, ok := initial.(bool); ok {
		acc = b
	}
	for _, v := range values {
		b, _ := v.(bool)
		acc = acc && b
	}
	return acc
}

func reduceOr(values []any, initial any) bool {
	acc := false
	if b, ok := initial.(bool); ok {
		acc = b
	}
	for _, v := range values {
		b, _ := v.(bool)
		acc = acc || b
	}
	return acc
}

// reduceMinMax folds numeric values, returning (result, false) only when
// there is nothing to fold from (no items and no initial value).
func reduceMinMax(values []any, initial any, max bool) (float64, bool) {
	nums := make([]float64, 0, len(values)+1)
	if f, ok := asFloatValue(initial); ok {
		nums = append(nums, f)
	}
	for _, v := range values {
		if f, ok := asFloatValue(v); ok {
			nums = append(nums, f)
		}
	}
	if len(nums) == 0 {
		return 0, false
	}
	sort.Float64s(nums)
	if max {
		return nums[len(nums)-1], true
	}
	return nums[0], true
}

// asFloatValue accepts a raw float64/int64, or a term-literal atom map
// (the shape a slot read through argumentTerm produces) carrying a
// numeric "value" field.
func asFloatValue(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	case map[string]any:
		raw, ok := n["value"]
		if !ok {
			return 0, false
		}
		f, err := asFloat(raw)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

func asStringValue(v any) (string, bool) {
	switch s := v.(type) {
	case string:
		return s, true
	case map[string]any:
		raw, ok := s["value"]
		if !ok {
			return "", false
		}
		str, ok := raw.(string)
		return str, ok
	default:
		return "", false
	}
}
