package vm

import (
	"strconv"
	"strings"

	"nerdkernel/internal/schema"
	"nerdkernel/internal/vmerr"
)

// resolveArg resolves one instruction argument to a concrete value
// according to its Kind. Literal values are walked recursively
// so a `{ var: "<name>" }` object nested anywhere inside a literal is
// treated as a binding reference - the rule being: "a
// literal containing exactly one key `var` with a string value is a
// binding reference, anything else is data."
func (m *Machine) resolveArg(a schema.Arg) (any, error) {
	switch a.Kind {
	case schema.ArgLiteral:
		return m.resolveLiteral(a.Literal)
	case schema.ArgBinding:
		return m.resolveDottedName(a.Name, func(base string) (any, bool) { return m.Env.Get(base) })
	case schema.ArgSlot:
		return m.resolveDottedName(a.Name, func(base string) (any, bool) { v, ok := m.slots[base]; return v, ok })
	case schema.ArgLabel:
		idx, ok := m.labels[a.Name]
		if !ok {
			return nil, vmerr.New(vmerr.CodeUnknownLabel, "unknown label", map[string]any{"label": a.Name})
		}
		return idx, nil
	case schema.ArgExpr:
		return m.evalExpr(a)
	default:
		return nil, vmerr.New(vmerr.CodeInvalidInstruction, "unknown argument kind", map[string]any{"kind": string(a.Kind)})
	}
}

// resolveDottedName resolves a possibly dotted name ("items.length",
// "person.name") against lookup: the first segment is the binding/slot
// base, and each remaining segment is a property access
// ("dotted property access for .length
// and object fields"). Unresolved base names and unrecognized property
// segments raise BindingNotFound - there is no silent-null fallback in
// the comparison language.
func (m *Machine) resolveDottedName(name string, lookup func(base string) (any, bool)) (any, error) {
	parts := strings.Split(name, ".")
	base, ok := lookup(parts[0])
	if !ok {
		return nil, vmerr.New(vmerr.CodeBindingNotFound, "unresolved binding", map[string]any{"name": parts[0]})
	}
	cur := base
	for _, prop := range parts[1:] {
		next, ok := accessProperty(cur, prop)
		if !ok {
			return nil, vmerr.New(vmerr.CodeBindingNotFound, "unresolved property access", map[string]any{"name": name, "property": prop})
		}
		cur = next
	}
	return cur, nil
}

// accessProperty implements the two supported property shapes:
// ".length" on a collection/string, and an object field lookup.
func accessProperty(v any, prop string) (any, bool) {
	if prop == "length" {
		switch val := v.(type) {
		case []any:
			return int64(len(val)), true
		case string:
			return int64(len(val)), true
		case map[string]any:
			if _, isField := val["length"]; !isField {
				return int64(len(val)), true
			}
		}
	}
	switch val := v.(type) {
	case map[string]any:
		field, ok := val[prop]
		return field, ok
	default:
		return nil, false
	}
}

// evalExpr evaluates the BRANCH comparison language: `<expr> op
// <expr>` for op in {==, !=, <, <=, >, >=}, or the unary `!<cond>` (Left
// only, Right unused).
func (m *Machine) evalExpr(a schema.Arg) (bool, error) {
	if a.Op == "!" {
		if a.Left == nil {
			return false, vmerr.New(vmerr.CodeInvalidInstruction, "unary ! expression missing operand", nil)
		}
		v, err := m.resolveArg(*a.Left)
		if err != nil {
			return false, err
		}
		b, _ := v.(bool)
		return !b, nil
	}
	if a.Left == nil || a.Right == nil {
		return false, vmerr.New(vmerr.CodeInvalidInstruction, "comparison expression requires left and right operands", map[string]any{"op": a.Op})
	}
	left, err := m.resolveArg(*a.Left)
	if err != nil {
		return false, err
	}
	right, err := m.resolveArg(*a.Right)
	if err != nil {
		return false, err
	}
	return compareValues(a.Op, left, right)
}

// compareValues implements ==, !=, <, <=, >, >=. Equality falls back to
// Go's comparable-interface equality when both sides aren't numeric;
// ordering comparisons require both sides to be numeric or both string.
func compareValues(op string, left, right any) (bool, error) {
	if lf, lok := asNumber(left); lok {
		if rf, rok := asNumber(right); rok {
			switch op {
			case "==":
				return lf == rf, nil
			case "!=":
				return lf != rf, nil
			case "<":
				return lf < rf, nil
			case "<=":
				return lf <= rf, nil
			case ">":
				return lf > rf, nil
			case ">=":
				return lf >= rf, nil
			}
		}
	}
	if ls, lok := left.(string); lok {
		if rs, rok := right.(string); rok {
			switch op {
			case "==":
				return ls == rs, nil
			case "!=":
				return ls != rs, nil
			case "<":
				return ls < rs, nil
			case "<=":
				return ls <= rs, nil
			case ">":
				return ls > rs, nil
			case ">=":
				return ls >= rs, nil
			}
		}
	}
	switch op {
	case "==":
		return safeEqual(left, right), nil
	case "!=":
		return !safeEqual(left, right), nil
	default:
		return false, vmerr.New(vmerr.CodeInvalidInstruction, "operands are not comparable with "+op, map[string]any{"op": op})
	}
}

// safeEqual compares two values for equality without panicking on
// uncomparable dynamic types (slices, maps) - those are simply unequal
// unless identical by reference, which `any` equality can't express, so
// they compare as not-equal.
func safeEqual(left, right any) bool {
	if !isComparable(left) || !isComparable(right) {
		return false
	}
	return left == right
}

func isComparable(v any) bool {
	switch v.(type) {
	case []any, map[string]any:
		return false
	default:
		return true
	}
}

func asNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// resolveLiteral walks objects/arrays recursively, resolving any
// `{var: "name"}` shape against the binding environment.
func (m *Machine) resolveLiteral(v any) (any, error) {
	switch val := v.(type) {
	case map[string]any:
		if name, ok := isBindingRef(val); ok {
			bound, ok := m.Env.Get(name)
			if !ok {
				return nil, vmerr.New(vmerr.CodeBindingNotFound, "unresolved binding in literal", map[string]any{"name": name})
			}
			return bound, nil
		}
		out := make(map[string]any, len(val))
		for k, child := range val {
			resolved, err := m.resolveLiteral(child)
			if err != nil {
				return nil, err
			}
			out[k] = resolved
		}
		return out, nil
	case []any:
		out := make([]any, len(val))
		for i, child := range val {
			resolved, err := m.resolveLiteral(child)
			if err != nil {
				return nil, err
			}
			out[i] = resolved
		}
		return out, nil
	default:
		return v, nil
	}
}

// isBindingRef reports whether m is exactly {"var": "<name>"}.
func isBindingRef(m map[string]any) (string, bool) {
	if len(m) != 1 {
		return "", false
	}
	raw, ok := m["var"]
	if !ok {
		return "", false
	}
	name, ok := raw.(string)
	return name, ok
}

// resolveArgs resolves every arg in an instruction's Args map.
func (m *Machine) resolveArgs(args map[string]schema.Arg) (map[string]any, error) {
	out := make(map[string]any, len(args))
	for name, a := range args {
		v, err := m.resolveArg(a)
		if err != nil {
			return nil, err
		}
		out[name] = v
	}
	return out, nil
}
