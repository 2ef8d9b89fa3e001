package vm

import (
	"nerdkernel/internal/term"
	"nerdkernel/internal/vmerr"
)

// literalToTerm interprets a JSON/YAML-decoded literal value as a Term,
// per the program exchange convention: an atom literal
// is `{"atom": "<type>", ...}`, a struct literal is `{"struct": {...
// SymbolId fields}, "slots": {...}}`. This is the inverse of
// termToLiteral, used so a compiled Program can embed term literals in
// plain JSON/YAML without a second parser.
// LiteralToTerm is the exported form of literalToTerm, for callers
// outside the executor - the CLI's fact/rule loaders in particular -
// that need to parse the same JSON/YAML term-literal convention without
// duplicating the grammar.
func LiteralToTerm(v any) (term.Term, error) { return literalToTerm(v) }

func literalToTerm(v any) (term.Term, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return nil, vmerr.New(vmerr.CodeInvalidInstruction, "term literal must be an object", nil)
	}
	if atomType, ok := m["atom"]; ok {
		return literalToAtom(atomType, m)
	}
	if structDesc, ok := m["struct"]; ok {
		return literalToStruct(structDesc, m)
	}
	return nil, vmerr.New(vmerr.CodeInvalidInstruction, "term literal missing atom/struct tag", nil)
}

func literalToAtom(atomType any, m map[string]any) (term.Term, error) {
	tag, _ := atomType.(string)
	switch term.AtomType(tag) {
	case term.TypeString:
		s, _ := m["value"].(string)
		return term.NewString(s), nil
	case term.TypeNumber:
		f, err := asFloat(m["value"])
		if err != nil {
			return nil, err
		}
		return term.NewNumber(f), nil
	case term.TypeInteger:
		switch n := m["value"].(type) {
		case int64:
			return term.NewInteger(n), nil
		case int:
			return term.NewInteger(int64(n)), nil
		case float64:
			return term.NewInteger(int64(n)), nil
		default:
			return nil, vmerr.New(vmerr.CodeInvalidTerm, "integer literal value not numeric", nil)
		}
	case term.TypeBoolean:
		b, _ := m["value"].(bool)
		return term.NewBoolean(b), nil
	case term.TypeNull:
		return term.NewNull(), nil
	case term.TypeSymbol:
		sym, err := literalToSymbolId(m)
		if err != nil {
			return nil, err
		}
		return term.NewSymbol(sym), nil
	case term.TypeEntity:
		src, _ := m["source"].(string)
		local, _ := m["localId"].(string)
		ver, _ := m["version"].(string)
		return term.NewEntity(term.EntityId{Source: src, LocalID: local, Version: ver}), nil
	case term.TypeTime:
		tr, err := literalToTimeRef(m)
		if err != nil {
			return nil, err
		}
		return term.Atom{Type: term.TypeTime, Payload: tr}, nil
	default:
		return nil, vmerr.New(vmerr.CodeInvalidTerm, "unknown atom literal type", map[string]any{"type": tag})
	}
}

func literalToSymbolId(m map[string]any) (term.SymbolId, error) {
	ns, _ := m["namespace"].(string)
	name, _ := m["name"].(string)
	if name == "" {
		return term.SymbolId{}, vmerr.New(vmerr.CodeInvalidTerm, "symbol literal missing name", nil)
	}
	return term.NewSymbolId(ns, name), nil
}

func literalToTimeRef(m map[string]any) (term.TimeRef, error) {
	kind, _ := m["kind"].(string)
	precision, _ := m["precision"].(string)
	p := term.Precision(precision)
	switch term.TimeKind(kind) {
	case term.TimeInstant:
		ms, err := asInt64(m["epochMs"])
		if err != nil {
			return term.TimeRef{}, err
		}
		return term.Instant(ms, p), nil
	case term.TimeInterval:
		start, err := asInt64(m["startMs"])
		if err != nil {
			return term.TimeRef{}, err
		}
		end, err := asInt64(m["endMs"])
		if err != nil {
			return term.TimeRef{}, err
		}
		return term.Interval(start, end, p), nil
	case term.TimeRelative:
		anchor, _ := m["anchor"].(string)
		offset, err := asInt64(m["offsetMs"])
		if err != nil {
			return term.TimeRef{}, err
		}
		return term.Relative(anchor, offset, p), nil
	default:
		return term.Unknown(), nil
	}
}

func literalToStruct(structDesc any, m map[string]any) (term.Term, error) {
	sm, ok := structDesc.(map[string]any)
	if !ok {
		return nil, vmerr.New(vmerr.CodeInvalidInstruction, "struct literal tag must be an object", nil)
	}
	structType, err := literalToSymbolId(sm)
	if err != nil {
		return nil, err
	}
	slotsRaw, _ := m["slots"].(map[string]any)
	slots := make(map[string]term.Term, len(slotsRaw))
	for name, raw := range slotsRaw {
		child, err := literalToTerm(raw)
		if err != nil {
			return nil, err
		}
		slots[name] = child
	}
	return term.NewStruct(structType, slots), nil
}

// TermToLiteral is the exported form of termToLiteral, used by the CLI
// to render query results as plain JSON/YAML data.
func TermToLiteral(t term.Term) any { return termToLiteral(t) }

// termToLiteral renders a Term back into plain data, used when binding a
// fetched/derived term into the environment for a later literal-object
// resolution or for inclusion in a Claim's Content.
func termToLiteral(t term.Term) any {
	switch v := t.(type) {
	case term.Atom:
		switch v.Type {
		case term.TypeSymbol:
			sym, _ := v.Payload.(term.SymbolId)
			return map[string]any{"atom": "symbol", "namespace": sym.Namespace, "name": sym.Name}
		case term.TypeEntity:
			ent, _ := v.Payload.(term.EntityId)
			return map[string]any{"atom": "entity", "source": ent.Source, "localId": ent.LocalID, "version": ent.Version}
		case term.TypeTime:
			tr, _ := v.Payload.(term.TimeRef)
			return map[string]any{"atom": "time", "kind": string(tr.Kind), "epochMs": tr.EpochMs, "startMs": tr.StartMs, "endMs": tr.EndMs, "anchor": tr.Anchor, "offsetMs": tr.OffsetMs, "precision": string(tr.Precision)}
		default:
			return map[string]any{"atom": string(v.Type), "value": v.Payload}
		}
	case term.Struct:
		slots := make(map[string]any, len(v.Slots))
		for name, child := range v.Slots {
			slots[name] = termToLiteral(child)
		}
		return map[string]any{"struct": map[string]any{"namespace": v.StructType.Namespace, "name": v.StructType.Name}, "slots": slots}
	default:
		return nil
	}
}

func asFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	default:
		return 0, vmerr.New(vmerr.CodeInvalidTerm, "expected numeric literal value", nil)
	}
}

func asInt64(v any) (int64, error) {
	switch n := v.(type) {
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	case float64:
		return int64(n), nil
	case nil:
		return 0, nil
	default:
		return 0, vmerr.New(vmerr.CodeInvalidTerm, "expected integer literal value", nil)
	}
}

func toStringSlice(v any) []string {
	raw, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, e := range raw {
		if s, ok := e.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
