package diskfact

import (
	"encoding/binary"
	"encoding/json"

	"nerdkernel/internal/fact"
	"nerdkernel/internal/term"
	"nerdkernel/internal/vmerr"
)

// wireTerm is the JSON mirror of a term.Term, recursive over Struct slots.
// Atom payloads are carried as their canonical serialized string (always
// round-trippable since Canonicalize has already normalized them) plus the
// type tag needed to know how to parse it back.
type wireTerm struct {
	Kind       string              `json:"kind"` // "atom" | "struct"
	AtomType   string              `json:"atom_type,omitempty"`
	AtomValue  string              `json:"atom_value,omitempty"`
	StructNS   string              `json:"struct_ns,omitempty"`
	StructName string              `json:"struct_name,omitempty"`
	Slots      map[string]wireTerm `json:"slots,omitempty"`
}

type wireFact struct {
	Predicate  string              `json:"predicate_ns_name"`
	Arguments  map[string]wireTerm `json:"arguments"`
	Polarity   string              `json:"polarity"`
	ScopeID    []string            `json:"scope"`
	HasTime    bool                `json:"has_time"`
	TimeKind   string              `json:"time_kind,omitempty"`
	TimeValue  wireTerm            `json:"time_value,omitempty"`
	Confidence *float64            `json:"confidence,omitempty"`
}

func encodeFactBody(f fact.Instance) []byte {
	wf := wireFact{
		Predicate:  f.Predicate.Namespace + "\x00" + f.Predicate.Name,
		Arguments:  make(map[string]wireTerm, len(f.Arguments)),
		Polarity:   string(f.Polarity),
		ScopeID:    f.ScopeID,
		Confidence: f.Confidence,
	}
	for slot, v := range f.Arguments {
		wf.Arguments[slot] = encodeTerm(v)
	}
	if f.Time != nil {
		wf.HasTime = true
		wf.TimeKind = string(f.Time.Kind)
		wf.TimeValue = encodeTerm(term.Atom{Type: term.TypeTime, Payload: *f.Time})
	}
	payload, _ := json.Marshal(wf)

	out := make([]byte, 4+len(payload))
	binary.LittleEndian.PutUint32(out[:4], uint32(len(payload)))
	copy(out[4:], payload)
	return out
}

func decodeFactBody(factID [48]byte, raw []byte) (fact.Instance, error) {
	if len(raw) < 4 {
		return fact.Instance{}, vmerr.New(vmerr.CodeStorageError, "truncated fact payload", nil)
	}
	n := binary.LittleEndian.Uint32(raw[:4])
	if uint32(len(raw)-4) < n {
		return fact.Instance{}, vmerr.New(vmerr.CodeStorageError, "truncated fact payload body", nil)
	}
	var wf wireFact
	if err := json.Unmarshal(raw[4:4+n], &wf); err != nil {
		return fact.Instance{}, vmerr.Wrap(vmerr.CodeStorageError, "decode fact payload", err)
	}

	f := fact.Instance{
		FactID:     factID,
		Polarity:   fact.Polarity(wf.Polarity),
		ScopeID:    wf.ScopeID,
		Confidence: wf.Confidence,
		Arguments:  make(map[string]term.Term, len(wf.Arguments)),
	}
	ns, name := splitSymbol(wf.Predicate)
	f.Predicate = term.NewSymbolId(ns, name)

	for slot, wt := range wf.Arguments {
		f.Arguments[slot] = decodeTerm(wt)
	}
	if wf.HasTime {
		decoded := decodeTerm(wf.TimeValue)
		if atom, ok := decoded.(term.Atom); ok {
			if tr, ok := atom.Payload.(term.TimeRef); ok {
				f.Time = &tr
			}
		}
	}
	return f, nil
}

func splitSymbol(s string) (string, string) {
	for i := 0; i < len(s); i++ {
		if s[i] == 0 {
			return s[:i], s[i+1:]
		}
	}
	return s, ""
}

func encodeTerm(t term.Term) wireTerm {
	switch v := t.(type) {
	case term.Atom:
		return wireTerm{Kind: "atom", AtomType: string(v.Type), AtomValue: term.Serialize(v, term.Options{})[len(string(v.Type))+1:]}
	case term.Struct:
		slots := make(map[string]wireTerm, len(v.Slots))
		for name, child := range v.Slots {
			slots[name] = encodeTerm(child)
		}
		return wireTerm{Kind: "struct", StructNS: v.StructType.Namespace, StructName: v.StructType.Name, Slots: slots}
	default:
		return wireTerm{Kind: "atom", AtomType: string(term.TypeNull)}
	}
}

func decodeTerm(wt wireTerm) term.Term {
	if wt.Kind == "struct" {
		slots := make(map[string]term.Term, len(wt.Slots))
		for name, child := range wt.Slots {
			slots[name] = decodeTerm(child)
		}
		return term.NewStruct(term.NewSymbolId(wt.StructNS, wt.StructName), slots)
	}
	return decodeAtom(term.AtomType(wt.AtomType), wt.AtomValue)
}
