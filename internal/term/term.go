// Package term implements the deterministic canonicalizer: the shared leaf
// used everywhere an identity or equality check is needed across the
// reasoning substrate. A Term is a tagged sum -
// either an Atom or a Struct - and this package is the sole basis for
// equality, deduplication, and indexing over terms.
package term

import "nerdkernel/internal/vmerr"

// AtomType enumerates the semantic payload kinds an Atom can carry.
type AtomType string

const (
	TypeString  AtomType = "string"
	TypeNumber  AtomType = "number"
	TypeInteger AtomType = "integer"
	TypeBoolean AtomType = "boolean"
	TypeNull    AtomType = "null"
	TypeTime    AtomType = "time"
	TypeEntity  AtomType = "entity"
	TypeSymbol  AtomType = "symbol"
)

// Term is the tagged sum type: every concrete term is either an Atom or a
// Struct. The interface is sealed via the unexported method so external
// packages cannot introduce a third shape.
type Term interface {
	isTerm()
}

// Atom is a leaf term: a type tag plus a payload of the corresponding Go
// type (string, float64, int64, bool, nil, TimeRef, EntityId, SymbolId).
type Atom struct {
	Type    AtomType
	Payload any
}

func (Atom) isTerm() {}

// Struct is a composite term: a structType identifying the shape, and a
// slot-name -> Term mapping. Slot names are unique within a Struct.
type Struct struct {
	StructType SymbolId
	Slots      map[string]Term
}

func (Struct) isTerm() {}

// SymbolId is (namespace, name); case-preserving, whitespace-trimmed, and
// never subject to the text-normalization pipeline.
type SymbolId struct {
	Namespace string
	Name      string
}

// EntityId is (source, localId, optional version); same trimming rule as
// SymbolId.
type EntityId struct {
	Source  string
	LocalID string
	Version string // empty means "no version"
}

// NewString builds a string Atom.
func NewString(s string) Atom { return Atom{Type: TypeString, Payload: s} }

// NewNumber builds a float64 Atom.
func NewNumber(f float64) Atom { return Atom{Type: TypeNumber, Payload: f} }

// NewInteger builds an int64 Atom.
func NewInteger(i int64) Atom { return Atom{Type: TypeInteger, Payload: i} }

// NewBoolean builds a boolean Atom.
func NewBoolean(b bool) Atom { return Atom{Type: TypeBoolean, Payload: b} }

// NewNull builds the null Atom.
func NewNull() Atom { return Atom{Type: TypeNull, Payload: nil} }

// NewSymbol builds a symbol Atom wrapping a SymbolId.
func NewSymbol(s SymbolId) Atom { return Atom{Type: TypeSymbol, Payload: s} }

// NewEntity builds an entity Atom wrapping an EntityId.
func NewEntity(e EntityId) Atom { return Atom{Type: TypeEntity, Payload: e} }

// NewStruct builds a Struct term.
func NewStruct(structType SymbolId, slots map[string]Term) Struct {
	if slots == nil {
		slots = map[string]Term{}
	}
	return Struct{StructType: structType, Slots: slots}
}

// Validate reports vmerr.CodeInvalidTerm if t is neither an Atom nor a
// Struct shape (e.g. the zero value of the Term interface, or an Atom with
// an unrecognized type tag).
func Validate(t Term) error {
	switch v := t.(type) {
	case Atom:
		switch v.Type {
		case TypeString, TypeNumber, TypeInteger, TypeBoolean, TypeNull, TypeTime, TypeEntity, TypeSymbol:
			return nil
		default:
			return vmerr.New(vmerr.CodeInvalidTerm, "unknown atom type", map[string]any{"type": string(v.Type)})
		}
	case Struct:
		for name, child := range v.Slots {
			if err := Validate(child); err != nil {
				return vmerr.Wrap(vmerr.CodeInvalidTerm, "invalid slot "+name, err)
			}
		}
		return nil
	default:
		return vmerr.New(vmerr.CodeInvalidTerm, "term has neither atom nor struct shape", nil)
	}
}
