package term

import (
	"crypto/sha256"
	"encoding/base64"
	"sort"

	"nerdkernel/internal/vmerr"
)

// Canonicalize returns the deterministic representative of t: recursively
// normalized text, numbers, times, and slot ordering. It never mutates the
// input. Struct slot names are normalized as text (case-sensitive,
// punctuation-preserving for names).
func Canonicalize(t Term, opts Options) (Term, error) {
	if err := Validate(t); err != nil {
		return nil, err
	}
	return canonicalize(t, opts), nil
}

var nameOpts = Options{CaseSensitive: true, NormalizeWhitespace: true, StripPunctuation: false}

func canonicalize(t Term, opts Options) Term {
	switch v := t.(type) {
	case Atom:
		return canonicalizeAtom(v, opts)
	case Struct:
		slots := make(map[string]Term, len(v.Slots))
		for name, child := range v.Slots {
			canonName := normalizeText(name, nameOpts)
			slots[canonName] = canonicalize(child, opts)
		}
		return Struct{StructType: v.StructType, Slots: slots}
	default:
		return t
	}
}

func canonicalizeAtom(a Atom, opts Options) Atom {
	switch a.Type {
	case TypeString:
		s, _ := a.Payload.(string)
		return Atom{Type: TypeString, Payload: normalizeText(s, opts)}
	case TypeNumber:
		return Atom{Type: TypeNumber, Payload: normalizeNumber(a.Payload, opts)}
	case TypeInteger:
		return a
	case TypeBoolean, TypeNull:
		return a
	case TypeTime:
		tr, _ := a.Payload.(TimeRef)
		return Atom{Type: TypeTime, Payload: NormalizeTime(tr)}
	case TypeEntity, TypeSymbol:
		return a
	default:
		return a
	}
}

// Equivalent reports whether two terms canonicalize to the same value.
func Equivalent(a, b Term, opts Options) (bool, error) {
	ca, err := Canonicalize(a, opts)
	if err != nil {
		return false, err
	}
	cb, err := Canonicalize(b, opts)
	if err != nil {
		return false, err
	}
	return Serialize(ca, opts) == Serialize(cb, opts), nil
}

// Digest returns the 16-byte SHA-256 prefix of canonicalize(t)'s
// serialization. digest(canonicalize(t)) == digest(t) holds because
// Canonicalize is idempotent (canonicalizing an already-canonical term is
// a no-op) and Digest always canonicalizes first.
func Digest(t Term, opts Options) ([16]byte, error) {
	ct, err := Canonicalize(t, opts)
	if err != nil {
		return [16]byte{}, err
	}
	sum := sha256.Sum256([]byte(Serialize(ct, opts)))
	var out [16]byte
	copy(out[:], sum[:16])
	return out, nil
}

// DigestString renders a Digest as URL-safe base64 without padding, the
// text form used whenever a digest is surfaced.
func DigestString(d [16]byte) string {
	return base64.RawURLEncoding.EncodeToString(d[:])
}

// sortedSlotNames returns a Struct's slot names in byte-wise order of
// their NFC-encoded form, matching the fact-store argument ordering
// invariant.
func sortedSlotNames(slots map[string]Term) []string {
	names := make([]string, 0, len(slots))
	for name := range slots {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// mustValidTerm is used internally where a term is already known-good
// (e.g. freshly canonicalized) and a Validate error would indicate a bug.
func mustValidTerm(t Term) {
	if err := Validate(t); err != nil {
		panic(vmerr.Wrap(vmerr.CodeInvalidTerm, "internal invariant violated", err))
	}
}
