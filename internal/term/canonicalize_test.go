package term

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCanonicalizeTextCaseInsensitiveByDefault(t *testing.T) {
	opts := DefaultOptions()
	a := NewString("Hello, World!")
	b := NewString("hello world")

	eq, err := Equivalent(a, b, opts)
	require.NoError(t, err)
	require.True(t, eq, "default normalization folds case, collapses whitespace, and strips punctuation")
}

func TestCanonicalizeTextPunctuationPreservingOptOut(t *testing.T) {
	opts := DefaultOptions()
	opts.StripPunctuation = false

	eq, err := Equivalent(NewString("Hello, World!"), NewString("hello world"), opts)
	require.NoError(t, err)
	require.False(t, eq, "punctuation must survive when stripping is disabled")
}

func TestCanonicalizeTextCaseSensitiveOptIn(t *testing.T) {
	opts := DefaultOptions()
	opts.CaseSensitive = true

	eq, err := Equivalent(NewString("Hello"), NewString("hello"), opts)
	require.NoError(t, err)
	require.False(t, eq, "case-sensitive options must not fold case")
}

func TestCanonicalizeNumberRoundsToConfiguredPrecision(t *testing.T) {
	opts := DefaultOptions()
	opts.NumberPrecision = 2

	ct, err := Canonicalize(NewNumber(1.005001), opts)
	require.NoError(t, err)
	atom := ct.(Atom)
	require.InDelta(t, 1.01, atom.Payload.(float64), 1e-9)
}

func TestCanonicalizeNumberNaNAndInfPassThrough(t *testing.T) {
	opts := DefaultOptions()
	ct, err := Canonicalize(NewNumber(math.NaN()), opts)
	require.NoError(t, err)
	require.True(t, math.IsNaN(ct.(Atom).Payload.(float64)))

	ct, err = Canonicalize(NewNumber(math.Inf(1)), opts)
	require.NoError(t, err)
	require.True(t, math.IsInf(ct.(Atom).Payload.(float64), 1))
}

func TestCanonicalizeQuantityConvertsToBaseUnit(t *testing.T) {
	opts := DefaultOptions()
	opts.NumberPrecision = 3

	kmTerm, err := Canonicalize(NewQuantity(1, "km"), opts)
	require.NoError(t, err)
	mTerm, err := Canonicalize(NewQuantity(1000, "m"), opts)
	require.NoError(t, err)

	require.Equal(t, Serialize(kmTerm, opts), Serialize(mTerm, opts), "1km and 1000m must canonicalize identically")
}

func TestCanonicalizeUnknownUnitPassesThroughUnconverted(t *testing.T) {
	opts := DefaultOptions()
	ct, err := Canonicalize(NewQuantity(42, "furlong"), opts)
	require.NoError(t, err)
	require.Equal(t, float64(42), ct.(Atom).Payload.(float64))
}

func TestCanonicalizeStructSortsSlotNames(t *testing.T) {
	opts := DefaultOptions()
	st := NewStruct(NewSymbolId("demo", "widget"), map[string]Term{
		"zeta":  NewString("z"),
		"alpha": NewString("a"),
	})
	ct, err := Canonicalize(st, opts)
	require.NoError(t, err)

	s1 := Serialize(ct, opts)
	// Reordering the input map must not change the serialized form.
	st2 := NewStruct(NewSymbolId("demo", "widget"), map[string]Term{
		"alpha": NewString("a"),
		"zeta":  NewString("z"),
	})
	ct2, err := Canonicalize(st2, opts)
	require.NoError(t, err)
	require.Equal(t, s1, Serialize(ct2, opts))
}

func TestDigestIsIdempotentUnderCanonicalize(t *testing.T) {
	opts := DefaultOptions()
	tm := NewString("  Mixed CASE  ")

	d1, err := Digest(tm, opts)
	require.NoError(t, err)

	ct, err := Canonicalize(tm, opts)
	require.NoError(t, err)
	d2, err := Digest(ct, opts)
	require.NoError(t, err)

	require.Equal(t, d1, d2)
}

func TestDigestStringIsURLSafe(t *testing.T) {
	opts := DefaultOptions()
	d, err := Digest(NewString("abc"), opts)
	require.NoError(t, err)
	s := DigestString(d)
	require.NotContains(t, s, "+")
	require.NotContains(t, s, "/")
	require.NotContains(t, s, "=")
}

func TestValidateRejectsUnknownAtomType(t *testing.T) {
	err := Validate(Atom{Type: "bogus"})
	require.Error(t, err)
}

func TestValidateRecursesIntoStructSlots(t *testing.T) {
	bad := NewStruct(NewSymbolId("ns", "s"), map[string]Term{
		"x": Atom{Type: "bogus"},
	})
	require.Error(t, Validate(bad))
}
