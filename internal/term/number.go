package term

import "math"

// Quantity is the payload of a number Atom built with a unit designation;
// canonicalization converts it to its configured base unit and rounds,
// then collapses it back to a plain float64. An Atom built via NewNumber
// (no unit) skips unit conversion entirely.
type Quantity struct {
	Value float64
	Unit  string
}

// NewQuantity builds a number Atom carrying a unit to be resolved at
// canonicalization time.
func NewQuantity(value float64, unit string) Atom {
	return Atom{Type: TypeNumber, Payload: Quantity{Value: value, Unit: unit}}
}

// roundTo rounds x to p decimal digits as round(x * 10^p) / 10^p. NaN and
// +/-Inf pass through unchanged and remain distinguishable in serialized
// form (see serialize.go).
func roundTo(x float64, p int) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return x
	}
	scale := math.Pow(10, float64(p))
	return math.Round(x*scale) / scale
}

// normalizeNumber resolves unit conversion (if any) then rounds to the
// configured precision. Unknown units pass the raw value through
// unchanged and unconverted - a deliberate, deterministic local recovery
// never surfaced as an error.
func normalizeNumber(payload any, opts Options) float64 {
	switch v := payload.(type) {
	case Quantity:
		table := opts.UnitTable
		if table == nil {
			table = DefaultUnitTable()
		}
		value := v.Value
		if conv, ok := table[v.Unit]; ok {
			value = value*conv.Multiplier + conv.Offset
		}
		return roundTo(value, opts.NumberPrecision)
	case float64:
		return roundTo(v, opts.NumberPrecision)
	case int64:
		return roundTo(float64(v), opts.NumberPrecision)
	case int:
		return roundTo(float64(v), opts.NumberPrecision)
	default:
		return 0
	}
}
