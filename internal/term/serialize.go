package term

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Serialize renders a term (assumed already canonical) to the deterministic
// tagged byte form: atoms as "<tag>:<payload>", structs as
// "{<type>|<name>=<child>,...}" with slots in sorted order.
func Serialize(t Term, opts Options) string {
	var b strings.Builder
	serializeInto(&b, t, opts)
	return b.String()
}

func serializeInto(b *strings.Builder, t Term, opts Options) {
	switch v := t.(type) {
	case Atom:
		serializeAtom(b, v)
	case Struct:
		b.WriteByte('{')
		b.WriteString(v.StructType.String())
		for _, name := range sortedSlotNames(v.Slots) {
			b.WriteByte('|')
			b.WriteString(name)
			b.WriteByte('=')
			serializeInto(b, v.Slots[name], opts)
		}
		b.WriteByte('}')
	default:
		b.WriteString("invalid")
	}
}

func serializeAtom(b *strings.Builder, a Atom) {
	switch a.Type {
	case TypeString:
		s, _ := a.Payload.(string)
		b.WriteString("string:")
		b.WriteString(s)
	case TypeNumber:
		f, _ := a.Payload.(float64)
		b.WriteString("number:")
		b.WriteString(serializeFloat(f))
	case TypeInteger:
		i, _ := a.Payload.(int64)
		b.WriteString("integer:")
		b.WriteString(strconv.FormatInt(i, 10))
	case TypeBoolean:
		v, _ := a.Payload.(bool)
		b.WriteString("boolean:")
		b.WriteString(strconv.FormatBool(v))
	case TypeNull:
		b.WriteString("null:")
	case TypeTime:
		tr, _ := a.Payload.(TimeRef)
		b.WriteString("time:")
		b.WriteString(serializeTime(tr))
	case TypeEntity:
		e, _ := a.Payload.(EntityId)
		b.WriteString("entity:")
		b.WriteString(e.String())
	case TypeSymbol:
		s, _ := a.Payload.(SymbolId)
		b.WriteString("symbol:")
		b.WriteString(s.String())
	default:
		fmt.Fprintf(b, "unknown:%v", a.Payload)
	}
}

// serializeFloat gives NaN and +/-Inf distinct, stable serialized forms
// distinct from any finite value.
func serializeFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "+Inf"
	case math.IsInf(f, -1):
		return "-Inf"
	default:
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
}

func serializeTime(t TimeRef) string {
	switch t.Kind {
	case TimeInstant:
		return fmt.Sprintf("instant:%d@%s", t.EpochMs, t.Precision)
	case TimeInterval:
		return fmt.Sprintf("interval:%d..%d@%s", t.StartMs, t.EndMs, t.Precision)
	case TimeRelative:
		sign := "+"
		offset := t.OffsetMs
		if offset < 0 {
			sign = "-"
			offset = -offset
		}
		return fmt.Sprintf("relative:%s%s%d@%s", t.Anchor, sign, offset, t.Precision)
	default:
		return fmt.Sprintf("unknown@%s", t.Precision)
	}
}
