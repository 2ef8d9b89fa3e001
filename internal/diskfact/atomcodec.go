package diskfact

import (
	"strconv"
	"strings"

	"nerdkernel/internal/term"
)

// decodeAtom reconstructs an Atom from its AtomType tag and the portion of
// its serialized form after the "tag:" prefix (see encodeTerm). This
// mirrors term/serialize.go's format in reverse.
func decodeAtom(t term.AtomType, value string) term.Term {
	switch t {
	case term.TypeString:
		return term.Atom{Type: term.TypeString, Payload: value}
	case term.TypeNumber:
		return term.Atom{Type: term.TypeNumber, Payload: decodeFloat(value)}
	case term.TypeInteger:
		i, _ := strconv.ParseInt(value, 10, 64)
		return term.Atom{Type: term.TypeInteger, Payload: i}
	case term.TypeBoolean:
		return term.Atom{Type: term.TypeBoolean, Payload: value == "true"}
	case term.TypeNull:
		return term.NewNull()
	case term.TypeTime:
		return term.Atom{Type: term.TypeTime, Payload: decodeTimeRef(value)}
	case term.TypeEntity:
		return term.Atom{Type: term.TypeEntity, Payload: decodeEntityID(value)}
	case term.TypeSymbol:
		return term.Atom{Type: term.TypeSymbol, Payload: decodeSymbolAtom(value)}
	default:
		return term.NewNull()
	}
}

func decodeFloat(s string) float64 {
	switch s {
	case "NaN":
		return nanValue()
	case "+Inf":
		return infValue(1)
	case "-Inf":
		return infValue(-1)
	default:
		f, _ := strconv.ParseFloat(s, 64)
		return f
	}
}

func decodeEntityID(s string) term.EntityId {
	sourceAndRest := strings.SplitN(s, "/", 2)
	if len(sourceAndRest) != 2 {
		return term.EntityId{Source: s}
	}
	rest := sourceAndRest[1]
	if idx := strings.LastIndex(rest, "@"); idx >= 0 {
		return term.NewEntityId(sourceAndRest[0], rest[:idx], rest[idx+1:])
	}
	return term.NewEntityId(sourceAndRest[0], rest, "")
}

func decodeSymbolAtom(s string) term.SymbolId {
	ns, name := splitOnce(s, ':')
	return term.NewSymbolId(ns, name)
}

func decodeSymbolID(s string) term.SymbolId {
	ns, name := splitSymbol(s)
	return term.NewSymbolId(ns, name)
}

func splitOnce(s string, sep byte) (string, string) {
	for i := 0; i < len(s); i++ {
		if s[i] == sep {
			return s[:i], s[i+1:]
		}
	}
	return s, ""
}

// decodeTimeRef parses serializeTime's output back into a TimeRef.
func decodeTimeRef(s string) term.TimeRef {
	switch {
	case strings.HasPrefix(s, "instant:"):
		body := strings.TrimPrefix(s, "instant:")
		msStr, prec := splitOnce(body, '@')
		ms, _ := strconv.ParseInt(msStr, 10, 64)
		return term.Instant(ms, term.Precision(prec))
	case strings.HasPrefix(s, "interval:"):
		body := strings.TrimPrefix(s, "interval:")
		rangeStr, prec := splitOnce(body, '@')
		parts := strings.SplitN(rangeStr, "..", 2)
		if len(parts) != 2 {
			return term.Unknown()
		}
		start, _ := strconv.ParseInt(parts[0], 10, 64)
		end, _ := strconv.ParseInt(parts[1], 10, 64)
		return term.Interval(start, end, term.Precision(prec))
	case strings.HasPrefix(s, "relative:"):
		body := strings.TrimPrefix(s, "relative:")
		rest, prec := splitOnce(body, '@')
		signIdx := strings.IndexAny(rest, "+-")
		if signIdx < 0 {
			return term.Unknown()
		}
		anchor := rest[:signIdx]
		sign := rest[signIdx]
		offset, _ := strconv.ParseInt(rest[signIdx+1:], 10, 64)
		if sign == '-' {
			offset = -offset
		}
		return term.Relative(anchor, offset, term.Precision(prec))
	default:
		return term.Unknown()
	}
}

func nanValue() float64 { return zero() / zero() }
func infValue(sign int) float64 {
	if sign < 0 {
		return -1 / zero()
	}
	return 1 / zero()
}
func zero() float64 { return 0 }
