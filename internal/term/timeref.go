package term

import "nerdkernel/internal/vmerr"

// Precision is the truncation granularity for a TimeRef, always applied
// against UTC.
type Precision string

const (
	PrecisionMillisecond Precision = "ms"
	PrecisionSecond      Precision = "second"
	PrecisionMinute      Precision = "minute"
	PrecisionHour        Precision = "hour"
	PrecisionDay         Precision = "day"
	PrecisionMonth       Precision = "month"
	PrecisionYear        Precision = "year"
)

// TimeKind tags which shape of TimeRef this is.
type TimeKind string

const (
	TimeInstant  TimeKind = "instant"
	TimeInterval TimeKind = "interval"
	TimeRelative TimeKind = "relative"
	TimeUnknown  TimeKind = "unknown"
)

// TimeRef is the tagged sum for temporal values.
// Only the fields relevant to Kind are meaningful; the zero value is the
// unknown time.
type TimeRef struct {
	Kind      TimeKind
	EpochMs   int64 // instant
	StartMs   int64 // interval
	EndMs     int64 // interval
	Anchor    string
	OffsetMs  int64 // relative
	Precision Precision
}

// Instant builds an instant TimeRef.
func Instant(epochMs int64, precision Precision) TimeRef {
	return TimeRef{Kind: TimeInstant, EpochMs: epochMs, Precision: precision}
}

// Interval builds an interval TimeRef, swapping endpoints so start <= end.
func Interval(start, end int64, precision Precision) TimeRef {
	if start > end {
		start, end = end, start
	}
	return TimeRef{Kind: TimeInterval, StartMs: start, EndMs: end, Precision: precision}
}

// Relative builds a relative TimeRef; anchor and offset are not resolved
// here - they pass through unchanged.
func Relative(anchor string, offsetMs int64, precision Precision) TimeRef {
	return TimeRef{Kind: TimeRelative, Anchor: anchor, OffsetMs: offsetMs, Precision: precision}
}

// Unknown builds the unknown TimeRef.
func Unknown() TimeRef { return TimeRef{Kind: TimeUnknown} }

var truncUnitMs = map[Precision]int64{
	PrecisionMillisecond: 1,
	PrecisionSecond:      1000,
	PrecisionMinute:      60 * 1000,
	PrecisionHour:        60 * 60 * 1000,
	PrecisionDay:         24 * 60 * 60 * 1000,
}

// truncate floors ms to the given precision boundary in UTC. Month/year
// truncation is handled separately since they are not fixed-width.
func truncate(ms int64, p Precision) int64 {
	if unit, ok := truncUnitMs[p]; ok {
		if ms >= 0 {
			return (ms / unit) * unit
		}
		// floor toward negative infinity for pre-epoch instants
		q := ms / unit
		if ms%unit != 0 {
			q--
		}
		return q * unit
	}
	return truncateCalendar(ms, p)
}

// NormalizeTime applies the UTC truncation and the interval-swap invariant.
// Unknown and relative TimeRefs pass through unchanged (local
// recovery, never surfaced).
func NormalizeTime(t TimeRef) TimeRef {
	switch t.Kind {
	case TimeInstant:
		return Instant(truncate(t.EpochMs, t.Precision), t.Precision)
	case TimeInterval:
		return Interval(truncate(t.StartMs, t.Precision), truncate(t.EndMs, t.Precision), t.Precision)
	case TimeRelative:
		return t
	case TimeUnknown:
		return Unknown()
	default:
		return Unknown()
	}
}

// ValidateTime reports an error for an unrecognized Kind; callers treat
// this as vmerr.CodeInvalidTerm since a TimeRef is embedded in an Atom.
func ValidateTime(t TimeRef) error {
	switch t.Kind {
	case TimeInstant, TimeInterval, TimeRelative, TimeUnknown:
		return nil
	default:
		return vmerr.New(vmerr.CodeInvalidTerm, "unknown time kind", map[string]any{"kind": string(t.Kind)})
	}
}

// Overlaps implements the temporal-overlap rule used by fact-store conflict
// detection: open intervals overlap, unknown overlaps nothing,
// instants with equal precision overlap iff equal. Mixed-precision
// instants are implementation-defined here as "not overlapping" - the
// conservative choice documented as an Open Question resolution.
func Overlaps(a, b TimeRef) bool {
	if a.Kind == TimeUnknown || b.Kind == TimeUnknown {
		return false
	}
	aStart, aEnd, aOK := span(a)
	bStart, bEnd, bOK := span(b)
	if !aOK || !bOK {
		return false
	}
	if a.Kind == TimeInstant && b.Kind == TimeInstant {
		if a.Precision != b.Precision {
			return false
		}
		return aStart == bStart
	}
	return aStart <= bEnd && bStart <= aEnd
}

// span returns the [start, end] range a TimeRef covers for overlap
// purposes. Relative times have no resolved range and never overlap.
func span(t TimeRef) (start, end int64, ok bool) {
	switch t.Kind {
	case TimeInstant:
		return t.EpochMs, t.EpochMs, true
	case TimeInterval:
		return t.StartMs, t.EndMs, true
	default:
		return 0, 0, false
	}
}
