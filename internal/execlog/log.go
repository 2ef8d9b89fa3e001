// Package execlog implements the append-only, typed execution trace:
// monotonic entry IDs, verbosity-filtered recording, and opaque range
// references into the recorded segment.
package execlog

import (
	"encoding/base64"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// EntryType is the kind of a log entry.
type EntryType string

const (
	EntryInstruction   EntryType = "INSTRUCTION"
	EntryFactAssert    EntryType = "FACT_ASSERT"
	EntryFactDeny      EntryType = "FACT_DENY"
	EntryQueryResult   EntryType = "QUERY_RESULT"
	EntryMatchResult   EntryType = "MATCH_RESULT"
	EntryBranchStart   EntryType = "BRANCH_START"
	EntryBranchEnd     EntryType = "BRANCH_END"
	EntryContextPush   EntryType = "CONTEXT_PUSH"
	EntryContextPop    EntryType = "CONTEXT_POP"
	EntryConflict      EntryType = "CONFLICT"
	EntryError         EntryType = "ERROR"
	EntryBudget        EntryType = "BUDGET"
)

// Level is the trace verbosity filter.
type Level string

const (
	LevelMinimal  Level = "minimal"
	LevelStandard Level = "standard"
	LevelVerbose  Level = "verbose"
)

// levelRank orders verbosity so a higher level includes everything a lower
// level would record.
var levelRank = map[Level]int{LevelMinimal: 0, LevelStandard: 1, LevelVerbose: 2}

// entryMinLevel is the minimum verbosity at which each EntryType is kept.
var entryMinLevel = map[EntryType]Level{
	EntryInstruction: LevelVerbose,
	EntryFactAssert:  LevelMinimal,
	EntryFactDeny:    LevelMinimal,
	EntryQueryResult: LevelStandard,
	EntryMatchResult: LevelStandard,
	EntryBranchStart: LevelStandard,
	EntryBranchEnd:   LevelStandard,
	EntryContextPush: LevelStandard,
	EntryContextPop:  LevelStandard,
	EntryConflict:    LevelMinimal,
	EntryError:       LevelMinimal,
	EntryBudget:      LevelStandard,
}

// Entry is one recorded event.
type Entry struct {
	ID        int64
	Type      EntryType
	Timestamp time.Time
	Fields    map[string]any
}

// TraceRef is the opaque token returned to callers, identifying a
// contiguous range of log entries produced during one evaluation.
type TraceRef struct {
	SegmentID string
	Start     int64
	End       int64
}

// String renders the trace ref as an opaque token for inclusion in result
// objects.
func (r TraceRef) String() string {
	return base64.RawURLEncoding.EncodeToString([]byte(fmt.Sprintf("%s:%d:%d", r.SegmentID, r.Start, r.End)))
}

// Log is the append-only execution log.
type Log struct {
	mu      sync.Mutex
	level   Level
	entries []Entry
	nextID  int64
	nowFn   func() time.Time
}

// New creates a Log at the given verbosity level. nowFn is injectable for
// deterministic-replay mode; nil uses time.Now.
func New(level Level, nowFn func() time.Time) *Log {
	if nowFn == nil {
		nowFn = time.Now
	}
	return &Log{level: level, nowFn: nowFn}
}

// Record appends an entry if its type meets the configured verbosity
// level, returning the entry's ID (or 0 if filtered out).
func (l *Log) Record(t EntryType, fields map[string]any) int64 {
	min, ok := entryMinLevel[t]
	if !ok {
		min = LevelStandard
	}
	if levelRank[l.level] < levelRank[min] {
		return 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.nextID++
	id := l.nextID
	l.entries = append(l.entries, Entry{ID: id, Type: t, Timestamp: l.nowFn(), Fields: fields})
	return id
}

// Entries returns a copy of all recorded entries.
func (l *Log) Entries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// CreateTraceRef produces an opaque (segmentId, start, end) trace ref
// covering the given entry ID range.
func (l *Log) CreateTraceRef(startID, endID int64) TraceRef {
	return TraceRef{SegmentID: uuid.NewString(), Start: startID, End: endID}
}

// LastID returns the most recently assigned entry ID (0 if none yet, or
// all entries below the current level).
func (l *Log) LastID() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.nextID
}
