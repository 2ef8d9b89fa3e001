package term

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewSymbolIdTrimsWhitespaceNotCase(t *testing.T) {
	s := NewSymbolId("  Demo  ", " Widget ")
	require.Equal(t, "Demo", s.Namespace)
	require.Equal(t, "Widget", s.Name)
	require.Equal(t, "Demo:Widget", s.String())
}

func TestNewEntityIdOptionalVersion(t *testing.T) {
	e := NewEntityId("git", "abc123", "")
	require.Equal(t, "git/abc123", e.String())

	e2 := NewEntityId("git", "abc123", "v2")
	require.Equal(t, "git/abc123@v2", e2.String())
}

func TestTimeRefOverlaps(t *testing.T) {
	a := Instant(1000, PrecisionSecond)
	b := Instant(1000, PrecisionSecond)
	require.True(t, Overlaps(a, b))

	c := Instant(1000, PrecisionMillisecond)
	require.False(t, Overlaps(a, c), "mixed precision instants never overlap")

	i1 := Interval(0, 5000, PrecisionSecond)
	i2 := Interval(4000, 9000, PrecisionSecond)
	require.True(t, Overlaps(i1, i2))

	i3 := Interval(6000, 9000, PrecisionSecond)
	require.False(t, Overlaps(i1, i3))

	require.False(t, Overlaps(Unknown(), a))
}

func TestIntervalSwapsOutOfOrderEndpoints(t *testing.T) {
	iv := Interval(500, 100, PrecisionSecond)
	require.Equal(t, int64(100), iv.StartMs)
	require.Equal(t, int64(500), iv.EndMs)
}

func TestNormalizeTimeTruncatesToPrecision(t *testing.T) {
	tr := Instant(1234567, PrecisionSecond)
	norm := NormalizeTime(tr)
	require.Equal(t, int64(1234000), norm.EpochMs)
}

func TestNormalizeTimeLeavesRelativeAndUnknownUnchanged(t *testing.T) {
	rel := Relative("now", -500, PrecisionMinute)
	require.Equal(t, rel, NormalizeTime(rel))
	require.Equal(t, Unknown(), NormalizeTime(Unknown()))
}
