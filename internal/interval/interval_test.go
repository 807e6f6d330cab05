package interval

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(hour, min int) time.Time {
	return time.Date(2025, 6, 16, hour, min, 0, 0, time.UTC)
}

func TestOverlaps(t *testing.T) {
	a := Interval{Start: at(9, 0), End: at(10, 0)}

	assert.True(t, a.Overlaps(Interval{Start: at(9, 30), End: at(10, 30)}))
	assert.True(t, a.Overlaps(Interval{Start: at(8, 0), End: at(11, 0)}))
	// Touching intervals do not overlap: end is exclusive.
	assert.False(t, a.Overlaps(Interval{Start: at(10, 0), End: at(11, 0)}))
	assert.False(t, a.Overlaps(Interval{Start: at(8, 0), End: at(9, 0)}))
}

func TestFreeNoBusy(t *testing.T) {
	rng := Interval{Start: at(9, 0), End: at(17, 0)}
	free := Free(rng, nil, 10*time.Minute)

	require.Len(t, free, 1)
	assert.Equal(t, rng, free[0])
}

func TestFreeSingleBusyWithGap(t *testing.T) {
	rng := Interval{Start: at(9, 0), End: at(17, 0)}
	busy := []Interval{{Start: at(10, 0), End: at(11, 0)}}

	free := Free(rng, busy, 10*time.Minute)

	require.Len(t, free, 2)
	assert.Equal(t, Interval{Start: at(9, 0), End: at(9, 50)}, free[0])
	assert.Equal(t, Interval{Start: at(11, 10), End: at(17, 0)}, free[1])
}

func TestFreeBusyTilesRange(t *testing.T) {
	rng := Interval{Start: at(9, 0), End: at(12, 0)}
	busy := []Interval{
		{Start: at(9, 0), End: at(10, 30)},
		{Start: at(10, 30), End: at(12, 0)},
	}

	assert.Empty(t, Free(rng, busy, 0))
}

func TestFreeCloseBusyLeavesNoSlot(t *testing.T) {
	rng := Interval{Start: at(9, 0), End: at(17, 0)}
	// 15 minutes apart with a 10-minute gap on each side: nothing fits.
	busy := []Interval{
		{Start: at(10, 0), End: at(11, 0)},
		{Start: at(11, 15), End: at(12, 0)},
	}

	free := Free(rng, busy, 10*time.Minute)

	require.Len(t, free, 2)
	assert.Equal(t, at(9, 50), free[0].End)
	assert.Equal(t, at(12, 10), free[1].Start)
}

func TestFreeIgnoresBusyOutsideRange(t *testing.T) {
	rng := Interval{Start: at(9, 0), End: at(17, 0)}
	busy := []Interval{
		{Start: at(7, 0), End: at(8, 0)},
		{Start: at(18, 0), End: at(19, 0)},
	}

	free := Free(rng, busy, 10*time.Minute)

	require.Len(t, free, 1)
	assert.Equal(t, rng, free[0])
}

func TestFreeBusyStraddlesBoundary(t *testing.T) {
	rng := Interval{Start: at(9, 0), End: at(17, 0)}
	busy := []Interval{{Start: at(8, 0), End: at(9, 30)}}

	free := Free(rng, busy, 10*time.Minute)

	require.Len(t, free, 1)
	assert.Equal(t, at(9, 40), free[0].Start)
	assert.Equal(t, at(17, 0), free[0].End)
}

func TestFreeUnsortedBusy(t *testing.T) {
	rng := Interval{Start: at(9, 0), End: at(17, 0)}
	busy := []Interval{
		{Start: at(14, 0), End: at(15, 0)},
		{Start: at(10, 0), End: at(11, 0)},
	}

	free := Free(rng, busy, 0)

	require.Len(t, free, 3)
	assert.Equal(t, at(9, 0), free[0].Start)
	assert.Equal(t, at(11, 0), free[1].Start)
	assert.Equal(t, at(15, 0), free[2].Start)
}
