package interval

import (
	"sort"
	"time"
)

// Interval is a half-open time range [Start, End). End is exclusive for
// adjacency: a block ending at 10:00 does not collide with one starting at
// 10:00 (gap rules aside).
type Interval struct {
	Start time.Time
	End   time.Time
}

// Duration returns End - Start.
func (iv Interval) Duration() time.Duration {
	return iv.End.Sub(iv.Start)
}

// Minutes returns the interval length in whole minutes.
func (iv Interval) Minutes() int {
	return int(iv.Duration().Minutes())
}

// Overlaps reports whether two intervals share any time.
func (iv Interval) Overlaps(other Interval) bool {
	return iv.Start.Before(other.End) && iv.End.After(other.Start)
}

// Contains reports whether t falls inside the interval.
func (iv Interval) Contains(t time.Time) bool {
	return !t.Before(iv.Start) && t.Before(iv.End)
}

// IsZero reports whether the interval carries no time at all.
func (iv Interval) IsZero() bool {
	return iv.Start.IsZero() && iv.End.IsZero()
}

// Free subtracts busy intervals from rng and returns the remaining free
// intervals, sorted by start. A buffer of gap is kept on both sides of every
// busy interval, so two busy intervals closer than 2*gap leave no free slot
// between them.
func Free(rng Interval, busy []Interval, gap time.Duration) []Interval {
	relevant := make([]Interval, 0, len(busy))
	for _, b := range busy {
		if b.Overlaps(rng) {
			relevant = append(relevant, b)
		}
	}
	sort.Slice(relevant, func(i, j int) bool {
		return relevant[i].Start.Before(relevant[j].Start)
	})

	var free []Interval
	cursor := rng.Start
	for _, b := range relevant {
		slotEnd := b.Start.Add(-gap)
		if cursor.Before(slotEnd) {
			free = append(free, Interval{Start: cursor, End: slotEnd})
		}
		if after := b.End.Add(gap); after.After(cursor) {
			cursor = after
		}
	}
	if cursor.Before(rng.End) {
		free = append(free, Interval{Start: cursor, End: rng.End})
	}
	return free
}
