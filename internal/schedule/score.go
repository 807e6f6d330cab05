package schedule

import (
	"time"

	"github.com/mkarlsen/blockr/internal/clock"
	"github.com/mkarlsen/blockr/internal/interval"
)

const (
	baseScore          = 100
	preferredHit       = 2000
	preferredMiss      = -500
	midDayBonus        = 50
	offHoursPenalty    = -20
	candidateStep      = 15 * time.Minute
	midDayStartMinutes = 10 * 60
	midDayEndMinutes   = 16 * 60
	earlyMinutes       = 8 * 60
	lateMinutes        = 19 * 60
)

// scoreCandidate rates a candidate block start. preferred is the goal's
// preferred range projected onto the candidate's day, or zero when the goal
// has none. Higher is better; the caller breaks ties by earliest start.
func scoreCandidate(start time.Time, d time.Duration, preferred interval.Interval, c *clock.Clock) int {
	score := baseScore

	if !preferred.IsZero() {
		if !start.Before(preferred.Start) && !start.Add(d).After(preferred.End) {
			return score + preferredHit
		}
		return score + preferredMiss
	}

	wc := c.WallClockOf(start)
	m := wc.Hour*60 + wc.Minute
	if m >= midDayStartMinutes && m < midDayEndMinutes {
		score += midDayBonus
	}
	if m < earlyMinutes || m > lateMinutes {
		score += offHoursPenalty
	}
	return score
}
