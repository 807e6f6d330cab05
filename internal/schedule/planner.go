package schedule

import (
	"math"
	"sort"
	"time"

	"github.com/mkarlsen/blockr/internal/clock"
	"github.com/mkarlsen/blockr/internal/interval"
)

// dayState is the per-run accumulator for one schedulable day. It lives on
// the call stack of a single Plan run; nothing is shared across calls.
type dayState struct {
	key      string
	date     time.Time
	window   interval.Interval
	free     []interval.Interval
	capacity int
	usage    int
	usedBy   map[string]bool
}

func (d *dayState) utilization() float64 {
	if d.capacity == 0 {
		return 1
	}
	return float64(d.usage) / float64(d.capacity)
}

// Plan places focus blocks for the given goals into the free time of
// [weekStart, weekEnd), one goal at a time, balancing load across days.
// Goals that cannot be fully placed are reported as shortfalls rather than
// failing the run.
func Plan(goals []Goal, cfg WindowConfig, busy []interval.Interval, weekStart, weekEnd time.Time, blockMinutes, gapMinutes int, c *clock.Clock) (Result, error) {
	if err := cfg.Validate(); err != nil {
		return Result{}, err
	}
	gap := time.Duration(gapMinutes) * time.Minute

	var days []*dayState
	for date := c.StartOfDay(weekStart); date.Before(weekEnd); date = date.AddDate(0, 0, 1) {
		win, ok := WindowFor(date, cfg, c)
		if !ok {
			continue
		}
		free := interval.Free(win, busy, gap)
		capacity := 0
		for _, slot := range free {
			// Whole blocks only, counting the gap consumed between
			// consecutive blocks in the same slot.
			n := (slot.Minutes() + gapMinutes) / (blockMinutes + gapMinutes)
			capacity += n * blockMinutes
		}
		if capacity == 0 {
			continue
		}
		days = append(days, &dayState{
			key:      c.DayKey(date),
			date:     date,
			window:   win,
			free:     free,
			capacity: capacity,
			usedBy:   make(map[string]bool),
		})
	}
	sort.Slice(days, func(i, j int) bool { return days[i].key < days[j].key })

	res := Result{}
	for _, d := range days {
		res.AvailableMinutes += d.capacity
	}
	for _, g := range goals {
		res.RequestedMinutes += g.TargetMinutes
	}

	if len(days) == 0 {
		for _, g := range goals {
			res.Shortfalls = append(res.Shortfalls, Shortfall{GoalID: g.ID, GoalName: g.Name, MissingMinutes: g.TargetMinutes})
		}
		return res, nil
	}

	// Preference-bearing goals are harder to place and pick slots first;
	// then bigger targets before smaller.
	order := append([]Goal(nil), goals...)
	sort.SliceStable(order, func(i, j int) bool {
		pi, pj := order[i].Preferred != nil, order[j].Preferred != nil
		if pi != pj {
			return pi
		}
		return order[i].TargetMinutes > order[j].TargetMinutes
	})

	var proposed []Block
	for _, g := range order {
		sessions, dur := g.sessionPlan(blockMinutes)
		if sessions <= 0 || dur <= 0 {
			continue
		}
		ideal := idealDays(days, sessions)

		placed := 0
		for placed < sessions {
			cands := append([]*dayState(nil), days...)
			sort.SliceStable(cands, func(i, j int) bool {
				di, dj := cands[i], cands[j]
				// Days this goal has not touched yet come first.
				if ui, uj := di.usedBy[g.ID], dj.usedBy[g.ID]; ui != uj {
					return !ui
				}
				if ii, ij := ideal[di.key], ideal[dj.key]; ii != ij {
					return ii
				}
				if diff := di.utilization() - dj.utilization(); diff < -0.1 {
					return true
				} else if diff > 0.1 {
					return false
				}
				return di.key < dj.key
			})

			var block *Block
			for _, d := range cands {
				if b, ok := placeOnDay(g, d, dur, proposed, busy, gap, c); ok {
					d.usage += b.Minutes
					d.usedBy[g.ID] = true
					block = &b
					break
				}
			}
			if block == nil {
				// No day accepted a block; trying again would loop forever.
				break
			}
			proposed = append(proposed, *block)
			placed++
		}
		if placed < sessions {
			res.Shortfalls = append(res.Shortfalls, Shortfall{
				GoalID:         g.ID,
				GoalName:       g.Name,
				MissingMinutes: (sessions - placed) * dur,
			})
		}
	}

	sort.Slice(proposed, func(i, j int) bool { return proposed[i].Start.Before(proposed[j].Start) })
	res.Blocks = proposed
	return res, nil
}

// idealDays spreads the target session count evenly across the sorted day
// list so sessions don't cluster at the start of the week.
func idealDays(days []*dayState, sessions int) map[string]bool {
	ideal := make(map[string]bool, sessions)
	if sessions >= len(days) {
		for _, d := range days {
			ideal[d.key] = true
		}
		return ideal
	}
	for i := 0; i < sessions; i++ {
		ideal[days[i*len(days)/sessions].key] = true
	}
	return ideal
}

// placeOnDay scans the day's free slots (and the goal's preferred range,
// when it is clear of busy time) in 15-minute steps and returns the best
// scoring block that doesn't touch anything already proposed this run.
func placeOnDay(g Goal, d *dayState, durMinutes int, proposed []Block, busy []interval.Interval, gap time.Duration, c *clock.Clock) (Block, bool) {
	dur := time.Duration(durMinutes) * time.Minute

	slots := append([]interval.Interval(nil), d.free...)
	var pref interval.Interval
	if g.Preferred != nil {
		sh, sm, err1 := ParseHHMM(g.Preferred.Start)
		eh, em, err2 := ParseHHMM(g.Preferred.End)
		if err1 == nil && err2 == nil {
			pref = interval.Interval{Start: c.At(d.date, sh, sm), End: c.At(d.date, eh, em)}
			clear := true
			for _, b := range busy {
				if pref.Overlaps(b) {
					clear = false
					break
				}
			}
			// The preferred range is scanned even outside the working
			// window, as long as nothing busy sits inside it.
			if clear {
				slots = append(slots, pref)
			}
		}
	}

	bestScore := math.MinInt
	var bestStart time.Time
	for _, slot := range slots {
		for start := slot.Start; !start.Add(dur).After(slot.End); start = start.Add(candidateStep) {
			buffered := interval.Interval{Start: start.Add(-gap), End: start.Add(dur).Add(gap)}
			conflict := false
			for _, p := range proposed {
				if buffered.Overlaps(interval.Interval{Start: p.Start, End: p.End}) {
					conflict = true
					break
				}
			}
			if conflict {
				continue
			}
			score := scoreCandidate(start, dur, pref, c)
			if score > bestScore || (score == bestScore && start.Before(bestStart)) {
				bestScore = score
				bestStart = start
			}
		}
	}
	if bestScore == math.MinInt {
		return Block{}, false
	}
	return Block{
		GoalID:   g.ID,
		GoalName: g.Name,
		Start:    bestStart,
		End:      bestStart.Add(dur),
		Minutes:  durMinutes,
	}, true
}
