// Package sanitize validates and repairs reschedule operations proposed by
// the assistant so they are future, inside the owning day's working window,
// and free of collisions with existing events and with each other.
package sanitize

import (
	"fmt"
	"io"
	"log/slog"
	"sort"
	"time"

	"github.com/mkarlsen/blockr/internal/clock"
	"github.com/mkarlsen/blockr/internal/interval"
	"github.com/mkarlsen/blockr/internal/schedule"
)

// Sanitizer holds the per-user settings a batch is validated against. It is
// stateless across calls; every Sanitize call works on its own snapshot.
type Sanitizer struct {
	cfg          schedule.WindowConfig
	clock        *clock.Clock
	blockMinutes int
	gapMinutes   int
	logger       *slog.Logger
}

func New(cfg schedule.WindowConfig, c *clock.Clock, blockMinutes, gapMinutes int, logger *slog.Logger) *Sanitizer {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Sanitizer{
		cfg:          cfg,
		clock:        c,
		blockMinutes: blockMinutes,
		gapMinutes:   gapMinutes,
		logger:       logger,
	}
}

// Sanitize resolves, clamps and de-conflicts a batch of operations against
// the busy snapshot. Individually bad operations are dropped with a reason;
// the batch never fails as a whole. Conflicts that cannot be pushed clear
// of the window are delivered flagged rather than dropped.
func (s *Sanitizer) Sanitize(ops []Operation, busy []BusySlot) BatchResult {
	now := s.clock.Now()
	var res BatchResult

	for _, op := range ops {
		switch op.Kind {
		case KindDelete:
			if op.BlockID == "" {
				res.drop(s.logger, op, "delete without block_id")
				continue
			}
			res.Ops = append(res.Ops, Sanitized{Operation: op})
		case KindMove:
			san, reason := s.sanitizeMove(op, busy, now)
			if reason != "" {
				res.drop(s.logger, op, reason)
				continue
			}
			res.Ops = append(res.Ops, san)
		case KindCreate:
			san, reason := s.sanitizeCreate(op, now)
			if reason != "" {
				res.drop(s.logger, op, reason)
				continue
			}
			res.Ops = append(res.Ops, san)
		default:
			res.drop(s.logger, op, fmt.Sprintf("unknown kind %q", op.Kind))
		}
	}

	s.reconcile(&res)
	return res
}

func (r *BatchResult) drop(logger *slog.Logger, op Operation, reason string) {
	logger.Warn("dropping operation", "kind", op.Kind, "block_id", op.BlockID, "reason", reason)
	r.Dropped = append(r.Dropped, Dropped{Operation: op, Reason: reason})
}

func (s *Sanitizer) sanitizeMove(op Operation, busy []BusySlot, now time.Time) (Sanitized, string) {
	if op.BlockID == "" {
		return Sanitized{}, "move without block_id"
	}
	if op.To == "" {
		return Sanitized{}, "move without target time"
	}
	san := Sanitized{Operation: op, Minutes: s.moveMinutes(op.BlockID, busy)}

	// From only documents the prior position; confirm it parses, nothing more.
	if op.From != "" {
		if _, err := s.resolve(op.From, now); err != nil {
			san.note(fmt.Sprintf("ignoring unparsable from %q", op.From))
		}
	}

	target, err := s.resolve(op.To, now)
	if err != nil {
		return Sanitized{}, err.Error()
	}
	if !target.After(now) {
		return Sanitized{}, fmt.Sprintf("target %s is not in the future", target.Format(time.RFC3339))
	}

	win, ok := schedule.WindowFor(target, s.cfg, s.clock)
	if !ok {
		// No window to clamp into. Deliver as resolved and let the caller
		// confirm the out-of-hours time.
		san.ResolvedTo = target
		san.flag(FlagOutsideWindow)
		return san, ""
	}

	clamped := clampInstant(target, win)
	if !clamped.After(now) {
		// The day's window is already behind now; clamping into it would
		// deliver a start in the past. Roll to the next working day.
		next, ok := s.nextOpenWindow(clamped)
		if !ok {
			return Sanitized{}, "no working day to move into"
		}
		san.note(fmt.Sprintf("working hours on %s already over, moved to %s",
			s.clock.DayKey(clamped), s.clock.DayKey(next.Start)))
		win = next
		clamped = clampInstant(target, win)
	}
	if !clamped.Equal(target) {
		san.note(fmt.Sprintf("clamped into %s working window", s.clock.DayKey(clamped)))
	}
	san.ResolvedTo = clamped
	s.searchSlot(&san, win, busy, now)
	return san, ""
}

func (s *Sanitizer) sanitizeCreate(op Operation, now time.Time) (Sanitized, string) {
	if op.Start == "" {
		return Sanitized{}, "create without start time"
	}
	start, err := s.resolve(op.Start, now)
	if err != nil {
		return Sanitized{}, err.Error()
	}
	if !start.After(now) {
		return Sanitized{}, fmt.Sprintf("start %s is not in the future", start.Format(time.RFC3339))
	}

	dur := time.Duration(s.blockMinutes) * time.Minute
	if op.End != "" {
		if end, err := s.resolve(op.End, now); err == nil && end.After(start) {
			dur = end.Sub(start)
		}
	}
	san := Sanitized{Operation: op, Minutes: int(dur.Minutes())}

	win, ok := schedule.WindowFor(start, s.cfg, s.clock)
	if !ok {
		san.ResolvedStart = start
		san.ResolvedEnd = start.Add(dur)
		san.flag(FlagOutsideWindow)
		return san, ""
	}

	clamped, end, trimmed := fitWindow(start, dur, win)
	if !clamped.After(now) {
		// Pulling the start back to fit crossed now; the rest of the day
		// cannot host the block. Roll to the next working day.
		next, ok := s.nextOpenWindow(clamped)
		if !ok {
			return Sanitized{}, "no working day to create into"
		}
		san.note(fmt.Sprintf("working hours on %s already over, moved to %s",
			s.clock.DayKey(clamped), s.clock.DayKey(next.Start)))
		clamped, end, trimmed = fitWindow(next.Start, dur, next)
	}
	if trimmed {
		san.note("duration trimmed to working window")
	}
	if !clamped.Equal(start) {
		san.note(fmt.Sprintf("clamped into %s working window", s.clock.DayKey(clamped)))
	}
	san.ResolvedStart = clamped
	san.ResolvedEnd = end
	san.Minutes = int(end.Sub(clamped).Minutes())
	return san, ""
}

// fitWindow clamps start into win and keeps the duration ending inside the
// window, pulling the start back when needed. A window shorter than the
// duration trims to the window itself; the last return reports the trim.
func fitWindow(start time.Time, dur time.Duration, win interval.Interval) (time.Time, time.Time, bool) {
	clamped := clampInstant(start, win)
	end := clamped.Add(dur)
	if !end.After(win.End) {
		return clamped, end, false
	}
	clamped = win.End.Add(-dur)
	if clamped.Before(win.Start) {
		return win.Start, win.End, true
	}
	return clamped, win.End, false
}

// nextOpenWindow returns the working window of the first enabled day after
// t's calendar day, or false when the whole following week is disabled.
func (s *Sanitizer) nextOpenWindow(t time.Time) (interval.Interval, bool) {
	for i := 1; i <= 7; i++ {
		day := s.clock.StartOfDay(t).AddDate(0, 0, i)
		if win, ok := schedule.WindowFor(day, s.cfg, s.clock); ok {
			return win, true
		}
	}
	return interval.Interval{}, false
}

// moveMinutes returns the duration a moved block occupies: its known span
// when the snapshot has it, the configured block length otherwise.
func (s *Sanitizer) moveMinutes(blockID string, busy []BusySlot) int {
	for _, b := range busy {
		if b.BlockID != "" && b.BlockID == blockID {
			return b.Span.Minutes()
		}
	}
	return s.blockMinutes
}

func clampInstant(t time.Time, win interval.Interval) time.Time {
	if t.Before(win.Start) {
		return win.Start
	}
	if !t.Before(win.End) {
		return win.End
	}
	return t
}

// searchSlot moves san's start to the first collision-free time on its day
// that fits before the window end: the clamped time if already valid,
// otherwise the window start or the first gap after an occupied range.
// Candidates at or before now are never accepted, so a partially elapsed
// day cannot rewind the start into the past. When nothing fits, the clamped
// time is kept and flagged.
func (s *Sanitizer) searchSlot(san *Sanitized, win interval.Interval, busy []BusySlot, now time.Time) {
	dur := time.Duration(san.Minutes) * time.Minute
	gap := time.Duration(s.gapMinutes) * time.Minute
	occupied := s.dayOccupancy(s.clock.DayKey(san.ResolvedTo), san.BlockID, busy)

	valid := func(start time.Time) bool {
		if !start.After(now) {
			return false
		}
		if start.Before(win.Start) || start.Add(dur).After(win.End) {
			return false
		}
		// The gap applies on both sides, same as placement.
		span := interval.Interval{Start: start.Add(-gap), End: start.Add(dur).Add(gap)}
		for _, occ := range occupied {
			if span.Overlaps(occ) {
				return false
			}
		}
		return true
	}

	if valid(san.ResolvedTo) {
		return
	}

	candidates := []time.Time{win.Start, san.ResolvedTo}
	for _, occ := range occupied {
		candidates = append(candidates, occ.End.Add(gap))
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].Before(candidates[j]) })

	for _, cand := range candidates {
		if valid(cand) {
			if !cand.Equal(san.ResolvedTo) {
				san.note(fmt.Sprintf("moved to next free slot at %s", cand.Format("15:04")))
				san.ResolvedTo = cand
			}
			return
		}
	}

	s.logger.Warn("no free slot on day", "block_id", san.BlockID, "day", s.clock.DayKey(san.ResolvedTo))
	san.flag(FlagConflict)
}

// dayOccupancy collects occupied ranges on one day, excluding the block
// being moved. Allocated per call; nothing is shared across invocations.
func (s *Sanitizer) dayOccupancy(dayKey, excludeBlockID string, busy []BusySlot) []interval.Interval {
	var occ []interval.Interval
	for _, b := range busy {
		if excludeBlockID != "" && b.BlockID == excludeBlockID {
			continue
		}
		if s.clock.DayKey(b.Span.Start) != dayKey {
			continue
		}
		occ = append(occ, b.Span)
	}
	sort.Slice(occ, func(i, j int) bool { return occ[i].Start.Before(occ[j].Start) })
	return occ
}

// reconcile is the batch-level second pass: operations that were clamped
// independently can land on top of each other. Within each day, later
// entries are pushed past earlier ones by the gap; an entry that would be
// pushed out of its window keeps the overlap and is flagged instead of
// being dropped.
func (s *Sanitizer) reconcile(res *BatchResult) {
	gap := time.Duration(s.gapMinutes) * time.Minute

	byDay := make(map[string][]*Sanitized)
	for i := range res.Ops {
		op := &res.Ops[i]
		if op.Kind != KindMove && op.Kind != KindCreate {
			continue
		}
		key := s.clock.DayKey(op.start())
		byDay[key] = append(byDay[key], op)
	}

	for _, day := range byDay {
		sort.Slice(day, func(i, j int) bool { return day[i].start().Before(day[j].start()) })

		prevEnd := day[0].span().End
		for i := 1; i < len(day); i++ {
			op := day[i]
			if op.start().Before(prevEnd.Add(gap)) {
				pushed := prevEnd.Add(gap)
				win, ok := schedule.WindowFor(pushed, s.cfg, s.clock)
				if ok && pushed.Add(time.Duration(op.Minutes)*time.Minute).After(win.End) {
					s.logger.Warn("overlapping operations exceed window, keeping overlap",
						"block_id", op.BlockID, "day", s.clock.DayKey(op.start()))
					op.flag(FlagConflict)
				} else {
					op.setStart(pushed)
					op.note(fmt.Sprintf("pushed to %s to clear an earlier change", pushed.Format("15:04")))
				}
			}
			if end := op.span().End; end.After(prevEnd) {
				prevEnd = end
			}
		}
	}
}
