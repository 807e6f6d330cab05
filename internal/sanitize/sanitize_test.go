package sanitize

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkarlsen/blockr/internal/clock"
	"github.com/mkarlsen/blockr/internal/interval"
	"github.com/mkarlsen/blockr/internal/schedule"
)

// Monday 2025-06-16 08:00 UTC.
var testNow = time.Date(2025, 6, 16, 8, 0, 0, 0, time.UTC)

func testSanitizerAt(t *testing.T, now time.Time) *Sanitizer {
	t.Helper()
	c, err := clock.New("UTC")
	require.NoError(t, err)
	c.Now = func() time.Time { return now }

	cfg := schedule.WindowConfig{}
	for _, d := range []string{"monday", "tuesday", "wednesday", "thursday", "friday"} {
		cfg[d] = schedule.DayWindow{Enabled: true, Start: "09:00", End: "17:00"}
	}
	cfg["saturday"] = schedule.DayWindow{Enabled: false}
	cfg["sunday"] = schedule.DayWindow{Enabled: false}

	return New(cfg, c, 60, 10, nil)
}

func testSanitizer(t *testing.T) *Sanitizer {
	t.Helper()
	return testSanitizerAt(t, testNow)
}

func day(d, hour, min int) time.Time {
	return time.Date(2025, 6, d, hour, min, 0, 0, time.UTC)
}

func TestSanitizeDropsPastTargets(t *testing.T) {
	s := testSanitizer(t)

	res := s.Sanitize([]Operation{
		{Kind: KindMove, BlockID: "b1", To: "2025-06-16T07:00"},
		{Kind: KindCreate, Start: "2024-01-01T10:00"},
	}, nil)

	assert.Empty(t, res.Ops)
	require.Len(t, res.Dropped, 2)
	assert.Equal(t, "b1", res.Dropped[0].BlockID)
	assert.Contains(t, res.Dropped[0].Reason, "not in the future")
}

func TestSanitizeDropsMissingFields(t *testing.T) {
	s := testSanitizer(t)

	res := s.Sanitize([]Operation{
		{Kind: KindMove, To: "tuesday"},
		{Kind: KindMove, BlockID: "b1"},
		{Kind: KindCreate},
		{Kind: KindDelete},
		{Kind: Kind("explode")},
	}, nil)

	assert.Empty(t, res.Ops)
	assert.Len(t, res.Dropped, 5)
}

func TestSanitizeDeletePassesThrough(t *testing.T) {
	s := testSanitizer(t)

	res := s.Sanitize([]Operation{{Kind: KindDelete, BlockID: "b1"}}, nil)

	require.Len(t, res.Ops, 1)
	assert.Empty(t, res.Ops[0].Flags)
}

func TestSanitizeMoveValidTargetKept(t *testing.T) {
	s := testSanitizer(t)

	res := s.Sanitize([]Operation{
		{Kind: KindMove, BlockID: "b1", From: "2025-06-16T09:00", To: "2025-06-17T11:30"},
	}, nil)

	require.Len(t, res.Ops, 1)
	op := res.Ops[0]
	assert.True(t, op.ResolvedTo.Equal(day(17, 11, 30)))
	assert.Equal(t, 60, op.Minutes)
	assert.Empty(t, op.Flags)
}

func TestSanitizeMoveUnparsableFromIsNoted(t *testing.T) {
	s := testSanitizer(t)

	res := s.Sanitize([]Operation{
		{Kind: KindMove, BlockID: "b1", From: "whenever it was", To: "2025-06-17T11:30"},
	}, nil)

	require.Len(t, res.Ops, 1)
	assert.NotEmpty(t, res.Ops[0].Notes)
}

func TestSanitizeMoveClampsIntoWindow(t *testing.T) {
	s := testSanitizer(t)

	res := s.Sanitize([]Operation{
		{Kind: KindMove, BlockID: "b1", To: "2025-06-17T06:15"},
	}, nil)

	require.Len(t, res.Ops, 1)
	assert.True(t, res.Ops[0].ResolvedTo.Equal(day(17, 9, 0)), "got %s", res.Ops[0].ResolvedTo)
	assert.Empty(t, res.Ops[0].Flags)
}

func TestSanitizeMoveCollisionFindsNextSlot(t *testing.T) {
	s := testSanitizer(t)
	busy := []BusySlot{
		// Foreign events keep the morning occupied.
		{Span: interval.Interval{Start: day(17, 9, 0), End: day(17, 10, 0)}},
		{Span: interval.Interval{Start: day(17, 10, 30), End: day(17, 11, 0)}},
	}

	res := s.Sanitize([]Operation{
		{Kind: KindMove, BlockID: "b1", To: "2025-06-17T09:30"},
	}, busy)

	require.Len(t, res.Ops, 1)
	op := res.Ops[0]
	// Window start and 10:10 are both occupied; first free candidate is
	// 11:00 + gap.
	assert.True(t, op.ResolvedTo.Equal(day(17, 11, 10)), "got %s", op.ResolvedTo)
	assert.Empty(t, op.Flags)
}

func TestSanitizeMoveAfterWindowCloseRollsForward(t *testing.T) {
	// Monday evening, after the working window already ended.
	s := testSanitizerAt(t, day(16, 18, 0))

	res := s.Sanitize([]Operation{
		{Kind: KindMove, BlockID: "b1", To: "2025-06-16T19:00"},
	}, nil)

	require.Len(t, res.Ops, 1)
	op := res.Ops[0]
	// Clamping into Monday's window would land at 17:00, an hour in the
	// past; the move rolls to Tuesday's window start instead.
	assert.True(t, op.ResolvedTo.Equal(day(17, 9, 0)), "got %s", op.ResolvedTo)
	assert.Empty(t, op.Flags)
	assert.NotEmpty(t, op.Notes)
}

func TestSanitizeMoveNeverRewindsPastNow(t *testing.T) {
	// Monday noon; the whole afternoon is occupied, the morning is free but
	// already behind now.
	s := testSanitizerAt(t, day(16, 12, 0))
	busy := []BusySlot{
		{Span: interval.Interval{Start: day(16, 13, 0), End: day(16, 17, 0)}},
	}

	res := s.Sanitize([]Operation{
		{Kind: KindMove, BlockID: "b1", To: "2025-06-16T13:30"},
	}, busy)

	require.Len(t, res.Ops, 1)
	op := res.Ops[0]
	assert.True(t, op.ResolvedTo.After(day(16, 12, 0)), "got %s", op.ResolvedTo)
	assert.Contains(t, op.Flags, FlagConflict)
}

func TestSanitizeMoveKeepsGapBeforeBusy(t *testing.T) {
	s := testSanitizer(t)
	busy := []BusySlot{
		{Span: interval.Interval{Start: day(17, 9, 0), End: day(17, 11, 0)}},
	}

	res := s.Sanitize([]Operation{
		{Kind: KindMove, BlockID: "b1", To: "2025-06-17T11:05"},
	}, busy)

	require.Len(t, res.Ops, 1)
	op := res.Ops[0]
	// 11:05 does not overlap the meeting but sits inside the gap after it.
	assert.True(t, op.ResolvedTo.Equal(day(17, 11, 10)), "got %s", op.ResolvedTo)
	assert.Empty(t, op.Flags)
}

func TestSanitizeMoveIgnoresOwnSpan(t *testing.T) {
	s := testSanitizer(t)
	busy := []BusySlot{
		{BlockID: "b1", Span: interval.Interval{Start: day(17, 9, 0), End: day(17, 10, 0)}},
	}

	res := s.Sanitize([]Operation{
		{Kind: KindMove, BlockID: "b1", To: "2025-06-17T09:30"},
	}, busy)

	require.Len(t, res.Ops, 1)
	assert.True(t, res.Ops[0].ResolvedTo.Equal(day(17, 9, 30)))
	assert.Empty(t, res.Ops[0].Flags)
}

func TestSanitizeMoveFullDayConflict(t *testing.T) {
	s := testSanitizer(t)
	busy := []BusySlot{
		{Span: interval.Interval{Start: day(17, 9, 0), End: day(17, 16, 30)}},
	}

	res := s.Sanitize([]Operation{
		{Kind: KindMove, BlockID: "b1", To: "2025-06-17T10:00"},
	}, busy)

	require.Len(t, res.Ops, 1)
	// Nothing fits; the clamped time is kept and flagged for the caller.
	assert.Contains(t, res.Ops[0].Flags, FlagConflict)
	assert.True(t, res.Ops[0].ResolvedTo.Equal(day(17, 10, 0)))
}

func TestSanitizeMoveDisabledWeekday(t *testing.T) {
	s := testSanitizer(t)

	res := s.Sanitize([]Operation{
		{Kind: KindMove, BlockID: "b1", To: "saturday"},
	}, nil)

	require.Len(t, res.Ops, 1)
	op := res.Ops[0]
	// Next Saturday at the default hour, delivered unclamped but flagged.
	assert.True(t, op.ResolvedTo.Equal(day(21, 9, 0)), "got %s", op.ResolvedTo)
	assert.Contains(t, op.Flags, FlagOutsideWindow)
}

func TestSanitizeMoveWeekdayUsesWindowStart(t *testing.T) {
	s := testSanitizer(t)

	res := s.Sanitize([]Operation{
		{Kind: KindMove, BlockID: "b1", To: "friday"},
	}, nil)

	require.Len(t, res.Ops, 1)
	assert.True(t, res.Ops[0].ResolvedTo.Equal(day(20, 9, 0)))
	assert.Empty(t, res.Ops[0].Flags)
}

func TestSanitizeMoveRelativePhrase(t *testing.T) {
	s := testSanitizer(t)

	res := s.Sanitize([]Operation{
		{Kind: KindMove, BlockID: "b1", To: "tomorrow at 10am"},
	}, nil)

	require.Len(t, res.Ops, 1)
	assert.True(t, res.Ops[0].ResolvedTo.Equal(day(17, 10, 0)), "got %s", res.Ops[0].ResolvedTo)
}

func TestSanitizeCreateReappliesDuration(t *testing.T) {
	s := testSanitizer(t)

	res := s.Sanitize([]Operation{
		{Kind: KindCreate, GoalName: "Writing", Start: "2025-06-17T16:30", End: "2025-06-17T18:00"},
	}, nil)

	require.Len(t, res.Ops, 1)
	op := res.Ops[0]
	// 90 minutes no longer fit at 16:30; the start is pulled back so the
	// full duration ends at the window edge.
	assert.True(t, op.ResolvedStart.Equal(day(17, 15, 30)), "got %s", op.ResolvedStart)
	assert.True(t, op.ResolvedEnd.Equal(day(17, 17, 0)))
	assert.Equal(t, 90, op.Minutes)
}

func TestSanitizeCreateDefaultsDuration(t *testing.T) {
	s := testSanitizer(t)

	res := s.Sanitize([]Operation{
		{Kind: KindCreate, GoalName: "Writing", Start: "2025-06-17T10:00"},
	}, nil)

	require.Len(t, res.Ops, 1)
	assert.Equal(t, 60, res.Ops[0].Minutes)
	assert.True(t, res.Ops[0].ResolvedEnd.Equal(day(17, 11, 0)))
}

func TestSanitizeCreateWindowShorterThanDuration(t *testing.T) {
	c, err := clock.New("UTC")
	require.NoError(t, err)
	c.Now = func() time.Time { return testNow }
	cfg := schedule.WindowConfig{
		"tuesday": {Enabled: true, Start: "09:00", End: "10:00"},
	}
	s := New(cfg, c, 60, 10, nil)

	res := s.Sanitize([]Operation{
		{Kind: KindCreate, GoalName: "Writing", Start: "2025-06-17T09:00", End: "2025-06-17T12:00"},
	}, nil)

	require.Len(t, res.Ops, 1)
	op := res.Ops[0]
	assert.True(t, op.ResolvedStart.Equal(day(17, 9, 0)))
	assert.True(t, op.ResolvedEnd.Equal(day(17, 10, 0)))
	assert.Equal(t, 60, op.Minutes)
}

func TestSanitizeCreateEveningPullbackRollsForward(t *testing.T) {
	// Monday 16:45; a 60-minute block requested at 16:50 would be pulled
	// back to 16:00, which is already past.
	s := testSanitizerAt(t, day(16, 16, 45))

	res := s.Sanitize([]Operation{
		{Kind: KindCreate, GoalName: "Writing", Start: "2025-06-16T16:50"},
	}, nil)

	require.Len(t, res.Ops, 1)
	op := res.Ops[0]
	assert.True(t, op.ResolvedStart.Equal(day(17, 9, 0)), "got %s", op.ResolvedStart)
	assert.True(t, op.ResolvedEnd.Equal(day(17, 10, 0)))
	assert.Equal(t, 60, op.Minutes)
}

func TestReconcilePushesColliders(t *testing.T) {
	s := testSanitizer(t)

	res := s.Sanitize([]Operation{
		{Kind: KindCreate, GoalName: "A", Start: "2025-06-18T10:00", End: "2025-06-18T11:00"},
		{Kind: KindCreate, GoalName: "B", Start: "2025-06-18T10:00", End: "2025-06-18T11:00"},
	}, nil)

	require.Len(t, res.Ops, 2)
	first, second := res.Ops[0], res.Ops[1]
	if first.ResolvedStart.After(second.ResolvedStart) {
		first, second = second, first
	}
	assert.True(t, first.ResolvedStart.Equal(day(18, 10, 0)))
	assert.True(t, second.ResolvedStart.Equal(day(18, 11, 10)), "got %s", second.ResolvedStart)
	assert.Empty(t, second.Flags)
}

func TestReconcileKeepsOverflowingConflict(t *testing.T) {
	s := testSanitizer(t)

	res := s.Sanitize([]Operation{
		{Kind: KindCreate, GoalName: "A", Start: "2025-06-18T16:00", End: "2025-06-18T17:00"},
		{Kind: KindCreate, GoalName: "B", Start: "2025-06-18T16:00", End: "2025-06-18T17:00"},
	}, nil)

	require.Len(t, res.Ops, 2)
	var flagged *Sanitized
	for i := range res.Ops {
		for _, f := range res.Ops[i].Flags {
			if f == FlagConflict {
				flagged = &res.Ops[i]
			}
		}
	}
	// Pushing past 17:00 cannot fit; the overlap is delivered flagged
	// rather than dropped.
	require.NotNil(t, flagged, "expected one conflicted operation")
	assert.True(t, flagged.ResolvedStart.Equal(day(18, 16, 0)))
}

func TestSanitizeFutureOnlyProperty(t *testing.T) {
	s := testSanitizer(t)

	ops := []Operation{
		{Kind: KindMove, BlockID: "b1", To: "tuesday"},
		{Kind: KindMove, BlockID: "b2", To: "2025-06-19T13:00"},
		{Kind: KindCreate, GoalName: "G", Start: "friday"},
	}
	res := s.Sanitize(ops, nil)

	require.Len(t, res.Ops, 3)
	for _, op := range res.Ops {
		assert.True(t, op.start().After(testNow), "%s start %s not after now", op.Kind, op.start())
	}
}
