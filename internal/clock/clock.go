package clock

import (
	"fmt"
	"time"
)

// WallClock is a local calendar time in some timezone. It is meaningless
// without the Clock that produced it; use Clock.Instant to get back to an
// absolute time.
type WallClock struct {
	Year   int
	Month  time.Month
	Day    int
	Hour   int
	Minute int
}

// Clock converts between absolute instants and wall-clock times in a fixed
// timezone. Now is injectable for tests.
type Clock struct {
	loc *time.Location
	Now func() time.Time
}

// New loads the named IANA timezone. An unknown zone is an error — falling
// back to UTC would silently shift every block by the zone offset.
func New(tz string) (*Clock, error) {
	if tz == "" {
		return nil, fmt.Errorf("timezone not set")
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("loading timezone %q: %w", tz, err)
	}
	return &Clock{loc: loc, Now: time.Now}, nil
}

// Location returns the underlying timezone.
func (c *Clock) Location() *time.Location {
	return c.loc
}

// WallClockOf projects an instant onto the clock's timezone.
func (c *Clock) WallClockOf(t time.Time) WallClock {
	lt := t.In(c.loc)
	return WallClock{
		Year:   lt.Year(),
		Month:  lt.Month(),
		Day:    lt.Day(),
		Hour:   lt.Hour(),
		Minute: lt.Minute(),
	}
}

// Weekday returns the day of week of an instant in the clock's timezone.
func (c *Clock) Weekday(t time.Time) time.Weekday {
	return t.In(c.loc).Weekday()
}

// Instant converts a wall-clock time back to an absolute instant. Wall
// clocks that fall inside a DST spring-forward gap normalize forward to the
// other side of the gap (02:30 during a 02:00→03:00 jump becomes 03:30);
// ambiguous fall-back times resolve to the earlier offset. Both cases are
// deterministic.
func (c *Clock) Instant(wc WallClock) time.Time {
	return time.Date(wc.Year, wc.Month, wc.Day, wc.Hour, wc.Minute, 0, 0, c.loc)
}

// At returns the instant for the given wall time on the same calendar day
// as t (in the clock's timezone). This is the constructor for window
// boundaries and clamped reschedule times.
func (c *Clock) At(t time.Time, hour, min int) time.Time {
	lt := t.In(c.loc)
	return time.Date(lt.Year(), lt.Month(), lt.Day(), hour, min, 0, 0, c.loc)
}

// StartOfDay returns midnight of t's calendar day in the clock's timezone.
func (c *Clock) StartOfDay(t time.Time) time.Time {
	return c.At(t, 0, 0)
}

// DayKey formats t's calendar day as YYYY-MM-DD in the clock's timezone.
// Used to group times by day across the planner and sanitizer.
func (c *Clock) DayKey(t time.Time) string {
	return t.In(c.loc).Format("2006-01-02")
}
