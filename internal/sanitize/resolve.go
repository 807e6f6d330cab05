package sanitize

import (
	"fmt"
	"strings"
	"time"

	naturaldate "github.com/tj/go-naturaldate"

	"github.com/mkarlsen/blockr/internal/schedule"
)

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

const defaultHour = 9

// resolve turns an assistant-supplied time reference into an absolute
// instant: an ISO timestamp, a bare weekday name (next occurrence at the
// day's window start, or 09:00 when the day is disabled), or a relative
// phrase handled by naturaldate.
func (s *Sanitizer) resolve(ref string, now time.Time) (time.Time, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return time.Time{}, fmt.Errorf("empty time reference")
	}

	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04", "2006-01-02 15:04"} {
		if t, err := time.ParseInLocation(layout, ref, s.clock.Location()); err == nil {
			return t, nil
		}
	}

	if wd, ok := weekdays[strings.ToLower(ref)]; ok {
		return s.nextWeekday(now, wd), nil
	}

	t, err := naturaldate.Parse(ref, now.In(s.clock.Location()), naturaldate.WithDirection(naturaldate.Future))
	if err != nil {
		return time.Time{}, fmt.Errorf("unresolvable time reference %q: %w", ref, err)
	}
	return t, nil
}

// nextWeekday returns the next occurrence of wd strictly after now, at the
// default hour for that day. "Saturday" on a Saturday means next week.
func (s *Sanitizer) nextWeekday(now time.Time, wd time.Weekday) time.Time {
	ahead := (int(wd) - int(s.clock.Weekday(now)) + 7) % 7
	if ahead == 0 {
		ahead = 7
	}
	date := s.clock.StartOfDay(now).AddDate(0, 0, ahead)

	hour, min := defaultHour, 0
	if dw, ok := s.cfg[strings.ToLower(wd.String())]; ok && dw.Enabled {
		if h, m, err := schedule.ParseHHMM(dw.Start); err == nil {
			hour, min = h, m
		}
	}
	return s.clock.At(date, hour, min)
}
