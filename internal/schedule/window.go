package schedule

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/mkarlsen/blockr/internal/clock"
	"github.com/mkarlsen/blockr/internal/interval"
)

// ErrMissingSettings means no weekday window is enabled, so there is
// nowhere to schedule anything.
var ErrMissingSettings = errors.New("no enabled working window configured")

// DayWindow is the working window for one weekday. Times are "HH:MM"
// 24-hour wall-clock strings; this format round-trips through the config
// file and the assistant payloads and must stay as-is.
type DayWindow struct {
	Enabled bool   `toml:"enabled" json:"enabled"`
	Start   string `toml:"start" json:"start"`
	End     string `toml:"end" json:"end"`
}

// WindowConfig maps lowercase English weekday names to their windows.
// Missing days count as disabled.
type WindowConfig map[string]DayWindow

// Validate checks every enabled day parses and has start <= end.
func (cfg WindowConfig) Validate() error {
	enabled := false
	for name, dw := range cfg {
		if !dw.Enabled {
			continue
		}
		enabled = true
		sh, sm, err := ParseHHMM(dw.Start)
		if err != nil {
			return fmt.Errorf("window %s start: %w", name, err)
		}
		eh, em, err := ParseHHMM(dw.End)
		if err != nil {
			return fmt.Errorf("window %s end: %w", name, err)
		}
		if sh*60+sm > eh*60+em {
			return fmt.Errorf("window %s: start %s after end %s", name, dw.Start, dw.End)
		}
	}
	if !enabled {
		return ErrMissingSettings
	}
	return nil
}

// WeekdayName returns the lowercase English name used as a WindowConfig key.
func WeekdayName(d time.Weekday) string {
	return strings.ToLower(d.String())
}

// ParseHHMM parses a "HH:MM" 24-hour wall-clock string.
func ParseHHMM(s string) (hour, min int, err error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid time %q: want HH:MM", s)
	}
	hour, err = strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid time %q: %w", s, err)
	}
	min, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid time %q: %w", s, err)
	}
	if hour < 0 || hour > 23 || min < 0 || min > 59 {
		return 0, 0, fmt.Errorf("invalid time %q: out of range", s)
	}
	return hour, min, nil
}

// WindowFor returns the working window for date's weekday, as absolute
// instants on date's calendar day in the clock's timezone. The second
// return is false for disabled or unconfigured days.
func WindowFor(date time.Time, cfg WindowConfig, c *clock.Clock) (interval.Interval, bool) {
	dw, ok := cfg[WeekdayName(c.Weekday(date))]
	if !ok || !dw.Enabled {
		return interval.Interval{}, false
	}
	sh, sm, err := ParseHHMM(dw.Start)
	if err != nil {
		return interval.Interval{}, false
	}
	eh, em, err := ParseHHMM(dw.End)
	if err != nil {
		return interval.Interval{}, false
	}
	return interval.Interval{
		Start: c.At(date, sh, sm),
		End:   c.At(date, eh, em),
	}, true
}
