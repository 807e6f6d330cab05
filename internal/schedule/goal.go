package schedule

import (
	"math"
	"time"
)

// TimeRange is a preferred time-of-day range, "HH:MM" to "HH:MM".
type TimeRange struct {
	Start string `toml:"start" json:"start"`
	End   string `toml:"end" json:"end"`
}

// Goal is a weekly focus target. Sessions of zero means the session count
// is derived from the configured block length instead.
type Goal struct {
	ID            string
	Name          string
	TargetMinutes int
	Sessions      int
	Preferred     *TimeRange
}

// sessionPlan returns how many sessions to place and how long each one is.
func (g Goal) sessionPlan(blockMinutes int) (count, minutes int) {
	if g.Sessions > 0 {
		return g.Sessions, int(math.Round(float64(g.TargetMinutes) / float64(g.Sessions)))
	}
	count = (g.TargetMinutes + blockMinutes - 1) / blockMinutes
	return count, blockMinutes
}

// Block is a proposed focus block. Immutable once emitted; persisting it
// and creating the calendar event is the caller's job.
type Block struct {
	GoalID   string
	GoalName string
	Start    time.Time
	End      time.Time
	Minutes  int
}

// Shortfall records minutes a goal could not get placed.
type Shortfall struct {
	GoalID         string
	GoalName       string
	MissingMinutes int
}

// Result is the outcome of one planning run. AvailableMinutes and
// RequestedMinutes are informational aggregates; they do not gate placement.
type Result struct {
	Blocks           []Block
	AvailableMinutes int
	RequestedMinutes int
	Shortfalls       []Shortfall
}
