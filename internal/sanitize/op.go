package sanitize

import (
	"time"

	"github.com/mkarlsen/blockr/internal/interval"
)

// Kind is the operation type requested by the assistant.
type Kind string

const (
	KindMove   Kind = "move"
	KindCreate Kind = "create"
	KindDelete Kind = "delete"
)

// Operation is one requested change, as produced by the assistant. Times
// may be ISO-8601 timestamps, bare weekday names, or relative phrases
// ("tomorrow afternoon"); the sanitizer resolves them. The payload is only
// partially trusted and must pass through Sanitizer before being applied.
type Operation struct {
	Kind     Kind   `json:"kind" jsonschema:"enum=move,enum=create,enum=delete"`
	BlockID  string `json:"block_id,omitempty" jsonschema_description:"ID of the block to move or delete"`
	GoalName string `json:"goal_name,omitempty" jsonschema_description:"Goal a created block belongs to"`
	From     string `json:"from,omitempty" jsonschema_description:"Current start of the block being moved"`
	To       string `json:"to,omitempty" jsonschema_description:"Requested new start for a move"`
	Start    string `json:"start,omitempty" jsonschema_description:"Requested start for a create"`
	End      string `json:"end,omitempty" jsonschema_description:"Requested end for a create"`
}

// Flag marks a sanitized operation the caller should double-check before
// or after applying.
type Flag string

const (
	// FlagOutsideWindow: the target day has no enabled working window, so
	// the time could not be clamped. The operation is delivered anyway;
	// confirming it is the caller's job.
	FlagOutsideWindow Flag = "outside-window"
	// FlagConflict: no collision-free time fit inside the window. The
	// delivered time may overlap something.
	FlagConflict Flag = "conflict"
)

// Sanitized is an operation with resolved, validated absolute times.
type Sanitized struct {
	Operation
	ResolvedTo    time.Time // move: new start
	ResolvedStart time.Time // create
	ResolvedEnd   time.Time // create
	Minutes       int       // duration the operation occupies on its day
	Flags         []Flag
	Notes         []string
}

func (s *Sanitized) flag(f Flag) {
	for _, have := range s.Flags {
		if have == f {
			return
		}
	}
	s.Flags = append(s.Flags, f)
}

func (s *Sanitized) note(msg string) {
	s.Notes = append(s.Notes, msg)
}

// start returns the instant the operation occupies from.
func (s *Sanitized) start() time.Time {
	if s.Kind == KindMove {
		return s.ResolvedTo
	}
	return s.ResolvedStart
}

func (s *Sanitized) setStart(t time.Time) {
	if s.Kind == KindMove {
		s.ResolvedTo = t
		return
	}
	d := s.ResolvedEnd.Sub(s.ResolvedStart)
	s.ResolvedStart = t
	s.ResolvedEnd = t.Add(d)
}

func (s *Sanitized) span() interval.Interval {
	start := s.start()
	return interval.Interval{Start: start, End: start.Add(time.Duration(s.Minutes) * time.Minute)}
}

// Dropped is an operation excluded from the batch, with the reason.
type Dropped struct {
	Operation
	Reason string
}

// BatchResult is the sanitized batch. Dropped entries are attributable by
// BlockID (or the original payload) so the caller can report them.
type BatchResult struct {
	Ops     []Sanitized
	Dropped []Dropped
}

// BusySlot is an existing occupied range: a foreign calendar event
// (BlockID empty) or a previously placed focus block.
type BusySlot struct {
	BlockID string
	Span    interval.Interval
}
