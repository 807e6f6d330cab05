package ai

import (
	"time"

	"github.com/mkarlsen/blockr/internal/sanitize"
)

// Proposal is the assistant's structured answer to a reschedule request.
// Operations are untrusted and must pass through the sanitizer.
type Proposal struct {
	Operations    []sanitize.Operation `json:"operations"`
	Clarification string               `json:"clarification,omitempty"`
}

// AgendaItem is one existing block shown to the assistant so it can refer
// to blocks by ID.
type AgendaItem struct {
	BlockID  string    `json:"block_id"`
	GoalName string    `json:"goal_name"`
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
}
