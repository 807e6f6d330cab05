package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/mkarlsen/blockr/internal/clock"
	"github.com/mkarlsen/blockr/internal/schedule"
)

// Review shows a proposed weekly plan for accept/skip before anything is
// persisted.
type Review struct {
	result   schedule.Result
	clock    *clock.Clock
	accepted bool
	done     bool
}

func NewReview(result schedule.Result, c *clock.Clock) *Review {
	return &Review{result: result, clock: c}
}

func (r *Review) Accepted() bool {
	return r.accepted
}

func (r *Review) Init() tea.Cmd {
	return nil
}

func (r *Review) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.String() {
		case "a", "y", "enter":
			r.accepted = true
			r.done = true
			return r, tea.Quit
		case "s", "n", "q", "ctrl+c", "esc":
			r.done = true
			return r, tea.Quit
		}
	}
	return r, nil
}

func (r *Review) View() string {
	if r.done {
		return ""
	}

	var sb strings.Builder
	sb.WriteString(titleStyle.Render("Proposed Week"))
	sb.WriteString("\n")

	lastDay := ""
	for _, b := range r.result.Blocks {
		local := b.Start.In(r.clock.Location())
		day := local.Format("Mon Jan 2")
		if day != lastDay {
			sb.WriteString(dayStyle.Render(day))
			sb.WriteString("\n")
			lastDay = day
		}
		sb.WriteString(fmt.Sprintf("  %s  %s (%dm)\n",
			formatSpan(local, b.End.In(r.clock.Location())),
			b.GoalName, b.Minutes))
	}
	if len(r.result.Blocks) == 0 {
		sb.WriteString(dimStyle.Render("  nothing fits this week"))
		sb.WriteString("\n")
	}

	for _, s := range r.result.Shortfalls {
		sb.WriteString(warningStyle.Render(
			fmt.Sprintf("  ⚠ %s is short %d minutes", s.GoalName, s.MissingMinutes)))
		sb.WriteString("\n")
	}

	sb.WriteString(dimStyle.Render(fmt.Sprintf("\n  requested %dm, %dm of capacity this week",
		r.result.RequestedMinutes, r.result.AvailableMinutes)))
	sb.WriteString("\n")
	sb.WriteString(helpStyle.Render("[a]ccept and save • [s]kip"))

	return boxStyle.Render(sb.String())
}
