package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/mkarlsen/blockr/internal/sanitize"
)

type opsModel struct {
	clarification string
	ops           []sanitize.Sanitized
	dropped       []sanitize.Dropped
}

func (m opsModel) View() string {
	if m.clarification != "" {
		return warningStyle.Render("Clarification needed: ") + m.clarification + "\n\n" +
			helpStyle.Render("[r]etry with more detail • [s]kip")
	}

	var sb strings.Builder
	sb.WriteString(titleStyle.Render("Proposed Changes"))
	sb.WriteString("\n")

	for _, op := range m.ops {
		sb.WriteString(describeOp(op))
		sb.WriteString("\n")
		for _, note := range op.Notes {
			sb.WriteString(dimStyle.Render("    " + note))
			sb.WriteString("\n")
		}
		for _, flag := range op.Flags {
			sb.WriteString(warningStyle.Render("    ⚠ " + string(flag)))
			sb.WriteString("\n")
		}
	}

	for _, d := range m.dropped {
		sb.WriteString(errorStyle.Render("  ✗ dropped: "))
		sb.WriteString(fmt.Sprintf("%s %s — %s\n", d.Kind, d.BlockID, d.Reason))
	}

	sb.WriteString("\n")
	sb.WriteString(helpStyle.Render("[a]pply • [r]etry • [s]kip"))

	return boxStyle.Render(sb.String())
}

func describeOp(op sanitize.Sanitized) string {
	const layout = "Mon Jan 2 15:04"
	switch op.Kind {
	case sanitize.KindMove:
		return fmt.Sprintf("  → move %s to %s", op.BlockID, op.ResolvedTo.Format(layout))
	case sanitize.KindCreate:
		return fmt.Sprintf("  + create %q %s – %s",
			op.GoalName,
			op.ResolvedStart.Format(layout),
			op.ResolvedEnd.Format("15:04"))
	case sanitize.KindDelete:
		return fmt.Sprintf("  − delete %s", op.BlockID)
	}
	return ""
}

func formatSpan(start, end time.Time) string {
	return fmt.Sprintf("%s–%s", start.Format("15:04"), end.Format("15:04"))
}
