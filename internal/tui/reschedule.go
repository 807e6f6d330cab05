package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/mkarlsen/blockr/internal/ai"
	"github.com/mkarlsen/blockr/internal/sanitize"
)

type viewState int

const (
	inputView viewState = iota
	loadingView
	proposalView
	confirmationView
)

// Result is what the reschedule flow produced, for the caller to report.
type Result struct {
	Skipped bool
	Applied []sanitize.Sanitized
}

type proposalMsg struct {
	proposal *ai.Proposal
	err      error
}

type appliedMsg struct {
	ops []sanitize.Sanitized
	err error
}

// App drives the reschedule flow: describe the change, let the assistant
// propose operations, sanitize them, confirm, apply.
type App struct {
	state   viewState
	input   inputModel
	spinner spinner.Model
	ops     opsModel
	result  *Result
	errMsg  string

	provider  ai.Provider
	sanitizer *sanitize.Sanitizer
	agenda    []ai.AgendaItem
	busy      []sanitize.BusySlot
	now       time.Time
	apply     func([]sanitize.Sanitized) error
}

func NewApp(
	provider ai.Provider,
	sanitizer *sanitize.Sanitizer,
	agenda []ai.AgendaItem,
	busy []sanitize.BusySlot,
	now time.Time,
	apply func([]sanitize.Sanitized) error,
) *App {
	s := spinner.New()
	s.Spinner = spinner.Dot

	return &App{
		state:     inputView,
		input:     newInputModel(),
		spinner:   s,
		provider:  provider,
		sanitizer: sanitizer,
		agenda:    agenda,
		busy:      busy,
		now:       now,
		apply:     apply,
	}
}

func (a *App) Init() tea.Cmd {
	return tea.Batch(a.input.textarea.Focus(), a.spinner.Tick)
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			a.result = &Result{Skipped: true}
			return a, tea.Quit
		}
	case proposalMsg:
		return a.handleProposal(msg)
	case appliedMsg:
		return a.handleApplied(msg)
	}

	switch a.state {
	case inputView:
		return a.updateInput(msg)
	case loadingView:
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd
	case proposalView:
		return a.updateProposal(msg)
	case confirmationView:
		if _, ok := msg.(tea.KeyMsg); ok {
			return a, tea.Quit
		}
	}

	return a, nil
}

func (a *App) View() string {
	switch a.state {
	case inputView:
		return a.input.View()
	case loadingView:
		return a.spinner.View() + " Thinking..."
	case proposalView:
		return a.ops.View()
	case confirmationView:
		if a.errMsg != "" {
			return errorStyle.Render("Error: ") + a.errMsg + "\n\n" + helpStyle.Render("Press any key to exit")
		}
		return successStyle.Render("Schedule updated.") + "\n\n" + helpStyle.Render("Press any key to exit")
	}
	return ""
}

func (a *App) GetResult() *Result {
	return a.result
}

func (a *App) updateInput(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		if keyMsg.String() == "enter" && a.input.Value() != "" {
			a.state = loadingView
			return a, tea.Batch(a.spinner.Tick, a.queryProvider(a.input.Value()))
		}
	}

	var cmd tea.Cmd
	a.input, cmd = a.input.Update(msg)
	return a, cmd
}

func (a *App) updateProposal(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.String() {
		case "a":
			if len(a.ops.ops) > 0 {
				return a, a.applyOps(a.ops.ops)
			}
		case "r":
			a.state = inputView
			a.input = newInputModel()
			return a, a.input.textarea.Focus()
		case "s":
			a.result = &Result{Skipped: true}
			return a, tea.Quit
		}
	}
	return a, nil
}

func (a *App) handleProposal(msg proposalMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		a.state = confirmationView
		a.errMsg = msg.err.Error()
		return a, nil
	}

	if msg.proposal.Clarification != "" {
		a.ops = opsModel{clarification: msg.proposal.Clarification}
		a.state = proposalView
		return a, nil
	}

	batch := a.sanitizer.Sanitize(msg.proposal.Operations, a.busy)
	a.ops = opsModel{ops: batch.Ops, dropped: batch.Dropped}
	a.state = proposalView
	return a, nil
}

func (a *App) handleApplied(msg appliedMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		a.state = confirmationView
		a.errMsg = msg.err.Error()
		return a, nil
	}

	a.result = &Result{Applied: msg.ops}
	a.state = confirmationView
	return a, nil
}

func (a *App) queryProvider(request string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		defer cancel()

		proposal, err := a.provider.ProposeOperations(ctx, request, a.agenda, a.now)
		return proposalMsg{proposal: proposal, err: err}
	}
}

func (a *App) applyOps(ops []sanitize.Sanitized) tea.Cmd {
	return func() tea.Msg {
		if err := a.apply(ops); err != nil {
			return appliedMsg{err: err}
		}
		return appliedMsg{ops: ops}
	}
}
