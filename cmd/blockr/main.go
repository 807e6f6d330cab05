package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/mkarlsen/blockr/internal/ai"
	"github.com/mkarlsen/blockr/internal/calendar"
	"github.com/mkarlsen/blockr/internal/clock"
	"github.com/mkarlsen/blockr/internal/config"
	"github.com/mkarlsen/blockr/internal/interval"
	"github.com/mkarlsen/blockr/internal/notify"
	"github.com/mkarlsen/blockr/internal/sanitize"
	"github.com/mkarlsen/blockr/internal/schedule"
	"github.com/mkarlsen/blockr/internal/store"
	"github.com/mkarlsen/blockr/internal/tui"
)

var rootCmd = &cobra.Command{
	Use:   "blockr",
	Short: "Weekly focus-block planner with an AI reschedule assistant",
	Long:  "blockr places recurring focus blocks for your goals into the free gaps of your calendar, and lets you reschedule them in plain English.",
}

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Propose focus blocks for the coming week",
	RunE:  runPlan,
}

var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Apply the last saved plan",
	RunE:  runApply,
}

var rescheduleCmd = &cobra.Command{
	Use:   "reschedule",
	Short: "Change blocks by describing what you want",
	RunE:  runReschedule,
}

var goalsCmd = &cobra.Command{
	Use:   "goals",
	Short: "Manage weekly goals",
}

var goalsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List goals",
	RunE:  runGoalsList,
}

var goalsAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Add a goal",
	Args:  cobra.ExactArgs(1),
	RunE:  runGoalsAdd,
}

var goalsRemoveCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Remove a goal",
	Args:  cobra.ExactArgs(1),
	RunE:  runGoalsRemove,
}

var agendaCmd = &cobra.Command{
	Use:   "agenda",
	Short: "Show upcoming focus blocks",
	RunE:  runAgenda,
}

var remindCmd = &cobra.Command{
	Use:   "remind",
	Short: "Run the reminder daemon",
	RunE:  runRemind,
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running reminder daemon",
	RunE:  runStop,
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Open config file in your editor",
	RunE:  runConfig,
}

func init() {
	planCmd.Flags().String("start", "", "first day of the plan (YYYY-MM-DD, default tomorrow)")
	planCmd.Flags().Bool("yes", false, "save without the review screen")

	rescheduleCmd.Flags().String("request", "", "run non-interactively with this request")
	rescheduleCmd.Flags().Bool("yes", false, "apply a non-interactive request instead of previewing it")

	goalsAddCmd.Flags().Int("minutes", 120, "target minutes per week")
	goalsAddCmd.Flags().Int("sessions", 0, "sessions per week (0 = derive from block length)")
	goalsAddCmd.Flags().String("preferred", "", "preferred time of day, e.g. 06:00-09:00")

	goalsCmd.AddCommand(goalsListCmd)
	goalsCmd.AddCommand(goalsAddCmd)
	goalsCmd.AddCommand(goalsRemoveCmd)

	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(applyCmd)
	rootCmd.AddCommand(rescheduleCmd)
	rootCmd.AddCommand(goalsCmd)
	rootCmd.AddCommand(agendaCmd)
	rootCmd.AddCommand(remindCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, *clock.Clock, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}
	c, err := clock.New(cfg.Timezone)
	if err != nil {
		return nil, nil, err
	}
	return cfg, c, nil
}

func newProvider(cfg *config.Config) (ai.Provider, error) {
	if cfg.AI.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key not configured — set OPENAI_API_KEY or run 'blockr config'")
	}
	return ai.NewOpenAI(cfg.AI.APIKey, cfg.AI.BaseURL, cfg.AI.Model, cfg.Timezone, nil), nil
}

// fetchBusy collects busy intervals for a window: external calendar events
// plus blocks blockr already placed.
func fetchBusy(ctx context.Context, cfg *config.Config, db *store.DB, window interval.Interval) ([]sanitize.BusySlot, error) {
	var busy []sanitize.BusySlot

	if cfg.Calendar.Source != "" {
		events, err := calendar.FetchBusy(ctx, cfg.Calendar.Source, window)
		if err != nil {
			return nil, fmt.Errorf("fetching calendar: %w", err)
		}
		for _, e := range events {
			busy = append(busy, sanitize.BusySlot{Span: e.Span})
		}
	}

	blocks, err := db.BlocksBetween(window.Start, window.End)
	if err != nil {
		return nil, fmt.Errorf("loading blocks: %w", err)
	}
	for _, b := range blocks {
		busy = append(busy, sanitize.BusySlot{
			BlockID: b.ID,
			Span:    interval.Interval{Start: b.StartTime, End: b.EndTime},
		})
	}
	return busy, nil
}

func runPlan(cmd *cobra.Command, args []string) error {
	cfg, c, err := loadConfig()
	if err != nil {
		return err
	}

	db, err := store.Open()
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	goals, err := db.ListGoals()
	if err != nil {
		return fmt.Errorf("loading goals: %w", err)
	}
	if len(goals) == 0 {
		return fmt.Errorf("no goals yet — add one with 'blockr goals add'")
	}

	weekStart := c.StartOfDay(c.Now()).AddDate(0, 0, 1)
	if s, _ := cmd.Flags().GetString("start"); s != "" {
		parsed, err := time.ParseInLocation("2006-01-02", s, c.Location())
		if err != nil {
			return fmt.Errorf("parsing --start: %w", err)
		}
		weekStart = parsed
	}
	weekEnd := weekStart.AddDate(0, 0, 7)

	ctx := context.Background()
	busy, err := fetchBusy(ctx, cfg, db, interval.Interval{Start: weekStart, End: weekEnd})
	if err != nil {
		return err
	}
	spans := make([]interval.Interval, len(busy))
	for i, b := range busy {
		spans[i] = b.Span
	}

	result, err := schedule.Plan(goals, cfg.Schedule.Window, spans, weekStart, weekEnd,
		cfg.Schedule.BlockMinutes, cfg.Schedule.GapMinutes, c)
	if err != nil {
		return fmt.Errorf("planning week: %w", err)
	}

	if yes, _ := cmd.Flags().GetBool("yes"); !yes {
		review := tui.NewReview(result, c)
		if _, err := tea.NewProgram(review).Run(); err != nil {
			return fmt.Errorf("running TUI: %w", err)
		}
		if !review.Accepted() {
			fmt.Println("Plan skipped.")
			return nil
		}
	}

	// The saved plan replaces any earlier one still awaiting apply.
	if err := db.ClearPlanned(); err != nil {
		return err
	}
	for _, b := range result.Blocks {
		if _, err := db.InsertBlock(b, store.StatusPlanned); err != nil {
			return fmt.Errorf("saving block: %w", err)
		}
	}

	fmt.Printf("Saved a plan with %d blocks — run 'blockr apply' to confirm.\n", len(result.Blocks))
	for _, s := range result.Shortfalls {
		fmt.Printf("  %s is short %d minutes this week\n", s.GoalName, s.MissingMinutes)
	}
	return nil
}

func runApply(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}

	db, err := store.Open()
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	n, err := db.PromotePlanned()
	if err != nil {
		return err
	}
	if n == 0 {
		fmt.Println("No saved plan — run 'blockr plan' first.")
		return nil
	}
	if err := exportBlocks(cfg, db); err != nil {
		return err
	}

	fmt.Printf("Applied %d blocks.\n", n)
	return nil
}

func runReschedule(cmd *cobra.Command, args []string) error {
	cfg, c, err := loadConfig()
	if err != nil {
		return err
	}

	db, err := store.Open()
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	provider, err := newProvider(cfg)
	if err != nil {
		return err
	}

	now := c.Now()
	window := interval.Interval{Start: c.StartOfDay(now), End: c.StartOfDay(now).AddDate(0, 0, 14)}

	ctx := context.Background()
	busy, err := fetchBusy(ctx, cfg, db, window)
	if err != nil {
		return err
	}

	agenda, err := buildAgenda(db, busy)
	if err != nil {
		return err
	}

	sanitizer := sanitize.New(cfg.Schedule.Window, c,
		cfg.Schedule.BlockMinutes, cfg.Schedule.GapMinutes, nil)

	apply := func(ops []sanitize.Sanitized) error {
		return applyOperations(db, cfg, ops)
	}

	if request, _ := cmd.Flags().GetString("request"); request != "" {
		yes, _ := cmd.Flags().GetBool("yes")
		return rescheduleHeadless(ctx, provider, sanitizer, agenda, busy, now, request, yes, apply)
	}

	app := tui.NewApp(provider, sanitizer, agenda, busy, now, apply)
	if _, err := tea.NewProgram(app).Run(); err != nil {
		return fmt.Errorf("running TUI: %w", err)
	}

	result := app.GetResult()
	if result != nil && result.Skipped {
		fmt.Println("No changes made.")
	}
	return nil
}

// buildAgenda turns the block entries of a busy snapshot into the agenda the
// assistant sees. Goal names come from one batched lookup.
func buildAgenda(db *store.DB, busy []sanitize.BusySlot) ([]ai.AgendaItem, error) {
	var ids []string
	for _, b := range busy {
		if b.BlockID != "" {
			ids = append(ids, b.BlockID)
		}
	}
	blocks, err := db.BlocksByIDs(ids)
	if err != nil {
		return nil, fmt.Errorf("loading agenda blocks: %w", err)
	}
	names := make(map[string]string, len(blocks))
	for _, b := range blocks {
		names[b.ID] = b.GoalName
	}

	var agenda []ai.AgendaItem
	for _, b := range busy {
		if b.BlockID == "" {
			continue
		}
		agenda = append(agenda, ai.AgendaItem{
			BlockID:  b.BlockID,
			GoalName: names[b.BlockID],
			Start:    b.Span.Start,
			End:      b.Span.End,
		})
	}
	return agenda, nil
}

func rescheduleHeadless(
	ctx context.Context,
	provider ai.Provider,
	sanitizer *sanitize.Sanitizer,
	agenda []ai.AgendaItem,
	busy []sanitize.BusySlot,
	now time.Time,
	request string,
	apply bool,
	applyFn func([]sanitize.Sanitized) error,
) error {
	proposal, err := provider.ProposeOperations(ctx, request, agenda, now)
	if err != nil {
		return fmt.Errorf("proposing operations: %w", err)
	}
	if proposal.Clarification != "" {
		fmt.Printf("Clarification needed: %s\n", proposal.Clarification)
		return nil
	}

	batch := sanitizer.Sanitize(proposal.Operations, busy)
	for _, op := range batch.Ops {
		fmt.Println(describeSanitized(op))
	}
	for _, d := range batch.Dropped {
		fmt.Printf("  dropped %s %s: %s\n", d.Kind, d.BlockID, d.Reason)
	}
	if len(batch.Ops) == 0 {
		return nil
	}

	if !apply {
		fmt.Println("\nPreview only — rerun with --yes to apply.")
		return nil
	}
	if err := applyFn(batch.Ops); err != nil {
		return err
	}
	fmt.Printf("Applied %d operations.\n", len(batch.Ops))
	return nil
}

func describeSanitized(op sanitize.Sanitized) string {
	var sb strings.Builder
	switch op.Kind {
	case sanitize.KindMove:
		fmt.Fprintf(&sb, "  move %s to %s", op.BlockID, op.ResolvedTo.Format(time.RFC3339))
	case sanitize.KindCreate:
		fmt.Fprintf(&sb, "  create %q %s (%dm)", op.GoalName, op.ResolvedStart.Format(time.RFC3339), op.Minutes)
	case sanitize.KindDelete:
		fmt.Fprintf(&sb, "  delete %s", op.BlockID)
	}
	for _, f := range op.Flags {
		fmt.Fprintf(&sb, " [%s]", f)
	}
	return sb.String()
}

// applyOperations writes sanitized operations through: one store write per
// operation, then a fresh calendar export.
func applyOperations(db *store.DB, cfg *config.Config, ops []sanitize.Sanitized) error {
	goals, err := db.ListGoals()
	if err != nil {
		return fmt.Errorf("loading goals: %w", err)
	}

	for _, op := range ops {
		switch op.Kind {
		case sanitize.KindMove:
			end := op.ResolvedTo.Add(time.Duration(op.Minutes) * time.Minute)
			if err := db.MoveBlock(op.BlockID, op.ResolvedTo, end); err != nil {
				return err
			}
		case sanitize.KindCreate:
			goalID := ""
			for _, g := range goals {
				if strings.EqualFold(g.Name, op.GoalName) {
					goalID = g.ID
					break
				}
			}
			block := schedule.Block{
				GoalID:   goalID,
				GoalName: op.GoalName,
				Start:    op.ResolvedStart,
				End:      op.ResolvedEnd,
				Minutes:  op.Minutes,
			}
			if _, err := db.InsertBlock(block, store.StatusApplied); err != nil {
				return err
			}
		case sanitize.KindDelete:
			if err := db.CancelBlock(op.BlockID); err != nil {
				return err
			}
		}
	}

	return exportBlocks(cfg, db)
}

// exportBlocks rewrites the ICS export with every applied block, when an
// export path is configured.
func exportBlocks(cfg *config.Config, db *store.DB) error {
	if cfg.Calendar.ExportPath == "" {
		return nil
	}

	now := time.Now()
	blocks, err := db.BlocksBetween(now.AddDate(0, 0, -30), now.AddDate(0, 0, 60))
	if err != nil {
		return fmt.Errorf("loading blocks for export: %w", err)
	}
	applied := blocks[:0]
	for _, b := range blocks {
		if b.Status == store.StatusApplied {
			applied = append(applied, b)
		}
	}
	if err := calendar.Export(cfg.Calendar.ExportPath, applied); err != nil {
		return fmt.Errorf("exporting calendar: %w", err)
	}
	return nil
}

func runGoalsList(cmd *cobra.Command, args []string) error {
	db, err := store.Open()
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	goals, err := db.ListGoals()
	if err != nil {
		return fmt.Errorf("loading goals: %w", err)
	}
	if len(goals) == 0 {
		fmt.Println("No goals yet.")
		return nil
	}

	for _, g := range goals {
		line := fmt.Sprintf("  %-20s %dmin/week", g.Name, g.TargetMinutes)
		if g.Sessions > 0 {
			line += fmt.Sprintf(", %d sessions", g.Sessions)
		}
		if g.Preferred != nil {
			line += fmt.Sprintf(", prefers %s–%s", g.Preferred.Start, g.Preferred.End)
		}
		fmt.Println(line)
	}
	return nil
}

func runGoalsAdd(cmd *cobra.Command, args []string) error {
	db, err := store.Open()
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	minutes, _ := cmd.Flags().GetInt("minutes")
	sessions, _ := cmd.Flags().GetInt("sessions")
	if minutes <= 0 {
		return fmt.Errorf("--minutes must be positive")
	}

	goal := schedule.Goal{
		Name:          args[0],
		TargetMinutes: minutes,
		Sessions:      sessions,
	}

	if pref, _ := cmd.Flags().GetString("preferred"); pref != "" {
		parts := strings.SplitN(pref, "-", 2)
		if len(parts) != 2 {
			return fmt.Errorf("--preferred must look like 06:00-09:00")
		}
		for _, p := range parts {
			if _, _, err := schedule.ParseHHMM(p); err != nil {
				return err
			}
		}
		goal.Preferred = &schedule.TimeRange{Start: parts[0], End: parts[1]}
	}

	if err := db.AddGoal(&goal); err != nil {
		return err
	}
	fmt.Printf("Added goal %q (%dmin/week).\n", goal.Name, goal.TargetMinutes)
	return nil
}

func runGoalsRemove(cmd *cobra.Command, args []string) error {
	db, err := store.Open()
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	if err := db.RemoveGoal(args[0]); err != nil {
		return err
	}
	fmt.Printf("Removed goal %q.\n", args[0])
	return nil
}

func runAgenda(cmd *cobra.Command, args []string) error {
	_, c, err := loadConfig()
	if err != nil {
		return err
	}

	db, err := store.Open()
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	now := c.Now()
	blocks, err := db.BlocksBetween(now, now.AddDate(0, 0, 7))
	if err != nil {
		return fmt.Errorf("loading blocks: %w", err)
	}
	if len(blocks) == 0 {
		fmt.Println("No focus blocks in the next 7 days.")
		return nil
	}

	lastDay := ""
	for _, b := range blocks {
		local := b.StartTime.In(c.Location())
		if day := local.Format("Mon Jan 2"); day != lastDay {
			fmt.Printf("%s\n", day)
			lastDay = day
		}
		fmt.Printf("  %s–%s  %s (%dmin) [%s]\n",
			local.Format("15:04"),
			b.EndTime.In(c.Location()).Format("15:04"),
			b.GoalName, b.Minutes, b.Status)
	}
	return nil
}

func runRemind(cmd *cobra.Command, args []string) error {
	cfg, c, err := loadConfig()
	if err != nil {
		return err
	}
	if !cfg.Notifications.Enabled {
		return fmt.Errorf("notifications are disabled in config")
	}

	db, err := store.Open()
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	reminder := notify.NewReminder(db, c, cfg.Notifications.LeadMinutes, nil)
	return reminder.Run(ctx)
}

func runStop(cmd *cobra.Command, args []string) error {
	pid, err := notify.ReadPID()
	if err != nil {
		return err
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("finding process %d: %w", pid, err)
	}

	if err := process.Signal(syscall.SIGTERM); err != nil {
		return fmt.Errorf("sending stop signal: %w", err)
	}

	fmt.Printf("Sent stop signal to blockr (PID %d)\n", pid)
	return nil
}

func runConfig(cmd *cobra.Command, args []string) error {
	if err := config.EnsureConfigDir(); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	configPath, err := config.ConfigPath()
	if err != nil {
		return err
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		cfg := config.DefaultConfig()
		data := fmt.Sprintf(`timezone = "%s"

[schedule]
block_minutes = %d
gap_minutes = %d

[schedule.window.monday]
enabled = true
start = "09:00"
end = "17:00"

# ...one table per weekday; disabled days are skipped entirely.

[calendar]
source = ""
export_path = ""

[ai]
model = "%s"
api_key = ""

[notifications]
enabled = %t
lead_minutes = %d
`,
			cfg.Timezone,
			cfg.Schedule.BlockMinutes,
			cfg.Schedule.GapMinutes,
			cfg.AI.Model,
			cfg.Notifications.Enabled,
			cfg.Notifications.LeadMinutes,
		)
		if err := os.WriteFile(configPath, []byte(data), 0644); err != nil {
			return fmt.Errorf("writing default config: %w", err)
		}
	}

	editor := os.Getenv("EDITOR")
	if editor == "" {
		editor = "vi"
	}

	fmt.Printf("Opening %s with %s...\n", configPath, editor)

	proc := os.ProcAttr{
		Files: []*os.File{os.Stdin, os.Stdout, os.Stderr},
	}
	process, err := os.StartProcess(editor, []string{editor, configPath}, &proc)
	if err != nil {
		fmt.Printf("Could not open editor. Config file is at: %s\n", configPath)
		return nil
	}
	_, err = process.Wait()
	return err
}
