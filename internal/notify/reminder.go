package notify

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/mkarlsen/blockr/internal/clock"
	"github.com/mkarlsen/blockr/internal/config"
	"github.com/mkarlsen/blockr/internal/store"
)

// pollInterval bounds how long the loop sleeps with no upcoming block, so
// newly applied blocks are picked up without a restart.
const pollInterval = 5 * time.Minute

// Reminder watches the block store and notifies shortly before each
// applied block starts.
type Reminder struct {
	db     *store.DB
	clock  *clock.Clock
	lead   time.Duration
	logger *slog.Logger
}

func NewReminder(db *store.DB, c *clock.Clock, leadMinutes int, logger *slog.Logger) *Reminder {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Reminder{
		db:     db,
		clock:  c,
		lead:   time.Duration(leadMinutes) * time.Minute,
		logger: logger,
	}
}

func (r *Reminder) Run(ctx context.Context) error {
	if err := writePID(); err != nil {
		return fmt.Errorf("writing PID file: %w", err)
	}
	defer removePID()

	r.logger.Info("reminder started", "lead", r.lead)

	for {
		now := r.clock.Now()
		next, err := r.nextBlock(now)
		if err != nil {
			r.logger.Error("looking up next block", "err", err)
		}

		wait := pollInterval
		if next != nil {
			wait = next.StartTime.Add(-r.lead).Sub(now)
			if wait < 0 {
				wait = 0
			}
			if wait > pollInterval {
				next = nil
				wait = pollInterval
			}
		}

		select {
		case <-ctx.Done():
			r.logger.Info("reminder stopped")
			return nil
		case <-time.After(wait):
		}

		if next == nil {
			continue
		}

		wc := r.clock.WallClockOf(next.StartTime)
		msg := fmt.Sprintf("%s starts at %02d:%02d", next.GoalName, wc.Hour, wc.Minute)
		if err := Send("blockr", msg); err != nil {
			r.logger.Warn("sending notification", "err", err)
		}

		// Sleep past this block's start so it isn't announced twice.
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(next.StartTime.Sub(r.clock.Now()) + time.Minute):
		}
	}
}

// nextBlock returns the earliest applied block starting after now, or nil.
func (r *Reminder) nextBlock(now time.Time) (*store.Block, error) {
	blocks, err := r.db.BlocksBetween(now, now.AddDate(0, 0, 14))
	if err != nil {
		return nil, err
	}
	for _, b := range blocks {
		if b.Status == store.StatusApplied && b.StartTime.After(now) {
			return &b, nil
		}
	}
	return nil, nil
}

func pidPath() (string, error) {
	dir, err := config.ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "blockr.pid"), nil
}

func writePID() error {
	path, err := pidPath()
	if err != nil {
		return err
	}
	if err := config.EnsureConfigDir(); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0644)
}

func removePID() {
	if path, err := pidPath(); err == nil {
		os.Remove(path)
	}
}

// ReadPID returns the PID of a running reminder daemon.
func ReadPID() (int, error) {
	path, err := pidPath()
	if err != nil {
		return 0, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("no running reminder found")
	}

	pid, err := strconv.Atoi(string(data))
	if err != nil {
		return 0, fmt.Errorf("invalid PID file")
	}

	return pid, nil
}
