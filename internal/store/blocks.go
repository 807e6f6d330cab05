package store

import (
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/mkarlsen/blockr/internal/schedule"
)

// Block statuses.
const (
	StatusPlanned  = "planned"
	StatusApplied  = "applied"
	StatusCanceled = "canceled"
)

// idBatchSize bounds how many block IDs one lookup fetches; the sanitizer
// prefetches its busy snapshot through this.
const idBatchSize = 10

// Block is a persisted focus block.
type Block struct {
	ID        string
	GoalID    string
	GoalName  string
	StartTime time.Time
	EndTime   time.Time
	Minutes   int
	Status    string
}

// InsertBlock persists a proposed block, assigning it a ULID.
func (db *DB) InsertBlock(b schedule.Block, status string) (string, error) {
	id := ulid.Make().String()
	_, err := db.Exec(
		`INSERT INTO blocks (id, goal_id, goal_name, start_time, end_time, minutes, status)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, b.GoalID, b.GoalName,
		b.Start.UTC().Format(time.RFC3339),
		b.End.UTC().Format(time.RFC3339),
		b.Minutes, status,
	)
	if err != nil {
		return "", fmt.Errorf("inserting block: %w", err)
	}
	return id, nil
}

// MoveBlock rewrites a block's times.
func (db *DB) MoveBlock(id string, start, end time.Time) error {
	res, err := db.Exec(
		"UPDATE blocks SET start_time = ?, end_time = ?, minutes = ? WHERE id = ?",
		start.UTC().Format(time.RFC3339),
		end.UTC().Format(time.RFC3339),
		int(end.Sub(start).Minutes()), id,
	)
	if err != nil {
		return fmt.Errorf("moving block: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("no block %q", id)
	}
	return nil
}

func (db *DB) CancelBlock(id string) error {
	res, err := db.Exec("UPDATE blocks SET status = ? WHERE id = ?", StatusCanceled, id)
	if err != nil {
		return fmt.Errorf("canceling block: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("no block %q", id)
	}
	return nil
}

func (db *DB) SetBlockStatus(id, status string) error {
	_, err := db.Exec("UPDATE blocks SET status = ? WHERE id = ?", status, id)
	return err
}

// ClearPlanned deletes blocks still awaiting apply, so a new plan replaces
// the previous one instead of stacking on top of it.
func (db *DB) ClearPlanned() error {
	if _, err := db.Exec("DELETE FROM blocks WHERE status = ?", StatusPlanned); err != nil {
		return fmt.Errorf("clearing planned blocks: %w", err)
	}
	return nil
}

// PromotePlanned marks every planned block applied, returning how many
// were promoted.
func (db *DB) PromotePlanned() (int, error) {
	res, err := db.Exec("UPDATE blocks SET status = ? WHERE status = ?", StatusApplied, StatusPlanned)
	if err != nil {
		return 0, fmt.Errorf("applying planned blocks: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// BlocksBetween returns non-canceled blocks overlapping [start, end).
func (db *DB) BlocksBetween(start, end time.Time) ([]Block, error) {
	return db.queryBlocks(
		`SELECT id, goal_id, goal_name, start_time, end_time, minutes, status
		 FROM blocks
		 WHERE status != ? AND start_time < ? AND end_time > ?
		 ORDER BY start_time ASC`,
		StatusCanceled,
		end.UTC().Format(time.RFC3339),
		start.UTC().Format(time.RFC3339),
	)
}

// BlocksByIDs fetches blocks in chunks so one oversized batch from the
// assistant can't turn into an unbounded IN clause.
func (db *DB) BlocksByIDs(ids []string) ([]Block, error) {
	var blocks []Block
	for len(ids) > 0 {
		chunk := ids
		if len(chunk) > idBatchSize {
			chunk = chunk[:idBatchSize]
		}
		ids = ids[len(chunk):]

		placeholders := strings.Repeat("?,", len(chunk))
		placeholders = placeholders[:len(placeholders)-1]
		args := make([]interface{}, len(chunk))
		for i, id := range chunk {
			args[i] = id
		}

		got, err := db.queryBlocks(
			`SELECT id, goal_id, goal_name, start_time, end_time, minutes, status
			 FROM blocks WHERE id IN (`+placeholders+`)`,
			args...,
		)
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, got...)
	}
	return blocks, nil
}

func (db *DB) queryBlocks(query string, args ...interface{}) ([]Block, error) {
	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying blocks: %w", err)
	}
	defer rows.Close()

	var blocks []Block
	for rows.Next() {
		var b Block
		var startStr, endStr string
		if err := rows.Scan(&b.ID, &b.GoalID, &b.GoalName, &startStr, &endStr, &b.Minutes, &b.Status); err != nil {
			return nil, fmt.Errorf("scanning block: %w", err)
		}
		if t, err := time.Parse(time.RFC3339, startStr); err == nil {
			b.StartTime = t
		}
		if t, err := time.Parse(time.RFC3339, endStr); err == nil {
			b.EndTime = t
		}
		blocks = append(blocks, b)
	}
	return blocks, rows.Err()
}
