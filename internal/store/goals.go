package store

import (
	"database/sql"
	"fmt"

	"github.com/oklog/ulid/v2"

	"github.com/mkarlsen/blockr/internal/schedule"
)

// AddGoal inserts a goal, assigning a ULID when none is set.
func (db *DB) AddGoal(g *schedule.Goal) error {
	if g.ID == "" {
		g.ID = ulid.Make().String()
	}
	var prefStart, prefEnd sql.NullString
	if g.Preferred != nil {
		prefStart = sql.NullString{String: g.Preferred.Start, Valid: true}
		prefEnd = sql.NullString{String: g.Preferred.End, Valid: true}
	}
	_, err := db.Exec(
		`INSERT INTO goals (id, name, target_minutes, sessions, preferred_start, preferred_end)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		g.ID, g.Name, g.TargetMinutes, g.Sessions, prefStart, prefEnd,
	)
	if err != nil {
		return fmt.Errorf("inserting goal: %w", err)
	}
	return nil
}

func (db *DB) RemoveGoal(id string) error {
	res, err := db.Exec("DELETE FROM goals WHERE id = ? OR name = ?", id, id)
	if err != nil {
		return fmt.Errorf("deleting goal: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("no goal %q", id)
	}
	return nil
}

func (db *DB) ListGoals() ([]schedule.Goal, error) {
	rows, err := db.Query(
		`SELECT id, name, target_minutes, sessions, preferred_start, preferred_end
		 FROM goals ORDER BY created_at ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("querying goals: %w", err)
	}
	defer rows.Close()

	var goals []schedule.Goal
	for rows.Next() {
		var g schedule.Goal
		var prefStart, prefEnd sql.NullString
		if err := rows.Scan(&g.ID, &g.Name, &g.TargetMinutes, &g.Sessions, &prefStart, &prefEnd); err != nil {
			return nil, fmt.Errorf("scanning goal: %w", err)
		}
		if prefStart.Valid && prefEnd.Valid {
			g.Preferred = &schedule.TimeRange{Start: prefStart.String, End: prefEnd.String}
		}
		goals = append(goals, g)
	}
	return goals, rows.Err()
}
