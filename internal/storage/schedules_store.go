package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/llm-bench/engine/pkg/models"
)

// Schedule is a persisted cron-triggered run definition.
type Schedule struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	CronExpr   string     `json:"cron_expr"`
	RunRequest string     `json:"run_request"` // JSON-encoded suite_name + model_ids + config
	Enabled    bool       `json:"enabled"`
	CreatedAt  time.Time  `json:"created_at"`
	LastRunAt  *time.Time `json:"last_run_at,omitempty"`
}

// SaveSchedule inserts or replaces a schedule.
func (db *DB) SaveSchedule(ctx context.Context, s *Schedule) error {
	query := `
		INSERT INTO schedules (id, name, cron_expr, run_request, enabled, created_at, last_run_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			cron_expr = excluded.cron_expr,
			run_request = excluded.run_request,
			enabled = excluded.enabled
	`
	_, err := db.ExecContext(ctx, query, s.ID, s.Name, s.CronExpr, s.RunRequest, s.Enabled, s.CreatedAt, nullableTime(s.LastRunAt))
	if err != nil {
		return fmt.Errorf("failed to save schedule: %w", err)
	}
	return nil
}

// ListSchedules returns every schedule, enabled or not.
func (db *DB) ListSchedules(ctx context.Context) ([]*Schedule, error) {
	query := `SELECT id, name, cron_expr, run_request, enabled, created_at, last_run_at FROM schedules ORDER BY created_at`

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list schedules: %w", err)
	}
	defer rows.Close()

	var result []*Schedule
	for rows.Next() {
		s, err := scanSchedule(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan schedule row: %w", err)
		}
		result = append(result, s)
	}
	return result, rows.Err()
}

// DeleteSchedule removes a schedule.
func (db *DB) DeleteSchedule(ctx context.Context, id string) error {
	res, err := db.ExecContext(ctx, `DELETE FROM schedules WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete schedule: %w", err)
	}
	return checkRowsAffected(res)
}

// MarkScheduleRun records the time a schedule last fired.
func (db *DB) MarkScheduleRun(ctx context.Context, id string, at time.Time) error {
	res, err := db.ExecContext(ctx, `UPDATE schedules SET last_run_at = ? WHERE id = ?`, at, id)
	if err != nil {
		return fmt.Errorf("failed to mark schedule run: %w", err)
	}
	return checkRowsAffected(res)
}

func scanSchedule(row scannable) (*Schedule, error) {
	var s Schedule
	var enabled int
	var lastRunAt sql.NullTime

	if err := row.Scan(&s.ID, &s.Name, &s.CronExpr, &s.RunRequest, &enabled, &s.CreatedAt, &lastRunAt); err != nil {
		return nil, err
	}
	s.Enabled = enabled != 0
	if lastRunAt.Valid {
		s.LastRunAt = &lastRunAt.Time
	}
	return &s, nil
}

// ScheduleRunRequest is the decoded form of Schedule.RunRequest.
type ScheduleRunRequest struct {
	SuiteName string           `json:"suite_name"`
	ModelIDs  []string         `json:"model_ids"`
	Config    models.RunConfig `json:"config"`
}

// DecodeRunRequest parses a schedule's stored run request payload.
func (s *Schedule) DecodeRunRequest() (ScheduleRunRequest, error) {
	var req ScheduleRunRequest
	if err := json.Unmarshal([]byte(s.RunRequest), &req); err != nil {
		return req, fmt.Errorf("failed to decode schedule run request: %w", err)
	}
	return req, nil
}
