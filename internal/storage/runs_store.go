package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/llm-bench/engine/pkg/models"
)

// SaveRun inserts a new run record.
func (db *DB) SaveRun(ctx context.Context, r *models.Run) error {
	modelIDs, err := json.Marshal(r.ModelIDs)
	if err != nil {
		return fmt.Errorf("failed to marshal model ids: %w", err)
	}
	config, err := json.Marshal(r.Config)
	if err != nil {
		return fmt.Errorf("failed to marshal run config: %w", err)
	}
	hardware, err := json.Marshal(r.HardwareInfo)
	if err != nil {
		return fmt.Errorf("failed to marshal hardware info: %w", err)
	}

	query := `
		INSERT INTO runs (id, suite_name, model_ids, config, hardware_info, status, started_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = db.ExecContext(ctx, query,
		r.ID, r.SuiteName, string(modelIDs), string(config), string(hardware),
		string(r.Status), r.StartedAt, nullableTime(r.CompletedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}
	return nil
}

// UpdateRunStatus transitions a run to a terminal or intermediate status.
// completedAt is nil while the run is still in progress.
func (db *DB) UpdateRunStatus(ctx context.Context, id string, status models.RunStatus, completedAt *time.Time) error {
	query := `UPDATE runs SET status = ?, completed_at = ? WHERE id = ?`

	res, err := db.ExecContext(ctx, query, string(status), nullableTime(completedAt), id)
	if err != nil {
		return fmt.Errorf("failed to update run status: %w", err)
	}
	return checkRowsAffected(res)
}

// GetRun retrieves a run by id.
func (db *DB) GetRun(ctx context.Context, id string) (*models.Run, error) {
	query := `
		SELECT id, suite_name, model_ids, config, hardware_info, status, started_at, completed_at
		FROM runs WHERE id = ?
	`
	row := db.QueryRowContext(ctx, query, id)
	r, err := scanRun(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return r, nil
}

// ListRunsFilter narrows ListRuns by status and/or suite name.
type ListRunsFilter struct {
	Status    string
	SuiteName string
	Limit     int
}

// ListRuns returns runs matching the filter, most recent first.
func (db *DB) ListRuns(ctx context.Context, filter ListRunsFilter) ([]*models.Run, error) {
	query := `
		SELECT id, suite_name, model_ids, config, hardware_info, status, started_at, completed_at
		FROM runs WHERE 1=1
	`
	var args []interface{}

	if filter.Status != "" {
		query += " AND status = ?"
		args = append(args, filter.Status)
	}
	if filter.SuiteName != "" {
		query += " AND suite_name = ?"
		args = append(args, filter.SuiteName)
	}

	query += " ORDER BY started_at DESC"

	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var result []*models.Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run row: %w", err)
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

func scanRun(row scannable) (*models.Run, error) {
	var r models.Run
	var status string
	var modelIDs, config, hardware string
	var completedAt sql.NullTime

	if err := row.Scan(&r.ID, &r.SuiteName, &modelIDs, &config, &hardware, &status, &r.StartedAt, &completedAt); err != nil {
		return nil, err
	}

	r.Status = models.RunStatus(status)
	if completedAt.Valid {
		r.CompletedAt = &completedAt.Time
	}
	if err := json.Unmarshal([]byte(modelIDs), &r.ModelIDs); err != nil {
		return nil, fmt.Errorf("failed to unmarshal model ids: %w", err)
	}
	if err := json.Unmarshal([]byte(config), &r.Config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal run config: %w", err)
	}
	if err := json.Unmarshal([]byte(hardware), &r.HardwareInfo); err != nil {
		return nil, fmt.Errorf("failed to unmarshal hardware info: %w", err)
	}
	return &r, nil
}
