package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/llm-bench/engine/pkg/models"
)

// SaveModel inserts or replaces a model descriptor.
func (db *DB) SaveModel(ctx context.Context, m *models.Model) error {
	query := `
		INSERT INTO models (id, alias, model_id, status, endpoint, last_error, last_heartbeat, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			alias = excluded.alias,
			model_id = excluded.model_id,
			status = excluded.status,
			endpoint = excluded.endpoint,
			last_error = excluded.last_error,
			last_heartbeat = excluded.last_heartbeat
	`

	_, err := db.ExecContext(ctx, query,
		m.ID, m.Alias, m.ModelID, string(m.Status),
		nullableString(m.Endpoint), nullableString(m.LastError),
		nullableTimeValue(m.LastHeartbeat), m.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save model: %w", err)
	}
	return nil
}

// GetModel retrieves a model descriptor by id.
func (db *DB) GetModel(ctx context.Context, id string) (*models.Model, error) {
	query := `
		SELECT id, alias, model_id, status, endpoint, last_error, last_heartbeat, created_at
		FROM models WHERE id = ?
	`

	row := db.QueryRowContext(ctx, query, id)
	m, err := scanModel(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get model: %w", err)
	}
	return m, nil
}

// ListModels returns all registered model descriptors, most recent first.
func (db *DB) ListModels(ctx context.Context) ([]*models.Model, error) {
	query := `
		SELECT id, alias, model_id, status, endpoint, last_error, last_heartbeat, created_at
		FROM models ORDER BY created_at DESC
	`

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list models: %w", err)
	}
	defer rows.Close()

	var result []*models.Model
	for rows.Next() {
		m, err := scanModel(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan model row: %w", err)
		}
		result = append(result, m)
	}
	return result, rows.Err()
}

// UpdateModelStatus transitions a model's status, optionally recording the
// backend endpoint it became ready on and/or an error, and always stamps
// last_heartbeat to the current time. endpoint is left unchanged when
// passed as ""; lastError passed as "" clears last_error.
func (db *DB) UpdateModelStatus(ctx context.Context, id string, status models.ModelStatus, endpoint, lastError string) error {
	query := `
		UPDATE models SET
			status = ?,
			endpoint = COALESCE(NULLIF(?, ''), endpoint),
			last_error = ?,
			last_heartbeat = ?
		WHERE id = ?
	`

	res, err := db.ExecContext(ctx, query, string(status), endpoint, nullableString(lastError), time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to update model status: %w", err)
	}
	return checkRowsAffected(res)
}

// UpdateModelHeartbeat records the most recent successful health check.
func (db *DB) UpdateModelHeartbeat(ctx context.Context, id string, at time.Time) error {
	query := `UPDATE models SET last_heartbeat = ? WHERE id = ?`

	res, err := db.ExecContext(ctx, query, at, id)
	if err != nil {
		return fmt.Errorf("failed to update model heartbeat: %w", err)
	}
	return checkRowsAffected(res)
}

// DeleteModel removes a model descriptor.
func (db *DB) DeleteModel(ctx context.Context, id string) error {
	res, err := db.ExecContext(ctx, `DELETE FROM models WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete model: %w", err)
	}
	return checkRowsAffected(res)
}

type scannable interface {
	Scan(dest ...any) error
}

func scanModel(row scannable) (*models.Model, error) {
	var m models.Model
	var status string
	var endpoint, lastError sql.NullString
	var lastHeartbeat sql.NullTime

	if err := row.Scan(&m.ID, &m.Alias, &m.ModelID, &status, &endpoint, &lastError, &lastHeartbeat, &m.CreatedAt); err != nil {
		return nil, err
	}

	m.Status = models.ModelStatus(status)
	m.Endpoint = endpoint.String
	m.LastError = lastError.String
	if lastHeartbeat.Valid {
		m.LastHeartbeat = lastHeartbeat.Time
	}
	return &m, nil
}

func checkRowsAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func nullableString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullableTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func nullableTimeValue(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t, Valid: true}
}
