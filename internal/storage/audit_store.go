package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/llm-bench/engine/pkg/models"
)

// auditLogMaxRows bounds the audit_log table process-globally; AppendLog
// prunes the oldest rows across all entities past this count on every
// write, rather than per-entity, keeping the ring a single simple bound.
const auditLogMaxRows = 1000

// AppendLog appends one audit entry and prunes the oldest rows beyond
// auditLogMaxRows for the table as a whole.
func (db *DB) AppendLog(ctx context.Context, entry *models.AuditLogEntry) error {
	var metadata sql.NullString
	if entry.Metadata != nil {
		raw, err := json.Marshal(entry.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal audit metadata: %w", err)
		}
		metadata = sql.NullString{String: string(raw), Valid: true}
	}

	query := `
		INSERT INTO audit_log (entity_type, entity_id, level, message, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	if _, err := db.ExecContext(ctx, query, entry.EntityType, entry.EntityID, string(entry.Level), entry.Message, metadata, entry.CreatedAt); err != nil {
		return fmt.Errorf("failed to append audit log entry: %w", err)
	}

	pruneQuery := `
		DELETE FROM audit_log WHERE id NOT IN (
			SELECT id FROM audit_log ORDER BY created_at DESC, id DESC LIMIT ?
		)
	`
	if _, err := db.ExecContext(ctx, pruneQuery, auditLogMaxRows); err != nil {
		return fmt.Errorf("failed to prune audit log: %w", err)
	}
	return nil
}

// GetLogs returns the audit trail for one entity, newest first. limit <= 0
// means no limit.
func (db *DB) GetLogs(ctx context.Context, entityType, entityID string, limit int) ([]*models.AuditLogEntry, error) {
	query := `
		SELECT entity_type, entity_id, level, message, metadata, created_at
		FROM audit_log WHERE entity_type = ? AND entity_id = ?
		ORDER BY created_at DESC, id DESC
	`
	args := []interface{}{entityType, entityID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit log entries: %w", err)
	}
	defer rows.Close()

	var result []*models.AuditLogEntry
	for rows.Next() {
		var entry models.AuditLogEntry
		var level string
		var metadata sql.NullString

		if err := rows.Scan(&entry.EntityType, &entry.EntityID, &level, &entry.Message, &metadata, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan audit log row: %w", err)
		}
		entry.Level = models.AuditLevel(level)
		if metadata.Valid {
			if err := json.Unmarshal([]byte(metadata.String), &entry.Metadata); err != nil {
				return nil, fmt.Errorf("failed to unmarshal audit metadata: %w", err)
			}
		}
		result = append(result, &entry)
	}
	return result, rows.Err()
}
