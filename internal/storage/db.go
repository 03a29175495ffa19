// Package storage implements the Repository contract against SQLite:
// durable persistence of models, runs, results, and audit log entries.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// DB wraps the SQL database connection.
type DB struct {
	*sql.DB
}

// New creates a new database connection. WAL journaling plus
// SetMaxOpenConns(1) enforce the Repository's single-writer-across-process
// concurrency contract at the driver level.
func New(dbPath string) (*DB, error) {
	dir := filepath.Dir(dbPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	return &DB{db}, nil
}

// Migrate runs database migrations.
func (db *DB) Migrate(ctx context.Context) error {
	migrations := []string{
		migrationModels,
		migrationRuns,
		migrationResults,
		migrationAuditLog,
		migrationSchedules,
		migrationIndexes,
	}

	for i, migration := range migrations {
		if _, err := db.ExecContext(ctx, migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}

	return nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.DB.Close()
}

const migrationModels = `
CREATE TABLE IF NOT EXISTS models (
	id TEXT PRIMARY KEY,
	alias TEXT NOT NULL,
	model_id TEXT NOT NULL,
	status TEXT NOT NULL DEFAULT 'stopped',
	endpoint TEXT,
	last_error TEXT,
	last_heartbeat DATETIME,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

const migrationRuns = `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	suite_name TEXT NOT NULL,
	model_ids TEXT NOT NULL,
	config TEXT NOT NULL,
	hardware_info TEXT NOT NULL,
	status TEXT NOT NULL DEFAULT 'running',
	started_at DATETIME NOT NULL,
	completed_at DATETIME
);
`

const migrationResults = `
CREATE TABLE IF NOT EXISTS results (
	id TEXT PRIMARY KEY,
	run_id TEXT NOT NULL,
	model_id TEXT NOT NULL,
	scenario TEXT NOT NULL,
	tps REAL NOT NULL DEFAULT 0,
	ttft REAL,
	tpot REAL,
	gen_tps REAL,
	latency_p50 REAL NOT NULL DEFAULT 0,
	latency_p95 REAL NOT NULL DEFAULT 0,
	latency_p99 REAL NOT NULL DEFAULT 0,
	error_rate REAL NOT NULL DEFAULT 0,
	timeout_rate REAL NOT NULL DEFAULT 0,
	cpu_avg REAL,
	ram_avg REAL,
	gpu_avg REAL,
	total_tokens INTEGER NOT NULL DEFAULT 0,
	total_iterations INTEGER NOT NULL DEFAULT 0,
	successful_iterations INTEGER NOT NULL DEFAULT 0,
	raw_data TEXT NOT NULL DEFAULT '{}',
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,

	FOREIGN KEY (run_id) REFERENCES runs(id)
);
`

const migrationAuditLog = `
CREATE TABLE IF NOT EXISTS audit_log (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	entity_type TEXT NOT NULL,
	entity_id TEXT NOT NULL,
	level TEXT NOT NULL,
	message TEXT NOT NULL,
	metadata TEXT,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

const migrationSchedules = `
CREATE TABLE IF NOT EXISTS schedules (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	cron_expr TEXT NOT NULL,
	run_request TEXT NOT NULL,
	enabled INTEGER NOT NULL DEFAULT 1,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	last_run_at DATETIME
);
`

const migrationIndexes = `
CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_results_run_id ON results(run_id);
CREATE INDEX IF NOT EXISTS idx_results_model_id ON results(model_id);
CREATE INDEX IF NOT EXISTS idx_audit_log_entity ON audit_log(entity_type, entity_id);
CREATE INDEX IF NOT EXISTS idx_audit_log_created_at ON audit_log(created_at);
`
