package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/llm-bench/engine/pkg/models"
)

// SaveResult inserts one Benchmark Result for a (run, model, scenario) triple.
func (db *DB) SaveResult(ctx context.Context, r *models.Result) error {
	rawData, err := json.Marshal(r.RawData)
	if err != nil {
		return fmt.Errorf("failed to marshal raw data: %w", err)
	}

	query := `
		INSERT INTO results (
			id, run_id, model_id, scenario, tps, ttft, tpot, gen_tps,
			latency_p50, latency_p95, latency_p99, error_rate, timeout_rate,
			cpu_avg, ram_avg, gpu_avg, total_tokens, total_iterations,
			successful_iterations, raw_data
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = db.ExecContext(ctx, query,
		r.ID, r.RunID, r.ModelID, r.Scenario, r.TPS,
		nullableFloat(r.TTFT), nullableFloat(r.TPOT), nullableFloat(r.GenTPS),
		r.LatencyP50, r.LatencyP95, r.LatencyP99, r.ErrorRate, r.TimeoutRate,
		nullableFloat(r.CPUAvg), nullableFloat(r.RAMAvg), nullableFloat(r.GPUAvg),
		r.TotalTokens, r.TotalIterations, r.SuccessfulIterations, string(rawData),
	)
	if err != nil {
		return fmt.Errorf("failed to save result: %w", err)
	}
	return nil
}

// GetResultsByRun returns every Result recorded for a run.
func (db *DB) GetResultsByRun(ctx context.Context, runID string) ([]*models.Result, error) {
	query := `
		SELECT id, run_id, model_id, scenario, tps, ttft, tpot, gen_tps,
			latency_p50, latency_p95, latency_p99, error_rate, timeout_rate,
			cpu_avg, ram_avg, gpu_avg, total_tokens, total_iterations,
			successful_iterations, raw_data
		FROM results WHERE run_id = ? ORDER BY model_id, scenario
	`
	rows, err := db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list results: %w", err)
	}
	defer rows.Close()

	var result []*models.Result
	for rows.Next() {
		r, err := scanResult(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan result row: %w", err)
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

// GetAllResults returns every Benchmark Result across all runs, most
// recently inserted first. limit <= 0 means no limit.
func (db *DB) GetAllResults(ctx context.Context, limit int) ([]*models.Result, error) {
	query := `
		SELECT id, run_id, model_id, scenario, tps, ttft, tpot, gen_tps,
			latency_p50, latency_p95, latency_p99, error_rate, timeout_rate,
			cpu_avg, ram_avg, gpu_avg, total_tokens, total_iterations,
			successful_iterations, raw_data
		FROM results ORDER BY rowid DESC
	`
	var args []interface{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list all results: %w", err)
	}
	defer rows.Close()

	var result []*models.Result
	for rows.Next() {
		r, err := scanResult(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan result row: %w", err)
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

// GetResult retrieves a single result by id.
func (db *DB) GetResult(ctx context.Context, id string) (*models.Result, error) {
	query := `
		SELECT id, run_id, model_id, scenario, tps, ttft, tpot, gen_tps,
			latency_p50, latency_p95, latency_p99, error_rate, timeout_rate,
			cpu_avg, ram_avg, gpu_avg, total_tokens, total_iterations,
			successful_iterations, raw_data
		FROM results WHERE id = ?
	`
	row := db.QueryRowContext(ctx, query, id)
	r, err := scanResult(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get result: %w", err)
	}
	return r, nil
}

func scanResult(row scannable) (*models.Result, error) {
	var r models.Result
	var ttft, tpot, genTPS, cpuAvg, ramAvg, gpuAvg sql.NullFloat64
	var rawData string

	err := row.Scan(
		&r.ID, &r.RunID, &r.ModelID, &r.Scenario, &r.TPS,
		&ttft, &tpot, &genTPS,
		&r.LatencyP50, &r.LatencyP95, &r.LatencyP99, &r.ErrorRate, &r.TimeoutRate,
		&cpuAvg, &ramAvg, &gpuAvg,
		&r.TotalTokens, &r.TotalIterations, &r.SuccessfulIterations, &rawData,
	)
	if err != nil {
		return nil, err
	}

	r.TTFT = floatPtr(ttft)
	r.TPOT = floatPtr(tpot)
	r.GenTPS = floatPtr(genTPS)
	r.CPUAvg = floatPtr(cpuAvg)
	r.RAMAvg = floatPtr(ramAvg)
	r.GPUAvg = floatPtr(gpuAvg)

	if err := json.Unmarshal([]byte(rawData), &r.RawData); err != nil {
		return nil, fmt.Errorf("failed to unmarshal raw data: %w", err)
	}
	return &r, nil
}

func nullableFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func floatPtr(f sql.NullFloat64) *float64 {
	if !f.Valid {
		return nil
	}
	v := f.Float64
	return &v
}
