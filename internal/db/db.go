// Package db provides optional PostgreSQL archival of pipeline runs and their
// artifacts. The filesystem checkpoint remains the source of truth for
// resume; the database is an audit archive shared across machines.
package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mfigueroa/tank-compliance/internal/types"
)

// DB wraps a PostgreSQL connection pool.
type DB struct {
	pool *pgxpool.Pool
}

// Connect establishes a connection pool to the database.
func Connect(ctx context.Context, databaseURL string) (*DB, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{pool: pool}, nil
}

// Close closes the connection pool.
func (db *DB) Close() {
	if db.pool != nil {
		db.pool.Close()
	}
}

// CreateRun records the start of a pipeline run.
func (db *DB) CreateRun(ctx context.Context, run *types.PipelineRun) error {
	_, err := db.pool.Exec(ctx,
		`INSERT INTO compliance_runs (run_id, input_path, input_type, output_dir, status, started_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (run_id) DO NOTHING`,
		run.RunID, run.InputPath, string(run.InputType), run.OutputDir, string(run.Status), run.StartedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create run record: %w", err)
	}
	return nil
}

// CompleteRun records a run's terminal status and summary counters.
func (db *DB) CompleteRun(ctx context.Context, run *types.PipelineRun) error {
	_, err := db.pool.Exec(ctx,
		`UPDATE compliance_runs
		 SET status = $1, halt_reason = $2, tank_count = $3,
		     error_count = $4, warning_count = $5, completed_at = NOW()
		 WHERE run_id = $6`,
		string(run.Status), run.HaltReason, run.TankCount(),
		len(run.Errors), len(run.Warnings), run.RunID,
	)
	if err != nil {
		return fmt.Errorf("failed to complete run record: %w", err)
	}
	return nil
}

// SaveArtifact stores a JSON artifact produced by a step. Re-running a step
// overwrites its previous artifact.
func (db *DB) SaveArtifact(ctx context.Context, runID, step, category string, content any) error {
	jsonBytes, err := json.Marshal(content)
	if err != nil {
		return fmt.Errorf("failed to marshal artifact: %w", err)
	}

	_, err = db.pool.Exec(ctx,
		`INSERT INTO run_artifacts (run_id, step, category, content)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (run_id, step) DO UPDATE SET category = $3, content = $4, created_at = NOW()`,
		runID, step, category, jsonBytes,
	)
	if err != nil {
		return fmt.Errorf("failed to save artifact %s: %w", step, err)
	}
	return nil
}

// GetArtifact retrieves a JSON artifact by run ID and step. Returns nil when
// the step stored nothing.
func (db *DB) GetArtifact(ctx context.Context, runID, step string) ([]byte, error) {
	var content []byte
	err := db.pool.QueryRow(ctx,
		`SELECT content FROM run_artifacts WHERE run_id = $1 AND step = $2`,
		runID, step,
	).Scan(&content)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get artifact %s: %w", step, err)
	}
	return content, nil
}

// SaveTankResults archives the per-tank outcomes for a run, replacing any
// previous rows for the same run.
func (db *DB) SaveTankResults(ctx context.Context, runID string, tanks []*types.Tank) error {
	_, err := db.pool.Exec(ctx, `DELETE FROM tank_results WHERE run_id = $1`, runID)
	if err != nil {
		return fmt.Errorf("failed to clear tank results: %w", err)
	}

	for ordinal, tank := range tanks {
		tankJSON, err := json.Marshal(tank)
		if err != nil {
			return fmt.Errorf("failed to marshal tank %s: %w", tank.ID, err)
		}
		_, err = db.pool.Exec(ctx,
			`INSERT INTO tank_results (run_id, ordinal, tank_id, verdict, required_feet, actual_feet, detail)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			runID, ordinal, tank.ID, string(tank.Verdict),
			tank.RequiredDistanceFeet(), tank.ActualDistanceFeet, tankJSON,
		)
		if err != nil {
			return fmt.Errorf("failed to save tank result %s: %w", tank.ID, err)
		}
	}
	return nil
}

// GetTankResults retrieves the archived tank outcomes for a run in source
// row order.
func (db *DB) GetTankResults(ctx context.Context, runID string) ([]*types.Tank, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT detail FROM tank_results WHERE run_id = $1 ORDER BY ordinal`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get tank results: %w", err)
	}
	defer rows.Close()

	var tanks []*types.Tank
	for rows.Next() {
		var detail []byte
		if err := rows.Scan(&detail); err != nil {
			return nil, err
		}
		var tank types.Tank
		if err := json.Unmarshal(detail, &tank); err != nil {
			return nil, fmt.Errorf("corrupt tank result row: %w", err)
		}
		tanks = append(tanks, &tank)
	}
	return tanks, rows.Err()
}
