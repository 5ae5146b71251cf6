package db

import (
	"context"
	"fmt"
)

const schemaDDL = `
CREATE TABLE IF NOT EXISTS compliance_runs (
    run_id        TEXT PRIMARY KEY,
    input_path    TEXT NOT NULL,
    input_type    TEXT NOT NULL DEFAULT '',
    output_dir    TEXT NOT NULL DEFAULT '',
    status        TEXT NOT NULL,
    halt_reason   TEXT NOT NULL DEFAULT '',
    tank_count    INTEGER NOT NULL DEFAULT 0,
    error_count   INTEGER NOT NULL DEFAULT 0,
    warning_count INTEGER NOT NULL DEFAULT 0,
    started_at    TIMESTAMPTZ NOT NULL,
    completed_at  TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS run_artifacts (
    run_id     TEXT NOT NULL REFERENCES compliance_runs(run_id) ON DELETE CASCADE,
    step       TEXT NOT NULL,
    category   TEXT NOT NULL DEFAULT '',
    content    JSONB,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    PRIMARY KEY (run_id, step)
);

CREATE TABLE IF NOT EXISTS tank_results (
    run_id        TEXT NOT NULL REFERENCES compliance_runs(run_id) ON DELETE CASCADE,
    ordinal       INTEGER NOT NULL,
    tank_id       TEXT NOT NULL,
    verdict       TEXT NOT NULL DEFAULT '',
    required_feet DOUBLE PRECISION,
    actual_feet   DOUBLE PRECISION,
    detail        JSONB NOT NULL,
    created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    PRIMARY KEY (run_id, ordinal)
);
`

// EnsureSchema creates the archive tables if they do not exist.
func (db *DB) EnsureSchema(ctx context.Context) error {
	if _, err := db.pool.Exec(ctx, schemaDDL); err != nil {
		return fmt.Errorf("failed to ensure archive schema: %w", err)
	}
	return nil
}
