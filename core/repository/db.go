package repository

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
)

// DB wraps the shared sql.DB handle used by all repositories
type DB struct {
	*sql.DB
}

// NewDB opens a Postgres connection and verifies it is reachable
func NewDB(databaseURL string) (*DB, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &DB{DB: db}, nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS experiments (
		id              TEXT PRIMARY KEY,
		name            TEXT NOT NULL UNIQUE,
		lifecycle_stage TEXT NOT NULL DEFAULT 'active',
		created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS runs (
		id            TEXT PRIMARY KEY,
		experiment_id TEXT NOT NULL REFERENCES experiments(id),
		status        TEXT NOT NULL,
		start_time    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		end_time      TIMESTAMPTZ
	)`,
	`CREATE TABLE IF NOT EXISTS params (
		run_id TEXT NOT NULL REFERENCES runs(id),
		key    TEXT NOT NULL,
		value  TEXT NOT NULL,
		PRIMARY KEY (run_id, key)
	)`,
	`CREATE TABLE IF NOT EXISTS metrics (
		id        BIGSERIAL PRIMARY KEY,
		run_id    TEXT NOT NULL REFERENCES runs(id),
		key       TEXT NOT NULL,
		value     DOUBLE PRECISION NOT NULL,
		step      BIGINT NOT NULL DEFAULT 0,
		timestamp TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS metrics_run_key_idx ON metrics (run_id, key, step, timestamp)`,
	`CREATE TABLE IF NOT EXISTS artifact_refs (
		run_id       TEXT NOT NULL REFERENCES runs(id),
		logical_path TEXT NOT NULL,
		storage_uri  TEXT NOT NULL,
		created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (run_id, logical_path)
	)`,
}

// Migrate creates the metadata schema if it does not exist yet
func (db *DB) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate schema: %w", err)
		}
	}
	return nil
}
