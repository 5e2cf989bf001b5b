package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Robbie-Ortega/modeling-pipeline-guide/core/models"
)

// RunRepository handles database operations for runs, params, and metrics
type RunRepository struct {
	db *DB
}

// NewRunRepository creates a new run repository
func NewRunRepository(db *DB) *RunRepository {
	return &RunRepository{db: db}
}

// CreateRun allocates a fresh run id and inserts a RUNNING row. Ids are
// UUIDs, so concurrent creates never collide.
func (r *RunRepository) CreateRun(ctx context.Context, experimentID string) (*models.Run, error) {
	query := `
		INSERT INTO runs (id, experiment_id, status)
		VALUES ($1, $2, $3)
		RETURNING id, experiment_id, status, start_time
	`

	var run models.Run
	err := r.db.QueryRowContext(ctx, query, uuid.New().String(), experimentID, models.RunStatusRunning).Scan(
		&run.ID,
		&run.ExperimentID,
		&run.Status,
		&run.StartTime,
	)
	if err != nil {
		return nil, err
	}

	return &run, nil
}

// GetRun retrieves a run by ID
func (r *RunRepository) GetRun(ctx context.Context, id string) (*models.Run, error) {
	query := `SELECT id, experiment_id, status, start_time, end_time FROM runs WHERE id = $1`

	var run models.Run
	var endTime sql.NullTime
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&run.ID,
		&run.ExperimentID,
		&run.Status,
		&run.StartTime,
		&endTime,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: run %s", models.ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	if endTime.Valid {
		run.EndTime = &endTime.Time
	}

	return &run, nil
}

// FinalizeRun moves a run to a terminal status exactly once. The guard on
// the current status makes a second finalize fail instead of overwriting.
func (r *RunRepository) FinalizeRun(ctx context.Context, id string, status models.RunStatus) error {
	if !status.Terminal() {
		return fmt.Errorf("%w: %s is not a terminal status", models.ErrInvalidStateTransition, status)
	}

	query := `UPDATE runs SET status = $2, end_time = NOW() WHERE id = $1 AND status = $3`
	res, err := r.db.ExecContext(ctx, query, id, status, models.RunStatusRunning)
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		run, err := r.GetRun(ctx, id)
		if err != nil {
			return err
		}
		return fmt.Errorf("%w: run %s already %s", models.ErrInvalidStateTransition, id, run.Status)
	}

	return nil
}

// InsertParam records a write-once param. Re-inserting the same value is a
// no-op success so client retries are safe; a different value for an
// existing key is a conflict.
func (r *RunRepository) InsertParam(ctx context.Context, runID, key, value string) error {
	query := `
		INSERT INTO params (run_id, key, value)
		VALUES ($1, $2, $3)
		ON CONFLICT (run_id, key) DO NOTHING
	`
	res, err := r.db.ExecContext(ctx, query, runID, key, value)
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected > 0 {
		return nil
	}

	var existing string
	err = r.db.QueryRowContext(ctx, `SELECT value FROM params WHERE run_id = $1 AND key = $2`, runID, key).Scan(&existing)
	if err != nil {
		return err
	}
	if existing != value {
		return fmt.Errorf("%w: param %q already set to %q", models.ErrParamConflict, key, existing)
	}
	return nil
}

// InsertMetric appends one point to a run's metric series
func (r *RunRepository) InsertMetric(ctx context.Context, m models.Metric) error {
	query := `INSERT INTO metrics (run_id, key, value, step, timestamp) VALUES ($1, $2, $3, $4, $5)`
	ts := m.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, query, m.RunID, m.Key, m.Value, m.Step, ts)
	return err
}

// ListParams retrieves all params for a run, ordered by key
func (r *RunRepository) ListParams(ctx context.Context, runID string) ([]models.Param, error) {
	query := `SELECT run_id, key, value FROM params WHERE run_id = $1 ORDER BY key`

	rows, err := r.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var params []models.Param
	for rows.Next() {
		var p models.Param
		if err := rows.Scan(&p.RunID, &p.Key, &p.Value); err != nil {
			return nil, err
		}
		params = append(params, p)
	}
	return params, rows.Err()
}

// ListMetrics retrieves all metric points for a run with the stable
// (key, step, timestamp) ordering
func (r *RunRepository) ListMetrics(ctx context.Context, runID string) ([]models.Metric, error) {
	query := `
		SELECT run_id, key, value, step, timestamp
		FROM metrics
		WHERE run_id = $1
		ORDER BY key, step, timestamp
	`

	rows, err := r.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var metrics []models.Metric
	for rows.Next() {
		var m models.Metric
		if err := rows.Scan(&m.RunID, &m.Key, &m.Value, &m.Step, &m.Timestamp); err != nil {
			return nil, err
		}
		metrics = append(metrics, m)
	}
	return metrics, rows.Err()
}
