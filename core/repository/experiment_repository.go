package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/Robbie-Ortega/modeling-pipeline-guide/core/models"
)

// ExperimentRepository handles database operations for experiments
type ExperimentRepository struct {
	db *DB
}

// NewExperimentRepository creates a new experiment repository
func NewExperimentRepository(db *DB) *ExperimentRepository {
	return &ExperimentRepository{db: db}
}

// CreateExperiment creates an experiment by name, or returns the existing
// one. Names are unique; a concurrent create of the same name loses the
// insert race and falls back to the committed row.
func (r *ExperimentRepository) CreateExperiment(ctx context.Context, name string) (*models.Experiment, error) {
	if exp, err := r.GetExperimentByName(ctx, name); err == nil {
		return exp, nil
	} else if !errors.Is(err, models.ErrNotFound) {
		return nil, err
	}

	query := `
		INSERT INTO experiments (id, name, lifecycle_stage)
		VALUES ($1, $2, $3)
		RETURNING id, name, lifecycle_stage, created_at
	`

	var exp models.Experiment
	err := r.db.QueryRowContext(ctx, query, uuid.New().String(), name, models.LifecycleActive).Scan(
		&exp.ID,
		&exp.Name,
		&exp.LifecycleStage,
		&exp.CreatedAt,
	)
	if isUniqueViolation(err) {
		return r.GetExperimentByName(ctx, name)
	}
	if err != nil {
		return nil, err
	}

	return &exp, nil
}

// GetExperiment retrieves an experiment by ID
func (r *ExperimentRepository) GetExperiment(ctx context.Context, id string) (*models.Experiment, error) {
	query := `SELECT id, name, lifecycle_stage, created_at FROM experiments WHERE id = $1`
	return r.scanExperiment(r.db.QueryRowContext(ctx, query, id), id)
}

// GetExperimentByName retrieves an experiment by its unique name
func (r *ExperimentRepository) GetExperimentByName(ctx context.Context, name string) (*models.Experiment, error) {
	query := `SELECT id, name, lifecycle_stage, created_at FROM experiments WHERE name = $1`
	return r.scanExperiment(r.db.QueryRowContext(ctx, query, name), name)
}

func (r *ExperimentRepository) scanExperiment(row *sql.Row, ref string) (*models.Experiment, error) {
	var exp models.Experiment
	err := row.Scan(&exp.ID, &exp.Name, &exp.LifecycleStage, &exp.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: experiment %s", models.ErrNotFound, ref)
	}
	if err != nil {
		return nil, err
	}
	return &exp, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
