package repository

import (
	"context"
	"fmt"

	"github.com/Robbie-Ortega/modeling-pipeline-guide/core/models"
)

// ArtifactRepository handles database operations for artifact references
type ArtifactRepository struct {
	db *DB
}

// NewArtifactRepository creates a new artifact repository
func NewArtifactRepository(db *DB) *ArtifactRepository {
	return &ArtifactRepository{db: db}
}

// CreateArtifactRef records the mapping from a run-local logical path to
// the storage URI of an uploaded blob. Keyed on (run_id, logical_path) with
// insert-if-absent / verify-equal semantics, so a client retrying a
// completed upload succeeds without duplicating the reference.
func (r *ArtifactRepository) CreateArtifactRef(ctx context.Context, runID, logicalPath, storageURI string) error {
	query := `
		INSERT INTO artifact_refs (run_id, logical_path, storage_uri)
		VALUES ($1, $2, $3)
		ON CONFLICT (run_id, logical_path) DO NOTHING
	`
	res, err := r.db.ExecContext(ctx, query, runID, logicalPath, storageURI)
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
	err = r.db.QueryRowContext(ctx,
		`SELECT storage_uri FROM artifact_refs WHERE run_id = $1 AND logical_path = $2`,
		runID, logicalPath,
	).Scan(&existing)
	if err != nil {
		return err
	}
	if existing != storageURI {
		return fmt.Errorf("%w: artifact %q already recorded at %s", models.ErrParamConflict, logicalPath, existing)
	}
	return nil
}

// ListArtifactRefs retrieves the artifact references for a run
func (r *ArtifactRepository) ListArtifactRefs(ctx context.Context, runID string) ([]models.ArtifactRef, error) {
	query := `
		SELECT run_id, logical_path, storage_uri, created_at
		FROM artifact_refs
		WHERE run_id = $1
		ORDER BY logical_path
	`

	rows, err := r.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var refs []models.ArtifactRef
	for rows.Next() {
		var ref models.ArtifactRef
		if err := rows.Scan(&ref.RunID, &ref.LogicalPath, &ref.StorageURI, &ref.CreatedAt); err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, rows.Err()
}
