package tracking

import (
	"context"
	"fmt"

	"github.com/Robbie-Ortega/modeling-pipeline-guide/core/artifact"
	"github.com/Robbie-Ortega/modeling-pipeline-guide/core/models"
)

// MetadataStore is the transactional metadata API the tracking service
// runs against. Implemented by repository.Store (Postgres) and
// repository.MemoryStore.
type MetadataStore interface {
	CreateExperiment(ctx context.Context, name string) (*models.Experiment, error)
	GetExperiment(ctx context.Context, id string) (*models.Experiment, error)
	GetExperimentByName(ctx context.Context, name string) (*models.Experiment, error)

	CreateRun(ctx context.Context, experimentID string) (*models.Run, error)
	GetRun(ctx context.Context, id string) (*models.Run, error)
	FinalizeRun(ctx context.Context, id string, status models.RunStatus) error

	InsertParam(ctx context.Context, runID, key, value string) error
	InsertMetric(ctx context.Context, m models.Metric) error
	ListParams(ctx context.Context, runID string) ([]models.Param, error)
	ListMetrics(ctx context.Context, runID string) ([]models.Metric, error)

	CreateArtifactRef(ctx context.Context, runID, logicalPath, storageURI string) error
	ListArtifactRefs(ctx context.Context, runID string) ([]models.ArtifactRef, error)
}

// Service mediates between training clients and the two stores: run state
// and logged values go to the metadata store, artifact bytes to the blob
// store with the reference recorded afterwards.
type Service struct {
	meta  MetadataStore
	blobs artifact.Store
}

// NewService creates a tracking service over the given stores
func NewService(meta MetadataStore, blobs artifact.Store) *Service {
	return &Service{meta: meta, blobs: blobs}
}

// CreateExperiment creates an experiment by name, or returns the existing
// one with that name
func (s *Service) CreateExperiment(ctx context.Context, name string) (*models.Experiment, error) {
	if name == "" {
		return nil, fmt.Errorf("experiment name must not be empty")
	}
	return s.meta.CreateExperiment(ctx, name)
}

// StartRun opens a new RUNNING run under an existing experiment
func (s *Service) StartRun(ctx context.Context, experimentID string) (*models.Run, error) {
	if _, err := s.meta.GetExperiment(ctx, experimentID); err != nil {
		return nil, err
	}
	return s.meta.CreateRun(ctx, experimentID)
}

// LogParam records a write-once param on a RUNNING run
func (s *Service) LogParam(ctx context.Context, runID, key, value string) error {
	if key == "" {
		return fmt.Errorf("param key must not be empty")
	}
	if err := s.requireRunning(ctx, runID); err != nil {
		return err
	}
	return s.meta.InsertParam(ctx, runID, key, value)
}

// LogMetric appends a metric point to a RUNNING run
func (s *Service) LogMetric(ctx context.Context, runID, key string, value float64, step int64) error {
	if key == "" {
		return fmt.Errorf("metric key must not be empty")
	}
	if err := s.requireRunning(ctx, runID); err != nil {
		return err
	}
	return s.meta.InsertMetric(ctx, models.Metric{RunID: runID, Key: key, Value: value, Step: step})
}

// LogArtifact uploads an artifact blob and records its reference. The
// upload always happens first: a failed metadata write can orphan a blob,
// but a reference must never point at bytes that were not acknowledged.
func (s *Service) LogArtifact(ctx context.Context, runID, logicalPath string, data []byte) (string, error) {
	if logicalPath == "" {
		return "", fmt.Errorf("artifact path must not be empty")
	}
	if err := s.requireRunning(ctx, runID); err != nil {
		return "", err
	}

	uri, err := s.blobs.Put(ctx, artifact.Key(runID, logicalPath), data)
	if err != nil {
		return "", fmt.Errorf("upload artifact: %w", err)
	}
	if err := s.meta.CreateArtifactRef(ctx, runID, logicalPath, uri); err != nil {
		return "", fmt.Errorf("record artifact: %w", err)
	}
	return uri, nil
}

// EndRun moves a run to a terminal status. A second call on an already
// terminal run fails with ErrInvalidStateTransition.
func (s *Service) EndRun(ctx context.Context, runID string, status models.RunStatus) error {
	return s.meta.FinalizeRun(ctx, runID, status)
}

// GetRun returns a run together with its params, metrics, and artifact
// references
func (s *Service) GetRun(ctx context.Context, runID string) (*models.RunDetail, error) {
	run, err := s.meta.GetRun(ctx, runID)
	if err != nil {
		return nil, err
	}

	params, err := s.meta.ListParams(ctx, runID)
	if err != nil {
		return nil, err
	}
	metrics, err := s.meta.ListMetrics(ctx, runID)
	if err != nil {
		return nil, err
	}
	refs, err := s.meta.ListArtifactRefs(ctx, runID)
	if err != nil {
		return nil, err
	}

	return &models.RunDetail{Run: *run, Params: params, Metrics: metrics, Artifacts: refs}, nil
}

func (s *Service) requireRunning(ctx context.Context, runID string) error {
	run, err := s.meta.GetRun(ctx, runID)
	if err != nil {
		return err
	}
	if run.Status != models.RunStatusRunning {
		return fmt.Errorf("%w: run %s is %s, not RUNNING", models.ErrInvalidStateTransition, runID, run.Status)
	}
	return nil
}
