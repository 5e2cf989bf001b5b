package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Robbie-Ortega/modeling-pipeline-guide/core/models"
)

// MemoryStore is an in-memory metadata store with the same semantics as the
// Postgres repositories. It backs the "memory" metadata backend for local
// single-process deployments and is the store the test suite runs against.
type MemoryStore struct {
	mu          sync.Mutex
	experiments map[string]models.Experiment // by id
	byName      map[string]string            // experiment name -> id
	runs        map[string]models.Run
	params      map[string]map[string]string // run id -> key -> value
	metrics     map[string][]models.Metric
	artifacts   map[string]map[string]models.ArtifactRef // run id -> logical path -> ref
}

// NewMemoryStore creates an empty in-memory metadata store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		experiments: make(map[string]models.Experiment),
		byName:      make(map[string]string),
		runs:        make(map[string]models.Run),
		params:      make(map[string]map[string]string),
		metrics:     make(map[string][]models.Metric),
		artifacts:   make(map[string]map[string]models.ArtifactRef),
	}
}

// CreateExperiment creates an experiment by name, or returns the existing one
func (s *MemoryStore) CreateExperiment(_ context.Context, name string) (*models.Experiment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.byName[name]; ok {
		exp := s.experiments[id]
		return &exp, nil
	}

	exp := models.Experiment{
		ID:             uuid.New().String(),
		Name:           name,
		LifecycleStage: models.LifecycleActive,
		CreatedAt:      time.Now().UTC(),
	}
	s.experiments[exp.ID] = exp
	s.byName[name] = exp.ID
	return &exp, nil
}

// GetExperiment retrieves an experiment by ID
func (s *MemoryStore) GetExperiment(_ context.Context, id string) (*models.Experiment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	exp, ok := s.experiments[id]
	if !ok {
		return nil, fmt.Errorf("%w: experiment %s", models.ErrNotFound, id)
	}
	return &exp, nil
}

// GetExperimentByName retrieves an experiment by its unique name
func (s *MemoryStore) GetExperimentByName(_ context.Context, name string) (*models.Experiment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: experiment %s", models.ErrNotFound, name)
	}
	exp := s.experiments[id]
	return &exp, nil
}

// CreateRun allocates a fresh run id and records a RUNNING run
func (s *MemoryStore) CreateRun(_ context.Context, experimentID string) (*models.Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	run := models.Run{
		ID:           uuid.New().String(),
		ExperimentID: experimentID,
		Status:       models.RunStatusRunning,
		StartTime:    time.Now().UTC(),
	}
	s.runs[run.ID] = run
	return &run, nil
}

// GetRun retrieves a run by ID
func (s *MemoryStore) GetRun(_ context.Context, id string) (*models.Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	run, ok := s.runs[id]
	if !ok {
		return nil, fmt.Errorf("%w: run %s", models.ErrNotFound, id)
	}
	return &run, nil
}

// FinalizeRun moves a run to a terminal status exactly once
func (s *MemoryStore) FinalizeRun(_ context.Context, id string, status models.RunStatus) error {
	if !status.Terminal() {
		return fmt.Errorf("%w: %s is not a terminal status", models.ErrInvalidStateTransition, status)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	run, ok := s.runs[id]
	if !ok {
		return fmt.Errorf("%w: run %s", models.ErrNotFound, id)
	}
	if run.Status != models.RunStatusRunning {
		return fmt.Errorf("%w: run %s already %s", models.ErrInvalidStateTransition, id, run.Status)
	}

	now := time.Now().UTC()
	run.Status = status
	run.EndTime = &now
	s.runs[id] = run
	return nil
}

// InsertParam records a write-once param with verify-equal retry semantics
func (s *MemoryStore) InsertParam(_ context.Context, runID, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	kv, ok := s.params[runID]
	if !ok {
		kv = make(map[string]string)
		s.params[runID] = kv
	}
	if existing, ok := kv[key]; ok {
		if existing != value {
			return fmt.Errorf("%w: param %q already set to %q", models.ErrParamConflict, key, existing)
		}
		return nil
	}
	kv[key] = value
	return nil
}

// InsertMetric appends one point to a run's metric series
func (s *MemoryStore) InsertMetric(_ context.Context, m models.Metric) error {
	if m.Timestamp.IsZero() {
		m.Timestamp = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.metrics[m.RunID] = append(s.metrics[m.RunID], m)
	return nil
}

// ListParams retrieves all params for a run, ordered by key
func (s *MemoryStore) ListParams(_ context.Context, runID string) ([]models.Param, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var params []models.Param
	for key, value := range s.params[runID] {
		params = append(params, models.Param{RunID: runID, Key: key, Value: value})
	}
	sort.Slice(params, func(i, j int) bool { return params[i].Key < params[j].Key })
	return params, nil
}

// ListMetrics retrieves all metric points for a run with the stable
// (key, step, timestamp) ordering
func (s *MemoryStore) ListMetrics(_ context.Context, runID string) ([]models.Metric, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	metrics := make([]models.Metric, len(s.metrics[runID]))
	copy(metrics, s.metrics[runID])
	sort.SliceStable(metrics, func(i, j int) bool {
		if metrics[i].Key != metrics[j].Key {
			return metrics[i].Key < metrics[j].Key
		}
		if metrics[i].Step != metrics[j].Step {
			return metrics[i].Step < metrics[j].Step
		}
		return metrics[i].Timestamp.Before(metrics[j].Timestamp)
	})
	return metrics, nil
}

// CreateArtifactRef records an artifact reference with insert-if-absent /
// verify-equal semantics keyed on (run id, logical path)
func (s *MemoryStore) CreateArtifactRef(_ context.Context, runID, logicalPath, storageURI string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	refs, ok := s.artifacts[runID]
	if !ok {
		refs = make(map[string]models.ArtifactRef)
		s.artifacts[runID] = refs
	}
	if existing, ok := refs[logicalPath]; ok {
		if existing.StorageURI != storageURI {
			return fmt.Errorf("%w: artifact %q already recorded at %s", models.ErrParamConflict, logicalPath, existing.StorageURI)
		}
		return nil
	}
	refs[logicalPath] = models.ArtifactRef{
		RunID:       runID,
		LogicalPath: logicalPath,
		StorageURI:  storageURI,
		CreatedAt:   time.Now().UTC(),
	}
	return nil
}

// ListArtifactRefs retrieves the artifact references for a run
func (s *MemoryStore) ListArtifactRefs(_ context.Context, runID string) ([]models.ArtifactRef, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var refs []models.ArtifactRef
	for _, ref := range s.artifacts[runID] {
		refs = append(refs, ref)
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i].LogicalPath < refs[j].LogicalPath })
	return refs, nil
}
