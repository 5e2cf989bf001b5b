package serving

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/Robbie-Ortega/modeling-pipeline-guide/core/artifact"
	"github.com/Robbie-Ortega/modeling-pipeline-guide/core/models"
	"github.com/Robbie-Ortega/modeling-pipeline-guide/core/registry"
)

// State represents the serving service lifecycle state
type State string

const (
	StateUnloaded  State = "UNLOADED"
	StateLoading   State = "LOADING"
	StateReady     State = "READY"
	StateFailed    State = "FAILED"
	StateUnloading State = "UNLOADING"
)

// DefaultMaxBatch bounds the number of records accepted per predict call
// when the config does not set a limit
const DefaultMaxBatch = 1000

// ErrBatchTooLarge indicates a predict request above the configured batch
// limit; the bound keeps per-request memory finite
var ErrBatchTooLarge = errors.New("batch too large")

// servedModel is the process-local loaded model. Never persisted; replaced
// wholesale on reload and destroyed on unload.
type servedModel struct {
	runID     string
	predictor Predictor
	schema    []string
	loadTime  time.Time
}

// Service owns at most one served model and answers synchronous inference
// requests against it. All state transitions go through the mutex; the
// LOADING transition is single-writer, so concurrent loads cannot race.
type Service struct {
	resolver *registry.Resolver
	blobs    artifact.Store
	maxBatch int

	mu      sync.RWMutex
	state   State
	model   *servedModel
	loadErr error
}

// NewService creates an unloaded serving service
func NewService(resolver *registry.Resolver, blobs artifact.Store, maxBatch int) *Service {
	if maxBatch <= 0 {
		maxBatch = DefaultMaxBatch
	}
	return &Service{
		resolver: resolver,
		blobs:    blobs,
		maxBatch: maxBatch,
		state:    StateUnloaded,
	}
}

// Status is a point-in-time snapshot of the service state
type Status struct {
	State    State      `json:"state"`
	RunID    string     `json:"run_id,omitempty"`
	LoadTime *time.Time `json:"load_time,omitempty"`
	Error    string     `json:"error,omitempty"`
}

// Status reports the current state, the served run if READY, and the
// causing error if FAILED
func (s *Service) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Status{State: s.state}
	if s.model != nil {
		st.RunID = s.model.runID
		t := s.model.loadTime
		st.LoadTime = &t
	}
	if s.loadErr != nil {
		st.Error = s.loadErr.Error()
	}
	return st
}

// Load resolves a run's model artifact, fetches and deserializes it, and
// transitions to READY. On any error the service lands in FAILED with the
// cause preserved; an explicit Load call is also how FAILED is left again.
// A Load while another is in flight fails with ErrLoadInProgress.
func (s *Service) Load(ctx context.Context, runID string) error {
	s.mu.Lock()
	if s.state == StateLoading || s.state == StateUnloading {
		s.mu.Unlock()
		return fmt.Errorf("%w: service is %s", models.ErrLoadInProgress, s.state)
	}
	s.state = StateLoading
	s.loadErr = nil
	s.mu.Unlock()

	model, err := s.load(ctx, runID)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.state = StateFailed
		s.model = nil
		s.loadErr = err
		log.Printf("Model load for run %s failed: %v", runID, err)
		return err
	}
	s.state = StateReady
	s.model = model
	log.Printf("Model for run %s loaded, %d features", runID, len(model.schema))
	return nil
}

// load does the slow work outside the lock. Nothing here touches service
// state, so an abandoned load leaves no partially visible model.
func (s *Service) load(ctx context.Context, runID string) (*servedModel, error) {
	ref, err := s.resolver.Resolve(ctx, runID)
	if err != nil {
		return nil, err
	}

	data, err := s.blobs.Get(ctx, ref.StorageURI)
	if err != nil {
		return nil, fmt.Errorf("fetch model artifact: %w", err)
	}

	predictor, schema, err := OpenModel(data)
	if err != nil {
		return nil, fmt.Errorf("open model artifact: %w", err)
	}

	return &servedModel{
		runID:     runID,
		predictor: predictor,
		schema:    schema,
		loadTime:  time.Now().UTC(),
	}, nil
}

// Unload discards the served model and returns to UNLOADED
func (s *Service) Unload() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateLoading {
		return fmt.Errorf("%w: cannot unload while loading", models.ErrLoadInProgress)
	}
	s.state = StateUnloaded
	s.model = nil
	s.loadErr = nil
	return nil
}

// Predict applies the served model row-wise and returns one prediction per
// input record in input order. Only valid in READY state; each record must
// carry exactly the model's expected features.
func (s *Service) Predict(_ context.Context, records []map[string]float64) ([]float64, error) {
	s.mu.RLock()
	state, model := s.state, s.model
	s.mu.RUnlock()

	if state != StateReady || model == nil {
		return nil, fmt.Errorf("%w: service is %s, not READY", models.ErrInvalidStateTransition, state)
	}
	if len(records) > s.maxBatch {
		return nil, fmt.Errorf("%w: %d records exceeds limit of %d", ErrBatchTooLarge, len(records), s.maxBatch)
	}

	rows := make([][]float64, len(records))
	for i, record := range records {
		row, err := orderRecord(model.schema, record)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		rows[i] = row
	}

	return model.predictor.Predict(rows)
}

// Schema returns the served model's ordered feature names, or nil if no
// model is loaded
func (s *Service) Schema() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.model == nil {
		return nil
	}
	schema := make([]string, len(s.model.schema))
	copy(schema, s.model.schema)
	return schema
}

// orderRecord maps a keyed record onto the model's feature order,
// rejecting missing or extra features
func orderRecord(schema []string, record map[string]float64) ([]float64, error) {
	if len(record) != len(schema) {
		return nil, mismatch(schema, record)
	}
	row := make([]float64, len(schema))
	for i, feature := range schema {
		value, ok := record[feature]
		if !ok {
			return nil, mismatch(schema, record)
		}
		row[i] = value
	}
	return row, nil
}

func mismatch(schema []string, record map[string]float64) error {
	for _, feature := range schema {
		if _, ok := record[feature]; !ok {
			return fmt.Errorf("%w: missing feature %q", models.ErrSchemaMismatch, feature)
		}
	}
	expected := make(map[string]bool, len(schema))
	for _, feature := range schema {
		expected[feature] = true
	}
	for key := range record {
		if !expected[key] {
			return fmt.Errorf("%w: unexpected feature %q", models.ErrSchemaMismatch, key)
		}
	}
	return models.ErrSchemaMismatch
}
