package registry

import (
	"context"
	"fmt"
	"sync"

	"github.com/Robbie-Ortega/modeling-pipeline-guide/core/models"
)

// Metadata is the read-only slice of the metadata store the resolver needs
type Metadata interface {
	GetRun(ctx context.Context, id string) (*models.Run, error)
	ListArtifactRefs(ctx context.Context, runID string) ([]models.ArtifactRef, error)
}

// Resolver maps a run id to its canonical model artifact reference. A run
// is only servable once FINISHED: artifacts of running or failed runs may
// be incomplete. Resolution is side-effect-free and cached per run id;
// finalized runs never gain new artifacts, so cached entries stay valid
// until explicitly invalidated.
type Resolver struct {
	meta      Metadata
	modelPath string

	mu    sync.RWMutex
	cache map[string]models.ArtifactRef
}

// NewResolver creates a resolver selecting artifacts at the given logical
// path (conventionally "model")
func NewResolver(meta Metadata, modelPath string) *Resolver {
	return &Resolver{
		meta:      meta,
		modelPath: modelPath,
		cache:     make(map[string]models.ArtifactRef),
	}
}

// Resolve returns the model artifact reference for a run
func (r *Resolver) Resolve(ctx context.Context, runID string) (models.ArtifactRef, error) {
	r.mu.RLock()
	ref, ok := r.cache[runID]
	r.mu.RUnlock()
	if ok {
		return ref, nil
	}

	run, err := r.meta.GetRun(ctx, runID)
	if err != nil {
		return models.ArtifactRef{}, err
	}
	if run.Status != models.RunStatusFinished {
		return models.ArtifactRef{}, fmt.Errorf("%w: run %s is %s, not FINISHED", models.ErrModelNotFound, runID, run.Status)
	}

	refs, err := r.meta.ListArtifactRefs(ctx, runID)
	if err != nil {
		return models.ArtifactRef{}, err
	}
	for _, candidate := range refs {
		if candidate.LogicalPath == r.modelPath {
			r.mu.Lock()
			r.cache[runID] = candidate
			r.mu.Unlock()
			return candidate, nil
		}
	}

	return models.ArtifactRef{}, fmt.Errorf("%w: run %s has no artifact at %q", models.ErrModelNotFound, runID, r.modelPath)
}

// Invalidate drops the cached reference for a run
func (r *Resolver) Invalidate(runID string) {
	r.mu.Lock()
	delete(r.cache, runID)
	r.mu.Unlock()
}
