package registry

import (
	"context"
	"errors"
	"testing"

	"github.com/Robbie-Ortega/modeling-pipeline-guide/core/models"
	"github.com/Robbie-Ortega/modeling-pipeline-guide/core/repository"
)

func finishedRunWithModel(t *testing.T, store *repository.MemoryStore) string {
	t.Helper()
	ctx := context.Background()

	exp, err := store.CreateExperiment(ctx, "resolver")
	if err != nil {
		t.Fatalf("CreateExperiment: %v", err)
	}
	run, err := store.CreateRun(ctx, exp.ID)
	if err != nil {
		t.Fatalf("CreateRun: %v", err)
	}
	if err := store.CreateArtifactRef(ctx, run.ID, "model", "file:///blobs/"+run.ID+"/model"); err != nil {
		t.Fatalf("CreateArtifactRef: %v", err)
	}
	if err := store.FinalizeRun(ctx, run.ID, models.RunStatusFinished); err != nil {
		t.Fatalf("FinalizeRun: %v", err)
	}
	return run.ID
}

func TestResolveFinishedRun(t *testing.T) {
	store := repository.NewMemoryStore()
	runID := finishedRunWithModel(t, store)
	r := NewResolver(store, "model")

	ref, err := r.Resolve(context.Background(), runID)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if ref.LogicalPath != "model" || ref.RunID != runID {
		t.Errorf("ref = %+v, want model ref for run %s", ref, runID)
	}

	// Second resolve comes from cache and must agree
	again, err := r.Resolve(context.Background(), runID)
	if err != nil {
		t.Fatalf("cached Resolve: %v", err)
	}
	if again.StorageURI != ref.StorageURI {
		t.Errorf("cached ref %q differs from first %q", again.StorageURI, ref.StorageURI)
	}
}

func TestResolveUnknownRun(t *testing.T) {
	r := NewResolver(repository.NewMemoryStore(), "model")

	_, err := r.Resolve(context.Background(), "absent")
	if !errors.Is(err, models.ErrNotFound) {
		t.Errorf("Resolve = %v, want ErrNotFound", err)
	}
}

func TestResolveUnfinishedRun(t *testing.T) {
	store := repository.NewMemoryStore()
	ctx := context.Background()

	exp, _ := store.CreateExperiment(ctx, "unfinished")
	run, _ := store.CreateRun(ctx, exp.ID)
	store.CreateArtifactRef(ctx, run.ID, "model", "file:///blobs/model")

	r := NewResolver(store, "model")
	_, err := r.Resolve(ctx, run.ID)
	if !errors.Is(err, models.ErrModelNotFound) {
		t.Errorf("Resolve of RUNNING run = %v, want ErrModelNotFound", err)
	}
}

func TestResolveFailedRun(t *testing.T) {
	store := repository.NewMemoryStore()
	ctx := context.Background()

	exp, _ := store.CreateExperiment(ctx, "failed")
	run, _ := store.CreateRun(ctx, exp.ID)
	store.CreateArtifactRef(ctx, run.ID, "model", "file:///blobs/model")
	store.FinalizeRun(ctx, run.ID, models.RunStatusFailed)

	r := NewResolver(store, "model")
	_, err := r.Resolve(ctx, run.ID)
	if !errors.Is(err, models.ErrModelNotFound) {
		t.Errorf("Resolve of FAILED run = %v, want ErrModelNotFound", err)
	}
}

func TestResolveNoModelArtifact(t *testing.T) {
	store := repository.NewMemoryStore()
	ctx := context.Background()

	exp, _ := store.CreateExperiment(ctx, "no-model")
	run, _ := store.CreateRun(ctx, exp.ID)
	store.CreateArtifactRef(ctx, run.ID, "metrics.csv", "file:///blobs/metrics.csv")
	store.FinalizeRun(ctx, run.ID, models.RunStatusFinished)

	r := NewResolver(store, "model")
	_, err := r.Resolve(ctx, run.ID)
	if !errors.Is(err, models.ErrModelNotFound) {
		t.Errorf("Resolve without model artifact = %v, want ErrModelNotFound", err)
	}
}

func TestInvalidate(t *testing.T) {
	store := repository.NewMemoryStore()
	runID := finishedRunWithModel(t, store)
	r := NewResolver(store, "model")

	if _, err := r.Resolve(context.Background(), runID); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	r.Invalidate(runID)

	// Still resolvable after invalidation, straight from the store
	if _, err := r.Resolve(context.Background(), runID); err != nil {
		t.Errorf("Resolve after Invalidate: %v", err)
	}
}
