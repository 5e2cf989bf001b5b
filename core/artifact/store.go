package artifact

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Robbie-Ortega/modeling-pipeline-guide/core/models"
)

// Store is a byte-transparent blob backend. Keys are namespaced by run id
// (see Key) so uploads from different runs never collide; Put returns the
// URI the blob is addressable under from then on.
type Store interface {
	Put(ctx context.Context, key string, data []byte) (string, error)
	Get(ctx context.Context, uri string) ([]byte, error)
	Exists(ctx context.Context, uri string) (bool, error)
}

// Key builds the storage key for a run-local logical path
func Key(runID, logicalPath string) string {
	return fmt.Sprintf("%s/%s", runID, logicalPath)
}

const (
	maxAttempts  = 3
	retryBackoff = 200 * time.Millisecond
)

// withRetry runs an idempotent storage operation with bounded backoff.
// Taxonomy errors are surfaced as-is; anything else is treated as a
// transient backend failure and becomes ErrStorageUnavailable once the
// attempts are exhausted.
func withRetry(ctx context.Context, op func() error) error {
	var err error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return fmt.Errorf("%w: %v", models.ErrTimeout, ctx.Err())
			case <-time.After(retryBackoff << (attempt - 1)):
			}
		}

		err = op()
		if err == nil {
			return nil
		}
		if errors.Is(err, models.ErrNotFound) {
			return err
		}
		if ctx.Err() != nil {
			return fmt.Errorf("%w: %v", models.ErrTimeout, ctx.Err())
		}
	}

	return fmt.Errorf("%w: %v", models.ErrStorageUnavailable, err)
}
