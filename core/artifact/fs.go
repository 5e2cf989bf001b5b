package artifact

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Robbie-Ortega/modeling-pipeline-guide/core/models"
)

// FileStore stores blobs under a local root directory, addressed by
// file:// URIs. Used for local single-host deployments and tests.
type FileStore struct {
	root string
}

// NewFileStore creates a file store rooted at the given directory
func NewFileStore(root string) (*FileStore, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create artifact root: %w", err)
	}
	return &FileStore{root: abs}, nil
}

// Put writes the blob for key and returns its file:// URI. Writing the
// same key again replaces the file in place, so retries are idempotent.
func (s *FileStore) Put(ctx context.Context, key string, data []byte) (string, error) {
	path, err := s.keyPath(key)
	if err != nil {
		return "", err
	}

	err = withRetry(ctx, func() error {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return err
		}
		// Write-then-rename so readers never observe a partial blob
		tmp := path + ".tmp"
		if err := os.WriteFile(tmp, data, 0o644); err != nil {
			return err
		}
		return os.Rename(tmp, path)
	})
	if err != nil {
		return "", err
	}

	return "file://" + path, nil
}

// Get reads the blob addressed by a file:// URI
func (s *FileStore) Get(ctx context.Context, uri string) ([]byte, error) {
	path, err := s.uriPath(uri)
	if err != nil {
		return nil, err
	}

	var data []byte
	err = withRetry(ctx, func() error {
		b, err := os.ReadFile(path)
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: artifact %s", models.ErrNotFound, uri)
		}
		if err != nil {
			return err
		}
		data = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return data, nil
}

// Exists reports whether the blob addressed by the URI is present
func (s *FileStore) Exists(ctx context.Context, uri string) (bool, error) {
	path, err := s.uriPath(uri)
	if err != nil {
		return false, err
	}
	_, statErr := os.Stat(path)
	if os.IsNotExist(statErr) {
		return false, nil
	}
	if statErr != nil {
		return false, statErr
	}
	return true, nil
}

func (s *FileStore) keyPath(key string) (string, error) {
	path := filepath.Join(s.root, filepath.FromSlash(key))
	if !strings.HasPrefix(path, s.root+string(filepath.Separator)) {
		return "", fmt.Errorf("artifact key %q escapes store root", key)
	}
	return path, nil
}

func (s *FileStore) uriPath(uri string) (string, error) {
	path, ok := strings.CutPrefix(uri, "file://")
	if !ok {
		return "", fmt.Errorf("unsupported artifact URI scheme: %s", uri)
	}
	return path, nil
}
