package artifact

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/Robbie-Ortega/modeling-pipeline-guide/core/models"
)

func TestFileStoreRoundTrip(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	ctx := context.Background()

	data := []byte("model-bytes")
	uri, err := store.Put(ctx, Key("run-1", "model"), data)
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if !strings.HasPrefix(uri, "file://") {
		t.Errorf("uri = %q, want file:// scheme", uri)
	}

	got, err := store.Get(ctx, uri)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Errorf("Get returned %q, want %q", got, data)
	}

	ok, err := store.Exists(ctx, uri)
	if err != nil {
		t.Fatalf("Exists: %v", err)
	}
	if !ok {
		t.Error("Exists = false for stored artifact")
	}
}

func TestFileStorePutIdempotent(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	ctx := context.Background()

	data := []byte("same-bytes")
	uri1, err := store.Put(ctx, Key("run-1", "model"), data)
	if err != nil {
		t.Fatalf("first Put: %v", err)
	}
	uri2, err := store.Put(ctx, Key("run-1", "model"), data)
	if err != nil {
		t.Fatalf("second Put: %v", err)
	}
	if uri1 != uri2 {
		t.Errorf("retried Put returned %q, want %q", uri2, uri1)
	}

	got, err := store.Get(ctx, uri1)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Errorf("Get returned %q, want %q", got, data)
	}
}

func TestFileStoreGetMissing(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}

	_, err = store.Get(context.Background(), "file://"+t.TempDir()+"/absent")
	if !errors.Is(err, models.ErrNotFound) {
		t.Errorf("Get of missing key = %v, want ErrNotFound", err)
	}
}

func TestFileStoreExistsMissing(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}

	ok, err := store.Exists(context.Background(), "file://"+t.TempDir()+"/absent")
	if err != nil {
		t.Fatalf("Exists: %v", err)
	}
	if ok {
		t.Error("Exists = true for missing artifact")
	}
}

func TestFileStoreRejectsEscapingKey(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}

	if _, err := store.Put(context.Background(), "../outside", []byte("x")); err == nil {
		t.Error("Put with escaping key succeeded, want error")
	}
}

func TestFileStoreRejectsForeignScheme(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}

	if _, err := store.Get(context.Background(), "s3://bucket/key"); err == nil {
		t.Error("Get with s3 URI succeeded, want error")
	}
}
