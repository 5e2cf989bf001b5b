package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.MetadataBackend != "postgres" {
		t.Errorf("MetadataBackend = %q, want postgres", cfg.MetadataBackend)
	}
	if cfg.ArtifactBackend != "file" {
		t.Errorf("ArtifactBackend = %q, want file", cfg.ArtifactBackend)
	}
	if cfg.ModelPath != "model" {
		t.Errorf("ModelPath = %q, want model", cfg.ModelPath)
	}
	if cfg.MaxBatchSize != 1000 {
		t.Errorf("MaxBatchSize = %d, want 1000", cfg.MaxBatchSize)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("METADATA_BACKEND", "memory")
	t.Setenv("TRACKING_PORT", "9000")
	t.Setenv("MAX_BATCH_SIZE", "25")
	t.Setenv("REQUEST_TIMEOUT", "5s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.MetadataBackend != "memory" {
		t.Errorf("MetadataBackend = %q, want memory", cfg.MetadataBackend)
	}
	if cfg.TrackingPort != "9000" {
		t.Errorf("TrackingPort = %q, want 9000", cfg.TrackingPort)
	}
	if cfg.MaxBatchSize != 25 {
		t.Errorf("MaxBatchSize = %d, want 25", cfg.MaxBatchSize)
	}
	if cfg.RequestTimeout != 5*time.Second {
		t.Errorf("RequestTimeout = %v, want 5s", cfg.RequestTimeout)
	}
}

func TestLoadConfigFileThenEnvWins(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte("artifact_backend: s3\nartifact_bucket: models\ns3_region: eu-west-1\ntracking_port: \"7000\"\n")
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("write config file: %v", err)
	}

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("TRACKING_PORT", "8000")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.ArtifactBackend != "s3" || cfg.ArtifactBucket != "models" || cfg.S3Region != "eu-west-1" {
		t.Errorf("yaml values not applied: %+v", cfg)
	}
	if cfg.TrackingPort != "8000" {
		t.Errorf("TrackingPort = %q, want env override 8000", cfg.TrackingPort)
	}
}

func TestLoadMissingConfigFile(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "absent.yaml"))

	if _, err := Load(); err == nil {
		t.Error("Load with missing config file succeeded, want error")
	}
}
