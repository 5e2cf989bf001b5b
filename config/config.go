package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the application configuration for both servers
type Config struct {
	// Metadata store
	DatabaseURL     string `yaml:"database_url"`
	MetadataBackend string `yaml:"metadata_backend"` // postgres | memory

	// Artifact store
	ArtifactBackend string `yaml:"artifact_backend"` // s3 | file
	ArtifactRoot    string `yaml:"artifact_root"`    // file backend root dir
	ArtifactBucket  string `yaml:"artifact_bucket"`  // s3 backend bucket
	S3Region        string `yaml:"s3_region"`
	S3Endpoint      string `yaml:"s3_endpoint"` // set for MinIO-compatible stores

	// Servers
	TrackingPort string `yaml:"tracking_port"`
	ServingPort  string `yaml:"serving_port"`

	// Serving
	ModelPath  string `yaml:"model_path"`   // canonical model logical path
	ServeRunID string `yaml:"serve_run_id"` // run loaded at serving startup

	// Limits
	MaxBatchSize   int           `yaml:"max_batch_size"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// Load loads configuration from environment variables, starting from the
// YAML file named by CONFIG_FILE when set. Environment always wins.
func Load() (*Config, error) {
	cfg := &Config{
		DatabaseURL:     "postgres://localhost/experiment_tracking?sslmode=disable",
		MetadataBackend: "postgres",
		ArtifactBackend: "file",
		ArtifactRoot:    "./artifacts",
		S3Region:        "us-east-1",
		TrackingPort:    "5000",
		ServingPort:     "5001",
		ModelPath:       "model",
		MaxBatchSize:    1000,
		RequestTimeout:  30 * time.Second,
	}

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	cfg.DatabaseURL = getEnv("DATABASE_URL", cfg.DatabaseURL)
	cfg.MetadataBackend = getEnv("METADATA_BACKEND", cfg.MetadataBackend)
	cfg.ArtifactBackend = getEnv("ARTIFACT_BACKEND", cfg.ArtifactBackend)
	cfg.ArtifactRoot = getEnv("ARTIFACT_ROOT", cfg.ArtifactRoot)
	cfg.ArtifactBucket = getEnv("ARTIFACT_BUCKET", cfg.ArtifactBucket)
	cfg.S3Region = getEnv("S3_REGION", cfg.S3Region)
	cfg.S3Endpoint = getEnv("S3_ENDPOINT", cfg.S3Endpoint)
	cfg.TrackingPort = getEnv("TRACKING_PORT", cfg.TrackingPort)
	cfg.ServingPort = getEnv("SERVING_PORT", cfg.ServingPort)
	cfg.ModelPath = getEnv("MODEL_PATH", cfg.ModelPath)
	cfg.ServeRunID = getEnv("SERVE_RUN_ID", cfg.ServeRunID)
	cfg.MaxBatchSize = getEnvInt("MAX_BATCH_SIZE", cfg.MaxBatchSize)
	cfg.RequestTimeout = getEnvDuration("REQUEST_TIMEOUT", cfg.RequestTimeout)

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
