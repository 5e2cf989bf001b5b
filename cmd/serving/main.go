package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gorilla/mux"

	"github.com/Robbie-Ortega/modeling-pipeline-guide/api/rest/routes"
	"github.com/Robbie-Ortega/modeling-pipeline-guide/config"
	"github.com/Robbie-Ortega/modeling-pipeline-guide/core/artifact"
	"github.com/Robbie-Ortega/modeling-pipeline-guide/core/registry"
	"github.com/Robbie-Ortega/modeling-pipeline-guide/core/repository"
	"github.com/Robbie-Ortega/modeling-pipeline-guide/core/serving"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx := context.Background()

	meta, closeMeta, err := newMetadataStore(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize metadata store: %v", err)
	}
	defer closeMeta()

	blobs, err := newArtifactStore(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize artifact store: %v", err)
	}

	resolver := registry.NewResolver(meta, cfg.ModelPath)
	svc := serving.NewService(resolver, blobs, cfg.MaxBatchSize)

	// A failed startup load is not fatal: the process stays up in FAILED
	// and POST /load retries it.
	if cfg.ServeRunID != "" {
		loadCtx, cancel := context.WithTimeout(ctx, cfg.RequestTimeout)
		if err := svc.Load(loadCtx, cfg.ServeRunID); err != nil {
			log.Printf("Initial load of run %s failed: %v", cfg.ServeRunID, err)
		}
		cancel()
	}

	r := mux.NewRouter()
	r.Use(routes.WithTimeout(cfg.RequestTimeout))
	routes.SetupServingRoutes(r, svc)

	server := &http.Server{
		Addr:    ":" + cfg.ServingPort,
		Handler: r,
	}

	go func() {
		log.Printf("Starting serving server on port %s", cfg.ServingPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down serving server...")
	if err := server.Shutdown(context.Background()); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}
	log.Println("Server exited")
}

func newMetadataStore(ctx context.Context, cfg *config.Config) (registry.Metadata, func(), error) {
	switch cfg.MetadataBackend {
	case "memory":
		return repository.NewMemoryStore(), func() {}, nil
	case "postgres":
		db, err := repository.NewDB(cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		log.Println("Database connected successfully")
		return repository.NewStore(db), func() { db.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown metadata backend %q", cfg.MetadataBackend)
	}
}

func newArtifactStore(ctx context.Context, cfg *config.Config) (artifact.Store, error) {
	switch cfg.ArtifactBackend {
	case "file":
		return artifact.NewFileStore(cfg.ArtifactRoot)
	case "s3":
		return artifact.NewS3Store(ctx, cfg.ArtifactBucket, cfg.S3Region, cfg.S3Endpoint)
	default:
		return nil, fmt.Errorf("unknown artifact backend %q", cfg.ArtifactBackend)
	}
}
