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
	"github.com/Robbie-Ortega/modeling-pipeline-guide/core/repository"
	"github.com/Robbie-Ortega/modeling-pipeline-guide/core/tracking"
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

	svc := tracking.NewService(meta, blobs)

	r := mux.NewRouter()
	r.Use(routes.WithTimeout(cfg.RequestTimeout))
	routes.SetupTrackingRoutes(r, svc)

	server := &http.Server{
		Addr:    ":" + cfg.TrackingPort,
		Handler: r,
	}

	go func() {
		log.Printf("Starting tracking server on port %s", cfg.TrackingPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down tracking server...")
	if err := server.Shutdown(context.Background()); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}
	log.Println("Server exited")
}

func newMetadataStore(ctx context.Context, cfg *config.Config) (tracking.MetadataStore, func(), error) {
	switch cfg.MetadataBackend {
	case "memory":
		return repository.NewMemoryStore(), func() {}, nil
	case "postgres":
		db, err := repository.NewDB(cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		if err := db.Migrate(ctx); err != nil {
			db.Close()
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
