package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/Robbie-Ortega/modeling-pipeline-guide/api/rest/handlers"
	"github.com/Robbie-Ortega/modeling-pipeline-guide/core/serving"
	"github.com/Robbie-Ortega/modeling-pipeline-guide/core/tracking"
)

// SetupTrackingRoutes configures the tracking API routes
func SetupTrackingRoutes(r *mux.Router, svc *tracking.Service) {
	h := handlers.NewTrackingHandler(svc)

	api := r.PathPrefix("/v1").Subrouter()
	api.HandleFunc("/experiments", h.CreateExperiment).Methods("POST")
	api.HandleFunc("/runs", h.StartRun).Methods("POST")
	api.HandleFunc("/runs/{id}", h.GetRun).Methods("GET")
	api.HandleFunc("/runs/{id}/params", h.LogParam).Methods("POST")
	api.HandleFunc("/runs/{id}/metrics", h.LogMetric).Methods("POST")
	api.HandleFunc("/runs/{id}/artifacts", h.LogArtifact).Methods("POST")
	api.HandleFunc("/runs/{id}/finish", h.FinishRun).Methods("POST")

	addHealth(r)
}

// SetupServingRoutes configures the inference API routes
func SetupServingRoutes(r *mux.Router, svc *serving.Service) {
	h := handlers.NewServingHandler(svc)

	r.HandleFunc("/invocations", h.Invocations).Methods("POST")
	r.HandleFunc("/load", h.Load).Methods("POST")
	r.HandleFunc("/status", h.Status).Methods("GET")

	addHealth(r)
}

// WithTimeout bounds every request context so storage calls cannot hang
// past the configured limit
func WithTimeout(d time.Duration) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func addHealth(r *mux.Router) {
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods("GET")
}
