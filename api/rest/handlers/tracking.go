package handlers

import (
	"encoding/base64"
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/Robbie-Ortega/modeling-pipeline-guide/core/models"
	"github.com/Robbie-Ortega/modeling-pipeline-guide/core/tracking"
)

// TrackingHandler handles the tracking API consumed by training clients
type TrackingHandler struct {
	svc *tracking.Service
}

// NewTrackingHandler creates a new tracking handler
func NewTrackingHandler(svc *tracking.Service) *TrackingHandler {
	return &TrackingHandler{svc: svc}
}

// CreateExperimentRequest represents the request to create an experiment
type CreateExperimentRequest struct {
	Name string `json:"name"`
}

// CreateExperiment handles POST /v1/experiments
func (h *TrackingHandler) CreateExperiment(w http.ResponseWriter, r *http.Request) {
	var req CreateExperimentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	if req.Name == "" {
		badRequest(w, "name is required")
		return
	}

	exp, err := h.svc.CreateExperiment(r.Context(), req.Name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, exp)
}

// StartRunRequest represents the request to start a run
type StartRunRequest struct {
	ExperimentID string `json:"experiment_id"`
}

// StartRun handles POST /v1/runs
func (h *TrackingHandler) StartRun(w http.ResponseWriter, r *http.Request) {
	var req StartRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	if req.ExperimentID == "" {
		badRequest(w, "experiment_id is required")
		return
	}

	run, err := h.svc.StartRun(r.Context(), req.ExperimentID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, run)
}

// LogParamRequest represents the request to log a param
type LogParamRequest struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// LogParam handles POST /v1/runs/{id}/params
func (h *TrackingHandler) LogParam(w http.ResponseWriter, r *http.Request) {
	runID := mux.Vars(r)["id"]

	var req LogParamRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	if req.Key == "" {
		badRequest(w, "key is required")
		return
	}

	if err := h.svc.LogParam(r.Context(), runID, req.Key, req.Value); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"run_id": runID, "key": req.Key})
}

// LogMetricRequest represents the request to log a metric point
type LogMetricRequest struct {
	Key   string  `json:"key"`
	Value float64 `json:"value"`
	Step  int64   `json:"step"`
}

// LogMetric handles POST /v1/runs/{id}/metrics
func (h *TrackingHandler) LogMetric(w http.ResponseWriter, r *http.Request) {
	runID := mux.Vars(r)["id"]

	var req LogMetricRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	if req.Key == "" {
		badRequest(w, "key is required")
		return
	}

	if err := h.svc.LogMetric(r.Context(), runID, req.Key, req.Value, req.Step); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"run_id": runID, "key": req.Key})
}

// LogArtifactRequest represents the request to upload an artifact.
// Data is base64 so arbitrary model bytes travel inside JSON.
type LogArtifactRequest struct {
	Path string `json:"path"`
	Data string `json:"data"`
}

// LogArtifact handles POST /v1/runs/{id}/artifacts
func (h *TrackingHandler) LogArtifact(w http.ResponseWriter, r *http.Request) {
	runID := mux.Vars(r)["id"]

	var req LogArtifactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	if req.Path == "" {
		badRequest(w, "path is required")
		return
	}
	data, err := base64.StdEncoding.DecodeString(req.Data)
	if err != nil {
		badRequest(w, "data must be base64")
		return
	}

	uri, err := h.svc.LogArtifact(r.Context(), runID, req.Path, data)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{
		"run_id":      runID,
		"path":        req.Path,
		"storage_uri": uri,
	})
}

// FinishRunRequest represents the request to finalize a run
type FinishRunRequest struct {
	Status string `json:"status"`
}

// FinishRun handles POST /v1/runs/{id}/finish
func (h *TrackingHandler) FinishRun(w http.ResponseWriter, r *http.Request) {
	runID := mux.Vars(r)["id"]

	var req FinishRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid request body")
		return
	}

	status := models.RunStatus(req.Status)
	if status == "" {
		status = models.RunStatusFinished
	}

	if err := h.svc.EndRun(r.Context(), runID, status); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"run_id": runID, "status": string(status)})
}

// GetRun handles GET /v1/runs/{id}
func (h *TrackingHandler) GetRun(w http.ResponseWriter, r *http.Request) {
	runID := mux.Vars(r)["id"]

	detail, err := h.svc.GetRun(r.Context(), runID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}
