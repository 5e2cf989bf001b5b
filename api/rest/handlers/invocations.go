package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/Robbie-Ortega/modeling-pipeline-guide/core/serving"
)

// ServingHandler handles the inference API in front of a serving service
type ServingHandler struct {
	svc *serving.Service
}

// NewServingHandler creates a new serving handler
func NewServingHandler(svc *serving.Service) *ServingHandler {
	return &ServingHandler{svc: svc}
}

// InvocationsRequest represents a batch prediction request
type InvocationsRequest struct {
	Inputs []map[string]float64 `json:"inputs"`
}

// InvocationsResponse represents the predictions, one per input record in
// input order
type InvocationsResponse struct {
	Predictions []float64 `json:"predictions"`
}

// Invocations handles POST /invocations
func (h *ServingHandler) Invocations(w http.ResponseWriter, r *http.Request) {
	var req InvocationsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	if len(req.Inputs) == 0 {
		badRequest(w, "inputs must not be empty")
		return
	}

	predictions, err := h.svc.Predict(r.Context(), req.Inputs)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, InvocationsResponse{Predictions: predictions})
}

// LoadRequest represents an explicit load or reload request
type LoadRequest struct {
	RunID string `json:"run_id"`
}

// Load handles POST /load
func (h *ServingHandler) Load(w http.ResponseWriter, r *http.Request) {
	var req LoadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	if req.RunID == "" {
		badRequest(w, "run_id is required")
		return
	}

	if err := h.svc.Load(r.Context(), req.RunID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.svc.Status())
}

// Status handles GET /status
func (h *ServingHandler) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Status())
}
