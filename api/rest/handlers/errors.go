package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Robbie-Ortega/modeling-pipeline-guide/core/models"
	"github.com/Robbie-Ortega/modeling-pipeline-guide/core/serving"
)

// errorBody is the structured error response returned by both APIs
type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// writeError maps a taxonomy error to its HTTP status and structured body.
// Anything outside the taxonomy is an internal error; the message is still
// returned but never a stack trace.
func writeError(w http.ResponseWriter, err error) {
	code, status := classify(err)
	writeJSON(w, status, errorBody{Error: errorDetail{Code: code, Message: err.Error()}})
}

func classify(err error) (string, int) {
	switch {
	case errors.Is(err, models.ErrNotFound):
		return "not_found", http.StatusNotFound
	case errors.Is(err, models.ErrModelNotFound):
		return "model_not_found", http.StatusNotFound
	case errors.Is(err, models.ErrParamConflict):
		return "param_conflict", http.StatusConflict
	case errors.Is(err, models.ErrInvalidStateTransition):
		return "invalid_state_transition", http.StatusConflict
	case errors.Is(err, models.ErrLoadInProgress):
		return "load_in_progress", http.StatusConflict
	case errors.Is(err, models.ErrSchemaMismatch):
		return "schema_mismatch", http.StatusBadRequest
	case errors.Is(err, serving.ErrBatchTooLarge):
		return "batch_too_large", http.StatusRequestEntityTooLarge
	case errors.Is(err, models.ErrTimeout):
		return "timeout", http.StatusGatewayTimeout
	case errors.Is(err, models.ErrStorageUnavailable):
		return "storage_unavailable", http.StatusServiceUnavailable
	default:
		return "internal", http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func badRequest(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusBadRequest, errorBody{Error: errorDetail{Code: "bad_request", Message: message}})
}
