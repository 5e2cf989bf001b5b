package models

import "errors"

// Error taxonomy shared by the tracking and serving services. Storage and
// service layers wrap these with fmt.Errorf("...: %w", err); the HTTP layer
// maps them to structured responses with errors.Is.
var (
	// ErrNotFound indicates an unknown experiment, run, or artifact
	ErrNotFound = errors.New("not found")

	// ErrInvalidStateTransition indicates an operation that is not legal
	// for the current run or service state
	ErrInvalidStateTransition = errors.New("invalid state transition")

	// ErrParamConflict indicates an immutable param rewritten with a
	// different value
	ErrParamConflict = errors.New("param conflict")

	// ErrSchemaMismatch indicates an inference input whose features do not
	// match the loaded model's schema
	ErrSchemaMismatch = errors.New("schema mismatch")

	// ErrLoadInProgress indicates a load requested while another load is
	// already in flight
	ErrLoadInProgress = errors.New("load in progress")

	// ErrModelNotFound indicates a run with no servable model artifact
	ErrModelNotFound = errors.New("model not found")

	// ErrTimeout indicates a storage call that exceeded its deadline;
	// retryable by the caller
	ErrTimeout = errors.New("timeout")

	// ErrStorageUnavailable indicates a transient backend failure that
	// survived bounded retries
	ErrStorageUnavailable = errors.New("storage unavailable")
)
