package models

import "time"

// Experiment groups related runs under a unique name
type Experiment struct {
	ID             string    `json:"experiment_id"`
	Name           string    `json:"name"`
	LifecycleStage Lifecycle `json:"lifecycle_stage"`
	CreatedAt      time.Time `json:"created_at"`
}

// Lifecycle represents the lifecycle state of an experiment
type Lifecycle string

const (
	LifecycleActive  Lifecycle = "active"
	LifecycleDeleted Lifecycle = "deleted"
)

// Run represents a single execution of a training script
type Run struct {
	ID           string     `json:"run_id"`
	ExperimentID string     `json:"experiment_id"`
	Status       RunStatus  `json:"status"`
	StartTime    time.Time  `json:"start_time"`
	EndTime      *time.Time `json:"end_time,omitempty"`
}

// RunStatus represents the current status of a run
type RunStatus string

const (
	RunStatusRunning  RunStatus = "RUNNING"
	RunStatusFinished RunStatus = "FINISHED"
	RunStatusFailed   RunStatus = "FAILED"
	RunStatusKilled   RunStatus = "KILLED"
)

// Terminal reports whether the status is a terminal status
func (s RunStatus) Terminal() bool {
	switch s {
	case RunStatusFinished, RunStatusFailed, RunStatusKilled:
		return true
	}
	return false
}

// Param is a write-once configuration value attached to a run
type Param struct {
	RunID string `json:"-"`
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Metric is one point of an append-only time series attached to a run
type Metric struct {
	RunID     string    `json:"-"`
	Key       string    `json:"key"`
	Value     float64   `json:"value"`
	Step      int64     `json:"step"`
	Timestamp time.Time `json:"timestamp"`
}

// ArtifactRef maps a run-local logical path to a blob in the artifact store.
// The artifact store owns the bytes, the metadata store owns this mapping.
type ArtifactRef struct {
	RunID       string    `json:"-"`
	LogicalPath string    `json:"path"`
	StorageURI  string    `json:"storage_uri"`
	CreatedAt   time.Time `json:"created_at"`
}

// RunDetail is a run together with everything logged against it
type RunDetail struct {
	Run       Run           `json:"run"`
	Params    []Param       `json:"params"`
	Metrics   []Metric      `json:"metrics"`
	Artifacts []ArtifactRef `json:"artifacts"`
}

// LatestMetrics reduces the metric series to the latest value per key,
// where latest means the greatest (step, timestamp) pair.
func (d *RunDetail) LatestMetrics() map[string]Metric {
	latest := make(map[string]Metric, len(d.Metrics))
	for _, m := range d.Metrics {
		prev, ok := latest[m.Key]
		if !ok || m.Step > prev.Step || (m.Step == prev.Step && m.Timestamp.After(prev.Timestamp)) {
			latest[m.Key] = m
		}
	}
	return latest
}
