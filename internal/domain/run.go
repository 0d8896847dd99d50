package domain

import "time"

// RunKind identifies which pass a run executes
type RunKind string

const (
	RunKindDownload RunKind = "download"
	RunKindValidate RunKind = "validate"
)

// ValidateRunKind checks if a run kind is supported
func ValidateRunKind(kind RunKind) bool {
	return kind == RunKindDownload || kind == RunKindValidate
}

// RunStatus represents the lifecycle state of a run
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusSucceeded RunStatus = "succeeded"
	RunStatusFailed    RunStatus = "failed"
	RunStatusCancelled RunStatus = "cancelled"
)

// RunProgress accumulates the progress events of a run. Sequence and Total
// describe the plan of the object type currently being processed.
type RunProgress struct {
	Processed    int     `json:"processed"`
	Errors       int     `json:"errors"`
	Sequence     int     `json:"sequence"`
	Total        int     `json:"total"`
	UsagePercent float64 `json:"usage_percent"`
	LastMessage  string  `json:"last_message,omitempty"`
}

// Run is one download or validation pass started through the run manager
type Run struct {
	ID         string           `json:"id"`
	Kind       RunKind          `json:"kind"`
	Status     RunStatus        `json:"status"`
	Progress   RunProgress      `json:"progress"`
	Download   *DownloadStats   `json:"download,omitempty"`
	Validation *ValidationStats `json:"validation,omitempty"`
	Summary    string           `json:"summary,omitempty"`
	Error      string           `json:"error,omitempty"`
	StartedAt  time.Time        `json:"started_at"`
	FinishedAt *time.Time       `json:"finished_at,omitempty"`
}

// IsFinished reports whether the run reached a terminal state
func (r *Run) IsFinished() bool {
	return r.Status != RunStatusRunning
}

// Duration returns how long the run took, or has been running so far
func (r *Run) Duration() time.Duration {
	if r.FinishedAt != nil {
		return r.FinishedAt.Sub(r.StartedAt)
	}
	return time.Since(r.StartedAt)
}
