package domain

// Outcome classifies how a single plan item ended
type Outcome string

const (
	OutcomeDownloaded Outcome = "downloaded"
	OutcomeExisting   Outcome = "existing"
	OutcomeCopied     Outcome = "copied"
	OutcomeValid      Outcome = "valid"
	OutcomeInvalid    Outcome = "invalid"
	OutcomeMissing    Outcome = "missing"
	OutcomeFailed     Outcome = "failed"
	OutcomeCancelled  Outcome = "cancelled"
)

// IsError reports whether the outcome counts against the run
func (o Outcome) IsError() bool {
	switch o {
	case OutcomeInvalid, OutcomeMissing, OutcomeFailed, OutcomeCancelled:
		return true
	}
	return false
}

// ProgressEvent is emitted once per processed plan item
type ProgressEvent struct {
	Sequence     int     `json:"sequence"`
	Total        int     `json:"total"`
	WorkerID     int     `json:"worker_id"`
	UsagePercent float64 `json:"usage_percent"`
	Outcome      Outcome `json:"outcome"`
	Message      string  `json:"message"`
	ObjectID     string  `json:"object_id"`
	Path         string  `json:"path"`
	Err          error   `json:"-"`
}

// Observer receives progress events. Calls are serialized by the engine.
type Observer interface {
	OnProgress(event ProgressEvent)
}

// ObserverFunc adapts a function to Observer
type ObserverFunc func(event ProgressEvent)

func (f ObserverFunc) OnProgress(event ProgressEvent) { f(event) }

// NopObserver discards events
var NopObserver Observer = ObserverFunc(func(ProgressEvent) {})
