package app

import "time"

// Run tracks one CLI invocation. Its ID tags every log line the run writes
// so interleaved runs in wsrestore.log can be told apart.
type Run struct {
	ID         string
	Operation  string
	Parameters string
	Status     string // "success" or "error"
	Started    time.Time
}

// NewRun creates a run started at now.
func NewRun(operation, parameters string, now time.Time) *Run {
	return &Run{
		ID:         now.UTC().Format("20060102T150405Z"),
		Operation:  operation,
		Parameters: parameters,
		Status:     "success",
		Started:    now,
	}
}

// Fail marks the run as failed when err is non-nil and returns err.
func (r *Run) Fail(err error) error {
	if err != nil {
		r.Status = "error"
	}
	return err
}

// Elapsed returns the time since the run started, rounded to milliseconds.
func (r *Run) Elapsed(now time.Time) time.Duration {
	return now.Sub(r.Started).Round(time.Millisecond)
}
