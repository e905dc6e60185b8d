package syncer

import (
	"fmt"

	"github.com/hashicorp/go-multierror"

	"github.com/oshokin/code-airgap/internal/domain/artifact"
)

// Status is the result of one download task.
type Status int

const (
	// StatusSkipped means the archive was already present; no request was made.
	StatusSkipped Status = iota
	// StatusDownloaded means the archive was fetched and committed.
	StatusDownloaded
	// StatusFailed means the task failed and its partial file was removed.
	StatusFailed
)

// String implements fmt.Stringer.
func (s Status) String() string {
	switch s {
	case StatusSkipped:
		return "skipped"
	case StatusDownloaded:
		return "downloaded"
	case StatusFailed:
		return "failed"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Outcome is the explicit result of one task.
type Outcome struct {
	Task   artifact.Task
	Status Status
	// Bytes is the size written by a successful download.
	Bytes int64
	// Err is the cause of a failure.
	Err error
}

// Report collects the outcomes of a batch, in task order.
type Report struct {
	Outcomes []Outcome
}

// Count returns the number of outcomes with the given status.
func (r *Report) Count(status Status) int {
	count := 0

	for _, o := range r.Outcomes {
		if o.Status == status {
			count++
		}
	}

	return count
}

// Failed returns the failed outcomes.
func (r *Report) Failed() []Outcome {
	var failed []Outcome

	for _, o := range r.Outcomes {
		if o.Status == StatusFailed {
			failed = append(failed, o)
		}
	}

	return failed
}

// Err aggregates the causes of every failed task, or returns nil.
func (r *Report) Err() error {
	var result *multierror.Error

	for _, o := range r.Failed() {
		result = multierror.Append(result, fmt.Errorf("%s: %w", o.Task, o.Err))
	}

	return result.ErrorOrNil()
}
