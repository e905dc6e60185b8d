package injector

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrArtifactsMissing is returned when the local cache lacks an archive of the selected version.
	ErrArtifactsMissing = errors.New("artifacts missing from local cache")
	// ErrTransfer is returned when staging the archives on the target fails.
	ErrTransfer = errors.New("transfer failed")
	// ErrStepFailed is returned when a provisioning step fails.
	ErrStepFailed = errors.New("provisioning step failed")
	// ErrArchiveMissing is returned when a staged archive is absent on the target.
	ErrArchiveMissing = errors.New("staged archive missing on target")
	// ErrEnvironmentMismatch is returned when the server runtime cannot execute on the target.
	// Retrying does not help: the host lacks the system libraries the runtime needs.
	ErrEnvironmentMismatch = errors.New("target environment cannot run the server")
)

// StepError describes the provisioning step that failed.
type StepError struct {
	Step   string
	Status int
	Output string
	class  error
}

// Error implements error.
func (e *StepError) Error() string {
	msg := fmt.Sprintf("step %s exited with status %d: %v", e.Step, e.Status, e.class)

	if output := strings.TrimSpace(e.Output); output != "" {
		msg += "\n" + output
	}

	return msg
}

// Unwrap returns the failure class.
func (e *StepError) Unwrap() error {
	return e.class
}
