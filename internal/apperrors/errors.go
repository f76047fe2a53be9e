package apperrors

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	// Query engine lookup misses.
	ErrScanNotFound     = errors.New("scan not found")
	ErrMoleculeNotFound = errors.New("molecule not found")
	ErrFragmentNotFound = errors.New("fragment not found")
	ErrPeakNotFound     = errors.New("peak not found")
	ErrPeakNotUnique    = errors.New("multiple peaks match mz window")

	// Query composition contract violations.
	ErrScanRequired = errors.New("scan identifier required for scan scoped column")
	ErrUnknownField = errors.New("unknown field in filter or sort")
	ErrBadFilter    = errors.New("invalid filter descriptor")

	// Storage.
	ErrStorage      = errors.New("job storage failure")
	ErrCorruptStore = errors.New("result store could not be opened")

	// Submission.
	ErrJobSubmission = errors.New("job submission failed")
)

// JobNotFoundError is raised when a job id cannot be resolved to a job,
// either because the meta record is absent or the store file is unusable.
type JobNotFoundError struct {
	JobID uuid.UUID
}

func (e *JobNotFoundError) Error() string {
	return fmt.Sprintf("job %s not found", e.JobID)
}

// JobIncompleteError is raised when a complete job is required but the job
// is still in flight.
type JobIncompleteError struct {
	JobID uuid.UUID
	State string
}

func (e *JobIncompleteError) Error() string {
	return fmt.Sprintf("job %s is not complete (state %s)", e.JobID, e.State)
}

// JobFailedError is raised for jobs that ended in the ERROR state.
type JobFailedError struct {
	JobID   uuid.UUID
	Message string
}

func (e *JobFailedError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("job %s failed for an unknown reason", e.JobID)
	}
	return fmt.Sprintf("job %s failed: %s", e.JobID, e.Message)
}

// MissingDataError is raised when a stopped job is required to be filled but
// lacks molecules, peaks or fragments. Kind names the first missing one.
type MissingDataError struct {
	JobID uuid.UUID
	Kind  string
}

func (e *MissingDataError) Error() string {
	return fmt.Sprintf("job %s has no %s", e.JobID, e.Kind)
}
