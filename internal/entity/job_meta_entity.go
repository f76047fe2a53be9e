package entity

import (
	"time"

	"github.com/google/uuid"
)

// Job lifecycle states. States are opaque strings reported by the execution
// daemon; only the ones the backend itself writes are named here.
const (
	StateStopped         = "STOPPED"
	StatePending         = "PENDING"
	StateError           = "ERROR"
	StateSubmissionError = "SUBMISSION_ERROR"
)

type JobMeta struct {
	JobID       uuid.UUID
	Owner       string
	Description string
	MsFilename  string
	ParentJobID *uuid.UUID
	State       string
	LauncherURL string
	IsPublic    bool
	CreatedAt   time.Time
}

// IsTerminal reports whether the state is one the daemon will never move
// the job out of.
func IsTerminal(state string) bool {
	return state == StateStopped || state == StateError || state == StateSubmissionError
}
