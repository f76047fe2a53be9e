package dto

import (
	"time"

	"github.com/google/uuid"
)

type JobResponse struct {
	JobID       uuid.UUID  `json:"jobid"`
	Owner       string     `json:"owner"`
	State       string     `json:"state"`
	Description string     `json:"description"`
	MsFilename  string     `json:"ms_filename"`
	ParentJobID *uuid.UUID `json:"parentjobid,omitempty"`
	IsPublic    bool       `json:"is_public"`
	CreatedAt   time.Time  `json:"created_at"`
	Size        int64      `json:"size"`
}

// ListJobsQuery selects a workspace slice: the caller's own jobs, or the
// publicly shared ones, optionally narrowed to a single state.
type ListJobsQuery struct {
	Owner  string
	Public bool
	State  string
	Start  int
	Limit  int
}

type JobListResponse struct {
	Rows  []*JobResponse `json:"rows"`
	Total int64          `json:"total"`
}

type UpdateJobRequest struct {
	Description *string `json:"description,omitempty"`
	MsFilename  *string `json:"ms_filename,omitempty"`
	IsPublic    *bool   `json:"is_public,omitempty"`
}

// SubmitJobRequest carries the work description for the execution daemon:
// the engine command line to run against the store ({db} expands to the
// store filename) and any extra files to stage into the job directory.
type SubmitJobRequest struct {
	Script    string   `json:"script"`
	Prestaged []string `json:"prestaged,omitempty"`
}

// JobQuery is the submission unit handed to the factory: where to run, what
// to run and where the daemon should report status.
type JobQuery struct {
	Dir               string
	Script            string
	Prestaged         []string
	StatusCallbackURL string
}
