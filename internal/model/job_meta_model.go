package model

import (
	"time"

	"github.com/google/uuid"
)

// JobMeta lives in the shared meta database, not in a job's result store.
// It is the fast-lookup copy of job metadata; description and ms_filename
// are mirrored into the store's run record when one exists.
type JobMeta struct {
	JobID       uuid.UUID  `gorm:"type:uuid;primaryKey;column:jobid"`
	Owner       string     `gorm:"index"`
	Description string
	MsFilename  string     `gorm:"column:ms_filename"`
	ParentJobID *uuid.UUID `gorm:"type:uuid;column:parentjobid"`
	State       string
	LauncherURL string     `gorm:"column:launcher_url"`
	IsPublic    bool       `gorm:"column:is_public"`
	CreatedAt   time.Time
}

func (JobMeta) TableName() string {
	return "job"
}
