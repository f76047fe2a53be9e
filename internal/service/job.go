package service

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"ms-annotation-be/internal/apperrors"
	"ms-annotation-be/internal/entity"
	"ms-annotation-be/internal/repository/contract"
	"ms-annotation-be/internal/resultdb"

	"github.com/google/uuid"
)

// Job binds the fast-lookup metadata record to a job directory and an open
// result store, and exposes the lifecycle contract.
type Job struct {
	meta *entity.JobMeta
	Dir  string
	Db   *resultdb.DB

	metaRepo contract.JobMetaRepository
}

func NewJob(meta *entity.JobMeta, dir string, db *resultdb.DB, metaRepo contract.JobMetaRepository) *Job {
	return &Job{meta: meta, Dir: dir, Db: db, metaRepo: metaRepo}
}

func (j *Job) ID() uuid.UUID {
	return j.meta.JobID
}

func (j *Job) Meta() entity.JobMeta {
	return *j.meta
}

func (j *Job) State() string {
	return j.meta.State
}

// SetState persists the new lifecycle state. The write commits before this
// returns, so a daemon callback racing the caller still observes it.
func (j *Job) SetState(ctx context.Context, state string) error {
	j.meta.State = state
	return j.metaRepo.Update(ctx, j.meta)
}

// SetLauncherURL touches only the launcher_url column. A status callback
// racing the submission response keeps the state it wrote.
func (j *Job) SetLauncherURL(ctx context.Context, url string) error {
	if err := j.metaRepo.UpdateLauncherURL(ctx, j.ID(), url); err != nil {
		return err
	}
	j.meta.LauncherURL = url
	return nil
}

func (j *Job) SetOwner(ctx context.Context, owner string) error {
	j.meta.Owner = owner
	return j.metaRepo.Update(ctx, j.meta)
}

func (j *Job) SetIsPublic(ctx context.Context, isPublic bool) error {
	j.meta.IsPublic = isPublic
	return j.metaRepo.Update(ctx, j.meta)
}

// SetDescription writes the description to the meta record and, when the
// store already has a run record, mirrors it there. Reads always come from
// the meta record; the run copy keeps the authoritative store consistent.
func (j *Job) SetDescription(ctx context.Context, description string) error {
	j.meta.Description = description
	if err := j.metaRepo.Update(ctx, j.meta); err != nil {
		return err
	}
	return j.Db.SetRunInfo(ctx, j.meta.Description, j.meta.MsFilename)
}

// SetMsFilename has the same dual-write behavior as SetDescription.
func (j *Job) SetMsFilename(ctx context.Context, msFilename string) error {
	j.meta.MsFilename = msFilename
	if err := j.metaRepo.Update(ctx, j.meta); err != nil {
		return err
	}
	return j.Db.SetRunInfo(ctx, j.meta.Description, j.meta.MsFilename)
}

// IsComplete returns nil only when the job stopped successfully. It fails
// with JobFailedError for the ERROR state, JobIncompleteError for any other
// non-terminal state, and, when mustBeFilled is set, MissingDataError naming
// the first of molecules, peaks or fragments that is absent.
func (j *Job) IsComplete(ctx context.Context, mustBeFilled bool) error {
	switch j.meta.State {
	case entity.StateStopped:
		if !mustBeFilled {
			return nil
		}
		checks := []struct {
			kind string
			has  func(context.Context) (bool, error)
		}{
			{"molecules", j.Db.HasMolecules},
			{"peaks", j.Db.HasPeaks},
			{"fragments", j.Db.HasFragments},
		}
		for _, c := range checks {
			ok, err := c.has(ctx)
			if err != nil {
				return err
			}
			if !ok {
				return &apperrors.MissingDataError{JobID: j.ID(), Kind: c.kind}
			}
		}
		return nil
	case entity.StateError:
		return &apperrors.JobFailedError{JobID: j.ID()}
	default:
		return &apperrors.JobIncompleteError{JobID: j.ID(), State: j.meta.State}
	}
}

// Stdout returns the staged-back stdout of the job, or an empty stream when
// the daemon has not delivered it yet.
func (j *Job) Stdout() io.ReadCloser {
	return j.outputFile("stdout.txt")
}

// Stderr returns the staged-back stderr of the job, or an empty stream.
func (j *Job) Stderr() io.ReadCloser {
	return j.outputFile("stderr.txt")
}

func (j *Job) outputFile(name string) io.ReadCloser {
	f, err := os.Open(filepath.Join(j.Dir, name))
	if err != nil {
		return io.NopCloser(strings.NewReader(""))
	}
	return f
}
