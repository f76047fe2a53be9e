package service

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"ms-annotation-be/internal/apperrors"
	"ms-annotation-be/internal/config"
	"ms-annotation-be/internal/dto"
	"ms-annotation-be/internal/entity"
	"ms-annotation-be/internal/pkg/logger"
	"ms-annotation-be/internal/repository/contract"
	"ms-annotation-be/internal/repository/specification"
	"ms-annotation-be/internal/resultdb"
	"ms-annotation-be/pkg/database"
	"ms-annotation-be/pkg/events"
	"ms-annotation-be/pkg/launcher"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

type IJobFactory interface {
	FromScratch(ctx context.Context, owner string) (*Job, error)
	FromDb(ctx context.Context, src io.Reader, owner string) (*Job, error)
	Clone(ctx context.Context, job *Job, owner string) (*Job, error)
	FromId(ctx context.Context, jobID uuid.UUID) (*Job, error)
	SubmitQuery(ctx context.Context, query *dto.JobQuery, job *Job) error
	Cancel(ctx context.Context, job *Job) error
	Delete(ctx context.Context, job *Job) error
	DbSize(jobID uuid.UUID) int64
}

type jobFactory struct {
	cfg       config.JobFactoryConfig
	metaRepo  contract.JobMetaRepository
	launcher  *launcher.Client
	publisher IPublisherService
	logger    logger.ILogger

	// One open store handle per job; Delete closes and evicts.
	stores *cache.Cache
}

func NewJobFactory(
	cfg config.JobFactoryConfig,
	metaRepo contract.JobMetaRepository,
	launcherClient *launcher.Client,
	publisher IPublisherService,
	sysLogger logger.ILogger,
) IJobFactory {
	return &jobFactory{
		cfg:       cfg,
		metaRepo:  metaRepo,
		launcher:  launcherClient,
		publisher: publisher,
		logger:    sysLogger,
		stores:    cache.New(cache.NoExpiration, 0),
	}
}

func (f *jobFactory) id2dir(jobID uuid.UUID) string {
	return filepath.Join(f.cfg.RootDir, jobID.String())
}

func (f *jobFactory) id2db(jobID uuid.UUID) string {
	return filepath.Join(f.id2dir(jobID), f.cfg.DbFilename)
}

// openStore returns the cached handle for a job's store, opening and
// sanity-checking the SQLite file on first use.
func (f *jobFactory) openStore(jobID uuid.UUID) (*resultdb.DB, error) {
	if cached, found := f.stores.Get(jobID.String()); found {
		return cached.(*resultdb.DB), nil
	}

	orm, err := database.OpenResultStore(f.id2db(jobID))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrCorruptStore, err)
	}
	var n int64
	if err := orm.Raw("SELECT count(*) FROM sqlite_master").Scan(&n).Error; err != nil {
		database.Close(orm)
		return nil, fmt.Errorf("%w: %v", apperrors.ErrCorruptStore, err)
	}

	db := resultdb.New(orm)
	f.stores.Set(jobID.String(), db, cache.NoExpiration)
	return db, nil
}

func (f *jobFactory) makeJobDir(jobID uuid.UUID) (string, error) {
	dir := f.id2dir(jobID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("%w: %v", apperrors.ErrStorage, err)
	}
	return dir, nil
}

// FromScratch allocates a fresh job with an empty result store, registered
// in state STOPPED.
func (f *jobFactory) FromScratch(ctx context.Context, owner string) (*Job, error) {
	jobID := uuid.New()

	dir, err := f.makeJobDir(jobID)
	if err != nil {
		return nil, err
	}

	orm, err := database.OpenResultStore(f.id2db(jobID))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrStorage, err)
	}
	if err := resultdb.Migrate(orm); err != nil {
		database.Close(orm)
		return nil, fmt.Errorf("%w: %v", apperrors.ErrStorage, err)
	}
	db := resultdb.New(orm)
	f.stores.Set(jobID.String(), db, cache.NoExpiration)

	meta := &entity.JobMeta{
		JobID:     jobID,
		Owner:     owner,
		State:     entity.StateStopped,
		CreatedAt: time.Now(),
	}
	if err := f.metaRepo.Create(ctx, meta); err != nil {
		return nil, err
	}

	f.logger.Info("JobFactory", "Created job from scratch", map[string]interface{}{
		"job_id": jobID, "owner": owner,
	})
	return NewJob(meta, dir, db, f.metaRepo), nil
}

// FromDb allocates a job seeded with an uploaded result store. Description
// and filename are read from the copied store's run record.
func (f *jobFactory) FromDb(ctx context.Context, src io.Reader, owner string) (*Job, error) {
	jobID := uuid.New()

	dir, err := f.makeJobDir(jobID)
	if err != nil {
		return nil, err
	}
	if err := f.copyToStore(src, jobID); err != nil {
		return nil, err
	}

	db, err := f.openStore(jobID)
	if err != nil {
		return nil, err
	}
	run, err := db.RunInfo(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrCorruptStore, err)
	}

	meta := &entity.JobMeta{
		JobID:     jobID,
		Owner:     owner,
		State:     entity.StateStopped,
		CreatedAt: time.Now(),
	}
	if run != nil {
		meta.Description = run.Description
		meta.MsFilename = run.MsFilename
	}
	if err := f.metaRepo.Create(ctx, meta); err != nil {
		return nil, err
	}

	return NewJob(meta, dir, db, f.metaRepo), nil
}

// Clone allocates a job whose store is a copy of another job's store,
// recording the source as the new job's parent.
func (f *jobFactory) Clone(ctx context.Context, job *Job, owner string) (*Job, error) {
	src, err := os.Open(f.id2db(job.ID()))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrStorage, err)
	}
	defer src.Close()

	jobID := uuid.New()
	dir, err := f.makeJobDir(jobID)
	if err != nil {
		return nil, err
	}
	if err := f.copyToStore(src, jobID); err != nil {
		return nil, err
	}

	db, err := f.openStore(jobID)
	if err != nil {
		return nil, err
	}

	parentID := job.ID()
	srcMeta := job.Meta()
	meta := &entity.JobMeta{
		JobID:       jobID,
		Owner:       owner,
		Description: srcMeta.Description,
		MsFilename:  srcMeta.MsFilename,
		ParentJobID: &parentID,
		State:       entity.StateStopped,
		CreatedAt:   time.Now(),
	}
	if err := f.metaRepo.Create(ctx, meta); err != nil {
		return nil, err
	}

	return NewJob(meta, dir, db, f.metaRepo), nil
}

func (f *jobFactory) copyToStore(src io.Reader, jobID uuid.UUID) error {
	dst, err := os.Create(f.id2db(jobID))
	if err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrStorage, err)
	}
	defer dst.Close()
	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrStorage, err)
	}
	return nil
}

// FromId resolves a job id to a Job. A missing meta record and an unusable
// store file both surface as JobNotFoundError.
func (f *jobFactory) FromId(ctx context.Context, jobID uuid.UUID) (*Job, error) {
	meta, err := f.metaRepo.FindOne(ctx, specification.ByJobID{JobID: jobID})
	if err != nil {
		return nil, err
	}
	if meta == nil {
		return nil, &apperrors.JobNotFoundError{JobID: jobID}
	}

	if _, err := os.Stat(f.id2db(jobID)); err != nil {
		return nil, &apperrors.JobNotFoundError{JobID: jobID}
	}
	db, err := f.openStore(jobID)
	if err != nil {
		return nil, &apperrors.JobNotFoundError{JobID: jobID}
	}

	return NewJob(meta, f.id2dir(jobID), db, f.metaRepo), nil
}

// SubmitQuery writes the job script and hands the job to the execution
// daemon. The PENDING state is committed before the network call: the daemon
// may deliver its first status callback before this returns, and that
// callback must find the submission record.
func (f *jobFactory) SubmitQuery(ctx context.Context, query *dto.JobQuery, job *Job) error {
	script := f.cfg.InitScript + "\n" + f.expandScript(query.Script)
	scriptPath := filepath.Join(query.Dir, f.cfg.ScriptFilename)
	if err := os.WriteFile(scriptPath, []byte(script), 0o755); err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrStorage, err)
	}

	body := launcher.SubmissionRequest{
		JobDir:            query.Dir + "/",
		Executable:        "/bin/sh",
		Prestaged:         append([]string{f.cfg.ScriptFilename, f.cfg.DbFilename}, query.Prestaged...),
		Poststaged:        []string{f.cfg.DbFilename},
		Stderr:            "stderr.txt",
		Stdout:            "stdout.txt",
		Arguments:         []string{f.cfg.ScriptFilename},
		StatusCallbackURL: query.StatusCallbackURL,
	}
	if f.cfg.Tarball != "" {
		body.Prestaged = append(body.Prestaged, f.cfg.Tarball)
	}

	previous := job.State()
	if err := job.SetState(ctx, entity.StatePending); err != nil {
		return err
	}
	f.publishStateChange(ctx, job, previous, entity.StatePending)

	launcherURL, err := f.launcher.Submit(ctx, body)
	if err != nil {
		if stateErr := job.SetState(ctx, entity.StateSubmissionError); stateErr != nil {
			f.logger.Error("JobFactory", "Failed to record submission error", map[string]interface{}{
				"job_id": job.ID(), "error": stateErr.Error(),
			})
		}
		f.publishStateChange(ctx, job, entity.StatePending, entity.StateSubmissionError)
		return fmt.Errorf("%w: %v", apperrors.ErrJobSubmission, err)
	}

	return job.SetLauncherURL(ctx, launcherURL)
}

// expandScript fills the store filename into the engine command line.
func (f *jobFactory) expandScript(script string) string {
	return strings.ReplaceAll(script, "{db}", f.cfg.DbFilename)
}

func (f *jobFactory) publishStateChange(ctx context.Context, job *Job, previous, current string) {
	if f.publisher == nil {
		return
	}
	evt := events.NewJobStateChanged(job.ID().String(), job.Meta().Owner, previous, current)
	if err := f.publisher.Publish(ctx, evt); err != nil {
		f.logger.Warn("JobFactory", "Failed to publish state change", map[string]interface{}{
			"job_id": job.ID(), "error": err.Error(),
		})
	}
}

// Cancel asks the daemon to stop the job. Best effort: local state is left
// alone, the terminal state arrives via a later callback.
func (f *jobFactory) Cancel(ctx context.Context, job *Job) error {
	return f.launcher.Cancel(ctx, job.Meta().LauncherURL)
}

// Delete removes the meta record, closes the open store handle and removes
// the job directory. Tolerates a directory that is already partially gone.
func (f *jobFactory) Delete(ctx context.Context, job *Job) error {
	if err := f.metaRepo.Delete(ctx, job.ID()); err != nil {
		return err
	}
	if cached, found := f.stores.Get(job.ID().String()); found {
		if err := cached.(*resultdb.DB).Close(); err != nil {
			f.logger.Warn("JobFactory", "Failed to close store handle", map[string]interface{}{
				"job_id": job.ID(), "error": err.Error(),
			})
		}
		f.stores.Delete(job.ID().String())
	}
	return os.RemoveAll(f.id2dir(job.ID()))
}

// DbSize reports the result store size in bytes, 0 when absent.
func (f *jobFactory) DbSize(jobID uuid.UUID) int64 {
	info, err := os.Stat(f.id2db(jobID))
	if err != nil {
		return 0
	}
	return info.Size()
}
