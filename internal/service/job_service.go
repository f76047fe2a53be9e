package service

import (
	"context"
	"io"

	"ms-annotation-be/internal/dto"
	"ms-annotation-be/internal/entity"
	"ms-annotation-be/internal/pkg/logger"
	"ms-annotation-be/internal/repository/contract"
	"ms-annotation-be/internal/repository/specification"
	"ms-annotation-be/pkg/events"

	"github.com/google/uuid"
)

type IJobService interface {
	Create(ctx context.Context, owner string) (*dto.JobResponse, error)
	CreateFromUpload(ctx context.Context, owner string, src io.Reader) (*dto.JobResponse, error)
	List(ctx context.Context, q *dto.ListJobsQuery) (*dto.JobListResponse, error)
	Clone(ctx context.Context, jobID uuid.UUID, owner string) (*dto.JobResponse, error)
	Show(ctx context.Context, jobID uuid.UUID) (*dto.JobResponse, error)
	Update(ctx context.Context, jobID uuid.UUID, req *dto.UpdateJobRequest) error
	UpdateState(ctx context.Context, jobID uuid.UUID, state string) error
	Submit(ctx context.Context, jobID uuid.UUID, req *dto.SubmitJobRequest) error
	Cancel(ctx context.Context, jobID uuid.UUID) error
	Delete(ctx context.Context, jobID uuid.UUID) error
	Stdout(ctx context.Context, jobID uuid.UUID) (io.ReadCloser, error)
	Stderr(ctx context.Context, jobID uuid.UUID) (io.ReadCloser, error)
}

// defaultJobListLimit bounds a workspace page when the caller sends none.
const defaultJobListLimit = 50

type jobService struct {
	factory     IJobFactory
	metaRepo    contract.JobMetaRepository
	publisher   IPublisherService
	callbackURL func(jobID uuid.UUID) string
	logger      logger.ILogger
}

func NewJobService(
	factory IJobFactory,
	metaRepo contract.JobMetaRepository,
	publisher IPublisherService,
	callbackURL func(jobID uuid.UUID) string,
	sysLogger logger.ILogger,
) IJobService {
	return &jobService{
		factory:     factory,
		metaRepo:    metaRepo,
		publisher:   publisher,
		callbackURL: callbackURL,
		logger:      sysLogger,
	}
}

func (s *jobService) toResponse(job *Job) *dto.JobResponse {
	meta := job.Meta()
	return s.metaToResponse(&meta)
}

func (s *jobService) metaToResponse(meta *entity.JobMeta) *dto.JobResponse {
	return &dto.JobResponse{
		JobID:       meta.JobID,
		Owner:       meta.Owner,
		State:       meta.State,
		Description: meta.Description,
		MsFilename:  meta.MsFilename,
		ParentJobID: meta.ParentJobID,
		IsPublic:    meta.IsPublic,
		CreatedAt:   meta.CreatedAt,
		Size:        s.factory.DbSize(meta.JobID),
	}
}

// List pages through the caller's workspace, newest job first. With Public
// set it returns the publicly shared jobs of all owners instead.
func (s *jobService) List(ctx context.Context, q *dto.ListJobsQuery) (*dto.JobListResponse, error) {
	filters := make([]specification.Specification, 0, 2)
	if q.Public {
		filters = append(filters, specification.PublicOnly{})
	} else {
		filters = append(filters, specification.ByOwner{Owner: q.Owner})
	}
	if q.State != "" {
		filters = append(filters, specification.Filter("state", q.State))
	}

	total, err := s.metaRepo.Count(ctx, filters...)
	if err != nil {
		return nil, err
	}

	limit := q.Limit
	if limit <= 0 {
		limit = defaultJobListLimit
	}
	page := append(filters,
		specification.OrderBy{Field: "created_at", Desc: true},
		specification.Pagination{Limit: limit, Offset: q.Start},
	)
	metas, err := s.metaRepo.FindAll(ctx, page...)
	if err != nil {
		return nil, err
	}

	rows := make([]*dto.JobResponse, 0, len(metas))
	for _, meta := range metas {
		rows = append(rows, s.metaToResponse(meta))
	}
	return &dto.JobListResponse{Rows: rows, Total: total}, nil
}

func (s *jobService) Create(ctx context.Context, owner string) (*dto.JobResponse, error) {
	job, err := s.factory.FromScratch(ctx, owner)
	if err != nil {
		return nil, err
	}
	return s.toResponse(job), nil
}

func (s *jobService) CreateFromUpload(ctx context.Context, owner string, src io.Reader) (*dto.JobResponse, error) {
	job, err := s.factory.FromDb(ctx, src, owner)
	if err != nil {
		return nil, err
	}
	return s.toResponse(job), nil
}

func (s *jobService) Clone(ctx context.Context, jobID uuid.UUID, owner string) (*dto.JobResponse, error) {
	job, err := s.factory.FromId(ctx, jobID)
	if err != nil {
		return nil, err
	}
	clone, err := s.factory.Clone(ctx, job, owner)
	if err != nil {
		return nil, err
	}
	return s.toResponse(clone), nil
}

func (s *jobService) Show(ctx context.Context, jobID uuid.UUID) (*dto.JobResponse, error) {
	job, err := s.factory.FromId(ctx, jobID)
	if err != nil {
		return nil, err
	}
	return s.toResponse(job), nil
}

func (s *jobService) Update(ctx context.Context, jobID uuid.UUID, req *dto.UpdateJobRequest) error {
	job, err := s.factory.FromId(ctx, jobID)
	if err != nil {
		return err
	}
	if req.Description != nil {
		if err := job.SetDescription(ctx, *req.Description); err != nil {
			return err
		}
	}
	if req.MsFilename != nil {
		if err := job.SetMsFilename(ctx, *req.MsFilename); err != nil {
			return err
		}
	}
	if req.IsPublic != nil {
		if err := job.SetIsPublic(ctx, *req.IsPublic); err != nil {
			return err
		}
	}
	return nil
}

// UpdateState applies a daemon status callback. Callbacks can arrive out of
// order; last write wins, states are opaque to the backend.
func (s *jobService) UpdateState(ctx context.Context, jobID uuid.UUID, state string) error {
	job, err := s.factory.FromId(ctx, jobID)
	if err != nil {
		return err
	}
	previous := job.State()
	if err := job.SetState(ctx, state); err != nil {
		return err
	}
	if s.publisher != nil {
		evt := events.NewJobStateChanged(jobID.String(), job.Meta().Owner, previous, state)
		if err := s.publisher.Publish(ctx, evt); err != nil {
			s.logger.Warn("JobService", "Failed to publish state change", map[string]interface{}{
				"job_id": jobID, "error": err.Error(),
			})
		}
	}
	return nil
}

func (s *jobService) Submit(ctx context.Context, jobID uuid.UUID, req *dto.SubmitJobRequest) error {
	job, err := s.factory.FromId(ctx, jobID)
	if err != nil {
		return err
	}
	query := &dto.JobQuery{
		Dir:               job.Dir,
		Script:            req.Script,
		Prestaged:         req.Prestaged,
		StatusCallbackURL: s.callbackURL(jobID),
	}
	return s.factory.SubmitQuery(ctx, query, job)
}

func (s *jobService) Cancel(ctx context.Context, jobID uuid.UUID) error {
	job, err := s.factory.FromId(ctx, jobID)
	if err != nil {
		return err
	}
	return s.factory.Cancel(ctx, job)
}

func (s *jobService) Delete(ctx context.Context, jobID uuid.UUID) error {
	job, err := s.factory.FromId(ctx, jobID)
	if err != nil {
		return err
	}
	return s.factory.Delete(ctx, job)
}

func (s *jobService) Stdout(ctx context.Context, jobID uuid.UUID) (io.ReadCloser, error) {
	job, err := s.factory.FromId(ctx, jobID)
	if err != nil {
		return nil, err
	}
	return job.Stdout(), nil
}

func (s *jobService) Stderr(ctx context.Context, jobID uuid.UUID) (io.ReadCloser, error) {
	job, err := s.factory.FromId(ctx, jobID)
	if err != nil {
		return nil, err
	}
	return job.Stderr(), nil
}
