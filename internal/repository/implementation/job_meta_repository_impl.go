package implementation

import (
	"context"
	"errors"

	"ms-annotation-be/internal/entity"
	"ms-annotation-be/internal/mapper"
	"ms-annotation-be/internal/model"
	"ms-annotation-be/internal/repository/contract"
	"ms-annotation-be/internal/repository/specification"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type JobMetaRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.JobMetaMapper
}

func NewJobMetaRepository(db *gorm.DB) contract.JobMetaRepository {
	return &JobMetaRepositoryImpl{
		db:     db,
		mapper: mapper.NewJobMetaMapper(),
	}
}

func (r *JobMetaRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *JobMetaRepositoryImpl) Create(ctx context.Context, meta *entity.JobMeta) error {
	m := r.mapper.ToModel(meta)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*meta = *r.mapper.ToEntity(m)
	return nil
}

func (r *JobMetaRepositoryImpl) Update(ctx context.Context, meta *entity.JobMeta) error {
	m := r.mapper.ToModel(meta)
	if err := r.db.WithContext(ctx).Save(m).Error; err != nil {
		return err
	}
	*meta = *r.mapper.ToEntity(m)
	return nil
}

// UpdateLauncherURL writes only the launcher_url column, leaving concurrent
// state updates on the same row untouched.
func (r *JobMetaRepositoryImpl) UpdateLauncherURL(ctx context.Context, jobID uuid.UUID, url string) error {
	return r.db.WithContext(ctx).Model(&model.JobMeta{}).
		Where("jobid = ?", jobID).
		Update("launcher_url", url).Error
}

func (r *JobMetaRepositoryImpl) Delete(ctx context.Context, jobID uuid.UUID) error {
	return r.db.WithContext(ctx).Where("jobid = ?", jobID).Delete(&model.JobMeta{}).Error
}

func (r *JobMetaRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.JobMeta, error) {
	var m model.JobMeta
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}

func (r *JobMetaRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.JobMeta, error) {
	var models []*model.JobMeta
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	return r.mapper.ToEntities(models), nil
}

func (r *JobMetaRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	query := r.applySpecifications(r.db.WithContext(ctx).Model(&model.JobMeta{}), specs...)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
