package contract

import (
	"context"

	"ms-annotation-be/internal/entity"
	"ms-annotation-be/internal/repository/specification"

	"github.com/google/uuid"
)

type JobMetaRepository interface {
	Create(ctx context.Context, meta *entity.JobMeta) error
	Update(ctx context.Context, meta *entity.JobMeta) error
	UpdateLauncherURL(ctx context.Context, jobID uuid.UUID, url string) error
	Delete(ctx context.Context, jobID uuid.UUID) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.JobMeta, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.JobMeta, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
}
