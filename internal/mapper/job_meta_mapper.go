package mapper

import (
	"ms-annotation-be/internal/entity"
	"ms-annotation-be/internal/model"
)

type JobMetaMapper struct{}

func NewJobMetaMapper() *JobMetaMapper {
	return &JobMetaMapper{}
}

func (m *JobMetaMapper) ToModel(e *entity.JobMeta) *model.JobMeta {
	return &model.JobMeta{
		JobID:       e.JobID,
		Owner:       e.Owner,
		Description: e.Description,
		MsFilename:  e.MsFilename,
		ParentJobID: e.ParentJobID,
		State:       e.State,
		LauncherURL: e.LauncherURL,
		IsPublic:    e.IsPublic,
		CreatedAt:   e.CreatedAt,
	}
}

func (m *JobMetaMapper) ToEntity(mo *model.JobMeta) *entity.JobMeta {
	return &entity.JobMeta{
		JobID:       mo.JobID,
		Owner:       mo.Owner,
		Description: mo.Description,
		MsFilename:  mo.MsFilename,
		ParentJobID: mo.ParentJobID,
		State:       mo.State,
		LauncherURL: mo.LauncherURL,
		IsPublic:    mo.IsPublic,
		CreatedAt:   mo.CreatedAt,
	}
}

func (m *JobMetaMapper) ToEntities(models []*model.JobMeta) []*entity.JobMeta {
	entities := make([]*entity.JobMeta, 0, len(models))
	for _, mo := range models {
		entities = append(entities, m.ToEntity(mo))
	}
	return entities
}
