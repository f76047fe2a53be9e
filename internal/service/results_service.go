package service

import (
	"context"

	"ms-annotation-be/internal/dto"
	"ms-annotation-be/internal/repository/specification"

	"github.com/google/uuid"
)

// MoleculesParams is the query surface of the molecule grid, passed through
// from the thin API layer unmodified.
type MoleculesParams struct {
	Start   int64
	Limit   int64
	Sorts   []specification.GridSort
	Filters []specification.GridFilter
	ScanID  *int64
	Mz      *float64
	MolID   *int64
}

type IResultsService interface {
	Info(ctx context.Context, jobID uuid.UUID) (*dto.ResultsInfo, error)
	Molecules(ctx context.Context, jobID uuid.UUID, params MoleculesParams) (*dto.MoleculesPage, error)
	MoleculesCSV(ctx context.Context, jobID uuid.UUID, params MoleculesParams, cols []string) (string, error)
	MoleculesSDF(ctx context.Context, jobID uuid.UUID, params MoleculesParams, cols []string) (string, error)
	Chromatogram(ctx context.Context, jobID uuid.UUID) (*dto.Chromatogram, error)
	ExtractedIonChromatogram(ctx context.Context, jobID uuid.UUID, molID int64) ([]dto.ChromatogramPoint, error)
	ScansWithMolecules(ctx context.Context, jobID uuid.UUID, filters []specification.GridFilter, molID *int64, mz *float64, scanID *int64) ([]dto.ScanHit, error)
	MSpectra(ctx context.Context, jobID uuid.UUID, scanID int64, msLevel *int) (*dto.Spectrum, error)
	FragmentRoot(ctx context.Context, jobID uuid.UUID, scanID, molID int64) (*dto.FragmentTree, error)
	FragmentChildren(ctx context.Context, jobID uuid.UUID, fragID int64) ([]dto.FragmentNode, error)
	AssignPeak(ctx context.Context, jobID uuid.UUID, scanID int64, mz float64, molID int64) error
	UnassignPeak(ctx context.Context, jobID uuid.UUID, scanID int64, mz float64) error
}

type resultsService struct {
	factory IJobFactory
}

func NewResultsService(factory IJobFactory) IResultsService {
	return &resultsService{factory: factory}
}

func (s *resultsService) Info(ctx context.Context, jobID uuid.UUID) (*dto.ResultsInfo, error) {
	job, err := s.factory.FromId(ctx, jobID)
	if err != nil {
		return nil, err
	}
	info := &dto.ResultsInfo{}
	run, err := job.Db.RunInfo(ctx)
	if err != nil {
		return nil, err
	}
	if run != nil {
		info.Description = run.Description
		info.MsFilename = run.MsFilename
		info.MsIntensityCutoff = run.MsIntensityCutoff
		info.MsmsIntensityCutoff = run.MsmsIntensityCutoff
		info.MzPrecision = run.MzPrecision
	}
	if info.MaxMSLevel, err = job.Db.MaxMSLevel(ctx); err != nil {
		return nil, err
	}
	return info, nil
}

func (s *resultsService) Molecules(ctx context.Context, jobID uuid.UUID, p MoleculesParams) (*dto.MoleculesPage, error) {
	job, err := s.factory.FromId(ctx, jobID)
	if err != nil {
		return nil, err
	}
	return job.Db.Molecules(ctx, p.Start, p.Limit, p.Sorts, p.Filters, p.ScanID, p.Mz, p.MolID)
}

// export queries ignore pagination: the whole filtered set is rendered.
func (s *resultsService) exportRows(ctx context.Context, jobID uuid.UUID, p MoleculesParams) (*Job, []dto.MoleculeRow, error) {
	job, err := s.factory.FromId(ctx, jobID)
	if err != nil {
		return nil, nil, err
	}
	total, err := job.Db.MoleculesTotalCount(ctx)
	if err != nil {
		return nil, nil, err
	}
	page, err := job.Db.Molecules(ctx, 0, total+1, p.Sorts, p.Filters, p.ScanID, p.Mz, nil)
	if err != nil {
		return nil, nil, err
	}
	return job, page.Rows, nil
}

func (s *resultsService) MoleculesCSV(ctx context.Context, jobID uuid.UUID, p MoleculesParams, cols []string) (string, error) {
	job, rows, err := s.exportRows(ctx, jobID, p)
	if err != nil {
		return "", err
	}
	return job.Db.MoleculesCSV(rows, cols)
}

func (s *resultsService) MoleculesSDF(ctx context.Context, jobID uuid.UUID, p MoleculesParams, cols []string) (string, error) {
	job, rows, err := s.exportRows(ctx, jobID, p)
	if err != nil {
		return "", err
	}
	return job.Db.MoleculesSDF(rows, cols)
}

func (s *resultsService) Chromatogram(ctx context.Context, jobID uuid.UUID) (*dto.Chromatogram, error) {
	job, err := s.factory.FromId(ctx, jobID)
	if err != nil {
		return nil, err
	}
	return job.Db.Chromatogram(ctx)
}

func (s *resultsService) ExtractedIonChromatogram(ctx context.Context, jobID uuid.UUID, molID int64) ([]dto.ChromatogramPoint, error) {
	job, err := s.factory.FromId(ctx, jobID)
	if err != nil {
		return nil, err
	}
	return job.Db.ExtractedIonChromatogram(ctx, molID)
}

func (s *resultsService) ScansWithMolecules(ctx context.Context, jobID uuid.UUID, filters []specification.GridFilter, molID *int64, mz *float64, scanID *int64) ([]dto.ScanHit, error) {
	job, err := s.factory.FromId(ctx, jobID)
	if err != nil {
		return nil, err
	}
	return job.Db.ScansWithMolecules(ctx, filters, molID, mz, scanID)
}

func (s *resultsService) MSpectra(ctx context.Context, jobID uuid.UUID, scanID int64, msLevel *int) (*dto.Spectrum, error) {
	job, err := s.factory.FromId(ctx, jobID)
	if err != nil {
		return nil, err
	}
	return job.Db.MSpectra(ctx, scanID, msLevel)
}

func (s *resultsService) FragmentRoot(ctx context.Context, jobID uuid.UUID, scanID, molID int64) (*dto.FragmentTree, error) {
	job, err := s.factory.FromId(ctx, jobID)
	if err != nil {
		return nil, err
	}
	return job.Db.FragmentRoot(ctx, scanID, molID)
}

func (s *resultsService) FragmentChildren(ctx context.Context, jobID uuid.UUID, fragID int64) ([]dto.FragmentNode, error) {
	job, err := s.factory.FromId(ctx, jobID)
	if err != nil {
		return nil, err
	}
	return job.Db.FragmentChildren(ctx, fragID)
}

func (s *resultsService) AssignPeak(ctx context.Context, jobID uuid.UUID, scanID int64, mz float64, molID int64) error {
	job, err := s.factory.FromId(ctx, jobID)
	if err != nil {
		return err
	}
	return job.Db.AssignPeak(ctx, scanID, mz, molID)
}

func (s *resultsService) UnassignPeak(ctx context.Context, jobID uuid.UUID, scanID int64, mz float64) error {
	job, err := s.factory.FromId(ctx, jobID)
	if err != nil {
		return err
	}
	return job.Db.UnassignPeak(ctx, scanID, mz)
}
