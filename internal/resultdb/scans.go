package resultdb

import (
	"context"
	"errors"
	"fmt"

	"ms-annotation-be/internal/apperrors"
	"ms-annotation-be/internal/dto"
	"ms-annotation-be/internal/model"
	"ms-annotation-be/internal/repository/specification"

	"gorm.io/gorm"
)

// ScansWithMolecules returns id and rt of level 1 scans that have a root
// fragment matching the given molecule, mz and filter constraints.
//
// A molecule filter of nhits > 0 is skipped on purpose: the query is already
// restricted to scans carrying at least one hit, so the filter is
// tautological here.
func (db *DB) ScansWithMolecules(
	ctx context.Context,
	filters []specification.GridFilter,
	molID *int64,
	mz *float64,
	scanID *int64,
) ([]dto.ScanHit, error) {
	fq := db.orm.WithContext(ctx).Table("fragments").
		Select("fragments.scanid").
		Where("fragments.parentfragid = 0")
	if molID != nil {
		fq = fq.Where("fragments.molid = ?", *molID)
	}

	if scanID != nil && mz != nil {
		mq := db.orm.Table("fragments").Select("molid").
			Where("scanid = ?", *scanID).Where("mz = ?", *mz)
		fq = fq.Where("fragments.molid IN (?)", mq)
	}

	for _, f := range filters {
		if isNoHitFilter(f) {
			continue
		}
		var err error
		switch f.Field {
		case "score":
			fq, err = specification.ApplyColumnFilter(fq, "fragments.score", f)
		case "deltappm":
			fq, err = specification.ApplyColumnFilter(fq, "fragments.deltappm", f)
		case "assigned":
			f.Type = specification.FilterNull
			fq = fq.Joins("JOIN peaks ON fragments.scanid = peaks.scanid AND fragments.mz = peaks.mz")
			fq, err = specification.ApplyColumnFilter(fq, "peaks.assigned_molid", f)
		default:
			col, ok := moleculeColumns[f.Field]
			if !ok {
				return nil, fmt.Errorf("%w: %q", apperrors.ErrUnknownField, f.Field)
			}
			fq = fq.Joins("JOIN molecules ON fragments.molid = molecules.molid")
			fq, err = specification.ApplyColumnFilter(fq, col, f)
		}
		if err != nil {
			return nil, err
		}
	}

	var hits []dto.ScanHit
	err := db.orm.WithContext(ctx).Table("scans").
		Select("scans.scanid AS id, scans.rt AS rt").
		Where("scans.mslevel = 1").
		Where("scans.scanid IN (?)", fq).
		Scan(&hits).Error
	if err != nil {
		return nil, err
	}
	return hits, nil
}

func isNoHitFilter(f specification.GridFilter) bool {
	if f.Field != "nhits" || f.Comparison != "gt" {
		return false
	}
	v, ok := f.Value.(float64)
	return ok && v == 0
}

// ExtractedIonChromatogram returns, per level 1 scan, the maximum intensity
// of peaks within the run's ppm window around the molecule's mean root
// fragment mz. Scans without a matching peak report intensity 0.
func (db *DB) ExtractedIonChromatogram(ctx context.Context, molID int64) ([]dto.ChromatogramPoint, error) {
	var meanMz *float64
	err := db.orm.WithContext(ctx).Table("fragments").
		Select("avg(mz)").
		Where("molid = ? AND parentfragid = 0", molID).
		Scan(&meanMz).Error
	if err != nil {
		return nil, err
	}
	if meanMz == nil {
		return nil, apperrors.ErrMoleculeNotFound
	}

	run, err := db.RunInfo(ctx)
	if err != nil {
		return nil, err
	}
	// ppm precision as a multiplicative window around the mean mz
	factor := 1.0
	if run != nil {
		factor = 1 + run.MzPrecision/1e6
	}

	type eicRow struct {
		Rt        float64  `gorm:"column:rt"`
		Intensity *float64 `gorm:"column:intensity"`
	}
	var raw []eicRow
	err = db.orm.WithContext(ctx).Table("scans").
		Select("scans.rt AS rt, max(peaks.intensity) AS intensity").
		Joins("LEFT JOIN peaks ON peaks.scanid = scans.scanid AND peaks.mz BETWEEN ? AND ?",
			*meanMz/factor, *meanMz*factor).
		Where("scans.mslevel = 1").
		Group("scans.rt").
		Order("scans.rt ASC").
		Scan(&raw).Error
	if err != nil {
		return nil, err
	}

	points := make([]dto.ChromatogramPoint, 0, len(raw))
	for _, r := range raw {
		p := dto.ChromatogramPoint{Rt: r.Rt}
		if r.Intensity != nil {
			p.Intensity = *r.Intensity
		}
		points = append(points, p)
	}
	return points, nil
}

// Chromatogram returns all level 1 scans with base peak intensity and
// assigned peak counts, plus the run's absolute intensity cutoff.
func (db *DB) Chromatogram(ctx context.Context) (*dto.Chromatogram, error) {
	type chromRow struct {
		ScanID            int64   `gorm:"column:scanid"`
		Rt                float64 `gorm:"column:rt"`
		BasePeakIntensity float64 `gorm:"column:basepeakintensity"`
		AssignedPeaks     *int64  `gorm:"column:assigned_peaks"`
	}

	ap := db.orm.Table("peaks").
		Select("scanid, count(*) AS assigned_peaks").
		Where("assigned_molid IS NOT NULL").
		Group("scanid")

	var raw []chromRow
	err := db.orm.WithContext(ctx).Table("scans").
		Select("scans.scanid, scans.rt, scans.basepeakintensity, ap.assigned_peaks").
		Joins("LEFT JOIN (?) ap ON scans.scanid = ap.scanid", ap).
		Where("scans.mslevel = 1").
		Scan(&raw).Error
	if err != nil {
		return nil, err
	}

	scans := make([]dto.ChromatogramScan, 0, len(raw))
	for _, r := range raw {
		s := dto.ChromatogramScan{ID: r.ScanID, Rt: r.Rt, Intensity: r.BasePeakIntensity}
		if r.AssignedPeaks != nil {
			s.AssignedPeaks = *r.AssignedPeaks
		}
		scans = append(scans, s)
	}

	chrom := &dto.Chromatogram{Scans: scans}
	run, err := db.RunInfo(ctx)
	if err != nil {
		return nil, err
	}
	if run != nil {
		cutoff := run.MsIntensityCutoff
		chrom.Cutoff = &cutoff
	}
	return chrom, nil
}

// MSpectra returns the peaks of one scan with the cutoff that applies to it:
// the run's absolute cutoff for level 1, a ratio of the base peak intensity
// for deeper levels. Level 1 responses also carry the distinct fragment mz
// values observed on the scan.
func (db *DB) MSpectra(ctx context.Context, scanID int64, msLevel *int) (*dto.Spectrum, error) {
	scanQ := db.orm.WithContext(ctx).Where("scanid = ?", scanID)
	if msLevel != nil {
		scanQ = scanQ.Where("mslevel = ?", *msLevel)
	}
	var scan model.Scan
	if err := scanQ.First(&scan).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrScanNotFound
		}
		return nil, err
	}

	run, err := db.RunInfo(ctx)
	if err != nil {
		return nil, err
	}
	var cutoff *float64
	if run != nil {
		var c float64
		if scan.MsLevel == 1 {
			c = run.MsIntensityCutoff
		} else {
			c = scan.BasePeakIntensity * run.MsmsIntensityCutoff
		}
		cutoff = &c
	}

	var peaks []model.Peak
	if err := db.orm.WithContext(ctx).Where("scanid = ?", scanID).Find(&peaks).Error; err != nil {
		return nil, err
	}
	specPeaks := make([]dto.SpectrumPeak, 0, len(peaks))
	for _, p := range peaks {
		specPeaks = append(specPeaks, dto.SpectrumPeak{
			Mz:            p.Mz,
			Intensity:     p.Intensity,
			AssignedMolID: p.AssignedMolID,
		})
	}

	spectrum := &dto.Spectrum{
		Peaks:   specPeaks,
		Cutoff:  cutoff,
		MsLevel: scan.MsLevel,
		Precursor: dto.SpectrumPrecursor{
			ID: scan.PrecursorScanID,
			Mz: scan.PrecursorMz,
		},
	}

	if scan.MsLevel == 1 {
		var mzs []float64
		err := db.orm.WithContext(ctx).Table("fragments").
			Distinct("mz").
			Where("scanid = ?", scanID).
			Pluck("mz", &mzs).Error
		if err != nil {
			return nil, err
		}
		markers := make([]dto.FragmentMarker, 0, len(mzs))
		for _, m := range mzs {
			markers = append(markers, dto.FragmentMarker{Mz: m})
		}
		spectrum.Fragments = markers
	}
	return spectrum, nil
}
