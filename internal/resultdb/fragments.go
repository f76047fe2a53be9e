package resultdb

import (
	"context"

	"ms-annotation-be/internal/apperrors"
	"ms-annotation-be/internal/dto"
	"ms-annotation-be/internal/model"

	"gorm.io/gorm"
)

// mzEpsilon is the fixed window for matching a peak by mz. It is a float
// comparison tolerance, deliberately independent of the run's configured
// ppm precision.
const mzEpsilon = 1e-6

type fragmentRow struct {
	FragID       int64   `gorm:"column:fragid"`
	ScanID       int64   `gorm:"column:scanid"`
	MolID        int64   `gorm:"column:molid"`
	ParentFragID int64   `gorm:"column:parentfragid"`
	Mz           float64 `gorm:"column:mz"`
	Mass         float64 `gorm:"column:mass"`
	Score        float64 `gorm:"column:score"`
	DeltaH       float64 `gorm:"column:deltah"`
	DeltaPpm     float64 `gorm:"column:deltappm"`
	Formula      string  `gorm:"column:formula"`
	Atoms        string  `gorm:"column:atoms"`
	Mol          string  `gorm:"column:mol"`
	MsLevel      int     `gorm:"column:mslevel"`
}

func (db *DB) fragmentsQuery(ctx context.Context) *gorm.DB {
	return db.orm.WithContext(ctx).Table("fragments").
		Select("fragments.*, molecules.mol AS mol, scans.mslevel AS mslevel").
		Joins("JOIN molecules ON fragments.molid = molecules.molid").
		Joins("JOIN scans ON fragments.scanid = scans.scanid")
}

func (db *DB) fragmentToNode(ctx context.Context, r *fragmentRow) (dto.FragmentNode, error) {
	node := dto.FragmentNode{
		FragID:   r.FragID,
		ScanID:   r.ScanID,
		MolID:    r.MolID,
		Score:    r.Score,
		Mol:      r.Mol,
		Atoms:    r.Atoms,
		Mz:       r.Mz,
		Mass:     r.Mass,
		DeltaH:   r.DeltaH,
		DeltaPpm: r.DeltaPpm,
		Formula:  r.Formula,
		MsLevel:  r.MsLevel,
	}

	var children int64
	err := db.orm.WithContext(ctx).Model(&model.Fragment{}).
		Where("parentfragid = ?", r.FragID).
		Count(&children).Error
	if err != nil {
		return node, err
	}
	if children > 0 {
		node.Expanded = false
		node.Leaf = false
	} else {
		node.Expanded = true
		node.Leaf = true
	}
	return node, nil
}

// FragmentRoot returns the root fragments of one (scan, molecule) pair, each
// annotated with its peak assignment state and with its direct children
// preloaded. The tree is loaded two levels at a time, not recursively.
func (db *DB) FragmentRoot(ctx context.Context, scanID, molID int64) (*dto.FragmentTree, error) {
	var raw []fragmentRow
	err := db.fragmentsQuery(ctx).
		Where("fragments.scanid = ?", scanID).
		Where("fragments.molid = ?", molID).
		Where("fragments.parentfragid = 0").
		Scan(&raw).Error
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, apperrors.ErrFragmentNotFound
	}

	var assignedCount int64
	err = db.orm.WithContext(ctx).Model(&model.Peak{}).
		Where("scanid = ?", scanID).
		Where("assigned_molid = ?", molID).
		Count(&assignedCount).Error
	if err != nil {
		return nil, err
	}
	isAssigned := assignedCount > 0

	structures := make([]dto.FragmentNode, 0, len(raw))
	for i := range raw {
		node, err := db.fragmentToNode(ctx, &raw[i])
		if err != nil {
			return nil, err
		}
		node.IsAssigned = &isAssigned

		children, err := db.FragmentChildren(ctx, node.FragID)
		if err != nil {
			return nil, err
		}
		node.Children = children
		if len(children) > 0 {
			node.Expanded = true
		}
		structures = append(structures, node)
	}

	return &dto.FragmentTree{Children: structures, Expanded: true}, nil
}

// FragmentChildren returns the direct children of one fragment.
func (db *DB) FragmentChildren(ctx context.Context, fragID int64) ([]dto.FragmentNode, error) {
	var raw []fragmentRow
	err := db.fragmentsQuery(ctx).
		Where("fragments.parentfragid = ?", fragID).
		Scan(&raw).Error
	if err != nil {
		return nil, err
	}
	nodes := make([]dto.FragmentNode, 0, len(raw))
	for i := range raw {
		node, err := db.fragmentToNode(ctx, &raw[i])
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, node)
	}
	return nodes, nil
}

func (db *DB) uniquePeak(tx *gorm.DB, scanID int64, mz float64) (*model.Peak, error) {
	var peaks []model.Peak
	err := tx.
		Where("scanid = ?", scanID).
		Where("mz BETWEEN ? AND ?", mz-mzEpsilon, mz+mzEpsilon).
		Find(&peaks).Error
	if err != nil {
		return nil, err
	}
	switch len(peaks) {
	case 0:
		return nil, apperrors.ErrPeakNotFound
	case 1:
		return &peaks[0], nil
	default:
		return nil, apperrors.ErrPeakNotUnique
	}
}

// AssignPeak marks the unique peak near (scanID, mz) as explained by the
// given molecule. The molecule must exist; the write is transactional.
func (db *DB) AssignPeak(ctx context.Context, scanID int64, mz float64, molID int64) error {
	return db.orm.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&model.Molecule{}).Where("molid = ?", molID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return apperrors.ErrMoleculeNotFound
		}

		peak, err := db.uniquePeak(tx, scanID, mz)
		if err != nil {
			return err
		}
		return tx.Model(&model.Peak{}).
			Where("scanid = ? AND mz = ?", peak.ScanID, peak.Mz).
			Update("assigned_molid", molID).Error
	})
}

// UnassignPeak clears the assignment of the unique peak near (scanID, mz).
func (db *DB) UnassignPeak(ctx context.Context, scanID int64, mz float64) error {
	return db.orm.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		peak, err := db.uniquePeak(tx, scanID, mz)
		if err != nil {
			return err
		}
		return tx.Model(&model.Peak{}).
			Where("scanid = ? AND mz = ?", peak.ScanID, peak.Mz).
			Update("assigned_molid", nil).Error
	})
}
