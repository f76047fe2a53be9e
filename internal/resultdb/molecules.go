package resultdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"ms-annotation-be/internal/apperrors"
	"ms-annotation-be/internal/dto"
	"ms-annotation-be/internal/repository/specification"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// moleculeColumns is the exhaustive mapping of filterable/sortable molecule
// fields to column expressions. Unknown field names fail at this boundary.
var moleculeColumns = map[string]string{
	"molid":            "molecules.molid",
	"mol":              "molecules.mol",
	"name":             "molecules.name",
	"smiles":           "molecules.smiles",
	"inchikey14":       "molecules.inchikey14",
	"formula":          "molecules.formula",
	"refscore":         "molecules.refscore",
	"predicted":        "molecules.predicted",
	"mim":              "molecules.mim",
	"logp":             "molecules.logp",
	"reference":        "molecules.reference",
	"reactionsequence": "molecules.reactionsequence",
	"nhits":            "molecules.nhits",
}

// scanColumns are virtual columns projected from the root fragment join and
// only usable when a scan context is supplied.
var scanColumns = map[string]string{
	"score":    "f.score",
	"deltappm": "f.deltappm",
	"mz":       "f.mz",
}

type moleculeQuery struct {
	db      *DB
	scanID  *int64
	mz      *float64
	filters []specification.GridFilter
	sorts   []specification.GridSort
}

func (mq *moleculeQuery) resolveColumn(field string) (string, error) {
	if field == "assigned" {
		return "ap.assigned", nil
	}
	if col, ok := scanColumns[field]; ok {
		if mq.scanID == nil {
			return "", apperrors.ErrScanRequired
		}
		return col, nil
	}
	if col, ok := moleculeColumns[field]; ok {
		return col, nil
	}
	return "", fmt.Errorf("%w: %q", apperrors.ErrUnknownField, field)
}

// build composes the filtered molecule query. selectColumns decides between
// the full row projection and the bare molid projection used for rank scans.
func (mq *moleculeQuery) build(ctx context.Context, selectColumns string) (*gorm.DB, error) {
	if mq.scanID == nil && mq.mz != nil {
		return nil, apperrors.ErrScanRequired
	}

	q := mq.db.orm.WithContext(ctx).Table("molecules").Select(selectColumns)

	if mq.scanID != nil {
		q = q.Joins("JOIN fragments f ON f.molid = molecules.molid AND f.parentfragid = 0 AND f.scanid = ?", *mq.scanID)
		if mq.mz != nil {
			q = q.Where("f.mz = ?", *mq.mz)
		}
	}

	// assigned virtual column: peaks grouped by their assigned molecule
	ap := mq.db.orm.Table("peaks").
		Select("assigned_molid, count(*) AS assigned").
		Where("assigned_molid IS NOT NULL").
		Group("assigned_molid")
	q = q.Joins("LEFT JOIN (?) ap ON molecules.molid = ap.assigned_molid", ap)

	for _, f := range mq.filters {
		if f.Type == specification.FilterReaction {
			var err error
			q, err = mq.reactionFilter(q, f)
			if err != nil {
				return nil, err
			}
			continue
		}
		if f.Field == "assigned" {
			// rewritten to a null test on the aggregated count
			f.Type = specification.FilterNull
		}
		col, err := mq.resolveColumn(f.Field)
		if err != nil {
			return nil, err
		}
		q, err = specification.ApplyColumnFilter(q, col, f)
		if err != nil {
			return nil, err
		}
	}

	return q, nil
}

// reactionFilter restricts molecules to reactants or products of a reaction
// with the given counterpart, optionally named. Supplying both or neither of
// reactant/product is a contract violation.
func (mq *moleculeQuery) reactionFilter(q *gorm.DB, f specification.GridFilter) (*gorm.DB, error) {
	if f.Reactant != nil && f.Product != nil {
		return nil, fmt.Errorf("%w: reactant and product can not be used together", apperrors.ErrBadFilter)
	}
	switch {
	case f.Product != nil:
		q = q.Joins("JOIN reactions ON molecules.molid = reactions.reactant").
			Where("reactions.product = ?", *f.Product)
	case f.Reactant != nil:
		q = q.Joins("JOIN reactions ON molecules.molid = reactions.product").
			Where("reactions.reactant = ?", *f.Reactant)
	default:
		return nil, fmt.Errorf("%w: reactant or product is missing", apperrors.ErrBadFilter)
	}
	if f.ReactionName != "" {
		q = q.Where("reactions.name = ?", f.ReactionName)
	}
	return q, nil
}

func (mq *moleculeQuery) addSorting(q *gorm.DB) (*gorm.DB, error) {
	sorts := mq.sorts
	if len(sorts) == 0 {
		sorts = []specification.GridSort{
			{Property: "refscore", Direction: "DESC"},
			{Property: "molid", Direction: "ASC"},
		}
	}
	for _, s := range sorts {
		col, err := mq.resolveColumn(s.Property)
		if err != nil {
			return nil, err
		}
		dir, err := specification.OrderDirection(s.Direction)
		if err != nil {
			return nil, err
		}
		q = q.Order(col + " " + dir)
	}
	return q, nil
}

type moleculeScanRow struct {
	MolID            int64          `gorm:"column:molid"`
	Mol              string         `gorm:"column:mol"`
	Name             string         `gorm:"column:name"`
	Smiles           string         `gorm:"column:smiles"`
	InchiKey14       string         `gorm:"column:inchikey14"`
	Formula          string         `gorm:"column:formula"`
	RefScore         float64        `gorm:"column:refscore"`
	Predicted        bool           `gorm:"column:predicted"`
	Mim              float64        `gorm:"column:mim"`
	LogP             float64        `gorm:"column:logp"`
	Reference        string         `gorm:"column:reference"`
	ReactionSequence datatypes.JSON `gorm:"column:reactionsequence"`
	NHits            int64          `gorm:"column:nhits"`
	Assigned         *int64         `gorm:"column:assigned"`
	Score            *float64       `gorm:"column:score"`
	DeltaPpm         *float64       `gorm:"column:frag_deltappm"`
	FragMz           *float64       `gorm:"column:frag_mz"`
}

const moleculeRowSelect = "molecules.*, ap.assigned AS assigned"
const moleculeScanRowSelect = moleculeRowSelect +
	", f.score AS score, f.deltappm AS frag_deltappm, f.mz AS frag_mz"

func (r *moleculeScanRow) toDTO() dto.MoleculeRow {
	row := dto.MoleculeRow{
		MolID:            r.MolID,
		Mol:              r.Mol,
		Name:             r.Name,
		Smiles:           r.Smiles,
		InchiKey14:       r.InchiKey14,
		Formula:          r.Formula,
		RefScore:         r.RefScore,
		Predicted:        r.Predicted,
		Mim:              r.Mim,
		LogP:             r.LogP,
		Reference:        r.Reference,
		ReactionSequence: json.RawMessage(r.ReactionSequence),
		NHits:            r.NHits,
		Assigned:         r.Assigned != nil && *r.Assigned > 0,
		Score:            r.Score,
		DeltaPpm:         r.DeltaPpm,
		Mz:               r.FragMz,
	}
	return row
}

// rankOfMolecule scans the sorted, filtered id list until molid matches and
// returns its zero based rank. ErrMoleculeNotFound when filtered out.
func (db *DB) rankOfMolecule(ctx context.Context, mq *moleculeQuery, molid int64) (int64, error) {
	q, err := mq.build(ctx, "molecules.molid")
	if err != nil {
		return 0, err
	}
	q, err = mq.addSorting(q)
	if err != nil {
		return 0, err
	}

	rows, err := q.Rows()
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	var rank int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return 0, err
		}
		if id == molid {
			return rank, nil
		}
		rank++
	}
	if err := rows.Err(); err != nil {
		return 0, err
	}
	return 0, apperrors.ErrMoleculeNotFound
}

// Molecules returns one page of molecules under the given filters and sorts.
//
// With scanID set, root fragments of that scan are joined in and the score,
// deltappm and mz virtual columns become available. With molID set, start is
// overridden so the page containing that molecule is returned; if the
// molecule is filtered out the override is skipped and molid comes back
// unset.
func (db *DB) Molecules(
	ctx context.Context,
	start, limit int64,
	sorts []specification.GridSort,
	filters []specification.GridFilter,
	scanID *int64,
	mz *float64,
	molID *int64,
) (*dto.MoleculesPage, error) {
	if limit <= 0 {
		limit = 10
	}

	mq := &moleculeQuery{db: db, scanID: scanID, mz: mz, filters: filters, sorts: sorts}

	if molID != nil {
		rank, err := db.rankOfMolecule(ctx, mq, *molID)
		switch {
		case err == nil:
			start = rank / limit * limit
		case errors.Is(err, apperrors.ErrMoleculeNotFound):
			molID = nil
		default:
			return nil, err
		}
	}

	countQ, err := mq.build(ctx, "molecules.molid")
	if err != nil {
		return nil, err
	}
	var total int64
	if err := countQ.Count(&total).Error; err != nil {
		return nil, err
	}

	sel := moleculeRowSelect
	if scanID != nil {
		sel = moleculeScanRowSelect
	}
	q, err := mq.build(ctx, sel)
	if err != nil {
		return nil, err
	}
	q, err = mq.addSorting(q)
	if err != nil {
		return nil, err
	}

	var raw []moleculeScanRow
	if err := q.Offset(int(start)).Limit(int(limit)).Scan(&raw).Error; err != nil {
		return nil, err
	}

	rows := make([]dto.MoleculeRow, 0, len(raw))
	for i := range raw {
		rows = append(rows, raw[i].toDTO())
	}

	return &dto.MoleculesPage{
		Total: total,
		Rows:  rows,
		Page:  start/limit + 1,
		MolID: molID,
	}, nil
}
