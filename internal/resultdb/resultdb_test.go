package resultdb

import (
	"context"
	"path/filepath"
	"testing"

	"ms-annotation-be/internal/model"
	"ms-annotation-be/pkg/database"

	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

// openTestStore opens a migrated empty store in a temp dir.
func openTestStore(t *testing.T) *DB {
	t.Helper()
	orm, err := database.OpenResultStore(filepath.Join(t.TempDir(), "results.db"))
	require.NoError(t, err)
	require.NoError(t, Migrate(orm))
	db := New(orm)
	t.Cleanup(func() { db.Close() })
	return db
}

func ptrInt64(v int64) *int64       { return &v }
func ptrFloat64(v float64) *float64 { return &v }

// seedTestStore fills a store with a small but complete dataset.
//
// Molecules: 1 caffeine (refscore 0.9), 2 theobromine (0.5),
// 3 paraxanthine (0.7, predicted, no hits).
// Scans: 1 and 3 are level 1, scan 2 is the level 2 child of scan 1.
// Fragment trees: caffeine has root frag 1 on scan 1 with a child and a
// grandchild on scan 2; theobromine has a single root frag on scan 1.
func seedTestStore(t *testing.T, db *DB) {
	t.Helper()

	require.NoError(t, db.orm.Create(&model.Run{
		Description:         "airway epithelium study",
		MsFilename:          "F123456.mzxml",
		MsIntensityCutoff:   200000,
		MsmsIntensityCutoff: 0.1,
		MzPrecision:         5,
	}).Error)

	molecules := []model.Molecule{
		{
			MolID: 1, Mol: "caffeine molblock", Name: "caffeine",
			Smiles: "Cn1cnc2c1c(=O)n(C)c(=O)n2C", InchiKey14: "RYYVLZVUVIJVGH",
			Formula: "C8H10N4O2", RefScore: 0.9, Mim: 194.0804,
			LogP: -0.07, Reference: "<a href=\"http://example.org/1\">1</a>",
			ReactionSequence: datatypes.JSON([]byte(`{"reactantof":["demethylation"]}`)),
			NHits:            1,
		},
		{
			MolID: 2, Mol: "theobromine molblock", Name: "theobromine",
			Smiles: "Cn1cnc2c1c(=O)[nH]c(=O)n2C", InchiKey14: "YAPQBXQYLJRXSA",
			Formula: "C7H8N4O2", RefScore: 0.5, Mim: 180.0647,
			LogP: -0.78,
			ReactionSequence: datatypes.JSON([]byte(`{"productof":["demethylation"]}`)),
			NHits:            1,
		},
		{
			MolID: 3, Mol: "paraxanthine molblock", Name: "paraxanthine",
			Smiles: "Cn1cnc2c1c(=O)n(C)c(=O)[nH]2", InchiKey14: "QUNWUDVFRNGTCO",
			Formula: "C7H8N4O2", RefScore: 0.7, Predicted: true, Mim: 180.0647,
			LogP: -0.63, NHits: 0,
		},
	}
	for i := range molecules {
		require.NoError(t, db.orm.Create(&molecules[i]).Error)
	}

	require.NoError(t, db.orm.Create(&model.Reaction{
		Reactant: 1, Product: 2, Name: "demethylation",
	}).Error)

	scans := []model.Scan{
		{ScanID: 1, MsLevel: 1, Rt: 1.0, BasePeakIntensity: 870000},
		{ScanID: 2, MsLevel: 2, Rt: 1.1, BasePeakIntensity: 500000,
			PrecursorScanID: ptrInt64(1), PrecursorMz: ptrFloat64(195.0878)},
		{ScanID: 3, MsLevel: 1, Rt: 2.0, BasePeakIntensity: 300000},
	}
	for i := range scans {
		require.NoError(t, db.orm.Create(&scans[i]).Error)
	}

	peaks := []model.Peak{
		{ScanID: 1, Mz: 195.0878, Intensity: 870000},
		{ScanID: 1, Mz: 181.0720, Intensity: 200000},
		{ScanID: 2, Mz: 138.0662, Intensity: 300000},
		{ScanID: 3, Mz: 195.0878, Intensity: 100000},
	}
	for i := range peaks {
		require.NoError(t, db.orm.Create(&peaks[i]).Error)
	}

	fragments := []model.Fragment{
		{FragID: 1, ScanID: 1, MolID: 1, ParentFragID: 0, Mz: 195.0878,
			Mass: 194.0804, Score: 200, DeltaH: 1, DeltaPpm: -1.5,
			Formula: "C8H10N4O2", Atoms: "0,1,2,3,4,5,6,7,8,9,10,11,12,13"},
		{FragID: 2, ScanID: 2, MolID: 1, ParentFragID: 1, Mz: 138.0662,
			Mass: 137.0589, Score: 3, DeltaH: 1, DeltaPpm: 0.3,
			Formula: "C6H7N3O", Atoms: "0,1,2,3,4,5,6"},
		{FragID: 3, ScanID: 2, MolID: 1, ParentFragID: 2, Mz: 110.0713,
			Mass: 109.0640, Score: 1, DeltaH: 0, DeltaPpm: 0.8,
			Formula: "C5H7N3", Atoms: "0,1,2,3,4"},
		{FragID: 4, ScanID: 1, MolID: 2, ParentFragID: 0, Mz: 181.0720,
			Mass: 180.0647, Score: 4, DeltaH: 1, DeltaPpm: 2.0,
			Formula: "C7H8N4O2", Atoms: "0,1,2,3,4,5,6,7,8,9,10,11,12"},
	}
	for i := range fragments {
		require.NoError(t, db.orm.Create(&fragments[i]).Error)
	}
}

func seededStore(t *testing.T) *DB {
	t.Helper()
	db := openTestStore(t)
	seedTestStore(t, db)
	return db
}

func TestRunInfo(t *testing.T) {
	db := seededStore(t)

	run, err := db.RunInfo(context.Background())
	require.NoError(t, err)
	require.NotNil(t, run)
	require.Equal(t, "F123456.mzxml", run.MsFilename)
	require.Equal(t, 5.0, run.MzPrecision)
}

func TestRunInfoEmptyStore(t *testing.T) {
	db := openTestStore(t)

	run, err := db.RunInfo(context.Background())
	require.NoError(t, err)
	require.Nil(t, run)
}

func TestSetRunInfo(t *testing.T) {
	db := seededStore(t)
	ctx := context.Background()

	require.NoError(t, db.SetRunInfo(ctx, "renamed", "other.mzxml"))

	var run model.Run
	require.NoError(t, db.orm.Order("runid DESC").First(&run).Error)
	require.Equal(t, "renamed", run.Description)
	require.Equal(t, "other.mzxml", run.MsFilename)
}

func TestSetRunInfoWithoutRunIsNoop(t *testing.T) {
	db := openTestStore(t)
	require.NoError(t, db.SetRunInfo(context.Background(), "ignored", "ignored"))
}

func TestMaxMSLevel(t *testing.T) {
	db := seededStore(t)

	level, err := db.MaxMSLevel(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, level)
}

func TestMaxMSLevelEmptyStore(t *testing.T) {
	db := openTestStore(t)

	level, err := db.MaxMSLevel(context.Background())
	require.NoError(t, err)
	require.Equal(t, 0, level)
}

func TestHasData(t *testing.T) {
	ctx := context.Background()
	empty := openTestStore(t)
	filled := seededStore(t)

	for _, tc := range []struct {
		name string
		db   *DB
		want bool
	}{
		{"empty", empty, false},
		{"filled", filled, true},
	} {
		t.Run(tc.name, func(t *testing.T) {
			hasMols, err := tc.db.HasMolecules(ctx)
			require.NoError(t, err)
			require.Equal(t, tc.want, hasMols)

			hasPeaks, err := tc.db.HasPeaks(ctx)
			require.NoError(t, err)
			require.Equal(t, tc.want, hasPeaks)

			hasFrags, err := tc.db.HasFragments(ctx)
			require.NoError(t, err)
			require.Equal(t, tc.want, hasFrags)
		})
	}
}
