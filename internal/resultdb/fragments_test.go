package resultdb

import (
	"context"
	"testing"

	"ms-annotation-be/internal/apperrors"
	"ms-annotation-be/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFragmentRoot(t *testing.T) {
	db := seededStore(t)

	tree, err := db.FragmentRoot(context.Background(), 1, 1)
	require.NoError(t, err)

	require.Len(t, tree.Children, 1)
	root := tree.Children[0]
	assert.Equal(t, int64(1), root.FragID)
	assert.Equal(t, "caffeine molblock", root.Mol)
	assert.Equal(t, 1, root.MsLevel)
	assert.False(t, root.Leaf)
	assert.True(t, root.Expanded)
	require.NotNil(t, root.IsAssigned)
	assert.False(t, *root.IsAssigned)

	// direct children are preloaded, grandchildren are not
	require.Len(t, root.Children, 1)
	child := root.Children[0]
	assert.Equal(t, int64(2), child.FragID)
	assert.Equal(t, 2, child.MsLevel)
	assert.False(t, child.Leaf)
	assert.False(t, child.Expanded)
	assert.Empty(t, child.Children)
}

func TestFragmentRootLeaf(t *testing.T) {
	db := seededStore(t)

	tree, err := db.FragmentRoot(context.Background(), 1, 2)
	require.NoError(t, err)

	require.Len(t, tree.Children, 1)
	root := tree.Children[0]
	assert.Equal(t, int64(4), root.FragID)
	assert.True(t, root.Leaf)
	assert.True(t, root.Expanded)
	assert.Empty(t, root.Children)
}

func TestFragmentRootReflectsAssignment(t *testing.T) {
	db := seededStore(t)
	ctx := context.Background()

	require.NoError(t, db.AssignPeak(ctx, 1, 195.0878, 1))

	tree, err := db.FragmentRoot(ctx, 1, 1)
	require.NoError(t, err)
	require.NotNil(t, tree.Children[0].IsAssigned)
	assert.True(t, *tree.Children[0].IsAssigned)
}

func TestFragmentRootNotFound(t *testing.T) {
	db := seededStore(t)

	_, err := db.FragmentRoot(context.Background(), 1, 999)
	require.ErrorIs(t, err, apperrors.ErrFragmentNotFound)
}

func TestFragmentChildren(t *testing.T) {
	db := seededStore(t)

	nodes, err := db.FragmentChildren(context.Background(), 2)
	require.NoError(t, err)

	require.Len(t, nodes, 1)
	assert.Equal(t, int64(3), nodes[0].FragID)
	assert.True(t, nodes[0].Leaf)
}

func TestFragmentChildrenNone(t *testing.T) {
	db := seededStore(t)

	nodes, err := db.FragmentChildren(context.Background(), 3)
	require.NoError(t, err)
	assert.Empty(t, nodes)
}

func TestAssignAndUnassignPeak(t *testing.T) {
	db := seededStore(t)
	ctx := context.Background()

	require.NoError(t, db.AssignPeak(ctx, 1, 195.0878, 1))

	var peak model.Peak
	require.NoError(t, db.orm.Where("scanid = ? AND mz = ?", 1, 195.0878).First(&peak).Error)
	require.NotNil(t, peak.AssignedMolID)
	assert.Equal(t, int64(1), *peak.AssignedMolID)

	require.NoError(t, db.UnassignPeak(ctx, 1, 195.0878))
	require.NoError(t, db.orm.Where("scanid = ? AND mz = ?", 1, 195.0878).First(&peak).Error)
	assert.Nil(t, peak.AssignedMolID)
}

func TestAssignPeakUnknownMolecule(t *testing.T) {
	db := seededStore(t)

	err := db.AssignPeak(context.Background(), 1, 195.0878, 999)
	require.ErrorIs(t, err, apperrors.ErrMoleculeNotFound)
}

func TestAssignPeakNoMatch(t *testing.T) {
	db := seededStore(t)

	err := db.AssignPeak(context.Background(), 1, 500.0, 1)
	require.ErrorIs(t, err, apperrors.ErrPeakNotFound)
}

func TestAssignPeakAmbiguousMatch(t *testing.T) {
	db := seededStore(t)

	// two peaks inside the mz tolerance window
	require.NoError(t, db.orm.Create(&model.Peak{ScanID: 3, Mz: 100.0000004, Intensity: 10}).Error)
	require.NoError(t, db.orm.Create(&model.Peak{ScanID: 3, Mz: 100.0000008, Intensity: 20}).Error)

	err := db.AssignPeak(context.Background(), 3, 100.0000006, 1)
	require.ErrorIs(t, err, apperrors.ErrPeakNotUnique)
}

func TestUnassignPeakNoMatch(t *testing.T) {
	db := seededStore(t)

	err := db.UnassignPeak(context.Background(), 2, 999.0)
	require.ErrorIs(t, err, apperrors.ErrPeakNotFound)
}
