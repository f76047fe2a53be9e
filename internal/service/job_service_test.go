package service

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"ms-annotation-be/internal/dto"
	"ms-annotation-be/internal/entity"
	"ms-annotation-be/internal/model"
	"ms-annotation-be/internal/pkg/logger"
	"ms-annotation-be/pkg/database"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServiceFixture(t *testing.T) (IJobService, *factoryFixture) {
	t.Helper()
	fx := newFactoryFixture(t, nil)
	sysLogger := logger.NewZapLogger(filepath.Join(t.TempDir(), "svc.log"), false)
	callbackURL := func(jobID uuid.UUID) string {
		return "http://backend.example/api/job/v1/" + jobID.String() + "/state"
	}
	return NewJobService(fx.factory, fx.metaRepo, nil, callbackURL, sysLogger), fx
}

func TestJobServiceCreateAndShow(t *testing.T) {
	svc, fx := newServiceFixture(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, "someone")
	require.NoError(t, err)
	assert.Equal(t, entity.StateStopped, created.State)
	assert.Greater(t, created.Size, int64(0))

	shown, err := svc.Show(ctx, created.JobID)
	require.NoError(t, err)
	assert.Equal(t, created.JobID, shown.JobID)
	assert.Equal(t, fx.factory.DbSize(created.JobID), shown.Size)
}

func TestJobServiceUpdateState(t *testing.T) {
	svc, _ := newServiceFixture(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, "someone")
	require.NoError(t, err)

	// daemon states are opaque, anything the callback delivers is stored
	require.NoError(t, svc.UpdateState(ctx, created.JobID, "RUNNING"))
	shown, err := svc.Show(ctx, created.JobID)
	require.NoError(t, err)
	assert.Equal(t, "RUNNING", shown.State)

	// callbacks can arrive out of order, last write wins
	require.NoError(t, svc.UpdateState(ctx, created.JobID, "STOPPED"))
	require.NoError(t, svc.UpdateState(ctx, created.JobID, "RUNNING"))
	shown, err = svc.Show(ctx, created.JobID)
	require.NoError(t, err)
	assert.Equal(t, "RUNNING", shown.State)
}

func TestJobServiceUpdate(t *testing.T) {
	svc, fx := newServiceFixture(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, "someone")
	require.NoError(t, err)

	// seed a run record so the description is mirrored into the store
	storePath := filepath.Join(fx.cfg.RootDir, created.JobID.String(), fx.cfg.DbFilename)
	seedConn, err := database.OpenResultStore(storePath)
	require.NoError(t, err)
	require.NoError(t, seedConn.Create(&model.Run{Description: "old", MsFilename: "old.mzxml"}).Error)
	require.NoError(t, database.Close(seedConn))

	desc := "plasma batch 7"
	fname := "F777.mzxml"
	isPublic := true
	err = svc.Update(ctx, created.JobID, &dto.UpdateJobRequest{
		Description: &desc,
		MsFilename:  &fname,
		IsPublic:    &isPublic,
	})
	require.NoError(t, err)

	shown, err := svc.Show(ctx, created.JobID)
	require.NoError(t, err)
	assert.Equal(t, desc, shown.Description)
	assert.Equal(t, fname, shown.MsFilename)
	assert.True(t, shown.IsPublic)

	verifyConn, err := database.OpenResultStore(storePath)
	require.NoError(t, err)
	defer database.Close(verifyConn)
	var run model.Run
	require.NoError(t, verifyConn.Order("runid DESC").First(&run).Error)
	assert.Equal(t, desc, run.Description)
	assert.Equal(t, fname, run.MsFilename)
}

func TestJobServiceList(t *testing.T) {
	svc, _ := newServiceFixture(t)
	ctx := context.Background()

	mine1, err := svc.Create(ctx, "someone")
	require.NoError(t, err)
	mine2, err := svc.Create(ctx, "someone")
	require.NoError(t, err)
	other, err := svc.Create(ctx, "someone else")
	require.NoError(t, err)
	isPublic := true
	require.NoError(t, svc.Update(ctx, other.JobID, &dto.UpdateJobRequest{IsPublic: &isPublic}))

	// own workspace, newest first
	list, err := svc.List(ctx, &dto.ListJobsQuery{Owner: "someone"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), list.Total)
	require.Len(t, list.Rows, 2)
	assert.Equal(t, mine2.JobID, list.Rows[0].JobID)
	assert.Equal(t, mine1.JobID, list.Rows[1].JobID)

	// shared jobs of all owners
	list, err = svc.List(ctx, &dto.ListJobsQuery{Owner: "someone", Public: true})
	require.NoError(t, err)
	require.Len(t, list.Rows, 1)
	assert.Equal(t, other.JobID, list.Rows[0].JobID)

	// state narrowing
	require.NoError(t, svc.UpdateState(ctx, mine1.JobID, "RUNNING"))
	list, err = svc.List(ctx, &dto.ListJobsQuery{Owner: "someone", State: entity.StateStopped})
	require.NoError(t, err)
	assert.Equal(t, int64(1), list.Total)
	require.Len(t, list.Rows, 1)
	assert.Equal(t, mine2.JobID, list.Rows[0].JobID)
}

func TestJobServiceListPaging(t *testing.T) {
	svc, _ := newServiceFixture(t)
	ctx := context.Background()

	ids := make([]uuid.UUID, 3)
	for i := range ids {
		created, err := svc.Create(ctx, "someone")
		require.NoError(t, err)
		ids[i] = created.JobID
	}

	list, err := svc.List(ctx, &dto.ListJobsQuery{Owner: "someone", Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), list.Total)
	require.Len(t, list.Rows, 2)
	assert.Equal(t, ids[2], list.Rows[0].JobID)

	list, err = svc.List(ctx, &dto.ListJobsQuery{Owner: "someone", Start: 2, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), list.Total)
	require.Len(t, list.Rows, 1)
	assert.Equal(t, ids[0], list.Rows[0].JobID)
}

func TestJobServiceClone(t *testing.T) {
	svc, _ := newServiceFixture(t)
	ctx := context.Background()

	parent, err := svc.Create(ctx, "someone")
	require.NoError(t, err)

	clone, err := svc.Clone(ctx, parent.JobID, "someone else")
	require.NoError(t, err)
	require.NotNil(t, clone.ParentJobID)
	assert.Equal(t, parent.JobID, *clone.ParentJobID)
	assert.Equal(t, "someone else", clone.Owner)
}

func TestJobServiceDelete(t *testing.T) {
	svc, _ := newServiceFixture(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, "someone")
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, created.JobID))

	_, err = svc.Show(ctx, created.JobID)
	require.Error(t, err)
}

func TestJobServiceCreatedAt(t *testing.T) {
	svc, _ := newServiceFixture(t)

	created, err := svc.Create(context.Background(), "someone")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now(), created.CreatedAt, time.Minute)
}
