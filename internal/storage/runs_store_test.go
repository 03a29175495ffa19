package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/llm-bench/engine/pkg/models"
)

func testRun() *models.Run {
	return &models.Run{
		ID:           "run-1",
		SuiteName:    "smoke",
		ModelIDs:     []string{"desc-1", "desc-2"},
		Config:       models.DefaultRunConfig(),
		HardwareInfo: models.HardwareInfo{CPUVendor: "GenuineIntel", CPULogical: 16},
		Status:       models.RunRunning,
		StartedAt:    time.Now().UTC().Truncate(time.Second),
	}
}

func TestSaveAndGetRun(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	r := testRun()
	require.NoError(t, db.SaveRun(ctx, r))

	got, err := db.GetRun(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, r.SuiteName, got.SuiteName)
	assert.Equal(t, r.ModelIDs, got.ModelIDs)
	assert.Equal(t, r.Config, got.Config)
	assert.Equal(t, r.HardwareInfo, got.HardwareInfo)
	assert.Equal(t, models.RunRunning, got.Status)
	assert.Nil(t, got.CompletedAt)
}

func TestGetRun_NotFound(t *testing.T) {
	db := setupTestDB(t)
	_, err := db.GetRun(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateRunStatus(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	r := testRun()
	require.NoError(t, db.SaveRun(ctx, r))

	completed := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, db.UpdateRunStatus(ctx, r.ID, models.RunCompleted, &completed))

	got, err := db.GetRun(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RunCompleted, got.Status)
	require.NotNil(t, got.CompletedAt)
	assert.WithinDuration(t, completed, *got.CompletedAt, time.Second)
}

func TestListRuns_FilterByStatus(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	running := testRun()
	completed := testRun()
	completed.ID = "run-2"
	completed.Status = models.RunCompleted

	require.NoError(t, db.SaveRun(ctx, running))
	require.NoError(t, db.SaveRun(ctx, completed))

	list, err := db.ListRuns(ctx, ListRunsFilter{Status: "completed"})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "run-2", list[0].ID)
}

func TestListRuns_FilterBySuite(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	a := testRun()
	b := testRun()
	b.ID = "run-2"
	b.SuiteName = "regression"

	require.NoError(t, db.SaveRun(ctx, a))
	require.NoError(t, db.SaveRun(ctx, b))

	list, err := db.ListRuns(ctx, ListRunsFilter{SuiteName: "regression"})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "run-2", list[0].ID)
}

func TestListRuns_Limit(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		r := testRun()
		r.ID = "run-" + string(rune('a'+i))
		r.StartedAt = r.StartedAt.Add(time.Duration(i) * time.Minute)
		require.NoError(t, db.SaveRun(ctx, r))
	}

	list, err := db.ListRuns(ctx, ListRunsFilter{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, list, 2)
}
