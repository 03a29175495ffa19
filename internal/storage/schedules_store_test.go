package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSchedule() *Schedule {
	return &Schedule{
		ID:         "sched-1",
		Name:       "nightly-smoke",
		CronExpr:   "0 2 * * *",
		RunRequest: `{"suite_name":"smoke","model_ids":["desc-1"]}`,
		Enabled:    true,
		CreatedAt:  time.Now().UTC().Truncate(time.Second),
	}
}

func TestSaveAndListSchedules(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	s := testSchedule()
	require.NoError(t, db.SaveSchedule(ctx, s))

	list, err := db.ListSchedules(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, s.Name, list[0].Name)
	assert.True(t, list[0].Enabled)
	assert.Nil(t, list[0].LastRunAt)
}

func TestMarkScheduleRun(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	s := testSchedule()
	require.NoError(t, db.SaveSchedule(ctx, s))

	now := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, db.MarkScheduleRun(ctx, s.ID, now))

	list, err := db.ListSchedules(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.NotNil(t, list[0].LastRunAt)
	assert.WithinDuration(t, now, *list[0].LastRunAt, time.Second)
}

func TestDeleteSchedule(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	s := testSchedule()
	require.NoError(t, db.SaveSchedule(ctx, s))
	require.NoError(t, db.DeleteSchedule(ctx, s.ID))

	list, err := db.ListSchedules(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestDecodeRunRequest(t *testing.T) {
	s := testSchedule()
	req, err := s.DecodeRunRequest()
	require.NoError(t, err)
	assert.Equal(t, "smoke", req.SuiteName)
	assert.Equal(t, []string{"desc-1"}, req.ModelIDs)
}
