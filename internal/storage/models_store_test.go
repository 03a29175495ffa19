package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/llm-bench/engine/pkg/models"
)

func testModel() *models.Model {
	return &models.Model{
		ID:        "desc-1",
		Alias:     "fast-llama",
		ModelID:   "llama3:8b",
		Status:    models.ModelStopped,
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}
}

func TestSaveAndGetModel(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	m := testModel()
	require.NoError(t, db.SaveModel(ctx, m))

	got, err := db.GetModel(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, m.Alias, got.Alias)
	assert.Equal(t, m.ModelID, got.ModelID)
	assert.Equal(t, models.ModelStopped, got.Status)
}

func TestGetModel_NotFound(t *testing.T) {
	db := setupTestDB(t)
	_, err := db.GetModel(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSaveModel_Upsert(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	m := testModel()
	require.NoError(t, db.SaveModel(ctx, m))

	m.Alias = "renamed"
	require.NoError(t, db.SaveModel(ctx, m))

	got, err := db.GetModel(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, "renamed", got.Alias)
}

func TestListModels(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	first := testModel()
	second := testModel()
	second.ID = "desc-2"
	require.NoError(t, db.SaveModel(ctx, first))
	require.NoError(t, db.SaveModel(ctx, second))

	list, err := db.ListModels(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestUpdateModelStatus(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	m := testModel()
	require.NoError(t, db.SaveModel(ctx, m))

	require.NoError(t, db.UpdateModelStatus(ctx, m.ID, models.ModelError, "", "backend unreachable"))

	got, err := db.GetModel(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ModelError, got.Status)
	assert.Equal(t, "backend unreachable", got.LastError)
	assert.False(t, got.LastHeartbeat.IsZero())
}

func TestUpdateModelStatus_SetsEndpointAndClearsError(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	m := testModel()
	require.NoError(t, db.SaveModel(ctx, m))
	require.NoError(t, db.UpdateModelStatus(ctx, m.ID, models.ModelError, "", "backend unreachable"))

	require.NoError(t, db.UpdateModelStatus(ctx, m.ID, models.ModelRunning, "http://localhost:9000", ""))

	got, err := db.GetModel(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ModelRunning, got.Status)
	assert.Equal(t, "http://localhost:9000", got.Endpoint)
	assert.Empty(t, got.LastError)
}

func TestUpdateModelStatus_EmptyEndpointLeavesExistingUnchanged(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	m := testModel()
	m.Endpoint = "http://localhost:9000"
	require.NoError(t, db.SaveModel(ctx, m))

	require.NoError(t, db.UpdateModelStatus(ctx, m.ID, models.ModelRunning, "", ""))

	got, err := db.GetModel(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:9000", got.Endpoint)
}

func TestUpdateModelStatus_NotFound(t *testing.T) {
	db := setupTestDB(t)
	err := db.UpdateModelStatus(context.Background(), "missing", models.ModelError, "", "x")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateModelHeartbeat(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	m := testModel()
	require.NoError(t, db.SaveModel(ctx, m))

	now := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, db.UpdateModelHeartbeat(ctx, m.ID, now))

	got, err := db.GetModel(ctx, m.ID)
	require.NoError(t, err)
	assert.WithinDuration(t, now, got.LastHeartbeat, time.Second)
}

func TestDeleteModel(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	m := testModel()
	require.NoError(t, db.SaveModel(ctx, m))
	require.NoError(t, db.DeleteModel(ctx, m.ID))

	_, err := db.GetModel(ctx, m.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteModel_NotFound(t *testing.T) {
	db := setupTestDB(t)
	err := db.DeleteModel(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}
