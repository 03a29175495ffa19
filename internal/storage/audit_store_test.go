package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/llm-bench/engine/pkg/models"
)

func TestAppendAndGetLogs(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	entry := &models.AuditLogEntry{
		EntityType: "run",
		EntityID:   "run-1",
		Level:      models.AuditInfo,
		Message:    "run_started",
		Metadata:   map[string]any{"suite": "smoke"},
		CreatedAt:  time.Now().UTC().Truncate(time.Second),
	}
	require.NoError(t, db.AppendLog(ctx, entry))

	logs, err := db.GetLogs(ctx, "run", "run-1", 0)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "run_started", logs[0].Message)
	assert.Equal(t, "smoke", logs[0].Metadata["suite"])
}

func TestGetLogs_NewestFirst(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	base := time.Now().UTC().Truncate(time.Second)
	for i := 0; i < 3; i++ {
		entry := &models.AuditLogEntry{
			EntityType: "run",
			EntityID:   "run-1",
			Level:      models.AuditInfo,
			Message:    "step",
			CreatedAt:  base.Add(time.Duration(i) * time.Second),
		}
		require.NoError(t, db.AppendLog(ctx, entry))
	}

	logs, err := db.GetLogs(ctx, "run", "run-1", 0)
	require.NoError(t, err)
	require.Len(t, logs, 3)
	assert.True(t, logs[0].CreatedAt.After(logs[2].CreatedAt) || logs[0].CreatedAt.Equal(logs[2].CreatedAt))
}

func TestGetLogs_Limit(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	base := time.Now().UTC().Truncate(time.Second)
	for i := 0; i < 3; i++ {
		entry := &models.AuditLogEntry{
			EntityType: "run",
			EntityID:   "run-1",
			Level:      models.AuditInfo,
			Message:    "step",
			CreatedAt:  base.Add(time.Duration(i) * time.Second),
		}
		require.NoError(t, db.AppendLog(ctx, entry))
	}

	logs, err := db.GetLogs(ctx, "run", "run-1", 2)
	require.NoError(t, err)
	require.Len(t, logs, 2)
}

func TestAppendLog_PrunesBeyondMax(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	base := time.Now().UTC().Truncate(time.Second)
	for i := 0; i < auditLogMaxRows+5; i++ {
		entry := &models.AuditLogEntry{
			EntityType: "model",
			EntityID:   "desc-1",
			Level:      models.AuditDebug,
			Message:    "heartbeat",
			CreatedAt:  base.Add(time.Duration(i) * time.Millisecond),
		}
		require.NoError(t, db.AppendLog(ctx, entry))
	}

	logs, err := db.GetLogs(ctx, "model", "desc-1", 0)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(logs), auditLogMaxRows)
}
