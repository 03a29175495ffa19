package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/llm-bench/engine/pkg/models"
)

func ptrFloat(f float64) *float64 { return &f }

func testResult() *models.Result {
	return &models.Result{
		ID:                   "result-1",
		RunID:                "run-1",
		ModelID:              "desc-1",
		Scenario:             "short-prompt",
		TPS:                  42.5,
		TTFT:                 ptrFloat(0.120),
		TPOT:                 ptrFloat(0.015),
		GenTPS:               ptrFloat(66.6),
		LatencyP50:           1200,
		LatencyP95:           1800,
		LatencyP99:           2100,
		ErrorRate:            0,
		TimeoutRate:          0,
		CPUAvg:               ptrFloat(23.1),
		RAMAvg:               ptrFloat(55.0),
		TotalTokens:          500,
		TotalIterations:      5,
		SuccessfulIterations: 5,
		RawData: models.RawData{
			Iterations: []models.IterationRecord{
				{Iteration: 1, Metrics: models.IterationMetrics{StartMs: 0, EndMs: 1200, Tokens: 100}},
			},
		},
	}
}

func TestSaveAndGetResult(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.SaveRun(ctx, testRun()))

	r := testResult()
	require.NoError(t, db.SaveResult(ctx, r))

	got, err := db.GetResult(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, r.TPS, got.TPS)
	require.NotNil(t, got.TTFT)
	assert.Equal(t, *r.TTFT, *got.TTFT)
	assert.Nil(t, got.GPUAvg)
}

func TestGetResult_NotFound(t *testing.T) {
	db := setupTestDB(t)
	_, err := db.GetResult(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetResultsByRun(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.SaveRun(ctx, testRun()))

	first := testResult()
	second := testResult()
	second.ID = "result-2"
	second.Scenario = "long-prompt"

	require.NoError(t, db.SaveResult(ctx, first))
	require.NoError(t, db.SaveResult(ctx, second))

	list, err := db.GetResultsByRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestGetAllResults_OrderedByInsertionDesc(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.SaveRun(ctx, testRun()))

	first := testResult()
	second := testResult()
	second.ID = "result-2"

	require.NoError(t, db.SaveResult(ctx, first))
	require.NoError(t, db.SaveResult(ctx, second))

	list, err := db.GetAllResults(ctx, 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "result-2", list[0].ID)
	assert.Equal(t, "result-1", list[1].ID)
}

func TestGetAllResults_Limit(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.SaveRun(ctx, testRun()))

	first := testResult()
	second := testResult()
	second.ID = "result-2"

	require.NoError(t, db.SaveResult(ctx, first))
	require.NoError(t, db.SaveResult(ctx, second))

	list, err := db.GetAllResults(ctx, 1)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "result-2", list[0].ID)
}
