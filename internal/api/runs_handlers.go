package api

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/llm-bench/engine/internal/storage"
	"github.com/llm-bench/engine/pkg/models"
)

// StartRunRequest is the request body for start_run.
type StartRunRequest struct {
	SuiteName string            `json:"suite_name" binding:"required"`
	ModelIDs  []string          `json:"model_ids" binding:"required,min=1"`
	Config    *models.RunConfig `json:"config,omitempty"`
	Async     bool              `json:"async,omitempty"`
}

// StartRunResponse is the response for start_run: a run id plus status,
// since returnImmediately submissions complete on a background goroutine.
type StartRunResponse struct {
	RunID  string `json:"run_id"`
	Status string `json:"status"`
}

func (s *Server) handleStartRun(c *gin.Context) {
	ctx := c.Request.Context()

	var req StartRunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: sanitizeValidationError(err), RequestID: c.GetString("request_id")})
		return
	}

	sc, ok := s.catalog.GetSuite(req.SuiteName)
	if !ok {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error:     fmt.Sprintf("%s: suite %q", models.ErrNotFound, req.SuiteName),
			RequestID: c.GetString("request_id"),
		})
		return
	}

	config := models.DefaultRunConfig()
	if req.Config != nil {
		config = *req.Config
	}
	if err := config.Validate(); err != nil {
		s.respondError(c, err)
		return
	}

	runID, err := s.coord.Run(ctx, req.ModelIDs, req.SuiteName, sc, config, true, nil)
	if err != nil {
		s.respondError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, StartRunResponse{RunID: runID, Status: string(models.RunRunning)})
}

// RunStatusResponse mirrors the Status Registry's fast, in-memory view of
// a run in progress, or the terminal row in storage once it no longer has
// a registry entry (e.g. after a process restart).
type RunStatusResponse struct {
	RunID    string `json:"run_id"`
	Status   string `json:"status"`
	Progress int    `json:"progress"`
	Error    string `json:"error,omitempty"`
}

func (s *Server) handleGetRunStatus(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")

	if state, ok := s.registry.Get(id); ok {
		c.JSON(http.StatusOK, RunStatusResponse{RunID: id, Status: state.Status, Progress: state.Progress, Error: state.Error})
		return
	}

	run, err := s.repo.GetRun(ctx, id)
	if err != nil {
		s.respondError(c, err)
		return
	}

	progress := 0
	if run.Status != models.RunRunning {
		progress = 100
	}
	c.JSON(http.StatusOK, RunStatusResponse{RunID: run.ID, Status: string(run.Status), Progress: progress})
}

// RunDetailResponse is a run plus every Benchmark Result recorded for it.
type RunDetailResponse struct {
	*models.Run
	Results []*models.Result `json:"results"`
}

func (s *Server) handleGetRun(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")

	run, err := s.repo.GetRun(ctx, id)
	if err != nil {
		s.respondError(c, err)
		return
	}

	results, err := s.repo.GetResultsByRun(ctx, id)
	if err != nil {
		s.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, RunDetailResponse{Run: run, Results: results})
}

func (s *Server) handleListRuns(c *gin.Context) {
	ctx := c.Request.Context()

	filter := storage.ListRunsFilter{
		Status:    c.Query("status"),
		SuiteName: c.Query("suite_name"),
	}
	if limit := c.Query("limit"); limit != "" {
		v, err := strconv.Atoi(limit)
		if err != nil || v < 0 {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Error:     fmt.Sprintf("invalid limit: must be a non-negative integer, got %q", limit),
				RequestID: c.GetString("request_id"),
			})
			return
		}
		filter.Limit = v
	}

	runs, err := s.repo.ListRuns(ctx, filter)
	if err != nil {
		s.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, runs)
}

func (s *Server) handleListResults(c *gin.Context) {
	ctx := c.Request.Context()

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Error:     fmt.Sprintf("invalid limit: must be a non-negative integer, got %q", raw),
				RequestID: c.GetString("request_id"),
			})
			return
		}
		limit = v
	}

	results, err := s.repo.GetAllResults(ctx, limit)
	if err != nil {
		s.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, results)
}

func (s *Server) handleExportRun(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")

	run, err := s.repo.GetRun(ctx, id)
	if err != nil {
		s.respondError(c, err)
		return
	}

	results, err := s.repo.GetResultsByRun(ctx, id)
	if err != nil {
		s.respondError(c, err)
		return
	}

	format := c.DefaultQuery("format", "json")
	switch format {
	case "json":
		c.JSON(http.StatusOK, RunDetailResponse{Run: run, Results: results})
	case "csv":
		s.writeResultsCSV(c, results)
	default:
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:     fmt.Sprintf("invalid format %q: must be json or csv", format),
			RequestID: c.GetString("request_id"),
		})
	}
}

func (s *Server) writeResultsCSV(c *gin.Context, results []*models.Result) {
	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", `attachment; filename="results.csv"`)

	w := csv.NewWriter(c.Writer)
	defer w.Flush()

	_ = w.Write([]string{
		"model_id", "scenario", "tps", "ttft", "tpot", "gen_tps",
		"latency_p50", "latency_p95", "latency_p99", "error_rate", "timeout_rate",
		"cpu_avg", "ram_avg", "gpu_avg", "total_tokens", "total_iterations", "successful_iterations",
	})
	for _, r := range results {
		_ = w.Write([]string{
			r.ModelID, r.Scenario,
			formatFloat(r.TPS), formatFloatPtr(r.TTFT), formatFloatPtr(r.TPOT), formatFloatPtr(r.GenTPS),
			formatFloat(r.LatencyP50), formatFloat(r.LatencyP95), formatFloat(r.LatencyP99),
			formatFloat(r.ErrorRate), formatFloat(r.TimeoutRate),
			formatFloatPtr(r.CPUAvg), formatFloatPtr(r.RAMAvg), formatFloatPtr(r.GPUAvg),
			strconv.Itoa(r.TotalTokens), strconv.Itoa(r.TotalIterations), strconv.Itoa(r.SuccessfulIterations),
		})
	}
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', 4, 64)
}

func formatFloatPtr(f *float64) string {
	if f == nil {
		return ""
	}
	return formatFloat(*f)
}
