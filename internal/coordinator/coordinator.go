// Package coordinator drives a Benchmark Run to completion: it resolves
// and health-checks each model in turn, runs every scenario against it via
// the Scenario Runner, persists results as they complete, and mirrors
// progress into the Status Registry.
//
// Only one run may be active at a time (see the concurrent-run-submission
// decision recorded alongside this package's design notes) — a second
// submission while one is in flight is rejected with ErrRunInProgress
// rather than silently interleaved, since the Orchestrator's loaded-model
// cache and single backend connection cannot serve two runs safely.
package coordinator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/llm-bench/engine/internal/logging"
	"github.com/llm-bench/engine/internal/metrics"
	"github.com/llm-bench/engine/internal/scenario"
	"github.com/llm-bench/engine/pkg/models"
)

// Repository is the subset of storage.DB the Coordinator depends on.
type Repository interface {
	GetModel(ctx context.Context, id string) (*models.Model, error)
	SaveRun(ctx context.Context, r *models.Run) error
	UpdateRunStatus(ctx context.Context, id string, status models.RunStatus, completedAt *time.Time) error
	UpdateModelStatus(ctx context.Context, id string, status models.ModelStatus, endpoint, lastError string) error
	UpdateModelHeartbeat(ctx context.Context, id string, at time.Time) error
	SaveResult(ctx context.Context, r *models.Result) error
	AppendLog(ctx context.Context, entry *models.AuditLogEntry) error
}

// ModelLoader is the subset of Orchestrator the Coordinator drives through
// ensure_ready.
type ModelLoader interface {
	GetLoaded(descriptorID string) (models.LoadedModelInfo, bool)
	Load(ctx context.Context, descriptorID, modelIDOrAlias string) (models.LoadedModelInfo, error)
	CheckHealth(ctx context.Context, aliasOrID string) models.HealthStatus
	Endpoint() string
}

// ScenarioRunner is the subset of scenario.Runner the Coordinator invokes
// per (model, scenario) pair.
type ScenarioRunner interface {
	Run(ctx context.Context, descriptorID string, sc models.Scenario, config models.RunConfig, progress scenario.ProgressFunc) (models.Result, error)
}

// HardwareProvider captures the static hardware descriptor recorded on a Run.
type HardwareProvider interface {
	HardwareInfo(ctx context.Context) models.HardwareInfo
}

// ProgressCallback is invoked after each completed (model, scenario) pair.
type ProgressCallback func(runID string, completed, total int)

// Coordinator drives Benchmark Runs to completion.
type Coordinator struct {
	repo     Repository
	loader   ModelLoader
	runner   ScenarioRunner
	hardware HardwareProvider
	registry *StatusRegistry

	mu          sync.Mutex
	activeRunID *string
}

// New returns a Coordinator wired to its collaborators.
func New(repo Repository, loader ModelLoader, runner ScenarioRunner, hardware HardwareProvider, registry *StatusRegistry) *Coordinator {
	return &Coordinator{
		repo:     repo,
		loader:   loader,
		runner:   runner,
		hardware: hardware,
		registry: registry,
	}
}

// Run executes suite against descriptorIDs under config. When
// returnImmediately is true, the algorithm runs on a background goroutine
// and Run returns the run id immediately; otherwise Run blocks until the
// run reaches a terminal status.
func (c *Coordinator) Run(ctx context.Context, descriptorIDs []string, suiteName string, suite models.Suite, config models.RunConfig, returnImmediately bool, progress ProgressCallback) (string, error) {
	c.mu.Lock()
	if c.activeRunID != nil {
		c.mu.Unlock()
		return "", models.ErrRunInProgress
	}
	runID := uuid.New().String()
	c.activeRunID = &runID
	c.mu.Unlock()

	hardware := c.hardware.HardwareInfo(ctx)
	run := &models.Run{
		ID:           runID,
		SuiteName:    suiteName,
		ModelIDs:     descriptorIDs,
		Config:       config,
		HardwareInfo: hardware,
		Status:       models.RunRunning,
		StartedAt:    time.Now().UTC(),
	}

	c.registry.Set(runID, RunState{Status: string(models.RunRunning), Progress: 0})

	if err := c.repo.SaveRun(ctx, run); err != nil {
		c.releaseActive()
		c.failRun(ctx, runID, suiteName, run.StartedAt, err)
		return "", fmt.Errorf("%w: %v", models.ErrCoordinatorFailure, err)
	}

	execute := func() {
		defer c.releaseActive()
		c.execute(context.Background(), runID, descriptorIDs, suite, config, run.StartedAt, progress)
	}

	if returnImmediately {
		go execute()
		return runID, nil
	}

	execute()
	return runID, nil
}

func (c *Coordinator) releaseActive() {
	c.mu.Lock()
	c.activeRunID = nil
	c.mu.Unlock()
}

func (c *Coordinator) execute(ctx context.Context, runID string, descriptorIDs []string, suite models.Suite, config models.RunConfig, startedAt time.Time, progress ProgressCallback) {
	totalTasks := len(descriptorIDs) * len(suite.Scenarios)
	completedTasks := 0

	for _, descriptorID := range descriptorIDs {
		info, ready := c.ensureReady(ctx, runID, descriptorID)
		if !ready {
			completedTasks += len(suite.Scenarios)
			c.reportProgress(runID, completedTasks, totalTasks, progress)
			continue
		}

		for _, sc := range suite.Scenarios {
			result, err := c.runner.Run(ctx, descriptorID, sc, config, nil)
			if err != nil {
				c.auditError(ctx, runID, fmt.Sprintf("scenario %s on model %s failed: %v", sc.Name, info.Alias, err))
			} else {
				result.ID = uuid.New().String()
				result.RunID = runID
				if saveErr := c.repo.SaveResult(ctx, &result); saveErr != nil {
					c.failRun(ctx, runID, suite.Name, startedAt, saveErr)
					return
				}
				c.auditInfo(ctx, runID, fmt.Sprintf("result %s recorded for %s/%s", result.ID, descriptorID, sc.Name))
			}

			completedTasks++
			c.reportProgress(runID, completedTasks, totalTasks, progress)
		}
	}

	completedAt := time.Now().UTC()
	if err := c.repo.UpdateRunStatus(ctx, runID, models.RunCompleted, &completedAt); err != nil {
		c.failRun(ctx, runID, suite.Name, startedAt, err)
		return
	}
	c.registry.Set(runID, RunState{Status: string(models.RunCompleted), Progress: 100})
	metrics.SetRunProgress(runID, 100)
	metrics.RecordRunTerminal(suite.Name, string(models.RunCompleted), completedAt.Sub(startedAt))
}

// ensureReady resolves and health-checks descriptorID, attempting exactly
// one reload on an unhealthy probe — the system's only built-in retry.
func (c *Coordinator) ensureReady(ctx context.Context, runID, descriptorID string) (models.LoadedModelInfo, bool) {
	descriptor, err := c.repo.GetModel(ctx, descriptorID)
	if err != nil {
		c.auditError(ctx, runID, fmt.Sprintf("model descriptor %s not found: %v", descriptorID, err))
		return models.LoadedModelInfo{}, false
	}

	info, ok := c.loader.GetLoaded(descriptorID)
	if !ok {
		target := descriptor.ModelID
		if target == "" {
			target = descriptor.Alias
		}
		info, err = c.loader.Load(ctx, descriptorID, target)
		if err != nil {
			_ = c.repo.UpdateModelStatus(ctx, descriptorID, models.ModelError, "", err.Error())
			c.auditError(ctx, runID, fmt.Sprintf("failed to load model %s: %v", descriptorID, err))
			return models.LoadedModelInfo{}, false
		}
		_ = c.repo.UpdateModelStatus(ctx, descriptorID, models.ModelRunning, c.loader.Endpoint(), "")
	}

	health := c.loader.CheckHealth(ctx, descriptor.Alias)
	if !health.Healthy {
		target := descriptor.ModelID
		if target == "" {
			target = descriptor.Alias
		}
		if _, err := c.loader.Load(ctx, descriptorID, target); err != nil {
			_ = c.repo.UpdateModelStatus(ctx, descriptorID, models.ModelError, "", err.Error())
			c.auditError(ctx, runID, fmt.Sprintf("model %s unhealthy and reload failed: %v", descriptorID, err))
			return models.LoadedModelInfo{}, false
		}
		health = c.loader.CheckHealth(ctx, descriptor.Alias)
		if !health.Healthy {
			_ = c.repo.UpdateModelStatus(ctx, descriptorID, models.ModelError, "", "model remained unhealthy after reload")
			c.auditError(ctx, runID, fmt.Sprintf("model %s remained unhealthy after reload", descriptorID))
			return models.LoadedModelInfo{}, false
		}
		_ = c.repo.UpdateModelStatus(ctx, descriptorID, models.ModelRunning, c.loader.Endpoint(), "")
	}

	_ = c.repo.UpdateModelHeartbeat(ctx, descriptorID, time.Now().UTC())
	return info, true
}

func (c *Coordinator) reportProgress(runID string, completed, total int, cb ProgressCallback) {
	pct := 0
	if total > 0 {
		pct = int(float64(completed) / float64(total) * 100)
	}
	c.registry.Set(runID, RunState{Status: string(models.RunRunning), Progress: pct})
	metrics.SetRunProgress(runID, pct)
	if cb != nil {
		cb(runID, completed, total)
	}
}

func (c *Coordinator) failRun(ctx context.Context, runID, suiteName string, startedAt time.Time, cause error) {
	completedAt := time.Now().UTC()
	_ = c.repo.UpdateRunStatus(ctx, runID, models.RunFailed, &completedAt)
	c.registry.Set(runID, RunState{Status: string(models.RunFailed), Error: cause.Error()})
	metrics.RecordRunTerminal(suiteName, string(models.RunFailed), completedAt.Sub(startedAt))
	logging.Error(ctx, "coordinator: run failed", "run_id", runID, "error", cause)
}

func (c *Coordinator) auditError(ctx context.Context, runID, message string) {
	logging.Warn(ctx, "coordinator: "+message, "run_id", runID)
	_ = c.repo.AppendLog(ctx, &models.AuditLogEntry{
		EntityType: "run",
		EntityID:   runID,
		Level:      models.AuditError,
		Message:    message,
		CreatedAt:  time.Now().UTC(),
	})
}

func (c *Coordinator) auditInfo(ctx context.Context, runID, message string) {
	_ = c.repo.AppendLog(ctx, &models.AuditLogEntry{
		EntityType: "run",
		EntityID:   runID,
		Level:      models.AuditInfo,
		Message:    message,
		CreatedAt:  time.Now().UTC(),
	})
}

// RecoverOrphans sweeps runs that are still marked running but have no
// Status Registry entry — the signature of a process crash between
// execution and terminal-status persistence — and transitions them to
// failed. Call once at startup before accepting new run submissions.
func (c *Coordinator) RecoverOrphans(ctx context.Context, runningRuns []*models.Run) error {
	for _, run := range runningRuns {
		if _, tracked := c.registry.Get(run.ID); tracked {
			continue
		}
		completedAt := time.Now().UTC()
		if err := c.repo.UpdateRunStatus(ctx, run.ID, models.RunFailed, &completedAt); err != nil {
			return fmt.Errorf("failed to recover orphaned run %s: %w", run.ID, err)
		}
		c.registry.Set(run.ID, RunState{Status: string(models.RunFailed), Error: "recovered orphan run after process restart"})
		logging.Warn(ctx, "coordinator: recovered orphan run", "run_id", run.ID)
		_ = c.repo.AppendLog(ctx, &models.AuditLogEntry{
			EntityType: "run",
			EntityID:   run.ID,
			Level:      models.AuditWarn,
			Message:    "recovered orphan run",
			CreatedAt:  completedAt,
		})
	}
	return nil
}
