// Package scheduler polls the persisted Schedule table on a ticker and
// submits runs for any schedule whose cron expression matches the
// current minute. It is a convenience layer that sits outside the
// benchmark engine proper: it submits through the same Run Coordinator
// entry point an external caller would use and has no way to bypass the
// one-run-in-flight policy.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/llm-bench/engine/internal/coordinator"
	"github.com/llm-bench/engine/internal/logging"
	"github.com/llm-bench/engine/internal/storage"
	"github.com/llm-bench/engine/pkg/models"
)

// ScheduleStore is the subset of storage.DB the Scheduler depends on.
type ScheduleStore interface {
	ListSchedules(ctx context.Context) ([]*storage.Schedule, error)
	MarkScheduleRun(ctx context.Context, id string, at time.Time) error
}

// SuiteProvider resolves a suite name to its definition.
type SuiteProvider interface {
	GetSuite(name string) (models.Suite, bool)
}

// RunSubmitter is the subset of coordinator.Coordinator the Scheduler
// drives — identical to the surface an HTTP handler would call.
type RunSubmitter interface {
	Run(ctx context.Context, descriptorIDs []string, suiteName string, suite models.Suite, config models.RunConfig, returnImmediately bool, progress coordinator.ProgressCallback) (string, error)
}

// Scheduler checks cron schedules on a fixed tick and triggers matching runs.
type Scheduler struct {
	store     ScheduleStore
	suites    SuiteProvider
	submitter RunSubmitter
	interval  time.Duration
	parser    cron.Parser

	mu     sync.Mutex
	cancel context.CancelFunc
}

// New returns a Scheduler polling every minute, matching the cron
// resolution schedules are specified at.
func New(store ScheduleStore, suites SuiteProvider, submitter RunSubmitter) *Scheduler {
	return &Scheduler{
		store:     store,
		suites:    suites,
		submitter: submitter,
		interval:  time.Minute,
		parser:    cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow),
	}
}

// Start begins the scheduler's periodic check loop on a background goroutine.
func (s *Scheduler) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()

	go s.run(ctx)
	logging.Info(ctx, "scheduler started")
}

// Stop cancels the scheduler's check loop.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()
}

func (s *Scheduler) run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.checkSchedules(ctx)
		}
	}
}

func (s *Scheduler) checkSchedules(ctx context.Context) {
	schedules, err := s.store.ListSchedules(ctx)
	if err != nil {
		logging.Error(ctx, "scheduler: failed to list schedules", "error", err)
		return
	}

	now := time.Now().UTC()
	for _, sched := range schedules {
		if !sched.Enabled {
			continue
		}
		if !s.matches(sched.CronExpr, now) {
			continue
		}
		// Avoid re-firing twice within the same minute on overlapping ticks.
		if sched.LastRunAt != nil && sched.LastRunAt.UTC().Truncate(time.Minute).Equal(now.Truncate(time.Minute)) {
			continue
		}
		s.trigger(ctx, sched, now)
	}
}

func (s *Scheduler) matches(cronExpr string, now time.Time) bool {
	schedule, err := s.parser.Parse(cronExpr)
	if err != nil {
		logging.Warn(context.Background(), "scheduler: invalid cron expression", "cron", cronExpr, "error", err)
		return false
	}
	truncated := now.Truncate(time.Minute)
	next := schedule.Next(truncated.Add(-time.Second))
	return next.Equal(truncated)
}

func (s *Scheduler) trigger(ctx context.Context, sched *storage.Schedule, now time.Time) {
	req, err := sched.DecodeRunRequest()
	if err != nil {
		logging.Error(ctx, "scheduler: failed to decode run request", "schedule_id", sched.ID, "error", err)
		return
	}

	suite, ok := s.suites.GetSuite(req.SuiteName)
	if !ok {
		logging.Error(ctx, "scheduler: unknown suite referenced by schedule", "schedule_id", sched.ID, "suite", req.SuiteName)
		return
	}

	config := req.Config
	if config.Iterations == 0 {
		config = models.DefaultRunConfig()
	}

	runID, err := s.submitter.Run(ctx, req.ModelIDs, req.SuiteName, suite, config, true, nil)
	if err != nil {
		logging.Warn(ctx, "scheduler: scheduled run not started, likely a run already in progress", "schedule_id", sched.ID, "error", err)
		return
	}

	if err := s.store.MarkScheduleRun(ctx, sched.ID, now); err != nil {
		logging.Error(ctx, "scheduler: failed to record schedule firing", "schedule_id", sched.ID, "run_id", runID, "error", err)
	}
}
