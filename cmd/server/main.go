package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/llm-bench/engine/internal/api"
	"github.com/llm-bench/engine/internal/config"
	"github.com/llm-bench/engine/internal/coordinator"
	"github.com/llm-bench/engine/internal/logging"
	"github.com/llm-bench/engine/internal/metrics"
	"github.com/llm-bench/engine/internal/orchestrator"
	"github.com/llm-bench/engine/internal/resource"
	"github.com/llm-bench/engine/internal/scenario"
	"github.com/llm-bench/engine/internal/scheduler"
	"github.com/llm-bench/engine/internal/storage"
	"github.com/llm-bench/engine/internal/suite"
	"github.com/llm-bench/engine/pkg/models"
)

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger := logging.Setup(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})

	logger.Info("starting llm-bench engine",
		slog.String("version", "0.1.0"),
		slog.Int("port", cfg.Server.Port))

	db, err := storage.New(cfg.Database.Path)
	if err != nil {
		logger.Error("failed to initialize database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer db.Close()

	ctx := context.Background()
	if err := db.Migrate(ctx); err != nil {
		logger.Error("failed to run migrations", slog.String("error", err.Error()))
		os.Exit(1)
	}

	orch := orchestrator.New(cfg.Backend.Endpoint)
	if _, err := orch.Initialize(ctx); err != nil {
		logger.Warn("backend unreachable at startup, continuing in degraded mode",
			slog.String("error", err.Error()))
	}

	suites, err := suite.LoadAll(ctx, cfg.Suites.Dir)
	if err != nil {
		logger.Warn("failed to load suite directory, starting with an empty catalog",
			slog.String("dir", cfg.Suites.Dir), slog.String("error", err.Error()))
	}
	catalog := suite.NewCatalog(suites)
	logger.Info("loaded suite catalog", slog.Int("count", len(suites)))

	sampler := resource.New()
	runner := scenario.New(orch, orch.GetClient(), sampler)
	registry := coordinator.NewStatusRegistry()
	coord := coordinator.New(db, orch, runner, sampler, registry)

	runningRuns, err := db.ListRuns(ctx, storage.ListRunsFilter{Status: string(models.RunRunning)})
	if err != nil {
		logger.Error("failed to list in-flight runs for recovery", slog.String("error", err.Error()))
	} else if err := coord.RecoverOrphans(ctx, runningRuns); err != nil {
		logger.Error("failed to recover orphaned runs", slog.String("error", err.Error()))
	}

	sched := scheduler.New(db, catalog, coord)
	schedCtx, schedCancel := context.WithCancel(ctx)
	sched.Start(schedCtx)

	server := api.New(db, orch, coord, registry, catalog,
		api.WithLogger(logger),
		api.WithHost(cfg.Server.Host),
		api.WithPort(cfg.Server.Port))

	metrics.SetLoadedModels(len(orch.ListLoaded()))

	server.SetReady(true)

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		logger.Info("shutting down...")
		server.SetReady(false)

		schedCancel()
		sched.Stop()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		orch.Shutdown(shutdownCtx)

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown error", slog.String("error", err.Error()))
		}
	}()

	if err := server.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
