// Package scenario drives one (model, scenario) pair through its
// configured iterations and aggregates the resulting throughput and
// latency metrics.
package scenario

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/llm-bench/engine/internal/logging"
	"github.com/llm-bench/engine/internal/metrics"
	"github.com/llm-bench/engine/pkg/models"
)

// ModelResolver looks up the backend-canonical identifier for a loaded
// model. Implemented by *orchestrator.Orchestrator.
type ModelResolver interface {
	GetLoaded(descriptorID string) (models.LoadedModelInfo, bool)
}

// InferenceClient runs a single scenario iteration. Implemented by
// *inference.Client.
type InferenceClient interface {
	Infer(ctx context.Context, modelName, prompt string, maxTokens int, temperature float64, timeout time.Duration, streaming bool) (models.IterationMetrics, error)
}

// ResourceSampler captures a point-in-time CPU/RAM/GPU snapshot.
// Implemented by *resource.Sampler.
type ResourceSampler interface {
	Sample(ctx context.Context) models.ResourceSample
}

// ProgressFunc is invoked after each iteration completes.
type ProgressFunc func(descriptorID, scenarioName string, iteration, total int)

// Runner executes scenarios against loaded models.
type Runner struct {
	resolver ModelResolver
	client   InferenceClient
	sampler  ResourceSampler
}

// New returns a Runner wired to the given collaborators.
func New(resolver ModelResolver, client InferenceClient, sampler ResourceSampler) *Runner {
	return &Runner{resolver: resolver, client: client, sampler: sampler}
}

// defaultIterationPauseMs is the bounded backoff between iterations, used when the
// caller's config leaves IterationPauseMs at its zero value.
const defaultIterationPauseMs = 100

// Run executes scenario against descriptorID under config, invoking
// progress after each iteration with the scenario's own 1-based iteration
// counter, and returns the aggregate Result plus raw per-iteration data.
func (r *Runner) Run(ctx context.Context, descriptorID string, sc models.Scenario, config models.RunConfig, progress ProgressFunc) (models.Result, error) {
	info, ok := r.resolver.GetLoaded(descriptorID)
	if !ok {
		return models.Result{}, fmt.Errorf("%w: descriptor %s is not loaded", models.ErrModelNotReady, descriptorID)
	}

	pauseMs := config.IterationPauseMs
	if pauseMs == 0 {
		pauseMs = defaultIterationPauseMs
	}

	maxTokens := sc.MaxTokens
	if maxTokens == 0 {
		maxTokens = models.DefaultMaxTokens
	}

	records := make([]models.IterationRecord, 0, config.Iterations)

	for i := 1; i <= config.Iterations; i++ {
		before := r.sampler.Sample(ctx)

		iterMetrics, err := r.client.Infer(ctx, info.ID, sc.Prompt, maxTokens, config.Temperature, time.Duration(config.TimeoutMs)*time.Millisecond, config.Streaming)
		if err != nil {
			return models.Result{}, fmt.Errorf("inference client error: %w", err)
		}

		after := r.sampler.Sample(ctx)

		outcome := "success"
		if !iterMetrics.Succeeded() {
			outcome = "error"
			if iterMetrics.Timeout {
				outcome = "timeout"
			}
		}
		metrics.RecordIteration(info.ID, sc.Name, outcome)
		metrics.RecordInference(info.ID, config.Streaming, time.Duration(iterMetrics.Latency())*time.Millisecond)
		if iterMetrics.TTFTMs != nil {
			metrics.RecordTTFT(info.ID, *iterMetrics.TTFTMs/1000.0)
		}

		records = append(records, models.IterationRecord{
			Iteration: i,
			Metrics:   iterMetrics,
			Before:    before,
			After:     after,
		})

		if progress != nil {
			progress(descriptorID, sc.Name, i, config.Iterations)
		}

		if i < config.Iterations {
			select {
			case <-ctx.Done():
				return models.Result{}, ctx.Err()
			case <-time.After(time.Duration(pauseMs) * time.Millisecond):
			}
		}
	}

	aggregate := aggregate(records, config.Iterations)
	aggregate.ModelID = descriptorID
	aggregate.Scenario = sc.Name
	aggregate.RawData = models.RawData{Iterations: records}

	logging.Debug(ctx, "scenario runner: aggregation complete",
		"descriptor_id", descriptorID, "scenario", sc.Name, "tps", aggregate.TPS)

	return aggregate, nil
}

func aggregate(records []models.IterationRecord, totalIterations int) models.Result {
	var (
		successfulLatencies []float64
		ttfts               []float64
		delays              []float64
		totalTokens         int
		successCount        int
		errorCount          int
		timeoutCount        int
		cpuSum, ramSum      float64
		gpuSum              float64
		gpuN                int
	)

	var successLatencySeconds float64
	var successTokens int

	for _, rec := range records {
		m := rec.Metrics
		if m.Succeeded() {
			successCount++
			lat := m.Latency()
			successfulLatencies = append(successfulLatencies, lat)
			successLatencySeconds += lat / 1000.0
			successTokens += m.Tokens
			totalTokens += m.Tokens

			if m.TTFTMs != nil {
				ttfts = append(ttfts, *m.TTFTMs)
			}
			delays = append(delays, m.InterTokenDelays...)
		} else {
			if m.Timeout {
				timeoutCount++
			} else {
				errorCount++
			}
		}

		if rec.After.CPU != nil {
			cpuSum += *rec.After.CPU
		}
		if rec.After.RAM != nil {
			ramSum += *rec.After.RAM
		}
		if rec.After.GPU != nil {
			gpuSum += *rec.After.GPU
			gpuN++
		}
	}

	sort.Float64s(successfulLatencies)
	sort.Float64s(ttfts)

	result := models.Result{
		TotalTokens:          totalTokens,
		TotalIterations:      totalIterations,
		SuccessfulIterations: successCount,
		LatencyP50:           percentile(successfulLatencies, 50),
		LatencyP95:           percentile(successfulLatencies, 95),
		LatencyP99:           percentile(successfulLatencies, 99),
	}

	if totalIterations > 0 {
		result.ErrorRate = float64(errorCount) / float64(totalIterations) * 100
		result.TimeoutRate = float64(timeoutCount) / float64(totalIterations) * 100
	}

	if successLatencySeconds > 0 {
		result.TPS = float64(successTokens) / successLatencySeconds
	}

	if len(ttfts) > 0 {
		v := median(ttfts)
		result.TTFT = &v
	}

	if len(delays) > 0 {
		v := mean(delays)
		result.TPOT = &v
		if v > 0 {
			genTPS := 1000.0 / v
			result.GenTPS = &genTPS
		}
	}

	// cpu_avg/ram_avg divide by total_iterations, including iterations whose
	// sample came back null — a missing CPU/RAM reading pulls the average
	// down rather than being excluded. gpu_avg instead excludes null
	// samples from both numerator and denominator, since GPU telemetry is
	// routinely absent on CPU-only backends and a per-iteration null there
	// carries no signal about the iteration itself.
	if totalIterations > 0 {
		cpuAvg := cpuSum / float64(totalIterations)
		result.CPUAvg = &cpuAvg
		ramAvg := ramSum / float64(totalIterations)
		result.RAMAvg = &ramAvg
	}
	if gpuN > 0 {
		v := gpuSum / float64(gpuN)
		result.GPUAvg = &v
	}

	return result
}
