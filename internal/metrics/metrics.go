// Package metrics exposes Prometheus counters, histograms, and gauges
// for the benchmark run lifecycle, inference calls, and backend health.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP request metrics for the API server.
var (
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests by method, path, and status",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests by method, path, and status",
		},
		[]string{"method", "path", "status"},
	)
)

// Benchmark run lifecycle metrics.
var (
	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "benchmark_runs_total",
			Help: "Total number of benchmark runs by terminal status",
		},
		[]string{"status"},
	)

	RunDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "benchmark_run_duration_seconds",
			Help:    "Duration of a benchmark run from start to terminal status",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		},
		[]string{"suite"},
	)

	RunProgress = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "benchmark_run_progress_percent",
			Help: "Progress percentage of the currently active run",
		},
		[]string{"run_id"},
	)
)

// Scenario / iteration metrics.
var (
	IterationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "benchmark_iterations_total",
			Help: "Total number of scenario iterations by model, scenario, and outcome",
		},
		[]string{"model", "scenario", "outcome"}, // outcome: success|error|timeout
	)

	InferenceDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "benchmark_inference_duration_seconds",
			Help:    "Duration of a single inference call by model and streaming mode",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"model", "streaming"},
	)

	TTFTSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "benchmark_ttft_seconds",
			Help:    "Time to first token by model",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
		},
		[]string{"model"},
	)
)

// Orchestrator / backend health metrics.
var (
	BackendHealthChecksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backend_health_checks_total",
			Help: "Total number of backend health checks by result",
		},
		[]string{"result"}, // healthy|unhealthy
	)

	LoadedModelsGauge = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "backend_loaded_models",
			Help: "Current number of models loaded on the inference backend",
		},
	)

	ModelLoadFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backend_model_load_failures_total",
			Help: "Total number of failed model load attempts by descriptor id",
		},
		[]string{"descriptor_id"},
	)
)

// RecordHTTPRequest records the duration and increments the counter for an HTTP request.
func RecordHTTPRequest(method, path, status string, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
	HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
}

// RecordRunTerminal records a run reaching a terminal status and its duration.
func RecordRunTerminal(suite, status string, duration time.Duration) {
	RunsTotal.WithLabelValues(status).Inc()
	RunDuration.WithLabelValues(suite).Observe(duration.Seconds())
}

// RecordIteration records a single scenario iteration's outcome.
func RecordIteration(model, scenario, outcome string) {
	IterationsTotal.WithLabelValues(model, scenario, outcome).Inc()
}

// RecordInference records the duration of a single inference call.
func RecordInference(model string, streaming bool, duration time.Duration) {
	mode := "false"
	if streaming {
		mode = "true"
	}
	InferenceDuration.WithLabelValues(model, mode).Observe(duration.Seconds())
}

// RecordTTFT records a successful time-to-first-token observation.
func RecordTTFT(model string, ttftSeconds float64) {
	TTFTSeconds.WithLabelValues(model).Observe(ttftSeconds)
}

// RecordBackendHealthCheck records the outcome of a backend health probe.
func RecordBackendHealthCheck(healthy bool) {
	if healthy {
		BackendHealthChecksTotal.WithLabelValues("healthy").Inc()
		return
	}
	BackendHealthChecksTotal.WithLabelValues("unhealthy").Inc()
}

// RecordModelLoadFailure increments the load-failure counter for a descriptor.
func RecordModelLoadFailure(descriptorID string) {
	ModelLoadFailuresTotal.WithLabelValues(descriptorID).Inc()
}

// SetLoadedModels sets the loaded-models gauge.
func SetLoadedModels(n int) {
	LoadedModelsGauge.Set(float64(n))
}

// SetRunProgress sets the progress gauge for a run.
func SetRunProgress(runID string, progress int) {
	RunProgress.WithLabelValues(runID).Set(float64(progress))
}
