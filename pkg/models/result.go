package models

// ResourceSample is a point-in-time CPU/RAM/GPU snapshot as produced by
// the Resource Sampler. Any field may be nil when the underlying metric
// was unavailable.
type ResourceSample struct {
	CPU *float64 `json:"cpu"`
	RAM *float64 `json:"ram"`
	GPU *float64 `json:"gpu"`
}

// IterationMetrics is the outcome of a single Inference Client call.
type IterationMetrics struct {
	StartMs          int64   `json:"start_ms"`
	EndMs            int64   `json:"end_ms"`
	TTFTMs           *float64 `json:"ttft_ms"`
	Tokens           int     `json:"tokens"`
	InterTokenDelays []float64 `json:"inter_token_delays"`
	Error            string  `json:"error,omitempty"`
	Timeout          bool    `json:"timeout"`
}

// Latency returns end-start in milliseconds.
func (m IterationMetrics) Latency() float64 {
	return float64(m.EndMs - m.StartMs)
}

// Succeeded reports whether the iteration produced neither an error nor a
// timeout.
func (m IterationMetrics) Succeeded() bool {
	return m.Error == "" && !m.Timeout
}

// IterationRecord pairs an iteration's inference metrics with the
// resource samples taken immediately before and after it.
type IterationRecord struct {
	Iteration int             `json:"iteration"`
	Metrics   IterationMetrics `json:"metrics"`
	Before    ResourceSample  `json:"before"`
	After     ResourceSample  `json:"after"`
}

// RawData is the full per-iteration structure retained alongside a
// Result's aggregates.
type RawData struct {
	Iterations []IterationRecord `json:"iterations"`
}

// Result is one Benchmark Result per (run, model, scenario) triple.
type Result struct {
	ID       string `json:"id"`
	RunID    string `json:"run_id"`
	ModelID  string `json:"model_id"`
	Scenario string `json:"scenario"`

	TPS        float64  `json:"tps"`
	TTFT       *float64 `json:"ttft"`
	TPOT       *float64 `json:"tpot"`
	GenTPS     *float64 `json:"gen_tps"`
	LatencyP50 float64  `json:"latency_p50"`
	LatencyP95 float64  `json:"latency_p95"`
	LatencyP99 float64  `json:"latency_p99"`
	ErrorRate  float64  `json:"error_rate"`
	TimeoutRate float64 `json:"timeout_rate"`
	CPUAvg     *float64 `json:"cpu_avg"`
	RAMAvg     *float64 `json:"ram_avg"`
	GPUAvg     *float64 `json:"gpu_avg"`

	TotalTokens           int `json:"total_tokens"`
	TotalIterations       int `json:"total_iterations"`
	SuccessfulIterations  int `json:"successful_iterations"`

	RawData RawData `json:"raw_data"`
}
