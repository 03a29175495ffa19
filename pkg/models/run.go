package models

import "time"

// RunStatus is the terminal-or-not state of a Benchmark Run.
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// RunConfig controls how a Scenario Runner drives each (model, scenario)
// pair. Validate enforces the ranges from the data model: iterations
// 1..100 (default 5), timeout_ms >= 5000, temperature 0..2.
type RunConfig struct {
	Iterations       int     `json:"iterations" mapstructure:"iterations"`
	TimeoutMs        int     `json:"timeout_ms" mapstructure:"timeout_ms"`
	Temperature      float64 `json:"temperature" mapstructure:"temperature"`
	Streaming        bool    `json:"streaming" mapstructure:"streaming"`
	IterationPauseMs int     `json:"iteration_pause_ms" mapstructure:"iteration_pause_ms"`
}

// DefaultRunConfig mirrors the defaults documented in the data model and
// Open Question 2 (inter-iteration pause).
func DefaultRunConfig() RunConfig {
	return RunConfig{
		Iterations:       5,
		TimeoutMs:        30000,
		Temperature:      0.7,
		Streaming:        true,
		IterationPauseMs: 100,
	}
}

// Validate checks the Run Config ranges. It never mutates the receiver.
func (c RunConfig) Validate() error {
	if c.Iterations < 1 || c.Iterations > 100 {
		return errBadInputf("iterations must be in 1..100, got %d", c.Iterations)
	}
	if c.TimeoutMs < 5000 {
		return errBadInputf("timeout_ms must be >= 5000, got %d", c.TimeoutMs)
	}
	if c.Temperature < 0.0 || c.Temperature > 2.0 {
		return errBadInputf("temperature must be in 0.0..2.0, got %f", c.Temperature)
	}
	if c.IterationPauseMs < 0 {
		return errBadInputf("iteration_pause_ms must be >= 0, got %d", c.IterationPauseMs)
	}
	return nil
}

// Run is one execution of a suite over one or more models under a given
// config. Once terminal, no new Results may be appended for this run.
type Run struct {
	ID           string       `json:"id"`
	SuiteName    string       `json:"suite_name"`
	ModelIDs     []string     `json:"model_ids"`
	Config       RunConfig    `json:"config"`
	HardwareInfo HardwareInfo `json:"hardware_info"`
	Status       RunStatus    `json:"status"`
	StartedAt    time.Time    `json:"started_at"`
	CompletedAt  *time.Time   `json:"completed_at,omitempty"`
}
