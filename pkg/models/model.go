// Package models defines the data shapes shared across the benchmark
// engine: registered models, suites, run configuration, results, audit
// entries, and hardware descriptors.
package models

import "time"

// ModelStatus reflects the last-known state of a registered model.
type ModelStatus string

const (
	ModelStopped ModelStatus = "stopped"
	ModelRunning ModelStatus = "running"
	ModelError   ModelStatus = "error"
)

// Model is a configured model known to the system. It is created by
// registration and mutated only by orchestrator status updates and admin
// delete; deleting a Model never cascades to Results, which retain the
// model's id by value.
type Model struct {
	ID            string      `json:"id"`
	Alias         string      `json:"alias"`
	ModelID       string      `json:"model_id"`
	Status        ModelStatus `json:"status"`
	Endpoint      string      `json:"endpoint,omitempty"`
	LastError     string      `json:"last_error,omitempty"`
	LastHeartbeat time.Time   `json:"last_heartbeat,omitempty"`
	CreatedAt     time.Time   `json:"created_at"`
}

// LoadedModelInfo is the backend-canonical descriptor of a model currently
// resident in memory. ID is the identifier the backend requires on
// subsequent inference calls and may differ from both the descriptor's
// Alias and the submitted ModelID.
type LoadedModelInfo struct {
	DescriptorID string    `json:"descriptor_id"`
	ID           string    `json:"id"`
	Alias        string    `json:"alias"`
	LoadedAt     time.Time `json:"loaded_at"`
}

// CatalogEntry is one entry in the backend's model catalog as returned by
// Orchestrator.ListAvailable.
type CatalogEntry struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// HealthStatus is the result of a backend health probe.
type HealthStatus struct {
	Healthy  bool   `json:"healthy"`
	Status   string `json:"status"`
	Error    string `json:"error,omitempty"`
	Endpoint string `json:"endpoint,omitempty"`
}
