// Package orchestrator owns the single connection to the inference backend
// and the cache of currently loaded models. It is the only component that
// talks to the backend's model-management surface; the Inference Client it
// hands out is used purely for running scenarios.
package orchestrator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/llm-bench/engine/internal/inference"
	"github.com/llm-bench/engine/internal/logging"
	"github.com/llm-bench/engine/internal/metrics"
	"github.com/llm-bench/engine/pkg/models"
)

// Orchestrator manages the backend connection and the resident-model cache.
type Orchestrator struct {
	endpoint   string
	httpClient *http.Client
	client     *inference.Client

	mu     sync.RWMutex
	loaded map[string]models.LoadedModelInfo // keyed by descriptor id
}

// New returns an Orchestrator bound to endpoint. Initialize must be called
// before any other operation.
func New(endpoint string) *Orchestrator {
	return &Orchestrator{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		loaded:     make(map[string]models.LoadedModelInfo),
	}
}

// Initialize attaches to the backend, verifying it is reachable.
func (o *Orchestrator) Initialize(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.endpoint+"/v1/models", nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", models.ErrBackendUnavailable, err)
	}

	resp, err := o.httpClient.Do(req)
	if err != nil {
		metrics.RecordBackendHealthCheck(false)
		return "", fmt.Errorf("%w: %v", models.ErrBackendUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		metrics.RecordBackendHealthCheck(false)
		return "", fmt.Errorf("%w: backend returned status %d", models.ErrBackendUnavailable, resp.StatusCode)
	}

	metrics.RecordBackendHealthCheck(true)
	o.client = inference.NewClient(o.endpoint)
	return o.endpoint, nil
}

type catalogResponse struct {
	Data []struct {
		ID string `json:"id"`
	} `json:"data"`
}

// ListAvailable enumerates the backend's model catalog. On enumeration
// failure it returns the documented fallback: an empty, non-nil list.
func (o *Orchestrator) ListAvailable(ctx context.Context) []models.CatalogEntry {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.endpoint+"/v1/models", nil)
	if err != nil {
		logging.Warn(ctx, "orchestrator: failed to build catalog request", "error", err)
		return []models.CatalogEntry{}
	}

	resp, err := o.httpClient.Do(req)
	if err != nil {
		logging.Warn(ctx, "orchestrator: catalog enumeration failed", "error", err)
		return []models.CatalogEntry{}
	}
	defer resp.Body.Close()

	var parsed catalogResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		logging.Warn(ctx, "orchestrator: failed to decode catalog", "error", err)
		return []models.CatalogEntry{}
	}

	entries := make([]models.CatalogEntry, 0, len(parsed.Data))
	for _, d := range parsed.Data {
		entries = append(entries, models.CatalogEntry{ID: d.ID, Name: d.ID})
	}
	return entries
}

// ListLoaded returns a snapshot of every currently cached LoadedModelInfo.
func (o *Orchestrator) ListLoaded() []models.LoadedModelInfo {
	o.mu.RLock()
	defer o.mu.RUnlock()

	out := make([]models.LoadedModelInfo, 0, len(o.loaded))
	for _, info := range o.loaded {
		out = append(out, info)
	}
	return out
}

// GetLoaded returns the cached LoadedModelInfo for descriptorID, if any.
func (o *Orchestrator) GetLoaded(descriptorID string) (models.LoadedModelInfo, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	info, ok := o.loaded[descriptorID]
	return info, ok
}

type loadRequest struct {
	Model string `json:"model"`
}

// Load asks the backend to load modelIDOrAlias, caches the resulting
// LoadedModelInfo under descriptorID, and returns it. Idempotent: a model
// already cached for descriptorID is returned without re-issuing the
// backend call.
func (o *Orchestrator) Load(ctx context.Context, descriptorID, modelIDOrAlias string) (models.LoadedModelInfo, error) {
	if info, ok := o.GetLoaded(descriptorID); ok {
		return info, nil
	}

	body, err := json.Marshal(loadRequest{Model: modelIDOrAlias})
	if err != nil {
		return models.LoadedModelInfo{}, fmt.Errorf("%w: %v", models.ErrLoadFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.endpoint+"/v1/models/load", bytes.NewReader(body))
	if err != nil {
		return models.LoadedModelInfo{}, fmt.Errorf("%w: %v", models.ErrLoadFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.httpClient.Do(req)
	if err != nil {
		metrics.RecordModelLoadFailure(descriptorID)
		return models.LoadedModelInfo{}, fmt.Errorf("%w: %v", models.ErrLoadFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		metrics.RecordModelLoadFailure(descriptorID)
		return models.LoadedModelInfo{}, fmt.Errorf("%w: backend returned status %d", models.ErrLoadFailed, resp.StatusCode)
	}

	var loadResp struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&loadResp); err != nil || loadResp.ID == "" {
		loadResp.ID = modelIDOrAlias
	}

	info := models.LoadedModelInfo{
		DescriptorID: descriptorID,
		ID:           loadResp.ID,
		Alias:        modelIDOrAlias,
		LoadedAt:     time.Now().UTC(),
	}

	o.mu.Lock()
	o.loaded[descriptorID] = info
	o.mu.Unlock()

	metrics.SetLoadedModels(len(o.ListLoaded()))
	return info, nil
}

// Unload removes descriptorID from the cache and asks the backend to
// unload it. Idempotent: unloading an absent model is not an error.
func (o *Orchestrator) Unload(ctx context.Context, descriptorID, modelIDOrAlias string) error {
	info, ok := o.GetLoaded(descriptorID)
	if !ok {
		return nil
	}

	body, _ := json.Marshal(loadRequest{Model: info.ID})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.endpoint+"/v1/models/unload", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build unload request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.httpClient.Do(req)
	if err != nil {
		logging.Warn(ctx, "orchestrator: unload request failed", "descriptor_id", descriptorID, "error", err)
	} else {
		resp.Body.Close()
	}

	o.mu.Lock()
	delete(o.loaded, descriptorID)
	o.mu.Unlock()

	metrics.SetLoadedModels(len(o.ListLoaded()))
	return nil
}

// CheckHealth issues a lightweight probe against aliasOrID.
func (o *Orchestrator) CheckHealth(ctx context.Context, aliasOrID string) models.HealthStatus {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.endpoint+"/v1/models/"+aliasOrID, nil)
	if err != nil {
		return models.HealthStatus{Healthy: false, Status: "error", Error: err.Error(), Endpoint: o.endpoint}
	}

	resp, err := o.httpClient.Do(req)
	if err != nil {
		metrics.RecordBackendHealthCheck(false)
		return models.HealthStatus{Healthy: false, Status: "unreachable", Error: err.Error(), Endpoint: o.endpoint}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		metrics.RecordBackendHealthCheck(false)
		return models.HealthStatus{Healthy: false, Status: fmt.Sprintf("status_%d", resp.StatusCode), Endpoint: o.endpoint}
	}

	metrics.RecordBackendHealthCheck(true)
	return models.HealthStatus{Healthy: true, Status: "ok", Endpoint: o.endpoint}
}

// GetClient returns the Inference Client bound to the current endpoint.
func (o *Orchestrator) GetClient() *inference.Client {
	return o.client
}

// Endpoint returns the backend endpoint this Orchestrator is bound to.
func (o *Orchestrator) Endpoint() string {
	return o.endpoint
}

// Shutdown unloads every cached model and releases backend resources.
func (o *Orchestrator) Shutdown(ctx context.Context) {
	o.mu.RLock()
	descriptorIDs := make([]string, 0, len(o.loaded))
	aliases := make(map[string]string, len(o.loaded))
	for id, info := range o.loaded {
		descriptorIDs = append(descriptorIDs, id)
		aliases[id] = info.ID
	}
	o.mu.RUnlock()

	for _, id := range descriptorIDs {
		if err := o.Unload(ctx, id, aliases[id]); err != nil {
			logging.Warn(ctx, "orchestrator: shutdown unload failed", "descriptor_id", id, "error", err)
		}
	}

	o.httpClient.CloseIdleConnections()
}
