package orchestrator

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBackend(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/models", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]string{{"id": "llama3:8b"}},
		})
	})
	mux.HandleFunc("/v1/models/load", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"id": "llama3-canonical-id"})
	})
	mux.HandleFunc("/v1/models/unload", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/v1/models/llama3:8b", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	return httptest.NewServer(mux)
}

func TestInitialize_Success(t *testing.T) {
	server := newTestBackend(t)
	defer server.Close()

	o := New(server.URL)
	endpoint, err := o.Initialize(context.Background())
	require.NoError(t, err)
	assert.Equal(t, server.URL, endpoint)
}

func TestInitialize_BackendUnreachable(t *testing.T) {
	o := New("http://127.0.0.1:1")
	_, err := o.Initialize(context.Background())
	assert.Error(t, err)
}

func TestLoad_CachesCanonicalID(t *testing.T) {
	server := newTestBackend(t)
	defer server.Close()

	o := New(server.URL)
	_, err := o.Initialize(context.Background())
	require.NoError(t, err)

	info, err := o.Load(context.Background(), "desc-1", "llama3:8b")
	require.NoError(t, err)
	assert.Equal(t, "llama3-canonical-id", info.ID)
	assert.Equal(t, "llama3:8b", info.Alias)

	cached, ok := o.GetLoaded("desc-1")
	require.True(t, ok)
	assert.Equal(t, info.ID, cached.ID)
}

func TestLoad_IsIdempotent(t *testing.T) {
	server := newTestBackend(t)
	defer server.Close()

	o := New(server.URL)
	_, _ = o.Initialize(context.Background())

	first, err := o.Load(context.Background(), "desc-1", "llama3:8b")
	require.NoError(t, err)

	second, err := o.Load(context.Background(), "desc-1", "llama3:8b")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestUnload_RemovesFromCache(t *testing.T) {
	server := newTestBackend(t)
	defer server.Close()

	o := New(server.URL)
	_, _ = o.Initialize(context.Background())
	_, err := o.Load(context.Background(), "desc-1", "llama3:8b")
	require.NoError(t, err)

	require.NoError(t, o.Unload(context.Background(), "desc-1", "llama3-canonical-id"))

	_, ok := o.GetLoaded("desc-1")
	assert.False(t, ok)
}

func TestUnload_AbsentModelIsNoOp(t *testing.T) {
	server := newTestBackend(t)
	defer server.Close()

	o := New(server.URL)
	assert.NoError(t, o.Unload(context.Background(), "missing", "x"))
}

func TestCheckHealth_Healthy(t *testing.T) {
	server := newTestBackend(t)
	defer server.Close()

	o := New(server.URL)
	_, _ = o.Initialize(context.Background())

	status := o.CheckHealth(context.Background(), "llama3:8b")
	assert.True(t, status.Healthy)
}

func TestListAvailable_FallsBackToEmptyOnFailure(t *testing.T) {
	o := New("http://127.0.0.1:1")
	entries := o.ListAvailable(context.Background())
	assert.NotNil(t, entries)
	assert.Empty(t, entries)
}
