package inference

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInfer_Streaming_CapturesTTFTAndTokens(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)

		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"hello\"}}]}\n\n")
		flusher.Flush()
		time.Sleep(5 * time.Millisecond)
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\" world\"}}]}\n\n")
		flusher.Flush()
		fmt.Fprint(w, "data: [DONE]\n\n")
		flusher.Flush()
	}))
	defer server.Close()

	client := NewClient(server.URL)
	metrics, err := client.Infer(context.Background(), "llama3:8b", "hi", 100, 0.7, 5*time.Second, true)

	require.NoError(t, err)
	require.NotNil(t, metrics.TTFTMs)
	assert.Greater(t, *metrics.TTFTMs, 0.0)
	assert.Equal(t, 2, metrics.Tokens)
	assert.Len(t, metrics.InterTokenDelays, 1)
	assert.False(t, metrics.Timeout)
	assert.Empty(t, metrics.Error)
	assert.True(t, metrics.Succeeded())
}

func TestInfer_NonStreaming_UsesReportedTokenCount(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"choices":[{"message":{"role":"assistant","content":"hi there"}}],"usage":{"completion_tokens":12}}`)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	metrics, err := client.Infer(context.Background(), "llama3:8b", "hi", 100, 0.7, 5*time.Second, false)

	require.NoError(t, err)
	assert.Nil(t, metrics.TTFTMs)
	assert.Equal(t, 12, metrics.Tokens)
	assert.Empty(t, metrics.InterTokenDelays)
}

func TestInfer_TimeoutSetsTimeoutSentinel(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(100 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	metrics, err := client.Infer(context.Background(), "llama3:8b", "hi", 100, 0.7, 10*time.Millisecond, false)

	require.NoError(t, err)
	assert.True(t, metrics.Timeout)
	assert.NotEmpty(t, metrics.Error)
	assert.False(t, metrics.Succeeded())
}

func TestInfer_BackendErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, "boom")
	}))
	defer server.Close()

	client := NewClient(server.URL)
	metrics, err := client.Infer(context.Background(), "llama3:8b", "hi", 100, 0.7, 5*time.Second, true)

	require.NoError(t, err)
	assert.False(t, metrics.Timeout)
	assert.Contains(t, metrics.Error, "500")
	assert.False(t, metrics.Succeeded())
}
