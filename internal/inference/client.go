// Package inference implements the OpenAI-compatible chat-completion client
// used to drive a single scenario iteration and capture its timing profile.
package inference

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/llm-bench/engine/pkg/models"
)

// Client drives chat-completion requests against an OpenAI-compatible
// backend and measures the streaming timing profile the Scenario Runner
// aggregates.
type Client struct {
	endpoint   string
	httpClient *http.Client
}

// NewClient returns a Client bound to endpoint, using a connection-pooled
// HTTP client tuned for repeated calls against the same backend.
func NewClient(endpoint string) *Client {
	return &Client{
		endpoint:   strings.TrimRight(endpoint, "/"),
		httpClient: newHTTPClient(),
	}
}

func newHTTPClient() *http.Client {
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 100,
		IdleConnTimeout:     90 * time.Second,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2: true,
	}
	return &http.Client{Transport: transport}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
	Stream      bool          `json:"stream"`
}

type chatCompletionChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage struct {
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

// Infer runs one scenario iteration against model and returns its timing
// profile. It never returns a non-nil error for ordinary inference
// failures — those are captured in IterationMetrics.Error/Timeout so the
// Scenario Runner's failure-tolerant aggregation can account for them. A
// non-nil error return means the request could not even be constructed.
func (c *Client) Infer(ctx context.Context, modelName, prompt string, maxTokens int, temperature float64, timeout time.Duration, streaming bool) (models.IterationMetrics, error) {
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	payload := chatCompletionRequest{
		Model:       modelName,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		MaxTokens:   maxTokens,
		Temperature: temperature,
		Stream:      streaming,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return models.IterationMetrics{}, fmt.Errorf("failed to marshal chat completion request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(reqCtx, http.MethodPost, c.endpoint+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return models.IterationMetrics{}, fmt.Errorf("failed to build chat completion request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return timeoutOrError(reqCtx, start, err), nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		end := time.Now()
		return models.IterationMetrics{
			StartMs: start.UnixMilli(),
			EndMs:   end.UnixMilli(),
			Error:   fmt.Sprintf("backend returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(b))),
		}, nil
	}

	if streaming {
		return readStream(reqCtx, resp.Body, start), nil
	}
	return readSingle(reqCtx, resp.Body, start)
}

func readStream(ctx context.Context, body io.Reader, start time.Time) models.IterationMetrics {
	var (
		ttftMs    *float64
		lastToken time.Time
		delays    []float64
		tokens    int
	)

	reader := bufio.NewReader(body)
	for {
		line, readErr := reader.ReadBytes('\n')
		line = bytes.TrimSpace(line)

		if len(line) > 0 {
			if data, ok := bytes.CutPrefix(line, []byte("data: ")); ok {
				if bytes.Equal(bytes.TrimSpace(data), []byte("[DONE]")) {
					break
				}

				var chunk chatCompletionChunk
				if err := json.Unmarshal(data, &chunk); err == nil && len(chunk.Choices) > 0 {
					content := chunk.Choices[0].Delta.Content
					if content != "" {
						now := time.Now()
						if ttftMs == nil {
							v := float64(now.Sub(start).Microseconds()) / 1000
							ttftMs = &v
						} else {
							delays = append(delays, float64(now.Sub(lastToken).Microseconds())/1000)
						}
						lastToken = now
						tokens++
					}
				}
			}
		}

		if readErr != nil {
			break
		}
	}

	end := time.Now()

	if ctx.Err() != nil {
		return models.IterationMetrics{
			StartMs: start.UnixMilli(),
			EndMs:   end.UnixMilli(),
			TTFTMs:  ttftMs,
			Tokens:  tokens,
			Timeout: true,
			Error:   ErrTimeout.Error(),
		}
	}

	return models.IterationMetrics{
		StartMs:          start.UnixMilli(),
		EndMs:            end.UnixMilli(),
		TTFTMs:           ttftMs,
		Tokens:           tokens,
		InterTokenDelays: delays,
	}
}

func readSingle(ctx context.Context, body io.Reader, start time.Time) (models.IterationMetrics, error) {
	data, err := io.ReadAll(body)
	end := time.Now()
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return models.IterationMetrics{
				StartMs: start.UnixMilli(),
				EndMs:   end.UnixMilli(),
				Timeout: true,
				Error:   ErrTimeout.Error(),
			}, nil
		}
		return models.IterationMetrics{
			StartMs: start.UnixMilli(),
			EndMs:   end.UnixMilli(),
			Error:   err.Error(),
		}, nil
	}

	var resp chatCompletionResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return models.IterationMetrics{
				StartMs: start.UnixMilli(),
				EndMs:   end.UnixMilli(),
				Timeout: true,
				Error:   ErrTimeout.Error(),
			}, nil
		}
		return models.IterationMetrics{
			StartMs: start.UnixMilli(),
			EndMs:   end.UnixMilli(),
			Error:   fmt.Sprintf("failed to decode response: %v", err),
		}, nil
	}

	return models.IterationMetrics{
		StartMs: start.UnixMilli(),
		EndMs:   end.UnixMilli(),
		Tokens:  resp.Usage.CompletionTokens,
	}, nil
}

func timeoutOrError(ctx context.Context, start time.Time, err error) models.IterationMetrics {
	end := time.Now()
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return models.IterationMetrics{
			StartMs: start.UnixMilli(),
			EndMs:   end.UnixMilli(),
			Timeout: true,
			Error:   ErrTimeout.Error(),
		}
	}
	return models.IterationMetrics{
		StartMs: start.UnixMilli(),
		EndMs:   end.UnixMilli(),
		Error:   err.Error(),
	}
}
