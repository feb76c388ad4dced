// Package ollama implements the Generator interface against an Ollama
// inference server's HTTP API.
package ollama

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"

	"docuchat/internal/domain/services"
)

const (
	// eventBuffer bounds the relay buffer between the reader goroutine
	// and the consumer. Token events block when full; the consumer's
	// client write speed throttles the backend read.
	eventBuffer = 64

	// maxRetryElapsed caps connection retries when the backend is
	// temporarily unreachable.
	maxRetryElapsed = 10 * time.Second
)

// Client talks to an Ollama server. Safe for concurrent use.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

// NewClient creates an Ollama client for the given base URL.
// The HTTP client has no overall timeout: generation streams are long-lived
// and bounded by the request context instead.
func NewClient(baseURL string, logger *slog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{},
		logger:  logger,
	}
}

// generateRequest is the wire request for /api/generate
type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

// generateChunk is one NDJSON line of a /api/generate response
type generateChunk struct {
	Response        string `json:"response"`
	Done            bool   `json:"done"`
	PromptEvalCount int    `json:"prompt_eval_count"`
	EvalCount       int    `json:"eval_count"`
	EvalDuration    int64  `json:"eval_duration"`  // nanoseconds
	TotalDuration   int64  `json:"total_duration"` // nanoseconds
}

// StreamResponse starts a streaming completion and relays NDJSON chunks as
// generator events. The returned channel closes when the stream ends.
func (c *Client) StreamResponse(ctx context.Context, req *services.GenerateRequest) (<-chan services.GeneratorEvent, error) {
	resp, err := c.postGenerate(ctx, req, true)
	if err != nil {
		return nil, err
	}

	events := make(chan services.GeneratorEvent, eventBuffer)

	go func() {
		defer close(events)
		defer resp.Body.Close()

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

		for scanner.Scan() {
			line := bytes.TrimSpace(scanner.Bytes())
			if len(line) == 0 {
				continue
			}

			var chunk generateChunk
			if err := json.Unmarshal(line, &chunk); err != nil {
				// A malformed line is skipped, not fatal; the stream
				// continues with the next chunk.
				c.logger.Warn("malformed stream chunk skipped", "error", err)
				continue
			}

			if chunk.Response != "" {
				select {
				case events <- services.GeneratorEvent{Delta: chunk.Response}:
				case <-ctx.Done():
					return
				}
			}

			if chunk.Done {
				stats := &services.GenerationStats{
					PromptTokens:   chunk.PromptEvalCount,
					ResponseTokens: chunk.EvalCount,
					EvalDuration:   time.Duration(chunk.EvalDuration),
					TotalDuration:  time.Duration(chunk.TotalDuration),
				}
				// Stats are informational; never block completion on them
				select {
				case events <- services.GeneratorEvent{Stats: stats}:
				default:
				}
				select {
				case events <- services.GeneratorEvent{Done: true}:
				case <-ctx.Done():
				}
				return
			}
		}

		if err := scanner.Err(); err != nil && ctx.Err() == nil {
			select {
			case events <- services.GeneratorEvent{Error: fmt.Errorf("read stream: %w", err)}:
			case <-ctx.Done():
			}
		}
	}()

	return events, nil
}

// GenerateResponse runs a non-streaming completion
func (c *Client) GenerateResponse(ctx context.Context, req *services.GenerateRequest) (string, error) {
	resp, err := c.postGenerate(ctx, req, false)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var chunk generateChunk
	if err := json.NewDecoder(resp.Body).Decode(&chunk); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	return chunk.Response, nil
}

// tagsResponse is the wire response for /api/tags
type tagsResponse struct {
	Models []struct {
		Name       string `json:"name"`
		Size       int64  `json:"size"`
		ModifiedAt string `json:"modified_at"`
	} `json:"models"`
}

// ListModels returns the models available on the backend
func (c *Client) ListModels(ctx context.Context) ([]services.ModelInfo, error) {
	resp, err := c.do(ctx, http.MethodGet, "/api/tags", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var tags tagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return nil, fmt.Errorf("decode models: %w", err)
	}

	models := make([]services.ModelInfo, 0, len(tags.Models))
	for _, m := range tags.Models {
		models = append(models, services.ModelInfo{
			Name:     m.Name,
			Size:     m.Size,
			Modified: m.ModifiedAt,
		})
	}
	return models, nil
}

func (c *Client) postGenerate(ctx context.Context, req *services.GenerateRequest, stream bool) (*http.Response, error) {
	body, err := json.Marshal(generateRequest{
		Model:  req.Model,
		Prompt: req.Prompt,
		Stream: stream,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	return c.do(ctx, http.MethodPost, "/api/generate", body)
}

// do issues a request with capped exponential retry on connection errors.
// HTTP error statuses are not retried: a reachable backend returning an
// error will keep returning it.
func (c *Client) do(ctx context.Context, method, path string, body []byte) (*http.Response, error) {
	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = maxRetryElapsed

	var resp *http.Response
	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(err)
		}
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err = c.http.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(err)
			}
			c.logger.Warn("inference backend unreachable, retrying", "path", path, "error", err)
			return err
		}

		if resp.StatusCode != http.StatusOK {
			detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			resp.Body.Close()
			return backoff.Permanent(fmt.Errorf("backend returned %d: %s", resp.StatusCode, bytes.TrimSpace(detail)))
		}
		return nil
	}

	if err := backoff.Retry(operation, backoff.WithContext(policy, ctx)); err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	return resp, nil
}

var _ services.Generator = (*Client)(nil)
