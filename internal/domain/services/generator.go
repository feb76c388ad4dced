package services

import (
	"context"
	"time"
)

// GenerateRequest is a prompt completion request to the inference backend.
// There is no default model - the model is always supplied per request.
type GenerateRequest struct {
	Model  string
	Prompt string
}

// GenerationStats are backend-reported performance counters, forwarded to
// clients as progress events. Informational only.
type GenerationStats struct {
	PromptTokens   int
	ResponseTokens int
	EvalDuration   time.Duration
	TotalDuration  time.Duration
}

// GeneratorEvent is a single event on a backend response stream.
// Exactly one of Delta, Stats or Error is meaningful per event; Done is set
// on the final event of a successful stream.
type GeneratorEvent struct {
	Delta string
	Stats *GenerationStats
	Done  bool
	Error error
}

// ModelInfo describes a model available on the inference backend.
type ModelInfo struct {
	Name     string `json:"name"`
	Size     int64  `json:"size"`
	Modified string `json:"modified"`
}

// Generator is the inference backend seam. The relay depends on this
// interface only, so the backend client can be swapped in tests.
type Generator interface {
	// StreamResponse starts a streaming completion. Events arrive on the
	// returned channel as deltas are read from the backend; the channel is
	// closed when the stream ends. Returns an error if the request cannot
	// be started at all.
	StreamResponse(ctx context.Context, req *GenerateRequest) (<-chan GeneratorEvent, error)

	// GenerateResponse runs a non-streaming completion and returns the
	// full response text.
	GenerateResponse(ctx context.Context, req *GenerateRequest) (string, error)

	// ListModels returns the models available on the backend.
	ListModels(ctx context.Context) ([]ModelInfo, error)
}
