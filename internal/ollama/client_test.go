package ollama

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"docuchat/internal/domain/services"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func collect(t *testing.T, events <-chan services.GeneratorEvent) (string, *services.GenerationStats, bool, error) {
	t.Helper()
	var (
		text  strings.Builder
		stats *services.GenerationStats
		done  bool
	)
	for event := range events {
		if event.Error != nil {
			return text.String(), stats, done, event.Error
		}
		if event.Stats != nil {
			stats = event.Stats
		}
		if event.Done {
			done = true
		}
		text.WriteString(event.Delta)
	}
	return text.String(), stats, done, nil
}

func TestStreamResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			t.Errorf("path = %s", r.URL.Path)
		}
		var req generateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if !req.Stream || req.Model != "llama3" {
			t.Errorf("request = %+v", req)
		}

		w.Header().Set("Content-Type", "application/x-ndjson")
		io.WriteString(w, `{"response":"Hello","done":false}`+"\n")
		io.WriteString(w, `{"response":" world","done":false}`+"\n")
		io.WriteString(w, `{"done":true,"prompt_eval_count":7,"eval_count":2,"eval_duration":2000000,"total_duration":5000000}`+"\n")
	}))
	defer server.Close()

	client := NewClient(server.URL, testLogger())
	events, err := client.StreamResponse(context.Background(), &services.GenerateRequest{Model: "llama3", Prompt: "hi"})
	if err != nil {
		t.Fatalf("stream: %v", err)
	}

	text, stats, done, streamErr := collect(t, events)
	if streamErr != nil {
		t.Fatalf("stream error: %v", streamErr)
	}
	if text != "Hello world" {
		t.Errorf("text = %q", text)
	}
	if !done {
		t.Error("no done event")
	}
	if stats == nil {
		t.Fatal("no stats event")
	}
	if stats.PromptTokens != 7 || stats.ResponseTokens != 2 {
		t.Errorf("stats = %+v", stats)
	}
	if stats.EvalDuration != 2*time.Millisecond {
		t.Errorf("eval duration = %v", stats.EvalDuration)
	}
}

func TestStreamResponseSkipsMalformedLines(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"response":"good","done":false}`+"\n")
		io.WriteString(w, "{not json at all\n")
		io.WriteString(w, `{"response":" still good","done":false}`+"\n")
		io.WriteString(w, `{"done":true}`+"\n")
	}))
	defer server.Close()

	client := NewClient(server.URL, testLogger())
	events, err := client.StreamResponse(context.Background(), &services.GenerateRequest{Model: "m", Prompt: "p"})
	if err != nil {
		t.Fatalf("stream: %v", err)
	}

	text, _, done, streamErr := collect(t, events)
	if streamErr != nil {
		t.Fatalf("stream error: %v", streamErr)
	}
	if text != "good still good" {
		t.Errorf("text = %q", text)
	}
	if !done {
		t.Error("malformed line terminated the stream")
	}
}

func TestStreamResponseErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"model not found"}`, http.StatusNotFound)
	}))
	defer server.Close()

	client := NewClient(server.URL, testLogger())
	_, err := client.StreamResponse(context.Background(), &services.GenerateRequest{Model: "missing", Prompt: "p"})
	if err == nil {
		t.Fatal("expected error for 404 response")
	}
	if !strings.Contains(err.Error(), "404") {
		t.Errorf("error = %v", err)
	}
}

func TestGenerateResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req generateRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.Stream {
			t.Error("stream requested for non-streaming completion")
		}
		json.NewEncoder(w).Encode(generateChunk{Response: "a complete answer", Done: true})
	}))
	defer server.Close()

	client := NewClient(server.URL, testLogger())
	text, err := client.GenerateResponse(context.Background(), &services.GenerateRequest{Model: "m", Prompt: "p"})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if text != "a complete answer" {
		t.Errorf("text = %q", text)
	}
}

func TestListModels(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tags" {
			t.Errorf("path = %s", r.URL.Path)
		}
		io.WriteString(w, `{"models":[{"name":"llama3:8b","size":4661224676,"modified_at":"2024-05-01T10:00:00Z"},{"name":"mistral","size":4109865159,"modified_at":"2024-04-02T09:00:00Z"}]}`)
	}))
	defer server.Close()

	client := NewClient(server.URL, testLogger())
	models, err := client.ListModels(context.Background())
	if err != nil {
		t.Fatalf("list models: %v", err)
	}
	if len(models) != 2 {
		t.Fatalf("models = %d, want 2", len(models))
	}
	if models[0].Name != "llama3:8b" || models[0].Size != 4661224676 {
		t.Errorf("model[0] = %+v", models[0])
	}
}

func TestRetryOnConnectionError(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 2 {
			// Drop the connection to force a transport error
			hj, ok := w.(http.Hijacker)
			if !ok {
				t.Fatal("hijacking unsupported")
			}
			conn, _, _ := hj.Hijack()
			conn.Close()
			return
		}
		io.WriteString(w, `{"models":[]}`)
	}))
	defer server.Close()

	client := NewClient(server.URL, testLogger())
	models, err := client.ListModels(context.Background())
	if err != nil {
		t.Fatalf("list models after retry: %v", err)
	}
	if len(models) != 0 {
		t.Errorf("models = %d", len(models))
	}
	if attempts < 2 {
		t.Errorf("attempts = %d, want at least 2", attempts)
	}
}
