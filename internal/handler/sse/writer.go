// Package sse implements Server-Sent Events output for chat streams.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"docuchat/internal/domain/models"
	"docuchat/internal/domain/services"
)

// KeepAliveInterval is how often keep-alive comments are sent while the
// backend is silent. 10 seconds is safe for common proxies.
const KeepAliveInterval = 10 * time.Second

// Writer streams chat events to one HTTP client as SSE frames.
// Safe for concurrent use by the relay and the keep-alive ticker.
type Writer struct {
	mu      sync.Mutex
	w       http.ResponseWriter
	flusher http.Flusher
	closed  bool
}

// NewWriter prepares the response for SSE and returns a writer for it.
// Headers are written immediately; everything after this point must be
// delivered as events.
func NewWriter(w http.ResponseWriter) (*Writer, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("response writer does not support streaming")
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	return &Writer{w: w, flusher: flusher}, nil
}

// Send writes one event as an SSE data frame and flushes it
func (s *Writer) Send(event *models.ChatEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("stream closed")
	}
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", payload); err != nil {
		s.closed = true
		return err
	}
	s.flusher.Flush()
	return nil
}

// StartKeepAlive sends comment frames on a fixed interval until stop is
// called or a write fails. Comments keep idle proxies from timing out
// during long prompt evaluation before the first token.
func (s *Writer) StartKeepAlive() (stop func()) {
	done := make(chan struct{})
	var once sync.Once

	go func() {
		ticker := time.NewTicker(KeepAliveInterval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if err := s.writeComment("keepalive"); err != nil {
					return
				}
			}
		}
	}()

	return func() { once.Do(func() { close(done) }) }
}

func (s *Writer) writeComment(comment string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("stream closed")
	}
	if _, err := fmt.Fprintf(s.w, ": %s\n\n", comment); err != nil {
		s.closed = true
		return err
	}
	s.flusher.Flush()
	return nil
}

var _ services.EventSink = (*Writer)(nil)
