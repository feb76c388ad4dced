package jobs

import (
	"context"
	"sync"

	"docuchat/internal/domain/models"
)

// ProgressFunc reports handler progress as a percentage. Implementations
// clamp to 0-100 and ignore reports on terminal jobs.
type ProgressFunc func(progress int)

// Handler executes one job. The returned map becomes the job result on
// success; a returned error fails the job with its message. Handlers are
// not retried automatically.
type Handler func(ctx context.Context, job *models.Job, report ProgressFunc) (map[string]interface{}, error)

// Registry maps job types to handlers. Registration happens during startup
// wiring; lookups happen on the worker loop.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

// NewRegistry creates an empty handler registry
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

// Register binds a handler to a job type, replacing any previous binding
func (r *Registry) Register(jobType string, handler Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[jobType] = handler
}

// Get returns the handler for a job type
func (r *Registry) Get(jobType string) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[jobType]
	return h, ok
}

// Types returns the registered job types
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := make([]string, 0, len(r.handlers))
	for t := range r.handlers {
		types = append(types, t)
	}
	return types
}
