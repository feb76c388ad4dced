package services

import (
	"context"

	"docuchat/internal/domain/models"
)

// JobSubmitter enqueues background work. Split from JobService so
// components that only submit (e.g. the document service enqueueing summary
// generation) do not see query methods.
type JobSubmitter interface {
	// Submit creates a pending job and returns it immediately. Execution
	// happens on the worker pool; retry is caller-initiated re-submission,
	// never automatic.
	Submit(ctx context.Context, jobType string, payload map[string]interface{}) (*models.Job, error)
}

// JobService is the job queue surface exposed over HTTP.
type JobService interface {
	JobSubmitter

	// Get retrieves a job by id
	Get(ctx context.Context, id string) (*models.Job, error)

	// List retrieves jobs, optionally filtered by status
	List(ctx context.Context, status string) ([]*models.Job, error)
}
