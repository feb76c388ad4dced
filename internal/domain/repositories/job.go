package repositories

import (
	"context"

	"docuchat/internal/domain/models"
)

// JobRepository handles background job persistence.
// Status transitions only move forward; CompletedAt is set exactly when a
// job enters a terminal state.
type JobRepository interface {
	// Create persists a new pending job (ID assigned if empty)
	Create(ctx context.Context, job *models.Job) error

	// Get retrieves a job by ID (domain.ErrNotFound if unknown)
	Get(ctx context.Context, id string) (*models.Job, error)

	// List retrieves jobs newest first, optionally filtered by status
	// (empty status means no filter)
	List(ctx context.Context, status string) ([]*models.Job, error)

	// ClaimPending atomically transitions the oldest pending job to
	// processing and returns it. Returns (nil, nil) when no pending job
	// exists. Safe to call from concurrent workers.
	ClaimPending(ctx context.Context) (*models.Job, error)

	// UpdateProgress sets the progress percentage (0-100)
	UpdateProgress(ctx context.Context, id string, progress int) error

	// Complete transitions a job to completed with an optional result
	Complete(ctx context.Context, id string, result map[string]interface{}) error

	// Fail transitions a job to failed with an error message
	Fail(ctx context.Context, id string, errMsg string) error
}
