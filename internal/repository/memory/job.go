package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"docuchat/internal/domain"
	"docuchat/internal/domain/models"
)

type jobRepo struct {
	store *Store
}

func (r *jobRepo) Create(ctx context.Context, job *models.Job) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if job.ID == "" {
		job.ID = uuid.New().String()
	}
	now := time.Now()
	job.Status = models.JobStatusPending
	job.Progress = 0
	job.CreatedAt = now
	job.UpdatedAt = now
	job.CompletedAt = nil

	r.store.jobs[job.ID] = copyJob(job)
	r.store.jobOrder = append(r.store.jobOrder, job.ID)
	return nil
}

func (r *jobRepo) Get(ctx context.Context, id string) (*models.Job, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	job, ok := r.store.jobs[id]
	if !ok {
		return nil, fmt.Errorf("job %s: %w", id, domain.ErrNotFound)
	}
	return copyJob(job), nil
}

func (r *jobRepo) List(ctx context.Context, status string) ([]*models.Job, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	jobs := make([]*models.Job, 0, len(r.store.jobOrder))
	// Newest first
	for i := len(r.store.jobOrder) - 1; i >= 0; i-- {
		job := r.store.jobs[r.store.jobOrder[i]]
		if status != "" && job.Status != status {
			continue
		}
		jobs = append(jobs, copyJob(job))
	}
	return jobs, nil
}

// ClaimPending transitions the oldest pending job to processing under the
// store lock, so concurrent workers never claim the same job.
func (r *jobRepo) ClaimPending(ctx context.Context) (*models.Job, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	for _, id := range r.store.jobOrder {
		job := r.store.jobs[id]
		if job.Status != models.JobStatusPending {
			continue
		}
		job.Status = models.JobStatusProcessing
		job.UpdatedAt = time.Now()
		return copyJob(job), nil
	}
	return nil, nil
}

func (r *jobRepo) UpdateProgress(ctx context.Context, id string, progress int) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	job, ok := r.store.jobs[id]
	if !ok {
		return fmt.Errorf("job %s: %w", id, domain.ErrNotFound)
	}
	if job.IsTerminal() {
		return nil
	}
	if progress < 0 {
		progress = 0
	}
	if progress > 100 {
		progress = 100
	}
	job.Progress = progress
	job.UpdatedAt = time.Now()
	return nil
}

func (r *jobRepo) Complete(ctx context.Context, id string, result map[string]interface{}) error {
	return r.finish(id, models.JobStatusCompleted, result, nil)
}

func (r *jobRepo) Fail(ctx context.Context, id string, errMsg string) error {
	return r.finish(id, models.JobStatusFailed, nil, &errMsg)
}

// finish applies a terminal transition. Transitions only move forward, so a
// job that is already terminal is left untouched.
func (r *jobRepo) finish(id, status string, result map[string]interface{}, errMsg *string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	job, ok := r.store.jobs[id]
	if !ok {
		return fmt.Errorf("job %s: %w", id, domain.ErrNotFound)
	}
	if job.IsTerminal() {
		return fmt.Errorf("job %s already %s: %w", id, job.Status, domain.ErrConflict)
	}

	now := time.Now()
	job.Status = status
	job.Result = result
	job.Error = errMsg
	if status == models.JobStatusCompleted {
		job.Progress = 100
	}
	job.UpdatedAt = now
	job.CompletedAt = &now
	return nil
}
