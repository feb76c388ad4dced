package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"docuchat/internal/domain"
	"docuchat/internal/domain/models"
	"docuchat/internal/domain/repositories"
	"docuchat/internal/domain/services"
)

const claimInterval = 1 * time.Second

// Queue is the background job queue: submission, persistence-backed claim
// loop and bounded concurrent execution. Jobs run strictly outside the
// request path; chat streaming never goes through here.
type Queue struct {
	jobRepo  repositories.JobRepository
	registry *Registry
	sem      *semaphore.Weighted
	docLocks *docLocks
	logger   *slog.Logger
}

// NewQueue creates a job queue running at most workers jobs concurrently
func NewQueue(jobRepo repositories.JobRepository, registry *Registry, workers int, logger *slog.Logger) *Queue {
	if workers < 1 {
		workers = 1
	}
	return &Queue{
		jobRepo:  jobRepo,
		registry: registry,
		sem:      semaphore.NewWeighted(int64(workers)),
		docLocks: newDocLocks(),
		logger:   logger,
	}
}

// docLocks serializes jobs targeting the same document. Entries are
// reference counted and dropped when the last holder releases.
type docLocks struct {
	mu    sync.Mutex
	locks map[string]*docLock
}

type docLock struct {
	mu   sync.Mutex
	refs int
}

func newDocLocks() *docLocks {
	return &docLocks{locks: make(map[string]*docLock)}
}

// lock blocks until the document lock is held and returns the release func
func (l *docLocks) lock(id string) func() {
	l.mu.Lock()
	dl, ok := l.locks[id]
	if !ok {
		dl = &docLock{}
		l.locks[id] = dl
	}
	dl.refs++
	l.mu.Unlock()

	dl.mu.Lock()
	return func() {
		dl.mu.Unlock()
		l.mu.Lock()
		dl.refs--
		if dl.refs == 0 {
			delete(l.locks, id)
		}
		l.mu.Unlock()
	}
}

// Submit creates a pending job and returns it immediately
func (q *Queue) Submit(ctx context.Context, jobType string, payload map[string]interface{}) (*models.Job, error) {
	if _, ok := q.registry.Get(jobType); !ok {
		return nil, fmt.Errorf("%w: unknown job type %q", domain.ErrValidation, jobType)
	}

	job := &models.Job{
		Type:    jobType,
		Payload: payload,
	}
	if err := q.jobRepo.Create(ctx, job); err != nil {
		return nil, err
	}

	q.logger.Info("job submitted", "id", job.ID, "type", job.Type)
	return job, nil
}

// Get retrieves a job by id
func (q *Queue) Get(ctx context.Context, id string) (*models.Job, error) {
	return q.jobRepo.Get(ctx, id)
}

// List retrieves jobs, optionally filtered by status
func (q *Queue) List(ctx context.Context, status string) ([]*models.Job, error) {
	if status != "" {
		switch status {
		case models.JobStatusPending, models.JobStatusProcessing, models.JobStatusCompleted, models.JobStatusFailed:
		default:
			return nil, fmt.Errorf("%w: unknown status %q", domain.ErrValidation, status)
		}
	}
	return q.jobRepo.List(ctx, status)
}

// Start runs the claim loop until ctx is cancelled. Claimed jobs execute
// on their own goroutines, bounded by the worker semaphore.
func (q *Queue) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(claimInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				q.claimAndRun(ctx)
			}
		}
	}()
}

// claimAndRun drains pending jobs while workers are free
func (q *Queue) claimAndRun(ctx context.Context) {
	for {
		if !q.sem.TryAcquire(1) {
			return
		}

		job, err := q.jobRepo.ClaimPending(ctx)
		if err != nil {
			q.sem.Release(1)
			q.logger.Warn("job claim failed", "error", err)
			return
		}
		if job == nil {
			q.sem.Release(1)
			return
		}

		go func() {
			defer q.sem.Release(1)
			q.run(ctx, job)
		}()
	}
}

// run executes one claimed job, converting panics into failures
func (q *Queue) run(ctx context.Context, job *models.Job) {
	handler, ok := q.registry.Get(job.Type)
	if !ok {
		q.logger.Warn("no handler for job type", "id", job.ID, "type", job.Type)
		q.fail(job, fmt.Sprintf("no handler registered for job type %q", job.Type))
		return
	}

	// Jobs targeting a document run one at a time per document id so
	// concurrent version or summary writes cannot interleave.
	if docID, ok := job.Payload["document_id"].(string); ok && docID != "" {
		unlock := q.docLocks.lock(docID)
		defer unlock()
	}

	report := func(progress int) {
		if err := q.jobRepo.UpdateProgress(ctx, job.ID, progress); err != nil {
			q.logger.Warn("job progress update failed", "id", job.ID, "error", err)
		}
	}

	q.logger.Info("job started", "id", job.ID, "type", job.Type)
	start := time.Now()

	var result map[string]interface{}
	var err error
	func() {
		defer func() {
			if r := recover(); r != nil {
				q.logger.Error("job handler panic", "id", job.ID, "type", job.Type, "panic", r)
				err = fmt.Errorf("handler panic: %v", r)
			}
		}()
		result, err = handler(ctx, job, report)
	}()

	if err != nil {
		q.fail(job, err.Error())
		return
	}

	if err := q.jobRepo.Complete(ctx, job.ID, result); err != nil {
		q.logger.Error("job completion failed", "id", job.ID, "error", err)
		return
	}
	q.logger.Info("job completed", "id", job.ID, "type", job.Type, "duration", time.Since(start))
}

func (q *Queue) fail(job *models.Job, message string) {
	// A fresh context keeps failure records even during shutdown
	if err := q.jobRepo.Fail(context.Background(), job.ID, message); err != nil {
		q.logger.Error("job failure record failed", "id", job.ID, "error", err)
		return
	}
	q.logger.Warn("job failed", "id", job.ID, "type", job.Type, "error", message)
}

var _ services.JobService = (*Queue)(nil)
