package jobs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"docuchat/internal/domain"
	"docuchat/internal/domain/models"
	"docuchat/internal/repository/memory"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newQueueFixture(t *testing.T) (*Queue, *Registry, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	registry := NewRegistry()
	queue := NewQueue(store.Jobs(), registry, 2, testLogger())
	return queue, registry, store
}

// waitTerminal polls until the job reaches a terminal status
func waitTerminal(t *testing.T, queue *Queue, id string) *models.Job {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		job, err := queue.Get(context.Background(), id)
		if err != nil {
			t.Fatalf("get job: %v", err)
		}
		if job.IsTerminal() {
			return job
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("job %s never reached a terminal status", id)
	return nil
}

func TestSubmitUnknownType(t *testing.T) {
	queue, _, _ := newQueueFixture(t)

	if _, err := queue.Submit(context.Background(), "no_such_type", nil); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("expected ErrValidation, got %v", err)
	}
}

func TestJobLifecycle(t *testing.T) {
	queue, registry, _ := newQueueFixture(t)
	registry.Register("echo", func(ctx context.Context, job *models.Job, report ProgressFunc) (map[string]interface{}, error) {
		report(50)
		return map[string]interface{}{"echo": job.Payload["value"]}, nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	queue.Start(ctx)

	job, err := queue.Submit(ctx, "echo", map[string]interface{}{"value": "hello"})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if job.Status != models.JobStatusPending {
		t.Errorf("initial status = %s", job.Status)
	}

	done := waitTerminal(t, queue, job.ID)
	if done.Status != models.JobStatusCompleted {
		t.Fatalf("status = %s, want completed", done.Status)
	}
	if done.Progress != 100 {
		t.Errorf("progress = %d, want 100", done.Progress)
	}
	if done.CompletedAt == nil {
		t.Error("completed_at not set")
	}
	if done.Result["echo"] != "hello" {
		t.Errorf("result = %+v", done.Result)
	}
}

func TestFailedJobDoesNotAffectOthers(t *testing.T) {
	queue, registry, _ := newQueueFixture(t)
	registry.Register("flaky", func(ctx context.Context, job *models.Job, report ProgressFunc) (map[string]interface{}, error) {
		if job.Payload["fail"] == true {
			return nil, fmt.Errorf("deliberate failure")
		}
		return map[string]interface{}{"ok": true}, nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	queue.Start(ctx)

	var ids []string
	for i := 0; i < 3; i++ {
		job, err := queue.Submit(ctx, "flaky", map[string]interface{}{"fail": i == 1})
		if err != nil {
			t.Fatalf("submit %d: %v", i, err)
		}
		ids = append(ids, job.ID)
	}

	statuses := make(map[string]string)
	for _, id := range ids {
		done := waitTerminal(t, queue, id)
		statuses[id] = done.Status
		if done.CompletedAt == nil {
			t.Errorf("job %s has no completed_at", id)
		}
	}

	if statuses[ids[0]] != models.JobStatusCompleted || statuses[ids[2]] != models.JobStatusCompleted {
		t.Errorf("healthy jobs did not complete: %+v", statuses)
	}
	if statuses[ids[1]] != models.JobStatusFailed {
		t.Errorf("failing job status = %s", statuses[ids[1]])
	}

	failed, err := queue.Get(ctx, ids[1])
	if err != nil {
		t.Fatalf("get failed job: %v", err)
	}
	if failed.Error == nil || *failed.Error != "deliberate failure" {
		t.Errorf("error = %v", failed.Error)
	}
}

func TestHandlerPanicFailsJob(t *testing.T) {
	queue, registry, _ := newQueueFixture(t)
	registry.Register("explode", func(ctx context.Context, job *models.Job, report ProgressFunc) (map[string]interface{}, error) {
		panic("boom")
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	queue.Start(ctx)

	job, err := queue.Submit(ctx, "explode", nil)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	done := waitTerminal(t, queue, job.ID)
	if done.Status != models.JobStatusFailed {
		t.Fatalf("status = %s, want failed", done.Status)
	}
	if done.Error == nil {
		t.Fatal("no error recorded")
	}
}

func TestJobsForSameDocumentDoNotOverlap(t *testing.T) {
	queue, registry, _ := newQueueFixture(t)

	var active, maxActive int32
	registry.Register("touch_document", func(ctx context.Context, job *models.Job, report ProgressFunc) (map[string]interface{}, error) {
		n := atomic.AddInt32(&active, 1)
		for {
			cur := atomic.LoadInt32(&maxActive)
			if n <= cur || atomic.CompareAndSwapInt32(&maxActive, cur, n) {
				break
			}
		}
		time.Sleep(50 * time.Millisecond)
		atomic.AddInt32(&active, -1)
		return nil, nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	queue.Start(ctx)

	// Two workers, two jobs for the same document: the document lock must
	// keep the handlers from running at the same time.
	var ids []string
	for i := 0; i < 2; i++ {
		job, err := queue.Submit(ctx, "touch_document", map[string]interface{}{"document_id": "doc-1"})
		if err != nil {
			t.Fatalf("submit %d: %v", i, err)
		}
		ids = append(ids, job.ID)
	}

	for _, id := range ids {
		done := waitTerminal(t, queue, id)
		if done.Status != models.JobStatusCompleted {
			t.Fatalf("job %s status = %s", id, done.Status)
		}
	}

	if got := atomic.LoadInt32(&maxActive); got != 1 {
		t.Errorf("max concurrent handlers for one document = %d, want 1", got)
	}
}

func TestListFiltersByStatus(t *testing.T) {
	queue, registry, store := newQueueFixture(t)
	registry.Register("noop", func(ctx context.Context, job *models.Job, report ProgressFunc) (map[string]interface{}, error) {
		return nil, nil
	})

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if _, err := queue.Submit(ctx, "noop", nil); err != nil {
			t.Fatalf("submit: %v", err)
		}
	}

	// Complete one directly through the repository
	claimed, err := store.Jobs().ClaimPending(ctx)
	if err != nil || claimed == nil {
		t.Fatalf("claim: %v %v", claimed, err)
	}
	if err := store.Jobs().Complete(ctx, claimed.ID, nil); err != nil {
		t.Fatalf("complete: %v", err)
	}

	pending, err := queue.List(ctx, models.JobStatusPending)
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	if len(pending) != 1 {
		t.Errorf("pending = %d, want 1", len(pending))
	}

	completed, err := queue.List(ctx, models.JobStatusCompleted)
	if err != nil {
		t.Fatalf("list completed: %v", err)
	}
	if len(completed) != 1 {
		t.Errorf("completed = %d, want 1", len(completed))
	}

	all, err := queue.List(ctx, "")
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("all = %d, want 2", len(all))
	}

	if _, err := queue.List(ctx, "bogus"); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("expected ErrValidation for bogus status, got %v", err)
	}
}
