package jobs

import (
	"context"
	"strings"
	"testing"

	"docuchat/internal/domain/models"
	"docuchat/internal/domain/services"
	"docuchat/internal/repository/memory"
	"docuchat/internal/service"
	"docuchat/internal/service/chunker"
)

// stubGenerator returns a fixed completion
type stubGenerator struct {
	response string
	prompts  []string
}

func (g *stubGenerator) StreamResponse(ctx context.Context, req *services.GenerateRequest) (<-chan services.GeneratorEvent, error) {
	ch := make(chan services.GeneratorEvent, 2)
	ch <- services.GeneratorEvent{Delta: g.response}
	ch <- services.GeneratorEvent{Done: true}
	close(ch)
	return ch, nil
}

func (g *stubGenerator) GenerateResponse(ctx context.Context, req *services.GenerateRequest) (string, error) {
	g.prompts = append(g.prompts, req.Prompt)
	return g.response, nil
}

func (g *stubGenerator) ListModels(ctx context.Context) ([]services.ModelInfo, error) {
	return nil, nil
}

func noProgress(int) {}

func newHandlerFixture(t *testing.T) (*memory.Store, services.DocumentService, *Queue) {
	t.Helper()
	store := memory.NewStore()
	registry := NewRegistry()
	queue := NewQueue(store.Jobs(), registry, 1, testLogger())
	docService := service.NewDocumentService(store.Documents(), store.TxManager(), chunker.New(50), queue, testLogger())
	return store, docService, queue
}

func TestIngestHandler(t *testing.T) {
	store, docService, _ := newHandlerFixture(t)
	handler := IngestHandler(docService, testLogger())

	job := &models.Job{
		ID:   "job-1",
		Type: models.JobTypeBulkIngest,
		Payload: map[string]interface{}{
			"name":     "one.txt",
			"type":     "text/plain",
			"content":  "The first document in the batch, with plenty of text.",
			"tags":     []interface{}{"batch"},
			"category": "reports",
		},
	}

	result, err := handler(context.Background(), job, noProgress)
	if err != nil {
		t.Fatalf("handler: %v", err)
	}

	doc, err := store.Documents().Get(context.Background(), result["document_id"].(string))
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if doc.Name != "one.txt" {
		t.Errorf("name = %s", doc.Name)
	}
	if len(doc.Tags) != 1 || doc.Tags[0] != "batch" {
		t.Errorf("tags = %v", doc.Tags)
	}
	if doc.Category == nil || *doc.Category != "reports" {
		t.Errorf("category = %v", doc.Category)
	}
}

func TestIngestHandlerInvalidDocument(t *testing.T) {
	_, docService, _ := newHandlerFixture(t)
	handler := IngestHandler(docService, testLogger())

	// Missing name fails validation
	job := &models.Job{
		ID:   "job-2",
		Type: models.JobTypeBulkIngest,
		Payload: map[string]interface{}{
			"type":    "text/plain",
			"content": "A document missing its name.",
		},
	}

	if _, err := handler(context.Background(), job, noProgress); err == nil {
		t.Fatal("expected error for an invalid document")
	}
}

func TestIngestJobsAreIndependent(t *testing.T) {
	store := memory.NewStore()
	registry := NewRegistry()
	queue := NewQueue(store.Jobs(), registry, 2, testLogger())
	docService := service.NewDocumentService(store.Documents(), store.TxManager(), chunker.New(50), queue, testLogger())
	registry.Register(models.JobTypeBulkIngest, IngestHandler(docService, testLogger()))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	queue.Start(ctx)

	payloads := []map[string]interface{}{
		{"name": "a.txt", "type": "text/plain", "content": "First document of the batch."},
		{"type": "text/plain", "content": "Second document, missing its name."},
		{"name": "c.txt", "type": "text/plain", "content": "Third document of the batch."},
	}
	ids := make([]string, len(payloads))
	for i, payload := range payloads {
		job, err := queue.Submit(ctx, models.JobTypeBulkIngest, payload)
		if err != nil {
			t.Fatalf("submit %d: %v", i, err)
		}
		ids[i] = job.ID
	}

	statuses := make([]string, len(ids))
	for i, id := range ids {
		statuses[i] = waitTerminal(t, queue, id).Status
	}
	if statuses[0] != models.JobStatusCompleted || statuses[2] != models.JobStatusCompleted {
		t.Errorf("healthy jobs = %v, want completed", statuses)
	}
	if statuses[1] != models.JobStatusFailed {
		t.Errorf("invalid document job status = %s, want failed", statuses[1])
	}

	docs, err := store.Documents().List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(docs) != 2 {
		t.Errorf("documents stored = %d, want 2", len(docs))
	}
}

func TestConcurrentVersionJobsExtendLineage(t *testing.T) {
	store := memory.NewStore()
	registry := NewRegistry()
	queue := NewQueue(store.Jobs(), registry, 2, testLogger())
	docService := service.NewDocumentService(store.Documents(), store.TxManager(), chunker.New(50), queue, testLogger())
	registry.Register(models.JobTypeDocumentVersion, VersionHandler(docService))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	parent, err := docService.Upload(ctx, &services.UploadDocumentRequest{
		Name:    "handbook.txt",
		Type:    "text/plain",
		Content: "Version one of the employee handbook.",
	})
	if err != nil {
		t.Fatalf("upload: %v", err)
	}

	queue.Start(ctx)

	var ids []string
	for _, content := range []string{
		"A revised employee handbook.",
		"Another revision of the employee handbook.",
	} {
		job, err := queue.Submit(ctx, models.JobTypeDocumentVersion, map[string]interface{}{
			"document_id": parent.ID,
			"content":     content,
		})
		if err != nil {
			t.Fatalf("submit: %v", err)
		}
		ids = append(ids, job.ID)
	}

	versions := map[int]int{}
	for _, id := range ids {
		done := waitTerminal(t, queue, id)
		if done.Status != models.JobStatusCompleted {
			t.Fatalf("job %s status = %s: %v", id, done.Status, done.Error)
		}
		versions[done.Result["version"].(int)]++
	}
	if versions[2] != 1 || versions[3] != 1 {
		t.Fatalf("versions = %v, want exactly one version 2 and one version 3", versions)
	}
}

func TestSummaryHandler(t *testing.T) {
	store, docService, _ := newHandlerFixture(t)
	ctx := context.Background()

	doc, err := docService.Upload(ctx, &services.UploadDocumentRequest{
		Name:    "whitepaper.txt",
		Type:    "text/plain",
		Content: "A long whitepaper describing the system architecture in detail.",
	})
	if err != nil {
		t.Fatalf("upload: %v", err)
	}

	gen := &stubGenerator{response: "```json\n" +
		`{"summary": "A whitepaper about the system.", "briefSummary": "System whitepaper.", "keyPoints": ["architecture", "design"]}` +
		"\n```"}
	handler := SummaryHandler(store.Documents(), gen, testLogger())

	job := &models.Job{
		ID:   "job-3",
		Type: models.JobTypeDocumentSummary,
		Payload: map[string]interface{}{
			"document_id": doc.ID,
			"model":       "llama3",
		},
	}

	result, err := handler(ctx, job, noProgress)
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	if result["key_points"] != 2 {
		t.Errorf("key_points = %v", result["key_points"])
	}
	if len(gen.prompts) != 1 || !strings.Contains(gen.prompts[0], doc.Content) {
		t.Error("document content not included in the summary prompt")
	}

	reloaded, err := store.Documents().Get(ctx, doc.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if reloaded.Summary == nil || *reloaded.Summary != "A whitepaper about the system." {
		t.Errorf("summary = %v", reloaded.Summary)
	}
	if reloaded.BriefSummary == nil || *reloaded.BriefSummary != "System whitepaper." {
		t.Errorf("brief summary = %v", reloaded.BriefSummary)
	}
	if len(reloaded.KeyPoints) != 2 {
		t.Errorf("key points = %v", reloaded.KeyPoints)
	}
}

func TestSummaryHandlerNonJSONResponse(t *testing.T) {
	store, docService, _ := newHandlerFixture(t)
	ctx := context.Background()

	doc, _ := docService.Upload(ctx, &services.UploadDocumentRequest{
		Name:    "memo.txt",
		Type:    "text/plain",
		Content: "An internal memo about the upcoming release schedule.",
	})

	gen := &stubGenerator{response: "This memo covers the release schedule."}
	handler := SummaryHandler(store.Documents(), gen, testLogger())

	job := &models.Job{
		ID:      "job-4",
		Type:    models.JobTypeDocumentSummary,
		Payload: map[string]interface{}{"document_id": doc.ID, "model": "llama3"},
	}
	if _, err := handler(ctx, job, noProgress); err != nil {
		t.Fatalf("handler: %v", err)
	}

	reloaded, _ := store.Documents().Get(ctx, doc.ID)
	if reloaded.Summary == nil || *reloaded.Summary != "This memo covers the release schedule." {
		t.Errorf("raw text not kept as summary: %v", reloaded.Summary)
	}
}

func TestVersionHandler(t *testing.T) {
	store, docService, _ := newHandlerFixture(t)
	ctx := context.Background()

	parent, _ := docService.Upload(ctx, &services.UploadDocumentRequest{
		Name:    "policy.txt",
		Type:    "text/plain",
		Content: "Version one of the company travel policy document.",
	})

	handler := VersionHandler(docService)
	job := &models.Job{
		ID:   "job-5",
		Type: models.JobTypeDocumentVersion,
		Payload: map[string]interface{}{
			"document_id": parent.ID,
			"content":     "Version two of the company travel policy document.",
		},
	}

	result, err := handler(ctx, job, noProgress)
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	if result["version"] != 2 {
		t.Errorf("version = %v", result["version"])
	}

	child, err := store.Documents().Get(ctx, result["document_id"].(string))
	if err != nil {
		t.Fatalf("get child: %v", err)
	}
	if child.ParentVersionID == nil || *child.ParentVersionID != parent.ID {
		t.Errorf("parent link = %v", child.ParentVersionID)
	}
}
