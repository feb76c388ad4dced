package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"docuchat/internal/domain"
	"docuchat/internal/domain/models"
	"docuchat/internal/domain/services"
	"docuchat/internal/repository/memory"
	"docuchat/internal/service/chunker"
)

// recordingSubmitter captures job submissions
type recordingSubmitter struct {
	submissions []submission
	err         error
}

type submission struct {
	jobType string
	payload map[string]interface{}
}

func (r *recordingSubmitter) Submit(ctx context.Context, jobType string, payload map[string]interface{}) (*models.Job, error) {
	if r.err != nil {
		return nil, r.err
	}
	r.submissions = append(r.submissions, submission{jobType, payload})
	return &models.Job{ID: "job-1", Type: jobType, Status: models.JobStatusPending}, nil
}

func newDocumentFixture(t *testing.T) (services.DocumentService, *memory.Store, *recordingSubmitter) {
	t.Helper()
	store := memory.NewStore()
	submitter := &recordingSubmitter{}
	svc := NewDocumentService(store.Documents(), store.TxManager(), chunker.New(5), submitter, testLogger())
	return svc, store, submitter
}

func TestUploadChunksDocument(t *testing.T) {
	svc, store, submitter := newDocumentFixture(t)
	ctx := context.Background()

	words := make([]string, 12)
	for i := range words {
		words[i] = "word"
	}
	doc, err := svc.Upload(ctx, &services.UploadDocumentRequest{
		Name:    "manual.txt",
		Type:    "text/plain",
		Content: strings.Join(words, " "),
	})
	if err != nil {
		t.Fatalf("upload: %v", err)
	}

	if doc.Version != 1 {
		t.Errorf("version = %d, want 1", doc.Version)
	}
	if doc.Size != len(strings.Join(words, " ")) {
		t.Errorf("size = %d", doc.Size)
	}

	chunks, err := store.Documents().GetChunks(ctx, doc.ID)
	if err != nil {
		t.Fatalf("get chunks: %v", err)
	}
	// 12 words at window 5 -> 3 chunks
	if len(chunks) != 3 {
		t.Fatalf("chunks = %d, want 3", len(chunks))
	}
	for i, chunk := range chunks {
		if chunk.ChunkIndex != i {
			t.Errorf("chunk %d has index %d", i, chunk.ChunkIndex)
		}
	}

	if len(submitter.submissions) != 0 {
		t.Errorf("summary job submitted without a model: %+v", submitter.submissions)
	}
}

func TestUploadValidation(t *testing.T) {
	svc, _, _ := newDocumentFixture(t)
	ctx := context.Background()

	tests := []struct {
		name string
		req  services.UploadDocumentRequest
	}{
		{"missing name", services.UploadDocumentRequest{Type: "text/plain", Content: "some text"}},
		{"missing type", services.UploadDocumentRequest{Name: "a.txt", Content: "some text"}},
		{"missing content", services.UploadDocumentRequest{Name: "a.txt", Type: "text/plain"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Upload(ctx, &tt.req); !errors.Is(err, domain.ErrValidation) {
				t.Errorf("expected ErrValidation, got %v", err)
			}
		})
	}
}

func TestUploadEnqueuesSummaryJob(t *testing.T) {
	svc, _, submitter := newDocumentFixture(t)

	doc, err := svc.Upload(context.Background(), &services.UploadDocumentRequest{
		Name:         "report.txt",
		Type:         "text/plain",
		Content:      "A quarterly report with enough text to summarize properly.",
		SummaryModel: "llama3",
	})
	if err != nil {
		t.Fatalf("upload: %v", err)
	}

	if len(submitter.submissions) != 1 {
		t.Fatalf("submissions = %d, want 1", len(submitter.submissions))
	}
	sub := submitter.submissions[0]
	if sub.jobType != models.JobTypeDocumentSummary {
		t.Errorf("job type = %s", sub.jobType)
	}
	if sub.payload["document_id"] != doc.ID || sub.payload["model"] != "llama3" {
		t.Errorf("payload = %+v", sub.payload)
	}
}

func TestCreateVersion(t *testing.T) {
	svc, store, _ := newDocumentFixture(t)
	ctx := context.Background()

	parent, err := svc.Upload(ctx, &services.UploadDocumentRequest{
		Name:    "spec-sheet.txt",
		Type:    "text/plain",
		Content: "Original content for the first version of this document.",
		Tags:    []string{"engineering"},
	})
	if err != nil {
		t.Fatalf("upload: %v", err)
	}

	v2, err := svc.CreateVersion(ctx, parent.ID, &services.UploadDocumentRequest{
		Content: "Updated content for the second version of this document.",
	})
	if err != nil {
		t.Fatalf("create version: %v", err)
	}

	if v2.Version != 2 {
		t.Errorf("version = %d, want 2", v2.Version)
	}
	if v2.ParentVersionID == nil || *v2.ParentVersionID != parent.ID {
		t.Errorf("parent version id = %v", v2.ParentVersionID)
	}
	if v2.Name != parent.Name {
		t.Errorf("name = %q, want inherited %q", v2.Name, parent.Name)
	}
	if len(v2.Tags) != 1 || v2.Tags[0] != "engineering" {
		t.Errorf("tags = %v, want inherited", v2.Tags)
	}

	// Parent content untouched
	reloaded, err := store.Documents().Get(ctx, parent.ID)
	if err != nil {
		t.Fatalf("get parent: %v", err)
	}
	if reloaded.Content != parent.Content || reloaded.Version != 1 {
		t.Error("parent document mutated by versioning")
	}
}

func TestCreateVersionExtendsLineageTip(t *testing.T) {
	svc, _, _ := newDocumentFixture(t)
	ctx := context.Background()

	parent, err := svc.Upload(ctx, &services.UploadDocumentRequest{
		Name:    "roadmap.txt",
		Type:    "text/plain",
		Content: "The first version of the product roadmap.",
	})
	if err != nil {
		t.Fatalf("upload: %v", err)
	}

	v2, err := svc.CreateVersion(ctx, parent.ID, &services.UploadDocumentRequest{
		Content: "The second version of the product roadmap.",
	})
	if err != nil {
		t.Fatalf("version 2: %v", err)
	}

	// Versioning the original again must not fork: the new version extends
	// the latest one in the chain.
	v3, err := svc.CreateVersion(ctx, parent.ID, &services.UploadDocumentRequest{
		Content: "The third version of the product roadmap.",
	})
	if err != nil {
		t.Fatalf("version 3: %v", err)
	}

	if v3.Version != 3 {
		t.Errorf("version = %d, want 3", v3.Version)
	}
	if v3.ParentVersionID == nil || *v3.ParentVersionID != v2.ID {
		t.Errorf("parent version id = %v, want %s", v3.ParentVersionID, v2.ID)
	}
}

func TestDeleteCascades(t *testing.T) {
	svc, store, _ := newDocumentFixture(t)
	ctx := context.Background()

	doc, err := svc.Upload(ctx, &services.UploadDocumentRequest{
		Name:    "temp.txt",
		Type:    "text/plain",
		Content: "Content that will shortly be deleted along with its conversation.",
	})
	if err != nil {
		t.Fatalf("upload: %v", err)
	}

	conv := &models.Conversation{DocumentID: &doc.ID}
	if err := store.Conversations().Create(ctx, conv); err != nil {
		t.Fatalf("create conversation: %v", err)
	}

	if err := svc.Delete(ctx, doc.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if _, err := store.Documents().Get(ctx, doc.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("document still present: %v", err)
	}
	if _, err := store.Conversations().Get(ctx, conv.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("conversation still present: %v", err)
	}
	chunks, err := store.Documents().GetChunks(ctx, doc.ID)
	if err == nil && len(chunks) != 0 {
		t.Errorf("chunks still present: %d", len(chunks))
	}
}
