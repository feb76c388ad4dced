package services

import (
	"context"

	"docuchat/internal/domain/models"
)

// UploadDocumentRequest carries pre-extracted document text. File-format
// parsing happens upstream; this service only ever sees text.
type UploadDocumentRequest struct {
	Name         string   `json:"name"`
	Type         string   `json:"type"`
	Content      string   `json:"content"`
	Tags         []string `json:"tags,omitempty"`
	Category     *string  `json:"category,omitempty"`
	CollectionID *string  `json:"collection_id,omitempty"`

	// SummaryModel, when set, enqueues asynchronous summary generation
	// with that model after the upload. No default model exists.
	SummaryModel string `json:"summary_model,omitempty"`
}

// DocumentService manages the document lifecycle: upload with chunking,
// versioning, and cascade deletion.
type DocumentService interface {
	// Upload creates a document from extracted text and chunks it
	Upload(ctx context.Context, req *UploadDocumentRequest) (*models.Document, error)

	// Get retrieves a document by id
	Get(ctx context.Context, id string) (*models.Document, error)

	// List retrieves all documents, newest first
	List(ctx context.Context) ([]*models.Document, error)

	// Delete removes a document, its chunks and its conversations
	Delete(ctx context.Context, id string) error

	// CreateVersion creates a new version of a document from new content.
	// The parent document is never mutated; the new row carries
	// version = parent.version + 1 and links back via parent_version_id.
	CreateVersion(ctx context.Context, parentID string, req *UploadDocumentRequest) (*models.Document, error)
}
