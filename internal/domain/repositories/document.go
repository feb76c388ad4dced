package repositories

import (
	"context"

	"docuchat/internal/domain/models"
)

// DocumentRepository handles document and chunk persistence.
type DocumentRepository interface {
	// Create persists a new document (ID assigned if empty)
	Create(ctx context.Context, doc *models.Document) error

	// Get retrieves a document by ID (domain.ErrNotFound if unknown)
	Get(ctx context.Context, id string) (*models.Document, error)

	// List retrieves all documents, newest first
	List(ctx context.Context) ([]*models.Document, error)

	// UpdateSummary sets the asynchronously-generated summary fields
	UpdateSummary(ctx context.Context, id string, summary, briefSummary *string, keyPoints []string) error

	// FindChildVersion retrieves the version created from the given
	// document, or (nil, nil) when none exists
	FindChildVersion(ctx context.Context, parentID string) (*models.Document, error)

	// Delete removes a document, cascading to its chunks and to every
	// conversation (and message log) referencing it
	Delete(ctx context.Context, id string) error

	// ReplaceChunks atomically replaces all chunks for a document.
	// Prior chunks are deleted first (idempotent replace, not append).
	ReplaceChunks(ctx context.Context, documentID string, chunks []models.DocumentChunk) error

	// GetChunks retrieves a document's chunks ordered by chunk index
	GetChunks(ctx context.Context, documentID string) ([]models.DocumentChunk, error)
}
