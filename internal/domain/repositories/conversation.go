package repositories

import (
	"context"

	"docuchat/internal/domain/models"
)

// ConversationRepository handles conversation persistence.
type ConversationRepository interface {
	// Create persists a new conversation (ID assigned if empty)
	Create(ctx context.Context, conv *models.Conversation) error

	// Get retrieves a conversation by ID (domain.ErrNotFound if unknown)
	Get(ctx context.Context, id string) (*models.Conversation, error)

	// FindByDocument finds the single-document conversation for a document
	// (domain.ErrNotFound if none exists)
	FindByDocument(ctx context.Context, documentID string) (*models.Conversation, error)

	// FindByDocumentSet finds a multi-document conversation whose document
	// set equals the given ids (compared after sorting, so order does not
	// matter). domain.ErrNotFound if none exists.
	FindByDocumentSet(ctx context.Context, documentIDs []string) (*models.Conversation, error)
}
