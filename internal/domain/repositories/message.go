package repositories

import (
	"context"

	"docuchat/internal/domain/models"
)

// MessageRepository handles the append-only message log.
// Writes are serialized per message id by the storage engine; no
// cross-conversation locking is required because conversations never share
// messages.
type MessageRepository interface {
	// Create appends a message to its conversation (ID assigned if empty)
	Create(ctx context.Context, msg *models.Message) error

	// Get retrieves a message by ID (domain.ErrNotFound if unknown)
	Get(ctx context.Context, id string) (*models.Message, error)

	// List retrieves a conversation's messages ordered by creation time
	List(ctx context.Context, conversationID string) ([]models.Message, error)

	// Update persists mutable message fields (content, rating, edited,
	// original content) and bumps updated_at
	Update(ctx context.Context, msg *models.Message) error

	// Delete removes a single message
	Delete(ctx context.Context, id string) error

	// DeleteAfter removes every message in the conversation created
	// strictly after the given message. This is the only bulk removal the
	// state machine performs (edit truncation and regeneration).
	DeleteAfter(ctx context.Context, conversationID, messageID string) error
}
