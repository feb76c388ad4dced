package services

import (
	"context"

	"docuchat/internal/domain/models"
)

// ConversationService is the conversation and message state machine.
// The message log is append-only: the only operations that remove history
// are edit truncation, regeneration and explicit deletion.
type ConversationService interface {
	// GetOrCreateConversation returns the conversation for a document,
	// creating it on first use. Idempotent per document.
	GetOrCreateConversation(ctx context.Context, documentID string) (*models.Conversation, error)

	// GetOrCreateMultiConversation returns the conversation for a document
	// set, creating it if no conversation with an equal set exists.
	GetOrCreateMultiConversation(ctx context.Context, documentIDs []string) (*models.Conversation, error)

	// GetConversation retrieves a conversation by id
	GetConversation(ctx context.Context, id string) (*models.Conversation, error)

	// ListMessages returns a conversation's messages in creation order
	ListMessages(ctx context.Context, conversationID string) ([]models.Message, error)

	// AppendMessage appends a message; it never mutates prior messages
	AppendMessage(ctx context.Context, conversationID, role, content string, modelUsed *string) (*models.Message, error)

	// EditMessage replaces a user message's content and truncates the
	// conversation to end at that message. The caller re-issues generation
	// from the returned state.
	EditMessage(ctx context.Context, messageID, newContent string) (*EditResult, error)

	// PrepareRegenerate removes an assistant message and everything after
	// it, returning the prior user message to regenerate from.
	PrepareRegenerate(ctx context.Context, messageID string) (*RegenerateResult, error)

	// RateMessage attaches a rating, or clears it when the same value is
	// submitted again. Purely additive, no cascading effects.
	RateMessage(ctx context.Context, messageID string, rating int) (*models.Message, error)

	// DeleteMessage removes a user message together with its immediately
	// following assistant reply (if present), or a standalone assistant
	// message alone.
	DeleteMessage(ctx context.Context, messageID string) error
}

// EditResult is the conversation state after an edit truncation.
// Message is the edited user message (now the last in the log); History is
// every message before it, in order.
type EditResult struct {
	Conversation *models.Conversation
	Message      *models.Message
	History      []models.Message
}

// RegenerateResult is the conversation state after removing an assistant
// message for regeneration. UserMessage is the message to generate from;
// History is every message before it.
type RegenerateResult struct {
	Conversation *models.Conversation
	UserMessage  *models.Message
	History      []models.Message
}
