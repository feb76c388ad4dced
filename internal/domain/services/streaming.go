package services

import (
	"context"

	"docuchat/internal/domain/models"
)

// EventSink receives chat stream events, typically an SSE writer. Send
// blocks until the event is written to the client; a Send error means the
// client is gone and the relay should stop emitting.
type EventSink interface {
	Send(event *models.ChatEvent) error
}

// ChatStreamRequest is one generation run against a conversation.
// History is the conversation log up to (not including) the question;
// Question is the user message content to answer. The caller has already
// persisted the user message - the relay only creates the assistant side.
type ChatStreamRequest struct {
	Conversation *models.Conversation
	Documents    []*models.Document
	History      []models.Message
	Question     string
	Model        string
}

// StreamingService is the generation relay: it persists the placeholder
// assistant message, streams tokens from the inference backend to the sink,
// validates scope on the accumulated response and persists the final text.
// Cancellation is cooperative via ctx; a cancelled stream emits no further
// events and keeps whatever partial text was accumulated.
type StreamingService interface {
	Stream(ctx context.Context, req *ChatStreamRequest, sink EventSink) error
}
