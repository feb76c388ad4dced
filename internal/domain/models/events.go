package models

// Chat stream event types, emitted in order: one message_id, zero or more
// token, zero or more progress, then exactly one of done or error.
// A cancelled stream simply stops emitting - no error event is sent.
const (
	EventTypeMessageID = "message_id"
	EventTypeToken     = "token"
	EventTypeProgress  = "progress"
	EventTypeDone      = "done"
	EventTypeError     = "error"
)

// ChatEvent is a single event on a chat response stream.
// Token events carry only the delta, never the accumulated text, to avoid
// quadratic payloads on long responses.
type ChatEvent struct {
	Type      string `json:"type"`
	MessageID string `json:"messageId,omitempty"`
	Content   string `json:"content,omitempty"`
	Message   string `json:"message,omitempty"` // error detail

	// Progress counters reported by the inference backend. Informational
	// only; they never block completion.
	PromptTokens    int   `json:"promptTokens,omitempty"`
	ResponseTokens  int   `json:"responseTokens,omitempty"`
	EvalDurationMs  int64 `json:"evalDurationMs,omitempty"`
	TotalDurationMs int64 `json:"totalDurationMs,omitempty"`
}

// NewMessageIDEvent announces the placeholder assistant message id so the
// client can address the message before any tokens arrive.
func NewMessageIDEvent(messageID string) *ChatEvent {
	return &ChatEvent{Type: EventTypeMessageID, MessageID: messageID}
}

// NewTokenEvent carries one incremental text delta.
func NewTokenEvent(delta string) *ChatEvent {
	return &ChatEvent{Type: EventTypeToken, Content: delta}
}

// NewDoneEvent signals successful completion.
func NewDoneEvent() *ChatEvent {
	return &ChatEvent{Type: EventTypeDone}
}

// NewErrorEvent signals stream termination due to an upstream failure.
func NewErrorEvent(message string) *ChatEvent {
	return &ChatEvent{Type: EventTypeError, Message: message}
}
