package models

import (
	"time"
)

// Message roles
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single entry in a conversation's append-only log.
// Messages are totally ordered by creation time. An assistant message is
// created as an empty placeholder before streaming begins and receives its
// final content when the stream ends (partial content is kept on
// cancellation or upstream error, never silently discarded).
type Message struct {
	ID              string    `json:"id" db:"id"`
	ConversationID  string    `json:"conversation_id" db:"conversation_id"`
	Role            string    `json:"role" db:"role"`
	Content         string    `json:"content" db:"content"`
	Rating          *int      `json:"rating,omitempty" db:"rating"`
	Edited          bool      `json:"edited" db:"edited"`
	OriginalContent *string   `json:"original_content,omitempty" db:"original_content"`
	ModelUsed       *string   `json:"model_used,omitempty" db:"model_used"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time `json:"updated_at" db:"updated_at"`
}
