package models

import (
	"time"
)

// Conversation associates a message log with either a single document
// (DocumentID) or a set of documents (DocumentIDs, multi-document mode).
// Exactly one of the two is populated.
type Conversation struct {
	ID          string    `json:"id" db:"id"`
	DocumentID  *string   `json:"document_id,omitempty" db:"document_id"`
	DocumentIDs []string  `json:"document_ids,omitempty" db:"document_ids"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// IsMulti reports whether the conversation is in multi-document mode.
func (c *Conversation) IsMulti() bool {
	return len(c.DocumentIDs) > 0
}

// AllDocumentIDs returns the document ids this conversation references,
// regardless of mode.
func (c *Conversation) AllDocumentIDs() []string {
	if c.IsMulti() {
		return c.DocumentIDs
	}
	if c.DocumentID != nil {
		return []string{*c.DocumentID}
	}
	return nil
}
