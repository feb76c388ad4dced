package models

import (
	"time"
)

// Document represents an uploaded document with its extracted text content.
// Content is immutable once chunked - versioning creates a new Document row
// linked via ParentVersionID rather than mutating content in place.
type Document struct {
	ID              string     `json:"id" db:"id"`
	Name            string     `json:"name" db:"name"`
	Type            string     `json:"type" db:"type"` // MIME type or extension tag
	Size            int        `json:"size" db:"size"`
	Content         string     `json:"content" db:"content"`
	Summary         *string    `json:"summary,omitempty" db:"summary"`
	BriefSummary    *string    `json:"brief_summary,omitempty" db:"brief_summary"`
	KeyPoints       []string   `json:"key_points,omitempty" db:"key_points"`
	Tags            []string   `json:"tags" db:"tags"`
	Category        *string    `json:"category,omitempty" db:"category"`
	Version         int        `json:"version" db:"version"`
	ParentVersionID *string    `json:"parent_version_id,omitempty" db:"parent_version_id"`
	CollectionID    *string    `json:"collection_id,omitempty" db:"collection_id"`
	UploadedAt      time.Time  `json:"uploaded_at" db:"uploaded_at"`
	UpdatedAt       time.Time  `json:"updated_at" db:"updated_at"`
}

// DocumentChunk is a bounded, indexed slice of a document's text.
// Indices are contiguous 0..N-1 per document; concatenating chunks in index
// order reconstructs the source text up to whitespace normalization.
type DocumentChunk struct {
	ID         string         `json:"id" db:"id"`
	DocumentID string         `json:"document_id" db:"document_id"`
	ChunkIndex int            `json:"chunk_index" db:"chunk_index"`
	Content    string         `json:"content" db:"content"`
	Metadata   *ChunkMetadata `json:"metadata,omitempty" db:"metadata"`
	CreatedAt  time.Time      `json:"created_at" db:"created_at"`
}

// ChunkMetadata records the word offset range a chunk covers in the source
// document. WordEnd is exclusive.
type ChunkMetadata struct {
	WordStart int `json:"word_start"`
	WordEnd   int `json:"word_end"`
}
