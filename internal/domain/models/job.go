package models

import (
	"time"
)

// Job statuses. Transitions only move forward:
// pending -> processing -> completed | failed
const (
	JobStatusPending    = "pending"
	JobStatusProcessing = "processing"
	JobStatusCompleted  = "completed"
	JobStatusFailed     = "failed"
)

// Job types handled by the background queue
const (
	JobTypeBulkIngest      = "bulk_document_ingest"
	JobTypeDocumentSummary = "document_summary"
	JobTypeDocumentVersion = "document_version"
)

// Job is a unit of asynchronous background work tracked through a status
// lifecycle, independent of the synchronous chat request path.
type Job struct {
	ID          string                 `json:"id" db:"id"`
	Type        string                 `json:"type" db:"type"`
	Status      string                 `json:"status" db:"status"`
	Payload     map[string]interface{} `json:"data,omitempty" db:"data"`
	Result      map[string]interface{} `json:"result,omitempty" db:"result"`
	Error       *string                `json:"error,omitempty" db:"error"`
	Progress    int                    `json:"progress" db:"progress"` // 0-100
	CreatedAt   time.Time              `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at" db:"updated_at"`
	CompletedAt *time.Time             `json:"completed_at,omitempty" db:"completed_at"`
}

// IsTerminal reports whether the job has reached a terminal status.
// CompletedAt is set exactly on entering a terminal state.
func (j *Job) IsTerminal() bool {
	return j.Status == JobStatusCompleted || j.Status == JobStatusFailed
}
