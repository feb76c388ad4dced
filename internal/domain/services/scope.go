package services

import (
	"docuchat/internal/domain/models"
)

// ScopeVerdict is the outcome of the post-generation grounding check.
type ScopeVerdict string

const (
	// ScopeGrounded - the response textually demonstrates reliance on the
	// supplied document(s)
	ScopeGrounded ScopeVerdict = "grounded"
	// ScopeRefusal - the response declines to answer because the
	// information is not in the document(s)
	ScopeRefusal ScopeVerdict = "refusal"
	// ScopeUnverified - neither grounded nor a refusal; a disclaimer is
	// appended for responses long enough to matter
	ScopeUnverified ScopeVerdict = "unverified"
)

// ScopeClassifier scores a generated response against its source documents
// and decorates answers that cannot be verified. The default implementation
// is a string heuristic; the relay only sees this interface, so a
// model-based classifier can replace it without touching the relay.
// Best-effort, not a correctness proof.
type ScopeClassifier interface {
	// Classify returns the verdict for a response
	Classify(response string, docs []*models.Document) ScopeVerdict

	// Apply classifies the response and appends any disclaimer, returning
	// the final text, the verdict, and whether a disclaimer was added
	Apply(response string, docs []*models.Document) (string, ScopeVerdict, bool)
}
