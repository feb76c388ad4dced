// Package scope implements the heuristic post-generation pass that flags
// likely ungrounded answers. Best-effort string matching, not a guarantee.
package scope

import (
	"embed"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"docuchat/internal/domain/models"
	"docuchat/internal/domain/services"
)

//go:embed config/markers.yaml
var configFiles embed.FS

// Disclaimer is appended to responses that are neither grounded nor a
// refusal. Fixed wording so clients and tests can detect it.
const Disclaimer = "\n\nNote: this answer could not be verified against the supplied document content and may include outside information."

const (
	// minGroundedLength - responses at or below this length never count as
	// grounded on markers alone
	minGroundedLength = 50
	// minDisclaimerLength - responses at or below this length are too
	// short to bother disclaiming
	minDisclaimerLength = 20
	// minNameFragment - document name fragments shorter than this are too
	// generic to count as a grounding marker
	minNameFragment = 4
)

// quotedRe matches a quoted substring of at least two characters, straight
// or curly quotes. A response quoting its source counts as grounded.
var quotedRe = regexp.MustCompile(`["\x{201C}][^"\x{201D}]{2,}["\x{201D}]`)

type markerConfig struct {
	GroundingPhrases []string `yaml:"grounding_phrases"`
	RefusalPhrases   []string `yaml:"refusal_phrases"`
}

// Validator is the default heuristic ScopeClassifier.
type Validator struct {
	markers markerConfig
	logger  *slog.Logger
}

var _ services.ScopeClassifier = (*Validator)(nil)

// NewValidator creates a validator with the embedded marker configuration.
func NewValidator(logger *slog.Logger) (*Validator, error) {
	data, err := configFiles.ReadFile("config/markers.yaml")
	if err != nil {
		return nil, fmt.Errorf("read marker config: %w", err)
	}

	var markers markerConfig
	if err := yaml.Unmarshal(data, &markers); err != nil {
		return nil, fmt.Errorf("unmarshal marker config: %w", err)
	}

	return &Validator{markers: markers, logger: logger}, nil
}

// Classify scores a response against its source documents.
// Refusals are detected first; grounding requires the response to be longer
// than minGroundedLength and to carry at least one marker: a grounding
// phrase, a quoted substring, or a source document's name fragment.
func (v *Validator) Classify(response string, docs []*models.Document) services.ScopeVerdict {
	lower := strings.ToLower(response)

	for _, phrase := range v.markers.RefusalPhrases {
		if strings.Contains(lower, phrase) {
			return services.ScopeRefusal
		}
	}

	if len(response) > minGroundedLength {
		for _, phrase := range v.markers.GroundingPhrases {
			if strings.Contains(lower, phrase) {
				return services.ScopeGrounded
			}
		}
		if quotedRe.MatchString(response) {
			return services.ScopeGrounded
		}
		for _, doc := range docs {
			if fragment := nameFragment(doc.Name); fragment != "" && strings.Contains(lower, fragment) {
				return services.ScopeGrounded
			}
		}
	}

	return services.ScopeUnverified
}

// Apply runs Classify and appends the disclaimer when the response is long
// enough and neither grounded nor a refusal. Returns the (possibly
// modified) text, the verdict, and whether the disclaimer was added.
// Unverified responses are reported on the logger as a side channel.
func (v *Validator) Apply(response string, docs []*models.Document) (string, services.ScopeVerdict, bool) {
	verdict := v.Classify(response, docs)
	if verdict != services.ScopeUnverified || len(response) <= minDisclaimerLength {
		return response, verdict, false
	}

	v.logger.Warn("response not grounded in document content",
		"verdict", string(verdict),
		"response_length", len(response),
		"documents", len(docs),
	)

	return response + Disclaimer, verdict, true
}

// nameFragment lowercases a document name and strips its extension.
// Returns "" for fragments too short to be meaningful.
func nameFragment(name string) string {
	fragment := strings.ToLower(name)
	if dot := strings.LastIndex(fragment, "."); dot > 0 {
		fragment = fragment[:dot]
	}
	if len(fragment) < minNameFragment {
		return ""
	}
	return fragment
}
