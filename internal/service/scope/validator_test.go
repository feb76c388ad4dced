package scope

import (
	"io"
	"log/slog"
	"strings"
	"testing"

	"docuchat/internal/domain/models"
	"docuchat/internal/domain/services"
)

func newTestValidator(t *testing.T) *Validator {
	t.Helper()
	v, err := NewValidator(slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("NewValidator: %v", err)
	}
	return v
}

func TestClassify(t *testing.T) {
	docs := []*models.Document{
		{Name: "quarterly-report.pdf", Content: "Acme Corp reported $5M revenue in 2023."},
	}

	tests := []struct {
		name     string
		response string
		want     services.ScopeVerdict
	}{
		{
			name:     "grounded via the word document",
			response: "The document shows that Acme Corp reported five million dollars.",
			want:     services.ScopeGrounded,
		},
		{
			name:     "grounded via according to",
			response: "According to the supplied material, revenue reached $5M in 2023.",
			want:     services.ScopeGrounded,
		},
		{
			name:     "grounded via quoted substring",
			response: `Revenue was $5M: "Acme Corp reported $5M revenue in 2023." That is the full figure.`,
			want:     services.ScopeGrounded,
		},
		{
			name:     "grounded via document name fragment",
			response: "Per quarterly-report, the company earned $5M over the course of the fiscal year.",
			want:     services.ScopeGrounded,
		},
		{
			name:     "refusal via cannot answer",
			response: "I cannot answer this question because the information is not present in the document.",
			want:     services.ScopeRefusal,
		},
		{
			name:     "refusal via not found in",
			response: "That detail was not found in the provided material.",
			want:     services.ScopeRefusal,
		},
		{
			name:     "short response with marker is not grounded",
			response: "See the document.",
			want:     services.ScopeUnverified,
		},
		{
			name:     "long response with no markers is unverified",
			response: "Revenue figures for large companies typically fluctuate between fiscal years depending on market conditions.",
			want:     services.ScopeUnverified,
		},
	}

	v := newTestValidator(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := v.Classify(tt.response, docs); got != tt.want {
				t.Errorf("Classify() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestApplyDisclaimerRules(t *testing.T) {
	docs := []*models.Document{{Name: "report.pdf"}}

	tests := []struct {
		name           string
		response       string
		wantDisclaimer bool
	}{
		{
			name:           "unverified and long enough gets disclaimer",
			response:       "Revenue usually grows year over year in most industries.",
			wantDisclaimer: true,
		},
		{
			name:           "unverified but too short is left alone",
			response:       "Five million.",
			wantDisclaimer: false,
		},
		{
			name:           "grounded response is left alone",
			response:       "The document states that Acme Corp reported $5M revenue in 2023.",
			wantDisclaimer: false,
		},
		{
			name:           "refusal is left alone",
			response:       "I cannot answer this question because the information is not present in the document.",
			wantDisclaimer: false,
		},
	}

	v := newTestValidator(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _, added := v.Apply(tt.response, docs)
			if added != tt.wantDisclaimer {
				t.Fatalf("Apply() added=%v, want %v", added, tt.wantDisclaimer)
			}
			if added != strings.HasSuffix(got, Disclaimer) {
				t.Errorf("disclaimer suffix mismatch: added=%v text=%q", added, got)
			}
			if !added && got != tt.response {
				t.Errorf("Apply() modified text without adding disclaimer")
			}
		})
	}
}

func TestGroundedScenarioAcme(t *testing.T) {
	// A response quoting the supplied content must never be disclaimed.
	docs := []*models.Document{
		{Name: "acme.txt", Content: "Acme Corp reported $5M revenue in 2023."},
	}
	response := `The document states: "Acme Corp reported $5M revenue in 2023." So the revenue was $5M.`

	v := newTestValidator(t)
	got, verdict, added := v.Apply(response, docs)
	if verdict != services.ScopeGrounded {
		t.Errorf("verdict = %q, want grounded", verdict)
	}
	if added || got != response {
		t.Error("grounded response was modified")
	}
}
