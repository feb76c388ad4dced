package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"docuchat/internal/domain/models"
	"docuchat/internal/domain/repositories"
	"docuchat/internal/domain/services"
)

// RegisterHandlers binds the built-in job handlers
func RegisterHandlers(
	registry *Registry,
	docService services.DocumentService,
	docRepo repositories.DocumentRepository,
	generator services.Generator,
	logger *slog.Logger,
) {
	registry.Register(models.JobTypeBulkIngest, IngestHandler(docService, logger))
	registry.Register(models.JobTypeDocumentSummary, SummaryHandler(docRepo, generator, logger))
	registry.Register(models.JobTypeDocumentVersion, VersionHandler(docService))
}

// IngestHandler uploads one pre-extracted document. Bulk uploads submit
// one of these jobs per document; a bad file fails its own job and leaves
// the rest of the batch untouched.
func IngestHandler(docService services.DocumentService, logger *slog.Logger) Handler {
	return func(ctx context.Context, job *models.Job, report ProgressFunc) (map[string]interface{}, error) {
		req := &services.UploadDocumentRequest{
			Name:         stringField(job.Payload, "name"),
			Type:         stringField(job.Payload, "type"),
			Content:      stringField(job.Payload, "content"),
			Tags:         stringSlice(job.Payload, "tags"),
			SummaryModel: stringField(job.Payload, "summary_model"),
		}
		if category := stringField(job.Payload, "category"); category != "" {
			req.Category = &category
		}
		report(10)

		doc, err := docService.Upload(ctx, req)
		if err != nil {
			logger.Warn("ingest job failed", "job_id", job.ID, "name", req.Name, "error", err)
			return nil, err
		}

		return map[string]interface{}{
			"document_id": doc.ID,
			"name":        doc.Name,
		}, nil
	}
}

// summaryResponse is the JSON shape the summary prompt asks the model for
type summaryResponse struct {
	Summary      string   `json:"summary"`
	BriefSummary string   `json:"briefSummary"`
	KeyPoints    []string `json:"keyPoints"`
}

// SummaryHandler generates document summary fields with a non-streaming
// completion and stores them on the document
func SummaryHandler(docRepo repositories.DocumentRepository, generator services.Generator, logger *slog.Logger) Handler {
	return func(ctx context.Context, job *models.Job, report ProgressFunc) (map[string]interface{}, error) {
		documentID := stringField(job.Payload, "document_id")
		model := stringField(job.Payload, "model")
		if documentID == "" || model == "" {
			return nil, fmt.Errorf("payload requires document_id and model")
		}

		doc, err := docRepo.Get(ctx, documentID)
		if err != nil {
			return nil, err
		}
		report(10)

		text, err := generator.GenerateResponse(ctx, &services.GenerateRequest{
			Model:  model,
			Prompt: summaryPrompt(doc),
		})
		if err != nil {
			return nil, fmt.Errorf("summary generation: %w", err)
		}
		report(80)

		var parsed summaryResponse
		if err := json.Unmarshal([]byte(stripCodeFence(text)), &parsed); err != nil {
			// Models occasionally ignore the JSON instruction. Keep the
			// raw text as the summary rather than losing the run.
			logger.Warn("summary response is not valid JSON, storing raw text", "document_id", documentID)
			parsed = summaryResponse{Summary: strings.TrimSpace(text)}
		}

		var brief *string
		if parsed.BriefSummary != "" {
			brief = &parsed.BriefSummary
		}
		if err := docRepo.UpdateSummary(ctx, documentID, &parsed.Summary, brief, parsed.KeyPoints); err != nil {
			return nil, err
		}

		return map[string]interface{}{
			"document_id": documentID,
			"key_points":  len(parsed.KeyPoints),
		}, nil
	}
}

// VersionHandler creates a new document version from payload content
func VersionHandler(docService services.DocumentService) Handler {
	return func(ctx context.Context, job *models.Job, report ProgressFunc) (map[string]interface{}, error) {
		parentID := stringField(job.Payload, "document_id")
		content := stringField(job.Payload, "content")
		if parentID == "" || content == "" {
			return nil, fmt.Errorf("payload requires document_id and content")
		}

		req := &services.UploadDocumentRequest{
			Name:         stringField(job.Payload, "name"),
			Type:         stringField(job.Payload, "type"),
			Content:      content,
			SummaryModel: stringField(job.Payload, "summary_model"),
		}

		doc, err := docService.CreateVersion(ctx, parentID, req)
		if err != nil {
			return nil, err
		}

		return map[string]interface{}{
			"document_id": doc.ID,
			"version":     doc.Version,
		}, nil
	}
}

func summaryPrompt(doc *models.Document) string {
	var b strings.Builder
	b.WriteString("Summarize the following document.\n\n")
	b.WriteString("Respond with only a JSON object of this exact shape:\n")
	b.WriteString(`{"summary": "3-5 sentence summary", "briefSummary": "one sentence", "keyPoints": ["point", "point", "point"]}`)
	b.WriteString("\n\n--- DOCUMENT START ---\n")
	b.WriteString(doc.Content)
	b.WriteString("\n--- DOCUMENT END ---\n")
	return b.String()
}

// stripCodeFence removes a surrounding markdown code fence, if any
func stripCodeFence(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}

func stringField(payload map[string]interface{}, key string) string {
	value, _ := payload[key].(string)
	return value
}

func stringSlice(payload map[string]interface{}, key string) []string {
	raw, ok := payload[key].([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
