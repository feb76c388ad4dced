package handler

import (
	"log/slog"
	"net/http"

	"docuchat/internal/domain/models"
	"docuchat/internal/domain/services"
	"docuchat/internal/httputil"
)

// DocumentHandler handles document HTTP requests
type DocumentHandler struct {
	documents services.DocumentService
	jobs      services.JobService
	logger    *slog.Logger
}

// NewDocumentHandler creates a new document handler
func NewDocumentHandler(documents services.DocumentService, jobs services.JobService, logger *slog.Logger) *DocumentHandler {
	return &DocumentHandler{
		documents: documents,
		jobs:      jobs,
		logger:    logger,
	}
}

// Upload creates a document from pre-extracted text
// POST /api/documents
func (h *DocumentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	var req services.UploadDocumentRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	doc, err := h.documents.Upload(r.Context(), &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, doc)
}

// List retrieves all documents, newest first
// GET /api/documents
func (h *DocumentHandler) List(w http.ResponseWriter, r *http.Request) {
	docs, err := h.documents.List(r.Context())
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, docs)
}

// Get retrieves one document
// GET /api/documents/{id}
func (h *DocumentHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := PathParam(w, r, "id", "document id")
	if !ok {
		return
	}

	doc, err := h.documents.Get(r.Context(), id)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, doc)
}

// Delete removes a document, its chunks and its conversations
// DELETE /api/documents/{id}
func (h *DocumentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := PathParam(w, r, "id", "document id")
	if !ok {
		return
	}

	if err := h.documents.Delete(r.Context(), id); err != nil {
		handleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// CreateVersion creates a new version of a document from new content
// POST /api/documents/{id}/versions
func (h *DocumentHandler) CreateVersion(w http.ResponseWriter, r *http.Request) {
	id, ok := PathParam(w, r, "id", "document id")
	if !ok {
		return
	}

	var req services.UploadDocumentRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	doc, err := h.documents.CreateVersion(r.Context(), id, &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, doc)
}

// BulkUploadRequest is a batch of documents for background ingestion
type BulkUploadRequest struct {
	Documents    []services.UploadDocumentRequest `json:"documents"`
	SummaryModel string                           `json:"summary_model,omitempty"`
}

// BulkUpload enqueues background ingestion for a batch of documents, one
// job per document so a bad file fails alone, and returns the tracking
// jobs immediately
// POST /api/documents/bulk-upload
func (h *DocumentHandler) BulkUpload(w http.ResponseWriter, r *http.Request) {
	var req BulkUploadRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Documents) == 0 {
		httputil.RespondError(w, http.StatusBadRequest, "documents are required")
		return
	}

	submitted := make([]*models.Job, 0, len(req.Documents))
	for _, d := range req.Documents {
		payload := map[string]interface{}{
			"name":    d.Name,
			"type":    d.Type,
			"content": d.Content,
		}
		if len(d.Tags) > 0 {
			payload["tags"] = toInterfaceSlice(d.Tags)
		}
		if d.Category != nil {
			payload["category"] = *d.Category
		}
		if req.SummaryModel != "" {
			payload["summary_model"] = req.SummaryModel
		}

		job, err := h.jobs.Submit(r.Context(), models.JobTypeBulkIngest, payload)
		if err != nil {
			handleError(w, err)
			return
		}
		submitted = append(submitted, job)
	}

	h.logger.Info("bulk upload accepted", "jobs", len(submitted))
	httputil.RespondJSON(w, http.StatusAccepted, submitted)
}

func toInterfaceSlice(values []string) []interface{} {
	out := make([]interface{}, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
