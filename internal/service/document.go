package service

import (
	"context"
	"fmt"
	"log/slog"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"docuchat/internal/domain"
	"docuchat/internal/domain/models"
	"docuchat/internal/domain/repositories"
	"docuchat/internal/domain/services"
	"docuchat/internal/service/chunker"
)

// documentService implements the DocumentService interface
type documentService struct {
	docRepo   repositories.DocumentRepository
	txManager repositories.TransactionManager
	chunker   *chunker.Chunker
	jobs      services.JobSubmitter
	logger    *slog.Logger
}

// NewDocumentService creates a new document service
func NewDocumentService(
	docRepo repositories.DocumentRepository,
	txManager repositories.TransactionManager,
	ch *chunker.Chunker,
	jobs services.JobSubmitter,
	logger *slog.Logger,
) services.DocumentService {
	return &documentService{
		docRepo:   docRepo,
		txManager: txManager,
		chunker:   ch,
		jobs:      jobs,
		logger:    logger,
	}
}

// Upload creates a document from extracted text and chunks it
func (s *documentService) Upload(ctx context.Context, req *services.UploadDocumentRequest) (*models.Document, error) {
	if err := s.validateUploadRequest(req); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	doc := &models.Document{
		Name:         req.Name,
		Type:         req.Type,
		Size:         len(req.Content),
		Content:      req.Content,
		Tags:         req.Tags,
		Category:     req.Category,
		CollectionID: req.CollectionID,
		Version:      1,
	}

	if err := s.persistWithChunks(ctx, doc); err != nil {
		return nil, err
	}

	s.logger.Info("document uploaded", "id", doc.ID, "name", doc.Name, "size", doc.Size)
	s.maybeEnqueueSummary(ctx, doc, req.SummaryModel)
	return doc, nil
}

// Get retrieves a document by id
func (s *documentService) Get(ctx context.Context, id string) (*models.Document, error) {
	return s.docRepo.Get(ctx, id)
}

// List retrieves all documents, newest first
func (s *documentService) List(ctx context.Context) ([]*models.Document, error) {
	return s.docRepo.List(ctx)
}

// Delete removes a document, its chunks and its conversations
func (s *documentService) Delete(ctx context.Context, id string) error {
	err := s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		return s.docRepo.Delete(txCtx, id)
	})
	if err != nil {
		return err
	}

	s.logger.Info("document deleted", "id", id)
	return nil
}

// CreateVersion creates a new version of a document from new content.
// The new version always extends the tip of the lineage, so versioning an
// older document never forks the chain or reuses a version number.
// Metadata not supplied in the request is inherited.
func (s *documentService) CreateVersion(ctx context.Context, parentID string, req *services.UploadDocumentRequest) (*models.Document, error) {
	if req.Content == "" {
		return nil, fmt.Errorf("%w: content is required", domain.ErrValidation)
	}

	parent, err := s.docRepo.Get(ctx, parentID)
	if err != nil {
		return nil, err
	}
	for {
		child, err := s.docRepo.FindChildVersion(ctx, parent.ID)
		if err != nil {
			return nil, err
		}
		if child == nil {
			break
		}
		parent = child
	}

	doc := &models.Document{
		Name:            parent.Name,
		Type:            parent.Type,
		Size:            len(req.Content),
		Content:         req.Content,
		Tags:            parent.Tags,
		Category:        parent.Category,
		CollectionID:    parent.CollectionID,
		Version:         parent.Version + 1,
		ParentVersionID: &parent.ID,
	}
	if req.Name != "" {
		doc.Name = req.Name
	}
	if req.Type != "" {
		doc.Type = req.Type
	}
	if req.Tags != nil {
		doc.Tags = req.Tags
	}
	if req.Category != nil {
		doc.Category = req.Category
	}

	if err := s.persistWithChunks(ctx, doc); err != nil {
		return nil, err
	}

	s.logger.Info("document version created", "id", doc.ID, "parent_id", parent.ID, "version", doc.Version)
	s.maybeEnqueueSummary(ctx, doc, req.SummaryModel)
	return doc, nil
}

// persistWithChunks creates the document row and its chunks atomically
func (s *documentService) persistWithChunks(ctx context.Context, doc *models.Document) error {
	return s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		if err := s.docRepo.Create(txCtx, doc); err != nil {
			return err
		}
		chunks := s.chunker.Split(doc.ID, doc.Content)
		return s.docRepo.ReplaceChunks(txCtx, doc.ID, chunks)
	})
}

// maybeEnqueueSummary submits asynchronous summary generation when a model
// was requested. A failed submission never fails the upload.
func (s *documentService) maybeEnqueueSummary(ctx context.Context, doc *models.Document, model string) {
	if model == "" {
		return
	}

	job, err := s.jobs.Submit(ctx, models.JobTypeDocumentSummary, map[string]interface{}{
		"document_id": doc.ID,
		"model":       model,
	})
	if err != nil {
		s.logger.Warn("summary job submission failed", "document_id", doc.ID, "error", err)
		return
	}
	s.logger.Info("summary job submitted", "document_id", doc.ID, "job_id", job.ID)
}

func (s *documentService) validateUploadRequest(req *services.UploadDocumentRequest) error {
	return validation.ValidateStruct(req,
		validation.Field(&req.Name, validation.Required, validation.Length(1, 512)),
		validation.Field(&req.Type, validation.Required),
		validation.Field(&req.Content, validation.Required),
	)
}
