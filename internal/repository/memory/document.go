package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"docuchat/internal/domain"
	"docuchat/internal/domain/models"
)

type documentRepo struct {
	store *Store
}

func (r *documentRepo) Create(ctx context.Context, doc *models.Document) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if doc.ID == "" {
		doc.ID = uuid.New().String()
	}
	now := time.Now()
	if doc.UploadedAt.IsZero() {
		doc.UploadedAt = now
	}
	doc.UpdatedAt = now
	if doc.Version == 0 {
		doc.Version = 1
	}
	if doc.Tags == nil {
		doc.Tags = []string{}
	}

	r.store.documents[doc.ID] = copyDocument(doc)
	return nil
}

func (r *documentRepo) Get(ctx context.Context, id string) (*models.Document, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	doc, ok := r.store.documents[id]
	if !ok {
		return nil, fmt.Errorf("document %s: %w", id, domain.ErrNotFound)
	}
	return copyDocument(doc), nil
}

func (r *documentRepo) List(ctx context.Context) ([]*models.Document, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	docs := make([]*models.Document, 0, len(r.store.documents))
	for _, doc := range r.store.documents {
		docs = append(docs, copyDocument(doc))
	}
	// Newest first
	sort.Slice(docs, func(i, j int) bool {
		return docs[i].UploadedAt.After(docs[j].UploadedAt)
	})
	return docs, nil
}

func (r *documentRepo) UpdateSummary(ctx context.Context, id string, summary, briefSummary *string, keyPoints []string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	doc, ok := r.store.documents[id]
	if !ok {
		return fmt.Errorf("document %s: %w", id, domain.ErrNotFound)
	}
	doc.Summary = summary
	doc.BriefSummary = briefSummary
	doc.KeyPoints = append([]string(nil), keyPoints...)
	doc.UpdatedAt = time.Now()
	return nil
}

// FindChildVersion returns the version created from the given document,
// highest version first if the lineage ever forked, or nil when none.
func (r *documentRepo) FindChildVersion(ctx context.Context, parentID string) (*models.Document, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var child *models.Document
	for _, doc := range r.store.documents {
		if doc.ParentVersionID == nil || *doc.ParentVersionID != parentID {
			continue
		}
		if child == nil || doc.Version > child.Version {
			child = doc
		}
	}
	if child == nil {
		return nil, nil
	}
	return copyDocument(child), nil
}

// Delete cascades to the document's chunks and to every conversation (and
// message log) referencing it, matching the storage contract.
func (r *documentRepo) Delete(ctx context.Context, id string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, ok := r.store.documents[id]; !ok {
		return fmt.Errorf("document %s: %w", id, domain.ErrNotFound)
	}

	delete(r.store.documents, id)
	delete(r.store.chunks, id)

	for convID, conv := range r.store.conversations {
		if !conversationReferences(conv, id) {
			continue
		}
		for _, msg := range r.store.messages[convID] {
			delete(r.store.msgConv, msg.ID)
		}
		delete(r.store.messages, convID)
		delete(r.store.conversations, convID)
	}
	return nil
}

func (r *documentRepo) ReplaceChunks(ctx context.Context, documentID string, chunks []models.DocumentChunk) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, ok := r.store.documents[documentID]; !ok {
		return fmt.Errorf("document %s: %w", documentID, domain.ErrNotFound)
	}

	now := time.Now()
	stored := make([]models.DocumentChunk, len(chunks))
	for i, chunk := range chunks {
		if chunk.ID == "" {
			chunk.ID = uuid.New().String()
		}
		chunk.DocumentID = documentID
		chunk.CreatedAt = now
		stored[i] = chunk
	}
	r.store.chunks[documentID] = stored
	return nil
}

func (r *documentRepo) GetChunks(ctx context.Context, documentID string) ([]models.DocumentChunk, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	chunks := append([]models.DocumentChunk(nil), r.store.chunks[documentID]...)
	sort.Slice(chunks, func(i, j int) bool {
		return chunks[i].ChunkIndex < chunks[j].ChunkIndex
	})
	return chunks, nil
}

func conversationReferences(conv *models.Conversation, documentID string) bool {
	if conv.DocumentID != nil && *conv.DocumentID == documentID {
		return true
	}
	for _, id := range conv.DocumentIDs {
		if id == documentID {
			return true
		}
	}
	return false
}
