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

type conversationRepo struct {
	store *Store
}

func (r *conversationRepo) Create(ctx context.Context, conv *models.Conversation) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if conv.ID == "" {
		conv.ID = uuid.New().String()
	}
	if conv.CreatedAt.IsZero() {
		conv.CreatedAt = time.Now()
	}

	r.store.conversations[conv.ID] = copyConversation(conv)
	r.store.messages[conv.ID] = nil
	return nil
}

func (r *conversationRepo) Get(ctx context.Context, id string) (*models.Conversation, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	conv, ok := r.store.conversations[id]
	if !ok {
		return nil, fmt.Errorf("conversation %s: %w", id, domain.ErrNotFound)
	}
	return copyConversation(conv), nil
}

func (r *conversationRepo) FindByDocument(ctx context.Context, documentID string) (*models.Conversation, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	for _, conv := range r.store.conversations {
		if conv.DocumentID != nil && *conv.DocumentID == documentID {
			return copyConversation(conv), nil
		}
	}
	return nil, fmt.Errorf("conversation for document %s: %w", documentID, domain.ErrNotFound)
}

func (r *conversationRepo) FindByDocumentSet(ctx context.Context, documentIDs []string) (*models.Conversation, error) {
	want := sortedIDs(documentIDs)

	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	for _, conv := range r.store.conversations {
		if len(conv.DocumentIDs) == 0 {
			continue
		}
		if equalIDs(sortedIDs(conv.DocumentIDs), want) {
			return copyConversation(conv), nil
		}
	}
	return nil, fmt.Errorf("conversation for document set: %w", domain.ErrNotFound)
}

func sortedIDs(ids []string) []string {
	cp := append([]string(nil), ids...)
	sort.Strings(cp)
	return cp
}

func equalIDs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
