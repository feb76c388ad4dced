package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"docuchat/internal/domain"
	"docuchat/internal/domain/models"
)

type messageRepo struct {
	store *Store
}

func (r *messageRepo) Create(ctx context.Context, msg *models.Message) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, ok := r.store.conversations[msg.ConversationID]; !ok {
		return fmt.Errorf("conversation %s: %w", msg.ConversationID, domain.ErrNotFound)
	}

	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	now := time.Now()
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = now
	}
	msg.UpdatedAt = msg.CreatedAt

	r.store.messages[msg.ConversationID] = append(r.store.messages[msg.ConversationID], *msg)
	r.store.msgConv[msg.ID] = msg.ConversationID
	return nil
}

func (r *messageRepo) Get(ctx context.Context, id string) (*models.Message, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	msg, _, err := r.locate(id)
	if err != nil {
		return nil, err
	}
	cp := *msg
	return &cp, nil
}

func (r *messageRepo) List(ctx context.Context, conversationID string) ([]models.Message, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	if _, ok := r.store.conversations[conversationID]; !ok {
		return nil, fmt.Errorf("conversation %s: %w", conversationID, domain.ErrNotFound)
	}
	return append([]models.Message(nil), r.store.messages[conversationID]...), nil
}

func (r *messageRepo) Update(ctx context.Context, msg *models.Message) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	stored, idx, err := r.locate(msg.ID)
	if err != nil {
		return err
	}

	msg.CreatedAt = stored.CreatedAt
	msg.UpdatedAt = time.Now()
	r.store.messages[stored.ConversationID][idx] = *msg
	return nil
}

func (r *messageRepo) Delete(ctx context.Context, id string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	stored, idx, err := r.locate(id)
	if err != nil {
		return err
	}

	convID := stored.ConversationID
	log := r.store.messages[convID]
	r.store.messages[convID] = append(log[:idx], log[idx+1:]...)
	delete(r.store.msgConv, id)
	return nil
}

// DeleteAfter removes every message created after the given one within the
// conversation. Messages are stored in creation order, so this is a simple
// truncation.
func (r *messageRepo) DeleteAfter(ctx context.Context, conversationID, messageID string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	stored, idx, err := r.locate(messageID)
	if err != nil {
		return err
	}
	if stored.ConversationID != conversationID {
		return fmt.Errorf("message %s in conversation %s: %w", messageID, conversationID, domain.ErrNotFound)
	}

	log := r.store.messages[conversationID]
	for _, msg := range log[idx+1:] {
		delete(r.store.msgConv, msg.ID)
	}
	r.store.messages[conversationID] = log[:idx+1]
	return nil
}

// locate finds a message and its index within its conversation log.
// Caller must hold the store lock.
func (r *messageRepo) locate(id string) (*models.Message, int, error) {
	convID, ok := r.store.msgConv[id]
	if !ok {
		return nil, 0, fmt.Errorf("message %s: %w", id, domain.ErrNotFound)
	}
	log := r.store.messages[convID]
	for i := range log {
		if log[i].ID == id {
			return &log[i], i, nil
		}
	}
	return nil, 0, fmt.Errorf("message %s: %w", id, domain.ErrNotFound)
}
