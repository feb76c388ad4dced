package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"docuchat/internal/domain"
	"docuchat/internal/domain/models"
	"docuchat/internal/domain/repositories"
	"docuchat/internal/domain/services"
)

// conversationService implements the ConversationService interface
type conversationService struct {
	convRepo  repositories.ConversationRepository
	msgRepo   repositories.MessageRepository
	docRepo   repositories.DocumentRepository
	txManager repositories.TransactionManager
	logger    *slog.Logger
}

// NewConversationService creates a new conversation service
func NewConversationService(
	convRepo repositories.ConversationRepository,
	msgRepo repositories.MessageRepository,
	docRepo repositories.DocumentRepository,
	txManager repositories.TransactionManager,
	logger *slog.Logger,
) services.ConversationService {
	return &conversationService{
		convRepo:  convRepo,
		msgRepo:   msgRepo,
		docRepo:   docRepo,
		txManager: txManager,
		logger:    logger,
	}
}

// GetOrCreateConversation returns the conversation for a document, creating
// it on first use
func (s *conversationService) GetOrCreateConversation(ctx context.Context, documentID string) (*models.Conversation, error) {
	if documentID == "" {
		return nil, fmt.Errorf("%w: document id is required", domain.ErrValidation)
	}

	// The document must exist before a conversation can be attached to it
	if _, err := s.docRepo.Get(ctx, documentID); err != nil {
		return nil, err
	}

	conv, err := s.convRepo.FindByDocument(ctx, documentID)
	if err == nil {
		return conv, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	conv = &models.Conversation{DocumentID: &documentID}
	if err := s.convRepo.Create(ctx, conv); err != nil {
		return nil, err
	}

	s.logger.Info("conversation created", "id", conv.ID, "document_id", documentID)
	return conv, nil
}

// GetOrCreateMultiConversation returns the conversation for a document set,
// creating it if no conversation with an equal set exists. Set equality
// ignores order.
func (s *conversationService) GetOrCreateMultiConversation(ctx context.Context, documentIDs []string) (*models.Conversation, error) {
	if len(documentIDs) < 2 {
		return nil, fmt.Errorf("%w: at least two document ids are required", domain.ErrValidation)
	}

	seen := make(map[string]bool, len(documentIDs))
	for _, id := range documentIDs {
		if id == "" {
			return nil, fmt.Errorf("%w: document id is required", domain.ErrValidation)
		}
		if seen[id] {
			return nil, fmt.Errorf("%w: duplicate document id %s", domain.ErrValidation, id)
		}
		seen[id] = true
		if _, err := s.docRepo.Get(ctx, id); err != nil {
			return nil, err
		}
	}

	conv, err := s.convRepo.FindByDocumentSet(ctx, documentIDs)
	if err == nil {
		return conv, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	conv = &models.Conversation{DocumentIDs: documentIDs}
	if err := s.convRepo.Create(ctx, conv); err != nil {
		return nil, err
	}

	s.logger.Info("multi-document conversation created", "id", conv.ID, "documents", len(conv.DocumentIDs))
	return conv, nil
}

// GetConversation retrieves a conversation by id
func (s *conversationService) GetConversation(ctx context.Context, id string) (*models.Conversation, error) {
	return s.convRepo.Get(ctx, id)
}

// ListMessages returns a conversation's messages in creation order
func (s *conversationService) ListMessages(ctx context.Context, conversationID string) ([]models.Message, error) {
	if _, err := s.convRepo.Get(ctx, conversationID); err != nil {
		return nil, err
	}
	return s.msgRepo.List(ctx, conversationID)
}

// AppendMessage appends a message to the conversation log
func (s *conversationService) AppendMessage(ctx context.Context, conversationID, role, content string, modelUsed *string) (*models.Message, error) {
	if err := validation.Validate(role, validation.Required, validation.In(models.RoleUser, models.RoleAssistant)); err != nil {
		return nil, fmt.Errorf("%w: role: %v", domain.ErrValidation, err)
	}

	msg := &models.Message{
		ConversationID: conversationID,
		Role:           role,
		Content:        content,
		ModelUsed:      modelUsed,
	}
	if err := s.msgRepo.Create(ctx, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

// EditMessage replaces a user message's content and truncates the log so
// the edited message becomes the last entry. The original content is kept
// from the first edit onward.
func (s *conversationService) EditMessage(ctx context.Context, messageID, newContent string) (*services.EditResult, error) {
	if newContent == "" {
		return nil, fmt.Errorf("%w: content is required", domain.ErrValidation)
	}

	msg, err := s.msgRepo.Get(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if msg.Role != models.RoleUser {
		return nil, fmt.Errorf("%w: only user messages can be edited", domain.ErrValidation)
	}

	err = s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		if msg.OriginalContent == nil {
			original := msg.Content
			msg.OriginalContent = &original
		}
		msg.Content = newContent
		msg.Edited = true
		if err := s.msgRepo.Update(txCtx, msg); err != nil {
			return err
		}
		return s.msgRepo.DeleteAfter(txCtx, msg.ConversationID, msg.ID)
	})
	if err != nil {
		return nil, err
	}

	conv, err := s.convRepo.Get(ctx, msg.ConversationID)
	if err != nil {
		return nil, err
	}
	history, err := s.historyBefore(ctx, msg.ConversationID, msg.ID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("message edited", "id", msg.ID, "conversation_id", msg.ConversationID)
	return &services.EditResult{Conversation: conv, Message: msg, History: history}, nil
}

// PrepareRegenerate removes an assistant message and everything after it,
// returning the prior user message to regenerate from
func (s *conversationService) PrepareRegenerate(ctx context.Context, messageID string) (*services.RegenerateResult, error) {
	msg, err := s.msgRepo.Get(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if msg.Role != models.RoleAssistant {
		return nil, fmt.Errorf("%w: only assistant messages can be regenerated", domain.ErrValidation)
	}

	messages, err := s.msgRepo.List(ctx, msg.ConversationID)
	if err != nil {
		return nil, err
	}

	idx := indexOfMessage(messages, msg.ID)
	if idx <= 0 || messages[idx-1].Role != models.RoleUser {
		return nil, fmt.Errorf("%w: no user message precedes this response", domain.ErrValidation)
	}
	userMsg := messages[idx-1]

	if err := s.msgRepo.DeleteAfter(ctx, msg.ConversationID, userMsg.ID); err != nil {
		return nil, err
	}

	conv, err := s.convRepo.Get(ctx, msg.ConversationID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("regeneration prepared", "assistant_id", msg.ID, "user_id", userMsg.ID)
	return &services.RegenerateResult{
		Conversation: conv,
		UserMessage:  &userMsg,
		History:      messages[:idx-1],
	}, nil
}

// RateMessage attaches a rating, or clears it when the same value is
// submitted again
func (s *conversationService) RateMessage(ctx context.Context, messageID string, rating int) (*models.Message, error) {
	if err := validation.Validate(rating, validation.Required, validation.In(-1, 1)); err != nil {
		return nil, fmt.Errorf("%w: rating: %v", domain.ErrValidation, err)
	}

	msg, err := s.msgRepo.Get(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if msg.Role != models.RoleAssistant {
		return nil, fmt.Errorf("%w: only assistant messages can be rated", domain.ErrValidation)
	}

	if msg.Rating != nil && *msg.Rating == rating {
		msg.Rating = nil
	} else {
		msg.Rating = &rating
	}

	if err := s.msgRepo.Update(ctx, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

// DeleteMessage removes a user message together with its immediately
// following assistant reply, or a standalone assistant message alone
func (s *conversationService) DeleteMessage(ctx context.Context, messageID string) error {
	msg, err := s.msgRepo.Get(ctx, messageID)
	if err != nil {
		return err
	}

	if msg.Role == models.RoleAssistant {
		return s.msgRepo.Delete(ctx, msg.ID)
	}

	messages, err := s.msgRepo.List(ctx, msg.ConversationID)
	if err != nil {
		return err
	}
	idx := indexOfMessage(messages, msg.ID)

	return s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		if idx >= 0 && idx+1 < len(messages) && messages[idx+1].Role == models.RoleAssistant {
			if err := s.msgRepo.Delete(txCtx, messages[idx+1].ID); err != nil {
				return err
			}
		}
		return s.msgRepo.Delete(txCtx, msg.ID)
	})
}

func (s *conversationService) historyBefore(ctx context.Context, conversationID, messageID string) ([]models.Message, error) {
	messages, err := s.msgRepo.List(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	idx := indexOfMessage(messages, messageID)
	if idx < 0 {
		return nil, fmt.Errorf("message %s: %w", messageID, domain.ErrNotFound)
	}
	return messages[:idx], nil
}

func indexOfMessage(messages []models.Message, id string) int {
	for i := range messages {
		if messages[i].ID == id {
			return i
		}
	}
	return -1
}
