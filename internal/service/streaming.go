package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"docuchat/internal/domain"
	"docuchat/internal/domain/models"
	"docuchat/internal/domain/repositories"
	"docuchat/internal/domain/services"
	"docuchat/internal/service/prompt"
)

// streamingService implements the StreamingService interface.
//
// Event order per stream: one message_id, zero or more token, zero or more
// progress, then exactly one of done or error. A cancelled stream stops
// emitting without a terminal event and keeps the partial text.
type streamingService struct {
	msgRepo   repositories.MessageRepository
	generator services.Generator
	validator services.ScopeClassifier
	logger    *slog.Logger
}

// NewStreamingService creates a new streaming service
func NewStreamingService(
	msgRepo repositories.MessageRepository,
	generator services.Generator,
	validator services.ScopeClassifier,
	logger *slog.Logger,
) services.StreamingService {
	return &streamingService{
		msgRepo:   msgRepo,
		generator: generator,
		validator: validator,
		logger:    logger,
	}
}

// Stream runs one generation against the conversation: placeholder message,
// token relay, scope validation, final persistence.
func (s *streamingService) Stream(ctx context.Context, req *services.ChatStreamRequest, sink services.EventSink) error {
	if req.Model == "" {
		return fmt.Errorf("%w: model is required", domain.ErrValidation)
	}
	if req.Question == "" {
		return fmt.Errorf("%w: question is required", domain.ErrValidation)
	}

	multi := req.Conversation.IsMulti()
	valid, excluded := prompt.Partition(req.Documents)

	// The placeholder exists before any token so clients can address the
	// message immediately (rating, deletion) even mid-stream.
	msg := &models.Message{
		ConversationID: req.Conversation.ID,
		Role:           models.RoleAssistant,
		ModelUsed:      &req.Model,
	}
	if err := s.msgRepo.Create(ctx, msg); err != nil {
		return err
	}
	if err := sink.Send(models.NewMessageIDEvent(msg.ID)); err != nil {
		return nil
	}

	// Documents without enough readable text produce a canned refusal
	// instead of a generation run. The refusal is ordinary assistant text.
	if len(valid) == 0 {
		refusal := prompt.RefusalInsufficientContent
		if multi {
			refusal = prompt.RefusalNoValidDocuments
		}
		return s.finishWithText(ctx, msg, refusal, sink)
	}

	var acc strings.Builder

	// In multi-document mode, partially unreadable sets still generate;
	// the exclusion warning is prepended to the answer.
	if multi && len(excluded) > 0 {
		warning := prompt.ExclusionWarning(excluded)
		acc.WriteString(warning)
		if err := sink.Send(models.NewTokenEvent(warning)); err != nil {
			return s.persistPartial(msg, acc.String())
		}
	}

	var promptText string
	if multi {
		promptText = prompt.BuildMulti(valid, req.History, req.Question)
	} else {
		promptText = prompt.BuildSingle(valid[0], req.History, req.Question)
	}

	events, err := s.generator.StreamResponse(ctx, &services.GenerateRequest{
		Model:  req.Model,
		Prompt: promptText,
	})
	if err != nil {
		s.persistPartial(msg, acc.String())
		sink.Send(models.NewErrorEvent("inference backend unavailable"))
		return fmt.Errorf("%w: %v", domain.ErrUpstream, err)
	}

	for {
		select {
		case <-ctx.Done():
			// Client cancelled. Keep the partial text, emit nothing more.
			return s.persistPartial(msg, acc.String())

		case event, ok := <-events:
			if !ok {
				return s.finishStream(ctx, msg, acc.String(), valid, sink)
			}

			switch {
			case event.Error != nil:
				s.persistPartial(msg, acc.String())
				sink.Send(models.NewErrorEvent(event.Error.Error()))
				return fmt.Errorf("%w: %v", domain.ErrUpstream, event.Error)

			case event.Stats != nil:
				// Progress counters are informational; a lost progress
				// event never ends the stream.
				sink.Send(&models.ChatEvent{
					Type:            models.EventTypeProgress,
					PromptTokens:    event.Stats.PromptTokens,
					ResponseTokens:  event.Stats.ResponseTokens,
					EvalDurationMs:  event.Stats.EvalDuration.Milliseconds(),
					TotalDurationMs: event.Stats.TotalDuration.Milliseconds(),
				})

			case event.Done:
				return s.finishStream(ctx, msg, acc.String(), valid, sink)

			default:
				if event.Delta == "" {
					continue
				}
				acc.WriteString(event.Delta)
				if err := sink.Send(models.NewTokenEvent(event.Delta)); err != nil {
					return s.persistPartial(msg, acc.String())
				}
			}
		}
	}
}

// finishStream validates scope on the accumulated response, persists the
// final text and signals completion
func (s *streamingService) finishStream(ctx context.Context, msg *models.Message, accumulated string, docs []*models.Document, sink services.EventSink) error {
	final, verdict, disclaimed := s.validator.Apply(accumulated, docs)

	msg.Content = final
	if err := s.msgRepo.Update(ctx, msg); err != nil {
		return err
	}

	// Whatever the classifier appended still has to reach the client
	if disclaimed && len(final) > len(accumulated) {
		if err := sink.Send(models.NewTokenEvent(final[len(accumulated):])); err != nil {
			return nil
		}
	}

	s.logger.Info("stream completed",
		"message_id", msg.ID,
		"length", len(final),
		"verdict", string(verdict),
	)
	return sink.Send(models.NewDoneEvent())
}

// finishWithText streams a fixed text as a single token and persists it
func (s *streamingService) finishWithText(ctx context.Context, msg *models.Message, text string, sink services.EventSink) error {
	msg.Content = text
	if err := s.msgRepo.Update(ctx, msg); err != nil {
		return err
	}
	if err := sink.Send(models.NewTokenEvent(text)); err != nil {
		return nil
	}
	return sink.Send(models.NewDoneEvent())
}

// persistPartial keeps whatever text accumulated before interruption.
// Partial responses are never silently discarded. Uses a fresh context
// because the request context is typically already cancelled.
func (s *streamingService) persistPartial(msg *models.Message, accumulated string) error {
	msg.Content = accumulated
	if err := s.msgRepo.Update(context.Background(), msg); err != nil {
		s.logger.Error("partial response persistence failed", "message_id", msg.ID, "error", err)
		return err
	}
	s.logger.Info("stream interrupted, partial response kept", "message_id", msg.ID, "length", len(accumulated))
	return nil
}
