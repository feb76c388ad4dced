package handler

import (
	"fmt"
	"log/slog"
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"docuchat/internal/domain"
	"docuchat/internal/domain/models"
	"docuchat/internal/domain/services"
	"docuchat/internal/handler/sse"
	"docuchat/internal/httputil"
)

// ChatHandler handles chat and conversation HTTP requests.
// Handlers only communicate with services, never repositories.
type ChatHandler struct {
	conversations services.ConversationService
	documents     services.DocumentService
	streaming     services.StreamingService
	logger        *slog.Logger
}

// NewChatHandler creates a new chat handler
func NewChatHandler(
	conversations services.ConversationService,
	documents services.DocumentService,
	streaming services.StreamingService,
	logger *slog.Logger,
) *ChatHandler {
	return &ChatHandler{
		conversations: conversations,
		documents:     documents,
		streaming:     streaming,
		logger:        logger,
	}
}

// ChatRequest is a single-document chat request. ConversationID is
// optional; the conversation is derived from the document, and a supplied
// id must resolve to that same conversation.
type ChatRequest struct {
	DocumentID     string `json:"documentId"`
	ConversationID string `json:"conversationId,omitempty"`
	Question       string `json:"question"`
	Model          string `json:"model"`
}

// Validate implements request validation
func (r ChatRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.DocumentID, validation.Required),
		validation.Field(&r.Question, validation.Required, validation.Length(1, 8192)),
		validation.Field(&r.Model, validation.Required),
	)
}

// MultiChatRequest is a multi-document chat request
type MultiChatRequest struct {
	DocumentIDs []string `json:"documentIds"`
	Question    string   `json:"question"`
	Model       string   `json:"model"`
}

// Validate implements request validation
func (r MultiChatRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.DocumentIDs, validation.Required, validation.Length(2, 0)),
		validation.Field(&r.Question, validation.Required, validation.Length(1, 8192)),
		validation.Field(&r.Model, validation.Required),
	)
}

// Chat answers a question about one document over SSE
// POST /api/chat
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	conv, err := h.conversations.GetOrCreateConversation(r.Context(), req.DocumentID)
	if err != nil {
		handleError(w, err)
		return
	}
	if req.ConversationID != "" && req.ConversationID != conv.ID {
		httputil.RespondError(w, http.StatusBadRequest, "conversationId does not belong to the requested document")
		return
	}

	h.runStream(w, r, conv, req.Question, req.Model, true)
}

// MultiChat answers a question about a document set over SSE
// POST /api/chat/multi
func (h *ChatHandler) MultiChat(w http.ResponseWriter, r *http.Request) {
	var req MultiChatRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	conv, err := h.conversations.GetOrCreateMultiConversation(r.Context(), req.DocumentIDs)
	if err != nil {
		handleError(w, err)
		return
	}

	h.runStream(w, r, conv, req.Question, req.Model, true)
}

// GetConversation returns the conversation for a document together with
// its messages, creating the conversation on first access
// GET /api/conversations/{documentId}
func (h *ChatHandler) GetConversation(w http.ResponseWriter, r *http.Request) {
	documentID, ok := PathParam(w, r, "documentId", "document id")
	if !ok {
		return
	}

	conv, err := h.conversations.GetOrCreateConversation(r.Context(), documentID)
	if err != nil {
		handleError(w, err)
		return
	}

	messages, err := h.conversations.ListMessages(r.Context(), conv.ID)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"conversation": conv,
		"messages":     messages,
	})
}

// MultiConversationRequest resolves a conversation for a document set
type MultiConversationRequest struct {
	DocumentIDs []string `json:"documentIds"`
}

// CreateMultiConversation returns the conversation for a document set,
// creating it if none with an equal set exists
// POST /api/conversations/multi
func (h *ChatHandler) CreateMultiConversation(w http.ResponseWriter, r *http.Request) {
	var req MultiConversationRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	conv, err := h.conversations.GetOrCreateMultiConversation(r.Context(), req.DocumentIDs)
	if err != nil {
		handleError(w, err)
		return
	}

	messages, err := h.conversations.ListMessages(r.Context(), conv.ID)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"conversation": conv,
		"messages":     messages,
	})
}

// ListMessages returns a conversation's message log
// GET /api/messages/{conversationId}
func (h *ChatHandler) ListMessages(w http.ResponseWriter, r *http.Request) {
	conversationID, ok := PathParam(w, r, "conversationId", "conversation id")
	if !ok {
		return
	}

	messages, err := h.conversations.ListMessages(r.Context(), conversationID)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, messages)
}

// EditMessageRequest carries an edited user message and the model to
// regenerate the answer with
type EditMessageRequest struct {
	Content string `json:"content"`
	Model   string `json:"model"`
}

// Validate implements request validation
func (r EditMessageRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Content, validation.Required, validation.Length(1, 8192)),
		validation.Field(&r.Model, validation.Required),
	)
}

// EditMessage edits a user message, truncates everything after it and
// streams a fresh response over SSE
// PUT /api/messages/{id}
func (h *ChatHandler) EditMessage(w http.ResponseWriter, r *http.Request) {
	messageID, ok := PathParam(w, r, "id", "message id")
	if !ok {
		return
	}

	var req EditMessageRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.conversations.EditMessage(r.Context(), messageID, req.Content)
	if err != nil {
		handleError(w, err)
		return
	}

	h.streamWithHistory(w, r, result.Conversation, result.History, result.Message.Content, req.Model)
}

// RegenerateRequest selects the model for a regeneration run
type RegenerateRequest struct {
	Model string `json:"model"`
}

// Regenerate replaces an assistant message with a freshly streamed response
// POST /api/messages/{id}/regenerate
func (h *ChatHandler) Regenerate(w http.ResponseWriter, r *http.Request) {
	messageID, ok := PathParam(w, r, "id", "message id")
	if !ok {
		return
	}

	var req RegenerateRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Model == "" {
		httputil.RespondError(w, http.StatusBadRequest, "model is required")
		return
	}

	result, err := h.conversations.PrepareRegenerate(r.Context(), messageID)
	if err != nil {
		handleError(w, err)
		return
	}

	h.streamWithHistory(w, r, result.Conversation, result.History, result.UserMessage.Content, req.Model)
}

// RateMessageRequest carries a thumbs rating (1 or -1)
type RateMessageRequest struct {
	Rating int `json:"rating"`
}

// RateMessage rates an assistant message; submitting the same rating again
// clears it
// POST /api/messages/{id}/rate
func (h *ChatHandler) RateMessage(w http.ResponseWriter, r *http.Request) {
	messageID, ok := PathParam(w, r, "id", "message id")
	if !ok {
		return
	}

	var req RateMessageRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	msg, err := h.conversations.RateMessage(r.Context(), messageID, req.Rating)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, msg)
}

// DeleteMessage removes a user message with its reply, or a standalone
// assistant message
// DELETE /api/messages/{id}
func (h *ChatHandler) DeleteMessage(w http.ResponseWriter, r *http.Request) {
	messageID, ok := PathParam(w, r, "id", "message id")
	if !ok {
		return
	}

	if err := h.conversations.DeleteMessage(r.Context(), messageID); err != nil {
		handleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// runStream appends the user message and streams the response. The user
// message is persisted before SSE starts so it survives even when the
// client disconnects immediately.
func (h *ChatHandler) runStream(w http.ResponseWriter, r *http.Request, conv *models.Conversation, question, model string, appendUser bool) {
	history, err := h.conversations.ListMessages(r.Context(), conv.ID)
	if err != nil {
		handleError(w, err)
		return
	}

	if appendUser {
		if _, err := h.conversations.AppendMessage(r.Context(), conv.ID, models.RoleUser, question, nil); err != nil {
			handleError(w, err)
			return
		}
	}

	h.stream(w, r, conv, history, question, model)
}

// streamWithHistory streams a response against an explicit history, used
// by edit and regenerate where the user message already exists
func (h *ChatHandler) streamWithHistory(w http.ResponseWriter, r *http.Request, conv *models.Conversation, history []models.Message, question, model string) {
	h.stream(w, r, conv, history, question, model)
}

func (h *ChatHandler) stream(w http.ResponseWriter, r *http.Request, conv *models.Conversation, history []models.Message, question, model string) {
	docs, err := h.loadDocuments(r, conv)
	if err != nil {
		handleError(w, err)
		return
	}

	sink, err := sse.NewWriter(w)
	if err != nil {
		httputil.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	stopKeepAlive := sink.StartKeepAlive()
	defer stopKeepAlive()

	err = h.streaming.Stream(r.Context(), &services.ChatStreamRequest{
		Conversation: conv,
		Documents:    docs,
		History:      history,
		Question:     question,
		Model:        model,
	}, sink)
	if err != nil {
		// SSE already started; the relay has emitted any error event
		h.logger.Warn("chat stream ended with error", "conversation_id", conv.ID, "error", err)
	}
}

func (h *ChatHandler) loadDocuments(r *http.Request, conv *models.Conversation) ([]*models.Document, error) {
	ids := conv.AllDocumentIDs()
	if len(ids) == 0 {
		return nil, fmt.Errorf("conversation %s has no documents: %w", conv.ID, domain.ErrNotFound)
	}

	docs := make([]*models.Document, 0, len(ids))
	for _, id := range ids {
		doc, err := h.documents.Get(r.Context(), id)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}
