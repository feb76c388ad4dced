package handler

import (
	"log/slog"
	"net/http"

	"docuchat/internal/domain/services"
	"docuchat/internal/httputil"
)

// ModelsHandler lists models available on the inference backend
type ModelsHandler struct {
	generator services.Generator
	logger    *slog.Logger
}

// NewModelsHandler creates a new models handler
func NewModelsHandler(generator services.Generator, logger *slog.Logger) *ModelsHandler {
	return &ModelsHandler{generator: generator, logger: logger}
}

// List returns the available models. An unreachable backend yields an
// empty list rather than an error so the client can still render.
// GET /api/models
func (h *ModelsHandler) List(w http.ResponseWriter, r *http.Request) {
	models, err := h.generator.ListModels(r.Context())
	if err != nil {
		h.logger.Warn("failed to list backend models", "error", err)
		models = []services.ModelInfo{}
	}
	if models == nil {
		models = []services.ModelInfo{}
	}

	httputil.RespondJSON(w, http.StatusOK, map[string]interface{}{"models": models})
}

// Health reports service liveness
// GET /health
func Health(w http.ResponseWriter, r *http.Request) {
	httputil.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
