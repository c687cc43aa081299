package api

import (
	"fmt"
	"net/http"

	"github.com/okian/riskengine/internal/adapters/llm"
	"github.com/okian/riskengine/pkg/logger"
)

// ModelsHandler lists generation models.
type ModelsHandler struct {
	deps   Dependencies
	logger logger.Logger
}

// NewModelsHandler creates a new models handler.
func NewModelsHandler(deps Dependencies, log logger.Logger) *ModelsHandler {
	return &ModelsHandler{deps: deps, logger: log}
}

type modelsResponse struct {
	Models []llm.ModelInfo `json:"models"`
}

// HandleModels handles GET /api/models requests.
func (h *ModelsHandler) HandleModels(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	models, err := h.deps.Models(r.Context())
	if err != nil {
		h.logger.Error(r.Context(), "failed to list models", logger.Error(err))
		writeError(w, http.StatusInternalServerError, "upstream_error", fmt.Errorf("%w: %w", ErrUpstream, err))
		return
	}
	if models == nil {
		models = []llm.ModelInfo{}
	}
	writeJSON(w, http.StatusOK, modelsResponse{Models: models})
}
