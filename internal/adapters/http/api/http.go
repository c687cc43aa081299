// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/okian/riskengine/internal/adapters/llm"
	service "github.com/okian/riskengine/internal/app"
	"github.com/okian/riskengine/internal/domain/model"
	"github.com/okian/riskengine/pkg/logger"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	Name() string
	Version() string

	// Assess runs the pipeline. Degradation is carried in the result.
	Assess(ctx context.Context, p model.Proposal) model.RiskAssessmentResult

	Health(ctx context.Context) service.Health
	Models(ctx context.Context) ([]llm.ModelInfo, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	infoHandler    *InfoHandler
	healthHandler  *HealthHandler
	assessHandler  *AssessHandler
	modelsHandler  *ModelsHandler
	metricsHandler http.Handler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies) *Server {
	log := logger.Get().Named("api")
	return &Server{
		infoHandler:    NewInfoHandler(deps),
		healthHandler:  NewHealthHandler(deps),
		assessHandler:  NewAssessHandler(deps, log),
		modelsHandler:  NewModelsHandler(deps, log),
		metricsHandler: MetricsHandler(),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/api/health", MetricsMiddleware(s.healthHandler.HandleHealth, "health"))
	mux.HandleFunc("/api/v1/assess-risks", MetricsMiddleware(s.assessHandler.HandleAssess, "assess"))
	mux.HandleFunc("/api/v1/assess-risks-simple", MetricsMiddleware(s.assessHandler.HandleAssessSimple, "assess_simple"))
	mux.HandleFunc("/api/models", MetricsMiddleware(s.modelsHandler.HandleModels, "models"))
	mux.Handle("/metrics", s.metricsHandler)
	mux.HandleFunc("/{$}", MetricsMiddleware(s.infoHandler.HandleRoot, "root"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// decodeJSON reads one JSON document of at most maxBodyBytes into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return fmt.Errorf("%w: limit is %d bytes", ErrBodyTooLarge, tooLarge.Limit)
		}
		return fmt.Errorf("%w: %w", ErrBadRequest, err)
	}
	return nil
}
