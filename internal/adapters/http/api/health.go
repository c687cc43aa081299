package api

import (
	"net/http"

	service "github.com/okian/riskengine/internal/app"
	"github.com/okian/riskengine/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Health statuses reported by /api/health.
const (
	statusHealthy  = "healthy"
	statusDegraded = "degraded"
)

// InfoHandler serves the service description at /.
type InfoHandler struct {
	deps Dependencies
}

// NewInfoHandler creates a new root handler.
func NewInfoHandler(deps Dependencies) *InfoHandler {
	return &InfoHandler{deps: deps}
}

type infoResponse struct {
	Service   string            `json:"service"`
	Version   string            `json:"version"`
	Status    string            `json:"status"`
	Endpoints map[string]string `json:"endpoints"`
}

// HandleRoot handles GET / requests.
func (h *InfoHandler) HandleRoot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, infoResponse{
		Service: h.deps.Name(),
		Version: h.deps.Version(),
		Status:  "running",
		Endpoints: map[string]string{
			"health":        "/api/health",
			"assess":        "/api/v1/assess-risks",
			"assess_simple": "/api/v1/assess-risks-simple",
			"models":        "/api/models",
			"metrics":       "/metrics",
			"docs":          "/api-docs",
		},
	})
}

// HealthHandler handles dependency health requests.
type HealthHandler struct {
	deps Dependencies
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(deps Dependencies) *HealthHandler {
	return &HealthHandler{deps: deps}
}

type healthResponse struct {
	Status       string         `json:"status"`
	Service      string         `json:"service"`
	Version      string         `json:"version"`
	Dependencies service.Health `json:"dependencies"`
}

// HandleHealth handles GET /api/health requests. Unhealthy dependencies are
// reported in the body; the status code stays 200.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	deps := h.deps.Health(r.Context())
	status := statusHealthy
	if !deps.Healthy() {
		status = statusDegraded
	}
	writeJSON(w, http.StatusOK, healthResponse{
		Status:       status,
		Service:      h.deps.Name(),
		Version:      h.deps.Version(),
		Dependencies: deps,
	})
}

// MetricsHandler serves the custom Prometheus registry.
func MetricsHandler() http.Handler {
	return promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{})
}
