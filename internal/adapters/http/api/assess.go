package api

import (
	"errors"
	"net/http"

	"github.com/okian/riskengine/internal/domain/model"
	"github.com/okian/riskengine/pkg/logger"
)

// DegradedHeader is set on assessment responses that contain sentinels.
const DegradedHeader = "X-Assessment-Degraded"

// cfpContextKey names the additional field carrying optional CFP context.
const cfpContextKey = "cfp_context"

// assessRequest mirrors the OpenAPI schema for POST /api/v1/assess-risks.
type assessRequest struct {
	Proposal *model.Proposal `json:"proposal" validate:"required"`
	CFP      model.Fields    `json:"cfp,omitempty"`
}

// AssessHandler handles assessment requests.
type AssessHandler struct {
	deps   Dependencies
	logger logger.Logger
}

// NewAssessHandler creates a new assessment handler.
func NewAssessHandler(deps Dependencies, log logger.Logger) *AssessHandler {
	return &AssessHandler{deps: deps, logger: log}
}

// HandleAssess handles POST /api/v1/assess-risks requests.
func (h *AssessHandler) HandleAssess(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req assessRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.badRequest(w, err)
		return
	}
	if err := model.Validate(&req); err != nil {
		h.badRequest(w, err)
		return
	}

	p := *req.Proposal
	if len(req.CFP) > 0 {
		p = p.With(cfpContextKey, req.CFP)
	}
	h.assess(w, r, p)
}

// HandleAssessSimple handles POST /api/v1/assess-risks-simple requests.
func (h *AssessHandler) HandleAssessSimple(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var p model.Proposal
	if err := decodeJSON(w, r, &p); err != nil {
		h.badRequest(w, err)
		return
	}
	if err := p.Validate(); err != nil {
		h.badRequest(w, err)
		return
	}
	h.assess(w, r, p)
}

func (h *AssessHandler) assess(w http.ResponseWriter, r *http.Request, p model.Proposal) { //nolint:gocritic // hugeParam: proposal is immutable input
	ctx := r.Context()
	h.logger.Info(ctx, "assessment requested", logger.String("title", p.DisplayTitle()))

	res := h.deps.Assess(ctx, p)
	if res.Degraded() {
		h.logger.Warn(ctx, "returning degraded assessment",
			logger.String("assessment_id", res.AssessmentID),
			logger.Strings("risk_ids", res.RiskIDs()),
		)
		w.Header().Set(DegradedHeader, "true")
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *AssessHandler) badRequest(w http.ResponseWriter, err error) {
	status := http.StatusBadRequest
	if errors.Is(err, ErrBodyTooLarge) {
		status = http.StatusRequestEntityTooLarge
	}
	writeError(w, status, "bad_request", err)
}
