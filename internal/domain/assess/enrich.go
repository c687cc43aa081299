package assess

import (
	"context"
	"time"

	"github.com/okian/riskengine/internal/domain/model"
	"github.com/okian/riskengine/pkg/metrics"
	"github.com/okian/riskengine/pkg/tracing"
	"go.opentelemetry.io/otel/codes"
)

// EnrichmentStage attaches controls to selected risks.
type EnrichmentStage struct {
	repo Repository
}

// NewEnrichmentStage creates the enrichment stage.
func NewEnrichmentStage(repo Repository) *EnrichmentStage {
	return &EnrichmentStage{repo: repo}
}

// Enrich returns controls for every requested risk id.
func (s *EnrichmentStage) Enrich(ctx context.Context, riskIDs []string) (map[string][]model.Control, error) {
	ctx, span := tracing.Tracer("assess").Start(ctx, "assess.enrich_controls")
	defer span.End()
	start := time.Now()
	defer func() { metrics.RecordStageLatency(string(StageEnrichment), float64(time.Since(start).Milliseconds())) }()

	found, err := s.repo.ControlsFor(ctx, riskIDs)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, stageErr(StageEnrichment, KindUpstreamUnavailable, err)
	}

	out := make(map[string][]model.Control, len(riskIDs))
	for _, id := range riskIDs {
		controls := found[id]
		if controls == nil {
			controls = []model.Control{}
		}
		out[id] = controls
	}
	return out, nil
}
