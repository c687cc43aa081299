package assess

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/okian/riskengine/internal/domain/model"
	"github.com/okian/riskengine/pkg/logger"
	"github.com/okian/riskengine/pkg/metrics"
	"github.com/okian/riskengine/pkg/tracing"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

type rankingReply struct {
	Risks *[]rankingEntry `json:"risks"`
}

type rankingEntry struct {
	RiskID    *string `json:"risk_id"`
	Reasoning *string `json:"reasoning"`
}

// RankingStage selects exactly topN risks from a bounded candidate set.
type RankingStage struct {
	gen           Generator
	params        model.GenerationParams
	topN          int
	maxCandidates int
	logger        logger.Logger
}

// NewRankingStage creates the ranking stage.
func NewRankingStage(gen Generator, params model.GenerationParams, topN, maxCandidates int) *RankingStage {
	params.JSON = true
	return &RankingStage{
		gen:           gen,
		params:        params,
		topN:          topN,
		maxCandidates: maxCandidates,
		logger:        logger.Get().Named("ranking"),
	}
}

// TruncateCandidates keeps the earliest max candidates.
func TruncateCandidates(candidates []model.CandidateRisk, limit int) ([]model.CandidateRisk, bool) {
	if limit <= 0 || len(candidates) <= limit {
		return candidates, false
	}
	return candidates[:limit], true
}

// Rank issues one ranking request and validates the reply against the
// candidate set given to this call.
func (s *RankingStage) Rank(ctx context.Context, proposalText string, candidates []model.CandidateRisk) ([]model.RankingDecision, error) {
	ctx, span := tracing.Tracer("assess").Start(ctx, "assess.rank_risks")
	defer span.End()
	start := time.Now()
	defer func() { metrics.RecordStageLatency(string(StageRanking), float64(time.Since(start).Milliseconds())) }()

	decisions, err := s.rank(ctx, proposalText, candidates)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	ids := make([]string, len(decisions))
	for i, d := range decisions {
		ids[i] = d.RiskID
	}
	span.SetAttributes(attribute.StringSlice("risk_ids", ids))
	return decisions, nil
}

func (s *RankingStage) rank(ctx context.Context, proposalText string, candidates []model.CandidateRisk) ([]model.RankingDecision, error) {
	candidates, truncated := TruncateCandidates(candidates, s.maxCandidates)
	if truncated {
		s.logger.Warn(ctx, "limited candidate risks", logger.Int("max", s.maxCandidates))
	}

	allowed := make(map[string]struct{}, len(candidates))
	for _, c := range candidates {
		allowed[c.RiskID] = struct{}{}
	}

	prompt, err := RankingPrompt(proposalText, candidates, s.topN)
	if err != nil {
		return nil, stageErr(StageRanking, KindMalformedOutput, err)
	}

	s.logger.Info(ctx, "ranking candidate risks", logger.Int("candidates", len(candidates)))
	raw, err := s.gen.Generate(ctx, prompt, s.params)
	if err != nil {
		return nil, stageErr(StageRanking, KindUpstreamUnavailable, err)
	}

	var reply rankingReply
	if err := decodeReply(rankingReplySchema, raw, &reply); err != nil {
		s.logger.Error(ctx, "invalid ranking reply", logger.Error(err), logger.String("raw", raw))
		return nil, stageErr(StageRanking, KindMalformedOutput, err)
	}
	if reply.Risks == nil {
		return nil, stageErr(StageRanking, KindMalformedOutput, errMissingField("risks"))
	}

	entries := *reply.Risks
	if len(entries) != s.topN {
		return nil, stageErr(StageRanking, KindCountMismatch, fmt.Errorf("expected %d risks, got %d", s.topN, len(entries)))
	}

	decisions := make([]model.RankingDecision, 0, len(entries))
	for i, e := range entries {
		if e.RiskID == nil || strings.TrimSpace(*e.RiskID) == "" {
			return nil, stageErr(StageRanking, KindMalformedOutput, fmt.Errorf("risk %d: %w", i, errMissingField("risk_id")))
		}
		if e.Reasoning == nil || strings.TrimSpace(*e.Reasoning) == "" {
			return nil, stageErr(StageRanking, KindMalformedOutput, fmt.Errorf("risk %d: %w", i, errMissingField("reasoning")))
		}
		decisions = append(decisions, model.RankingDecision{RiskID: *e.RiskID, Reasoning: *e.Reasoning})
	}

	for _, d := range decisions {
		if _, ok := allowed[d.RiskID]; !ok {
			metrics.RecordHallucination()
			s.logger.Error(ctx, "ranking selected a risk outside the candidate set", logger.String("risk_id", d.RiskID))
			return nil, stageErr(StageRanking, KindHallucinatedReference, fmt.Errorf("risk_id %q not in candidate set", d.RiskID))
		}
	}

	return decisions, nil
}
