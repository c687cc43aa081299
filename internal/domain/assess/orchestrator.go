package assess

import (
	"context"
	"errors"
	"time"

	"github.com/okian/riskengine/internal/domain/model"
	"github.com/okian/riskengine/pkg/logger"
	"github.com/okian/riskengine/pkg/metrics"
	"github.com/okian/riskengine/pkg/tracing"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// State is the progress of a single run.
type State int

// Run states. Degraded is terminal and reachable from every stage.
const (
	StateInit State = iota
	StateKeywordsExtracted
	StateCandidatesRetrieved
	StateRanked
	StateEnriched
	StateAssembled
	StateDegraded
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "INIT"
	case StateKeywordsExtracted:
		return "KEYWORDS_EXTRACTED"
	case StateCandidatesRetrieved:
		return "CANDIDATES_RETRIEVED"
	case StateRanked:
		return "RANKED"
	case StateEnriched:
		return "ENRICHED"
	case StateAssembled:
		return "ASSEMBLED"
	case StateDegraded:
		return "DEGRADED"
	default:
		return "UNKNOWN"
	}
}

// Assessment outcome labels.
const (
	OutcomeAssembled = "assembled"
	OutcomePadded    = "padded"
	OutcomeDegraded  = "degraded"
)

// Outcome is a finished run with its diagnostics.
type Outcome struct {
	Result model.RiskAssessmentResult
	State  State
	// Err is the stage failure that degraded the run, or nil.
	Err      error
	Keywords model.KeywordExtractionOutcome
	// Candidates is exactly the set passed to ranking.
	Candidates []model.CandidateRisk
	Decisions  []model.RankingDecision
}

// Label classifies the outcome for metrics and logs.
func (o Outcome) Label() string {
	switch {
	case o.State == StateDegraded:
		return OutcomeDegraded
	case o.Result.Degraded():
		return OutcomePadded
	default:
		return OutcomeAssembled
	}
}

// Orchestrator sequences the pipeline stages. It keeps no per-run state and
// is safe for concurrent use.
type Orchestrator struct {
	repo     Repository
	keywords *KeywordStage
	ranking  *RankingStage
	enrich   *EnrichmentStage

	topN              int
	maxCandidates     int
	maxSearchKeywords int
	fallbackKeywords  []string
	params            model.GenerationParams
	now               func() time.Time

	logger logger.Logger
	tracer trace.Tracer
}

// NewOrchestrator wires the stages over gen and repo.
func NewOrchestrator(gen Generator, repo Repository, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		repo:              repo,
		topN:              DefaultTopN,
		maxCandidates:     DefaultMaxCandidates,
		maxSearchKeywords: DefaultMaxSearchKeywords,
		fallbackKeywords:  DefaultFallbackKeywords(),
		params:            model.GenerationParams{MaxTokens: DefaultMaxTokens},
		now:               time.Now,
		logger:            logger.Get().Named("assess"),
		tracer:            tracing.Tracer("assess"),
	}
	for _, opt := range opts {
		opt(o)
	}

	o.keywords = NewKeywordStage(gen, o.params)
	o.ranking = NewRankingStage(gen, o.params, o.topN, o.maxCandidates)
	o.enrich = NewEnrichmentStage(repo)
	return o
}

// TopN returns the fixed result size.
func (o *Orchestrator) TopN() int { return o.topN }

// Assess runs the pipeline and always returns a result of exactly TopN entries.
func (o *Orchestrator) Assess(ctx context.Context, p model.Proposal) model.RiskAssessmentResult {
	return o.Run(ctx, p).Result
}

// Run executes the pipeline and reports how far it got.
func (o *Orchestrator) Run(ctx context.Context, p model.Proposal) Outcome {
	ctx, span := o.tracer.Start(ctx, "assess.run")
	defer span.End()
	start := time.Now()

	out := o.run(ctx, p)

	label := out.Label()
	metrics.RecordAssessment(label)
	metrics.RecordAssessmentLatency(float64(time.Since(start).Milliseconds()))
	span.SetAttributes(
		attribute.String("assessment_id", out.Result.AssessmentID),
		attribute.String("state", out.State.String()),
		attribute.String("outcome", label),
	)
	if out.Err != nil {
		span.RecordError(out.Err)
		span.SetStatus(codes.Error, out.Err.Error())
	}
	o.logger.Info(ctx, "risk assessment completed",
		logger.String("assessment_id", out.Result.AssessmentID),
		logger.String("outcome", label),
		logger.Strings("risk_ids", out.Result.RiskIDs()),
	)
	return out
}

func (o *Orchestrator) run(ctx context.Context, p model.Proposal) Outcome {
	out := Outcome{State: StateInit}
	text := p.Format()
	o.logger.Info(ctx, "starting risk assessment", logger.String("proposal", p.DisplayTitle()))

	kw, err := o.keywords.Extract(ctx, text)
	if err != nil {
		return o.degrade(ctx, out, err)
	}
	out.Keywords = kw
	out.State = StateKeywordsExtracted

	candidates, err := o.retrieve(ctx, kw.Keywords)
	if err != nil {
		return o.degrade(ctx, out, err)
	}
	candidates, truncated := TruncateCandidates(candidates, o.maxCandidates)
	if truncated {
		metrics.RecordCandidateTruncation()
		o.logger.Warn(ctx, "limited candidate risks", logger.Int("max", o.maxCandidates))
	}
	metrics.RecordCandidateCount(len(candidates))
	out.Candidates = candidates
	out.State = StateCandidatesRetrieved

	decisions, err := o.ranking.Rank(ctx, text, candidates)
	if err != nil {
		return o.degrade(ctx, out, err)
	}
	out.Decisions = decisions
	out.State = StateRanked

	ids := make([]string, len(decisions))
	for i, d := range decisions {
		ids[i] = d.RiskID
	}
	controls, err := o.enrich.Enrich(ctx, ids)
	if err != nil {
		return o.degrade(ctx, out, err)
	}
	out.State = StateEnriched

	out.Result = model.NewResult(o.now(), o.join(ctx, candidates, decisions, controls))
	out.State = StateAssembled
	return out
}

// retrieve searches with the extracted keywords and, if nothing matches,
// once more with the fallback keywords.
func (o *Orchestrator) retrieve(ctx context.Context, keywords []string) ([]model.CandidateRisk, error) {
	ctx, span := o.tracer.Start(ctx, "assess.retrieve_candidates")
	defer span.End()
	start := time.Now()
	defer func() { metrics.RecordStageLatency(string(StageRetrieval), float64(time.Since(start).Milliseconds())) }()

	candidates, err := o.search(ctx, keywords)
	if err != nil {
		return nil, stageErr(StageRetrieval, KindUpstreamUnavailable, err)
	}
	if len(candidates) > 0 {
		return candidates, nil
	}

	o.logger.Warn(ctx, "no risks found for keywords, using fallback", logger.Strings("keywords", keywords))
	span.AddEvent("fallback_keywords")
	candidates, err = o.search(ctx, o.fallbackKeywords)
	if err != nil {
		return nil, stageErr(StageRetrieval, KindUpstreamUnavailable, err)
	}
	if len(candidates) == 0 {
		return nil, stageErr(StageRetrieval, KindEmptyResult, ErrNoCandidates)
	}
	return candidates, nil
}

func (o *Orchestrator) search(ctx context.Context, keywords []string) ([]model.CandidateRisk, error) {
	if len(keywords) > o.maxSearchKeywords {
		keywords = keywords[:o.maxSearchKeywords]
	}
	found, err := o.repo.Search(ctx, keywords)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(found))
	out := make([]model.CandidateRisk, 0, len(found))
	for _, c := range found {
		if _, dup := seen[c.RiskID]; dup {
			continue
		}
		seen[c.RiskID] = struct{}{}
		out = append(out, c)
	}
	return out, nil
}

// join resolves decisions against the candidates and pads to topN.
func (o *Orchestrator) join(ctx context.Context, candidates []model.CandidateRisk, decisions []model.RankingDecision, controls map[string][]model.Control) []model.RiskAssessment {
	byID := make(map[string]model.CandidateRisk, len(candidates))
	for _, c := range candidates {
		byID[c.RiskID] = c
	}

	out := make([]model.RiskAssessment, 0, o.topN)
	for _, d := range decisions {
		c, ok := byID[d.RiskID]
		if !ok {
			metrics.RecordJoinMiss()
			o.logger.Error(ctx, "could not find details for risk", logger.String("risk_id", d.RiskID))
			continue
		}
		cs := controls[d.RiskID]
		if cs == nil {
			cs = []model.Control{}
		}
		out = append(out, model.RiskAssessment{
			RiskID:          c.RiskID,
			RiskTitle:       c.RiskTitle,
			RiskDescription: c.RiskDescription,
			Explanation:     d.Reasoning,
			Controls:        cs,
		})
	}

	if len(out) < o.topN {
		o.logger.Warn(ctx, "padding short assessment", logger.Int("expected", o.topN), logger.Int("got", len(out)))
	}
	for len(out) < o.topN {
		out = append(out, model.UnresolvedAssessment())
	}
	return out
}

// degrade abandons the run and fills the result with error sentinels.
func (o *Orchestrator) degrade(ctx context.Context, out Outcome, err error) Outcome {
	stage, kind := "unknown", "unknown"
	var se *StageError
	if errors.As(err, &se) {
		stage, kind = string(se.Stage), se.Kind.String()
	}
	metrics.RecordDegradation(stage, kind)
	o.logger.Error(ctx, "risk assessment failed", logger.String("stage", stage), logger.String("kind", kind), logger.Error(err))

	risks := make([]model.RiskAssessment, o.topN)
	for i := range risks {
		risks[i] = model.ErrorAssessment(err.Error())
	}
	out.Result = model.NewResult(o.now(), risks)
	out.State = StateDegraded
	out.Err = err
	return out
}
