package assess

import (
	"context"
	"time"

	"github.com/okian/riskengine/internal/domain/model"
	"github.com/okian/riskengine/pkg/logger"
	"github.com/okian/riskengine/pkg/metrics"
	"github.com/okian/riskengine/pkg/tracing"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

type keywordReply struct {
	Keywords   *[]string `json:"keywords"`
	Confidence *float64  `json:"confidence"`
}

// KeywordStage turns proposal text into search themes.
type KeywordStage struct {
	gen    Generator
	params model.GenerationParams
	logger logger.Logger
}

// NewKeywordStage creates the extraction stage.
func NewKeywordStage(gen Generator, params model.GenerationParams) *KeywordStage {
	params.JSON = true
	return &KeywordStage{gen: gen, params: params, logger: logger.Get().Named("keywords")}
}

// Extract issues one extraction request and validates the reply.
func (s *KeywordStage) Extract(ctx context.Context, proposalText string) (model.KeywordExtractionOutcome, error) {
	ctx, span := tracing.Tracer("assess").Start(ctx, "assess.extract_keywords")
	defer span.End()
	start := time.Now()
	defer func() { metrics.RecordStageLatency(string(StageKeywords), float64(time.Since(start).Milliseconds())) }()

	out, err := s.extract(ctx, proposalText)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return model.KeywordExtractionOutcome{}, err
	}
	span.SetAttributes(
		attribute.StringSlice("keywords", out.Keywords),
		attribute.Float64("confidence", out.Confidence),
	)
	return out, nil
}

func (s *KeywordStage) extract(ctx context.Context, proposalText string) (model.KeywordExtractionOutcome, error) {
	prompt, err := KeywordPrompt(proposalText)
	if err != nil {
		return model.KeywordExtractionOutcome{}, stageErr(StageKeywords, KindMalformedOutput, err)
	}

	raw, err := s.gen.Generate(ctx, prompt, s.params)
	if err != nil {
		return model.KeywordExtractionOutcome{}, stageErr(StageKeywords, KindUpstreamUnavailable, err)
	}

	var reply keywordReply
	if err := decodeReply(keywordReplySchema, raw, &reply); err != nil {
		s.logger.Error(ctx, "invalid keyword reply", logger.Error(err), logger.String("raw", raw))
		return model.KeywordExtractionOutcome{}, stageErr(StageKeywords, KindMalformedOutput, err)
	}
	if reply.Keywords == nil || reply.Confidence == nil {
		return model.KeywordExtractionOutcome{}, stageErr(StageKeywords, KindMalformedOutput, errMissingField("keywords or confidence"))
	}

	// Blank entries are kept; the repository skips them when searching.
	keywords := *reply.Keywords
	if len(keywords) == 0 {
		return model.KeywordExtractionOutcome{}, stageErr(StageKeywords, KindEmptyResult, errNoKeywords)
	}

	confidence := *reply.Confidence
	metrics.RecordKeywordConfidence(confidence)
	if confidence < 0 || confidence > 1 {
		metrics.RecordConfidenceOutOfRange()
		s.logger.Warn(ctx, "keyword confidence outside [0,1]; passing through", logger.Float64("confidence", confidence))
	}

	s.logger.Info(ctx, "extracted keywords", logger.Strings("keywords", keywords), logger.Float64("confidence", confidence))
	return model.KeywordExtractionOutcome{Keywords: keywords, Confidence: confidence}, nil
}
