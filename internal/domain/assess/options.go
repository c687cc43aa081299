package assess

import (
	"time"

	"github.com/okian/riskengine/internal/domain/model"
	"github.com/okian/riskengine/pkg/logger"
)

// Default pipeline configuration constants.
const (
	DefaultTopN              = 3
	DefaultMaxCandidates     = 30
	DefaultMaxSearchKeywords = 3
	DefaultMaxTokens         = 2048
)

// DefaultFallbackKeywords are searched when extracted keywords match nothing.
func DefaultFallbackKeywords() []string {
	return []string{"data", "model", "security", "privacy", "governance"}
}

// Option applies a configuration option to the Orchestrator.
type Option func(*Orchestrator)

// WithTopN sets the fixed number of risks per result.
func WithTopN(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.topN = n
		}
	}
}

// WithMaxCandidates bounds the candidate set passed to ranking.
func WithMaxCandidates(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.maxCandidates = n
		}
	}
}

// WithMaxSearchKeywords bounds the keywords passed to a search.
func WithMaxSearchKeywords(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.maxSearchKeywords = n
		}
	}
}

// WithFallbackKeywords replaces the fallback search terms.
func WithFallbackKeywords(keywords []string) Option {
	return func(o *Orchestrator) {
		if len(keywords) > 0 {
			o.fallbackKeywords = append([]string(nil), keywords...)
		}
	}
}

// WithGenerationParams sets temperature and output size for both LLM stages.
func WithGenerationParams(params model.GenerationParams) Option {
	return func(o *Orchestrator) {
		o.params = params
	}
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}
