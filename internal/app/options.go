package service

import (
	"github.com/okian/riskengine/internal/adapters/llm"
	"github.com/okian/riskengine/internal/domain/assess"
	"github.com/okian/riskengine/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithRepository replaces the repository built from config.
func WithRepository(repo assess.Repository) Option {
	return func(s *Service) {
		if repo != nil {
			s.repo = repo
		}
	}
}

// WithProvider replaces the generation provider built from config.
// The provider is still wrapped in the configured rate limiter.
func WithProvider(p llm.Provider) Option {
	return func(s *Service) {
		if p != nil {
			s.provider = p
		}
	}
}

// WithVersion sets the version reported by health and info endpoints.
func WithVersion(v string) Option {
	return func(s *Service) {
		if v != "" {
			s.version = v
		}
	}
}

// WithAssessOptions appends orchestrator options after the config derived ones.
func WithAssessOptions(opts ...assess.Option) Option {
	return func(s *Service) {
		s.assessOpts = append(s.assessOpts, opts...)
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}
