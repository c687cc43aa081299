// Package service wires the assessment pipeline to its collaborators and
// implements the dependencies required by the HTTP API and the CLI.
package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/okian/riskengine/internal/adapters/llm"
	eventqueue "github.com/okian/riskengine/internal/adapters/mq/queue"
	workerpool "github.com/okian/riskengine/internal/adapters/mq/worker"
	"github.com/okian/riskengine/internal/adapters/repository"
	"github.com/okian/riskengine/internal/config"
	"github.com/okian/riskengine/internal/domain/assess"
	"github.com/okian/riskengine/internal/domain/model"
	"github.com/okian/riskengine/pkg/logger"
	"github.com/okian/riskengine/pkg/metrics"
)

// DefaultVersion is reported when no build version is set.
const DefaultVersion = "1.0.0"

// Health is the dependency status of the service.
type Health struct {
	Database bool `json:"database_service"`
	LLM      bool `json:"llm_service"`
}

// Healthy reports whether every dependency answered.
func (h Health) Healthy() bool { return h.Database && h.LLM }

// Service implements the API dependencies for the risk assessment system.
type Service struct {
	cfg *config.Config

	repo       assess.Repository
	provider   llm.Provider
	orch       *assess.Orchestrator
	assessOpts []assess.Option

	version string
	logger  logger.Logger
}

// New builds the repository, generator and orchestrator described by cfg.
// Collaborators injected through options take precedence.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*Service, error) {
	s := &Service{
		cfg:     cfg,
		version: DefaultVersion,
		logger:  logger.Get().Named("service"),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.repo == nil {
		repo, err := newRepository(cfg, s.logger)
		if err != nil {
			return nil, err
		}
		s.repo = repo
	}
	if s.provider == nil {
		p, err := newProvider(cfg)
		if err != nil {
			return nil, err
		}
		s.provider = p
	}
	s.provider = llm.NewRateLimited(s.provider, cfg.LLMRateLimit, cfg.LLMRateBurst)

	params := model.GenerationParams{
		Temperature: cfg.LLMTemperature,
		MaxTokens:   cfg.LLMMaxTokens,
	}
	base := []assess.Option{
		assess.WithTopN(cfg.TopN),
		assess.WithMaxCandidates(cfg.MaxCandidateRisks),
		assess.WithMaxSearchKeywords(cfg.MaxSearchKeywords),
		assess.WithFallbackKeywords(cfg.FallbackKeywords),
		assess.WithGenerationParams(params),
	}
	s.orch = assess.NewOrchestrator(s.provider, s.repo, append(base, s.assessOpts...)...)

	s.logger.Info(ctx, "risk assessment service ready",
		logger.String("llm_provider", cfg.LLMProvider),
		logger.String("llm_model", cfg.LLMModel),
		logger.Int("top_n", s.orch.TopN()),
		logger.Int("max_candidates", cfg.MaxCandidateRisks),
	)
	return s, nil
}

func newRepository(cfg *config.Config, log logger.Logger) (assess.Repository, error) {
	switch {
	case cfg.DatabaseServiceURL != "":
		return repository.NewHTTPClient(cfg.DatabaseServiceURL,
			repository.WithTimeout(cfg.DatabaseTimeout()),
			repository.WithMaxSearchKeywords(cfg.MaxSearchKeywords),
			repository.WithBreakerSettings(repository.BreakerSettings{
				Name:         "database-service",
				MaxRequests:  cfg.BreakerMaxRequests,
				Interval:     cfg.BreakerInterval(),
				Timeout:      cfg.BreakerTimeout(),
				FailureRatio: cfg.BreakerFailureRatio,
				MinRequests:  cfg.BreakerMinRequests,
			}),
			repository.WithLogger(log.Named("repository")),
		), nil
	case cfg.CatalogFile != "":
		c, err := repository.LoadCatalog(cfg.CatalogFile)
		if err != nil {
			return nil, fmt.Errorf("load catalog: %w", err)
		}
		return c, nil
	default:
		return nil, ErrNoRiskSource
	}
}

func newProvider(cfg *config.Config) (llm.Provider, error) {
	if cfg.LLMProvider == config.ProviderScripted {
		return llm.NewScripted(llm.WithScriptedTopN(cfg.TopN)), nil
	}
	c, err := llm.NewOpenAIClient(cfg.LLMAPIKey,
		llm.WithModel(cfg.LLMModel),
		llm.WithBaseURL(cfg.LLMBaseURL),
		llm.WithTimeout(cfg.LLMTimeout()),
	)
	if err != nil {
		return nil, fmt.Errorf("llm client: %w", err)
	}
	return c, nil
}

// Name returns the configured service name.
func (s *Service) Name() string { return s.cfg.ServiceName }

// Version returns the service version.
func (s *Service) Version() string { return s.version }

// TopN returns the fixed number of risks in every result.
func (s *Service) TopN() int { return s.orch.TopN() }

// Assess runs the pipeline for one proposal. It never fails; a degraded
// result carries sentinel entries.
func (s *Service) Assess(ctx context.Context, p model.Proposal) model.RiskAssessmentResult { //nolint:gocritic // hugeParam: proposal is immutable input
	out := s.orch.Run(ctx, p)
	if out.State == assess.StateDegraded {
		s.logger.Warn(ctx, "assessment degraded",
			logger.String("assessment_id", out.Result.AssessmentID),
			logger.String("title", p.DisplayTitle()),
			logger.Error(out.Err),
		)
	}
	return out.Result
}

// AssessBatch assesses every job through the bounded queue and worker pool
// and returns the results in submission order.
func (s *Service) AssessBatch(ctx context.Context, jobs []model.Job, workers int) ([]model.JobResult, error) {
	if len(jobs) > s.cfg.BatchQueueSize {
		return nil, fmt.Errorf("%w: %d > %d", ErrBatchTooLarge, len(jobs), s.cfg.BatchQueueSize)
	}
	if workers < 1 {
		workers = s.cfg.BatchWorkers
	}
	if workers > len(jobs) && len(jobs) > 0 {
		workers = len(jobs)
	}

	q := eventqueue.NewInMemoryQueue(eventqueue.WithCapacity(s.cfg.BatchQueueSize))
	sink := workerpool.NewCollector(len(jobs))
	pool := workerpool.NewPool(workers, q, s.orch, sink)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	pool.Start(runCtx)

	start := time.Now()
	for i := range jobs {
		j := jobs[i]
		j.Seq = i
		if j.ID == "" {
			j.ID = uuid.NewString()
		}
		if j.Name == "" {
			j.Name = strconv.Itoa(i)
		}
		if !q.Enqueue(runCtx, j) {
			_ = pool.Shutdown(ctx)
			if err := runCtx.Err(); err != nil {
				return nil, fmt.Errorf("%w: %s: %w", ErrEnqueue, j.Name, err)
			}
			return nil, fmt.Errorf("%w: %s", ErrEnqueue, j.Name)
		}
	}
	_ = q.Close()

	if err := pool.Wait(ctx); err != nil {
		return nil, err
	}

	results := sink.Results()
	if len(results) != len(jobs) {
		err := fmt.Errorf("%w: %d of %d jobs assessed", ErrBatchIncomplete, len(results), len(jobs))
		if cause := ctx.Err(); cause != nil {
			err = fmt.Errorf("%w: %w", err, cause)
		}
		return nil, err
	}
	s.logger.Info(ctx, "batch assessed",
		logger.Int("jobs", len(jobs)),
		logger.Int("workers", pool.Size()),
		logger.Duration("elapsed", time.Since(start)),
	)
	return results, nil
}

// Reload re-reads the risk catalog file. Only the catalog repository
// supports it.
func (s *Service) Reload(ctx context.Context) error {
	r, ok := s.repo.(interface{ Reload() error })
	if !ok {
		return ErrReloadUnsupported
	}
	if err := r.Reload(); err != nil {
		return fmt.Errorf("reload catalog: %w", err)
	}
	s.logger.Info(ctx, "risk catalog reloaded", logger.String("file", s.cfg.CatalogFile))
	return nil
}

// Health probes the risk repository and the generation service in parallel.
func (s *Service) Health(ctx context.Context) Health {
	var h Health
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		h.Database = s.repo.Health(gctx)
		return nil
	})
	g.Go(func() error {
		h.LLM = s.provider.Health(gctx)
		return nil
	})
	_ = g.Wait()

	metrics.UpdateDependencyHealth("database_service", h.Database)
	metrics.UpdateDependencyHealth("llm_service", h.LLM)
	return h
}

// Models lists the models offered by the generation service.
func (s *Service) Models(ctx context.Context) ([]llm.ModelInfo, error) {
	models, err := s.provider.ListModels(ctx)
	if err != nil {
		return nil, fmt.Errorf("list models: %w", err)
	}
	return models, nil
}
