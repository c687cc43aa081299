// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New(ctx) to build a Config with defaults.
// - Load layers a YAML file and RISK_* environment variables on top.
// - Validation failures wrap ErrInvalidConfig.
package config

import (
	"context"
	"time"
)

// LLM providers.
const (
	ProviderOpenAI   = "openai"
	ProviderScripted = "scripted"
)

// Config contains process configuration.
type Config struct {
	// ServiceName is reported by / and /api/health and tags traces.
	ServiceName string `koanf:"service_name"`

	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFile mirrors logs into a rotating file when set.
	LogFile string `koanf:"log_file"`

	// Addr configures the HTTP listen address, e.g. ":5005".
	Addr string `koanf:"addr"`

	// LLMProvider selects the generation backend: openai or scripted.
	LLMProvider string `koanf:"llm_provider"`

	// LLMModel is the model name sent with every generation request.
	LLMModel string `koanf:"llm_model"`

	// LLMBaseURL is the OpenAI-compatible endpoint.
	LLMBaseURL string `koanf:"llm_base_url"`

	// LLMAPIKey authenticates against LLMBaseURL.
	LLMAPIKey string `koanf:"llm_api_key"`

	LLMTemperature float32 `koanf:"llm_temperature"`
	LLMMaxTokens   int     `koanf:"llm_max_tokens"`
	LLMTimeoutMS   int     `koanf:"llm_timeout_ms"`

	// LLMRateLimit is requests per second shared by all generation calls.
	LLMRateLimit float64 `koanf:"llm_rate_limit"`
	LLMRateBurst int     `koanf:"llm_rate_burst"`

	// DatabaseServiceURL is the risk database REST API. Empty selects CatalogFile.
	DatabaseServiceURL string `koanf:"database_service_url"`
	DatabaseTimeoutMS  int    `koanf:"database_timeout_ms"`

	// CatalogFile is a YAML risk catalog used when no database service is set.
	CatalogFile string `koanf:"catalog_file"`

	// TopN is the fixed number of risks in every result.
	TopN int `koanf:"top_n"`

	// MaxCandidateRisks bounds the candidates shown to the ranking stage.
	MaxCandidateRisks int `koanf:"max_candidate_risks"`

	// MaxSearchKeywords bounds the keywords used per search.
	MaxSearchKeywords int `koanf:"max_search_keywords"`

	// FallbackKeywords are searched when extracted keywords find nothing.
	FallbackKeywords []string `koanf:"fallback_keywords"`

	BreakerMaxRequests  uint32  `koanf:"breaker_max_requests"`
	BreakerIntervalMS   int     `koanf:"breaker_interval_ms"`
	BreakerTimeoutMS    int     `koanf:"breaker_timeout_ms"`
	BreakerFailureRatio float64 `koanf:"breaker_failure_ratio"`
	BreakerMinRequests  uint32  `koanf:"breaker_min_requests"`

	// TraceStdout exports spans to stdout.
	TraceStdout bool `koanf:"trace_stdout"`

	// CORSAllowedOrigins lists origins allowed by the HTTP API.
	CORSAllowedOrigins []string `koanf:"cors_allowed_origins"`

	// BatchWorkers and BatchQueueSize size batch assessment.
	BatchWorkers   int `koanf:"batch_workers"`
	BatchQueueSize int `koanf:"batch_queue_size"`
}

// New creates a Config with defaults. Context is accepted first to satisfy
// the project-wide convention.
func New(_ context.Context) *Config {
	return &Config{
		ServiceName:         "risk-assessment-service",
		LogLevel:            "info",
		Addr:                ":5005",
		LLMProvider:         ProviderOpenAI,
		LLMModel:            "gemini-2.0-flash",
		LLMBaseURL:          "https://generativelanguage.googleapis.com/v1beta/openai/",
		LLMTemperature:      0,
		LLMMaxTokens:        2048,
		LLMTimeoutMS:        60_000,
		LLMRateLimit:        5,
		LLMRateBurst:        5,
		DatabaseServiceURL:  "http://localhost:5001",
		DatabaseTimeoutMS:   30_000,
		TopN:                3,
		MaxCandidateRisks:   30,
		MaxSearchKeywords:   3,
		FallbackKeywords:    []string{"data", "model", "security", "privacy", "governance"},
		BreakerMaxRequests:  1,
		BreakerIntervalMS:   60_000,
		BreakerTimeoutMS:    30_000,
		BreakerFailureRatio: 0.5,
		BreakerMinRequests:  5,
		CORSAllowedOrigins:  []string{"*"},
		BatchWorkers:        4,
		BatchQueueSize:      64,
	}
}

// LLMTimeout returns the generation request timeout.
func (c *Config) LLMTimeout() time.Duration { return ms(c.LLMTimeoutMS) }

// DatabaseTimeout returns the database service request timeout.
func (c *Config) DatabaseTimeout() time.Duration { return ms(c.DatabaseTimeoutMS) }

// BreakerInterval returns the closed-state counting window.
func (c *Config) BreakerInterval() time.Duration { return ms(c.BreakerIntervalMS) }

// BreakerTimeout returns how long the breaker stays open.
func (c *Config) BreakerTimeout() time.Duration { return ms(c.BreakerTimeoutMS) }

func ms(v int) time.Duration { return time.Duration(v) * time.Millisecond }
