package config

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Environment variables read outside the RISK_ prefix.
const (
	envConfigFile = "RISK_CONFIG"
	envPrefix     = "RISK_"
)

// API key variables consulted when llm_api_key is empty, in order.
var apiKeyFallbacks = []string{"GEMINI_API_KEY", "OPENAI_API_KEY"} //nolint:gochecknoglobals // fixed lookup order

// Keys whose env values are comma separated lists.
var listKeys = map[string]bool{ //nolint:gochecknoglobals // fixed key set
	"fallback_keywords":    true,
	"cors_allowed_origins": true,
}

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New(ctx))
//  2. file (YAML) if RISK_CONFIG is set
//  3. env (prefix RISK_)
func Load(ctx context.Context) (*Config, error) {
	base := New(ctx)

	k := koanf.New(".")

	if path := os.Getenv(envConfigFile); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
		}
	}

	// RISK_TOP_N -> top_n. Underscores are kept to match the koanf tags.
	envProvider := env.ProviderWithValue(envPrefix, ".", func(key, value string) (string, any) {
		key = strings.TrimPrefix(strings.ToLower(key), strings.ToLower(envPrefix))
		if key == "config" {
			return "", nil
		}
		if listKeys[key] {
			return key, splitList(value)
		}
		return key, value
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if cfg.LLMAPIKey == "" {
		for _, name := range apiKeyFallbacks {
			if v := os.Getenv(name); v != "" {
				cfg.LLMAPIKey = v
				break
			}
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.TopN < 1:
		return fmt.Errorf("%w: top_n must be at least 1, got %d", ErrInvalidConfig, c.TopN)
	case c.MaxCandidateRisks < c.TopN:
		return fmt.Errorf("%w: max_candidate_risks (%d) must be at least top_n (%d)", ErrInvalidConfig, c.MaxCandidateRisks, c.TopN)
	case c.MaxSearchKeywords < 1:
		return fmt.Errorf("%w: max_search_keywords must be at least 1", ErrInvalidConfig)
	case len(c.FallbackKeywords) == 0:
		return fmt.Errorf("%w: fallback_keywords must not be empty", ErrInvalidConfig)
	}

	switch c.LLMProvider {
	case ProviderScripted:
	case ProviderOpenAI:
		if c.LLMAPIKey == "" && !isLoopback(c.LLMBaseURL) {
			return fmt.Errorf("%w: llm_api_key (or GEMINI_API_KEY) is required for %s", ErrInvalidConfig, c.LLMBaseURL)
		}
	default:
		return fmt.Errorf("%w: unknown llm_provider %q", ErrInvalidConfig, c.LLMProvider)
	}

	if c.DatabaseServiceURL == "" && c.CatalogFile == "" {
		return fmt.Errorf("%w: database_service_url or catalog_file must be set", ErrInvalidConfig)
	}
	return nil
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func isLoopback(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	host := u.Hostname()
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
