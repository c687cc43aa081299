package llm

import (
	"net/http"
	"strings"
	"time"

	"github.com/okian/riskengine/pkg/logger"
)

// Default client configuration constants.
const (
	DefaultModel   = "gemini-2.0-flash"
	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai/"
	DefaultTimeout = 60 * time.Second

	healthPrompt    = "Say 'OK' if you can respond"
	healthMaxTokens = 10
)

// Option applies a configuration option to the OpenAIClient.
type Option func(*OpenAIClient)

// WithModel sets the model name sent with every request.
func WithModel(name string) Option {
	return func(c *OpenAIClient) {
		if strings.TrimSpace(name) != "" {
			c.model = name
		}
	}
}

// WithBaseURL points the client at an OpenAI-compatible endpoint.
func WithBaseURL(url string) Option {
	return func(c *OpenAIClient) {
		if strings.TrimSpace(url) != "" {
			c.baseURL = url
		}
	}
}

// WithTimeout bounds a single generation request.
func WithTimeout(d time.Duration) Option {
	return func(c *OpenAIClient) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithHTTPClient replaces the transport used for requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *OpenAIClient) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithSystemPrompt sets an optional system message sent before each prompt.
func WithSystemPrompt(prompt string) Option {
	return func(c *OpenAIClient) {
		c.systemPrompt = prompt
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(c *OpenAIClient) {
		if l != nil {
			c.logger = l
		}
	}
}
