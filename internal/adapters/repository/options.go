package repository

import (
	"net/http"
	"time"

	"github.com/okian/riskengine/pkg/logger"
)

// Default client configuration constants.
const (
	DefaultTimeout           = 30 * time.Second
	DefaultHealthTimeout     = 5 * time.Second
	DefaultMaxSearchKeywords = 3
)

// Option applies a configuration option to the HTTPClient.
type Option func(*HTTPClient)

// WithTimeout bounds every request except the health probe.
func WithTimeout(d time.Duration) Option {
	return func(c *HTTPClient) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithHealthTimeout bounds the health probe.
func WithHealthTimeout(d time.Duration) Option {
	return func(c *HTTPClient) {
		if d > 0 {
			c.healthTimeout = d
		}
	}
}

// WithHTTPClient replaces the underlying transport client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *HTTPClient) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithMaxSearchKeywords sets how many keywords a search issues requests for.
func WithMaxSearchKeywords(n int) Option {
	return func(c *HTTPClient) {
		if n > 0 {
			c.maxKeywords = n
		}
	}
}

// WithBreakerSettings configures the circuit breaker.
func WithBreakerSettings(st BreakerSettings) Option {
	return func(c *HTTPClient) {
		if st.Name == "" {
			st.Name = DefaultBreakerSettings().Name
		}
		c.breakerSettings = st
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(c *HTTPClient) {
		if l != nil {
			c.logger = l
		}
	}
}
