package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/riskengine/internal/domain/model"
	"github.com/okian/riskengine/pkg/metrics"
	"golang.org/x/time/rate"
)

// RateLimited shares one token bucket across every call to the wrapped provider.
type RateLimited struct {
	next    Provider
	limiter *rate.Limiter
}

// NewRateLimited wraps next with a limiter of perSecond requests and burst.
// A non-positive perSecond disables limiting.
func NewRateLimited(next Provider, perSecond float64, burst int) *RateLimited {
	limit := rate.Limit(perSecond)
	if perSecond <= 0 {
		limit = rate.Inf
	}
	if burst < 1 {
		burst = 1
	}
	return &RateLimited{next: next, limiter: rate.NewLimiter(limit, burst)}
}

func (r *RateLimited) wait(ctx context.Context) error {
	start := time.Now()
	if err := r.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrRateLimitWait, err)
	}
	metrics.RecordLLMRateLimitWait(float64(time.Since(start).Milliseconds()))
	return nil
}

// Generate waits for a token and forwards the call.
func (r *RateLimited) Generate(ctx context.Context, prompt string, params model.GenerationParams) (string, error) {
	if err := r.wait(ctx); err != nil {
		return "", err
	}
	return r.next.Generate(ctx, prompt, params)
}

// Health waits for a token and forwards the probe.
func (r *RateLimited) Health(ctx context.Context) bool {
	if err := r.wait(ctx); err != nil {
		return false
	}
	return r.next.Health(ctx)
}

// ListModels is not a generation and bypasses the limiter.
func (r *RateLimited) ListModels(ctx context.Context) ([]ModelInfo, error) {
	return r.next.ListModels(ctx)
}
