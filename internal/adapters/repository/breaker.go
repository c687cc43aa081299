package repository

import (
	"context"
	"errors"
	"time"

	"github.com/okian/riskengine/pkg/logger"
	"github.com/okian/riskengine/pkg/metrics"
	"github.com/sony/gobreaker"
)

// BreakerSettings configures the circuit breaker in front of the database service.
type BreakerSettings struct {
	Name         string
	MaxRequests  uint32
	Interval     time.Duration
	Timeout      time.Duration
	FailureRatio float64
	MinRequests  uint32
}

// DefaultBreakerSettings trips after half of at least five requests fail.
func DefaultBreakerSettings() BreakerSettings {
	return BreakerSettings{
		Name:         "database-service",
		MaxRequests:  1,
		Interval:     time.Minute,
		Timeout:      30 * time.Second,
		FailureRatio: 0.5,
		MinRequests:  5,
	}
}

type breaker struct {
	cb *gobreaker.CircuitBreaker
}

func newBreaker(st BreakerSettings, log logger.Logger) *breaker {
	failureRatio := st.FailureRatio
	if failureRatio <= 0 {
		failureRatio = 0.5
	}
	minRequests := st.MinRequests
	if minRequests == 0 {
		minRequests = 5
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        st.Name,
		MaxRequests: st.MaxRequests,
		Interval:    st.Interval,
		Timeout:     st.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < minRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= failureRatio
		},
		IsSuccessful: func(err error) bool {
			// Caller-side rejections say nothing about the service.
			return err == nil || isNotFound(err) || errors.Is(err, ErrInvalidRiskID) || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn(context.Background(), "circuit breaker state changed",
				logger.String("name", name),
				logger.String("from", from.String()),
				logger.String("to", to.String()),
			)
			metrics.UpdateBreakerState(name, int(to))
		},
	})
	metrics.UpdateBreakerState(st.Name, int(gobreaker.StateClosed))
	return &breaker{cb: cb}
}

func (b *breaker) state() gobreaker.State { return b.cb.State() }

// execute runs fn behind the breaker and maps an open circuit to ErrServiceUnavailable.
func execute[T any](b *breaker, fn func() (T, error)) (T, error) {
	res, err := b.cb.Execute(func() (any, error) {
		return fn()
	})
	if err != nil {
		var zero T
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return zero, ErrServiceUnavailable
		}
		return zero, err
	}
	out, _ := res.(T)
	return out, nil
}
