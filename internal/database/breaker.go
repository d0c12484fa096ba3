// alsrec - Implicit-Feedback Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/alsrec

package database

import (
	"context"
	"errors"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/alsrec/internal/logging"
	"github.com/tomtom215/alsrec/internal/metrics"
	"github.com/tomtom215/alsrec/internal/recommend/als"
)

// InteractionSource supplies training interactions.
type InteractionSource interface {
	GetInteractions(ctx context.Context) ([]als.InteractionRecord, error)
}

// BreakerConfig configures a BreakerSource.
type BreakerConfig struct {
	Name string

	// MaxFailures consecutive failures open the circuit.
	MaxFailures uint32

	// Timeout is how long the circuit stays open before a trial request.
	Timeout time.Duration
}

// DefaultBreakerConfig returns the production breaker settings.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		Name:        "interaction-source",
		MaxFailures: 3,
		Timeout:     time.Minute,
	}
}

// BreakerSource wraps an InteractionSource with a circuit breaker. After
// MaxFailures consecutive failures calls fail with gobreaker.ErrOpenState
// until Timeout has passed.
type BreakerSource struct {
	source InteractionSource
	cb     *gobreaker.CircuitBreaker[[]als.InteractionRecord]
	name   string
}

// NewBreakerSource wraps source.
func NewBreakerSource(source InteractionSource, cfg BreakerConfig) *BreakerSource {
	if cfg.Name == "" {
		cfg.Name = DefaultBreakerConfig().Name
	}
	if cfg.MaxFailures == 0 {
		cfg.MaxFailures = DefaultBreakerConfig().MaxFailures
	}

	metrics.CircuitBreakerState.WithLabelValues(cfg.Name).Set(0)

	cb := gobreaker.NewCircuitBreaker[[]als.InteractionRecord](gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: 1,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			trip := counts.ConsecutiveFailures >= cfg.MaxFailures
			if trip {
				logging.Warn().Uint32("consecutive_failures", counts.ConsecutiveFailures).Str("breaker", cfg.Name).Msg("opening circuit")
			}
			return trip
		},
		// Cancelled calls do not count as failures.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Info().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state transition")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
		},
	})

	return &BreakerSource{source: source, cb: cb, name: cfg.Name}
}

// GetInteractions calls the wrapped source unless the circuit is open.
func (b *BreakerSource) GetInteractions(ctx context.Context) ([]als.InteractionRecord, error) {
	records, err := b.cb.Execute(func() ([]als.InteractionRecord, error) {
		return b.source.GetInteractions(ctx)
	})
	switch {
	case err == nil:
		metrics.CircuitBreakerRequests.WithLabelValues(b.name, "success").Inc()
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.CircuitBreakerRequests.WithLabelValues(b.name, "rejected").Inc()
	default:
		metrics.CircuitBreakerRequests.WithLabelValues(b.name, "failure").Inc()
	}
	return records, err
}

// State returns the breaker state.
func (b *BreakerSource) State() gobreaker.State {
	return b.cb.State()
}

// stateToFloat converts circuit breaker state to its metric value.
func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}
