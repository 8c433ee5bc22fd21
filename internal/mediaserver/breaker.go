// Mirage - Personalized Virtual Media Libraries
// Copyright 2026 Mirage contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/miragelib/mirage

package mediaserver

import (
	"context"
	"errors"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/miragelib/mirage/internal/logging"
	"github.com/miragelib/mirage/internal/metrics"
)

// Ensure BreakerProvider implements Provider
var _ Provider = (*BreakerProvider)(nil)

// BreakerProvider wraps a Provider with a circuit breaker so a dead or slow
// media server fails runs fast instead of stalling them.
//
// The breaker uses real time (via sony/gobreaker) for its interval and
// timeout calculations.
type BreakerProvider struct {
	inner Provider
	cb    *gobreaker.CircuitBreaker[any]
	name  string
}

// NewBreakerProvider wraps a provider with circuit breaker protection.
// Breaker configuration:
// - Max 3 concurrent requests in half-open state
// - 1 minute measurement window
// - 2 minute timeout before attempting recovery
// - Opens after 60% failure rate with minimum 10 requests
func NewBreakerProvider(inner Provider, name string) *BreakerProvider {
	metrics.CircuitBreakerState.WithLabelValues(name).Set(0) // 0 = closed

	cb := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     2 * time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			shouldTrip := failureRatio >= 0.6
			if shouldTrip {
				logging.Warn().
					Uint32("failures", counts.TotalFailures).
					Float64("failure_rate", failureRatio*100).
					Str("breaker", name).
					Msg("[CIRCUIT BREAKER] Opening media server circuit")
			}
			return shouldTrip
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			fromStr := stateToString(from)
			toStr := stateToString(to)
			logging.Info().Str("breaker", name).Str("from", fromStr).Str("to", toStr).Msg("[CIRCUIT BREAKER] State transition")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, fromStr, toStr).Inc()
		},
	})

	return &BreakerProvider{inner: inner, cb: cb, name: name}
}

// execute wraps one provider call with circuit breaker protection.
func (b *BreakerProvider) execute(fn func() (any, error)) (any, error) {
	result, err := b.cb.Execute(fn)
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.ProviderRequests.WithLabelValues("rejected").Inc()
			logging.Warn().Err(err).Str("breaker", b.name).Msg("[CIRCUIT BREAKER] Request rejected")
		} else {
			metrics.ProviderRequests.WithLabelValues("failure").Inc()
		}
		return nil, err
	}
	metrics.ProviderRequests.WithLabelValues("success").Inc()
	return result, nil
}

// Ping tests connectivity with circuit breaker protection.
func (b *BreakerProvider) Ping(ctx context.Context) error {
	_, err := b.execute(func() (any, error) {
		return nil, b.inner.Ping(ctx)
	})
	return err
}

// GetLibraries lists libraries with circuit breaker protection.
func (b *BreakerProvider) GetLibraries(ctx context.Context) ([]Library, error) {
	result, err := b.execute(func() (any, error) {
		return b.inner.GetLibraries(ctx)
	})
	if err != nil {
		return nil, err
	}
	libs, ok := result.([]Library)
	if !ok {
		return nil, errors.New("circuit breaker: unexpected result type for GetLibraries")
	}
	return libs, nil
}

// CreateLibrary creates a library with circuit breaker protection.
func (b *BreakerProvider) CreateLibrary(ctx context.Context, name, collectionType string, paths []string) error {
	_, err := b.execute(func() (any, error) {
		return nil, b.inner.CreateLibrary(ctx, name, collectionType, paths)
	})
	return err
}

// RefreshLibrary triggers a scan with circuit breaker protection.
func (b *BreakerProvider) RefreshLibrary(ctx context.Context, libraryID string) error {
	_, err := b.execute(func() (any, error) {
		return nil, b.inner.RefreshLibrary(ctx, libraryID)
	})
	return err
}

// UserAccess reads a user policy with circuit breaker protection.
func (b *BreakerProvider) UserAccess(ctx context.Context, userID string) (AccessPolicy, error) {
	result, err := b.execute(func() (any, error) {
		return b.inner.UserAccess(ctx, userID)
	})
	if err != nil {
		return AccessPolicy{}, err
	}
	policy, ok := result.(AccessPolicy)
	if !ok {
		return AccessPolicy{}, errors.New("circuit breaker: unexpected result type for UserAccess")
	}
	return policy, nil
}

// SetUserAccess writes a user policy with circuit breaker protection.
func (b *BreakerProvider) SetUserAccess(ctx context.Context, userID string, policy AccessPolicy) error {
	_, err := b.execute(func() (any, error) {
		return nil, b.inner.SetUserAccess(ctx, userID, policy)
	})
	return err
}

// StreamURL is computed locally and bypasses the breaker.
func (b *BreakerProvider) StreamURL(externalItemID string) string {
	return b.inner.StreamURL(externalItemID)
}

func stateToString(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

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
