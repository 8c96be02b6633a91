package collector

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/sony/gobreaker/v2"

	"SwingScanner/internal/model"
)

// BreakerSettings configures the circuit breaker around a provider.
type BreakerSettings struct {
	ConsecutiveFailures uint32        // trips the breaker
	OpenTimeout         time.Duration // open -> half-open
	HalfOpenRequests    uint32
}

// DefaultBreakerSettings trips after 3 consecutive failures and probes again after 1 minute.
func DefaultBreakerSettings() BreakerSettings {
	return BreakerSettings{ConsecutiveFailures: 3, OpenTimeout: time.Minute, HalfOpenRequests: 1}
}

// BreakerProvider fails fast while its upstream is known to be down.
// Missing or malformed instrument data is not an upstream failure and never trips it.
type BreakerProvider struct {
	Inner Provider
	cb    *gobreaker.CircuitBreaker[*model.RawHistory]
}

// NewBreakerProvider wraps inner. onState, if set, observes state transitions.
func NewBreakerProvider(inner Provider, s BreakerSettings, onState func(name string, from, to gobreaker.State)) *BreakerProvider {
	if s.ConsecutiveFailures == 0 {
		s.ConsecutiveFailures = DefaultBreakerSettings().ConsecutiveFailures
	}
	settings := gobreaker.Settings{
		Name:        inner.Name(),
		MaxRequests: s.HalfOpenRequests,
		Timeout:     s.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= s.ConsecutiveFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Printf("[WARN] provider %s circuit breaker: %s -> %s", name, from, to)
			if onState != nil {
				onState(name, from, to)
			}
		},
		IsSuccessful: func(err error) bool {
			return err == nil ||
				errors.Is(err, ErrNoData) ||
				errors.Is(err, ErrMalformedSeries) ||
				errors.Is(err, context.Canceled)
		},
	}
	return &BreakerProvider{
		Inner: inner,
		cb:    gobreaker.NewCircuitBreaker[*model.RawHistory](settings),
	}
}

func (p *BreakerProvider) Name() string { return p.Inner.Name() }

// State reports the current breaker state.
func (p *BreakerProvider) State() gobreaker.State { return p.cb.State() }

func (p *BreakerProvider) FetchHistory(ctx context.Context, symbol, lookback, interval string) (*model.RawHistory, error) {
	raw, err := p.cb.Execute(func() (*model.RawHistory, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return p.Inner.FetchHistory(ctx, symbol, lookback, interval)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("provider %s unavailable: %w", p.Inner.Name(), err)
	}
	return raw, err
}
