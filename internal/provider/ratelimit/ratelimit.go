package ratelimit

import (
	"context"
	"sync"
	"time"

	"coingateway/internal/provider"
	"coingateway/internal/quote"
)

// MinInterval wraps a provider and enforces a minimum time between calls.
// Concurrent calls wait until the interval has elapsed since the last call,
// or return early if the context is canceled.
type MinInterval struct {
	P        provider.Provider
	Interval time.Duration

	mu   sync.Mutex
	last time.Time
}

func (m *MinInterval) Name() string { return m.P.Name() }

func (m *MinInterval) FetchBySymbol(ctx context.Context, symbol string) (quote.Quote, error) {
	if m.Interval > 0 {
		m.mu.Lock()
		wait := time.Until(m.last.Add(m.Interval))
		m.mu.Unlock()
		if wait > 0 {
			t := time.NewTimer(wait)
			defer t.Stop()
			select {
			case <-ctx.Done():
				return quote.Quote{}, ctx.Err()
			case <-t.C:
			}
		}
	}
	q, err := m.P.FetchBySymbol(ctx, symbol)
	if m.Interval > 0 {
		m.mu.Lock()
		m.last = time.Now()
		m.mu.Unlock()
	}
	return q, err
}

// Wrap applies the limiter the settings ask for: a token bucket when rpm > 0,
// a min interval otherwise, or p itself when both are unset.
func Wrap(p provider.Provider, rpm, burst int, minInterval time.Duration) provider.Provider {
	switch {
	case rpm > 0:
		if burst <= 0 {
			burst = 1
		}
		return &TokenBucketProvider{P: p, TB: NewTokenBucket(float64(rpm)/60.0, burst)}
	case minInterval > 0:
		return &MinInterval{P: p, Interval: minInterval}
	default:
		return p
	}
}
