package ratelimit

import (
	"context"
	"sync"
	"time"

	"exchangerates/internal/provider"
)

// MinInterval wraps a provider and enforces a minimum time between calls.
// Concurrent calls will wait until the interval has elapsed since the last call,
// or return early if the context is canceled.
type MinInterval struct {
	P        provider.Provider
	Interval time.Duration

	mu   sync.Mutex
	next time.Time
}

func (m *MinInterval) Name() string { return m.P.Name() }

func (m *MinInterval) Fetch(ctx context.Context, base string, symbols []string) (provider.RateMap, error) {
	if m.Interval > 0 {
		// reserve a slot so concurrent callers queue instead of stampeding
		m.mu.Lock()
		now := time.Now()
		slot := m.next
		if slot.Before(now) {
			slot = now
		}
		m.next = slot.Add(m.Interval)
		m.mu.Unlock()

		if wait := time.Until(slot); wait > 0 {
			t := time.NewTimer(wait)
			defer t.Stop()
			select {
			case <-ctx.Done():
				return provider.RateMap{}, ctx.Err()
			case <-t.C:
			}
		}
	}
	return m.P.Fetch(ctx, base, symbols)
}
