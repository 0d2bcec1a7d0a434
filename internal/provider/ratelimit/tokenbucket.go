package ratelimit

import (
	"context"

	"golang.org/x/time/rate"

	"exchangerates/internal/provider"
)

// NewTokenBucket returns a limiter refilling requestsPerMinute tokens per
// minute with room for burst calls at once.
func NewTokenBucket(requestsPerMinute float64, burst int) *rate.Limiter {
	if burst <= 0 {
		burst = 1
	}
	if requestsPerMinute <= 0 {
		return rate.NewLimiter(rate.Inf, burst)
	}
	return rate.NewLimiter(rate.Limit(requestsPerMinute/60), burst)
}

// TokenBucketProvider wraps a Provider and gates calls using a token bucket.
type TokenBucketProvider struct {
	P  provider.Provider
	TB *rate.Limiter
}

func (t *TokenBucketProvider) Name() string { return t.P.Name() }

func (t *TokenBucketProvider) Fetch(ctx context.Context, base string, symbols []string) (provider.RateMap, error) {
	if t.TB != nil {
		if err := t.TB.Wait(ctx); err != nil {
			return provider.RateMap{}, err
		}
	}
	return t.P.Fetch(ctx, base, symbols)
}
