package ratelimit_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"exchangerates/internal/provider"
	"exchangerates/internal/provider/ratelimit"
)

type countingProvider struct {
	calls atomic.Int32
}

func (c *countingProvider) Name() string { return "counting" }

func (c *countingProvider) Fetch(context.Context, string, []string) (provider.RateMap, error) {
	c.calls.Add(1)
	return provider.RateMap{"USD": 1.1}, nil
}

func TestMinInterval_SpacesCalls(t *testing.T) {
	t.Parallel()

	// Arrange
	inner := &countingProvider{}
	p := &ratelimit.MinInterval{P: inner, Interval: 50 * time.Millisecond}

	// Act: three back-to-back calls
	start := time.Now()
	for range 3 {
		_, err := p.Fetch(t.Context(), "EUR", []string{"USD"})
		require.NoError(t, err)
	}

	// Assert: at least two intervals elapsed and the name is preserved
	require.GreaterOrEqual(t, time.Since(start), 100*time.Millisecond)
	require.Equal(t, int32(3), inner.calls.Load())
	require.Equal(t, "counting", p.Name())
}

func TestMinInterval_Canceled(t *testing.T) {
	t.Parallel()

	inner := &countingProvider{}
	p := &ratelimit.MinInterval{P: inner, Interval: time.Hour}

	_, err := p.Fetch(t.Context(), "EUR", []string{"USD"})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(t.Context(), 20*time.Millisecond)
	defer cancel()
	rates, err := p.Fetch(ctx, "EUR", []string{"USD"})

	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Empty(t, rates)
	require.Equal(t, int32(1), inner.calls.Load())
}

func TestTokenBucketProvider_Burst(t *testing.T) {
	t.Parallel()

	// Arrange: one request per minute with a burst of two
	inner := &countingProvider{}
	p := &ratelimit.TokenBucketProvider{P: inner, TB: ratelimit.NewTokenBucket(1, 2)}

	// Act: the burst passes immediately
	for range 2 {
		_, err := p.Fetch(t.Context(), "EUR", []string{"USD"})
		require.NoError(t, err)
	}

	// Act: the third call cannot get a token before the deadline
	ctx, cancel := context.WithTimeout(t.Context(), 20*time.Millisecond)
	defer cancel()
	_, err := p.Fetch(ctx, "EUR", []string{"USD"})

	// Assert
	require.Error(t, err)
	require.Equal(t, int32(2), inner.calls.Load())
}

func TestNewTokenBucket_Unlimited(t *testing.T) {
	t.Parallel()

	inner := &countingProvider{}
	p := &ratelimit.TokenBucketProvider{P: inner, TB: ratelimit.NewTokenBucket(0, 0)}

	for range 10 {
		_, err := p.Fetch(t.Context(), "EUR", []string{"USD"})
		require.NoError(t, err)
	}
	require.Equal(t, int32(10), inner.calls.Load())
}
