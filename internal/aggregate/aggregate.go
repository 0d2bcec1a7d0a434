package aggregate

import (
	"context"
	"fmt"
	"math"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"exchangerates/internal/cache"
	"exchangerates/internal/metrics"
	"exchangerates/internal/provider"
)

const DefaultProviderTimeout = 5 * time.Second

// Metrics is what the aggregator reports to. *metrics.Recorder satisfies it.
type Metrics interface {
	RecordRequest(name string)
	RecordResponse(name string)
	ObserveFetch(name, outcome string, d time.Duration)
	RecordCacheHit()
	RecordCacheMiss()
}

// Result is one provider's contribution to a round.
type Result struct {
	Provider string           `json:"provider"`
	Rates    provider.RateMap `json:"rates"`
	Err      error            `json:"-"`
}

// Aggregator fans a rate request out to every provider, averages what comes
// back and caches the consensus.
type Aggregator struct {
	providers []provider.Provider
	names     []string
	cache     cache.Cache
	metrics   Metrics
	log       *zap.Logger

	policy     Policy
	timeout    time.Duration
	sortedKeys bool

	group singleflight.Group
}

type Option func(*Aggregator)

func WithLogger(log *zap.Logger) Option {
	return func(a *Aggregator) {
		if log != nil {
			a.log = log
		}
	}
}

func WithPolicy(p Policy) Option {
	return func(a *Aggregator) { a.policy = p }
}

// WithProviderTimeout bounds each provider call. Zero disables the bound.
func WithProviderTimeout(d time.Duration) Option {
	return func(a *Aggregator) { a.timeout = d }
}

// WithSortedKeys makes the cache key independent of symbol order.
func WithSortedKeys(sorted bool) Option {
	return func(a *Aggregator) { a.sortedKeys = sorted }
}

// New builds an Aggregator over providers in registration order. A nil cache
// gets an unbounded in-memory one; nil metrics get an unregistered recorder.
func New(providers []provider.Provider, c cache.Cache, m Metrics, opts ...Option) *Aggregator {
	if c == nil {
		c = cache.NewMemory(0, 0)
	}
	if m == nil {
		m = metrics.NewRecorder(nil)
	}
	a := &Aggregator{
		providers: slices.Clone(providers),
		names:     make([]string, len(providers)),
		cache:     c,
		metrics:   m,
		log:       zap.NewNop(),
		policy:    PolicyAvailable,
		timeout:   DefaultProviderTimeout,
	}
	for i, p := range providers {
		a.names[i] = p.Name()
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Policy reports the consensus policy in use.
func (a *Aggregator) Policy() Policy { return a.policy }

// Providers returns the registered provider names in order.
func (a *Aggregator) Providers() []string { return slices.Clone(a.names) }

// GetRates returns the consensus rates of symbols against base. An empty map
// with a nil error means no provider could help; that outcome is not cached.
func (a *Aggregator) GetRates(ctx context.Context, base string, symbols []string) (provider.RateMap, error) {
	base, symbols, err := provider.NormalizeRequest(base, symbols)
	if err != nil {
		return nil, err
	}
	key := cache.Key(base, symbols, a.sortedKeys)

	if rates, ok := a.cache.Get(ctx, key); ok {
		a.metrics.RecordCacheHit()
		return rates, nil
	}
	a.metrics.RecordCacheMiss()

	// Identical concurrent misses share one round. The round is detached from
	// any single caller's cancellation; the per-provider timeout bounds it.
	ch := a.group.DoChan(key, func() (any, error) {
		return a.round(context.WithoutCancel(ctx), key, base, symbols)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(provider.RateMap).Clone(), nil
	}
}

func (a *Aggregator) round(ctx context.Context, key, base string, symbols []string) (provider.RateMap, error) {
	if rates, ok := a.cache.Get(ctx, key); ok {
		return rates, nil
	}

	results := a.fanOut(ctx, base, symbols)
	survivors := make([]provider.RateMap, 0, len(results))
	for _, r := range results {
		if len(r.Rates) > 0 {
			survivors = append(survivors, r.Rates)
		}
	}
	if len(survivors) == 0 {
		a.log.Warn("no provider returned rates",
			zap.String("base", base),
			zap.Strings("symbols", symbols),
			zap.Int("providers", len(results)),
		)
		return provider.RateMap{}, nil
	}

	rates, err := Consensus(survivors, symbols, a.policy)
	if err != nil {
		return nil, fmt.Errorf("consensus for %s: %w", key, err)
	}
	if len(rates) > 0 {
		a.cache.Put(ctx, key, rates)
	}
	return rates, nil
}

// FetchEach runs one uncached round and reports every provider's own answer,
// in registration order. Metrics are recorded as for GetRates.
func (a *Aggregator) FetchEach(ctx context.Context, base string, symbols []string) ([]Result, error) {
	base, symbols, err := provider.NormalizeRequest(base, symbols)
	if err != nil {
		return nil, err
	}
	return a.fanOut(ctx, base, symbols), nil
}

func (a *Aggregator) fanOut(ctx context.Context, base string, symbols []string) []Result {
	results := make([]Result, len(a.providers))
	var wg sync.WaitGroup
	for i, p := range a.providers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = a.call(ctx, p, a.names[i], base, symbols)
		}()
	}
	wg.Wait()
	return results
}

// call invokes one provider with instrumentation. It never panics and never
// returns invalid rates; any fault leaves Rates empty.
func (a *Aggregator) call(ctx context.Context, p provider.Provider, name, base string, symbols []string) (res Result) {
	res.Provider = name
	a.metrics.RecordRequest(name)
	start := time.Now()
	outcome := metrics.OutcomeError
	defer func() {
		if r := recover(); r != nil {
			outcome = metrics.OutcomePanic
			res.Rates = nil
			res.Err = fmt.Errorf("provider %s panicked: %v", name, r)
			a.log.Error("provider panicked", zap.String("provider", name), zap.Any("panic", r), zap.Stack("stack"))
		}
		a.metrics.ObserveFetch(name, outcome, time.Since(start))
	}()

	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	rates, err := p.Fetch(ctx, base, slices.Clone(symbols))
	if err != nil {
		res.Err = err
		a.log.Warn("provider fetch failed", zap.String("provider", name), zap.String("base", base), zap.Error(err))
		return res
	}
	res.Rates = sanitize(rates)
	if len(res.Rates) == 0 {
		outcome = metrics.OutcomeEmpty
		return res
	}
	outcome = metrics.OutcomeOK
	a.metrics.RecordResponse(name)
	return res
}

func sanitize(in provider.RateMap) provider.RateMap {
	out := make(provider.RateMap, len(in))
	for k, v := range in {
		if v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v) {
			out[k] = v
		}
	}
	return out
}
