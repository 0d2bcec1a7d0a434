package app

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"exchangerates/internal/aggregate"
	"exchangerates/internal/cache"
	"exchangerates/internal/config"
	"exchangerates/internal/httpx"
	"exchangerates/internal/metrics"
	"exchangerates/internal/provider"
	"exchangerates/internal/provider/fawaz"
	"exchangerates/internal/provider/frankfurter"
	"exchangerates/internal/provider/ratelimit"
)

// App holds the components shared by the server and the command line tools.
type App struct {
	Aggregator *aggregate.Aggregator
	Recorder   *metrics.Recorder
	Registry   *prometheus.Registry
	Cache      cache.Cache

	redis redis.UniversalClient
}

// New wires providers, cache, metrics and the aggregator from cfg.
func New(cfg config.Config, log *zap.Logger) (*App, error) {
	if log == nil {
		log = zap.NewNop()
	}
	policy, err := aggregate.ParsePolicy(cfg.Aggregate.Policy)
	if err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	rec := metrics.NewRecorder(reg)

	a := &App{Recorder: rec, Registry: reg}
	switch cfg.Cache.Backend {
	case "redis":
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		rc := cache.NewRedis(rdb, cfg.Redis.Prefix, cfg.Cache.TTL(), log.Named("cache"))
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		if err := rc.Ping(ctx); err != nil {
			log.Warn("redis unreachable, cache will miss until it recovers", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		}
		cancel()
		a.redis = rdb
		a.Cache = rc
	default:
		a.Cache = cache.NewMemory(cfg.Cache.TTL(), cfg.Cache.MaxEntries)
	}

	providers := Providers(cfg, httpx.New(cfg.Server.RequestTimeout()), log)
	if len(providers) == 0 {
		return nil, errors.New("no providers enabled")
	}
	a.Aggregator = aggregate.New(providers, a.Cache, rec,
		aggregate.WithLogger(log.Named("aggregate")),
		aggregate.WithPolicy(policy),
		aggregate.WithProviderTimeout(cfg.Aggregate.ProviderTimeout()),
		aggregate.WithSortedKeys(cfg.Cache.SortSymbols),
	)
	return a, nil
}

// Providers builds the enabled upstream adapters in registration order, each
// wrapped with its outbound rate limit.
func Providers(cfg config.Config, hc *httpx.Client, log *zap.Logger) []provider.Provider {
	var providers []provider.Provider
	if cfg.Fawaz.Enabled {
		p := fawaz.New(fawaz.Config{
			PrimaryURL:      cfg.Fawaz.PrimaryURL,
			FallbackURL:     cfg.Fawaz.FallbackURL,
			DisableFallback: cfg.Fawaz.DisableFallback,
		}, hc, log)
		providers = append(providers, limit(p, cfg.Fawaz.MaxRequestsPerMinute, cfg.Fawaz.Burst, cfg.Fawaz.MinRequestIntervalSec))
	}
	if cfg.Frankfurter.Enabled {
		opts := []frankfurter.ClientOption{
			frankfurter.WithHTTPClient(hc),
			frankfurter.WithLogger(log),
		}
		if cfg.Frankfurter.URL != "" {
			opts = append(opts, frankfurter.WithBaseURL(cfg.Frankfurter.URL))
		}
		p := frankfurter.NewClient(opts...)
		providers = append(providers, limit(p, cfg.Frankfurter.MaxRequestsPerMinute, cfg.Frankfurter.Burst, cfg.Frankfurter.MinRequestIntervalSec))
	}
	return providers
}

// limit prefers a token bucket when a per-minute budget is set, otherwise a
// minimum spacing between calls.
func limit(p provider.Provider, rpm, burst, minIntervalSec int) provider.Provider {
	if rpm > 0 {
		return &ratelimit.TokenBucketProvider{P: p, TB: ratelimit.NewTokenBucket(float64(rpm), burst)}
	}
	if minIntervalSec > 0 {
		return &ratelimit.MinInterval{P: p, Interval: time.Duration(minIntervalSec) * time.Second}
	}
	return p
}

// Close releases the Redis connection, if any.
func (a *App) Close() error {
	if a.redis != nil {
		return a.redis.Close()
	}
	return nil
}
