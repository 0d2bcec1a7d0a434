package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"exchangerates/internal/provider"
)

const DefaultRedisPrefix = "exr:rate:"

// Redis keeps consensus results in a shared Redis so several instances can
// reuse each other's upstream calls. Backend faults degrade to a miss.
type Redis struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
	log    *zap.Logger
}

func NewRedis(client redis.UniversalClient, prefix string, ttl time.Duration, log *zap.Logger) *Redis {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Redis{client: client, prefix: prefix, ttl: ttl, log: log}
}

// Ping checks the connection to the Redis server.
func (r *Redis) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

func (r *Redis) key(key string) string { return r.prefix + key }

func (r *Redis) Get(ctx context.Context, key string) (provider.RateMap, bool) {
	b, err := r.client.Get(ctx, r.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		r.log.Warn("redis cache get failed", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	var rates provider.RateMap
	if err := json.Unmarshal(b, &rates); err != nil {
		r.log.Warn("redis cache entry is corrupt", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	if len(rates) == 0 {
		return nil, false
	}
	return rates, true
}

func (r *Redis) Put(ctx context.Context, key string, rates provider.RateMap) {
	b, err := json.Marshal(rates)
	if err != nil {
		r.log.Warn("redis cache encode failed", zap.String("key", key), zap.Error(err))
		return
	}
	// ttl 0 stores without expiry
	if err := r.client.Set(ctx, r.key(key), b, r.ttl).Err(); err != nil {
		r.log.Warn("redis cache set failed", zap.String("key", key), zap.Error(err))
	}
}
