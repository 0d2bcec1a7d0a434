package cache

import (
	"context"
	"slices"
	"strings"

	"exchangerates/internal/provider"
)

// Cache stores consensus rate maps by request key. Implementations are safe
// for concurrent use and hand out copies, never shared maps.
type Cache interface {
	Get(ctx context.Context, key string) (provider.RateMap, bool)
	Put(ctx context.Context, key string, rates provider.RateMap)
}

// Key builds the cache key BASE:SYM1,SYM2 for an already normalized request.
// With sorted false the client's symbol order is part of the key.
func Key(base string, symbols []string, sorted bool) string {
	if sorted {
		symbols = slices.Clone(symbols)
		slices.Sort(symbols)
	}
	return base + ":" + strings.Join(symbols, ",")
}
