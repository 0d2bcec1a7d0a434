package aggregate

import (
	"errors"
	"fmt"
	"strings"

	"exchangerates/internal/provider"
)

// ErrMissingSymbol is returned by the strict policy when a surviving provider
// lacks a symbol the first surviving provider supplied.
var ErrMissingSymbol = errors.New("symbol missing from provider result")

// Policy selects how per-provider results are reconciled.
type Policy int

const (
	// PolicyAvailable averages each requested symbol over the providers that
	// supplied it. Symbols nobody supplied are omitted.
	PolicyAvailable Policy = iota
	// PolicyStrict takes the first result's symbols as the reference set and
	// requires every other result to supply each of them.
	PolicyStrict
)

func (p Policy) String() string {
	switch p {
	case PolicyAvailable:
		return "available"
	case PolicyStrict:
		return "strict"
	default:
		return fmt.Sprintf("Policy(%d)", int(p))
	}
}

// ParsePolicy maps a config value to a Policy. Empty means PolicyAvailable.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "available", "hardened":
		return PolicyAvailable, nil
	case "strict":
		return PolicyStrict, nil
	default:
		return 0, fmt.Errorf("unknown consensus policy %q", s)
	}
}

// Consensus reduces non-empty provider results, in registration order, to one
// rate per symbol using the arithmetic mean.
func Consensus(results []provider.RateMap, symbols []string, policy Policy) (provider.RateMap, error) {
	if len(results) == 0 {
		return provider.RateMap{}, nil
	}
	switch policy {
	case PolicyStrict:
		return strictMean(results)
	default:
		return availableMean(results, symbols), nil
	}
}

func availableMean(results []provider.RateMap, symbols []string) provider.RateMap {
	out := make(provider.RateMap, len(symbols))
	for _, s := range symbols {
		var sum float64
		var n int
		for _, r := range results {
			if v, ok := r[s]; ok {
				sum += v
				n++
			}
		}
		if n > 0 {
			out[s] = sum / float64(n)
		}
	}
	return out
}

func strictMean(results []provider.RateMap) (provider.RateMap, error) {
	out := make(provider.RateMap, len(results[0]))
	for s := range results[0] {
		var sum float64
		for i, r := range results {
			v, ok := r[s]
			if !ok {
				return nil, fmt.Errorf("%w: %s absent from result %d", ErrMissingSymbol, s, i)
			}
			sum += v
		}
		out[s] = sum / float64(len(results))
	}
	return out, nil
}
