package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidRequest is returned when a rate request has no usable base or symbols.
var ErrInvalidRequest = errors.New("invalid rate request")

// RateMap maps a target currency code to the amount of that currency one unit
// of the base buys. Values are positive and finite; codes are uppercase.
type RateMap map[string]float64

// Clone returns an independent copy of m.
func (m RateMap) Clone() RateMap {
	out := make(RateMap, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Provider is a single upstream source of exchange rates.
//
// Fetch returns a non-nil error when the upstream could not be reached or its
// payload could not be understood. An upstream that answered but had none of
// the requested symbols returns an empty map and a nil error. Symbols the
// upstream does not know are omitted from the result.
//
//go:generate mockgen -package=aggregate_test -destination=../aggregate/mock_provider_test.go -source=provider.go Provider
type Provider interface {
	Name() string
	Fetch(ctx context.Context, base string, symbols []string) (RateMap, error)
}

// NormalizeRequest trims and uppercases the base and the symbols, drops blank
// and duplicate symbols while keeping first-seen order.
func NormalizeRequest(base string, symbols []string) (string, []string, error) {
	base = strings.ToUpper(strings.TrimSpace(base))
	if base == "" {
		return "", nil, fmt.Errorf("%w: empty base currency", ErrInvalidRequest)
	}
	seen := make(map[string]struct{}, len(symbols))
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	if len(out) == 0 {
		return "", nil, fmt.Errorf("%w: no symbols requested", ErrInvalidRequest)
	}
	return base, out, nil
}

// SplitCSV splits a comma-separated list, trimming blanks.
func SplitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
