package fawaz

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"exchangerates/internal/provider"
)

const (
	DefaultName        = "fawazApi"
	DefaultPrimaryURL  = "https://cdn.jsdelivr.net/npm/@fawazahmed0/currency-api@latest/v1"
	DefaultFallbackURL = "https://currency-api.pages.dev/v1"
)

var errNoRates = errors.New("no usable rates in payload")

// HTTPClient describes an HTTP client.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

type Config struct {
	Name        string
	PrimaryURL  string
	FallbackURL string
	// DisableFallback skips the mirror even when the primary fails.
	DisableFallback bool
}

// Provider reads the currency-api daily dumps. The primary CDN is tried first
// and the mirror only when the primary yields nothing usable.
type Provider struct {
	cfg    Config
	client HTTPClient
	log    *zap.Logger
}

func New(cfg Config, hc HTTPClient, log *zap.Logger) *Provider {
	if cfg.Name == "" {
		cfg.Name = DefaultName
	}
	if cfg.PrimaryURL == "" {
		cfg.PrimaryURL = DefaultPrimaryURL
	}
	if cfg.FallbackURL == "" {
		cfg.FallbackURL = DefaultFallbackURL
	}
	cfg.PrimaryURL = strings.TrimRight(cfg.PrimaryURL, "/")
	cfg.FallbackURL = strings.TrimRight(cfg.FallbackURL, "/")
	if hc == nil {
		hc = http.DefaultClient
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Provider{cfg: cfg, client: hc, log: log.With(zap.String("provider", cfg.Name))}
}

func (p *Provider) Name() string { return p.cfg.Name }

func (p *Provider) Fetch(ctx context.Context, base string, symbols []string) (provider.RateMap, error) {
	base = strings.ToLower(strings.TrimSpace(base))
	rates, err := p.fetchFrom(ctx, p.cfg.PrimaryURL, base, symbols)
	if err == nil {
		return rates, nil
	}
	p.log.Warn("primary endpoint failed", zap.String("base", base), zap.Error(err))
	if p.cfg.DisableFallback || ctx.Err() != nil {
		return provider.RateMap{}, fmt.Errorf("%s: %w", p.cfg.Name, err)
	}

	rates, ferr := p.fetchFrom(ctx, p.cfg.FallbackURL, base, symbols)
	if ferr == nil {
		return rates, nil
	}
	if errors.Is(ferr, errNoRates) {
		// The mirror answered, it just has none of these symbols.
		return provider.RateMap{}, nil
	}
	p.log.Warn("fallback endpoint failed", zap.String("base", base), zap.Error(ferr))
	return provider.RateMap{}, fmt.Errorf("%s: primary: %v; fallback: %w", p.cfg.Name, err, ferr)
}

func (p *Provider) fetchFrom(ctx context.Context, root, base string, symbols []string) (provider.RateMap, error) {
	url := fmt.Sprintf("%s/currencies/%s.json", root, base)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	res, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("performing request: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(res.Body, 2<<10))
		return nil, fmt.Errorf("GET %s -> %d: %s", url, res.StatusCode, strings.TrimSpace(string(b)))
	}

	// {"date": "2024-03-06", "eur": {"usd": 1.0854, "nzd": 1.7788, ...}}
	var body map[string]json.RawMessage
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	var inner map[string]json.RawMessage
	if raw, ok := body[base]; !ok || json.Unmarshal(raw, &inner) != nil {
		return nil, fmt.Errorf("decoding response: missing %q object", base)
	}
	rates := provider.PickRates(inner, symbols)
	if len(rates) == 0 {
		return nil, errNoRates
	}
	return rates, nil
}
