package frankfurter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"exchangerates/internal/provider"
)

type latestResponse struct {
	Amount float64                    `json:"amount"`
	Base   string                     `json:"base"`
	Date   string                     `json:"date"`
	Rates  map[string]json.RawMessage `json:"rates"`
}

// Fetch retrieves the latest reference rates for base against symbols.
func (c *Client) Fetch(ctx context.Context, base string, symbols []string) (provider.RateMap, error) {
	rates, err := c.latest(ctx, base, symbols)
	if err != nil {
		c.log.Warn("fetching latest rates", zap.String("base", base), zap.Error(err))
		return provider.RateMap{}, fmt.Errorf("%s: %w", c.name, err)
	}
	return rates, nil
}

func (c *Client) latest(ctx context.Context, base string, symbols []string) (provider.RateMap, error) {
	query := url.Values{}
	query.Set("from", strings.ToUpper(base))
	query.Set("to", strings.ToUpper(strings.Join(symbols, ",")))

	url := fmt.Sprintf("%s/latest?%s", strings.TrimRight(c.baseURL, "/"), query.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header = c.header.Clone()

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("performing request: %w", err)
	}
	defer res.Body.Close()

	switch res.StatusCode {
	case http.StatusOK:
		break

	case http.StatusNotFound, http.StatusUnprocessableEntity:
		return nil, fmt.Errorf("unknown currency in request from=%s to=%s", base, strings.Join(symbols, ","))

	case http.StatusTooManyRequests:
		return nil, fmt.Errorf("rate limited")

	default:
		return nil, fmt.Errorf("unexpected status code: %d", res.StatusCode)
	}

	var body latestResponse
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decoding latest response: %w", err)
	}
	if body.Rates == nil {
		return nil, fmt.Errorf("decoding latest response: missing rates")
	}
	return provider.PickRates(body.Rates, symbols), nil
}
