package frankfurter

import (
	"net/http"

	"go.uber.org/zap"
)

const (
	baseURL     = "https://api.frankfurter.app"
	DefaultName = "frankfurterApi"
)

// HTTPClient describes an HTTP client.
//
//go:generate mockgen -package=frankfurter_test -destination=mock_http_client_test.go -source=client.go HTTPClient
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client is a client for the Frankfurter (ECB reference rates) API.
type Client struct {
	// name is the provider name reported to the aggregator.
	name string
	// baseURL is the base URL for the API.
	baseURL string
	// httpClient is the HTTP client.
	httpClient HTTPClient
	// header contains additional headers to be sent with each request.
	header http.Header
	log    *zap.Logger
}

// ClientOption is a configuration option for the Frankfurter client.
type ClientOption func(*Client)

// WithBaseURL sets the base URL for the API.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithHTTPClient sets the HTTP client for the API.
func WithHTTPClient(httpClient HTTPClient) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithHeader sets additional headers to be sent with each request.
func WithHeader(header http.Header) ClientOption {
	return func(c *Client) {
		for key, values := range header {
			for _, value := range values {
				c.header.Add(key, value)
			}
		}
	}
}

// WithName overrides the provider name.
func WithName(name string) ClientOption {
	return func(c *Client) {
		if name != "" {
			c.name = name
		}
	}
}

func WithLogger(log *zap.Logger) ClientOption {
	return func(c *Client) {
		if log != nil {
			c.log = log
		}
	}
}

// NewClient creates a new Frankfurter client.
func NewClient(options ...ClientOption) *Client {
	c := &Client{
		name:       DefaultName,
		baseURL:    baseURL,
		httpClient: http.DefaultClient,
		header:     http.Header{},
		log:        zap.NewNop(),
	}
	for _, option := range options {
		option(c)
	}
	c.log = c.log.With(zap.String("provider", c.name))
	return c
}

func (c *Client) Name() string { return c.name }
