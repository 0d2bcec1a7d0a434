package frankfurter_test

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"exchangerates/internal/provider"
	"exchangerates/internal/provider/frankfurter"
)

func respond(status int, body string) func(*http.Request) (*http.Response, error) {
	return func(*http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: status,
			Body:       io.NopCloser(strings.NewReader(body)),
		}, nil
	}
}

func TestFetch(t *testing.T) {
	t.Parallel()

	// Arrange: create a mock controller
	ctrl := gomock.NewController(t)

	// Arrange: create a mock HTTP client
	httpClient := NewMockHTTPClient(ctrl)

	// Assert: stub the Do method
	httpClient.EXPECT().
		Do(gomock.Any()).
		DoAndReturn(func(req *http.Request) (*http.Response, error) {
			require.Equal(t, http.MethodGet, req.Method)
			require.Equal(t, "/latest", req.URL.Path)
			require.Equal(t, "EUR", req.URL.Query().Get("from"))
			require.Equal(t, "USD,NZD", req.URL.Query().Get("to"))
			require.Equal(t, "yes", req.Header.Get("X-Test"))

			return respond(http.StatusOK, `{"amount":1.0,"base":"EUR","date":"2024-03-06","rates":{"USD":1.0856,"nzd":1.7791}}`)(req)
		}).
		Times(1)

	// Arrange: setup a client against the mock
	client := frankfurter.NewClient(
		frankfurter.WithHTTPClient(httpClient),
		frankfurter.WithBaseURL("https://example.test/"),
		frankfurter.WithHeader(http.Header{"X-Test": []string{"yes"}}),
	)

	// Act
	rates, err := client.Fetch(t.Context(), "eur", []string{"usd", "nzd"})

	// Assert: keys are uppercased
	require.NoError(t, err)
	require.Equal(t, provider.RateMap{"USD": 1.0856, "NZD": 1.7791}, rates)
	require.Equal(t, frankfurter.DefaultName, client.Name())
}

func TestFetch_DropsMalformedValues(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)
	httpClient.EXPECT().
		Do(gomock.Any()).
		DoAndReturn(respond(http.StatusOK, `{"base":"EUR","rates":{"USD":"1.08","NZD":0,"GBP":0.85}}`)).
		Times(1)

	client := frankfurter.NewClient(frankfurter.WithHTTPClient(httpClient))

	rates, err := client.Fetch(t.Context(), "EUR", []string{"USD", "NZD", "GBP"})

	require.NoError(t, err)
	require.Equal(t, provider.RateMap{"GBP": 0.85}, rates)
}

func TestFetch_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		do   func(*http.Request) (*http.Response, error)
	}{
		{name: "transport", do: func(*http.Request) (*http.Response, error) { return nil, errors.New("dial tcp: refused") }},
		{name: "status 500", do: respond(http.StatusInternalServerError, "")},
		{name: "status 404", do: respond(http.StatusNotFound, `{"message":"not found"}`)},
		{name: "status 429", do: respond(http.StatusTooManyRequests, "")},
		{name: "bad json", do: respond(http.StatusOK, `{"rates":`)},
		{name: "no rates", do: respond(http.StatusOK, `{"base":"EUR"}`)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			// Arrange: create a mock HTTP client returning the failure
			ctrl := gomock.NewController(t)
			httpClient := NewMockHTTPClient(ctrl)
			httpClient.EXPECT().Do(gomock.Any()).DoAndReturn(tt.do).Times(1)
			client := frankfurter.NewClient(frankfurter.WithHTTPClient(httpClient), frankfurter.WithName("ecb"))

			// Act
			rates, err := client.Fetch(t.Context(), "EUR", []string{"USD"})

			// Assert: a fault, reported under the configured name
			require.Error(t, err)
			require.Contains(t, err.Error(), "ecb")
			require.Empty(t, rates)
		})
	}
}

func TestFetch_ErrCreatingRequest(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)
	httpClient.EXPECT().Do(gomock.Any()).Times(0)

	client := frankfurter.NewClient(frankfurter.WithHTTPClient(httpClient), frankfurter.WithBaseURL(string([]rune{0x7f})))

	rates, err := client.Fetch(t.Context(), "EUR", []string{"USD"})
	require.Error(t, err)
	require.Empty(t, rates)
}

func TestFetch_KeepsRequestedSymbolsOnly(t *testing.T) {
	t.Parallel()

	// Arrange: the upstream answers with a symbol nobody asked for
	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)
	httpClient.EXPECT().
		Do(gomock.Any()).
		DoAndReturn(respond(http.StatusOK, `{"base":"EUR","rates":{"USD":1.0856,"GBP":0.8571}}`)).
		Times(1)
	client := frankfurter.NewClient(frankfurter.WithHTTPClient(httpClient))

	// Act
	rates, err := client.Fetch(t.Context(), "EUR", []string{"USD"})

	// Assert
	require.NoError(t, err)
	require.Equal(t, provider.RateMap{"USD": 1.0856}, rates)
}
