package httpx_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"exchangerates/internal/httpx"
)

func TestClientDo_DefaultHeaders(t *testing.T) {
	t.Parallel()

	// Arrange: an upstream that echoes what it saw
	var gotUA, gotAccept, gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotAccept = r.Header.Get("Accept")
		gotKey = r.Header.Get("X-Api-Key")
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := httpx.New(2 * time.Second)
	c.Headers = map[string]string{"X-Api-Key": "k"}

	req, err := http.NewRequestWithContext(t.Context(), http.MethodGet, srv.URL, http.NoBody)
	require.NoError(t, err)

	// Act
	res, err := c.Do(req)
	require.NoError(t, err)
	defer res.Body.Close()

	// Assert
	require.Equal(t, http.StatusNoContent, res.StatusCode)
	require.Equal(t, "exchange-rates/1.0", gotUA)
	require.Equal(t, "application/json", gotAccept)
	require.Equal(t, "k", gotKey)
}

func TestClientDo_KeepsExplicitHeaders(t *testing.T) {
	t.Parallel()

	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
	}))
	defer srv.Close()

	req, err := http.NewRequestWithContext(t.Context(), http.MethodGet, srv.URL, http.NoBody)
	require.NoError(t, err)
	req.Header.Set("User-Agent", "custom")

	res, err := httpx.New(time.Second).Do(req)
	require.NoError(t, err)
	defer res.Body.Close()

	require.Equal(t, "custom", gotUA)
}
