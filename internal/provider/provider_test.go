package provider_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"exchangerates/internal/provider"
)

func TestNormalizeRequest(t *testing.T) {
	t.Parallel()

	// Act: normalize a messy request
	base, symbols, err := provider.NormalizeRequest(" eur ", []string{"usd", " NZD", "", "USD", "gbp "})

	// Assert: base and symbols are canonical, duplicates dropped in order
	require.NoError(t, err)
	require.Equal(t, "EUR", base)
	require.Equal(t, []string{"USD", "NZD", "GBP"}, symbols)
}

func TestNormalizeRequest_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		base    string
		symbols []string
	}{
		{name: "empty base", base: "  ", symbols: []string{"USD"}},
		{name: "nil symbols", base: "EUR"},
		{name: "blank symbols", base: "EUR", symbols: []string{"", " "}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, _, err := provider.NormalizeRequest(tt.base, tt.symbols)
			require.ErrorIs(t, err, provider.ErrInvalidRequest)
		})
	}
}

func TestRateMapClone(t *testing.T) {
	t.Parallel()

	// Arrange: a map and its clone
	m := provider.RateMap{"USD": 1.08}
	c := m.Clone()

	// Act: mutate the clone
	c["USD"] = 2

	// Assert: the original is untouched
	require.InDelta(t, 1.08, m["USD"], 1e-12)
}

func TestSplitCSV(t *testing.T) {
	t.Parallel()

	require.Nil(t, provider.SplitCSV(""))
	require.Equal(t, []string{"USD", "NZD"}, provider.SplitCSV(" USD, ,NZD,"))
}
