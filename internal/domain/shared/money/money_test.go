package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddRequiresSameCurrency(t *testing.T) {
	t.Parallel()

	sum, err := Must(1000, "usd").Add(Must(1500, "USD"))
	require.NoError(t, err)
	assert.True(t, sum.Equal(Must(2500, "USD")))

	_, err = Must(1, "USD").Add(Must(1, "EUR"))
	assert.ErrorIs(t, err, ErrCurrencyMismatch)
}

func TestParseKeepsDecimalPrecision(t *testing.T) {
	t.Parallel()

	a, err := Parse("0.10", "EUR")
	require.NoError(t, err)
	b, err := Parse("0.20", "EUR")
	require.NoError(t, err)

	sum, err := a.Add(b)
	require.NoError(t, err)
	assert.True(t, sum.Amount.Equal(decimal.RequireFromString("0.3")))
	assert.Equal(t, "0.30 EUR", sum.String())
}

func TestNormalizeCurrency(t *testing.T) {
	t.Parallel()

	code, err := NormalizeCurrency(" rub ")
	require.NoError(t, err)
	assert.Equal(t, "RUB", code)

	_, err = NormalizeCurrency("ruble")
	assert.ErrorIs(t, err, ErrInvalidCurrency)
}
