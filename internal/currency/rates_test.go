package currency

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pesio-ai/be-fin-capex/internal/platform/errors"
)

func testCache(fetchedAt time.Time) RateCache {
	return NewRateCache("USD", map[string]decimal.Decimal{
		"EUR": decimal.RequireFromString("1.08"),
		"JPY": decimal.RequireFromString("0.0067"),
	}, fetchedAt)
}

func TestNormalize_BaseCurrencyIsIdentity(t *testing.T) {
	c := testCache(time.Now())

	got, err := c.Normalize(123_456, "USD")
	require.NoError(t, err)
	assert.Equal(t, int64(123_456), got)
}

func TestNormalize_ConvertsAndRounds(t *testing.T) {
	c := testCache(time.Now())

	got, err := c.Normalize(100_00, "EUR")
	require.NoError(t, err)
	assert.Equal(t, int64(108_00), got)

	// 12345 * 0.0067 = 82.7115, rounds to 83 cents.
	got, err = c.Normalize(12_345, "JPY")
	require.NoError(t, err)
	assert.Equal(t, int64(83), got)
}

func TestNormalize_UnknownCurrencyFails(t *testing.T) {
	c := testCache(time.Now())

	_, err := c.Normalize(100_00, "CHF")
	assert.True(t, errors.HasCode(err, errors.ErrCodeValidation))
}

func TestIsStale(t *testing.T) {
	fetched := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	c := testCache(fetched)

	assert.False(t, c.IsStale(fetched.Add(30*time.Minute), time.Hour))
	assert.False(t, c.IsStale(fetched.Add(time.Hour), time.Hour))
	assert.True(t, c.IsStale(fetched.Add(time.Hour+time.Second), time.Hour))
}

func TestNewRateCache_InjectsBaseRate(t *testing.T) {
	c := NewRateCache("USD", nil, time.Now())
	require.Contains(t, c.Rates, "USD")
	assert.True(t, c.Rates["USD"].Equal(decimal.NewFromInt(1)))
}
