// Package currency normalizes request amounts into the reference currency
// using an explicitly passed rate snapshot.
package currency

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/pesio-ai/be-fin-capex/internal/platform/errors"
)

// RateCache is a snapshot of exchange rates into the base currency, stamped
// with its fetch time. It is a plain value owned by the caller; staleness is
// an explicit predicate, not a hidden refresh.
type RateCache struct {
	Base      string                     // reference currency code, e.g. "USD"
	Rates     map[string]decimal.Decimal // currency code -> units of Base per unit
	FetchedAt time.Time
}

// NewRateCache builds a snapshot. The base currency always converts at 1.
func NewRateCache(base string, rates map[string]decimal.Decimal, fetchedAt time.Time) RateCache {
	if rates == nil {
		rates = make(map[string]decimal.Decimal)
	}
	rates[base] = decimal.NewFromInt(1)
	return RateCache{Base: base, Rates: rates, FetchedAt: fetchedAt}
}

// IsStale reports whether the snapshot is older than ttl at the given time.
func (c RateCache) IsStale(now time.Time, ttl time.Duration) bool {
	return now.Sub(c.FetchedAt) > ttl
}

// Normalize converts an amount in integer cents of the given currency into
// base-currency cents, rounding half up.
func (c RateCache) Normalize(amountCents int64, code string) (int64, error) {
	if code == c.Base {
		return amountCents, nil
	}
	rate, ok := c.Rates[code]
	if !ok {
		return 0, errors.Newf(errors.ErrCodeValidation, "no exchange rate for currency '%s'", code)
	}
	return decimal.NewFromInt(amountCents).Mul(rate).Round(0).IntPart(), nil
}
