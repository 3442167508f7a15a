package client

import (
	"context"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/pesio-ai/be-fin-capex/internal/currency"
	"github.com/pesio-ai/be-fin-capex/internal/platform/errors"
)

// StaticRateSource serves a fixed exchange-rate snapshot parsed once at
// startup. Rate freshness is the operator's concern here; a live source
// implementing service.RateSource can replace it without touching callers.
type StaticRateSource struct {
	cache currency.RateCache
}

// NewStaticRateSource parses a JSON rate table, e.g.
// {"EUR":"1.08","GBP":"1.27"}, quoted in base-currency units per unit.
// An empty table yields a base-currency-only snapshot.
func NewStaticRateSource(base, ratesJSON string, fetchedAt time.Time) (*StaticRateSource, error) {
	rates := make(map[string]decimal.Decimal)
	if ratesJSON != "" {
		raw := map[string]string{}
		if err := json.Unmarshal([]byte(ratesJSON), &raw); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeValidation, "invalid exchange rate table")
		}
		for code, value := range raw {
			rate, err := decimal.NewFromString(value)
			if err != nil {
				return nil, errors.Newf(errors.ErrCodeValidation, "invalid rate for currency '%s'", code)
			}
			rates[code] = rate
		}
	}

	return &StaticRateSource{cache: currency.NewRateCache(base, rates, fetchedAt)}, nil
}

// Snapshot returns the fixed rate snapshot.
func (s *StaticRateSource) Snapshot(ctx context.Context) (currency.RateCache, error) {
	return s.cache, nil
}
