package rates

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

// ErrRateUnavailable indicates no live or fallback rate exists for the pair.
var ErrRateUnavailable = errors.New("exchange rate unavailable")

// Resolver supplies a positive conversion rate for an ordered currency pair.
type Resolver interface {
	Rate(ctx context.Context, base, target string) (decimal.Decimal, error)
	Rates(ctx context.Context, base string, targets []string) (map[string]decimal.Decimal, error)
}

// Provider fetches live rates for a base currency from an external source.
type Provider interface {
	FetchRates(ctx context.Context, base string) (map[string]decimal.Decimal, error)
}

// fallbackTable covers a fixed set of USD pairs used when the live provider
// is unreachable. Values are refreshed manually on provider outages.
var fallbackTable = map[string]decimal.Decimal{
	"NGN": decimal.RequireFromString("1530.00"),
	"EUR": decimal.RequireFromString("0.92"),
	"GBP": decimal.RequireFromString("0.79"),
	"GHS": decimal.RequireFromString("15.40"),
	"KES": decimal.RequireFromString("129.00"),
	"ZAR": decimal.RequireFromString("17.80"),
	"CAD": decimal.RequireFromString("1.36"),
}

const fallbackBase = "USD"
