package rates

import (
	"context"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/greenpay/greenpay/internal/metrics"
)

// Service resolves conversion rates, preferring the live provider and
// degrading to the static USD fallback table. When strict (the default) an
// unknown pair surfaces ErrRateUnavailable; lenient mode preserves the legacy
// behaviour of returning 1 so conversions proceed unconverted.
type Service struct {
	provider Provider
	lenient  bool
	logger   *slog.Logger
}

// NewService builds a resolver. A nil provider means fallback-only operation.
func NewService(provider Provider, lenient bool, logger *slog.Logger) *Service {
	return &Service{provider: provider, lenient: lenient, logger: logger}
}

// Rate returns the conversion rate from base to target. Identical currencies
// resolve to 1 without contacting the provider.
func (s *Service) Rate(ctx context.Context, base, target string) (decimal.Decimal, error) {
	if base == target {
		return decimal.NewFromInt(1), nil
	}

	live := s.fetch(ctx, base)
	return s.resolve(base, target, live)
}

// Rates resolves multiple targets against one base with a single provider
// round-trip. The per-target fallback policy matches Rate.
func (s *Service) Rates(ctx context.Context, base string, targets []string) (map[string]decimal.Decimal, error) {
	out := make(map[string]decimal.Decimal, len(targets))
	live := s.fetch(ctx, base)
	for _, target := range targets {
		if base == target {
			out[target] = decimal.NewFromInt(1)
			continue
		}
		rate, err := s.resolve(base, target, live)
		if err != nil {
			return nil, err
		}
		out[target] = rate
	}
	return out, nil
}

func (s *Service) fetch(ctx context.Context, base string) map[string]decimal.Decimal {
	if s.provider == nil {
		return nil
	}
	live, err := s.provider.FetchRates(ctx, base)
	if err != nil {
		s.logger.Warn("rate provider unavailable", "base", base, "error", err)
		return nil
	}
	return live
}

func (s *Service) resolve(base, target string, live map[string]decimal.Decimal) (decimal.Decimal, error) {
	if rate, ok := live[target]; ok && rate.IsPositive() {
		return rate, nil
	}

	if base == fallbackBase {
		if rate, ok := fallbackTable[target]; ok {
			metrics.RateFallbacks.Inc()
			return rate, nil
		}
	}

	if s.lenient {
		s.logger.Warn("no rate for pair, defaulting to 1", "base", base, "target", target)
		return decimal.NewFromInt(1), nil
	}
	return decimal.Decimal{}, ErrRateUnavailable
}
