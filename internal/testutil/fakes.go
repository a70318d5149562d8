package testutil

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jmoreau/Crypto-Wallet-Analyzer-Backend/internal/apperrors"
)

// FakeRemoteSource is a scripted stand-in for the exchange price client.
// It serves fixed per-asset prices, counts calls, and can be told to
// rate-limit the first N requests per asset.
type FakeRemoteSource struct {
	mu sync.Mutex

	// Prices maps asset symbol to its daily close, served for every date.
	Prices map[string]decimal.Decimal

	// RateLimitFirst makes the first N calls per asset fail with
	// apperrors.ErrRateLimited before succeeding.
	RateLimitFirst int

	calls    map[string]int
	rejected map[string]int
}

// NewFakeRemoteSource creates a fake source serving the given asset prices.
func NewFakeRemoteSource(prices map[string]decimal.Decimal) *FakeRemoteSource {
	return &FakeRemoteSource{
		Prices:   prices,
		calls:    make(map[string]int),
		rejected: make(map[string]int),
	}
}

// DailyClose serves the scripted price for the asset, honoring the
// rate-limit script and context cancellation.
func (f *FakeRemoteSource) DailyClose(ctx context.Context, asset string, date time.Time) (decimal.Decimal, error) {
	if err := ctx.Err(); err != nil {
		return decimal.Zero, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls[asset]++
	if f.rejected[asset] < f.RateLimitFirst {
		f.rejected[asset]++
		return decimal.Zero, apperrors.ErrRateLimited
	}

	price, ok := f.Prices[asset]
	if !ok {
		return decimal.Zero, fmt.Errorf("no market data for %s", asset)
	}
	return price, nil
}

// Calls returns how many times the asset was requested.
func (f *FakeRemoteSource) Calls(asset string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[asset]
}

// TotalCalls returns the number of requests across all assets.
func (f *FakeRemoteSource) TotalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := 0
	for _, n := range f.calls {
		total += n
	}
	return total
}

// FixedPriceSource satisfies the valuation engine's price contract with a
// static per-asset price table, bypassing caching and concurrency entirely.
type FixedPriceSource struct {
	// Table maps asset symbol to its price in the reporting currency.
	Table map[string]decimal.Decimal
}

// Price returns the table price for the asset.
func (s *FixedPriceSource) Price(_ context.Context, asset string, _ time.Time) (decimal.Decimal, error) {
	price, ok := s.Table[asset]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %s", apperrors.ErrPriceUnavailable, asset)
	}
	return price, nil
}

// Prices resolves each asset against the table, omitting unknown assets.
func (s *FixedPriceSource) Prices(ctx context.Context, assets []string, date time.Time) map[string]decimal.Decimal {
	resolved := make(map[string]decimal.Decimal, len(assets))
	for _, asset := range assets {
		price, err := s.Price(ctx, asset, date)
		if err != nil {
			continue
		}
		resolved[asset] = price
	}
	return resolved
}
