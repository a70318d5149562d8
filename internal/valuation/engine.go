// Package valuation replays a normalized transaction ledger in time order,
// reconstructing the investor's holdings, net-invested capital and daily
// portfolio value.
package valuation

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jmoreau/Crypto-Wallet-Analyzer-Backend/internal/model"
	"github.com/jmoreau/Crypto-Wallet-Analyzer-Backend/internal/progress"
)

// dustThreshold filters balances too small to contribute to a valuation
// point. Matches the exchange's own display cutoff.
var dustThreshold = decimal.NewFromFloat(0.000001)

// PriceSource resolves asset prices in the reporting currency. Satisfied by
// pricing.Resolver; tests substitute a fixed-price fake.
type PriceSource interface {
	Price(ctx context.Context, asset string, date time.Time) (decimal.Decimal, error)
	Prices(ctx context.Context, assets []string, date time.Time) map[string]decimal.Decimal
}

// Engine replays ledgers. Construct once and reuse; replay state lives on
// the stack of Replay, so an Engine is safe for concurrent runs.
type Engine struct {
	prices   PriceSource
	isFiat   func(string) bool
	reporter progress.Reporter
	now      func() time.Time
}

// NewEngine creates a valuation engine.
//
// Parameters:
//   - prices: price resolution service
//   - isFiat: membership test for the configured fiat-currency set
//   - reporter: progress/log collaborator, may be progress.Nop
func NewEngine(prices PriceSource, isFiat func(string) bool, reporter progress.Reporter) *Engine {
	if reporter == nil {
		reporter = progress.Nop{}
	}
	return &Engine{
		prices:   prices,
		isFiat:   isFiat,
		reporter: reporter,
		now:      time.Now,
	}
}

// Result is the output of one ledger replay.
type Result struct {
	// Series holds the aligned daily net-invested and portfolio-value
	// series, one entry per calendar year with activity.
	Series map[int]model.YearSeries
	// FinalHoldings is the investor's holdings after the last transaction,
	// zero balances dropped. Assets whose price could not be resolved still
	// appear with their raw balance.
	FinalHoldings model.Holdings
	// NetInvested is the final net-invested capital.
	NetInvested decimal.Decimal
	// CurrentValue is the portfolio valued at the latest resolvable prices,
	// independent of NetInvested.
	CurrentValue decimal.Decimal
}

// snapshot is the replay state after one timestamp group.
type snapshot struct {
	day         time.Time
	holdings    model.Holdings
	netInvested decimal.Decimal
}

// Replay processes the classified, time-ordered ledger and produces the
// valuation result. Records classified OpIgnored are skipped entirely.
//
// Net-invested capital moves only on fiat events: deposits add, withdrawals
// subtract, disposals to fiat subtract, and purchases funded outside the
// exchange (no fiat debit leg in the same timestamp group) add their
// fiat-equivalent value. Crypto-to-crypto movement never changes it.
//
// The context is honored between transaction groups and between valuation
// days; an aborted replay returns ctx.Err() with no partial result.
func (e *Engine) Replay(ctx context.Context, records []model.TransactionRecord) (*Result, error) {
	snapshots, err := e.replayGroups(ctx, records)
	if err != nil {
		return nil, err
	}
	if len(snapshots) == 0 {
		return &Result{Series: map[int]model.YearSeries{}, FinalHoldings: model.Holdings{}}, nil
	}

	series, err := e.buildDailySeries(ctx, snapshots)
	if err != nil {
		return nil, err
	}

	final := snapshots[len(snapshots)-1]

	return &Result{
		Series:        series,
		FinalHoldings: final.holdings,
		NetInvested:   final.netInvested,
		CurrentValue:  e.currentValue(ctx, final.holdings),
	}, nil
}

// replayGroups walks the ledger one timestamp group at a time, deriving a
// fresh holdings snapshot per group so replay stays deterministic and
// debuggable.
func (e *Engine) replayGroups(ctx context.Context, records []model.TransactionRecord) ([]snapshot, error) {
	holdings := model.Holdings{}
	netInvested := decimal.Zero
	var snapshots []snapshot

	for start := 0; start < len(records); {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		end := start + 1
		for end < len(records) && records[end].Timestamp.Equal(records[start].Timestamp) {
			end++
		}
		group := records[start:end]
		start = end

		processed := 0
		next := holdings.Clone()
		hasFiatDebit := false
		for _, record := range group {
			if record.Class != model.OpIgnored && e.isFiat(record.Asset) && record.Amount.IsNegative() {
				hasFiatDebit = true
			}
		}

		for _, record := range group {
			if record.Class == model.OpIgnored {
				continue
			}
			processed++

			next.Credit(record.Asset, record.Amount)

			switch record.Class {
			case model.OpFiatDeposit:
				netInvested = netInvested.Add(record.Amount)
			case model.OpFiatWithdrawal:
				// Amount is negative for withdrawals.
				netInvested = netInvested.Add(record.Amount)
			case model.OpFiatSale:
				netInvested = netInvested.Sub(record.Amount)
			case model.OpFiatPurchase:
				if !e.isFiat(record.Asset) && !hasFiatDebit {
					// Card buy: crypto credited without a matching fiat
					// debit, so fresh capital entered from outside the
					// exchange.
					e.applyCardBuy(ctx, record, &netInvested)
				}
			}
		}

		if processed == 0 {
			continue
		}

		holdings = next
		snapshots = append(snapshots, snapshot{
			day:         group[0].Timestamp.UTC().Truncate(24 * time.Hour),
			holdings:    holdings,
			netInvested: netInvested,
		})
	}

	return snapshots, nil
}

// applyCardBuy adds the fiat-equivalent value of an externally funded
// purchase to net-invested capital. An unresolvable price degrades to a
// warning; the purchase then moves holdings but not capital.
func (e *Engine) applyCardBuy(ctx context.Context, record model.TransactionRecord, netInvested *decimal.Decimal) {
	price, err := e.prices.Price(ctx, record.Asset, record.Timestamp)
	if err != nil {
		e.reporter.Log(progress.LevelWarn, fmt.Sprintf(
			"external purchase of %s on %s: %v; net invested unchanged",
			record.Asset, record.Timestamp.UTC().Format("2006-01-02"), err))
		return
	}

	value := record.Amount.Mul(price)
	*netInvested = netInvested.Add(value)
	e.reporter.Log(progress.LevelInfo, fmt.Sprintf(
		"external purchase: %s %s at %s = %s added to net invested",
		record.Amount.String(), record.Asset, price.String(), value.StringFixed(2)))
}

// buildDailySeries resamples the per-group snapshots to one point per
// calendar day (forward-filled) and values the portfolio at each day.
// Net-invested and portfolio-value series share date alignment by
// construction.
func (e *Engine) buildDailySeries(ctx context.Context, snapshots []snapshot) (map[int]model.YearSeries, error) {
	firstDay := snapshots[0].day
	lastDay := snapshots[len(snapshots)-1].day
	totalDays := int(lastDay.Sub(firstDay)/(24*time.Hour)) + 1

	series := make(map[int]model.YearSeries)

	idx := 0
	done := 0
	for day := firstDay; !day.After(lastDay); day = day.Add(24 * time.Hour) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		// Forward-fill: the state of a day is the last snapshot on or
		// before it.
		for idx+1 < len(snapshots) && !snapshots[idx+1].day.After(day) {
			idx++
		}
		state := snapshots[idx]

		value := e.valueAt(ctx, state.holdings, day)

		year := day.Year()
		ys := series[year]
		ys.Dates = append(ys.Dates, day.Format("2006-01-02"))
		ys.NetInvested = append(ys.NetInvested, state.netInvested.InexactFloat64())
		ys.PortfolioValue = append(ys.PortfolioValue, value.InexactFloat64())
		series[year] = ys

		done++
		if done%25 == 0 || done == totalDays {
			e.reporter.Progress(done*100/totalDays, fmt.Sprintf("Valuing portfolio (%d/%d days)", done, totalDays))
		}
	}

	return series, nil
}

// valueAt computes the portfolio value of a holdings snapshot on a given
// day, omitting dust balances and assets whose price is unavailable.
func (e *Engine) valueAt(ctx context.Context, holdings model.Holdings, day time.Time) decimal.Decimal {
	var assets []string
	for asset, balance := range holdings {
		if balance.GreaterThan(dustThreshold) {
			assets = append(assets, asset)
		}
	}
	if len(assets) == 0 {
		return decimal.Zero
	}

	prices := e.prices.Prices(ctx, assets, day)

	total := decimal.Zero
	for _, asset := range assets {
		price, ok := prices[asset]
		if !ok {
			continue // unresolved, already logged by the price source
		}
		total = total.Add(holdings[asset].Mul(price))
	}

	return total
}

// currentValue values the final holdings at today's prices. This is a
// first-class figure derived from the snapshot, not a copy of net-invested
// capital.
func (e *Engine) currentValue(ctx context.Context, holdings model.Holdings) decimal.Decimal {
	return e.valueAt(ctx, holdings, e.now().UTC().Truncate(24*time.Hour))
}

// HoldingsValue prices an arbitrary holdings snapshot at today's date in
// the reporting currency. Used by the scheduled refresh of completed runs.
func (e *Engine) HoldingsValue(ctx context.Context, holdings model.Holdings) decimal.Decimal {
	return e.currentValue(ctx, holdings)
}
