package valuation_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/jmoreau/Crypto-Wallet-Analyzer-Backend/internal/model"
	"github.com/jmoreau/Crypto-Wallet-Analyzer-Backend/internal/testutil"
	"github.com/jmoreau/Crypto-Wallet-Analyzer-Backend/internal/valuation"
)

var engineFiat = map[string]bool{
	"EUR": true, "USD": true, "GBP": true, "CHF": true, "JPY": true,
	"CAD": true, "AUD": true, "NZD": true, "SGD": true,
}

func isFiat(asset string) bool { return engineFiat[asset] }

func newEngine(prices map[string]decimal.Decimal) *valuation.Engine {
	return valuation.NewEngine(&testutil.FixedPriceSource{Table: prices}, isFiat, nil)
}

// TestEngine_Replay tests ledger replay and net-invested accounting.
//
// WHY: Net invested is the baseline every latent-gain figure is measured
// against. The rules are few but subtle: only fiat boundary events move it,
// and externally funded purchases must be told apart from exchange-funded
// ones by the shape of their timestamp group.
func TestEngine_Replay(t *testing.T) {
	ctx := context.Background()

	t.Run("deposits and withdrawals move net invested", func(t *testing.T) {
		e := newEngine(nil)
		records := []model.TransactionRecord{
			testutil.Record("2023-01-01 10:00:00", "Deposit", "EUR", "1000", model.OpFiatDeposit),
			testutil.Record("2023-01-02 10:00:00", "Fiat Withdraw", "EUR", "-300", model.OpFiatWithdrawal),
		}

		result, err := e.Replay(ctx, records)

		if err != nil {
			t.Fatalf("Replay() returned unexpected error: %v", err)
		}
		if !result.NetInvested.Equal(decimal.NewFromInt(700)) {
			t.Errorf("Expected net invested 700, got %s", result.NetInvested)
		}
		if !result.FinalHoldings["EUR"].Equal(decimal.NewFromInt(700)) {
			t.Errorf("Expected EUR holding 700, got %s", result.FinalHoldings["EUR"])
		}
	})

	t.Run("exchange-funded purchase leaves net invested unchanged", func(t *testing.T) {
		e := newEngine(map[string]decimal.Decimal{"BTC": decimal.NewFromInt(20000)})
		records := []model.TransactionRecord{
			testutil.Record("2023-01-01 10:00:00", "Deposit", "EUR", "1000", model.OpFiatDeposit),
			testutil.Record("2023-01-02 10:00:00", "Buy Crypto With Fiat", "EUR", "-900", model.OpFiatPurchase),
			testutil.Record("2023-01-02 10:00:00", "Buy Crypto With Fiat", "BTC", "0.05", model.OpFiatPurchase),
		}

		result, err := e.Replay(ctx, records)

		if err != nil {
			t.Fatalf("Replay() returned unexpected error: %v", err)
		}
		if !result.NetInvested.Equal(decimal.NewFromInt(1000)) {
			t.Errorf("Expected net invested 1000, got %s", result.NetInvested)
		}
		if !result.FinalHoldings["EUR"].Equal(decimal.NewFromInt(100)) {
			t.Errorf("Expected EUR holding 100, got %s", result.FinalHoldings["EUR"])
		}
		if !result.FinalHoldings["BTC"].Equal(decimal.RequireFromString("0.05")) {
			t.Errorf("Expected BTC holding 0.05, got %s", result.FinalHoldings["BTC"])
		}
	})

	t.Run("externally funded purchase adds its fiat value", func(t *testing.T) {
		e := newEngine(map[string]decimal.Decimal{"BTC": decimal.NewFromInt(20000)})
		records := []model.TransactionRecord{
			testutil.Record("2023-01-01 10:00:00", "Deposit", "EUR", "1000", model.OpFiatDeposit),
			// Card buy: crypto credited with no fiat debit leg in the group.
			testutil.Record("2023-01-02 10:00:00", "Buy Crypto With Fiat", "BTC", "0.01", model.OpFiatPurchase),
		}

		result, err := e.Replay(ctx, records)

		if err != nil {
			t.Fatalf("Replay() returned unexpected error: %v", err)
		}
		if !result.NetInvested.Equal(decimal.NewFromInt(1200)) {
			t.Errorf("Expected net invested 1200 (1000 + 0.01*20000), got %s", result.NetInvested)
		}
	})

	t.Run("disposal to fiat reduces net invested", func(t *testing.T) {
		e := newEngine(map[string]decimal.Decimal{"BTC": decimal.NewFromInt(26000)})
		records := []model.TransactionRecord{
			testutil.Record("2023-01-01 10:00:00", "Deposit", "EUR", "1000", model.OpFiatDeposit),
			testutil.Record("2023-02-01 10:00:00", "Binance Convert", "EUR", "-500", model.OpFiatPurchase),
			testutil.Record("2023-02-01 10:00:00", "Binance Convert", "BTC", "0.02", model.OpCryptoConvert),
			testutil.Record("2023-03-01 10:00:00", "Binance Convert", "BTC", "-0.01", model.OpCryptoConvert),
			testutil.Record("2023-03-01 10:00:00", "Binance Convert", "EUR", "260", model.OpFiatSale),
		}

		result, err := e.Replay(ctx, records)

		if err != nil {
			t.Fatalf("Replay() returned unexpected error: %v", err)
		}
		if !result.NetInvested.Equal(decimal.NewFromInt(740)) {
			t.Errorf("Expected net invested 740 (1000 - 260), got %s", result.NetInvested)
		}
	})

	t.Run("crypto-to-crypto conversion preserves net invested", func(t *testing.T) {
		e := newEngine(map[string]decimal.Decimal{
			"BTC": decimal.NewFromInt(20000),
			"ETH": decimal.NewFromInt(1600),
		})
		records := []model.TransactionRecord{
			testutil.Record("2023-01-01 10:00:00", "Deposit", "EUR", "1000", model.OpFiatDeposit),
			testutil.Record("2023-01-02 10:00:00", "Binance Convert", "EUR", "-1000", model.OpFiatPurchase),
			testutil.Record("2023-01-02 10:00:00", "Binance Convert", "BTC", "0.05", model.OpCryptoConvert),
			testutil.Record("2023-01-03 10:00:00", "Binance Convert", "BTC", "-0.02", model.OpCryptoConvert),
			testutil.Record("2023-01-03 10:00:00", "Binance Convert", "ETH", "0.25", model.OpCryptoConvert),
		}

		result, err := e.Replay(ctx, records)

		if err != nil {
			t.Fatalf("Replay() returned unexpected error: %v", err)
		}
		if !result.NetInvested.Equal(decimal.NewFromInt(1000)) {
			t.Errorf("Expected net invested 1000, got %s", result.NetInvested)
		}
	})

	t.Run("zero balances are dropped from final holdings", func(t *testing.T) {
		e := newEngine(map[string]decimal.Decimal{"BTC": decimal.NewFromInt(20000)})
		records := []model.TransactionRecord{
			testutil.Record("2023-01-01 10:00:00", "Deposit", "EUR", "500", model.OpFiatDeposit),
			testutil.Record("2023-01-02 10:00:00", "Binance Convert", "EUR", "-500", model.OpFiatPurchase),
			testutil.Record("2023-01-02 10:00:00", "Binance Convert", "BTC", "0.025", model.OpCryptoConvert),
		}

		result, err := e.Replay(ctx, records)

		if err != nil {
			t.Fatalf("Replay() returned unexpected error: %v", err)
		}
		if _, ok := result.FinalHoldings["EUR"]; ok {
			t.Errorf("Expected zero EUR balance dropped, got %s", result.FinalHoldings["EUR"])
		}
	})

	t.Run("ignored rows never touch state", func(t *testing.T) {
		e := newEngine(nil)
		records := []model.TransactionRecord{
			testutil.Record("2023-01-01 10:00:00", "Deposit", "EUR", "1000", model.OpFiatDeposit),
			testutil.Record("2023-01-02 10:00:00", "Simple Earn Flexible Subscription", "EUR", "-400", model.OpIgnored),
		}

		result, err := e.Replay(ctx, records)

		if err != nil {
			t.Fatalf("Replay() returned unexpected error: %v", err)
		}
		if !result.NetInvested.Equal(decimal.NewFromInt(1000)) {
			t.Errorf("Expected net invested 1000, got %s", result.NetInvested)
		}
		if !result.FinalHoldings["EUR"].Equal(decimal.NewFromInt(1000)) {
			t.Errorf("Expected EUR holding 1000, got %s", result.FinalHoldings["EUR"])
		}
	})

	t.Run("empty ledger yields an empty result", func(t *testing.T) {
		e := newEngine(nil)

		result, err := e.Replay(ctx, nil)

		if err != nil {
			t.Fatalf("Replay() returned unexpected error: %v", err)
		}
		if len(result.Series) != 0 || len(result.FinalHoldings) != 0 {
			t.Errorf("Expected empty result, got %+v", result)
		}
	})

	t.Run("cancelled context aborts the replay", func(t *testing.T) {
		e := newEngine(nil)
		cancelled, cancel := context.WithCancel(context.Background())
		cancel()
		records := []model.TransactionRecord{
			testutil.Record("2023-01-01 10:00:00", "Deposit", "EUR", "1000", model.OpFiatDeposit),
		}

		_, err := e.Replay(cancelled, records)

		if err != context.Canceled {
			t.Fatalf("Expected context.Canceled, got %v", err)
		}
	})
}

// TestEngine_DailySeries tests the forward-filled daily resampling.
//
// WHY: The chart contract is strict alignment: for every day between the
// first and last transaction, both series carry a point, with holdings
// carried forward over inactive days.
func TestEngine_DailySeries(t *testing.T) {
	ctx := context.Background()

	t.Run("forward-fills inactive days with aligned series", func(t *testing.T) {
		e := newEngine(map[string]decimal.Decimal{"BTC": decimal.NewFromInt(20000)})
		records := []model.TransactionRecord{
			testutil.Record("2023-01-01 10:00:00", "Deposit", "EUR", "1000", model.OpFiatDeposit),
			// Three inactive days, then another deposit.
			testutil.Record("2023-01-05 10:00:00", "Deposit", "EUR", "500", model.OpFiatDeposit),
		}

		result, err := e.Replay(ctx, records)

		if err != nil {
			t.Fatalf("Replay() returned unexpected error: %v", err)
		}
		ys, ok := result.Series[2023]
		if !ok {
			t.Fatal("Expected a 2023 series")
		}
		if len(ys.Dates) != 5 {
			t.Fatalf("Expected 5 daily points, got %d", len(ys.Dates))
		}
		if len(ys.NetInvested) != 5 || len(ys.PortfolioValue) != 5 {
			t.Fatalf("Expected aligned series, got %d/%d/%d points",
				len(ys.Dates), len(ys.NetInvested), len(ys.PortfolioValue))
		}
		if ys.Dates[0] != "2023-01-01" || ys.Dates[4] != "2023-01-05" {
			t.Errorf("Unexpected date range: %s .. %s", ys.Dates[0], ys.Dates[4])
		}
		// Inactive days carry the last state forward.
		for i := 0; i < 4; i++ {
			if ys.NetInvested[i] != 1000 {
				t.Errorf("Day %d: expected net invested 1000, got %v", i, ys.NetInvested[i])
			}
		}
		if ys.NetInvested[4] != 1500 {
			t.Errorf("Last day: expected net invested 1500, got %v", ys.NetInvested[4])
		}
	})

	t.Run("splits the series per calendar year", func(t *testing.T) {
		e := newEngine(nil)
		records := []model.TransactionRecord{
			testutil.Record("2022-12-30 10:00:00", "Deposit", "EUR", "1000", model.OpFiatDeposit),
			testutil.Record("2023-01-02 10:00:00", "Deposit", "EUR", "500", model.OpFiatDeposit),
		}

		result, err := e.Replay(ctx, records)

		if err != nil {
			t.Fatalf("Replay() returned unexpected error: %v", err)
		}
		if len(result.Series) != 2 {
			t.Fatalf("Expected series for 2022 and 2023, got %d years", len(result.Series))
		}
		if got := len(result.Series[2022].Dates); got != 2 {
			t.Errorf("Expected 2 points in 2022 (Dec 30, 31), got %d", got)
		}
		if got := len(result.Series[2023].Dates); got != 2 {
			t.Errorf("Expected 2 points in 2023 (Jan 1, 2), got %d", got)
		}
	})

	t.Run("portfolio value omits assets without a price", func(t *testing.T) {
		e := newEngine(map[string]decimal.Decimal{"BTC": decimal.NewFromInt(20000)})
		records := []model.TransactionRecord{
			testutil.Record("2023-01-01 10:00:00", "Deposit", "BTC", "0.1", model.OpCryptoDeposit),
			testutil.Record("2023-01-01 10:00:00", "Deposit", "DELISTED", "100", model.OpCryptoDeposit),
		}

		result, err := e.Replay(ctx, records)

		if err != nil {
			t.Fatalf("Replay() returned unexpected error: %v", err)
		}
		ys := result.Series[2023]
		if len(ys.PortfolioValue) != 1 {
			t.Fatalf("Expected 1 daily point, got %d", len(ys.PortfolioValue))
		}
		if ys.PortfolioValue[0] != 2000 {
			t.Errorf("Expected value 2000 (unpriced asset omitted), got %v", ys.PortfolioValue[0])
		}
		// The unpriced asset still shows up in holdings.
		if !result.FinalHoldings["DELISTED"].Equal(decimal.NewFromInt(100)) {
			t.Errorf("Expected DELISTED balance kept, got %s", result.FinalHoldings["DELISTED"])
		}
	})
}
