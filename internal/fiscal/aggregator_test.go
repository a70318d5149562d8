package fiscal_test

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/jmoreau/Crypto-Wallet-Analyzer-Backend/internal/fiscal"
	"github.com/jmoreau/Crypto-Wallet-Analyzer-Backend/internal/model"
	"github.com/jmoreau/Crypto-Wallet-Analyzer-Backend/internal/testutil"
)

var fiscalFiat = map[string]bool{
	"EUR": true, "USD": true, "GBP": true, "CHF": true, "JPY": true,
	"CAD": true, "AUD": true, "NZD": true, "SGD": true,
}

func newAggregator() *fiscal.Aggregator {
	return fiscal.NewAggregator(func(asset string) bool { return fiscalFiat[asset] }, "EUR")
}

// TestAggregator_Aggregate tests the yearly fiscal report.
//
// WHY: The report is what ends up on a tax declaration. Taxable volume must
// count exactly the disposals into fiat, and every ledger year must appear
// even when nothing taxable happened in it.
func TestAggregator_Aggregate(t *testing.T) {
	t.Run("counts only disposals to fiat as taxable", func(t *testing.T) {
		records := []model.TransactionRecord{
			testutil.Record("2023-01-01 10:00:00", "Deposit", "EUR", "1000", model.OpFiatDeposit),
			testutil.Record("2023-02-01 10:00:00", "Binance Convert", "EUR", "-500", model.OpFiatPurchase),
			testutil.Record("2023-02-01 10:00:00", "Binance Convert", "BTC", "0.02", model.OpCryptoConvert),
			// Crypto-to-crypto: not taxable.
			testutil.Record("2023-03-01 10:00:00", "Binance Convert", "BTC", "-0.01", model.OpCryptoConvert),
			testutil.Record("2023-03-01 10:00:00", "Binance Convert", "ETH", "0.12", model.OpCryptoConvert),
			// Disposal into fiat: taxable.
			testutil.Record("2023-04-01 10:00:00", "Binance Convert", "BTC", "-0.01", model.OpCryptoConvert),
			testutil.Record("2023-04-01 10:00:00", "Binance Convert", "EUR", "100", model.OpFiatSale),
		}

		report := newAggregator().Aggregate(records)

		bucket, ok := report.Fiscal[2023]
		if !ok {
			t.Fatal("Expected a 2023 bucket")
		}
		if !bucket.TaxableVolume.Equal(decimal.NewFromInt(100)) {
			t.Errorf("Expected taxable volume 100, got %s", bucket.TaxableVolume)
		}
		if len(bucket.SellTransactions) != 1 {
			t.Fatalf("Expected 1 sell transaction, got %d", len(bucket.SellTransactions))
		}
		if bucket.SellTransactions[0].Asset != "EUR" {
			t.Errorf("Expected sell leg in EUR, got %s", bucket.SellTransactions[0].Asset)
		}
		if !bucket.TotalDeposits.Equal(decimal.NewFromInt(1000)) {
			t.Errorf("Expected deposits 1000, got %s", bucket.TotalDeposits)
		}
	})

	t.Run("totals withdrawals as positive amounts", func(t *testing.T) {
		records := []model.TransactionRecord{
			testutil.Record("2023-01-01 10:00:00", "Deposit", "EUR", "1000", model.OpFiatDeposit),
			testutil.Record("2023-06-01 10:00:00", "Fiat Withdraw", "EUR", "-250", model.OpFiatWithdrawal),
		}

		report := newAggregator().Aggregate(records)

		bucket := report.Fiscal[2023]
		if !bucket.TotalWithdrawals.Equal(decimal.NewFromInt(250)) {
			t.Errorf("Expected withdrawals 250, got %s", bucket.TotalWithdrawals)
		}
	})

	t.Run("keeps a zero bucket for years without taxable events", func(t *testing.T) {
		records := []model.TransactionRecord{
			testutil.Record("2022-06-01 10:00:00", "Deposit", "EUR", "1000", model.OpFiatDeposit),
			// 2023: only an untaxable crypto movement.
			testutil.Record("2023-06-01 10:00:00", "Binance Convert", "BTC", "-0.01", model.OpCryptoConvert),
			testutil.Record("2023-06-01 10:00:00", "Binance Convert", "ETH", "0.12", model.OpCryptoConvert),
		}

		report := newAggregator().Aggregate(records)

		bucket, ok := report.Fiscal[2023]
		if !ok {
			t.Fatal("Expected a 2023 bucket despite no taxable events")
		}
		if !bucket.TaxableVolume.IsZero() {
			t.Errorf("Expected zero taxable volume, got %s", bucket.TaxableVolume)
		}
		if bucket.SellTransactions == nil {
			t.Error("Expected empty (non-nil) sell list")
		}
		if got := report.Years(); len(got) != 2 || got[0] != 2022 || got[1] != 2023 {
			t.Errorf("Expected years [2022 2023], got %v", got)
		}
	})

	t.Run("lists sells chronologically within a year", func(t *testing.T) {
		records := []model.TransactionRecord{
			testutil.Record("2023-02-01 10:00:00", "Sell Crypto For Fiat", "EUR", "100", model.OpFiatSale),
			testutil.Record("2023-05-01 10:00:00", "Sell Crypto For Fiat", "EUR", "200", model.OpFiatSale),
			testutil.Record("2023-09-01 10:00:00", "Sell Crypto For Fiat", "EUR", "50", model.OpFiatSale),
		}

		report := newAggregator().Aggregate(records)

		bucket := report.Fiscal[2023]
		if len(bucket.SellTransactions) != 3 {
			t.Fatalf("Expected 3 sells, got %d", len(bucket.SellTransactions))
		}
		for i := 1; i < len(bucket.SellTransactions); i++ {
			if bucket.SellTransactions[i].Date.Before(bucket.SellTransactions[i-1].Date) {
				t.Errorf("Sells out of order at index %d", i)
			}
		}
		if !bucket.TaxableVolume.Equal(decimal.NewFromInt(350)) {
			t.Errorf("Expected taxable volume 350, got %s", bucket.TaxableVolume)
		}
	})
}

// TestAggregator_FiatActivity tests the reporting-currency breakdown.
func TestAggregator_FiatActivity(t *testing.T) {
	t.Run("resolves the counterpart asset of a conversion", func(t *testing.T) {
		records := []model.TransactionRecord{
			testutil.Record("2023-02-01 10:00:00", "Binance Convert", "EUR", "-500", model.OpFiatPurchase),
			testutil.Record("2023-02-01 10:00:00", "Binance Convert", "BTC", "0.02", model.OpCryptoConvert),
			testutil.Record("2023-04-01 10:00:00", "Binance Convert", "BTC", "-0.01", model.OpCryptoConvert),
			testutil.Record("2023-04-01 10:00:00", "Binance Convert", "EUR", "260", model.OpFiatSale),
		}

		report := newAggregator().Aggregate(records)

		activity, ok := report.FiatActivity[2023]
		if !ok {
			t.Fatal("Expected 2023 fiat activity")
		}
		if len(activity.Converts) != 2 {
			t.Fatalf("Expected 2 conversions, got %d", len(activity.Converts))
		}

		out := activity.Converts[0]
		if out.Direction != model.ConvertFromFiat || out.ToAsset != "BTC" {
			t.Errorf("Expected EUR->BTC conversion, got %+v", out)
		}
		in := activity.Converts[1]
		if in.Direction != model.ConvertToFiat || in.FromAsset != "BTC" {
			t.Errorf("Expected BTC->EUR conversion, got %+v", in)
		}
		if !activity.TotalConvertsFrom.Equal(decimal.NewFromInt(500)) {
			t.Errorf("Expected 500 converted out of EUR, got %s", activity.TotalConvertsFrom)
		}
		if !activity.TotalConvertsTo.Equal(decimal.NewFromInt(260)) {
			t.Errorf("Expected 260 converted into EUR, got %s", activity.TotalConvertsTo)
		}
	})

	t.Run("only lists reporting-currency movements", func(t *testing.T) {
		records := []model.TransactionRecord{
			testutil.Record("2023-01-01 10:00:00", "Deposit", "EUR", "1000", model.OpFiatDeposit),
			testutil.Record("2023-01-02 10:00:00", "Deposit", "USD", "500", model.OpFiatDeposit),
		}

		report := newAggregator().Aggregate(records)

		activity := report.FiatActivity[2023]
		if len(activity.Deposits) != 1 {
			t.Fatalf("Expected 1 EUR deposit listed, got %d", len(activity.Deposits))
		}
		if !activity.TotalDeposits.Equal(decimal.NewFromInt(1000)) {
			t.Errorf("Expected EUR deposit total 1000, got %s", activity.TotalDeposits)
		}
		// The USD deposit still counts toward the fiscal bucket.
		if !report.Fiscal[2023].TotalDeposits.Equal(decimal.NewFromInt(1500)) {
			t.Errorf("Expected bucket deposits 1500, got %s", report.Fiscal[2023].TotalDeposits)
		}
	})
}
