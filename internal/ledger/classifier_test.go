package ledger_test

import (
	"testing"

	"github.com/jmoreau/Crypto-Wallet-Analyzer-Backend/internal/ledger"
	"github.com/jmoreau/Crypto-Wallet-Analyzer-Backend/internal/model"
	"github.com/jmoreau/Crypto-Wallet-Analyzer-Backend/internal/testutil"
)

var testFiat = []string{"EUR", "USD", "GBP", "CHF", "JPY", "CAD", "AUD", "NZD", "SGD"}

// TestClassifier_Classify tests the label-to-operation-class mapping.
//
// WHY: Every downstream figure (holdings, net invested, taxable volume)
// depends on each row carrying exactly one correct class. The refinement of
// a primary category by fiat-side detection is where tax semantics live.
func TestClassifier_Classify(t *testing.T) {
	c := ledger.NewClassifier(ledger.DefaultLabels(), testFiat)

	t.Run("classifies deposits and withdrawals by asset kind", func(t *testing.T) {
		records := []model.TransactionRecord{
			testutil.Record("2023-01-01 10:00:00", "Deposit", "EUR", "1000", ""),
			testutil.Record("2023-01-02 10:00:00", "Deposit", "BTC", "0.5", ""),
			testutil.Record("2023-01-03 10:00:00", "Fiat Withdraw", "EUR", "-200", ""),
			testutil.Record("2023-01-04 10:00:00", "Withdraw", "ETH", "-1", ""),
		}

		classified, unknown := c.Classify(records)

		if len(unknown) != 0 {
			t.Fatalf("Expected no unknown labels, got %v", unknown)
		}
		want := []model.OperationClass{
			model.OpFiatDeposit,
			model.OpCryptoDeposit,
			model.OpFiatWithdrawal,
			model.OpCryptoWithdrawal,
		}
		for i, record := range classified {
			if record.Class != want[i] {
				t.Errorf("Record %d: expected class %s, got %s", i, want[i], record.Class)
			}
		}
	})

	t.Run("classifies a convert pair by fiat side and sign", func(t *testing.T) {
		records := []model.TransactionRecord{
			testutil.Record("2023-02-01 10:00:00", "Binance Convert", "EUR", "-500", ""),
			testutil.Record("2023-02-01 10:00:00", "Binance Convert", "BTC", "0.02", ""),
			testutil.Record("2023-03-01 10:00:00", "Binance Convert", "BTC", "-0.01", ""),
			testutil.Record("2023-03-01 10:00:00", "Binance Convert", "EUR", "260", ""),
			testutil.Record("2023-04-01 10:00:00", "Binance Convert", "BTC", "-0.01", ""),
			testutil.Record("2023-04-01 10:00:00", "Binance Convert", "ETH", "0.15", ""),
		}

		classified, _ := c.Classify(records)

		want := []model.OperationClass{
			model.OpFiatPurchase,
			model.OpCryptoConvert,
			model.OpCryptoConvert,
			model.OpFiatSale,
			model.OpCryptoConvert,
			model.OpCryptoConvert,
		}
		for i, record := range classified {
			if record.Class != want[i] {
				t.Errorf("Record %d (%s %s): expected class %s, got %s",
					i, record.Asset, record.Amount, want[i], record.Class)
			}
		}
	})

	t.Run("classifies spot trades with a fiat leg as disposals", func(t *testing.T) {
		records := []model.TransactionRecord{
			testutil.Record("2023-05-01 10:00:00", "Transaction Sold", "BTC", "-0.05", ""),
			testutil.Record("2023-05-01 10:00:00", "Transaction Revenue", "EUR", "1300", ""),
		}

		classified, _ := c.Classify(records)

		if classified[0].Class != model.OpTradeSell {
			t.Errorf("Expected crypto leg OpTradeSell, got %s", classified[0].Class)
		}
		if classified[1].Class != model.OpFiatSale {
			t.Errorf("Expected fiat leg OpFiatSale, got %s", classified[1].Class)
		}
	})

	t.Run("classifies card purchases as fiat purchases on both legs", func(t *testing.T) {
		records := []model.TransactionRecord{
			testutil.Record("2023-06-01 10:00:00", "Buy Crypto With Fiat", "BTC", "0.01", ""),
		}

		classified, _ := c.Classify(records)

		if classified[0].Class != model.OpFiatPurchase {
			t.Errorf("Expected OpFiatPurchase, got %s", classified[0].Class)
		}
	})

	t.Run("ignores internal transfers", func(t *testing.T) {
		records := []model.TransactionRecord{
			testutil.Record("2023-07-01 10:00:00", "Simple Earn Flexible Subscription", "BTC", "-0.1", ""),
			testutil.Record("2023-07-02 10:00:00", "Simple Earn Flexible Redemption", "BTC", "0.1", ""),
		}

		classified, _ := c.Classify(records)

		for i, record := range classified {
			if record.Class != model.OpIgnored {
				t.Errorf("Record %d: expected OpIgnored, got %s", i, record.Class)
			}
		}
	})

	t.Run("reports unknown labels once and ignores their rows", func(t *testing.T) {
		records := []model.TransactionRecord{
			testutil.Record("2023-08-01 10:00:00", "Mystery Airdrop", "XYZ", "10", ""),
			testutil.Record("2023-08-02 10:00:00", "Mystery Airdrop", "XYZ", "5", ""),
		}

		classified, unknown := c.Classify(records)

		if len(unknown) != 1 || unknown[0] != "Mystery Airdrop" {
			t.Fatalf("Expected one unknown label, got %v", unknown)
		}
		for i, record := range classified {
			if record.Class != model.OpIgnored {
				t.Errorf("Record %d: expected OpIgnored, got %s", i, record.Class)
			}
		}
	})

	t.Run("sorts chronologically keeping source order within a timestamp", func(t *testing.T) {
		records := []model.TransactionRecord{
			testutil.Record("2023-09-02 10:00:00", "Deposit", "EUR", "100", ""),
			testutil.Record("2023-09-01 10:00:00", "Binance Convert", "EUR", "-50", ""),
			testutil.Record("2023-09-01 10:00:00", "Binance Convert", "BTC", "0.002", ""),
		}

		classified, _ := c.Classify(records)

		if !classified[0].Timestamp.Before(classified[2].Timestamp) {
			t.Error("Expected chronological order")
		}
		if classified[0].Asset != "EUR" || classified[1].Asset != "BTC" {
			// 09-01 legs first, in source order: EUR then BTC
			t.Errorf("Unexpected order: %s, %s, %s",
				classified[0].Asset, classified[1].Asset, classified[2].Asset)
		}
	})

	t.Run("classifies rewards as rewards regardless of asset", func(t *testing.T) {
		records := []model.TransactionRecord{
			testutil.Record("2023-10-01 10:00:00", "Staking Rewards", "ETH", "0.01", ""),
			testutil.Record("2023-10-02 10:00:00", "Distribution", "BNB", "0.5", ""),
		}

		classified, _ := c.Classify(records)

		for i, record := range classified {
			if record.Class != model.OpReward {
				t.Errorf("Record %d: expected OpReward, got %s", i, record.Class)
			}
		}
	})
}

// TestClassifier_IsFiat tests the fiat-currency membership check.
func TestClassifier_IsFiat(t *testing.T) {
	c := ledger.NewClassifier(ledger.DefaultLabels(), testFiat)

	cases := []struct {
		asset string
		want  bool
	}{
		{"EUR", true},
		{"eur", true},
		{"SGD", true},
		{"BTC", false},
		{"USDT", false}, // stablecoins are not legal tender
	}
	for _, tc := range cases {
		if got := c.IsFiat(tc.asset); got != tc.want {
			t.Errorf("IsFiat(%q) = %v, want %v", tc.asset, got, tc.want)
		}
	}
}
