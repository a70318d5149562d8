package ledger

import (
	"sort"
	"strings"

	"github.com/jmoreau/Crypto-Wallet-Analyzer-Backend/internal/model"
)

// Category is the primary operation category looked up from the raw label.
// Categories are refined into an OperationClass using the assets involved:
// fiat-side detection distinguishes taxable disposals from internal swaps.
type Category string

// Primary categories, matching the operation families of the exchange export.
const (
	CategoryDeposit   Category = "deposit"
	CategoryWithdraw  Category = "withdraw"
	CategoryBuyFiat   Category = "buy_fiat"
	CategorySellFiat  Category = "sell_fiat"
	CategoryTradeBuy  Category = "trade_buy"
	CategoryTradeSell Category = "trade_sell"
	CategoryConvert   Category = "convert"
	CategoryReward    Category = "reward"
	CategoryIgnored   Category = "ignored"
)

// DefaultLabels returns the built-in label classification table for the
// Binance transaction export. The table is data, not code: new exchange
// labels are added here (or supplied to NewClassifier) without touching the
// classification logic.
func DefaultLabels() map[string]Category {
	return map[string]Category{
		"Buy Crypto With Fiat":          CategoryBuyFiat,
		"Sell Crypto For Fiat":          CategorySellFiat,
		"Transaction Buy":               CategoryTradeBuy,
		"Transaction Revenue":           CategoryTradeBuy,
		"Transaction Sold":              CategoryTradeSell,
		"Transaction Spend":             CategoryTradeSell,
		"Transaction Fee":               CategoryTradeSell,
		"Binance Convert":               CategoryConvert,
		"Deposit":                       CategoryDeposit,
		"Withdraw":                      CategoryWithdraw,
		"Fiat Withdraw":                 CategoryWithdraw,
		"Cashback Voucher":              CategoryReward,
		"Distribution":                  CategoryReward,
		"Staking Rewards":               CategoryReward,
		"Simple Earn Flexible Interest": CategoryReward,
		"Crypto Box":                    CategoryReward,

		// Internal transfers between spot and earn sub-accounts move funds
		// without changing what the investor owns; counting them would
		// double-book every subscription.
		"Simple Earn Flexible Subscription":   CategoryIgnored,
		"Simple Earn Flexible Redemption":     CategoryIgnored,
		"Simple Earn Locked Subscription":     CategoryIgnored,
		"Simple Earn Locked Redemption":       CategoryIgnored,
		"Flexible Loan - Collateral Transfer": CategoryIgnored,
	}
}

// Classifier assigns an OperationClass to every transaction record. The
// label table and fiat-currency set are fixed at construction.
type Classifier struct {
	labels map[string]Category
	fiat   map[string]bool
}

// NewClassifier creates a Classifier from a label table and the configured
// fiat-currency set. Pass DefaultLabels() unless a custom table is needed.
func NewClassifier(labels map[string]Category, fiatCurrencies []string) *Classifier {
	fiat := make(map[string]bool, len(fiatCurrencies))
	for _, c := range fiatCurrencies {
		fiat[strings.ToUpper(c)] = true
	}
	return &Classifier{labels: labels, fiat: fiat}
}

// IsFiat reports whether the asset symbol belongs to the configured set of
// legal-tender currencies.
func (c *Classifier) IsFiat(asset string) bool {
	return c.fiat[strings.ToUpper(asset)]
}

// Classify sorts the records chronologically (stable, so rows sharing a
// timestamp keep their source order) and assigns exactly one OperationClass
// to each. Unrecognized labels are classified OpIgnored rather than aborting
// the run, so unseen export formats degrade gracefully; the distinct unknown
// labels are returned for the caller to log.
func (c *Classifier) Classify(records []model.TransactionRecord) ([]model.TransactionRecord, []string) {
	sorted := make([]model.TransactionRecord, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	var unknown []string
	seen := make(map[string]bool)

	// A multi-leg operation (convert, trade) exports one row per asset leg
	// sharing a timestamp. Each leg classifies independently: a fiat leg is
	// present exactly when the pair had a fiat side, so fiat-side detection
	// on the leg itself resolves the direction.
	for i := range sorted {
		category, ok := c.labels[sorted[i].Operation]
		if !ok {
			category = CategoryIgnored
			if !seen[sorted[i].Operation] {
				seen[sorted[i].Operation] = true
				unknown = append(unknown, sorted[i].Operation)
			}
		}
		sorted[i].Class = c.classify(category, sorted[i])
	}

	return sorted, unknown
}

// classify refines a primary category into an OperationClass using the
// record's asset and amount sign.
func (c *Classifier) classify(category Category, record model.TransactionRecord) model.OperationClass {
	fiat := c.IsFiat(record.Asset)

	switch category {
	case CategoryDeposit:
		if fiat {
			return model.OpFiatDeposit
		}
		return model.OpCryptoDeposit

	case CategoryWithdraw:
		if fiat {
			return model.OpFiatWithdrawal
		}
		return model.OpCryptoWithdrawal

	case CategoryBuyFiat:
		// Both legs keep the purchase class: the engine recognizes an
		// external card buy by the absence of a fiat debit leg in the group.
		return model.OpFiatPurchase

	case CategorySellFiat:
		if fiat {
			return model.OpFiatSale
		}
		return model.OpTradeSell

	case CategoryConvert:
		if fiat {
			if record.Amount.IsPositive() {
				return model.OpFiatSale
			}
			return model.OpFiatPurchase
		}
		return model.OpCryptoConvert

	case CategoryTradeBuy, CategoryTradeSell:
		if fiat {
			// A fiat leg on a spot trade is a disposal or an acquisition in
			// disguise, whatever the label says.
			if record.Amount.IsPositive() {
				return model.OpFiatSale
			}
			return model.OpFiatPurchase
		}
		if category == CategoryTradeBuy {
			return model.OpTradeBuy
		}
		return model.OpTradeSell

	case CategoryReward:
		return model.OpReward

	default:
		return model.OpIgnored
	}
}
