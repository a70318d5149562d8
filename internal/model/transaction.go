package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// OperationClass is the semantic category assigned to a transaction record.
// Exactly one class is assigned per record during normalization, derived from
// the raw operation label plus fiat-currency detection on the involved assets.
type OperationClass string

// Operation classes. Fiat classes drive net-invested capital and the fiscal
// report; crypto classes only move holdings.
const (
	OpFiatDeposit      OperationClass = "fiat_deposit"
	OpFiatWithdrawal   OperationClass = "fiat_withdrawal"
	OpFiatPurchase     OperationClass = "fiat_purchase"
	OpFiatSale         OperationClass = "fiat_sale"
	OpCryptoDeposit    OperationClass = "crypto_deposit"
	OpCryptoWithdrawal OperationClass = "crypto_withdrawal"
	OpCryptoConvert    OperationClass = "crypto_convert"
	OpTradeBuy         OperationClass = "trade_buy"
	OpTradeSell        OperationClass = "trade_sell"
	OpReward           OperationClass = "reward"
	OpIgnored          OperationClass = "ignored"
)

// TransactionRecord is one normalized row of the exchange transaction export.
// Records are immutable once parsed; the classifier returns new slices rather
// than rewriting fields other than Class.
type TransactionRecord struct {
	Row       int             `json:"row"` // 1-based data row index in the source file
	Timestamp time.Time       `json:"timestamp"`
	Account   string          `json:"account"`
	Operation string          `json:"operation"` // raw operation label as exported
	Asset     string          `json:"asset"`
	Amount    decimal.Decimal `json:"amount"` // signed: positive=credit, negative=debit
	Remark    string          `json:"remark,omitempty"`
	Class     OperationClass  `json:"class"`
}

// Day returns the record timestamp truncated to midnight UTC.
func (t TransactionRecord) Day() time.Time {
	return t.Timestamp.UTC().Truncate(24 * time.Hour)
}

// Holdings maps an asset symbol to its running balance. Snapshots taken during
// replay are derived copies; the engine never hands out a map it still mutates.
type Holdings map[string]decimal.Decimal

// Clone returns an independent copy of the holdings map.
func (h Holdings) Clone() Holdings {
	c := make(Holdings, len(h))
	for asset, balance := range h {
		c[asset] = balance
	}
	return c
}

// Credit adds the signed amount to the asset balance, deleting the entry when
// the balance reaches exactly zero.
func (h Holdings) Credit(asset string, amount decimal.Decimal) {
	balance := h[asset].Add(amount)
	if balance.IsZero() {
		delete(h, asset)
		return
	}
	h[asset] = balance
}
