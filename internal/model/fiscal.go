package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// SellTransaction is one taxable disposal (crypto sold into a legal-tender
// currency) as listed in the yearly fiscal report.
type SellTransaction struct {
	Date      time.Time       `json:"date"`
	Operation string          `json:"operation"` // raw label of the originating row
	Asset     string          `json:"asset"`     // fiat currency credited
	Amount    decimal.Decimal `json:"amount"`
}

// YearlyFiscalBucket aggregates the fiat-denominated flows of one calendar
// year. A year present in the ledger always gets a bucket, even when no
// taxable event occurred, so downstream reporting can state that explicitly.
type YearlyFiscalBucket struct {
	Year             int               `json:"year"`
	TotalDeposits    decimal.Decimal   `json:"totalDeposits"`
	TotalWithdrawals decimal.Decimal   `json:"totalWithdrawals"`
	TaxableVolume    decimal.Decimal   `json:"taxableVolume"`
	SellTransactions []SellTransaction `json:"sellTransactions"` // chronological
}

// FiatEntry is a single deposit or withdrawal in the reporting currency.
type FiatEntry struct {
	Date      time.Time       `json:"date"`
	Operation string          `json:"operation"`
	Asset     string          `json:"asset"`
	Amount    decimal.Decimal `json:"amount"` // absolute value
}

// ConvertDirection indicates which side of a conversion the reporting
// currency was on.
type ConvertDirection string

const (
	ConvertToFiat   ConvertDirection = "to_fiat"
	ConvertFromFiat ConvertDirection = "from_fiat"
)

// FiatConvert is a conversion between the reporting currency and a crypto
// asset, listed in the per-year fiat activity breakdown.
type FiatConvert struct {
	Date      time.Time        `json:"date"`
	FromAsset string           `json:"fromAsset"`
	ToAsset   string           `json:"toAsset"`
	Amount    decimal.Decimal  `json:"amount"` // fiat leg, absolute value
	Direction ConvertDirection `json:"direction"`
}

// FiatYearActivity is the reporting-currency transaction breakdown for one
// calendar year: every deposit, withdrawal and conversion touching it.
type FiatYearActivity struct {
	Year              int             `json:"year"`
	Deposits          []FiatEntry     `json:"deposits"`
	Withdrawals       []FiatEntry     `json:"withdrawals"`
	Converts          []FiatConvert   `json:"converts"`
	TotalDeposits     decimal.Decimal `json:"totalDeposits"`
	TotalWithdrawals  decimal.Decimal `json:"totalWithdrawals"`
	TotalConvertsTo   decimal.Decimal `json:"totalConvertsToFiat"`
	TotalConvertsFrom decimal.Decimal `json:"totalConvertsFromFiat"`
}
