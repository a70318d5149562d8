package testutil

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jmoreau/Crypto-Wallet-Analyzer-Backend/internal/model"
)

// LedgerBuilder provides a fluent interface for building test CSV exports
// in the exchange's transaction export format.
//
// Example usage:
//
//	csv := testutil.NewLedger().
//	    Row("2023-01-01 10:00:00", "Deposit", "EUR", "1000").
//	    Row("2023-01-02 10:00:00", "Buy", "BTC", "0.05").
//	    Row("2023-01-02 10:00:00", "Buy", "EUR", "-900").
//	    CSV()
type LedgerBuilder struct {
	rows []string
}

// NewLedger creates an empty ledger builder.
func NewLedger() *LedgerBuilder {
	return &LedgerBuilder{}
}

// Row appends one transaction row with the standard Spot account and an
// empty remark.
func (b *LedgerBuilder) Row(utcTime, operation, coin, change string) *LedgerBuilder {
	b.rows = append(b.rows, fmt.Sprintf("12345,%s,Spot,%s,%s,%s,", utcTime, operation, coin, change))
	return b
}

// RawRow appends a raw CSV line verbatim, for malformed-row tests.
func (b *LedgerBuilder) RawRow(line string) *LedgerBuilder {
	b.rows = append(b.rows, line)
	return b
}

// CSV renders the ledger with the export's header line.
func (b *LedgerBuilder) CSV() string {
	lines := append([]string{"User_ID,UTC_Time,Account,Operation,Coin,Change,Remark"}, b.rows...)
	return strings.Join(lines, "\n") + "\n"
}

// Record builds a classified transaction record for tests that bypass the
// parser and classifier.
func Record(utcTime, operation, asset, amount string, class model.OperationClass) model.TransactionRecord {
	ts, err := time.ParseInLocation("2006-01-02 15:04:05", utcTime, time.UTC)
	if err != nil {
		panic(fmt.Sprintf("testutil.Record: bad timestamp %q: %v", utcTime, err))
	}
	return model.TransactionRecord{
		Timestamp: ts,
		Account:   "Spot",
		Operation: operation,
		Asset:     asset,
		Amount:    decimal.RequireFromString(amount),
		Class:     class,
	}
}

// Day parses a date at midnight UTC.
func Day(date string) time.Time {
	day, err := time.ParseInLocation("2006-01-02", date, time.UTC)
	if err != nil {
		panic(fmt.Sprintf("testutil.Day: bad date %q: %v", date, err))
	}
	return day
}
