// Package fiscal aggregates classified transactions into per-year totals of
// deposits, withdrawals and taxable disposals.
//
// Only conversions into a legal-tender currency count as disposals;
// crypto-to-crypto conversions and purchases are deliberately excluded
// (deferral policy, not computed tax law).
package fiscal

import (
	"sort"

	"github.com/jmoreau/Crypto-Wallet-Analyzer-Backend/internal/model"
)

// Aggregator builds the yearly fiscal report and the reporting-currency
// activity breakdown from a classified ledger.
type Aggregator struct {
	isFiat    func(string) bool
	reporting string
}

// NewAggregator creates a fiscal aggregator.
//
// Parameters:
//   - isFiat: membership test for the configured fiat-currency set
//   - reporting: the currency whose per-year transaction breakdown is listed
func NewAggregator(isFiat func(string) bool, reporting string) *Aggregator {
	return &Aggregator{isFiat: isFiat, reporting: reporting}
}

// Report is the aggregated fiscal output.
type Report struct {
	// Fiscal holds one bucket per calendar year present in the ledger. A
	// year without taxable events still gets a bucket with zero volume and
	// an empty disposal list.
	Fiscal map[int]model.YearlyFiscalBucket
	// FiatActivity breaks down every reporting-currency deposit, withdrawal
	// and conversion per year.
	FiatActivity map[int]model.FiatYearActivity
}

// Years returns the bucket years in ascending order.
func (r *Report) Years() []int {
	years := make([]int, 0, len(r.Fiscal))
	for year := range r.Fiscal {
		years = append(years, year)
	}
	sort.Ints(years)
	return years
}

// Aggregate consumes the classified, time-ordered ledger and produces the
// report. Listing order inside each bucket is insertion order, which equals
// chronological order for a sorted ledger.
func (a *Aggregator) Aggregate(records []model.TransactionRecord) *Report {
	report := &Report{
		Fiscal:       make(map[int]model.YearlyFiscalBucket),
		FiatActivity: make(map[int]model.FiatYearActivity),
	}

	for start := 0; start < len(records); {
		end := start + 1
		for end < len(records) && records[end].Timestamp.Equal(records[start].Timestamp) {
			end++
		}
		group := records[start:end]
		start = end

		for _, record := range group {
			a.apply(report, record, group)
		}
	}

	return report
}

// apply folds one record into its year bucket. The timestamp group supplies
// the counterpart asset for conversion listings.
func (a *Aggregator) apply(report *Report, record model.TransactionRecord, group []model.TransactionRecord) {
	year := record.Timestamp.UTC().Year()
	bucket := a.bucket(report, year)
	activity := a.activity(report, year)

	switch record.Class {
	case model.OpFiatDeposit:
		if record.Amount.IsPositive() {
			bucket.TotalDeposits = bucket.TotalDeposits.Add(record.Amount)
			if record.Asset == a.reporting {
				activity.Deposits = append(activity.Deposits, model.FiatEntry{
					Date:      record.Timestamp,
					Operation: record.Operation,
					Asset:     record.Asset,
					Amount:    record.Amount,
				})
				activity.TotalDeposits = activity.TotalDeposits.Add(record.Amount)
			}
		}

	case model.OpFiatWithdrawal:
		if record.Amount.IsNegative() {
			amount := record.Amount.Abs()
			bucket.TotalWithdrawals = bucket.TotalWithdrawals.Add(amount)
			if record.Asset == a.reporting {
				activity.Withdrawals = append(activity.Withdrawals, model.FiatEntry{
					Date:      record.Timestamp,
					Operation: record.Operation,
					Asset:     record.Asset,
					Amount:    amount,
				})
				activity.TotalWithdrawals = activity.TotalWithdrawals.Add(amount)
			}
		}

	case model.OpFiatSale:
		if record.Amount.IsPositive() {
			bucket.TaxableVolume = bucket.TaxableVolume.Add(record.Amount)
			bucket.SellTransactions = append(bucket.SellTransactions, model.SellTransaction{
				Date:      record.Timestamp,
				Operation: record.Operation,
				Asset:     record.Asset,
				Amount:    record.Amount,
			})
			if record.Asset == a.reporting {
				activity.Converts = append(activity.Converts, model.FiatConvert{
					Date:      record.Timestamp,
					FromAsset: a.counterpart(record, group),
					ToAsset:   record.Asset,
					Amount:    record.Amount,
					Direction: model.ConvertToFiat,
				})
				activity.TotalConvertsTo = activity.TotalConvertsTo.Add(record.Amount)
			}
		}

	case model.OpFiatPurchase:
		// Only the fiat debit leg lists as a conversion out of the
		// reporting currency; the crypto credit leg carries no fiat amount.
		if record.Asset == a.reporting && record.Amount.IsNegative() {
			amount := record.Amount.Abs()
			activity.Converts = append(activity.Converts, model.FiatConvert{
				Date:      record.Timestamp,
				FromAsset: record.Asset,
				ToAsset:   a.counterpart(record, group),
				Amount:    amount,
				Direction: model.ConvertFromFiat,
			})
			activity.TotalConvertsFrom = activity.TotalConvertsFrom.Add(amount)
		}
	}

	report.Fiscal[year] = *bucket
	report.FiatActivity[year] = *activity
}

// bucket returns the year's fiscal bucket, creating it with empty (non-nil)
// listings on first sight so a year with no taxable events still serializes
// as an explicit zero entry.
func (a *Aggregator) bucket(report *Report, year int) *model.YearlyFiscalBucket {
	if b, ok := report.Fiscal[year]; ok {
		return &b
	}
	return &model.YearlyFiscalBucket{
		Year:             year,
		SellTransactions: make([]model.SellTransaction, 0),
	}
}

// activity returns the year's fiat activity breakdown, creating it on first
// sight.
func (a *Aggregator) activity(report *Report, year int) *model.FiatYearActivity {
	if act, ok := report.FiatActivity[year]; ok {
		return &act
	}
	return &model.FiatYearActivity{
		Year:        year,
		Deposits:    make([]model.FiatEntry, 0),
		Withdrawals: make([]model.FiatEntry, 0),
		Converts:    make([]model.FiatConvert, 0),
	}
}

// counterpart finds the asset on the other side of a conversion: the
// non-fiat leg paired with a fiat leg in the same timestamp group. Empty
// when the group has no such leg (e.g. a pure fiat movement).
func (a *Aggregator) counterpart(record model.TransactionRecord, group []model.TransactionRecord) string {
	for _, other := range group {
		if other.Asset != record.Asset && !a.isFiat(other.Asset) && !sameSide(other, record) {
			return other.Asset
		}
	}
	return ""
}

// sameSide reports whether two legs move in the same direction, which rules
// one out as the other's conversion counterpart.
func sameSide(a, b model.TransactionRecord) bool {
	return a.Amount.IsPositive() == b.Amount.IsPositive()
}
