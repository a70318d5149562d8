package model

import "github.com/shopspring/decimal"

// YearSeries holds the aligned daily time series for one calendar year.
// Dates, NetInvested and PortfolioValue always have identical length and
// identical date labels, so a latent-gain series (value - invested) is
// well-defined at every point.
type YearSeries struct {
	Dates          []string  `json:"dates"` // "2006-01-02", ascending
	NetInvested    []float64 `json:"netInvested"`
	PortfolioValue []float64 `json:"portfolioValues"`
}

// AnalysisResult is the complete output of one analysis run. It is a plain
// data object with no behavior, suitable for serialization to any
// presentation layer.
type AnalysisResult struct {
	TotalTransactions int                       `json:"totalTransactions"`
	NetInvested       decimal.Decimal           `json:"netInvested"`
	CurrentValue      decimal.Decimal           `json:"currentValue"`
	FinalHoldings     Holdings                  `json:"finalHoldings"`
	Series            map[int]YearSeries        `json:"charts"`
	FiscalReport      map[int]YearlyFiscalBucket `json:"fiscalReport"`
	FiatActivity      map[int]FiatYearActivity  `json:"fiatTransactions"`
}
