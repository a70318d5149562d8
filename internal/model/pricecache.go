package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// PriceCacheEntry is one persisted historical price point, keyed uniquely by
// (asset, date) at day granularity. Once written an entry is treated as
// immutable: a given asset/date pair always resolves to the same price.
type PriceCacheEntry struct {
	Asset     string          `json:"asset"`
	Date      time.Time       `json:"date"` // midnight UTC
	Price     decimal.Decimal `json:"price"`
	FetchedAt time.Time       `json:"fetchedAt"`
}
