package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jmoreau/Crypto-Wallet-Analyzer-Backend/internal/model"
)

// PriceCacheRepository provides data access methods for the price_cache
// table. Each entry is keyed by (asset, date) at day granularity; writes are
// single-row upserts, so concurrent workers persisting different keys never
// clobber each other and a crash mid-run leaves previously cached entries
// intact.
type PriceCacheRepository struct {
	db *sql.DB
}

// NewPriceCacheRepository creates a new PriceCacheRepository with the provided database connection.
func NewPriceCacheRepository(db *sql.DB) *PriceCacheRepository {
	return &PriceCacheRepository{db: db}
}

// Get retrieves the cached price for an asset on a calendar day.
// The boolean result reports whether an entry exists; a missing entry is not
// an error.
func (r *PriceCacheRepository) Get(asset string, date time.Time) (model.PriceCacheEntry, bool, error) {
	query := `
		SELECT asset, date, price, fetched_at
		FROM price_cache
		WHERE asset = ? AND date = ?
	`

	var entry model.PriceCacheEntry
	var dateStr, priceStr, fetchedAtStr string

	err := r.db.QueryRow(query, asset, date.UTC().Format("2006-01-02")).
		Scan(&entry.Asset, &dateStr, &priceStr, &fetchedAtStr)
	if err == sql.ErrNoRows {
		return model.PriceCacheEntry{}, false, nil
	}
	if err != nil {
		return model.PriceCacheEntry{}, false, fmt.Errorf("failed to query price_cache table: %w", err)
	}

	entry.Date, err = ParseTime(dateStr)
	if err != nil {
		return model.PriceCacheEntry{}, false, fmt.Errorf("failed to parse cached date: %w", err)
	}

	entry.Price, err = decimal.NewFromString(priceStr)
	if err != nil {
		return model.PriceCacheEntry{}, false, fmt.Errorf("failed to parse cached price: %w", err)
	}

	entry.FetchedAt, err = ParseTime(fetchedAtStr)
	if err != nil {
		return model.PriceCacheEntry{}, false, fmt.Errorf("failed to parse fetch timestamp: %w", err)
	}

	return entry, true, nil
}

// Put writes one cache entry. An existing entry for the same (asset, date)
// key is overwritten; historical prices are immutable so the replacement is
// always the same value fetched again.
func (r *PriceCacheRepository) Put(entry model.PriceCacheEntry) error {
	query := `
		INSERT INTO price_cache (asset, date, price, fetched_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (asset, date) DO UPDATE SET
			price = excluded.price,
			fetched_at = excluded.fetched_at
	`

	_, err := r.db.Exec(query,
		entry.Asset,
		entry.Date.UTC().Format("2006-01-02"),
		entry.Price.String(),
		entry.FetchedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert price_cache entry: %w", err)
	}

	return nil
}

// Count returns the number of cached entries.
func (r *PriceCacheRepository) Count() (int, error) {
	var count int
	if err := r.db.QueryRow(`SELECT COUNT(*) FROM price_cache`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count price_cache entries: %w", err)
	}
	return count, nil
}
