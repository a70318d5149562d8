package pricing

import (
	"sync"
	"time"

	"github.com/jmoreau/Crypto-Wallet-Analyzer-Backend/internal/model"
)

// Store is the persistence contract for resolved prices. Implementations
// must be safe for concurrent use and must write entries individually, so a
// crash mid-run never corrupts previously stored entries.
//
// The sqlite-backed implementation lives in internal/repository; MemoryStore
// below covers tests and the degraded in-memory-only session that follows a
// cache I/O failure.
type Store interface {
	// Get returns the entry for (asset, date) and whether it exists.
	Get(asset string, date time.Time) (model.PriceCacheEntry, bool, error)

	// Put writes a single entry, replacing any existing one for its key.
	Put(entry model.PriceCacheEntry) error
}

// MemoryStore is an in-memory Store implementation.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]model.PriceCacheEntry
}

// NewMemoryStore creates an empty in-memory price store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]model.PriceCacheEntry)}
}

// Get returns the entry for (asset, date) and whether it exists.
func (s *MemoryStore) Get(asset string, date time.Time) (model.PriceCacheEntry, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.entries[cacheKey(asset, date)]
	return entry, ok, nil
}

// Put writes a single entry.
func (s *MemoryStore) Put(entry model.PriceCacheEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[cacheKey(entry.Asset, entry.Date)] = entry
	return nil
}

// Len returns the number of stored entries.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// cacheKey builds the unique (asset, date) key at day granularity.
func cacheKey(asset string, date time.Time) string {
	return asset + "|" + date.UTC().Format("2006-01-02")
}
