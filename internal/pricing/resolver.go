// Package pricing implements the price resolution service: a cache-first,
// concurrency-bounded lookup of historical asset prices in the reporting
// currency.
package pricing

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"

	"github.com/jmoreau/Crypto-Wallet-Analyzer-Backend/internal/apperrors"
	"github.com/jmoreau/Crypto-Wallet-Analyzer-Backend/internal/model"
	"github.com/jmoreau/Crypto-Wallet-Analyzer-Backend/internal/progress"
)

// RemoteSource fetches a price from the remote market-data API. It is the
// only network dependency of the resolver; tests substitute a fake.
type RemoteSource interface {
	DailyClose(ctx context.Context, asset string, date time.Time) (decimal.Decimal, error)
}

// Options configures a Resolver. Zero values fall back to sane defaults.
type Options struct {
	// ReportingCurrency bypasses remote lookup entirely: its price is 1.
	ReportingCurrency string
	// Workers bounds concurrent remote fetches. Default 10.
	Workers int64
	// RetryAttempts is the total number of tries on rate-limited fetches.
	// Default 3.
	RetryAttempts int
	// RetryBase is the first backoff delay, doubled per attempt.
	// Default 500ms.
	RetryBase time.Duration
	// Reporter receives warnings (cache I/O failures, unresolved prices).
	Reporter progress.Reporter
}

// Resolver maps (asset, calendar date) to a fiat price. Lookups are
// cache-first; misses fan out to the remote source through a bounded worker
// pool, with in-flight deduplication per key so concurrent requests for the
// same (asset, date) trigger at most one remote call.
type Resolver struct {
	store    Store
	memory   *MemoryStore
	source   RemoteSource
	reporter progress.Reporter

	reporting string
	attempts  int
	retryBase time.Duration

	slots  *semaphore.Weighted
	flight singleflight.Group

	// degraded flips to true after the first persistent-store failure; the
	// session then runs on in-memory caching only. Durability is lost,
	// correctness is not.
	degraded atomic.Bool
}

// NewResolver creates a price resolver backed by the given cache store and
// remote source.
func NewResolver(store Store, source RemoteSource, opts Options) *Resolver {
	if opts.ReportingCurrency == "" {
		opts.ReportingCurrency = "EUR"
	}
	if opts.Workers <= 0 {
		opts.Workers = 10
	}
	if opts.RetryAttempts <= 0 {
		opts.RetryAttempts = 3
	}
	if opts.RetryBase <= 0 {
		opts.RetryBase = 500 * time.Millisecond
	}
	if opts.Reporter == nil {
		opts.Reporter = progress.Nop{}
	}

	return &Resolver{
		store:     store,
		memory:    NewMemoryStore(),
		source:    source,
		reporter:  opts.Reporter,
		reporting: opts.ReportingCurrency,
		attempts:  opts.RetryAttempts,
		retryBase: opts.RetryBase,
		slots:     semaphore.NewWeighted(opts.Workers),
	}
}

// Price resolves the price of one asset on one calendar day in the reporting
// currency.
//
// Resolution order: reporting-currency bypass (price 1, no lookup), cache
// hit, then a deduplicated remote fetch. Rate-limited fetches are retried
// with exponential backoff; exhaustion and all other remote failures surface
// as apperrors.ErrPriceUnavailable, which callers treat as "price unknown for
// this point", never as a fatal run failure.
//
// Cancelling ctx unblocks the caller but deliberately lets an in-flight
// fetch finish and populate the cache: its result benefits future runs even
// when this one is discarded.
func (r *Resolver) Price(ctx context.Context, asset string, date time.Time) (decimal.Decimal, error) {
	if asset == r.reporting {
		return decimal.NewFromInt(1), nil
	}

	day := date.UTC().Truncate(24 * time.Hour)

	if entry, ok := r.lookup(asset, day); ok {
		return entry.Price, nil
	}

	ch := r.flight.DoChan(cacheKey(asset, day), func() (interface{}, error) {
		return r.fetch(context.WithoutCancel(ctx), asset, day)
	})

	select {
	case <-ctx.Done():
		return decimal.Zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return decimal.Zero, fmt.Errorf("price for %s at %s: %w (%v)",
				asset, day.Format("2006-01-02"), apperrors.ErrPriceUnavailable, res.Err)
		}
		return res.Val.(decimal.Decimal), nil
	}
}

// Prices resolves a batch of assets for one calendar day concurrently.
// Unresolvable assets are absent from the returned map and logged as
// warnings; a partial result is a valid result.
func (r *Resolver) Prices(ctx context.Context, assets []string, date time.Time) map[string]decimal.Decimal {
	results := make(map[string]decimal.Decimal, len(assets))

	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, asset := range assets {
		asset := asset
		wg.Add(1)
		go func() {
			defer wg.Done()
			price, err := r.Price(ctx, asset, date)
			if err != nil {
				if !errors.Is(err, context.Canceled) {
					r.reporter.Log(progress.LevelWarn, fmt.Sprintf(
						"no price for %s on %s, skipping its contribution", asset, date.UTC().Format("2006-01-02")))
				}
				return
			}
			mu.Lock()
			results[asset] = price
			mu.Unlock()
		}()
	}
	wg.Wait()

	return results
}

// fetch performs the remote lookup for a cache miss. It runs under
// singleflight, so at most one fetch per key is in flight at a time; the
// semaphore additionally bounds fetches across distinct keys.
func (r *Resolver) fetch(ctx context.Context, asset string, day time.Time) (interface{}, error) {
	// A waiter that lost the singleflight race may land here after the
	// winner already cached the value.
	if entry, ok := r.lookup(asset, day); ok {
		return entry.Price, nil
	}

	if err := r.slots.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer r.slots.Release(1)

	var price decimal.Decimal
	backoff := retry.WithMaxRetries(uint64(r.attempts-1), retry.NewExponential(r.retryBase))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		p, err := r.source.DailyClose(ctx, asset, day)
		if err != nil {
			if errors.Is(err, apperrors.ErrRateLimited) {
				return retry.RetryableError(err)
			}
			return err
		}
		price = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	r.put(model.PriceCacheEntry{
		Asset:     asset,
		Date:      day,
		Price:     price,
		FetchedAt: time.Now().UTC(),
	})

	return price, nil
}

// lookup checks the persistent store, falling back to the in-memory overlay
// once the store has failed for this session.
func (r *Resolver) lookup(asset string, day time.Time) (model.PriceCacheEntry, bool) {
	if !r.degraded.Load() {
		entry, ok, err := r.store.Get(asset, day)
		if err == nil {
			return entry, ok
		}
		r.degrade(err)
	}

	entry, ok, _ := r.memory.Get(asset, day)
	return entry, ok
}

// put writes a resolved price back to the cache before it is returned,
// keeping the cache monotonically growing.
func (r *Resolver) put(entry model.PriceCacheEntry) {
	if !r.degraded.Load() {
		err := r.store.Put(entry)
		if err == nil {
			return
		}
		r.degrade(err)
	}

	// Correctness never depends on the persistent store.
	_ = r.memory.Put(entry)
}

// degrade switches the session to in-memory-only caching after a cache I/O
// failure. Warned once; repeated store errors would otherwise flood the log.
func (r *Resolver) degrade(cause error) {
	if r.degraded.CompareAndSwap(false, true) {
		r.reporter.Log(progress.LevelWarn, fmt.Sprintf(
			"%v: %v; continuing with in-memory cache for this session", apperrors.ErrCacheIO, cause))
	}
}
