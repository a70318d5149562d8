package apperrors

import (
	"errors"
	"fmt"
)

// Pricing errors. Price resolution degrades, it never aborts a run: an
// unresolvable price surfaces as a warning and the affected valuation point
// simply omits that asset's contribution.
var (
	// ErrPriceUnavailable indicates that a price could not be resolved for an
	// asset/date pair after cache miss and remote lookup exhaustion.
	ErrPriceUnavailable = errors.New("price unavailable")

	// ErrRateLimited indicates that the remote price source rejected a request
	// due to rate limiting. Recovered internally with exponential backoff; it
	// only escapes as ErrPriceUnavailable once retries are exhausted.
	ErrRateLimited = errors.New("rate limited by price source")

	// ErrCacheIO indicates a failure reading from or writing to the persistent
	// price cache. Logged as a warning; the run proceeds on in-memory caching.
	ErrCacheIO = errors.New("price cache I/O failure")
)

// Ledger errors. A ledger whose integrity cannot be assumed aborts the whole
// run with a row-indexed error.
var (
	// ErrInvalidCSVHeaders indicates that the export is missing one of the
	// required columns.
	ErrInvalidCSVHeaders = errors.New("invalid CSV headers")

	// ErrEmptyLedger indicates that the export contained no transaction rows.
	ErrEmptyLedger = errors.New("ledger contains no transactions")
)

// Analysis run errors returned by the run registry and the HTTP layer.
var (
	// ErrRunNotFound indicates that no analysis run exists for the given ID.
	ErrRunNotFound = errors.New("analysis run not found")

	// ErrRunNotCompleted indicates that results were requested for a run that
	// has not finished yet.
	ErrRunNotCompleted = errors.New("analysis run not completed")

	// ErrNoFileProvided indicates that the upload request carried no CSV file.
	ErrNoFileProvided = errors.New("no file provided")

	// ErrInvalidFileType indicates that the uploaded file is not a CSV export.
	ErrInvalidFileType = errors.New("invalid file type, only CSV files are accepted")
)

// MalformedRowError identifies a transaction row that could not be parsed.
// It names the 1-based data row index and the offending field so the caller
// can point the user at the exact line of the export.
type MalformedRowError struct {
	Row   int
	Field string
	Err   error
}

func (e *MalformedRowError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed row %d: field %q: %v", e.Row, e.Field, e.Err)
	}
	return fmt.Sprintf("malformed row %d: field %q is missing or invalid", e.Row, e.Field)
}

func (e *MalformedRowError) Unwrap() error {
	return e.Err
}
