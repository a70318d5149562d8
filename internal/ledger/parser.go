// Package ledger parses raw exchange transaction exports into typed records
// and classifies each record by operation semantics.
package ledger

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jmoreau/Crypto-Wallet-Analyzer-Backend/internal/apperrors"
	"github.com/jmoreau/Crypto-Wallet-Analyzer-Backend/internal/model"
)

// timestampLayout is the UTC_Time format used by the exchange export.
const timestampLayout = "2006-01-02 15:04:05"

// Column names of the transaction export. User_ID and Remark are optional;
// the rest are required for a parseable ledger.
const (
	colUserID    = "User_ID"
	colTimestamp = "UTC_Time"
	colAccount   = "Account"
	colOperation = "Operation"
	colAsset     = "Coin"
	colAmount    = "Change"
	colRemark    = "Remark"
)

// ParseCSV reads a transaction export and returns one TransactionRecord per
// data row, in source order and without classification (Class is empty until
// the Classifier has run).
//
// Any malformed row aborts parsing with a MalformedRowError naming the
// 1-based data row index and the offending field: a ledger whose integrity
// cannot be assumed must not produce partial output.
func ParseCSV(r io.Reader) ([]model.TransactionRecord, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1 // rows are validated field-by-field below

	header, err := reader.Read()
	if err == io.EOF {
		return nil, apperrors.ErrEmptyLedger
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[cleanHeader(name)] = i
	}

	for _, required := range []string{colTimestamp, colOperation, colAsset, colAmount} {
		if _, ok := columns[required]; !ok {
			return nil, fmt.Errorf("%w: missing column %q", apperrors.ErrInvalidCSVHeaders, required)
		}
	}

	var records []model.TransactionRecord
	row := 0
	for {
		fields, err := reader.Read()
		if err == io.EOF {
			break
		}
		row++
		if err != nil {
			return nil, &apperrors.MalformedRowError{Row: row, Field: "row", Err: err}
		}

		record, err := parseRow(row, fields, columns)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}

	if len(records) == 0 {
		return nil, apperrors.ErrEmptyLedger
	}

	return records, nil
}

// parseRow converts one CSV row into a TransactionRecord, validating the
// required fields.
func parseRow(row int, fields []string, columns map[string]int) (model.TransactionRecord, error) {
	field := func(name string) string {
		idx, ok := columns[name]
		if !ok || idx >= len(fields) {
			return ""
		}
		return strings.TrimSpace(fields[idx])
	}

	rawTimestamp := field(colTimestamp)
	if rawTimestamp == "" {
		return model.TransactionRecord{}, &apperrors.MalformedRowError{Row: row, Field: colTimestamp}
	}
	timestamp, err := time.ParseInLocation(timestampLayout, rawTimestamp, time.UTC)
	if err != nil {
		return model.TransactionRecord{}, &apperrors.MalformedRowError{Row: row, Field: colTimestamp, Err: err}
	}

	operation := field(colOperation)
	if operation == "" {
		return model.TransactionRecord{}, &apperrors.MalformedRowError{Row: row, Field: colOperation}
	}

	asset := strings.ToUpper(field(colAsset))
	if asset == "" {
		return model.TransactionRecord{}, &apperrors.MalformedRowError{Row: row, Field: colAsset}
	}

	rawAmount := field(colAmount)
	if rawAmount == "" {
		return model.TransactionRecord{}, &apperrors.MalformedRowError{Row: row, Field: colAmount}
	}
	amount, err := decimal.NewFromString(rawAmount)
	if err != nil {
		return model.TransactionRecord{}, &apperrors.MalformedRowError{Row: row, Field: colAmount, Err: err}
	}

	return model.TransactionRecord{
		Row:       row,
		Timestamp: timestamp,
		Account:   field(colAccount),
		Operation: operation,
		Asset:     asset,
		Amount:    amount,
		Remark:    field(colRemark),
	}, nil
}

// cleanHeader strips surrounding whitespace and stray quotes that some
// export variants put around column names.
func cleanHeader(name string) string {
	return strings.Trim(strings.TrimSpace(name), `"`)
}
