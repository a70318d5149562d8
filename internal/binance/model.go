package binance

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// Kline is one candlestick returned by the klines endpoint. Only the fields
// used for daily valuation are kept.
type Kline struct {
	OpenTime int64
	Close    decimal.Decimal
}

// parseKlines decodes the klines response body. The API returns an array of
// arrays mixing numbers and strings; prices arrive as strings and are decoded
// into decimals without a float round-trip.
func parseKlines(body []byte) ([]Kline, error) {
	var raw [][]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode klines response: %w", err)
	}

	klines := make([]Kline, 0, len(raw))
	for i, fields := range raw {
		// Fields: open time, open, high, low, close, volume, close time, ...
		if len(fields) < 5 {
			return nil, fmt.Errorf("kline %d has %d fields, expected at least 5", i, len(fields))
		}

		var k Kline
		if err := json.Unmarshal(fields[0], &k.OpenTime); err != nil {
			return nil, fmt.Errorf("kline %d: invalid open time: %w", i, err)
		}

		var closeStr string
		if err := json.Unmarshal(fields[4], &closeStr); err != nil {
			return nil, fmt.Errorf("kline %d: invalid close price: %w", i, err)
		}
		closePrice, err := decimal.NewFromString(closeStr)
		if err != nil {
			return nil, fmt.Errorf("kline %d: invalid close price %q: %w", i, closeStr, err)
		}
		k.Close = closePrice

		klines = append(klines, k)
	}

	return klines, nil
}
