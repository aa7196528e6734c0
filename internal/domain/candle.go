package domain

import "time"

// Candle represents a single OHLCV candlestick.
// Candles are produced by the exchange adapter, ordered ascending by open
// time. Gaps are not validated.
type Candle struct {
	OpenTime  time.Time // Start time of the interval
	CloseTime time.Time // End time of the interval
	Symbol    string    // Trading symbol
	Interval  string    // Candle interval (e.g., "15m", "1h")
	Open      float64   // Opening price
	High      float64   // Highest price
	Low       float64   // Lowest price
	Close     float64   // Closing price
	Volume    float64   // Trading volume
}

// PriceSeries is an ordered sequence of candles. It is refreshed wholesale
// on every polling tick and discarded after signal computation.
type PriceSeries []*Candle

// Last returns the most recent candle, or nil for an empty series.
func (s PriceSeries) Last() *Candle {
	if len(s) == 0 {
		return nil
	}
	return s[len(s)-1]
}

// Closes returns the close prices of the series in order.
func (s PriceSeries) Closes() []float64 {
	closes := make([]float64, len(s))
	for i, c := range s {
		closes[i] = c.Close
	}
	return closes
}
