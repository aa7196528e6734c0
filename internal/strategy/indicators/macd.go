package indicators

import (
	"context"
	"fmt"
	"math"

	"spotConsensusBot/internal/domain"
	"spotConsensusBot/internal/ports"
)

// MACDConfig holds configuration for the MACD indicator.
type MACDConfig struct {
	FastPeriod   int // e.g., 12
	SlowPeriod   int // e.g., 26
	SignalPeriod int // e.g., 9
}

// MACD implements the Moving Average Convergence Divergence indicator.
// The MACD line is EMA(fast) - EMA(slow) of the close price, the signal
// line is an EMA of the MACD line over the signal period, and the
// histogram is their difference.
type MACD struct {
	config MACDConfig
}

// NewMACD creates a new MACD indicator instance.
func NewMACD(config MACDConfig) *MACD {
	return &MACD{config: config}
}

// Name returns the name of the indicator.
func (m *MACD) Name() string {
	return "MACD"
}

// RequiredDataPoints returns the minimum number of candles needed to
// compare the current and previous line ordering.
func (m *MACD) RequiredDataPoints() int {
	return m.config.SlowPeriod + m.config.SignalPeriod + 1
}

// Calculate detects crossovers by comparing the current and previous
// relative ordering of the MACD and signal lines. A crossover with a
// growing histogram magnitude is a strong signal; simple line ordering
// without a crossover is a weak signal.
func (m *MACD) Calculate(ctx context.Context, series domain.PriceSeries) (domain.IndicatorReading, error) {
	required := m.RequiredDataPoints()
	if len(series) < required {
		return neutralReading(m.Name()), fmt.Errorf("macd needs %d candles, got %d: %w", required, len(series), ports.ErrInsufficientData)
	}

	closes := series.Closes()
	n := len(closes)

	// MACD line values for the trailing window, oldest first. One extra
	// value so both the current and previous signal line can be derived.
	window := m.config.SignalPeriod + 2
	macdVals := make([]float64, 0, window)
	for end := n - window + 1; end <= n; end++ {
		macdVals = append(macdVals, ema(closes[:end], m.config.FastPeriod)-ema(closes[:end], m.config.SlowPeriod))
	}

	macdCurr := macdVals[len(macdVals)-1]
	macdPrev := macdVals[len(macdVals)-2]
	sigCurr := ema(macdVals[1:], m.config.SignalPeriod)
	sigPrev := ema(macdVals[:len(macdVals)-1], m.config.SignalPeriod)

	histCurr := macdCurr - sigCurr
	histPrev := macdPrev - sigPrev

	reading := domain.IndicatorReading{Name: m.Name(), Signal: domain.SignalNeutral, Raw: histCurr}

	crossover := (histCurr > 0) != (histPrev > 0)
	growing := math.Abs(histCurr) > math.Abs(histPrev)

	switch {
	case histCurr > 0:
		if crossover && growing {
			reading.Signal = domain.SignalStrongBuy
		} else {
			reading.Signal = domain.SignalWeakBuy
		}
	case histCurr < 0:
		if crossover && growing {
			reading.Signal = domain.SignalStrongSell
		} else {
			reading.Signal = domain.SignalWeakSell
		}
	}

	return reading, nil
}
