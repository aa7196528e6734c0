package indicators

import (
	"context"

	"spotConsensusBot/internal/domain"
)

// Indicator is a pure, stateless transformation of a price series into a
// directional reading. Implementations return ports.ErrInsufficientData
// (wrapped) when the series is shorter than their lookback; they never
// panic and have no side effects.
type Indicator interface {
	// Calculate computes the reading for the given series.
	Calculate(ctx context.Context, series domain.PriceSeries) (domain.IndicatorReading, error)

	// RequiredDataPoints returns the minimum number of candles needed.
	RequiredDataPoints() int

	// Name returns the name of the indicator.
	Name() string
}

// IndicatorConfig holds common configuration for indicators.
type IndicatorConfig struct {
	Period int
}

// BaseIndicator provides common functionality for indicators.
type BaseIndicator struct {
	Config IndicatorConfig
}

// RequiredDataPoints returns the minimum number of candles needed for calculation.
func (b *BaseIndicator) RequiredDataPoints() int {
	return b.Config.Period
}

// neutralReading is the fallback reading for indicators that cannot vote.
func neutralReading(name string) domain.IndicatorReading {
	return domain.IndicatorReading{Name: name, Signal: domain.SignalNeutral}
}

// ema computes an exponential moving average over the full slice, seeded
// with a simple average of the first period values.
func ema(values []float64, period int) float64 {
	sma := 0.0
	for i := 0; i < period; i++ {
		sma += values[i]
	}
	sma /= float64(period)

	multiplier := 2.0 / float64(period+1)
	result := sma
	for i := period; i < len(values); i++ {
		result = (values[i]-result)*multiplier + result
	}
	return result
}
