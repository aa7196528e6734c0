package indicators

import (
	"context"
	"fmt"
	"math"

	"spotConsensusBot/internal/domain"
	"spotConsensusBot/internal/ports"
)

// VolumeTrendConfig holds configuration for the volume-weighted trend.
type VolumeTrendConfig struct {
	IndicatorConfig
	VolumePower float64 // exponent applied to volume weights, e.g. 1.0
}

// VolumeTrend implements a volume-weighted moving average trend check:
// price above a rising weighted MA is bullish, price below a falling one
// is bearish, anything else is neutral.
type VolumeTrend struct {
	BaseIndicator
	config VolumeTrendConfig
}

// NewVolumeTrend creates a new volume-weighted trend indicator instance.
func NewVolumeTrend(config VolumeTrendConfig) *VolumeTrend {
	return &VolumeTrend{
		BaseIndicator: BaseIndicator{Config: config.IndicatorConfig},
		config:        config,
	}
}

// Name returns the name of the indicator.
func (v *VolumeTrend) Name() string {
	return "VWMA"
}

// RequiredDataPoints returns the minimum number of candles needed.
// One extra candle is needed to measure the weighted MA slope.
func (v *VolumeTrend) RequiredDataPoints() int {
	return v.Config.Period + 1
}

// Calculate computes the weighted MA at the current and previous candle
// and compares price against level and slope.
func (v *VolumeTrend) Calculate(ctx context.Context, series domain.PriceSeries) (domain.IndicatorReading, error) {
	period := v.Config.Period
	if len(series) < period+1 {
		return neutralReading(v.Name()), fmt.Errorf("volume trend needs %d candles, got %d: %w", period+1, len(series), ports.ErrInsufficientData)
	}

	current := v.weightedMA(series[len(series)-period:])
	previous := v.weightedMA(series[len(series)-period-1 : len(series)-1])
	price := series.Last().Close

	reading := domain.IndicatorReading{Name: v.Name(), Signal: domain.SignalNeutral, Raw: current}
	switch {
	case price > current && current > previous:
		reading.Signal = domain.SignalStrongBuy
	case price < current && current < previous:
		reading.Signal = domain.SignalStrongSell
	}
	return reading, nil
}

// weightedMA computes the volume^power weighted mean of close prices.
// Zero total weight (all volumes zero) degrades to a simple mean.
func (v *VolumeTrend) weightedMA(window domain.PriceSeries) float64 {
	var weightedSum, totalWeight float64
	for _, c := range window {
		w := math.Pow(c.Volume, v.config.VolumePower)
		weightedSum += c.Close * w
		totalWeight += w
	}
	if totalWeight == 0 {
		sum := 0.0
		for _, c := range window {
			sum += c.Close
		}
		return sum / float64(len(window))
	}
	return weightedSum / totalWeight
}
