package indicators

import (
	"context"
	"fmt"
	"math"

	"spotConsensusBot/internal/domain"
	"spotConsensusBot/internal/ports"
)

// TrendStrengthConfig holds configuration for the trend strength filter.
type TrendStrengthConfig struct {
	IndicatorConfig
}

// TrendStrength computes an ADX-style scalar measuring trend conviction
// from directional movement over the period. It is used as a gate on the
// consensus decision, not as a vote.
type TrendStrength struct {
	config TrendStrengthConfig
}

// NewTrendStrength creates a new trend strength filter instance.
func NewTrendStrength(config TrendStrengthConfig) *TrendStrength {
	return &TrendStrength{config: config}
}

// RequiredDataPoints returns the minimum number of candles needed.
func (t *TrendStrength) RequiredDataPoints() int {
	return t.config.Period + 1
}

// Calculate computes the directional index over the trailing period.
// The result is a scalar in [0, 100]; higher means a stronger trend.
func (t *TrendStrength) Calculate(ctx context.Context, series domain.PriceSeries) (float64, error) {
	period := t.config.Period
	if len(series) < period+1 {
		return 0, fmt.Errorf("trend strength needs %d candles, got %d: %w", period+1, len(series), ports.ErrInsufficientData)
	}

	var plusDMSum, minusDMSum, trSum float64
	for i := len(series) - period; i < len(series); i++ {
		curr, prev := series[i], series[i-1]

		upMove := curr.High - prev.High
		downMove := prev.Low - curr.Low
		if upMove > downMove && upMove > 0 {
			plusDMSum += upMove
		}
		if downMove > upMove && downMove > 0 {
			minusDMSum += downMove
		}

		hl := curr.High - curr.Low
		hc := math.Abs(curr.High - prev.Close)
		lc := math.Abs(curr.Low - prev.Close)
		trSum += math.Max(hl, math.Max(hc, lc))
	}

	if trSum == 0 {
		return 0, nil
	}
	plusDI := (plusDMSum / trSum) * 100
	minusDI := (minusDMSum / trSum) * 100
	if plusDI+minusDI == 0 {
		return 0, nil
	}
	return math.Abs(plusDI-minusDI) / (plusDI + minusDI) * 100, nil
}
