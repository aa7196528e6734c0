package indicators

import (
	"context"
	"fmt"
	"math"

	"spotConsensusBot/internal/domain"
	"spotConsensusBot/internal/ports"
)

// SupertrendConfig holds configuration for the trend band flip indicator.
type SupertrendConfig struct {
	IndicatorConfig
	Multiplier float64 // band offset in ATR multiples, e.g. 3.0
}

// Supertrend implements an ATR-band trend flip. The ATR is a rolling mean
// of the true range (basic, not Wilder's smoothing). Bands sit at
// multiplier x ATR around the midprice and follow the standard ratchet
// rule: a band only tightens toward price, never loosens, except on a
// direction flip.
type Supertrend struct {
	BaseIndicator
	config SupertrendConfig
}

// NewSupertrend creates a new trend band flip indicator instance.
func NewSupertrend(config SupertrendConfig) *Supertrend {
	return &Supertrend{
		BaseIndicator: BaseIndicator{Config: config.IndicatorConfig},
		config:        config,
	}
}

// Name returns the name of the indicator.
func (s *Supertrend) Name() string {
	return "SUPERTREND"
}

// RequiredDataPoints returns the minimum number of candles needed.
func (s *Supertrend) RequiredDataPoints() int {
	return s.Config.Period + 1
}

// Calculate returns +1 while the trend direction is up and -1 while it is
// down. Raw carries the active band value.
func (s *Supertrend) Calculate(ctx context.Context, series domain.PriceSeries) (domain.IndicatorReading, error) {
	period := s.Config.Period
	if len(series) < period+1 {
		return neutralReading(s.Name()), fmt.Errorf("supertrend needs %d candles, got %d: %w", period+1, len(series), ports.ErrInsufficientData)
	}

	trueRanges := make([]float64, len(series))
	trueRanges[0] = series[0].High - series[0].Low
	for i := 1; i < len(series); i++ {
		hl := series[i].High - series[i].Low
		hc := math.Abs(series[i].High - series[i-1].Close)
		lc := math.Abs(series[i].Low - series[i-1].Close)
		trueRanges[i] = math.Max(hl, math.Max(hc, lc))
	}

	// Walk the series from the first candle with a full ATR window,
	// ratcheting the bands and flipping direction on a band break.
	direction := 1.0
	var finalUpper, finalLower float64
	first := true

	for i := period; i < len(series); i++ {
		atr := 0.0
		for j := i - period + 1; j <= i; j++ {
			atr += trueRanges[j]
		}
		atr /= float64(period)

		mid := (series[i].High + series[i].Low) / 2
		upper := mid + s.config.Multiplier*atr
		lower := mid - s.config.Multiplier*atr

		if first {
			finalUpper, finalLower = upper, lower
			first = false
		} else {
			prevClose := series[i-1].Close
			if upper < finalUpper || prevClose > finalUpper {
				finalUpper = upper
			}
			if lower > finalLower || prevClose < finalLower {
				finalLower = lower
			}
		}

		closePrice := series[i].Close
		switch {
		case closePrice > finalUpper:
			if direction < 0 {
				// Flip to uptrend; the opposite band restarts fresh.
				finalLower = lower
			}
			direction = 1
		case closePrice < finalLower:
			if direction > 0 {
				finalUpper = upper
			}
			direction = -1
		}
	}

	reading := domain.IndicatorReading{Name: s.Name()}
	if direction > 0 {
		reading.Signal = domain.SignalStrongBuy
		reading.Raw = finalLower
	} else {
		reading.Signal = domain.SignalStrongSell
		reading.Raw = finalUpper
	}
	return reading, nil
}
