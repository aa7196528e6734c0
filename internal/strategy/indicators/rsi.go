package indicators

import (
	"context"
	"fmt"

	"spotConsensusBot/internal/domain"
	"spotConsensusBot/internal/ports"
)

// RSIConfig holds configuration for the RSI indicator.
type RSIConfig struct {
	IndicatorConfig
	Overbought float64
	Oversold   float64
}

// RSI implements the Relative Strength Index using simple rolling means
// of gains and losses over the period (not Wilder's smoothing).
type RSI struct {
	BaseIndicator
	config RSIConfig
}

// NewRSI creates a new RSI indicator instance.
func NewRSI(config RSIConfig) *RSI {
	return &RSI{
		BaseIndicator: BaseIndicator{Config: config.IndicatorConfig},
		config:        config,
	}
}

// Name returns the name of the indicator.
func (r *RSI) Name() string {
	return "RSI"
}

// RequiredDataPoints returns the minimum number of candles needed.
// One extra candle is needed for the deltas, one more to detect a fresh
// threshold cross against the previous tick.
func (r *RSI) RequiredDataPoints() int {
	return r.Config.Period + 2
}

// Calculate maps the RSI level to a signal: a fresh cross below the
// oversold threshold is a strong buy, a fresh cross above overbought is a
// strong sell, a sustained zone without a fresh cross is a weak signal.
func (r *RSI) Calculate(ctx context.Context, series domain.PriceSeries) (domain.IndicatorReading, error) {
	period := r.Config.Period
	if len(series) < period+1 {
		return neutralReading(r.Name()), fmt.Errorf("rsi needs %d candles, got %d: %w", period+1, len(series), ports.ErrInsufficientData)
	}

	closes := series.Closes()
	current := rsiValue(closes, period)

	reading := domain.IndicatorReading{Name: r.Name(), Signal: domain.SignalNeutral, Raw: current}

	// Without a previous value a zone can only be reported as sustained.
	havePrev := len(series) >= period+2
	previous := current
	if havePrev {
		previous = rsiValue(closes[:len(closes)-1], period)
	}

	switch {
	case current < r.config.Oversold:
		if havePrev && previous >= r.config.Oversold {
			reading.Signal = domain.SignalStrongBuy
		} else {
			reading.Signal = domain.SignalWeakBuy
		}
	case current > r.config.Overbought:
		if havePrev && previous <= r.config.Overbought {
			reading.Signal = domain.SignalStrongSell
		} else {
			reading.Signal = domain.SignalWeakSell
		}
	}

	return reading, nil
}

// rsiValue computes the RSI over the last period deltas of closes using
// simple rolling means. A zero average loss is defined as maximal
// strength (RSI 100), not an error.
func rsiValue(closes []float64, period int) float64 {
	var avgGain, avgLoss float64
	for i := len(closes) - period; i < len(closes); i++ {
		change := closes[i] - closes[i-1]
		if change > 0 {
			avgGain += change
		} else {
			avgLoss -= change
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)

	if avgLoss == 0 {
		return 100
	}

	rs := avgGain / avgLoss
	return 100 - (100 / (1 + rs))
}
