package strategy

import (
	"context"
	"errors"
	"fmt"

	"spotConsensusBot/internal/domain"
	"spotConsensusBot/internal/ports"
	"spotConsensusBot/internal/strategy/indicators"
)

// Config holds parameters for the indicator set.
type Config struct {
	RSIPeriod     int     // e.g., 14
	RSIOverbought float64 // e.g., 70.0
	RSIOversold   float64 // e.g., 30.0

	MACDFastPeriod   int // e.g., 12
	MACDSlowPeriod   int // e.g., 26
	MACDSignalPeriod int // e.g., 9

	SupertrendPeriod     int     // e.g., 10
	SupertrendMultiplier float64 // e.g., 3.0

	VolumeTrendPeriod int     // e.g., 20
	VolumePower       float64 // e.g., 1.0

	TrendStrengthPeriod int // e.g., 14; 0 disables the filter
}

// Engine evaluates the full indicator set against one price series. It is
// pure: identical input yields identical readings, and a series shorter
// than an indicator's lookback yields a neutral reading for it, never an
// error to the caller.
type Engine struct {
	cfg    Config
	logger ports.Logger

	voters   []indicators.Indicator
	strength *indicators.TrendStrength
}

// New creates a new Engine instance.
func New(cfg Config, logger ports.Logger) (*Engine, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required for strategy engine")
	}
	if cfg.RSIPeriod <= 0 || cfg.SupertrendPeriod <= 0 || cfg.VolumeTrendPeriod <= 0 {
		return nil, fmt.Errorf("indicator periods must be positive")
	}
	if cfg.MACDFastPeriod <= 0 || cfg.MACDSlowPeriod <= 0 || cfg.MACDSignalPeriod <= 0 {
		return nil, fmt.Errorf("MACD periods must be positive")
	}
	if cfg.MACDFastPeriod >= cfg.MACDSlowPeriod {
		return nil, fmt.Errorf("MACD fast period must be less than slow period")
	}
	if cfg.RSIOverbought <= cfg.RSIOversold || cfg.RSIOverbought > 100 || cfg.RSIOversold < 0 {
		return nil, fmt.Errorf("invalid RSI thresholds (overbought must be > oversold, between 0-100)")
	}
	if cfg.SupertrendMultiplier <= 0 {
		return nil, fmt.Errorf("supertrend multiplier must be positive")
	}

	e := &Engine{cfg: cfg, logger: logger}
	e.voters = []indicators.Indicator{
		indicators.NewSupertrend(indicators.SupertrendConfig{
			IndicatorConfig: indicators.IndicatorConfig{Period: cfg.SupertrendPeriod},
			Multiplier:      cfg.SupertrendMultiplier,
		}),
		indicators.NewMACD(indicators.MACDConfig{
			FastPeriod:   cfg.MACDFastPeriod,
			SlowPeriod:   cfg.MACDSlowPeriod,
			SignalPeriod: cfg.MACDSignalPeriod,
		}),
		indicators.NewRSI(indicators.RSIConfig{
			IndicatorConfig: indicators.IndicatorConfig{Period: cfg.RSIPeriod},
			Overbought:      cfg.RSIOverbought,
			Oversold:        cfg.RSIOversold,
		}),
		indicators.NewVolumeTrend(indicators.VolumeTrendConfig{
			IndicatorConfig: indicators.IndicatorConfig{Period: cfg.VolumeTrendPeriod},
			VolumePower:     cfg.VolumePower,
		}),
	}
	if cfg.TrendStrengthPeriod > 0 {
		e.strength = indicators.NewTrendStrength(indicators.TrendStrengthConfig{
			IndicatorConfig: indicators.IndicatorConfig{Period: cfg.TrendStrengthPeriod},
		})
	}
	return e, nil
}

// RequiredDataPoints returns the number of candles needed for every
// indicator to produce a non-neutral reading.
func (e *Engine) RequiredDataPoints() int {
	max := 0
	for _, ind := range e.voters {
		if n := ind.RequiredDataPoints(); n > max {
			max = n
		}
	}
	if e.strength != nil {
		if n := e.strength.RequiredDataPoints(); n > max {
			max = n
		}
	}
	return max
}

// Evaluate runs every indicator against the series and returns the
// readings plus the trend strength scalar. Insufficient data degrades to
// a neutral reading (or zero strength) rather than an error.
func (e *Engine) Evaluate(ctx context.Context, series domain.PriceSeries) ([]domain.IndicatorReading, float64) {
	readings := make([]domain.IndicatorReading, 0, len(e.voters))
	for _, ind := range e.voters {
		reading, err := ind.Calculate(ctx, series)
		if err != nil {
			if !errors.Is(err, ports.ErrInsufficientData) {
				e.logger.Warn(ctx, "Indicator calculation failed", map[string]interface{}{"indicator": ind.Name(), "error": err.Error()})
			}
			reading = domain.IndicatorReading{Name: ind.Name(), Signal: domain.SignalNeutral}
		}
		readings = append(readings, reading)
	}

	strength := 0.0
	if e.strength != nil {
		if v, err := e.strength.Calculate(ctx, series); err == nil {
			strength = v
		}
	}
	return readings, strength
}
