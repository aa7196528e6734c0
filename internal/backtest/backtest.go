package backtest

import (
	"context"
	"fmt"
	"time"

	"spotConsensusBot/internal/domain"
	"spotConsensusBot/internal/journal"
	"spotConsensusBot/internal/ports"
	"spotConsensusBot/internal/risk"
	"spotConsensusBot/internal/strategy"
	"spotConsensusBot/internal/strategy/consensus"
)

// Config holds parameters for a backtest run.
type Config struct {
	InitialQuote     float64 // starting quote balance, e.g. 1000 USDT
	TradePercent     float64 // percent of quote spent per buy, e.g. 50
	MinTrendStrength float64 // consensus gate threshold; 0 disables
	MinNotional      float64 // orders below this value are skipped
}

// Result summarizes a completed backtest.
type Result struct {
	Candles    int
	Trades     []*domain.TradeRecord
	Stats      journal.Stats
	FinalQuote float64
	FinalBase  float64
	// FinalEquity is the final quote balance plus the base holding valued
	// at the last close.
	FinalEquity float64
}

// Runner replays a historical candle series through the same engine,
// combiner and exit rules the live loop uses, with instant fills at the
// candle close and no fees. It is a tuning aid, not an execution
// simulator.
type Runner struct {
	cfg      Config
	engine   *strategy.Engine
	combiner *consensus.Combiner
	risk     *risk.Manager
	logger   ports.Logger
}

// NewRunner creates a backtest runner.
func NewRunner(cfg Config, engine *strategy.Engine, combiner *consensus.Combiner, riskMgr *risk.Manager, logger ports.Logger) (*Runner, error) {
	if engine == nil || combiner == nil || riskMgr == nil || logger == nil {
		return nil, fmt.Errorf("all dependencies are required for backtest runner")
	}
	if cfg.InitialQuote <= 0 {
		return nil, fmt.Errorf("initial quote balance must be positive")
	}
	if cfg.TradePercent < 1 || cfg.TradePercent > 100 {
		return nil, fmt.Errorf("trade percent must be between 1 and 100")
	}
	return &Runner{cfg: cfg, engine: engine, combiner: combiner, risk: riskMgr, logger: logger}, nil
}

// Run replays the series candle by candle. At each step the engine sees
// only the candles up to and including the current one.
func (r *Runner) Run(ctx context.Context, series domain.PriceSeries) (*Result, error) {
	warmup := r.engine.RequiredDataPoints()
	if len(series) <= warmup {
		return nil, fmt.Errorf("series of %d candles is shorter than the %d-candle warmup: %w",
			len(series), warmup, ports.ErrInsufficientData)
	}

	jrnl := journal.New(0)
	position := domain.NewPositionState()
	quote := r.cfg.InitialQuote
	base := 0.0

	for i := warmup; i < len(series); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		window := series[:i+1]
		candle := series[i]
		price := candle.Close
		at := candle.CloseTime

		position.ObservePrice(price)

		if position.Side() == domain.SideLong {
			if exit, reason := r.risk.ShouldExit(position.Snapshot(), price, at); exit {
				quote, base = r.sell(jrnl, position, price, at, reason, base, quote, nil)
				continue
			}
		}

		readings, strength := r.engine.Evaluate(ctx, window)
		sig := r.combiner.Combine(ctx, readings, strength, r.cfg.MinTrendStrength, price, at)

		switch sig.Action {
		case domain.ActionBuy:
			if position.Side() != domain.SideLong {
				spend := quote * r.cfg.TradePercent / 100
				if spend < r.cfg.MinNotional {
					continue
				}
				qty := spend / price
				quote -= spend
				base += qty
				position.MarkLong(price, qty, at)
				jrnl.Append(&domain.TradeRecord{
					Time: at, Action: domain.ActionBuy,
					Quantity: qty, CounterQty: spend, Price: price,
					Signals: sig.Readings,
				})
			}
		case domain.ActionSell:
			if position.Side() == domain.SideLong {
				quote, base = r.sell(jrnl, position, price, at, domain.CloseReasonSignal, base, quote, sig.Readings)
			}
		}
	}

	last := series.Last().Close
	result := &Result{
		Candles:     len(series),
		Trades:      jrnl.Recent(0),
		Stats:       jrnl.Stats(),
		FinalQuote:  quote,
		FinalBase:   base,
		FinalEquity: quote + base*last,
	}
	r.logger.Info(ctx, "Backtest finished", map[string]interface{}{
		"candles": result.Candles, "trades": result.Stats.TotalTrades,
		"roundTrips": result.Stats.RoundTrips, "winRate": result.Stats.WinRate,
		"realizedPnL": result.Stats.RealizedPnL, "finalEquity": result.FinalEquity,
	})
	return result, nil
}

func (r *Runner) sell(jrnl *journal.Journal, position *domain.PositionState, price float64, at time.Time, reason domain.CloseReason, base, quote float64, signals []domain.IndicatorReading) (float64, float64) {
	proceeds := base * price
	jrnl.Append(&domain.TradeRecord{
		Time: at, Action: domain.ActionSell,
		Quantity: base, CounterQty: proceeds, Price: price,
		Reason: reason, Signals: signals,
	})
	if reason == domain.CloseReasonSignal {
		position.MarkSold()
	} else {
		position.Reset()
	}
	return quote + proceeds, 0
}
