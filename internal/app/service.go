package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"spotConsensusBot/config"
	"spotConsensusBot/internal/domain"
	"spotConsensusBot/internal/execution"
	"spotConsensusBot/internal/journal"
	"spotConsensusBot/internal/ports"
	"spotConsensusBot/internal/risk"
	"spotConsensusBot/internal/strategy"
	"spotConsensusBot/internal/strategy/consensus"
)

// Status is a read-only snapshot of the service for display.
type Status struct {
	Running    bool
	Position   domain.PositionSnapshot
	LastSignal *domain.ConsensusSignal
	Balances   ports.Balances
	Trades     []*domain.TradeRecord
	Stats      journal.Stats
}

// TradingService owns the polling decision loop: fetch market data,
// evaluate indicators, combine the votes, run exit rules, and hand
// decisions to the executor. It is the only component that mutates the
// position state, and it does so only after a confirmed fill.
type TradingService struct {
	cfg      *config.Config
	exchange ports.ExchangeClient
	engine   *strategy.Engine
	combiner *consensus.Combiner
	risk     *risk.Manager
	executor *execution.Executor
	journal  *journal.Journal
	logger   ports.Logger

	mu          sync.Mutex
	running     bool
	stop        context.CancelFunc
	done        chan struct{}
	position    *domain.PositionState
	lastSignal  *domain.ConsensusSignal
	lastBal     ports.Balances
	noDataTicks int
}

// New creates a new TradingService instance.
func New(
	cfg *config.Config,
	exchange ports.ExchangeClient,
	engine *strategy.Engine,
	combiner *consensus.Combiner,
	riskMgr *risk.Manager,
	executor *execution.Executor,
	jrnl *journal.Journal,
	logger ports.Logger,
) (*TradingService, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required for trading service")
	}
	if exchange == nil || engine == nil || combiner == nil || riskMgr == nil || executor == nil || jrnl == nil || logger == nil {
		return nil, fmt.Errorf("all dependencies are required for trading service")
	}
	return &TradingService{
		cfg:      cfg,
		exchange: exchange,
		engine:   engine,
		combiner: combiner,
		risk:     riskMgr,
		executor: executor,
		journal:  jrnl,
		logger:   logger,
		position: domain.NewPositionState(),
	}, nil
}

// Start launches the polling loop in a background goroutine. It returns
// immediately; use Done() to wait for the loop to finish. Starting an
// already-running service is an error, as is starting without exchange
// credentials.
func (s *TradingService) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("trading service already running: %w", ports.ErrInvalidRequest)
	}
	if !s.cfg.IsConfigured() {
		return fmt.Errorf("exchange credentials are not configured: %w", ports.ErrConfigurationError)
	}

	loopCtx, cancel := context.WithCancel(ctx)
	s.running = true
	s.stop = cancel
	s.done = make(chan struct{})
	s.noDataTicks = 0

	s.logger.Info(ctx, "Trading service starting", map[string]interface{}{
		"symbol": s.cfg.Symbol, "interval": s.cfg.IndicatorInterval, "pollInterval": s.cfg.PollInterval.String(),
	})

	go s.run(loopCtx)
	return nil
}

// Stop requests loop shutdown. It does not wait; use Done().
func (s *TradingService) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running && s.stop != nil {
		s.logger.Info(context.Background(), "Trading service stop requested")
		s.stop()
	}
}

// Done returns a channel closed when the loop has exited. Returns a
// closed channel if the service was never started.
func (s *TradingService) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return s.done
}

// GetStatus returns a snapshot of the service state for display.
func (s *TradingService) GetStatus() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Status{
		Running:  s.running,
		Position: s.position.Snapshot(),
		Balances: s.lastBal,
		Trades:   nil,
		Stats:    s.journal.Stats(),
	}
	if s.lastSignal != nil {
		sigCopy := *s.lastSignal
		st.LastSignal = &sigCopy
	}
	st.Trades = s.journal.Recent(s.cfg.HistoryLimit)
	return st
}

// UpdateSettings adjusts the runtime-tunable parameters. Invalid values
// are rejected wholesale; the running loop picks the new values up on its
// next tick.
func (s *TradingService) UpdateSettings(tradePct float64, pollInterval time.Duration, indicatorInterval string) error {
	if tradePct < 1 || tradePct > 100 {
		return fmt.Errorf("trade percentage must be between 1 and 100: %w", ports.ErrInvalidRequest)
	}
	if pollInterval < time.Minute {
		return fmt.Errorf("poll interval must be at least one minute: %w", ports.ErrInvalidRequest)
	}
	if !config.ValidInterval(indicatorInterval) {
		return fmt.Errorf("unsupported indicator interval %q: %w", indicatorInterval, ports.ErrInvalidRequest)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg.BuySizing.Percent = tradePct
	s.cfg.SellSizing.Percent = tradePct
	s.cfg.PollInterval = pollInterval
	s.cfg.IndicatorInterval = indicatorInterval
	s.logger.Info(context.Background(), "Settings updated", map[string]interface{}{
		"tradePercentage": tradePct, "pollInterval": pollInterval.String(), "indicatorInterval": indicatorInterval,
	})
	return nil
}

// run is the polling loop. Each iteration runs one tick and then sleeps
// in one-second slices so a cancellation never waits out a full poll
// interval.
func (s *TradingService) run(ctx context.Context) {
	defer func() {
		s.mu.Lock()
		s.running = false
		close(s.done)
		s.mu.Unlock()
		s.logger.Info(context.Background(), "Trading service stopped")
	}()

	for {
		delay := s.pollInterval()
		if err := s.tick(ctx); err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			s.logger.Error(ctx, err, "Tick failed, retrying after delay", map[string]interface{}{"retryDelay": s.cfg.RetryDelay.String()})
			delay = s.cfg.RetryDelay
		}
		if !sleepInterruptible(ctx, delay) {
			return
		}
	}
}

func (s *TradingService) pollInterval() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg.PollInterval
}

// sleepInterruptible sleeps for d in one-second slices, returning false
// as soon as ctx is done.
func sleepInterruptible(ctx context.Context, d time.Duration) bool {
	deadline := time.Now().Add(d)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return true
		}
		slice := time.Second
		if remaining < slice {
			slice = remaining
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(slice):
		}
	}
}

// tickSettings is the per-tick snapshot of the runtime-tunable config.
// Taken once under the mutex so a concurrent UpdateSettings cannot race
// the loop mid-tick.
type tickSettings struct {
	interval         string
	candleLimit      int
	minTrendStrength float64
	buySizing        execution.SizingPolicy
	sellSizing       execution.SizingPolicy
}

func (s *TradingService) snapshotSettings() tickSettings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return tickSettings{
		interval:         s.cfg.IndicatorInterval,
		candleLimit:      s.cfg.CandleLimit,
		minTrendStrength: s.cfg.MinTrendStrength,
		buySizing:        s.cfg.BuySizing,
		sellSizing:       s.cfg.SellSizing,
	}
}

// tick runs one decision cycle: fetch data, run exit rules for an open
// position, then evaluate the consensus and act on it. A tick acts at
// most once, and an exit and an entry never happen in the same tick.
func (s *TradingService) tick(ctx context.Context) error {
	settings := s.snapshotSettings()

	price, series, err := s.fetchMarketData(ctx, settings)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		return s.handleNoData(ctx, err)
	}

	s.mu.Lock()
	s.noDataTicks = 0
	s.position.ObservePrice(price)
	side := s.position.Side()
	pos := s.position.Snapshot()
	s.mu.Unlock()

	// Exit rules run before new signals and preempt them for this tick.
	if side == domain.SideLong {
		if exit, reason := s.risk.ShouldExit(pos, price, time.Now()); exit {
			return s.closePosition(ctx, reason, nil, settings.sellSizing)
		}
	}

	readings, strength := s.engine.Evaluate(ctx, series)
	sig := s.combiner.Combine(ctx, readings, strength, settings.minTrendStrength, price, time.Now())

	s.mu.Lock()
	s.lastSignal = &sig
	s.mu.Unlock()

	s.logger.Debug(ctx, "Consensus evaluated", map[string]interface{}{
		"action": sig.Action, "buyVotes": sig.BuyVotes, "sellVotes": sig.SellVotes,
		"trendStrength": strength, "price": price,
	})

	s.refreshBalances(ctx)

	switch sig.Action {
	case domain.ActionBuy:
		if side != domain.SideLong {
			return s.openPosition(ctx, &sig, settings.buySizing)
		}
		s.logger.Debug(ctx, "BUY signal ignored, already long")
	case domain.ActionSell:
		if side == domain.SideLong {
			return s.closePosition(ctx, domain.CloseReasonSignal, &sig, settings.sellSizing)
		}
		s.logger.Debug(ctx, "SELL signal ignored, nothing to sell")
	}
	return nil
}

// fetchMarketData retrieves the current price and the candle series for
// this tick. Both must succeed for the tick to have data.
func (s *TradingService) fetchMarketData(ctx context.Context, settings tickSettings) (float64, domain.PriceSeries, error) {
	price, err := s.exchange.GetCurrentPrice(ctx, s.cfg.Symbol)
	if err != nil {
		return 0, nil, fmt.Errorf("price fetch: %w", err)
	}
	series, err := s.exchange.GetCandles(ctx, s.cfg.Symbol, settings.interval, settings.candleLimit)
	if err != nil {
		return 0, nil, fmt.Errorf("candle fetch: %w", err)
	}
	if len(series) == 0 {
		return 0, nil, fmt.Errorf("empty candle series: %w", ports.ErrDataUnavailable)
	}
	return price, series, nil
}

// handleNoData counts consecutive data failures. Once the budget is
// exhausted while holding a position, the bot is operating blind and
// closes the position unconditionally rather than holding an unmonitored
// exposure.
func (s *TradingService) handleNoData(ctx context.Context, cause error) error {
	s.mu.Lock()
	s.noDataTicks++
	ticks := s.noDataTicks
	side := s.position.Side()
	s.mu.Unlock()

	s.logger.Warn(ctx, "Market data unavailable", map[string]interface{}{
		"consecutiveTicks": ticks, "maxTicks": s.cfg.MaxNoDataTicks, "error": cause.Error(),
	})

	if ticks < s.cfg.MaxNoDataTicks || side != domain.SideLong {
		return cause
	}

	s.logger.Error(ctx, cause, "Data failure budget exhausted while long, emergency closing position")
	result, err := s.executor.ExecuteEmergencySell(ctx)
	if err != nil {
		// Position unchanged; the next tick retries the emergency exit.
		return fmt.Errorf("emergency close failed: %w", err)
	}

	s.mu.Lock()
	s.position.Reset()
	s.noDataTicks = 0
	s.mu.Unlock()

	s.journal.Append(&domain.TradeRecord{
		Time:       time.Now(),
		Action:     domain.ActionSell,
		Quantity:   result.FilledQty,
		CounterQty: result.FilledQty * result.FilledPrice,
		Price:      result.FilledPrice,
		Reason:     domain.CloseReasonEmergency,
	})
	return cause
}

// openPosition executes a buy and, only on a confirmed fill, transitions
// to LONG. Sizing rejections leave the state untouched.
func (s *TradingService) openPosition(ctx context.Context, sig *domain.ConsensusSignal, sizing execution.SizingPolicy) error {
	result, err := s.executor.ExecuteBuy(ctx, sizing, sig.TradeMultiplier)
	if err != nil {
		return s.handleOrderError(ctx, "buy", err)
	}

	s.mu.Lock()
	s.position.MarkLong(result.FilledPrice, result.FilledQty, time.Now())
	s.mu.Unlock()

	s.logger.Info(ctx, "Position opened", map[string]interface{}{
		"quantity": result.FilledQty, "price": result.FilledPrice, "multiplier": sig.TradeMultiplier,
	})
	s.journal.Append(&domain.TradeRecord{
		Time:       time.Now(),
		Action:     domain.ActionBuy,
		Quantity:   result.FilledQty,
		CounterQty: result.FilledQty * result.FilledPrice,
		Price:      result.FilledPrice,
		Signals:    sig.Readings,
	})
	return nil
}

// closePosition executes a sell and, only on a confirmed fill,
// transitions out of LONG. Consensus sells move to the flat-after-sell
// state; rule-driven exits reset to NONE.
func (s *TradingService) closePosition(ctx context.Context, reason domain.CloseReason, sig *domain.ConsensusSignal, sizing execution.SizingPolicy) error {
	multiplier := 1.0
	var signals []domain.IndicatorReading
	if sig != nil {
		multiplier = sig.TradeMultiplier
		signals = sig.Readings
	}

	result, err := s.executor.ExecuteSell(ctx, sizing, multiplier)
	if err != nil {
		return s.handleOrderError(ctx, "sell", err)
	}

	s.mu.Lock()
	if reason == domain.CloseReasonSignal {
		s.position.MarkSold()
	} else {
		s.position.Reset()
	}
	s.mu.Unlock()

	s.logger.Info(ctx, "Position closed", map[string]interface{}{
		"quantity": result.FilledQty, "price": result.FilledPrice, "reason": reason,
	})
	s.journal.Append(&domain.TradeRecord{
		Time:       time.Now(),
		Action:     domain.ActionSell,
		Quantity:   result.FilledQty,
		CounterQty: result.FilledQty * result.FilledPrice,
		Price:      result.FilledPrice,
		Reason:     reason,
		Signals:    signals,
	})
	return nil
}

// handleOrderError distinguishes expected sizing rejections (logged,
// waiting for the next tick) from genuine failures.
func (s *TradingService) handleOrderError(ctx context.Context, side string, err error) error {
	switch {
	case errors.Is(err, ports.ErrBelowMinNotional),
		errors.Is(err, ports.ErrBelowMinLot),
		errors.Is(err, ports.ErrInsufficientFunds):
		s.logger.Warn(ctx, "Order skipped by sizing constraints", map[string]interface{}{"side": side, "reason": err.Error()})
		return nil
	default:
		return fmt.Errorf("%s order failed: %w", side, err)
	}
}

func (s *TradingService) refreshBalances(ctx context.Context) {
	bal, err := s.exchange.GetBalances(ctx)
	if err != nil {
		s.logger.Debug(ctx, "Balance refresh failed", map[string]interface{}{"error": err.Error()})
		return
	}
	s.mu.Lock()
	s.lastBal = bal
	s.mu.Unlock()
}
