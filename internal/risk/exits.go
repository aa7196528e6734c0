package risk

import (
	"fmt"
	"time"

	"spotConsensusBot/internal/domain"
)

// Config holds configuration for position exit rules. A zero value
// disables the corresponding rule.
type Config struct {
	ProfitTargetPct float64       // e.g., 0.01 for 1%
	StopLossPct     float64       // e.g., 0.05 for 5%
	TrailingStopPct float64       // drawdown from highest price since entry, e.g. 0.03
	MaxHoldDuration time.Duration // position time limit, e.g. 2h
}

// Manager evaluates exit conditions for an open position. The checks run
// every tick before new signals are consulted and can force an exit
// independent of the consensus vote.
type Manager struct {
	cfg Config
}

// NewManager creates a new exit rule manager.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.ProfitTargetPct < 0 || cfg.StopLossPct < 0 || cfg.TrailingStopPct < 0 {
		return nil, fmt.Errorf("exit percentages cannot be negative")
	}
	if cfg.MaxHoldDuration < 0 {
		return nil, fmt.Errorf("max hold duration cannot be negative")
	}
	return &Manager{cfg: cfg}, nil
}

// ShouldExit reports whether the open long position must be closed and
// why. It assumes pos.Side is LONG; callers check the side first.
func (m *Manager) ShouldExit(pos domain.PositionSnapshot, currentPrice float64, now time.Time) (bool, domain.CloseReason) {
	if m.cfg.ProfitTargetPct > 0 && currentPrice >= pos.EntryPrice*(1+m.cfg.ProfitTargetPct) {
		return true, domain.CloseReasonProfitTarget
	}
	if m.cfg.StopLossPct > 0 && currentPrice <= pos.EntryPrice*(1-m.cfg.StopLossPct) {
		return true, domain.CloseReasonStopLoss
	}
	if m.cfg.TrailingStopPct > 0 && pos.HighestSinceEntry > 0 &&
		currentPrice <= pos.HighestSinceEntry*(1-m.cfg.TrailingStopPct) {
		return true, domain.CloseReasonTrailingStop
	}
	if m.cfg.MaxHoldDuration > 0 && !pos.EntryTime.IsZero() &&
		now.Sub(pos.EntryTime) >= m.cfg.MaxHoldDuration {
		return true, domain.CloseReasonTimeLimit
	}
	return false, ""
}
