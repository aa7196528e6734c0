package consensus

import (
	"context"
	"fmt"
	"time"

	"spotConsensusBot/internal/domain"
	"spotConsensusBot/internal/ports"
)

// Config holds parameters for the signal combiner.
type Config struct {
	VotesRequired int // strong votes needed for a majority, e.g. 2
}

// Combiner aggregates indicator readings into one consensus decision per
// tick using majority voting. It holds no mutable state; combining the
// same inputs twice yields the same signal.
type Combiner struct {
	cfg    Config
	logger ports.Logger
}

// New creates a new Combiner instance.
func New(cfg Config, logger ports.Logger) (*Combiner, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required for combiner")
	}
	if cfg.VotesRequired <= 0 {
		return nil, fmt.Errorf("votes required must be positive")
	}
	return &Combiner{cfg: cfg, logger: logger}, nil
}

// Combine counts strong readings as votes and applies the majority rule.
// Weak readings (±0.5) never count toward the majority; a single
// dissenting vote does not block. The trend-strength gate is applied
// after vote counting so it is observable independently: when
// trendStrength is below threshold, a BUY or SELL is downgraded to
// NEUTRAL. A threshold of 0 disables the gate.
func (c *Combiner) Combine(ctx context.Context, readings []domain.IndicatorReading, trendStrength, threshold float64, price float64, now time.Time) domain.ConsensusSignal {
	sig := domain.ConsensusSignal{
		Action:          domain.ActionNeutral,
		Price:           price,
		Timestamp:       now,
		TradeMultiplier: 1.0,
		Readings:        readings,
	}

	var weakBuys, weakSells int
	var doubleBuy, doubleSell bool
	for _, r := range readings {
		switch {
		case r.Signal >= domain.SignalStrongBuy:
			sig.BuyVotes++
			if r.Signal >= domain.SignalDoubleBuy {
				doubleBuy = true
			}
		case r.Signal <= domain.SignalStrongSell:
			sig.SellVotes++
			if r.Signal <= domain.SignalDoubleSell {
				doubleSell = true
			}
		case r.Signal == domain.SignalWeakBuy:
			weakBuys++
		case r.Signal == domain.SignalWeakSell:
			weakSells++
		}
	}

	switch {
	case sig.BuyVotes >= c.cfg.VotesRequired:
		sig.Action = domain.ActionBuy
		if doubleBuy {
			sig.TradeMultiplier = 2.0
		}
	case sig.SellVotes >= c.cfg.VotesRequired:
		sig.Action = domain.ActionSell
		if doubleSell {
			sig.TradeMultiplier = 2.0
		}
	case sig.BuyVotes == 1 && weakBuys > 0:
		sig.Action = domain.ActionWeakBuy
	case sig.SellVotes == 1 && weakSells > 0:
		sig.Action = domain.ActionWeakSell
	}

	if threshold > 0 && trendStrength < threshold {
		if sig.Action == domain.ActionBuy || sig.Action == domain.ActionSell {
			c.logger.Info(ctx, "Trend too weak, downgrading consensus to neutral", map[string]interface{}{
				"action": sig.Action, "trendStrength": trendStrength, "threshold": threshold,
			})
			sig.Action = domain.ActionNeutral
			sig.TradeMultiplier = 1.0
		}
	}

	if sig.Action != domain.ActionNeutral {
		c.logger.Debug(ctx, "Consensus reached", map[string]interface{}{
			"action": sig.Action, "buyVotes": sig.BuyVotes, "sellVotes": sig.SellVotes,
			"multiplier": sig.TradeMultiplier,
		})
	}
	return sig
}
