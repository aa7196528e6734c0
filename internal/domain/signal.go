package domain

import "time"

// Indicator signal values. Strong signals (±1) count toward the consensus
// majority; weak signals (±0.5) are surfaced for display only. Double
// signals (±2) count as one vote and raise the trade multiplier.
const (
	SignalDoubleSell = -2.0
	SignalStrongSell = -1.0
	SignalWeakSell   = -0.5
	SignalNeutral    = 0.0
	SignalWeakBuy    = 0.5
	SignalStrongBuy  = 1.0
	SignalDoubleBuy  = 2.0
)

// IndicatorReading is the output of one indicator for one tick.
type IndicatorReading struct {
	Name   string  // indicator name (e.g. "RSI", "MACD")
	Signal float64 // one of the Signal* values above
	Raw    float64 // underlying numeric value (RSI level, MACD histogram, ...)
}

// ConsensusSignal is the combined decision of all indicators for one tick.
// It is consumed immediately by the order executor and not persisted.
type ConsensusSignal struct {
	BuyVotes        int
	SellVotes       int
	Action          Action
	Price           float64
	Timestamp       time.Time
	TradeMultiplier float64            // 1.0 normally, 2.0 when a double-strength reading backs the winning side
	Readings        []IndicatorReading // snapshot of the individual readings, for display and the trade journal
}
