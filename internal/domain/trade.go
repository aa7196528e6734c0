package domain

import "time"

// TradeRecord is an append-only journal entry for a confirmed fill. It is
// kept in memory for display and profit aggregation only; the position
// state machine, not the journal, is authoritative for the holding side.
type TradeRecord struct {
	Time       time.Time
	Action     Action      // BUY or SELL
	Quantity   float64     // base asset quantity filled
	CounterQty float64     // quote asset amount exchanged
	Price      float64     // average fill price
	Reason     CloseReason // set on sells: SIGNAL, PROFIT_TARGET, EMERGENCY, ...
	Signals    []IndicatorReading
}
