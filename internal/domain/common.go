package domain

// OrderSide represents the side of an order (BUY or SELL).
type OrderSide string

const (
	Buy  OrderSide = "BUY"
	Sell OrderSide = "SELL"
)

// OrderType represents the execution type of an order.
type OrderType string

const (
	Market OrderType = "MARKET"
	Limit  OrderType = "LIMIT"
)

// Action is the consensus decision produced once per tick.
type Action string

const (
	ActionBuy      Action = "BUY"
	ActionSell     Action = "SELL"
	ActionNeutral  Action = "NEUTRAL"
	ActionWeakBuy  Action = "WEAK_BUY"  // single strong vote backed by a weak one; surfaced for display only
	ActionWeakSell Action = "WEAK_SELL" // surfaced for display only, never traded
)

// PositionSide is the current holding side of the bot.
// SideShort is the spot-only "flat after sell, awaiting re-buy" label,
// not a margin short.
type PositionSide string

const (
	SideNone  PositionSide = "NONE"
	SideLong  PositionSide = "LONG"
	SideShort PositionSide = "SHORT"
)

// CloseReason indicates why a position was exited.
type CloseReason string

const (
	CloseReasonSignal       CloseReason = "SIGNAL" // consensus sell vote
	CloseReasonProfitTarget CloseReason = "PROFIT_TARGET"
	CloseReasonStopLoss     CloseReason = "STOP_LOSS"
	CloseReasonTrailingStop CloseReason = "TRAILING_STOP" // drawdown from the highest price since entry
	CloseReasonTimeLimit    CloseReason = "TIME_LIMIT"    // position held longer than the configured limit
	CloseReasonEmergency    CloseReason = "EMERGENCY"     // defensive exit after repeated data outages
)
