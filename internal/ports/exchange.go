package ports

import (
	"context"

	"spotConsensusBot/internal/domain"
)

// Balances holds the available spot balances of the traded pair.
// They are re-fetched before every order decision and treated as the
// source of truth; no local ledger is trusted.
type Balances struct {
	BaseQty  float64 // asset being accumulated/disposed (e.g., SOL)
	QuoteQty float64 // pricing/funding asset (e.g., USDT)
}

// OrderRequest describes one order submission.
type OrderRequest struct {
	Symbol        string
	Side          domain.OrderSide
	Type          domain.OrderType
	Quantity      float64 // base asset quantity, already floored to lot granularity
	LimitPrice    float64 // required for LIMIT orders
	ClientOrderID string
}

// OrderResult reports the outcome of an order submission. Filled is the
// only field callers may use to transition position state.
type OrderResult struct {
	Filled      bool
	FilledQty   float64
	FilledPrice float64 // average fill price
	OrderID     int64
}

// ExchangeClient is the collaborator boundary to the exchange API glue.
// Implementations normalize the exchange's response schema into the core's
// typed structures exactly once; the core never branches on alternative
// field names.
type ExchangeClient interface {
	// GetBalances retrieves the available base and quote balances.
	GetBalances(ctx context.Context) (Balances, error)

	// GetCandles retrieves up to limit historical candles for the symbol.
	// It may return fewer than requested; the core treats insufficient
	// length as neutral, not fatal.
	GetCandles(ctx context.Context, symbol, interval string, limit int) (domain.PriceSeries, error)

	// GetCurrentPrice retrieves the last traded price for the symbol.
	GetCurrentPrice(ctx context.Context, symbol string) (float64, error)

	// PlaceOrder submits a market or limit order and reports the fill.
	PlaceOrder(ctx context.Context, req OrderRequest) (*OrderResult, error)
}
