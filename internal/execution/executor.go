package execution

import (
	"context"
	"fmt"
	"math"

	"github.com/google/uuid"

	"spotConsensusBot/internal/domain"
	"spotConsensusBot/internal/ports"
)

// Config holds configuration for the order executor. Sizing policies are
// not part of it: they are passed per call so runtime changes take effect
// on the next order.
type Config struct {
	Symbol        string
	MinNotional   float64 // exchange minimum order value in quote units, e.g. 15
	MinLot        float64 // exchange minimum base quantity, e.g. 0.1
	LotDecimals   int     // lot-size granularity, e.g. 4
	PriceDecimals int     // price granularity for limit orders, e.g. 2
	SlippagePct   float64 // limit fallback offset from market, e.g. 0.005
}

// Executor translates a consensus decision into a concrete order. It
// re-fetches balances before every decision, enforces the exchange
// minimums, floors quantities to lot granularity, and falls back from a
// market order to a single limit order offset by the slippage buffer. A
// second failure is a terminal rejection for the tick; the caller does
// not transition position state.
type Executor struct {
	cfg      Config
	exchange ports.ExchangeClient
	logger   ports.Logger
}

// New creates a new Executor instance.
func New(cfg Config, exchange ports.ExchangeClient, logger ports.Logger) (*Executor, error) {
	if exchange == nil || logger == nil {
		return nil, fmt.Errorf("exchange client and logger are required for executor")
	}
	if cfg.Symbol == "" {
		return nil, fmt.Errorf("symbol is required")
	}
	if cfg.MinNotional < 0 || cfg.MinLot < 0 {
		return nil, fmt.Errorf("exchange minimums cannot be negative")
	}
	if cfg.LotDecimals < 0 || cfg.PriceDecimals < 0 {
		return nil, fmt.Errorf("granularity decimals cannot be negative")
	}
	if cfg.SlippagePct < 0 || cfg.SlippagePct >= 1 {
		return nil, fmt.Errorf("slippage percentage must be in [0, 1)")
	}
	return &Executor{cfg: cfg, exchange: exchange, logger: logger}, nil
}

// ExecuteBuy sizes and places a buy order under the given policy.
// multiplier scales fixed-quantity sizing (from a double-strength
// consensus).
func (e *Executor) ExecuteBuy(ctx context.Context, policy SizingPolicy, multiplier float64) (*ports.OrderResult, error) {
	return e.execute(ctx, domain.Buy, policy, multiplier)
}

// ExecuteSell sizes and places a sell order under the given policy.
func (e *Executor) ExecuteSell(ctx context.Context, policy SizingPolicy, multiplier float64) (*ports.OrderResult, error) {
	return e.execute(ctx, domain.Sell, policy, multiplier)
}

func (e *Executor) execute(ctx context.Context, side domain.OrderSide, policy SizingPolicy, multiplier float64) (*ports.OrderResult, error) {
	op := "execute" + string(side)
	if err := policy.Validate(side == domain.Buy); err != nil {
		return nil, fmt.Errorf("%s: %w: %v", op, ports.ErrInvalidRequest, err)
	}
	if multiplier <= 0 {
		multiplier = 1
	}

	// (1) Re-fetch balances; the exchange is the source of truth.
	bal, err := e.exchange.GetBalances(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: balance fetch failed: %w: %v", op, ports.ErrDataUnavailable, err)
	}

	price, err := e.exchange.GetCurrentPrice(ctx, e.cfg.Symbol)
	if err != nil {
		return nil, fmt.Errorf("%s: price fetch failed: %w: %v", op, ports.ErrDataUnavailable, err)
	}
	if price <= 0 {
		return nil, fmt.Errorf("%s: non-positive price %f: %w", op, price, ports.ErrDataUnavailable)
	}

	// (2) Compute the desired quantity and floor it to lot granularity.
	qty := floorToLot(policy.quantity(bal, price, multiplier, side == domain.Buy), e.cfg.LotDecimals)

	// (3) Exchange minimums.
	notional := qty * price
	if notional < e.cfg.MinNotional {
		return nil, fmt.Errorf("%s: notional %.2f below minimum %.2f: %w", op, notional, e.cfg.MinNotional, ports.ErrBelowMinNotional)
	}
	if qty < e.cfg.MinLot {
		return nil, fmt.Errorf("%s: quantity %f below minimum lot %f: %w", op, qty, e.cfg.MinLot, ports.ErrBelowMinLot)
	}

	// (4) Available balance.
	if side == domain.Buy {
		if notional > bal.QuoteQty {
			return nil, fmt.Errorf("%s: cost %.2f exceeds quote balance %.2f: %w", op, notional, bal.QuoteQty, ports.ErrInsufficientFunds)
		}
	} else {
		if qty > bal.BaseQty {
			return nil, fmt.Errorf("%s: quantity %f exceeds base balance %f: %w", op, qty, bal.BaseQty, ports.ErrInsufficientFunds)
		}
	}

	return e.placeWithFallback(ctx, side, qty, price)
}

// placeWithFallback attempts a market order, then retries once with a
// limit order offset by the slippage buffer (buy above market, sell
// below). No further retries and no backoff after that.
func (e *Executor) placeWithFallback(ctx context.Context, side domain.OrderSide, qty, price float64) (*ports.OrderResult, error) {
	marketReq := ports.OrderRequest{
		Symbol:        e.cfg.Symbol,
		Side:          side,
		Type:          domain.Market,
		Quantity:      qty,
		ClientOrderID: uuid.NewString(),
	}

	result, err := e.exchange.PlaceOrder(ctx, marketReq)
	if err == nil && result.Filled {
		e.logger.Info(ctx, "Market order filled", map[string]interface{}{
			"side": side, "quantity": qty, "avgPrice": result.FilledPrice,
		})
		return result, nil
	}
	if err != nil {
		e.logger.Warn(ctx, "Market order failed, retrying with limit order", map[string]interface{}{"side": side, "error": err.Error()})
	} else {
		e.logger.Warn(ctx, "Market order not filled, retrying with limit order", map[string]interface{}{"side": side})
	}

	limitPrice := price * (1 + e.cfg.SlippagePct)
	if side == domain.Sell {
		limitPrice = price * (1 - e.cfg.SlippagePct)
	}
	limitReq := ports.OrderRequest{
		Symbol:        e.cfg.Symbol,
		Side:          side,
		Type:          domain.Limit,
		Quantity:      qty,
		LimitPrice:    roundToDecimals(limitPrice, e.cfg.PriceDecimals),
		ClientOrderID: uuid.NewString(),
	}

	result, err = e.exchange.PlaceOrder(ctx, limitReq)
	if err != nil {
		return nil, fmt.Errorf("limit fallback failed: %w: %v", ports.ErrOrderRejected, err)
	}
	if !result.Filled {
		return nil, fmt.Errorf("limit fallback not filled: %w", ports.ErrOrderRejected)
	}
	e.logger.Info(ctx, "Limit fallback order filled", map[string]interface{}{
		"side": side, "quantity": qty, "limitPrice": limitReq.LimitPrice, "avgPrice": result.FilledPrice,
	})
	return result, nil
}

// ExecuteEmergencySell closes the full base balance with a market order.
// It is used when the bot has been operating blind and must not depend on
// a price fetch, so the minimum-notional check is skipped; the lot
// minimum still applies.
func (e *Executor) ExecuteEmergencySell(ctx context.Context) (*ports.OrderResult, error) {
	bal, err := e.exchange.GetBalances(ctx)
	if err != nil {
		return nil, fmt.Errorf("emergency sell: balance fetch failed: %w: %v", ports.ErrDataUnavailable, err)
	}

	qty := floorToLot(bal.BaseQty, e.cfg.LotDecimals)
	if qty < e.cfg.MinLot {
		return nil, fmt.Errorf("emergency sell: quantity %f below minimum lot %f: %w", qty, e.cfg.MinLot, ports.ErrBelowMinLot)
	}

	result, err := e.exchange.PlaceOrder(ctx, ports.OrderRequest{
		Symbol:        e.cfg.Symbol,
		Side:          domain.Sell,
		Type:          domain.Market,
		Quantity:      qty,
		ClientOrderID: uuid.NewString(),
	})
	if err != nil {
		return nil, fmt.Errorf("emergency sell failed: %w: %v", ports.ErrOrderRejected, err)
	}
	if !result.Filled {
		return nil, fmt.Errorf("emergency sell not filled: %w", ports.ErrOrderRejected)
	}
	e.logger.Warn(ctx, "Emergency close order filled", map[string]interface{}{
		"quantity": qty, "avgPrice": result.FilledPrice,
	})
	return result, nil
}

func roundToDecimals(v float64, decimals int) float64 {
	scale := math.Pow(10, float64(decimals))
	return math.Round(v*scale) / scale
}
