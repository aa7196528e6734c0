package binanceclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/adshao/go-binance/v2/common"

	"spotConsensusBot/internal/domain"
	"spotConsensusBot/internal/ports"
)

const (
	// Base URLs
	baseURLProduction = "https://api.binance.com"
	baseURLTestnet    = "https://testnet.binance.vision"
)

// Client implements the ports.ExchangeClient interface using the go-binance
// spot API. This is the single place the exchange's response schema is
// normalized into domain types; the core never sees raw exchange payloads.
type Client struct {
	spotClient *binance.Client
	logger     ports.Logger
	baseAsset  string
	quoteAsset string
}

// Config holds configuration specific to the exchange client adapter.
type Config struct {
	APIKey         string
	SecretKey      string
	UseTestnet     bool
	BaseAsset      string        // e.g., "SOL"
	QuoteAsset     string        // e.g., "USDT"
	RequestTimeout time.Duration // kept short so a hung request cannot stall shutdown
	Logger         ports.Logger
}

// New creates a new exchange client adapter.
func New(cfg Config) (*Client, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for exchange client")
	}
	if cfg.BaseAsset == "" || cfg.QuoteAsset == "" {
		return nil, fmt.Errorf("base and quote assets are required")
	}
	if cfg.APIKey == "" || cfg.SecretKey == "" {
		cfg.Logger.Warn(context.Background(), "APIKey or SecretKey is empty. Client will only work for public endpoints.")
	}

	client := binance.NewClient(cfg.APIKey, cfg.SecretKey)
	if cfg.UseTestnet {
		client.BaseURL = baseURLTestnet
		cfg.Logger.Info(context.Background(), "Exchange client configured for Testnet", map[string]interface{}{"baseURL": client.BaseURL})
	} else {
		client.BaseURL = baseURLProduction
		cfg.Logger.Info(context.Background(), "Exchange client configured for Production", map[string]interface{}{"baseURL": client.BaseURL})
	}

	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	client.HTTPClient = &http.Client{Timeout: timeout}

	return &Client{
		spotClient: client,
		logger:     cfg.Logger,
		baseAsset:  cfg.BaseAsset,
		quoteAsset: cfg.QuoteAsset,
	}, nil
}

// handleError translates common exchange API errors into standardized ports errors.
func (c *Client) handleError(ctx context.Context, err error, operation string) error {
	if err == nil {
		return nil
	}

	fields := map[string]interface{}{"operation": operation, "originalError": err.Error()}

	var apiErr *common.APIError
	if errors.As(err, &apiErr) {
		fields["apiErrorCode"] = apiErr.Code
		fields["apiErrorMessage"] = apiErr.Message

		var mappedErr error
		switch apiErr.Code {
		case -1003: // Too many requests
			mappedErr = ports.ErrRateLimited
		case -1021: // Timestamp outside of the recvWindow
			mappedErr = ports.ErrTimeout
		case -1022: // Invalid signature
			mappedErr = ports.ErrAuthenticationFailed
		case -2010: // New order rejected
			mappedErr = ports.ErrOrderPlacementFailed
		case -2014, -2015: // API-key format invalid / bad permissions
			mappedErr = ports.ErrInvalidAPIKeys
		default:
			mappedErr = ports.ErrExchangeUnavailable
		}
		c.logger.Error(ctx, mappedErr, "Exchange API error", fields)
		return fmt.Errorf("%s: %w (code %d: %s)", operation, mappedErr, apiErr.Code, apiErr.Message)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		c.logger.Error(ctx, ports.ErrTimeout, "Exchange request timed out", fields)
		return fmt.Errorf("%s: %w", operation, ports.ErrTimeout)
	}

	c.logger.Error(ctx, err, "Exchange request failed", fields)
	return fmt.Errorf("%s: %w: %v", operation, ports.ErrConnectionFailed, err)
}

// GetBalances retrieves the available base and quote balances.
func (c *Client) GetBalances(ctx context.Context) (ports.Balances, error) {
	account, err := c.spotClient.NewGetAccountService().Do(ctx)
	if err != nil {
		return ports.Balances{}, c.handleError(ctx, err, "GetBalances")
	}

	var bal ports.Balances
	for _, b := range account.Balances {
		switch b.Asset {
		case c.baseAsset:
			bal.BaseQty = parseFloat(b.Free)
		case c.quoteAsset:
			bal.QuoteQty = parseFloat(b.Free)
		}
	}
	return bal, nil
}

// GetCandles retrieves up to limit historical candles for the symbol.
func (c *Client) GetCandles(ctx context.Context, symbol, interval string, limit int) (domain.PriceSeries, error) {
	klines, err := c.spotClient.NewKlinesService().
		Symbol(symbol).
		Interval(interval).
		Limit(limit).
		Do(ctx)
	if err != nil {
		return nil, c.handleError(ctx, err, "GetCandles")
	}

	series := make(domain.PriceSeries, 0, len(klines))
	for _, k := range klines {
		series = append(series, &domain.Candle{
			OpenTime:  time.UnixMilli(k.OpenTime),
			CloseTime: time.UnixMilli(k.CloseTime),
			Symbol:    symbol,
			Interval:  interval,
			Open:      parseFloat(k.Open),
			High:      parseFloat(k.High),
			Low:       parseFloat(k.Low),
			Close:     parseFloat(k.Close),
			Volume:    parseFloat(k.Volume),
		})
	}
	return series, nil
}

// GetCurrentPrice retrieves the last traded price for the symbol.
func (c *Client) GetCurrentPrice(ctx context.Context, symbol string) (float64, error) {
	prices, err := c.spotClient.NewListPricesService().Symbol(symbol).Do(ctx)
	if err != nil {
		return 0, c.handleError(ctx, err, "GetCurrentPrice")
	}
	if len(prices) == 0 {
		return 0, fmt.Errorf("GetCurrentPrice: empty response for %s: %w", symbol, ports.ErrDataUnavailable)
	}
	price := parseFloat(prices[0].Price)
	if price <= 0 {
		return 0, fmt.Errorf("GetCurrentPrice: non-positive price for %s: %w", symbol, ports.ErrDataUnavailable)
	}
	return price, nil
}

// PlaceOrder submits a market or limit order and reports the fill.
func (c *Client) PlaceOrder(ctx context.Context, req ports.OrderRequest) (*ports.OrderResult, error) {
	svc := c.spotClient.NewCreateOrderService().
		Symbol(req.Symbol).
		Side(toSideType(req.Side)).
		Quantity(strconv.FormatFloat(req.Quantity, 'f', -1, 64))

	if req.ClientOrderID != "" {
		svc = svc.NewClientOrderID(req.ClientOrderID)
	}

	switch req.Type {
	case domain.Market:
		svc = svc.Type(binance.OrderTypeMarket)
	case domain.Limit:
		svc = svc.Type(binance.OrderTypeLimit).
			TimeInForce(binance.TimeInForceTypeGTC).
			Price(strconv.FormatFloat(req.LimitPrice, 'f', -1, 64))
	default:
		return nil, fmt.Errorf("PlaceOrder: unsupported order type %s: %w", req.Type, ports.ErrInvalidRequest)
	}

	resp, err := svc.Do(ctx)
	if err != nil {
		return nil, c.handleError(ctx, err, "PlaceOrder")
	}

	result := &ports.OrderResult{
		Filled:    resp.Status == binance.OrderStatusTypeFilled,
		FilledQty: parseFloat(resp.ExecutedQuantity),
		OrderID:   resp.OrderID,
	}
	if result.FilledQty > 0 {
		// Average fill price from the cumulative quote amount; fall back
		// to per-fill data when the exchange omits it.
		quote := parseFloat(resp.CummulativeQuoteQuantity)
		if quote > 0 {
			result.FilledPrice = quote / result.FilledQty
		} else if len(resp.Fills) > 0 {
			result.FilledPrice = parseFloat(resp.Fills[0].Price)
		}
	}
	return result, nil
}

func toSideType(side domain.OrderSide) binance.SideType {
	if side == domain.Sell {
		return binance.SideTypeSell
	}
	return binance.SideTypeBuy
}

// parseFloat converts the exchange's decimal strings; malformed values
// normalize to 0 rather than an error (the core rejects non-positive
// prices and quantities anyway).
func parseFloat(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}
