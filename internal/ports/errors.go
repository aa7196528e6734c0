package ports

import "errors"

// Standard application-level errors.
// Adapters should wrap underlying infrastructure errors with these standard errors.
var (
	// General Errors
	ErrUnknown            = errors.New("unknown error occurred")
	ErrInvalidRequest     = errors.New("invalid request parameters or format")
	ErrTimeout            = errors.New("operation timed out")
	ErrConfigurationError = errors.New("invalid or missing configuration")

	// Data Errors — the tick is skipped, no state is mutated.
	ErrDataUnavailable  = errors.New("market data unavailable")
	ErrInsufficientData = errors.New("not enough data points for calculation")

	// Exchange Specific Errors
	ErrExchangeUnavailable  = errors.New("exchange API is unavailable")
	ErrConnectionFailed     = errors.New("failed to connect to the exchange")
	ErrRateLimited          = errors.New("API rate limit exceeded")
	ErrAuthenticationFailed = errors.New("exchange authentication failed (check API keys)")
	ErrInvalidAPIKeys       = errors.New("invalid API keys or permissions")
	ErrOrderPlacementFailed = errors.New("failed to place order")

	// Order Rejections — logged, no state mutated, the loop continues.
	ErrOrderRejected     = errors.New("order rejected by both market and limit attempts")
	ErrBelowMinNotional  = errors.New("order notional value below exchange minimum")
	ErrBelowMinLot       = errors.New("order quantity below exchange minimum lot")
	ErrInsufficientFunds = errors.New("insufficient balance for computed quantity")
)
