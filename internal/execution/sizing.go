package execution

import (
	"fmt"
	"math"

	"spotConsensusBot/internal/ports"
)

// SizingMode selects how the order quantity is derived.
type SizingMode string

const (
	// FixedQuantity trades a configured base-asset quantity.
	FixedQuantity SizingMode = "FIXED"
	// PercentOfQuote spends a percentage of the quote balance (buys).
	PercentOfQuote SizingMode = "PERCENT_QUOTE"
	// PercentOfBase sells a percentage of the base balance.
	PercentOfBase SizingMode = "PERCENT_BASE"
	// EntireBalance sells the full base balance.
	EntireBalance SizingMode = "ENTIRE_BALANCE"
)

// SizingPolicy is one configured quantity rule. The modes are mutually
// exclusive and selected by configuration.
type SizingPolicy struct {
	Mode     SizingMode
	Quantity float64 // for FixedQuantity, in base units
	Percent  float64 // for the percentage modes, 0-100
}

// Validate checks the policy for the given order side.
func (p SizingPolicy) Validate(buying bool) error {
	switch p.Mode {
	case FixedQuantity:
		if p.Quantity <= 0 {
			return fmt.Errorf("fixed quantity must be positive")
		}
	case PercentOfQuote:
		if !buying {
			return fmt.Errorf("percent-of-quote sizing applies to buys only")
		}
		if p.Percent <= 0 || p.Percent > 100 {
			return fmt.Errorf("percent must be in (0, 100]")
		}
	case PercentOfBase:
		if buying {
			return fmt.Errorf("percent-of-base sizing applies to sells only")
		}
		if p.Percent <= 0 || p.Percent > 100 {
			return fmt.Errorf("percent must be in (0, 100]")
		}
	case EntireBalance:
		if buying {
			return fmt.Errorf("entire-balance sizing applies to sells only")
		}
	default:
		return fmt.Errorf("unknown sizing mode: %s", p.Mode)
	}
	return nil
}

// quantity derives the raw (unfloored) base quantity for the policy.
// multiplier scales fixed-quantity sizing only; percentage sizing
// already tracks the balance and ignores it.
func (p SizingPolicy) quantity(bal ports.Balances, price, multiplier float64, buying bool) float64 {
	switch p.Mode {
	case FixedQuantity:
		return p.Quantity * multiplier
	case PercentOfQuote:
		return bal.QuoteQty * (p.Percent / 100.0) / price
	case PercentOfBase:
		return bal.BaseQty * (p.Percent / 100.0)
	case EntireBalance:
		return bal.BaseQty
	}
	return 0
}

// floorToLot floors a base quantity to the exchange's lot granularity.
// Flooring (never rounding up) avoids insufficient-balance rejections
// from rounding error.
func floorToLot(qty float64, lotDecimals int) float64 {
	scale := math.Pow(10, float64(lotDecimals))
	return math.Floor(qty*scale) / scale
}
