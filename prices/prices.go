// Copyright (c) 2026 BVK Chaitanya

// Package prices fetches current market prices for ticker symbols.
package prices

import (
	"context"

	"github.com/shopspring/decimal"
)

// Source is implemented by market data providers.
type Source interface {
	// GetCurrentPrice returns the current market price for a ticker
	// symbol. Implementations must return a positive price or a non-nil
	// error; callers treat an error as a skipped poll cycle.
	GetCurrentPrice(ctx context.Context, symbol string) (decimal.Decimal, error)
}
