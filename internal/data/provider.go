// Package data loads historical price and exchange-rate series from
// external sources and validates them into the engine's table types.
package data

import (
	"context"
	"time"

	"portfolio-backtest-lab/internal/fx"
	"portfolio-backtest-lab/internal/pricing"
)

// PriceProvider supplies historical prices for a set of symbols.
type PriceProvider interface {
	// Prices returns a validated price table covering [start, end] plus
	// enough history before start for strategy lookbacks.
	Prices(ctx context.Context, symbols []string, start, end time.Time) (*pricing.Table, error)
}

// RateProvider supplies historical exchange rates.
type RateProvider interface {
	// Rates returns a converter for the currency pairs observed in the
	// requested range.
	Rates(ctx context.Context, start, end time.Time) (*fx.Converter, error)
}
