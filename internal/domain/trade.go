package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Trade records one executed buy or sell.
type Trade struct {
	Timestamp       time.Time
	Symbol          string
	Quantity        decimal.Decimal // positive buy, negative sell
	Price           decimal.Decimal
	Currency        string
	TransactionCost decimal.Decimal
}

// Validate checks trade invariants.
func (t *Trade) Validate() error {
	if t.Quantity.IsZero() {
		return fmt.Errorf("%w: trade quantity cannot be zero", ErrValidation)
	}
	if !t.Price.IsPositive() {
		return fmt.Errorf("%w: trade price must be positive, got %s", ErrValidation, t.Price)
	}
	if t.TransactionCost.IsNegative() {
		return fmt.Errorf("%w: transaction cost cannot be negative", ErrValidation)
	}
	if len(t.Currency) != 3 {
		return fmt.Errorf("%w: currency must be an ISO 4217 code, got %q", ErrValidation, t.Currency)
	}
	return nil
}

// Value returns the absolute trade value in the trade currency.
func (t *Trade) Value() decimal.Decimal {
	return t.Quantity.Mul(t.Price).Abs()
}

// IsBuy reports whether the trade increases the position.
func (t *Trade) IsBuy() bool { return t.Quantity.IsPositive() }

// IsSell reports whether the trade decreases the position.
func (t *Trade) IsSell() bool { return t.Quantity.IsNegative() }

// TradeRecord is a Trade annotated with identifiers for persistence.
type TradeRecord struct {
	TradeID string
	RunID   string
	Trade
}
