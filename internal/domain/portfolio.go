package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PortfolioState is a snapshot of holdings and value at one point in time.
type PortfolioState struct {
	Timestamp   time.Time
	CashBalance decimal.Decimal
	Holdings    map[string]decimal.Decimal // symbol -> quantity
	Prices      map[string]decimal.Decimal // symbol -> price in base currency
}

// TotalValue computes cash + sum(holdings * prices). Always recomputed,
// never cached across a mutation.
func (s *PortfolioState) TotalValue() decimal.Decimal {
	total := s.CashBalance
	for symbol, qty := range s.Holdings {
		price, ok := s.Prices[symbol]
		if !ok {
			continue
		}
		total = total.Add(qty.Mul(price))
	}
	return total
}

// CurrentWeights returns the current weight of each held asset.
// Empty map when total value is zero.
func (s *PortfolioState) CurrentWeights() map[string]decimal.Decimal {
	total := s.TotalValue()
	if total.IsZero() {
		return map[string]decimal.Decimal{}
	}
	weights := make(map[string]decimal.Decimal, len(s.Holdings))
	for symbol, qty := range s.Holdings {
		price, ok := s.Prices[symbol]
		if !ok {
			continue
		}
		weights[symbol] = qty.Mul(price).Div(total)
	}
	return weights
}

// Clone returns a deep copy with fresh maps.
func (s *PortfolioState) Clone() *PortfolioState {
	holdings := make(map[string]decimal.Decimal, len(s.Holdings))
	for k, v := range s.Holdings {
		holdings[k] = v
	}
	prices := make(map[string]decimal.Decimal, len(s.Prices))
	for k, v := range s.Prices {
		prices[k] = v
	}
	return &PortfolioState{
		Timestamp:   s.Timestamp,
		CashBalance: s.CashBalance,
		Holdings:    holdings,
		Prices:      prices,
	}
}
