package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// RebalanceFrequency controls how often the portfolio is traded back to
// target weights.
type RebalanceFrequency string

// RebalanceFrequency constants.
const (
	FrequencyNever     RebalanceFrequency = "never"
	FrequencyDaily     RebalanceFrequency = "daily"
	FrequencyWeekly    RebalanceFrequency = "weekly"
	FrequencyMonthly   RebalanceFrequency = "monthly"
	FrequencyQuarterly RebalanceFrequency = "quarterly"
	FrequencyAnnually  RebalanceFrequency = "annually"
)

// ParseRebalanceFrequency converts a string to a RebalanceFrequency.
func ParseRebalanceFrequency(s string) (RebalanceFrequency, error) {
	switch RebalanceFrequency(s) {
	case FrequencyNever, FrequencyDaily, FrequencyWeekly, FrequencyMonthly, FrequencyQuarterly, FrequencyAnnually:
		return RebalanceFrequency(s), nil
	default:
		return "", fmt.Errorf("%w: unknown rebalance frequency %q", ErrValidation, s)
	}
}

// TransactionCosts models per-trade execution costs.
// Cost per trade = FixedPerTrade + Percentage * |trade value|.
type TransactionCosts struct {
	FixedPerTrade decimal.Decimal
	Percentage    decimal.Decimal
}

// Validate checks cost parameters.
func (c TransactionCosts) Validate() error {
	if c.FixedPerTrade.IsNegative() {
		return fmt.Errorf("%w: fixed_per_trade cannot be negative", ErrValidation)
	}
	if c.Percentage.IsNegative() {
		return fmt.Errorf("%w: cost percentage cannot be negative", ErrValidation)
	}
	return nil
}

// BacktestConfig holds the parameters of a single backtest run.
// Dates are UTC midnight; the engine only compares calendar days.
type BacktestConfig struct {
	StartDate          time.Time
	EndDate            time.Time
	InitialCapital     decimal.Decimal
	RebalanceFrequency RebalanceFrequency
	BaseCurrency       string
	TransactionCosts   TransactionCosts
	RiskFreeRate       decimal.Decimal
}

// Validate checks configuration before a run starts.
func (c *BacktestConfig) Validate() error {
	if !c.EndDate.After(c.StartDate) {
		return fmt.Errorf("%w: end_date must be after start_date", ErrValidation)
	}
	if !c.InitialCapital.IsPositive() {
		return fmt.Errorf("%w: initial_capital must be positive", ErrValidation)
	}
	if c.RiskFreeRate.IsNegative() {
		return fmt.Errorf("%w: risk_free_rate cannot be negative", ErrValidation)
	}
	if len(c.BaseCurrency) != 3 {
		return fmt.Errorf("%w: base_currency must be an ISO 4217 code, got %q", ErrValidation, c.BaseCurrency)
	}
	if _, err := ParseRebalanceFrequency(string(c.RebalanceFrequency)); err != nil {
		return err
	}
	return c.TransactionCosts.Validate()
}
