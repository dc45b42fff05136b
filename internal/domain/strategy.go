package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// CashSymbol is the reserved symbol for uninvested cash. Dynamic strategies
// route their entire allocation here when every risky asset scores zero.
const CashSymbol = "CASH"

// WeightSumTolerance is the maximum accepted deviation of a weight set from 1.0.
var WeightSumTolerance = decimal.NewFromFloat(0.0001)

// StrategyType identifies a weight-calculation strategy.
type StrategyType string

// StrategyType constants.
const (
	StrategyTypeStatic            StrategyType = "STATIC"
	StrategyTypeMomentum          StrategyType = "MOMENTUM"
	StrategyTypeRiskParity        StrategyType = "RISK_PARITY"
	StrategyTypeDualMovingAverage StrategyType = "DUAL_MA"
)

// AllocationStrategy defines fixed target weights for a static allocation.
type AllocationStrategy struct {
	Name    string
	Weights map[string]decimal.Decimal
}

// Validate checks name and weight constraints.
func (s *AllocationStrategy) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("%w: strategy name cannot be empty", ErrValidation)
	}
	if len(s.Weights) == 0 {
		return fmt.Errorf("%w: asset weights cannot be empty", ErrValidation)
	}
	return ValidateWeightSet(s.Weights)
}

// ValidateWeightSet checks that weights are in [0,1] and sum to 1.0 within
// tolerance.
func ValidateWeightSet(weights map[string]decimal.Decimal) error {
	one := decimal.NewFromInt(1)
	sum := decimal.Zero
	for symbol, w := range weights {
		if w.IsNegative() {
			return fmt.Errorf("%w: weight for %s is negative: %s", ErrValidation, symbol, w)
		}
		if w.GreaterThan(one) {
			return fmt.Errorf("%w: weight for %s exceeds 1.0: %s", ErrValidation, symbol, w)
		}
		sum = sum.Add(w)
	}
	if sum.Sub(one).Abs().GreaterThan(WeightSumTolerance) {
		return fmt.Errorf("%w: weights must sum to 1.0 (±%s), got %s", ErrValidation, WeightSumTolerance, sum)
	}
	return nil
}

// StrategyConfig configures a dynamic weight-calculation strategy.
// Optional knobs are pointers; the factory validates required ones per type.
type StrategyConfig struct {
	StrategyType StrategyType
	LookbackDays int
	Assets       []string

	// STATIC
	Weights map[string]decimal.Decimal

	// MOMENTUM
	ExcludeNegative *bool
	MinMomentum     *float64

	// RISK_PARITY
	TargetVolatility       *float64
	MinVolatilityThreshold *float64
	AnnualizationFactor    *int

	// DUAL_MA
	ShortWindow       *int
	LongWindow        *int
	UseSignalStrength *bool
}

// Validate checks the parameters shared by all dynamic strategy types.
// Type-specific knobs are validated by the strategy factory.
func (c *StrategyConfig) Validate() error {
	if c.StrategyType == StrategyTypeStatic {
		strategy := AllocationStrategy{Name: string(c.StrategyType), Weights: c.Weights}
		return strategy.Validate()
	}

	if c.LookbackDays < 1 {
		return fmt.Errorf("%w: lookback_days must be positive, got %d", ErrValidation, c.LookbackDays)
	}
	if c.LookbackDays > 500 {
		return fmt.Errorf("%w: lookback_days must be <= 500, got %d", ErrValidation, c.LookbackDays)
	}
	if len(c.Assets) == 0 {
		return fmt.Errorf("%w: must specify at least one asset", ErrValidation)
	}
	seen := make(map[string]struct{}, len(c.Assets))
	for _, a := range c.Assets {
		if _, dup := seen[a]; dup {
			return fmt.Errorf("%w: duplicate asset %s", ErrValidation, a)
		}
		seen[a] = struct{}{}
	}
	return nil
}
