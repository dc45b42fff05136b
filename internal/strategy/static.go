package strategy

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"portfolio-backtest-lab/internal/domain"
	"portfolio-backtest-lab/internal/pricing"
)

// Static holds fixed target weights. It needs no price history and never
// excludes assets.
type Static struct {
	Name    string
	Weights map[string]decimal.Decimal
}

// NewStatic creates a static calculator from an allocation strategy.
func NewStatic(alloc domain.AllocationStrategy) (*Static, error) {
	if err := alloc.Validate(); err != nil {
		return nil, err
	}
	weights := make(map[string]decimal.Decimal, len(alloc.Weights))
	for k, v := range alloc.Weights {
		weights[k] = v
	}
	return &Static{Name: alloc.Name, Weights: weights}, nil
}

// ID returns the strategy identifier.
func (s *Static) ID() string {
	return fmt.Sprintf("STATIC_%s", s.Name)
}

// Assets returns the risky assets of the allocation, sorted.
func (s *Static) Assets() []string {
	assets := make([]string, 0, len(s.Weights))
	for symbol := range s.Weights {
		if symbol == domain.CashSymbol {
			continue
		}
		assets = append(assets, symbol)
	}
	sort.Strings(assets)
	return assets
}

// CalculateWeights returns the fixed weights stamped for asOf.
func (s *Static) CalculateWeights(_ context.Context, asOf time.Time, _ *pricing.Table, _ *domain.CalculatedWeights) (*domain.CalculatedWeights, error) {
	weights := make(map[string]decimal.Decimal, len(s.Weights))
	for k, v := range s.Weights {
		weights[k] = v
	}
	return &domain.CalculatedWeights{
		CalculationDate:    asOf,
		Weights:            weights,
		StrategyName:       "static",
		ParametersSnapshot: map[string]any{"name": s.Name},
	}, nil
}

var _ Calculator = (*Static)(nil)
