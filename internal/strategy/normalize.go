package strategy

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"portfolio-backtest-lab/internal/domain"
)

// weightPlaces is the precision of published weights.
const weightPlaces = 4

// normalizeWeights divides non-negative raw scores by their sum and rounds
// to 4 decimal places. The rounding residual is assigned to the single
// largest weight so the sum is exactly 1.0; ties break to the
// lexicographically smallest symbol.
func normalizeWeights(raw map[string]float64) (map[string]decimal.Decimal, error) {
	total := 0.0
	for symbol, v := range raw {
		if v < 0 {
			return nil, fmt.Errorf("%w: negative raw weight %f for %s", domain.ErrValidation, v, symbol)
		}
		total += v
	}
	if total <= 0 {
		return nil, fmt.Errorf("%w: cannot normalize, all raw weights are zero", domain.ErrValidation)
	}

	symbols := make([]string, 0, len(raw))
	for symbol := range raw {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)

	normalized := make(map[string]decimal.Decimal, len(raw))
	sum := decimal.Zero
	largest := ""
	for _, symbol := range symbols {
		w := decimal.NewFromFloat(raw[symbol] / total).Round(weightPlaces)
		normalized[symbol] = w
		sum = sum.Add(w)
		if largest == "" || w.GreaterThan(normalized[largest]) {
			largest = symbol
		}
	}

	if residual := decimal.NewFromInt(1).Sub(sum); !residual.IsZero() {
		normalized[largest] = normalized[largest].Add(residual)
	}
	return normalized, nil
}

// cashOnly allocates everything to the reserved cash symbol.
func cashOnly() map[string]decimal.Decimal {
	return map[string]decimal.Decimal{domain.CashSymbol: decimal.NewFromInt(1)}
}
