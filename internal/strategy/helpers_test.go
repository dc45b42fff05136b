package strategy

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"portfolio-backtest-lab/internal/pricing"
)

var testStart = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// seriesTable builds a price table with one observation per consecutive day
// starting at testStart, per symbol.
func seriesTable(t *testing.T, series map[string][]float64) *pricing.Table {
	t.Helper()
	var points []pricing.Point
	for symbol, prices := range series {
		for i, price := range prices {
			points = append(points, pricing.Point{
				Date:     testStart.AddDate(0, 0, i),
				Symbol:   symbol,
				Price:    decimal.NewFromFloat(price),
				Currency: "USD",
			})
		}
	}
	table, err := pricing.NewTable(points)
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}
	return table
}

func weightOf(t *testing.T, weights map[string]decimal.Decimal, symbol string) float64 {
	t.Helper()
	w, ok := weights[symbol]
	if !ok {
		t.Fatalf("no weight for %s in %v", symbol, weights)
	}
	f, _ := w.Float64()
	return f
}

func weightSum(weights map[string]decimal.Decimal) decimal.Decimal {
	sum := decimal.Zero
	for _, w := range weights {
		sum = sum.Add(w)
	}
	return sum
}
