package strategy

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"portfolio-backtest-lab/internal/domain"
)

// flat returns n copies of a constant price.
func flat(price float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = price
	}
	return out
}

// ramp returns n prices moving linearly from start to end.
func ramp(start, end float64, n int) []float64 {
	out := make([]float64, n)
	step := (end - start) / float64(n-1)
	for i := range out {
		out[i] = start + step*float64(i)
	}
	return out
}

func TestMomentumProportionalToScore(t *testing.T) {
	// GROW gains 20%, SLOW gains 10%: weights should split 2:1.
	table := seriesTable(t, map[string][]float64{
		"GROW": ramp(100, 120, 10),
		"SLOW": ramp(100, 110, 10),
	})
	calc := NewMomentum(10, []string{"GROW", "SLOW"}, true, nil)

	asOf := testStart.AddDate(0, 0, 10)
	cw, err := calc.CalculateWeights(context.Background(), asOf, table, nil)
	if err != nil {
		t.Fatalf("CalculateWeights: %v", err)
	}
	if got := weightOf(t, cw.Weights, "GROW"); got != 0.6667 {
		t.Errorf("GROW weight = %v, want 0.6667", got)
	}
	if got := weightOf(t, cw.Weights, "SLOW"); got != 0.3333 {
		t.Errorf("SLOW weight = %v, want 0.3333", got)
	}
	if !weightSum(cw.Weights).Equal(decimal.NewFromInt(1)) {
		t.Errorf("weights sum to %s", weightSum(cw.Weights))
	}
	if len(cw.ExcludedAssets) != 0 {
		t.Errorf("unexpected exclusions: %v", cw.ExcludedAssets)
	}
}

func TestMomentumAllNegativeGoesToCash(t *testing.T) {
	table := seriesTable(t, map[string][]float64{
		"AAA": ramp(100, 90, 10),
		"BBB": ramp(50, 45, 10),
	})
	calc := NewMomentum(10, []string{"AAA", "BBB"}, true, nil)

	asOf := testStart.AddDate(0, 0, 10)
	cw, err := calc.CalculateWeights(context.Background(), asOf, table, nil)
	if err != nil {
		t.Fatalf("CalculateWeights: %v", err)
	}
	if len(cw.Weights) != 1 {
		t.Fatalf("weights = %v, want cash only", cw.Weights)
	}
	if got := weightOf(t, cw.Weights, domain.CashSymbol); got != 1.0 {
		t.Errorf("CASH weight = %v, want 1.0", got)
	}
	// Negative momentum is flooring, not exclusion.
	if len(cw.ExcludedAssets) != 0 {
		t.Errorf("excluded assets = %v, want empty", cw.ExcludedAssets)
	}
	if cw.Metadata["reason"] != "all_negative_momentum" {
		t.Errorf("reason = %v", cw.Metadata["reason"])
	}
}

func TestMomentumMinMomentumExcludes(t *testing.T) {
	table := seriesTable(t, map[string][]float64{
		"GROW": ramp(100, 120, 10),
		"SLOW": ramp(100, 101, 10),
	})
	minMom := 0.05
	calc := NewMomentum(10, []string{"GROW", "SLOW"}, true, &minMom)

	asOf := testStart.AddDate(0, 0, 10)
	cw, err := calc.CalculateWeights(context.Background(), asOf, table, nil)
	if err != nil {
		t.Fatalf("CalculateWeights: %v", err)
	}
	if got := weightOf(t, cw.Weights, "GROW"); got != 1.0 {
		t.Errorf("GROW weight = %v, want 1.0", got)
	}
	if len(cw.ExcludedAssets) != 1 || cw.ExcludedAssets[0] != "SLOW" {
		t.Errorf("excluded = %v, want [SLOW]", cw.ExcludedAssets)
	}
}

func TestMomentumPartialDataExcludesIncompleteAsset(t *testing.T) {
	table := seriesTable(t, map[string][]float64{
		"FULL": ramp(100, 110, 10),
		"LATE": ramp(100, 105, 4),
	})
	calc := NewMomentum(10, []string{"FULL", "LATE"}, true, nil)

	asOf := testStart.AddDate(0, 0, 10)
	cw, err := calc.CalculateWeights(context.Background(), asOf, table, nil)
	if err != nil {
		t.Fatalf("CalculateWeights: %v", err)
	}
	if got := weightOf(t, cw.Weights, "FULL"); got != 1.0 {
		t.Errorf("FULL weight = %v, want 1.0", got)
	}
	if len(cw.ExcludedAssets) != 1 || cw.ExcludedAssets[0] != "LATE" {
		t.Errorf("excluded = %v, want [LATE]", cw.ExcludedAssets)
	}
}

func TestMomentumInsufficientDataFallsBackToPrevious(t *testing.T) {
	table := seriesTable(t, map[string][]float64{
		"AAA": flat(100, 3),
	})
	calc := NewMomentum(10, []string{"AAA"}, true, nil)
	asOf := testStart.AddDate(0, 0, 3)

	prev := &domain.CalculatedWeights{
		CalculationDate: testStart,
		Weights:         map[string]decimal.Decimal{"AAA": decimal.NewFromInt(1)},
		StrategyName:    "momentum",
	}
	cw, err := calc.CalculateWeights(context.Background(), asOf, table, prev)
	if err != nil {
		t.Fatalf("CalculateWeights with prev: %v", err)
	}
	if !cw.UsedPreviousWeights {
		t.Error("UsedPreviousWeights = false, want true")
	}
	if !cw.CalculationDate.Equal(asOf) {
		t.Errorf("CalculationDate = %s, want %s", cw.CalculationDate, asOf)
	}
	if got := weightOf(t, cw.Weights, "AAA"); got != 1.0 {
		t.Errorf("AAA weight = %v, want carried 1.0", got)
	}

	// Without previous weights the error propagates.
	if _, err := calc.CalculateWeights(context.Background(), asOf, table, nil); !errors.Is(err, domain.ErrInsufficientData) {
		t.Errorf("err = %v, want ErrInsufficientData", err)
	}
}

func TestMomentumDeterministic(t *testing.T) {
	table := seriesTable(t, map[string][]float64{
		"AAA": ramp(100, 117, 20),
		"BBB": ramp(200, 212, 20),
		"CCC": ramp(50, 53, 20),
	})
	calc := NewMomentum(20, []string{"AAA", "BBB", "CCC"}, true, nil)
	asOf := testStart.AddDate(0, 0, 20)

	first, err := calc.CalculateWeights(context.Background(), asOf, table, nil)
	if err != nil {
		t.Fatalf("CalculateWeights: %v", err)
	}
	for i := 0; i < 5; i++ {
		again, err := calc.CalculateWeights(context.Background(), asOf, table, nil)
		if err != nil {
			t.Fatalf("CalculateWeights: %v", err)
		}
		for symbol, w := range first.Weights {
			if !again.Weights[symbol].Equal(w) {
				t.Fatalf("run %d: weight for %s changed: %s vs %s", i, symbol, again.Weights[symbol], w)
			}
		}
	}
}

func TestMomentumNoLookAhead(t *testing.T) {
	// A price spike on the calculation date itself must not affect weights.
	base := map[string][]float64{
		"AAA": ramp(100, 110, 10),
		"BBB": ramp(100, 105, 10),
	}
	spiked := map[string][]float64{
		"AAA": append(ramp(100, 110, 10), 500),
		"BBB": append(ramp(100, 105, 10), 1),
	}
	calc := NewMomentum(10, []string{"AAA", "BBB"}, true, nil)
	asOf := testStart.AddDate(0, 0, 10)

	a, err := calc.CalculateWeights(context.Background(), asOf, seriesTable(t, base), nil)
	if err != nil {
		t.Fatalf("CalculateWeights: %v", err)
	}
	b, err := calc.CalculateWeights(context.Background(), asOf, seriesTable(t, spiked), nil)
	if err != nil {
		t.Fatalf("CalculateWeights: %v", err)
	}
	for symbol, w := range a.Weights {
		if !b.Weights[symbol].Equal(w) {
			t.Errorf("weight for %s saw same-day data: %s vs %s", symbol, b.Weights[symbol], w)
		}
	}
}
