package strategy

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"portfolio-backtest-lab/internal/domain"
)

func TestDualMovingAverageEqualSplitAcrossBullish(t *testing.T) {
	// UP and SURGE both trend up (short MA above long MA); DOWN trends down.
	table := seriesTable(t, map[string][]float64{
		"UP":    ramp(100, 120, 30),
		"SURGE": ramp(100, 160, 30),
		"DOWN":  ramp(100, 80, 30),
	})
	calc := NewDualMovingAverage(30, []string{"UP", "SURGE", "DOWN"}, 5, 20, false)

	asOf := testStart.AddDate(0, 0, 30)
	cw, err := calc.CalculateWeights(context.Background(), asOf, table, nil)
	if err != nil {
		t.Fatalf("CalculateWeights: %v", err)
	}
	if got := weightOf(t, cw.Weights, "UP"); got != 0.5 {
		t.Errorf("UP weight = %v, want 0.5 equal split", got)
	}
	if got := weightOf(t, cw.Weights, "SURGE"); got != 0.5 {
		t.Errorf("SURGE weight = %v, want 0.5 equal split", got)
	}
	if _, held := cw.Weights["DOWN"]; held {
		t.Error("bearish DOWN should not be held")
	}
	if len(cw.ExcludedAssets) != 0 {
		t.Errorf("bearish is not exclusion, got %v", cw.ExcludedAssets)
	}
}

func TestDualMovingAverageSignalStrength(t *testing.T) {
	table := seriesTable(t, map[string][]float64{
		"UP":    ramp(100, 120, 30),
		"SURGE": ramp(100, 160, 30),
	})
	calc := NewDualMovingAverage(30, []string{"UP", "SURGE"}, 5, 20, true)

	asOf := testStart.AddDate(0, 0, 30)
	cw, err := calc.CalculateWeights(context.Background(), asOf, table, nil)
	if err != nil {
		t.Fatalf("CalculateWeights: %v", err)
	}
	up := weightOf(t, cw.Weights, "UP")
	surge := weightOf(t, cw.Weights, "SURGE")
	if surge <= up {
		t.Errorf("stronger trend SURGE (%v) should outweigh UP (%v)", surge, up)
	}
	if !weightSum(cw.Weights).Equal(decimal.NewFromInt(1)) {
		t.Errorf("weights sum to %s", weightSum(cw.Weights))
	}
}

func TestDualMovingAverageAllBearishGoesToCash(t *testing.T) {
	table := seriesTable(t, map[string][]float64{
		"AAA": ramp(100, 80, 30),
		"BBB": ramp(50, 42, 30),
	})
	calc := NewDualMovingAverage(30, []string{"AAA", "BBB"}, 5, 20, false)

	asOf := testStart.AddDate(0, 0, 30)
	cw, err := calc.CalculateWeights(context.Background(), asOf, table, nil)
	if err != nil {
		t.Fatalf("CalculateWeights: %v", err)
	}
	if got := weightOf(t, cw.Weights, domain.CashSymbol); got != 1.0 {
		t.Errorf("CASH weight = %v, want 1.0", got)
	}
	if cw.Metadata["reason"] != "all_bearish" {
		t.Errorf("reason = %v", cw.Metadata["reason"])
	}
	if len(cw.ExcludedAssets) != 0 {
		t.Errorf("excluded = %v, want empty", cw.ExcludedAssets)
	}
}

func TestDualMovingAverageFallsBackWithoutData(t *testing.T) {
	table := seriesTable(t, map[string][]float64{
		"AAA": flat(100, 5),
	})
	calc := NewDualMovingAverage(30, []string{"AAA"}, 5, 20, false)
	asOf := testStart.AddDate(0, 0, 5)

	prev := &domain.CalculatedWeights{
		CalculationDate: testStart,
		Weights:         map[string]decimal.Decimal{"AAA": decimal.NewFromInt(1)},
		StrategyName:    "dual_moving_average",
	}
	cw, err := calc.CalculateWeights(context.Background(), asOf, table, prev)
	if err != nil {
		t.Fatalf("CalculateWeights: %v", err)
	}
	if !cw.UsedPreviousWeights {
		t.Error("UsedPreviousWeights = false, want true")
	}
}
