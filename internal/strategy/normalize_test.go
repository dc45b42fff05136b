package strategy

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestNormalizeWeightsSumsToOne(t *testing.T) {
	raw := map[string]float64{"A": 1, "B": 1, "C": 1}
	weights, err := normalizeWeights(raw)
	if err != nil {
		t.Fatalf("normalizeWeights: %v", err)
	}
	if !weightSum(weights).Equal(decimal.NewFromInt(1)) {
		t.Errorf("weights sum to %s, want exactly 1", weightSum(weights))
	}
	// 1/3 rounds to 0.3333; the residual 0.0001 lands on one asset.
	third := decimal.NewFromFloat(0.3333)
	bumped := 0
	for symbol, w := range weights {
		switch {
		case w.Equal(third):
		case w.Equal(decimal.NewFromFloat(0.3334)):
			bumped++
			if symbol != "A" {
				t.Errorf("residual went to %s, want lexicographically smallest A", symbol)
			}
		default:
			t.Errorf("unexpected weight %s for %s", w, symbol)
		}
	}
	if bumped != 1 {
		t.Errorf("residual assigned %d times, want 1", bumped)
	}
}

func TestNormalizeWeightsResidualToLargest(t *testing.T) {
	raw := map[string]float64{"A": 1, "B": 2}
	weights, err := normalizeWeights(raw)
	if err != nil {
		t.Fatalf("normalizeWeights: %v", err)
	}
	if !weightSum(weights).Equal(decimal.NewFromInt(1)) {
		t.Errorf("weights sum to %s, want exactly 1", weightSum(weights))
	}
	// 1/3 -> 0.3333, 2/3 -> 0.6667, sum is already 1.
	if got := weightOf(t, weights, "B"); got != 0.6667 {
		t.Errorf("B weight = %v, want 0.6667", got)
	}
}

func TestNormalizeWeightsRejectsNegative(t *testing.T) {
	if _, err := normalizeWeights(map[string]float64{"A": -1, "B": 2}); err == nil {
		t.Error("expected error for negative raw weight")
	}
}

func TestNormalizeWeightsRejectsZeroTotal(t *testing.T) {
	if _, err := normalizeWeights(map[string]float64{"A": 0, "B": 0}); err == nil {
		t.Error("expected error when all raw weights are zero")
	}
}
