package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"

	"portfolio-backtest-lab/internal/domain"
)

func decimalFromString(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("parse decimal %q: %v", s, err)
	}
	return d
}

const sampleGrid = `
backtest:
  start: 2024-01-01
  end: 2024-06-30
  initial_capital: "50000"
  frequency: monthly
  base_currency: USD
  risk_free_rate: "0.02"
  costs:
    fixed_per_trade: "1.00"
    percentage: "0.001"
data:
  prices: testdata/prices.csv
strategies:
  - name: static-60-40
    type: STATIC
    weights:
      SPY: "0.6"
      AGG: "0.4"
  - name: momentum
    type: MOMENTUM
    assets: [SPY, AGG, GLD]
    lookback_days: [60, 90]
    min_momentum: [0, 0.02]
  - name: dual-ma
    type: DUAL_MA
    assets: [SPY]
    lookback_days: [250]
    short_window: [20, 50]
    long_window: [200]
`

func writeGrid(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "grid.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write grid: %v", err)
	}
	return path
}

func TestLoadGridAndExpand(t *testing.T) {
	grid, err := LoadGrid(writeGrid(t, sampleGrid))
	if err != nil {
		t.Fatalf("LoadGrid: %v", err)
	}

	specs, err := grid.Expand()
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}

	// 1 static + 2 lookbacks x 2 thresholds + 1 lookback x 2 shorts x 1 long
	if len(specs) != 7 {
		t.Fatalf("expected 7 specs, got %d", len(specs))
	}

	if specs[0].Name != "static-60-40" {
		t.Errorf("first spec name = %q", specs[0].Name)
	}
	if specs[0].Strategy.StrategyType != domain.StrategyTypeStatic {
		t.Errorf("first spec type = %q", specs[0].Strategy.StrategyType)
	}

	want := []string{
		"momentum/lb60_mm0.000",
		"momentum/lb60_mm0.020",
		"momentum/lb90_mm0.000",
		"momentum/lb90_mm0.020",
	}
	for i, name := range want {
		if specs[1+i].Name != name {
			t.Errorf("spec %d name = %q, want %q", 1+i, specs[1+i].Name, name)
		}
	}
	if specs[2].Strategy.MinMomentum == nil || *specs[2].Strategy.MinMomentum != 0.02 {
		t.Errorf("momentum threshold not carried into spec")
	}
	if specs[1].Strategy.MinMomentum != nil {
		t.Errorf("zero threshold should leave MinMomentum unset")
	}

	last := specs[6]
	if last.Name != "dual-ma/ma50_200" {
		t.Errorf("last spec name = %q", last.Name)
	}
	if *last.Strategy.ShortWindow != 50 || *last.Strategy.LongWindow != 200 {
		t.Errorf("dual-ma windows = %d/%d", *last.Strategy.ShortWindow, *last.Strategy.LongWindow)
	}

	cfg := last.Config
	if !cfg.InitialCapital.Equal(decimalFromString(t, "50000")) {
		t.Errorf("initial capital = %s", cfg.InitialCapital)
	}
	if cfg.RebalanceFrequency != domain.FrequencyMonthly {
		t.Errorf("frequency = %q", cfg.RebalanceFrequency)
	}
}

func TestExpandRejectsMissingKnobs(t *testing.T) {
	grid, err := LoadGrid(writeGrid(t, `
backtest:
  start: 2024-01-01
  end: 2024-06-30
strategies:
  - name: broken
    type: MOMENTUM
    assets: [SPY]
`))
	if err != nil {
		t.Fatalf("LoadGrid: %v", err)
	}
	if _, err := grid.Expand(); err == nil {
		t.Fatal("expected error for missing lookback_days")
	}
}

func TestLoadGridRejectsEmpty(t *testing.T) {
	if _, err := LoadGrid(writeGrid(t, "backtest:\n  start: 2024-01-01\n  end: 2024-06-30\n")); err == nil {
		t.Fatal("expected error for grid without strategies")
	}
}
