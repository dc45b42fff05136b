package strategy

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"portfolio-backtest-lab/internal/domain"
	"portfolio-backtest-lab/internal/pricing"
)

// DualMovingAverage holds assets whose short moving average trades above
// the long moving average, splitting the allocation across bullish assets.
type DualMovingAverage struct {
	LookbackDays      int
	AssetList         []string
	ShortWindow       int
	LongWindow        int
	UseSignalStrength bool
}

// NewDualMovingAverage creates a dual moving-average calculator.
func NewDualMovingAverage(lookbackDays int, assets []string, shortWindow, longWindow int, useSignalStrength bool) *DualMovingAverage {
	return &DualMovingAverage{
		LookbackDays:      lookbackDays,
		AssetList:         assets,
		ShortWindow:       shortWindow,
		LongWindow:        longWindow,
		UseSignalStrength: useSignalStrength,
	}
}

// ID returns the strategy identifier including parameters.
func (d *DualMovingAverage) ID() string {
	id := fmt.Sprintf("DUAL_MA_%d_%d", d.ShortWindow, d.LongWindow)
	if d.UseSignalStrength {
		id += "_sig"
	}
	return id
}

// Assets returns the asset universe.
func (d *DualMovingAverage) Assets() []string { return d.AssetList }

// CalculateWeights computes moving-average crossover weights as of a date.
func (d *DualMovingAverage) CalculateWeights(_ context.Context, asOf time.Time, table *pricing.Table, prev *domain.CalculatedWeights) (*domain.CalculatedWeights, error) {
	window, excluded, err := table.WindowWithFallback(asOf, d.LookbackDays, d.AssetList)
	if err != nil {
		if errors.Is(err, domain.ErrInsufficientData) {
			if cw, ok := fallback(prev, asOf); ok {
				return cw, nil
			}
		}
		return nil, err
	}

	signals := d.signals(window)

	raw := make(map[string]float64, len(signals))
	for asset, signal := range signals {
		if signal <= 0 {
			continue
		}
		if d.UseSignalStrength {
			raw[asset] = signal
		} else {
			raw[asset] = 1
		}
	}

	snapshot := d.snapshot()
	if len(raw) == 0 {
		return &domain.CalculatedWeights{
			CalculationDate:    asOf,
			Weights:            cashOnly(),
			StrategyName:       "dual_moving_average",
			ParametersSnapshot: snapshot,
			ExcludedAssets:     excluded,
			Metadata:           map[string]any{"signals": signals, "reason": "all_bearish"},
		}, nil
	}

	weights, err := normalizeWeights(raw)
	if err != nil {
		return nil, err
	}

	return &domain.CalculatedWeights{
		CalculationDate:    asOf,
		Weights:            weights,
		StrategyName:       "dual_moving_average",
		ParametersSnapshot: snapshot,
		ExcludedAssets:     excluded,
		Metadata:           map[string]any{"signals": signals},
	}, nil
}

func (d *DualMovingAverage) snapshot() map[string]any {
	return map[string]any{
		"lookback_days":       d.LookbackDays,
		"assets":              append([]string(nil), d.AssetList...),
		"short_window":        d.ShortWindow,
		"long_window":         d.LongWindow,
		"use_signal_strength": d.UseSignalStrength,
	}
}

// signals computes (shortMA - longMA) / longMA per complete asset. Positive
// means the short average is above the long average (bullish).
func (d *DualMovingAverage) signals(window *pricing.Window) map[string]float64 {
	signals := make(map[string]float64)
	for _, asset := range window.CompleteAssets() {
		series := window.AssetPrices(asset)
		if len(series) < d.LongWindow {
			continue
		}
		shortMA := trailingMean(series, d.ShortWindow)
		longMA := trailingMean(series, d.LongWindow)
		if longMA == 0 {
			continue
		}
		signals[asset] = (shortMA - longMA) / longMA
	}
	return signals
}

// trailingMean averages the last n observations of a series.
func trailingMean(series []decimal.Decimal, n int) float64 {
	sum := decimal.Zero
	for _, p := range series[len(series)-n:] {
		sum = sum.Add(p)
	}
	f, _ := sum.Div(decimal.NewFromInt(int64(n))).Float64()
	return f
}

var _ Calculator = (*DualMovingAverage)(nil)
