package strategy

import (
	"context"
	"errors"
	"fmt"
	"time"

	"portfolio-backtest-lab/internal/domain"
	"portfolio-backtest-lab/internal/pricing"
)

// Momentum allocates proportionally to trailing return over the lookback
// window. Score = price(end)/price(start) - 1. When every asset's score is
// zero or negative, the entire allocation is routed to cash.
type Momentum struct {
	LookbackDays    int
	AssetList       []string
	ExcludeNegative bool
	MinMomentum     *float64
}

// NewMomentum creates a momentum calculator.
func NewMomentum(lookbackDays int, assets []string, excludeNegative bool, minMomentum *float64) *Momentum {
	return &Momentum{
		LookbackDays:    lookbackDays,
		AssetList:       assets,
		ExcludeNegative: excludeNegative,
		MinMomentum:     minMomentum,
	}
}

// ID returns the strategy identifier including parameters.
func (m *Momentum) ID() string {
	id := fmt.Sprintf("MOMENTUM_%dd", m.LookbackDays)
	if m.ExcludeNegative {
		id += "_exclneg"
	}
	if m.MinMomentum != nil {
		id += fmt.Sprintf("_min%.4f", *m.MinMomentum)
	}
	return id
}

// Assets returns the asset universe.
func (m *Momentum) Assets() []string { return m.AssetList }

// CalculateWeights computes momentum weights as of a date.
func (m *Momentum) CalculateWeights(_ context.Context, asOf time.Time, table *pricing.Table, prev *domain.CalculatedWeights) (*domain.CalculatedWeights, error) {
	window, excluded, err := table.WindowWithFallback(asOf, m.LookbackDays, m.AssetList)
	if err != nil {
		if errors.Is(err, domain.ErrInsufficientData) {
			if cw, ok := fallback(prev, asOf); ok {
				return cw, nil
			}
		}
		return nil, err
	}

	scores := momentumScores(window)

	// min_momentum threshold removes assets entirely; this is a data-driven
	// exclusion distinct from negative-score flooring.
	if m.MinMomentum != nil {
		for _, asset := range window.CompleteAssets() {
			score, ok := scores[asset]
			if !ok {
				continue
			}
			if score < *m.MinMomentum {
				delete(scores, asset)
				excluded = append(excluded, asset)
			}
		}
	}

	raw := make(map[string]float64, len(scores))
	positive := 0
	for asset, score := range scores {
		if score <= 0 {
			if m.ExcludeNegative {
				continue
			}
			raw[asset] = 0
			continue
		}
		raw[asset] = score
		positive++
	}

	snapshot := m.snapshot()
	if positive == 0 {
		return &domain.CalculatedWeights{
			CalculationDate:    asOf,
			Weights:            cashOnly(),
			StrategyName:       "momentum",
			ParametersSnapshot: snapshot,
			ExcludedAssets:     excluded,
			Metadata:           map[string]any{"momentum_scores": scores, "reason": "all_negative_momentum"},
		}, nil
	}

	weights, err := normalizeWeights(raw)
	if err != nil {
		return nil, err
	}

	return &domain.CalculatedWeights{
		CalculationDate:    asOf,
		Weights:            weights,
		StrategyName:       "momentum",
		ParametersSnapshot: snapshot,
		ExcludedAssets:     excluded,
		Metadata:           map[string]any{"momentum_scores": scores},
	}, nil
}

func (m *Momentum) snapshot() map[string]any {
	s := map[string]any{
		"lookback_days":    m.LookbackDays,
		"assets":           append([]string(nil), m.AssetList...),
		"exclude_negative": m.ExcludeNegative,
	}
	if m.MinMomentum != nil {
		s["min_momentum"] = *m.MinMomentum
	}
	return s
}

// momentumScores computes (end/start - 1) per complete asset.
func momentumScores(window *pricing.Window) map[string]float64 {
	scores := make(map[string]float64)
	for _, asset := range window.CompleteAssets() {
		series := window.AssetPrices(asset)
		if len(series) < 2 {
			continue
		}
		start, _ := series[0].Float64()
		end, _ := series[len(series)-1].Float64()
		if start <= 0 {
			continue
		}
		scores[asset] = end/start - 1
	}
	return scores
}

var _ Calculator = (*Momentum)(nil)
