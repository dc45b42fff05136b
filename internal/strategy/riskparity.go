package strategy

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"

	"portfolio-backtest-lab/internal/domain"
	"portfolio-backtest-lab/internal/pricing"
)

// RiskParity allocates inversely to annualized volatility so each asset
// contributes comparable risk. Assets with volatility below the threshold
// are excluded to guard against division by near-zero.
type RiskParity struct {
	LookbackDays           int
	AssetList              []string
	TargetVolatility       *float64
	MinVolatilityThreshold float64
	AnnualizationFactor    int
}

// NewRiskParity creates a risk-parity calculator.
func NewRiskParity(lookbackDays int, assets []string, targetVol *float64, minVolThreshold float64, annualizationFactor int) *RiskParity {
	return &RiskParity{
		LookbackDays:           lookbackDays,
		AssetList:              assets,
		TargetVolatility:       targetVol,
		MinVolatilityThreshold: minVolThreshold,
		AnnualizationFactor:    annualizationFactor,
	}
}

// ID returns the strategy identifier including parameters.
func (r *RiskParity) ID() string {
	id := fmt.Sprintf("RISK_PARITY_%dd", r.LookbackDays)
	if r.TargetVolatility != nil {
		id += fmt.Sprintf("_tv%.2f", *r.TargetVolatility)
	}
	return id
}

// Assets returns the asset universe.
func (r *RiskParity) Assets() []string { return r.AssetList }

// CalculateWeights computes inverse-volatility weights as of a date.
func (r *RiskParity) CalculateWeights(_ context.Context, asOf time.Time, table *pricing.Table, prev *domain.CalculatedWeights) (*domain.CalculatedWeights, error) {
	window, excluded, err := table.WindowWithFallback(asOf, r.LookbackDays, r.AssetList)
	if err != nil {
		if errors.Is(err, domain.ErrInsufficientData) {
			if cw, ok := fallback(prev, asOf); ok {
				return cw, nil
			}
		}
		return nil, err
	}

	vols := r.volatilities(window)

	raw := make(map[string]float64, len(vols))
	usable := make(map[string]float64, len(vols))
	for _, asset := range window.CompleteAssets() {
		vol, ok := vols[asset]
		if !ok {
			continue
		}
		if vol < r.MinVolatilityThreshold {
			excluded = append(excluded, asset)
			continue
		}
		raw[asset] = 1 / vol
		usable[asset] = vol
	}

	snapshot := r.snapshot()
	if len(raw) == 0 {
		return &domain.CalculatedWeights{
			CalculationDate:    asOf,
			Weights:            cashOnly(),
			StrategyName:       "risk_parity",
			ParametersSnapshot: snapshot,
			ExcludedAssets:     excluded,
			Metadata:           map[string]any{"volatilities": vols, "reason": "all_zero_volatility"},
		}, nil
	}

	weights, err := normalizeWeights(raw)
	if err != nil {
		return nil, err
	}

	meta := map[string]any{"volatilities": vols}
	if r.TargetVolatility != nil {
		weights = scaleToTargetVolatility(weights, usable, *r.TargetVolatility, meta)
	}

	return &domain.CalculatedWeights{
		CalculationDate:    asOf,
		Weights:            weights,
		StrategyName:       "risk_parity",
		ParametersSnapshot: snapshot,
		ExcludedAssets:     excluded,
		Metadata:           meta,
	}, nil
}

func (r *RiskParity) snapshot() map[string]any {
	s := map[string]any{
		"lookback_days":            r.LookbackDays,
		"assets":                   append([]string(nil), r.AssetList...),
		"min_volatility_threshold": r.MinVolatilityThreshold,
		"annualization_factor":     r.AnnualizationFactor,
	}
	if r.TargetVolatility != nil {
		s["target_volatility"] = *r.TargetVolatility
	}
	return s
}

// volatilities computes annualized sample volatility of daily returns per
// complete asset. Sample standard deviation uses the n-1 denominator.
func (r *RiskParity) volatilities(window *pricing.Window) map[string]float64 {
	vols := make(map[string]float64)
	for _, asset := range window.CompleteAssets() {
		series := window.AssetPrices(asset)
		returns := dailyReturns(series)
		if len(returns) < 2 {
			continue
		}
		vols[asset] = sampleStddev(returns) * math.Sqrt(float64(r.AnnualizationFactor))
	}
	return vols
}

// scaleToTargetVolatility scales weights by target/portfolio volatility,
// leaving the scaled-out remainder as cash. Portfolio volatility is the
// weight-averaged asset volatility. Scaling up is clamped at 1 (no leverage).
func scaleToTargetVolatility(weights map[string]decimal.Decimal, vols map[string]float64, target float64, meta map[string]any) map[string]decimal.Decimal {
	portfolioVol := 0.0
	for asset, w := range weights {
		wf, _ := w.Float64()
		portfolioVol += wf * vols[asset]
	}
	meta["portfolio_volatility"] = portfolioVol
	if portfolioVol <= 0 || portfolioVol <= target {
		return weights
	}

	scale := decimal.NewFromFloat(target / portfolioVol)
	scaled := make(map[string]decimal.Decimal, len(weights)+1)
	invested := decimal.Zero
	for asset, w := range weights {
		sw := w.Mul(scale).Round(weightPlaces)
		scaled[asset] = sw
		invested = invested.Add(sw)
	}
	scaled[domain.CashSymbol] = decimal.NewFromInt(1).Sub(invested)
	return scaled
}

func dailyReturns(series []decimal.Decimal) []float64 {
	if len(series) < 2 {
		return nil
	}
	returns := make([]float64, 0, len(series)-1)
	for i := 1; i < len(series); i++ {
		prevPrice, _ := series[i-1].Float64()
		price, _ := series[i].Float64()
		if prevPrice == 0 {
			continue
		}
		returns = append(returns, price/prevPrice-1)
	}
	return returns
}

// sampleStddev computes the sample standard deviation (n-1 denominator).
func sampleStddev(values []float64) float64 {
	n := len(values)
	if n < 2 {
		return 0
	}
	mean := 0.0
	for _, v := range values {
		mean += v
	}
	mean /= float64(n)

	sumSq := 0.0
	for _, v := range values {
		diff := v - mean
		sumSq += diff * diff
	}
	return math.Sqrt(sumSq / float64(n-1))
}

var _ Calculator = (*RiskParity)(nil)
