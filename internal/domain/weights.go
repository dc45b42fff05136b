package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// CalculatedWeights is the output of one dynamic weight calculation,
// with enough metadata to audit how the allocation was produced.
type CalculatedWeights struct {
	CalculationDate     time.Time
	Weights             map[string]decimal.Decimal
	StrategyName        string
	ParametersSnapshot  map[string]any
	ExcludedAssets      []string
	UsedPreviousWeights bool
	Metadata            map[string]any
}

// Validate checks the weight invariants: all weights in [0,1], sum 1.0
// within tolerance.
func (w *CalculatedWeights) Validate() error {
	return ValidateWeightSet(w.Weights)
}

// Clone returns a deep copy. Calculators return clones when falling back to
// previous weights so history entries never share map state.
func (w *CalculatedWeights) Clone() *CalculatedWeights {
	weights := make(map[string]decimal.Decimal, len(w.Weights))
	for k, v := range w.Weights {
		weights[k] = v
	}
	params := make(map[string]any, len(w.ParametersSnapshot))
	for k, v := range w.ParametersSnapshot {
		params[k] = v
	}
	meta := make(map[string]any, len(w.Metadata))
	for k, v := range w.Metadata {
		meta[k] = v
	}
	excluded := make([]string, len(w.ExcludedAssets))
	copy(excluded, w.ExcludedAssets)

	return &CalculatedWeights{
		CalculationDate:     w.CalculationDate,
		Weights:             weights,
		StrategyName:        w.StrategyName,
		ParametersSnapshot:  params,
		ExcludedAssets:      excluded,
		UsedPreviousWeights: w.UsedPreviousWeights,
		Metadata:            meta,
	}
}
