package strategy

import (
	"errors"
	"fmt"

	"portfolio-backtest-lab/internal/domain"
)

// Factory errors.
var (
	ErrUnknownStrategyType = errors.New("unknown strategy type")
	ErrMissingShortWindow  = errors.New("short_window is required for DUAL_MA")
	ErrMissingLongWindow   = errors.New("long_window is required for DUAL_MA")
)

// Defaults applied by the factory when optional knobs are unset.
const (
	DefaultMinVolatilityThreshold = 0.0001
	DefaultAnnualizationFactor    = 252
)

// FromConfig builds a Calculator from a validated strategy configuration.
func FromConfig(cfg *domain.StrategyConfig) (Calculator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch cfg.StrategyType {
	case domain.StrategyTypeStatic:
		return NewStatic(domain.AllocationStrategy{
			Name:    string(cfg.StrategyType),
			Weights: cfg.Weights,
		})

	case domain.StrategyTypeMomentum:
		excludeNegative := true
		if cfg.ExcludeNegative != nil {
			excludeNegative = *cfg.ExcludeNegative
		}
		return NewMomentum(cfg.LookbackDays, cfg.Assets, excludeNegative, cfg.MinMomentum), nil

	case domain.StrategyTypeRiskParity:
		if cfg.TargetVolatility != nil {
			tv := *cfg.TargetVolatility
			if tv < 0.01 || tv > 0.50 {
				return nil, fmt.Errorf("%w: target_volatility must be in [0.01, 0.50], got %v", domain.ErrValidation, tv)
			}
		}
		minVol := DefaultMinVolatilityThreshold
		if cfg.MinVolatilityThreshold != nil {
			if *cfg.MinVolatilityThreshold <= 0 {
				return nil, fmt.Errorf("%w: min_volatility_threshold must be positive, got %v", domain.ErrValidation, *cfg.MinVolatilityThreshold)
			}
			minVol = *cfg.MinVolatilityThreshold
		}
		annualization := DefaultAnnualizationFactor
		if cfg.AnnualizationFactor != nil {
			if *cfg.AnnualizationFactor < 1 {
				return nil, fmt.Errorf("%w: annualization_factor must be positive, got %d", domain.ErrValidation, *cfg.AnnualizationFactor)
			}
			annualization = *cfg.AnnualizationFactor
		}
		return NewRiskParity(cfg.LookbackDays, cfg.Assets, cfg.TargetVolatility, minVol, annualization), nil

	case domain.StrategyTypeDualMovingAverage:
		if cfg.ShortWindow == nil {
			return nil, ErrMissingShortWindow
		}
		if cfg.LongWindow == nil {
			return nil, ErrMissingLongWindow
		}
		short, long := *cfg.ShortWindow, *cfg.LongWindow
		if short < 1 {
			return nil, fmt.Errorf("%w: short_window must be positive, got %d", domain.ErrValidation, short)
		}
		if short >= long {
			return nil, fmt.Errorf("%w: short_window (%d) must be less than long_window (%d)", domain.ErrValidation, short, long)
		}
		if cfg.LookbackDays < long {
			return nil, fmt.Errorf("%w: lookback_days (%d) must be >= long_window (%d)", domain.ErrValidation, cfg.LookbackDays, long)
		}
		useSignal := false
		if cfg.UseSignalStrength != nil {
			useSignal = *cfg.UseSignalStrength
		}
		return NewDualMovingAverage(cfg.LookbackDays, cfg.Assets, short, long, useSignal), nil

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownStrategyType, cfg.StrategyType)
	}
}
