package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"portfolio-backtest-lab/internal/domain"
	"portfolio-backtest-lab/internal/sweep"
)

// GridFile is the YAML sweep definition: one shared backtest configuration
// and a list of strategy blocks whose list-valued knobs are expanded into
// the cartesian product of runs.
type GridFile struct {
	Backtest   BacktestSection   `yaml:"backtest"`
	Data       DataSection       `yaml:"data"`
	Strategies []StrategySection `yaml:"strategies"`
}

// BacktestSection holds the run parameters shared by every spec.
type BacktestSection struct {
	Start          string `yaml:"start"`
	End            string `yaml:"end"`
	InitialCapital string `yaml:"initial_capital"`
	Frequency      string `yaml:"frequency"`
	BaseCurrency   string `yaml:"base_currency"`
	RiskFreeRate   string `yaml:"risk_free_rate"`
	Costs          struct {
		FixedPerTrade string `yaml:"fixed_per_trade"`
		Percentage    string `yaml:"percentage"`
	} `yaml:"costs"`
}

// DataSection points at the CSV inputs.
type DataSection struct {
	Prices string `yaml:"prices"`
	Rates  string `yaml:"rates"`
}

// StrategySection is one strategy block. List-valued fields sweep; scalar
// fields apply to every expanded spec.
type StrategySection struct {
	Name   string   `yaml:"name"`
	Type   string   `yaml:"type"`
	Assets []string `yaml:"assets"`

	// STATIC
	Weights map[string]string `yaml:"weights"`

	// Swept knobs
	LookbackDays     []int     `yaml:"lookback_days"`
	MinMomentum      []float64 `yaml:"min_momentum"`
	TargetVolatility []float64 `yaml:"target_volatility"`
	ShortWindow      []int     `yaml:"short_window"`
	LongWindow       []int     `yaml:"long_window"`

	// Scalar knobs
	ExcludeNegative   *bool `yaml:"exclude_negative"`
	UseSignalStrength *bool `yaml:"use_signal_strength"`
}

// LoadGrid reads and parses a sweep grid file.
func LoadGrid(path string) (*GridFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read grid file: %w", err)
	}
	var grid GridFile
	if err := yaml.Unmarshal(data, &grid); err != nil {
		return nil, fmt.Errorf("parse grid file: %w", err)
	}
	if len(grid.Strategies) == 0 {
		return nil, fmt.Errorf("grid file defines no strategies")
	}
	return &grid, nil
}

// BacktestConfig converts the shared section into a validated run config.
func (g *GridFile) BacktestConfig() (*domain.BacktestConfig, error) {
	start, err := time.Parse("2006-01-02", g.Backtest.Start)
	if err != nil {
		return nil, fmt.Errorf("parse backtest.start: %w", err)
	}
	end, err := time.Parse("2006-01-02", g.Backtest.End)
	if err != nil {
		return nil, fmt.Errorf("parse backtest.end: %w", err)
	}

	cfg := &domain.BacktestConfig{
		StartDate:    start,
		EndDate:      end,
		BaseCurrency: strings.ToUpper(orDefault(g.Backtest.BaseCurrency, "USD")),
	}
	cfg.RebalanceFrequency, err = domain.ParseRebalanceFrequency(orDefault(g.Backtest.Frequency, "monthly"))
	if err != nil {
		return nil, err
	}
	if cfg.InitialCapital, err = decimal.NewFromString(orDefault(g.Backtest.InitialCapital, "100000")); err != nil {
		return nil, fmt.Errorf("parse backtest.initial_capital: %w", err)
	}
	if cfg.RiskFreeRate, err = decimal.NewFromString(orDefault(g.Backtest.RiskFreeRate, "0")); err != nil {
		return nil, fmt.Errorf("parse backtest.risk_free_rate: %w", err)
	}
	if cfg.TransactionCosts.FixedPerTrade, err = decimal.NewFromString(orDefault(g.Backtest.Costs.FixedPerTrade, "0")); err != nil {
		return nil, fmt.Errorf("parse backtest.costs.fixed_per_trade: %w", err)
	}
	if cfg.TransactionCosts.Percentage, err = decimal.NewFromString(orDefault(g.Backtest.Costs.Percentage, "0")); err != nil {
		return nil, fmt.Errorf("parse backtest.costs.percentage: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Expand produces one sweep.Spec per point of each strategy block's grid,
// in stable block-then-knob order.
func (g *GridFile) Expand() ([]sweep.Spec, error) {
	cfg, err := g.BacktestConfig()
	if err != nil {
		return nil, err
	}

	var specs []sweep.Spec
	for i := range g.Strategies {
		block := &g.Strategies[i]
		if block.Name == "" {
			return nil, fmt.Errorf("strategies[%d] has no name", i)
		}
		expanded, err := expandBlock(cfg, block)
		if err != nil {
			return nil, fmt.Errorf("strategy %s: %w", block.Name, err)
		}
		specs = append(specs, expanded...)
	}
	return specs, nil
}

func expandBlock(cfg *domain.BacktestConfig, block *StrategySection) ([]sweep.Spec, error) {
	strategyType := domain.StrategyType(strings.ToUpper(block.Type))

	if strategyType == domain.StrategyTypeStatic {
		weights := make(map[string]decimal.Decimal, len(block.Weights))
		for symbol, raw := range block.Weights {
			w, err := decimal.NewFromString(raw)
			if err != nil {
				return nil, fmt.Errorf("parse weight for %s: %w", symbol, err)
			}
			weights[strings.ToUpper(symbol)] = w
		}
		return []sweep.Spec{{
			Name:   block.Name,
			Config: cfg,
			Strategy: &domain.StrategyConfig{
				StrategyType: strategyType,
				Weights:      weights,
			},
		}}, nil
	}

	lookbacks := block.LookbackDays
	if len(lookbacks) == 0 {
		return nil, fmt.Errorf("lookback_days is required for %s", strategyType)
	}

	var specs []sweep.Spec
	for _, lookback := range lookbacks {
		base := domain.StrategyConfig{
			StrategyType: strategyType,
			LookbackDays: lookback,
			Assets:       block.Assets,
		}

		switch strategyType {
		case domain.StrategyTypeMomentum:
			base.ExcludeNegative = block.ExcludeNegative
			thresholds := block.MinMomentum
			if len(thresholds) == 0 {
				thresholds = []float64{0}
			}
			for _, mm := range thresholds {
				spec := base
				if mm != 0 {
					spec.MinMomentum = ptr(mm)
				}
				specs = append(specs, namedSpec(block.Name, fmt.Sprintf("lb%d_mm%.3f", lookback, mm), cfg, spec))
			}
		case domain.StrategyTypeRiskParity:
			targets := block.TargetVolatility
			if len(targets) == 0 {
				targets = []float64{0}
			}
			for _, tv := range targets {
				spec := base
				if tv != 0 {
					spec.TargetVolatility = ptr(tv)
				}
				specs = append(specs, namedSpec(block.Name, fmt.Sprintf("lb%d_tv%.2f", lookback, tv), cfg, spec))
			}
		case domain.StrategyTypeDualMovingAverage:
			if len(block.ShortWindow) == 0 || len(block.LongWindow) == 0 {
				return nil, fmt.Errorf("short_window and long_window are required for %s", strategyType)
			}
			base.UseSignalStrength = block.UseSignalStrength
			for _, short := range block.ShortWindow {
				for _, long := range block.LongWindow {
					spec := base
					spec.ShortWindow = ptr(short)
					spec.LongWindow = ptr(long)
					specs = append(specs, namedSpec(block.Name, fmt.Sprintf("ma%d_%d", short, long), cfg, spec))
				}
			}
		default:
			return nil, fmt.Errorf("unknown strategy type %q", block.Type)
		}
	}
	return specs, nil
}

func namedSpec(block, point string, cfg *domain.BacktestConfig, strategy domain.StrategyConfig) sweep.Spec {
	return sweep.Spec{
		Name:     block + "/" + point,
		Config:   cfg,
		Strategy: &strategy,
	}
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

func ptr[T any](v T) *T { return &v }
