// Package reporting renders persisted backtest results as Markdown and CSV.
package reporting

import (
	"context"
	"fmt"
	"time"

	"portfolio-backtest-lab/internal/domain"
	"portfolio-backtest-lab/internal/storage"
)

// Report is one run's persisted data assembled for rendering.
type Report struct {
	GeneratedAt time.Time
	Run         *domain.BacktestRun
	Trades      []*domain.TradeRecord
	Values      []domain.PortfolioValuePoint
}

// Comparison lists several runs side by side, in store order
// (completed_at ASC).
type Comparison struct {
	GeneratedAt time.Time
	Runs        []*domain.BacktestRun
}

// Build assembles a run report from the stores.
func Build(
	ctx context.Context, runID string,
	runs storage.BacktestRunStore,
	trades storage.TradeStore,
	values storage.PortfolioValueStore,
) (*Report, error) {
	run, err := runs.GetByID(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("load run %s: %w", runID, err)
	}
	tradeRows, err := trades.GetByRunID(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("load trades for %s: %w", runID, err)
	}
	valueRows, err := values.GetByRunID(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("load value series for %s: %w", runID, err)
	}

	return &Report{
		GeneratedAt: time.Now().UTC(),
		Run:         run,
		Trades:      tradeRows,
		Values:      valueRows,
	}, nil
}

// BuildComparison assembles all persisted runs, or only one strategy's runs
// when strategyID is non-empty.
func BuildComparison(ctx context.Context, strategyID string, runs storage.BacktestRunStore) (*Comparison, error) {
	var (
		rows []*domain.BacktestRun
		err  error
	)
	if strategyID == "" {
		rows, err = runs.List(ctx)
	} else {
		rows, err = runs.GetByStrategy(ctx, strategyID)
	}
	if err != nil {
		return nil, fmt.Errorf("load runs: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: no persisted runs", storage.ErrNotFound)
	}

	return &Comparison{
		GeneratedAt: time.Now().UTC(),
		Runs:        rows,
	}, nil
}
