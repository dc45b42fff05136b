// Package storage defines the persistence interfaces for backtest results.
// All stores are append-only: a run, its trades and its value series are
// written once after the run completes and never updated.
package storage

import (
	"context"
	"time"

	"portfolio-backtest-lab/internal/domain"
)

// BacktestRunStore provides access to backtest_runs storage.
type BacktestRunStore interface {
	// Insert adds a completed run summary. Returns ErrDuplicateKey if run_id exists.
	Insert(ctx context.Context, run *domain.BacktestRun) error

	// GetByID retrieves a run by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, runID string) (*domain.BacktestRun, error)

	// GetByStrategy retrieves all runs of a strategy, ordered by completed_at ASC.
	GetByStrategy(ctx context.Context, strategyID string) ([]*domain.BacktestRun, error)

	// List retrieves all runs, ordered by completed_at ASC.
	List(ctx context.Context) ([]*domain.BacktestRun, error)
}

// TradeStore provides access to trade_records storage.
type TradeStore interface {
	// Insert adds a single trade. Returns ErrDuplicateKey if trade_id exists.
	Insert(ctx context.Context, t *domain.TradeRecord) error

	// InsertBulk adds multiple trades atomically. Fails entire batch on any duplicate.
	InsertBulk(ctx context.Context, trades []*domain.TradeRecord) error

	// GetByRunID retrieves all trades of a run, ordered by timestamp ASC, symbol ASC.
	GetByRunID(ctx context.Context, runID string) ([]*domain.TradeRecord, error)

	// GetBySymbol retrieves a run's trades in one symbol, ordered by timestamp ASC.
	GetBySymbol(ctx context.Context, runID, symbol string) ([]*domain.TradeRecord, error)
}

// PortfolioValueStore provides access to the daily portfolio value series.
type PortfolioValueStore interface {
	// InsertBulk adds the value series of a run. Fails on duplicate (run_id, date).
	InsertBulk(ctx context.Context, points []domain.PortfolioValuePoint) error

	// GetByRunID retrieves a run's full series, ordered by date ASC.
	GetByRunID(ctx context.Context, runID string) ([]domain.PortfolioValuePoint, error)

	// GetByRunIDRange retrieves a run's series within [start, end], ordered by date ASC.
	GetByRunIDRange(ctx context.Context, runID string, start, end time.Time) ([]domain.PortfolioValuePoint, error)
}
