package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"portfolio-backtest-lab/internal/domain"
	"portfolio-backtest-lab/internal/storage"
)

// BacktestRunStore implements storage.BacktestRunStore using PostgreSQL.
// Decimal columns travel as NUMERIC via their string form.
type BacktestRunStore struct {
	pool *Pool
}

// NewBacktestRunStore creates a new BacktestRunStore.
func NewBacktestRunStore(pool *Pool) *BacktestRunStore {
	return &BacktestRunStore{pool: pool}
}

// Compile-time interface check.
var _ storage.BacktestRunStore = (*BacktestRunStore)(nil)

const insertRunQuery = `
	INSERT INTO backtest_runs (
		run_id, strategy_id, start_date, end_date,
		initial_capital, rebalance_frequency, base_currency,
		total_return, annualized_return, volatility, max_drawdown, sharpe_ratio,
		num_trades, start_value, end_value,
		num_warnings, completed_at
	) VALUES (
		$1, $2, $3, $4,
		$5, $6, $7,
		$8, $9, $10, $11, $12,
		$13, $14, $15,
		$16, $17
	)
`

const selectRunColumns = `
	run_id, strategy_id, start_date, end_date,
	initial_capital, rebalance_frequency, base_currency,
	total_return, annualized_return, volatility, max_drawdown, sharpe_ratio,
	num_trades, start_value, end_value,
	num_warnings, completed_at
`

// Insert adds a completed run summary. Returns ErrDuplicateKey if run_id exists.
func (s *BacktestRunStore) Insert(ctx context.Context, run *domain.BacktestRun) error {
	if run == nil || run.RunID == "" {
		return storage.ErrInvalidInput
	}

	m := run.Metrics
	_, err := s.pool.Exec(ctx, insertRunQuery,
		run.RunID, run.StrategyID, run.StartDate, run.EndDate,
		run.InitialCapital.String(), string(run.Frequency), run.BaseCurrency,
		m.TotalReturn.String(), m.AnnualizedReturn.String(), m.Volatility.String(),
		m.MaxDrawdown.String(), m.SharpeRatio.String(),
		m.NumTrades, m.StartValue.String(), m.EndValue.String(),
		run.NumWarnings, run.CompletedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert backtest run: %w", err)
	}
	return nil
}

// GetByID retrieves a run by its ID. Returns ErrNotFound if not exists.
func (s *BacktestRunStore) GetByID(ctx context.Context, runID string) (*domain.BacktestRun, error) {
	query := `SELECT ` + selectRunColumns + ` FROM backtest_runs WHERE run_id = $1`

	row := s.pool.QueryRow(ctx, query, runID)
	run, err := scanRun(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get backtest run: %w", err)
	}
	return run, nil
}

// GetByStrategy retrieves all runs of a strategy, ordered by completed_at ASC.
func (s *BacktestRunStore) GetByStrategy(ctx context.Context, strategyID string) ([]*domain.BacktestRun, error) {
	query := `SELECT ` + selectRunColumns + `
		FROM backtest_runs
		WHERE strategy_id = $1
		ORDER BY completed_at ASC, run_id ASC`

	rows, err := s.pool.Query(ctx, query, strategyID)
	if err != nil {
		return nil, fmt.Errorf("query runs by strategy: %w", err)
	}
	defer rows.Close()

	return collectRuns(rows)
}

// List retrieves all runs, ordered by completed_at ASC.
func (s *BacktestRunStore) List(ctx context.Context) ([]*domain.BacktestRun, error) {
	query := `SELECT ` + selectRunColumns + `
		FROM backtest_runs
		ORDER BY completed_at ASC, run_id ASC`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	return collectRuns(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*domain.BacktestRun, error) {
	var (
		run       domain.BacktestRun
		frequency string
		completed time.Time
	)
	var capital, totalRet, annRet, vol, maxDD, sharpe, startVal, endVal string
	err := row.Scan(
		&run.RunID, &run.StrategyID, &run.StartDate, &run.EndDate,
		&capital, &frequency, &run.BaseCurrency,
		&totalRet, &annRet, &vol, &maxDD, &sharpe,
		&run.Metrics.NumTrades, &startVal, &endVal,
		&run.NumWarnings, &completed,
	)
	if err != nil {
		return nil, err
	}

	run.Frequency = domain.RebalanceFrequency(frequency)
	run.CompletedAt = completed
	run.Metrics.StartDate = run.StartDate
	run.Metrics.EndDate = run.EndDate

	fields := []struct {
		dst *decimal.Decimal
		src string
	}{
		{&run.InitialCapital, capital},
		{&run.Metrics.TotalReturn, totalRet},
		{&run.Metrics.AnnualizedReturn, annRet},
		{&run.Metrics.Volatility, vol},
		{&run.Metrics.MaxDrawdown, maxDD},
		{&run.Metrics.SharpeRatio, sharpe},
		{&run.Metrics.StartValue, startVal},
		{&run.Metrics.EndValue, endVal},
	}
	for _, f := range fields {
		d, err := decimal.NewFromString(f.src)
		if err != nil {
			return nil, fmt.Errorf("parse numeric column: %w", err)
		}
		*f.dst = d
	}
	return &run, nil
}

func collectRuns(rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}) ([]*domain.BacktestRun, error) {
	var result []*domain.BacktestRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		result = append(result, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return result, nil
}
