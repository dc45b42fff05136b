package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portfolio-backtest-lab/internal/domain"
	"portfolio-backtest-lab/internal/storage"
	"portfolio-backtest-lab/internal/storage/postgres"
)

func createTestRun(runID, strategyID string, completedAt time.Time) *domain.BacktestRun {
	start := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 6, 28, 0, 0, 0, 0, time.UTC)
	return &domain.BacktestRun{
		RunID:          runID,
		StrategyID:     strategyID,
		StartDate:      start,
		EndDate:        end,
		InitialCapital: decimal.NewFromInt(100000),
		Frequency:      domain.FrequencyMonthly,
		BaseCurrency:   "USD",
		Metrics: domain.PerformanceMetrics{
			TotalReturn:      decimal.NewFromFloat(0.1234),
			AnnualizedReturn: decimal.NewFromFloat(0.2601),
			Volatility:       decimal.NewFromFloat(0.1512),
			MaxDrawdown:      decimal.NewFromFloat(-0.0821),
			SharpeRatio:      decimal.NewFromFloat(1.59),
			NumTrades:        14,
			StartDate:        start,
			EndDate:          end,
			StartValue:       decimal.NewFromInt(100000),
			EndValue:         decimal.NewFromFloat(112340),
		},
		NumWarnings: 1,
		CompletedAt: completedAt,
	}
}

func TestBacktestRunStore_InsertAndGetByID(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := postgres.NewBacktestRunStore(pool)

	run := createTestRun("run-001", "MOMENTUM_90d", time.Date(2024, 7, 1, 10, 0, 0, 0, time.UTC))

	err := store.Insert(ctx, run)
	require.NoError(t, err)

	retrieved, err := store.GetByID(ctx, "run-001")
	require.NoError(t, err)

	assert.Equal(t, run.RunID, retrieved.RunID)
	assert.Equal(t, run.StrategyID, retrieved.StrategyID)
	assert.Equal(t, run.Frequency, retrieved.Frequency)
	assert.Equal(t, run.BaseCurrency, retrieved.BaseCurrency)
	assert.True(t, run.StartDate.Equal(retrieved.StartDate))
	assert.True(t, run.EndDate.Equal(retrieved.EndDate))
	assert.True(t, run.InitialCapital.Equal(retrieved.InitialCapital))
	assert.True(t, run.Metrics.TotalReturn.Equal(retrieved.Metrics.TotalReturn))
	assert.True(t, run.Metrics.AnnualizedReturn.Equal(retrieved.Metrics.AnnualizedReturn))
	assert.True(t, run.Metrics.Volatility.Equal(retrieved.Metrics.Volatility))
	assert.True(t, run.Metrics.MaxDrawdown.Equal(retrieved.Metrics.MaxDrawdown))
	assert.True(t, run.Metrics.SharpeRatio.Equal(retrieved.Metrics.SharpeRatio))
	assert.Equal(t, run.Metrics.NumTrades, retrieved.Metrics.NumTrades)
	assert.True(t, run.Metrics.EndValue.Equal(retrieved.Metrics.EndValue))
	assert.Equal(t, run.NumWarnings, retrieved.NumWarnings)
	assert.True(t, run.CompletedAt.Equal(retrieved.CompletedAt))
}

func TestBacktestRunStore_InsertDuplicate(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := postgres.NewBacktestRunStore(pool)

	run := createTestRun("run-dup", "MOMENTUM_90d", time.Now().UTC())

	err := store.Insert(ctx, run)
	require.NoError(t, err)

	err = store.Insert(ctx, run)
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestBacktestRunStore_GetByIDNotFound(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := postgres.NewBacktestRunStore(pool)

	_, err := store.GetByID(ctx, "no-such-run")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestBacktestRunStore_GetByStrategyOrdered(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := postgres.NewBacktestRunStore(pool)

	base := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, store.Insert(ctx, createTestRun("run-b", "STATIC_60_40", base.Add(2*time.Hour))))
	require.NoError(t, store.Insert(ctx, createTestRun("run-a", "STATIC_60_40", base.Add(time.Hour))))
	require.NoError(t, store.Insert(ctx, createTestRun("run-c", "MOMENTUM_90d", base)))

	runs, err := store.GetByStrategy(ctx, "STATIC_60_40")
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "run-a", runs[0].RunID)
	assert.Equal(t, "run-b", runs[1].RunID)

	all, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "run-c", all[0].RunID)
}

func TestBacktestRunStore_InsertInvalid(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := postgres.NewBacktestRunStore(pool)

	err := store.Insert(ctx, nil)
	assert.ErrorIs(t, err, storage.ErrInvalidInput)

	err = store.Insert(ctx, &domain.BacktestRun{})
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}
