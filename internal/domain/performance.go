package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PerformanceMetrics summarizes a completed backtest. Read-only, derived
// from the portfolio history.
type PerformanceMetrics struct {
	TotalReturn      decimal.Decimal
	AnnualizedReturn decimal.Decimal
	Volatility       decimal.Decimal
	MaxDrawdown      decimal.Decimal
	SharpeRatio      decimal.Decimal
	NumTrades        int
	StartDate        time.Time
	EndDate          time.Time
	StartValue       decimal.Decimal
	EndValue         decimal.Decimal
}

// BacktestRun is the persisted summary of one completed run.
type BacktestRun struct {
	RunID          string
	StrategyID     string
	StartDate      time.Time
	EndDate        time.Time
	InitialCapital decimal.Decimal
	Frequency      RebalanceFrequency
	BaseCurrency   string
	Metrics        PerformanceMetrics
	NumWarnings    int
	CompletedAt    time.Time
}

// PortfolioValuePoint is one persisted point of a run's value series.
type PortfolioValuePoint struct {
	RunID       string
	Date        time.Time
	TotalValue  float64
	CashBalance float64
}
