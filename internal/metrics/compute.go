// Package metrics computes performance statistics from a daily portfolio
// value series. Intermediate statistics use float64; published figures are
// converted to decimals at the end.
package metrics

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"portfolio-backtest-lab/internal/domain"
)

// TradingDaysPerYear is the annualization factor for daily series.
const TradingDaysPerYear = 252

const (
	metricPlaces = 4
	sharpePlaces = 2
)

// Compute derives performance metrics from a portfolio value series in
// chronological order. riskFreeRate is annualized. At least two values are
// required.
func Compute(values []domain.PortfolioValuePoint, riskFreeRate decimal.Decimal, numTrades int) (*domain.PerformanceMetrics, error) {
	if len(values) < 2 {
		return nil, fmt.Errorf("%w: need at least 2 portfolio values, got %d", domain.ErrInsufficientData, len(values))
	}

	series := make([]float64, len(values))
	for i, v := range values {
		if v.TotalValue <= 0 {
			return nil, fmt.Errorf("%w: non-positive portfolio value %f on %s",
				domain.ErrData, v.TotalValue, v.Date.Format("2006-01-02"))
		}
		series[i] = v.TotalValue
	}

	totalReturn := series[len(series)-1]/series[0] - 1
	numReturns := len(series) - 1
	annualized := math.Pow(1+totalReturn, TradingDaysPerYear/float64(numReturns)) - 1

	returns := make([]float64, numReturns)
	for i := 1; i < len(series); i++ {
		returns[i-1] = series[i]/series[i-1] - 1
	}
	volatility := computeStddev(returns) * math.Sqrt(TradingDaysPerYear)

	rf, _ := riskFreeRate.Float64()
	sharpe := 0.0
	if volatility > 0 {
		sharpe = (annualized - rf) / volatility
	}

	return &domain.PerformanceMetrics{
		TotalReturn:      decimal.NewFromFloat(totalReturn).Round(metricPlaces),
		AnnualizedReturn: decimal.NewFromFloat(annualized).Round(metricPlaces),
		Volatility:       decimal.NewFromFloat(volatility).Round(metricPlaces),
		MaxDrawdown:      decimal.NewFromFloat(computeMaxDrawdown(series)).Round(metricPlaces),
		SharpeRatio:      decimal.NewFromFloat(sharpe).Round(sharpePlaces),
		NumTrades:        numTrades,
		StartDate:        values[0].Date,
		EndDate:          values[len(values)-1].Date,
		StartValue:       decimal.NewFromFloat(series[0]),
		EndValue:         decimal.NewFromFloat(series[len(series)-1]),
	}, nil
}

// computeMaxDrawdown returns the largest peak-to-trough decline as a
// non-positive fraction. Zero for a monotonically rising series.
// Values must be in chronological order.
func computeMaxDrawdown(series []float64) float64 {
	peak := series[0]
	maxDrawdown := 0.0
	for _, v := range series {
		if v > peak {
			peak = v
		}
		if drawdown := (v - peak) / peak; drawdown < maxDrawdown {
			maxDrawdown = drawdown
		}
	}
	return maxDrawdown
}

// computeStddev calculates sample standard deviation (n-1 denominator).
func computeStddev(values []float64) float64 {
	n := len(values)
	if n < 2 {
		return 0 // Need at least 2 samples for sample stddev
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

// ValueSeries converts daily portfolio states to persistable value points.
func ValueSeries(runID string, states []*domain.PortfolioState) []domain.PortfolioValuePoint {
	out := make([]domain.PortfolioValuePoint, len(states))
	for i, s := range states {
		total, _ := s.TotalValue().Float64()
		cash, _ := s.CashBalance.Float64()
		out[i] = domain.PortfolioValuePoint{
			RunID:       runID,
			Date:        s.Timestamp,
			TotalValue:  total,
			CashBalance: cash,
		}
	}
	return out
}
