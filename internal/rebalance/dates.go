// Package rebalance generates rebalance schedules and executes the trades
// that move a portfolio to target weights under a transaction cost model.
package rebalance

import (
	"fmt"
	"time"

	"portfolio-backtest-lab/internal/domain"
)

// Schedule returns the trading dates on which a rebalance fires: the first
// trading date of each calendar period at the given frequency. The first
// trading date overall always marks a period start. Frequency "never"
// yields an empty schedule.
func Schedule(tradingDates []time.Time, freq domain.RebalanceFrequency) []time.Time {
	if freq == domain.FrequencyNever || len(tradingDates) == 0 {
		return nil
	}
	if freq == domain.FrequencyDaily {
		out := make([]time.Time, len(tradingDates))
		copy(out, tradingDates)
		return out
	}

	var out []time.Time
	prevKey := ""
	for _, d := range tradingDates {
		key := periodKey(d, freq)
		if key != prevKey {
			out = append(out, d)
			prevKey = key
		}
	}
	return out
}

func periodKey(d time.Time, freq domain.RebalanceFrequency) string {
	switch freq {
	case domain.FrequencyWeekly:
		year, week := d.ISOWeek()
		return fmt.Sprintf("%d-W%02d", year, week)
	case domain.FrequencyMonthly:
		return d.Format("2006-01")
	case domain.FrequencyQuarterly:
		return fmt.Sprintf("%d-Q%d", d.Year(), (int(d.Month())-1)/3+1)
	case domain.FrequencyAnnually:
		return d.Format("2006")
	default:
		return d.Format("2006-01-02")
	}
}
