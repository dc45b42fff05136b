package pricing

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"portfolio-backtest-lab/internal/domain"
)

// Window is an extracted lookback slice: for each asset, the last Lookback
// observations strictly before the calculation date. Transient, created per
// calculation and discarded.
type Window struct {
	StartDate time.Time
	EndDate   time.Time
	Lookback  int

	assets []string
	prices map[string][]decimal.Decimal
}

// AssetPrices returns the price series for symbol, oldest first.
// Nil if the symbol is not in the window.
func (w *Window) AssetPrices(symbol string) []decimal.Decimal {
	return w.prices[symbol]
}

// CompleteAssets returns, in the caller's asset order, the assets with no
// missing observations inside the window.
func (w *Window) CompleteAssets() []string {
	complete := make([]string, 0, len(w.assets))
	for _, a := range w.assets {
		if len(w.prices[a]) >= w.Lookback {
			complete = append(complete, a)
		}
	}
	return complete
}

// Window extracts the last lookbackDays observations strictly before asOf
// for every requested asset. Fails if any asset has fewer observations.
func (t *Table) Window(asOf time.Time, lookbackDays int, assets []string) (*Window, error) {
	w := t.collectWindow(asOf, lookbackDays, assets)
	for _, a := range assets {
		if got := len(w.prices[a]); got < lookbackDays {
			return nil, fmt.Errorf("%w: %s: only %d days available before %s, need %d",
				domain.ErrInsufficientData, a, got, asOf.Format("2006-01-02"), lookbackDays)
		}
	}
	return w, nil
}

// WindowWithFallback extracts the window for the assets that have complete
// data, reporting the rest as excluded. Fails only when no asset is complete.
func (t *Table) WindowWithFallback(asOf time.Time, lookbackDays int, assets []string) (*Window, []string, error) {
	w := t.collectWindow(asOf, lookbackDays, assets)
	complete := w.CompleteAssets()
	if len(complete) == 0 {
		return nil, nil, fmt.Errorf("%w: no assets have sufficient data for %d-day lookback before %s",
			domain.ErrInsufficientData, lookbackDays, asOf.Format("2006-01-02"))
	}

	var excluded []string
	completeSet := make(map[string]struct{}, len(complete))
	for _, a := range complete {
		completeSet[a] = struct{}{}
	}
	for _, a := range assets {
		if _, ok := completeSet[a]; !ok {
			excluded = append(excluded, a)
		}
	}

	w.assets = complete
	return w, excluded, nil
}

func (t *Table) collectWindow(asOf time.Time, lookbackDays int, assets []string) *Window {
	w := &Window{
		Lookback: lookbackDays,
		assets:   append([]string(nil), assets...),
		prices:   make(map[string][]decimal.Decimal, len(assets)),
	}

	for _, a := range assets {
		obs := t.bySymbol[a]
		// Observations strictly before asOf, last lookbackDays of them.
		end := sort.Search(len(obs), func(i int) bool { return !obs[i].Date.Before(asOf) })
		start := end - lookbackDays
		if start < 0 {
			start = 0
		}
		slice := obs[start:end]

		series := make([]decimal.Decimal, len(slice))
		for i, p := range slice {
			series[i] = p.Price
		}
		w.prices[a] = series

		if len(slice) > 0 {
			first, last := slice[0].Date, slice[len(slice)-1].Date
			if w.StartDate.IsZero() || first.Before(w.StartDate) {
				w.StartDate = first
			}
			if last.After(w.EndDate) {
				w.EndDate = last
			}
		}
	}
	return w
}
