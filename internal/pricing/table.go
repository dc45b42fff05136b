// Package pricing provides the validated historical price table and the
// lookback window extraction used by dynamic strategies.
package pricing

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"portfolio-backtest-lab/internal/domain"
)

// MaxForwardFillDays bounds how many calendar days a missing observation may
// be filled from the most recent known value.
const MaxForwardFillDays = 5

// Point is one price observation.
type Point struct {
	Date     time.Time
	Symbol   string
	Price    decimal.Decimal
	Currency string
}

// Table is an immutable, validated price table indexed by symbol.
// Observations per symbol are sorted by date.
type Table struct {
	bySymbol map[string][]Point
	symbols  []string
}

// NewTable validates points and builds a table. It rejects non-positive
// prices, missing currency codes and duplicate (date, symbol) rows.
func NewTable(points []Point) (*Table, error) {
	bySymbol := make(map[string][]Point)
	for _, p := range points {
		if p.Symbol == "" {
			return nil, fmt.Errorf("%w: point with empty symbol", domain.ErrData)
		}
		if !p.Price.IsPositive() {
			return nil, fmt.Errorf("%w: non-positive price %s for %s on %s",
				domain.ErrData, p.Price, p.Symbol, p.Date.Format("2006-01-02"))
		}
		if len(p.Currency) != 3 {
			return nil, fmt.Errorf("%w: %s on %s has invalid currency %q",
				domain.ErrData, p.Symbol, p.Date.Format("2006-01-02"), p.Currency)
		}
		bySymbol[p.Symbol] = append(bySymbol[p.Symbol], p)
	}

	symbols := make([]string, 0, len(bySymbol))
	for symbol, obs := range bySymbol {
		sort.Slice(obs, func(i, j int) bool { return obs[i].Date.Before(obs[j].Date) })
		for i := 1; i < len(obs); i++ {
			if obs[i].Date.Equal(obs[i-1].Date) {
				return nil, fmt.Errorf("%w: duplicate observation for %s on %s",
					domain.ErrData, symbol, obs[i].Date.Format("2006-01-02"))
			}
		}
		bySymbol[symbol] = obs
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)

	return &Table{bySymbol: bySymbol, symbols: symbols}, nil
}

// Symbols returns all symbols in the table, sorted.
func (t *Table) Symbols() []string {
	out := make([]string, len(t.symbols))
	copy(out, t.symbols)
	return out
}

// HasSymbol reports whether the table contains any observation for symbol.
func (t *Table) HasSymbol(symbol string) bool {
	_, ok := t.bySymbol[symbol]
	return ok
}

// TradingDates returns the sorted union of observation dates within
// [start, end] inclusive.
func (t *Table) TradingDates(start, end time.Time) []time.Time {
	seen := make(map[time.Time]struct{})
	for _, obs := range t.bySymbol {
		for _, p := range obs {
			if p.Date.Before(start) || p.Date.After(end) {
				continue
			}
			seen[p.Date] = struct{}{}
		}
	}
	dates := make([]time.Time, 0, len(seen))
	for d := range seen {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates
}

// PriceAt returns the exact observation for a symbol on a date.
func (t *Table) PriceAt(symbol string, date time.Time) (Point, bool) {
	obs := t.bySymbol[symbol]
	i := sort.Search(len(obs), func(i int) bool { return !obs[i].Date.Before(date) })
	if i < len(obs) && obs[i].Date.Equal(date) {
		return obs[i], true
	}
	return Point{}, false
}

// PriceAsOf returns the most recent observation on or before date, looking
// back at most maxBackDays calendar days. daysBack reports how far the fill
// reached (0 = exact date).
func (t *Table) PriceAsOf(symbol string, date time.Time, maxBackDays int) (p Point, daysBack int, ok bool) {
	obs := t.bySymbol[symbol]
	i := sort.Search(len(obs), func(i int) bool { return obs[i].Date.After(date) })
	if i == 0 {
		return Point{}, 0, false
	}
	last := obs[i-1]
	back := int(date.Sub(last.Date).Hours() / 24)
	if back > maxBackDays {
		return Point{}, 0, false
	}
	return last, back, true
}

// LastKnown returns the most recent observation on or before date with no
// gap bound. Used for forced liquidation of delisted assets.
func (t *Table) LastKnown(symbol string, date time.Time) (Point, bool) {
	obs := t.bySymbol[symbol]
	i := sort.Search(len(obs), func(i int) bool { return obs[i].Date.After(date) })
	if i == 0 {
		return Point{}, false
	}
	return obs[i-1], true
}

// HasDataOnOrAfter reports whether any observation exists at or after date.
// False means the asset is delisted as of that date.
func (t *Table) HasDataOnOrAfter(symbol string, date time.Time) bool {
	obs := t.bySymbol[symbol]
	i := sort.Search(len(obs), func(i int) bool { return !obs[i].Date.Before(date) })
	return i < len(obs)
}
