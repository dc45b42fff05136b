// Package fx converts prices and cash amounts between currencies using a
// historical rate table.
package fx

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"portfolio-backtest-lab/internal/domain"
)

// MaxForwardFillDays bounds rate forward-fill, mirroring price forward-fill.
const MaxForwardFillDays = 5

// Rate is one exchange rate observation: 1 unit of From = Rate units of To.
type Rate struct {
	Date time.Time
	From string
	To   string
	Rate decimal.Decimal
}

type pair struct {
	from, to string
}

// Converter resolves currency conversions against a validated rate table.
type Converter struct {
	rates map[pair][]Rate
}

// NewConverter validates rate rows and builds a converter. Rejects
// non-positive rates and duplicate (date, from, to) rows.
func NewConverter(rates []Rate) (*Converter, error) {
	byPair := make(map[pair][]Rate)
	for _, r := range rates {
		if len(r.From) != 3 || len(r.To) != 3 {
			return nil, fmt.Errorf("%w: invalid currency pair %q/%q", domain.ErrCurrency, r.From, r.To)
		}
		if !r.Rate.IsPositive() {
			return nil, fmt.Errorf("%w: non-positive rate %s for %s/%s on %s",
				domain.ErrCurrency, r.Rate, r.From, r.To, r.Date.Format("2006-01-02"))
		}
		k := pair{r.From, r.To}
		byPair[k] = append(byPair[k], r)
	}

	for k, series := range byPair {
		sort.Slice(series, func(i, j int) bool { return series[i].Date.Before(series[j].Date) })
		for i := 1; i < len(series); i++ {
			if series[i].Date.Equal(series[i-1].Date) {
				return nil, fmt.Errorf("%w: duplicate rate for %s/%s on %s",
					domain.ErrCurrency, k.from, k.to, series[i].Date.Format("2006-01-02"))
			}
		}
		byPair[k] = series
	}

	return &Converter{rates: byPair}, nil
}

// Convert converts amount from one currency to another on a date. Identity
// when the currencies match. The direct pair multiplies; when only the
// inverse pair is quoted, the amount is divided by its rate. Rates are
// forward-filled up to MaxForwardFillDays.
func (c *Converter) Convert(amount decimal.Decimal, from, to string, on time.Time) (decimal.Decimal, error) {
	if from == to {
		return amount, nil
	}

	if rate, ok := c.rateAsOf(pair{from, to}, on); ok {
		return amount.Mul(rate), nil
	}
	if rate, ok := c.rateAsOf(pair{to, from}, on); ok {
		return amount.Div(rate), nil
	}

	return decimal.Zero, fmt.Errorf("%w: no %s/%s rate resolvable on %s (looked back %d days)",
		domain.ErrCurrency, from, to, on.Format("2006-01-02"), MaxForwardFillDays)
}

func (c *Converter) rateAsOf(k pair, on time.Time) (decimal.Decimal, bool) {
	series := c.rates[k]
	i := sort.Search(len(series), func(i int) bool { return series[i].Date.After(on) })
	if i == 0 {
		return decimal.Zero, false
	}
	last := series[i-1]
	if int(on.Sub(last.Date).Hours()/24) > MaxForwardFillDays {
		return decimal.Zero, false
	}
	return last.Rate, true
}
