package data

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/shopspring/decimal"

	"portfolio-backtest-lab/internal/domain"
	"portfolio-backtest-lab/internal/fx"
	"portfolio-backtest-lab/internal/pricing"
)

const csvDateLayout = "2006-01-02"

// CSVPriceProvider reads price history from a CSV file with a header and
// rows of date,symbol,price,currency.
type CSVPriceProvider struct {
	Path string
}

// Prices loads and validates the file. Rows outside the requested symbols
// are skipped; the date range is not filtered so lookback history before
// start is preserved.
func (p *CSVPriceProvider) Prices(_ context.Context, symbols []string, _, _ time.Time) (*pricing.Table, error) {
	f, err := os.Open(p.Path)
	if err != nil {
		return nil, fmt.Errorf("open price file: %w", err)
	}
	defer f.Close()

	wanted := make(map[string]struct{}, len(symbols))
	for _, s := range symbols {
		wanted[s] = struct{}{}
	}

	var points []pricing.Point
	err = readRows(f, 4, func(line int, rec []string) error {
		if _, ok := wanted[rec[1]]; len(wanted) > 0 && !ok {
			return nil
		}
		date, err := time.ParseInLocation(csvDateLayout, rec[0], time.UTC)
		if err != nil {
			return fmt.Errorf("%w: %s line %d: bad date %q", domain.ErrData, p.Path, line, rec[0])
		}
		price, err := decimal.NewFromString(rec[2])
		if err != nil {
			return fmt.Errorf("%w: %s line %d: bad price %q", domain.ErrData, p.Path, line, rec[2])
		}
		points = append(points, pricing.Point{
			Date:     date,
			Symbol:   rec[1],
			Price:    price,
			Currency: rec[3],
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return pricing.NewTable(points)
}

// CSVRateProvider reads exchange rates from a CSV file with a header and
// rows of date,from,to,rate.
type CSVRateProvider struct {
	Path string
}

// Rates loads and validates the file.
func (p *CSVRateProvider) Rates(_ context.Context, _, _ time.Time) (*fx.Converter, error) {
	f, err := os.Open(p.Path)
	if err != nil {
		return nil, fmt.Errorf("open rate file: %w", err)
	}
	defer f.Close()

	var rates []fx.Rate
	err = readRows(f, 4, func(line int, rec []string) error {
		date, err := time.ParseInLocation(csvDateLayout, rec[0], time.UTC)
		if err != nil {
			return fmt.Errorf("%w: %s line %d: bad date %q", domain.ErrCurrency, p.Path, line, rec[0])
		}
		rate, err := decimal.NewFromString(rec[3])
		if err != nil {
			return fmt.Errorf("%w: %s line %d: bad rate %q", domain.ErrCurrency, p.Path, line, rec[3])
		}
		rates = append(rates, fx.Rate{Date: date, From: rec[1], To: rec[2], Rate: rate})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return fx.NewConverter(rates)
}

// readRows iterates CSV records after the header, enforcing a field count.
func readRows(r io.Reader, fields int, fn func(line int, rec []string) error) error {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = fields

	line := 0
	for {
		rec, err := reader.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("%w: %v", domain.ErrData, err)
		}
		line++
		if line == 1 {
			continue // header
		}
		if err := fn(line, rec); err != nil {
			return err
		}
	}
}

var (
	_ PriceProvider = (*CSVPriceProvider)(nil)
	_ RateProvider  = (*CSVRateProvider)(nil)
)
