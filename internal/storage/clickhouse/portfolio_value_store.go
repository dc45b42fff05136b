package clickhouse

import (
	"context"
	"fmt"
	"time"

	"portfolio-backtest-lab/internal/domain"
	"portfolio-backtest-lab/internal/storage"
)

// PortfolioValueStore implements storage.PortfolioValueStore using ClickHouse.
type PortfolioValueStore struct {
	conn *Conn
}

// NewPortfolioValueStore creates a new PortfolioValueStore.
func NewPortfolioValueStore(conn *Conn) *PortfolioValueStore {
	return &PortfolioValueStore{conn: conn}
}

// Compile-time interface check.
var _ storage.PortfolioValueStore = (*PortfolioValueStore)(nil)

// InsertBulk adds the value series of a run. Fails entire batch on duplicate (run_id, date).
func (s *PortfolioValueStore) InsertBulk(ctx context.Context, points []domain.PortfolioValuePoint) error {
	if len(points) == 0 {
		return nil
	}
	for i := range points {
		if points[i].RunID == "" {
			return storage.ErrInvalidInput
		}
	}

	// Check for intra-batch duplicates
	type key struct {
		runID string
		date  time.Time
	}
	seen := make(map[key]struct{})
	for i := range points {
		k := key{points[i].RunID, points[i].Date}
		if _, exists := seen[k]; exists {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}
	}

	// Check for duplicates against existing DB rows. MergeTree doesn't
	// enforce uniqueness at insert time, so it has to happen here.
	for i := range points {
		exists, err := s.exists(ctx, points[i].RunID, points[i].Date)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO portfolio_values (run_id, date, total_value, cash_balance)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for i := range points {
		p := &points[i]
		if err := batch.Append(p.RunID, p.Date, p.TotalValue, p.CashBalance); err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetByRunID retrieves a run's full series, ordered by date ASC.
func (s *PortfolioValueStore) GetByRunID(ctx context.Context, runID string) ([]domain.PortfolioValuePoint, error) {
	query := `
		SELECT run_id, date, total_value, cash_balance
		FROM portfolio_values
		WHERE run_id = ?
		ORDER BY date ASC
	`

	rows, err := s.conn.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("query by run id: %w", err)
	}
	defer rows.Close()

	return scanPortfolioValues(rows)
}

// GetByRunIDRange retrieves a run's series within [start, end], ordered by date ASC.
func (s *PortfolioValueStore) GetByRunIDRange(ctx context.Context, runID string, start, end time.Time) ([]domain.PortfolioValuePoint, error) {
	query := `
		SELECT run_id, date, total_value, cash_balance
		FROM portfolio_values
		WHERE run_id = ? AND date >= ? AND date <= ?
		ORDER BY date ASC
	`

	rows, err := s.conn.Query(ctx, query, runID, start, end)
	if err != nil {
		return nil, fmt.Errorf("query by date range: %w", err)
	}
	defer rows.Close()

	return scanPortfolioValues(rows)
}

// exists checks if a point with the given key exists.
func (s *PortfolioValueStore) exists(ctx context.Context, runID string, date time.Time) (bool, error) {
	query := `
		SELECT count(*) FROM portfolio_values
		WHERE run_id = ? AND date = ?
	`

	var count uint64
	err := s.conn.QueryRow(ctx, query, runID, date).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Rows interface for scanning
type chRows interface {
	Next() bool
	Scan(dest ...interface{}) error
	Err() error
}

// scanPortfolioValues scans multiple rows into a slice.
func scanPortfolioValues(rows chRows) ([]domain.PortfolioValuePoint, error) {
	var points []domain.PortfolioValuePoint

	for rows.Next() {
		var p domain.PortfolioValuePoint
		err := rows.Scan(&p.RunID, &p.Date, &p.TotalValue, &p.CashBalance)
		if err != nil {
			return nil, fmt.Errorf("scan portfolio value row: %w", err)
		}
		// Date columns come back at midnight UTC regardless of what was
		// inserted, so normalize on the way out.
		p.Date = p.Date.UTC()
		points = append(points, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate portfolio value rows: %w", err)
	}

	return points, nil
}
