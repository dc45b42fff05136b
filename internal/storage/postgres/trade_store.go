package postgres

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"portfolio-backtest-lab/internal/domain"
	"portfolio-backtest-lab/internal/storage"
)

// TradeStore implements storage.TradeStore using PostgreSQL.
type TradeStore struct {
	pool *Pool
}

// NewTradeStore creates a new TradeStore.
func NewTradeStore(pool *Pool) *TradeStore {
	return &TradeStore{pool: pool}
}

var _ storage.TradeStore = (*TradeStore)(nil)

const insertTradeQuery = `
	INSERT INTO trade_records (
		trade_id, run_id, executed_at, symbol,
		quantity, price, currency, transaction_cost
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
`

const selectTradeColumns = `
	trade_id, run_id, executed_at, symbol,
	quantity, price, currency, transaction_cost
`

// Insert adds a single trade. Returns ErrDuplicateKey if trade_id exists.
func (s *TradeStore) Insert(ctx context.Context, t *domain.TradeRecord) error {
	if t == nil || t.TradeID == "" || t.RunID == "" {
		return storage.ErrInvalidInput
	}

	_, err := s.pool.Exec(ctx, insertTradeQuery,
		t.TradeID, t.RunID, t.Timestamp, t.Symbol,
		t.Quantity.String(), t.Price.String(), t.Currency, t.TransactionCost.String(),
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert trade: %w", err)
	}
	return nil
}

// InsertBulk adds multiple trades atomically. The whole batch is rolled back
// on any duplicate or invalid record.
func (s *TradeStore) InsertBulk(ctx context.Context, trades []*domain.TradeRecord) error {
	if len(trades) == 0 {
		return nil
	}
	for _, t := range trades {
		if t == nil || t.TradeID == "" || t.RunID == "" {
			return storage.ErrInvalidInput
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	for _, t := range trades {
		_, err := tx.Exec(ctx, insertTradeQuery,
			t.TradeID, t.RunID, t.Timestamp, t.Symbol,
			t.Quantity.String(), t.Price.String(), t.Currency, t.TransactionCost.String(),
		)
		if err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert trade %s: %w", t.TradeID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// GetByRunID retrieves all trades of a run, ordered by timestamp ASC, symbol ASC.
func (s *TradeStore) GetByRunID(ctx context.Context, runID string) ([]*domain.TradeRecord, error) {
	query := `SELECT ` + selectTradeColumns + `
		FROM trade_records
		WHERE run_id = $1
		ORDER BY executed_at ASC, symbol ASC`

	rows, err := s.pool.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("query trades by run: %w", err)
	}
	defer rows.Close()

	return collectTrades(rows)
}

// GetBySymbol retrieves a run's trades in one symbol, ordered by timestamp ASC.
func (s *TradeStore) GetBySymbol(ctx context.Context, runID, symbol string) ([]*domain.TradeRecord, error) {
	query := `SELECT ` + selectTradeColumns + `
		FROM trade_records
		WHERE run_id = $1 AND symbol = $2
		ORDER BY executed_at ASC`

	rows, err := s.pool.Query(ctx, query, runID, symbol)
	if err != nil {
		return nil, fmt.Errorf("query trades by symbol: %w", err)
	}
	defer rows.Close()

	return collectTrades(rows)
}

func scanTrade(row rowScanner) (*domain.TradeRecord, error) {
	var (
		t                     domain.TradeRecord
		quantity, price, cost string
	)
	err := row.Scan(
		&t.TradeID, &t.RunID, &t.Timestamp, &t.Symbol,
		&quantity, &price, &t.Currency, &cost,
	)
	if err != nil {
		return nil, err
	}

	if t.Quantity, err = decimal.NewFromString(quantity); err != nil {
		return nil, fmt.Errorf("parse quantity: %w", err)
	}
	if t.Price, err = decimal.NewFromString(price); err != nil {
		return nil, fmt.Errorf("parse price: %w", err)
	}
	if t.TransactionCost, err = decimal.NewFromString(cost); err != nil {
		return nil, fmt.Errorf("parse transaction cost: %w", err)
	}
	return &t, nil
}

func collectTrades(rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}) ([]*domain.TradeRecord, error) {
	var result []*domain.TradeRecord
	for rows.Next() {
		t, err := scanTrade(rows)
		if err != nil {
			return nil, fmt.Errorf("scan trade: %w", err)
		}
		result = append(result, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trades: %w", err)
	}
	return result, nil
}
