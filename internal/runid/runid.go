// Package runid computes deterministic identifiers for runs and trades so
// re-running the same backtest yields the same IDs.
package runid

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// ForRun computes a deterministic run_id using SHA256.
// Formula: SHA256(strategy_id|start_date|end_date|initial_capital|frequency|base_currency)
// Returns hex-encoded hash (64 characters).
func ForRun(strategyID string, startDate, endDate time.Time, initialCapital, frequency, baseCurrency string) string {
	data := fmt.Sprintf("%s|%s|%s|%s|%s|%s",
		strategyID,
		startDate.Format("2006-01-02"),
		endDate.Format("2006-01-02"),
		initialCapital,
		frequency,
		baseCurrency,
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}

// ForTrade computes a deterministic trade_id using SHA256.
// Formula: SHA256(run_id|symbol|date|quantity)
// Returns hex-encoded hash (64 characters).
func ForTrade(runID, symbol string, date time.Time, quantity string) string {
	data := fmt.Sprintf("%s|%s|%s|%s",
		runID,
		symbol,
		date.Format("2006-01-02"),
		quantity,
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
