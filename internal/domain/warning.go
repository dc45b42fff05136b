package domain

import "time"

// WarningKind classifies non-fatal events recorded during a run.
type WarningKind string

// WarningKind constants.
const (
	// WarningPartialRebalance: available cash could not fund the full
	// rebalance; the largest affordable fraction was executed.
	WarningPartialRebalance WarningKind = "partial_rebalance"

	// WarningSkippedRebalance: the backtest period is shorter than the
	// rebalance frequency; no rebalance ever fires. Emitted once.
	WarningSkippedRebalance WarningKind = "skipped_rebalance"

	// WarningDelisted: price data for an asset disappeared mid-run; the
	// position was force-liquidated at the last known price.
	WarningDelisted WarningKind = "delisted"

	// WarningStrategyNotActive: a dynamic strategy had neither enough
	// history nor previous weights on a rebalance date; the rebalance was
	// skipped until data accumulates.
	WarningStrategyNotActive WarningKind = "strategy_not_active"

	// WarningUsedPreviousWeights: a dynamic strategy fell back to its last
	// successfully calculated weights.
	WarningUsedPreviousWeights WarningKind = "used_previous_weights"
)

// Warning is a non-fatal event. Warnings are part of the returned result,
// not just log lines, so tests can assert on them.
type Warning struct {
	Kind    WarningKind
	Date    time.Time
	Message string
}
