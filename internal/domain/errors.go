package domain

import "errors"

// Error kinds. Components wrap these with fmt.Errorf("...: %w", ...) so
// callers can classify failures with errors.Is regardless of which package
// produced them.
var (
	// ErrValidation indicates bad configuration or parameters.
	// Raised before the simulation starts, never mid-run.
	ErrValidation = errors.New("validation error")

	// ErrData indicates a fatal price data problem: a gap beyond the
	// forward-fill tolerance, a zero or negative price, or an asset missing
	// from the price table. Aborts the run.
	ErrData = errors.New("data error")

	// ErrCurrency indicates no exchange rate could be resolved within the
	// forward-fill tolerance. Aborts the run.
	ErrCurrency = errors.New("currency error")

	// ErrInsufficientData indicates a dynamic strategy lacks lookback
	// history. Recoverable: calculators fall back to their previous weights,
	// the engine delays strategy activation when no previous weights exist.
	ErrInsufficientData = errors.New("insufficient data")
)
