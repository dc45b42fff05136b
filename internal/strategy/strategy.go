package strategy

import (
	"context"
	"time"

	"portfolio-backtest-lab/internal/domain"
	"portfolio-backtest-lab/internal/pricing"
)

// Calculator produces target allocation weights for a calculation date.
// Implementations are stateless: the previously calculated weights are
// passed in by the caller rather than carried internally, so the same
// calculator value is safe across parallel runs.
type Calculator interface {
	// CalculateWeights computes target weights as of a date, seeing only
	// price data strictly before it. prev is the last successfully
	// calculated weights for this run, nil if none exist yet.
	CalculateWeights(ctx context.Context, asOf time.Time, table *pricing.Table, prev *domain.CalculatedWeights) (*domain.CalculatedWeights, error)

	// ID returns the strategy identifier (includes parameters).
	ID() string

	// Assets returns the risky-asset universe of the strategy.
	Assets() []string
}

// fallback returns a copy of prev stamped for asOf with the
// used-previous-weights flag set. ok is false when prev is nil.
func fallback(prev *domain.CalculatedWeights, asOf time.Time) (*domain.CalculatedWeights, bool) {
	if prev == nil {
		return nil, false
	}
	cw := prev.Clone()
	cw.CalculationDate = asOf
	cw.UsedPreviousWeights = true
	return cw, true
}
