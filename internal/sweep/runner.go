// Package sweep runs many independent backtests over a grid of strategy
// and cost parameters, in parallel, with deterministic result ordering.
package sweep

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"portfolio-backtest-lab/internal/backtest"
	"portfolio-backtest-lab/internal/domain"
	"portfolio-backtest-lab/internal/fx"
	"portfolio-backtest-lab/internal/observability"
	"portfolio-backtest-lab/internal/pricing"
	"portfolio-backtest-lab/internal/strategy"
)

// Spec is one backtest in the sweep.
type Spec struct {
	Name     string
	Config   *domain.BacktestConfig
	Strategy *domain.StrategyConfig
}

// Outcome pairs a spec with its result. Exactly one of Result and Err is
// meaningful; specs never dispatched due to cancellation carry the context
// error.
type Outcome struct {
	Name   string
	Result *backtest.Result
	Err    error
}

// Runner executes sweep specs on a bounded worker pool. Runs are fully
// independent: they share only the immutable price table and converter.
type Runner struct {
	Prices  *pricing.Table
	FX      *fx.Converter
	Workers int
	Logger  zerolog.Logger
}

// Run executes all specs and returns outcomes in spec order. On context
// cancellation, in-flight runs finish (or abort on their own) and no
// further specs are dispatched.
func (r *Runner) Run(ctx context.Context, specs []Spec) []Outcome {
	workers := r.Workers
	if workers < 1 {
		workers = 1
	}
	if workers > len(specs) {
		workers = len(specs)
	}

	outcomes := make([]Outcome, len(specs))
	jobs := make(chan int)

	observability.SetSweepActiveWorkers(workers)
	defer observability.SetSweepActiveWorkers(0)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				outcomes[i] = r.runOne(ctx, specs[i])
			}
		}()
	}

	dispatched := 0
dispatch:
	for i := range specs {
		select {
		case jobs <- i:
			dispatched++
		case <-ctx.Done():
			break dispatch
		}
	}
	close(jobs)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		for i := dispatched; i < len(specs); i++ {
			outcomes[i] = Outcome{Name: specs[i].Name, Err: err}
		}
	}

	failed := 0
	for _, o := range outcomes {
		if o.Err != nil {
			failed++
		}
	}
	r.Logger.Info().
		Int("specs", len(specs)).
		Int("workers", workers).
		Int("failed", failed).
		Msg("sweep finished")

	return outcomes
}

func (r *Runner) runOne(ctx context.Context, spec Spec) Outcome {
	outcome := r.execute(ctx, spec)
	if outcome.Err != nil {
		observability.RecordSweepSpec("error")
	} else {
		observability.RecordSweepSpec("ok")
	}
	return outcome
}

func (r *Runner) execute(ctx context.Context, spec Spec) Outcome {
	calc, err := strategy.FromConfig(spec.Strategy)
	if err != nil {
		return Outcome{Name: spec.Name, Err: fmt.Errorf("spec %s: %w", spec.Name, err)}
	}

	engine, err := backtest.New(backtest.Options{
		Config:     spec.Config,
		Calculator: calc,
		Prices:     r.Prices,
		FX:         r.FX,
		Logger:     r.Logger.With().Str("spec", spec.Name).Logger(),
	})
	if err != nil {
		return Outcome{Name: spec.Name, Err: fmt.Errorf("spec %s: %w", spec.Name, err)}
	}

	result, err := engine.Run(ctx)
	if err != nil {
		return Outcome{Name: spec.Name, Result: result, Err: fmt.Errorf("spec %s: %w", spec.Name, err)}
	}
	return Outcome{Name: spec.Name, Result: result}
}
