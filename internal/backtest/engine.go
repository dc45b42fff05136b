// Package backtest runs the day-by-day portfolio simulation: price lookup
// with bounded forward-fill, scheduled rebalancing through a weight
// calculator, delisting liquidation and performance measurement.
package backtest

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"portfolio-backtest-lab/internal/domain"
	"portfolio-backtest-lab/internal/fx"
	"portfolio-backtest-lab/internal/metrics"
	"portfolio-backtest-lab/internal/observability"
	"portfolio-backtest-lab/internal/pricing"
	"portfolio-backtest-lab/internal/rebalance"
	"portfolio-backtest-lab/internal/runid"
	"portfolio-backtest-lab/internal/strategy"
)

// State is the lifecycle state of a run.
type State string

// Run states.
const (
	StateInitializing State = "INITIALIZING"
	StateRunning      State = "RUNNING"
	StateCompleted    State = "COMPLETED"
	StateAborted      State = "ABORTED"
)

// Options configures an Engine.
type Options struct {
	Config     *domain.BacktestConfig
	Calculator strategy.Calculator
	Prices     *pricing.Table

	// FX converts prices quoted in other currencies to the base currency.
	// Optional when all price data is already in the base currency.
	FX *fx.Converter

	Logger zerolog.Logger
}

// Result is the complete output of one run.
type Result struct {
	RunID      string
	State      State
	StrategyID string

	Metrics            *domain.PerformanceMetrics
	Trades             []domain.TradeRecord
	PortfolioHistory   []domain.PortfolioValuePoint
	Warnings           []domain.Warning
	CalculationHistory []*domain.CalculatedWeights
	FinalState         *domain.PortfolioState
}

// RunSummary converts a completed result into its persistable run row.
func (r *Result) RunSummary(cfg *domain.BacktestConfig, completedAt time.Time) *domain.BacktestRun {
	run := &domain.BacktestRun{
		RunID:          r.RunID,
		StrategyID:     r.StrategyID,
		StartDate:      cfg.StartDate,
		EndDate:        cfg.EndDate,
		InitialCapital: cfg.InitialCapital,
		Frequency:      cfg.RebalanceFrequency,
		BaseCurrency:   cfg.BaseCurrency,
		NumWarnings:    len(r.Warnings),
		CompletedAt:    completedAt,
	}
	if r.Metrics != nil {
		run.Metrics = *r.Metrics
	}
	return run
}

// Engine executes a single backtest. A fresh Engine is created per run;
// Run may only be called once.
type Engine struct {
	cfg    *domain.BacktestConfig
	calc   strategy.Calculator
	prices *pricing.Table
	fx     *fx.Converter
	log    zerolog.Logger

	rebalancer *rebalance.Rebalancer
	// initial investment from all-cash carries no transaction costs
	initialRebalancer *rebalance.Rebalancer

	state     State
	runID     string
	result    *Result
	snapshots []*domain.PortfolioState
	started   time.Time
}

// New validates the options and creates an engine in INITIALIZING state.
func New(opts Options) (*Engine, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("%w: config is required", domain.ErrValidation)
	}
	if err := opts.Config.Validate(); err != nil {
		return nil, err
	}
	if opts.Calculator == nil {
		return nil, fmt.Errorf("%w: weight calculator is required", domain.ErrValidation)
	}
	if opts.Prices == nil {
		return nil, fmt.Errorf("%w: price table is required", domain.ErrValidation)
	}

	cfg := opts.Config
	runID := runid.ForRun(
		opts.Calculator.ID(),
		cfg.StartDate, cfg.EndDate,
		cfg.InitialCapital.String(),
		string(cfg.RebalanceFrequency),
		cfg.BaseCurrency,
	)

	return &Engine{
		cfg:               cfg,
		calc:              opts.Calculator,
		prices:            opts.Prices,
		fx:                opts.FX,
		log:               opts.Logger.With().Str("run_id", runID[:12]).Str("strategy", opts.Calculator.ID()).Logger(),
		rebalancer:        rebalance.New(cfg.TransactionCosts, cfg.BaseCurrency),
		initialRebalancer: rebalance.New(domain.TransactionCosts{}, cfg.BaseCurrency),
		state:             StateInitializing,
		runID:             runID,
	}, nil
}

// RunID returns the deterministic identifier of this run.
func (e *Engine) RunID() string { return e.runID }

// State returns the current lifecycle state.
func (e *Engine) State() State { return e.state }

// Run executes the simulation. On context cancellation the run ends in
// ABORTED state and the partial result is returned alongside the error.
func (e *Engine) Run(ctx context.Context) (*Result, error) {
	if e.state != StateInitializing {
		return nil, fmt.Errorf("%w: run already started (state %s)", domain.ErrValidation, e.state)
	}

	tradingDates := e.prices.TradingDates(e.cfg.StartDate, e.cfg.EndDate)
	if len(tradingDates) < 2 {
		return nil, fmt.Errorf("%w: only %d trading dates between %s and %s",
			domain.ErrInsufficientData, len(tradingDates),
			e.cfg.StartDate.Format("2006-01-02"), e.cfg.EndDate.Format("2006-01-02"))
	}
	if err := e.preflight(tradingDates[0]); err != nil {
		return nil, err
	}

	e.state = StateRunning
	e.started = time.Now()
	e.result = &Result{
		RunID:      e.runID,
		StrategyID: e.calc.ID(),
	}

	schedule := rebalance.Schedule(tradingDates, e.cfg.RebalanceFrequency)
	rebalanceOn := make(map[time.Time]struct{}, len(schedule))
	for _, d := range schedule {
		rebalanceOn[d] = struct{}{}
	}
	// The first trading date is initial construction, not a rebalance.
	// A non-never frequency whose next boundary falls past the end of the
	// period never fires; say so instead of silently buying and holding.
	if e.cfg.RebalanceFrequency != domain.FrequencyNever && len(schedule) <= 1 {
		e.warn(domain.Warning{
			Kind:    domain.WarningSkippedRebalance,
			Date:    tradingDates[0],
			Message: fmt.Sprintf("period %s..%s is shorter than rebalance frequency %q, no rebalance will occur",
				e.cfg.StartDate.Format("2006-01-02"), e.cfg.EndDate.Format("2006-01-02"), e.cfg.RebalanceFrequency),
		})
	}

	portfolio := &domain.PortfolioState{
		Timestamp:   tradingDates[0],
		CashBalance: e.cfg.InitialCapital,
		Holdings:    map[string]decimal.Decimal{},
		Prices:      map[string]decimal.Decimal{},
	}

	e.log.Info().
		Time("start", e.cfg.StartDate).
		Time("end", e.cfg.EndDate).
		Int("trading_days", len(tradingDates)).
		Int("rebalances_scheduled", len(schedule)).
		Msg("backtest started")

	var prev *domain.CalculatedWeights
	invested := false

	for i, day := range tradingDates {
		if err := ctx.Err(); err != nil {
			return e.abort(day, err)
		}

		if err := e.markPrices(portfolio, day); err != nil {
			return e.abort(day, err)
		}

		_, scheduled := rebalanceOn[day]
		if i == 0 || scheduled {
			cw, ok, err := e.calculate(ctx, day, prev)
			if err != nil {
				return e.abort(day, err)
			}
			if ok {
				prev = cw
				if err := e.applyWeights(portfolio, cw, day, &invested); err != nil {
					return e.abort(day, err)
				}
			}
		}

		portfolio.Timestamp = day
		e.snapshots = append(e.snapshots, portfolio.Clone())
	}

	e.result.PortfolioHistory = metrics.ValueSeries(e.runID, e.snapshots)
	m, err := metrics.Compute(e.result.PortfolioHistory, e.cfg.RiskFreeRate, len(e.result.Trades))
	if err != nil {
		return e.abort(tradingDates[len(tradingDates)-1], err)
	}

	e.state = StateCompleted
	e.result.State = e.state
	e.result.Metrics = m
	e.result.FinalState = portfolio.Clone()
	e.recordRun()

	e.log.Info().
		Int("trades", len(e.result.Trades)).
		Int("warnings", len(e.result.Warnings)).
		Str("total_return", m.TotalReturn.String()).
		Str("sharpe", m.SharpeRatio.String()).
		Msg("backtest completed")

	return e.result, nil
}

func (e *Engine) abort(day time.Time, err error) (*Result, error) {
	e.state = StateAborted
	e.result.State = e.state
	e.result.PortfolioHistory = metrics.ValueSeries(e.runID, e.snapshots)
	e.recordRun()
	e.log.Error().Time("day", day).Err(err).Msg("backtest aborted")
	return e.result, err
}

// preflight verifies every strategy asset exists in the price table and has
// a usable price at the first trading date. A typo'd or absent symbol fails
// here rather than being silently excluded from every calculation.
func (e *Engine) preflight(firstDay time.Time) error {
	for _, symbol := range e.calc.Assets() {
		if !e.prices.HasSymbol(symbol) {
			return fmt.Errorf("%w: strategy asset %s is missing from the price table", domain.ErrData, symbol)
		}
		if _, _, ok := e.prices.PriceAsOf(symbol, firstDay, pricing.MaxForwardFillDays); !ok {
			return fmt.Errorf("%w: strategy asset %s has no price at start date %s",
				domain.ErrData, symbol, firstDay.Format("2006-01-02"))
		}
	}
	return nil
}

func (e *Engine) recordRun() {
	observability.RecordRun(string(e.state), time.Since(e.started).Seconds(), len(e.result.Trades))
}

func (e *Engine) warn(w domain.Warning) {
	e.result.Warnings = append(e.result.Warnings, w)
	observability.RecordWarning(string(w.Kind))
	e.log.Warn().Str("kind", string(w.Kind)).Time("date", w.Date).Msg(w.Message)
}

// calculate runs the weight calculator for a rebalance date. ok is false
// when the strategy is not yet active (insufficient history and no previous
// weights); the day is skipped with a warning.
func (e *Engine) calculate(ctx context.Context, day time.Time, prev *domain.CalculatedWeights) (*domain.CalculatedWeights, bool, error) {
	cw, err := e.calc.CalculateWeights(ctx, day, e.prices, prev)
	if err != nil {
		if errors.Is(err, domain.ErrInsufficientData) {
			e.warn(domain.Warning{
				Kind:    domain.WarningStrategyNotActive,
				Date:    day,
				Message: fmt.Sprintf("strategy %s has insufficient history on %s, holding cash", e.calc.ID(), day.Format("2006-01-02")),
			})
			return nil, false, nil
		}
		return nil, false, err
	}

	if cw.UsedPreviousWeights {
		e.warn(domain.Warning{
			Kind:    domain.WarningUsedPreviousWeights,
			Date:    day,
			Message: fmt.Sprintf("strategy %s reused weights from %s", e.calc.ID(), cw.CalculationDate.Format("2006-01-02")),
		})
	}
	e.result.CalculationHistory = append(e.result.CalculationHistory, cw)
	return cw, true, nil
}

// applyWeights trades the portfolio to the calculated weights. The first
// investment out of all-cash is cost-free; later rebalances pay the
// configured transaction costs.
func (e *Engine) applyWeights(portfolio *domain.PortfolioState, cw *domain.CalculatedWeights, day time.Time, invested *bool) error {
	rb := e.rebalancer
	if !*invested {
		rb = e.initialRebalancer
	}

	trades, warnings, err := rb.Execute(portfolio, cw.Weights, day)
	if err != nil {
		return err
	}
	for _, w := range warnings {
		e.warn(w)
	}
	e.recordTrades(trades)
	if len(trades) > 0 {
		*invested = true
	}
	return nil
}

func (e *Engine) recordTrades(trades []domain.Trade) {
	for _, t := range trades {
		e.result.Trades = append(e.result.Trades, domain.TradeRecord{
			TradeID: runid.ForTrade(e.runID, t.Symbol, t.Timestamp, t.Quantity.String()),
			RunID:   e.runID,
			Trade:   t,
		})
	}
}

// markPrices refreshes portfolio prices for the day, converting to the base
// currency. Missing observations are forward-filled up to the bound. For a
// held asset past the bound: if data resumes later the gap is fatal (a stale
// mark would flow into snapshots and trades); if it never resumes the asset
// is force-liquidated at its last known price.
func (e *Engine) markPrices(portfolio *domain.PortfolioState, day time.Time) error {
	for _, symbol := range e.priceUniverse(portfolio) {
		point, _, ok := e.prices.PriceAsOf(symbol, day, pricing.MaxForwardFillDays)
		if ok {
			price, err := e.toBase(point.Price, point.Currency, day)
			if err != nil {
				return err
			}
			portfolio.Prices[symbol] = price
			continue
		}

		held := portfolio.Holdings[symbol].IsPositive()
		if !held {
			continue
		}
		if e.prices.HasDataOnOrAfter(symbol, day) {
			return fmt.Errorf("%w: held asset %s has a price gap beyond %d days at %s",
				domain.ErrData, symbol, pricing.MaxForwardFillDays, day.Format("2006-01-02"))
		}

		last, found := e.prices.LastKnown(symbol, day)
		if !found {
			return fmt.Errorf("%w: held asset %s has no price history at all", domain.ErrData, symbol)
		}
		price, err := e.toBase(last.Price, last.Currency, day)
		if err != nil {
			return err
		}
		portfolio.Prices[symbol] = price
		trade, err := e.rebalancer.Liquidate(portfolio, symbol, price, day)
		if err != nil {
			return err
		}
		e.recordTrades([]domain.Trade{trade})
		e.warn(domain.Warning{
			Kind: domain.WarningDelisted,
			Date: day,
			Message: fmt.Sprintf("%s delisted, liquidated %s shares at last known price %s from %s",
				symbol, trade.Quantity.Neg(), last.Price, last.Date.Format("2006-01-02")),
		})
	}
	return nil
}

// priceUniverse is the sorted union of strategy assets and current holdings.
func (e *Engine) priceUniverse(portfolio *domain.PortfolioState) []string {
	seen := make(map[string]struct{})
	for _, a := range e.calc.Assets() {
		seen[a] = struct{}{}
	}
	for symbol := range portfolio.Holdings {
		seen[symbol] = struct{}{}
	}
	symbols := make([]string, 0, len(seen))
	for s := range seen {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)
	return symbols
}

func (e *Engine) toBase(price decimal.Decimal, currency string, day time.Time) (decimal.Decimal, error) {
	if currency == e.cfg.BaseCurrency {
		return price, nil
	}
	if e.fx == nil {
		return decimal.Zero, fmt.Errorf("%w: price in %s but no converter configured for base %s",
			domain.ErrCurrency, currency, e.cfg.BaseCurrency)
	}
	return e.fx.Convert(price, currency, e.cfg.BaseCurrency, day)
}
