package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"portfolio-backtest-lab/internal/backtest"
	"portfolio-backtest-lab/internal/data"
	"portfolio-backtest-lab/internal/domain"
	"portfolio-backtest-lab/internal/fx"
	"portfolio-backtest-lab/internal/storage"
	chstore "portfolio-backtest-lab/internal/storage/clickhouse"
	"portfolio-backtest-lab/internal/storage/memory"
	"portfolio-backtest-lab/internal/storage/migrations"
	pgstore "portfolio-backtest-lab/internal/storage/postgres"
	"portfolio-backtest-lab/internal/strategy"
)

const dateLayout = "2006-01-02"

func main() {
	// Data inputs
	pricesPath := flag.String("prices", "", "Price CSV path: date,symbol,price,currency (required)")
	ratesPath := flag.String("rates", "", "Exchange rate CSV path: date,from,to,rate")

	// Backtest parameters
	startStr := flag.String("start", "", "Backtest start date, YYYY-MM-DD (required)")
	endStr := flag.String("end", "", "Backtest end date, YYYY-MM-DD (required)")
	capital := flag.String("capital", "100000", "Initial capital in base currency")
	frequency := flag.String("frequency", "monthly", "Rebalance frequency: never, daily, weekly, monthly, quarterly, annually")
	baseCurrency := flag.String("base-currency", "USD", "Base currency (ISO 4217)")
	riskFreeRate := flag.String("risk-free-rate", "0", "Annual risk-free rate for Sharpe, e.g. 0.02")
	fixedCost := flag.String("fixed-cost", "0", "Fixed transaction cost per trade")
	pctCost := flag.String("pct-cost", "0", "Percentage transaction cost per trade, e.g. 0.001")

	// Strategy selection
	strategyType := flag.String("strategy", "", "Strategy: STATIC, MOMENTUM, RISK_PARITY, DUAL_MA (required)")
	weightsStr := flag.String("weights", "", "Static weights, e.g. SPY=0.6,AGG=0.4 (STATIC)")
	assetsStr := flag.String("assets", "", "Comma-separated asset universe (dynamic strategies)")
	lookbackDays := flag.Int("lookback-days", 90, "Lookback window in trading days (dynamic strategies)")

	// Strategy knobs
	excludeNegative := flag.Bool("exclude-negative", true, "Exclude negative momentum assets (MOMENTUM)")
	minMomentum := flag.Float64("min-momentum", 0, "Minimum momentum threshold (MOMENTUM)")
	targetVol := flag.Float64("target-vol", 0, "Target portfolio volatility, 0 disables scaling (RISK_PARITY)")
	shortWindow := flag.Int("short-window", 50, "Short moving average window (DUAL_MA)")
	longWindow := flag.Int("long-window", 200, "Long moving average window (DUAL_MA)")
	signalStrength := flag.Bool("signal-strength", false, "Weight by signal strength instead of equal split (DUAL_MA)")

	// Storage
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", "", "ClickHouse connection string")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage")
	persist := flag.Bool("persist", false, "Persist run summary, trades and value series")

	// Output
	outputJSON := flag.Bool("json", false, "Output result as JSON")
	debug := flag.Bool("debug", false, "Enable debug logging")

	flag.Parse()

	level := zerolog.InfoLevel
	if *debug {
		level = zerolog.DebugLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		Level(level).With().Timestamp().Logger()

	if *pricesPath == "" {
		logger.Fatal().Msg("--prices is required")
	}
	if *startStr == "" || *endStr == "" {
		logger.Fatal().Msg("--start and --end are required")
	}
	if *strategyType == "" {
		logger.Fatal().Msg("--strategy is required")
	}

	startDate, err := time.Parse(dateLayout, *startStr)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid --start")
	}
	endDate, err := time.Parse(dateLayout, *endStr)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid --end")
	}

	cfg := &domain.BacktestConfig{
		StartDate:      startDate,
		EndDate:        endDate,
		InitialCapital: mustDecimal(logger, "--capital", *capital),
		BaseCurrency:   strings.ToUpper(*baseCurrency),
		RiskFreeRate:   mustDecimal(logger, "--risk-free-rate", *riskFreeRate),
		TransactionCosts: domain.TransactionCosts{
			FixedPerTrade: mustDecimal(logger, "--fixed-cost", *fixedCost),
			Percentage:    mustDecimal(logger, "--pct-cost", *pctCost),
		},
	}
	cfg.RebalanceFrequency, err = domain.ParseRebalanceFrequency(*frequency)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid --frequency")
	}

	strategyCfg, err := buildStrategyConfig(
		strings.ToUpper(*strategyType), *weightsStr, *assetsStr, *lookbackDays,
		*excludeNegative, *minMomentum, *targetVol,
		*shortWindow, *longWindow, *signalStrength,
	)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid strategy parameters")
	}
	calc, err := strategy.FromConfig(strategyCfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("build strategy")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Warn().Str("signal", sig.String()).Msg("shutting down")
		cancel()
	}()

	// Load market data
	priceProvider := &data.CSVPriceProvider{Path: *pricesPath}
	prices, err := priceProvider.Prices(ctx, universe(strategyCfg), startDate, endDate)
	if err != nil {
		logger.Fatal().Err(err).Msg("load prices")
	}

	var converter *fx.Converter
	if *ratesPath != "" {
		rateProvider := &data.CSVRateProvider{Path: *ratesPath}
		converter, err = rateProvider.Rates(ctx, startDate, endDate)
		if err != nil {
			logger.Fatal().Err(err).Msg("load exchange rates")
		}
	}

	engine, err := backtest.New(backtest.Options{
		Config:     cfg,
		Calculator: calc,
		Prices:     prices,
		FX:         converter,
		Logger:     logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("create engine")
	}

	result, err := engine.Run(ctx)
	if err != nil {
		logger.Fatal().Err(err).Msg("backtest failed")
	}

	if *persist {
		if err := persistResult(ctx, logger, result, cfg, *useMemory, *postgresDSN, *clickhouseDSN); err != nil {
			logger.Fatal().Err(err).Msg("persist result")
		}
	}

	if *outputJSON {
		output, _ := json.MarshalIndent(result, "", "  ")
		fmt.Println(string(output))
	} else {
		printResult(result)
	}
}

func mustDecimal(logger zerolog.Logger, name, value string) decimal.Decimal {
	d, err := decimal.NewFromString(value)
	if err != nil {
		logger.Fatal().Err(err).Msgf("invalid %s", name)
	}
	return d
}

// universe returns all symbols the strategy can request, so the price load
// can filter the CSV down to what the run needs.
func universe(cfg *domain.StrategyConfig) []string {
	if cfg.StrategyType == domain.StrategyTypeStatic {
		symbols := make([]string, 0, len(cfg.Weights))
		for symbol := range cfg.Weights {
			if symbol != domain.CashSymbol {
				symbols = append(symbols, symbol)
			}
		}
		return symbols
	}
	return cfg.Assets
}

// buildStrategyConfig creates a StrategyConfig from CLI flags.
func buildStrategyConfig(
	strategyType, weightsStr, assetsStr string, lookbackDays int,
	excludeNegative bool, minMomentum, targetVol float64,
	shortWindow, longWindow int, signalStrength bool,
) (*domain.StrategyConfig, error) {
	cfg := &domain.StrategyConfig{
		StrategyType: domain.StrategyType(strategyType),
		LookbackDays: lookbackDays,
	}
	if assetsStr != "" {
		cfg.Assets = strings.Split(assetsStr, ",")
		for i := range cfg.Assets {
			cfg.Assets[i] = strings.TrimSpace(cfg.Assets[i])
		}
	}

	switch cfg.StrategyType {
	case domain.StrategyTypeStatic:
		weights, err := parseWeights(weightsStr)
		if err != nil {
			return nil, err
		}
		cfg.Weights = weights
	case domain.StrategyTypeMomentum:
		cfg.ExcludeNegative = &excludeNegative
		if minMomentum != 0 {
			cfg.MinMomentum = &minMomentum
		}
	case domain.StrategyTypeRiskParity:
		if targetVol != 0 {
			cfg.TargetVolatility = &targetVol
		}
	case domain.StrategyTypeDualMovingAverage:
		cfg.ShortWindow = &shortWindow
		cfg.LongWindow = &longWindow
		cfg.UseSignalStrength = &signalStrength
	default:
		return nil, fmt.Errorf("unknown strategy %q, must be STATIC, MOMENTUM, RISK_PARITY or DUAL_MA", strategyType)
	}
	return cfg, nil
}

// parseWeights parses "SPY=0.6,AGG=0.4" into a weight map.
func parseWeights(s string) (map[string]decimal.Decimal, error) {
	if s == "" {
		return nil, fmt.Errorf("--weights is required for STATIC")
	}
	weights := make(map[string]decimal.Decimal)
	for _, pair := range strings.Split(s, ",") {
		symbol, value, found := strings.Cut(strings.TrimSpace(pair), "=")
		if !found {
			return nil, fmt.Errorf("invalid weight entry %q, expected SYMBOL=WEIGHT", pair)
		}
		w, err := decimal.NewFromString(value)
		if err != nil {
			return nil, fmt.Errorf("invalid weight for %s: %w", symbol, err)
		}
		weights[strings.ToUpper(symbol)] = w
	}
	return weights, nil
}

// persistResult writes the run summary, trade ledger and value series.
func persistResult(
	ctx context.Context, logger zerolog.Logger,
	result *backtest.Result, cfg *domain.BacktestConfig,
	useMemory bool, postgresDSN, clickhouseDSN string,
) error {
	var runStore storage.BacktestRunStore
	var tradeStore storage.TradeStore
	var valueStore storage.PortfolioValueStore

	if useMemory {
		runStore = memory.NewBacktestRunStore()
		tradeStore = memory.NewTradeStore()
		valueStore = memory.NewPortfolioValueStore()
	} else {
		if postgresDSN == "" {
			return fmt.Errorf("--postgres-dsn is required to persist (run summary and trades)")
		}
		if clickhouseDSN == "" {
			return fmt.Errorf("--clickhouse-dsn is required to persist (value series)")
		}

		pool, err := pgstore.NewPool(ctx, postgresDSN)
		if err != nil {
			return fmt.Errorf("connect to postgres: %w", err)
		}
		defer pool.Close()
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			return err
		}

		conn, err := migrations.RunClickhouseMigrations(ctx, clickhouseDSN)
		if err != nil {
			return err
		}
		defer conn.Close()

		runStore = pgstore.NewBacktestRunStore(pool)
		tradeStore = pgstore.NewTradeStore(pool)
		valueStore = chstore.NewPortfolioValueStore(conn)
	}

	run := result.RunSummary(cfg, time.Now().UTC())
	if err := runStore.Insert(ctx, run); err != nil {
		return fmt.Errorf("insert run %s: %w", run.RunID, err)
	}

	trades := make([]*domain.TradeRecord, len(result.Trades))
	for i := range result.Trades {
		trades[i] = &result.Trades[i]
	}
	if err := tradeStore.InsertBulk(ctx, trades); err != nil {
		return fmt.Errorf("insert trades: %w", err)
	}
	if err := valueStore.InsertBulk(ctx, result.PortfolioHistory); err != nil {
		return fmt.Errorf("insert value series: %w", err)
	}

	logger.Info().
		Str("run_id", run.RunID[:12]).
		Int("trades", len(trades)).
		Int("value_points", len(result.PortfolioHistory)).
		Msg("result persisted")
	return nil
}

// printResult outputs a human-readable run summary.
func printResult(r *backtest.Result) {
	fmt.Println()
	fmt.Println("=== Backtest Result ===")
	fmt.Printf("Run ID:             %s\n", r.RunID)
	fmt.Printf("Strategy:           %s\n", r.StrategyID)
	fmt.Printf("State:              %s\n", r.State)
	fmt.Println()

	if m := r.Metrics; m != nil {
		fmt.Println("Performance:")
		fmt.Printf("  Total Return:     %s%%\n", m.TotalReturn.Mul(decimal.NewFromInt(100)))
		fmt.Printf("  Annualized:       %s%%\n", m.AnnualizedReturn.Mul(decimal.NewFromInt(100)))
		fmt.Printf("  Volatility:       %s%%\n", m.Volatility.Mul(decimal.NewFromInt(100)))
		fmt.Printf("  Max Drawdown:     %s%%\n", m.MaxDrawdown.Mul(decimal.NewFromInt(100)))
		fmt.Printf("  Sharpe Ratio:     %s\n", m.SharpeRatio)
		fmt.Printf("  Start Value:      %s\n", m.StartValue)
		fmt.Printf("  End Value:        %s\n", m.EndValue)
		fmt.Println()
	}

	if s := r.FinalState; s != nil && s.TotalValue().IsPositive() {
		total := s.TotalValue()
		weights := s.CurrentWeights()
		symbols := make([]string, 0, len(weights))
		for symbol := range weights {
			symbols = append(symbols, symbol)
		}
		sort.Strings(symbols)

		hundred := decimal.NewFromInt(100)
		fmt.Println("Final Allocation:")
		for _, symbol := range symbols {
			fmt.Printf("  %-8s %s%%\n", symbol, weights[symbol].Mul(hundred).Round(2))
		}
		fmt.Printf("  %-8s %s%%\n", domain.CashSymbol, s.CashBalance.Div(total).Mul(hundred).Round(2))
		fmt.Println()
	}

	fmt.Printf("Trades:             %d\n", len(r.Trades))
	fmt.Printf("Warnings:           %d\n", len(r.Warnings))
	for _, w := range r.Warnings {
		fmt.Printf("  [%s] %s: %s\n", w.Date.Format(dateLayout), w.Kind, w.Message)
	}
}
