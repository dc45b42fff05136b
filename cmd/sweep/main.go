package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"portfolio-backtest-lab/internal/data"
	"portfolio-backtest-lab/internal/fx"
	"portfolio-backtest-lab/internal/observability"
	"portfolio-backtest-lab/internal/sweep"
)

func main() {
	configPath := flag.String("config", "", "Sweep grid YAML file (required)")
	workers := flag.Int("workers", runtime.NumCPU(), "Number of parallel backtest workers")
	metricsAddr := flag.String("metrics-addr", "", "Serve Prometheus metrics on this address, e.g. :9090")
	outputJSON := flag.Bool("json", false, "Output outcomes as JSON")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	level := zerolog.InfoLevel
	if *debug {
		level = zerolog.DebugLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		Level(level).With().Timestamp().Logger()

	if *configPath == "" {
		logger.Fatal().Msg("--config is required")
	}

	grid, err := LoadGrid(*configPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("load sweep grid")
	}
	specs, err := grid.Expand()
	if err != nil {
		logger.Fatal().Err(err).Msg("expand sweep grid")
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

	if *metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", observability.Handler())
		go func() {
			logger.Info().Str("addr", *metricsAddr).Msg("serving metrics")
			if err := http.ListenAndServe(*metricsAddr, mux); err != nil {
				logger.Error().Err(err).Msg("metrics server stopped")
			}
		}()
	}

	cfg, err := grid.BacktestConfig()
	if err != nil {
		logger.Fatal().Err(err).Msg("parse backtest config")
	}

	priceProvider := &data.CSVPriceProvider{Path: grid.Data.Prices}
	prices, err := priceProvider.Prices(ctx, nil, cfg.StartDate, cfg.EndDate)
	if err != nil {
		logger.Fatal().Err(err).Msg("load prices")
	}

	var converter *fx.Converter
	if grid.Data.Rates != "" {
		rateProvider := &data.CSVRateProvider{Path: grid.Data.Rates}
		converter, err = rateProvider.Rates(ctx, cfg.StartDate, cfg.EndDate)
		if err != nil {
			logger.Fatal().Err(err).Msg("load exchange rates")
		}
	}

	logger.Info().Int("specs", len(specs)).Int("workers", *workers).Msg("sweep starting")

	runner := &sweep.Runner{
		Prices:  prices,
		FX:      converter,
		Workers: *workers,
		Logger:  logger,
	}
	outcomes := runner.Run(ctx, specs)

	if *outputJSON {
		output, _ := json.MarshalIndent(outcomes, "", "  ")
		fmt.Println(string(output))
		return
	}
	printOutcomes(outcomes)
}

func printOutcomes(outcomes []sweep.Outcome) {
	fmt.Println()
	fmt.Println("=== Sweep Results ===")
	fmt.Printf("%-40s %12s %12s %8s %8s\n", "SPEC", "TOTAL RET", "SHARPE", "TRADES", "WARN")
	for _, o := range outcomes {
		if o.Err != nil {
			fmt.Printf("%-40s ERROR: %v\n", o.Name, o.Err)
			continue
		}
		m := o.Result.Metrics
		fmt.Printf("%-40s %11s%% %12s %8d %8d\n",
			o.Name,
			m.TotalReturn.Mul(decimal.NewFromInt(100)), m.SharpeRatio,
			len(o.Result.Trades), len(o.Result.Warnings))
	}
}
