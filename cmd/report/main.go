package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"portfolio-backtest-lab/internal/reporting"
	chstore "portfolio-backtest-lab/internal/storage/clickhouse"
	pgstore "portfolio-backtest-lab/internal/storage/postgres"
)

func main() {
	runID := flag.String("run-id", "", "Report a single run by ID")
	compare := flag.Bool("compare", false, "Compare all persisted runs")
	strategyID := flag.String("strategy", "", "Restrict --compare to one strategy")
	outputDir := flag.String("output-dir", "", "Write files there instead of stdout")
	withCSV := flag.Bool("csv", false, "Also write trade and value series CSVs (requires --output-dir)")
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string (required)")
	clickhouseDSN := flag.String("clickhouse-dsn", "", "ClickHouse connection string (required for --run-id)")
	flag.Parse()

	if (*runID == "") == !*compare {
		fatal("exactly one of --run-id and --compare is required")
	}
	if *postgresDSN == "" {
		fatal("--postgres-dsn is required")
	}
	if *withCSV && *outputDir == "" {
		fatal("--csv requires --output-dir")
	}

	ctx := context.Background()

	pool, err := pgstore.NewPool(ctx, *postgresDSN)
	if err != nil {
		fatal("connect to postgres: %v", err)
	}
	defer pool.Close()
	runStore := pgstore.NewBacktestRunStore(pool)

	if *compare {
		comparison, err := reporting.BuildComparison(ctx, *strategyID, runStore)
		if err != nil {
			fatal("build comparison: %v", err)
		}
		emit(*outputDir, "comparison.md", reporting.RenderComparisonMarkdown(comparison))
		return
	}

	if *clickhouseDSN == "" {
		fatal("--clickhouse-dsn is required for --run-id (value series)")
	}
	conn, err := chstore.NewConn(ctx, *clickhouseDSN)
	if err != nil {
		fatal("connect to clickhouse: %v", err)
	}
	defer conn.Close()

	report, err := reporting.Build(ctx, *runID,
		runStore, pgstore.NewTradeStore(pool), chstore.NewPortfolioValueStore(conn))
	if err != nil {
		fatal("build report: %v", err)
	}

	name := (*runID)[:min(12, len(*runID))]
	emit(*outputDir, "report_"+name+".md", reporting.RenderMarkdown(report))
	if *withCSV {
		emit(*outputDir, "trades_"+name+".csv", reporting.RenderTradesCSV(report.Trades))
		emit(*outputDir, "values_"+name+".csv", reporting.RenderValuesCSV(report.Values))
	}
}

// emit writes content to outputDir/name, or stdout when no directory given.
func emit(outputDir, name, content string) {
	if outputDir == "" {
		fmt.Print(content)
		return
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		fatal("create output dir: %v", err)
	}
	path := filepath.Join(outputDir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		fatal("write %s: %v", path, err)
	}
	fmt.Fprintf(os.Stderr, "wrote %s\n", path)
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}
