package reporting

import (
	"fmt"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// RenderMarkdown renders a run report as a Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	run := r.Run
	sb.WriteString("# Backtest Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("Run: `%s`\n\n", run.RunID))

	sb.WriteString("## Configuration\n\n")
	sb.WriteString("| Parameter | Value |\n")
	sb.WriteString("|-----------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Strategy | %s |\n", run.StrategyID))
	sb.WriteString(fmt.Sprintf("| Period | %s .. %s |\n",
		run.StartDate.Format(dateLayout), run.EndDate.Format(dateLayout)))
	sb.WriteString(fmt.Sprintf("| Initial Capital | %s %s |\n", run.InitialCapital, run.BaseCurrency))
	sb.WriteString(fmt.Sprintf("| Rebalance Frequency | %s |\n", run.Frequency))
	sb.WriteString("\n")

	m := run.Metrics
	sb.WriteString("## Performance\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Total Return | %s%% |\n", pct(m.TotalReturn.InexactFloat64())))
	sb.WriteString(fmt.Sprintf("| Annualized Return | %s%% |\n", pct(m.AnnualizedReturn.InexactFloat64())))
	sb.WriteString(fmt.Sprintf("| Volatility | %s%% |\n", pct(m.Volatility.InexactFloat64())))
	sb.WriteString(fmt.Sprintf("| Max Drawdown | %s%% |\n", pct(m.MaxDrawdown.InexactFloat64())))
	sb.WriteString(fmt.Sprintf("| Sharpe Ratio | %s |\n", m.SharpeRatio))
	sb.WriteString(fmt.Sprintf("| Start Value | %s |\n", m.StartValue))
	sb.WriteString(fmt.Sprintf("| End Value | %s |\n", m.EndValue))
	sb.WriteString(fmt.Sprintf("| Trades | %d |\n", m.NumTrades))
	sb.WriteString(fmt.Sprintf("| Warnings | %d |\n", run.NumWarnings))
	sb.WriteString("\n")

	sb.WriteString("## Trades\n\n")
	if len(r.Trades) > 0 {
		sb.WriteString("| Date | Symbol | Side | Quantity | Price | Cost |\n")
		sb.WriteString("|------|--------|------|----------|-------|------|\n")
		for _, t := range r.Trades {
			side := "BUY"
			if t.IsSell() {
				side = "SELL"
			}
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %s | %s |\n",
				t.Timestamp.Format(dateLayout), t.Symbol, side,
				t.Quantity.Abs(), t.Price, t.TransactionCost))
		}
	} else {
		sb.WriteString("No trades executed.\n")
	}
	sb.WriteString("\n")

	sb.WriteString("## Portfolio Value\n\n")
	if len(r.Values) > 0 {
		first, last := r.Values[0], r.Values[len(r.Values)-1]
		low, high := first, first
		for _, v := range r.Values[1:] {
			if v.TotalValue < low.TotalValue {
				low = v
			}
			if v.TotalValue > high.TotalValue {
				high = v
			}
		}
		sb.WriteString("| Point | Date | Value |\n")
		sb.WriteString("|-------|------|-------|\n")
		sb.WriteString(fmt.Sprintf("| First | %s | %.2f |\n", first.Date.Format(dateLayout), first.TotalValue))
		sb.WriteString(fmt.Sprintf("| Low | %s | %.2f |\n", low.Date.Format(dateLayout), low.TotalValue))
		sb.WriteString(fmt.Sprintf("| High | %s | %.2f |\n", high.Date.Format(dateLayout), high.TotalValue))
		sb.WriteString(fmt.Sprintf("| Last | %s | %.2f |\n", last.Date.Format(dateLayout), last.TotalValue))
	} else {
		sb.WriteString("No value series persisted.\n")
	}
	sb.WriteString("\n")

	return sb.String()
}

// RenderComparisonMarkdown renders runs side by side as a Markdown table.
func RenderComparisonMarkdown(c *Comparison) string {
	var sb strings.Builder

	sb.WriteString("# Run Comparison\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", c.GeneratedAt.Format(time.RFC3339)))
	sb.WriteString("| Run | Strategy | Period | TotalRet | AnnRet | Vol | MaxDD | Sharpe | Trades |\n")
	sb.WriteString("|-----|----------|--------|----------|--------|-----|-------|--------|--------|\n")
	for _, run := range c.Runs {
		m := run.Metrics
		sb.WriteString(fmt.Sprintf("| %s | %s | %s..%s | %s%% | %s%% | %s%% | %s%% | %s | %d |\n",
			run.RunID[:12], run.StrategyID,
			run.StartDate.Format(dateLayout), run.EndDate.Format(dateLayout),
			pct(m.TotalReturn.InexactFloat64()), pct(m.AnnualizedReturn.InexactFloat64()),
			pct(m.Volatility.InexactFloat64()), pct(m.MaxDrawdown.InexactFloat64()),
			m.SharpeRatio, m.NumTrades))
	}
	sb.WriteString("\n")

	return sb.String()
}

func pct(v float64) string {
	return fmt.Sprintf("%.2f", v*100)
}
