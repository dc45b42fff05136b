package reporting

import (
	"fmt"
	"strings"

	"portfolio-backtest-lab/internal/domain"
)

// RenderTradesCSV renders the trade ledger as a CSV string.
func RenderTradesCSV(trades []*domain.TradeRecord) string {
	var sb strings.Builder

	sb.WriteString("trade_id,run_id,date,symbol,quantity,price,currency,transaction_cost\n")
	for _, t := range trades {
		sb.WriteString(fmt.Sprintf("%s,%s,%s,%s,%s,%s,%s,%s\n",
			t.TradeID, t.RunID,
			t.Timestamp.Format(dateLayout), t.Symbol,
			t.Quantity, t.Price, t.Currency, t.TransactionCost))
	}

	return sb.String()
}

// RenderValuesCSV renders the daily portfolio value series as a CSV string.
func RenderValuesCSV(values []domain.PortfolioValuePoint) string {
	var sb strings.Builder

	sb.WriteString("run_id,date,total_value,cash_balance\n")
	for _, v := range values {
		sb.WriteString(fmt.Sprintf("%s,%s,%.2f,%.2f\n",
			v.RunID, v.Date.Format(dateLayout), v.TotalValue, v.CashBalance))
	}

	return sb.String()
}
