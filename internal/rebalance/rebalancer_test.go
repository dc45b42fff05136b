package rebalance

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"portfolio-backtest-lab/internal/domain"
)

var testDate = time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func freeCosts() domain.TransactionCosts {
	return domain.TransactionCosts{FixedPerTrade: decimal.Zero, Percentage: decimal.Zero}
}

func newState(cash string, holdings, prices map[string]string) *domain.PortfolioState {
	s := &domain.PortfolioState{
		Timestamp:   testDate,
		CashBalance: dec(cash),
		Holdings:    map[string]decimal.Decimal{},
		Prices:      map[string]decimal.Decimal{},
	}
	for k, v := range holdings {
		s.Holdings[k] = dec(v)
	}
	for k, v := range prices {
		s.Prices[k] = dec(v)
	}
	return s
}

func TestExecuteInitialAllocation(t *testing.T) {
	state := newState("10000", nil, map[string]string{"AAA": "100", "BBB": "50"})
	target := map[string]decimal.Decimal{"AAA": dec("0.6"), "BBB": dec("0.4")}

	r := New(freeCosts(), "USD")
	trades, warnings, err := r.Execute(state, target, testDate)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(warnings) != 0 {
		t.Errorf("warnings = %v", warnings)
	}
	if len(trades) != 2 {
		t.Fatalf("trades = %v, want 2", trades)
	}
	if !state.Holdings["AAA"].Equal(dec("60")) {
		t.Errorf("AAA holding = %s, want 60", state.Holdings["AAA"])
	}
	if !state.Holdings["BBB"].Equal(dec("80")) {
		t.Errorf("BBB holding = %s, want 80", state.Holdings["BBB"])
	}
	if !state.CashBalance.IsZero() {
		t.Errorf("cash = %s, want 0", state.CashBalance)
	}
	if !state.TotalValue().Equal(dec("10000")) {
		t.Errorf("total value = %s, want 10000 with zero costs", state.TotalValue())
	}
}

func TestExecuteSellsAssetsMissingFromTarget(t *testing.T) {
	state := newState("0",
		map[string]string{"OLD": "100"},
		map[string]string{"OLD": "10", "NEW": "20"})
	target := map[string]decimal.Decimal{"NEW": dec("1")}

	r := New(freeCosts(), "USD")
	trades, _, err := r.Execute(state, target, testDate)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if _, held := state.Holdings["OLD"]; held {
		t.Errorf("OLD still held: %s", state.Holdings["OLD"])
	}
	if !state.Holdings["NEW"].Equal(dec("50")) {
		t.Errorf("NEW holding = %s, want 50", state.Holdings["NEW"])
	}
	// Sorted by symbol: NEW buy before OLD sell.
	if trades[0].Symbol != "NEW" || !trades[0].IsBuy() {
		t.Errorf("trades[0] = %+v, want NEW buy", trades[0])
	}
	if trades[1].Symbol != "OLD" || !trades[1].IsSell() {
		t.Errorf("trades[1] = %+v, want OLD sell", trades[1])
	}
}

func TestExecuteCashTargetSellsEverything(t *testing.T) {
	state := newState("0",
		map[string]string{"AAA": "10"},
		map[string]string{"AAA": "100"})
	target := map[string]decimal.Decimal{domain.CashSymbol: dec("1")}

	r := New(freeCosts(), "USD")
	trades, _, err := r.Execute(state, target, testDate)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(trades) != 1 || !trades[0].IsSell() {
		t.Fatalf("trades = %v, want single sell", trades)
	}
	if len(state.Holdings) != 0 {
		t.Errorf("holdings = %v, want empty", state.Holdings)
	}
	if !state.CashBalance.Equal(dec("1000")) {
		t.Errorf("cash = %s, want 1000", state.CashBalance)
	}
}

func TestExecuteAppliesTransactionCosts(t *testing.T) {
	costs := domain.TransactionCosts{
		FixedPerTrade: dec("5"),
		Percentage:    dec("0.001"),
	}
	state := newState("10000", nil, map[string]string{"AAA": "100"})
	target := map[string]decimal.Decimal{"AAA": dec("0.5")}

	r := New(costs, "USD")
	trades, _, err := r.Execute(state, target, testDate)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	// Buy 5000 of AAA: cost = 5 + 0.001*5000 = 10.
	if !trades[0].TransactionCost.Equal(dec("10")) {
		t.Errorf("cost = %s, want 10", trades[0].TransactionCost)
	}
	if !state.CashBalance.Equal(dec("4990")) {
		t.Errorf("cash = %s, want 4990", state.CashBalance)
	}
}

func TestExecuteSkipsDust(t *testing.T) {
	// Portfolio already at target; no trades should fire.
	state := newState("0",
		map[string]string{"AAA": "60", "BBB": "80"},
		map[string]string{"AAA": "100", "BBB": "50"})
	target := map[string]decimal.Decimal{"AAA": dec("0.6"), "BBB": dec("0.4")}

	r := New(freeCosts(), "USD")
	trades, warnings, err := r.Execute(state, target, testDate)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(trades) != 0 || len(warnings) != 0 {
		t.Errorf("trades = %v, warnings = %v, want none", trades, warnings)
	}
}

func TestExecutePartialOnCashShortfall(t *testing.T) {
	// Fixed cost eats into a buy funded entirely from cash: full execution
	// needs 10000 + 50 fixed but only 10000 is available.
	costs := domain.TransactionCosts{FixedPerTrade: dec("50"), Percentage: decimal.Zero}
	state := newState("10000", nil, map[string]string{"AAA": "100"})
	target := map[string]decimal.Decimal{"AAA": dec("1")}

	r := New(costs, "USD")
	trades, warnings, err := r.Execute(state, target, testDate)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(warnings) != 1 || warnings[0].Kind != domain.WarningPartialRebalance {
		t.Fatalf("warnings = %v, want partial_rebalance", warnings)
	}
	if len(trades) != 1 {
		t.Fatalf("trades = %v, want scaled buy", trades)
	}
	// Fraction = (10000-50)/10000 = 0.995 -> 99.5 shares.
	if !trades[0].Quantity.Equal(dec("99.5")) {
		t.Errorf("quantity = %s, want 99.5", trades[0].Quantity)
	}
	if state.CashBalance.IsNegative() {
		t.Errorf("cash went negative: %s", state.CashBalance)
	}
}

func TestExecuteSkipsWhenCostsUnaffordable(t *testing.T) {
	costs := domain.TransactionCosts{FixedPerTrade: dec("50"), Percentage: decimal.Zero}
	state := newState("30",
		map[string]string{"AAA": "1"},
		map[string]string{"AAA": "100", "BBB": "100"})
	target := map[string]decimal.Decimal{"AAA": dec("0.2"), "BBB": dec("0.8")}

	r := New(costs, "USD")
	trades, warnings, err := r.Execute(state, target, testDate)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(trades) != 0 {
		t.Errorf("trades = %v, want none", trades)
	}
	if len(warnings) != 1 || warnings[0].Kind != domain.WarningPartialRebalance {
		t.Errorf("warnings = %v, want partial_rebalance", warnings)
	}
}

func TestExecuteNetSellIsAlwaysAffordable(t *testing.T) {
	// Selling down a position frees more cash than the buys need.
	state := newState("0",
		map[string]string{"AAA": "100"},
		map[string]string{"AAA": "100", "BBB": "100"})
	target := map[string]decimal.Decimal{"AAA": dec("0.5"), "BBB": dec("0.5")}

	r := New(freeCosts(), "USD")
	trades, warnings, err := r.Execute(state, target, testDate)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(warnings) != 0 {
		t.Errorf("warnings = %v, want none", warnings)
	}
	if len(trades) != 2 {
		t.Fatalf("trades = %v, want 2", trades)
	}
	if !state.Holdings["AAA"].Equal(dec("50")) || !state.Holdings["BBB"].Equal(dec("50")) {
		t.Errorf("holdings = %v, want 50/50", state.Holdings)
	}
}

func TestExecuteMissingPriceFails(t *testing.T) {
	state := newState("1000", nil, map[string]string{})
	target := map[string]decimal.Decimal{"AAA": dec("1")}

	r := New(freeCosts(), "USD")
	if _, _, err := r.Execute(state, target, testDate); err == nil {
		t.Error("expected error for missing price")
	}
}

func TestLiquidate(t *testing.T) {
	costs := domain.TransactionCosts{FixedPerTrade: dec("1"), Percentage: dec("0.01")}
	state := newState("100",
		map[string]string{"GONE": "10"},
		map[string]string{"GONE": "50"})

	r := New(costs, "USD")
	trade, err := r.Liquidate(state, "GONE", dec("50"), testDate)
	if err != nil {
		t.Fatalf("Liquidate: %v", err)
	}
	if !trade.Quantity.Equal(dec("-10")) {
		t.Errorf("quantity = %s, want -10", trade.Quantity)
	}
	// Proceeds 500, cost 1 + 5 = 6, cash 100 + 500 - 6 = 594.
	if !state.CashBalance.Equal(dec("594")) {
		t.Errorf("cash = %s, want 594", state.CashBalance)
	}
	if _, held := state.Holdings["GONE"]; held {
		t.Error("GONE still held after liquidation")
	}
	if _, priced := state.Prices["GONE"]; priced {
		t.Error("GONE price still tracked after liquidation")
	}
}

func TestLiquidateNoPosition(t *testing.T) {
	state := newState("100", nil, nil)
	r := New(freeCosts(), "USD")
	if _, err := r.Liquidate(state, "NONE", dec("10"), testDate); err == nil {
		t.Error("expected error liquidating empty position")
	}
}
