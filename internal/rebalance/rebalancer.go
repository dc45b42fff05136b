package rebalance

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"portfolio-backtest-lab/internal/domain"
)

// Precision of executed quantities and of cash movements.
const (
	quantityPlaces = 6
	cashPlaces     = 2
)

// dustThreshold is the smallest executable quantity. Deltas below it are
// left alone rather than churned.
var dustThreshold = decimal.New(1, -quantityPlaces)

// Rebalancer trades a portfolio back to target weights. It is stateless
// apart from the cost model and safe to share across runs. Prices in the
// portfolio state are assumed to already be in the base currency.
type Rebalancer struct {
	Costs        domain.TransactionCosts
	BaseCurrency string
}

// New creates a Rebalancer with the given cost model.
func New(costs domain.TransactionCosts, baseCurrency string) *Rebalancer {
	return &Rebalancer{Costs: costs, BaseCurrency: baseCurrency}
}

// order is one planned trade before execution.
type order struct {
	symbol   string
	quantity decimal.Decimal
	price    decimal.Decimal
}

// Execute trades the portfolio to the target weights at the prices in
// state.Prices, mutating state. Assets held but absent from the target are
// sold. The reserved cash symbol is never traded; its weight is realized as
// the uninvested remainder.
//
// When available cash cannot fund the full set of trades, the largest
// affordable uniform fraction is executed and a partial-rebalance warning
// is returned. Returned trades are ordered by symbol.
func (r *Rebalancer) Execute(state *domain.PortfolioState, target map[string]decimal.Decimal, asOf time.Time) ([]domain.Trade, []domain.Warning, error) {
	total := state.TotalValue()
	if !total.IsPositive() {
		return nil, nil, fmt.Errorf("%w: cannot rebalance portfolio with non-positive value %s", domain.ErrValidation, total)
	}

	symbols := tradeUniverse(state, target)

	var orders []order
	for _, symbol := range symbols {
		price, ok := state.Prices[symbol]
		if !ok || !price.IsPositive() {
			return nil, nil, fmt.Errorf("%w: no price for %s on %s", domain.ErrData, symbol, asOf.Format("2006-01-02"))
		}
		targetValue := total.Mul(target[symbol])
		currentValue := state.Holdings[symbol].Mul(price)
		quantity := targetValue.Sub(currentValue).Div(price).Round(quantityPlaces)
		if quantity.Abs().LessThan(dustThreshold) {
			continue
		}
		orders = append(orders, order{symbol: symbol, quantity: quantity, price: price})
	}
	if len(orders) == 0 {
		return nil, nil, nil
	}

	orders, warnings := r.scaleToCash(state.CashBalance, orders, asOf)
	if len(orders) == 0 {
		return nil, warnings, nil
	}

	trades := make([]domain.Trade, 0, len(orders))
	for _, o := range orders {
		value := o.quantity.Mul(o.price)
		cost := r.Costs.FixedPerTrade.Add(r.Costs.Percentage.Mul(value.Abs())).Round(cashPlaces)

		state.CashBalance = state.CashBalance.Sub(value).Sub(cost)
		newQty := state.Holdings[o.symbol].Add(o.quantity)
		if newQty.IsZero() {
			delete(state.Holdings, o.symbol)
		} else {
			state.Holdings[o.symbol] = newQty
		}

		trades = append(trades, domain.Trade{
			Timestamp:       asOf,
			Symbol:          o.symbol,
			Quantity:        o.quantity,
			Price:           o.price,
			Currency:        r.BaseCurrency,
			TransactionCost: cost,
		})
	}
	state.CashBalance = state.CashBalance.Round(cashPlaces)
	state.Timestamp = asOf

	return trades, warnings, nil
}

// Liquidate force-sells the entire position in symbol at the given price,
// applying the normal cost model. Used when an asset delists mid-run.
func (r *Rebalancer) Liquidate(state *domain.PortfolioState, symbol string, price decimal.Decimal, asOf time.Time) (domain.Trade, error) {
	qty := state.Holdings[symbol]
	if !qty.IsPositive() {
		return domain.Trade{}, fmt.Errorf("%w: no position in %s to liquidate", domain.ErrValidation, symbol)
	}
	if !price.IsPositive() {
		return domain.Trade{}, fmt.Errorf("%w: liquidation price for %s must be positive", domain.ErrData, symbol)
	}

	proceeds := qty.Mul(price)
	cost := r.Costs.FixedPerTrade.Add(r.Costs.Percentage.Mul(proceeds)).Round(cashPlaces)
	state.CashBalance = state.CashBalance.Add(proceeds).Sub(cost).Round(cashPlaces)
	delete(state.Holdings, symbol)
	delete(state.Prices, symbol)
	state.Timestamp = asOf

	return domain.Trade{
		Timestamp:       asOf,
		Symbol:          symbol,
		Quantity:        qty.Neg(),
		Price:           price,
		Currency:        r.BaseCurrency,
		TransactionCost: cost,
	}, nil
}

// scaleToCash checks affordability of the planned orders and, on a cash
// shortfall, scales every order by the largest affordable fraction.
//
// With buys B, sells S (absolute values), fixed costs F and percentage
// cost p, executing fraction m needs m*B - m*S + p*m*(B+S) + F <= cash,
// so m = (cash - F) / (B - S + p*(B+S)).
func (r *Rebalancer) scaleToCash(cash decimal.Decimal, orders []order, asOf time.Time) ([]order, []domain.Warning) {
	buys, sells := decimal.Zero, decimal.Zero
	for _, o := range orders {
		value := o.quantity.Mul(o.price)
		if value.IsPositive() {
			buys = buys.Add(value)
		} else {
			sells = sells.Add(value.Neg())
		}
	}
	fixed := r.Costs.FixedPerTrade.Mul(decimal.NewFromInt(int64(len(orders))))
	turnover := r.Costs.Percentage.Mul(buys.Add(sells))

	needed := buys.Sub(sells).Add(turnover).Add(fixed)
	if needed.LessThanOrEqual(cash) {
		return orders, nil
	}

	coef := buys.Sub(sells).Add(turnover)
	budget := cash.Sub(fixed)
	if coef.LessThanOrEqual(decimal.Zero) || !budget.IsPositive() {
		return nil, []domain.Warning{{
			Kind:    domain.WarningPartialRebalance,
			Date:    asOf,
			Message: fmt.Sprintf("insufficient cash %s for rebalance costs, no trades executed", cash),
		}}
	}

	fraction := budget.Div(coef)
	if fraction.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return orders, nil
	}

	scaled := make([]order, 0, len(orders))
	for _, o := range orders {
		qty := o.quantity.Mul(fraction).Round(quantityPlaces)
		if qty.Abs().LessThan(dustThreshold) {
			continue
		}
		scaled = append(scaled, order{symbol: o.symbol, quantity: qty, price: o.price})
	}
	warning := domain.Warning{
		Kind:    domain.WarningPartialRebalance,
		Date:    asOf,
		Message: fmt.Sprintf("cash shortfall: executed %s of planned rebalance", fraction.Round(4)),
	}
	return scaled, []domain.Warning{warning}
}

// tradeUniverse returns the sorted union of target and held symbols,
// excluding the reserved cash symbol.
func tradeUniverse(state *domain.PortfolioState, target map[string]decimal.Decimal) []string {
	seen := make(map[string]struct{}, len(target)+len(state.Holdings))
	for symbol := range target {
		if symbol == domain.CashSymbol {
			continue
		}
		seen[symbol] = struct{}{}
	}
	for symbol := range state.Holdings {
		seen[symbol] = struct{}{}
	}
	symbols := make([]string, 0, len(seen))
	for symbol := range seen {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)
	return symbols
}
