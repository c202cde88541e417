// Package margin implements the pure margin arithmetic of the trading engine:
// required margin for a prospective order, unrealized profit of an open order,
// and the derived account metrics (equity, free margin, margin level).
package margin

import (
	"errors"

	"marginfx/internal/model"
	"marginfx/internal/types"

	"github.com/shopspring/decimal"
)

var ErrInvalidLeverage = errors.New("invalid leverage")

var hundred = decimal.NewFromInt(100)

// Quote carries the two sides of the latest tick for one symbol.
type Quote struct {
	Bid decimal.Decimal
	Ask decimal.Decimal
}

// QuoteFunc returns the latest known quote for a symbol. The second return is
// false when no quote is known; callers must then retain the previous price.
type QuoteFunc func(symbol string) (Quote, bool)

// ContractSizeFunc resolves the contract size (units per lot) for a symbol.
type ContractSizeFunc func(symbol string) decimal.Decimal

// RequiredMargin returns volume * contractSize * entryPrice / leverage.
func RequiredMargin(volume, contractSize, entryPrice decimal.Decimal, leverage int) (decimal.Decimal, error) {
	if leverage <= 0 {
		return decimal.Zero, ErrInvalidLeverage
	}
	return volume.Mul(contractSize).Mul(entryPrice).Div(decimal.NewFromInt(int64(leverage))), nil
}

// UnrealizedProfit values an open position against currentPrice. Must not be
// called for closed or cancelled orders; those carry a frozen profit.
func UnrealizedProfit(side types.OrderSide, entryPrice, currentPrice, volume, contractSize decimal.Decimal) decimal.Decimal {
	size := volume.Mul(contractSize)
	if side == types.OrderSideSell {
		return entryPrice.Sub(currentPrice).Mul(size)
	}
	return currentPrice.Sub(entryPrice).Mul(size)
}

// MarkPrice picks the quote side a position is valued against: buys close
// into the bid, sells close into the ask.
func MarkPrice(side types.OrderSide, q Quote) decimal.Decimal {
	if side == types.OrderSideSell {
		return q.Ask
	}
	return q.Bid
}

// Recompute refreshes every open order's current price and profit from the
// latest quotes and rebuilds the balance's derived fields:
//
//	equity      = balance + sum(unrealized profit)
//	margin      = sum(margin frozen at open)
//	freeMargin  = equity - margin
//	marginLevel = margin > 0 ? equity/margin*100 : 0
//
// A missing quote never fails the recompute; the order keeps its previous
// current price. The function is idempotent for unchanged inputs and does not
// mutate its arguments.
func Recompute(b model.Balance, openOrders []model.Order, quote QuoteFunc, contractSize ContractSizeFunc) (model.Balance, []model.Order) {
	equity := b.Balance
	reserved := decimal.Zero
	out := make([]model.Order, len(openOrders))
	for i, o := range openOrders {
		if quote != nil {
			if q, ok := quote(o.Symbol); ok {
				o.CurrentPrice = MarkPrice(o.Side, q)
			}
		}
		o.Profit = UnrealizedProfit(o.Side, o.EntryPrice, o.CurrentPrice, o.Volume, contractSize(o.Symbol))
		equity = equity.Add(o.Profit)
		reserved = reserved.Add(o.Margin)
		out[i] = o
	}
	b.Equity = equity
	b.Margin = reserved
	b.FreeMargin = equity.Sub(reserved)
	if reserved.GreaterThan(decimal.Zero) {
		b.MarginLevel = equity.Div(reserved).Mul(hundred)
	} else {
		b.MarginLevel = decimal.Zero
	}
	return b, out
}
