package model

import (
	"time"

	"marginfx/internal/types"

	"github.com/shopspring/decimal"
)

type TradingAccount struct {
	ID            string            `json:"id"`
	UserID        string            `json:"user_id"`
	Name          string            `json:"name"`
	AccountNumber string            `json:"account_number"`
	IsActive      bool              `json:"is_active"`
	ActiveMode    types.BalanceMode `json:"active_mode"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

// Balance is the financial state of one (TradingAccount, mode) pair.
// Equity, Margin, FreeMargin and MarginLevel are derived fields: they are
// recomputed from the open-order set on every mutation and on every read,
// never trusted as independently mutable state.
type Balance struct {
	ID               string            `json:"id"`
	TradingAccountID string            `json:"trading_account_id"`
	Mode             types.BalanceMode `json:"mode"`
	Balance          decimal.Decimal   `json:"balance"`
	Equity           decimal.Decimal   `json:"equity"`
	Margin           decimal.Decimal   `json:"margin"`
	FreeMargin       decimal.Decimal   `json:"free_margin"`
	MarginLevel      decimal.Decimal   `json:"margin_level"`
	Currency         string            `json:"currency"`
	Leverage         int               `json:"leverage"`
	IsAutoLeverage   bool              `json:"is_auto_leverage"`
	LastActiveAt     time.Time         `json:"last_active_at"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

// Order is one simulated position. Margin is frozen at open time and never
// recomputed from the current price. For closed/cancelled orders Profit,
// ClosePrice and ClosedAt are frozen at closing time.
type Order struct {
	ID           string            `json:"id"`
	BalanceID    string            `json:"balance_id"`
	Symbol       string            `json:"symbol"`
	Side         types.OrderSide   `json:"side"`
	Volume       decimal.Decimal   `json:"volume"`
	EntryPrice   decimal.Decimal   `json:"entry_price"`
	CurrentPrice decimal.Decimal   `json:"current_price"`
	StopLoss     *decimal.Decimal  `json:"stop_loss,omitempty"`
	TakeProfit   *decimal.Decimal  `json:"take_profit,omitempty"`
	Status       types.OrderStatus `json:"status"`
	Profit       decimal.Decimal   `json:"profit"`
	ClosePrice   *decimal.Decimal  `json:"close_price,omitempty"`
	Margin       decimal.Decimal   `json:"margin"`
	CreatedAt    time.Time         `json:"created_at"`
	ClosedAt     *time.Time        `json:"closed_at,omitempty"`
}

func (o Order) IsOpen() bool {
	return o.Status == types.OrderStatusOpen
}
