package orders

import (
	"context"
	"time"

	"marginfx/internal/model"
	"marginfx/internal/types"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

type Store struct{}

func NewStore() *Store {
	return &Store{}
}

const orderColumns = "id, balance_id, symbol, side, volume, entry_price, current_price, stop_loss, take_profit, status, profit, close_price, margin, created_at, closed_at"

func scanOrder(row pgx.Row) (model.Order, error) {
	var o model.Order
	var side, status string
	err := row.Scan(
		&o.ID, &o.BalanceID, &o.Symbol, &side, &o.Volume, &o.EntryPrice, &o.CurrentPrice,
		&o.StopLoss, &o.TakeProfit, &status, &o.Profit, &o.ClosePrice, &o.Margin, &o.CreatedAt, &o.ClosedAt,
	)
	if err != nil {
		return o, err
	}
	o.Side = types.OrderSide(side)
	o.Status = types.OrderStatus(status)
	return o, nil
}

func (s *Store) Create(ctx context.Context, tx pgx.Tx, o model.Order) (model.Order, error) {
	row := tx.QueryRow(ctx, `
		insert into orders (balance_id, symbol, side, volume, entry_price, current_price, stop_loss, take_profit, status, profit, margin)
		values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		returning `+orderColumns,
		o.BalanceID, o.Symbol, string(o.Side), o.Volume, o.EntryPrice, o.CurrentPrice,
		o.StopLoss, o.TakeProfit, string(o.Status), o.Profit, o.Margin)
	return scanOrder(row)
}

// GetForUpdate row-locks the order and returns the id of the user owning it
// through the balance -> trading account chain.
func (s *Store) GetForUpdate(ctx context.Context, tx pgx.Tx, orderID string) (model.Order, string, error) {
	row := tx.QueryRow(ctx, `
		select o.id, o.balance_id, o.symbol, o.side, o.volume, o.entry_price, o.current_price,
		       o.stop_loss, o.take_profit, o.status, o.profit, o.close_price, o.margin, o.created_at, o.closed_at,
		       ta.user_id
		from orders o
		join balances b on b.id = o.balance_id
		join trading_accounts ta on ta.id = b.trading_account_id
		where o.id = $1
		for update of o`, orderID)
	var o model.Order
	var side, status, userID string
	err := row.Scan(
		&o.ID, &o.BalanceID, &o.Symbol, &side, &o.Volume, &o.EntryPrice, &o.CurrentPrice,
		&o.StopLoss, &o.TakeProfit, &status, &o.Profit, &o.ClosePrice, &o.Margin, &o.CreatedAt, &o.ClosedAt,
		&userID,
	)
	if err != nil {
		return o, "", err
	}
	o.Side = types.OrderSide(side)
	o.Status = types.OrderStatus(status)
	return o, userID, nil
}

func (s *Store) OpenByBalance(ctx context.Context, tx pgx.Tx, balanceID string) ([]model.Order, error) {
	return s.listByBalance(ctx, tx, balanceID, "and status = 'open'")
}

func (s *Store) ListByBalance(ctx context.Context, tx pgx.Tx, balanceID, status string) ([]model.Order, error) {
	switch status {
	case "open":
		return s.listByBalance(ctx, tx, balanceID, "and status = 'open'")
	case "closed":
		return s.listByBalance(ctx, tx, balanceID, "and status in ('closed', 'cancelled')")
	default:
		return s.listByBalance(ctx, tx, balanceID, "")
	}
}

func (s *Store) listByBalance(ctx context.Context, tx pgx.Tx, balanceID, filter string) ([]model.Order, error) {
	rows, err := tx.Query(ctx, "select "+orderColumns+" from orders where balance_id = $1 "+filter+" order by created_at desc", balanceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (s *Store) MarkClosed(ctx context.Context, tx pgx.Tx, orderID string, profit, closePrice decimal.Decimal, closedAt time.Time) error {
	_, err := tx.Exec(ctx, `
		update orders
		set status = 'closed', profit = $1, close_price = $2, current_price = $2, closed_at = $3
		where id = $4`,
		profit, closePrice, closedAt.UTC(), orderID)
	return err
}

// CancelOpenByBalance force-transitions every open order of a balance to
// cancelled. No profit is realized.
func (s *Store) CancelOpenByBalance(ctx context.Context, tx pgx.Tx, balanceID string, closedAt time.Time) (int64, error) {
	tag, err := tx.Exec(ctx, `
		update orders
		set status = 'cancelled', profit = 0, closed_at = $1
		where balance_id = $2 and status = 'open'`,
		closedAt.UTC(), balanceID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (s *Store) UpdateStops(ctx context.Context, tx pgx.Tx, orderID string, stopLoss, takeProfit *decimal.Decimal) (model.Order, error) {
	row := tx.QueryRow(ctx, `
		update orders
		set stop_loss = $1, take_profit = $2
		where id = $3
		returning `+orderColumns,
		stopLoss, takeProfit, orderID)
	return scanOrder(row)
}
