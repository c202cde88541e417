package accounts

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

const accountColumns = "id, user_id, name, account_number, is_active, active_mode, created_at, updated_at"

const balanceColumns = "id, trading_account_id, mode, balance, equity, margin, free_margin, margin_level, currency, leverage, is_auto_leverage, last_active_at, created_at, updated_at"

func scanAccount(row pgx.Row) (model.TradingAccount, error) {
	var a model.TradingAccount
	var mode string
	err := row.Scan(&a.ID, &a.UserID, &a.Name, &a.AccountNumber, &a.IsActive, &mode, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return a, err
	}
	a.ActiveMode = types.BalanceMode(mode)
	return a, nil
}

func scanBalance(row pgx.Row) (model.Balance, error) {
	var b model.Balance
	var mode string
	err := row.Scan(
		&b.ID, &b.TradingAccountID, &mode, &b.Balance, &b.Equity, &b.Margin, &b.FreeMargin,
		&b.MarginLevel, &b.Currency, &b.Leverage, &b.IsAutoLeverage, &b.LastActiveAt, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return b, err
	}
	b.Mode = types.BalanceMode(mode)
	return b, nil
}

func (s *Store) ActiveAccount(ctx context.Context, tx pgx.Tx, userID string) (model.TradingAccount, error) {
	row := tx.QueryRow(ctx, "select "+accountColumns+" from trading_accounts where user_id = $1 and is_active = true order by created_at asc limit 1", userID)
	return scanAccount(row)
}

func (s *Store) OldestAccount(ctx context.Context, tx pgx.Tx, userID string) (model.TradingAccount, error) {
	row := tx.QueryRow(ctx, "select "+accountColumns+" from trading_accounts where user_id = $1 order by created_at asc limit 1", userID)
	return scanAccount(row)
}

func (s *Store) AccountByID(ctx context.Context, tx pgx.Tx, userID, accountID string) (model.TradingAccount, error) {
	row := tx.QueryRow(ctx, "select "+accountColumns+" from trading_accounts where id = $1 and user_id = $2", accountID, userID)
	return scanAccount(row)
}

func (s *Store) ListAccounts(ctx context.Context, tx pgx.Tx, userID string) ([]model.TradingAccount, error) {
	rows, err := tx.Query(ctx, "select "+accountColumns+" from trading_accounts where user_id = $1 order by created_at asc", userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.TradingAccount
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *Store) CreateAccount(ctx context.Context, tx pgx.Tx, userID, name, number string, active bool, mode types.BalanceMode) (model.TradingAccount, error) {
	row := tx.QueryRow(ctx, `
		insert into trading_accounts (user_id, name, account_number, is_active, active_mode)
		values ($1, $2, $3, $4, $5)
		returning `+accountColumns,
		userID, name, number, active, string(mode))
	return scanAccount(row)
}

func (s *Store) DeactivateAccounts(ctx context.Context, tx pgx.Tx, userID string) error {
	_, err := tx.Exec(ctx, "update trading_accounts set is_active = false, updated_at = now() where user_id = $1", userID)
	return err
}

func (s *Store) ActivateAccount(ctx context.Context, tx pgx.Tx, accountID string) error {
	_, err := tx.Exec(ctx, "update trading_accounts set is_active = true, updated_at = now() where id = $1", accountID)
	return err
}

func (s *Store) SetActiveMode(ctx context.Context, tx pgx.Tx, accountID string, mode types.BalanceMode) error {
	_, err := tx.Exec(ctx, "update trading_accounts set active_mode = $1, updated_at = now() where id = $2", string(mode), accountID)
	return err
}

func (s *Store) ListBalances(ctx context.Context, tx pgx.Tx, accountID string) ([]model.Balance, error) {
	rows, err := tx.Query(ctx, "select "+balanceColumns+" from balances where trading_account_id = $1 order by created_at asc", accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Balance
	for rows.Next() {
		b, err := scanBalance(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (s *Store) CreateBalance(ctx context.Context, tx pgx.Tx, accountID string, mode types.BalanceMode, initial decimal.Decimal, currency string, leverage int) (model.Balance, error) {
	row := tx.QueryRow(ctx, `
		insert into balances (trading_account_id, mode, balance, equity, margin, free_margin, margin_level, currency, leverage)
		values ($1, $2, $3, $3, 0, $3, 0, $4, $5)
		returning `+balanceColumns,
		accountID, string(mode), initial, currency, leverage)
	return scanBalance(row)
}

// BalanceForUpdate row-locks one balance. All mutating trading operations go
// through this lock so margin checks and reservations are a single atomic
// step per balance.
func (s *Store) BalanceForUpdate(ctx context.Context, tx pgx.Tx, balanceID string) (model.Balance, error) {
	row := tx.QueryRow(ctx, "select "+balanceColumns+" from balances where id = $1 for update", balanceID)
	return scanBalance(row)
}

func (s *Store) UpdateBalanceDerived(ctx context.Context, tx pgx.Tx, b model.Balance) error {
	_, err := tx.Exec(ctx, `
		update balances
		set balance = $1, equity = $2, margin = $3, free_margin = $4, margin_level = $5,
		    leverage = $6, is_auto_leverage = $7, updated_at = now()
		where id = $8`,
		b.Balance, b.Equity, b.Margin, b.FreeMargin, b.MarginLevel, b.Leverage, b.IsAutoLeverage, b.ID)
	return err
}

func (s *Store) TouchBalance(ctx context.Context, tx pgx.Tx, balanceID string, at time.Time) error {
	_, err := tx.Exec(ctx, "update balances set last_active_at = $1, updated_at = now() where id = $2", at.UTC(), balanceID)
	return err
}

func (s *Store) AppendJournal(ctx context.Context, tx pgx.Tx, balanceID string, op types.JournalOp, amount decimal.Decimal, ref string) error {
	_, err := tx.Exec(ctx, "insert into balance_journal (balance_id, op, amount, ref) values ($1, $2, $3, $4)", balanceID, string(op), amount, ref)
	return err
}
