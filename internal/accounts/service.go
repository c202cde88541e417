package accounts

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"marginfx/internal/margin"
	"marginfx/internal/model"
	"marginfx/internal/types"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const (
	defaultAccountName = "Main Account"
	minLeverage        = 1
	maxLeverage        = 1000
)

var (
	ErrAccountNotFound  = errors.New("account not found")
	ErrNoBalanceForMode = errors.New("no balance for requested mode")
)

// Defaults seed newly created accounts and balances.
type Defaults struct {
	DemoStartBalance decimal.Decimal
	Currency         string
	Leverage         int
}

type Service struct {
	pool     *pgxpool.Pool
	store    *Store
	defaults Defaults
	log      *logrus.Logger
}

func NewService(pool *pgxpool.Pool, store *Store, defaults Defaults, log *logrus.Logger) *Service {
	if defaults.Currency == "" {
		defaults.Currency = "USD"
	}
	if defaults.Leverage <= 0 {
		defaults.Leverage = 100
	}
	if !defaults.DemoStartBalance.IsPositive() {
		defaults.DemoStartBalance = decimal.NewFromInt(10000)
	}
	return &Service{pool: pool, store: store, defaults: defaults, log: log}
}

func validLeverage(leverage int) error {
	if leverage < minLeverage || leverage > maxLeverage {
		return fmt.Errorf("%w: must be between %d and %d", margin.ErrInvalidLeverage, minLeverage, maxLeverage)
	}
	return nil
}

// pickBalance selects the balance matching the account's active mode. Rows
// predating the active_mode field fall back to the most recently used
// balance.
func pickBalance(mode types.BalanceMode, balances []model.Balance) (model.Balance, bool) {
	for _, b := range balances {
		if b.Mode == mode {
			return b, true
		}
	}
	var latest model.Balance
	found := false
	for _, b := range balances {
		if !found || b.LastActiveAt.After(latest.LastActiveAt) {
			latest = b
			found = true
		}
	}
	return latest, found
}

func newAccountNumber() string {
	return fmt.Sprintf("%08d", rand.Intn(100000000))
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// resolveActive finds or creates the user's active account and its active
// balance inside the caller's transaction. When lock is true the returned
// balance row is held FOR UPDATE.
func (s *Service) resolveActive(ctx context.Context, tx pgx.Tx, userID string, lock bool) (model.TradingAccount, model.Balance, error) {
	if userID == "" {
		return model.TradingAccount{}, model.Balance{}, errors.New("user_id is required")
	}

	acct, err := s.store.ActiveAccount(ctx, tx, userID)
	if errors.Is(err, pgx.ErrNoRows) {
		acct, err = s.store.OldestAccount(ctx, tx, userID)
		if err == nil && !acct.IsActive {
			if err := s.store.ActivateAccount(ctx, tx, acct.ID); err != nil {
				return acct, model.Balance{}, err
			}
			acct.IsActive = true
		}
	}
	if errors.Is(err, pgx.ErrNoRows) {
		acct, err = s.createDefaultAccount(ctx, tx, userID)
	}
	if err != nil {
		return acct, model.Balance{}, err
	}

	balances, err := s.store.ListBalances(ctx, tx, acct.ID)
	if err != nil {
		return acct, model.Balance{}, err
	}
	if len(balances) == 0 {
		balances, err = s.seedBalances(ctx, tx, acct.ID)
		if err != nil {
			return acct, model.Balance{}, err
		}
		if acct.ActiveMode != types.BalanceModeDemo {
			if err := s.store.SetActiveMode(ctx, tx, acct.ID, types.BalanceModeDemo); err != nil {
				return acct, model.Balance{}, err
			}
			acct.ActiveMode = types.BalanceModeDemo
		}
	}

	bal, ok := pickBalance(acct.ActiveMode, balances)
	if !ok {
		return acct, model.Balance{}, errors.New("trading account has no balances")
	}
	if lock {
		bal, err = s.store.BalanceForUpdate(ctx, tx, bal.ID)
		if err != nil {
			return acct, bal, err
		}
	}
	return acct, bal, nil
}

func (s *Service) createDefaultAccount(ctx context.Context, tx pgx.Tx, userID string) (model.TradingAccount, error) {
	acct, err := s.createAccountRetrying(ctx, tx, userID, defaultAccountName, true)
	if err != nil {
		return acct, err
	}
	s.log.WithFields(logrus.Fields{"user_id": userID, "account": acct.AccountNumber}).Info("created default trading account")
	return acct, nil
}

// createAccountRetrying inserts an account with a fresh random number,
// retrying on number collisions. Each attempt runs under a savepoint via a
// nested transaction: a duplicate-key error aborts only the savepoint, so
// the outer transaction stays usable for the next attempt.
func (s *Service) createAccountRetrying(ctx context.Context, tx pgx.Tx, userID, name string, active bool) (model.TradingAccount, error) {
	var acct model.TradingAccount
	err := retryUnderSavepoint(ctx, tx, 5, func(sp pgx.Tx) error {
		var err error
		acct, err = s.store.CreateAccount(ctx, sp, userID, name, newAccountNumber(), active, types.BalanceModeDemo)
		return err
	})
	if err != nil {
		return model.TradingAccount{}, err
	}
	return acct, nil
}

func retryUnderSavepoint(ctx context.Context, tx pgx.Tx, attempts int, attempt func(pgx.Tx) error) error {
	var err error
	for i := 0; i < attempts; i++ {
		sp, spErr := tx.Begin(ctx)
		if spErr != nil {
			return spErr
		}
		err = attempt(sp)
		if err == nil {
			return sp.Commit(ctx)
		}
		sp.Rollback(ctx)
		if !isUniqueViolation(err) {
			return err
		}
	}
	return fmt.Errorf("allocate account number: %w", err)
}

// seedBalances creates the live and demo balances for a fresh account: live
// starts empty, demo is seeded so new users can trade immediately.
func (s *Service) seedBalances(ctx context.Context, tx pgx.Tx, accountID string) ([]model.Balance, error) {
	live, err := s.store.CreateBalance(ctx, tx, accountID, types.BalanceModeLive, decimal.Zero, s.defaults.Currency, s.defaults.Leverage)
	if err != nil {
		return nil, err
	}
	demo, err := s.store.CreateBalance(ctx, tx, accountID, types.BalanceModeDemo, s.defaults.DemoStartBalance, s.defaults.Currency, s.defaults.Leverage)
	if err != nil {
		return nil, err
	}
	return []model.Balance{live, demo}, nil
}

// ActiveBalance resolves the user's active account and balance in its own
// short transaction, creating defaults when none exist.
func (s *Service) ActiveBalance(ctx context.Context, userID string) (model.TradingAccount, model.Balance, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return model.TradingAccount{}, model.Balance{}, err
	}
	defer tx.Rollback(ctx)

	acct, bal, err := s.resolveActive(ctx, tx, userID, false)
	if err != nil {
		return acct, bal, err
	}
	if err := tx.Commit(ctx); err != nil {
		return acct, bal, err
	}
	return acct, bal, nil
}

// ActiveBalanceForUpdate resolves and row-locks the active balance inside the
// caller's transaction. The order lifecycle manager uses this so that "check
// free margin, then reserve margin" is one atomic step.
func (s *Service) ActiveBalanceForUpdate(ctx context.Context, tx pgx.Tx, userID string) (model.TradingAccount, model.Balance, error) {
	return s.resolveActive(ctx, tx, userID, true)
}

// SwitchMode makes the given mode (live or demo) the account's active one.
func (s *Service) SwitchMode(ctx context.Context, userID string, mode types.BalanceMode) (model.Balance, error) {
	if !mode.Valid() {
		return model.Balance{}, errors.New("mode must be live or demo")
	}
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return model.Balance{}, err
	}
	defer tx.Rollback(ctx)

	acct, _, err := s.resolveActive(ctx, tx, userID, false)
	if err != nil {
		return model.Balance{}, err
	}
	balances, err := s.store.ListBalances(ctx, tx, acct.ID)
	if err != nil {
		return model.Balance{}, err
	}
	target, ok := pickBalance(mode, balances)
	if !ok || target.Mode != mode {
		return model.Balance{}, ErrNoBalanceForMode
	}
	if err := s.store.SetActiveMode(ctx, tx, acct.ID, mode); err != nil {
		return model.Balance{}, err
	}
	if err := s.store.TouchBalance(ctx, tx, target.ID, time.Now()); err != nil {
		return model.Balance{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return model.Balance{}, err
	}
	return target, nil
}

// UpdateLeverage sets the active balance's leverage within the global 1..1000
// bound. The instrument category policy is applied on top of this value at
// order time.
func (s *Service) UpdateLeverage(ctx context.Context, userID string, leverage int, autoLeverage *bool) (model.Balance, error) {
	if err := validLeverage(leverage); err != nil {
		return model.Balance{}, err
	}
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return model.Balance{}, err
	}
	defer tx.Rollback(ctx)

	_, bal, err := s.resolveActive(ctx, tx, userID, true)
	if err != nil {
		return model.Balance{}, err
	}
	bal.Leverage = leverage
	if autoLeverage != nil {
		bal.IsAutoLeverage = *autoLeverage
	}
	if err := s.store.UpdateBalanceDerived(ctx, tx, bal); err != nil {
		return model.Balance{}, err
	}
	if err := s.store.AppendJournal(ctx, tx, bal.ID, types.JournalOpLeverage, decimal.NewFromInt(int64(leverage)), ""); err != nil {
		return model.Balance{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return model.Balance{}, err
	}
	return bal, nil
}

// List returns all the user's trading accounts, creating defaults first.
func (s *Service) List(ctx context.Context, userID string) ([]model.TradingAccount, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	if _, _, err := s.resolveActive(ctx, tx, userID, false); err != nil {
		return nil, err
	}
	out, err := s.store.ListAccounts(ctx, tx, userID)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return out, nil
}

// Create adds a named trading account with its live/demo balance pair.
func (s *Service) Create(ctx context.Context, userID, name string, makeActive bool) (model.TradingAccount, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return model.TradingAccount{}, errors.New("account name is required")
	}
	if len([]rune(name)) > 64 {
		return model.TradingAccount{}, errors.New("account name is too long (max 64 chars)")
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return model.TradingAccount{}, err
	}
	defer tx.Rollback(ctx)

	acct, err := s.createAccountRetrying(ctx, tx, userID, name, false)
	if err != nil {
		return model.TradingAccount{}, err
	}
	if _, err := s.seedBalances(ctx, tx, acct.ID); err != nil {
		return model.TradingAccount{}, err
	}
	if makeActive {
		if err := s.store.DeactivateAccounts(ctx, tx, userID); err != nil {
			return model.TradingAccount{}, err
		}
		if err := s.store.ActivateAccount(ctx, tx, acct.ID); err != nil {
			return model.TradingAccount{}, err
		}
		acct.IsActive = true
	}
	if err := tx.Commit(ctx); err != nil {
		return model.TradingAccount{}, err
	}
	return acct, nil
}

// SetActive switches the user's active trading account.
func (s *Service) SetActive(ctx context.Context, userID, accountID string) (model.TradingAccount, error) {
	if accountID == "" {
		return model.TradingAccount{}, errors.New("account_id is required")
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return model.TradingAccount{}, err
	}
	defer tx.Rollback(ctx)

	acct, err := s.store.AccountByID(ctx, tx, userID, accountID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.TradingAccount{}, ErrAccountNotFound
		}
		return model.TradingAccount{}, err
	}
	if err := s.store.DeactivateAccounts(ctx, tx, userID); err != nil {
		return model.TradingAccount{}, err
	}
	if err := s.store.ActivateAccount(ctx, tx, acct.ID); err != nil {
		return model.TradingAccount{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return model.TradingAccount{}, err
	}
	acct.IsActive = true
	return acct, nil
}
