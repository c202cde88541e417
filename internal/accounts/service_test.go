package accounts

import (
	"context"
	"errors"
	"testing"
	"time"

	"marginfx/internal/margin"
	"marginfx/internal/model"
	"marginfx/internal/types"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sirupsen/logrus"
)

func TestPickBalance(t *testing.T) {
	now := time.Now()
	live := model.Balance{ID: "b-live", Mode: types.BalanceModeLive, LastActiveAt: now.Add(-time.Hour)}
	demo := model.Balance{ID: "b-demo", Mode: types.BalanceModeDemo, LastActiveAt: now}

	got, ok := pickBalance(types.BalanceModeLive, []model.Balance{demo, live})
	if !ok || got.ID != "b-live" {
		t.Fatalf("expected live balance, got %+v ok=%v", got, ok)
	}

	got, ok = pickBalance(types.BalanceModeDemo, []model.Balance{demo, live})
	if !ok || got.ID != "b-demo" {
		t.Fatalf("expected demo balance, got %+v ok=%v", got, ok)
	}
}

func TestPickBalanceFallsBackToMostRecent(t *testing.T) {
	now := time.Now()
	older := model.Balance{ID: "b-older", Mode: types.BalanceModeLive, LastActiveAt: now.Add(-time.Hour)}
	newer := model.Balance{ID: "b-newer", Mode: types.BalanceModeLive, LastActiveAt: now}

	// No balance matches the requested mode; the most recently used one wins.
	got, ok := pickBalance(types.BalanceModeDemo, []model.Balance{older, newer})
	if !ok || got.ID != "b-newer" {
		t.Fatalf("expected most recent balance, got %+v ok=%v", got, ok)
	}

	if _, ok := pickBalance(types.BalanceModeDemo, nil); ok {
		t.Fatal("expected no balance for empty slice")
	}
}

func TestValidLeverage(t *testing.T) {
	if err := validLeverage(1); err != nil {
		t.Fatalf("leverage 1 rejected: %v", err)
	}
	if err := validLeverage(1000); err != nil {
		t.Fatalf("leverage 1000 rejected: %v", err)
	}
	for _, lev := range []int{0, -5, 1001} {
		err := validLeverage(lev)
		if err == nil {
			t.Fatalf("leverage %d accepted", lev)
		}
		// Callers map this sentinel to a 400.
		if !errors.Is(err, margin.ErrInvalidLeverage) {
			t.Fatalf("leverage %d error %v does not wrap ErrInvalidLeverage", lev, err)
		}
	}
}

// savepointTx records nested-transaction traffic. Methods not overridden
// panic via the embedded nil interface, which is fine: retryUnderSavepoint
// only begins savepoints and commits or rolls them back.
type savepointTx struct {
	pgx.Tx
	committed int
	rolled    int
}

func (f *savepointTx) Begin(ctx context.Context) (pgx.Tx, error) {
	return &nestedTx{parent: f}, nil
}

type nestedTx struct {
	pgx.Tx
	parent *savepointTx
}

func (n *nestedTx) Commit(ctx context.Context) error   { n.parent.committed++; return nil }
func (n *nestedTx) Rollback(ctx context.Context) error { n.parent.rolled++; return nil }

func TestRetryUnderSavepoint(t *testing.T) {
	ctx := context.Background()
	dup := &pgconn.PgError{Code: "23505"}

	t.Run("collisions retry until success", func(t *testing.T) {
		tx := &savepointTx{}
		calls := 0
		err := retryUnderSavepoint(ctx, tx, 5, func(pgx.Tx) error {
			calls++
			if calls < 3 {
				return dup
			}
			return nil
		})
		if err != nil {
			t.Fatalf("retry failed: %v", err)
		}
		if calls != 3 {
			t.Fatalf("expected 3 attempts, got %d", calls)
		}
		// Each failed attempt must release its savepoint so the outer
		// transaction is not left aborted for the next insert.
		if tx.rolled != 2 || tx.committed != 1 {
			t.Fatalf("expected 2 rollbacks and 1 commit, got %d/%d", tx.rolled, tx.committed)
		}
	})

	t.Run("other errors stop retrying", func(t *testing.T) {
		tx := &savepointTx{}
		boom := errors.New("connection lost")
		calls := 0
		err := retryUnderSavepoint(ctx, tx, 5, func(pgx.Tx) error {
			calls++
			return boom
		})
		if !errors.Is(err, boom) {
			t.Fatalf("expected original error, got %v", err)
		}
		if calls != 1 || tx.rolled != 1 || tx.committed != 0 {
			t.Fatalf("expected a single rolled-back attempt, got calls=%d rolled=%d committed=%d", calls, tx.rolled, tx.committed)
		}
	})

	t.Run("exhausted attempts keep the cause", func(t *testing.T) {
		tx := &savepointTx{}
		err := retryUnderSavepoint(ctx, tx, 5, func(pgx.Tx) error { return dup })
		if err == nil || !isUniqueViolation(err) {
			t.Fatalf("expected wrapped unique violation, got %v", err)
		}
		if tx.rolled != 5 {
			t.Fatalf("expected 5 rollbacks, got %d", tx.rolled)
		}
	})
}

func TestCreateRejectsBadNames(t *testing.T) {
	// Validation runs before any transaction is opened.
	s := NewService(nil, nil, Defaults{}, logrus.New())
	if _, err := s.Create(context.Background(), "u1", "   ", false); err == nil {
		t.Fatal("expected blank name to be rejected")
	}
	long := make([]rune, 65)
	for i := range long {
		long[i] = 'x'
	}
	if _, err := s.Create(context.Background(), "u1", string(long), false); err == nil {
		t.Fatal("expected over-long name to be rejected")
	}
}

func TestNewAccountNumber(t *testing.T) {
	for i := 0; i < 100; i++ {
		n := newAccountNumber()
		if len(n) != 8 {
			t.Fatalf("account number %q is not 8 digits", n)
		}
		for _, r := range n {
			if r < '0' || r > '9' {
				t.Fatalf("account number %q contains non-digit", n)
			}
		}
	}
}
