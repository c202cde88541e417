package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"marginfx/internal/accounts"
	"marginfx/internal/instrument"
	"marginfx/internal/margin"
	"marginfx/internal/model"
	"marginfx/internal/quotes"
	"marginfx/internal/types"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Service drives order state transitions and keeps the owning balance's
// margin fields consistent. Every mutating path runs in one serializable
// transaction holding the balance row lock, so margin checks and the write
// that follows are a single atomic step per balance.
type Service struct {
	pool         *pgxpool.Pool
	store        *Store
	accountSvc   *accounts.Service
	balanceStore *accounts.Store
	market       *quotes.Service
	quoteTimeout time.Duration
	log          *logrus.Logger
}

func NewService(pool *pgxpool.Pool, store *Store, accountSvc *accounts.Service, balanceStore *accounts.Store, market *quotes.Service, quoteTimeout time.Duration, log *logrus.Logger) *Service {
	if quoteTimeout <= 0 {
		quoteTimeout = 2 * time.Second
	}
	return &Service{
		pool:         pool,
		store:        store,
		accountSvc:   accountSvc,
		balanceStore: balanceStore,
		market:       market,
		quoteTimeout: quoteTimeout,
		log:          log,
	}
}

func contractSizeFor(symbol string) decimal.Decimal {
	return instrument.ContractSize(symbol, instrument.Classify(symbol))
}

type PlaceOrderRequest struct {
	UserID     string
	Symbol     string
	Side       types.OrderSide
	Volume     decimal.Decimal
	EntryPrice decimal.Decimal
	StopLoss   *decimal.Decimal
	TakeProfit *decimal.Decimal
}

// Place validates the request, reserves margin on the active balance and
// persists the order as open. Validation failures leave all state untouched.
func (s *Service) Place(ctx context.Context, req PlaceOrderRequest) (model.Order, error) {
	if err := validatePlaceParams(req.Symbol, req.Side, req.Volume, req.EntryPrice, req.StopLoss, req.TakeProfit); err != nil {
		return model.Order{}, err
	}

	category := instrument.Classify(req.Symbol)
	contractSize := instrument.ContractSize(req.Symbol, category)

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return model.Order{}, err
	}
	defer tx.Rollback(ctx)

	_, bal, err := s.accountSvc.ActiveBalanceForUpdate(ctx, tx, req.UserID)
	if err != nil {
		return model.Order{}, err
	}

	leverage := instrument.EffectiveLeverage(bal.Leverage, bal.IsAutoLeverage, category)
	required, err := margin.RequiredMargin(req.Volume, contractSize, req.EntryPrice, leverage)
	if err != nil {
		return model.Order{}, err
	}

	openOrders, err := s.store.OpenByBalance(ctx, tx, bal.ID)
	if err != nil {
		return model.Order{}, err
	}
	bal, _ = margin.Recompute(bal, openOrders, s.market.QuoteFunc(), contractSizeFor)
	if !sufficientMargin(required, bal.FreeMargin) {
		return model.Order{}, &InsufficientMarginError{Required: required, Available: bal.FreeMargin}
	}

	order := model.Order{
		BalanceID:    bal.ID,
		Symbol:       req.Symbol,
		Side:         req.Side,
		Volume:       req.Volume,
		EntryPrice:   req.EntryPrice,
		CurrentPrice: req.EntryPrice,
		StopLoss:     req.StopLoss,
		TakeProfit:   req.TakeProfit,
		Status:       types.OrderStatusOpen,
		Profit:       decimal.Zero,
		Margin:       required,
	}
	order, err = s.store.Create(ctx, tx, order)
	if err != nil {
		return model.Order{}, err
	}

	// Equity is unchanged at open time; only the reserved margin moves.
	bal.Margin = bal.Margin.Add(required)
	bal.FreeMargin = bal.Equity.Sub(bal.Margin)
	bal.MarginLevel = marginLevel(bal.Equity, bal.Margin)
	if err := s.balanceStore.UpdateBalanceDerived(ctx, tx, bal); err != nil {
		return model.Order{}, err
	}
	if err := s.balanceStore.TouchBalance(ctx, tx, bal.ID, time.Now()); err != nil {
		return model.Order{}, err
	}
	if err := s.balanceStore.AppendJournal(ctx, tx, bal.ID, types.JournalOpMarginReserve, required, order.ID); err != nil {
		return model.Order{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return model.Order{}, err
	}

	s.log.WithFields(logrus.Fields{
		"order_id": order.ID,
		"symbol":   order.Symbol,
		"side":     order.Side,
		"volume":   order.Volume.String(),
		"margin":   required.String(),
	}).Info("order opened")
	return order, nil
}

// Close realizes the order's profit at closePrice, releases its margin and
// freezes the order. Closing a non-open order is rejected and leaves the
// balance unchanged.
func (s *Service) Close(ctx context.Context, userID, orderID string, closePrice decimal.Decimal) (model.Order, error) {
	if !closePrice.IsPositive() {
		return model.Order{}, fmt.Errorf("%w: close price must be positive", ErrInvalidOrderParameters)
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return model.Order{}, err
	}
	defer tx.Rollback(ctx)

	order, ownerID, err := s.store.GetForUpdate(ctx, tx, orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Order{}, ErrOrderNotFound
		}
		return model.Order{}, err
	}
	if ownerID != userID {
		return model.Order{}, ErrOrderNotFound
	}
	if order.Status != types.OrderStatusOpen {
		return model.Order{}, ErrOrderNotOpen
	}

	bal, err := s.balanceStore.BalanceForUpdate(ctx, tx, order.BalanceID)
	if err != nil {
		return model.Order{}, err
	}

	profit := margin.UnrealizedProfit(order.Side, order.EntryPrice, closePrice, order.Volume, contractSizeFor(order.Symbol))
	closedAt := time.Now().UTC()
	if err := s.store.MarkClosed(ctx, tx, order.ID, profit, closePrice, closedAt); err != nil {
		return model.Order{}, err
	}

	bal.Balance = bal.Balance.Add(profit)
	openOrders, err := s.store.OpenByBalance(ctx, tx, bal.ID)
	if err != nil {
		return model.Order{}, err
	}
	bal, _ = margin.Recompute(bal, openOrders, s.market.QuoteFunc(), contractSizeFor)
	if err := s.balanceStore.UpdateBalanceDerived(ctx, tx, bal); err != nil {
		return model.Order{}, err
	}
	if err := s.balanceStore.TouchBalance(ctx, tx, bal.ID, closedAt); err != nil {
		return model.Order{}, err
	}
	if err := s.balanceStore.AppendJournal(ctx, tx, bal.ID, types.JournalOpProfitRealize, profit, order.ID); err != nil {
		return model.Order{}, err
	}
	if err := s.balanceStore.AppendJournal(ctx, tx, bal.ID, types.JournalOpMarginRelease, order.Margin, order.ID); err != nil {
		return model.Order{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return model.Order{}, err
	}

	order.Status = types.OrderStatusClosed
	order.Profit = profit
	order.ClosePrice = &closePrice
	order.CurrentPrice = closePrice
	order.ClosedAt = &closedAt

	s.log.WithFields(logrus.Fields{
		"order_id": order.ID,
		"symbol":   order.Symbol,
		"profit":   profit.String(),
	}).Info("order closed")
	return order, nil
}

// Modify updates the protective levels of an open order. The side-relative
// inequalities are re-validated against the stored entry price; modification
// never changes entry price or volume, so no margin recalculation is needed.
// A zero value clears the corresponding level.
func (s *Service) Modify(ctx context.Context, userID, orderID string, stopLoss, takeProfit *decimal.Decimal) (model.Order, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return model.Order{}, err
	}
	defer tx.Rollback(ctx)

	order, ownerID, err := s.store.GetForUpdate(ctx, tx, orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Order{}, ErrOrderNotFound
		}
		return model.Order{}, err
	}
	if ownerID != userID {
		return model.Order{}, ErrOrderNotFound
	}
	if order.Status != types.OrderStatusOpen {
		return model.Order{}, ErrOrderNotOpen
	}

	nextSL := applyLevel(order.StopLoss, stopLoss)
	nextTP := applyLevel(order.TakeProfit, takeProfit)
	if err := validateStops(order.Side, order.EntryPrice, nextSL, nextTP); err != nil {
		return model.Order{}, err
	}

	order, err = s.store.UpdateStops(ctx, tx, order.ID, nextSL, nextTP)
	if err != nil {
		return model.Order{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return model.Order{}, err
	}
	return order, nil
}

func applyLevel(current, requested *decimal.Decimal) *decimal.Decimal {
	if requested == nil {
		return current
	}
	if requested.IsZero() {
		return nil
	}
	return requested
}

// Reset cancels every open order of the active balance without realizing
// profit and reinitializes the balance.
func (s *Service) Reset(ctx context.Context, userID string, initialBalance decimal.Decimal, leverage int, autoLeverage *bool) (model.Balance, error) {
	if initialBalance.IsNegative() {
		return model.Balance{}, fmt.Errorf("%w: initial balance must not be negative", ErrInvalidOrderParameters)
	}
	if leverage < 1 || leverage > 1000 {
		return model.Balance{}, margin.ErrInvalidLeverage
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return model.Balance{}, err
	}
	defer tx.Rollback(ctx)

	_, bal, err := s.accountSvc.ActiveBalanceForUpdate(ctx, tx, userID)
	if err != nil {
		return model.Balance{}, err
	}

	cancelled, err := s.store.CancelOpenByBalance(ctx, tx, bal.ID, time.Now())
	if err != nil {
		return model.Balance{}, err
	}

	bal.Balance = initialBalance
	bal.Equity = initialBalance
	bal.Margin = decimal.Zero
	bal.FreeMargin = initialBalance
	bal.MarginLevel = decimal.Zero
	bal.Leverage = leverage
	if autoLeverage != nil {
		bal.IsAutoLeverage = *autoLeverage
	}
	if err := s.balanceStore.UpdateBalanceDerived(ctx, tx, bal); err != nil {
		return model.Balance{}, err
	}
	if err := s.balanceStore.AppendJournal(ctx, tx, bal.ID, types.JournalOpReset, initialBalance, uuid.NewString()); err != nil {
		return model.Balance{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return model.Balance{}, err
	}

	s.log.WithFields(logrus.Fields{
		"balance_id": bal.ID,
		"cancelled":  cancelled,
		"balance":    initialBalance.String(),
	}).Info("account reset")
	return bal, nil
}

// Snapshot returns the active balance with its derived fields recomputed
// against the freshest quotes. This is an advisory read: it takes no balance
// lock and tolerates stale prices.
func (s *Service) Snapshot(ctx context.Context, userID string) (model.Balance, error) {
	_, bal, err := s.accountSvc.ActiveBalance(ctx, userID)
	if err != nil {
		return model.Balance{}, err
	}
	openOrders, err := s.readOrders(ctx, bal.ID, "open")
	if err != nil {
		return model.Balance{}, err
	}
	s.refreshQuotes(ctx, openOrders)
	bal, _ = margin.Recompute(bal, openOrders, s.market.QuoteFunc(), contractSizeFor)
	return bal, nil
}

// List returns the active balance's orders. Open orders get their current
// price and profit refreshed against live quotes first; a missing quote keeps
// the stored price and never fails the listing.
func (s *Service) List(ctx context.Context, userID, status string) ([]model.Order, error) {
	if status != "open" && status != "closed" && status != "all" && status != "" {
		return nil, fmt.Errorf("%w: status must be open, closed or all", ErrInvalidOrderParameters)
	}
	_, bal, err := s.accountSvc.ActiveBalance(ctx, userID)
	if err != nil {
		return nil, err
	}
	list, err := s.readOrders(ctx, bal.ID, status)
	if err != nil {
		return nil, err
	}

	var open []model.Order
	for _, o := range list {
		if o.IsOpen() {
			open = append(open, o)
		}
	}
	s.refreshQuotes(ctx, open)
	quote := s.market.QuoteFunc()
	for i, o := range list {
		if !o.IsOpen() {
			continue
		}
		if q, ok := quote(o.Symbol); ok {
			list[i].CurrentPrice = margin.MarkPrice(o.Side, q)
		}
		list[i].Profit = margin.UnrealizedProfit(o.Side, o.EntryPrice, list[i].CurrentPrice, o.Volume, contractSizeFor(o.Symbol))
	}
	return list, nil
}

func (s *Service) readOrders(ctx context.Context, balanceID, status string) ([]model.Order, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)
	list, err := s.store.ListByBalance(ctx, tx, balanceID, status)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return list, nil
}

func (s *Service) refreshQuotes(ctx context.Context, open []model.Order) {
	if len(open) == 0 {
		return
	}
	symbols := make([]string, 0, len(open))
	for _, o := range open {
		symbols = append(symbols, o.Symbol)
	}
	s.market.RefreshMany(ctx, symbols, s.quoteTimeout)
}

// sufficientMargin reports whether free margin covers the new order's
// requirement. An exact match counts as covered.
func sufficientMargin(required, free decimal.Decimal) bool {
	return !required.GreaterThan(free)
}

func marginLevel(equity, reserved decimal.Decimal) decimal.Decimal {
	if !reserved.GreaterThan(decimal.Zero) {
		return decimal.Zero
	}
	return equity.Div(reserved).Mul(decimal.NewFromInt(100))
}
