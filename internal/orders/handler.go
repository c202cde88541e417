package orders

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"marginfx/internal/httputil"
	"marginfx/internal/margin"
	"marginfx/internal/model"
	"marginfx/internal/types"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func statusForError(err error) int {
	var insufficient *InsufficientMarginError
	switch {
	case errors.Is(err, ErrOrderNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrOrderNotOpen):
		return http.StatusConflict
	case errors.As(err, &insufficient):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrInvalidOrderParameters), errors.Is(err, margin.ErrInvalidLeverage):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeServiceError(w http.ResponseWriter, err error) {
	status := statusForError(err)
	if status == http.StatusInternalServerError {
		httputil.WriteError(w, status, "internal error")
		return
	}
	httputil.WriteError(w, status, err.Error())
}

type orderResponse struct {
	ID           string  `json:"id"`
	Symbol       string  `json:"symbol"`
	Side         string  `json:"side"`
	Volume       string  `json:"volume"`
	EntryPrice   string  `json:"entryPrice"`
	CurrentPrice string  `json:"currentPrice"`
	StopLoss     *string `json:"stopLoss"`
	TakeProfit   *string `json:"takeProfit"`
	Status       string  `json:"status"`
	Profit       string  `json:"profit"`
	ClosePrice   *string `json:"closePrice"`
	Margin       string  `json:"margin"`
	CreatedAt    string  `json:"createdAt"`
	ClosedAt     *string `json:"closedAt"`
}

func toOrderResponse(o model.Order) orderResponse {
	res := orderResponse{
		ID:           o.ID,
		Symbol:       o.Symbol,
		Side:         string(o.Side),
		Volume:       o.Volume.String(),
		EntryPrice:   o.EntryPrice.String(),
		CurrentPrice: o.CurrentPrice.String(),
		Status:       string(o.Status),
		Profit:       o.Profit.String(),
		Margin:       o.Margin.String(),
		CreatedAt:    o.CreatedAt.UTC().Format(time.RFC3339),
	}
	if o.StopLoss != nil {
		s := o.StopLoss.String()
		res.StopLoss = &s
	}
	if o.TakeProfit != nil {
		s := o.TakeProfit.String()
		res.TakeProfit = &s
	}
	if o.ClosePrice != nil {
		s := o.ClosePrice.String()
		res.ClosePrice = &s
	}
	if o.ClosedAt != nil {
		s := o.ClosedAt.UTC().Format(time.RFC3339)
		res.ClosedAt = &s
	}
	return res
}

// The wire field for the order side is named "type" for client compatibility.
type placeOrderRequest struct {
	Symbol     string `json:"symbol"`
	Side       string `json:"type"`
	Volume     string `json:"volume"`
	EntryPrice string `json:"entryPrice"`
	StopLoss   string `json:"stopLoss"`
	TakeProfit string `json:"takeProfit"`
}

func parseOptionalDecimal(raw, name string) (*decimal.Decimal, error) {
	if raw == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, errors.New("invalid " + name)
	}
	return &d, nil
}

func (h *Handler) Place(w http.ResponseWriter, r *http.Request, userID string) {
	var req placeOrderRequest
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request")
		return
	}
	volume, err := decimal.NewFromString(req.Volume)
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid volume")
		return
	}
	entryPrice, err := decimal.NewFromString(req.EntryPrice)
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid entryPrice")
		return
	}
	stopLoss, err := parseOptionalDecimal(req.StopLoss, "stopLoss")
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	takeProfit, err := parseOptionalDecimal(req.TakeProfit, "takeProfit")
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	order, err := h.svc.Place(r.Context(), PlaceOrderRequest{
		UserID:     userID,
		Symbol:     strings.ToUpper(strings.TrimSpace(req.Symbol)),
		Side:       types.OrderSide(strings.ToLower(req.Side)),
		Volume:     volume,
		EntryPrice: entryPrice,
		StopLoss:   stopLoss,
		TakeProfit: takeProfit,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toOrderResponse(order))
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request, userID string) {
	status := r.URL.Query().Get("status")
	list, err := h.svc.List(r.Context(), userID, status)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	out := make([]orderResponse, 0, len(list))
	for _, o := range list {
		out = append(out, toOrderResponse(o))
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) Close(w http.ResponseWriter, r *http.Request, userID string) {
	orderID := chi.URLParam(r, "id")
	raw := r.URL.Query().Get("closePrice")
	if raw == "" {
		httputil.WriteError(w, http.StatusBadRequest, "closePrice is required")
		return
	}
	closePrice, err := decimal.NewFromString(raw)
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid closePrice")
		return
	}
	order, err := h.svc.Close(r.Context(), userID, orderID, closePrice)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toOrderResponse(order))
}

type modifyOrderRequest struct {
	StopLoss   *string `json:"stopLoss"`
	TakeProfit *string `json:"takeProfit"`
}

func (h *Handler) Modify(w http.ResponseWriter, r *http.Request, userID string) {
	orderID := chi.URLParam(r, "id")
	var req modifyOrderRequest
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request")
		return
	}
	var stopLoss, takeProfit *decimal.Decimal
	if req.StopLoss != nil {
		d, err := decimal.NewFromString(*req.StopLoss)
		if err != nil {
			httputil.WriteError(w, http.StatusBadRequest, "invalid stopLoss")
			return
		}
		stopLoss = &d
	}
	if req.TakeProfit != nil {
		d, err := decimal.NewFromString(*req.TakeProfit)
		if err != nil {
			httputil.WriteError(w, http.StatusBadRequest, "invalid takeProfit")
			return
		}
		takeProfit = &d
	}
	order, err := h.svc.Modify(r.Context(), userID, orderID, stopLoss, takeProfit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toOrderResponse(order))
}

type balanceResponse struct {
	ID             string `json:"id"`
	Mode           string `json:"mode"`
	Balance        string `json:"balance"`
	Equity         string `json:"equity"`
	Margin         string `json:"margin"`
	FreeMargin     string `json:"freeMargin"`
	MarginLevel    string `json:"marginLevel"`
	Currency       string `json:"currency"`
	Leverage       int    `json:"leverage"`
	IsAutoLeverage bool   `json:"isAutoLeverage"`
}

func toBalanceResponse(b model.Balance) balanceResponse {
	return balanceResponse{
		ID:             b.ID,
		Mode:           string(b.Mode),
		Balance:        b.Balance.String(),
		Equity:         b.Equity.String(),
		Margin:         b.Margin.String(),
		FreeMargin:     b.FreeMargin.String(),
		MarginLevel:    b.MarginLevel.String(),
		Currency:       b.Currency,
		Leverage:       b.Leverage,
		IsAutoLeverage: b.IsAutoLeverage,
	}
}

// Snapshot serves GET /v1/account: the active balance with derived fields
// recomputed against current quotes.
func (h *Handler) Snapshot(w http.ResponseWriter, r *http.Request, userID string) {
	bal, err := h.svc.Snapshot(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toBalanceResponse(bal))
}

type resetRequest struct {
	InitialBalance string `json:"initialBalance"`
	Leverage       int    `json:"leverage"`
	IsAutoLeverage *bool  `json:"isAutoLeverage"`
}

func (h *Handler) Reset(w http.ResponseWriter, r *http.Request, userID string) {
	var req resetRequest
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request")
		return
	}
	initial, err := decimal.NewFromString(req.InitialBalance)
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid initialBalance")
		return
	}
	bal, err := h.svc.Reset(r.Context(), userID, initial, req.Leverage, req.IsAutoLeverage)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toBalanceResponse(bal))
}
