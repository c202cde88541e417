package accounts

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
	"github.com/jackc/pgx/v5"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrAccountNotFound), errors.Is(err, pgx.ErrNoRows):
		httputil.WriteError(w, http.StatusNotFound, ErrAccountNotFound.Error())
	case errors.Is(err, ErrNoBalanceForMode), errors.Is(err, margin.ErrInvalidLeverage):
		httputil.WriteError(w, http.StatusBadRequest, err.Error())
	default:
		httputil.WriteError(w, http.StatusInternalServerError, "internal error")
	}
}

type accountResponse struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	AccountNumber string `json:"accountNumber"`
	IsActive      bool   `json:"isActive"`
	ActiveMode    string `json:"activeMode"`
	CreatedAt     string `json:"createdAt"`
}

func toAccountResponse(a model.TradingAccount) accountResponse {
	return accountResponse{
		ID:            a.ID,
		Name:          a.Name,
		AccountNumber: a.AccountNumber,
		IsActive:      a.IsActive,
		ActiveMode:    string(a.ActiveMode),
		CreatedAt:     a.CreatedAt.UTC().Format(time.RFC3339),
	}
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

func (h *Handler) List(w http.ResponseWriter, r *http.Request, userID string) {
	list, err := h.svc.List(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	out := make([]accountResponse, 0, len(list))
	for _, a := range list {
		out = append(out, toAccountResponse(a))
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

type createAccountRequest struct {
	Name       string `json:"name"`
	MakeActive bool   `json:"makeActive"`
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request, userID string) {
	var req createAccountRequest
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request")
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		httputil.WriteError(w, http.StatusBadRequest, "name is required")
		return
	}
	acct, err := h.svc.Create(r.Context(), userID, name, req.MakeActive)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toAccountResponse(acct))
}

func (h *Handler) Activate(w http.ResponseWriter, r *http.Request, userID string) {
	accountID := chi.URLParam(r, "id")
	acct, err := h.svc.SetActive(r.Context(), userID, accountID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toAccountResponse(acct))
}

type switchModeRequest struct {
	Mode string `json:"mode"`
}

func (h *Handler) SwitchMode(w http.ResponseWriter, r *http.Request, userID string) {
	var req switchModeRequest
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request")
		return
	}
	mode := types.BalanceMode(strings.ToLower(req.Mode))
	if !mode.Valid() {
		httputil.WriteError(w, http.StatusBadRequest, "mode must be live or demo")
		return
	}
	bal, err := h.svc.SwitchMode(r.Context(), userID, mode)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toBalanceResponse(bal))
}

type updateLeverageRequest struct {
	Leverage       int   `json:"leverage"`
	IsAutoLeverage *bool `json:"isAutoLeverage"`
}

func (h *Handler) UpdateLeverage(w http.ResponseWriter, r *http.Request, userID string) {
	var req updateLeverageRequest
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request")
		return
	}
	bal, err := h.svc.UpdateLeverage(r.Context(), userID, req.Leverage, req.IsAutoLeverage)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toBalanceResponse(bal))
}
