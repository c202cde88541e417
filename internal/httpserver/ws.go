package httpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"marginfx/internal/auth"
	"marginfx/internal/orders"
	"marginfx/internal/quotes"

	"github.com/gorilla/websocket"
)

// WSHandler streams quote ticks to the client and, on demand, the account
// snapshot recomputed against each tick.
type WSHandler struct {
	bus      *quotes.Bus
	authSvc  *auth.Service
	orderSvc *orders.Service
	origin   string
	upgrader websocket.Upgrader
}

func NewWSHandler(bus *quotes.Bus, authSvc *auth.Service, orderSvc *orders.Service, origin string) *WSHandler {
	return &WSHandler{
		bus:      bus,
		authSvc:  authSvc,
		orderSvc: orderSvc,
		origin:   origin,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return allowOrigin(r, origin) },
		},
	}
}

type wsControlMessage struct {
	Type    string `json:"type"`
	Enabled *bool  `json:"enabled,omitempty"`
}

type accountSnapshotWS struct {
	Balance     string `json:"balance"`
	Equity      string `json:"equity"`
	Margin      string `json:"margin"`
	FreeMargin  string `json:"freeMargin"`
	MarginLevel string `json:"marginLevel"`
	TS          int64  `json:"ts"`
}

func allowOrigin(r *http.Request, origin string) bool {
	if origin == "*" {
		return true
	}
	reqOrigin := r.Header.Get("Origin")
	if strings.Contains(origin, "localhost") || strings.Contains(origin, "127.0.0.1") {
		if strings.Contains(reqOrigin, "localhost") || strings.Contains(reqOrigin, "127.0.0.1") {
			return true
		}
	}
	return strings.EqualFold(reqOrigin, origin)
}

func (h *WSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Browsers cannot set headers on WS handshakes, so the token rides in the
	// query string.
	token := r.URL.Query().Get("token")
	if token == "" {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}
	userID, err := h.authSvc.ParseToken(token)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()
	sub := h.bus.Subscribe()
	defer h.bus.Unsubscribe(sub)

	var snapshotMu sync.RWMutex
	snapshotEnabled := false
	lastSnapshotAt := time.Time{}
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			_, payload, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var ctrl wsControlMessage
			if err := json.Unmarshal(payload, &ctrl); err != nil {
				continue
			}
			switch strings.ToLower(strings.TrimSpace(ctrl.Type)) {
			case "account_subscribe":
				next := true
				if ctrl.Enabled != nil {
					next = *ctrl.Enabled
				}
				snapshotMu.Lock()
				snapshotEnabled = next
				snapshotMu.Unlock()
			case "account_unsubscribe":
				snapshotMu.Lock()
				snapshotEnabled = false
				snapshotMu.Unlock()
			}
		}
	}()
	for {
		select {
		case evt := <-sub:
			if err := conn.WriteJSON(evt); err != nil {
				return
			}
			if evt.Type != "quote" {
				continue
			}
			snapshotMu.RLock()
			enabled := snapshotEnabled
			snapshotMu.RUnlock()
			if !enabled {
				continue
			}
			// Throttle snapshot recomputation; quote ticks arrive per symbol.
			if !lastSnapshotAt.IsZero() && time.Since(lastSnapshotAt) < 200*time.Millisecond {
				continue
			}
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			bal, err := h.orderSvc.Snapshot(ctx, userID)
			cancel()
			if err != nil {
				continue
			}
			snapshot := accountSnapshotWS{
				Balance:     bal.Balance.String(),
				Equity:      bal.Equity.String(),
				Margin:      bal.Margin.String(),
				FreeMargin:  bal.FreeMargin.String(),
				MarginLevel: bal.MarginLevel.String(),
				TS:          time.Now().UnixMilli(),
			}
			if err := conn.WriteJSON(quotes.Event{Type: "account", Data: snapshot}); err != nil {
				return
			}
			lastSnapshotAt = time.Now()
		case <-done:
			return
		}
	}
}
