// Package health exposes the liveness endpoint with database and quote feed
// diagnostics.
package health

import (
	"context"
	"net/http"
	"time"

	"marginfx/internal/httputil"
	"marginfx/internal/quotes"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Handler struct {
	pool      *pgxpool.Pool
	cache     *quotes.Cache
	startedAt time.Time
}

func NewHandler(pool *pgxpool.Pool, cache *quotes.Cache, startedAt time.Time) *Handler {
	start := startedAt.UTC()
	if start.IsZero() {
		start = time.Now().UTC()
	}
	return &Handler{pool: pool, cache: cache, startedAt: start}
}

type healthResponse struct {
	Status    string        `json:"status"`
	Timestamp string        `json:"timestamp"`
	UptimeSec int64         `json:"uptime_sec"`
	Database  databaseStats `json:"database"`
	Quotes    quoteStats    `json:"quotes"`
}

type databaseStats struct {
	Reachable     bool   `json:"reachable"`
	PingMs        int64  `json:"ping_ms"`
	Error         string `json:"error,omitempty"`
	TotalConns    int32  `json:"total_conns"`
	IdleConns     int32  `json:"idle_conns"`
	AcquiredConns int32  `json:"acquired_conns"`
}

type quoteStats struct {
	LastTickAgoMs int64 `json:"last_tick_ago_ms"`
	EverTicked    bool  `json:"ever_ticked"`
}

func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	now := time.Now().UTC()
	res := healthResponse{
		Status:    "ok",
		Timestamp: now.Format(time.RFC3339),
		UptimeSec: int64(now.Sub(h.startedAt).Seconds()),
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	start := time.Now()
	if err := h.pool.Ping(ctx); err != nil {
		res.Status = "degraded"
		res.Database.Error = err.Error()
	} else {
		res.Database.Reachable = true
	}
	res.Database.PingMs = time.Since(start).Milliseconds()
	stat := h.pool.Stat()
	res.Database.TotalConns = stat.TotalConns()
	res.Database.IdleConns = stat.IdleConns()
	res.Database.AcquiredConns = stat.AcquiredConns()

	if last := h.cache.LastUpdate(); !last.IsZero() {
		res.Quotes.EverTicked = true
		res.Quotes.LastTickAgoMs = time.Since(last).Milliseconds()
	}

	status := http.StatusOK
	if res.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	httputil.WriteJSON(w, status, res)
}
