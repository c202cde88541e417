// Package quotes talks to the external quote bridge and keeps an in-process
// last-good cache of ticks. The bridge is best effort: a failed or slow fetch
// for one symbol never fails the caller, which keeps serving the previous
// price.
package quotes

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
)

// Quote is one tick from the bridge.
type Quote struct {
	Symbol     string          `json:"symbol"`
	Bid        decimal.Decimal `json:"bid"`
	Ask        decimal.Decimal `json:"ask"`
	Time       time.Time       `json:"time"`
	MarketOpen bool            `json:"market_open"`
}

// Source answers the latest quote for a symbol.
type Source interface {
	GetQuote(ctx context.Context, symbol string) (Quote, error)
}

type Client struct {
	http *resty.Client
}

// NewClient builds a bridge client with a hard per-request timeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	c := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")
	return &Client{http: c}
}

type quotePayload struct {
	Symbol     string   `json:"symbol"`
	Bid        float64  `json:"bid"`
	Ask        float64  `json:"ask"`
	Time       int64    `json:"time"`
	MarketOpen *bool    `json:"market_open"`
	Flags      *int     `json:"flags"`
	Last       *float64 `json:"last"`
}

func (c *Client) GetQuote(ctx context.Context, symbol string) (Quote, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("symbol", symbol).
		Get("/quote/{symbol}")
	if err != nil {
		return Quote{}, fmt.Errorf("quote fetch %s: %w", symbol, err)
	}
	if resp.IsError() {
		return Quote{}, fmt.Errorf("quote fetch %s: status %d", symbol, resp.StatusCode())
	}
	var p quotePayload
	if err := json.Unmarshal(resp.Body(), &p); err != nil {
		return Quote{}, fmt.Errorf("quote decode %s: %w", symbol, err)
	}
	if p.Bid <= 0 || p.Ask <= 0 {
		return Quote{}, fmt.Errorf("quote fetch %s: empty tick", symbol)
	}
	q := Quote{
		Symbol:     symbol,
		Bid:        decimal.NewFromFloat(p.Bid),
		Ask:        decimal.NewFromFloat(p.Ask),
		Time:       time.Unix(p.Time, 0).UTC(),
		MarketOpen: true,
	}
	if p.MarketOpen != nil {
		q.MarketOpen = *p.MarketOpen
	}
	return q, nil
}
