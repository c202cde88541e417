package quotes

import (
	"context"
	"time"

	"marginfx/internal/margin"

	"github.com/sirupsen/logrus"
)

// Service refreshes quotes from the bridge into the cache and exposes
// cache-only reads for the margin engine. Fetch failures are logged and
// swallowed per symbol.
type Service struct {
	src   Source
	cache *Cache
	log   *logrus.Logger
}

func NewService(src Source, cache *Cache, log *logrus.Logger) *Service {
	return &Service{src: src, cache: cache, log: log}
}

// Refresh fetches one symbol into the cache. Returns the fetched quote when
// the bridge answered; on failure the cache keeps the previous tick.
func (s *Service) Refresh(ctx context.Context, symbol string) (Quote, bool) {
	q, err := s.src.GetQuote(ctx, symbol)
	if err != nil {
		s.log.WithField("symbol", symbol).WithError(err).Warn("quote refresh failed, keeping last price")
		return Quote{}, false
	}
	s.cache.Set(q)
	return q, true
}

// RefreshMany refreshes a set of symbols best effort under one deadline.
func (s *Service) RefreshMany(ctx context.Context, symbols []string, timeout time.Duration) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	seen := make(map[string]struct{}, len(symbols))
	for _, symbol := range symbols {
		if _, ok := seen[symbol]; ok {
			continue
		}
		seen[symbol] = struct{}{}
		s.Refresh(ctx, symbol)
	}
}

// Lookup reads the last good tick from the cache.
func (s *Service) Lookup(symbol string) (Quote, bool) {
	return s.cache.Get(symbol)
}

// QuoteFunc adapts the cache to the margin engine's read contract.
func (s *Service) QuoteFunc() margin.QuoteFunc {
	return func(symbol string) (margin.Quote, bool) {
		q, ok := s.cache.Get(symbol)
		if !ok {
			return margin.Quote{}, false
		}
		return margin.Quote{Bid: q.Bid, Ask: q.Ask}, true
	}
}
