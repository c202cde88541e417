package quotes

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

type tickFrame struct {
	Symbol string `json:"symbol"`
	Bid    string `json:"bid"`
	Ask    string `json:"ask"`
	Time   int64  `json:"time"`
}

// StartPublisher polls the watched symbols on the given interval, keeps the
// cache warm and publishes quote events to the bus. It returns after starting
// the loop; the loop stops when ctx is cancelled.
func StartPublisher(ctx context.Context, svc *Service, bus *Bus, symbols []string, interval time.Duration, log *logrus.Logger) {
	if len(symbols) == 0 {
		log.Info("quote publisher disabled: no watched symbols")
		return
	}
	if interval <= 0 {
		interval = time.Second
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		log.WithField("symbols", symbols).Info("quote publisher started")
		for {
			select {
			case <-ctx.Done():
				log.Info("quote publisher stopped")
				return
			case <-ticker.C:
				for _, symbol := range symbols {
					q, ok := svc.Refresh(ctx, symbol)
					if !ok {
						continue
					}
					bus.Publish(Event{Type: "quote", Data: tickFrame{
						Symbol: q.Symbol,
						Bid:    q.Bid.String(),
						Ask:    q.Ask.String(),
						Time:   q.Time.Unix(),
					}})
				}
			}
		}
	}()
}
