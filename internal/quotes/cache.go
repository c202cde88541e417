package quotes

import (
	"sync"
	"time"
)

// Cache holds the last good tick per symbol.
type Cache struct {
	mu      sync.RWMutex
	data    map[string]Quote
	lastSet time.Time
}

func NewCache() *Cache {
	return &Cache{data: map[string]Quote{}}
}

func (c *Cache) Set(q Quote) {
	if q.Symbol == "" || !q.Bid.IsPositive() || !q.Ask.IsPositive() {
		return
	}
	c.mu.Lock()
	c.data[q.Symbol] = q
	c.lastSet = time.Now()
	c.mu.Unlock()
}

// LastUpdate reports when any symbol last got a good tick. Zero means the
// cache has never been written.
func (c *Cache) LastUpdate() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastSet
}

func (c *Cache) Get(symbol string) (Quote, bool) {
	c.mu.RLock()
	q, ok := c.data[symbol]
	c.mu.RUnlock()
	return q, ok
}
