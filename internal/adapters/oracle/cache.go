package oracle

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"propDesk/internal/ports"
)

type cachedPrice struct {
	price     decimal.Decimal
	fetchedAt time.Time
}

// Cached wraps an oracle and reuses successful lookups for a caller-supplied TTL.
// Failures are never cached.
type Cached struct {
	next ports.PriceOracle
	ttl  time.Duration
	now  func() time.Time

	mu      sync.Mutex
	entries map[string]cachedPrice
}

// NewCached wraps next with a TTL cache. A non-positive ttl disables caching and returns next.
func NewCached(next ports.PriceOracle, ttl time.Duration) ports.PriceOracle {
	if ttl <= 0 {
		return next
	}
	return &Cached{
		next:    next,
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]cachedPrice),
	}
}

// GetPrice implements ports.PriceOracle.
func (c *Cached) GetPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	key := strings.ToUpper(symbol)

	c.mu.Lock()
	entry, ok := c.entries[key]
	c.mu.Unlock()
	if ok && c.now().Sub(entry.fetchedAt) < c.ttl {
		return entry.price, nil
	}

	price, err := c.next.GetPrice(ctx, symbol)
	if err != nil {
		return decimal.Zero, err
	}

	c.mu.Lock()
	c.entries[key] = cachedPrice{price: price, fetchedAt: c.now()}
	c.mu.Unlock()
	return price, nil
}
