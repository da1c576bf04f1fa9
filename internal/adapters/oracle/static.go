package oracle

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"propDesk/internal/ports"
)

// Static is a price oracle backed by an in-memory table.
// It serves paper deployments and tests; prices change only through Set.
type Static struct {
	mu     sync.RWMutex
	prices map[string]decimal.Decimal
}

// NewStatic creates a static oracle seeded with prices (symbols are case-insensitive).
func NewStatic(prices map[string]decimal.Decimal) *Static {
	s := &Static{prices: make(map[string]decimal.Decimal, len(prices))}
	for sym, p := range prices {
		s.prices[strings.ToUpper(sym)] = p
	}
	return s
}

// ParseStaticPrices parses "SYM=price,SYM2=price" into a price table.
func ParseStaticPrices(spec string) (map[string]decimal.Decimal, error) {
	prices := make(map[string]decimal.Decimal)
	for _, entry := range strings.Split(spec, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		sym, raw, ok := strings.Cut(entry, "=")
		if !ok || strings.TrimSpace(sym) == "" {
			return nil, fmt.Errorf("invalid static price entry %q (want SYMBOL=price)", entry)
		}
		price, err := decimal.NewFromString(strings.TrimSpace(raw))
		if err != nil {
			return nil, fmt.Errorf("invalid price for %s: %w", sym, err)
		}
		prices[strings.ToUpper(strings.TrimSpace(sym))] = price
	}
	return prices, nil
}

// Set updates or inserts the price of symbol.
func (s *Static) Set(symbol string, price decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prices[strings.ToUpper(symbol)] = price
}

// Remove drops symbol so later lookups fail.
func (s *Static) Remove(symbol string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.prices, strings.ToUpper(symbol))
}

// GetPrice implements ports.PriceOracle.
func (s *Static) GetPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	if err := ctx.Err(); err != nil {
		return decimal.Zero, fmt.Errorf("price of %s: %w: %w", symbol, ports.ErrPriceUnavailable, err)
	}
	s.mu.RLock()
	price, ok := s.prices[strings.ToUpper(symbol)]
	s.mu.RUnlock()
	if !ok {
		return decimal.Zero, fmt.Errorf("price of %s: %w: %w", symbol, ports.ErrPriceUnavailable, ports.ErrUnknownSymbol)
	}
	return price, nil
}
