package ports

import (
	"context"

	"github.com/shopspring/decimal"
)

// PriceOracle resolves the current market price of a symbol.
// Implementations return an error wrapping ErrPriceUnavailable (or a more specific
// market data error) instead of a zero price when the symbol cannot be resolved.
type PriceOracle interface {
	GetPrice(ctx context.Context, symbol string) (decimal.Decimal, error)
}
