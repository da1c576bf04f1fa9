package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Trade is a simulated position held inside a challenge.
type Trade struct {
	ID          int64
	ChallengeID int64
	Symbol      string
	Side        OrderSide    // Informational only
	Position    PositionSide // Determines the profit formula
	Quantity    decimal.Decimal
	OpenPrice   decimal.Decimal
	ClosePrice  decimal.NullDecimal // Valid only once closed
	Status      TradeStatus
	Profit      decimal.Decimal // Zero until closed
	OpenedAt    time.Time
	Timestamp   time.Time // Set at close
}

// IsOpen checks if the trade status is open.
func (t *Trade) IsOpen() bool {
	return t.Status == TradeOpen
}

// ProfitAt returns the profit of t if it were settled at price.
func (t *Trade) ProfitAt(price decimal.Decimal) decimal.Decimal {
	return PositionProfit(t.Position, t.OpenPrice, price, t.Quantity)
}

// PositionProfit computes profit for a position opened at openPrice and valued at price.
//
//	long:  (price - open) * qty
//	short: (open - price) * qty
func PositionProfit(pos PositionSide, openPrice, price, qty decimal.Decimal) decimal.Decimal {
	if pos == Short {
		return openPrice.Sub(price).Mul(qty)
	}
	return price.Sub(openPrice).Mul(qty)
}

// Settle marks t closed at price and returns the realised profit.
// The caller must have checked IsOpen.
func (t *Trade) Settle(price decimal.Decimal, at time.Time) decimal.Decimal {
	t.Profit = t.ProfitAt(price)
	t.ClosePrice = decimal.NullDecimal{Decimal: price, Valid: true}
	t.Status = TradeClosed
	t.Timestamp = at.UTC()
	return t.Profit
}
