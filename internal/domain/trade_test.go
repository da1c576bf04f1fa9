package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestPositionProfit(t *testing.T) {
	tests := []struct {
		name  string
		pos   PositionSide
		open  string
		price string
		qty   string
		want  string
	}{
		{"long up", Long, "100", "150", "2", "100"},
		{"long down", Long, "100", "90", "2", "-20"},
		{"short down", Short, "150", "100", "2", "100"},
		{"short up", Short, "100", "110", "0.5", "-5"},
		{"flat", Long, "100", "100", "3", "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PositionProfit(tt.pos, d(tt.open), d(tt.price), d(tt.qty))
			assert.True(t, got.Equal(d(tt.want)), "got %s want %s", got, tt.want)
		})
	}
}

func TestTradeSettle(t *testing.T) {
	tr := &Trade{
		Position:  Short,
		Quantity:  d("0.1"),
		OpenPrice: d("65000"),
		Status:    TradeOpen,
	}
	assert.True(t, tr.IsOpen())
	assert.True(t, tr.ProfitAt(d("64000")).Equal(d("100")))

	at := time.Date(2025, 1, 1, 12, 0, 0, 0, time.FixedZone("X", 3600))
	profit := tr.Settle(d("64500"), at)

	assert.True(t, profit.Equal(d("50")))
	assert.True(t, tr.Profit.Equal(d("50")))
	assert.True(t, tr.ClosePrice.Valid)
	assert.True(t, tr.ClosePrice.Decimal.Equal(d("64500")))
	assert.Equal(t, TradeClosed, tr.Status)
	assert.False(t, tr.IsOpen())
	assert.Equal(t, at.UTC(), tr.Timestamp)
}
