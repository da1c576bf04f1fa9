package utils

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"propDesk/internal/domain"
)

var tradeCSVHeader = []string{
	"id", "challenge_id", "symbol", "side", "position", "quantity",
	"open_price", "close_price", "profit", "status", "opened_at", "closed_at",
}

// WriteTradesToCSV writes trades to filename, one row per trade.
func WriteTradesToCSV(trades []*domain.Trade, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	if err := WriteTradesCSV(file, trades); err != nil {
		return fmt.Errorf("failed to write %s: %w", filename, err)
	}
	return file.Close()
}

// WriteTradesCSV writes trades as CSV to w. Amounts keep their exact decimal form.
func WriteTradesCSV(w io.Writer, trades []*domain.Trade) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(tradeCSVHeader); err != nil {
		return err
	}
	for _, t := range trades {
		closePrice, closedAt := "", ""
		if t.ClosePrice.Valid {
			closePrice = t.ClosePrice.Decimal.String()
		}
		if !t.Timestamp.IsZero() {
			closedAt = t.Timestamp.UTC().Format(time.RFC3339)
		}
		if err := writer.Write([]string{
			strconv.FormatInt(t.ID, 10),
			strconv.FormatInt(t.ChallengeID, 10),
			t.Symbol,
			string(t.Side),
			string(t.Position),
			t.Quantity.String(),
			t.OpenPrice.String(),
			closePrice,
			t.Profit.String(),
			string(t.Status),
			t.OpenedAt.UTC().Format(time.RFC3339),
			closedAt,
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}
