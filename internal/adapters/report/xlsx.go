package report

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/xuri/excelize/v2"

	"propDesk/internal/analytics"
	"propDesk/internal/domain"
)

const (
	tradesSheet  = "Trades"
	summarySheet = "Summary"
	dailySheet   = "Daily PnL"
)

type styles struct {
	header   int
	money    int
	gain     int
	loss     int
	textCell int
}

// WriteTradeHistoryXLSX writes the trade history of a challenge, a performance
// summary and realised PnL per day to an Excel workbook at path, creating the
// parent directory if needed.
func WriteTradeHistoryXLSX(ch *domain.Challenge, trades []*domain.Trade, path string) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	fx := excelize.NewFile()
	defer fx.Close()

	fx.SetSheetName(fx.GetSheetName(0), tradesSheet)
	for _, name := range []string{summarySheet, dailySheet} {
		if _, err := fx.NewSheet(name); err != nil {
			return fmt.Errorf("failed to create sheet %s: %w", name, err)
		}
	}

	st, err := newStyles(fx)
	if err != nil {
		return fmt.Errorf("failed to create styles: %w", err)
	}
	if err := writeTradesSheet(fx, trades, st); err != nil {
		return err
	}
	perf := analytics.Analyze(trades, ch.StartBalance)
	if err := writeSummarySheet(fx, ch, perf, st); err != nil {
		return err
	}
	if err := writeDailySheet(fx, perf, st); err != nil {
		return err
	}

	return fx.SaveAs(path)
}

func newStyles(fx *excelize.File) (styles, error) {
	var s styles
	var err error
	border := []excelize.Border{
		{Type: "left", Color: "E0E0E0", Style: 1},
		{Type: "right", Color: "E0E0E0", Style: 1},
		{Type: "bottom", Color: "E0E0E0", Style: 1},
	}

	// Header style - Dark slate background with white text
	s.header, err = fx.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11, Color: "FFFFFF", Family: "Calibri"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"2F4F4F"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return s, err
	}

	s.money, err = fx.NewStyle(&excelize.Style{
		NumFmt:    4, // #,##0.00
		Alignment: &excelize.Alignment{Horizontal: "right"},
		Border:    border,
	})
	if err != nil {
		return s, err
	}

	s.gain, err = fx.NewStyle(&excelize.Style{
		NumFmt:    4,
		Font:      &excelize.Font{Color: "008000"},
		Alignment: &excelize.Alignment{Horizontal: "right"},
		Border:    border,
	})
	if err != nil {
		return s, err
	}

	s.loss, err = fx.NewStyle(&excelize.Style{
		NumFmt:    4,
		Font:      &excelize.Font{Color: "FF0000"},
		Alignment: &excelize.Alignment{Horizontal: "right"},
		Border:    border,
	})
	if err != nil {
		return s, err
	}

	s.textCell, err = fx.NewStyle(&excelize.Style{Border: border})
	return s, err
}

func writeTradesSheet(fx *excelize.File, trades []*domain.Trade, st styles) error {
	widths := []float64{8, 12, 6, 8, 12, 14, 14, 14, 8, 20, 20}
	for i, w := range widths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		fx.SetColWidth(tradesSheet, col, col, w)
	}

	headers := []string{
		"ID", "Symbol", "Side", "Position", "Quantity", "Open Price",
		"Close Price", "Profit", "Status", "Opened At", "Closed At",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		fx.SetCellValue(tradesSheet, cell, h)
		fx.SetCellStyle(tradesSheet, cell, cell, st.header)
	}

	for r, t := range trades {
		row := r + 2
		closePrice, closedAt := "", ""
		if t.ClosePrice.Valid {
			closePrice = t.ClosePrice.Decimal.String()
		}
		if !t.Timestamp.IsZero() {
			closedAt = t.Timestamp.UTC().Format(time.RFC3339)
		}
		values := []interface{}{
			t.ID, t.Symbol, string(t.Side), string(t.Position),
			t.Quantity.InexactFloat64(), t.OpenPrice.InexactFloat64(), closePrice,
			t.Profit.InexactFloat64(), string(t.Status),
			t.OpenedAt.UTC().Format(time.RFC3339), closedAt,
		}
		if t.ClosePrice.Valid {
			values[6] = t.ClosePrice.Decimal.InexactFloat64()
		}
		for c, v := range values {
			cell, _ := excelize.CoordinatesToCellName(c+1, row)
			if err := fx.SetCellValue(tradesSheet, cell, v); err != nil {
				return fmt.Errorf("failed to write trade %d: %w", t.ID, err)
			}
		}

		first, _ := excelize.CoordinatesToCellName(1, row)
		last, _ := excelize.CoordinatesToCellName(len(values), row)
		fx.SetCellStyle(tradesSheet, first, last, st.textCell)
		priceFrom, _ := excelize.CoordinatesToCellName(5, row)
		priceTo, _ := excelize.CoordinatesToCellName(7, row)
		fx.SetCellStyle(tradesSheet, priceFrom, priceTo, st.money)

		profitCell, _ := excelize.CoordinatesToCellName(8, row)
		profitStyle := st.money
		if t.Profit.IsPositive() {
			profitStyle = st.gain
		} else if t.Profit.IsNegative() {
			profitStyle = st.loss
		}
		fx.SetCellStyle(tradesSheet, profitCell, profitCell, profitStyle)
	}

	fx.SetPanes(tradesSheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})
	return nil
}

func writeSummarySheet(fx *excelize.File, ch *domain.Challenge, perf *analytics.Performance, st styles) error {
	fx.SetColWidth(summarySheet, "A", "A", 24)
	fx.SetColWidth(summarySheet, "B", "B", 24)

	rows := []struct {
		label string
		value interface{}
		style int
	}{
		{"Challenge", ch.ID, st.textCell},
		{"Owner", ch.Owner, st.textCell},
		{"Tier", ch.Tier, st.textCell},
		{"Status", string(ch.Status), st.textCell},
		{"Status Reason", string(ch.StatusReason), st.textCell},
		{"Start Balance", ch.StartBalance.InexactFloat64(), st.money},
		{"Current Equity", ch.CurrentEquity.InexactFloat64(), st.money},
		{"Profit %", ch.ProfitPercent().Round(2).InexactFloat64(), st.money},
		{"Open Trades", perf.OpenTrades, st.textCell},
		{"Closed Trades", perf.ClosedTrades, st.textCell},
		{"Win Rate %", perf.WinRate.Round(2).InexactFloat64(), st.money},
		{"Profit Factor", perf.ProfitFactor.Round(2).InexactFloat64(), st.money},
		{"Expectancy", perf.Expectancy.InexactFloat64(), st.money},
		{"Max Drawdown %", perf.MaxDrawdown.Round(2).InexactFloat64(), st.money},
		{"Max Consecutive Losses", perf.MaxConsecutiveLosses, st.textCell},
		{"Average Hold", perf.AverageHoldTime.Round(time.Second).String(), st.textCell},
		{"Started", ch.StartDate.UTC().Format(time.RFC3339), st.textCell},
	}

	fx.SetCellValue(summarySheet, "A1", "Metric")
	fx.SetCellValue(summarySheet, "B1", "Value")
	fx.SetCellStyle(summarySheet, "A1", "B1", st.header)

	for i, r := range rows {
		labelCell, _ := excelize.CoordinatesToCellName(1, i+2)
		valueCell, _ := excelize.CoordinatesToCellName(2, i+2)
		if err := fx.SetCellValue(summarySheet, labelCell, r.label); err != nil {
			return fmt.Errorf("failed to write summary: %w", err)
		}
		if err := fx.SetCellValue(summarySheet, valueCell, r.value); err != nil {
			return fmt.Errorf("failed to write summary: %w", err)
		}
		fx.SetCellStyle(summarySheet, labelCell, labelCell, st.textCell)
		fx.SetCellStyle(summarySheet, valueCell, valueCell, r.style)
	}
	return nil
}

func writeDailySheet(fx *excelize.File, perf *analytics.Performance, st styles) error {
	fx.SetColWidth(dailySheet, "A", "A", 14)
	fx.SetColWidth(dailySheet, "B", "C", 14)

	for i, h := range []string{"Day", "Trades", "Realized PnL"} {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		fx.SetCellValue(dailySheet, cell, h)
		fx.SetCellStyle(dailySheet, cell, cell, st.header)
	}
	for i, d := range perf.DailyPnL {
		row := i + 2
		dayCell, _ := excelize.CoordinatesToCellName(1, row)
		tradesCell, _ := excelize.CoordinatesToCellName(2, row)
		pnlCell, _ := excelize.CoordinatesToCellName(3, row)
		if err := fx.SetCellValue(dailySheet, dayCell, d.Day); err != nil {
			return fmt.Errorf("failed to write daily pnl: %w", err)
		}
		fx.SetCellValue(dailySheet, tradesCell, d.Trades)
		fx.SetCellValue(dailySheet, pnlCell, d.Profit.InexactFloat64())

		style := st.money
		if d.Profit.IsPositive() {
			style = st.gain
		} else if d.Profit.IsNegative() {
			style = st.loss
		}
		fx.SetCellStyle(dailySheet, pnlCell, pnlCell, style)
	}
	return nil
}
