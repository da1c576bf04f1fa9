package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/shopspring/decimal"

	"propDesk/config"
	"propDesk/internal/analytics"
	"propDesk/internal/app"
	"propDesk/internal/domain"
)

func newTable(w io.Writer, title string) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	if title != "" {
		t.SetTitle(title)
	}
	return t
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func percent(d decimal.Decimal) string {
	return d.StringFixed(2) + "%"
}

func stamp(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format("2006-01-02 15:04:05")
}

func renderChallenge(w io.Writer, ch *domain.Challenge) {
	t := newTable(w, fmt.Sprintf("CHALLENGE #%d", ch.ID))
	reason := string(ch.StatusReason)
	if reason == "" {
		reason = "-"
	}
	t.AppendRows([]table.Row{
		{"Owner", ch.Owner},
		{"Tier", ch.Tier},
		{"Status", string(ch.Status)},
		{"Reason", reason},
		{"Start Balance", money(ch.StartBalance)},
		{"Equity", money(ch.CurrentEquity)},
		{"Profit", percent(ch.ProfitPercent())},
		{"Started", stamp(ch.StartDate)},
	})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, WidthMin: 15, Align: text.AlignLeft},
		{Number: 2, WidthMin: 20, Align: text.AlignLeft},
	})
	t.Render()
}

func renderTiers(w io.Writer, tiers config.TierCatalog) {
	t := newTable(w, "CHALLENGE TIERS")
	t.AppendHeader(table.Row{"Tier", "Fee", "Start Balance"})
	for _, name := range tiers.Names() {
		tier := tiers[name]
		t.AppendRow(table.Row{tier.Name, money(tier.Price), money(tier.StartBalance)})
	}
	t.SetColumnConfigs(numericColumns(2, 3))
	t.Render()
}

func renderOpenTrades(w io.Writer, trades []app.OpenTrade) {
	t := newTable(w, "OPEN TRADES")
	t.AppendHeader(table.Row{"ID", "Symbol", "Position", "Qty", "Open", "Current", "Unrealized PnL"})
	for _, ot := range trades {
		current, pnl := "n/a", "n/a"
		if ot.PriceAvailable {
			current = money(ot.CurrentPrice)
			pnl = money(ot.UnrealizedPnL)
		}
		t.AppendRow(table.Row{
			ot.Trade.ID, ot.Trade.Symbol, string(ot.Trade.Position), ot.Trade.Quantity.String(),
			money(ot.Trade.OpenPrice), current, pnl,
		})
	}
	if len(trades) == 0 {
		t.AppendRow(table.Row{"-", "no open trades", "", "", "", "", ""})
	}
	t.SetColumnConfigs(numericColumns(4, 5, 6, 7))
	t.Render()
}

func renderTrades(w io.Writer, trades []*domain.Trade) {
	t := newTable(w, "TRADE HISTORY")
	t.AppendHeader(table.Row{"ID", "Symbol", "Side", "Position", "Qty", "Open", "Close", "Profit", "Status", "Opened", "Closed"})
	total := decimal.Zero
	for _, tr := range trades {
		closePrice := "-"
		if tr.ClosePrice.Valid {
			closePrice = money(tr.ClosePrice.Decimal)
		}
		total = total.Add(tr.Profit)
		t.AppendRow(table.Row{
			tr.ID, tr.Symbol, string(tr.Side), string(tr.Position), tr.Quantity.String(),
			money(tr.OpenPrice), closePrice, money(tr.Profit), string(tr.Status),
			stamp(tr.OpenedAt), stamp(tr.Timestamp),
		})
	}
	t.AppendFooter(table.Row{"", "", "", "", "", "", "Realized", money(total), "", "", ""})
	t.SetColumnConfigs(numericColumns(5, 6, 7, 8))
	t.Render()
}

func renderPerformance(w io.Writer, p *analytics.Performance) {
	t := newTable(w, "PERFORMANCE")
	rows := []table.Row{
		{"Closed Trades", p.ClosedTrades},
		{"Open Trades", p.OpenTrades},
		{"Win Rate", percent(p.WinRate)},
		{"Realized Profit", money(p.RealizedProfit)},
		{"Profit Factor", p.ProfitFactor.StringFixed(2)},
		{"Expectancy", money(p.Expectancy)},
		{"Max Drawdown", percent(p.MaxDrawdown)},
		{"Loss Streak", p.MaxConsecutiveLosses},
		{"Average Hold", p.AverageHoldTime.Round(time.Second).String()},
	}
	if worst, ok := p.WorstDay(); ok {
		rows = append(rows, table.Row{"Worst Day", worst.Day + " " + money(worst.Profit)})
	}
	t.AppendRows(rows)
	t.Render()
}

func renderFill(w io.Writer, fill *app.TradeFill) {
	t := newTable(w, "TRADE PLACED")
	t.AppendRows([]table.Row{
		{"Trade", fill.TradeID},
		{"Fill Price", money(fill.FillPrice)},
	})
	t.Render()
}

func renderClose(w io.Writer, closed *app.TradeClose) {
	t := newTable(w, "TRADE CLOSED")
	t.AppendRows([]table.Row{
		{"Trade", closed.TradeID},
		{"Close Price", money(closed.ClosePrice)},
		{"Profit", money(closed.Profit)},
		{"Equity", money(closed.Equity)},
	})
	t.Render()
}

func renderReport(w io.Writer, r *app.EvaluationReport) {
	t := newTable(w, "EVALUATION SWEEP")
	t.AppendRows([]table.Row{
		{"Run", r.RunID},
		{"Evaluated", r.Evaluated},
		{"Failed", r.Failed},
		{"Funded", r.Funded},
		{"Errors", r.Errors},
		{"Duration", r.Duration.Round(time.Millisecond).String()},
	})
	t.Render()
}

func renderLeaderboard(w io.Writer, entries []app.LeaderboardEntry) {
	t := newTable(w, "LEADERBOARD")
	t.AppendHeader(table.Row{"#", "Challenge", "Owner", "Tier", "Status", "Equity", "Profit"})
	for _, e := range entries {
		t.AppendRow(table.Row{
			e.Rank, e.Challenge.ID, e.Challenge.Owner, e.Challenge.Tier, string(e.Challenge.Status),
			money(e.Challenge.CurrentEquity), percent(e.ProfitPercent),
		})
	}
	t.SetColumnConfigs(numericColumns(6, 7))
	t.Render()
}

func numericColumns(numbers ...int) []table.ColumnConfig {
	cfgs := make([]table.ColumnConfig, 0, len(numbers))
	for _, n := range numbers {
		cfgs = append(cfgs, table.ColumnConfig{Number: n, Align: text.AlignRight})
	}
	return cfgs
}
