package analytics

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"propDesk/internal/domain"
)

var hundred = decimal.NewFromInt(100)

// Performance summarises the realised trading of one challenge.
// Only closed trades count; open trades have no realised profit yet.
type Performance struct {
	ClosedTrades  int
	OpenTrades    int
	WinningTrades int
	LosingTrades  int             // Trades closed at zero profit count as losing
	WinRate       decimal.Decimal // Percent of closed trades with positive profit

	RealizedProfit decimal.Decimal
	GrossProfit    decimal.Decimal
	GrossLoss      decimal.Decimal // Non-negative
	AverageWin     decimal.Decimal
	AverageLoss    decimal.Decimal // Non-positive
	ProfitFactor   decimal.Decimal // GrossProfit / GrossLoss, zero when there were no losses
	Expectancy     decimal.Decimal // Mean profit per closed trade

	// Drawdown of realised equity from its running peak, in percent of the peak.
	MaxDrawdown decimal.Decimal

	MaxConsecutiveWins   int
	MaxConsecutiveLosses int
	AverageHoldTime      time.Duration

	DailyPnL    []DailyPnL
	EquityCurve []EquityPoint
}

// DailyPnL is the profit realised on one UTC day.
type DailyPnL struct {
	Day    string // YYYY-MM-DD
	Profit decimal.Decimal
	Trades int
}

// EquityPoint is the realised equity right after a close.
type EquityPoint struct {
	Time     time.Time
	TradeID  int64
	Equity   decimal.Decimal
	Drawdown decimal.Decimal // Percent below the running peak
}

// Analyze computes the performance of trades for a challenge that started at startBalance.
// trades may be in any order and is not modified.
func Analyze(trades []*domain.Trade, startBalance decimal.Decimal) *Performance {
	p := &Performance{
		WinRate:        decimal.Zero,
		RealizedProfit: decimal.Zero,
		GrossProfit:    decimal.Zero,
		GrossLoss:      decimal.Zero,
		AverageWin:     decimal.Zero,
		AverageLoss:    decimal.Zero,
		ProfitFactor:   decimal.Zero,
		Expectancy:     decimal.Zero,
		MaxDrawdown:    decimal.Zero,
	}

	closed := make([]*domain.Trade, 0, len(trades))
	for _, t := range trades {
		if t.IsOpen() {
			p.OpenTrades++
			continue
		}
		closed = append(closed, t)
	}
	if len(closed) == 0 {
		return p
	}

	// Replay closes in the order they happened.
	sort.SliceStable(closed, func(i, j int) bool {
		if closed[i].Timestamp.Equal(closed[j].Timestamp) {
			return closed[i].ID < closed[j].ID
		}
		return closed[i].Timestamp.Before(closed[j].Timestamp)
	})

	equity := startBalance
	peak := startBalance
	var wins, losses, maxWins, maxLosses int
	var held time.Duration
	daily := make(map[string]*DailyPnL)

	for _, t := range closed {
		p.ClosedTrades++
		if t.Profit.IsPositive() {
			p.WinningTrades++
			p.GrossProfit = p.GrossProfit.Add(t.Profit)
			wins++
			losses = 0
		} else {
			p.LosingTrades++
			p.GrossLoss = p.GrossLoss.Sub(t.Profit)
			losses++
			wins = 0
		}
		if wins > maxWins {
			maxWins = wins
		}
		if losses > maxLosses {
			maxLosses = losses
		}

		held += t.Timestamp.Sub(t.OpenedAt)
		equity = equity.Add(t.Profit)
		p.RealizedProfit = p.RealizedProfit.Add(t.Profit)

		day := domain.DayKey(t.Timestamp)
		d, ok := daily[day]
		if !ok {
			d = &DailyPnL{Day: day, Profit: decimal.Zero}
			daily[day] = d
		}
		d.Profit = d.Profit.Add(t.Profit)
		d.Trades++

		if equity.GreaterThan(peak) {
			peak = equity
		}
		drawdown := decimal.Zero
		if peak.IsPositive() {
			drawdown = peak.Sub(equity).Div(peak).Mul(hundred)
		}
		if drawdown.GreaterThan(p.MaxDrawdown) {
			p.MaxDrawdown = drawdown
		}
		p.EquityCurve = append(p.EquityCurve, EquityPoint{
			Time:     t.Timestamp,
			TradeID:  t.ID,
			Equity:   equity,
			Drawdown: drawdown,
		})
	}

	n := decimal.NewFromInt(int64(p.ClosedTrades))
	p.WinRate = decimal.NewFromInt(int64(p.WinningTrades)).Div(n).Mul(hundred)
	p.Expectancy = p.RealizedProfit.Div(n)
	if p.WinningTrades > 0 {
		p.AverageWin = p.GrossProfit.Div(decimal.NewFromInt(int64(p.WinningTrades)))
	}
	if p.LosingTrades > 0 {
		p.AverageLoss = p.GrossLoss.Neg().Div(decimal.NewFromInt(int64(p.LosingTrades)))
	}
	if p.GrossLoss.IsPositive() {
		p.ProfitFactor = p.GrossProfit.Div(p.GrossLoss)
	}
	p.MaxConsecutiveWins = maxWins
	p.MaxConsecutiveLosses = maxLosses
	p.AverageHoldTime = held / time.Duration(p.ClosedTrades)

	p.DailyPnL = make([]DailyPnL, 0, len(daily))
	for _, d := range daily {
		p.DailyPnL = append(p.DailyPnL, *d)
	}
	sort.Slice(p.DailyPnL, func(i, j int) bool {
		return p.DailyPnL[i].Day < p.DailyPnL[j].Day
	})
	return p
}

// WorstDay returns the day with the lowest realised profit, if any trade was closed.
func (p *Performance) WorstDay() (DailyPnL, bool) {
	if len(p.DailyPnL) == 0 {
		return DailyPnL{}, false
	}
	worst := p.DailyPnL[0]
	for _, d := range p.DailyPnL[1:] {
		if d.Profit.LessThan(worst.Profit) {
			worst = d
		}
	}
	return worst, true
}
