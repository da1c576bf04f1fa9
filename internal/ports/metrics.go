package ports

import "propDesk/internal/domain"

// Metrics receives engine events for observability backends.
type Metrics interface {
	TradeOpened(symbol string, position domain.PositionSide)
	TradeClosed(symbol string, position domain.PositionSide, profit float64)
	StatusTransition(to domain.ChallengeStatus, rule domain.Rule)
	EvaluationRun(evaluated, errors int, seconds float64)
	PriceLookupFailed(symbol string)
}

// NopMetrics discards all events.
type NopMetrics struct{}

func (NopMetrics) TradeOpened(string, domain.PositionSide)              {}
func (NopMetrics) TradeClosed(string, domain.PositionSide, float64)     {}
func (NopMetrics) StatusTransition(domain.ChallengeStatus, domain.Rule) {}
func (NopMetrics) EvaluationRun(int, int, float64)                      {}
func (NopMetrics) PriceLookupFailed(string)                             {}
