package domain

import (
	"fmt"
	"strings"
)

// OrderSide is the informational side of a trade request (buy or sell).
type OrderSide string

const (
	Buy  OrderSide = "buy"
	Sell OrderSide = "sell"
)

// ParseOrderSide normalises a side string. Unknown values return an error.
func ParseOrderSide(s string) (OrderSide, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "buy":
		return Buy, nil
	case "sell":
		return Sell, nil
	default:
		return "", fmt.Errorf("unknown order side %q", s)
	}
}

// PositionSide is the direction of a trade: long profits when price rises, short when it falls.
type PositionSide string

const (
	Long  PositionSide = "long"
	Short PositionSide = "short"
)

// ParsePositionSide normalises a position string. An empty value means long.
func ParsePositionSide(s string) (PositionSide, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "long":
		return Long, nil
	case "short":
		return Short, nil
	default:
		return "", fmt.Errorf("unknown position %q", s)
	}
}

// TradeStatus represents the lifecycle state of a trade.
type TradeStatus string

const (
	TradeOpen   TradeStatus = "open"
	TradeClosed TradeStatus = "closed"
)

// ChallengeStatus represents the evaluation state of a challenge account.
type ChallengeStatus string

const (
	StatusActive ChallengeStatus = "active"
	StatusFailed ChallengeStatus = "failed"
	StatusFunded ChallengeStatus = "funded"
)

// IsTerminal reports whether no further transition is possible from s.
func (s ChallengeStatus) IsTerminal() bool {
	return s == StatusFailed || s == StatusFunded
}

// Rule names the risk rule that moved a challenge out of the active state.
type Rule string

const (
	RuleNone         Rule = ""
	RuleMaxLoss      Rule = "max_loss"
	RuleDailyLoss    Rule = "daily_loss"
	RuleProfitTarget Rule = "profit_target"
)
