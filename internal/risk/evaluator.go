package risk

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"propDesk/internal/domain"
)

// BaselineMode selects the equity the daily-loss rule is measured against.
type BaselineMode string

const (
	// BaselineStartBalance measures daily loss against the challenge's start balance.
	// This is a proxy for a true daily rule and behaves like a tighter total-loss floor.
	BaselineStartBalance BaselineMode = "start_balance"
	// BaselineDayStartEquity measures daily loss against the equity recorded at the
	// first evaluation of the current UTC day.
	BaselineDayStartEquity BaselineMode = "day_start_equity"
)

// ParseBaselineMode converts a config string to a BaselineMode.
func ParseBaselineMode(s string) (BaselineMode, error) {
	switch BaselineMode(s) {
	case BaselineStartBalance, BaselineDayStartEquity:
		return BaselineMode(s), nil
	case "":
		return BaselineStartBalance, nil
	default:
		return "", fmt.Errorf("unknown daily loss baseline mode %q", s)
	}
}

// RuleConfig holds the challenge rule thresholds as fractions (0.10 = 10%).
// A zero fraction disables the rule.
type RuleConfig struct {
	MaxLossPct            decimal.Decimal
	DailyLossPct          decimal.Decimal
	ProfitTargetPct       decimal.Decimal
	DailyLossBaselineMode BaselineMode
}

// DefaultRuleConfig returns the standard challenge rules: 10% max loss, 5% daily loss, 10% target.
func DefaultRuleConfig() RuleConfig {
	return RuleConfig{
		MaxLossPct:            decimal.NewFromFloat(0.10),
		DailyLossPct:          decimal.NewFromFloat(0.05),
		ProfitTargetPct:       decimal.NewFromFloat(0.10),
		DailyLossBaselineMode: BaselineStartBalance,
	}
}

// Validate checks the thresholds are usable.
func (c RuleConfig) Validate() error {
	one := decimal.NewFromInt(1)
	if c.MaxLossPct.IsNegative() || c.MaxLossPct.GreaterThanOrEqual(one) {
		return fmt.Errorf("max loss pct must be in [0, 1), got %s", c.MaxLossPct)
	}
	if c.DailyLossPct.IsNegative() || c.DailyLossPct.GreaterThanOrEqual(one) {
		return fmt.Errorf("daily loss pct must be in [0, 1), got %s", c.DailyLossPct)
	}
	if c.ProfitTargetPct.IsNegative() {
		return fmt.Errorf("profit target pct cannot be negative, got %s", c.ProfitTargetPct)
	}
	if _, err := ParseBaselineMode(string(c.DailyLossBaselineMode)); err != nil {
		return err
	}
	return nil
}

// Decision is the outcome of one evaluation.
type Decision struct {
	Status         domain.ChallengeStatus
	Rule           domain.Rule // Rule that fired, RuleNone if the challenge stays active
	Transitioned   bool        // Status changed during this evaluation
	BaselineRolled bool        // Daily baseline snapshot was refreshed
}

// Changed reports whether the evaluation mutated the challenge and needs persisting.
func (d Decision) Changed() bool {
	return d.Transitioned || d.BaselineRolled
}

// Evaluator applies the challenge rules to a challenge account.
type Evaluator struct {
	config RuleConfig
}

// NewEvaluator creates an evaluator for the given rules.
func NewEvaluator(config RuleConfig) (*Evaluator, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid risk rules: %w", err)
	}
	if config.DailyLossBaselineMode == "" {
		config.DailyLossBaselineMode = BaselineStartBalance
	}
	return &Evaluator{config: config}, nil
}

// Evaluate checks ch against the rules and applies any transition to ch in memory.
// Rules are checked in a fixed order, first match wins: max total loss, daily loss,
// profit target. A challenge that is not active is returned unchanged.
func (e *Evaluator) Evaluate(ch *domain.Challenge, now time.Time) Decision {
	if !ch.IsActive() {
		return Decision{Status: ch.Status, Rule: ch.StatusReason}
	}

	var d Decision
	if e.config.DailyLossBaselineMode == BaselineDayStartEquity {
		if today := domain.DayKey(now); ch.DayStartDate != today {
			ch.DayStartEquity = ch.CurrentEquity
			ch.DayStartDate = today
			d.BaselineRolled = true
		}
	}

	if rule, status := e.check(ch); rule != domain.RuleNone {
		// ch is active here so the transition cannot be rejected.
		if err := domain.TransitionStatus(ch, status, rule); err == nil {
			d.Transitioned = true
		}
	}
	d.Status = ch.Status
	d.Rule = ch.StatusReason
	return d
}

func (e *Evaluator) check(ch *domain.Challenge) (domain.Rule, domain.ChallengeStatus) {
	one := decimal.NewFromInt(1)
	start := ch.StartBalance
	equity := ch.CurrentEquity

	if e.config.MaxLossPct.IsPositive() {
		floor := start.Mul(one.Sub(e.config.MaxLossPct))
		if equity.LessThanOrEqual(floor) {
			return domain.RuleMaxLoss, domain.StatusFailed
		}
	}

	if e.config.DailyLossPct.IsPositive() {
		floor := e.dailyBaseline(ch).Mul(one.Sub(e.config.DailyLossPct))
		if equity.LessThanOrEqual(floor) {
			return domain.RuleDailyLoss, domain.StatusFailed
		}
	}

	if e.config.ProfitTargetPct.IsPositive() {
		target := start.Mul(one.Add(e.config.ProfitTargetPct))
		if equity.GreaterThanOrEqual(target) {
			return domain.RuleProfitTarget, domain.StatusFunded
		}
	}

	return domain.RuleNone, domain.StatusActive
}

func (e *Evaluator) dailyBaseline(ch *domain.Challenge) decimal.Decimal {
	if e.config.DailyLossBaselineMode == BaselineDayStartEquity && !ch.DayStartEquity.IsZero() {
		return ch.DayStartEquity
	}
	return ch.StartBalance
}
