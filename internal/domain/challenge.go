package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ErrTerminalStatus is returned by TransitionStatus when the challenge already left the active state.
var ErrTerminalStatus = errors.New("challenge status is terminal")

// Challenge is a user's simulated funded-trading attempt.
type Challenge struct {
	ID            int64           // Unique identifier (from DB)
	Owner         string          // Reference to the owning user
	Tier          string          // Tier the challenge was purchased at
	Status        ChallengeStatus // active, failed or funded
	StatusReason  Rule            // Rule that ended the challenge (empty while active)
	StartBalance  decimal.Decimal // Fixed at creation
	CurrentEquity decimal.Decimal // Mutated only by trade closes
	StartDate     time.Time

	// Daily-loss baseline snapshot, only consulted in day_start_equity mode.
	DayStartEquity decimal.Decimal
	DayStartDate   string // YYYY-MM-DD in UTC

	Version   int64 // Optimistic concurrency counter, bumped on every write
	UpdatedAt time.Time
}

// NewChallenge builds an active challenge whose equity starts at the tier balance.
func NewChallenge(owner, tier string, startBalance decimal.Decimal, now time.Time) *Challenge {
	now = now.UTC()
	return &Challenge{
		Owner:          owner,
		Tier:           tier,
		Status:         StatusActive,
		StartBalance:   startBalance,
		CurrentEquity:  startBalance,
		StartDate:      now,
		DayStartEquity: startBalance,
		DayStartDate:   DayKey(now),
		UpdatedAt:      now,
	}
}

// IsActive checks if the challenge can still trade.
func (c *Challenge) IsActive() bool {
	return c.Status == StatusActive
}

// ProfitPercent returns (equity - start) / start * 100.
func (c *Challenge) ProfitPercent() decimal.Decimal {
	if c.StartBalance.IsZero() {
		return decimal.Zero
	}
	return c.CurrentEquity.Sub(c.StartBalance).Div(c.StartBalance).Mul(decimal.NewFromInt(100))
}

// TransitionStatus moves c from active to a terminal status.
// It is the only place a challenge status changes; terminal states are sticky.
func TransitionStatus(c *Challenge, to ChallengeStatus, rule Rule) error {
	if c.Status.IsTerminal() {
		return fmt.Errorf("challenge %d is %s: %w", c.ID, c.Status, ErrTerminalStatus)
	}
	if !to.IsTerminal() {
		return fmt.Errorf("invalid transition %s -> %s for challenge %d", c.Status, to, c.ID)
	}
	c.Status = to
	c.StatusReason = rule
	return nil
}

// DayKey formats t as the UTC calendar day used for daily baselines.
func DayKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}
