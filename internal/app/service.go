package app

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jpillora/backoff"
	"github.com/shopspring/decimal"

	"propDesk/internal/domain"
	"propDesk/internal/ports"
	"propDesk/internal/risk"
)

const (
	defaultPriceTimeout     = 5 * time.Second
	defaultMaxAttempts      = 5
	defaultLeaderboardLimit = 10
)

// Config carries the dependencies and tunables of a ChallengeService.
type Config struct {
	Challenges ports.ChallengeRepository
	Trades     ports.TradeRepository
	Oracle     ports.PriceOracle
	Evaluator  *risk.Evaluator
	Logger     ports.Logger
	Metrics    ports.Metrics // optional, defaults to ports.NopMetrics

	Tiers            map[string]domain.Tier // keyed by lower-case tier name
	PriceTimeout     time.Duration          // bound on each oracle call
	MaxAttempts      int                    // attempts for version-conflicted writes
	LeaderboardLimit int                    // default leaderboard size
	Now              func() time.Time       // optional clock, defaults to time.Now
}

// ChallengeService runs the trade ledger and the challenge evaluation flow.
// It holds no account state in memory: every operation reads the repositories.
type ChallengeService struct {
	challenges ports.ChallengeRepository
	trades     ports.TradeRepository
	oracle     ports.PriceOracle
	evaluator  *risk.Evaluator
	logger     ports.Logger
	metrics    ports.Metrics

	tiers            map[string]domain.Tier
	priceTimeout     time.Duration
	maxAttempts      int
	leaderboardLimit int
	now              func() time.Time

	// retryBackoff builds the backoff used between conflicted attempts.
	retryBackoff func() *backoff.Backoff
}

// NewChallengeService creates a new application service instance.
func NewChallengeService(cfg Config) (*ChallengeService, error) {
	if cfg.Challenges == nil || cfg.Trades == nil || cfg.Oracle == nil || cfg.Evaluator == nil || cfg.Logger == nil {
		return nil, fmt.Errorf("missing required dependencies for ChallengeService")
	}

	s := &ChallengeService{
		challenges:       cfg.Challenges,
		trades:           cfg.Trades,
		oracle:           cfg.Oracle,
		evaluator:        cfg.Evaluator,
		logger:           cfg.Logger,
		metrics:          cfg.Metrics,
		tiers:            make(map[string]domain.Tier, len(cfg.Tiers)),
		priceTimeout:     cfg.PriceTimeout,
		maxAttempts:      cfg.MaxAttempts,
		leaderboardLimit: cfg.LeaderboardLimit,
		now:              cfg.Now,
		retryBackoff: func() *backoff.Backoff {
			return &backoff.Backoff{Min: 5 * time.Millisecond, Max: 250 * time.Millisecond, Factor: 2, Jitter: true}
		},
	}
	for name, tier := range cfg.Tiers {
		s.tiers[strings.ToLower(name)] = tier
	}
	if s.metrics == nil {
		s.metrics = ports.NopMetrics{}
	}
	if s.priceTimeout <= 0 {
		s.priceTimeout = defaultPriceTimeout
	}
	if s.maxAttempts <= 0 {
		s.maxAttempts = defaultMaxAttempts
	}
	if s.leaderboardLimit <= 0 {
		s.leaderboardLimit = defaultLeaderboardLimit
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s, nil
}

// OpenChallenge creates an active challenge funded with the tier's start balance.
// It is the activation step that follows a successful tier purchase.
func (s *ChallengeService) OpenChallenge(ctx context.Context, owner, tierName string) (*domain.Challenge, error) {
	owner = strings.TrimSpace(owner)
	if owner == "" {
		return nil, fmt.Errorf("owner is required: %w", ports.ErrValidation)
	}
	tier, ok := s.tiers[strings.ToLower(strings.TrimSpace(tierName))]
	if !ok {
		return nil, fmt.Errorf("unknown tier %q: %w", tierName, ports.ErrValidation)
	}

	ch := domain.NewChallenge(owner, tier.Name, tier.StartBalance, s.now())
	id, err := s.challenges.CreateChallenge(ctx, ch)
	if err != nil {
		s.logger.Error(ctx, err, "Failed to create challenge", map[string]interface{}{"owner": owner, "tier": tier.Name})
		return nil, fmt.Errorf("failed to create challenge: %w", err)
	}
	ch.ID = id

	s.logger.Info(ctx, "Challenge opened", map[string]interface{}{
		"challengeID":  id,
		"owner":        owner,
		"tier":         tier.Name,
		"startBalance": tier.StartBalance.String(),
	})
	return ch, nil
}

// GetChallengeStatus evaluates the challenge and returns its current state.
// Evaluation trouble is logged and the stored state returned; only a missing
// challenge is an error.
func (s *ChallengeService) GetChallengeStatus(ctx context.Context, challengeID int64) (*domain.Challenge, error) {
	ch, err := s.EvaluateChallenge(ctx, challengeID)
	if err == nil {
		return ch, nil
	}
	if errors.Is(err, ports.ErrNotFound) {
		return nil, err
	}

	s.logger.Error(ctx, err, "Evaluation failed during status read, returning stored state", map[string]interface{}{"challengeID": challengeID})
	stored, findErr := s.loadChallenge(ctx, challengeID)
	if findErr != nil {
		return nil, findErr
	}
	return stored, nil
}

// EvaluateChallenge applies the risk rules to a challenge and persists any transition.
func (s *ChallengeService) EvaluateChallenge(ctx context.Context, challengeID int64) (*domain.Challenge, error) {
	ch, err := s.loadChallenge(ctx, challengeID)
	if err != nil {
		return nil, err
	}
	return s.evaluate(ctx, ch)
}

// evaluate runs the evaluator on ch, reloading and re-evaluating when the
// version-checked save loses a race with a trade close or another evaluation.
func (s *ChallengeService) evaluate(ctx context.Context, ch *domain.Challenge) (*domain.Challenge, error) {
	b := s.retryBackoff()
	for attempt := 1; ; attempt++ {
		decision := s.evaluator.Evaluate(ch, s.now())
		if !decision.Changed() {
			return ch, nil
		}

		err := s.challenges.SaveEvaluation(ctx, ch)
		if err == nil {
			if decision.Transitioned {
				s.logger.Info(ctx, "Challenge status changed", map[string]interface{}{
					"challengeID":  ch.ID,
					"status":       string(decision.Status),
					"rule":         string(decision.Rule),
					"equity":       ch.CurrentEquity.String(),
					"startBalance": ch.StartBalance.String(),
				})
				s.metrics.StatusTransition(decision.Status, decision.Rule)
			}
			return ch, nil
		}
		if !errors.Is(err, ports.ErrConflict) || attempt >= s.maxAttempts {
			return nil, fmt.Errorf("failed to save evaluation of challenge %d: %w", ch.ID, err)
		}

		s.logger.Debug(ctx, "Evaluation conflicted, reloading challenge", map[string]interface{}{"challengeID": ch.ID, "attempt": attempt})
		if err := sleepCtx(ctx, b.Duration()); err != nil {
			return nil, err
		}
		if ch, err = s.loadChallenge(ctx, ch.ID); err != nil {
			return nil, err
		}
	}
}

// EvaluationReport summarises one evaluation sweep.
type EvaluationReport struct {
	RunID     string
	Evaluated int // Challenges evaluated without error
	Failed    int // Challenges that ended the sweep failed
	Funded    int // Challenges that ended the sweep funded
	Errors    int // Challenges whose evaluation returned an error
	Duration  time.Duration
}

// RunScheduledEvaluation evaluates every active challenge once. A failure on one
// challenge is logged and counted and the sweep moves on.
func (s *ChallengeService) RunScheduledEvaluation(ctx context.Context) (*EvaluationReport, error) {
	started := time.Now()
	report := &EvaluationReport{RunID: uuid.NewString()}

	active, err := s.challenges.FindChallengesByStatus(ctx, domain.StatusActive)
	if err != nil {
		s.logger.Error(ctx, err, "Failed to list active challenges", map[string]interface{}{"runID": report.RunID})
		return nil, fmt.Errorf("failed to list active challenges: %w", err)
	}

	for _, ch := range active {
		if ctx.Err() != nil {
			s.logger.Warn(ctx, "Evaluation sweep interrupted", map[string]interface{}{"runID": report.RunID})
			break
		}
		evaluated, err := s.evaluateIsolated(ctx, ch)
		if err != nil {
			report.Errors++
			s.logger.Error(ctx, err, "Failed to evaluate challenge", map[string]interface{}{
				"runID":       report.RunID,
				"challengeID": ch.ID,
			})
			continue
		}
		report.Evaluated++
		switch evaluated.Status {
		case domain.StatusFailed:
			report.Failed++
		case domain.StatusFunded:
			report.Funded++
		}
	}

	report.Duration = time.Since(started)
	s.metrics.EvaluationRun(report.Evaluated, report.Errors, report.Duration.Seconds())
	s.logger.Info(ctx, "Evaluation sweep finished", map[string]interface{}{
		"runID":     report.RunID,
		"active":    len(active),
		"evaluated": report.Evaluated,
		"failed":    report.Failed,
		"funded":    report.Funded,
		"errors":    report.Errors,
		"duration":  report.Duration.String(),
	})
	return report, nil
}

// evaluateIsolated runs evaluate and turns a panic into an error so one bad
// challenge cannot end the sweep.
func (s *ChallengeService) evaluateIsolated(ctx context.Context, ch *domain.Challenge) (evaluated *domain.Challenge, err error) {
	defer func() {
		if r := recover(); r != nil {
			evaluated = nil
			err = fmt.Errorf("evaluation of challenge %d panicked: %v", ch.ID, r)
		}
	}()
	return s.evaluate(ctx, ch)
}

// LeaderboardEntry is one ranked challenge.
type LeaderboardEntry struct {
	Rank          int
	Challenge     *domain.Challenge
	ProfitPercent decimal.Decimal
}

// Leaderboard ranks active and funded challenges by profit percentage.
// A non-positive limit uses the configured default.
func (s *ChallengeService) Leaderboard(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	if limit <= 0 {
		limit = s.leaderboardLimit
	}
	challenges, err := s.challenges.FindChallengesByStatus(ctx, domain.StatusActive, domain.StatusFunded)
	if err != nil {
		return nil, fmt.Errorf("failed to load leaderboard challenges: %w", err)
	}

	entries := make([]LeaderboardEntry, 0, len(challenges))
	for _, ch := range challenges {
		entries = append(entries, LeaderboardEntry{Challenge: ch, ProfitPercent: ch.ProfitPercent()})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].ProfitPercent.GreaterThan(entries[j].ProfitPercent)
	})
	if len(entries) > limit {
		entries = entries[:limit]
	}
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries, nil
}

func (s *ChallengeService) loadChallenge(ctx context.Context, id int64) (*domain.Challenge, error) {
	ch, err := s.challenges.FindChallenge(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load challenge %d: %w", id, err)
	}
	if ch == nil {
		return nil, fmt.Errorf("challenge %d: %w", id, ports.ErrNotFound)
	}
	return ch, nil
}

// sleepCtx waits for d or until ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
