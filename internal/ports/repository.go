package ports

import (
	"context"

	"propDesk/internal/domain"
)

// ChallengeRepository defines storage for challenge accounts.
type ChallengeRepository interface {
	// CreateChallenge saves a new challenge and returns its assigned ID.
	CreateChallenge(ctx context.Context, ch *domain.Challenge) (int64, error)
	// FindChallenge retrieves a challenge by ID.
	// Returns nil, nil if not found.
	FindChallenge(ctx context.Context, id int64) (*domain.Challenge, error)
	// FindChallengesByStatus retrieves all challenges in one of the given statuses, ordered by ID.
	FindChallengesByStatus(ctx context.Context, statuses ...domain.ChallengeStatus) ([]*domain.Challenge, error)
	// SaveEvaluation persists status, status reason and daily baseline of ch if its stored
	// version still equals ch.Version. It bumps ch.Version on success and returns
	// ErrConflict when the row changed underneath.
	SaveEvaluation(ctx context.Context, ch *domain.Challenge) error
}

// TradeRepository defines storage for trades.
type TradeRepository interface {
	// CreateTrade saves a new open trade and returns its assigned ID. The insert is
	// conditional on the owning challenge being active at write time: a missing
	// challenge returns ErrNotFound and a failed or funded one ErrInvalidState.
	CreateTrade(ctx context.Context, trade *domain.Trade) (int64, error)
	// FindTrade retrieves a trade by ID.
	// Returns nil, nil if not found.
	FindTrade(ctx context.Context, id int64) (*domain.Trade, error)
	// FindOpenTrades retrieves the open trades of a challenge, oldest first.
	FindOpenTrades(ctx context.Context, challengeID int64) ([]*domain.Trade, error)
	// FindTradesByChallenge retrieves every trade of a challenge, newest first.
	FindTradesByChallenge(ctx context.Context, challengeID int64) ([]*domain.Trade, error)
	// SettleTrade writes the closed trade and adds its profit to the owning challenge's
	// equity in a single transaction. expectedVersion is the challenge version the
	// profit was computed against; a mismatch returns ErrConflict and nothing is written.
	// A trade that is no longer open returns ErrInvalidState.
	SettleTrade(ctx context.Context, trade *domain.Trade, expectedVersion int64) (*domain.Challenge, error)
}
