package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"propDesk/internal/domain"
	"propDesk/internal/ports"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// Repository implements the ports.ChallengeRepository and ports.TradeRepository interfaces using SQLite.
type Repository struct {
	db     *sql.DB
	logger ports.Logger
	now    func() time.Time
}

// Config holds configuration for the SQLite repository.
type Config struct {
	DBPath string
	Logger ports.Logger
}

// NewRepository creates a new SQLite repository instance.
func NewRepository(cfg Config) (*Repository, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for SQLite repository")
	}
	dbPath := cfg.DBPath
	if dbPath == "" {
		dbPath = "./data/propdesk.db"
	}

	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			err = fmt.Errorf("failed to create data directory '%s': %w", filepath.Dir(dbPath), err)
			cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
			return nil, err
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		err = fmt.Errorf("failed to open database at '%s': %w: %w", dbPath, ports.ErrDBConnection, err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	if err := db.Ping(); err != nil {
		db.Close()
		err = fmt.Errorf("failed to ping database at '%s': %w: %w", dbPath, ports.ErrDBConnection, err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	// One connection serialises writers; transactions queue on the pool instead of hitting SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(connMaxLifetime(dbPath))

	cfg.Logger.Info(context.Background(), "SQLite database connection established", map[string]interface{}{"path": dbPath})

	repo := &Repository{db: db, logger: cfg.Logger, now: time.Now}

	if err := repo.initializeSchema(context.Background()); err != nil {
		db.Close()
		err = fmt.Errorf("failed to initialize database schema: %w", err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}
	cfg.Logger.Info(context.Background(), "Database schema initialized/verified")

	return repo, nil
}

// connMaxLifetime returns the pool's connection lifetime for dbPath.
// A recycled connection to :memory: would open a new, empty database, so it never expires.
func connMaxLifetime(dbPath string) time.Duration {
	if dbPath == ":memory:" {
		return 0
	}
	return time.Hour
}

// initializeSchema creates tables if they don't exist.
// Money columns are TEXT so decimal values round-trip exactly.
func (r *Repository) initializeSchema(ctx context.Context) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS challenges (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		owner TEXT NOT NULL,
		tier TEXT NOT NULL,
		status TEXT NOT NULL,
		status_reason TEXT NOT NULL DEFAULT '',
		start_balance TEXT NOT NULL,
		current_equity TEXT NOT NULL,
		start_date TIMESTAMP NOT NULL,
		day_start_equity TEXT NOT NULL,
		day_start_date TEXT NOT NULL,
		version INTEGER NOT NULL DEFAULT 0,
		updated_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS trades (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		challenge_id INTEGER NOT NULL REFERENCES challenges(id),
		symbol TEXT NOT NULL,
		side TEXT NOT NULL,
		position TEXT NOT NULL DEFAULT 'long',
		quantity TEXT NOT NULL,
		open_price TEXT NOT NULL,
		close_price TEXT DEFAULT NULL,
		status TEXT NOT NULL,
		profit TEXT NOT NULL DEFAULT '0',
		opened_at TIMESTAMP NOT NULL,
		timestamp TIMESTAMP DEFAULT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_challenges_status ON challenges (status);
	CREATE INDEX IF NOT EXISTS idx_trades_challenge_status ON trades (challenge_id, status);
	`
	_, err := r.db.ExecContext(ctx, schema)
	if err != nil {
		return fmt.Errorf("failed to execute schema initialization: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (r *Repository) Close() error {
	if r.db != nil {
		r.logger.Info(context.Background(), "Closing SQLite database connection")
		return r.db.Close()
	}
	return nil
}

// --- ChallengeRepository Implementation ---

const challengeColumns = `id, owner, tier, status, status_reason, start_balance, current_equity,
	start_date, day_start_equity, day_start_date, version, updated_at`

// CreateChallenge saves a new challenge and returns its assigned ID.
func (r *Repository) CreateChallenge(ctx context.Context, ch *domain.Challenge) (int64, error) {
	const query = `
	INSERT INTO challenges (owner, tier, status, status_reason, start_balance, current_equity,
	                        start_date, day_start_equity, day_start_date, version, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 0, ?)`

	result, err := r.db.ExecContext(ctx, query,
		ch.Owner, ch.Tier, ch.Status, ch.StatusReason, ch.StartBalance, ch.CurrentEquity,
		ch.StartDate, ch.DayStartEquity, ch.DayStartDate, ch.UpdatedAt)
	if err != nil {
		return 0, fmt.Errorf("failed to insert challenge for owner %s: %w: %w", ch.Owner, ports.ErrQueryFailed, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID for challenge of %s: %w", ch.Owner, err)
	}
	ch.ID = id
	ch.Version = 0
	r.logger.Debug(ctx, "Challenge created", map[string]interface{}{"challengeID": id, "owner": ch.Owner, "startBalance": ch.StartBalance.String()})
	return id, nil
}

// FindChallenge retrieves a challenge by its unique ID.
func (r *Repository) FindChallenge(ctx context.Context, id int64) (*domain.Challenge, error) {
	return findChallenge(ctx, r.db, id)
}

// FindChallengesByStatus retrieves all challenges in the given statuses, ordered by ID.
func (r *Repository) FindChallengesByStatus(ctx context.Context, statuses ...domain.ChallengeStatus) ([]*domain.Challenge, error) {
	if len(statuses) == 0 {
		return []*domain.Challenge{}, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(statuses)), ",")
	query := `SELECT ` + challengeColumns + ` FROM challenges WHERE status IN (` + placeholders + `) ORDER BY id`

	args := make([]interface{}, len(statuses))
	for i, s := range statuses {
		args[i] = s
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query challenges by status: %w: %w", ports.ErrQueryFailed, err)
	}
	defer rows.Close()

	challenges := make([]*domain.Challenge, 0)
	for rows.Next() {
		ch, err := scanChallenge(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan challenge: %w", err)
		}
		challenges = append(challenges, ch)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating challenge rows: %w", err)
	}
	return challenges, nil
}

// SaveEvaluation persists the evaluated state of an active challenge guarded by its version.
func (r *Repository) SaveEvaluation(ctx context.Context, ch *domain.Challenge) error {
	const query = `
	UPDATE challenges
	SET status = ?, status_reason = ?, day_start_equity = ?, day_start_date = ?,
	    version = version + 1, updated_at = ?
	WHERE id = ? AND version = ? AND status = ?`

	now := r.now().UTC()
	result, err := r.db.ExecContext(ctx, query,
		ch.Status, ch.StatusReason, ch.DayStartEquity, ch.DayStartDate, now,
		ch.ID, ch.Version, domain.StatusActive)
	if err != nil {
		return fmt.Errorf("failed to save evaluation of challenge %d: %w: %w", ch.ID, ports.ErrUpdateFailed, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected for challenge %d: %w", ch.ID, err)
	}
	if rowsAffected == 0 {
		existing, err := r.FindChallenge(ctx, ch.ID)
		if err != nil {
			return err
		}
		if existing == nil {
			return fmt.Errorf("challenge %d: %w", ch.ID, ports.ErrNotFound)
		}
		return fmt.Errorf("challenge %d changed since version %d: %w", ch.ID, ch.Version, ports.ErrConflict)
	}

	ch.Version++
	ch.UpdatedAt = now
	r.logger.Debug(ctx, "Challenge evaluation saved", map[string]interface{}{"challengeID": ch.ID, "status": ch.Status, "version": ch.Version})
	return nil
}

// --- TradeRepository Implementation ---

const tradeColumns = `id, challenge_id, symbol, side, position, quantity, open_price, close_price,
	status, profit, opened_at, timestamp`

// CreateTrade saves a new trade record and returns its assigned ID.
// The row is only inserted while the owning challenge is active; otherwise
// ErrInvalidState (or ErrNotFound for a missing challenge) is returned.
func (r *Repository) CreateTrade(ctx context.Context, trade *domain.Trade) (int64, error) {
	const query = `
	INSERT INTO trades (challenge_id, symbol, side, position, quantity, open_price, status, profit, opened_at)
	SELECT id, ?, ?, ?, ?, ?, ?, ?, ? FROM challenges WHERE id = ? AND status = ?`

	result, err := r.db.ExecContext(ctx, query,
		trade.Symbol, trade.Side, trade.Position, trade.Quantity, trade.OpenPrice,
		trade.Status, trade.Profit, trade.OpenedAt, trade.ChallengeID, domain.StatusActive)
	if err != nil {
		return 0, fmt.Errorf("failed to insert trade for symbol %s: %w: %w", trade.Symbol, ports.ErrQueryFailed, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to check inserted trade for symbol %s: %w: %w", trade.Symbol, ports.ErrQueryFailed, err)
	}
	if rows == 0 {
		ch, err := r.FindChallenge(ctx, trade.ChallengeID)
		if err != nil {
			return 0, err
		}
		if ch == nil {
			return 0, fmt.Errorf("challenge %d: %w", trade.ChallengeID, ports.ErrNotFound)
		}
		return 0, fmt.Errorf("challenge %d is %s: %w", ch.ID, ch.Status, ports.ErrInvalidState)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID for trade %s: %w", trade.Symbol, err)
	}
	trade.ID = id
	r.logger.Debug(ctx, "Trade created", map[string]interface{}{"tradeID": id, "challengeID": trade.ChallengeID, "symbol": trade.Symbol})
	return id, nil
}

// FindTrade retrieves a trade by its unique ID.
func (r *Repository) FindTrade(ctx context.Context, id int64) (*domain.Trade, error) {
	return findTrade(ctx, r.db, id)
}

// FindOpenTrades retrieves the open trades of a challenge, oldest first.
func (r *Repository) FindOpenTrades(ctx context.Context, challengeID int64) ([]*domain.Trade, error) {
	const query = `SELECT ` + tradeColumns + ` FROM trades WHERE challenge_id = ? AND status = ? ORDER BY id`
	return r.queryTrades(ctx, query, challengeID, domain.TradeOpen)
}

// FindTradesByChallenge retrieves every trade of a challenge, newest first.
func (r *Repository) FindTradesByChallenge(ctx context.Context, challengeID int64) ([]*domain.Trade, error) {
	const query = `SELECT ` + tradeColumns + ` FROM trades WHERE challenge_id = ? ORDER BY id DESC`
	return r.queryTrades(ctx, query, challengeID)
}

func (r *Repository) queryTrades(ctx context.Context, query string, args ...interface{}) ([]*domain.Trade, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query trades: %w: %w", ports.ErrQueryFailed, err)
	}
	defer rows.Close()

	trades := make([]*domain.Trade, 0)
	for rows.Next() {
		trade, err := scanTrade(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trade: %w", err)
		}
		trades = append(trades, trade)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating trade rows: %w", err)
	}
	return trades, nil
}

// SettleTrade closes trade and credits its profit to the owning challenge in one transaction.
func (r *Repository) SettleTrade(ctx context.Context, trade *domain.Trade, expectedVersion int64) (*domain.Challenge, error) {
	if !trade.ClosePrice.Valid || trade.Status != domain.TradeClosed {
		return nil, fmt.Errorf("trade %d has not been settled in memory: %w", trade.ID, ports.ErrValidation)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin settlement of trade %d: %w: %w", trade.ID, ports.ErrDBConnection, err)
	}
	defer tx.Rollback() // no-op after commit

	stored, err := findTrade(ctx, tx, trade.ID)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return nil, fmt.Errorf("trade %d: %w", trade.ID, ports.ErrNotFound)
	}
	if !stored.IsOpen() {
		return nil, fmt.Errorf("trade %d is %s: %w", trade.ID, stored.Status, ports.ErrInvalidState)
	}

	ch, err := findChallenge(ctx, tx, stored.ChallengeID)
	if err != nil {
		return nil, err
	}
	if ch == nil {
		return nil, fmt.Errorf("challenge %d of trade %d: %w", stored.ChallengeID, trade.ID, ports.ErrNotFound)
	}
	if ch.Version != expectedVersion {
		return nil, fmt.Errorf("challenge %d at version %d, expected %d: %w", ch.ID, ch.Version, expectedVersion, ports.ErrConflict)
	}

	const closeQuery = `
	UPDATE trades SET close_price = ?, status = ?, profit = ?, timestamp = ?
	WHERE id = ? AND status = ?`
	result, err := tx.ExecContext(ctx, closeQuery,
		trade.ClosePrice, domain.TradeClosed, trade.Profit, trade.Timestamp, trade.ID, domain.TradeOpen)
	if err != nil {
		return nil, fmt.Errorf("failed to close trade %d: %w: %w", trade.ID, ports.ErrUpdateFailed, err)
	}
	if n, err := result.RowsAffected(); err != nil || n != 1 {
		return nil, fmt.Errorf("trade %d was closed concurrently: %w", trade.ID, ports.ErrInvalidState)
	}

	now := r.now().UTC()
	newEquity := ch.CurrentEquity.Add(trade.Profit)
	const equityQuery = `
	UPDATE challenges SET current_equity = ?, version = version + 1, updated_at = ?
	WHERE id = ? AND version = ?`
	result, err = tx.ExecContext(ctx, equityQuery, newEquity, now, ch.ID, expectedVersion)
	if err != nil {
		return nil, fmt.Errorf("failed to update equity of challenge %d: %w: %w", ch.ID, ports.ErrUpdateFailed, err)
	}
	if n, err := result.RowsAffected(); err != nil || n != 1 {
		return nil, fmt.Errorf("challenge %d changed during settlement: %w", ch.ID, ports.ErrConflict)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit settlement of trade %d: %w: %w", trade.ID, ports.ErrUpdateFailed, err)
	}

	ch.CurrentEquity = newEquity
	ch.Version++
	ch.UpdatedAt = now
	r.logger.Debug(ctx, "Trade settled", map[string]interface{}{
		"tradeID":     trade.ID,
		"challengeID": ch.ID,
		"profit":      trade.Profit.String(),
		"equity":      newEquity.String(),
	})
	return ch, nil
}

// --- Helper Scan Functions ---

// queryer is satisfied by *sql.DB and *sql.Tx.
type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// scanner defines an interface compatible with *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func findChallenge(ctx context.Context, q queryer, id int64) (*domain.Challenge, error) {
	query := `SELECT ` + challengeColumns + ` FROM challenges WHERE id = ?`
	ch, err := scanChallenge(q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not an error, just not found
		}
		return nil, fmt.Errorf("failed to query challenge by ID %d: %w: %w", id, ports.ErrQueryFailed, err)
	}
	return ch, nil
}

func findTrade(ctx context.Context, q queryer, id int64) (*domain.Trade, error) {
	query := `SELECT ` + tradeColumns + ` FROM trades WHERE id = ?`
	trade, err := scanTrade(q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not an error, just not found
		}
		return nil, fmt.Errorf("failed to query trade by ID %d: %w: %w", id, ports.ErrQueryFailed, err)
	}
	return trade, nil
}

// scanChallenge scans a row into a domain.Challenge struct.
func scanChallenge(s scanner) (*domain.Challenge, error) {
	c := &domain.Challenge{}
	var status, reason string
	err := s.Scan(
		&c.ID, &c.Owner, &c.Tier, &status, &reason, &c.StartBalance, &c.CurrentEquity,
		&c.StartDate, &c.DayStartEquity, &c.DayStartDate, &c.Version, &c.UpdatedAt)
	if err != nil {
		return nil, err // Handle sql.ErrNoRows in the caller
	}
	c.Status = domain.ChallengeStatus(status)
	c.StatusReason = domain.Rule(reason)
	return c, nil
}

// scanTrade scans a row into a domain.Trade struct.
func scanTrade(s scanner) (*domain.Trade, error) {
	t := &domain.Trade{}
	var side, position, status string
	var closedAt sql.NullTime
	err := s.Scan(
		&t.ID, &t.ChallengeID, &t.Symbol, &side, &position, &t.Quantity, &t.OpenPrice, &t.ClosePrice,
		&status, &t.Profit, &t.OpenedAt, &closedAt)
	if err != nil {
		return nil, err // Handle sql.ErrNoRows in the caller
	}
	t.Side = domain.OrderSide(side)
	t.Position = domain.PositionSide(position)
	t.Status = domain.TradeStatus(status)
	if closedAt.Valid {
		t.Timestamp = closedAt.Time
	}
	return t, nil
}
