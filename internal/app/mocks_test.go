package app

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"propDesk/internal/domain"
	"propDesk/internal/ports"
)

// Mock implementations
type mockLogger struct {
	mu        sync.Mutex
	infoMsgs  []string
	warnMsgs  []string
	errorMsgs []string
}

func (m *mockLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {}

func (m *mockLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.infoMsgs = append(m.infoMsgs, msg)
}

func (m *mockLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.warnMsgs = append(m.warnMsgs, msg)
}

func (m *mockLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorMsgs = append(m.errorMsgs, msg)
}

func (m *mockLogger) errors() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.errorMsgs...)
}

// mockOracle serves fixed prices; symbols listed in errs fail.
// onLookup, if set, runs before each lookup without the lock held.
type mockOracle struct {
	mu       sync.Mutex
	prices   map[string]decimal.Decimal
	errs     map[string]error
	calls    int
	onLookup func()
}

func newMockOracle() *mockOracle {
	return &mockOracle{prices: map[string]decimal.Decimal{}, errs: map[string]error{}}
}

func (m *mockOracle) set(symbol, price string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prices[symbol] = decimal.RequireFromString(price)
	delete(m.errs, symbol)
}

func (m *mockOracle) fail(symbol string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errs[symbol] = err
}

func (m *mockOracle) GetPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	if m.onLookup != nil {
		m.onLookup()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if err, ok := m.errs[symbol]; ok {
		return decimal.Zero, err
	}
	p, ok := m.prices[symbol]
	if !ok {
		return decimal.Zero, fmt.Errorf("no price for %s", symbol)
	}
	return p, nil
}

// memStore is an in-memory ChallengeRepository and TradeRepository with the
// same version semantics as the SQLite adapter.
type memStore struct {
	mu         sync.Mutex
	challenges map[int64]domain.Challenge
	trades     map[int64]domain.Trade
	nextID     int64

	// Hooks for failure injection.
	settleConflicts int             // SettleTrade returns ErrConflict this many times
	saveConflicts   int             // SaveEvaluation returns ErrConflict this many times
	saveErrIDs      map[int64]error // SaveEvaluation fails for these challenges
	savePanicIDs    map[int64]bool  // SaveEvaluation panics for these challenges
	createTradeErr  error
}

func newMemStore() *memStore {
	return &memStore{
		challenges:   map[int64]domain.Challenge{},
		trades:       map[int64]domain.Trade{},
		saveErrIDs:   map[int64]error{},
		savePanicIDs: map[int64]bool{},
	}
}

func (m *memStore) CreateChallenge(ctx context.Context, ch *domain.Challenge) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	ch.ID = m.nextID
	m.challenges[ch.ID] = *ch
	return ch.ID, nil
}

func (m *memStore) FindChallenge(ctx context.Context, id int64) (*domain.Challenge, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch, ok := m.challenges[id]
	if !ok {
		return nil, nil
	}
	return &ch, nil
}

func (m *memStore) FindChallengesByStatus(ctx context.Context, statuses ...domain.ChallengeStatus) ([]*domain.Challenge, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Challenge
	for _, ch := range m.challenges {
		for _, st := range statuses {
			if ch.Status == st {
				c := ch
				out = append(out, &c)
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) SaveEvaluation(ctx context.Context, ch *domain.Challenge) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err, ok := m.saveErrIDs[ch.ID]; ok {
		return err
	}
	if m.savePanicIDs[ch.ID] {
		panic(fmt.Sprintf("corrupt row for challenge %d", ch.ID))
	}
	if m.saveConflicts > 0 {
		m.saveConflicts--
		return fmt.Errorf("injected: %w", ports.ErrConflict)
	}
	stored, ok := m.challenges[ch.ID]
	if !ok {
		return fmt.Errorf("challenge %d: %w", ch.ID, ports.ErrNotFound)
	}
	if stored.Version != ch.Version || stored.Status != domain.StatusActive {
		return fmt.Errorf("challenge %d: %w", ch.ID, ports.ErrConflict)
	}
	stored.Status = ch.Status
	stored.StatusReason = ch.StatusReason
	stored.DayStartEquity = ch.DayStartEquity
	stored.DayStartDate = ch.DayStartDate
	stored.Version++
	ch.Version = stored.Version
	m.challenges[ch.ID] = stored
	return nil
}

func (m *memStore) CreateTrade(ctx context.Context, trade *domain.Trade) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createTradeErr != nil {
		return 0, m.createTradeErr
	}
	ch, ok := m.challenges[trade.ChallengeID]
	if !ok {
		return 0, fmt.Errorf("challenge %d: %w", trade.ChallengeID, ports.ErrNotFound)
	}
	if ch.Status != domain.StatusActive {
		return 0, fmt.Errorf("challenge %d is %s: %w", ch.ID, ch.Status, ports.ErrInvalidState)
	}
	m.nextID++
	trade.ID = m.nextID
	m.trades[trade.ID] = *trade
	return trade.ID, nil
}

func (m *memStore) FindTrade(ctx context.Context, id int64) (*domain.Trade, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.trades[id]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

func (m *memStore) FindOpenTrades(ctx context.Context, challengeID int64) ([]*domain.Trade, error) {
	all, _ := m.FindTradesByChallenge(ctx, challengeID)
	var open []*domain.Trade
	for i := len(all) - 1; i >= 0; i-- {
		if all[i].IsOpen() {
			open = append(open, all[i])
		}
	}
	return open, nil
}

func (m *memStore) FindTradesByChallenge(ctx context.Context, challengeID int64) ([]*domain.Trade, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Trade
	for _, t := range m.trades {
		if t.ChallengeID == challengeID {
			c := t
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (m *memStore) SettleTrade(ctx context.Context, trade *domain.Trade, expectedVersion int64) (*domain.Challenge, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.settleConflicts > 0 {
		m.settleConflicts--
		return nil, fmt.Errorf("injected: %w", ports.ErrConflict)
	}
	stored, ok := m.trades[trade.ID]
	if !ok {
		return nil, fmt.Errorf("trade %d: %w", trade.ID, ports.ErrNotFound)
	}
	if !stored.IsOpen() {
		return nil, fmt.Errorf("trade %d: %w", trade.ID, ports.ErrInvalidState)
	}
	ch := m.challenges[stored.ChallengeID]
	if ch.Version != expectedVersion {
		return nil, fmt.Errorf("challenge %d: %w", ch.ID, ports.ErrConflict)
	}
	m.trades[trade.ID] = *trade
	ch.CurrentEquity = ch.CurrentEquity.Add(trade.Profit)
	ch.Version++
	m.challenges[ch.ID] = ch
	return &ch, nil
}

// setEquity overwrites a challenge's equity, bumping its version like a trade close would.
func (m *memStore) setEquity(id int64, equity string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch := m.challenges[id]
	ch.CurrentEquity = decimal.RequireFromString(equity)
	ch.Version++
	m.challenges[id] = ch
}

func (m *memStore) tradeCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.trades)
}

// recordingMetrics counts metric events.
type recordingMetrics struct {
	mu          sync.Mutex
	opened      int
	closed      int
	transitions []string
	runs        int
	priceFails  int
}

func (r *recordingMetrics) TradeOpened(string, domain.PositionSide) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.opened++
}

func (r *recordingMetrics) TradeClosed(string, domain.PositionSide, float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed++
}

func (r *recordingMetrics) StatusTransition(to domain.ChallengeStatus, rule domain.Rule) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transitions = append(r.transitions, string(to)+"/"+string(rule))
}

func (r *recordingMetrics) EvaluationRun(int, int, float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs++
}

func (r *recordingMetrics) PriceLookupFailed(string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.priceFails++
}

var errOracleDown = errors.New("oracle down")

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
