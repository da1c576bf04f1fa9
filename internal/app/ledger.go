package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"propDesk/internal/domain"
	"propDesk/internal/ports"
)

// PlaceTradeRequest describes a simulated market order.
type PlaceTradeRequest struct {
	ChallengeID int64
	Symbol      string
	Side        string // buy or sell
	Position    string // long or short, empty means long
	Quantity    decimal.Decimal
}

// TradeFill is the result of a placed trade.
type TradeFill struct {
	TradeID   int64
	FillPrice decimal.Decimal
}

// TradeClose is the result of a closed trade.
type TradeClose struct {
	TradeID    int64
	Profit     decimal.Decimal
	ClosePrice decimal.Decimal
	Equity     decimal.Decimal // Challenge equity after the close
}

// OpenTrade is an open trade valued at the current market price.
type OpenTrade struct {
	Trade          *domain.Trade
	CurrentPrice   decimal.Decimal
	UnrealizedPnL  decimal.Decimal
	PriceAvailable bool
}

// PlaceTrade opens a simulated trade at the oracle's current price.
// Equity is not touched until the trade is closed.
func (s *ChallengeService) PlaceTrade(ctx context.Context, req PlaceTradeRequest) (*TradeFill, error) {
	symbol := strings.ToUpper(strings.TrimSpace(req.Symbol))
	if symbol == "" {
		return nil, fmt.Errorf("symbol is required: %w", ports.ErrValidation)
	}
	if !req.Quantity.IsPositive() {
		return nil, fmt.Errorf("quantity must be positive, got %s: %w", req.Quantity, ports.ErrValidation)
	}
	side, err := domain.ParseOrderSide(req.Side)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ports.ErrValidation, err)
	}
	position, err := domain.ParsePositionSide(req.Position)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ports.ErrValidation, err)
	}

	ch, err := s.loadChallenge(ctx, req.ChallengeID)
	if err != nil {
		return nil, err
	}
	if !ch.IsActive() {
		return nil, fmt.Errorf("challenge %d is %s: %w", ch.ID, ch.Status, ports.ErrInvalidState)
	}

	price, err := s.lookupPrice(ctx, symbol)
	if err != nil {
		s.logger.Warn(ctx, "Trade rejected, no price", map[string]interface{}{
			"challengeID": ch.ID,
			"symbol":      symbol,
			"error":       err.Error(),
		})
		return nil, err
	}

	trade := &domain.Trade{
		ChallengeID: ch.ID,
		Symbol:      symbol,
		Side:        side,
		Position:    position,
		Quantity:    req.Quantity,
		OpenPrice:   price,
		Status:      domain.TradeOpen,
		Profit:      decimal.Zero,
		OpenedAt:    s.now().UTC(),
	}
	id, err := s.trades.CreateTrade(ctx, trade)
	if errors.Is(err, ports.ErrInvalidState) || errors.Is(err, ports.ErrNotFound) {
		s.logger.Warn(ctx, "Trade rejected, challenge changed during price lookup", map[string]interface{}{
			"challengeID": ch.ID,
			"symbol":      symbol,
			"error":       err.Error(),
		})
		return nil, err
	}
	if err != nil {
		s.logger.Error(ctx, err, "Failed to persist trade", map[string]interface{}{"challengeID": ch.ID, "symbol": symbol})
		return nil, fmt.Errorf("failed to persist trade: %w", err)
	}

	s.metrics.TradeOpened(symbol, position)
	s.logger.Info(ctx, "Trade opened", map[string]interface{}{
		"tradeID":     id,
		"challengeID": ch.ID,
		"symbol":      symbol,
		"side":        string(side),
		"position":    string(position),
		"quantity":    req.Quantity.String(),
		"price":       price.String(),
	})
	return &TradeFill{TradeID: id, FillPrice: price}, nil
}

// CloseTrade settles an open trade at the current price and adds its profit to the
// challenge equity. The trade close and the equity update commit together; a
// version conflict with a concurrent close is retried with backoff.
func (s *ChallengeService) CloseTrade(ctx context.Context, tradeID int64) (*TradeClose, error) {
	trade, err := s.trades.FindTrade(ctx, tradeID)
	if err != nil {
		return nil, fmt.Errorf("failed to load trade %d: %w", tradeID, err)
	}
	if trade == nil {
		return nil, fmt.Errorf("trade %d: %w", tradeID, ports.ErrNotFound)
	}
	if !trade.IsOpen() {
		return nil, fmt.Errorf("trade %d is already %s: %w", tradeID, trade.Status, ports.ErrInvalidState)
	}

	price, err := s.lookupPrice(ctx, trade.Symbol)
	if err != nil {
		s.logger.Warn(ctx, "Trade close rejected, no price", map[string]interface{}{
			"tradeID": tradeID,
			"symbol":  trade.Symbol,
			"error":   err.Error(),
		})
		return nil, err
	}

	b := s.retryBackoff()
	for attempt := 1; ; attempt++ {
		ch, err := s.loadChallenge(ctx, trade.ChallengeID)
		if err != nil {
			return nil, err
		}

		closing := *trade
		profit := closing.Settle(price, s.now())
		updated, err := s.trades.SettleTrade(ctx, &closing, ch.Version)
		if err == nil {
			s.metrics.TradeClosed(closing.Symbol, closing.Position, profit.InexactFloat64())
			s.logger.Info(ctx, "Trade closed", map[string]interface{}{
				"tradeID":     tradeID,
				"challengeID": updated.ID,
				"symbol":      closing.Symbol,
				"closePrice":  price.String(),
				"profit":      profit.String(),
				"equity":      updated.CurrentEquity.String(),
				"attempt":     attempt,
			})
			return &TradeClose{TradeID: tradeID, Profit: profit, ClosePrice: price, Equity: updated.CurrentEquity}, nil
		}
		if !errors.Is(err, ports.ErrConflict) || attempt >= s.maxAttempts {
			return nil, fmt.Errorf("failed to close trade %d: %w", tradeID, err)
		}

		s.logger.Debug(ctx, "Trade close conflicted, retrying", map[string]interface{}{"tradeID": tradeID, "attempt": attempt})
		if err := sleepCtx(ctx, b.Duration()); err != nil {
			return nil, err
		}
	}
}

// ListOpenTrades returns the open trades of a challenge valued at current prices.
// A symbol whose price cannot be fetched is reported with PriceAvailable false and
// zero PnL; the listing itself does not fail for price reasons.
func (s *ChallengeService) ListOpenTrades(ctx context.Context, challengeID int64) ([]OpenTrade, error) {
	if _, err := s.loadChallenge(ctx, challengeID); err != nil {
		return nil, err
	}
	trades, err := s.trades.FindOpenTrades(ctx, challengeID)
	if err != nil {
		return nil, fmt.Errorf("failed to load open trades of challenge %d: %w", challengeID, err)
	}

	type quote struct {
		price decimal.Decimal
		ok    bool
	}
	quotes := make(map[string]quote)

	result := make([]OpenTrade, 0, len(trades))
	for _, t := range trades {
		q, seen := quotes[t.Symbol]
		if !seen {
			price, err := s.lookupPrice(ctx, t.Symbol)
			if err != nil {
				s.logger.Warn(ctx, "Price unavailable for open trade valuation", map[string]interface{}{
					"challengeID": challengeID,
					"symbol":      t.Symbol,
					"error":       err.Error(),
				})
			}
			q = quote{price: price, ok: err == nil}
			quotes[t.Symbol] = q
		}

		ot := OpenTrade{Trade: t, UnrealizedPnL: decimal.Zero, PriceAvailable: q.ok}
		if q.ok {
			ot.CurrentPrice = q.price
			ot.UnrealizedPnL = t.ProfitAt(q.price)
		}
		result = append(result, ot)
	}
	return result, nil
}

// TradeHistory returns every trade of a challenge, newest first.
func (s *ChallengeService) TradeHistory(ctx context.Context, challengeID int64) ([]*domain.Trade, error) {
	if _, err := s.loadChallenge(ctx, challengeID); err != nil {
		return nil, err
	}
	trades, err := s.trades.FindTradesByChallenge(ctx, challengeID)
	if err != nil {
		return nil, fmt.Errorf("failed to load trades of challenge %d: %w", challengeID, err)
	}
	return trades, nil
}

// lookupPrice asks the oracle for a price under the configured timeout.
// Any failure, including a non-positive price, is ErrPriceUnavailable.
func (s *ChallengeService) lookupPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	ctx, cancel := context.WithTimeout(ctx, s.priceTimeout)
	defer cancel()

	price, err := s.oracle.GetPrice(ctx, symbol)
	if err != nil {
		s.metrics.PriceLookupFailed(symbol)
		return decimal.Zero, fmt.Errorf("price for %s: %w: %w", symbol, ports.ErrPriceUnavailable, err)
	}
	if !price.IsPositive() {
		s.metrics.PriceLookupFailed(symbol)
		return decimal.Zero, fmt.Errorf("price for %s is %s: %w", symbol, price, ports.ErrPriceUnavailable)
	}
	return price, nil
}
