package binanceclient

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/adshao/go-binance/v2/common"
	"github.com/adshao/go-binance/v2/futures"
	"github.com/shopspring/decimal"

	"propDesk/internal/ports"
)

const (
	baseURLProduction = "https://fapi.binance.com"
	baseURLTestnet    = "https://testnet.binancefuture.com"
)

// PriceKind selects which Binance price backs the oracle.
type PriceKind string

const (
	PriceMark PriceKind = "mark" // Premium index mark price
	PriceLast PriceKind = "last" // Last traded price from 24h ticker stats
)

// Client implements ports.PriceOracle using Binance USDⓈ-M futures market data.
type Client struct {
	futuresClient *futures.Client
	logger        ports.Logger
	kind          PriceKind
	fetch         func(ctx context.Context, symbol string) (string, error)
}

// Config holds configuration specific to the Binance price adapter.
type Config struct {
	APIKey     string
	SecretKey  string
	UseTestnet bool
	PriceKind  PriceKind
	Logger     ports.Logger
}

// New creates a new Binance price oracle. Keys are optional: only public endpoints are used.
func New(cfg Config) (*Client, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for Binance client")
	}
	kind := cfg.PriceKind
	if kind == "" {
		kind = PriceMark
	}
	if kind != PriceMark && kind != PriceLast {
		return nil, fmt.Errorf("unknown Binance price kind %q: %w", kind, ports.ErrConfigurationError)
	}

	fc := futures.NewClient(cfg.APIKey, cfg.SecretKey)
	if cfg.UseTestnet {
		fc.BaseURL = baseURLTestnet
	} else {
		fc.BaseURL = baseURLProduction
	}
	cfg.Logger.Info(context.Background(), "Binance price oracle configured", map[string]interface{}{"baseURL": fc.BaseURL, "priceKind": kind})

	c := &Client{futuresClient: fc, logger: cfg.Logger, kind: kind}
	if kind == PriceLast {
		c.fetch = c.fetchLastPrice
	} else {
		c.fetch = c.fetchMarkPrice
	}
	return c, nil
}

// GetPrice retrieves the current price of symbol.
func (c *Client) GetPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	op := "GetPrice"
	raw, err := c.fetch(ctx, strings.ToUpper(symbol))
	if err != nil {
		return decimal.Zero, c.handleError(ctx, err, op, symbol)
	}
	price, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, c.handleError(ctx, fmt.Errorf("could not parse price '%s': %w", raw, err), op, symbol)
	}
	if !price.IsPositive() {
		return decimal.Zero, c.handleError(ctx, fmt.Errorf("non-positive price %s", price), op, symbol)
	}
	return price, nil
}

// Ping checks the connectivity to the exchange API.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.futuresClient.NewPingService().Do(ctx); err != nil {
		return c.handleError(ctx, fmt.Errorf("ping failed: %w", err), "Ping", "")
	}
	return nil
}

// GetServerTime retrieves the current server time from the exchange.
func (c *Client) GetServerTime(ctx context.Context) (time.Time, error) {
	ms, err := c.futuresClient.NewServerTimeService().Do(ctx)
	if err != nil {
		return time.Time{}, c.handleError(ctx, err, "GetServerTime", "")
	}
	return time.UnixMilli(ms), nil
}

func (c *Client) fetchMarkPrice(ctx context.Context, symbol string) (string, error) {
	indexes, err := c.futuresClient.NewPremiumIndexService().Symbol(symbol).Do(ctx)
	if err != nil {
		return "", err
	}
	if len(indexes) == 0 {
		return "", fmt.Errorf("no mark price returned for symbol %s: %w", symbol, ports.ErrUnknownSymbol)
	}
	return indexes[0].MarkPrice, nil
}

func (c *Client) fetchLastPrice(ctx context.Context, symbol string) (string, error) {
	stats, err := c.futuresClient.NewListPriceChangeStatsService().Symbol(symbol).Do(ctx)
	if err != nil {
		return "", err
	}
	if len(stats) == 0 {
		return "", fmt.Errorf("no ticker returned for symbol %s: %w", symbol, ports.ErrUnknownSymbol)
	}
	return stats[0].LastPrice, nil
}

// handleError translates Binance failures into ports errors. Every failure of a price
// lookup also wraps ports.ErrPriceUnavailable so callers need a single check.
func (c *Client) handleError(ctx context.Context, err error, operation, symbol string) error {
	if err == nil {
		return nil
	}

	fields := map[string]interface{}{"operation": operation, "symbol": symbol}

	var mappedErr error
	var apiErr *common.APIError
	switch {
	case errors.As(err, &apiErr):
		fields["apiErrorCode"] = apiErr.Code
		fields["apiErrorMessage"] = apiErr.Message
		switch apiErr.Code {
		case -1003: // Too many requests
			mappedErr = ports.ErrRateLimited
		case -1021: // Timestamp outside of recvWindow
			mappedErr = ports.ErrTimeout
		case -1022, -2014, -2015: // Signature / API key problems
			mappedErr = ports.ErrAuthenticationFailed
		case -1121: // Invalid symbol
			mappedErr = ports.ErrUnknownSymbol
		default:
			mappedErr = ports.ErrExchangeUnavailable
		}
	case errors.Is(err, ports.ErrUnknownSymbol):
		mappedErr = ports.ErrUnknownSymbol
	case errors.Is(err, context.DeadlineExceeded):
		mappedErr = ports.ErrTimeout
	case errors.Is(err, context.Canceled):
		mappedErr = ports.ErrContextCanceled
	case strings.Contains(err.Error(), "connection refused"),
		strings.Contains(err.Error(), "connection reset by peer"),
		strings.Contains(err.Error(), "no such host"):
		mappedErr = ports.ErrConnectionFailed
	default:
		mappedErr = ports.ErrUnknown
	}

	c.logger.Warn(ctx, operation+" failed", fields)
	if operation == "GetPrice" {
		return fmt.Errorf("%s %s: %w: %w: %w", operation, symbol, ports.ErrPriceUnavailable, mappedErr, err)
	}
	return fmt.Errorf("%s failed: %w: %w", operation, mappedErr, err)
}
