package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"propDesk/internal/adapters/binanceclient"
	"propDesk/internal/adapters/logger"
	"propDesk/internal/risk"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "./data/propdesk.db", cfg.DBPath)
	assert.Equal(t, logger.LevelInfo, cfg.LogLevel)
	assert.Equal(t, logger.FormatText, cfg.LogFormat)
	assert.Equal(t, PriceSourceBinance, cfg.PriceSource)
	assert.Equal(t, binanceclient.PriceMark, cfg.BinancePriceKind)
	assert.Equal(t, 5*time.Second, cfg.PriceTimeout)
	assert.Equal(t, time.Duration(0), cfg.PriceCacheTTL)
	assert.Equal(t, 60*time.Second, cfg.EvaluationInterval)
	assert.Equal(t, 5, cfg.CloseMaxAttempts)
	assert.Equal(t, 10, cfg.LeaderboardLimit)
	assert.True(t, cfg.Rules.MaxLossPct.Equal(decimal.RequireFromString("0.10")))
	assert.True(t, cfg.Rules.DailyLossPct.Equal(decimal.RequireFromString("0.05")))
	assert.True(t, cfg.Rules.ProfitTargetPct.Equal(decimal.RequireFromString("0.10")))
	assert.Equal(t, risk.BaselineStartBalance, cfg.Rules.DailyLossBaselineMode)
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Setenv("PRICE_SOURCE", "static")
	t.Setenv("STATIC_PRICES", "BTCUSDT=100")
	t.Setenv("LOG_FORMAT", "JSON")
	t.Setenv("EVALUATION_INTERVAL_SECONDS", "15")
	t.Setenv("DAILY_LOSS_BASELINE", "day_start_equity")
	t.Setenv("DAILY_LOSS_PCT", "0.04")
	t.Setenv("PRICE_CACHE_TTL_SECONDS", "3")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, PriceSourceStatic, cfg.PriceSource)
	assert.Equal(t, logger.FormatJSON, cfg.LogFormat)
	assert.Equal(t, 15*time.Second, cfg.EvaluationInterval)
	assert.Equal(t, 3*time.Second, cfg.PriceCacheTTL)
	assert.Equal(t, risk.BaselineDayStartEquity, cfg.Rules.DailyLossBaselineMode)
	assert.True(t, cfg.Rules.DailyLossPct.Equal(decimal.RequireFromString("0.04")))
}

func TestLoadConfig_CollectsErrors(t *testing.T) {
	t.Setenv("PRICE_SOURCE", "static")
	t.Setenv("EVALUATION_INTERVAL_SECONDS", "0")
	t.Setenv("MAX_LOSS_PCT", "abc")
	t.Setenv("DAILY_LOSS_BASELINE", "weekly")

	_, err := LoadConfig()
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, "STATIC_PRICES must be set")
	assert.Contains(t, msg, "EVALUATION_INTERVAL_SECONDS must be positive")
	assert.Contains(t, msg, "invalid MAX_LOSS_PCT")
	assert.Contains(t, msg, "invalid DAILY_LOSS_BASELINE")
}

func TestLoadConfig_RejectsOutOfRangeRules(t *testing.T) {
	t.Setenv("MAX_LOSS_PCT", "1.5")
	_, err := LoadConfig()
	assert.Error(t, err)
}

func TestTiers_Defaults(t *testing.T) {
	tiers, err := LoadTiers("")
	require.NoError(t, err)

	pro, ok := tiers.Lookup("PRO")
	require.True(t, ok)
	assert.True(t, pro.StartBalance.Equal(decimal.NewFromInt(10000)))
	assert.True(t, pro.Price.Equal(decimal.NewFromInt(500)))
	assert.True(t, tiers["starter"].Price.Equal(decimal.NewFromInt(200)))
	assert.True(t, tiers["elite"].Price.Equal(decimal.NewFromInt(1000)))
	assert.Equal(t, []string{"starter", "pro", "elite"}, tiers.Names())

	_, ok = tiers.Lookup("platinum")
	assert.False(t, ok)
}

func TestTiers_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tiers.yaml")
	content := `
tiers:
  - name: Mini
    price: "19.99"
    start_balance: "2500"
  - name: max
    start_balance: "100000"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	tiers, err := LoadTiers(path)
	require.NoError(t, err)
	require.Len(t, tiers, 2)

	mini, ok := tiers.Lookup("mini")
	require.True(t, ok)
	assert.True(t, mini.Price.Equal(decimal.RequireFromString("19.99")))
	assert.True(t, mini.StartBalance.Equal(decimal.NewFromInt(2500)))

	max, _ := tiers.Lookup("max")
	assert.True(t, max.Price.IsZero())
}

func TestParseTiers_Invalid(t *testing.T) {
	cases := map[string]string{
		"empty":     "tiers: []",
		"no name":   "tiers:\n  - start_balance: \"10\"",
		"duplicate": "tiers:\n  - {name: a, start_balance: \"1\"}\n  - {name: A, start_balance: \"2\"}",
		"balance":   "tiers:\n  - {name: a, start_balance: \"-5\"}",
		"price":     "tiers:\n  - {name: a, start_balance: \"5\", price: \"x\"}",
		"yaml":      "tiers: [",
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseTiers([]byte(content))
			assert.Error(t, err)
		})
	}
}
