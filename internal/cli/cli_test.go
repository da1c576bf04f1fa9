package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"propDesk/config"
	"propDesk/internal/adapters/logger"
	"propDesk/internal/ports"
	"propDesk/internal/risk"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		DBPath:             filepath.Join(t.TempDir(), "cli.db"),
		LogLevel:           logger.LevelError,
		LogFormat:          logger.FormatText,
		PriceSource:        config.PriceSourceStatic,
		StaticPrices:       "BTCUSDT=100",
		PriceTimeout:       time.Second,
		Rules:              risk.DefaultRuleConfig(),
		EvaluationInterval: time.Minute,
		CloseMaxAttempts:   5,
		LeaderboardLimit:   10,
	}
}

func bootWith(cfg *config.Config) bootstrapFunc {
	return func(ctx context.Context) (*runtime, error) {
		return newRuntime(ctx, cfg)
	}
}

func run(t *testing.T, boot bootstrapFunc, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd(boot)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestChallengeLifecycle(t *testing.T) {
	cfg := testConfig(t)
	boot := bootWith(cfg)

	out, err := run(t, boot, "challenge", "open", "--owner", "alice", "--tier", "starter")
	require.NoError(t, err)
	assert.Contains(t, out, "CHALLENGE #1")
	assert.Contains(t, out, "5000.00")
	assert.Contains(t, out, "active")
	assert.Contains(t, out, "Challenge fee: 200.00")

	out, err = run(t, boot, "trade", "place", "--challenge", "1", "--symbol", "BTCUSDT", "--qty", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "100.00")

	cfg.StaticPrices = "BTCUSDT=120"
	out, err = run(t, boot, "trade", "open", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "40.00")

	cfg.StaticPrices = "BTCUSDT=150"
	out, err = run(t, boot, "trade", "close", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "5100.00")

	out, err = run(t, boot, "challenge", "status", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "5100.00")
	assert.Contains(t, out, "2.00%")
	assert.Contains(t, out, "no open trades")

	dir := t.TempDir()
	csvPath := filepath.Join(dir, "history.csv")
	xlsxPath := filepath.Join(dir, "history.xlsx")
	out, err = run(t, boot, "challenge", "history", "1", "--csv", csvPath, "--xlsx", xlsxPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote 1 trades to "+csvPath)
	assert.Contains(t, out, "PERFORMANCE")
	assert.Contains(t, out, "100.00%")
	assert.FileExists(t, csvPath)
	assert.FileExists(t, xlsxPath)

	out, err = run(t, boot, "leaderboard", "--limit", "5")
	require.NoError(t, err)
	assert.Contains(t, out, "alice")
}

func TestEvaluateSweep(t *testing.T) {
	cfg := testConfig(t)
	boot := bootWith(cfg)

	_, err := run(t, boot, "challenge", "open", "--owner", "bob", "--tier", "pro")
	require.NoError(t, err)
	_, err = run(t, boot, "trade", "place", "--challenge", "1", "--symbol", "BTCUSDT", "--side", "sell", "--position", "short", "--qty", "20")
	require.NoError(t, err)

	// Short 20 from 100 to 160 loses 1200 on a 10000 account: beyond the 10% max loss.
	cfg.StaticPrices = "BTCUSDT=160"
	_, err = run(t, boot, "trade", "close", "1")
	require.NoError(t, err)

	out, err := run(t, boot, "evaluate")
	require.NoError(t, err)
	assert.Contains(t, out, "EVALUATION SWEEP")

	out, err = run(t, boot, "challenge", "status", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "failed")
	assert.Contains(t, out, "max_loss")

	_, err = run(t, boot, "trade", "place", "--challenge", "1", "--symbol", "BTCUSDT", "--qty", "1")
	assert.ErrorIs(t, err, ports.ErrInvalidState)
	assert.Equal(t, exitInvalidState, exitCode(err))
}

func TestCommandErrors(t *testing.T) {
	cfg := testConfig(t)
	boot := bootWith(cfg)

	_, err := run(t, boot, "challenge", "status", "abc")
	assert.ErrorIs(t, err, ports.ErrValidation)

	_, err = run(t, boot, "challenge", "status", "42")
	assert.ErrorIs(t, err, ports.ErrNotFound)
	assert.Equal(t, exitNotFound, exitCode(err))

	_, err = run(t, boot, "challenge", "open", "--owner", "carol", "--tier", "diamond")
	assert.ErrorIs(t, err, ports.ErrValidation)
	assert.Contains(t, err.Error(), "available: starter, pro, elite")

	_, err = run(t, boot, "challenge", "open", "--owner", "carol")
	require.NoError(t, err)
	_, err = run(t, boot, "trade", "place", "--challenge", "1", "--symbol", "BTCUSDT", "--qty", "lots")
	assert.ErrorIs(t, err, ports.ErrValidation)

	_, err = run(t, boot, "trade", "place", "--challenge", "1", "--symbol", "DOGEUSDT", "--qty", "1")
	assert.ErrorIs(t, err, ports.ErrPriceUnavailable)
	assert.Equal(t, exitPriceUnavailable, exitCode(err))
}

func TestNewRuntime_BadStaticPrices(t *testing.T) {
	cfg := testConfig(t)
	cfg.StaticPrices = "BTCUSDT"
	_, err := newRuntime(context.Background(), cfg)
	assert.ErrorIs(t, err, ports.ErrConfigurationError)
}

func TestNewRuntime_TiersFile(t *testing.T) {
	cfg := testConfig(t)
	cfg.TiersFile = filepath.Join(t.TempDir(), "tiers.yaml")
	require.NoError(t, os.WriteFile(cfg.TiersFile, []byte("tiers:\n  - name: micro\n    start_balance: \"1000\"\n"), 0o644))
	boot := bootWith(cfg)

	out, err := run(t, boot, "challenge", "open", "--owner", "dave", "--tier", "micro")
	require.NoError(t, err)
	assert.Contains(t, out, "1000.00")
}

func TestChallengeTiers(t *testing.T) {
	out, err := run(t, bootWith(testConfig(t)), "challenge", "tiers")
	require.NoError(t, err)
	assert.Contains(t, out, "CHALLENGE TIERS")
	assert.Contains(t, out, "starter")
	assert.Contains(t, out, "1000.00")
	assert.Contains(t, out, "25000.00")
}

func TestDescribeError(t *testing.T) {
	err := fmt.Errorf("challenge 9: %w", ports.ErrNotFound)
	assert.Equal(t, "not found: challenge 9: resource not found", describeError(err))
	assert.Equal(t, exitGeneric, exitCode(errors.New("boom")))
	assert.Equal(t, "boom", describeError(errors.New("boom")))
}

func TestPriceCommand(t *testing.T) {
	cfg := testConfig(t)
	cfg.StaticPrices = "BTCUSDT=64000.5"

	out, err := run(t, bootWith(cfg), "price", "btcusdt", "XRPUSDT")
	require.NoError(t, err)
	assert.Contains(t, out, "64000.5")
	assert.Contains(t, out, "XRPUSDT")
	assert.Contains(t, out, "unavailable")
}
