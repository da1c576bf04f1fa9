package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"propDesk/internal/adapters/binanceclient"
	"propDesk/internal/adapters/logger"
	"propDesk/internal/risk"
)

// Price sources the oracle can be built from.
const (
	PriceSourceBinance = "binance"
	PriceSourceStatic  = "static"
)

// Config holds all application configuration.
type Config struct {
	// Database
	DBPath string

	// Logging
	LogLevel  logger.LogLevel
	LogFormat logger.Format

	// Price oracle
	PriceSource      string
	StaticPrices     string // SYMBOL=price pairs for the static source
	APIKey           string
	SecretKey        string
	IsTestnet        bool
	BinancePriceKind binanceclient.PriceKind
	PriceTimeout     time.Duration
	PriceCacheTTL    time.Duration // 0 disables caching

	// Challenge rules
	Rules risk.RuleConfig

	// Engine
	EvaluationInterval time.Duration
	CloseMaxAttempts   int
	LeaderboardLimit   int

	// Tier catalogue (empty = built-in tiers)
	TiersFile string

	// Observability
	MetricsAddr string // empty disables the /metrics listener
}

// LoadConfig loads configuration from environment variables (.env file).
func LoadConfig() (*Config, error) {
	// Load .env file, but don't fail if it doesn't exist (allow pure env vars)
	_ = godotenv.Load()

	cfg := &Config{}
	var err error
	var errs []string // Collect validation errors

	// Database
	cfg.DBPath = getEnv("DB_PATH", "./data/propdesk.db")

	// Logging
	cfg.LogLevel = logger.ParseLevel(getEnv("LOG_LEVEL", "INFO"))
	cfg.LogFormat = logger.Format(strings.ToLower(getEnv("LOG_FORMAT", string(logger.FormatText))))
	if cfg.LogFormat != logger.FormatText && cfg.LogFormat != logger.FormatJSON {
		errs = append(errs, "LOG_FORMAT must be 'text' or 'json'")
	}

	// Price oracle
	cfg.PriceSource = strings.ToLower(getEnv("PRICE_SOURCE", PriceSourceBinance))
	if cfg.PriceSource != PriceSourceBinance && cfg.PriceSource != PriceSourceStatic {
		errs = append(errs, "PRICE_SOURCE must be 'binance' or 'static'")
	}
	cfg.StaticPrices = getEnv("STATIC_PRICES", "")
	if cfg.PriceSource == PriceSourceStatic && cfg.StaticPrices == "" {
		errs = append(errs, "STATIC_PRICES must be set when PRICE_SOURCE=static")
	}
	cfg.APIKey = getEnv("BINANCE_API_KEY", "")
	cfg.SecretKey = getEnv("BINANCE_API_SECRET", "")
	cfg.IsTestnet = getEnvAsBool("IS_TESTNET", false)
	cfg.BinancePriceKind = binanceclient.PriceKind(strings.ToLower(getEnv("BINANCE_PRICE_KIND", string(binanceclient.PriceMark))))
	if cfg.BinancePriceKind != binanceclient.PriceMark && cfg.BinancePriceKind != binanceclient.PriceLast {
		errs = append(errs, "BINANCE_PRICE_KIND must be 'mark' or 'last'")
	}

	priceTimeoutMs, err := getEnvAsIntRequired("PRICE_TIMEOUT_MS", 5000)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid PRICE_TIMEOUT_MS: %v", err))
	} else if priceTimeoutMs <= 0 {
		errs = append(errs, "PRICE_TIMEOUT_MS must be positive")
	}
	cfg.PriceTimeout = time.Duration(priceTimeoutMs) * time.Millisecond

	cacheSeconds, err := getEnvAsIntRequired("PRICE_CACHE_TTL_SECONDS", 0)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid PRICE_CACHE_TTL_SECONDS: %v", err))
	} else if cacheSeconds < 0 {
		errs = append(errs, "PRICE_CACHE_TTL_SECONDS cannot be negative")
	}
	cfg.PriceCacheTTL = time.Duration(cacheSeconds) * time.Second

	// Challenge rules
	defaults := risk.DefaultRuleConfig()
	cfg.Rules.MaxLossPct, err = getEnvAsDecimalRequired("MAX_LOSS_PCT", defaults.MaxLossPct)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid MAX_LOSS_PCT: %v", err))
	}
	cfg.Rules.DailyLossPct, err = getEnvAsDecimalRequired("DAILY_LOSS_PCT", defaults.DailyLossPct)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid DAILY_LOSS_PCT: %v", err))
	}
	cfg.Rules.ProfitTargetPct, err = getEnvAsDecimalRequired("PROFIT_TARGET_PCT", defaults.ProfitTargetPct)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid PROFIT_TARGET_PCT: %v", err))
	}
	cfg.Rules.DailyLossBaselineMode, err = risk.ParseBaselineMode(getEnv("DAILY_LOSS_BASELINE", string(risk.BaselineStartBalance)))
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid DAILY_LOSS_BASELINE: %v", err))
	}
	if len(errs) == 0 {
		if err := cfg.Rules.Validate(); err != nil {
			errs = append(errs, err.Error())
		}
	}

	// Engine
	intervalSeconds, err := getEnvAsIntRequired("EVALUATION_INTERVAL_SECONDS", 60)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid EVALUATION_INTERVAL_SECONDS: %v", err))
	} else if intervalSeconds <= 0 {
		errs = append(errs, "EVALUATION_INTERVAL_SECONDS must be positive")
	}
	cfg.EvaluationInterval = time.Duration(intervalSeconds) * time.Second

	cfg.CloseMaxAttempts, err = getEnvAsIntRequired("CLOSE_MAX_ATTEMPTS", 5)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid CLOSE_MAX_ATTEMPTS: %v", err))
	} else if cfg.CloseMaxAttempts <= 0 {
		errs = append(errs, "CLOSE_MAX_ATTEMPTS must be positive")
	}

	cfg.LeaderboardLimit = getEnvAsInt("LEADERBOARD_LIMIT", 10)
	if cfg.LeaderboardLimit <= 0 {
		errs = append(errs, "LEADERBOARD_LIMIT must be positive")
	}

	cfg.TiersFile = getEnv("TIERS_FILE", "")
	cfg.MetricsAddr = getEnv("METRICS_ADDR", "")

	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}

	return cfg, nil
}

// --- Env Var Helpers ---

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsIntRequired(key string, defaultValue int) (int, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue, nil
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return 0, fmt.Errorf("invalid integer value '%s' for key %s: %w", valueStr, key, err)
	}
	return value, nil
}

func getEnvAsDecimalRequired(key string, defaultValue decimal.Decimal) (decimal.Decimal, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue, nil
	}
	value, err := decimal.NewFromString(valueStr)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid decimal value '%s' for key %s: %w", valueStr, key, err)
	}
	return value, nil
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
