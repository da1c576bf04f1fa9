package cli

import (
	"context"
	"fmt"

	"propDesk/config"
	"propDesk/internal/adapters/binanceclient"
	"propDesk/internal/adapters/logger"
	"propDesk/internal/adapters/metrics"
	"propDesk/internal/adapters/oracle"
	"propDesk/internal/adapters/sqlite"
	"propDesk/internal/app"
	"propDesk/internal/ports"
	"propDesk/internal/risk"
)

// runtime holds the wired application for one command invocation.
type runtime struct {
	cfg     *config.Config
	tiers   config.TierCatalog
	logger  ports.Logger
	service *app.ChallengeService
	oracle  ports.PriceOracle // source wrapped by the optional TTL cache
	source  ports.PriceOracle
	metrics *metrics.Prometheus // nil when METRICS_ADDR is empty
	repo    *sqlite.Repository
}

func bootstrap(ctx context.Context) (*runtime, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w: %w", ports.ErrConfigurationError, err)
	}
	return newRuntime(ctx, cfg)
}

func newRuntime(ctx context.Context, cfg *config.Config) (*runtime, error) {
	// 1. Logger
	appLogger, err := logger.New(cfg.LogFormat, cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w: %w", ports.ErrConfigurationError, err)
	}
	appLogger.Debug(ctx, "Logger initialized", map[string]interface{}{"level": cfg.LogLevel.String(), "format": string(cfg.LogFormat)})

	// 2. Tier catalogue
	tiers, err := config.LoadTiers(cfg.TiersFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load tiers: %w: %w", ports.ErrConfigurationError, err)
	}

	// 3. Repository (Database Adapter)
	repo, err := sqlite.NewRepository(sqlite.Config{DBPath: cfg.DBPath, Logger: appLogger})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database repository: %w", err)
	}

	rt := &runtime{cfg: cfg, tiers: tiers, logger: appLogger, repo: repo}
	fail := func(err error) (*runtime, error) {
		rt.Close()
		return nil, err
	}

	// 4. Price oracle
	source, err := buildOracle(cfg, appLogger)
	if err != nil {
		return fail(err)
	}
	rt.source = source
	rt.oracle = oracle.NewCached(source, cfg.PriceCacheTTL)

	// 5. Risk rules
	evaluator, err := risk.NewEvaluator(cfg.Rules)
	if err != nil {
		return fail(fmt.Errorf("%w: %w", ports.ErrConfigurationError, err))
	}

	// 6. Metrics
	var sink ports.Metrics = ports.NopMetrics{}
	if cfg.MetricsAddr != "" {
		rt.metrics = metrics.NewPrometheus()
		sink = rt.metrics
	}

	// 7. Application service
	rt.service, err = app.NewChallengeService(app.Config{
		Challenges:       repo,
		Trades:           repo,
		Oracle:           rt.oracle,
		Evaluator:        evaluator,
		Logger:           appLogger,
		Metrics:          sink,
		Tiers:            tiers,
		PriceTimeout:     cfg.PriceTimeout,
		MaxAttempts:      cfg.CloseMaxAttempts,
		LeaderboardLimit: cfg.LeaderboardLimit,
	})
	if err != nil {
		return fail(err)
	}
	return rt, nil
}

func buildOracle(cfg *config.Config, log ports.Logger) (ports.PriceOracle, error) {
	var source ports.PriceOracle
	switch cfg.PriceSource {
	case config.PriceSourceStatic:
		prices, err := oracle.ParseStaticPrices(cfg.StaticPrices)
		if err != nil {
			return nil, fmt.Errorf("invalid STATIC_PRICES: %w: %w", ports.ErrConfigurationError, err)
		}
		source = oracle.NewStatic(prices)
	case config.PriceSourceBinance, "":
		client, err := binanceclient.New(binanceclient.Config{
			APIKey:     cfg.APIKey,
			SecretKey:  cfg.SecretKey,
			UseTestnet: cfg.IsTestnet,
			PriceKind:  cfg.BinancePriceKind,
			Logger:     log,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Binance client: %w", err)
		}
		source = client
	default:
		return nil, fmt.Errorf("unknown price source %q: %w", cfg.PriceSource, ports.ErrConfigurationError)
	}
	return source, nil
}

// Close releases the database and flushes buffered log output.
func (r *runtime) Close() {
	if r.repo != nil {
		if err := r.repo.Close(); err != nil {
			r.logger.Error(context.Background(), err, "Error closing database repository")
		}
	}
	if z, ok := r.logger.(*logger.ZapLogger); ok {
		_ = z.Sync()
	}
}
