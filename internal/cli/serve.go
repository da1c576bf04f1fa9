package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"propDesk/internal/app"
)

func newServeCmd(boot bootstrapFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the evaluation scheduler until interrupted",
		Long: `Run the evaluation scheduler until SIGINT or SIGTERM.

Every EVALUATION_INTERVAL_SECONDS all active challenges are evaluated.
When METRICS_ADDR is set, Prometheus metrics are served on /metrics.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return withRuntime(cmd, boot, func(_ context.Context, rt *runtime) error {
				return serve(ctx, rt)
			})
		},
	}
}

// exchangeProbe is implemented by price sources backed by a remote exchange.
type exchangeProbe interface {
	Ping(ctx context.Context) error
	GetServerTime(ctx context.Context) (time.Time, error)
}

// probeSource checks connectivity of a remote price source and logs clock skew.
// Failures are logged, not returned.
func probeSource(ctx context.Context, rt *runtime) {
	probe, ok := rt.source.(exchangeProbe)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, rt.cfg.PriceTimeout)
	defer cancel()

	if err := probe.Ping(ctx); err != nil {
		rt.logger.Warn(ctx, "Price source unreachable at startup", map[string]interface{}{"error": err.Error()})
		return
	}
	serverTime, err := probe.GetServerTime(ctx)
	if err != nil {
		rt.logger.Warn(ctx, "Could not read exchange server time", map[string]interface{}{"error": err.Error()})
		return
	}
	rt.logger.Info(ctx, "Price source reachable", map[string]interface{}{
		"clockSkew": time.Since(serverTime).Round(time.Millisecond).String(),
	})
}

// serve runs the scheduler and the optional metrics listener until ctx ends.
func serve(ctx context.Context, rt *runtime) error {
	var srv *http.Server
	if rt.metrics != nil {
		mux := http.NewServeMux()
		mux.Handle("/metrics", rt.metrics.Handler())
		srv = &http.Server{Addr: rt.cfg.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			rt.logger.Info(ctx, "Metrics listener started", map[string]interface{}{"addr": rt.cfg.MetricsAddr})
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				rt.logger.Error(ctx, err, "Metrics listener failed")
			}
		}()
	}

	probeSource(ctx, rt)

	// First sweep runs immediately, later ones on the ticker.
	if _, err := rt.service.RunScheduledEvaluation(ctx); err != nil {
		rt.logger.Error(ctx, err, "Initial evaluation sweep failed")
	}

	scheduler := app.NewScheduler(rt.service, rt.cfg.EvaluationInterval, rt.logger)
	if err := scheduler.Start(ctx); err != nil {
		return err
	}

	<-ctx.Done()
	rt.logger.Info(context.Background(), "Shutdown requested")
	scheduler.Stop()

	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			rt.logger.Error(context.Background(), err, "Metrics listener shutdown failed")
		}
	}
	rt.logger.Info(context.Background(), "propdesk finished gracefully")
	return nil
}
