package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"propDesk/internal/domain"
)

// Prometheus implements ports.Metrics with a dedicated registry.
type Prometheus struct {
	registry *prometheus.Registry

	tradesOpened      *prometheus.CounterVec
	tradesClosed      *prometheus.CounterVec
	realizedProfit    *prometheus.CounterVec
	transitions       *prometheus.CounterVec
	evaluationRuns    prometheus.Counter
	evaluated         prometheus.Counter
	evaluationErrors  prometheus.Counter
	evaluationSeconds prometheus.Histogram
	priceFailures     *prometheus.CounterVec
}

// NewPrometheus creates and registers the engine metrics.
func NewPrometheus() *Prometheus {
	p := &Prometheus{
		registry: prometheus.NewRegistry(),
		tradesOpened: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "propdesk_trades_opened_total",
				Help: "Trades opened",
			},
			[]string{"symbol", "position"},
		),
		tradesClosed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "propdesk_trades_closed_total",
				Help: "Trades closed, split by result (win|loss|flat)",
			},
			[]string{"symbol", "position", "result"},
		),
		realizedProfit: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "propdesk_realized_profit_abs_total",
				Help: "Absolute realized profit, split by sign",
			},
			[]string{"sign"},
		),
		transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "propdesk_challenge_transitions_total",
				Help: "Challenge status transitions by target status and rule",
			},
			[]string{"status", "rule"},
		),
		evaluationRuns: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "propdesk_evaluation_runs_total",
			Help: "Scheduled evaluation sweeps",
		}),
		evaluated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "propdesk_challenges_evaluated_total",
			Help: "Challenges evaluated by scheduled sweeps",
		}),
		evaluationErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "propdesk_evaluation_errors_total",
			Help: "Per-challenge evaluation failures during sweeps",
		}),
		evaluationSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "propdesk_evaluation_duration_seconds",
			Help:    "Duration of scheduled evaluation sweeps",
			Buckets: prometheus.DefBuckets,
		}),
		priceFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "propdesk_price_lookup_failures_total",
				Help: "Price oracle lookups that returned unavailable",
			},
			[]string{"symbol"},
		),
	}

	p.registry.MustRegister(
		p.tradesOpened,
		p.tradesClosed,
		p.realizedProfit,
		p.transitions,
		p.evaluationRuns,
		p.evaluated,
		p.evaluationErrors,
		p.evaluationSeconds,
		p.priceFailures,
	)
	return p
}

// Handler serves the registry in the Prometheus text format.
func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

func (p *Prometheus) TradeOpened(symbol string, position domain.PositionSide) {
	p.tradesOpened.WithLabelValues(symbol, string(position)).Inc()
}

func (p *Prometheus) TradeClosed(symbol string, position domain.PositionSide, profit float64) {
	result := "flat"
	switch {
	case profit > 0:
		result = "win"
		p.realizedProfit.WithLabelValues("gain").Add(profit)
	case profit < 0:
		result = "loss"
		p.realizedProfit.WithLabelValues("loss").Add(-profit)
	}
	p.tradesClosed.WithLabelValues(symbol, string(position), result).Inc()
}

func (p *Prometheus) StatusTransition(to domain.ChallengeStatus, rule domain.Rule) {
	p.transitions.WithLabelValues(string(to), string(rule)).Inc()
}

func (p *Prometheus) EvaluationRun(evaluated, errors int, seconds float64) {
	p.evaluationRuns.Inc()
	p.evaluated.Add(float64(evaluated))
	p.evaluationErrors.Add(float64(errors))
	p.evaluationSeconds.Observe(seconds)
}

func (p *Prometheus) PriceLookupFailed(symbol string) {
	p.priceFailures.WithLabelValues(symbol).Inc()
}
