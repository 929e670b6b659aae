// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Signal metrics
	DecisionsTotal     *prometheus.CounterVec
	HoldReasonsTotal   *prometheus.CounterVec
	EvaluationDuration prometheus.Histogram

	// Simulation metrics
	SimulationsTotal     *prometheus.CounterVec
	SimulationJobsQueued prometheus.Gauge
	SimulationJobsDrop   *prometheus.CounterVec
	SimulationDuration   prometheus.Histogram

	// Backtest metrics
	BacktestRunsTotal *prometheus.CounterVec
	BacktestDuration  prometheus.Histogram
	BacktestTrades    prometheus.Counter

	// Sink metrics
	NotificationsTotal *prometheus.CounterVec

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance registered on the default registerer.
func NewMetrics(namespace string) *Metrics {
	return NewMetricsWith(namespace, prometheus.DefaultRegisterer)
}

// NewMetricsWith creates a new Metrics instance registered on reg.
func NewMetricsWith(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "signal_lab"
	}
	factory := promauto.With(reg)

	return &Metrics{
		// Signal metrics
		DecisionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "signal",
			Name:      "decisions_total",
			Help:      "Total number of decisions by direction",
		}, []string{"direction"}),
		HoldReasonsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "signal",
			Name:      "hold_reasons_total",
			Help:      "Total number of hold decisions by gate",
		}, []string{"gate"}),
		EvaluationDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "signal",
			Name:      "evaluation_duration_seconds",
			Help:      "Signal evaluation latency",
			Buckets:   []float64{.0001, .0005, .001, .005, .01, .05, .1},
		}),

		// Simulation metrics
		SimulationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "simulation",
			Name:      "trades_total",
			Help:      "Total number of simulated trades by outcome",
		}, []string{"outcome"}),
		SimulationJobsQueued: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "simulation",
			Name:      "jobs_queued",
			Help:      "Simulation jobs waiting in the pool queue",
		}),
		SimulationJobsDrop: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "simulation",
			Name:      "jobs_discarded_total",
			Help:      "Simulation jobs rejected or dropped on saturation",
		}, []string{"policy"}),
		SimulationDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "simulation",
			Name:      "duration_seconds",
			Help:      "Single trade simulation latency",
			Buckets:   []float64{.0001, .0005, .001, .005, .01, .05},
		}),

		// Backtest metrics
		BacktestRunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "backtest",
			Name:      "runs_total",
			Help:      "Total number of backtest runs",
		}, []string{"status"}),
		BacktestDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "backtest",
			Name:      "duration_seconds",
			Help:      "Backtest run duration",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
		BacktestTrades: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "backtest",
			Name:      "trades_total",
			Help:      "Total number of closed backtest positions",
		}),

		// Sink metrics
		NotificationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notify",
			Name:      "published_total",
			Help:      "Decisions published to notification sinks",
		}, []string{"sink", "status"}),

		// Database metrics
		DBQueryDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "db",
			Name:      "query_duration_seconds",
			Help:      "Database query latency",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		}, []string{"database", "operation"}),
		DBQueryErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "db",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordDecision increments the decision counter for direction.
func RecordDecision(direction string) {
	DefaultMetrics.DecisionsTotal.WithLabelValues(direction).Inc()
}

// RecordHold increments the hold counter for the gate that forced it.
func RecordHold(gate string) {
	DefaultMetrics.HoldReasonsTotal.WithLabelValues(gate).Inc()
}

// RecordEvaluation records signal evaluation latency.
func RecordEvaluation(seconds float64) {
	DefaultMetrics.EvaluationDuration.Observe(seconds)
}

// RecordSimulation records a finished simulation.
func RecordSimulation(outcome string, seconds float64) {
	DefaultMetrics.SimulationsTotal.WithLabelValues(outcome).Inc()
	DefaultMetrics.SimulationDuration.Observe(seconds)
}

// UpdateSimulationQueue sets the pool queue depth gauge.
func UpdateSimulationQueue(depth int) {
	DefaultMetrics.SimulationJobsQueued.Set(float64(depth))
}

// RecordSimulationDiscarded counts a job lost to saturation under policy.
func RecordSimulationDiscarded(policy string) {
	DefaultMetrics.SimulationJobsDrop.WithLabelValues(policy).Inc()
}

// RecordBacktestRun records a backtest run.
func RecordBacktestRun(status string, durationSeconds float64, trades int) {
	DefaultMetrics.BacktestRunsTotal.WithLabelValues(status).Inc()
	DefaultMetrics.BacktestDuration.Observe(durationSeconds)
	DefaultMetrics.BacktestTrades.Add(float64(trades))
}

// RecordNotification records a sink publish attempt.
func RecordNotification(sink string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	DefaultMetrics.NotificationsTotal.WithLabelValues(sink, status).Inc()
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}
