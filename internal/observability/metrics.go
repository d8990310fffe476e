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
	// Analysis metrics
	FundsAnalyzed   prometheus.Counter
	FundsSkipped    prometheus.Counter
	DiffsComputed   prometheus.Counter
	OptionsExcluded prometheus.Counter
	SignalsEmitted  *prometheus.CounterVec
	FindingsRanked  prometheus.Counter

	// Pipeline metrics
	AnalysisRunsTotal *prometheus.CounterVec
	AnalysisDuration  *prometheus.HistogramVec
	ReportsGenerated  prometheus.Counter

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Health metrics
	LastSuccessfulAnalysis prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "thirteenf_lab"
	}

	return &Metrics{
		// Analysis metrics
		FundsAnalyzed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "analysis",
			Name:      "funds_analyzed_total",
			Help:      "Total number of fund quarter diffs computed",
		}),
		FundsSkipped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "analysis",
			Name:      "funds_skipped_total",
			Help:      "Total number of funds skipped for missing prior quarter data",
		}),
		DiffsComputed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "analysis",
			Name:      "position_diffs_total",
			Help:      "Total number of position diff rows produced",
		}),
		OptionsExcluded: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "analysis",
			Name:      "options_excluded_total",
			Help:      "Total number of option positions excluded by the filter",
		}),
		SignalsEmitted: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "analysis",
			Name:      "signals_emitted_total",
			Help:      "Total number of cross-fund signals emitted by kind",
		}, []string{"kind"}),
		FindingsRanked: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "analysis",
			Name:      "findings_ranked_total",
			Help:      "Total number of top findings produced",
		}),

		// Pipeline metrics
		AnalysisRunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "runs_total",
			Help:      "Total number of analysis runs by phase and status",
		}, []string{"phase", "status"}),
		AnalysisDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "duration_seconds",
			Help:      "Analysis phase duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120},
		}, []string{"phase"}),
		ReportsGenerated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "reports_generated_total",
			Help:      "Total number of quarterly reports generated",
		}),

		// Database metrics
		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),

		// Health metrics
		LastSuccessfulAnalysis: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_analysis_timestamp",
			Help:      "Unix timestamp of last successful analysis run",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordFundAnalyzed increments the funds analyzed counter.
func RecordFundAnalyzed() {
	DefaultMetrics.FundsAnalyzed.Inc()
}

// RecordFundSkipped increments the funds skipped counter.
func RecordFundSkipped() {
	DefaultMetrics.FundsSkipped.Inc()
}

// RecordDiffRows adds to the position diff row counter.
func RecordDiffRows(n int) {
	DefaultMetrics.DiffsComputed.Add(float64(n))
}

// RecordSignals adds to the signal counter for one signal kind.
func RecordSignals(kind string, n int) {
	DefaultMetrics.SignalsEmitted.WithLabelValues(kind).Add(float64(n))
}

// RecordAnalysisPhase records one analysis phase run.
func RecordAnalysisPhase(phase, status string, durationSeconds float64) {
	DefaultMetrics.AnalysisRunsTotal.WithLabelValues(phase, status).Inc()
	DefaultMetrics.AnalysisDuration.WithLabelValues(phase).Observe(durationSeconds)
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}
