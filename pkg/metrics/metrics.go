package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Pass metrics
	PassesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "guildsync_passes_total",
			Help: "Total number of reconciliation passes by family and result",
		},
		[]string{"family", "result"},
	)

	PassDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "guildsync_pass_duration_seconds",
			Help:    "Reconciliation pass duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"family"},
	)

	// Remote write metrics
	OperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "guildsync_operations_total",
			Help: "Total number of remote writes by family, phase and result",
		},
		[]string{"family", "phase", "result"},
	)

	OrderingMovesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "guildsync_ordering_moves_total",
			Help: "Total number of position swaps applied by family and kind",
		},
		[]string{"family", "kind"},
	)

	StrategyErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "guildsync_strategy_errors_total",
			Help: "Total number of isolated strategy failures",
		},
		[]string{"family", "strategy"},
	)

	// Scheduler metrics
	SkippedTicksTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "guildsync_skipped_ticks_total",
			Help: "Total number of scheduler ticks skipped because a pass was still running",
		},
	)

	// API metrics
	APIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "guildsync_api_requests_total",
			Help: "Total number of admin API requests by method and status",
		},
		[]string{"method", "status"},
	)

	APIRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "guildsync_api_request_duration_seconds",
			Help:    "Admin API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)
)

func init() {
	prometheus.MustRegister(PassesTotal)
	prometheus.MustRegister(PassDuration)
	prometheus.MustRegister(OperationsTotal)
	prometheus.MustRegister(OrderingMovesTotal)
	prometheus.MustRegister(StrategyErrorsTotal)
	prometheus.MustRegister(SkippedTicksTotal)
	prometheus.MustRegister(APIRequestsTotal)
	prometheus.MustRegister(APIRequestDuration)
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}
