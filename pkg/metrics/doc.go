/*
Package metrics exposes Prometheus metrics and component health.

Metrics (all prefixed guildsync_):

	passes_total{family,result}                 finished passes; result is success, partial or error
	pass_duration_seconds{family}               pass duration
	operations_total{family,phase,result}       remote writes per phase
	ordering_moves_total{family,kind}           swaps applied by reordering
	strategy_errors_total{family,strategy}      strategy failures and recovered panics
	skipped_ticks_total                         ticks skipped because a pass was still running
	api_requests_total{method,status}           admin API requests
	api_request_duration_seconds{method}        admin API latency

Timer measures a duration and observes it into a histogram:

	timer := metrics.NewTimer()
	defer timer.ObserveDurationVec(metrics.PassDuration, "roles")

The shared HealthChecker backs /health and /ready. Components report with
UpdateComponent; readiness waits for the gateway, the scheduler and the API.
*/
package metrics
