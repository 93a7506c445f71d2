/*
Package api serves the admin HTTP surface of guildsync.

Routes:

	GET  /health               liveness of the registered components
	GET  /ready                readiness of gateway, scheduler and api
	GET  /metrics              Prometheus metrics
	POST /v1/sync              request a pass of every family
	POST /v1/sync/{family}     request a pass of one family (roles, channels)
	GET  /v1/plan/{family}     dry run of the next pass against the live state
	GET  /v1/passes            pass history, newest first (?family=, ?limit=)
	GET  /v1/passes/{id}       one recorded pass

Sync requests only set the coordinator's request flag; the scheduler runs the
pass on its next tick, so the endpoints answer 202 Accepted immediately.
*/
package api
