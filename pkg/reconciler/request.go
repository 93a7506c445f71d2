package reconciler

import "sync/atomic"

// Request records that a reconciliation is due. Any number of requests
// between two passes coalesce into a single pass.
type Request struct {
	pending atomic.Bool
}

// NewRequest returns a request cell that starts pending, so the first
// scheduled tick after startup runs a pass.
func NewRequest() *Request {
	r := &Request{}
	r.pending.Store(true)
	return r
}

// RequestSynchronization marks a pass as due. Safe from any goroutine.
func (r *Request) RequestSynchronization() {
	r.pending.Store(true)
}

// ConsumeIfRequested atomically reads and clears the pending flag
func (r *Request) ConsumeIfRequested() bool {
	return r.pending.Swap(false)
}
