/*
Package scheduler runs the coordinators on a fixed tick.

On every tick the scheduler visits the coordinators in registration order,
roles before channels, and runs a pass for each one whose synchronization was
requested since its last pass. Passes run sequentially on the scheduler
goroutine, so a channel pass always sees the roles the preceding role pass
created.

	startup delay ──▶ tick ──▶ roles requested?    ──▶ Reconcile
	                        └─▶ channels requested? ──▶ Reconcile
	                  ◀──── interval ────┘

A coordinator whose previous pass is still running is skipped and its request
is put back, so nothing is lost; the skip is counted in
guildsync_skipped_ticks_total. A failed pass is logged and does not
stop the loop.

The first tick after the startup delay always runs both families because a
new coordinator starts with a pending request.
*/
package scheduler
