/*
Package reconciler drives a Discord guild toward the structure its strategies
declare.

Two coordinators share the same pass machinery: the RoleCoordinator owns
roles, the ChannelCoordinator owns categories, text channels, voice channels
and the permission grants on them. Each coordinator holds an explicitly
registered list of strategies. A strategy owns every entity whose name starts
with its prefix and never sees anything else.

# Architecture

A pass is a fixed sequence of phases. Every phase waits for all of its writes
before the next one starts:

	┌──────────────────────────────────────────────────────────┐
	│                    Reconcile (one pass)                   │
	└───────────────┬──────────────────────────────────────────┘
	                │
	                ▼
	         fetch live state ─── error ──▶ abort, report error
	                │
	                ▼
	   diff per strategy (prefix-filtered view)
	                │
	                ▼
	   deletes ──▶ creates (categories before channels)
	                │
	                ▼
	         re-fetch live state
	                │
	                ▼
	   settings updates (no-ops dropped)
	                │
	                ▼
	   grants: delete ──▶ create ──▶ update     (channels only)
	                │
	                ▼
	   ordering per kind: merge groups, minimal swaps, Reorder

Only a failed initial fetch aborts a pass. A failed write is logged, counted
in guildsync_operations_total and skipped; the next pass retries it because
the diff is recomputed from live state every time.

# Strategies

A strategy implements RoleStrategy or ChannelStrategy. It receives the live
entities under its prefix and answers four questions: what to delete and
create, which settings to change, which grants to change (channels only) and
in what order its entities should appear.

	type RoleStrategy interface {
		Strategy
		ComputeCreateDelete(roles []*types.Entity) ([]*types.Entity, []CreateRequest, error)
		ComputeSettingsUpdates(roles []*types.Entity) ([]SettingsUpdate, error)
		ComputeOrdering(roles []*types.Entity) ([]*types.Entity, error)
	}

The coordinator enforces the prefix contract on the way back: deletes and
updates of entities outside the strategy's view, creates of names without its
prefix and grants on channels it does not own are dropped with an error log.
A strategy that returns an error or panics is recorded as a StrategyError on
the pass report; the other strategies still run.

# Ordering

Each strategy orders only its own entities. The coordinator merges the
sub-orders into one list per kind: entities no strategy claims keep their
current relative order at the top, then the strategy groups follow by
priority and prefix. The ordering package turns current and final order into
a minimal swap list, and Reorder is only called when that list is not empty.

# Requests

Every coordinator embeds a Request. RequestSynchronization may be called from
any goroutine; requests that arrive while a pass runs coalesce into one
follow-up pass. The scheduler consumes the request on its next tick.

# Usage

	gw := memory.New()
	cfg := courses.Config{Courses: []string{"3500", "2420"}}

	roles := reconciler.NewRoleCoordinator(gw,
		[]reconciler.RoleStrategy{courses.NewRoles(cfg)},
		reconciler.WithMaxInFlight(4),
	)
	channels := reconciler.NewChannelCoordinator(gw,
		[]reconciler.ChannelStrategy{courses.NewChannels(cfg)},
	)

	if _, err := roles.Reconcile(ctx); err != nil {
		return err
	}
	preview, err := channels.Plan(ctx)
	if err != nil {
		return err
	}
	for _, line := range preview.Lines() {
		fmt.Println(line)
	}

# Concurrency

Writes within a phase run on an errgroup bounded by WithMaxInFlight. The
coordinator itself is not reentrant: the scheduler guarantees that at most
one pass per coordinator runs at a time.
*/
package reconciler
