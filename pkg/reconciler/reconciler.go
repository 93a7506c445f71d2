package reconciler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/cuemby/guildsync/pkg/events"
	"github.com/cuemby/guildsync/pkg/gateway"
	"github.com/cuemby/guildsync/pkg/log"
	"github.com/cuemby/guildsync/pkg/metrics"
	"github.com/cuemby/guildsync/pkg/ordering"
	"github.com/cuemby/guildsync/pkg/types"
)

// DefaultMaxInFlight bounds the writes submitted concurrently within a phase
const DefaultMaxInFlight = 4

// Phase is the step a coordinator pass is in
type Phase string

const (
	PhaseIdle                Phase = "idle"
	PhaseFetching            Phase = "fetching"
	PhaseDiffing             Phase = "diffing"
	PhaseDeleting            Phase = "deleting"
	PhaseCreating            Phase = "creating"
	PhaseUpdatingSettings    Phase = "updating_settings"
	PhaseUpdatingPermissions Phase = "updating_permissions"
	PhaseOrdering            Phase = "ordering"
)

// Coordinator runs reconciliation passes for one entity family
type Coordinator interface {
	Family() types.Family

	// RequestSynchronization marks a pass as due
	RequestSynchronization()

	// ConsumeIfRequested reads and clears the pending request. Only the
	// scheduler should call it.
	ConsumeIfRequested() bool

	// Reconcile runs one full pass and applies it
	Reconcile(ctx context.Context) (*types.PassReport, error)

	// Plan computes what a pass would do against the current live state
	// without writing anything
	Plan(ctx context.Context) (*Preview, error)

	// Phase returns the step the running pass is in
	Phase() Phase
}

// PassRecorder persists pass reports
type PassRecorder interface {
	SavePass(report *types.PassReport) error
}

// Option configures a coordinator
type Option func(*base)

// WithMaxInFlight bounds the writes submitted concurrently within a phase
func WithMaxInFlight(n int) Option {
	return func(b *base) {
		if n > 0 {
			b.maxInFlight = n
		}
	}
}

// WithRecorder persists every pass report
func WithRecorder(r PassRecorder) Option {
	return func(b *base) {
		b.recorder = r
	}
}

// WithBroker publishes a pass.completed event after every pass
func WithBroker(broker *events.Broker) Option {
	return func(b *base) {
		b.broker = broker
	}
}

// base holds what both coordinators share: the request cell, the gateway,
// the phase state and the bounded phase runner.
type base struct {
	*Request

	family      types.Family
	gw          gateway.Gateway
	logger      zerolog.Logger
	maxInFlight int
	recorder    PassRecorder
	broker      *events.Broker

	mu    sync.RWMutex
	phase Phase
}

func newBase(family types.Family, gw gateway.Gateway, opts []Option) *base {
	b := &base{
		Request:     NewRequest(),
		family:      family,
		gw:          gw,
		logger:      log.WithFamily(string(family)),
		maxInFlight: DefaultMaxInFlight,
		phase:       PhaseIdle,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Family returns the entity family the coordinator owns
func (b *base) Family() types.Family {
	return b.family
}

// Phase returns the step the running pass is in
func (b *base) Phase() Phase {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.phase
}

func (b *base) setPhase(p Phase) {
	b.mu.Lock()
	b.phase = p
	b.mu.Unlock()
	b.logger.Debug().Str("phase", string(p)).Msg("Pass phase")
}

// op is one remote write inside a phase
type op struct {
	desc string
	run  func(ctx context.Context) error
}

// runPhase submits every op concurrently, bounded by maxInFlight, and waits
// for all of them before returning. A failed op is logged and counted; it
// never stops the other ops or the pass.
func (b *base) runPhase(ctx context.Context, phase Phase, ops []op) (succeeded, failed int) {
	if len(ops) == 0 {
		return 0, 0
	}

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(b.maxInFlight)
	for _, o := range ops {
		g.Go(func() error {
			err := o.run(ctx)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failed++
				metrics.OperationsTotal.WithLabelValues(string(b.family), string(phase), "error").Inc()
				b.logger.Warn().
					Err(err).
					Str("phase", string(phase)).
					Str("operation", o.desc).
					Msg("Remote operation failed, will retry next pass")
				return nil
			}
			succeeded++
			metrics.OperationsTotal.WithLabelValues(string(b.family), string(phase), "success").Inc()
			return nil
		})
	}
	_ = g.Wait()
	return succeeded, failed
}

// pass carries the bookkeeping of one running pass
type pass struct {
	report *types.PassReport
	errs   []*StrategyError
	timer  *metrics.Timer
}

func (b *base) beginPass() *pass {
	b.logger.Info().Msg("Starting reconciliation pass")
	return &pass{
		report: &types.PassReport{
			ID:        uuid.NewString(),
			Family:    b.family,
			StartedAt: time.Now(),
		},
		timer: metrics.NewTimer(),
	}
}

// strategyFailed records a strategy error without stopping the pass
func (b *base) strategyFailed(p *pass, serr *StrategyError) {
	if serr == nil {
		return
	}
	p.errs = append(p.errs, serr)
	if p.report != nil {
		p.report.StrategyErrors = append(p.report.StrategyErrors, serr.Error())
	}
	metrics.StrategyErrorsTotal.WithLabelValues(string(b.family), serr.Strategy).Inc()
	b.logger.Error().
		Err(serr.Err).
		Str("strategy", serr.Strategy).
		Str("phase", string(serr.Phase)).
		Msg("Strategy failed, continuing with the remaining strategies")
}

// endPass finalizes the report, records it, and returns the phase to idle
func (b *base) endPass(p *pass, err error) (*types.PassReport, error) {
	b.setPhase(PhaseIdle)

	r := p.report
	r.FinishedAt = time.Now()
	if err != nil {
		r.Error = err.Error()
	}
	result := r.Result()
	p.timer.ObserveDurationVec(metrics.PassDuration, string(b.family))
	metrics.PassesTotal.WithLabelValues(string(b.family), result).Inc()

	event := b.logger.Info()
	if err != nil {
		event = b.logger.Error().Err(err)
	}
	event.
		Str("pass_id", r.ID).
		Str("result", result).
		Int("changes", r.Changes()).
		Int("failures", r.Failures).
		Dur("duration", r.Duration()).
		Msg("Reconciliation pass finished")

	if b.recorder != nil {
		if rerr := b.recorder.SavePass(r); rerr != nil {
			b.logger.Warn().Err(rerr).Msg("Failed to record pass")
		}
	}
	if b.broker != nil {
		b.broker.Publish(&events.Event{
			Type:    events.EventPassCompleted,
			Message: fmt.Sprintf("%s pass %s", b.family, result),
			Metadata: map[string]string{
				"family":  string(b.family),
				"pass_id": r.ID,
				"result":  result,
			},
		})
	}
	return r, err
}

// deleteOps builds the delete phase
func (b *base) deleteOps(entities []*types.Entity) []op {
	ops := make([]op, 0, len(entities))
	for _, e := range entities {
		ops = append(ops, op{
			desc: "delete " + e.String(),
			run: func(ctx context.Context) error {
				return b.gw.Delete(ctx, e)
			},
		})
	}
	return ops
}

// createOps builds the create phase
func (b *base) createOps(requests []CreateRequest) []op {
	ops := make([]op, 0, len(requests))
	for _, r := range requests {
		ops = append(ops, op{
			desc: "create " + r.String(),
			run: func(ctx context.Context) error {
				_, err := gateway.Create(ctx, b.gw, r.Kind, r.Settings)
				return err
			},
		})
	}
	return ops
}

// updateOps builds the settings phase
func (b *base) updateOps(updates []SettingsUpdate) []op {
	ops := make([]op, 0, len(updates))
	for _, u := range updates {
		ops = append(ops, op{
			desc: "update " + u.Entity.String(),
			run: func(ctx context.Context) error {
				return b.gw.UpdateSettings(ctx, u.Entity, u.Settings)
			},
		})
	}
	return ops
}

// effectiveUpdates drops updates that would not change anything and updates
// addressed to entities outside the strategy's view.
func (b *base) effectiveUpdates(s Strategy, updates []SettingsUpdate, owns func(id string) bool) []SettingsUpdate {
	var out []SettingsUpdate
	for _, u := range updates {
		if u.Entity == nil || !owns(u.Entity.ID) {
			b.logger.Error().
				Str("strategy", s.Name()).
				Msg("Strategy returned an update outside its prefix, dropping it")
			continue
		}
		if u.Settings.Equal(u.Entity.Settings()) {
			continue
		}
		out = append(out, u)
	}
	return out
}

// scopedDeletes drops deletions of entities outside the strategy's view
func (b *base) scopedDeletes(s Strategy, deletes []*types.Entity, owns func(id string) bool) []*types.Entity {
	var out []*types.Entity
	for _, e := range deletes {
		if !owns(e.ID) {
			b.logger.Error().
				Str("strategy", s.Name()).
				Str("entity", e.String()).
				Msg("Strategy tried to delete an entity outside its prefix, dropping it")
			continue
		}
		out = append(out, e)
	}
	return out
}

// scopedCreates drops creations whose name does not carry the strategy prefix
func (b *base) scopedCreates(s Strategy, creates []CreateRequest) []CreateRequest {
	var out []CreateRequest
	named := &types.Entity{}
	for _, c := range creates {
		named.Name = c.Settings.Name
		if !named.HasPrefix(s.Prefix()) {
			b.logger.Error().
				Str("strategy", s.Name()).
				Str("entity", c.String()).
				Msg("Strategy tried to create an entity outside its prefix, dropping it")
			continue
		}
		out = append(out, c)
	}
	return out
}

// OrderPlan is the ordering outcome for one kind
type OrderPlan struct {
	Kind  types.EntityKind
	Final []*types.Entity
	Swaps []ordering.Swap
}

// planOrder merges the strategy groups for one kind against the live order.
// Unmovable entities are removed from both sides first.
func planOrder(kind types.EntityKind, live []*types.Entity, groups []ordering.Group) (*OrderPlan, error) {
	byID := make(map[string]*types.Entity, len(live))
	var current []string
	for _, e := range byPosition(live) {
		if !e.Movable() {
			continue
		}
		byID[e.ID] = e
		current = append(current, e.ID)
	}

	desired := ordering.Merge(groups, current)
	swaps, err := ordering.Swaps(desired, current)
	if err != nil {
		return nil, err
	}

	final := make([]*types.Entity, 0, len(desired))
	for _, id := range desired {
		final = append(final, byID[id])
	}
	return &OrderPlan{Kind: kind, Final: final, Swaps: swaps}, nil
}

// applyOrder submits a reorder when the plan has any swap
func (b *base) applyOrder(ctx context.Context, p *pass, plan *OrderPlan) {
	if len(plan.Swaps) == 0 {
		return
	}
	ok, failed := b.runPhase(ctx, PhaseOrdering, []op{{
		desc: fmt.Sprintf("reorder %d %s entities", len(plan.Final), plan.Kind),
		run: func(ctx context.Context) error {
			return b.gw.Reorder(ctx, plan.Kind, plan.Final)
		},
	}})
	if ok > 0 {
		p.report.Moves += len(plan.Swaps)
		metrics.OrderingMovesTotal.WithLabelValues(string(b.family), string(plan.Kind)).Add(float64(len(plan.Swaps)))
	}
	p.report.Failures += failed
}

// entityIDs returns a membership test over the given entity lists
func entityIDs(lists ...[]*types.Entity) func(string) bool {
	ids := make(map[string]bool)
	for _, l := range lists {
		for _, e := range l {
			ids[e.ID] = true
		}
	}
	return func(id string) bool { return ids[id] }
}
