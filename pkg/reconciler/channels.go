package reconciler

import (
	"context"
	"fmt"

	"github.com/cuemby/guildsync/pkg/gateway"
	"github.com/cuemby/guildsync/pkg/ordering"
	"github.com/cuemby/guildsync/pkg/types"
)

// ChannelCoordinator reconciles categories, text channels, voice channels and
// their grants.
type ChannelCoordinator struct {
	*base
	strategies []ChannelStrategy
}

var _ Coordinator = (*ChannelCoordinator)(nil)

// NewChannelCoordinator creates a channel coordinator with explicitly registered strategies
func NewChannelCoordinator(gw gateway.Gateway, strategies []ChannelStrategy, opts ...Option) *ChannelCoordinator {
	return &ChannelCoordinator{
		base:       newBase(types.FamilyChannels, gw, opts),
		strategies: strategies,
	}
}

// Strategies returns the registered strategies
func (c *ChannelCoordinator) Strategies() []ChannelStrategy {
	return c.strategies
}

// Reconcile runs one full pass: fetch, create/delete, settings, permissions
// and ordering. Only a failure of the initial fetch aborts the pass.
func (c *ChannelCoordinator) Reconcile(ctx context.Context) (*types.PassReport, error) {
	p := c.beginPass()

	c.setPhase(PhaseFetching)
	state, err := c.snapshot(ctx, false)
	if err != nil {
		return c.endPass(p, err)
	}

	c.setPhase(PhaseDiffing)
	plan := c.diffCreateDelete(p, state)

	c.setPhase(PhaseDeleting)
	ok, failed := c.runPhase(ctx, PhaseDeleting, c.deleteOps(plan.Delete))
	p.report.Deleted, p.report.Failures = ok, p.report.Failures+failed

	// Categories first, so that channels created below can be parented to
	// them in the settings phase of the same pass.
	c.setPhase(PhaseCreating)
	categories, channels := splitCategories(plan.Create)
	ok, failed = c.runPhase(ctx, PhaseCreating, c.createOps(categories))
	p.report.Created, p.report.Failures = ok, p.report.Failures+failed
	ok, failed = c.runPhase(ctx, PhaseCreating, c.createOps(channels))
	p.report.Created, p.report.Failures = p.report.Created+ok, p.report.Failures+failed

	c.setPhase(PhaseFetching)
	if fresh, err := c.snapshot(ctx, true); err != nil {
		c.logger.Warn().Err(err).Msg("Failed to re-read channels, continuing with the initial snapshot")
		state = state.without(plan.Delete)
	} else {
		state = fresh
	}

	c.setPhase(PhaseUpdatingSettings)
	updates := c.diffSettings(p, state)
	ok, failed = c.runPhase(ctx, PhaseUpdatingSettings, c.updateOps(updates))
	p.report.Updated, p.report.Failures = ok, p.report.Failures+failed

	c.setPhase(PhaseUpdatingPermissions)
	grants := c.diffPermissions(p, state)
	ok, failed = c.runPhase(ctx, PhaseUpdatingPermissions, c.grantOps("delete", grants.Delete, c.gw.DeleteGrant))
	p.report.GrantsDeleted, p.report.Failures = ok, p.report.Failures+failed
	ok, failed = c.runPhase(ctx, PhaseUpdatingPermissions, c.grantOps("create", grants.Create, c.gw.CreateGrant))
	p.report.GrantsCreated, p.report.Failures = ok, p.report.Failures+failed
	ok, failed = c.runPhase(ctx, PhaseUpdatingPermissions, c.grantOps("update", grants.Update, c.gw.UpdateGrant))
	p.report.GrantsUpdated, p.report.Failures = ok, p.report.Failures+failed

	c.setPhase(PhaseOrdering)
	for _, order := range c.diffOrdering(p, state) {
		c.applyOrder(ctx, p, order)
	}

	return c.endPass(p, nil)
}

// Plan computes the pass against the current live state without writing
func (c *ChannelCoordinator) Plan(ctx context.Context) (*Preview, error) {
	state, err := c.snapshot(ctx, true)
	if err != nil {
		return nil, err
	}

	p := &pass{}
	plan := c.diffCreateDelete(p, state)
	remaining := state.without(plan.Delete)
	plan.Update = c.diffSettings(p, remaining)

	preview := &Preview{
		Family:      c.family,
		Plan:        plan,
		Permissions: c.diffPermissions(p, remaining),
		Orders:      []*OrderPlan{},
	}
	for _, order := range c.diffOrdering(p, remaining) {
		if len(order.Swaps) > 0 {
			preview.Orders = append(preview.Orders, order)
		}
	}
	preview.Errors = p.errs
	return preview, nil
}

// snapshot reads the channel family and the roles. With grants set it also
// reads the grants of every channel some strategy owns; a channel whose grants
// cannot be read is left out of the permission phase.
func (c *ChannelCoordinator) snapshot(ctx context.Context, grants bool) (*ChannelState, error) {
	state := &ChannelState{}
	var err error
	if state.Categories, err = c.gw.ListCategories(ctx); err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	if state.TextChannels, err = c.gw.ListTextChannels(ctx); err != nil {
		return nil, fmt.Errorf("failed to list text channels: %w", err)
	}
	if state.VoiceChannels, err = c.gw.ListVoiceChannels(ctx); err != nil {
		return nil, fmt.Errorf("failed to list voice channels: %w", err)
	}
	if state.Roles, err = c.gw.ListRoles(ctx); err != nil {
		return nil, fmt.Errorf("failed to list roles: %w", err)
	}
	if !grants {
		return state, nil
	}

	state.grants = make(map[string][]*types.Grant)
	for _, kind := range types.ChannelKinds {
		for _, e := range state.Entities(kind) {
			if !c.owned(e) {
				continue
			}
			g, err := c.gw.ListGrants(ctx, e)
			if err != nil {
				c.logger.Warn().Err(err).Str("entity", e.String()).Msg("Failed to read grants, skipping channel")
				continue
			}
			state.grants[e.ID] = g
		}
	}
	return state, nil
}

// owned reports whether any registered strategy sees the entity
func (c *ChannelCoordinator) owned(e *types.Entity) bool {
	if !e.Movable() {
		return false
	}
	for _, s := range c.strategies {
		if e.HasPrefix(s.Prefix()) {
			return true
		}
	}
	return false
}

func (c *ChannelCoordinator) diffCreateDelete(p *pass, state *ChannelState) Plan {
	var plan Plan
	for _, s := range c.strategies {
		view := state.filter(s.Prefix())
		view.grants = nil
		var del []*types.Entity
		var add []CreateRequest
		serr := guard(s, PhaseDiffing, func() error {
			var err error
			del, add, err = s.ComputeCreateDelete(view)
			return err
		})
		if serr != nil {
			c.strategyFailed(p, serr)
			continue
		}
		plan.Delete = append(plan.Delete, c.scopedDeletes(s, del, view.owns)...)
		plan.Create = append(plan.Create, c.scopedCreates(s, channelCreates(add))...)
	}
	return plan
}

func (c *ChannelCoordinator) diffSettings(p *pass, state *ChannelState) []SettingsUpdate {
	var updates []SettingsUpdate
	for _, s := range c.strategies {
		view := state.filter(s.Prefix())
		var out []SettingsUpdate
		serr := guard(s, PhaseUpdatingSettings, func() error {
			var err error
			out, err = s.ComputeSettingsUpdates(view)
			return err
		})
		if serr != nil {
			c.strategyFailed(p, serr)
			continue
		}
		updates = append(updates, c.effectiveUpdates(s, out, view.owns)...)
	}
	return updates
}

func (c *ChannelCoordinator) diffPermissions(p *pass, state *ChannelState) *PermissionPlan {
	plan := &PermissionPlan{}
	if state.grants == nil {
		return plan
	}
	for _, s := range c.strategies {
		view := state.filter(s.Prefix())
		var out *PermissionPlan
		serr := guard(s, PhaseUpdatingPermissions, func() error {
			var err error
			out, err = s.ComputePermissionUpdates(view)
			return err
		})
		if serr != nil {
			c.strategyFailed(p, serr)
			continue
		}
		plan.Merge(c.scopedGrants(s, out, view))
	}
	return plan
}

// scopedGrants drops grant changes on channels outside the strategy's view or
// whose current grants are unknown.
func (c *ChannelCoordinator) scopedGrants(s Strategy, plan *PermissionPlan, view *ChannelState) *PermissionPlan {
	if plan == nil {
		return nil
	}
	keep := func(grants []*types.Grant) []*types.Grant {
		var out []*types.Grant
		for _, g := range grants {
			if g == nil {
				continue
			}
			if _, known := view.grants[g.ChannelID]; !known {
				c.logger.Error().
					Str("strategy", s.Name()).
					Str("grant", g.String()).
					Msg("Strategy returned a grant outside its prefix, dropping it")
				continue
			}
			out = append(out, g)
		}
		return out
	}
	return &PermissionPlan{
		Delete: keep(plan.Delete),
		Create: keep(plan.Create),
		Update: keep(plan.Update),
	}
}

func (c *ChannelCoordinator) diffOrdering(p *pass, state *ChannelState) []*OrderPlan {
	groups := make(map[types.EntityKind][]ordering.Group)
	for _, s := range c.strategies {
		view := state.filter(s.Prefix())
		var ordered map[types.EntityKind][]*types.Entity
		serr := guard(s, PhaseOrdering, func() error {
			var err error
			ordered, err = s.ComputeOrdering(view)
			return err
		})
		if serr != nil {
			c.strategyFailed(p, serr)
			continue
		}
		for _, kind := range types.ChannelKinds {
			groups[kind] = append(groups[kind], group(s, ordered[kind], view.Entities(kind)))
		}
	}

	var plans []*OrderPlan
	for _, kind := range types.ChannelKinds {
		plan, err := planOrder(kind, state.Entities(kind), groups[kind])
		if err != nil {
			c.logger.Error().Err(err).Str("kind", string(kind)).Msg("Failed to plan channel order")
			continue
		}
		plans = append(plans, plan)
	}
	return plans
}

// grantOps builds one grant sub-phase
func (c *ChannelCoordinator) grantOps(verb string, grants []*types.Grant, write func(context.Context, *types.Grant) error) []op {
	ops := make([]op, 0, len(grants))
	for _, g := range grants {
		ops = append(ops, op{
			desc: verb + " " + g.String(),
			run: func(ctx context.Context) error {
				return write(ctx, g)
			},
		})
	}
	return ops
}

// channelCreates drops requests for kinds the channel family does not own
func channelCreates(requests []CreateRequest) []CreateRequest {
	out := make([]CreateRequest, 0, len(requests))
	for _, r := range requests {
		if r.Kind.IsChannel() {
			out = append(out, r)
		}
	}
	return out
}

func splitCategories(requests []CreateRequest) (categories, channels []CreateRequest) {
	for _, r := range requests {
		if r.Kind == types.KindCategory {
			categories = append(categories, r)
		} else {
			channels = append(channels, r)
		}
	}
	return categories, channels
}
