package reconciler

import (
	"context"
	"fmt"

	"github.com/cuemby/guildsync/pkg/gateway"
	"github.com/cuemby/guildsync/pkg/naming"
	"github.com/cuemby/guildsync/pkg/ordering"
	"github.com/cuemby/guildsync/pkg/types"
)

// RoleCoordinator reconciles the role family. It runs before the channel
// coordinator because channel grants reference roles by identity.
type RoleCoordinator struct {
	*base
	strategies []RoleStrategy
}

var _ Coordinator = (*RoleCoordinator)(nil)

// NewRoleCoordinator creates a role coordinator with explicitly registered strategies
func NewRoleCoordinator(gw gateway.Gateway, strategies []RoleStrategy, opts ...Option) *RoleCoordinator {
	return &RoleCoordinator{
		base:       newBase(types.FamilyRoles, gw, opts),
		strategies: strategies,
	}
}

// Strategies returns the registered strategies
func (c *RoleCoordinator) Strategies() []RoleStrategy {
	return c.strategies
}

// Reconcile runs one full pass: fetch, create/delete, settings, ordering.
// Only a failure to read the live roles aborts the pass; every later failure
// is logged and left for the next pass to correct.
func (c *RoleCoordinator) Reconcile(ctx context.Context) (*types.PassReport, error) {
	p := c.beginPass()

	c.setPhase(PhaseFetching)
	roles, err := c.gw.ListRoles(ctx)
	if err != nil {
		return c.endPass(p, fmt.Errorf("failed to list roles: %w", err))
	}

	c.setPhase(PhaseDiffing)
	plan := c.diffCreateDelete(p, roles)

	c.setPhase(PhaseDeleting)
	ok, failed := c.runPhase(ctx, PhaseDeleting, c.deleteOps(plan.Delete))
	p.report.Deleted, p.report.Failures = ok, p.report.Failures+failed

	c.setPhase(PhaseCreating)
	ok, failed = c.runPhase(ctx, PhaseCreating, c.createOps(plan.Create))
	p.report.Created, p.report.Failures = ok, p.report.Failures+failed

	// Creates may not be visible yet; whatever is visible now is what the
	// remaining phases work on.
	c.setPhase(PhaseFetching)
	if fresh, err := c.gw.ListRoles(ctx); err != nil {
		c.logger.Warn().Err(err).Msg("Failed to re-read roles, continuing with the initial snapshot")
		roles = withoutEntities(roles, plan.Delete)
	} else {
		roles = fresh
	}

	c.setPhase(PhaseUpdatingSettings)
	updates := c.diffSettings(p, roles)
	ok, failed = c.runPhase(ctx, PhaseUpdatingSettings, c.updateOps(updates))
	p.report.Updated, p.report.Failures = ok, p.report.Failures+failed

	c.setPhase(PhaseOrdering)
	if order := c.diffOrdering(p, roles); order != nil {
		c.applyOrder(ctx, p, order)
	}

	return c.endPass(p, nil)
}

// Plan computes the pass against the current roles without writing
func (c *RoleCoordinator) Plan(ctx context.Context) (*Preview, error) {
	roles, err := c.gw.ListRoles(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list roles: %w", err)
	}

	p := &pass{}
	plan := c.diffCreateDelete(p, roles)
	remaining := withoutEntities(roles, plan.Delete)
	plan.Update = c.diffSettings(p, remaining)

	preview := &Preview{Family: c.family, Plan: plan, Orders: []*OrderPlan{}}
	if order := c.diffOrdering(p, remaining); order != nil && len(order.Swaps) > 0 {
		preview.Orders = append(preview.Orders, order)
	}
	preview.Errors = p.errs
	return preview, nil
}

func (c *RoleCoordinator) diffCreateDelete(p *pass, roles []*types.Entity) Plan {
	var plan Plan
	for _, s := range c.strategies {
		view := filterPrefix(roles, s.Prefix())
		owns := entityIDs(view)
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
		for i := range add {
			add[i].Kind = types.KindRole
		}
		plan.Delete = append(plan.Delete, c.scopedDeletes(s, del, owns)...)
		plan.Create = append(plan.Create, c.scopedCreates(s, add)...)
	}
	return plan
}

func (c *RoleCoordinator) diffSettings(p *pass, roles []*types.Entity) []SettingsUpdate {
	var updates []SettingsUpdate
	for _, s := range c.strategies {
		view := filterPrefix(roles, s.Prefix())
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
		updates = append(updates, c.effectiveUpdates(s, out, entityIDs(view))...)
	}
	return updates
}

func (c *RoleCoordinator) diffOrdering(p *pass, roles []*types.Entity) *OrderPlan {
	var groups []ordering.Group
	for _, s := range c.strategies {
		view := filterPrefix(roles, s.Prefix())
		var ordered []*types.Entity
		serr := guard(s, PhaseOrdering, func() error {
			var err error
			ordered, err = s.ComputeOrdering(view)
			return err
		})
		if serr != nil {
			c.strategyFailed(p, serr)
			continue
		}
		groups = append(groups, group(s, ordered, view))
	}

	plan, err := planOrder(types.KindRole, roles, groups)
	if err != nil {
		c.logger.Error().Err(err).Msg("Failed to plan role order")
		return nil
	}
	return plan
}

// group converts a strategy's ordered entities into an ordering group,
// keeping only entities inside the strategy's view. Live duplicates of an
// ordered entity follow it in their current relative order, so the entity
// that won the match keeps the lower position on the next pass.
func group(s Strategy, ordered, view []*types.Entity) ordering.Group {
	owns := entityIDs(view)
	dups := make(map[string][]*types.Entity)
	for _, e := range byPosition(view) {
		name := naming.Canonical(e.Name)
		dups[name] = append(dups[name], e)
	}

	g := ordering.Group{Priority: s.Priority(), Prefix: s.Prefix()}
	seen := make(map[string]bool)
	for _, e := range ordered {
		if e == nil || !owns(e.ID) || seen[e.ID] {
			continue
		}
		seen[e.ID] = true
		g.Order = append(g.Order, e.ID)
		for _, d := range dups[naming.Canonical(e.Name)] {
			if !seen[d.ID] {
				seen[d.ID] = true
				g.Order = append(g.Order, d.ID)
			}
		}
	}
	return g
}

// withoutEntities returns live minus the given entities
func withoutEntities(live, drop []*types.Entity) []*types.Entity {
	gone := entityIDs(drop)
	out := make([]*types.Entity, 0, len(live))
	for _, e := range live {
		if !gone(e.ID) {
			out = append(out, e)
		}
	}
	return out
}
