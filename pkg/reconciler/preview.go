package reconciler

import (
	"fmt"

	"github.com/cuemby/guildsync/pkg/types"
)

// Preview is what a pass would do against the live state at the time it was
// computed. Settings updates are computed against the state after the planned
// deletions, so creations do not yet receive their settings here.
type Preview struct {
	Family      types.Family
	Plan        Plan
	Permissions *PermissionPlan
	Orders      []*OrderPlan
	Errors      []*StrategyError
}

// Empty reports whether the pass would not write anything
func (p *Preview) Empty() bool {
	if !p.Plan.Empty() || !p.Permissions.Empty() {
		return false
	}
	for _, o := range p.Orders {
		if len(o.Swaps) > 0 {
			return false
		}
	}
	return true
}

// Lines renders the preview as one line per planned write
func (p *Preview) Lines() []string {
	var lines []string
	for _, e := range p.Plan.Delete {
		lines = append(lines, "delete "+e.String())
	}
	for _, r := range p.Plan.Create {
		lines = append(lines, "create "+r.String())
	}
	for _, u := range p.Plan.Update {
		lines = append(lines, fmt.Sprintf("update %s -> %q", u.Entity, u.Settings.Name))
	}
	if p.Permissions != nil {
		for _, g := range p.Permissions.Delete {
			lines = append(lines, "delete "+g.String())
		}
		for _, g := range p.Permissions.Create {
			lines = append(lines, "create "+g.String())
		}
		for _, g := range p.Permissions.Update {
			lines = append(lines, "update "+g.String())
		}
	}
	for _, o := range p.Orders {
		if len(o.Swaps) > 0 {
			lines = append(lines, fmt.Sprintf("reorder %s (%d moves)", o.Kind, len(o.Swaps)))
		}
	}
	for _, e := range p.Errors {
		lines = append(lines, "error "+e.Error())
	}
	return lines
}
