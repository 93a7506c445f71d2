package reconciler

import (
	"fmt"
	"runtime/debug"
	"sort"

	"github.com/rs/zerolog"

	"github.com/cuemby/guildsync/pkg/naming"
	"github.com/cuemby/guildsync/pkg/types"
)

// Strategy is the part every synchronizer shares. The coordinator hands a
// strategy only the live entities whose name starts with Prefix, compared
// case-insensitively. Priority orders the strategies' sub-orders when they are
// merged; lower comes first, ties are broken by prefix.
type Strategy interface {
	Name() string
	Prefix() string
	Priority() int
}

// RoleStrategy computes the role deltas of one feature. Every method is pure
// with respect to the filtered role list it is given.
type RoleStrategy interface {
	Strategy

	// ComputeCreateDelete returns stale roles to delete and missing roles to create
	ComputeCreateDelete(roles []*types.Entity) ([]*types.Entity, []CreateRequest, error)

	// ComputeSettingsUpdates returns the full target settings of every matched role
	ComputeSettingsUpdates(roles []*types.Entity) ([]SettingsUpdate, error)

	// ComputeOrdering returns the strategy's roles in desired display order
	ComputeOrdering(roles []*types.Entity) ([]*types.Entity, error)
}

// ChannelStrategy computes the category, channel and grant deltas of one
// feature. Every method is pure with respect to the filtered state it is given.
type ChannelStrategy interface {
	Strategy

	// ComputeCreateDelete returns stale entities to delete and missing ones to create
	ComputeCreateDelete(state *ChannelState) ([]*types.Entity, []CreateRequest, error)

	// ComputeSettingsUpdates returns the full target settings of every matched entity
	ComputeSettingsUpdates(state *ChannelState) ([]SettingsUpdate, error)

	// ComputePermissionUpdates returns the grant changes for the owned channels
	ComputePermissionUpdates(state *ChannelState) (*PermissionPlan, error)

	// ComputeOrdering returns the strategy's entities in desired order, per kind
	ComputeOrdering(state *ChannelState) (map[types.EntityKind][]*types.Entity, error)
}

// CreateRequest describes an entity to create. Only roles are created with
// their full settings; other kinds are created by name and receive their
// settings in the settings phase.
type CreateRequest struct {
	Kind     types.EntityKind
	Settings types.Settings
}

func (r CreateRequest) String() string {
	return fmt.Sprintf("%s %q", r.Kind, r.Settings.Name)
}

// SettingsUpdate is the target settings of an existing entity
type SettingsUpdate struct {
	Entity   *types.Entity
	Settings types.Settings
}

// Plan is the create/delete/update output of one or more strategies. No
// entity appears in more than one collection.
type Plan struct {
	Delete []*types.Entity
	Create []CreateRequest
	Update []SettingsUpdate
}

// Empty reports whether the plan changes nothing
func (p *Plan) Empty() bool {
	return len(p.Delete) == 0 && len(p.Create) == 0 && len(p.Update) == 0
}

// PermissionPlan is the grant output of one or more channel strategies
type PermissionPlan struct {
	Delete []*types.Grant
	Create []*types.Grant
	Update []*types.Grant
}

// Empty reports whether the plan changes nothing
func (p *PermissionPlan) Empty() bool {
	return p == nil || len(p.Delete) == 0 && len(p.Create) == 0 && len(p.Update) == 0
}

// Merge appends the changes of o
func (p *PermissionPlan) Merge(o *PermissionPlan) {
	if o == nil {
		return
	}
	p.Delete = append(p.Delete, o.Delete...)
	p.Create = append(p.Create, o.Create...)
	p.Update = append(p.Update, o.Update...)
}

// StrategyError isolates a failure to the strategy that produced it
type StrategyError struct {
	Strategy string
	Phase    Phase
	Err      error
}

func (e *StrategyError) Error() string {
	return fmt.Sprintf("strategy %s failed during %s: %v", e.Strategy, e.Phase, e.Err)
}

func (e *StrategyError) Unwrap() error {
	return e.Err
}

// guard runs fn and converts both a returned error and a panic into a
// StrategyError so that sibling strategies keep running.
func guard(s Strategy, phase Phase, fn func() error) (serr *StrategyError) {
	defer func() {
		if r := recover(); r != nil {
			serr = &StrategyError{
				Strategy: s.Name(),
				Phase:    phase,
				Err:      fmt.Errorf("panic: %v\n%s", r, debug.Stack()),
			}
		}
	}()
	if err := fn(); err != nil {
		return &StrategyError{Strategy: s.Name(), Phase: phase, Err: err}
	}
	return nil
}

// Matched is the result of pairing live entities with desired keys
type Matched struct {
	// Live maps each desired key to the live entity that carries it
	Live map[string]*types.Entity
	// Stale holds parsable entities whose key is no longer desired
	Stale []*types.Entity
	// Missing holds desired keys without a live entity, in desired order
	Missing []string
	// Duplicates holds entities whose key was already taken by an earlier one
	Duplicates []*types.Entity
}

// Match pairs live entities with the desired keys. parse maps an entity name
// to its canonical key; names it rejects are outside the naming convention and
// are ignored rather than treated as stale. When several entities share a key
// the one with the lowest position wins.
func Match(live []*types.Entity, parse func(name string) (string, bool), desired []string) Matched {
	want := make(map[string]bool, len(desired))
	for _, k := range desired {
		want[k] = true
	}

	m := Matched{Live: make(map[string]*types.Entity)}
	for _, e := range byPosition(live) {
		key, ok := parse(e.Name)
		if !ok {
			continue
		}
		if !want[key] {
			m.Stale = append(m.Stale, e)
			continue
		}
		if _, taken := m.Live[key]; taken {
			m.Duplicates = append(m.Duplicates, e)
			continue
		}
		m.Live[key] = e
	}
	for _, k := range desired {
		if _, ok := m.Live[k]; !ok {
			m.Missing = append(m.Missing, k)
		}
	}
	return m
}

// ExactName returns a parse function accepting one fixed canonical name
func ExactName(name string) func(string) (string, bool) {
	want := naming.Canonical(name)
	return func(n string) (string, bool) {
		if naming.Canonical(n) == want {
			return want, true
		}
		return "", false
	}
}

// GrantSet is the desired grants of one channel keyed by role ID
type GrantSet map[string]*types.Grant

// Set adds a role grant on channel. A role that is not visible yet is skipped;
// its grant is created by a later pass.
func (s GrantSet) Set(channel, role *types.Entity, allow, deny types.Permissions) {
	if channel == nil || role == nil {
		return
	}
	s[role.ID] = &types.Grant{
		ChannelID:  channel.ID,
		TargetID:   role.ID,
		TargetType: types.GrantTargetRole,
		Allow:      allow,
		Deny:       deny,
	}
}

// LogDuplicates warns about every live entity shadowed by an earlier one
func (m Matched) LogDuplicates(logger zerolog.Logger) {
	for _, e := range m.Duplicates {
		logger.Warn().Str("entity", e.String()).Msg("Duplicate entity, leaving it untouched")
	}
}

// DiffGrants compares the grants of one channel with the desired grants,
// keyed by target ID. Grants whose target is not desired are deleted, member
// grants included. Missing grants are created and differing ones rewritten.
func DiffGrants(existing []*types.Grant, desired map[string]*types.Grant) *PermissionPlan {
	plan := &PermissionPlan{}
	seen := make(map[string]bool, len(existing))
	for _, g := range existing {
		want, ok := desired[g.TargetID]
		if !ok || g.TargetType != types.GrantTargetRole || seen[g.TargetID] {
			plan.Delete = append(plan.Delete, g)
			continue
		}
		seen[g.TargetID] = true
		if !g.SameBits(want) {
			plan.Update = append(plan.Update, want)
		}
	}

	targets := make([]string, 0, len(desired))
	for id := range desired {
		targets = append(targets, id)
	}
	sort.Strings(targets)
	for _, id := range targets {
		if !seen[id] {
			plan.Create = append(plan.Create, desired[id])
		}
	}
	return plan
}

// SortByName returns the entities sorted by canonical name
func SortByName(entities []*types.Entity) []*types.Entity {
	out := make([]*types.Entity, len(entities))
	copy(out, entities)
	sort.SliceStable(out, func(i, j int) bool {
		return naming.Canonical(out[i].Name) < naming.Canonical(out[j].Name)
	})
	return out
}

func byPosition(entities []*types.Entity) []*types.Entity {
	out := make([]*types.Entity, len(entities))
	copy(out, entities)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Position < out[j].Position
	})
	return out
}

// filterPrefix returns the editable entities whose name carries prefix
func filterPrefix(entities []*types.Entity, prefix string) []*types.Entity {
	var out []*types.Entity
	for _, e := range entities {
		if !e.Movable() || !e.HasPrefix(prefix) {
			continue
		}
		out = append(out, e)
	}
	return out
}
