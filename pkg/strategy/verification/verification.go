// Package verification keeps the gate that unverified members land in: a
// read-only verification channel that disappears once a member holds the
// verified role.
package verification

import (
	"github.com/rs/zerolog"

	"github.com/cuemby/guildsync/pkg/log"
	"github.com/cuemby/guildsync/pkg/naming"
	"github.com/cuemby/guildsync/pkg/reconciler"
	"github.com/cuemby/guildsync/pkg/types"
)

const (
	Name     = "verification"
	Priority = 0

	// Color of the verified role
	Color = 0x1ABC9C

	gateAllow = types.PermViewChannel | types.PermReadMessageHistory
	gateDeny  = types.PermSendMessages
)

type base struct {
	logger zerolog.Logger
}

func (base) Name() string   { return Name }
func (base) Prefix() string { return naming.VerificationPrefix }
func (base) Priority() int  { return Priority }

// Roles keeps the verified role
type Roles struct {
	base
}

var _ reconciler.RoleStrategy = (*Roles)(nil)

// NewRoles creates the verification role strategy
func NewRoles() *Roles {
	return &Roles{base: base{logger: log.WithStrategy(Name)}}
}

var roleSettings = types.Settings{Name: naming.VerifiedRoleName, Color: Color}

func (r *Roles) match(roles []*types.Entity) reconciler.Matched {
	m := reconciler.Match(roles, reconciler.ExactName(naming.VerifiedRoleName), []string{naming.VerifiedRoleName})
	m.LogDuplicates(r.logger)
	return m
}

func (r *Roles) ComputeCreateDelete(roles []*types.Entity) ([]*types.Entity, []reconciler.CreateRequest, error) {
	m := r.match(roles)
	if len(m.Missing) == 0 {
		return nil, nil, nil
	}
	return nil, []reconciler.CreateRequest{{Kind: types.KindRole, Settings: roleSettings}}, nil
}

func (r *Roles) ComputeSettingsUpdates(roles []*types.Entity) ([]reconciler.SettingsUpdate, error) {
	e, ok := r.match(roles).Live[naming.VerifiedRoleName]
	if !ok {
		return nil, nil
	}
	return []reconciler.SettingsUpdate{{Entity: e, Settings: roleSettings}}, nil
}

func (r *Roles) ComputeOrdering(roles []*types.Entity) ([]*types.Entity, error) {
	e, ok := r.match(roles).Live[naming.VerifiedRoleName]
	if !ok {
		return nil, nil
	}
	return []*types.Entity{e}, nil
}

// Channels keeps the verification channel outside any category
type Channels struct {
	base
}

var _ reconciler.ChannelStrategy = (*Channels)(nil)

// NewChannels creates the verification channel strategy
func NewChannels() *Channels {
	return &Channels{base: base{logger: log.WithStrategy(Name)}}
}

func (c *Channels) gate(state *reconciler.ChannelState) (*types.Entity, bool) {
	m := reconciler.Match(state.TextChannels, reconciler.ExactName(naming.VerificationChannelName), []string{naming.VerificationChannelName})
	m.LogDuplicates(c.logger)
	e, ok := m.Live[naming.VerificationChannelName]
	return e, ok
}

func (c *Channels) ComputeCreateDelete(state *reconciler.ChannelState) ([]*types.Entity, []reconciler.CreateRequest, error) {
	if _, ok := c.gate(state); ok {
		return nil, nil, nil
	}
	return nil, []reconciler.CreateRequest{{
		Kind:     types.KindTextChannel,
		Settings: types.Settings{Name: naming.VerificationChannelName},
	}}, nil
}

func (c *Channels) ComputeSettingsUpdates(state *reconciler.ChannelState) ([]reconciler.SettingsUpdate, error) {
	e, ok := c.gate(state)
	if !ok {
		return nil, nil
	}
	target := e.Settings()
	target.Name = naming.VerificationChannelName
	target.ParentID = ""
	return []reconciler.SettingsUpdate{{Entity: e, Settings: target}}, nil
}

// ComputePermissionUpdates lets everyone read the gate without writing, and
// hides it from verified members.
func (c *Channels) ComputePermissionUpdates(state *reconciler.ChannelState) (*reconciler.PermissionPlan, error) {
	e, ok := c.gate(state)
	if !ok {
		return &reconciler.PermissionPlan{}, nil
	}
	existing, ok := state.Grants(e)
	if !ok {
		return &reconciler.PermissionPlan{}, nil
	}
	want := reconciler.GrantSet{}
	want.Set(e, state.DefaultRole(), gateAllow, gateDeny)
	want.Set(e, state.RoleByName(naming.VerifiedRoleName), 0, types.PermViewChannel)
	return reconciler.DiffGrants(existing, want), nil
}

func (c *Channels) ComputeOrdering(state *reconciler.ChannelState) (map[types.EntityKind][]*types.Entity, error) {
	e, ok := c.gate(state)
	if !ok {
		return nil, nil
	}
	return map[types.EntityKind][]*types.Entity{types.KindTextChannel: {e}}, nil
}
