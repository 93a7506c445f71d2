// Package clubs keeps one role and one private text channel per club under a
// shared category.
package clubs

import (
	"sort"

	"github.com/rs/zerolog"

	"github.com/cuemby/guildsync/pkg/log"
	"github.com/cuemby/guildsync/pkg/naming"
	"github.com/cuemby/guildsync/pkg/reconciler"
	"github.com/cuemby/guildsync/pkg/types"
)

const (
	Name     = "clubs"
	Priority = 20

	// Color of every club role
	Color = 0x9B59B6

	memberGrant = types.PermViewChannel | types.PermSendMessages | types.PermReadMessageHistory
)

// Config lists the club slugs
type Config struct {
	Clubs []string
}

// names returns the unique club entity names in ascending order
func (c Config) names() []string {
	seen := make(map[string]bool, len(c.Clubs))
	out := make([]string, 0, len(c.Clubs))
	for _, slug := range c.Clubs {
		name := naming.ClubEntityName(slug)
		if !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

func parseClub(name string) (string, bool) {
	slug, ok := naming.ParseClubEntityName(name)
	if !ok {
		return "", false
	}
	return naming.ClubEntityName(slug), true
}

type base struct {
	cfg    Config
	logger zerolog.Logger
}

func (base) Name() string   { return Name }
func (base) Prefix() string { return naming.ClubPrefix }
func (base) Priority() int  { return Priority }

// Roles keeps one mentionable role per club
type Roles struct {
	base
}

var _ reconciler.RoleStrategy = (*Roles)(nil)

// NewRoles creates the club role strategy
func NewRoles(cfg Config) *Roles {
	return &Roles{base: base{cfg: cfg, logger: log.WithStrategy(Name)}}
}

func (r *Roles) match(roles []*types.Entity) ([]string, reconciler.Matched) {
	names := r.cfg.names()
	m := reconciler.Match(roles, parseClub, names)
	m.LogDuplicates(r.logger)
	return names, m
}

func roleSettings(name string) types.Settings {
	return types.Settings{Name: name, Color: Color, Mentionable: true}
}

func (r *Roles) ComputeCreateDelete(roles []*types.Entity) ([]*types.Entity, []reconciler.CreateRequest, error) {
	_, m := r.match(roles)
	var creates []reconciler.CreateRequest
	for _, name := range m.Missing {
		creates = append(creates, reconciler.CreateRequest{Kind: types.KindRole, Settings: roleSettings(name)})
	}
	return m.Stale, creates, nil
}

func (r *Roles) ComputeSettingsUpdates(roles []*types.Entity) ([]reconciler.SettingsUpdate, error) {
	names, m := r.match(roles)
	var updates []reconciler.SettingsUpdate
	for _, name := range names {
		if e, ok := m.Live[name]; ok {
			updates = append(updates, reconciler.SettingsUpdate{Entity: e, Settings: roleSettings(name)})
		}
	}
	return updates, nil
}

func (r *Roles) ComputeOrdering(roles []*types.Entity) ([]*types.Entity, error) {
	names, m := r.match(roles)
	var ordered []*types.Entity
	for _, name := range names {
		if e, ok := m.Live[name]; ok {
			ordered = append(ordered, e)
		}
	}
	return ordered, nil
}

// Channels keeps the clubs category and one channel per club
type Channels struct {
	base
}

var _ reconciler.ChannelStrategy = (*Channels)(nil)

// NewChannels creates the club channel strategy
func NewChannels(cfg Config) *Channels {
	return &Channels{base: base{cfg: cfg, logger: log.WithStrategy(Name)}}
}

type matched struct {
	names    []string
	category reconciler.Matched
	channels reconciler.Matched
}

func (c *Channels) match(state *reconciler.ChannelState) matched {
	names := c.cfg.names()
	var categories []string
	if len(names) > 0 {
		categories = []string{naming.ClubCategoryName}
	}
	m := matched{
		names:    names,
		category: reconciler.Match(state.Categories, reconciler.ExactName(naming.ClubCategoryName), categories),
		channels: reconciler.Match(state.TextChannels, parseClub, names),
	}
	m.category.LogDuplicates(c.logger)
	m.channels.LogDuplicates(c.logger)
	return m
}

func (c *Channels) ComputeCreateDelete(state *reconciler.ChannelState) ([]*types.Entity, []reconciler.CreateRequest, error) {
	m := c.match(state)
	var deletes []*types.Entity
	deletes = append(deletes, m.category.Stale...)
	deletes = append(deletes, m.channels.Stale...)
	var creates []reconciler.CreateRequest
	for _, name := range m.category.Missing {
		creates = append(creates, reconciler.CreateRequest{Kind: types.KindCategory, Settings: types.Settings{Name: name}})
	}
	for _, name := range m.channels.Missing {
		creates = append(creates, reconciler.CreateRequest{Kind: types.KindTextChannel, Settings: types.Settings{Name: name}})
	}
	return deletes, creates, nil
}

func (c *Channels) ComputeSettingsUpdates(state *reconciler.ChannelState) ([]reconciler.SettingsUpdate, error) {
	m := c.match(state)
	var updates []reconciler.SettingsUpdate

	category, hasCategory := m.category.Live[naming.ClubCategoryName]
	if hasCategory {
		target := category.Settings()
		target.Name = naming.ClubCategoryName
		updates = append(updates, reconciler.SettingsUpdate{Entity: category, Settings: target})
	}
	for _, name := range m.names {
		e, ok := m.channels.Live[name]
		if !ok {
			continue
		}
		target := e.Settings()
		target.Name = name
		if hasCategory {
			target.ParentID = category.ID
		}
		updates = append(updates, reconciler.SettingsUpdate{Entity: e, Settings: target})
	}
	return updates, nil
}

// ComputePermissionUpdates makes every club channel visible to its club role only
func (c *Channels) ComputePermissionUpdates(state *reconciler.ChannelState) (*reconciler.PermissionPlan, error) {
	m := c.match(state)
	everyone := state.DefaultRole()
	plan := &reconciler.PermissionPlan{}
	for _, name := range m.names {
		channel, ok := m.channels.Live[name]
		if !ok {
			continue
		}
		existing, ok := state.Grants(channel)
		if !ok {
			continue
		}
		want := reconciler.GrantSet{}
		want.Set(channel, everyone, 0, types.PermViewChannel)
		want.Set(channel, state.RoleByName(name), memberGrant, 0)
		plan.Merge(reconciler.DiffGrants(existing, want))
	}
	return plan, nil
}

func (c *Channels) ComputeOrdering(state *reconciler.ChannelState) (map[types.EntityKind][]*types.Entity, error) {
	m := c.match(state)
	out := map[types.EntityKind][]*types.Entity{}
	if category, ok := m.category.Live[naming.ClubCategoryName]; ok {
		out[types.KindCategory] = []*types.Entity{category}
	}
	for _, name := range m.names {
		if e, ok := m.channels.Live[name]; ok {
			out[types.KindTextChannel] = append(out[types.KindTextChannel], e)
		}
	}
	return out, nil
}
