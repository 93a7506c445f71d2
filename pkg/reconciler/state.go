package reconciler

import (
	"github.com/cuemby/guildsync/pkg/naming"
	"github.com/cuemby/guildsync/pkg/types"
)

// ChannelState is the live channel-family snapshot handed to a channel
// strategy. Categories and channels are filtered to the strategy's prefix;
// Roles is the full role list because grants may reference any role.
type ChannelState struct {
	Categories    []*types.Entity
	TextChannels  []*types.Entity
	VoiceChannels []*types.Entity
	Roles         []*types.Entity

	// grants holds the grants of every channel whose grants could be read.
	// It is nil in the create/delete phase.
	grants map[string][]*types.Grant
}

// Entities returns the channels or categories of one kind
func (s *ChannelState) Entities(kind types.EntityKind) []*types.Entity {
	switch kind {
	case types.KindCategory:
		return s.Categories
	case types.KindTextChannel:
		return s.TextChannels
	case types.KindVoiceChannel:
		return s.VoiceChannels
	}
	return nil
}

// Grants returns the grants of a channel. ok is false when the grants of the
// channel are unknown, in which case a strategy must leave them alone.
func (s *ChannelState) Grants(channel *types.Entity) ([]*types.Grant, bool) {
	g, ok := s.grants[channel.ID]
	return g, ok
}

// DefaultRole returns the everyone role, or nil if it is not visible
func (s *ChannelState) DefaultRole() *types.Entity {
	for _, r := range s.Roles {
		if r.Default {
			return r
		}
	}
	return nil
}

// RoleByName returns the lowest positioned role with the given canonical name
func (s *ChannelState) RoleByName(name string) *types.Entity {
	want := naming.Canonical(name)
	var found *types.Entity
	for _, r := range s.Roles {
		if naming.Canonical(r.Name) != want {
			continue
		}
		if found == nil || r.Position < found.Position {
			found = r
		}
	}
	return found
}

// filter returns the view of the state for one prefix
func (s *ChannelState) filter(prefix string) *ChannelState {
	out := &ChannelState{
		Categories:    filterPrefix(s.Categories, prefix),
		TextChannels:  filterPrefix(s.TextChannels, prefix),
		VoiceChannels: filterPrefix(s.VoiceChannels, prefix),
		Roles:         s.Roles,
	}
	if s.grants != nil {
		out.grants = make(map[string][]*types.Grant)
		for _, kind := range types.ChannelKinds {
			for _, e := range out.Entities(kind) {
				if g, ok := s.grants[e.ID]; ok {
					out.grants[e.ID] = g
				}
			}
		}
	}
	return out
}

// owns reports whether the entity with the given ID is part of the state
func (s *ChannelState) owns(id string) bool {
	for _, kind := range types.ChannelKinds {
		for _, e := range s.Entities(kind) {
			if e.ID == id {
				return true
			}
		}
	}
	return false
}

// NewChannelState builds a state from raw lists. grants may be nil. It is
// meant for strategy tests; coordinators build their own snapshots.
func NewChannelState(categories, text, voice, roles []*types.Entity, grants map[string][]*types.Grant) *ChannelState {
	return &ChannelState{
		Categories:    categories,
		TextChannels:  text,
		VoiceChannels: voice,
		Roles:         roles,
		grants:        grants,
	}
}

// without returns the state minus the given entities. Known grants are kept
// for the remaining channels.
func (s *ChannelState) without(drop []*types.Entity) *ChannelState {
	out := &ChannelState{
		Categories:    withoutEntities(s.Categories, drop),
		TextChannels:  withoutEntities(s.TextChannels, drop),
		VoiceChannels: withoutEntities(s.VoiceChannels, drop),
		Roles:         s.Roles,
	}
	if s.grants != nil {
		gone := entityIDs(drop)
		out.grants = make(map[string][]*types.Grant, len(s.grants))
		for id, g := range s.grants {
			if !gone(id) {
				out.grants[id] = g
			}
		}
	}
	return out
}
