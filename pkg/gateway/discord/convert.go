package discord

import (
	"errors"
	"fmt"
	"net/http"
	"sort"

	"github.com/bwmarrin/discordgo"

	"github.com/cuemby/guildsync/pkg/gateway"
	"github.com/cuemby/guildsync/pkg/types"
)

func kindOf(t discordgo.ChannelType) (types.EntityKind, bool) {
	switch t {
	case discordgo.ChannelTypeGuildCategory:
		return types.KindCategory, true
	case discordgo.ChannelTypeGuildText:
		return types.KindTextChannel, true
	case discordgo.ChannelTypeGuildVoice:
		return types.KindVoiceChannel, true
	}
	return "", false
}

func channelType(kind types.EntityKind) (discordgo.ChannelType, bool) {
	switch kind {
	case types.KindCategory:
		return discordgo.ChannelTypeGuildCategory, true
	case types.KindTextChannel:
		return discordgo.ChannelTypeGuildText, true
	case types.KindVoiceChannel:
		return discordgo.ChannelTypeGuildVoice, true
	}
	return 0, false
}

func channelEntity(c *discordgo.Channel, kind types.EntityKind) *types.Entity {
	return &types.Entity{
		ID:       c.ID,
		Kind:     kind,
		Name:     c.Name,
		Position: c.Position,
		ParentID: c.ParentID,
		Topic:    c.Topic,
	}
}

// channelEntities keeps the channels of one kind in display order and
// renumbers their positions from zero.
func channelEntities(channels []*discordgo.Channel, kind types.EntityKind) []*types.Entity {
	var out []*types.Entity
	for _, c := range channels {
		if k, ok := kindOf(c.Type); ok && k == kind {
			out = append(out, channelEntity(c, kind))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Position != out[j].Position {
			return out[i].Position < out[j].Position
		}
		return out[i].ID < out[j].ID
	})
	for i, e := range out {
		e.Position = i
	}
	return out
}

func roleEntity(r *discordgo.Role, guildID string) *types.Entity {
	return &types.Entity{
		ID:          r.ID,
		Kind:        types.KindRole,
		Name:        r.Name,
		Position:    r.Position,
		Color:       r.Color,
		Hoist:       r.Hoist,
		Mentionable: r.Mentionable,
		Permissions: types.Permissions(r.Permissions),
		Default:     r.ID == guildID,
		Managed:     r.Managed,
	}
}

// roleEntities returns the roles top to bottom. Discord numbers role positions
// from the bottom, with the everyone role at zero. Roles at or above the
// highest of botRoles are locked.
func roleEntities(roles []*discordgo.Role, guildID string, botRoles []string) []*types.Entity {
	top := highestPosition(roles, botRoles)
	out := make([]*types.Entity, 0, len(roles))
	for _, r := range roles {
		e := roleEntity(r, guildID)
		e.Locked = !e.Default && r.Position >= top
		out = append(out, e)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Position != out[j].Position {
			return out[i].Position > out[j].Position
		}
		return out[i].ID < out[j].ID
	})
	for i, e := range out {
		e.Position = i
	}
	return out
}

// highestPosition returns the Discord position of the highest listed role.
// A member without roles ranks with the everyone role.
func highestPosition(roles []*discordgo.Role, ids []string) int {
	held := make(map[string]bool, len(ids))
	for _, id := range ids {
		held[id] = true
	}
	top := 0
	for _, r := range roles {
		if held[r.ID] && r.Position > top {
			top = r.Position
		}
	}
	return top
}

// rolePositions places a top-first order into the display slots the listed
// roles occupy in live, so that every other role keeps its place. live is in
// display order as returned by roleEntities.
func rolePositions(ordered, live []*types.Entity) ([]*discordgo.Role, error) {
	slot := make(map[string]int, len(live))
	for _, e := range live {
		slot[e.ID] = e.Position
	}
	slots := make([]int, 0, len(ordered))
	for _, e := range ordered {
		if !e.Movable() {
			return nil, fmt.Errorf("%w: move %s", gateway.ErrForbidden, e)
		}
		i, ok := slot[e.ID]
		if !ok {
			return nil, fmt.Errorf("%w: %s", gateway.ErrNotFound, e)
		}
		slots = append(slots, i)
	}
	sort.Ints(slots)

	out := make([]*discordgo.Role, 0, len(ordered))
	for i, e := range ordered {
		out = append(out, &discordgo.Role{ID: e.ID, Position: len(live) - 1 - slots[i]})
	}
	return out, nil
}

func channelPositions(ordered []*types.Entity) []*discordgo.Channel {
	out := make([]*discordgo.Channel, 0, len(ordered))
	for i, e := range ordered {
		out = append(out, &discordgo.Channel{ID: e.ID, Position: i})
	}
	return out
}

func grantOf(channelID string, o *discordgo.PermissionOverwrite) *types.Grant {
	target := types.GrantTargetRole
	if o.Type == discordgo.PermissionOverwriteTypeMember {
		target = types.GrantTargetMember
	}
	return &types.Grant{
		ChannelID:  channelID,
		TargetID:   o.ID,
		TargetType: target,
		Allow:      types.Permissions(o.Allow),
		Deny:       types.Permissions(o.Deny),
	}
}

func overwriteType(t types.GrantTargetType) discordgo.PermissionOverwriteType {
	if t == types.GrantTargetMember {
		return discordgo.PermissionOverwriteTypeMember
	}
	return discordgo.PermissionOverwriteTypeRole
}

func roleParams(s types.Settings) *discordgo.RoleParams {
	color := s.Color
	hoist := s.Hoist
	mentionable := s.Mentionable
	perms := int64(s.Permissions)
	return &discordgo.RoleParams{
		Name:        s.Name,
		Color:       &color,
		Hoist:       &hoist,
		Mentionable: &mentionable,
		Permissions: &perms,
	}
}

// channelPatch is the body of a channel settings update. parent_id is always
// sent so that an empty ParentID moves the channel out of its category.
func channelPatch(kind types.EntityKind, s types.Settings) map[string]any {
	body := map[string]any{"name": s.Name}
	if kind == types.KindCategory {
		return body
	}
	if s.ParentID == "" {
		body["parent_id"] = nil
	} else {
		body["parent_id"] = s.ParentID
	}
	if kind == types.KindTextChannel {
		body["topic"] = s.Topic
	}
	return body
}

// mapError translates REST failures into gateway errors
func mapError(err error) error {
	var restErr *discordgo.RESTError
	if !errors.As(err, &restErr) || restErr.Response == nil {
		return err
	}
	switch restErr.Response.StatusCode {
	case http.StatusNotFound:
		return errors.Join(gateway.ErrNotFound, err)
	case http.StatusForbidden:
		return errors.Join(gateway.ErrForbidden, err)
	}
	return err
}
