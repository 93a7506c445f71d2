package discord

import (
	"github.com/bwmarrin/discordgo"

	"github.com/cuemby/guildsync/pkg/events"
	"github.com/cuemby/guildsync/pkg/types"
)

// registerHandlers forwards structural changes of the guild to the broker
func (g *Gateway) registerHandlers() {
	g.removers = append(g.removers,
		g.session.AddHandler(func(_ *discordgo.Session, e *discordgo.GuildCreate) {
			if e.Guild != nil && e.ID == g.guildID {
				g.publish(events.EventGuildReady, e.ID, e.Name)
			}
		}),
		g.session.AddHandler(func(_ *discordgo.Session, e *discordgo.ChannelCreate) {
			g.channelEvent(e.Channel, events.EventCategoryCreated, events.EventChannelCreated)
		}),
		g.session.AddHandler(func(_ *discordgo.Session, e *discordgo.ChannelUpdate) {
			g.channelEvent(e.Channel, events.EventCategoryUpdated, events.EventChannelUpdated)
		}),
		g.session.AddHandler(func(_ *discordgo.Session, e *discordgo.ChannelDelete) {
			g.channelEvent(e.Channel, events.EventCategoryDeleted, events.EventChannelDeleted)
		}),
		g.session.AddHandler(func(_ *discordgo.Session, e *discordgo.GuildRoleCreate) {
			g.roleEvent(e.GuildRole, events.EventRoleCreated)
		}),
		g.session.AddHandler(func(_ *discordgo.Session, e *discordgo.GuildRoleUpdate) {
			g.roleEvent(e.GuildRole, events.EventRoleUpdated)
		}),
		g.session.AddHandler(func(_ *discordgo.Session, e *discordgo.GuildRoleDelete) {
			if e.GuildID == g.guildID {
				g.publish(events.EventRoleDeleted, e.RoleID, "")
			}
		}),
		g.session.AddHandler(func(_ *discordgo.Session, _ *discordgo.Disconnect) {
			g.logger.Warn().Msg("Discord session disconnected")
		}),
	)
}

func (g *Gateway) channelEvent(c *discordgo.Channel, category, channel events.EventType) {
	if c == nil || c.GuildID != g.guildID {
		return
	}
	kind, ok := kindOf(c.Type)
	if !ok {
		return
	}
	t := channel
	if kind == types.KindCategory {
		t = category
	}
	g.publish(t, c.ID, c.Name)
}

func (g *Gateway) roleEvent(r *discordgo.GuildRole, t events.EventType) {
	if r == nil || r.Role == nil || r.GuildID != g.guildID {
		return
	}
	g.publish(t, r.Role.ID, r.Role.Name)
}

func (g *Gateway) publish(t events.EventType, id, name string) {
	g.broker.Publish(&events.Event{
		Type:     t,
		Message:  string(t) + " " + name,
		Metadata: map[string]string{"id": id, "name": name},
	})
}
