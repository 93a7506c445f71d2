package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/cuemby/guildsync/pkg/config"
	"github.com/cuemby/guildsync/pkg/events"
	"github.com/cuemby/guildsync/pkg/gateway"
	"github.com/cuemby/guildsync/pkg/gateway/discord"
	"github.com/cuemby/guildsync/pkg/gateway/memory"
	"github.com/cuemby/guildsync/pkg/metrics"
	"github.com/cuemby/guildsync/pkg/reconciler"
	"github.com/cuemby/guildsync/pkg/strategy/clubs"
	"github.com/cuemby/guildsync/pkg/strategy/courses"
	"github.com/cuemby/guildsync/pkg/strategy/verification"
)

// strategies builds the registered strategies from the workspace declaration.
// The verification gate is only registered when enabled, so a disabled gate
// leaves existing verification entities alone.
func strategies(ws *config.Workspace) ([]reconciler.RoleStrategy, []reconciler.ChannelStrategy) {
	courseCfg := courses.Config{
		Courses: ws.CourseNumbers(),
		Titles:  ws.CourseTitles(),
		Voice:   ws.Courses.Voice,
	}
	clubCfg := clubs.Config{Clubs: ws.ClubSlugs()}

	roles := []reconciler.RoleStrategy{courses.NewRoles(courseCfg), clubs.NewRoles(clubCfg)}
	channels := []reconciler.ChannelStrategy{courses.NewChannels(courseCfg), clubs.NewChannels(clubCfg)}
	if ws.Verification.Enabled {
		roles = append(roles, verification.NewRoles())
		channels = append(channels, verification.NewChannels())
	}
	return roles, channels
}

// coordinators builds both coordinators, roles first
func coordinators(gw gateway.Gateway, ws *config.Workspace, opts ...reconciler.Option) (*reconciler.RoleCoordinator, *reconciler.ChannelCoordinator) {
	roleStrategies, channelStrategies := strategies(ws)
	return reconciler.NewRoleCoordinator(gw, roleStrategies, opts...),
		reconciler.NewChannelCoordinator(gw, channelStrategies, opts...)
}

// openGateway connects the configured gateway. The returned close function
// releases the connection.
func openGateway(ctx context.Context, settings *config.Settings, ws *config.Workspace, broker *events.Broker) (gateway.Gateway, func() error, error) {
	switch settings.Gateway {
	case config.GatewayMemory:
		var opts []memory.Option
		if broker != nil {
			opts = append(opts, memory.WithBroker(broker))
		}
		metrics.UpdateComponent(metrics.ComponentGateway, true, "")
		return memory.New(opts...), func() error { return nil }, nil

	case config.GatewayDiscord:
		if ws.GuildID == "" {
			return nil, nil, fmt.Errorf("%w: guild_id is required with the discord gateway", config.ErrInvalid)
		}
		gw, err := discord.New(discord.Config{
			Token:          settings.DiscordToken,
			GuildID:        ws.GuildID,
			RequestTimeout: settings.RequestTimeout,
		}, broker)
		if err != nil {
			return nil, nil, err
		}
		if err := gw.Open(ctx); err != nil {
			return nil, nil, err
		}
		return gw, gw.Close, nil
	}
	return nil, nil, errors.New("unknown gateway: " + settings.Gateway)
}
