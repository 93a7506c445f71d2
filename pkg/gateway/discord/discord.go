package discord

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog"

	"github.com/cuemby/guildsync/pkg/events"
	"github.com/cuemby/guildsync/pkg/gateway"
	"github.com/cuemby/guildsync/pkg/log"
	"github.com/cuemby/guildsync/pkg/metrics"
	"github.com/cuemby/guildsync/pkg/types"
)

const (
	// DefaultRequestTimeout bounds every REST call
	DefaultRequestTimeout = 10 * time.Second
	// DefaultConnectAttempts is how often the initial connection is tried
	DefaultConnectAttempts = 5
)

// Config configures the Discord gateway
type Config struct {
	Token           string
	GuildID         string
	RequestTimeout  time.Duration
	ConnectAttempts uint
}

// Gateway implements gateway.Gateway on top of a discordgo session
type Gateway struct {
	session  *discordgo.Session
	guildID  string
	timeout  time.Duration
	attempts uint
	broker   *events.Broker
	removers []func()
	botID    string
	logger   zerolog.Logger
}

var _ gateway.Gateway = (*Gateway)(nil)

// New creates a gateway for one guild. Workspace change events are published
// to broker once the session is open; broker may be nil.
func New(cfg Config, broker *events.Broker) (*Gateway, error) {
	if cfg.Token == "" {
		return nil, errors.New("discord token is required")
	}
	if cfg.GuildID == "" {
		return nil, errors.New("guild ID is required")
	}

	session, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuilds

	g := &Gateway{
		session:  session,
		guildID:  cfg.GuildID,
		timeout:  cfg.RequestTimeout,
		attempts: cfg.ConnectAttempts,
		broker:   broker,
		logger:   log.WithComponent("discord"),
	}
	if g.timeout <= 0 {
		g.timeout = DefaultRequestTimeout
	}
	if g.attempts == 0 {
		g.attempts = DefaultConnectAttempts
	}
	return g, nil
}

// Open connects the websocket session, retrying with exponential backoff
func (g *Gateway) Open(ctx context.Context) error {
	if g.broker != nil {
		g.registerHandlers()
	}

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		err := g.session.Open()
		var restErr *discordgo.RESTError
		if errors.As(err, &restErr) && restErr.Response != nil &&
			restErr.Response.StatusCode == http.StatusUnauthorized {
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, err
	},
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(g.attempts),
		backoff.WithNotify(func(err error, next time.Duration) {
			g.logger.Warn().Err(err).Dur("retry_in", next).Msg("Failed to connect to Discord, retrying")
		}),
	)
	if err != nil {
		metrics.UpdateComponent(metrics.ComponentGateway, false, err.Error())
		return fmt.Errorf("failed to connect to discord: %w", err)
	}

	err = g.call(ctx, func(opt discordgo.RequestOption) error {
		u, err := g.session.User("@me", opt)
		if err != nil {
			return err
		}
		g.botID = u.ID
		return nil
	})
	if err != nil {
		metrics.UpdateComponent(metrics.ComponentGateway, false, err.Error())
		return fmt.Errorf("failed to read the bot user: %w", err)
	}

	metrics.UpdateComponent(metrics.ComponentGateway, true, "")
	g.logger.Info().Str("guild", g.guildID).Msg("Connected to Discord")
	return nil
}

// Close closes the session and removes the event handlers
func (g *Gateway) Close() error {
	for _, remove := range g.removers {
		remove()
	}
	g.removers = nil
	metrics.UpdateComponent(metrics.ComponentGateway, false, "closed")
	return g.session.Close()
}

// call runs one REST request bounded by the request timeout
func (g *Gateway) call(ctx context.Context, fn func(opt discordgo.RequestOption) error) error {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()
	return mapError(fn(discordgo.WithContext(ctx)))
}

func (g *Gateway) channels(ctx context.Context, kind types.EntityKind) ([]*types.Entity, error) {
	var channels []*discordgo.Channel
	err := g.call(ctx, func(opt discordgo.RequestOption) error {
		var err error
		channels, err = g.session.GuildChannels(g.guildID, opt)
		return err
	})
	if err != nil {
		return nil, err
	}
	return channelEntities(channels, kind), nil
}

func (g *Gateway) ListCategories(ctx context.Context) ([]*types.Entity, error) {
	return g.channels(ctx, types.KindCategory)
}

func (g *Gateway) ListTextChannels(ctx context.Context) ([]*types.Entity, error) {
	return g.channels(ctx, types.KindTextChannel)
}

func (g *Gateway) ListVoiceChannels(ctx context.Context) ([]*types.Entity, error) {
	return g.channels(ctx, types.KindVoiceChannel)
}

// ListRoles returns the roles in display order. Roles the bot cannot manage
// because they sit at or above its own highest role come back locked.
func (g *Gateway) ListRoles(ctx context.Context) ([]*types.Entity, error) {
	if g.botID == "" {
		return nil, errors.New("discord gateway is not open")
	}
	var roles []*discordgo.Role
	var bot *discordgo.Member
	err := g.call(ctx, func(opt discordgo.RequestOption) error {
		var err error
		if roles, err = g.session.GuildRoles(g.guildID, opt); err != nil {
			return err
		}
		bot, err = g.session.GuildMember(g.guildID, g.botID, opt)
		return err
	})
	if err != nil {
		return nil, err
	}
	return roleEntities(roles, g.guildID, bot.Roles), nil
}

func (g *Gateway) ListGrants(ctx context.Context, channel *types.Entity) ([]*types.Grant, error) {
	var ch *discordgo.Channel
	err := g.call(ctx, func(opt discordgo.RequestOption) error {
		var err error
		ch, err = g.session.Channel(channel.ID, opt)
		return err
	})
	if err != nil {
		return nil, err
	}
	grants := make([]*types.Grant, 0, len(ch.PermissionOverwrites))
	for _, o := range ch.PermissionOverwrites {
		grants = append(grants, grantOf(ch.ID, o))
	}
	return grants, nil
}

func (g *Gateway) CreateCategory(ctx context.Context, name string) (*types.Entity, error) {
	return g.CreateChannel(ctx, types.KindCategory, name)
}

func (g *Gateway) CreateChannel(ctx context.Context, kind types.EntityKind, name string) (*types.Entity, error) {
	ct, ok := channelType(kind)
	if !ok {
		return nil, fmt.Errorf("cannot create a channel of kind %s", kind)
	}
	var ch *discordgo.Channel
	err := g.call(ctx, func(opt discordgo.RequestOption) error {
		var err error
		ch, err = g.session.GuildChannelCreate(g.guildID, name, ct, opt)
		return err
	})
	if err != nil {
		return nil, err
	}
	return channelEntity(ch, kind), nil
}

func (g *Gateway) CreateRole(ctx context.Context, settings types.Settings) (*types.Entity, error) {
	var role *discordgo.Role
	err := g.call(ctx, func(opt discordgo.RequestOption) error {
		var err error
		role, err = g.session.GuildRoleCreate(g.guildID, roleParams(settings), opt)
		return err
	})
	if err != nil {
		return nil, err
	}
	return roleEntity(role, g.guildID), nil
}

func (g *Gateway) Delete(ctx context.Context, entity *types.Entity) error {
	return g.call(ctx, func(opt discordgo.RequestOption) error {
		if entity.Kind == types.KindRole {
			return g.session.GuildRoleDelete(g.guildID, entity.ID, opt)
		}
		_, err := g.session.ChannelDelete(entity.ID, opt)
		return err
	})
}

func (g *Gateway) UpdateSettings(ctx context.Context, entity *types.Entity, settings types.Settings) error {
	return g.call(ctx, func(opt discordgo.RequestOption) error {
		if entity.Kind == types.KindRole {
			_, err := g.session.GuildRoleEdit(g.guildID, entity.ID, roleParams(settings), opt)
			return err
		}
		endpoint := discordgo.EndpointChannel(entity.ID)
		_, err := g.session.RequestWithBucketID(http.MethodPatch, endpoint,
			channelPatch(entity.Kind, settings), endpoint, opt)
		return err
	})
}

func (g *Gateway) CreateGrant(ctx context.Context, grant *types.Grant) error {
	return g.setGrant(ctx, grant)
}

func (g *Gateway) UpdateGrant(ctx context.Context, grant *types.Grant) error {
	return g.setGrant(ctx, grant)
}

// setGrant writes the whole overwrite; Discord has no separate create
func (g *Gateway) setGrant(ctx context.Context, grant *types.Grant) error {
	return g.call(ctx, func(opt discordgo.RequestOption) error {
		return g.session.ChannelPermissionSet(grant.ChannelID, grant.TargetID,
			overwriteType(grant.TargetType), int64(grant.Allow), int64(grant.Deny), opt)
	})
}

func (g *Gateway) DeleteGrant(ctx context.Context, grant *types.Grant) error {
	return g.call(ctx, func(opt discordgo.RequestOption) error {
		return g.session.ChannelPermissionDelete(grant.ChannelID, grant.TargetID, opt)
	})
}

func (g *Gateway) Reorder(ctx context.Context, kind types.EntityKind, ordered []*types.Entity) error {
	return g.call(ctx, func(opt discordgo.RequestOption) error {
		if kind == types.KindRole {
			roles, err := g.session.GuildRoles(g.guildID, opt)
			if err != nil {
				return err
			}
			positions, err := rolePositions(ordered, roleEntities(roles, g.guildID, nil))
			if err != nil {
				return err
			}
			_, err = g.session.GuildRoleReorder(g.guildID, positions, opt)
			return err
		}
		return g.session.GuildChannelsReorder(g.guildID, channelPositions(ordered), opt)
	})
}
