package discord

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/guildsync/pkg/gateway"
	"github.com/cuemby/guildsync/pkg/types"
)

func TestChannelEntities(t *testing.T) {
	channels := []*discordgo.Channel{
		{ID: "3", Name: "cs-3500", Type: discordgo.ChannelTypeGuildText, Position: 7, ParentID: "c1", Topic: "Software Practice"},
		{ID: "1", Name: "general", Type: discordgo.ChannelTypeGuildText, Position: 2},
		{ID: "c1", Name: "cs-3000-level", Type: discordgo.ChannelTypeGuildCategory, Position: 0},
		{ID: "v1", Name: "lounge", Type: discordgo.ChannelTypeGuildVoice, Position: 1},
		{ID: "n1", Name: "news", Type: discordgo.ChannelTypeGuildNews, Position: 0},
		{ID: "2", Name: "random", Type: discordgo.ChannelTypeGuildText, Position: 2},
	}

	text := channelEntities(channels, types.KindTextChannel)
	require.Len(t, text, 3)
	assert.Equal(t, []string{"1", "2", "3"}, []string{text[0].ID, text[1].ID, text[2].ID})
	assert.Equal(t, 2, text[2].Position, "positions are renumbered from zero")
	assert.Equal(t, "c1", text[2].ParentID)
	assert.Equal(t, "Software Practice", text[2].Topic)

	categories := channelEntities(channels, types.KindCategory)
	require.Len(t, categories, 1)
	assert.Equal(t, types.KindCategory, categories[0].Kind)

	assert.Len(t, channelEntities(channels, types.KindVoiceChannel), 1)
}

func TestRoleEntities(t *testing.T) {
	roles := []*discordgo.Role{
		{ID: "guild", Name: "@everyone", Position: 0},
		{ID: "bot", Name: "guildsync", Position: 3, Managed: true},
		{ID: "s", Name: "cs-3500", Position: 1, Color: 0x2ECC71, Mentionable: true},
		{ID: "p", Name: "cs-3500-prof", Position: 2, Hoist: true, Permissions: 1 << 10},
		{ID: "admin", Name: "Admin", Position: 4},
	}

	got := roleEntities(roles, "guild", []string{"bot"})
	require.Len(t, got, 5)

	assert.Equal(t, []string{"admin", "bot", "p", "s", "guild"},
		[]string{got[0].ID, got[1].ID, got[2].ID, got[3].ID, got[4].ID})
	assert.True(t, got[1].Managed)
	assert.True(t, got[4].Default)
	assert.Equal(t, 4, got[4].Position)
	assert.Equal(t, types.PermViewChannel, got[2].Permissions)
	assert.Equal(t, 0x2ECC71, got[3].Color)

	assert.True(t, got[0].Locked, "roles above the bot cannot be managed")
	assert.True(t, got[1].Locked)
	assert.False(t, got[2].Locked)
	assert.False(t, got[4].Locked)
	assert.True(t, got[2].Movable())
	assert.False(t, got[0].Movable())

	none := roleEntities(roles, "guild", nil)
	for _, e := range none {
		assert.Equal(t, !e.Default, e.Locked, e.ID)
	}
}

func TestRolePositions(t *testing.T) {
	live := roleEntities([]*discordgo.Role{
		{ID: "guild", Name: "@everyone", Position: 0},
		{ID: "s", Name: "cs-3500", Position: 1},
		{ID: "ta", Name: "cs-3500-ta", Position: 2},
		{ID: "bot", Name: "guildsync", Position: 3, Managed: true},
		{ID: "admin", Name: "Admin", Position: 4},
	}, "guild", []string{"bot"})
	byID := map[string]*types.Entity{}
	for _, e := range live {
		byID[e.ID] = e
	}

	tests := []struct {
		name    string
		ordered []string
		want    map[string]int
		wantErr error
	}{
		{
			name:    "swaps inside the movable slots",
			ordered: []string{"s", "ta"},
			want:    map[string]int{"s": 2, "ta": 1},
		},
		{
			name:    "unchanged order",
			ordered: []string{"ta", "s"},
			want:    map[string]int{"ta": 2, "s": 1},
		},
		{
			name:    "locked role",
			ordered: []string{"admin", "s", "ta"},
			wantErr: gateway.ErrForbidden,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ordered []*types.Entity
			for _, id := range tt.ordered {
				ordered = append(ordered, byID[id])
			}
			roles, err := rolePositions(ordered, live)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			got := map[string]int{}
			for _, r := range roles {
				got[r.ID] = r.Position
			}
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := rolePositions([]*types.Entity{{ID: "gone"}}, live)
	assert.ErrorIs(t, err, gateway.ErrNotFound)
}

func TestChannelPositions(t *testing.T) {
	channels := channelPositions([]*types.Entity{{ID: "a"}, {ID: "b"}, {ID: "c"}})
	assert.Equal(t, 0, channels[0].Position)
	assert.Equal(t, 2, channels[2].Position)
}

func TestGrantConversion(t *testing.T) {
	g := grantOf("ch", &discordgo.PermissionOverwrite{
		ID:    "m",
		Type:  discordgo.PermissionOverwriteTypeMember,
		Allow: 1 << 10,
		Deny:  1 << 11,
	})
	assert.Equal(t, &types.Grant{
		ChannelID:  "ch",
		TargetID:   "m",
		TargetType: types.GrantTargetMember,
		Allow:      types.PermViewChannel,
		Deny:       types.PermSendMessages,
	}, g)

	assert.Equal(t, discordgo.PermissionOverwriteTypeMember, overwriteType(types.GrantTargetMember))
	assert.Equal(t, discordgo.PermissionOverwriteTypeRole, overwriteType(types.GrantTargetRole))
}

func TestRoleParams(t *testing.T) {
	p := roleParams(types.Settings{Name: "cs-3500-ta", Color: 0x3498DB, Hoist: true, Mentionable: true})
	assert.Equal(t, "cs-3500-ta", p.Name)
	assert.Equal(t, 0x3498DB, *p.Color)
	assert.True(t, *p.Hoist)
	assert.True(t, *p.Mentionable)
	assert.Equal(t, int64(0), *p.Permissions)
}

func TestChannelPatch(t *testing.T) {
	tests := []struct {
		name     string
		kind     types.EntityKind
		settings types.Settings
		want     map[string]any
	}{
		{
			name:     "category",
			kind:     types.KindCategory,
			settings: types.Settings{Name: "cs-3000-level"},
			want:     map[string]any{"name": "cs-3000-level"},
		},
		{
			name:     "text channel",
			kind:     types.KindTextChannel,
			settings: types.Settings{Name: "cs-3500", ParentID: "c3", Topic: "Software Practice"},
			want:     map[string]any{"name": "cs-3500", "parent_id": "c3", "topic": "Software Practice"},
		},
		{
			name:     "voice channel leaves its category",
			kind:     types.KindVoiceChannel,
			settings: types.Settings{Name: "cs-3500"},
			want:     map[string]any{"name": "cs-3500", "parent_id": nil},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, channelPatch(tt.kind, tt.settings))
		})
	}
}

func TestMapError(t *testing.T) {
	rest := func(code int) error {
		return &discordgo.RESTError{Response: &http.Response{StatusCode: code}}
	}

	assert.ErrorIs(t, mapError(rest(http.StatusNotFound)), gateway.ErrNotFound)
	assert.ErrorIs(t, mapError(rest(http.StatusForbidden)), gateway.ErrForbidden)

	other := rest(http.StatusInternalServerError)
	assert.Same(t, other, mapError(other))

	plain := errors.New("boom")
	assert.Same(t, plain, mapError(plain))
	assert.NoError(t, mapError(nil))
}

func TestNew_RequiresCredentials(t *testing.T) {
	_, err := New(Config{GuildID: "g"}, nil)
	assert.Error(t, err)

	_, err = New(Config{Token: "t"}, nil)
	assert.Error(t, err)

	g, err := New(Config{Token: "t", GuildID: "g"}, nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultRequestTimeout, g.timeout)
	assert.Equal(t, uint(DefaultConnectAttempts), g.attempts)
}

func TestListRoles_RequiresOpen(t *testing.T) {
	g, err := New(Config{Token: "t", GuildID: "g"}, nil)
	require.NoError(t, err)

	_, err = g.ListRoles(context.Background())
	assert.Error(t, err)
}
