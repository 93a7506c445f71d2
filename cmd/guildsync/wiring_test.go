package main

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/guildsync/pkg/config"
	"github.com/cuemby/guildsync/pkg/gateway/memory"
	"github.com/cuemby/guildsync/pkg/types"
)

func workspace(t *testing.T, verification bool) *config.Workspace {
	t.Helper()
	ws := &config.Workspace{
		GuildID: "42",
		Courses: config.Courses{Catalog: []config.Course{{Number: "CS 3500", Title: "Software Practice"}}},
		Clubs:   []string{"Chess"},
	}
	ws.Verification.Enabled = verification
	require.NoError(t, ws.Validate())
	return ws
}

func TestStrategies(t *testing.T) {
	tests := []struct {
		name         string
		verification bool
		want         []string
	}{
		{name: "without verification", want: []string{"courses", "clubs"}},
		{name: "with verification", verification: true, want: []string{"courses", "clubs", "verification"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			roles, channels := strategies(workspace(t, tt.verification))

			var roleNames, channelNames []string
			for _, s := range roles {
				roleNames = append(roleNames, s.Name())
			}
			for _, s := range channels {
				channelNames = append(channelNames, s.Name())
			}
			assert.Equal(t, tt.want, roleNames)
			assert.Equal(t, tt.want, channelNames)
		})
	}
}

func TestOpenGateway_Memory(t *testing.T) {
	settings := &config.Settings{Gateway: config.GatewayMemory}
	gw, closeGateway, err := openGateway(context.Background(), settings, workspace(t, false), nil)
	require.NoError(t, err)
	defer closeGateway()
	assert.IsType(t, &memory.Gateway{}, gw)
}

func TestOpenGateway_DiscordNeedsGuild(t *testing.T) {
	settings := &config.Settings{Gateway: config.GatewayDiscord, DiscordToken: "token"}
	ws := workspace(t, false)
	ws.GuildID = ""

	_, _, err := openGateway(context.Background(), settings, ws, nil)
	assert.ErrorIs(t, err, config.ErrInvalid)
}

func TestPrintPreview(t *testing.T) {
	gw := memory.New()
	roles, channels := coordinators(gw, workspace(t, false))
	ctx := context.Background()

	var out bytes.Buffer
	preview, err := roles.Plan(ctx)
	require.NoError(t, err)
	printPreview(&out, preview)
	assert.Contains(t, out.String(), "roles:\n")
	assert.Contains(t, out.String(), `  create role "cs-3500-prof"`)
	assert.Contains(t, out.String(), `  create role "club-chess"`)

	_, err = roles.Reconcile(ctx)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		_, err = channels.Reconcile(ctx)
		require.NoError(t, err)
	}

	out.Reset()
	preview, err = channels.Plan(ctx)
	require.NoError(t, err)
	printPreview(&out, preview)
	assert.Equal(t, "channels:\n  no changes\n", out.String())
}

func TestPrintPasses(t *testing.T) {
	started := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)
	passes := []*types.PassReport{
		{ID: "0123456789abcdef", Family: types.FamilyRoles, StartedAt: started, FinishedAt: started.Add(1500 * time.Millisecond), Created: 3},
		{ID: "ffff", Family: types.FamilyChannels, StartedAt: started, FinishedAt: started, Failures: 1},
	}

	var out bytes.Buffer
	require.NoError(t, printPasses(&out, passes))

	lines := bytes.Split(bytes.TrimSpace(out.Bytes()), []byte("\n"))
	require.Len(t, lines, 3)
	assert.Contains(t, string(lines[0]), "RESULT")
	assert.Contains(t, string(lines[1]), "01234567 ")
	assert.Contains(t, string(lines[1]), "1.5s")
	assert.Contains(t, string(lines[1]), "success")
	assert.Contains(t, string(lines[2]), "partial")
}
