package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const workspaceYAML = `
guild_id: "1234"
courses:
  voice: true
  catalog:
    - 3500
    - cs2420
    - number: CS 1410
      title: " Intro to OOP "
clubs:
  - Chess & Go
  - robotics
verification:
  enabled: true
`

const workspaceTOML = `
guild_id = "1234"
clubs = ["Chess & Go", "robotics"]

[courses]
voice = true
catalog = [3500, "cs2420", { number = "CS 1410", title = " Intro to OOP " }]

[verification]
enabled = true
`

func TestParse(t *testing.T) {
	tests := []struct {
		name   string
		data   string
		format string
	}{
		{name: "yaml", data: workspaceYAML, format: "yaml"},
		{name: "toml", data: workspaceTOML, format: "toml"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ws, err := Parse([]byte(tt.data), tt.format)
			require.NoError(t, err)

			assert.Equal(t, "1234", ws.GuildID)
			assert.True(t, ws.Courses.Voice)
			assert.True(t, ws.Verification.Enabled)
			assert.Equal(t, []string{"3500", "2420", "1410"}, ws.CourseNumbers())
			assert.Equal(t, map[string]string{"1410": "Intro to OOP"}, ws.CourseTitles())
			assert.Equal(t, []string{"chess-go", "robotics"}, ws.ClubSlugs())
		})
	}
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{name: "bad course", data: "courses:\n  catalog: [35]\n"},
		{name: "leading zero", data: "courses:\n  catalog: ['0350']\n"},
		{name: "duplicate course", data: "courses:\n  catalog: [3500, cs-3500]\n"},
		{name: "empty club", data: "clubs: ['!!!']\n"},
		{name: "duplicate club", data: "clubs: [Chess, chess]\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data), "yaml")
			assert.ErrorIs(t, err, ErrInvalid)
		})
	}
}

func TestParse_Malformed(t *testing.T) {
	_, err := Parse([]byte("courses: [unclosed"), "yaml")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalid)

	_, err = Parse([]byte("guild_id: 1"), "json")
	assert.Error(t, err)
}

func TestLoad_FormatFromExtension(t *testing.T) {
	dir := t.TempDir()

	yamlPath := filepath.Join(dir, "workspace.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte(workspaceYAML), 0o600))
	tomlPath := filepath.Join(dir, "workspace.toml")
	require.NoError(t, os.WriteFile(tomlPath, []byte(workspaceTOML), 0o600))

	fromYAML, err := Load(yamlPath)
	require.NoError(t, err)
	fromTOML, err := Load(tomlPath)
	require.NoError(t, err)
	assert.Equal(t, fromYAML, fromTOML)

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadSettings(t *testing.T) {
	t.Setenv("GUILDSYNC_GATEWAY", "memory")
	t.Setenv("GUILDSYNC_INTERVAL", "30s")
	t.Setenv("GUILDSYNC_HTTP_ADDR", ":8080")

	s, err := LoadSettings(NewViper())
	require.NoError(t, err)

	assert.Equal(t, GatewayMemory, s.Gateway)
	assert.Equal(t, 30*time.Second, s.Interval)
	assert.Equal(t, 5*time.Second, s.StartupDelay)
	assert.Equal(t, 4, s.MaxInFlight)
	assert.Equal(t, ":8080", s.HTTPAddr)
	assert.Equal(t, "info", s.LogLevel)
}

func TestSettingsValidate(t *testing.T) {
	valid := func() *Settings {
		return &Settings{
			Gateway:        GatewayDiscord,
			DiscordToken:   "token",
			Interval:       time.Second,
			MaxInFlight:    1,
			RequestTimeout: time.Second,
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Settings)
		wantErr bool
	}{
		{name: "valid", mutate: func(*Settings) {}},
		{name: "memory without token", mutate: func(s *Settings) { s.Gateway, s.DiscordToken = GatewayMemory, "" }},
		{name: "discord without token", mutate: func(s *Settings) { s.DiscordToken = "" }, wantErr: true},
		{name: "unknown gateway", mutate: func(s *Settings) { s.Gateway = "slack" }, wantErr: true},
		{name: "zero interval", mutate: func(s *Settings) { s.Interval = 0 }, wantErr: true},
		{name: "negative delay", mutate: func(s *Settings) { s.StartupDelay = -time.Second }, wantErr: true},
		{name: "zero in flight", mutate: func(s *Settings) { s.MaxInFlight = 0 }, wantErr: true},
		{name: "zero timeout", mutate: func(s *Settings) { s.RequestTimeout = 0 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := valid()
			tt.mutate(s)
			err := s.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalid)
				return
			}
			assert.NoError(t, err)
		})
	}
}
