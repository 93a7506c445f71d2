package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of every environment override, e.g. GUILDSYNC_INTERVAL
const EnvPrefix = "GUILDSYNC"

// Gateway kinds
const (
	GatewayDiscord = "discord"
	GatewayMemory  = "memory"
)

// Settings are the runtime knobs of the daemon
type Settings struct {
	Workspace      string
	Gateway        string
	DiscordToken   string
	Interval       time.Duration
	StartupDelay   time.Duration
	MaxInFlight    int
	RequestTimeout time.Duration
	HTTPAddr       string
	DataDir        string
	LogLevel       string
	LogJSON        bool
}

// NewViper returns a viper instance with defaults and environment binding
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("workspace", "workspace.yaml")
	v.SetDefault("gateway", GatewayDiscord)
	v.SetDefault("discord.token", "")
	v.SetDefault("interval", 10*time.Second)
	v.SetDefault("startup_delay", 5*time.Second)
	v.SetDefault("max_in_flight", 4)
	v.SetDefault("request_timeout", 10*time.Second)
	v.SetDefault("http.addr", "127.0.0.1:9090")
	v.SetDefault("data_dir", "./guildsync-data")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.json", false)
	return v
}

// LoadSettings reads the settings from v and validates them
func LoadSettings(v *viper.Viper) (*Settings, error) {
	s := &Settings{
		Workspace:      v.GetString("workspace"),
		Gateway:        strings.ToLower(v.GetString("gateway")),
		DiscordToken:   v.GetString("discord.token"),
		Interval:       v.GetDuration("interval"),
		StartupDelay:   v.GetDuration("startup_delay"),
		MaxInFlight:    v.GetInt("max_in_flight"),
		RequestTimeout: v.GetDuration("request_timeout"),
		HTTPAddr:       v.GetString("http.addr"),
		DataDir:        v.GetString("data_dir"),
		LogLevel:       v.GetString("log.level"),
		LogJSON:        v.GetBool("log.json"),
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate checks the settings for values the daemon cannot run with
func (s *Settings) Validate() error {
	switch s.Gateway {
	case GatewayDiscord:
		if s.DiscordToken == "" {
			return fmt.Errorf("%w: discord gateway requires a token (GUILDSYNC_DISCORD_TOKEN)", ErrInvalid)
		}
	case GatewayMemory:
	default:
		return fmt.Errorf("%w: unknown gateway %q", ErrInvalid, s.Gateway)
	}
	if s.Interval <= 0 {
		return fmt.Errorf("%w: interval must be positive", ErrInvalid)
	}
	if s.StartupDelay < 0 {
		return fmt.Errorf("%w: startup_delay must not be negative", ErrInvalid)
	}
	if s.MaxInFlight <= 0 {
		return fmt.Errorf("%w: max_in_flight must be positive", ErrInvalid)
	}
	if s.RequestTimeout <= 0 {
		return fmt.Errorf("%w: request_timeout must be positive", ErrInvalid)
	}
	return nil
}
