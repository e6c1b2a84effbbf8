package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/papercomputeco/livewire/pkg/dotdir"
)

// InitViper creates and returns a configured *viper.Viper.
// It sets defaults from NewDefaultConfig(), reads the config.toml file
// (if found via dotdir resolution), and binds environment variables
// with the LIVEWIRE_ prefix.
//
// Config precedence (highest to lowest):
//  1. CLI flags (once bound via BindRegisteredFlags)
//  2. Environment variables (LIVEWIRE_CLIENT_SERVER, LIVEWIRE_CLIENT_TOKEN, etc.)
//  3. config.toml file values
//  4. Defaults from NewDefaultConfig()
func InitViper(configDir string) (*viper.Viper, error) {
	v := viper.New()

	setViperDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("toml")

	ddm := dotdir.NewManager()
	target, err := ddm.Target(configDir)
	if err != nil {
		return nil, fmt.Errorf("resolving config dir: %w", err)
	}

	if target != "" {
		v.AddConfigPath(target)
	}

	if err := v.ReadInConfig(); err != nil {
		// Config file not found errors are fine, defaults will apply.
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	v.SetEnvPrefix("LIVEWIRE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v, nil
}

// setViperDefaults registers defaults from NewDefaultConfig() into viper
// using dotted-key notation. This keeps defaults.go as the single source of truth.
func setViperDefaults(v *viper.Viper) {
	d := NewDefaultConfig()

	v.SetDefault("version", d.Version)

	// Client
	v.SetDefault("client.server", d.Client.Server)
	v.SetDefault("client.chat_path", d.Client.ChatPath)
	v.SetDefault("client.notifications_path", d.Client.NotificationsPath)
	v.SetDefault("client.chat_timeout", d.Client.ChatTimeout)
	v.SetDefault("client.probe_timeout", d.Client.ProbeTimeout)
	v.SetDefault("client.require_terminal", d.Client.RequireTerminal)

	// The token is never written to config.toml; it comes from a flag,
	// LIVEWIRE_CLIENT_TOKEN, or credentials.toml.
	v.SetDefault("client.token", "")

	// Replay
	v.SetDefault("replay.listen", d.Replay.Listen)
	v.SetDefault("replay.chunk_size", d.Replay.ChunkSize)
	v.SetDefault("replay.delay", d.Replay.Delay)
	v.SetDefault("replay.hold", d.Replay.Hold)

	// Log
	v.SetDefault("log.pretty", d.Log.Pretty)
	v.SetDefault("log.json", d.Log.JSON)
}
