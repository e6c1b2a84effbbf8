package config

import (
	"fmt"
	"strconv"
	"time"
)

// Config represents the persistent livewire configuration stored as
// config.toml in the .livewire/ directory. The TOML layout uses sections for
// logical grouping.
type Config struct {
	Version int          `toml:"version"`
	Client  ClientConfig `toml:"client"`
	Replay  ReplayConfig `toml:"replay"`
	Log     LogConfig    `toml:"log"`
}

// ClientConfig holds settings for commands that open streams against a
// livewire server (livewire chat, livewire probe). Server is a full URL
// (scheme + host + port); paths are joined onto it.
type ClientConfig struct {
	Server            string `toml:"server,omitempty"`
	ChatPath          string `toml:"chat_path,omitempty"`
	NotificationsPath string `toml:"notifications_path,omitempty"`

	// Timeouts are Go duration strings, e.g. "15s" or "2m".
	ChatTimeout  string `toml:"chat_timeout,omitempty"`
	ProbeTimeout string `toml:"probe_timeout,omitempty"`

	RequireTerminal bool `toml:"require_terminal,omitempty"`
}

// ReplayConfig holds settings for the transcript replay server.
type ReplayConfig struct {
	Listen    string `toml:"listen,omitempty"`
	ChunkSize uint   `toml:"chunk_size,omitempty"`
	Delay     string `toml:"delay,omitempty"`
	Hold      bool   `toml:"hold,omitempty"`
}

// LogConfig holds logger output settings.
type LogConfig struct {
	Pretty bool `toml:"pretty,omitempty"`
	JSON   bool `toml:"json,omitempty"`
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

func validateDuration(key, v string) error {
	if _, err := time.ParseDuration(v); err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	return nil
}

func parseBool(key, v string) (bool, error) {
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid value for %s: %w", key, err)
	}
	return b, nil
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"client.server": {
		get: func(c *Config) string { return c.Client.Server },
		set: func(c *Config, v string) error { c.Client.Server = v; return nil },
	},
	"client.chat_path": {
		get: func(c *Config) string { return c.Client.ChatPath },
		set: func(c *Config, v string) error { c.Client.ChatPath = v; return nil },
	},
	"client.notifications_path": {
		get: func(c *Config) string { return c.Client.NotificationsPath },
		set: func(c *Config, v string) error { c.Client.NotificationsPath = v; return nil },
	},
	"client.chat_timeout": {
		get: func(c *Config) string { return c.Client.ChatTimeout },
		set: func(c *Config, v string) error {
			if err := validateDuration("client.chat_timeout", v); err != nil {
				return err
			}
			c.Client.ChatTimeout = v
			return nil
		},
	},
	"client.probe_timeout": {
		get: func(c *Config) string { return c.Client.ProbeTimeout },
		set: func(c *Config, v string) error {
			if err := validateDuration("client.probe_timeout", v); err != nil {
				return err
			}
			c.Client.ProbeTimeout = v
			return nil
		},
	},
	"client.require_terminal": {
		get: func(c *Config) string { return strconv.FormatBool(c.Client.RequireTerminal) },
		set: func(c *Config, v string) error {
			b, err := parseBool("client.require_terminal", v)
			if err != nil {
				return err
			}
			c.Client.RequireTerminal = b
			return nil
		},
	},
	"replay.listen": {
		get: func(c *Config) string { return c.Replay.Listen },
		set: func(c *Config, v string) error { c.Replay.Listen = v; return nil },
	},
	"replay.chunk_size": {
		get: func(c *Config) string {
			if c.Replay.ChunkSize == 0 {
				return ""
			}
			return strconv.FormatUint(uint64(c.Replay.ChunkSize), 10)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid value for replay.chunk_size: %w", err)
			}
			c.Replay.ChunkSize = uint(n)
			return nil
		},
	},
	"replay.delay": {
		get: func(c *Config) string { return c.Replay.Delay },
		set: func(c *Config, v string) error {
			if err := validateDuration("replay.delay", v); err != nil {
				return err
			}
			c.Replay.Delay = v
			return nil
		},
	},
	"replay.hold": {
		get: func(c *Config) string { return strconv.FormatBool(c.Replay.Hold) },
		set: func(c *Config, v string) error {
			b, err := parseBool("replay.hold", v)
			if err != nil {
				return err
			}
			c.Replay.Hold = b
			return nil
		},
	},
	"log.pretty": {
		get: func(c *Config) string { return strconv.FormatBool(c.Log.Pretty) },
		set: func(c *Config, v string) error {
			b, err := parseBool("log.pretty", v)
			if err != nil {
				return err
			}
			c.Log.Pretty = b
			return nil
		},
	},
	"log.json": {
		get: func(c *Config) string { return strconv.FormatBool(c.Log.JSON) },
		set: func(c *Config, v string) error {
			b, err := parseBool("log.json", v)
			if err != nil {
				return err
			}
			c.Log.JSON = b
			return nil
		},
	},
}
