package config

import (
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flag is the single source of truth for a CLI flag.
// Commands reference flags by registry key rather than hard-coding names,
// shorthands, defaults, and descriptions inline, so the same logical flag
// (e.g. --server on both "livewire chat" and "livewire probe") cannot drift.
type Flag struct {
	// Name is the long flag name (e.g. "server").
	Name string

	// Shorthand is the one-letter short flag (e.g. "s"). Empty for no shorthand.
	Shorthand string

	// ViperKey is the dotted config key this flag maps to (e.g. "client.server").
	ViperKey string

	// Description is the help text shown in --help output.
	Description string
}

// FlagSet is a mapping of flag names to Flag structs that hold their name,
// shorthand, viper key, etc.
type FlagSet map[string]Flag

// Flag registry keys.
const (
	FlagServer            = "server"
	FlagToken             = "token"
	FlagChatPath          = "chat-path"
	FlagNotificationsPath = "notifications-path"
	FlagChatTimeout       = "chat-timeout"
	FlagProbeTimeout      = "probe-timeout"
	FlagRequireTerminal   = "require-terminal"
	FlagReplayListen      = "listen"
	FlagReplayChunkSize   = "chunk-size"
	FlagReplayDelay       = "delay"
	FlagReplayHold        = "hold"
	FlagLogPretty         = "pretty"
	FlagLogJSON           = "json"
)

// Flags is the registry shared by every livewire command.
var Flags = FlagSet{
	FlagServer:            {Name: "server", Shorthand: "s", ViperKey: "client.server", Description: "livewire server URL"},
	FlagToken:             {Name: "token", ViperKey: "client.token", Description: "Bearer token (overrides stored credentials)"},
	FlagChatPath:          {Name: "chat-path", ViperKey: "client.chat_path", Description: "Path of the streaming chat endpoint"},
	FlagNotificationsPath: {Name: "notifications-path", ViperKey: "client.notifications_path", Description: "Path of the live notification stream"},
	FlagChatTimeout:       {Name: "timeout", Shorthand: "t", ViperKey: "client.chat_timeout", Description: "Deadline for a whole chat response"},
	FlagProbeTimeout:      {Name: "timeout", Shorthand: "t", ViperKey: "client.probe_timeout", Description: "Probe window per notification stream"},
	FlagRequireTerminal:   {Name: "require-terminal", ViperKey: "client.require_terminal", Description: "Fail chat streams that end without [DONE]"},
	FlagReplayListen:      {Name: "listen", Shorthand: "l", ViperKey: "replay.listen", Description: "Address for the replay server to listen on"},
	FlagReplayChunkSize:   {Name: "chunk-size", ViperKey: "replay.chunk_size", Description: "Bytes per replayed chunk"},
	FlagReplayDelay:       {Name: "delay", ViperKey: "replay.delay", Description: "Pause between replayed chunks"},
	FlagReplayHold:        {Name: "hold", ViperKey: "replay.hold", Description: "Keep connections open after the transcript ends"},
	FlagLogPretty:         {Name: "pretty", ViperKey: "log.pretty", Description: "Colorized log output"},
	FlagLogJSON:           {Name: "json", ViperKey: "log.json", Description: "JSON log output"},
}

// AddStringFlag registers a string flag on cmd from the given FlagSet.
// The flag's name, shorthand, default, and description all come from the
// FlagSet entry so they cannot drift across commands.
func AddStringFlag(cmd *cobra.Command, fs FlagSet, key string, target *string) {
	def, ok := fs[key]
	if !ok {
		return
	}

	defaultVal := defaults().GetString(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().StringVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().StringVar(target, def.Name, defaultVal, def.Description)
	}
}

// AddUintFlag registers a uint flag on cmd from the given FlagSet.
func AddUintFlag(cmd *cobra.Command, fs FlagSet, registryKey string, target *uint) {
	def, ok := fs[registryKey]
	if !ok {
		return
	}

	defaultVal := defaults().GetUint(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().UintVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().UintVar(target, def.Name, defaultVal, def.Description)
	}
}

// AddBoolFlag registers a bool flag on cmd from the given FlagSet.
func AddBoolFlag(cmd *cobra.Command, fs FlagSet, registryKey string, target *bool) {
	def, ok := fs[registryKey]
	if !ok {
		return
	}

	defaultVal := defaults().GetBool(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().BoolVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().BoolVar(target, def.Name, defaultVal, def.Description)
	}
}

// AddDurationFlag registers a duration flag on cmd from the given FlagSet.
func AddDurationFlag(cmd *cobra.Command, fs FlagSet, registryKey string, target *time.Duration) {
	def, ok := fs[registryKey]
	if !ok {
		return
	}

	defaultVal := defaults().GetDuration(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().DurationVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().DurationVar(target, def.Name, defaultVal, def.Description)
	}
}

// BindRegisteredFlags binds already-registered flags to viper using definitions
// from the given FlagSet. Call this in PreRunE after InitViper to connect flags
// to the viper precedence chain (flag > env > config file > default).
func BindRegisteredFlags(v *viper.Viper, cmd *cobra.Command, fs FlagSet, registryKeys []string) {
	for _, registryKey := range registryKeys {
		def, ok := fs[registryKey]
		if !ok {
			continue
		}

		f := cmd.Flags().Lookup(def.Name)
		if f == nil {
			continue
		}

		_ = v.BindPFlag(def.ViperKey, f)
	}
}

// defaults returns a viper instance holding only NewDefaultConfig values.
func defaults() *viper.Viper {
	v := viper.New()
	setViperDefaults(v)
	return v
}
