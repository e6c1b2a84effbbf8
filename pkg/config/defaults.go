package config

const (
	defaultServer            = "http://localhost:3000"
	defaultChatPath          = "/api/chat/stream"
	defaultNotificationsPath = "/api/notifications/stream"
	defaultChatTimeout       = "2m"
	defaultProbeTimeout      = "15s"

	defaultReplayListen    = ":8090"
	defaultReplayChunkSize = 16
	defaultReplayDelay     = "20ms"
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Client: ClientConfig{
			Server:            defaultServer,
			ChatPath:          defaultChatPath,
			NotificationsPath: defaultNotificationsPath,
			ChatTimeout:       defaultChatTimeout,
			ProbeTimeout:      defaultProbeTimeout,
		},
		Replay: ReplayConfig{
			Listen:    defaultReplayListen,
			ChunkSize: defaultReplayChunkSize,
			Delay:     defaultReplayDelay,
		},
	}
}
