package credentials

// Credentials represents the stored bearer tokens in credentials.toml.
type Credentials struct {
	Version int                       `toml:"version"`
	Hosts   map[string]HostCredential `toml:"hosts"`
}

// HostCredential holds the bearer token for a single livewire server.
type HostCredential struct {
	Token string `toml:"token"`
}
