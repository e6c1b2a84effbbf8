package replay

import "time"

// Config is the replay server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g. ":8090").
	ListenAddr string

	// Transcript is the raw event stream served to every client.
	Transcript []byte

	// ChunkSize is the number of bytes written per transport chunk.
	// Zero serves the transcript in one write.
	ChunkSize uint

	// Delay is the pause between chunks.
	Delay time.Duration

	// Hold keeps each connection open after the transcript ends until the
	// client goes away or the server closes.
	Hold bool

	// KeepAlive is the interval between comment lines written while holding.
	// Defaults to one second.
	KeepAlive time.Duration
}
