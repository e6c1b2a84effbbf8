// Package replay serves a recorded event stream transcript over HTTP, split
// into fixed-size chunks with a delay between them. It exercises stream
// clients against a live transport with arbitrary chunk boundaries, slow
// producers and connections that never close.
package replay

import (
	"errors"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	livelog "github.com/papercomputeco/livewire/pkg/logger"
)

const (
	defaultKeepAlive = time.Second

	// keepAliveLine is a comment frame; stream decoders ignore it.
	keepAliveLine = ": keep-alive\n"
)

// ErrEmptyTranscript is returned by New when there is nothing to replay.
var ErrEmptyTranscript = errors.New("replay: empty transcript")

// Server replays a transcript to every client that connects.
type Server struct {
	config Config
	logger *slog.Logger
	server *fiber.App

	connections prometheus.Counter
	bytes       prometheus.Counter

	done      chan struct{}
	closeOnce sync.Once
}

// New creates a replay Server.
func New(config Config, logger *slog.Logger) (*Server, error) {
	if len(config.Transcript) == 0 {
		return nil, ErrEmptyTranscript
	}

	if config.KeepAlive <= 0 {
		config.KeepAlive = defaultKeepAlive
	}

	if logger == nil {
		logger = livelog.Nop()
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	reg := prometheus.NewRegistry()

	s := &Server{
		config: config,
		logger: logger,
		server: app,
		connections: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "livewire_replay_connections_total",
			Help: "Replay streams started",
		}),
		bytes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "livewire_replay_bytes_total",
			Help: "Transcript bytes written to clients",
		}),
		done: make(chan struct{}),
	}

	reg.MustRegister(s.connections, s.bytes)

	app.Get("/ping", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
	app.All("/*", s.handleReplay)

	return s, nil
}

// Run starts the replay server on the configured listen address.
func (s *Server) Run() error {
	s.logger.Info("starting replay server",
		"listen", s.config.ListenAddr,
		"bytes", len(s.config.Transcript),
		"chunk_size", s.config.ChunkSize,
		"delay", s.config.Delay,
		"hold", s.config.Hold,
	)

	return s.server.Listen(s.config.ListenAddr)
}

// RunWithListener starts the replay server using the provided listener.
func (s *Server) RunWithListener(listener net.Listener) error {
	s.logger.Info("starting replay server",
		"listen", listener.Addr().String(),
		"bytes", len(s.config.Transcript),
	)

	return s.server.Listener(listener)
}

// Close ends held streams and shuts the server down.
func (s *Server) Close() error {
	s.closeOnce.Do(func() {
		close(s.done)
	})
	return s.server.Shutdown()
}

// App returns the underlying fiber app, for in-process testing.
func (s *Server) App() *fiber.App {
	return s.server
}

// Chunks splits transcript into pieces of at most size bytes. A zero size
// returns the transcript as a single chunk.
func Chunks(transcript []byte, size uint) [][]byte {
	if len(transcript) == 0 {
		return nil
	}
	if size == 0 || size >= uint(len(transcript)) {
		return [][]byte{transcript}
	}

	n := int(size)
	chunks := make([][]byte, 0, (len(transcript)+n-1)/n)
	for start := 0; start < len(transcript); start += n {
		end := min(start+n, len(transcript))
		chunks = append(chunks, transcript[start:end])
	}
	return chunks
}

func (s *Server) handleReplay(c *fiber.Ctx) error {
	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")

	s.connections.Inc()
	s.logger.Debug("replay stream started",
		"method", c.Method(),
		"path", c.Path(),
		"remote", c.IP(),
	)

	// io.Pipe makes every write block until fasthttp's chunked body writer
	// consumes it, so each chunk reaches the socket on its own.
	pr, pw := io.Pipe()
	go s.writeTranscript(pw)

	c.Context().Response.SetBodyStream(pr, -1)

	return nil
}

func (s *Server) writeTranscript(pw *io.PipeWriter) {
	defer pw.Close()

	start := time.Now()
	written := 0

	for i, chunk := range Chunks(s.config.Transcript, s.config.ChunkSize) {
		if i > 0 && s.config.Delay > 0 {
			if !s.sleep(s.config.Delay) {
				return
			}
		}

		n, err := pw.Write(chunk)
		written += n
		s.bytes.Add(float64(n))
		if err != nil {
			s.logger.Debug("replay client went away",
				"bytes", written,
				"error", err,
			)
			return
		}
	}

	s.logger.Debug("replay transcript sent",
		"bytes", written,
		"duration", time.Since(start),
	)

	if s.config.Hold {
		s.hold(pw)
	}
}

// hold keeps the stream open, writing comment lines so a departed client is
// noticed.
func (s *Server) hold(pw *io.PipeWriter) {
	ticker := time.NewTicker(s.config.KeepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			if _, err := pw.Write([]byte(keepAliveLine)); err != nil {
				return
			}
		}
	}
}

func (s *Server) sleep(d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-s.done:
		return false
	case <-t.C:
		return true
	}
}
