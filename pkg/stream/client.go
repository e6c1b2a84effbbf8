// Package stream provides the connection state machine for livewire event
// streams. A Session issues one long-lived HTTP request, feeds the response
// body through the sse frame buffer and decoder, and resolves exactly once as
// Completed, Failed, TimedOut or Aborted.
//
// Two modes share the machine: Sequence mode collects every content
// fragment (streaming chat), Probe mode resolves on the first event and
// aborts the transport (live notification checks).
package stream

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/papercomputeco/livewire/pkg/logger"
	"github.com/papercomputeco/livewire/pkg/sse"
)

// Client opens stream sessions. It is safe for concurrent use; sessions
// share nothing but the underlying *http.Client.
type Client struct {
	http    *http.Client
	logger  *slog.Logger
	metrics *Metrics
}

// Option configures a Client created with NewClient.
type Option func(*Client)

// WithHTTPClient overrides the transport. Its Timeout should be zero:
// sessions bound their lifetime with Request.Timeout instead.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithLogger sets the logger. Defaults to logger.Nop().
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// NewClient creates a Client.
func NewClient(opts ...Option) *Client {
	c := &Client{
		http:   &http.Client{},
		logger: logger.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Open starts a session for req in the given mode and returns immediately.
// The session runs until it resolves, ctx is cancelled, or Session.Cancel
// is called.
func (c *Client) Open(ctx context.Context, req Request, mode Mode) *Session {
	id := uuid.NewString()

	s := &Session{
		id:      id,
		mode:    mode,
		req:     req,
		http:    c.http,
		metrics: c.metrics,
		logger: c.logger.With(
			"session_id", id,
			"mode", mode.String(),
		),
		done:      make(chan struct{}),
		status:    StatusConnecting,
		startTime: time.Now(),
	}

	runCtx, abort := context.WithCancelCause(ctx)
	s.abort = abort

	stopTimer := func() {}
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeoutCause(runCtx, req.Timeout, ErrTimeout)
		stopTimer = cancel
	}

	// Resolve as soon as the deadline passes or the caller cancels, without
	// waiting for the transport to notice.
	stopWatch := context.AfterFunc(runCtx, func() {
		s.resolveContext(runCtx)
	})

	go func() {
		defer stopTimer()
		defer stopWatch()
		s.run(runCtx)
	}()

	return s
}

// Collect runs a Sequence session and returns the content fragments in
// arrival order.
func (c *Client) Collect(ctx context.Context, req Request) ([]string, error) {
	res, err := c.Open(ctx, req, ModeSequence).Wait()
	if err != nil {
		return nil, err
	}
	return res.Fragments, nil
}

// ProbeResult is the outcome of a Probe session.
type ProbeResult struct {
	// Observed is true when an event arrived during the probe window.
	Observed bool

	// Event is the first decodable event, if Observed.
	Event *sse.Event

	Elapsed time.Duration
}

// Probe runs a Probe session. A stream that ends gracefully without any
// event is still a success, with Observed set to false.
func (c *Client) Probe(ctx context.Context, req Request) (ProbeResult, error) {
	res, err := c.Open(ctx, req, ModeProbe).Wait()
	if err != nil {
		return ProbeResult{Elapsed: res.Elapsed}, err
	}
	return ProbeResult{
		Observed: res.First != nil,
		Event:    res.First,
		Elapsed:  res.Elapsed,
	}, nil
}
