package stream

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/papercomputeco/livewire/pkg/sse"
)

// maxErrorBody caps how much of a non-2xx response body is read for the
// error message.
const maxErrorBody = 64 * 1024

// Mode selects how a session resolves.
type Mode int

const (
	// ModeSequence collects every content fragment until the stream ends.
	ModeSequence Mode = iota

	// ModeProbe resolves on the first decodable event and aborts the
	// transport right after.
	ModeProbe
)

func (m Mode) String() string {
	switch m {
	case ModeSequence:
		return "sequence"
	case ModeProbe:
		return "probe"
	default:
		return "unknown"
	}
}

// Status is the lifecycle state of a session.
type Status int

const (
	StatusConnecting Status = iota
	StatusOpen
	StatusCompleted
	StatusFailed
	StatusTimedOut
	StatusAborted
)

func (s Status) String() string {
	switch s {
	case StatusConnecting:
		return "connecting"
	case StatusOpen:
		return "open"
	case StatusCompleted:
		return "completed"
	case StatusFailed:
		return "failed"
	case StatusTimedOut:
		return "timed_out"
	case StatusAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// Terminal reports whether s is a resolved state.
func (s Status) Terminal() bool {
	return s >= StatusCompleted
}

// Result is the resolved outcome of a session.
type Result struct {
	Status Status

	// Fragments holds the content fragments collected in arrival order,
	// including any partial content received before a failure.
	Fragments []string

	// First is the event that resolved a Probe session, if any.
	First *sse.Event

	Elapsed time.Duration
}

// Session drives one streamed request from connect to resolution. It is
// created by Client.Open and owns its transport exclusively.
type Session struct {
	id      string
	mode    Mode
	req     Request
	http    *http.Client
	logger  *slog.Logger
	metrics *Metrics

	abort     context.CancelCauseFunc
	abortOnce sync.Once
	done      chan struct{}

	mu        sync.Mutex
	status    Status
	startTime time.Time
	elapsed   time.Duration
	collected Aggregator
	first     *sse.Event
	err       error
}

// ID returns the session's unique identifier.
func (s *Session) ID() string {
	return s.id
}

// Mode returns the session's operating mode.
func (s *Session) Mode() Mode {
	return s.mode
}

// Status returns the current lifecycle state.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Elapsed returns the time since the session started, frozen at resolution.
func (s *Session) Elapsed() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status.Terminal() {
		return s.elapsed
	}
	return time.Since(s.startTime)
}

// Done is closed once the session resolves.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Cancel aborts the session. It is a no-op once the session has resolved.
func (s *Session) Cancel() {
	s.abortTransport(ErrAborted)
}

// Wait blocks until the session resolves and returns its outcome.
func (s *Session) Wait() (Result, error) {
	<-s.done

	s.mu.Lock()
	defer s.mu.Unlock()

	return Result{
		Status:    s.status,
		Fragments: s.collected.Finalize(),
		First:     s.first,
		Elapsed:   s.elapsed,
	}, s.err
}

// abortTransport invokes the transport's abort primitive exactly once.
func (s *Session) abortTransport(cause error) {
	s.abortOnce.Do(func() {
		s.abort(cause)
	})
}

// resolve moves the session into a terminal state. Only the first call has
// any effect; later calls, such as a transport error racing a timeout, are
// no-ops.
func (s *Session) resolve(status Status, err error) bool {
	s.mu.Lock()
	if s.status.Terminal() {
		s.mu.Unlock()
		return false
	}

	if status == StatusCompleted && s.mode == ModeSequence && s.collected.Len() == 0 {
		status, err = StatusFailed, ErrNoFrames
	}

	s.status = status
	s.err = err
	s.elapsed = time.Since(s.startTime)
	fragments := s.collected.Len()
	elapsed := s.elapsed
	s.mu.Unlock()

	s.metrics.observeSession(s.mode, status, elapsed)

	if err != nil {
		s.logger.Debug("stream session resolved with error",
			"status", status.String(),
			"fragments", fragments,
			"duration", elapsed,
			"error", err,
		)
	} else {
		s.logger.Debug("stream session resolved",
			"status", status.String(),
			"fragments", fragments,
			"duration", elapsed,
		)
	}

	close(s.done)
	s.abortTransport(errResolved)

	return true
}

// resolveContext resolves the session from its context's cancellation cause.
func (s *Session) resolveContext(ctx context.Context) {
	cause := context.Cause(ctx)
	switch {
	case errors.Is(cause, errResolved):
		return
	case errors.Is(cause, ErrTimeout), errors.Is(cause, context.DeadlineExceeded):
		s.resolve(StatusTimedOut, ErrTimeout)
	default:
		s.resolve(StatusAborted, ErrAborted)
	}
}

// open moves a connecting session to Open.
func (s *Session) open() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != StatusConnecting {
		return false
	}
	s.status = StatusOpen
	return true
}

// run performs the request and feeds the response body through the frame
// buffer and decoder until the session resolves.
func (s *Session) run(ctx context.Context) {
	httpReq, err := s.req.newHTTPRequest(ctx)
	if err != nil {
		s.resolve(StatusFailed, &TransportError{Op: "creating request", Err: err})
		return
	}

	s.logger.Debug("opening stream",
		"method", httpReq.Method,
		"url", s.req.URL,
	)

	resp, err := s.http.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			s.resolveContext(ctx)
			return
		}
		s.resolve(StatusFailed, &TransportError{Op: "sending request", Err: err})
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		s.resolve(StatusFailed, newStatusError(resp.StatusCode, body))
		return
	}

	if !s.open() {
		return
	}

	reader := sse.NewReader(resp.Body, s.req.Record)
	for {
		lines, err := reader.Next()
		if s.consume(lines) {
			return
		}

		if errors.Is(err, io.EOF) {
			s.finish()
			return
		}

		if err != nil {
			if ctx.Err() != nil {
				s.resolveContext(ctx)
				return
			}
			s.resolve(StatusFailed, &TransportError{Op: "reading stream", Err: err})
			return
		}
	}
}

// consume decodes lines in order and routes each event. It returns true once
// the session has resolved, after which no further lines are processed.
func (s *Session) consume(lines []string) bool {
	for _, line := range lines {
		ev, ok := sse.Decode(line)
		if !ok {
			continue
		}

		s.metrics.observeFrame(ev.Kind)

		switch ev.Kind {
		case sse.KindTerminal:
			s.resolve(StatusCompleted, nil)
			return true

		case sse.KindMalformed:
			s.logger.Debug("skipping malformed frame", "line", ev.Line)
			if s.mode == ModeProbe && ev.Decodable() {
				s.resolveProbe(ev)
				return true
			}

		case sse.KindContent:
			if !s.append(ev.Content) {
				return true
			}
			if s.mode == ModeProbe {
				s.resolveProbe(ev)
				return true
			}
			if s.req.OnContent != nil {
				s.req.OnContent(ev.Content)
			}
		}
	}

	return s.Status().Terminal()
}

// append records a content fragment unless the session already resolved.
func (s *Session) append(content string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status.Terminal() {
		return false
	}
	s.collected.Append(content)
	return true
}

func (s *Session) resolveProbe(ev sse.Event) {
	s.mu.Lock()
	if !s.status.Terminal() {
		s.first = &ev
	}
	s.mu.Unlock()

	s.resolve(StatusCompleted, nil)
}

// finish handles a graceful end of response without the terminal frame.
func (s *Session) finish() {
	s.mu.Lock()
	collected := s.collected.Len()
	s.mu.Unlock()

	if s.mode == ModeSequence && s.req.RequireTerminal && collected > 0 {
		s.resolve(StatusFailed, ErrTruncated)
		return
	}

	s.resolve(StatusCompleted, nil)
}
