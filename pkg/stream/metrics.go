package stream

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/papercomputeco/livewire/pkg/sse"
)

// Metrics holds the prometheus collectors updated by sessions. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	sessions *prometheus.CounterVec
	frames   *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetrics creates the stream collectors and registers them with reg.
// A nil reg leaves the collectors unregistered.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		sessions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "livewire_stream_sessions_total",
				Help: "Stream sessions by mode and terminal status",
			},
			[]string{"mode", "status"},
		),
		frames: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "livewire_stream_frames_total",
				Help: "Decoded data frames by kind",
			},
			[]string{"kind"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "livewire_stream_session_duration_seconds",
				Help:    "Time from connect to resolution",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"mode"},
		),
	}

	if reg == nil {
		return m, nil
	}

	for _, c := range []prometheus.Collector{m.sessions, m.frames, m.duration} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("registering stream metrics: %w", err)
		}
	}

	return m, nil
}

func (m *Metrics) observeSession(mode Mode, status Status, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.sessions.WithLabelValues(mode.String(), status.String()).Inc()
	m.duration.WithLabelValues(mode.String()).Observe(elapsed.Seconds())
}

func (m *Metrics) observeFrame(kind sse.Kind) {
	if m == nil {
		return
	}
	m.frames.WithLabelValues(kind.String()).Inc()
}
