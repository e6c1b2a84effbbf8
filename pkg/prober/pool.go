// Package prober runs notification stream probes concurrently on a bounded
// worker pool. Each job opens a Probe session with a stream.Client and
// reports whether the endpoint produced an event within its window.
package prober

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"

	"github.com/papercomputeco/livewire/pkg/logger"
	"github.com/papercomputeco/livewire/pkg/stream"
)

var (
	defaultNumWorkers   uint = 3
	defaultJobQueueSize uint = 256
)

// ErrNoClient is returned by NewPool when Config.Client is nil.
var ErrNoClient = errors.New("prober: nil stream client")

// Job is a single endpoint to probe.
type Job struct {
	// Name identifies the job in outcomes and logs.
	Name string

	Request stream.Request
}

// Outcome is the result of one Job.
type Outcome struct {
	Job    Job
	Result stream.ProbeResult
	Err    error
}

// Config is the configuration options for the probe pool.
type Config struct {
	// Client opens the probe sessions.
	Client *stream.Client

	// NumWorkers is the number of concurrent probes (defaults to 3).
	NumWorkers uint

	// QueueSize is the capacity of the buffered job and outcome channels
	// (defaults to 256).
	QueueSize uint

	Logger *slog.Logger
}

// Pool processes probe jobs on a fixed set of workers.
type Pool struct {
	ctx     context.Context
	config  *Config
	queue   chan Job
	results chan Outcome
	wg      sync.WaitGroup
	logger  *slog.Logger

	closeOnce sync.Once
}

// NewPool creates a Pool and starts its workers. Probes run under ctx;
// cancelling it aborts in-flight sessions.
func NewPool(ctx context.Context, c *Config) (*Pool, error) {
	if c.Client == nil {
		return nil, ErrNoClient
	}

	if c.NumWorkers == 0 {
		c.NumWorkers = defaultNumWorkers
	}

	if c.QueueSize == 0 {
		c.QueueSize = defaultJobQueueSize
	}

	if c.NumWorkers > uint(math.MaxInt) {
		return nil, fmt.Errorf("NumWorkers %d exceeds max int", c.NumWorkers)
	}

	if c.Logger == nil {
		c.Logger = logger.Nop()
	}

	p := &Pool{
		ctx:     ctx,
		config:  c,
		queue:   make(chan Job, c.QueueSize),
		results: make(chan Outcome, c.QueueSize),
		logger:  c.Logger,
	}

	p.wg.Add(int(c.NumWorkers))
	for i := range c.NumWorkers {
		go p.worker(i)
	}

	return p, nil
}

// Enqueue submits a job. Returns false if the queue is full and the job was
// dropped.
func (p *Pool) Enqueue(job Job) bool {
	select {
	case p.queue <- job:
		p.logger.Debug("probe queued", "name", job.Name, "url", job.Request.URL)
		return true
	default:
		p.logger.Error("probe not queued, queue full, job dropped", "name", job.Name)
		return false
	}
}

// Results returns the outcome channel. It is closed by Close once every
// worker has stopped. Consumers must drain it while jobs are running when
// more than QueueSize jobs are submitted.
func (p *Pool) Results() <-chan Outcome {
	return p.results
}

// Close stops accepting jobs, waits for in-flight probes to finish and then
// closes the Results channel. It is safe to call more than once.
func (p *Pool) Close() {
	p.closeOnce.Do(func() {
		close(p.queue)
		p.wg.Wait()
		close(p.results)
	})
}

func (p *Pool) worker(id uint) {
	defer p.wg.Done()
	p.logger.Debug("probe worker started", "worker_id", id)

	for job := range p.queue {
		p.results <- p.processJob(job)
	}

	p.logger.Debug("probe worker stopped", "worker_id", id)
}

func (p *Pool) processJob(job Job) Outcome {
	res, err := p.config.Client.Probe(p.ctx, job.Request)
	if err != nil {
		p.logger.Warn("probe failed",
			"name", job.Name,
			"url", job.Request.URL,
			"error", err,
		)
		return Outcome{Job: job, Result: res, Err: err}
	}

	p.logger.Info("probe finished",
		"name", job.Name,
		"observed", res.Observed,
		"duration", res.Elapsed,
	)

	return Outcome{Job: job, Result: res}
}

// ProbeAll probes every job on a pool of numWorkers and returns the outcomes
// in job order.
func ProbeAll(ctx context.Context, client *stream.Client, numWorkers uint, log *slog.Logger, jobs []Job) ([]Outcome, error) {
	if numWorkers == 0 {
		numWorkers = defaultNumWorkers
	}

	queueSize := uint(len(jobs))
	if queueSize == 0 {
		return nil, nil
	}

	p, err := NewPool(ctx, &Config{
		Client:     client,
		NumWorkers: numWorkers,
		QueueSize:  queueSize,
		Logger:     log,
	})
	if err != nil {
		return nil, err
	}

	jobs = append([]Job(nil), jobs...)
	index := make(map[string]int, len(jobs))
	for i, job := range jobs {
		if job.Name == "" {
			job.Name = fmt.Sprintf("probe-%d", i)
			jobs[i] = job
		}
		if _, dup := index[job.Name]; dup {
			p.Close()
			return nil, fmt.Errorf("duplicate probe name %q", job.Name)
		}
		index[job.Name] = i
	}

	for _, job := range jobs {
		p.Enqueue(job)
	}
	p.Close()

	outcomes := make([]Outcome, len(jobs))
	for o := range p.Results() {
		outcomes[index[o.Job.Name]] = o
	}

	return outcomes, nil
}
