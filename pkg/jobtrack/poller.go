package jobtrack

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog"
)

const (
	// DefaultPollInterval is the fixed cadence of status queries.
	DefaultPollInterval = 2 * time.Second
	// DefaultPollTimeout is the hard local ceiling. Hitting it evicts the
	// job without further queries; it makes no claim about server truth.
	DefaultPollTimeout = 5 * time.Minute
)

// EvictReason says why a poller gave up on a job.
type EvictReason string

const (
	EvictFailed   EvictReason = "failed"
	EvictNotFound EvictReason = "not_found"
	EvictTimeout  EvictReason = "timeout"
)

// Poller drives one job id to a local outcome. Each poller owns its timer
// and shares no state with its siblings; Stop is idempotent and safe from
// any goroutine.
type Poller struct {
	jobID    string
	source   StatusSource
	clock    clock.Clock
	interval time.Duration
	timeout  time.Duration
	logger   zerolog.Logger

	// alive lets the poller check that its registry entry still exists
	// before applying a late response.
	alive      func(jobID string) bool
	onComplete func(jobID string, result *Result)
	onEvict    func(jobID string, reason EvictReason)

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

type pollerConfig struct {
	source     StatusSource
	clock      clock.Clock
	interval   time.Duration
	timeout    time.Duration
	logger     zerolog.Logger
	alive      func(string) bool
	onComplete func(string, *Result)
	onEvict    func(string, EvictReason)
}

func newPoller(jobID string, cfg pollerConfig) *Poller {
	if cfg.interval <= 0 {
		cfg.interval = DefaultPollInterval
	}
	if cfg.timeout <= 0 {
		cfg.timeout = DefaultPollTimeout
	}
	if cfg.alive == nil {
		cfg.alive = func(string) bool { return true }
	}
	return &Poller{
		jobID:      jobID,
		source:     cfg.source,
		clock:      cfg.clock,
		interval:   cfg.interval,
		timeout:    cfg.timeout,
		logger:     cfg.logger,
		alive:      cfg.alive,
		onComplete: cfg.onComplete,
		onEvict:    cfg.onEvict,
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// Start launches the polling loop.
func (p *Poller) Start(ctx context.Context) {
	go p.run(ctx)
}

// Stop cancels the loop. Stopping an already finished poller is a no-op.
func (p *Poller) Stop() {
	p.stopOnce.Do(func() { close(p.stop) })
}

func (p *Poller) run(ctx context.Context) {
	defer close(p.done)

	deadline := p.clock.Now().Add(p.timeout)
	ticker := p.clock.Ticker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.stop:
			return
		case <-ticker.C:
		}

		// The ceiling is checked before querying so a job past it issues
		// no further status requests.
		if p.clock.Now().After(deadline) {
			p.evict(EvictTimeout)
			return
		}

		state, err := p.source.Status(ctx, p.jobID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				p.evict(EvictNotFound)
				return
			}
			// Transport errors are not job failures; retry next tick.
			p.logger.Warn().Err(err).Str("job_id", p.jobID).Msg("jobtrack: status query failed")
			continue
		}

		switch state.Status {
		case "completed":
			if state.Result == nil {
				p.logger.Warn().Str("job_id", p.jobID).Msg("jobtrack: completed without asset, waiting")
				continue
			}
			if p.alive(p.jobID) && p.onComplete != nil {
				p.onComplete(p.jobID, state.Result)
			}
			return
		case "failed":
			p.evict(EvictFailed)
			return
		default:
			// Still processing.
		}
	}
}

func (p *Poller) evict(reason EvictReason) {
	if !p.alive(p.jobID) {
		return
	}
	if p.onEvict != nil {
		p.onEvict(p.jobID, reason)
	}
}
