package jobtrack

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog"
)

// MaxSnapshotAge is how stale a persisted job may be before recovery drops
// it silently instead of resuming its poller.
const MaxSnapshotAge = 5 * time.Minute

// Options configures a Registry. Source is required; every other port has a
// working default (real clock, in-memory snapshot, no-op broadcast).
type Options struct {
	Source     StatusSource
	Snapshots  SnapshotStore
	Bus        Broadcaster
	Clock      clock.Clock
	Logger     zerolog.Logger
	BusinessID string

	PollInterval time.Duration
	PollTimeout  time.Duration

	// OnResult surfaces a completed job and its asset to the consumer.
	OnResult func(job ClientJob)
	// OnEvict reports a job that disappeared without a visible result.
	OnEvict func(job ClientJob, reason EvictReason)
}

// Registry is the per-instance source of truth for tracked jobs across all
// UI surfaces. It owns an in-memory map plus the injected persistence and
// broadcast ports; nothing is reached through globals.
type Registry struct {
	opts Options

	mu        sync.Mutex
	jobs      map[string]*ClientJob
	pollers   map[string]*Poller
	lastBcast string

	ctx         context.Context
	unsubscribe func()
}

// NewRegistry builds a registry; call Start before use.
func NewRegistry(opts Options) *Registry {
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	if opts.Snapshots == nil {
		opts.Snapshots = NewMemSnapshotStore()
	}
	if opts.Bus == nil {
		opts.Bus = NoopBus{}
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.PollTimeout <= 0 {
		opts.PollTimeout = DefaultPollTimeout
	}
	return &Registry{
		opts:    opts,
		jobs:    make(map[string]*ClientJob),
		pollers: make(map[string]*Poller),
	}
}

// Start recovers persisted and server-side pending jobs, resumes polling for
// each, and joins the cross-instance channel.
func (r *Registry) Start(ctx context.Context) error {
	r.ctx = ctx

	persisted, err := r.opts.Snapshots.Load(ctx)
	if err != nil {
		r.opts.Logger.Warn().Err(err).Msg("jobtrack: snapshot load failed, starting empty")
	}

	r.mu.Lock()
	now := r.opts.Clock.Now()
	for _, job := range persisted {
		if job.Terminal() || now.Sub(job.CreatedAt) >= MaxSnapshotAge {
			continue
		}
		r.adoptLocked(job)
	}
	r.mu.Unlock()

	// Merge in server-side pending jobs this instance never cached, e.g.
	// after a crash wiped the snapshot.
	if r.opts.BusinessID != "" {
		remote, err := r.opts.Source.Pending(ctx, r.opts.BusinessID)
		if err != nil {
			r.opts.Logger.Warn().Err(err).Msg("jobtrack: pending recovery failed")
		} else {
			r.mu.Lock()
			for _, rj := range remote {
				if _, known := r.jobs[rj.ID]; known {
					continue
				}
				r.adoptLocked(ClientJob{
					ID:         rj.ID,
					Type:       "recovered",
					BusinessID: r.opts.BusinessID,
					CreatedAt:  rj.CreatedAt,
				})
			}
			r.mu.Unlock()
		}
	}

	unsubscribe, err := r.opts.Bus.Subscribe(ctx, r.handleBroadcast)
	if err != nil {
		return err
	}
	r.unsubscribe = unsubscribe

	r.mu.Lock()
	r.syncLocked()
	r.mu.Unlock()
	return nil
}

// Close leaves the broadcast channel and stops every poller. Tracked state
// stays persisted for the next Start.
func (r *Registry) Close() {
	if r.unsubscribe != nil {
		r.unsubscribe()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.pollers {
		p.Stop()
	}
	r.pollers = make(map[string]*Poller)
}

// AddJob registers a freshly submitted job and starts its poller.
func (r *Registry) AddJob(job ClientJob) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.jobs[job.ID]; exists {
		return
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = r.opts.Clock.Now()
	}
	r.adoptLocked(job)
	r.syncLocked()
}

// RemoveJob stops polling and evicts the entry. Removal is local only: it
// never cancels in-flight server work.
func (r *Registry) RemoveJob(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.jobs[id]; !exists {
		return
	}
	r.dropLocked(id)
	r.syncLocked()
}

// JobPatch updates presentational fields without touching lifecycle state.
type JobPatch struct {
	Type     *string
	AttachTo *string
}

// UpdateJob patches presentational fields of a tracked job.
func (r *Registry) UpdateJob(id string, patch JobPatch) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, exists := r.jobs[id]
	if !exists {
		return
	}
	if patch.Type != nil {
		job.Type = *patch.Type
	}
	if patch.AttachTo != nil {
		job.AttachTo = *patch.AttachTo
	}
	r.syncLocked()
}

// JobsByType returns tracked jobs originating from the given UI context.
func (r *Registry) JobsByType(jobType string) []ClientJob {
	r.mu.Lock()
	defer r.mu.Unlock()
	var jobs []ClientJob
	for _, job := range r.jobs {
		if job.Type == jobType {
			jobs = append(jobs, *job)
		}
	}
	sortByCreation(jobs)
	return jobs
}

// JobsForBusiness returns tracked jobs for one business.
func (r *Registry) JobsForBusiness(businessID string) []ClientJob {
	r.mu.Lock()
	defer r.mu.Unlock()
	var jobs []ClientJob
	for _, job := range r.jobs {
		if job.BusinessID == businessID {
			jobs = append(jobs, *job)
		}
	}
	sortByCreation(jobs)
	return jobs
}

// ClearJobsForBusiness evicts and stops everything tracked for a business,
// e.g. on business switch.
func (r *Registry) ClearJobsForBusiness(businessID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	changed := false
	for id, job := range r.jobs {
		if job.BusinessID == businessID {
			r.dropLocked(id)
			changed = true
		}
	}
	if changed {
		r.syncLocked()
	}
}

// adoptLocked installs the job and starts its poller. Caller holds the lock.
func (r *Registry) adoptLocked(job ClientJob) {
	job.Status = StatusPolling
	stored := job
	r.jobs[job.ID] = &stored

	p := newPoller(job.ID, pollerConfig{
		source:     r.opts.Source,
		clock:      r.opts.Clock,
		interval:   r.opts.PollInterval,
		timeout:    r.opts.PollTimeout,
		logger:     r.opts.Logger,
		alive:      r.isTracked,
		onComplete: r.handleComplete,
		onEvict:    r.handleEvict,
	})
	r.pollers[job.ID] = p
	ctx := r.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	p.Start(ctx)
}

// dropLocked stops the poller and forgets the entry. Caller holds the lock.
func (r *Registry) dropLocked(id string) {
	if p, ok := r.pollers[id]; ok {
		p.Stop()
		delete(r.pollers, id)
	}
	delete(r.jobs, id)
}

func (r *Registry) isTracked(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.jobs[id]
	return ok
}

func (r *Registry) handleComplete(id string, result *Result) {
	r.mu.Lock()
	job, ok := r.jobs[id]
	if !ok {
		r.mu.Unlock()
		return
	}
	resolved := *job
	resolved.Status = StatusComplete
	resolved.Result = result
	r.dropLocked(id)
	r.syncLocked()
	r.mu.Unlock()

	if r.opts.OnResult != nil {
		r.opts.OnResult(resolved)
	}
}

func (r *Registry) handleEvict(id string, reason EvictReason) {
	r.mu.Lock()
	job, ok := r.jobs[id]
	if !ok {
		r.mu.Unlock()
		return
	}
	evicted := *job
	evicted.Status = StatusFailed
	r.dropLocked(id)
	r.syncLocked()
	r.mu.Unlock()

	r.opts.Logger.Debug().Str("job_id", id).Str("reason", string(reason)).Msg("jobtrack: job evicted")
	if r.opts.OnEvict != nil {
		r.opts.OnEvict(evicted, reason)
	}
}

// handleBroadcast merges an incoming set additively: unknown ids are adopted
// and polled, known ids are left untouched. Terminal outcome is never taken
// from the payload; each instance's own poller re-derives it.
func (r *Registry) handleBroadcast(jobs []ClientJob) {
	r.mu.Lock()
	defer r.mu.Unlock()
	changed := false
	for _, job := range jobs {
		if job.ID == "" || job.Terminal() {
			continue
		}
		if _, known := r.jobs[job.ID]; known {
			continue
		}
		if job.CreatedAt.IsZero() {
			job.CreatedAt = r.opts.Clock.Now()
		}
		job.Result = nil
		r.adoptLocked(job)
		changed = true
	}
	if changed {
		r.syncLocked()
	}
}

// syncLocked snapshots and broadcasts the current non-terminal set. The
// snapshot is overwritten on every mutation and cleared when the set is
// empty; the broadcast fires only when the id set actually changed, which
// lets mutual rebroadcasts between instances terminate.
func (r *Registry) syncLocked() {
	jobs := make([]ClientJob, 0, len(r.jobs))
	ids := make([]string, 0, len(r.jobs))
	for _, job := range r.jobs {
		if job.Terminal() {
			continue
		}
		jobs = append(jobs, *job)
		ids = append(ids, job.ID)
	}
	sortByCreation(jobs)

	ctx := r.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	if len(jobs) == 0 {
		if err := r.opts.Snapshots.Clear(ctx); err != nil {
			r.opts.Logger.Warn().Err(err).Msg("jobtrack: snapshot clear failed")
		}
	} else {
		if err := r.opts.Snapshots.Save(ctx, jobs); err != nil {
			r.opts.Logger.Warn().Err(err).Msg("jobtrack: snapshot save failed")
		}
	}

	sort.Strings(ids)
	signature := strings.Join(ids, ",")
	if signature == r.lastBcast {
		return
	}
	r.lastBcast = signature
	if err := r.opts.Bus.Publish(ctx, jobs); err != nil {
		r.opts.Logger.Warn().Err(err).Msg("jobtrack: broadcast failed")
	}
}

func sortByCreation(jobs []ClientJob) {
	sort.Slice(jobs, func(i, j int) bool { return jobs[i].CreatedAt.After(jobs[j].CreatedAt) })
}
