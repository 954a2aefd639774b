package jobtrack

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type reply struct {
	state JobState
	err   error
}

var processing = reply{state: JobState{Status: "processing"}}

func completed(assetID, url string) reply {
	return reply{state: JobState{Status: "completed", Result: &Result{AssetID: assetID, URL: url}}}
}

// stubSource scripts per-job status replies. The last scripted reply is
// sticky; an unscripted job reports processing forever.
type stubSource struct {
	mu      sync.Mutex
	replies map[string][]reply
	pending []RemoteJob
	calls   map[string]int
}

func newStubSource() *stubSource {
	return &stubSource{
		replies: make(map[string][]reply),
		calls:   make(map[string]int),
	}
}

func (s *stubSource) script(id string, rs ...reply) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replies[id] = rs
}

func (s *stubSource) Status(ctx context.Context, jobID string) (JobState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[jobID]++
	q := s.replies[jobID]
	if len(q) == 0 {
		return JobState{Status: "processing"}, nil
	}
	r := q[0]
	if len(q) > 1 {
		s.replies[jobID] = q[1:]
	}
	return r.state, r.err
}

func (s *stubSource) Pending(ctx context.Context, businessID string) ([]RemoteJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]RemoteJob(nil), s.pending...), nil
}

func (s *stubSource) callCount(id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[id]
}

type harness struct {
	registry *Registry
	source   *stubSource
	clock    *clock.Mock
	snaps    *MemSnapshotStore
	results  chan ClientJob
	evicted  chan evictEvent
}

type evictEvent struct {
	job    ClientJob
	reason EvictReason
}

func newHarness(t *testing.T, mutate func(*Options)) *harness {
	t.Helper()
	h := &harness{
		source:  newStubSource(),
		clock:   clock.NewMock(),
		snaps:   NewMemSnapshotStore(),
		results: make(chan ClientJob, 16),
		evicted: make(chan evictEvent, 16),
	}
	opts := Options{
		Source:     h.source,
		Snapshots:  h.snaps,
		Clock:      h.clock,
		Logger:     zerolog.Nop(),
		BusinessID: "biz-1",
		OnResult:   func(job ClientJob) { h.results <- job },
		OnEvict:    func(job ClientJob, reason EvictReason) { h.evicted <- evictEvent{job, reason} },
	}
	if mutate != nil {
		mutate(&opts)
	}
	h.registry = NewRegistry(opts)
	return h
}

func (h *harness) start(t *testing.T) {
	t.Helper()
	require.NoError(t, h.registry.Start(context.Background()))
	t.Cleanup(h.registry.Close)
}

// advance steps the mock clock, yielding after each step so poller
// goroutines observe every tick. The initial sleep lets freshly started
// pollers register their tickers before the first step.
func (h *harness) advance(step time.Duration, n int) {
	time.Sleep(5 * time.Millisecond)
	for i := 0; i < n; i++ {
		h.clock.Add(step)
		time.Sleep(2 * time.Millisecond)
	}
}

func job(id string) ClientJob {
	return ClientJob{ID: id, Type: "chat", BusinessID: "biz-1"}
}

func TestPollerSurfacesCompletedResult(t *testing.T) {
	h := newHarness(t, nil)
	h.start(t)
	h.source.script("j1", processing, processing, completed("a1", "https://cdn.example/a1.png"))

	h.registry.AddJob(job("j1"))
	h.advance(DefaultPollInterval, 4)

	select {
	case resolved := <-h.results:
		require.Equal(t, "j1", resolved.ID)
		require.Equal(t, StatusComplete, resolved.Status)
		require.NotNil(t, resolved.Result)
		require.Equal(t, "a1", resolved.Result.AssetID)
	default:
		t.Fatal("completed job never surfaced")
	}
	require.Empty(t, h.registry.JobsForBusiness("biz-1"), "resolved job still tracked")
}

func TestPollerEvictsFailedJob(t *testing.T) {
	h := newHarness(t, nil)
	h.start(t)
	h.source.script("j1", processing, reply{state: JobState{Status: "failed", ErrorMessage: "boom"}})

	h.registry.AddJob(job("j1"))
	h.advance(DefaultPollInterval, 3)

	select {
	case ev := <-h.evicted:
		require.Equal(t, "j1", ev.job.ID)
		require.Equal(t, EvictFailed, ev.reason)
	default:
		t.Fatal("failed job never evicted")
	}
	require.Empty(t, h.registry.JobsForBusiness("biz-1"))
}

func TestPollerEvictsUnknownJobWithinOneTick(t *testing.T) {
	h := newHarness(t, nil)
	h.start(t)
	h.source.script("ghost", reply{err: ErrNotFound})

	h.registry.AddJob(job("ghost"))
	h.advance(DefaultPollInterval, 1)

	select {
	case ev := <-h.evicted:
		require.Equal(t, EvictNotFound, ev.reason)
	default:
		t.Fatal("unknown job not evicted within one tick")
	}
	require.Equal(t, 1, h.source.callCount("ghost"))
}

func TestPollerRetriesTransportErrors(t *testing.T) {
	h := newHarness(t, nil)
	h.start(t)
	h.source.script("j1",
		reply{err: errors.New("connection refused")},
		reply{err: errors.New("connection refused")},
		completed("a1", "u"),
	)

	h.registry.AddJob(job("j1"))
	h.advance(DefaultPollInterval, 4)

	require.Len(t, h.results, 1, "transport errors must not kill the poller")
	require.Empty(t, h.evicted, "transport errors must not evict")
}

func TestPollerTimeoutEvictsAndStopsQuerying(t *testing.T) {
	h := newHarness(t, nil)
	h.start(t)

	h.registry.AddJob(job("slow"))
	// 320 simulated seconds of processing; the 5 minute ceiling hits on the
	// first tick past it.
	h.advance(DefaultPollInterval, 160)

	select {
	case ev := <-h.evicted:
		require.Equal(t, EvictTimeout, ev.reason)
	default:
		t.Fatal("job past the ceiling was not evicted")
	}

	queries := h.source.callCount("slow")
	require.LessOrEqual(t, queries, 150, "queries continued past the ceiling")
	h.advance(DefaultPollInterval, 10)
	require.Equal(t, queries, h.source.callCount("slow"), "evicted job was queried again")
}

func TestRemoveJobStopsPolling(t *testing.T) {
	h := newHarness(t, nil)
	h.start(t)

	h.registry.AddJob(job("j1"))
	h.advance(DefaultPollInterval, 2)
	h.registry.RemoveJob("j1")

	queries := h.source.callCount("j1")
	h.advance(DefaultPollInterval, 5)
	require.Equal(t, queries, h.source.callCount("j1"), "removed job was queried again")
	require.Empty(t, h.results)
	require.Empty(t, h.evicted)
}
