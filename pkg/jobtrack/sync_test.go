package jobtrack

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// Two registries on one in-process bus must converge additively: each
// instance adopts ids it has never seen and leaves the rest alone.
func TestCrossInstanceAdditiveMerge(t *testing.T) {
	bus := NewProcBus()
	first := newHarness(t, func(o *Options) { o.Bus = bus })
	second := newHarness(t, func(o *Options) { o.Bus = bus })
	first.start(t)
	second.start(t)

	first.registry.AddJob(job("a"))
	require.Eventually(t, func() bool {
		return len(second.registry.JobsForBusiness("biz-1")) == 1
	}, time.Second, 5*time.Millisecond, "second instance never adopted job a")

	first.registry.AddJob(job("b"))
	require.Eventually(t, func() bool {
		return len(second.registry.JobsForBusiness("biz-1")) == 2
	}, time.Second, 5*time.Millisecond, "second instance never adopted job b")

	// The adopted entries poll through the second instance's own source.
	second.advance(DefaultPollInterval, 2)
	require.Positive(t, second.source.callCount("a"))
	require.Positive(t, second.source.callCount("b"))

	// Convergence is stable: the mutual rebroadcast settles instead of
	// ping-ponging forever.
	time.Sleep(50 * time.Millisecond)
	require.Len(t, first.registry.JobsForBusiness("biz-1"), 2)
	require.Len(t, second.registry.JobsForBusiness("biz-1"), 2)
}

func TestBroadcastNeverOverwritesKnownJobs(t *testing.T) {
	bus := NewProcBus()
	h := newHarness(t, func(o *Options) { o.Bus = bus })
	h.start(t)

	tracked := job("j1")
	tracked.AttachTo = "msg-7"
	h.registry.AddJob(tracked)

	// A peer rebroadcasts the same id with different presentational fields.
	remote := job("j1")
	remote.AttachTo = "msg-99"
	require.NoError(t, bus.Publish(context.Background(), []ClientJob{remote}))
	time.Sleep(20 * time.Millisecond)

	jobs := h.registry.JobsForBusiness("biz-1")
	require.Len(t, jobs, 1)
	require.Equal(t, "msg-7", jobs[0].AttachTo, "broadcast overwrote a known job")
}

func TestBroadcastDropsTerminalAndCarriedResults(t *testing.T) {
	bus := NewProcBus()
	h := newHarness(t, func(o *Options) { o.Bus = bus })
	h.start(t)

	done := job("done")
	done.Status = StatusComplete
	carried := job("fresh")
	carried.Result = &Result{AssetID: "a1", URL: "u"}
	require.NoError(t, bus.Publish(context.Background(), []ClientJob{done, carried}))
	time.Sleep(20 * time.Millisecond)

	jobs := h.registry.JobsForBusiness("biz-1")
	require.Len(t, jobs, 1)
	require.Equal(t, "fresh", jobs[0].ID)
	require.Equal(t, StatusPolling, jobs[0].Status)
	require.Nil(t, jobs[0].Result, "terminal outcome must come from our own poller")
}

func TestUnsubscribedRegistryStopsMerging(t *testing.T) {
	bus := NewProcBus()
	h := newHarness(t, func(o *Options) { o.Bus = bus })
	h.start(t)
	h.registry.Close()

	require.NoError(t, bus.Publish(context.Background(), []ClientJob{job("late")}))
	time.Sleep(20 * time.Millisecond)
	require.Empty(t, h.registry.JobsForBusiness("biz-1"))
}
