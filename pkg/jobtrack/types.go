// Package jobtrack is the client-side half of the generation job lifecycle:
// a per-instance registry of submitted jobs, a poller per job, and an
// additive cross-instance synchronizer. Together they guarantee every
// submitted job reaches a visible terminal outcome exactly once, survives
// client restarts, and stays consistent across concurrently open instances.
package jobtrack

import (
	"context"
	"errors"
	"time"
)

// Status is the client-local view of a tracked job. It is a projection, not
// server truth: terminal outcomes are always re-derived from the server by
// this instance's own poller.
type Status string

const (
	StatusPending  Status = "pending"
	StatusPolling  Status = "polling"
	StatusComplete Status = "complete"
	StatusFailed   Status = "failed"
)

// Result references the generated asset of a completed job.
type Result struct {
	AssetID string `json:"asset_id"`
	URL     string `json:"url"`
}

// ClientJob is the client-local projection of a server Job. Several
// instances may hold independent copies for the same id; only one Job exists
// server-side.
type ClientJob struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	BusinessID string    `json:"business_id"`
	Status     Status    `json:"status"`
	Result     *Result   `json:"result,omitempty"`
	AttachTo   string    `json:"attach_to,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Terminal reports whether the job has locally resolved.
func (j ClientJob) Terminal() bool {
	return j.Status == StatusComplete || j.Status == StatusFailed
}

// ErrNotFound is returned by a StatusSource when the server does not know
// the job id. Pollers treat it as a permanent failure.
var ErrNotFound = errors.New("jobtrack: job not found")

// JobState is one status observation from the server.
type JobState struct {
	Status       string
	ErrorMessage string
	Result       *Result
}

// RemoteJob is a non-terminal server job discovered during recovery.
type RemoteJob struct {
	ID        string
	CreatedAt time.Time
}

// StatusSource reads job state from the server.
type StatusSource interface {
	Status(ctx context.Context, jobID string) (JobState, error)
	Pending(ctx context.Context, businessID string) ([]RemoteJob, error)
}

// SnapshotStore persists the current non-terminal job set as one keyed blob.
// Save overwrites on every mutation; Clear removes the blob when the set is
// empty.
type SnapshotStore interface {
	Load(ctx context.Context) ([]ClientJob, error)
	Save(ctx context.Context, jobs []ClientJob) error
	Clear(ctx context.Context) error
}

// Broadcaster propagates the full non-terminal set between instances on a
// shared channel. Receivers merge additively and never take terminal state
// from the payload.
type Broadcaster interface {
	Publish(ctx context.Context, jobs []ClientJob) error
	Subscribe(ctx context.Context, fn func(jobs []ClientJob)) (unsubscribe func(), err error)
}
