package domain

import "context"

// JobRepository is the durable job ledger, the single source of truth for
// job lifecycle. Complete and Fail are the only terminal transitions; both
// apply solely to a job still in processing, so a repeat transition or an
// update against a deleted id is a harmless no-op rather than an error.
type JobRepository interface {
	Create(ctx context.Context, job *Job) error
	GetByID(ctx context.Context, id string) (*Job, error)
	Complete(ctx context.Context, id, assetID string) error
	Fail(ctx context.Context, id, errMsg string) error
	ListPending(ctx context.Context, businessID string) ([]Job, error)
	Delete(ctx context.Context, id string) error
}

// AssetRepository handles persistence for generated assets.
type AssetRepository interface {
	Create(ctx context.Context, asset *Asset) error
	GetByID(ctx context.Context, id string) (*Asset, error)
	ListByBusiness(ctx context.Context, businessID string) ([]Asset, error)
}

// BusinessRepository provides read access to business profiles.
type BusinessRepository interface {
	GetByID(ctx context.Context, id string) (*Business, error)
}
