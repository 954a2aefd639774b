package repo

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/IkonicR/ads-x-create-v2-sub005/internal/domain"
)

// Memory bundles mutex-guarded in-memory implementations of the ledger,
// asset, and business repositories. Used when no DATABASE_URL is configured
// and by tests; semantics mirror the PostgreSQL implementations, in
// particular the processing-only guard on terminal transitions.
type Memory struct {
	mu         sync.Mutex
	jobs       map[string]*domain.Job
	assets     map[string]*domain.Asset
	businesses map[string]*domain.Business
}

// NewMemory constructs an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		jobs:       make(map[string]*domain.Job),
		assets:     make(map[string]*domain.Asset),
		businesses: make(map[string]*domain.Business),
	}
}

// Jobs returns the ledger view of the store.
func (m *Memory) Jobs() domain.JobRepository { return (*memoryJobs)(m) }

// Assets returns the asset view of the store.
func (m *Memory) Assets() domain.AssetRepository { return (*memoryAssets)(m) }

// Businesses returns the business view of the store.
func (m *Memory) Businesses() domain.BusinessRepository { return (*memoryBusinesses)(m) }

// SeedBusiness registers a business profile, for development and tests.
func (m *Memory) SeedBusiness(biz domain.Business) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if biz.CreatedAt.IsZero() {
		biz.CreatedAt = time.Now()
	}
	m.businesses[biz.ID] = &biz
}

type memoryJobs Memory

func (m *memoryJobs) Create(ctx context.Context, job *domain.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	stored := *job
	stored.Status = domain.JobStatusProcessing
	stored.CreatedAt = now
	stored.UpdatedAt = now
	m.jobs[stored.ID] = &stored
	job.Status = stored.Status
	job.CreatedAt = now
	job.UpdatedAt = now
	return nil
}

func (m *memoryJobs) GetByID(ctx context.Context, id string) (*domain.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := *job
	return &copied, nil
}

func (m *memoryJobs) Complete(ctx context.Context, id, assetID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok || job.Status != domain.JobStatusProcessing {
		return nil
	}
	job.Status = domain.JobStatusCompleted
	job.ResultAssetID = assetID
	job.UpdatedAt = time.Now()
	return nil
}

func (m *memoryJobs) Fail(ctx context.Context, id, errMsg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok || job.Status != domain.JobStatusProcessing {
		return nil
	}
	job.Status = domain.JobStatusFailed
	job.ErrorMessage = errMsg
	job.UpdatedAt = time.Now()
	return nil
}

func (m *memoryJobs) ListPending(ctx context.Context, businessID string) ([]domain.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var jobs []domain.Job
	for _, job := range m.jobs {
		if job.BusinessID == businessID && !job.Status.Terminal() {
			jobs = append(jobs, *job)
		}
	}
	sort.Slice(jobs, func(i, j int) bool { return jobs[i].CreatedAt.After(jobs[j].CreatedAt) })
	return jobs, nil
}

func (m *memoryJobs) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.jobs, id)
	return nil
}

type memoryAssets Memory

func (m *memoryAssets) Create(ctx context.Context, asset *domain.Asset) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := *asset
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now()
	}
	m.assets[stored.ID] = &stored
	asset.CreatedAt = stored.CreatedAt
	return nil
}

func (m *memoryAssets) GetByID(ctx context.Context, id string) (*domain.Asset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	asset, ok := m.assets[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := *asset
	return &copied, nil
}

func (m *memoryAssets) ListByBusiness(ctx context.Context, businessID string) ([]domain.Asset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var assets []domain.Asset
	for _, asset := range m.assets {
		if asset.BusinessID == businessID {
			assets = append(assets, *asset)
		}
	}
	sort.Slice(assets, func(i, j int) bool { return assets[i].CreatedAt.After(assets[j].CreatedAt) })
	return assets, nil
}

type memoryBusinesses Memory

func (m *memoryBusinesses) GetByID(ctx context.Context, id string) (*domain.Business, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	biz, ok := m.businesses[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := *biz
	return &copied, nil
}

var (
	_ domain.JobRepository      = (*memoryJobs)(nil)
	_ domain.AssetRepository    = (*memoryAssets)(nil)
	_ domain.BusinessRepository = (*memoryBusinesses)(nil)
)
