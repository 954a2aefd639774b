package repo

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/IkonicR/ads-x-create-v2-sub005/internal/domain"
)

// JobRepositoryPG implements domain.JobRepository backed by PostgreSQL.
//
// Terminal transitions are guarded by `status = 'processing'` in the WHERE
// clause: a second transition, or a transition against a deleted id, matches
// zero rows and is silently ignored. That keeps the ledger invariant (at most
// one terminal write per job) without making late orchestrator updates an
// error path.
type JobRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewJobRepository creates a new job repository backed by PostgreSQL.
func NewJobRepository(pool *pgxpool.Pool) *JobRepositoryPG {
	return &JobRepositoryPG{pool: pool}
}

// Create inserts a new job record in the processing state.
func (r *JobRepositoryPG) Create(ctx context.Context, job *domain.Job) error {
	query := `
INSERT INTO jobs (id, business_id, status, prompt, aspect_ratio, quality, style_reference_urls, subject_reference_urls)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8);
`
	_, err := r.pool.Exec(ctx, query,
		job.ID,
		job.BusinessID,
		domain.JobStatusProcessing,
		job.Prompt,
		job.AspectRatio,
		job.Quality,
		job.StyleReferenceURLs,
		job.SubjectReferenceURLs,
	)
	return err
}

// GetByID fetches a job by its identifier.
func (r *JobRepositoryPG) GetByID(ctx context.Context, id string) (*domain.Job, error) {
	query := `
SELECT id, business_id, status, prompt, aspect_ratio, quality, style_reference_urls, subject_reference_urls,
       COALESCE(result_asset_id, ''), COALESCE(error_message, ''), created_at, updated_at
FROM jobs
WHERE id = $1;
`
	row := r.pool.QueryRow(ctx, query, id)
	var job domain.Job
	if err := row.Scan(
		&job.ID,
		&job.BusinessID,
		&job.Status,
		&job.Prompt,
		&job.AspectRatio,
		&job.Quality,
		&job.StyleReferenceURLs,
		&job.SubjectReferenceURLs,
		&job.ResultAssetID,
		&job.ErrorMessage,
		&job.CreatedAt,
		&job.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &job, nil
}

// Complete marks a processing job completed with its result asset.
func (r *JobRepositoryPG) Complete(ctx context.Context, id, assetID string) error {
	query := `
UPDATE jobs
SET status = $2, result_asset_id = $3, updated_at = NOW()
WHERE id = $1 AND status = $4;
`
	_, err := r.pool.Exec(ctx, query, id, domain.JobStatusCompleted, assetID, domain.JobStatusProcessing)
	return err
}

// Fail marks a processing job failed with the captured error message.
func (r *JobRepositoryPG) Fail(ctx context.Context, id, errMsg string) error {
	query := `
UPDATE jobs
SET status = $2, error_message = $3, updated_at = NOW()
WHERE id = $1 AND status = $4;
`
	_, err := r.pool.Exec(ctx, query, id, domain.JobStatusFailed, errMsg, domain.JobStatusProcessing)
	return err
}

// ListPending returns the business's non-terminal jobs, newest first.
func (r *JobRepositoryPG) ListPending(ctx context.Context, businessID string) ([]domain.Job, error) {
	query := `
SELECT id, business_id, status, prompt, aspect_ratio, quality, style_reference_urls, subject_reference_urls,
       COALESCE(result_asset_id, ''), COALESCE(error_message, ''), created_at, updated_at
FROM jobs
WHERE business_id = $1 AND status = $2
ORDER BY created_at DESC;
`
	rows, err := r.pool.Query(ctx, query, businessID, domain.JobStatusProcessing)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []domain.Job
	for rows.Next() {
		var job domain.Job
		if err := rows.Scan(
			&job.ID,
			&job.BusinessID,
			&job.Status,
			&job.Prompt,
			&job.AspectRatio,
			&job.Quality,
			&job.StyleReferenceURLs,
			&job.SubjectReferenceURLs,
			&job.ResultAssetID,
			&job.ErrorMessage,
			&job.CreatedAt,
			&job.UpdatedAt,
		); err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return jobs, nil
}

// Delete removes a job record. Advisory cancellation: an in-flight
// orchestrator touching the deleted id afterwards no-ops.
func (r *JobRepositoryPG) Delete(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM jobs WHERE id = $1;`, id)
	return err
}

var _ domain.JobRepository = (*JobRepositoryPG)(nil)
