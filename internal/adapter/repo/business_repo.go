package repo

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/IkonicR/ads-x-create-v2-sub005/internal/domain"
)

// BusinessRepositoryPG implements domain.BusinessRepository using PostgreSQL.
type BusinessRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewBusinessRepository constructs a new business repository instance.
func NewBusinessRepository(pool *pgxpool.Pool) *BusinessRepositoryPG {
	return &BusinessRepositoryPG{pool: pool}
}

// GetByID fetches a business profile.
func (r *BusinessRepositoryPG) GetByID(ctx context.Context, id string) (*domain.Business, error) {
	query := `
SELECT id, name, COALESCE(industry, ''), COALESCE(description, ''), COALESCE(brand_voice, ''),
       COALESCE(logo_url, ''), COALESCE(subject_reference_urls, '{}'), created_at
FROM businesses
WHERE id = $1;
`
	row := r.pool.QueryRow(ctx, query, id)
	var biz domain.Business
	if err := row.Scan(&biz.ID, &biz.Name, &biz.Industry, &biz.Description, &biz.BrandVoice, &biz.LogoURL, &biz.SubjectReferenceURLs, &biz.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &biz, nil
}

var _ domain.BusinessRepository = (*BusinessRepositoryPG)(nil)
