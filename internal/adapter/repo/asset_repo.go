package repo

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/IkonicR/ads-x-create-v2-sub005/internal/domain"
)

// AssetRepositoryPG implements domain.AssetRepository using PostgreSQL.
type AssetRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewAssetRepository constructs a new asset repository instance.
func NewAssetRepository(pool *pgxpool.Pool) *AssetRepositoryPG {
	return &AssetRepositoryPG{pool: pool}
}

// Create persists a generated asset. Assets are write-once.
func (r *AssetRepositoryPG) Create(ctx context.Context, asset *domain.Asset) error {
	query := `
INSERT INTO assets (id, business_id, url, prompt, style, aspect_ratio, quality)
VALUES ($1, $2, $3, $4, $5, $6, $7);
`
	_, err := r.pool.Exec(ctx, query,
		asset.ID,
		asset.BusinessID,
		asset.URL,
		asset.Prompt,
		asset.Style,
		asset.AspectRatio,
		asset.Quality,
	)
	return err
}

// GetByID fetches a single asset.
func (r *AssetRepositoryPG) GetByID(ctx context.Context, id string) (*domain.Asset, error) {
	query := `
SELECT id, business_id, url, prompt, style, aspect_ratio, quality, created_at
FROM assets
WHERE id = $1;
`
	row := r.pool.QueryRow(ctx, query, id)
	var asset domain.Asset
	if err := row.Scan(&asset.ID, &asset.BusinessID, &asset.URL, &asset.Prompt, &asset.Style, &asset.AspectRatio, &asset.Quality, &asset.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &asset, nil
}

// ListByBusiness returns all of a business's assets, newest first.
func (r *AssetRepositoryPG) ListByBusiness(ctx context.Context, businessID string) ([]domain.Asset, error) {
	rows, err := r.pool.Query(ctx, `
SELECT id, business_id, url, prompt, style, aspect_ratio, quality, created_at
FROM assets
WHERE business_id = $1
ORDER BY created_at DESC;
`, businessID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var assets []domain.Asset
	for rows.Next() {
		var asset domain.Asset
		if err := rows.Scan(&asset.ID, &asset.BusinessID, &asset.URL, &asset.Prompt, &asset.Style, &asset.AspectRatio, &asset.Quality, &asset.CreatedAt); err != nil {
			return nil, err
		}
		assets = append(assets, asset)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return assets, nil
}

var _ domain.AssetRepository = (*AssetRepositoryPG)(nil)
