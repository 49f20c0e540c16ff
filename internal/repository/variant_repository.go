package repository

import (
	"context"
	"errors"
	"fmt"

	"storefront/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// variantRepository implements the VariantRepository interface using PostgreSQL.
type variantRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewVariantRepository creates a new PostgreSQL-backed variant repository.
func NewVariantRepository(pool *pgxpool.Pool, logger zerolog.Logger) VariantRepository {
	return &variantRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "variant").Logger(),
	}
}

const variantSelect = `
	SELECT pv.id, pv.product_name, pv.variant_name, COALESCE(img.url, ''),
		COALESCE(inv.quantity, 0), pv.created_at
	FROM product_variants pv
	LEFT JOIN inventory inv ON inv.variant_id = pv.id
	LEFT JOIN LATERAL (
		SELECT url FROM variant_images vi
		WHERE vi.variant_id = pv.id
		ORDER BY vi.position, vi.id
		LIMIT 1
	) img ON TRUE
`

// GetAll retrieves all variants with pagination support.
func (r *variantRepository) GetAll(ctx context.Context, limit, offset int) ([]model.Variant, error) {
	query := variantSelect + `
		ORDER BY pv.product_name, pv.variant_name
		LIMIT $1 OFFSET $2
	`

	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		r.logger.Error().Err(err).
			Int("limit", limit).
			Int("offset", offset).
			Msg("failed to query variants")
		return nil, fmt.Errorf("failed to query variants: %w", err)
	}

	return r.collect(rows)
}

// GetByID retrieves a single variant by its ID.
func (r *variantRepository) GetByID(ctx context.Context, id string) (*model.Variant, error) {
	query := variantSelect + `WHERE pv.id = $1`

	var v model.Variant
	err := r.pool.QueryRow(ctx, query, id).Scan(&v.ID, &v.ProductName, &v.Name, &v.Image, &v.Stock, &v.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug().Str("variant_id", id).Msg("variant not found")
			return nil, nil
		}
		r.logger.Error().Err(err).Str("variant_id", id).Msg("failed to query variant")
		return nil, fmt.Errorf("failed to query variant: %w", err)
	}

	return &v, nil
}

// GetByIDs retrieves multiple variants by their IDs.
func (r *variantRepository) GetByIDs(ctx context.Context, ids []string) ([]model.Variant, error) {
	if len(ids) == 0 {
		return []model.Variant{}, nil
	}

	query := variantSelect + `
		WHERE pv.id = ANY($1)
		ORDER BY pv.id
	`

	rows, err := r.pool.Query(ctx, query, ids)
	if err != nil {
		r.logger.Error().Err(err).Int("count", len(ids)).Msg("failed to query variants by IDs")
		return nil, fmt.Errorf("failed to query variants by IDs: %w", err)
	}

	return r.collect(rows)
}

func (r *variantRepository) collect(rows pgx.Rows) ([]model.Variant, error) {
	defer rows.Close()

	var variants []model.Variant
	for rows.Next() {
		var v model.Variant
		err := rows.Scan(&v.ID, &v.ProductName, &v.Name, &v.Image, &v.Stock, &v.CreatedAt)
		if err != nil {
			r.logger.Error().Err(err).Msg("failed to scan variant row")
			return nil, fmt.Errorf("failed to scan variant: %w", err)
		}
		variants = append(variants, v)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating variant rows")
		return nil, fmt.Errorf("error iterating variants: %w", err)
	}

	return variants, nil
}
