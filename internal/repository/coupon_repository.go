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

// couponRepository implements the CouponRepository interface using PostgreSQL.
type couponRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewCouponRepository creates a new PostgreSQL-backed coupon repository.
func NewCouponRepository(pool *pgxpool.Pool, logger zerolog.Logger) CouponRepository {
	return &couponRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "coupon").Logger(),
	}
}

func (r *couponRepository) GetByCode(ctx context.Context, tx pgx.Tx, code string) (*model.Coupon, error) {
	return r.get(ctx, tx, `SELECT code, discount_price, quantity FROM coupons WHERE code = $1`, code)
}

func (r *couponRepository) GetByCodeForUpdate(ctx context.Context, tx pgx.Tx, code string) (*model.Coupon, error) {
	return r.get(ctx, tx, `SELECT code, discount_price, quantity FROM coupons WHERE code = $1 FOR UPDATE`, code)
}

func (r *couponRepository) get(ctx context.Context, tx pgx.Tx, query, code string) (*model.Coupon, error) {
	var c model.Coupon
	err := tx.QueryRow(ctx, query, code).Scan(&c.Code, &c.DiscountPrice, &c.Quantity)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug().Str("coupon_code", code).Msg("coupon not found")
			return nil, nil
		}
		r.logger.Error().Err(err).Str("coupon_code", code).Msg("failed to query coupon")
		return nil, fmt.Errorf("failed to query coupon: %w", translateError(err))
	}

	return &c, nil
}

// Decrement consumes one redemption. The quantity check constraint keeps the
// counter from going below zero.
func (r *couponRepository) Decrement(ctx context.Context, tx pgx.Tx, code string) error {
	tag, err := tx.Exec(ctx, `UPDATE coupons SET quantity = quantity - 1 WHERE code = $1`, code)
	if err != nil {
		if hasSQLState(err, sqlStateCheckViolation) {
			return model.ErrCouponExhausted
		}
		r.logger.Error().Err(err).Str("coupon_code", code).Msg("failed to decrement coupon")
		return fmt.Errorf("failed to decrement coupon: %w", translateError(err))
	}

	if tag.RowsAffected() == 0 {
		return model.ErrCouponNotFound
	}

	return nil
}

// Upsert writes catalogue entries in one batch inside its own transaction.
func (r *couponRepository) Upsert(ctx context.Context, coupons []model.Coupon) (int, error) {
	if len(coupons) == 0 {
		return 0, nil
	}

	query := `
		INSERT INTO coupons (code, discount_price, quantity)
		VALUES ($1, $2, $3)
		ON CONFLICT (code) DO UPDATE
		SET discount_price = EXCLUDED.discount_price, quantity = EXCLUDED.quantity
	`

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to begin transaction")
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, c := range coupons {
		batch.Queue(query, c.Code, c.DiscountPrice, c.Quantity)
	}

	results := tx.SendBatch(ctx, batch)
	for i := 0; i < len(coupons); i++ {
		if _, err := results.Exec(); err != nil {
			results.Close()
			r.logger.Error().
				Err(err).
				Str("coupon_code", coupons[i].Code).
				Msg("failed to upsert coupon")
			return 0, fmt.Errorf("failed to upsert coupon %s: %w", coupons[i].Code, err)
		}
	}
	if err := results.Close(); err != nil {
		return 0, fmt.Errorf("failed to close batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		r.logger.Error().Err(err).Msg("failed to commit coupon import")
		return 0, fmt.Errorf("failed to commit coupon import: %w", err)
	}

	r.logger.Info().Int("count", len(coupons)).Msg("coupons upserted")
	return len(coupons), nil
}
