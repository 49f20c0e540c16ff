package repository

import (
	"context"
	"errors"
	"fmt"

	"storefront/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// cartRepository implements the CartRepository interface using PostgreSQL.
type cartRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewCartRepository creates a new PostgreSQL-backed cart repository.
func NewCartRepository(pool *pgxpool.Pool, logger zerolog.Logger) CartRepository {
	return &cartRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "cart").Logger(),
	}
}

const cartColumns = `id, user_id, session_id, coupon_code, loyalty_points_spent, created_at`

// GetByUserID locks and returns the cart owned by the user.
func (r *cartRepository) GetByUserID(ctx context.Context, tx pgx.Tx, userID uuid.UUID) (*model.Cart, error) {
	query := `SELECT ` + cartColumns + ` FROM carts WHERE user_id = $1 FOR UPDATE`
	return r.getOne(ctx, tx, query, userID)
}

// GetBySessionID locks and returns the cart owned by an anonymous session.
func (r *cartRepository) GetBySessionID(ctx context.Context, tx pgx.Tx, sessionID string) (*model.Cart, error) {
	query := `SELECT ` + cartColumns + ` FROM carts WHERE session_id = $1 FOR UPDATE`
	return r.getOne(ctx, tx, query, sessionID)
}

func (r *cartRepository) getOne(ctx context.Context, tx pgx.Tx, query string, arg any) (*model.Cart, error) {
	var c model.Cart
	err := tx.QueryRow(ctx, query, arg).Scan(
		&c.ID,
		&c.UserID,
		&c.SessionID,
		&c.CouponCode,
		&c.LoyaltyPointsSpent,
		&c.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug().Msg("cart not found")
			return nil, nil
		}
		r.logger.Error().Err(err).Msg("failed to query cart")
		return nil, fmt.Errorf("failed to query cart: %w", translateError(err))
	}

	return &c, nil
}

// GetItems returns the cart lines with the variant name and first image.
func (r *cartRepository) GetItems(ctx context.Context, tx pgx.Tx, cartID uuid.UUID) ([]model.CartItem, error) {
	query := `
		SELECT ci.id, ci.cart_id, ci.variant_id, pv.variant_name, COALESCE(img.url, ''),
			ci.quantity, ci.price
		FROM cart_items ci
		JOIN product_variants pv ON pv.id = ci.variant_id
		LEFT JOIN LATERAL (
			SELECT url FROM variant_images vi
			WHERE vi.variant_id = ci.variant_id
			ORDER BY vi.position, vi.id
			LIMIT 1
		) img ON TRUE
		WHERE ci.cart_id = $1
		ORDER BY ci.position
	`

	rows, err := tx.Query(ctx, query, cartID)
	if err != nil {
		r.logger.Error().Err(err).Str("cart_id", cartID.String()).Msg("failed to query cart items")
		return nil, fmt.Errorf("failed to query cart items: %w", translateError(err))
	}
	defer rows.Close()

	var items []model.CartItem
	for rows.Next() {
		var item model.CartItem
		err := rows.Scan(&item.ID, &item.CartID, &item.VariantID, &item.VariantName, &item.Image,
			&item.Quantity, &item.Price)
		if err != nil {
			r.logger.Error().Err(err).Msg("failed to scan cart item row")
			return nil, fmt.Errorf("failed to scan cart item: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating cart item rows")
		return nil, fmt.Errorf("error iterating cart items: %w", err)
	}

	return items, nil
}

// Delete removes the cart and its lines.
func (r *cartRepository) Delete(ctx context.Context, tx pgx.Tx, cartID uuid.UUID) (int64, error) {
	if _, err := tx.Exec(ctx, `DELETE FROM cart_items WHERE cart_id = $1`, cartID); err != nil {
		r.logger.Error().Err(err).Str("cart_id", cartID.String()).Msg("failed to delete cart items")
		return 0, fmt.Errorf("failed to delete cart items: %w", translateError(err))
	}

	tag, err := tx.Exec(ctx, `DELETE FROM carts WHERE id = $1`, cartID)
	if err != nil {
		r.logger.Error().Err(err).Str("cart_id", cartID.String()).Msg("failed to delete cart")
		return 0, fmt.Errorf("failed to delete cart: %w", translateError(err))
	}

	return tag.RowsAffected(), nil
}
