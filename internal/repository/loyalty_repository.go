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

type loyaltyRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewLoyaltyRepository creates a new PostgreSQL-backed loyalty repository.
func NewLoyaltyRepository(pool *pgxpool.Pool, logger zerolog.Logger) LoyaltyRepository {
	return &loyaltyRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "loyalty").Logger(),
	}
}

func (r *loyaltyRepository) GetForUpdate(ctx context.Context, tx pgx.Tx, userID uuid.UUID) (*model.LoyaltyPoint, error) {
	query := `
		SELECT user_id, points, updated_at
		FROM loyalty_points
		WHERE user_id = $1
		FOR UPDATE
	`

	var lp model.LoyaltyPoint
	err := tx.QueryRow(ctx, query, userID).Scan(&lp.UserID, &lp.Points, &lp.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error().Err(err).Str("user_id", userID.String()).Msg("failed to lock loyalty balance")
		return nil, fmt.Errorf("failed to lock loyalty balance: %w", translateError(err))
	}

	return &lp, nil
}

func (r *loyaltyRepository) CreateIfAbsent(ctx context.Context, tx pgx.Tx, lp *model.LoyaltyPoint) (bool, error) {
	query := `
		INSERT INTO loyalty_points (user_id, points, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO NOTHING
	`

	tag, err := tx.Exec(ctx, query, lp.UserID, lp.Points, lp.UpdatedAt)
	if err != nil {
		r.logger.Error().Err(err).Str("user_id", lp.UserID.String()).Msg("failed to create loyalty balance")
		return false, fmt.Errorf("failed to create loyalty balance: %w", translateError(err))
	}

	return tag.RowsAffected() == 1, nil
}

func (r *loyaltyRepository) Update(ctx context.Context, tx pgx.Tx, lp *model.LoyaltyPoint) error {
	query := `
		UPDATE loyalty_points
		SET points = $2, updated_at = $3
		WHERE user_id = $1
	`

	_, err := tx.Exec(ctx, query, lp.UserID, lp.Points, lp.UpdatedAt)
	if err != nil {
		if hasSQLState(err, sqlStateCheckViolation) {
			return model.ErrInsufficientPoints
		}
		r.logger.Error().Err(err).Str("user_id", lp.UserID.String()).Msg("failed to update loyalty balance")
		return fmt.Errorf("failed to update loyalty balance: %w", translateError(err))
	}

	return nil
}
