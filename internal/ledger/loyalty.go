package ledger

import (
	"context"
	"fmt"
	"time"

	"storefront/internal/model"
	"storefront/internal/repository"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// Loyalty reconciles spent and earned loyalty points.
type Loyalty struct {
	repo   repository.LoyaltyRepository
	logger zerolog.Logger
}

// NewLoyalty creates a loyalty ledger.
func NewLoyalty(repo repository.LoyaltyRepository, logger zerolog.Logger) *Loyalty {
	return &Loyalty{
		repo:   repo,
		logger: logger.With().Str("component", "loyalty_ledger").Logger(),
	}
}

// Settle applies one checkout to the user's balance. A user without a balance
// starts with the earned points; otherwise the balance becomes
// current - spent + earned, which must not be negative.
func (l *Loyalty) Settle(ctx context.Context, tx pgx.Tx, userID uuid.UUID, spent, earned int, at time.Time) (*model.LoyaltyPoint, error) {
	if spent < 0 || earned < 0 {
		return nil, model.ErrInvalidQuantity
	}

	balance, err := l.repo.GetForUpdate(ctx, tx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock loyalty balance: %w", err)
	}

	if balance == nil {
		fresh := &model.LoyaltyPoint{UserID: userID, Points: earned, UpdatedAt: at}
		created, err := l.repo.CreateIfAbsent(ctx, tx, fresh)
		if err != nil {
			return nil, fmt.Errorf("failed to create loyalty balance: %w", err)
		}
		if created {
			if spent > 0 {
				l.logger.Warn().
					Str("user_id", userID.String()).
					Int("spent", spent).
					Msg("points spent without an existing balance")
			}
			return fresh, nil
		}

		// a concurrent checkout created the row first
		balance, err = l.repo.GetForUpdate(ctx, tx, userID)
		if err != nil {
			return nil, fmt.Errorf("failed to lock loyalty balance: %w", err)
		}
		if balance == nil {
			return nil, model.ErrConcurrentModification
		}
	}

	next := balance.Points - spent + earned
	if next < 0 {
		l.logger.Info().
			Str("user_id", userID.String()).
			Int("points", balance.Points).
			Int("spent", spent).
			Msg("loyalty balance too low")
		return nil, model.ErrInsufficientPoints
	}

	balance.Points = next
	balance.UpdatedAt = at
	if err := l.repo.Update(ctx, tx, balance); err != nil {
		return nil, fmt.Errorf("failed to update loyalty balance: %w", err)
	}

	return balance, nil
}
