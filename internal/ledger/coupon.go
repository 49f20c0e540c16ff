package ledger

import (
	"context"
	"fmt"

	"storefront/internal/model"
	"storefront/internal/repository"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// Coupons tracks coupon redemptions.
type Coupons struct {
	repo   repository.CouponRepository
	logger zerolog.Logger
}

// NewCoupons creates a coupon ledger.
func NewCoupons(repo repository.CouponRepository, logger zerolog.Logger) *Coupons {
	return &Coupons{
		repo:   repo,
		logger: logger.With().Str("component", "coupon_ledger").Logger(),
	}
}

// Redeem locks the coupon and consumes one redemption. A coupon with no
// redemptions left is rejected.
func (l *Coupons) Redeem(ctx context.Context, tx pgx.Tx, code string) (*model.Coupon, error) {
	coupon, err := l.repo.GetByCodeForUpdate(ctx, tx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to lock coupon: %w", err)
	}
	if coupon == nil {
		return nil, model.ErrCouponNotFound
	}

	if coupon.Quantity <= 0 {
		l.logger.Info().Str("coupon_code", code).Msg("coupon exhausted")
		return nil, model.ErrCouponExhausted
	}

	if err := l.repo.Decrement(ctx, tx, code); err != nil {
		return nil, fmt.Errorf("failed to redeem coupon: %w", err)
	}

	coupon.Quantity--
	return coupon, nil
}
