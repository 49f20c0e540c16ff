// Package pricing computes checkout totals from a cart snapshot.
package pricing

import (
	"storefront/internal/model"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// EarnRate is the share of the subtotal credited back as loyalty points.
var EarnRate = decimal.RequireFromString("0.10")

// Quote is the priced form of a cart.
type Quote struct {
	Subtotal     decimal.Decimal
	Discount     decimal.Decimal
	PointsSpent  int
	Total        decimal.Decimal
	PointsEarned int
}

// Engine prices cart snapshots.
type Engine struct {
	logger zerolog.Logger
}

// NewEngine creates a pricing engine.
func NewEngine(logger zerolog.Logger) *Engine {
	return &Engine{logger: logger.With().Str("component", "pricing").Logger()}
}

// Quote prices the snapshot. Each spent loyalty point is worth one currency
// unit. The total is not clamped: a discount larger than the subtotal yields a
// negative total.
func (e *Engine) Quote(snapshot model.CartSnapshot) (Quote, error) {
	if len(snapshot.Items) == 0 {
		return Quote{}, model.ErrEmptyCart
	}

	subtotal := decimal.Zero
	for _, item := range snapshot.Items {
		if item.Quantity < 1 {
			return Quote{}, model.ErrInvalidQuantity
		}
		subtotal = subtotal.Add(item.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}

	discount := decimal.Zero
	if snapshot.HasCoupon() {
		discount = snapshot.Coupon.DiscountPrice
	}

	spent := snapshot.Cart.LoyaltyPointsSpent
	total := subtotal.Sub(discount).Sub(decimal.NewFromInt(int64(spent)))

	q := Quote{
		Subtotal:     subtotal,
		Discount:     discount,
		PointsSpent:  spent,
		Total:        total,
		PointsEarned: EarnedPoints(subtotal),
	}

	if total.IsNegative() {
		e.logger.Warn().
			Str("cart_id", snapshot.Cart.ID.String()).
			Str("subtotal", subtotal.StringFixed(2)).
			Str("total", total.StringFixed(2)).
			Msg("discounts exceed subtotal, final amount is negative")
	}

	return q, nil
}

// EarnedPoints returns floor(subtotal × EarnRate), never less than zero.
func EarnedPoints(subtotal decimal.Decimal) int {
	earned := subtotal.Mul(EarnRate).Floor()
	if earned.IsNegative() {
		return 0
	}
	return int(earned.IntPart())
}
