package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Cart is owned by a registered user or an anonymous session, never both.
type Cart struct {
	ID                 uuid.UUID  `json:"id" db:"id"`
	UserID             *uuid.UUID `json:"userId,omitempty" db:"user_id"`
	SessionID          *string    `json:"sessionId,omitempty" db:"session_id"`
	CouponCode         *string    `json:"couponCode,omitempty" db:"coupon_code"`
	LoyaltyPointsSpent int        `json:"loyaltyPointsSpent" db:"loyalty_points_spent"`
	CreatedAt          time.Time  `json:"createdAt" db:"created_at"`
}

// CartItem is a cart line priced at add time.
type CartItem struct {
	ID          uuid.UUID       `json:"id" db:"id"`
	CartID      uuid.UUID       `json:"-" db:"cart_id"`
	VariantID   string          `json:"variantId" db:"variant_id"`
	VariantName string          `json:"variantName" db:"variant_name"`
	Image       string          `json:"image" db:"image"`
	Quantity    int             `json:"quantity" db:"quantity"`
	Price       decimal.Decimal `json:"price" db:"price"`
}

// CartSnapshot is a read-only view of a cart at the moment of checkout.
type CartSnapshot struct {
	Cart   Cart
	Items  []CartItem
	Coupon *Coupon
}

// HasCoupon reports whether a coupon was applied to the cart.
func (s CartSnapshot) HasCoupon() bool {
	return s.Coupon != nil
}

// Quantities returns the requested quantity per variant, merging lines that
// reference the same variant.
func (s CartSnapshot) Quantities() map[string]int {
	quantities := make(map[string]int, len(s.Items))
	for _, item := range s.Items {
		quantities[item.VariantID] += item.Quantity
	}
	return quantities
}
