package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Inventory tracks the stock of a single variant.
type Inventory struct {
	VariantID string    `json:"variantId" db:"variant_id"`
	Quantity  int       `json:"quantity" db:"quantity"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// Coupon is a redeemable discount with a limited number of uses.
type Coupon struct {
	Code          string          `json:"code" db:"code"`
	DiscountPrice decimal.Decimal `json:"discountPrice" db:"discount_price"`
	Quantity      int             `json:"quantity" db:"quantity"`
}

// LoyaltyPoint is a user's point balance.
type LoyaltyPoint struct {
	UserID    uuid.UUID `json:"userId" db:"user_id"`
	Points    int       `json:"points" db:"points"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}
