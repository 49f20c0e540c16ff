package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// StatusPending is the status every order starts in. The status vocabulary is
// otherwise open: any non-empty string may follow any other.
const StatusPending = "Pending"

// ShippingAddress is the address snapshot copied onto an order at checkout.
type ShippingAddress struct {
	Ward          string `json:"ward" db:"ward"`
	WardCode      string `json:"wardCode" db:"ward_code"`
	District      string `json:"district" db:"district"`
	DistrictCode  string `json:"districtCode" db:"district_code"`
	Province      string `json:"province" db:"province"`
	ProvinceCode  string `json:"provinceCode" db:"province_code"`
	AddressDetail string `json:"addressDetail" db:"address_detail"`
}

// Order represents a committed customer order.
type Order struct {
	ID           uuid.UUID       `json:"id" db:"id"`
	UserID       uuid.UUID       `json:"userId" db:"user_id"`
	PurchaseDate time.Time       `json:"purchaseDate" db:"purchase_date"`
	TotalAmount  decimal.Decimal `json:"totalAmount" db:"total_amount"`
	CouponCode   string          `json:"couponCode" db:"coupon_code"`
	Status       string          `json:"status" db:"status"`
	Shipping     ShippingAddress `json:"shipping"`
	CreatedAt    time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time       `json:"updatedAt" db:"updated_at"`
}

// OrderItem is the denormalized snapshot of a purchased cart line.
type OrderItem struct {
	ID          uuid.UUID       `json:"id" db:"id"`
	OrderID     uuid.UUID       `json:"-" db:"order_id"`
	VariantID   string          `json:"variantId" db:"variant_id"`
	VariantName string          `json:"variantName" db:"variant_name"`
	Quantity    int             `json:"quantity" db:"quantity"`
	Price       decimal.Decimal `json:"price" db:"price"`
	Image       string          `json:"image" db:"image"`
}

// OrderStatusHistory is an append-only status log entry.
type OrderStatusHistory struct {
	ID        uuid.UUID `json:"-" db:"id"`
	OrderID   uuid.UUID `json:"-" db:"order_id"`
	Status    string    `json:"status" db:"status"`
	UpdatedAt time.Time `json:"updateAt" db:"updated_at"`
}

// OrderResponse represents the response payload for an order.
type OrderResponse struct {
	Order
	FullName string      `json:"fullName,omitempty"`
	Items    []OrderItem `json:"items"`
}

// CheckoutRequest carries everything the checkout workflow needs. Exactly one
// of Identity or Guest must be set.
type CheckoutRequest struct {
	Identity *Identity
	Guest    *GuestCheckout
}

// Identity is an already authenticated caller.
type Identity struct {
	UserID uuid.UUID
}

// GuestCheckout is an anonymous caller buying from a session cart.
type GuestCheckout struct {
	SessionID string          `json:"sessionId"`
	Email     string          `json:"email" validate:"required,email"`
	FullName  string          `json:"fullName" validate:"required"`
	Address   ShippingAddress `json:"address"`
}

// CheckoutResult is what a committed checkout returns.
type CheckoutResult struct {
	Order        Order           `json:"order"`
	Items        []OrderItem     `json:"items"`
	Subtotal     decimal.Decimal `json:"subtotal"`
	Discount     decimal.Decimal `json:"discount"`
	PointsSpent  int             `json:"pointsSpent"`
	PointsEarned int             `json:"pointsEarned"`
	GuestCreated bool            `json:"guestCreated"`
}

// OrderAmendment is the administrative overwrite applied by AmendOrder.
type OrderAmendment struct {
	UserID       uuid.UUID            `json:"userId" validate:"required"`
	PurchaseDate time.Time            `json:"purchaseDate" validate:"required"`
	TotalAmount  decimal.Decimal      `json:"totalAmount"`
	CouponCode   string               `json:"couponCode"`
	Status       string               `json:"status" validate:"required"`
	Items        []OrderItemAmendment `json:"items" validate:"dive"`
}

// OrderItemAmendment replaces one order line.
type OrderItemAmendment struct {
	VariantID string          `json:"variantId" validate:"required"`
	Quantity  int             `json:"quantity" validate:"gt=0"`
	Price     decimal.Decimal `json:"price"`
}

// Page bounds list queries.
type Page struct {
	Limit  int
	Offset int
}
