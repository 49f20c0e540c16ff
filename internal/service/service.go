package service

import (
	"context"
	"time"

	"storefront/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// VariantService defines read operations on the variant catalogue.
type VariantService interface {
	// GetAll retrieves variants with their current stock, with pagination.
	GetAll(ctx context.Context, limit, offset int) ([]model.Variant, error)

	// GetByID retrieves a single variant by ID.
	GetByID(ctx context.Context, id string) (*model.Variant, error)
}

// IdentityService turns a checkout caller into a registered user.
type IdentityService interface {
	// Resolve loads the authenticated user or provisions an account for a
	// guest. Guest provisioning commits before Resolve returns.
	Resolve(ctx context.Context, req model.CheckoutRequest) (*Principal, error)
}

// OrderService defines operations for order management.
type OrderService interface {
	// Checkout converts the caller's cart into an order in one transaction.
	Checkout(ctx context.Context, req model.CheckoutRequest) (*model.CheckoutResult, error)

	// AdvanceStatus records a new status for the order.
	AdvanceStatus(ctx context.Context, orderID uuid.UUID, status string) (*model.OrderStatusHistory, error)

	// ListStatusHistory returns the status history newest first.
	ListStatusHistory(ctx context.Context, orderID uuid.UUID) ([]model.OrderStatusHistory, error)

	// AmendOrder overwrites an order and its items.
	AmendOrder(ctx context.Context, orderID uuid.UUID, patch *model.OrderAmendment) (*model.OrderResponse, error)

	// GetOrder retrieves an order with its items.
	GetOrder(ctx context.Context, orderID uuid.UUID) (*model.OrderResponse, error)

	// ListOrders returns orders newest first.
	ListOrders(ctx context.Context, page model.Page) ([]model.Order, error)

	// OrderTimeline returns the orders purchased in the filter's window.
	OrderTimeline(ctx context.Context, filter TimelineFilter) ([]model.Order, error)

	// OrderHistory returns a user's orders newest first.
	OrderHistory(ctx context.Context, userID uuid.UUID) ([]model.Order, error)
}

// Principal is the resolved buyer of a checkout.
type Principal struct {
	User model.User
	// SessionID is set for guests; their cart is looked up by session.
	SessionID string
	// Created reports that the account was provisioned by this call.
	Created bool
}

// Guest reports whether the principal checks out with a session cart.
func (p *Principal) Guest() bool {
	return p.SessionID != ""
}

// InventoryReserver takes stock for a checkout. *ledger.Inventory satisfies it.
type InventoryReserver interface {
	Reserve(ctx context.Context, tx pgx.Tx, quantities map[string]int, at time.Time) error
}

// CouponRedeemer consumes one coupon redemption. *ledger.Coupons satisfies it.
type CouponRedeemer interface {
	Redeem(ctx context.Context, tx pgx.Tx, code string) (*model.Coupon, error)
}

// LoyaltySettler applies spent and earned points. *ledger.Loyalty satisfies it.
type LoyaltySettler interface {
	Settle(ctx context.Context, tx pgx.Tx, userID uuid.UUID, spent, earned int, at time.Time) (*model.LoyaltyPoint, error)
}

// CheckoutRecorder observes finished checkouts. *metrics.CheckoutMetrics satisfies it.
type CheckoutRecorder interface {
	ObserveCheckout(outcome string, guest bool, d time.Duration)
}
