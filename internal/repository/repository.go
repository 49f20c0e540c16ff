package repository

import (
	"context"
	"time"

	"storefront/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Transactor starts database transactions.
type Transactor interface {
	// BeginTx starts a transaction whose lock waits are bounded by the
	// configured lock timeout.
	BeginTx(ctx context.Context) (pgx.Tx, error)
}

// UserRepository defines the data access operations for accounts.
type UserRepository interface {
	// GetByID returns nil, nil when the user does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)

	// GetByEmail returns nil, nil when no account uses the email.
	GetByEmail(ctx context.Context, tx pgx.Tx, email string) (*model.User, error)

	// Create inserts a user. A duplicate email yields model.ErrEmailRegistered.
	Create(ctx context.Context, tx pgx.Tx, user *model.User) error

	// AssignRole links the user to a role. An unknown role yields model.ErrRoleNotFound.
	AssignRole(ctx context.Context, tx pgx.Tx, userID uuid.UUID, role string) error
}

// AddressRepository defines the data access operations for address books.
type AddressRepository interface {
	Create(ctx context.Context, tx pgx.Tx, address *model.Address) error

	// GetDefault returns nil, nil when the user has no default address.
	GetDefault(ctx context.Context, tx pgx.Tx, userID uuid.UUID) (*model.Address, error)
}

// CartRepository defines the data access operations for carts.
type CartRepository interface {
	// GetByUserID locks and returns the user's cart, or nil, nil.
	GetByUserID(ctx context.Context, tx pgx.Tx, userID uuid.UUID) (*model.Cart, error)

	// GetBySessionID locks and returns the session's cart, or nil, nil.
	GetBySessionID(ctx context.Context, tx pgx.Tx, sessionID string) (*model.Cart, error)

	// GetItems returns the cart lines in insertion order.
	GetItems(ctx context.Context, tx pgx.Tx, cartID uuid.UUID) ([]model.CartItem, error)

	// Delete removes the cart and its items and reports how many carts were deleted.
	Delete(ctx context.Context, tx pgx.Tx, cartID uuid.UUID) (int64, error)
}

// VariantRepository defines the data access operations for product variants.
type VariantRepository interface {
	// GetAll retrieves variants with their stock, with pagination support.
	GetAll(ctx context.Context, limit, offset int) ([]model.Variant, error)

	// GetByID returns nil, nil when the variant does not exist.
	GetByID(ctx context.Context, id string) (*model.Variant, error)

	// GetByIDs retrieves the variants that exist among ids.
	GetByIDs(ctx context.Context, ids []string) ([]model.Variant, error)
}

// InventoryRepository defines the stock operations used by the inventory ledger.
type InventoryRepository interface {
	// LockForUpdate locks the inventory rows of the given variants in ascending
	// variant id order. Variants without a row are absent from the result.
	LockForUpdate(ctx context.Context, tx pgx.Tx, variantIDs []string) ([]model.Inventory, error)

	// SetQuantities writes the new stock levels of already locked rows.
	SetQuantities(ctx context.Context, tx pgx.Tx, rows []model.Inventory) error
}

// CouponRepository defines the data access operations for coupons.
type CouponRepository interface {
	// GetByCode returns nil, nil when the coupon does not exist.
	GetByCode(ctx context.Context, tx pgx.Tx, code string) (*model.Coupon, error)

	// GetByCodeForUpdate locks the coupon row. Returns nil, nil when it does not exist.
	GetByCodeForUpdate(ctx context.Context, tx pgx.Tx, code string) (*model.Coupon, error)

	// Decrement lowers the remaining redemptions by one.
	Decrement(ctx context.Context, tx pgx.Tx, code string) error

	// Upsert inserts or replaces catalogue entries and returns how many were written.
	Upsert(ctx context.Context, coupons []model.Coupon) (int, error)
}

// LoyaltyRepository defines the data access operations for loyalty balances.
type LoyaltyRepository interface {
	// GetForUpdate locks the balance row. Returns nil, nil when there is none.
	GetForUpdate(ctx context.Context, tx pgx.Tx, userID uuid.UUID) (*model.LoyaltyPoint, error)

	// CreateIfAbsent inserts the balance and reports false if a row already existed.
	CreateIfAbsent(ctx context.Context, tx pgx.Tx, balance *model.LoyaltyPoint) (bool, error)

	// Update overwrites the points of a locked balance row.
	Update(ctx context.Context, tx pgx.Tx, balance *model.LoyaltyPoint) error
}

// OrderRepository defines the interface for order data access operations.
type OrderRepository interface {
	// Create inserts a new order within the provided transaction.
	Create(ctx context.Context, tx pgx.Tx, order *model.Order) error

	// CreateItems inserts multiple order items within the provided transaction.
	CreateItems(ctx context.Context, tx pgx.Tx, items []model.OrderItem) error

	// ReplaceItems deletes every item of the order and inserts the given ones.
	ReplaceItems(ctx context.Context, tx pgx.Tx, orderID uuid.UUID, items []model.OrderItem) error

	// AppendStatus adds a status history entry.
	AppendStatus(ctx context.Context, tx pgx.Tx, entry *model.OrderStatusHistory) error

	// UpdateStatus sets the current status of an order.
	UpdateStatus(ctx context.Context, tx pgx.Tx, orderID uuid.UUID, status string, at time.Time) error

	// Update overwrites the amendable fields of an order.
	Update(ctx context.Context, tx pgx.Tx, order *model.Order) error

	// GetForUpdate locks the order row. Returns nil, nil when it does not exist.
	GetForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*model.Order, error)

	// GetByID retrieves an order by its ID along with its items.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Order, []model.OrderItem, error)

	// ListStatusHistory returns the history newest first.
	ListStatusHistory(ctx context.Context, orderID uuid.UUID) ([]model.OrderStatusHistory, error)

	// List returns orders newest first.
	List(ctx context.Context, page model.Page) ([]model.Order, error)

	// ListByPurchaseDate returns orders purchased in [start, end), newest first.
	ListByPurchaseDate(ctx context.Context, start, end time.Time, page model.Page) ([]model.Order, error)

	// ListByUser returns a user's orders sorted by purchase date, newest first.
	ListByUser(ctx context.Context, userID uuid.UUID) ([]model.Order, error)
}
