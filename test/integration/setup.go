// Package integration exercises the checkout stack end to end against a
// PostgreSQL test container.
package integration

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"storefront/internal/database"
	"storefront/internal/handler"
	"storefront/internal/ledger"
	"storefront/internal/metrics"
	"storefront/internal/model"
	"storefront/internal/pricing"
	"storefront/internal/repository"
	"storefront/internal/router"
	"storefront/internal/service"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	TestAPIKey    = "integration-api-key"
	TestJWTSecret = "integration-secret"
	TestJWTIssuer = "storefront"
)

// TestDB represents a test database instance.
type TestDB struct {
	Container *postgres.PostgresContainer
	Pool      *pgxpool.Pool
	ConnStr   string
}

// SetupTestDB creates a PostgreSQL test container with the migrated schema.
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}

	ctx := context.Background()

	postgresContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	connStr, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get connection string: %v", err)
	}

	poolConfig, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		t.Fatalf("failed to parse connection string: %v", err)
	}
	poolConfig.MaxConns = 20

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		t.Fatalf("failed to create connection pool: %v", err)
	}

	if err := pool.Ping(ctx); err != nil {
		t.Fatalf("failed to ping database: %v", err)
	}

	if err := database.Migrate(ctx, pool, "up", zerolog.Nop()); err != nil {
		t.Fatalf("failed to migrate schema: %v", err)
	}

	t.Cleanup(func() {
		pool.Close()
		if err := postgresContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	return &TestDB{
		Container: postgresContainer,
		Pool:      pool,
		ConnStr:   connStr,
	}
}

// Notification is one message captured by RecordingGateway.
type Notification struct {
	Kind     string
	Email    string
	Password string
	OrderID  uuid.UUID
}

// RecordingGateway captures notifications instead of sending them.
type RecordingGateway struct {
	mu   sync.Mutex
	sent []Notification
}

func (g *RecordingGateway) AccountCreated(email, tempPassword string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.sent = append(g.sent, Notification{Kind: "account_created", Email: email, Password: tempPassword})
}

func (g *RecordingGateway) OrderConfirmed(email string, order model.Order, _ []model.OrderItem) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.sent = append(g.sent, Notification{Kind: "order_confirmed", Email: email, OrderID: order.ID})
}

// Sent returns a copy of the captured notifications of kind.
func (g *RecordingGateway) Sent(kind string) []Notification {
	g.mu.Lock()
	defer g.mu.Unlock()
	var out []Notification
	for _, n := range g.sent {
		if n.Kind == kind {
			out = append(out, n)
		}
	}
	return out
}

// TestApp is the fully wired service graph over a test database.
type TestApp struct {
	DB       *TestDB
	Orders   service.OrderService
	Gateway  *RecordingGateway
	Registry *prometheus.Registry
	Handler  http.Handler
}

// NewTestApp wires repositories, ledgers, services and the router the same way
// cmd/api does, with notifications captured in memory.
func NewTestApp(t *testing.T, testDB *TestDB) *TestApp {
	t.Helper()

	logger := zerolog.Nop()
	pool := testDB.Pool
	gateway := &RecordingGateway{}
	registry := prometheus.NewRegistry()

	transactor := repository.NewTransactor(pool, 5*time.Second, logger)
	userRepo := repository.NewUserRepository(pool, logger)
	addressRepo := repository.NewAddressRepository(pool, logger)
	cartRepo := repository.NewCartRepository(pool, logger)
	couponRepo := repository.NewCouponRepository(pool, logger)
	variantRepo := repository.NewVariantRepository(pool, logger)

	identity := service.NewIdentityService(service.IdentityDeps{
		Transactor: transactor,
		Users:      userRepo,
		Addresses:  addressRepo,
		Carts:      cartRepo,
		Gateway:    gateway,
	}, logger)

	orders := service.NewOrderService(service.OrderDeps{
		Transactor: transactor,
		Users:      userRepo,
		Addresses:  addressRepo,
		Carts:      cartRepo,
		Coupons:    couponRepo,
		Orders:     repository.NewOrderRepository(pool, logger),
		Variants:   variantRepo,
		Identity:   identity,
		Pricing:    pricing.NewEngine(logger),
		Inventory:  ledger.NewInventory(repository.NewInventoryRepository(pool, logger), logger),
		Redeemer:   ledger.NewCoupons(couponRepo, logger),
		Loyalty:    ledger.NewLoyalty(repository.NewLoyaltyRepository(pool, logger), logger),
		Gateway:    gateway,
		Metrics:    metrics.NewCheckoutMetrics(registry),
		Location:   time.UTC,
	}, logger)

	h := router.New(router.Handlers{
		Variants: handler.NewVariantHandler(service.NewVariantService(variantRepo, logger), logger),
		Orders:   handler.NewOrderHandler(orders, logger),
		Checkout: handler.NewCheckoutHandler(orders, logger),
	}, router.Options{
		APIKey:    TestAPIKey,
		JWTSecret: TestJWTSecret,
		JWTIssuer: TestJWTIssuer,
		Gatherer:  registry,
	}, logger)

	return &TestApp{
		DB:       testDB,
		Orders:   orders,
		Gateway:  gateway,
		Registry: registry,
		Handler:  h,
	}
}

// SeedVariant inserts a variant with one image and the given stock.
func SeedVariant(t *testing.T, pool *pgxpool.Pool, id string, stock int) {
	t.Helper()
	mustExec(t, pool, `INSERT INTO product_variants (id, product_name, variant_name) VALUES ($1, $2, $3)`,
		id, "Product "+id, "Variant "+id)
	mustExec(t, pool, `INSERT INTO variant_images (variant_id, url, position) VALUES ($1, $2, 0)`,
		id, fmt.Sprintf("https://cdn.example.com/%s.png", id))
	mustExec(t, pool, `INSERT INTO inventory (variant_id, quantity) VALUES ($1, $2)`, id, stock)
}

// SeedCoupon inserts a coupon.
func SeedCoupon(t *testing.T, pool *pgxpool.Pool, code, discount string, quantity int) {
	t.Helper()
	mustExec(t, pool, `INSERT INTO coupons (code, discount_price, quantity) VALUES ($1, $2, $3)`,
		code, decimal.RequireFromString(discount), quantity)
}

// SeedUser inserts a registered user with a default address and returns its id.
func SeedUser(t *testing.T, pool *pgxpool.Pool, email string) uuid.UUID {
	t.Helper()
	id := uuid.New()
	mustExec(t, pool, `INSERT INTO users (id, email, full_name, password_hash) VALUES ($1, $2, 'Registered User', 'x')`,
		id, email)
	mustExec(t, pool, `INSERT INTO user_roles (user_id, role_name) VALUES ($1, $2)`, id, model.RoleUser)
	mustExec(t, pool, `INSERT INTO addresses (id, user_id, is_default, district, province, address_detail)
		VALUES ($1, $2, TRUE, 'District 3', 'Ho Chi Minh', '1 Vo Van Tan')`, uuid.New(), id)
	return id
}

// SeedLoyalty sets a user's point balance.
func SeedLoyalty(t *testing.T, pool *pgxpool.Pool, userID uuid.UUID, points int) {
	t.Helper()
	mustExec(t, pool, `INSERT INTO loyalty_points (user_id, points) VALUES ($1, $2)`, userID, points)
}

// CartLine is one seeded cart item.
type CartLine struct {
	VariantID string
	Quantity  int
	Price     string
}

// CartSpec describes a cart to seed. Exactly one of UserID or SessionID is set.
type CartSpec struct {
	UserID      uuid.UUID
	SessionID   string
	CouponCode  string
	PointsSpent int
	Lines       []CartLine
}

// SeedCart inserts a cart with its items and returns the cart id.
func SeedCart(t *testing.T, pool *pgxpool.Pool, c CartSpec) uuid.UUID {
	t.Helper()
	cartID := uuid.New()

	var userID *uuid.UUID
	var sessionID, couponCode *string
	if c.UserID != uuid.Nil {
		userID = &c.UserID
	}
	if c.SessionID != "" {
		sessionID = &c.SessionID
	}
	if c.CouponCode != "" {
		couponCode = &c.CouponCode
	}

	mustExec(t, pool, `INSERT INTO carts (id, user_id, session_id, coupon_code, loyalty_points_spent) VALUES ($1, $2, $3, $4, $5)`,
		cartID, userID, sessionID, couponCode, c.PointsSpent)

	for _, line := range c.Lines {
		mustExec(t, pool, `INSERT INTO cart_items (id, cart_id, variant_id, quantity, price) VALUES ($1, $2, $3, $4, $5)`,
			uuid.New(), cartID, line.VariantID, line.Quantity, decimal.RequireFromString(line.Price))
	}

	return cartID
}

// Stock returns the on-hand quantity of a variant.
func Stock(t *testing.T, pool *pgxpool.Pool, variantID string) int {
	t.Helper()
	return queryInt(t, pool, `SELECT quantity FROM inventory WHERE variant_id = $1`, variantID)
}

// CouponQuantity returns the remaining redemptions of a coupon.
func CouponQuantity(t *testing.T, pool *pgxpool.Pool, code string) int {
	t.Helper()
	return queryInt(t, pool, `SELECT quantity FROM coupons WHERE code = $1`, code)
}

// LoyaltyBalance returns a user's points, or -1 when no balance row exists.
func LoyaltyBalance(t *testing.T, pool *pgxpool.Pool, userID uuid.UUID) int {
	t.Helper()
	return queryInt(t, pool, `SELECT COALESCE((SELECT points FROM loyalty_points WHERE user_id = $1), -1)`, userID)
}

// Count returns the row count of a table.
func Count(t *testing.T, pool *pgxpool.Pool, table string) int {
	t.Helper()
	return queryInt(t, pool, fmt.Sprintf(`SELECT COUNT(*) FROM %s`, table))
}

// CleanupDB removes all rows written by a test, keeping the seeded roles.
func CleanupDB(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()

	tables := []string{
		"order_status_history", "order_items", "orders", "cart_items", "carts",
		"loyalty_points", "coupons", "inventory", "variant_images", "product_variants",
		"addresses", "user_roles", "users",
	}
	for _, table := range tables {
		if _, err := pool.Exec(context.Background(), fmt.Sprintf("DELETE FROM %s", table)); err != nil {
			t.Logf("failed to clean table %s: %v", table, err)
		}
	}
}

func mustExec(t *testing.T, pool *pgxpool.Pool, query string, args ...any) {
	t.Helper()
	if _, err := pool.Exec(context.Background(), query, args...); err != nil {
		t.Fatalf("seed failed: %v", err)
	}
}

func queryInt(t *testing.T, pool *pgxpool.Pool, query string, args ...any) int {
	t.Helper()
	var n int
	if err := pool.QueryRow(context.Background(), query, args...).Scan(&n); err != nil {
		t.Fatalf("query failed: %v", err)
	}
	return n
}
