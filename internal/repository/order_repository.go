package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storefront/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// orderRepository implements the OrderRepository interface using PostgreSQL.
type orderRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewOrderRepository creates a new PostgreSQL-backed order repository.
func NewOrderRepository(pool *pgxpool.Pool, logger zerolog.Logger) OrderRepository {
	return &orderRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "order").Logger(),
	}
}

const orderColumns = `id, user_id, purchase_date, total_amount, coupon_code, status,
	ward, ward_code, district, district_code, province, province_code, address_detail,
	created_at, updated_at`

func scanOrder(row pgx.Row, o *model.Order) error {
	return row.Scan(
		&o.ID,
		&o.UserID,
		&o.PurchaseDate,
		&o.TotalAmount,
		&o.CouponCode,
		&o.Status,
		&o.Shipping.Ward,
		&o.Shipping.WardCode,
		&o.Shipping.District,
		&o.Shipping.DistrictCode,
		&o.Shipping.Province,
		&o.Shipping.ProvinceCode,
		&o.Shipping.AddressDetail,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
}

// Create inserts a new order within the provided transaction.
func (r *orderRepository) Create(ctx context.Context, tx pgx.Tx, order *model.Order) error {
	query := `
		INSERT INTO orders (` + orderColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`

	s := order.Shipping
	_, err := tx.Exec(ctx, query,
		order.ID, order.UserID, order.PurchaseDate, order.TotalAmount, order.CouponCode, order.Status,
		s.Ward, s.WardCode, s.District, s.DistrictCode, s.Province, s.ProvinceCode, s.AddressDetail,
		order.CreatedAt, order.UpdatedAt,
	)
	if err != nil {
		r.logger.Error().
			Err(err).
			Str("order_id", order.ID.String()).
			Msg("failed to create order")
		return fmt.Errorf("failed to create order: %w", translateError(err))
	}

	r.logger.Debug().
		Str("order_id", order.ID.String()).
		Msg("order created successfully")

	return nil
}

// CreateItems inserts multiple order items within the provided transaction.
// Items are stored with their slice index so reads return them in the same order.
func (r *orderRepository) CreateItems(ctx context.Context, tx pgx.Tx, items []model.OrderItem) error {
	if len(items) == 0 {
		return nil
	}

	query := `
		INSERT INTO order_items (id, order_id, variant_id, variant_name, quantity, price, image, position)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	batch := &pgx.Batch{}
	for i, item := range items {
		batch.Queue(query, item.ID, item.OrderID, item.VariantID, item.VariantName, item.Quantity, item.Price, item.Image, i)
	}

	results := tx.SendBatch(ctx, batch)
	defer results.Close()

	for i := 0; i < len(items); i++ {
		_, err := results.Exec()
		if err != nil {
			r.logger.Error().
				Err(err).
				Str("order_id", items[i].OrderID.String()).
				Str("variant_id", items[i].VariantID).
				Msg("failed to create order item")
			return fmt.Errorf("failed to create order item: %w", translateError(err))
		}
	}

	r.logger.Debug().
		Int("count", len(items)).
		Msg("order items created successfully")

	return nil
}

// ReplaceItems swaps the full item list of an order.
func (r *orderRepository) ReplaceItems(ctx context.Context, tx pgx.Tx, orderID uuid.UUID, items []model.OrderItem) error {
	if _, err := tx.Exec(ctx, `DELETE FROM order_items WHERE order_id = $1`, orderID); err != nil {
		r.logger.Error().Err(err).Str("order_id", orderID.String()).Msg("failed to delete order items")
		return fmt.Errorf("failed to delete order items: %w", translateError(err))
	}
	return r.CreateItems(ctx, tx, items)
}

// AppendStatus adds a status history entry.
func (r *orderRepository) AppendStatus(ctx context.Context, tx pgx.Tx, entry *model.OrderStatusHistory) error {
	query := `
		INSERT INTO order_status_history (id, order_id, status, updated_at)
		VALUES ($1, $2, $3, $4)
	`

	_, err := tx.Exec(ctx, query, entry.ID, entry.OrderID, entry.Status, entry.UpdatedAt)
	if err != nil {
		r.logger.Error().Err(err).
			Str("order_id", entry.OrderID.String()).
			Str("status", entry.Status).
			Msg("failed to append status history")
		return fmt.Errorf("failed to append status history: %w", translateError(err))
	}

	return nil
}

// UpdateStatus sets the current status of an order.
func (r *orderRepository) UpdateStatus(ctx context.Context, tx pgx.Tx, orderID uuid.UUID, status string, at time.Time) error {
	tag, err := tx.Exec(ctx, `UPDATE orders SET status = $2, updated_at = $3 WHERE id = $1`, orderID, status, at)
	if err != nil {
		r.logger.Error().Err(err).Str("order_id", orderID.String()).Msg("failed to update order status")
		return fmt.Errorf("failed to update order status: %w", translateError(err))
	}
	if tag.RowsAffected() == 0 {
		return model.ErrOrderNotFound
	}
	return nil
}

// Update overwrites the amendable fields of an order.
func (r *orderRepository) Update(ctx context.Context, tx pgx.Tx, order *model.Order) error {
	query := `
		UPDATE orders
		SET user_id = $2, purchase_date = $3, total_amount = $4, coupon_code = $5,
			status = $6, updated_at = $7
		WHERE id = $1
	`

	tag, err := tx.Exec(ctx, query,
		order.ID, order.UserID, order.PurchaseDate, order.TotalAmount, order.CouponCode,
		order.Status, order.UpdatedAt,
	)
	if err != nil {
		r.logger.Error().Err(err).Str("order_id", order.ID.String()).Msg("failed to update order")
		return fmt.Errorf("failed to update order: %w", translateError(err))
	}
	if tag.RowsAffected() == 0 {
		return model.ErrOrderNotFound
	}

	return nil
}

// GetForUpdate locks and returns an order row.
func (r *orderRepository) GetForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*model.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1 FOR UPDATE`

	var order model.Order
	if err := scanOrder(tx.QueryRow(ctx, query, id), &order); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug().Str("order_id", id.String()).Msg("order not found")
			return nil, nil
		}
		r.logger.Error().Err(err).Str("order_id", id.String()).Msg("failed to lock order")
		return nil, fmt.Errorf("failed to lock order: %w", translateError(err))
	}

	return &order, nil
}

// GetByID retrieves an order by its ID along with its items.
func (r *orderRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Order, []model.OrderItem, error) {
	orderQuery := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	var order model.Order
	if err := scanOrder(r.pool.QueryRow(ctx, orderQuery, id), &order); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug().Str("order_id", id.String()).Msg("order not found")
			return nil, nil, nil
		}
		r.logger.Error().Err(err).Str("order_id", id.String()).Msg("failed to query order")
		return nil, nil, fmt.Errorf("failed to query order: %w", err)
	}

	itemsQuery := `
		SELECT id, order_id, variant_id, variant_name, quantity, price, image
		FROM order_items
		WHERE order_id = $1
		ORDER BY position, id
	`

	rows, err := r.pool.Query(ctx, itemsQuery, id)
	if err != nil {
		r.logger.Error().
			Err(err).
			Str("order_id", id.String()).
			Msg("failed to query order items")
		return nil, nil, fmt.Errorf("failed to query order items: %w", err)
	}
	defer rows.Close()

	var items []model.OrderItem
	for rows.Next() {
		var item model.OrderItem
		err := rows.Scan(&item.ID, &item.OrderID, &item.VariantID, &item.VariantName, &item.Quantity, &item.Price, &item.Image)
		if err != nil {
			r.logger.Error().Err(err).Msg("failed to scan order item row")
			return nil, nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating order item rows")
		return nil, nil, fmt.Errorf("error iterating order items: %w", err)
	}

	return &order, items, nil
}

// ListStatusHistory returns the history of an order, newest first. Entries
// sharing a timestamp are ordered by insertion sequence.
func (r *orderRepository) ListStatusHistory(ctx context.Context, orderID uuid.UUID) ([]model.OrderStatusHistory, error) {
	query := `
		SELECT id, order_id, status, updated_at
		FROM order_status_history
		WHERE order_id = $1
		ORDER BY updated_at DESC, seq DESC
	`

	rows, err := r.pool.Query(ctx, query, orderID)
	if err != nil {
		r.logger.Error().Err(err).Str("order_id", orderID.String()).Msg("failed to query status history")
		return nil, fmt.Errorf("failed to query status history: %w", err)
	}
	defer rows.Close()

	history := []model.OrderStatusHistory{}
	for rows.Next() {
		var h model.OrderStatusHistory
		if err := rows.Scan(&h.ID, &h.OrderID, &h.Status, &h.UpdatedAt); err != nil {
			r.logger.Error().Err(err).Msg("failed to scan status history row")
			return nil, fmt.Errorf("failed to scan status history: %w", err)
		}
		history = append(history, h)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating status history: %w", err)
	}

	return history, nil
}

// List returns orders newest first.
func (r *orderRepository) List(ctx context.Context, page model.Page) ([]model.Order, error) {
	query := `SELECT ` + orderColumns + `
		FROM orders
		ORDER BY purchase_date DESC, id
		LIMIT $1 OFFSET $2
	`
	return r.queryOrders(ctx, query, page.Limit, page.Offset)
}

// ListByPurchaseDate returns orders purchased in [start, end).
func (r *orderRepository) ListByPurchaseDate(ctx context.Context, start, end time.Time, page model.Page) ([]model.Order, error) {
	query := `SELECT ` + orderColumns + `
		FROM orders
		WHERE purchase_date >= $1 AND purchase_date < $2
		ORDER BY purchase_date DESC, id
		LIMIT $3 OFFSET $4
	`
	return r.queryOrders(ctx, query, start, end, page.Limit, page.Offset)
}

// ListByUser returns every order placed by the user, newest first.
func (r *orderRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]model.Order, error) {
	query := `SELECT ` + orderColumns + `
		FROM orders
		WHERE user_id = $1
		ORDER BY purchase_date DESC, id
	`
	return r.queryOrders(ctx, query, userID)
}

func (r *orderRepository) queryOrders(ctx context.Context, query string, args ...any) ([]model.Order, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to query orders")
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	orders := []model.Order{}
	for rows.Next() {
		var o model.Order
		if err := scanOrder(rows, &o); err != nil {
			r.logger.Error().Err(err).Msg("failed to scan order row")
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, o)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating order rows")
		return nil, fmt.Errorf("error iterating orders: %w", err)
	}

	return orders, nil
}
