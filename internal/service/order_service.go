package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"storefront/internal/metrics"
	"storefront/internal/model"
	"storefront/internal/notification"
	"storefront/internal/pricing"
	"storefront/internal/repository"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// OrderDeps groups the collaborators of the order service.
type OrderDeps struct {
	Transactor repository.Transactor
	Users      repository.UserRepository
	Addresses  repository.AddressRepository
	Carts      repository.CartRepository
	Coupons    repository.CouponRepository
	Orders     repository.OrderRepository
	Variants   repository.VariantRepository

	Identity  IdentityService
	Pricing   *pricing.Engine
	Inventory InventoryReserver
	Redeemer  CouponRedeemer
	Loyalty   LoyaltySettler
	Gateway   notification.Gateway
	Metrics   CheckoutRecorder

	Clock    func() time.Time
	Location *time.Location
}

// orderService implements OrderService.
type orderService struct {
	deps   OrderDeps
	now    func() time.Time
	loc    *time.Location
	logger zerolog.Logger
}

// NewOrderService creates a new order service.
func NewOrderService(deps OrderDeps, logger zerolog.Logger) OrderService {
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	if deps.Location == nil {
		deps.Location = time.UTC
	}
	if deps.Pricing == nil {
		deps.Pricing = pricing.NewEngine(logger)
	}
	return &orderService{
		deps:   deps,
		now:    deps.Clock,
		loc:    deps.Location,
		logger: logger.With().Str("service", "order").Logger(),
	}
}

// Checkout resolves the buyer and converts their cart into a Pending order.
// Everything after identity resolution runs in one transaction; the
// confirmation email is scheduled only once it has committed.
func (s *orderService) Checkout(ctx context.Context, req model.CheckoutRequest) (result *model.CheckoutResult, err error) {
	started := time.Now()
	defer func() {
		if s.deps.Metrics != nil {
			s.deps.Metrics.ObserveCheckout(checkoutOutcome(err), req.Guest != nil, time.Since(started))
		}
	}()

	principal, err := s.deps.Identity.Resolve(ctx, req)
	if err != nil {
		s.logger.Warn().Err(err).Bool("guest", req.Guest != nil).Msg("checkout identity rejected")
		return nil, err
	}

	result, err = s.placeOrder(ctx, principal)
	if err != nil {
		s.logger.Warn().
			Err(err).
			Str("user_id", principal.User.ID.String()).
			Msg("checkout failed")
		return nil, err
	}
	result.GuestCreated = principal.Created

	s.deps.Gateway.OrderConfirmed(principal.User.Email, result.Order, result.Items)

	s.logger.Info().
		Str("order_id", result.Order.ID.String()).
		Str("user_id", principal.User.ID.String()).
		Str("total", result.Order.TotalAmount.StringFixed(2)).
		Int("item_count", len(result.Items)).
		Msg("checkout completed")

	return result, nil
}

func (s *orderService) placeOrder(ctx context.Context, principal *Principal) (result *model.CheckoutResult, err error) {
	tx, err := s.deps.Transactor.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to start checkout: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				s.logger.Error().Err(rbErr).Msg("failed to rollback transaction")
			}
		}
	}()

	snapshot, err := s.loadSnapshot(ctx, tx, principal)
	if err != nil {
		return nil, err
	}

	quote, err := s.deps.Pricing.Quote(*snapshot)
	if err != nil {
		return nil, err
	}

	var shipping model.ShippingAddress
	address, err := s.deps.Addresses.GetDefault(ctx, tx, principal.User.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load default address: %w", err)
	}
	if address != nil {
		shipping = address.ShippingAddress
	}

	now := s.now()
	order := model.Order{
		ID:           uuid.New(),
		UserID:       principal.User.ID,
		PurchaseDate: now,
		TotalAmount:  quote.Total,
		Status:       model.StatusPending,
		Shipping:     shipping,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if snapshot.HasCoupon() {
		order.CouponCode = snapshot.Coupon.Code
	}

	if err = s.deps.Orders.Create(ctx, tx, &order); err != nil {
		return nil, err
	}
	if err = s.deps.Orders.AppendStatus(ctx, tx, &model.OrderStatusHistory{
		ID:        uuid.New(),
		OrderID:   order.ID,
		Status:    model.StatusPending,
		UpdatedAt: now,
	}); err != nil {
		return nil, err
	}

	items := make([]model.OrderItem, len(snapshot.Items))
	for i, line := range snapshot.Items {
		items[i] = model.OrderItem{
			ID:          uuid.New(),
			OrderID:     order.ID,
			VariantID:   line.VariantID,
			VariantName: line.VariantName,
			Quantity:    line.Quantity,
			Price:       line.Price,
			Image:       line.Image,
		}
	}
	if err = s.deps.Orders.CreateItems(ctx, tx, items); err != nil {
		return nil, err
	}

	if _, err = s.deps.Loyalty.Settle(ctx, tx, principal.User.ID, quote.PointsSpent, quote.PointsEarned, now); err != nil {
		return nil, err
	}
	if snapshot.HasCoupon() {
		if _, err = s.deps.Redeemer.Redeem(ctx, tx, snapshot.Coupon.Code); err != nil {
			return nil, err
		}
	}

	if err = s.deps.Inventory.Reserve(ctx, tx, snapshot.Quantities(), now); err != nil {
		return nil, err
	}

	deleted, err := s.deps.Carts.Delete(ctx, tx, snapshot.Cart.ID)
	if err != nil {
		return nil, err
	}
	if deleted == 0 {
		err = model.ErrCartAlreadyCheckedOut
		return nil, err
	}

	if err = tx.Commit(ctx); err != nil {
		s.logger.Error().Err(err).Str("order_id", order.ID.String()).Msg("failed to commit checkout")
		return nil, fmt.Errorf("failed to commit checkout: %w", err)
	}

	return &model.CheckoutResult{
		Order:        order,
		Items:        items,
		Subtotal:     quote.Subtotal,
		Discount:     quote.Discount,
		PointsSpent:  quote.PointsSpent,
		PointsEarned: quote.PointsEarned,
	}, nil
}

// loadSnapshot locks the buyer's cart and reads its lines and coupon.
func (s *orderService) loadSnapshot(ctx context.Context, tx pgx.Tx, principal *Principal) (*model.CartSnapshot, error) {
	var (
		cart *model.Cart
		err  error
	)
	if principal.Guest() {
		cart, err = s.deps.Carts.GetBySessionID(ctx, tx, principal.SessionID)
	} else {
		cart, err = s.deps.Carts.GetByUserID(ctx, tx, principal.User.ID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}
	if cart == nil {
		return nil, model.ErrCartNotFound
	}

	items, err := s.deps.Carts.GetItems(ctx, tx, cart.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load cart items: %w", err)
	}
	if len(items) == 0 {
		return nil, model.ErrEmptyCart
	}

	snapshot := &model.CartSnapshot{Cart: *cart, Items: items}
	if cart.CouponCode != nil && *cart.CouponCode != "" {
		coupon, err := s.deps.Coupons.GetByCode(ctx, tx, *cart.CouponCode)
		if err != nil {
			return nil, fmt.Errorf("failed to load coupon: %w", err)
		}
		if coupon == nil {
			return nil, model.ErrCouponNotFound
		}
		snapshot.Coupon = coupon
	}

	return snapshot, nil
}

// AdvanceStatus appends a history entry and makes it the order's status.
func (s *orderService) AdvanceStatus(ctx context.Context, orderID uuid.UUID, status string) (entry *model.OrderStatusHistory, err error) {
	status = strings.TrimSpace(status)
	if status == "" {
		return nil, model.ErrInvalidStatus
	}

	tx, err := s.deps.Transactor.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to update status: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				s.logger.Error().Err(rbErr).Msg("failed to rollback transaction")
			}
		}
	}()

	order, err := s.deps.Orders.GetForUpdate(ctx, tx, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		err = model.ErrOrderNotFound
		return nil, err
	}

	now := s.now()
	entry = &model.OrderStatusHistory{
		ID:        uuid.New(),
		OrderID:   orderID,
		Status:    status,
		UpdatedAt: now,
	}
	if err = s.deps.Orders.AppendStatus(ctx, tx, entry); err != nil {
		return nil, err
	}
	if err = s.deps.Orders.UpdateStatus(ctx, tx, orderID, status, now); err != nil {
		return nil, err
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to update status: %w", err)
	}

	s.logger.Info().
		Str("order_id", orderID.String()).
		Str("from", order.Status).
		Str("to", status).
		Msg("order status advanced")

	return entry, nil
}

// ListStatusHistory returns the order's status history, newest first.
func (s *orderService) ListStatusHistory(ctx context.Context, orderID uuid.UUID) ([]model.OrderStatusHistory, error) {
	order, _, err := s.deps.Orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	if order == nil {
		return nil, model.ErrOrderNotFound
	}

	history, err := s.deps.Orders.ListStatusHistory(ctx, orderID)
	if err != nil {
		s.logger.Error().Err(err).Str("order_id", orderID.String()).Msg("failed to list status history")
		return nil, fmt.Errorf("failed to list status history: %w", err)
	}
	return history, nil
}

// AmendOrder overwrites the order and replaces its items. Ledgers are not
// reconciled.
func (s *orderService) AmendOrder(ctx context.Context, orderID uuid.UUID, patch *model.OrderAmendment) (resp *model.OrderResponse, err error) {
	if patch == nil {
		return nil, errors.New("order amendment is nil")
	}
	status := strings.TrimSpace(patch.Status)
	if status == "" {
		return nil, model.ErrInvalidStatus
	}
	for _, item := range patch.Items {
		if item.Quantity <= 0 {
			return nil, model.ErrInvalidQuantity
		}
	}

	user, err := s.deps.Users.GetByID(ctx, patch.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if user == nil {
		return nil, model.ErrUserNotFound
	}

	variants, err := s.lookupVariants(ctx, patch.Items)
	if err != nil {
		return nil, err
	}

	tx, err := s.deps.Transactor.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to amend order: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				s.logger.Error().Err(rbErr).Msg("failed to rollback transaction")
			}
		}
	}()

	order, err := s.deps.Orders.GetForUpdate(ctx, tx, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		err = model.ErrOrderNotFound
		return nil, err
	}

	now := s.now()
	previousStatus := order.Status
	order.UserID = patch.UserID
	order.PurchaseDate = patch.PurchaseDate
	order.TotalAmount = patch.TotalAmount
	order.CouponCode = patch.CouponCode
	order.Status = status
	order.UpdatedAt = now

	if err = s.deps.Orders.Update(ctx, tx, order); err != nil {
		return nil, err
	}

	items := make([]model.OrderItem, len(patch.Items))
	for i, line := range patch.Items {
		v := variants[line.VariantID]
		items[i] = model.OrderItem{
			ID:          uuid.New(),
			OrderID:     orderID,
			VariantID:   line.VariantID,
			VariantName: v.Name,
			Quantity:    line.Quantity,
			Price:       line.Price,
			Image:       v.Image,
		}
	}
	if err = s.deps.Orders.ReplaceItems(ctx, tx, orderID, items); err != nil {
		return nil, err
	}

	if status != previousStatus {
		if err = s.deps.Orders.AppendStatus(ctx, tx, &model.OrderStatusHistory{
			ID:        uuid.New(),
			OrderID:   orderID,
			Status:    status,
			UpdatedAt: now,
		}); err != nil {
			return nil, err
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to amend order: %w", err)
	}

	s.logger.Info().
		Str("order_id", orderID.String()).
		Int("item_count", len(items)).
		Msg("order amended")

	return &model.OrderResponse{Order: *order, FullName: user.FullName, Items: items}, nil
}

func (s *orderService) lookupVariants(ctx context.Context, lines []model.OrderItemAmendment) (map[string]model.Variant, error) {
	ids := make([]string, 0, len(lines))
	seen := make(map[string]struct{}, len(lines))
	for _, line := range lines {
		if _, ok := seen[line.VariantID]; ok {
			continue
		}
		seen[line.VariantID] = struct{}{}
		ids = append(ids, line.VariantID)
	}
	sort.Strings(ids)

	found := make(map[string]model.Variant, len(ids))
	if len(ids) == 0 {
		return found, nil
	}

	variants, err := s.deps.Variants.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load variants: %w", err)
	}
	for _, v := range variants {
		found[v.ID] = v
	}
	for _, id := range ids {
		if _, ok := found[id]; !ok {
			return nil, model.NewVariantNotFoundError(id)
		}
	}
	return found, nil
}

// GetOrder retrieves an order with its items and the buyer's name.
func (s *orderService) GetOrder(ctx context.Context, orderID uuid.UUID) (*model.OrderResponse, error) {
	order, items, err := s.deps.Orders.GetByID(ctx, orderID)
	if err != nil {
		s.logger.Error().Err(err).Str("order_id", orderID.String()).Msg("failed to get order")
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	if order == nil {
		s.logger.Debug().Str("order_id", orderID.String()).Msg("order not found")
		return nil, model.ErrOrderNotFound
	}

	resp := &model.OrderResponse{Order: *order, Items: items}
	user, err := s.deps.Users.GetByID(ctx, order.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to load buyer: %w", err)
	}
	if user != nil {
		resp.FullName = user.FullName
	}
	return resp, nil
}

// ListOrders returns a page of orders, newest first.
func (s *orderService) ListOrders(ctx context.Context, page model.Page) ([]model.Order, error) {
	page = normalizePage(page)
	orders, err := s.deps.Orders.List(ctx, page)
	if err != nil {
		s.logger.Error().Err(err).Int("limit", page.Limit).Int("offset", page.Offset).Msg("failed to list orders")
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}

// OrderTimeline returns the orders purchased within the filter's window,
// evaluated in the configured time zone.
func (s *orderService) OrderTimeline(ctx context.Context, filter TimelineFilter) ([]model.Order, error) {
	start, end, err := timelineWindow(filter, s.now().In(s.loc))
	if err != nil {
		return nil, err
	}
	page := normalizePage(filter.Page)

	orders, err := s.deps.Orders.ListByPurchaseDate(ctx, start, end, page)
	if err != nil {
		s.logger.Error().Err(err).Str("range", filter.Range).Msg("failed to list order timeline")
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}

	s.logger.Debug().
		Str("range", filter.Range).
		Time("start", start).
		Time("end", end).
		Int("count", len(orders)).
		Msg("retrieved order timeline")

	return orders, nil
}

// OrderHistory returns the user's orders by purchase date, newest first.
func (s *orderService) OrderHistory(ctx context.Context, userID uuid.UUID) ([]model.Order, error) {
	user, err := s.deps.Users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if user == nil {
		return nil, model.ErrUserNotFound
	}

	orders, err := s.deps.Orders.ListByUser(ctx, userID)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID.String()).Msg("failed to list user orders")
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}

// checkoutOutcome maps a checkout error onto its metric label.
func checkoutOutcome(err error) string {
	if err == nil {
		return metrics.OutcomeSuccess
	}
	var domainErr *model.DomainError
	if !errors.As(err, &domainErr) {
		return metrics.OutcomeError
	}
	switch domainErr.Kind {
	case model.KindConflict:
		return metrics.OutcomeConflict
	case model.KindInvalidInput:
		return metrics.OutcomeInvalid
	case model.KindNotFound:
		return metrics.OutcomeNotFound
	case model.KindBusy:
		return metrics.OutcomeBusy
	default:
		return metrics.OutcomeError
	}
}
