package ledger

import (
	"context"

	"storefront/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/mock"
)

type MockInventoryRepository struct {
	mock.Mock
}

func (m *MockInventoryRepository) LockForUpdate(ctx context.Context, tx pgx.Tx, variantIDs []string) ([]model.Inventory, error) {
	args := m.Called(ctx, tx, variantIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Inventory), args.Error(1)
}

func (m *MockInventoryRepository) SetQuantities(ctx context.Context, tx pgx.Tx, rows []model.Inventory) error {
	args := m.Called(ctx, tx, rows)
	return args.Error(0)
}

type MockCouponRepository struct {
	mock.Mock
}

func (m *MockCouponRepository) GetByCode(ctx context.Context, tx pgx.Tx, code string) (*model.Coupon, error) {
	args := m.Called(ctx, tx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Coupon), args.Error(1)
}

func (m *MockCouponRepository) GetByCodeForUpdate(ctx context.Context, tx pgx.Tx, code string) (*model.Coupon, error) {
	args := m.Called(ctx, tx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Coupon), args.Error(1)
}

func (m *MockCouponRepository) Decrement(ctx context.Context, tx pgx.Tx, code string) error {
	args := m.Called(ctx, tx, code)
	return args.Error(0)
}

func (m *MockCouponRepository) Upsert(ctx context.Context, coupons []model.Coupon) (int, error) {
	args := m.Called(ctx, coupons)
	return args.Int(0), args.Error(1)
}

type MockLoyaltyRepository struct {
	mock.Mock
}

func (m *MockLoyaltyRepository) GetForUpdate(ctx context.Context, tx pgx.Tx, userID uuid.UUID) (*model.LoyaltyPoint, error) {
	args := m.Called(ctx, tx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.LoyaltyPoint), args.Error(1)
}

func (m *MockLoyaltyRepository) CreateIfAbsent(ctx context.Context, tx pgx.Tx, balance *model.LoyaltyPoint) (bool, error) {
	args := m.Called(ctx, tx, balance)
	return args.Bool(0), args.Error(1)
}

func (m *MockLoyaltyRepository) Update(ctx context.Context, tx pgx.Tx, balance *model.LoyaltyPoint) error {
	args := m.Called(ctx, tx, balance)
	return args.Error(0)
}
