package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"storefront/internal/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type identityFixture struct {
	tx        *MockTx
	txr       *MockTransactor
	users     *MockUserRepository
	addresses *MockAddressRepository
	carts     *MockCartRepository
	gateway   *recordingGateway
	service   IdentityService
}

func newIdentityFixture() *identityFixture {
	f := &identityFixture{
		tx:        new(MockTx),
		txr:       new(MockTransactor),
		users:     new(MockUserRepository),
		addresses: new(MockAddressRepository),
		carts:     new(MockCartRepository),
		gateway:   &recordingGateway{},
	}
	f.service = NewIdentityService(IdentityDeps{
		Transactor:  f.txr,
		Users:       f.users,
		Addresses:   f.addresses,
		Carts:       f.carts,
		Gateway:     f.gateway,
		Clock:       func() time.Time { return time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC) },
		PasswordLen: 8,
	}, zerolog.Nop())
	return f
}

func guestRequest(session, email string) model.CheckoutRequest {
	return model.CheckoutRequest{Guest: &model.GuestCheckout{
		SessionID: session,
		Email:     email,
		FullName:  "Lan Nguyen",
		Address: model.ShippingAddress{
			Ward:          "Ben Nghe",
			District:      "District 1",
			Province:      "Ho Chi Minh",
			AddressDetail: "12 Le Loi",
		},
	}}
}

func guestItems(cartID uuid.UUID) []model.CartItem {
	return []model.CartItem{{ID: uuid.New(), CartID: cartID, VariantID: "TEE-M", Quantity: 1}}
}

func TestIdentityService_ResolveAuthenticated(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	t.Run("Success", func(t *testing.T) {
		f := newIdentityFixture()
		f.users.On("GetByID", ctx, userID).Return(&model.User{ID: userID, Email: "a@example.com"}, nil)

		principal, err := f.service.Resolve(ctx, model.CheckoutRequest{Identity: &model.Identity{UserID: userID}})

		require.NoError(t, err)
		assert.Equal(t, userID, principal.User.ID)
		assert.False(t, principal.Guest())
		assert.False(t, principal.Created)
		f.txr.AssertNotCalled(t, "BeginTx", mock.Anything)
	})

	t.Run("Unknown user", func(t *testing.T) {
		f := newIdentityFixture()
		f.users.On("GetByID", ctx, userID).Return(nil, nil)

		_, err := f.service.Resolve(ctx, model.CheckoutRequest{Identity: &model.Identity{UserID: userID}})

		assert.ErrorIs(t, err, model.ErrUserNotFound)
	})

	t.Run("Neither identity nor guest", func(t *testing.T) {
		f := newIdentityFixture()

		_, err := f.service.Resolve(ctx, model.CheckoutRequest{})

		var domainErr *model.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, model.KindInvalidInput, domainErr.Kind)
	})
}

func TestIdentityService_ProvisionGuest(t *testing.T) {
	ctx := context.Background()
	f := newIdentityFixture()
	cart := &model.Cart{ID: uuid.New()}

	var created *model.User
	f.txr.On("BeginTx", ctx).Return(f.tx, nil)
	f.carts.On("GetBySessionID", ctx, f.tx, "S1").Return(cart, nil)
	f.carts.On("GetItems", ctx, f.tx, cart.ID).Return(guestItems(cart.ID), nil)
	f.users.On("GetByEmail", ctx, f.tx, "guest@example.com").Return(nil, nil)
	f.users.On("Create", ctx, f.tx, mock.AnythingOfType("*model.User")).
		Run(func(args mock.Arguments) { created = args.Get(2).(*model.User) }).
		Return(nil)
	f.users.On("AssignRole", ctx, f.tx, mock.AnythingOfType("uuid.UUID"), model.RoleUser).Return(nil)
	f.addresses.On("Create", ctx, f.tx, mock.MatchedBy(func(a *model.Address) bool {
		return a.IsDefault && a.AddressDetail == "12 Le Loi" && a.District == "District 1"
	})).Return(nil)
	f.tx.On("Commit", ctx).Return(nil)

	principal, err := f.service.Resolve(ctx, guestRequest("S1", " Guest@Example.com "))

	require.NoError(t, err)
	require.NotNil(t, created)
	assert.True(t, principal.Guest())
	assert.True(t, principal.Created)
	assert.Equal(t, "S1", principal.SessionID)
	assert.Equal(t, "guest@example.com", principal.User.Email)
	assert.Equal(t, created.ID, principal.User.ID)
	assert.True(t, f.tx.committed)
	assert.False(t, f.tx.rolledBack)

	require.Len(t, f.gateway.accounts, 1)
	sent := f.gateway.accounts[0]
	assert.Equal(t, "guest@example.com", sent.email)
	assert.Len(t, sent.password, 8)
	assert.Regexp(t, "^[A-Za-z0-9]+$", sent.password)
	assert.NotEqual(t, sent.password, created.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(created.PasswordHash), []byte(sent.password)))

	f.users.AssertExpectations(t)
	f.addresses.AssertExpectations(t)
	f.carts.AssertExpectations(t)
}

func TestIdentityService_ProvisionGuest_Failures(t *testing.T) {
	ctx := context.Background()

	t.Run("Missing session", func(t *testing.T) {
		f := newIdentityFixture()

		_, err := f.service.Resolve(ctx, guestRequest("  ", "guest@example.com"))

		assert.ErrorIs(t, err, model.ErrMissingSessionID)
		f.txr.AssertNotCalled(t, "BeginTx", mock.Anything)
	})

	t.Run("No cart for session", func(t *testing.T) {
		f := newIdentityFixture()
		f.txr.On("BeginTx", ctx).Return(f.tx, nil)
		f.carts.On("GetBySessionID", ctx, f.tx, "S1").Return(nil, nil)
		f.tx.On("Rollback", ctx).Return(nil)

		_, err := f.service.Resolve(ctx, guestRequest("S1", "guest@example.com"))

		assert.ErrorIs(t, err, model.ErrCartNotFound)
		assert.True(t, f.tx.rolledBack)
		assert.Empty(t, f.gateway.accounts)
	})

	t.Run("Email already registered", func(t *testing.T) {
		f := newIdentityFixture()
		f.txr.On("BeginTx", ctx).Return(f.tx, nil)
		cart := &model.Cart{ID: uuid.New()}
		f.carts.On("GetBySessionID", ctx, f.tx, "S1").Return(cart, nil)
		f.carts.On("GetItems", ctx, f.tx, cart.ID).Return(guestItems(cart.ID), nil)
		f.users.On("GetByEmail", ctx, f.tx, "guest@example.com").Return(&model.User{ID: uuid.New()}, nil)
		f.tx.On("Rollback", ctx).Return(nil)

		_, err := f.service.Resolve(ctx, guestRequest("S1", "guest@example.com"))

		assert.ErrorIs(t, err, model.ErrEmailRegistered)
		assert.True(t, f.tx.rolledBack)
		f.users.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
		assert.Empty(t, f.gateway.accounts)
	})

	t.Run("Role missing rolls back", func(t *testing.T) {
		f := newIdentityFixture()
		f.txr.On("BeginTx", ctx).Return(f.tx, nil)
		cart := &model.Cart{ID: uuid.New()}
		f.carts.On("GetBySessionID", ctx, f.tx, "S1").Return(cart, nil)
		f.carts.On("GetItems", ctx, f.tx, cart.ID).Return(guestItems(cart.ID), nil)
		f.users.On("GetByEmail", ctx, f.tx, "guest@example.com").Return(nil, nil)
		f.users.On("Create", ctx, f.tx, mock.Anything).Return(nil)
		f.users.On("AssignRole", ctx, f.tx, mock.Anything, model.RoleUser).Return(model.ErrRoleNotFound)
		f.tx.On("Rollback", ctx).Return(nil)

		_, err := f.service.Resolve(ctx, guestRequest("S1", "guest@example.com"))

		assert.ErrorIs(t, err, model.ErrRoleNotFound)
		assert.True(t, f.tx.rolledBack)
		assert.False(t, f.tx.committed)
		assert.Empty(t, f.gateway.accounts)
	})

	t.Run("Begin fails", func(t *testing.T) {
		f := newIdentityFixture()
		f.txr.On("BeginTx", ctx).Return(nil, errors.New("pool closed"))

		_, err := f.service.Resolve(ctx, guestRequest("S1", "guest@example.com"))

		require.Error(t, err)
		assert.Empty(t, f.gateway.accounts)
	})
}

func TestIdentityService_GuestEmptyCartProvisionsNothing(t *testing.T) {
	ctx := context.Background()
	f := newIdentityFixture()
	cart := &model.Cart{ID: uuid.New()}

	f.txr.On("BeginTx", ctx).Return(f.tx, nil)
	f.carts.On("GetBySessionID", ctx, f.tx, "S1").Return(cart, nil)
	f.carts.On("GetItems", ctx, f.tx, cart.ID).Return([]model.CartItem{}, nil)
	f.tx.On("Rollback", ctx).Return(nil)

	principal, err := f.service.Resolve(ctx, guestRequest("S1", "guest@example.com"))

	assert.Nil(t, principal)
	assert.ErrorIs(t, err, model.ErrEmptyCart)
	assert.True(t, f.tx.rolledBack)
	assert.False(t, f.tx.committed)
	f.users.AssertNotCalled(t, "GetByEmail", mock.Anything, mock.Anything, mock.Anything)
	f.users.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
	f.users.AssertNotCalled(t, "AssignRole", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.addresses.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
	assert.Empty(t, f.gateway.accounts)
}

func TestGeneratePassword(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 20; i++ {
		p, err := generatePassword(12)
		require.NoError(t, err)
		assert.Len(t, p, 12)
		assert.Regexp(t, "^[A-Za-z0-9]{12}$", p)
		seen[p] = struct{}{}
	}
	assert.Greater(t, len(seen), 1)
}
