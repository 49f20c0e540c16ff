package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"

	"storefront/internal/model"
	"storefront/internal/notification"
	"storefront/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
)

// DefaultTempPasswordLength is used when no length is configured.
const DefaultTempPasswordLength = 8

const passwordAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

var errNoBuyer = model.NewDomainError(model.KindInvalidInput, model.ErrCodeValidation,
	"Exactly one of identity or guest details is required")

// identityService implements IdentityService.
type identityService struct {
	tx             repository.Transactor
	userRepo       repository.UserRepository
	addressRepo    repository.AddressRepository
	cartRepo       repository.CartRepository
	gateway        notification.Gateway
	passwordLength int
	now            func() time.Time
	logger         zerolog.Logger
}

// IdentityDeps groups the collaborators of the identity service.
type IdentityDeps struct {
	Transactor  repository.Transactor
	Users       repository.UserRepository
	Addresses   repository.AddressRepository
	Carts       repository.CartRepository
	Gateway     notification.Gateway
	Clock       func() time.Time
	PasswordLen int
}

// NewIdentityService creates a new identity service.
func NewIdentityService(deps IdentityDeps, logger zerolog.Logger) IdentityService {
	if deps.PasswordLen <= 0 {
		deps.PasswordLen = DefaultTempPasswordLength
	}
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	return &identityService{
		tx:             deps.Transactor,
		userRepo:       deps.Users,
		addressRepo:    deps.Addresses,
		cartRepo:       deps.Carts,
		gateway:        deps.Gateway,
		passwordLength: deps.PasswordLen,
		now:            deps.Clock,
		logger:         logger.With().Str("service", "identity").Logger(),
	}
}

// Resolve loads the authenticated user or provisions a guest account.
func (s *identityService) Resolve(ctx context.Context, req model.CheckoutRequest) (*Principal, error) {
	switch {
	case req.Identity != nil && req.Guest == nil:
		return s.resolveUser(ctx, req.Identity.UserID)
	case req.Guest != nil && req.Identity == nil:
		return s.provisionGuest(ctx, req.Guest)
	default:
		return nil, errNoBuyer
	}
}

func (s *identityService) resolveUser(ctx context.Context, userID uuid.UUID) (*Principal, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID.String()).Msg("failed to load user")
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if user == nil {
		s.logger.Debug().Str("user_id", userID.String()).Msg("user not found")
		return nil, model.ErrUserNotFound
	}
	return &Principal{User: *user}, nil
}

// provisionGuest creates the account, its USER role and its default address in
// one short transaction. Nothing is written for a missing or empty cart. The temporary password is sent only after commit.
func (s *identityService) provisionGuest(ctx context.Context, guest *model.GuestCheckout) (principal *Principal, err error) {
	if strings.TrimSpace(guest.SessionID) == "" {
		return nil, model.ErrMissingSessionID
	}
	email := strings.ToLower(strings.TrimSpace(guest.Email))

	tx, err := s.tx.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to provision guest: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				s.logger.Error().Err(rbErr).Msg("failed to rollback transaction")
			}
		}
	}()

	cart, err := s.cartRepo.GetBySessionID(ctx, tx, guest.SessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load guest cart: %w", err)
	}
	if cart == nil {
		s.logger.Debug().Str("session_id", guest.SessionID).Msg("guest cart not found")
		err = model.ErrCartNotFound
		return nil, err
	}

	items, err := s.cartRepo.GetItems(ctx, tx, cart.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load guest cart items: %w", err)
	}
	if len(items) == 0 {
		s.logger.Debug().Str("session_id", guest.SessionID).Msg("guest cart is empty")
		err = model.ErrEmptyCart
		return nil, err
	}

	existing, err := s.userRepo.GetByEmail(ctx, tx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to look up email: %w", err)
	}
	if existing != nil {
		s.logger.Info().Str("session_id", guest.SessionID).Msg("guest email already registered")
		err = model.ErrEmailRegistered
		return nil, err
	}

	password, err := generatePassword(s.passwordLength)
	if err != nil {
		return nil, fmt.Errorf("failed to generate temporary password: %w", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash temporary password: %w", err)
	}

	user := &model.User{
		ID:           uuid.New(),
		Email:        email,
		FullName:     strings.TrimSpace(guest.FullName),
		PasswordHash: string(hash),
		CreatedAt:    s.now(),
	}
	if err = s.userRepo.Create(ctx, tx, user); err != nil {
		return nil, err
	}
	if err = s.userRepo.AssignRole(ctx, tx, user.ID, model.RoleUser); err != nil {
		return nil, err
	}

	address := &model.Address{
		ID:              uuid.New(),
		UserID:          user.ID,
		IsDefault:       true,
		ShippingAddress: guest.Address,
	}
	if err = s.addressRepo.Create(ctx, tx, address); err != nil {
		return nil, err
	}

	if err = tx.Commit(ctx); err != nil {
		s.logger.Error().Err(err).Str("user_id", user.ID.String()).Msg("failed to commit guest account")
		return nil, fmt.Errorf("failed to provision guest: %w", err)
	}

	s.gateway.AccountCreated(user.Email, password)

	s.logger.Info().
		Str("user_id", user.ID.String()).
		Str("session_id", guest.SessionID).
		Msg("guest account provisioned")

	return &Principal{User: *user, SessionID: guest.SessionID, Created: true}, nil
}

// generatePassword returns n characters drawn uniformly from passwordAlphabet.
func generatePassword(n int) (string, error) {
	limit := big.NewInt(int64(len(passwordAlphabet)))
	b := make([]byte, n)
	for i := range b {
		idx, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", err
		}
		b[i] = passwordAlphabet[idx.Int64()]
	}
	return string(b), nil
}
