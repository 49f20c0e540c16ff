package repository

import (
	"context"
	"errors"
	"fmt"

	"storefront/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// userRepository implements the UserRepository interface using PostgreSQL.
type userRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewUserRepository creates a new PostgreSQL-backed user repository.
func NewUserRepository(pool *pgxpool.Pool, logger zerolog.Logger) UserRepository {
	return &userRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "user").Logger(),
	}
}

// GetByID retrieves a user by id.
func (r *userRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	query := `
		SELECT id, email, full_name, password_hash, created_at
		FROM users
		WHERE id = $1
	`

	var u model.User
	err := r.pool.QueryRow(ctx, query, id).Scan(&u.ID, &u.Email, &u.FullName, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug().Str("user_id", id.String()).Msg("user not found")
			return nil, nil
		}
		r.logger.Error().Err(err).Str("user_id", id.String()).Msg("failed to query user")
		return nil, fmt.Errorf("failed to query user: %w", err)
	}

	return &u, nil
}

// GetByEmail retrieves a user by email within the provided transaction.
func (r *userRepository) GetByEmail(ctx context.Context, tx pgx.Tx, email string) (*model.User, error) {
	query := `
		SELECT id, email, full_name, password_hash, created_at
		FROM users
		WHERE lower(email) = lower($1)
	`

	var u model.User
	err := tx.QueryRow(ctx, query, email).Scan(&u.ID, &u.Email, &u.FullName, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error().Err(err).Msg("failed to query user by email")
		return nil, fmt.Errorf("failed to query user by email: %w", err)
	}

	return &u, nil
}

// Create inserts a new user within the provided transaction.
func (r *userRepository) Create(ctx context.Context, tx pgx.Tx, user *model.User) error {
	query := `
		INSERT INTO users (id, email, full_name, password_hash, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := tx.Exec(ctx, query, user.ID, user.Email, user.FullName, user.PasswordHash, user.CreatedAt)
	if err != nil {
		if hasSQLState(err, sqlStateUniqueViolation) {
			return model.ErrEmailRegistered
		}
		r.logger.Error().Err(err).Str("user_id", user.ID.String()).Msg("failed to create user")
		return fmt.Errorf("failed to create user: %w", translateError(err))
	}

	r.logger.Debug().Str("user_id", user.ID.String()).Msg("user created successfully")
	return nil
}

// AssignRole grants a role to the user within the provided transaction.
func (r *userRepository) AssignRole(ctx context.Context, tx pgx.Tx, userID uuid.UUID, role string) error {
	query := `
		INSERT INTO user_roles (user_id, role_name)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`

	_, err := tx.Exec(ctx, query, userID, role)
	if err != nil {
		if hasSQLState(err, sqlStateForeignKeyViolation) {
			return model.ErrRoleNotFound
		}
		r.logger.Error().Err(err).
			Str("user_id", userID.String()).
			Str("role", role).
			Msg("failed to assign role")
		return fmt.Errorf("failed to assign role: %w", translateError(err))
	}

	return nil
}
