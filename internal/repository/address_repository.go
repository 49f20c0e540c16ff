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

type addressRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewAddressRepository creates a new PostgreSQL-backed address repository.
func NewAddressRepository(pool *pgxpool.Pool, logger zerolog.Logger) AddressRepository {
	return &addressRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "address").Logger(),
	}
}

func (r *addressRepository) Create(ctx context.Context, tx pgx.Tx, a *model.Address) error {
	query := `
		INSERT INTO addresses (id, user_id, is_default, ward, ward_code, district, district_code,
			province, province_code, address_detail)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := tx.Exec(ctx, query,
		a.ID, a.UserID, a.IsDefault,
		a.Ward, a.WardCode, a.District, a.DistrictCode,
		a.Province, a.ProvinceCode, a.AddressDetail,
	)
	if err != nil {
		r.logger.Error().Err(err).Str("user_id", a.UserID.String()).Msg("failed to create address")
		return fmt.Errorf("failed to create address: %w", translateError(err))
	}

	return nil
}

func (r *addressRepository) GetDefault(ctx context.Context, tx pgx.Tx, userID uuid.UUID) (*model.Address, error) {
	query := `
		SELECT id, user_id, is_default, ward, ward_code, district, district_code,
			province, province_code, address_detail
		FROM addresses
		WHERE user_id = $1 AND is_default
		LIMIT 1
	`

	var a model.Address
	err := tx.QueryRow(ctx, query, userID).Scan(
		&a.ID, &a.UserID, &a.IsDefault,
		&a.Ward, &a.WardCode, &a.District, &a.DistrictCode,
		&a.Province, &a.ProvinceCode, &a.AddressDetail,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error().Err(err).Str("user_id", userID.String()).Msg("failed to query default address")
		return nil, fmt.Errorf("failed to query default address: %w", translateError(err))
	}

	return &a, nil
}
