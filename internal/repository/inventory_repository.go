package repository

import (
	"context"
	"fmt"

	"storefront/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// inventoryRepository implements the InventoryRepository interface using PostgreSQL.
type inventoryRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewInventoryRepository creates a new PostgreSQL-backed inventory repository.
func NewInventoryRepository(pool *pgxpool.Pool, logger zerolog.Logger) InventoryRepository {
	return &inventoryRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "inventory").Logger(),
	}
}

// LockForUpdate takes row locks in variant id order so that concurrent
// checkouts touching overlapping variants cannot deadlock.
func (r *inventoryRepository) LockForUpdate(ctx context.Context, tx pgx.Tx, variantIDs []string) ([]model.Inventory, error) {
	if len(variantIDs) == 0 {
		return []model.Inventory{}, nil
	}

	query := `
		SELECT variant_id, quantity, updated_at
		FROM inventory
		WHERE variant_id = ANY($1)
		ORDER BY variant_id
		FOR UPDATE
	`

	rows, err := tx.Query(ctx, query, variantIDs)
	if err != nil {
		r.logger.Error().Err(err).Int("count", len(variantIDs)).Msg("failed to lock inventory")
		return nil, fmt.Errorf("failed to lock inventory: %w", translateError(err))
	}
	defer rows.Close()

	var locked []model.Inventory
	for rows.Next() {
		var inv model.Inventory
		if err := rows.Scan(&inv.VariantID, &inv.Quantity, &inv.UpdatedAt); err != nil {
			r.logger.Error().Err(err).Msg("failed to scan inventory row")
			return nil, fmt.Errorf("failed to scan inventory: %w", err)
		}
		locked = append(locked, inv)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating inventory rows")
		return nil, fmt.Errorf("error iterating inventory: %w", translateError(err))
	}

	return locked, nil
}

// SetQuantities writes new stock levels in one batch.
func (r *inventoryRepository) SetQuantities(ctx context.Context, tx pgx.Tx, rows []model.Inventory) error {
	if len(rows) == 0 {
		return nil
	}

	query := `
		UPDATE inventory
		SET quantity = $2, updated_at = $3
		WHERE variant_id = $1
	`

	batch := &pgx.Batch{}
	for _, inv := range rows {
		batch.Queue(query, inv.VariantID, inv.Quantity, inv.UpdatedAt)
	}

	results := tx.SendBatch(ctx, batch)
	defer results.Close()

	for i := 0; i < len(rows); i++ {
		if _, err := results.Exec(); err != nil {
			if hasSQLState(err, sqlStateCheckViolation) {
				return model.NewInsufficientStockError(rows[i].VariantID)
			}
			r.logger.Error().
				Err(err).
				Str("variant_id", rows[i].VariantID).
				Msg("failed to update inventory")
			return fmt.Errorf("failed to update inventory: %w", translateError(err))
		}
	}

	r.logger.Debug().Int("count", len(rows)).Msg("inventory updated successfully")
	return nil
}
