// Package ledger holds the transactional bookkeeping applied during checkout:
// stock reservation, coupon redemption and loyalty settlement. Every ledger
// operation runs inside the caller's transaction and writes nothing when it
// fails.
package ledger

import (
	"context"
	"fmt"
	"sort"
	"time"

	"storefront/internal/model"
	"storefront/internal/repository"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// Inventory reserves stock for an order.
type Inventory struct {
	repo   repository.InventoryRepository
	logger zerolog.Logger
}

// NewInventory creates an inventory ledger.
func NewInventory(repo repository.InventoryRepository, logger zerolog.Logger) *Inventory {
	return &Inventory{
		repo:   repo,
		logger: logger.With().Str("component", "inventory_ledger").Logger(),
	}
}

// Reserve decrements the stock of every requested variant or of none. Rows are
// locked in ascending variant id order. The first variant, in that order,
// whose stock would drop below zero is reported in the returned error.
func (l *Inventory) Reserve(ctx context.Context, tx pgx.Tx, quantities map[string]int, at time.Time) error {
	if len(quantities) == 0 {
		return nil
	}

	ids := make([]string, 0, len(quantities))
	for id, qty := range quantities {
		if qty < 1 {
			return model.ErrInvalidQuantity
		}
		ids = append(ids, id)
	}
	sort.Strings(ids)

	locked, err := l.repo.LockForUpdate(ctx, tx, ids)
	if err != nil {
		return fmt.Errorf("failed to lock inventory: %w", err)
	}

	byID := make(map[string]model.Inventory, len(locked))
	for _, row := range locked {
		byID[row.VariantID] = row
	}

	updates := make([]model.Inventory, 0, len(ids))
	for _, id := range ids {
		row, ok := byID[id]
		if !ok {
			l.logger.Warn().Str("variant_id", id).Msg("variant has no inventory record")
			return model.NewVariantNotFoundError(id)
		}

		remaining := row.Quantity - quantities[id]
		if remaining < 0 {
			l.logger.Info().
				Str("variant_id", id).
				Int("available", row.Quantity).
				Int("requested", quantities[id]).
				Msg("insufficient stock")
			return model.NewInsufficientStockError(id)
		}

		updates = append(updates, model.Inventory{VariantID: id, Quantity: remaining, UpdatedAt: at})
	}

	if err := l.repo.SetQuantities(ctx, tx, updates); err != nil {
		return fmt.Errorf("failed to update inventory: %w", err)
	}

	l.logger.Debug().Int("variants", len(updates)).Msg("stock reserved")
	return nil
}
