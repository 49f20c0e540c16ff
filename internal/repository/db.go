package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storefront/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// PostgreSQL error codes the repositories translate into domain errors.
const (
	sqlStateUniqueViolation      = "23505"
	sqlStateForeignKeyViolation  = "23503"
	sqlStateCheckViolation       = "23514"
	sqlStateSerializationFailure = "40001"
	sqlStateDeadlockDetected     = "40P01"
	sqlStateLockNotAvailable     = "55P03"
)

// DefaultLockTimeout bounds row lock waits when no timeout is configured.
const DefaultLockTimeout = 5 * time.Second

type transactor struct {
	pool        *pgxpool.Pool
	lockTimeout time.Duration
	logger      zerolog.Logger
}

// NewTransactor creates a Transactor whose transactions give up waiting for a
// row lock after lockTimeout.
func NewTransactor(pool *pgxpool.Pool, lockTimeout time.Duration, logger zerolog.Logger) Transactor {
	if lockTimeout <= 0 {
		lockTimeout = DefaultLockTimeout
	}
	return &transactor{
		pool:        pool,
		lockTimeout: lockTimeout,
		logger:      logger.With().Str("repository", "tx").Logger(),
	}
}

// BeginTx starts a new read-committed transaction with a local lock_timeout.
func (t *transactor) BeginTx(ctx context.Context) (pgx.Tx, error) {
	tx, err := t.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		t.logger.Error().Err(err).Msg("failed to begin transaction")
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	timeout := fmt.Sprintf("%dms", t.lockTimeout.Milliseconds())
	if _, err := tx.Exec(ctx, `SELECT set_config('lock_timeout', $1, true)`, timeout); err != nil {
		_ = tx.Rollback(ctx)
		t.logger.Error().Err(err).Msg("failed to set lock timeout")
		return nil, fmt.Errorf("failed to set lock timeout: %w", err)
	}

	return tx, nil
}

// translateError maps lock and serialization failures onto the domain error
// kinds the workflow reports. Other errors are returned unchanged.
func translateError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}

	switch pgErr.Code {
	case sqlStateLockNotAvailable, sqlStateDeadlockDetected:
		return fmt.Errorf("%w: %s", model.ErrBusy, pgErr.Message)
	case sqlStateSerializationFailure:
		return fmt.Errorf("%w: %s", model.ErrConcurrentModification, pgErr.Message)
	}
	return err
}

func hasSQLState(err error, code string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == code
}
