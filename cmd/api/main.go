package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"storefront/internal/cache"
	"storefront/internal/config"
	"storefront/internal/database"
	"storefront/internal/handler"
	"storefront/internal/ledger"
	"storefront/internal/metrics"
	"storefront/internal/notification"
	"storefront/internal/pricing"
	"storefront/internal/repository"
	"storefront/internal/router"
	"storefront/internal/service"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"go.uber.org/multierr"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() (err error) {
	// A missing .env file is fine; the environment may already be set.
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Initialize logger
	logger := config.NewLogger(cfg.Logger)
	logger.Info().Msg("starting storefront API server")

	// Create context for application lifecycle
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize database connection pool
	pool, err := database.NewPool(ctx, cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer pool.Close()

	if cfg.Migrations.AutoRun {
		if err := database.Migrate(ctx, pool, "up", logger); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	healthChecks := map[string]router.HealthCheck{"database": pool.Ping}

	// Idempotency keys are optional; without Redis, retries are not deduplicated.
	var idempotency cache.IdempotencyStore
	if cfg.Redis.Enabled {
		redisClient, redisErr := cache.New(ctx, cfg.Redis, logger)
		if redisErr != nil {
			return fmt.Errorf("failed to initialize redis: %w", redisErr)
		}
		defer func() {
			err = multierr.Append(err, redisClient.Close())
		}()
		idempotency = redisClient
		healthChecks["redis"] = redisClient.Ping
	} else {
		logger.Info().Msg("redis disabled, checkout idempotency keys are ignored")
	}

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	checkoutMetrics := metrics.NewCheckoutMetrics(registry)

	// Notifications are delivered after commit by a worker pool.
	dispatcher := notification.NewDispatcher(newNotifier(cfg.SMTP, logger), notification.DispatcherConfig{
		Workers:    cfg.Checkout.NotificationWorkers,
		QueueSize:  cfg.Checkout.NotificationQueue,
		MaxElapsed: cfg.Checkout.NotificationMaxRetry,
	}, checkoutMetrics, logger)

	// Initialize repositories
	transactor := repository.NewTransactor(pool, cfg.Checkout.LockTimeout, logger)
	userRepo := repository.NewUserRepository(pool, logger)
	addressRepo := repository.NewAddressRepository(pool, logger)
	cartRepo := repository.NewCartRepository(pool, logger)
	couponRepo := repository.NewCouponRepository(pool, logger)
	orderRepo := repository.NewOrderRepository(pool, logger)
	variantRepo := repository.NewVariantRepository(pool, logger)
	inventoryRepo := repository.NewInventoryRepository(pool, logger)
	loyaltyRepo := repository.NewLoyaltyRepository(pool, logger)

	// Initialize services
	identityService := service.NewIdentityService(service.IdentityDeps{
		Transactor:  transactor,
		Users:       userRepo,
		Addresses:   addressRepo,
		Carts:       cartRepo,
		Gateway:     dispatcher,
		PasswordLen: cfg.Checkout.TempPasswordLength,
	}, logger)

	orderService := service.NewOrderService(service.OrderDeps{
		Transactor: transactor,
		Users:      userRepo,
		Addresses:  addressRepo,
		Carts:      cartRepo,
		Coupons:    couponRepo,
		Orders:     orderRepo,
		Variants:   variantRepo,
		Identity:   identityService,
		Pricing:    pricing.NewEngine(logger),
		Inventory:  ledger.NewInventory(inventoryRepo, logger),
		Redeemer:   ledger.NewCoupons(couponRepo, logger),
		Loyalty:    ledger.NewLoyalty(loyaltyRepo, logger),
		Gateway:    dispatcher,
		Metrics:    checkoutMetrics,
		Location:   cfg.Checkout.Location(),
	}, logger)

	variantService := service.NewVariantService(variantRepo, logger)

	// Initialize router
	mux := router.New(router.Handlers{
		Variants: handler.NewVariantHandler(variantService, logger),
		Orders:   handler.NewOrderHandler(orderService, logger),
		Checkout: handler.NewCheckoutHandler(orderService, logger),
	}, router.Options{
		APIKey:         cfg.Auth.APIKey,
		JWTSecret:      cfg.Auth.JWTSecret,
		JWTIssuer:      cfg.Auth.JWTIssuer,
		Idempotency:    idempotency,
		IdempotencyTTL: cfg.Redis.IdempotencyTTL,
		Gatherer:       registry,
		HealthChecks:   healthChecks,
	}, logger)

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(shutdown)

	return runServer(server, dispatcher, shutdown, logger)
}

// drainer is the part of the notification dispatcher used at shutdown.
type drainer interface {
	Close(ctx context.Context) error
}

const shutdownTimeout = 30 * time.Second

// runServer serves until the listener fails or a signal arrives. Queued
// notifications are drained on every exit path, after the server has stopped
// accepting checkouts.
func runServer(server *http.Server, dispatcher drainer, signals <-chan os.Signal, logger zerolog.Logger) (err error) {
	defer func() {
		drainCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if closeErr := dispatcher.Close(drainCtx); closeErr != nil {
			logger.Warn().Err(closeErr).Msg("notifications abandoned during shutdown")
			err = multierr.Append(err, closeErr)
		}
	}()

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info().Str("address", server.Addr).Msg("HTTP server started")
		serverErrors <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			logger.Info().Msg("HTTP server closed")
			return nil
		}
		return fmt.Errorf("server error: %w", err)

	case sig := <-signals:
		logger.Info().
			Str("signal", sig.String()).
			Msg("shutdown signal received, starting graceful shutdown")

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			logger.Error().Err(err).Msg("failed to shutdown server gracefully")
			return multierr.Append(fmt.Errorf("server shutdown failed: %w", err), server.Close())
		}
		logger.Info().Msg("server shutdown completed")
	}

	return nil
}

// newNotifier sends mail through the configured relay, or only logs when no
// SMTP host is set.
func newNotifier(cfg config.SMTPConfig, logger zerolog.Logger) notification.Notifier {
	if cfg.Host == "" {
		logger.Info().Msg("SMTP host not set, notifications are logged only")
		return notification.NewLogNotifier(logger)
	}
	return notification.NewSMTPNotifier(cfg, logger)
}
