package router

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"time"

	"storefront/internal/cache"
	"storefront/internal/handler"
	"storefront/internal/middleware"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Handlers groups the HTTP handlers served by the API.
type Handlers struct {
	Variants *handler.VariantHandler
	Orders   *handler.OrderHandler
	Checkout *handler.CheckoutHandler
}

// Options configures authentication and the optional infrastructure routes.
type Options struct {
	APIKey    string
	JWTSecret string
	JWTIssuer string

	// Idempotency stores checkout responses keyed by Idempotency-Key. Nil
	// disables replay.
	Idempotency    cache.IdempotencyStore
	IdempotencyTTL time.Duration

	// Gatherer backs GET /metrics. Nil leaves the route unregistered.
	Gatherer prometheus.Gatherer

	// HealthChecks are run by GET /health, keyed by dependency name.
	HealthChecks map[string]HealthCheck
}

// HealthCheck reports whether a dependency is reachable.
type HealthCheck func(ctx context.Context) error

const healthCheckTimeout = 2 * time.Second

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// New creates a new HTTP router with all routes and middleware configured.
func New(h Handlers, opts Options, logger zerolog.Logger) http.Handler {
	mux := http.NewServeMux()

	// Health check endpoint (no authentication required)
	mux.HandleFunc("GET /health", healthHandler(opts.HealthChecks, logger))

	if opts.Gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))
	}

	// Catalogue
	mux.HandleFunc("GET /api/variants", h.Variants.GetAll)
	mux.HandleFunc("GET /api/variants/{id}", h.Variants.GetByID)

	// Checkout resolves the caller from an optional bearer token, then
	// replays repeated Idempotency-Key submissions.
	var checkout http.Handler = http.HandlerFunc(h.Checkout.Checkout)
	checkout = middleware.Idempotency(opts.Idempotency, opts.IdempotencyTTL, logger)(checkout)
	checkout = middleware.BearerIdentity(opts.JWTSecret, opts.JWTIssuer, logger)(checkout)
	mux.Handle("POST /api/checkout", checkout)

	// Orders
	mux.HandleFunc("GET /api/orders", h.Orders.List)
	mux.HandleFunc("GET /api/orders/timeline", h.Orders.Timeline)
	mux.HandleFunc("GET /api/orders/{id}", h.Orders.GetByID)
	mux.HandleFunc("PUT /api/orders/{id}", h.Orders.Amend)
	mux.HandleFunc("POST /api/orders/{id}/status", h.Orders.AdvanceStatus)
	mux.HandleFunc("GET /api/orders/{id}/status", h.Orders.StatusHistory)
	mux.HandleFunc("GET /api/users/{id}/orders", h.Orders.UserHistory)

	// Apply middleware in order: Recovery -> Logging -> CORS -> APIKeyAuth
	var handler http.Handler = mux
	handler = middleware.APIKeyAuth(opts.APIKey, logger)(handler)
	handler = middleware.CORS(handler)
	handler = middleware.Logging(logger)(handler)
	handler = middleware.Recovery(logger)(handler)

	return handler
}

// healthHandler answers 503 when any dependency check fails.
func healthHandler(checks map[string]HealthCheck, logger zerolog.Logger) http.HandlerFunc {
	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	sort.Strings(names)

	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		defer cancel()

		resp := healthResponse{Status: "healthy"}
		status := http.StatusOK
		if len(names) > 0 {
			resp.Checks = make(map[string]string, len(names))
		}
		for _, name := range names {
			if err := checks[name](ctx); err != nil {
				logger.Warn().Err(err).Str("dependency", name).Msg("health check failed")
				resp.Checks[name] = err.Error()
				resp.Status = "unhealthy"
				status = http.StatusServiceUnavailable
				continue
			}
			resp.Checks[name] = "ok"
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(resp)
	}
}
