package handler

import (
	"net/http"
	"strings"

	"storefront/internal/middleware"
	"storefront/internal/model"
	"storefront/internal/service"

	"github.com/rs/zerolog"
)

// SessionHeader identifies an anonymous cart when the body carries no session id.
const SessionHeader = "X-Session-ID"

// CheckoutHandler handles checkout HTTP requests.
type CheckoutHandler struct {
	service service.OrderService
	logger  zerolog.Logger
}

// NewCheckoutHandler creates a new checkout handler.
func NewCheckoutHandler(service service.OrderService, logger zerolog.Logger) *CheckoutHandler {
	return &CheckoutHandler{
		service: service,
		logger:  logger.With().Str("handler", "checkout").Logger(),
	}
}

// Checkout handles POST /api/checkout. A bearer-authenticated caller checks
// out their own cart and may send an empty body; anyone else must supply guest
// details.
func (h *CheckoutHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	var req model.CheckoutRequest

	if userID, ok := middleware.UserIDFromContext(r.Context()); ok {
		req.Identity = &model.Identity{UserID: userID}
	} else {
		var guest model.GuestCheckout
		if err := decodeJSON(r, &guest, false); err != nil {
			writeServiceError(w, err, h.logger)
			return
		}
		if strings.TrimSpace(guest.SessionID) == "" {
			guest.SessionID = strings.TrimSpace(r.Header.Get(SessionHeader))
		}
		req.Guest = &guest
	}

	result, err := h.service.Checkout(r.Context(), req)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusCreated, result)
}
