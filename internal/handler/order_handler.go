package handler

import (
	"net/http"
	"time"

	"storefront/internal/model"
	"storefront/internal/service"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const dateLayout = "2006-01-02"

// StatusRequest is the body of POST /api/orders/{id}/status.
type StatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// OrderHandler handles order-related HTTP requests.
type OrderHandler struct {
	service service.OrderService
	logger  zerolog.Logger
}

// NewOrderHandler creates a new order handler.
func NewOrderHandler(service service.OrderService, logger zerolog.Logger) *OrderHandler {
	return &OrderHandler{
		service: service,
		logger:  logger.With().Str("handler", "order").Logger(),
	}
}

// GetByID handles GET /api/orders/{id} requests.
func (h *OrderHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	orderID, ok := h.pathUUID(w, r, "order")
	if !ok {
		return
	}

	order, err := h.service.GetOrder(r.Context(), orderID)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, order)
}

// List handles GET /api/orders requests.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	page, err := pageFromQuery(r)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}

	orders, err := h.service.ListOrders(r.Context(), page)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, orders)
}

// Timeline handles GET /api/orders/timeline?filter=...&start=...&end=...
// requests. start and end are YYYY-MM-DD dates used by the custom filter.
func (h *OrderHandler) Timeline(w http.ResponseWriter, r *http.Request) {
	page, err := pageFromQuery(r)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}

	query := r.URL.Query()
	filter := service.TimelineFilter{Range: query.Get("filter"), Page: page}
	if filter.Range == "" {
		filter.Range = service.RangeToday
	}

	if v := query.Get("start"); v != "" {
		if filter.Start, err = time.Parse(dateLayout, v); err != nil {
			writeError(w, http.StatusBadRequest, model.ErrCodeInvalidFilter, "start must be a YYYY-MM-DD date", h.logger)
			return
		}
	}
	if v := query.Get("end"); v != "" {
		if filter.End, err = time.Parse(dateLayout, v); err != nil {
			writeError(w, http.StatusBadRequest, model.ErrCodeInvalidFilter, "end must be a YYYY-MM-DD date", h.logger)
			return
		}
	}

	orders, err := h.service.OrderTimeline(r.Context(), filter)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, orders)
}

// UserHistory handles GET /api/users/{id}/orders requests.
func (h *OrderHandler) UserHistory(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.pathUUID(w, r, "user")
	if !ok {
		return
	}

	orders, err := h.service.OrderHistory(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, orders)
}

// AdvanceStatus handles POST /api/orders/{id}/status requests.
func (h *OrderHandler) AdvanceStatus(w http.ResponseWriter, r *http.Request) {
	orderID, ok := h.pathUUID(w, r, "order")
	if !ok {
		return
	}

	var req StatusRequest
	if err := decodeJSON(r, &req, false); err != nil {
		writeServiceError(w, err, h.logger)
		return
	}

	entry, err := h.service.AdvanceStatus(r.Context(), orderID, req.Status)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusCreated, entry)
}

// StatusHistory handles GET /api/orders/{id}/status requests.
func (h *OrderHandler) StatusHistory(w http.ResponseWriter, r *http.Request) {
	orderID, ok := h.pathUUID(w, r, "order")
	if !ok {
		return
	}

	history, err := h.service.ListStatusHistory(r.Context(), orderID)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, history)
}

// Amend handles PUT /api/orders/{id} requests.
func (h *OrderHandler) Amend(w http.ResponseWriter, r *http.Request) {
	orderID, ok := h.pathUUID(w, r, "order")
	if !ok {
		return
	}

	var patch model.OrderAmendment
	if err := decodeJSON(r, &patch, false); err != nil {
		writeServiceError(w, err, h.logger)
		return
	}

	order, err := h.service.AmendOrder(r.Context(), orderID, &patch)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, order)
}

func (h *OrderHandler) pathUUID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, model.ErrCodeValidation, "invalid "+name+" ID format", h.logger)
		return uuid.Nil, false
	}
	return id, true
}
