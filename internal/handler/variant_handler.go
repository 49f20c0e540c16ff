package handler

import (
	"net/http"

	"storefront/internal/service"

	"github.com/rs/zerolog"
)

// VariantHandler handles catalogue HTTP requests.
type VariantHandler struct {
	service service.VariantService
	logger  zerolog.Logger
}

// NewVariantHandler creates a new variant handler.
func NewVariantHandler(service service.VariantService, logger zerolog.Logger) *VariantHandler {
	return &VariantHandler{
		service: service,
		logger:  logger.With().Str("handler", "variant").Logger(),
	}
}

// GetAll handles GET /api/variants requests with pagination.
func (h *VariantHandler) GetAll(w http.ResponseWriter, r *http.Request) {
	page, err := pageFromQuery(r)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}

	variants, err := h.service.GetAll(r.Context(), page.Limit, page.Offset)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, variants)
}

// GetByID handles GET /api/variants/{id} requests.
func (h *VariantHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	variant, err := h.service.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, variant)
}
