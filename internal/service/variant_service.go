package service

import (
	"context"
	"fmt"

	"storefront/internal/model"
	"storefront/internal/repository"

	"github.com/rs/zerolog"
)

const (
	defaultPageLimit = 10
	maxPageLimit     = 100
)

// variantService implements VariantService.
type variantService struct {
	variantRepo repository.VariantRepository
	logger      zerolog.Logger
}

// NewVariantService creates a new variant service.
func NewVariantService(variantRepo repository.VariantRepository, logger zerolog.Logger) VariantService {
	return &variantService{
		variantRepo: variantRepo,
		logger:      logger.With().Str("service", "variant").Logger(),
	}
}

// GetAll retrieves variants with pagination.
func (s *variantService) GetAll(ctx context.Context, limit, offset int) ([]model.Variant, error) {
	page := normalizePage(model.Page{Limit: limit, Offset: offset})

	variants, err := s.variantRepo.GetAll(ctx, page.Limit, page.Offset)
	if err != nil {
		s.logger.Error().Err(err).
			Int("limit", page.Limit).
			Int("offset", page.Offset).
			Msg("failed to get variants")
		return nil, fmt.Errorf("failed to get variants: %w", err)
	}

	s.logger.Debug().
		Int("count", len(variants)).
		Int("limit", page.Limit).
		Int("offset", page.Offset).
		Msg("retrieved variants")

	return variants, nil
}

// GetByID retrieves a single variant by ID.
func (s *variantService) GetByID(ctx context.Context, id string) (*model.Variant, error) {
	if id == "" {
		s.logger.Warn().Msg("variant ID is empty")
		return nil, model.NewVariantNotFoundError(id)
	}

	variant, err := s.variantRepo.GetByID(ctx, id)
	if err != nil {
		s.logger.Error().Err(err).Str("variant_id", id).Msg("failed to get variant by ID")
		return nil, fmt.Errorf("failed to get variant: %w", err)
	}

	if variant == nil {
		s.logger.Debug().Str("variant_id", id).Msg("variant not found")
		return nil, model.NewVariantNotFoundError(id)
	}

	return variant, nil
}

// normalizePage clamps a page to [1, maxPageLimit] rows at a non-negative offset.
func normalizePage(page model.Page) model.Page {
	if page.Limit <= 0 {
		page.Limit = defaultPageLimit
	}
	if page.Limit > maxPageLimit {
		page.Limit = maxPageLimit
	}
	if page.Offset < 0 {
		page.Offset = 0
	}
	return page
}
