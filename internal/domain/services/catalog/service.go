// Package catalog serves offers, brands and categories to the detail panel.
// Brand and category lists are cached; offer details are always fetched fresh.
package catalog

import (
	"context"
	"errors"

	"github.com/meagent/meagent_service/internal/domain/entities"
	"github.com/meagent/meagent_service/internal/domain/repositories"
	"github.com/meagent/meagent_service/pkg/metrics"
	"go.uber.org/zap"
)

// API is the backend catalog surface
type API interface {
	OfferDetail(ctx context.Context, code string) (*entities.OfferDetail, error)
	Brands(ctx context.Context) ([]entities.Brand, error)
	Categories(ctx context.Context) ([]entities.Category, error)
	BrandsWithOffers(ctx context.Context, categoryID string) ([]entities.BrandWithOffers, error)
	BrandOffers(ctx context.Context, brandID string) ([]entities.OfferSummary, error)
}

// Service wraps the backend catalog with an optional list cache
type Service struct {
	api    API
	cache  repositories.CatalogCache
	logger *zap.Logger
}

// NewService creates a catalog service. cache may be nil.
func NewService(api API, cache repositories.CatalogCache, logger *zap.Logger) *Service {
	return &Service{api: api, cache: cache, logger: logger}
}

// OfferDetail fetches an offer by code
func (s *Service) OfferDetail(ctx context.Context, code string) (*entities.OfferDetail, error) {
	if code == "" {
		return nil, errors.New("offer code is required")
	}
	return s.api.OfferDetail(ctx, code)
}

// Brands returns all brands, from cache when possible
func (s *Service) Brands(ctx context.Context) ([]entities.Brand, error) {
	if s.cache != nil {
		brands, err := s.cache.Brands(ctx)
		if err == nil {
			metrics.CatalogCacheTotal.WithLabelValues("brands", "hit").Inc()
			return brands, nil
		}
		s.recordMiss(ctx, "brands", err)
	}

	brands, err := s.api.Brands(ctx)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.SetBrands(ctx, brands); err != nil {
			s.logger.Warn("Failed to cache brands", zap.Error(err))
		}
	}
	return brands, nil
}

// Categories returns all categories, from cache when possible
func (s *Service) Categories(ctx context.Context) ([]entities.Category, error) {
	if s.cache != nil {
		categories, err := s.cache.Categories(ctx)
		if err == nil {
			metrics.CatalogCacheTotal.WithLabelValues("categories", "hit").Inc()
			return categories, nil
		}
		s.recordMiss(ctx, "categories", err)
	}

	categories, err := s.api.Categories(ctx)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.SetCategories(ctx, categories); err != nil {
			s.logger.Warn("Failed to cache categories", zap.Error(err))
		}
	}
	return categories, nil
}

// BrandsWithOffers lists the brands of a category with their offers
func (s *Service) BrandsWithOffers(ctx context.Context, categoryID string) ([]entities.BrandWithOffers, error) {
	if categoryID == "" {
		return nil, errors.New("category id is required")
	}
	return s.api.BrandsWithOffers(ctx, categoryID)
}

// BrandOffers lists one brand's offers
func (s *Service) BrandOffers(ctx context.Context, brandID string) ([]entities.OfferSummary, error) {
	if brandID == "" {
		return nil, errors.New("brand id is required")
	}
	return s.api.BrandOffers(ctx, brandID)
}

func (s *Service) recordMiss(ctx context.Context, kind string, err error) {
	if errors.Is(err, repositories.ErrCacheMiss) {
		metrics.CatalogCacheTotal.WithLabelValues(kind, "miss").Inc()
		return
	}
	metrics.CatalogCacheTotal.WithLabelValues(kind, "error").Inc()
	s.logger.Warn("Catalog cache read failed", zap.String("kind", kind), zap.Error(err))
}
