package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/meganoshop/megano-server/internal/domain"
	domainerrors "github.com/meganoshop/megano-server/internal/errors"
	"github.com/meganoshop/megano-server/internal/store"
)

// DefaultCatalogPageSize bounds unpaged catalog requests.
const DefaultCatalogPageSize = 20

// CatalogService serves products, categories, tags, and reviews.
type CatalogService struct {
	store  store.Store
	logger *slog.Logger
}

// NewCatalogService creates a new catalog service.
func NewCatalogService(store store.Store, logger *slog.Logger) *CatalogService {
	return &CatalogService{
		store:  store,
		logger: logger,
	}
}

// ListCategories returns all categories.
func (s *CatalogService) ListCategories(ctx context.Context) ([]domain.Category, error) {
	return s.store.ListCategories(ctx)
}

// ListTags returns all tags.
func (s *CatalogService) ListTags(ctx context.Context) ([]domain.Tag, error) {
	return s.store.ListTags(ctx)
}

// CatalogPage is one page of a filtered product listing.
type CatalogPage struct {
	Items       []domain.Product `json:"items"`
	CurrentPage int              `json:"current_page"`
	LastPage    int              `json:"last_page"`
	Total       int              `json:"total"`
}

// ListProducts returns a page of catalog items. Page numbers are 1-based;
// out-of-range values are normalized rather than rejected.
func (s *CatalogService) ListProducts(ctx context.Context, filter store.ProductFilter, page int) (*CatalogPage, error) {
	if page < 1 {
		page = 1
	}
	if filter.Limit <= 0 {
		filter.Limit = DefaultCatalogPageSize
	}
	filter.Offset = (page - 1) * filter.Limit

	items, total, err := s.store.ListProducts(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}

	lastPage := (total + filter.Limit - 1) / filter.Limit
	if lastPage < 1 {
		lastPage = 1
	}

	return &CatalogPage{
		Items:       items,
		CurrentPage: page,
		LastPage:    lastPage,
		Total:       total,
	}, nil
}

// GetProduct returns a product with its full detail (category, tags, images,
// specifications, reviews).
func (s *CatalogService) GetProduct(ctx context.Context, productID string) (*domain.Product, error) {
	product, err := s.store.GetProduct(ctx, productID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.NotFoundf("product %s not found", productID)
		}
		return nil, fmt.Errorf("get product: %w", err)
	}
	return product, nil
}

// CreateReviewRequest is a customer review submission.
type CreateReviewRequest struct {
	Author string `json:"author" validate:"required,max=100"`
	Email  string `json:"email" validate:"omitempty,email"`
	Text   string `json:"text" validate:"max=2000"`
	Rate   int    `json:"rate" validate:"required,gte=1,lte=5"`
}

// CreateReview adds a review to a product and returns the product's reviews
// with the rating already recomputed.
func (s *CatalogService) CreateReview(ctx context.Context, productID string, req CreateReviewRequest) ([]domain.Review, error) {
	if err := requestValidator.Validate(req); err != nil {
		return nil, err
	}

	reviews, err := s.store.CreateReview(ctx, &domain.Review{
		ProductID: productID,
		Author:    req.Author,
		Email:     req.Email,
		Text:      req.Text,
		Rate:      req.Rate,
	})
	if err != nil {
		if errors.Is(err, store.ErrProductNotFound) {
			return nil, domainerrors.ProductNotFoundf("product %s not found", productID)
		}
		return nil, fmt.Errorf("create review: %w", err)
	}

	s.logger.Info("review created", "product_id", productID, "rate", req.Rate)
	return reviews, nil
}
