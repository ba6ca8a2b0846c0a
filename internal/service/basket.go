package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/meganoshop/megano-server/internal/domain"
	domainerrors "github.com/meganoshop/megano-server/internal/errors"
	"github.com/meganoshop/megano-server/internal/store"
)

// BasketService manages basket contents for both signed-in users and
// anonymous visitors.
type BasketService struct {
	store  store.Store
	logger *slog.Logger
}

// NewBasketService creates a new basket service.
func NewBasketService(store store.Store, logger *slog.Logger) *BasketService {
	return &BasketService{
		store:  store,
		logger: logger,
	}
}

// ResolveIdentity picks the basket identity for a request. A signed-in user
// always gets their user-scoped basket, regardless of any cookie token. An
// anonymous visitor gets the basket behind their cookie token; with no
// cookie, a fresh token is minted and flagged NewlyMinted so the handler
// knows to set the cookie.
func (s *BasketService) ResolveIdentity(userID, cookieToken string) domain.BasketIdentity {
	if userID != "" {
		return domain.BasketIdentity{Kind: domain.IdentityUser, Key: userID}
	}
	if cookieToken != "" {
		return domain.BasketIdentity{Kind: domain.IdentityAnonymous, Key: cookieToken}
	}
	return domain.BasketIdentity{
		Kind:        domain.IdentityAnonymous,
		Key:         uuid.NewString(),
		NewlyMinted: true,
	}
}

// Get returns the basket contents for an identity, creating the basket on
// first touch.
func (s *BasketService) Get(ctx context.Context, identity domain.BasketIdentity) ([]domain.BasketItem, error) {
	basket, err := s.store.GetOrCreateBasket(ctx, identity)
	if err != nil {
		return nil, fmt.Errorf("resolve basket: %w", err)
	}

	items, err := s.store.ListBasketItems(ctx, basket.ID)
	if err != nil {
		return nil, fmt.Errorf("list basket items: %w", err)
	}
	return items, nil
}

// AddItemRequest is a quantity delta applied to a basket line.
type AddItemRequest struct {
	ProductID string `json:"id" validate:"required"`
	Count     int    `json:"count"`
}

// Add applies a positive quantity delta for a product and returns the full
// basket contents. The quantity is capped at the product's stock without an
// error; the caller sees the capped count in the returned items.
func (s *BasketService) Add(ctx context.Context, identity domain.BasketIdentity, req AddItemRequest) ([]domain.BasketItem, error) {
	if err := requestValidator.Validate(req); err != nil {
		return nil, err
	}
	if req.Count < 0 {
		// Rejected before any basket is touched.
		return nil, domainerrors.InvalidQuantity("count must be a non-negative integer")
	}

	basket, err := s.store.GetOrCreateBasket(ctx, identity)
	if err != nil {
		return nil, fmt.Errorf("resolve basket: %w", err)
	}

	items, err := s.store.AddQuantity(ctx, basket.ID, req.ProductID, req.Count)
	if err != nil {
		if errors.Is(err, store.ErrProductNotFound) {
			return nil, domainerrors.ProductNotFoundf("product %s not found", req.ProductID)
		}
		return nil, fmt.Errorf("add quantity: %w", err)
	}
	return items, nil
}

// Remove subtracts a quantity delta for a product and returns the full
// basket contents. Removing at least the line's quantity deletes the line.
func (s *BasketService) Remove(ctx context.Context, identity domain.BasketIdentity, req AddItemRequest) ([]domain.BasketItem, error) {
	if err := requestValidator.Validate(req); err != nil {
		return nil, err
	}
	if req.Count < 0 {
		return nil, domainerrors.InvalidQuantity("count must be a non-negative integer")
	}

	basket, err := s.store.GetOrCreateBasket(ctx, identity)
	if err != nil {
		return nil, fmt.Errorf("resolve basket: %w", err)
	}

	items, err := s.store.RemoveQuantity(ctx, basket.ID, req.ProductID, req.Count)
	if err != nil {
		if errors.Is(err, store.ErrLineNotFound) {
			return nil, domainerrors.LineNotFound("product not in basket")
		}
		return nil, fmt.Errorf("remove quantity: %w", err)
	}
	return items, nil
}
