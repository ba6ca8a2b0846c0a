package api

import (
	"net/http"

	"github.com/meganoshop/megano-server/internal/domain"
	"github.com/meganoshop/megano-server/internal/http/response"
	"github.com/meganoshop/megano-server/internal/service"
)

// resolveBasketIdentity picks the basket for the caller and sets the token
// cookie when a fresh anonymous token was minted.
func (s *Server) resolveBasketIdentity(w http.ResponseWriter, r *http.Request) domain.BasketIdentity {
	identity := s.basketService.ResolveIdentity(getUserID(r.Context()), s.basketToken(r))
	if identity.NewlyMinted {
		s.setBasketCookie(w, identity.Key)
	}
	return identity
}

// handleGetBasket returns the basket contents, creating the basket on first
// touch.
func (s *Server) handleGetBasket(w http.ResponseWriter, r *http.Request) {
	identity := s.resolveBasketIdentity(w, r)

	items, err := s.basketService.Get(r.Context(), identity)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, items, s.logger)
}

// handleAddToBasket applies a positive quantity delta and returns the full
// basket.
func (s *Server) handleAddToBasket(w http.ResponseWriter, r *http.Request) {
	var req service.AddItemRequest
	if err := decodeJSON(r, &req); err != nil {
		response.BadRequest(w, "invalid request body", s.logger)
		return
	}

	identity := s.resolveBasketIdentity(w, r)

	items, err := s.basketService.Add(r.Context(), identity, req)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, items, s.logger)
}

// handleRemoveFromBasket subtracts a non-negative quantity delta and
// returns the full basket.
func (s *Server) handleRemoveFromBasket(w http.ResponseWriter, r *http.Request) {
	var req service.AddItemRequest
	if err := decodeJSON(r, &req); err != nil {
		response.BadRequest(w, "invalid request body", s.logger)
		return
	}

	identity := s.resolveBasketIdentity(w, r)

	items, err := s.basketService.Remove(r.Context(), identity, req)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, items, s.logger)
}
