package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/meganoshop/megano-server/internal/http/response"
	"github.com/meganoshop/megano-server/internal/service"
	"github.com/meganoshop/megano-server/internal/store"
)

// handleListCatalog returns a filtered, sorted page of products.
//
// Query parameters: title, category, tag, free_delivery, available,
// min_price, max_price, sort (date|price|rating|reviews), order (asc|desc),
// page, limit.
func (s *Server) handleListCatalog(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := store.ProductFilter{
		Title:      q.Get("title"),
		CategoryID: q.Get("category"),
		Tag:        q.Get("tag"),
		MinPrice:   q.Get("min_price"),
		MaxPrice:   q.Get("max_price"),
		Sort:       q.Get("sort"),
		Descending: q.Get("order") != "asc",
		Limit:      parseIntParam(q.Get("limit"), 0),
	}
	if v := q.Get("free_delivery"); v != "" {
		free := v == "true" || v == "1"
		filter.FreeDelivery = &free
	}
	if v := q.Get("available"); v == "true" || v == "1" {
		filter.Available = true
	}

	page := parseIntParam(q.Get("page"), 1)

	result, err := s.catalogService.ListProducts(r.Context(), filter, page)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, result, s.logger)
}

// handleListCategories returns all categories.
func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := s.catalogService.ListCategories(r.Context())
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, categories, s.logger)
}

// handleListTags returns all tags.
func (s *Server) handleListTags(w http.ResponseWriter, r *http.Request) {
	tags, err := s.catalogService.ListTags(r.Context())
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, tags, s.logger)
}

// handleGetProduct returns one product with full detail.
func (s *Server) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	product, err := s.catalogService.GetProduct(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, product, s.logger)
}

// handleCreateReview adds a review and returns the product's reviews with
// the recomputed rating already applied.
func (s *Server) handleCreateReview(w http.ResponseWriter, r *http.Request) {
	var req service.CreateReviewRequest
	if err := decodeJSON(r, &req); err != nil {
		response.BadRequest(w, "invalid request body", s.logger)
		return
	}

	reviews, err := s.catalogService.CreateReview(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Created(w, reviews, s.logger)
}

// parseIntParam parses a non-negative integer query parameter, falling back
// to def on anything unparseable.
func parseIntParam(raw string, def int) int {
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return def
	}
	return n
}
