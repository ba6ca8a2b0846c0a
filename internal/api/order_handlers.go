package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/meganoshop/megano-server/internal/http/response"
	"github.com/meganoshop/megano-server/internal/service"
)

// handleCheckout snapshots the user's basket into an order. When an open
// (unconfirmed) order already exists it is refreshed instead of duplicated.
func (s *Server) handleCheckout(w http.ResponseWriter, r *http.Request) {
	order, err := s.orderService.Checkout(r.Context(), getUserID(r.Context()))
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Created(w, order, s.logger)
}

// handleListOrders returns the user's order history, newest first.
func (s *Server) handleListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := s.orderService.ListOrders(r.Context(), getUserID(r.Context()))
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, orders, s.logger)
}

// handleGetOrder returns one of the user's orders.
func (s *Server) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	order, err := s.orderService.GetOrder(r.Context(), getUserID(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, order, s.logger)
}

// handleConfirmOrder finalizes an open order with delivery and contact
// details. Stock is decremented and the basket emptied.
func (s *Server) handleConfirmOrder(w http.ResponseWriter, r *http.Request) {
	var req service.ConfirmOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		response.BadRequest(w, "invalid request body", s.logger)
		return
	}

	order, err := s.orderService.ConfirmOrder(r.Context(), getUserID(r.Context()), chi.URLParam(r, "id"), req)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, order, s.logger)
}

// handlePayment runs the card details through the stub validator and marks a
// confirmed order as paid.
func (s *Server) handlePayment(w http.ResponseWriter, r *http.Request) {
	var req service.PaymentRequest
	if err := decodeJSON(r, &req); err != nil {
		response.BadRequest(w, "invalid request body", s.logger)
		return
	}

	order, err := s.orderService.Pay(r.Context(), getUserID(r.Context()), chi.URLParam(r, "id"), req)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, order, s.logger)
}
