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

// DeliveryPricing holds the delivery cost rules applied at confirmation.
type DeliveryPricing struct {
	// FreeDeliveryThreshold is the subtotal at or above which ordinary
	// delivery is free.
	FreeDeliveryThreshold domain.Money
	// OrdinaryCost is added below the threshold.
	OrdinaryCost domain.Money
	// ExpressCost is always added for express delivery.
	ExpressCost domain.Money
}

// OrderService handles checkout, confirmation, and payment.
type OrderService struct {
	store   store.Store
	pricing DeliveryPricing
	logger  *slog.Logger
}

// NewOrderService creates a new order service.
func NewOrderService(store store.Store, pricing DeliveryPricing, logger *slog.Logger) *OrderService {
	return &OrderService{
		store:   store,
		pricing: pricing,
		logger:  logger,
	}
}

// Checkout turns the user's basket into an order snapshot. If the user
// already has an unconfirmed order, its snapshot is replaced instead of
// creating a second one. The basket itself is untouched until confirmation.
func (s *OrderService) Checkout(ctx context.Context, userID string) (*domain.Order, error) {
	basket, err := s.store.GetOrCreateBasket(ctx, domain.BasketIdentity{
		Kind: domain.IdentityUser,
		Key:  userID,
	})
	if err != nil {
		return nil, fmt.Errorf("resolve basket: %w", err)
	}

	items, err := s.store.ListBasketItems(ctx, basket.ID)
	if err != nil {
		return nil, fmt.Errorf("list basket items: %w", err)
	}
	if len(items) == 0 {
		return nil, domainerrors.Validation("basket is empty")
	}

	lines := make([]domain.OrderLine, 0, len(items))
	for _, item := range items {
		lines = append(lines, domain.OrderLine{
			ProductID: item.ProductID,
			Title:     item.Title,
			Quantity:  item.Quantity,
			Price:     item.Price,
		})
	}

	total, err := domain.TotalCost(items)
	if err != nil {
		return nil, fmt.Errorf("total basket cost: %w", err)
	}

	// Contact fields are snapshotted from the profile; the confirmation
	// step may overwrite them.
	profile, err := s.store.GetProfile(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}

	order := &domain.Order{
		UserID:    userID,
		FullName:  profile.FullName,
		Email:     profile.Email,
		Phone:     profile.Phone,
		TotalCost: total,
		Lines:     lines,
	}

	open, err := s.store.GetOpenOrder(ctx, userID)
	switch {
	case err == nil:
		order.ID = open.ID
		order, err = s.store.ReplaceOrderSnapshot(ctx, order)
		if err != nil {
			return nil, fmt.Errorf("replace order snapshot: %w", err)
		}
	case errors.Is(err, store.ErrNotFound):
		order, err = s.store.CreateOrder(ctx, order)
		if err != nil {
			return nil, fmt.Errorf("create order: %w", err)
		}
	default:
		return nil, fmt.Errorf("get open order: %w", err)
	}

	s.logger.Info("checkout snapshot created", "order_id", order.ID, "user_id", userID, "lines", len(order.Lines))
	return order, nil
}

// ListOrders returns the user's orders, newest first.
func (s *OrderService) ListOrders(ctx context.Context, userID string) ([]domain.Order, error) {
	return s.store.ListOrders(ctx, userID)
}

// GetOrder returns one of the user's orders. Another user's order reads as
// not found rather than forbidden, so order IDs can't be probed.
func (s *OrderService) GetOrder(ctx context.Context, userID, orderID string) (*domain.Order, error) {
	order, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.NotFoundf("order %s not found", orderID)
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	if order.UserID != userID {
		return nil, domainerrors.NotFoundf("order %s not found", orderID)
	}
	return order, nil
}

// ConfirmOrderRequest carries the delivery and contact details collected on
// the checkout page.
type ConfirmOrderRequest struct {
	FullName     string `json:"full_name" validate:"required,max=200"`
	Email        string `json:"email" validate:"required,email"`
	Phone        string `json:"phone" validate:"required,max=32"`
	DeliveryType string `json:"delivery_type" validate:"required,oneof=ordinary express"`
	PaymentType  string `json:"payment_type" validate:"required,oneof=online someone"`
	City         string `json:"city" validate:"required,max=100"`
	Address      string `json:"address" validate:"required,max=300"`
}

// ConfirmOrder finalizes an open order: the delivery cost is added to the
// line subtotal, stock is decremented, and the basket is emptied.
//
// Express delivery always carries the express surcharge. Ordinary delivery
// costs extra only when the line subtotal is below the free-delivery
// threshold.
func (s *OrderService) ConfirmOrder(ctx context.Context, userID, orderID string, req ConfirmOrderRequest) (*domain.Order, error) {
	if err := requestValidator.Validate(req); err != nil {
		return nil, err
	}

	order, err := s.GetOrder(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}
	if !order.IsOpen() {
		return nil, domainerrors.Conflict("order is already confirmed")
	}

	// Recompute the subtotal from the lines; the stored total may already
	// include a delivery cost from an earlier confirmation attempt.
	subtotal := domain.Money{Currency: order.TotalCost.Currency}
	for _, line := range order.Lines {
		subtotal, err = subtotal.Add(line.Price.MulInt(int64(line.Quantity)))
		if err != nil {
			return nil, fmt.Errorf("sum order lines: %w", err)
		}
	}

	total, err := s.applyDeliveryCost(subtotal, domain.DeliveryType(req.DeliveryType))
	if err != nil {
		return nil, err
	}

	order.FullName = req.FullName
	order.Email = req.Email
	order.Phone = req.Phone
	order.DeliveryType = domain.DeliveryType(req.DeliveryType)
	order.PaymentType = req.PaymentType
	order.City = req.City
	order.Address = req.Address
	order.TotalCost = total

	confirmed, err := s.store.ConfirmOrder(ctx, order)
	if err != nil {
		if errors.Is(err, store.ErrInvalidInput) {
			return nil, domainerrors.Conflict("order is already confirmed")
		}
		return nil, fmt.Errorf("confirm order: %w", err)
	}

	s.logger.Info("order confirmed",
		"order_id", confirmed.ID,
		"user_id", userID,
		"delivery", confirmed.DeliveryType,
		"total", confirmed.TotalCost.String(),
	)
	return confirmed, nil
}

func (s *OrderService) applyDeliveryCost(subtotal domain.Money, deliveryType domain.DeliveryType) (domain.Money, error) {
	switch deliveryType {
	case domain.DeliveryExpress:
		return subtotal.Add(s.pricing.ExpressCost)
	case domain.DeliveryOrdinary:
		if subtotal.Amount.GreaterThanOrEqual(s.pricing.FreeDeliveryThreshold.Amount) {
			return subtotal, nil
		}
		return subtotal.Add(s.pricing.OrdinaryCost)
	default:
		return domain.Money{}, domainerrors.Validationf("unknown delivery type %q", deliveryType)
	}
}

// PaymentRequest carries the card details for the stub payment validator.
type PaymentRequest struct {
	Number string `json:"number" validate:"required,len=16,numeric"`
	Name   string `json:"name" validate:"required,max=200"`
	Month  string `json:"month" validate:"required,len=2,numeric"`
	Year   string `json:"year" validate:"required,len=4,numeric"`
	Code   string `json:"code" validate:"required,len=3,numeric"`
}

// Pay validates the card details against the stub rules and marks a
// confirmed order as paid. No external payment provider is involved.
func (s *OrderService) Pay(ctx context.Context, userID, orderID string, req PaymentRequest) (*domain.Order, error) {
	if err := requestValidator.Validate(req); err != nil {
		return nil, err
	}
	if req.Month < "01" || req.Month > "12" {
		return nil, domainerrors.Validation("month must be between 01 and 12")
	}
	if req.Year < "2000" || req.Year > "2100" {
		return nil, domainerrors.Validation("year must be between 2000 and 2100")
	}

	order, err := s.GetOrder(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}
	if order.IsPaid {
		return nil, domainerrors.Conflict("order is already paid")
	}

	paid, err := s.store.MarkOrderPaid(ctx, order.ID)
	if err != nil {
		if errors.Is(err, store.ErrInvalidInput) {
			return nil, domainerrors.Conflict("order is not confirmed yet")
		}
		return nil, fmt.Errorf("mark order paid: %w", err)
	}

	s.logger.Info("order paid", "order_id", paid.ID, "user_id", userID)
	return paid, nil
}
