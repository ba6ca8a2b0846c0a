package domain

import "time"

// DeliveryType selects the shipping option for an order.
type DeliveryType string

const (
	// DeliveryOrdinary is standard shipping; free above the configured threshold.
	DeliveryOrdinary DeliveryType = "ordinary"
	// DeliveryExpress always carries a surcharge.
	DeliveryExpress DeliveryType = "express"
)

// OrderStatus tracks an order through its lifecycle.
type OrderStatus string

const (
	// OrderStatusNew is a checkout snapshot awaiting confirmation.
	OrderStatusNew OrderStatus = "new"
	// OrderStatusAccepted is a confirmed order awaiting payment.
	OrderStatusAccepted OrderStatus = "accepted"
)

// OrderLine is a priced quantity snapshot of one product at checkout time.
// Price is copied from the product so later catalog edits don't rewrite
// order history.
type OrderLine struct {
	ID        string `json:"id"`
	OrderID   string `json:"order_id"`
	ProductID string `json:"product_id"`
	Title     string `json:"title"`
	Quantity  int    `json:"count"`
	Price     Money  `json:"price"`
}

// Order is a user's checkout. Contact fields are snapshotted from the
// profile at creation and may be overwritten at confirmation.
type Order struct {
	ID           string       `json:"id"`
	UserID       string       `json:"user_id"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
	FullName     string       `json:"full_name"`
	Email        string       `json:"email"`
	Phone        string       `json:"phone"`
	DeliveryType DeliveryType `json:"delivery_type,omitempty"`
	PaymentType  string       `json:"payment_type,omitempty"`
	City         string       `json:"city,omitempty"`
	Address      string       `json:"address,omitempty"`
	TotalCost    Money        `json:"total_cost"`
	Status       OrderStatus  `json:"status"`
	IsPaid       bool         `json:"is_paid"`
	IsConfirmed  bool         `json:"is_confirmed"`
	Lines        []OrderLine  `json:"lines,omitempty"`
}

// IsOpen reports whether the order is still an unconfirmed checkout
// snapshot. Checkout reuses an open order instead of creating another.
func (o *Order) IsOpen() bool {
	return !o.IsConfirmed
}
