// Package sales handles order intake: bills, their items, stock issue and customer balances.
package sales

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sierra-distribution/sierra/internal/payments"
	"github.com/sierra-distribution/sierra/internal/shared"
)

// OrderStatus tracks fulfilment. It is independent of payment status.
type OrderStatus string

const (
	StatusConfirmed  OrderStatus = "confirmed"
	StatusProcessing OrderStatus = "processing"
	StatusShipped    OrderStatus = "shipped"
	StatusDelivered  OrderStatus = "delivered"
)

// Valid reports whether s is a known status.
func (s OrderStatus) Valid() bool {
	switch s {
	case StatusConfirmed, StatusProcessing, StatusShipped, StatusDelivered:
		return true
	}
	return false
}

var (
	// ErrInsufficientStock rejects an order whose quantity exceeds stock on hand.
	ErrInsufficientStock = fmt.Errorf("insufficient stock: %w", shared.ErrConflict)
	// ErrOrderNotFound is returned for unknown order ids.
	ErrOrderNotFound = payments.ErrOrderNotFound
	// ErrProductInactive rejects sales of deactivated products.
	ErrProductInactive = shared.Invalid("product is inactive")
)

// Order is a customer bill.
type Order struct {
	ID             int64                `json:"id"`
	OrderNumber    string               `json:"order_number"`
	CustomerID     int64                `json:"customer_id"`
	CustomerName   string               `json:"customer_name,omitempty"`
	OrderDate      time.Time            `json:"order_date"`
	Status         OrderStatus          `json:"status"`
	Subtotal       decimal.Decimal      `json:"subtotal"`
	DiscountAmount decimal.Decimal      `json:"discount_amount"`
	TotalAmount    decimal.Decimal      `json:"total_amount"`
	PaidAmount     decimal.Decimal      `json:"paid_amount"`
	PaymentStatus  shared.PaymentStatus `json:"payment_status"`
	PaymentMethod  string               `json:"payment_method,omitempty"`
	Notes          string               `json:"notes,omitempty"`
	CreatedBy      string               `json:"created_by,omitempty"`
	CreatedAt      time.Time            `json:"created_at"`
	UpdatedAt      time.Time            `json:"updated_at"`
	Items          []OrderItem          `json:"items,omitempty"`
	Payments       []payments.Payment   `json:"payments,omitempty"`
}

// OrderItem is one immutable bill line. CostPrice is the product cost at sale time.
type OrderItem struct {
	ID              int64           `json:"id"`
	OrderID         int64           `json:"order_id"`
	ProductID       int64           `json:"product_id"`
	ProductName     string          `json:"product_name,omitempty"`
	Quantity        int             `json:"quantity"`
	UnitPrice       decimal.Decimal `json:"unit_price"`
	CostPrice       decimal.Decimal `json:"cost_price"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
	LineTotal       decimal.Decimal `json:"line_total"`
}

// Profit is the margin of the line over its snapshotted cost.
func (it OrderItem) Profit() decimal.Decimal {
	return it.UnitPrice.Sub(it.CostPrice).Mul(decimal.NewFromInt(int64(it.Quantity)))
}

// LineInput is one requested bill line.
type LineInput struct {
	ProductID       int64           `json:"product_id" validate:"required,gt=0"`
	Quantity        int             `json:"quantity" validate:"required,gt=0"`
	UnitPrice       decimal.Decimal `json:"unit_price" validate:"gte=0"`
	DiscountPercent decimal.Decimal `json:"discount_percent" validate:"gte=0,lte=100"`
}

// CreateOrderInput is the body of POST /api/orders.
type CreateOrderInput struct {
	CustomerID     int64            `json:"customer_id" validate:"required,gt=0"`
	OrderDate      shared.Date      `json:"order_date"`
	Items          []LineInput      `json:"items" validate:"required,min=1,dive"`
	DiscountAmount decimal.Decimal  `json:"discount_amount" validate:"gte=0"`
	Notes          string           `json:"notes" validate:"omitempty,max=1000"`
	Payment        *payments.Tender `json:"payment"`
}

// CreatedOrder is the response of order creation. Profit is computed, never stored.
type CreatedOrder struct {
	Order
	Profit decimal.Decimal `json:"profit"`
}

// UpdateOrderInput is the body of PUT /api/orders/{id}. A supplied payment_status only
// triggers recomputation from the payment ledger.
type UpdateOrderInput struct {
	Status        *OrderStatus          `json:"status"`
	PaymentStatus *shared.PaymentStatus `json:"payment_status"`
	Notes         *string               `json:"notes" validate:"omitempty,max=1000"`
}

// UnpaidOrder is an order with money still owed on it.
type UnpaidOrder struct {
	ID            int64                `json:"id"`
	OrderNumber   string               `json:"order_number"`
	CustomerID    int64                `json:"customer_id"`
	CustomerName  string               `json:"customer_name"`
	OrderDate     time.Time            `json:"order_date"`
	TotalAmount   decimal.Decimal      `json:"total_amount"`
	PaidAmount    decimal.Decimal      `json:"paid_amount"`
	Outstanding   decimal.Decimal      `json:"outstanding"`
	PaymentStatus shared.PaymentStatus `json:"payment_status"`
}

// ListFilter narrows order listings.
type ListFilter struct {
	CustomerID    *int64
	Status        OrderStatus
	PaymentStatus shared.PaymentStatus
	From          time.Time
	To            time.Time
	Limit         int
	Offset        int
}
