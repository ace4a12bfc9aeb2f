// Package procurement records supplier purchases, their admin-only edits and supplier payments.
package procurement

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sierra-distribution/sierra/internal/shared"
)

var (
	// ErrPurchaseNotFound is returned for unknown purchase ids.
	ErrPurchaseNotFound = shared.NotFound("purchase")
	// ErrSupplierNotFound is returned for unknown supplier ids.
	ErrSupplierNotFound = shared.NotFound("supplier")
	// ErrNoPrimarySupplier is returned when supplier_id is omitted and no primary supplier exists.
	ErrNoPrimarySupplier = shared.NotFound("primary supplier")
	// ErrSupplierPaymentNotFound is returned for unknown supplier payment ids.
	ErrSupplierPaymentNotFound = shared.NotFound("supplier payment")
	// ErrChequeFinal indicates the cheque already passed or was returned.
	ErrChequeFinal = fmt.Errorf("cheque status is final: %w", shared.ErrConflict)
	// ErrNotCheque indicates a cheque transition on a cash or bank payment.
	ErrNotCheque = shared.Invalid("supplier payment is not a cheque")
)

// Supplier is the locked reference view of a supplier row.
type Supplier struct {
	ID   int64
	Name string
}

// Purchase is a supplier bill.
type Purchase struct {
	ID             int64                `json:"id"`
	PurchaseNumber string               `json:"purchase_number"`
	SupplierID     int64                `json:"supplier_id"`
	SupplierName   string               `json:"supplier_name,omitempty"`
	PurchaseDate   time.Time            `json:"purchase_date"`
	Subtotal       decimal.Decimal      `json:"subtotal"`
	DiscountAmount decimal.Decimal      `json:"discount_amount"`
	TotalAmount    decimal.Decimal      `json:"total_amount"`
	PaidAmount     decimal.Decimal      `json:"paid_amount"`
	BalanceDue     decimal.Decimal      `json:"balance_due"`
	PaymentStatus  shared.PaymentStatus `json:"payment_status"`
	Notes          string               `json:"notes,omitempty"`
	CreatedBy      string               `json:"created_by,omitempty"`
	CreatedAt      time.Time            `json:"created_at"`
	UpdatedAt      time.Time            `json:"updated_at"`
	Items          []PurchaseItem       `json:"items,omitempty"`
	Payments       []SupplierPayment    `json:"payments,omitempty"`
}

// PurchaseItem is one purchased line.
type PurchaseItem struct {
	ID          int64           `json:"id"`
	PurchaseID  int64           `json:"purchase_id"`
	ProductID   int64           `json:"product_id"`
	ProductName string          `json:"product_name,omitempty"`
	Quantity    int             `json:"quantity"`
	UnitCost    decimal.Decimal `json:"unit_cost"`
	LineTotal   decimal.Decimal `json:"line_total"`
}

// ItemInput is one requested purchase line.
type ItemInput struct {
	ProductID int64           `json:"product_id" validate:"required,gt=0"`
	Quantity  int             `json:"quantity" validate:"required,gt=0"`
	UnitCost  decimal.Decimal `json:"unit_cost" validate:"gte=0"`
}

// PurchaseInput is the body of purchase create and edit. SupplierID defaults to the primary supplier.
type PurchaseInput struct {
	SupplierID     *int64          `json:"supplier_id" validate:"omitempty,gt=0"`
	PurchaseDate   shared.Date     `json:"purchase_date"`
	Items          []ItemInput     `json:"items" validate:"required,min=1,dive"`
	DiscountAmount decimal.Decimal `json:"discount_amount" validate:"gte=0"`
	Notes          string          `json:"notes" validate:"omitempty,max=1000"`
}

// SupplierPayment is money paid to a supplier, optionally against a purchase.
type SupplierPayment struct {
	ID            int64                `json:"id"`
	PaymentNumber string               `json:"payment_number"`
	PurchaseID    *int64               `json:"purchase_id,omitempty"`
	SupplierID    int64                `json:"supplier_id"`
	Amount        decimal.Decimal      `json:"amount"`
	Method        shared.PaymentMethod `json:"payment_method"`
	AccountID     int64                `json:"account_id"`
	ChequeNumber  string               `json:"cheque_number,omitempty"`
	ChequeDate    *time.Time           `json:"cheque_date,omitempty"`
	ChequeStatus  shared.ChequeStatus  `json:"cheque_status,omitempty"`
	PaymentDate   time.Time            `json:"payment_date"`
	Notes         string               `json:"notes,omitempty"`
	CreatedBy     string               `json:"created_by,omitempty"`
	CreatedAt     time.Time            `json:"created_at"`
}

// SupplierPaymentInput is the body of POST /api/supplier-payments.
type SupplierPaymentInput struct {
	PurchaseID   *int64               `json:"purchase_id" validate:"omitempty,gt=0"`
	SupplierID   *int64               `json:"supplier_id" validate:"omitempty,gt=0"`
	Amount       decimal.Decimal      `json:"amount"`
	Method       shared.PaymentMethod `json:"payment_method" validate:"required,oneof=cash bank cheque"`
	AccountID    int64                `json:"account_id" validate:"required,gt=0"`
	ChequeNumber string               `json:"cheque_number" validate:"omitempty,max=64"`
	ChequeDate   *shared.Date         `json:"cheque_date"`
	PaymentDate  shared.Date          `json:"payment_date"`
	Notes        string               `json:"notes" validate:"omitempty,max=500"`
}

// Validate checks amount and cheque fields.
func (in SupplierPaymentInput) Validate() error {
	if !in.Amount.IsPositive() {
		return shared.Invalid("amount must be greater than 0")
	}
	if !in.Method.Valid() {
		return shared.Invalid("payment_method must be one of [cash bank cheque]")
	}
	if in.AccountID <= 0 {
		return shared.Invalid("account_id is required")
	}
	if in.Method == shared.MethodCheque && (in.ChequeNumber == "" || in.ChequeDate.Ptr() == nil) {
		return shared.Invalid("cheque_number and cheque_date are required for cheque payments")
	}
	if in.PurchaseID == nil && in.SupplierID == nil {
		return shared.Invalid("purchase_id or supplier_id is required")
	}
	return nil
}

// ChequeTransitionInput is the body of PATCH /api/supplier-payments/{id}.
type ChequeTransitionInput struct {
	ChequeStatus shared.ChequeStatus `json:"cheque_status" validate:"required,oneof=passed returned"`
}

// ListFilter narrows purchase listings.
type ListFilter struct {
	SupplierID    *int64
	PaymentStatus shared.PaymentStatus
	From          time.Time
	To            time.Time
	Limit         int
	Offset        int
}

// PaymentFilter narrows supplier payment listings.
type PaymentFilter struct {
	SupplierID   *int64
	PurchaseID   *int64
	ChequeStatus shared.ChequeStatus
	Limit        int
	Offset       int
}
