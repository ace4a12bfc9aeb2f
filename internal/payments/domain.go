// Package payments records customer payments and drives the cheque lifecycle.
package payments

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sierra-distribution/sierra/internal/shared"
)

var (
	// ErrPaymentNotFound is returned for unknown payment ids.
	ErrPaymentNotFound = shared.NotFound("payment")
	// ErrOrderNotFound is returned when a payment references an unknown order.
	ErrOrderNotFound = shared.NotFound("order")
	// ErrChequeFinal indicates the cheque already passed or was returned.
	ErrChequeFinal = fmt.Errorf("cheque status is final: %w", shared.ErrConflict)
	// ErrNotCheque indicates a cheque transition on a cash or bank payment.
	ErrNotCheque = shared.Invalid("payment is not a cheque")
)

// Payment is a customer payment, linked to an order or standing as customer credit.
type Payment struct {
	ID               int64                `json:"id"`
	PaymentNumber    string               `json:"payment_number"`
	OrderID          *int64               `json:"order_id,omitempty"`
	CustomerID       int64                `json:"customer_id"`
	Amount           decimal.Decimal      `json:"amount"`
	Method           shared.PaymentMethod `json:"payment_method"`
	PaymentDate      time.Time            `json:"payment_date"`
	DepositAccountID *int64               `json:"deposit_account_id,omitempty"`
	ChequeNumber     string               `json:"cheque_number,omitempty"`
	ChequeDate       *time.Time           `json:"cheque_date,omitempty"`
	ChequeStatus     shared.ChequeStatus  `json:"cheque_status,omitempty"`
	BankAccountID    *int64               `json:"bank_account_id,omitempty"`
	Notes            string               `json:"notes,omitempty"`
	CreatedBy        string               `json:"created_by,omitempty"`
	CreatedAt        time.Time            `json:"created_at"`
}

// Active reports whether the payment still counts towards paid totals.
func (p Payment) Active() bool {
	return p.ChequeStatus != shared.ChequeReturned
}

// Tender holds the method-specific fields of a payment. Order intake reuses it for initial payments.
type Tender struct {
	Amount           decimal.Decimal      `json:"amount"`
	Method           shared.PaymentMethod `json:"payment_method" validate:"required,oneof=cash bank cheque"`
	PaymentDate      shared.Date          `json:"payment_date"`
	DepositAccountID *int64               `json:"deposit_account_id" validate:"omitempty,gt=0"`
	ChequeNumber     string               `json:"cheque_number" validate:"omitempty,max=64"`
	ChequeDate       *shared.Date         `json:"cheque_date"`
	BankAccountID    *int64               `json:"bank_account_id" validate:"omitempty,gt=0"`
	Notes            string               `json:"notes" validate:"omitempty,max=500"`
}

// Validate checks amount and the fields each method requires.
func (t Tender) Validate() error {
	if !t.Amount.IsPositive() {
		return shared.Invalid("amount must be greater than 0")
	}
	if !t.Method.Valid() {
		return shared.Invalid("payment_method must be one of [cash bank cheque]")
	}
	switch t.Method {
	case shared.MethodCash, shared.MethodBank:
		if t.DepositAccountID == nil {
			return shared.Invalid("deposit_account_id is required for cash and bank payments")
		}
	case shared.MethodCheque:
		if t.ChequeNumber == "" {
			return shared.Invalid("cheque_number is required for cheque payments")
		}
		if t.ChequeDate.Ptr() == nil {
			return shared.Invalid("cheque_date is required for cheque payments")
		}
		if t.BankAccountID == nil {
			return shared.Invalid("bank_account_id is required for cheque payments")
		}
	}
	return nil
}

// RecordInput is the body of POST /api/payments.
type RecordInput struct {
	Tender
	OrderID    *int64 `json:"order_id" validate:"omitempty,gt=0"`
	CustomerID *int64 `json:"customer_id" validate:"omitempty,gt=0"`
}

// TransitionInput is the body of PATCH /api/payments/{id}.
type TransitionInput struct {
	ChequeStatus shared.ChequeStatus `json:"cheque_status" validate:"required,oneof=passed returned"`
}

// OrderBalance is the locked payment view of an order.
type OrderBalance struct {
	ID            int64
	CustomerID    int64
	Total         decimal.Decimal
	Paid          decimal.Decimal
	PaymentStatus shared.PaymentStatus
}

// ListFilter narrows payment listings.
type ListFilter struct {
	CustomerID   *int64
	OrderID      *int64
	ChequeStatus shared.ChequeStatus
	Limit        int
	Offset       int
}
