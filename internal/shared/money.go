package shared

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentStatus is derived from paid vs total.
type PaymentStatus string

const (
	PaymentUnpaid  PaymentStatus = "unpaid"
	PaymentPartial PaymentStatus = "partial"
	PaymentPaid    PaymentStatus = "paid"
)

// Valid reports whether s is a known payment status.
func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentUnpaid, PaymentPartial, PaymentPaid:
		return true
	}
	return false
}

// DerivePaymentStatus returns paid when paid >= total, partial when 0 < paid < total, else unpaid.
func DerivePaymentStatus(paid, total decimal.Decimal) PaymentStatus {
	switch {
	case paid.GreaterThanOrEqual(total):
		return PaymentPaid
	case paid.IsPositive():
		return PaymentPartial
	default:
		return PaymentUnpaid
	}
}

// PaymentMethod enumerates how money moved.
type PaymentMethod string

const (
	MethodCash   PaymentMethod = "cash"
	MethodBank   PaymentMethod = "bank"
	MethodCheque PaymentMethod = "cheque"
)

// Valid reports whether m is a known method.
func (m PaymentMethod) Valid() bool {
	switch m {
	case MethodCash, MethodBank, MethodCheque:
		return true
	}
	return false
}

// ChequeStatus tracks a cheque from receipt to clearing or bounce.
type ChequeStatus string

const (
	ChequePending  ChequeStatus = "pending"
	ChequePassed   ChequeStatus = "passed"
	ChequeReturned ChequeStatus = "returned"
)

// Terminal reports whether no further transition is allowed.
func (s ChequeStatus) Terminal() bool {
	return s == ChequePassed || s == ChequeReturned
}

// CanTransition reports whether a cheque may move from s to next.
func (s ChequeStatus) CanTransition(next ChequeStatus) bool {
	return s == ChequePending && next.Terminal()
}

// RoundMoney rounds to two decimal places.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// DocumentNumber builds human-facing numbers such as ORD-20240131-1A2B3C4D.
func DocumentNumber(prefix string, at time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("%s-%s-%s", prefix, at.Format("20060102"), suffix)
}
