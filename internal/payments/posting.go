package payments

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sierra-distribution/sierra/internal/ledger"
	"github.com/sierra-distribution/sierra/internal/shared"
)

// TxRepository is the transactional store behind payment posting.
type TxRepository interface {
	ledger.Book
	LockOrder(ctx context.Context, id int64) (OrderBalance, error)
	SumActivePayments(ctx context.Context, orderID int64) (decimal.Decimal, error)
	SetOrderPaid(ctx context.Context, orderID int64, paid decimal.Decimal, status shared.PaymentStatus) error
	InsertPayment(ctx context.Context, p Payment) (Payment, error)
	LockPayment(ctx context.Context, id int64) (Payment, error)
	SetChequeStatus(ctx context.Context, id int64, status shared.ChequeStatus) error
}

// Posting describes one payment to book inside an open transaction.
type Posting struct {
	Tender
	OrderID    *int64
	CustomerID int64
	CreatedBy  string
	Now        time.Time
}

// Post validates and books a payment: cash and bank credit the deposit account, cheques wait as
// pending. A linked order has its paid amount re-derived from the ledger and the customer's
// outstanding balance drops by the amount, floored at zero.
func Post(ctx context.Context, tx TxRepository, in Posting) (Payment, error) {
	if err := in.Validate(); err != nil {
		return Payment{}, err
	}
	if in.Now.IsZero() {
		in.Now = time.Now().UTC()
	}
	amount := shared.RoundMoney(in.Amount)
	customerID := in.CustomerID
	if in.OrderID != nil {
		order, err := tx.LockOrder(ctx, *in.OrderID)
		if err != nil {
			return Payment{}, err
		}
		if customerID != 0 && customerID != order.CustomerID {
			return Payment{}, shared.Invalid("customer_id does not match the order's customer")
		}
		customerID = order.CustomerID
	}
	if customerID == 0 {
		return Payment{}, shared.Invalid("customer_id is required when order_id is absent")
	}
	if _, err := tx.LockCustomer(ctx, customerID); err != nil {
		return Payment{}, err
	}

	p := Payment{
		PaymentNumber: shared.DocumentNumber("PAY", in.Now),
		OrderID:       in.OrderID,
		CustomerID:    customerID,
		Amount:        amount,
		Method:        in.Method,
		PaymentDate:   in.PaymentDate.OrToday(),
		Notes:         in.Notes,
		CreatedBy:     in.CreatedBy,
	}
	switch in.Method {
	case shared.MethodCheque:
		if _, err := ledger.LockActiveAccount(ctx, tx, *in.BankAccountID); err != nil {
			return Payment{}, err
		}
		p.ChequeNumber = in.ChequeNumber
		p.ChequeDate = in.ChequeDate.Ptr()
		p.ChequeStatus = shared.ChequePending
		p.BankAccountID = in.BankAccountID
	default:
		if _, err := ledger.LockActiveAccount(ctx, tx, *in.DepositAccountID); err != nil {
			return Payment{}, err
		}
		p.DepositAccountID = in.DepositAccountID
	}

	p, err := tx.InsertPayment(ctx, p)
	if err != nil {
		return Payment{}, err
	}
	if p.DepositAccountID != nil {
		if _, err := tx.PostEntry(ctx, ledger.AccountEntry{
			AccountID:     *p.DepositAccountID,
			Type:          ledger.EntryCustomerPayment,
			Amount:        amount,
			ReferenceType: "payment",
			ReferenceID:   p.ID,
			Description:   fmt.Sprintf("payment %s", p.PaymentNumber),
			CreatedBy:     in.CreatedBy,
		}); err != nil {
			return Payment{}, err
		}
	}
	if p.OrderID != nil {
		if err := RecomputeOrder(ctx, tx, *p.OrderID); err != nil {
			return Payment{}, err
		}
	}
	if _, err := tx.AdjustOutstanding(ctx, customerID, amount.Neg(), true); err != nil {
		return Payment{}, err
	}
	return p, nil
}

// RecomputeOrder re-derives paid_amount and payment_status from the order's non-returned payments.
// The order must already be locked by the caller or is locked here.
func RecomputeOrder(ctx context.Context, tx TxRepository, orderID int64) error {
	order, err := tx.LockOrder(ctx, orderID)
	if err != nil {
		return err
	}
	paid, err := tx.SumActivePayments(ctx, orderID)
	if err != nil {
		return err
	}
	return tx.SetOrderPaid(ctx, orderID, paid, shared.DerivePaymentStatus(paid, order.Total))
}

// Transition moves a pending cheque to passed or returned. Passed clears the funds into the bank
// account. Returned re-derives the order's payment status and restores the customer's
// outstanding balance by the cheque amount.
func Transition(ctx context.Context, tx TxRepository, id int64, next shared.ChequeStatus, actor string) (Payment, error) {
	if next != shared.ChequePassed && next != shared.ChequeReturned {
		return Payment{}, shared.Invalid("cheque_status must be one of [passed returned]")
	}
	p, err := tx.LockPayment(ctx, id)
	if err != nil {
		return Payment{}, err
	}
	if p.Method != shared.MethodCheque {
		return Payment{}, ErrNotCheque
	}
	if !p.ChequeStatus.CanTransition(next) {
		return Payment{}, fmt.Errorf("payment %d is %s: %w", id, p.ChequeStatus, ErrChequeFinal)
	}
	if err := tx.SetChequeStatus(ctx, id, next); err != nil {
		return Payment{}, err
	}
	p.ChequeStatus = next

	switch next {
	case shared.ChequePassed:
		if p.BankAccountID == nil {
			return Payment{}, shared.Invalid("cheque has no bank account")
		}
		if _, err := tx.LockAccount(ctx, *p.BankAccountID); err != nil {
			return Payment{}, err
		}
		if _, err := tx.PostEntry(ctx, ledger.AccountEntry{
			AccountID:     *p.BankAccountID,
			Type:          ledger.EntryChequeCleared,
			Amount:        p.Amount,
			ReferenceType: "payment",
			ReferenceID:   p.ID,
			Description:   fmt.Sprintf("cheque %s cleared", p.ChequeNumber),
			CreatedBy:     actor,
		}); err != nil {
			return Payment{}, err
		}
	case shared.ChequeReturned:
		if p.OrderID != nil {
			if err := RecomputeOrder(ctx, tx, *p.OrderID); err != nil {
				return Payment{}, err
			}
		}
		if _, err := tx.AdjustOutstanding(ctx, p.CustomerID, p.Amount, false); err != nil {
			return Payment{}, err
		}
	}
	return p, nil
}
