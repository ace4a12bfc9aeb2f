// Package paymentstest provides an in-memory payments.TxRepository for service tests.
package paymentstest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sierra-distribution/sierra/internal/ledger/ledgertest"
	"github.com/sierra-distribution/sierra/internal/payments"
	"github.com/sierra-distribution/sierra/internal/shared"
)

// Store keeps orders and payments in memory on top of a ledgertest.Book.
type Store struct {
	*ledgertest.Book

	mu       sync.Mutex
	orders   map[int64]payments.OrderBalance
	payments []payments.Payment
}

// New returns an empty Store.
func New() *Store {
	return &Store{Book: ledgertest.New(), orders: make(map[int64]payments.OrderBalance)}
}

var _ payments.TxRepository = (*Store)(nil)

// PutOrder seeds or replaces an order balance.
func (s *Store) PutOrder(o payments.OrderBalance) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders[o.ID] = o
}

// Order returns the current order balance.
func (s *Store) Order(id int64) payments.OrderBalance {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.orders[id]
}

// Payments returns a copy of all stored payments.
func (s *Store) Payments() []payments.Payment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]payments.Payment(nil), s.payments...)
}

// Checkpoint snapshots balances, orders and payments and returns a func restoring them.
func (s *Store) Checkpoint() func() {
	restoreBook := s.Book.Checkpoint()
	s.mu.Lock()
	orders := make(map[int64]payments.OrderBalance, len(s.orders))
	for k, v := range s.orders {
		orders[k] = v
	}
	list := append([]payments.Payment(nil), s.payments...)
	s.mu.Unlock()
	return func() {
		restoreBook()
		s.mu.Lock()
		defer s.mu.Unlock()
		s.orders = orders
		s.payments = list
	}
}

// WithTx runs fn and rolls back the in-memory state when it fails.
func (s *Store) WithTx(ctx context.Context, fn func(context.Context, payments.TxRepository) error) error {
	restore := s.Checkpoint()
	if err := fn(ctx, s); err != nil {
		restore()
		return err
	}
	return nil
}

// List filters stored payments, newest first.
func (s *Store) List(_ context.Context, filter payments.ListFilter) ([]payments.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []payments.Payment
	for i := len(s.payments) - 1; i >= 0; i-- {
		p := s.payments[i]
		if filter.CustomerID != nil && p.CustomerID != *filter.CustomerID {
			continue
		}
		if filter.OrderID != nil && (p.OrderID == nil || *p.OrderID != *filter.OrderID) {
			continue
		}
		if filter.ChequeStatus != "" && p.ChequeStatus != filter.ChequeStatus {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (s *Store) Get(_ context.Context, id int64) (payments.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.payments {
		if p.ID == id {
			return p, nil
		}
	}
	return payments.Payment{}, fmt.Errorf("payment %d: %w", id, payments.ErrPaymentNotFound)
}

func (s *Store) LockOrder(_ context.Context, id int64) (payments.OrderBalance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return payments.OrderBalance{}, fmt.Errorf("order %d: %w", id, payments.ErrOrderNotFound)
	}
	return o, nil
}

func (s *Store) SumActivePayments(_ context.Context, orderID int64) (decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sum := decimal.Zero
	for _, p := range s.payments {
		if p.OrderID != nil && *p.OrderID == orderID && p.Active() {
			sum = sum.Add(p.Amount)
		}
	}
	return sum, nil
}

func (s *Store) SetOrderPaid(_ context.Context, orderID int64, paid decimal.Decimal, status shared.PaymentStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[orderID]
	if !ok {
		return fmt.Errorf("order %d: %w", orderID, payments.ErrOrderNotFound)
	}
	o.Paid = paid
	o.PaymentStatus = status
	s.orders[orderID] = o
	return nil
}

func (s *Store) InsertPayment(_ context.Context, p payments.Payment) (payments.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.ID = int64(len(s.payments) + 1)
	p.CreatedAt = time.Now().UTC()
	s.payments = append(s.payments, p)
	return p, nil
}

func (s *Store) LockPayment(ctx context.Context, id int64) (payments.Payment, error) {
	return s.Get(ctx, id)
}

func (s *Store) SetChequeStatus(_ context.Context, id int64, status shared.ChequeStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.payments {
		if s.payments[i].ID == id {
			s.payments[i].ChequeStatus = status
			return nil
		}
	}
	return fmt.Errorf("payment %d: %w", id, payments.ErrPaymentNotFound)
}
