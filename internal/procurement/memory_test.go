package procurement

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/sierra-distribution/sierra/internal/ledger/ledgertest"
	"github.com/sierra-distribution/sierra/internal/shared"
)

type memoryStore struct {
	*ledgertest.Book

	mu        sync.Mutex
	suppliers map[int64]Supplier
	primary   int64
	purchases map[int64]Purchase
	items     []PurchaseItem
	payments  []SupplierPayment
	nextID    int64
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		Book:      ledgertest.New(),
		suppliers: make(map[int64]Supplier),
		purchases: make(map[int64]Purchase),
	}
}

var _ TxRepository = (*memoryStore)(nil)

func (s *memoryStore) addSupplier(sup Supplier, primary bool) {
	s.suppliers[sup.ID] = sup
	if primary {
		s.primary = sup.ID
	}
}

func (s *memoryStore) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	restoreBook := s.Book.Checkpoint()
	s.mu.Lock()
	purchases := make(map[int64]Purchase, len(s.purchases))
	for k, v := range s.purchases {
		purchases[k] = v
	}
	items := append([]PurchaseItem(nil), s.items...)
	pays := append([]SupplierPayment(nil), s.payments...)
	s.mu.Unlock()
	if err := fn(ctx, s); err != nil {
		restoreBook()
		s.mu.Lock()
		s.purchases, s.items, s.payments = purchases, items, pays
		s.mu.Unlock()
		return err
	}
	return nil
}

func (s *memoryStore) LockSupplier(_ context.Context, id int64) (Supplier, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sup, ok := s.suppliers[id]
	if !ok {
		return Supplier{}, fmt.Errorf("supplier %d: %w", id, ErrSupplierNotFound)
	}
	return sup, nil
}

func (s *memoryStore) PrimarySupplier(ctx context.Context) (Supplier, error) {
	if s.primary == 0 {
		return Supplier{}, ErrNoPrimarySupplier
	}
	return s.LockSupplier(ctx, s.primary)
}

func (s *memoryStore) InsertPurchase(_ context.Context, p Purchase) (Purchase, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	p.ID = s.nextID
	s.purchases[p.ID] = p
	return p, nil
}

func (s *memoryStore) LockPurchase(_ context.Context, id int64) (Purchase, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.purchases[id]
	if !ok {
		return Purchase{}, fmt.Errorf("purchase %d: %w", id, ErrPurchaseNotFound)
	}
	return p, nil
}

func (s *memoryStore) UpdatePurchase(_ context.Context, p Purchase) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.Items, p.Payments = nil, nil
	s.purchases[p.ID] = p
	return nil
}

func (s *memoryStore) PurchaseItems(_ context.Context, purchaseID int64) ([]PurchaseItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []PurchaseItem
	for _, it := range s.items {
		if it.PurchaseID == purchaseID {
			out = append(out, it)
		}
	}
	return out, nil
}

func (s *memoryStore) DeleteItems(_ context.Context, purchaseID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.items[:0:0]
	for _, it := range s.items {
		if it.PurchaseID != purchaseID {
			kept = append(kept, it)
		}
	}
	s.items = kept
	return nil
}

func (s *memoryStore) InsertItem(_ context.Context, it PurchaseItem) (PurchaseItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	it.ID = s.nextID
	s.items = append(s.items, it)
	return it, nil
}

func (s *memoryStore) SumActiveSupplierPayments(_ context.Context, purchaseID int64) (decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sum := decimal.Zero
	for _, sp := range s.payments {
		if sp.PurchaseID != nil && *sp.PurchaseID == purchaseID && sp.ChequeStatus != shared.ChequeReturned {
			sum = sum.Add(sp.Amount)
		}
	}
	return sum, nil
}

func (s *memoryStore) InsertSupplierPayment(_ context.Context, sp SupplierPayment) (SupplierPayment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sp.ID = int64(len(s.payments) + 1)
	s.payments = append(s.payments, sp)
	return sp, nil
}

func (s *memoryStore) LockSupplierPayment(_ context.Context, id int64) (SupplierPayment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id < 1 || int(id) > len(s.payments) {
		return SupplierPayment{}, fmt.Errorf("supplier payment %d: %w", id, ErrSupplierPaymentNotFound)
	}
	return s.payments[id-1], nil
}

func (s *memoryStore) SetSupplierChequeStatus(_ context.Context, id int64, status shared.ChequeStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.payments[id-1].ChequeStatus = status
	return nil
}

func (s *memoryStore) Get(ctx context.Context, id int64) (Purchase, error) {
	p, err := s.LockPurchase(ctx, id)
	if err != nil {
		return Purchase{}, err
	}
	p.Items, err = s.PurchaseItems(ctx, id)
	return p, err
}

func (s *memoryStore) List(_ context.Context, filter ListFilter) ([]Purchase, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Purchase
	for _, p := range s.purchases {
		if filter.SupplierID != nil && p.SupplierID != *filter.SupplierID {
			continue
		}
		if filter.PaymentStatus != "" && p.PaymentStatus != filter.PaymentStatus {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (s *memoryStore) ListSupplierPayments(_ context.Context, filter PaymentFilter) ([]SupplierPayment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []SupplierPayment
	for _, sp := range s.payments {
		if filter.PurchaseID != nil && (sp.PurchaseID == nil || *sp.PurchaseID != *filter.PurchaseID) {
			continue
		}
		if filter.SupplierID != nil && sp.SupplierID != *filter.SupplierID {
			continue
		}
		if filter.ChequeStatus != "" && sp.ChequeStatus != filter.ChequeStatus {
			continue
		}
		out = append(out, sp)
	}
	return out, nil
}

func (s *memoryStore) GetSupplierPayment(ctx context.Context, id int64) (SupplierPayment, error) {
	return s.LockSupplierPayment(ctx, id)
}
