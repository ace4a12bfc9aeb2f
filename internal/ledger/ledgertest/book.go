// Package ledgertest provides an in-memory ledger.Book for service tests.
package ledgertest

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/sierra-distribution/sierra/internal/ledger"
)

// Book keeps balances and ledger rows in maps. It is safe for concurrent use.
type Book struct {
	mu        sync.Mutex
	products  map[int64]ledger.Product
	accounts  map[int64]ledger.Account
	customers map[int64]ledger.Customer
	movements []ledger.StockMovement
	entries   []ledger.AccountEntry
}

// New returns an empty Book.
func New() *Book {
	return &Book{
		products:  make(map[int64]ledger.Product),
		accounts:  make(map[int64]ledger.Account),
		customers: make(map[int64]ledger.Customer),
	}
}

var _ ledger.Book = (*Book)(nil)

// AddProduct seeds a product.
func (b *Book) AddProduct(p ledger.Product) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.products[p.ID] = p
}

// AddAccount seeds an account.
func (b *Book) AddAccount(a ledger.Account) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.accounts[a.ID] = a
}

// AddCustomer seeds a customer.
func (b *Book) AddCustomer(c ledger.Customer) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.customers[c.ID] = c
}

// Product returns the current product state.
func (b *Book) Product(id int64) ledger.Product {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.products[id]
}

// Account returns the current account state.
func (b *Book) Account(id int64) ledger.Account {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.accounts[id]
}

// Customer returns the current customer state.
func (b *Book) Customer(id int64) ledger.Customer {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.customers[id]
}

// Movements returns a copy of recorded stock movements.
func (b *Book) Movements() []ledger.StockMovement {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]ledger.StockMovement(nil), b.movements...)
}

// Entries returns a copy of recorded account entries.
func (b *Book) Entries() []ledger.AccountEntry {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]ledger.AccountEntry(nil), b.entries...)
}

// Checkpoint snapshots state and returns a func restoring it, used to emulate rollback.
func (b *Book) Checkpoint() func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	products := cloneMap(b.products)
	accounts := cloneMap(b.accounts)
	customers := cloneMap(b.customers)
	movements := len(b.movements)
	entries := len(b.entries)
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.products = products
		b.accounts = accounts
		b.customers = customers
		b.movements = b.movements[:movements]
		b.entries = b.entries[:entries]
	}
}

func (b *Book) LockProduct(_ context.Context, id int64) (ledger.Product, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.products[id]
	if !ok {
		return ledger.Product{}, fmt.Errorf("product %d: %w", id, ledger.ErrProductNotFound)
	}
	return p, nil
}

func (b *Book) MoveStock(_ context.Context, m ledger.StockMovement) (int, error) {
	if m.Quantity == 0 {
		return 0, errors.New("ledgertest: zero stock movement")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.products[m.ProductID]
	if !ok {
		return 0, fmt.Errorf("product %d: %w", m.ProductID, ledger.ErrProductNotFound)
	}
	p.StockQuantity += m.Quantity
	b.products[p.ID] = p
	b.movements = append(b.movements, m)
	return p.StockQuantity, nil
}

func (b *Book) SetProductCost(_ context.Context, id int64, cost decimal.Decimal) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.products[id]
	if !ok {
		return fmt.Errorf("product %d: %w", id, ledger.ErrProductNotFound)
	}
	p.CostPrice = cost
	b.products[id] = p
	return nil
}

func (b *Book) LockAccount(_ context.Context, id int64) (ledger.Account, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	a, ok := b.accounts[id]
	if !ok {
		return ledger.Account{}, fmt.Errorf("account %d: %w", id, ledger.ErrAccountNotFound)
	}
	return a, nil
}

func (b *Book) PostEntry(_ context.Context, e ledger.AccountEntry) (decimal.Decimal, error) {
	if e.Amount.IsZero() {
		return decimal.Zero, errors.New("ledgertest: zero account entry")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	a, ok := b.accounts[e.AccountID]
	if !ok {
		return decimal.Zero, fmt.Errorf("account %d: %w", e.AccountID, ledger.ErrAccountNotFound)
	}
	a.Balance = a.Balance.Add(e.Amount)
	b.accounts[a.ID] = a
	b.entries = append(b.entries, e)
	return a.Balance, nil
}

func (b *Book) LockCustomer(_ context.Context, id int64) (ledger.Customer, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	c, ok := b.customers[id]
	if !ok {
		return ledger.Customer{}, fmt.Errorf("customer %d: %w", id, ledger.ErrCustomerNotFound)
	}
	return c, nil
}

func (b *Book) AdjustOutstanding(_ context.Context, customerID int64, delta decimal.Decimal, floorAtZero bool) (decimal.Decimal, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	c, ok := b.customers[customerID]
	if !ok {
		return decimal.Zero, fmt.Errorf("customer %d: %w", customerID, ledger.ErrCustomerNotFound)
	}
	c.Outstanding = c.Outstanding.Add(delta)
	if floorAtZero && c.Outstanding.IsNegative() {
		c.Outstanding = decimal.Zero
	}
	b.customers[customerID] = c
	return c.Outstanding, nil
}

func cloneMap[K comparable, V any](in map[K]V) map[K]V {
	out := make(map[K]V, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
