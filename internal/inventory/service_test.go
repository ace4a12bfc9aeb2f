package inventory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/sierra-distribution/sierra/internal/ledger"
	"github.com/sierra-distribution/sierra/internal/ledger/ledgertest"
	"github.com/sierra-distribution/sierra/internal/shared"
)

type memoryRepo struct {
	mu       sync.Mutex
	book     *ledgertest.Book
	products map[int64]Product
	nextID   int64
}

type memoryTx struct {
	*ledgertest.Book
	repo *memoryRepo
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{book: ledgertest.New(), products: make(map[int64]Product)}
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	restore := r.book.Checkpoint()
	r.mu.Lock()
	snapshot := make(map[int64]Product, len(r.products))
	for k, v := range r.products {
		snapshot[k] = v
	}
	r.mu.Unlock()
	if err := fn(ctx, &memoryTx{Book: r.book, repo: r}); err != nil {
		restore()
		r.mu.Lock()
		r.products = snapshot
		r.mu.Unlock()
		return err
	}
	return nil
}

func (tx *memoryTx) InsertProduct(_ context.Context, in CreateProductInput) (int64, error) {
	tx.repo.mu.Lock()
	defer tx.repo.mu.Unlock()
	for _, p := range tx.repo.products {
		if p.SKU == in.SKU {
			return 0, ErrDuplicateSKU
		}
	}
	tx.repo.nextID++
	id := tx.repo.nextID
	tx.repo.products[id] = Product{ID: id, SKU: in.SKU, Name: in.Name, Unit: in.Unit, CostPrice: in.CostPrice, MRP: in.MRP, ReorderLevel: in.ReorderLevel, IsActive: true}
	tx.Book.AddProduct(ledger.Product{ID: id, Name: in.Name, CostPrice: in.CostPrice, IsActive: true})
	return id, nil
}

func (r *memoryRepo) withStock(p Product) Product {
	p.StockQuantity = r.book.Product(p.ID).StockQuantity
	return p
}

func (r *memoryRepo) List(_ context.Context, filter ListFilter) ([]Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Product
	for _, p := range r.products {
		if filter.Search != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(filter.Search)) {
			continue
		}
		out = append(out, r.withStock(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *memoryRepo) LowStock(_ context.Context) ([]Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Product
	for _, p := range r.products {
		p = r.withStock(p)
		if p.IsActive && p.StockQuantity <= p.ReorderLevel {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *memoryRepo) Get(_ context.Context, id int64) (Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.products[id]
	if !ok {
		return Product{}, fmt.Errorf("product %d: %w", id, ErrProductNotFound)
	}
	return r.withStock(p), nil
}

func (r *memoryRepo) Update(ctx context.Context, id int64, in UpdateProductInput) (Product, error) {
	r.mu.Lock()
	p, ok := r.products[id]
	if !ok {
		r.mu.Unlock()
		return Product{}, fmt.Errorf("product %d: %w", id, ErrProductNotFound)
	}
	if in.Name != nil {
		p.Name = *in.Name
	}
	if in.ReorderLevel != nil {
		p.ReorderLevel = *in.ReorderLevel
	}
	if in.IsActive != nil {
		p.IsActive = *in.IsActive
	}
	r.products[id] = p
	r.mu.Unlock()
	return r.Get(ctx, id)
}

func (r *memoryRepo) History(_ context.Context, productID int64, limit int) ([]ledger.InventoryTransaction, error) {
	var out []ledger.InventoryTransaction
	for _, m := range r.book.Movements() {
		if m.ProductID == productID {
			out = append(out, ledger.InventoryTransaction{ProductID: m.ProductID, Type: m.Type, Quantity: m.Quantity, Notes: m.Notes})
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type recordingAudit struct {
	logs []shared.AuditLog
}

func (a *recordingAudit) Record(_ context.Context, log shared.AuditLog) error {
	a.logs = append(a.logs, log)
	return nil
}

type memoryIdempotency struct {
	keys map[string]bool
}

func (m *memoryIdempotency) CheckAndInsert(_ context.Context, key, module string) error {
	if m.keys == nil {
		m.keys = map[string]bool{}
	}
	if m.keys[module+":"+key] {
		return shared.ErrIdempotencyConflict
	}
	m.keys[module+":"+key] = true
	return nil
}

func (m *memoryIdempotency) Delete(_ context.Context, key, module string) error {
	delete(m.keys, module+":"+key)
	return nil
}

func TestCreateProductBooksOpeningStock(t *testing.T) {
	repo := newMemoryRepo()
	audit := &recordingAudit{}
	svc := NewService(repo, audit, nil, nil, nil)
	ctx := shared.ContextWithPrincipal(context.Background(), shared.Principal{UserID: "u-1"})

	p, err := svc.CreateProduct(ctx, CreateProductInput{SKU: " CBL-2.5 ", Name: "Cable 2.5mm", CostPrice: decimal.NewFromInt(900), OpeningStock: 40})
	require.NoError(t, err)
	require.Equal(t, "CBL-2.5", p.SKU)
	require.Equal(t, 40, p.StockQuantity)

	moves := repo.book.Movements()
	require.Len(t, moves, 1)
	require.Equal(t, ledger.MovementOpening, moves[0].Type)
	require.Equal(t, "u-1", moves[0].CreatedBy)
	require.Len(t, audit.logs, 1)
	require.Equal(t, "u-1", audit.logs[0].ActorID)

	_, err = svc.CreateProduct(ctx, CreateProductInput{SKU: "CBL-2.5", Name: "Other"})
	require.ErrorIs(t, err, shared.ErrConflict)
}

func TestCreateProductWithoutOpeningStockSkipsLedger(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil, nil, nil)

	p, err := svc.CreateProduct(context.Background(), CreateProductInput{SKU: "W-1", Name: "Wire"})
	require.NoError(t, err)
	require.Zero(t, p.StockQuantity)
	require.Empty(t, repo.book.Movements())
}

func TestAdjustStockMayGoNegative(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil, nil, nil)
	ctx := context.Background()
	p, err := svc.CreateProduct(ctx, CreateProductInput{SKU: "W-1", Name: "Wire", OpeningStock: 3})
	require.NoError(t, err)

	res, err := svc.AdjustStock(ctx, p.ID, AdjustStockInput{Quantity: -5, Type: ledger.MovementAdjustment, Notes: "damaged"}, "")
	require.NoError(t, err)
	require.Equal(t, -2, res.StockQuantity)

	res, err = svc.AdjustStock(ctx, p.ID, AdjustStockInput{Quantity: 4, Type: ledger.MovementReturn}, "")
	require.NoError(t, err)
	require.Equal(t, 2, res.StockQuantity)

	history, err := svc.History(ctx, p.ID, 0)
	require.NoError(t, err)
	require.Len(t, history, 3)
}

func TestAdjustStockValidation(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil, nil, nil)
	ctx := context.Background()

	_, err := svc.AdjustStock(ctx, 1, AdjustStockInput{Quantity: 0, Type: ledger.MovementAdjustment}, "")
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.AdjustStock(ctx, 1, AdjustStockInput{Quantity: 1, Type: ledger.MovementSale}, "")
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.AdjustStock(ctx, 99, AdjustStockInput{Quantity: 1, Type: ledger.MovementAdjustment}, "")
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestAdjustStockIdempotencyKey(t *testing.T) {
	repo := newMemoryRepo()
	idem := &memoryIdempotency{}
	svc := NewService(repo, nil, idem, nil, nil)
	ctx := context.Background()
	p, err := svc.CreateProduct(ctx, CreateProductInput{SKU: "W-1", Name: "Wire"})
	require.NoError(t, err)

	_, err = svc.AdjustStock(ctx, p.ID, AdjustStockInput{Quantity: 10, Type: ledger.MovementPurchase}, "key-1")
	require.NoError(t, err)
	_, err = svc.AdjustStock(ctx, p.ID, AdjustStockInput{Quantity: 10, Type: ledger.MovementPurchase}, "key-1")
	require.True(t, errors.Is(err, shared.ErrConflict))
	require.Equal(t, 10, repo.book.Product(p.ID).StockQuantity)

	// A failed attempt releases its key.
	_, err = svc.AdjustStock(ctx, 404, AdjustStockInput{Quantity: 1, Type: ledger.MovementPurchase}, "key-2")
	require.Error(t, err)
	_, err = svc.AdjustStock(ctx, p.ID, AdjustStockInput{Quantity: 1, Type: ledger.MovementPurchase}, "key-2")
	require.NoError(t, err)
}

func TestLowStock(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil, nil, nil)
	ctx := context.Background()
	_, err := svc.CreateProduct(ctx, CreateProductInput{SKU: "A", Name: "Low", ReorderLevel: 10, OpeningStock: 4})
	require.NoError(t, err)
	_, err = svc.CreateProduct(ctx, CreateProductInput{SKU: "B", Name: "Fine", ReorderLevel: 10, OpeningStock: 50})
	require.NoError(t, err)

	low, err := svc.LowStock(ctx)
	require.NoError(t, err)
	require.Len(t, low, 1)
	require.Equal(t, "Low", low[0].Name)
}
