package sales_test

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/sierra-distribution/sierra/internal/ledger"
	"github.com/sierra-distribution/sierra/internal/payments"
	"github.com/sierra-distribution/sierra/internal/payments/paymentstest"
	"github.com/sierra-distribution/sierra/internal/sales"
	"github.com/sierra-distribution/sierra/internal/shared"
)

type memoryRepo struct {
	*paymentstest.Store

	mu       sync.Mutex
	orders   map[int64]sales.Order
	nextItem int64
}

type memoryTx struct {
	*paymentstest.Store
	repo *memoryRepo
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{Store: paymentstest.New(), orders: make(map[int64]sales.Order)}
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, sales.TxRepository) error) error {
	restore := r.Store.Checkpoint()
	r.mu.Lock()
	snapshot := make(map[int64]sales.Order, len(r.orders))
	for k, v := range r.orders {
		snapshot[k] = v
	}
	r.mu.Unlock()
	if err := fn(ctx, &memoryTx{Store: r.Store, repo: r}); err != nil {
		restore()
		r.mu.Lock()
		r.orders = snapshot
		r.mu.Unlock()
		return err
	}
	return nil
}

func (tx *memoryTx) InsertOrder(_ context.Context, o sales.Order) (sales.Order, error) {
	tx.repo.mu.Lock()
	defer tx.repo.mu.Unlock()
	o.ID = int64(len(tx.repo.orders) + 1)
	tx.repo.orders[o.ID] = o
	tx.Store.PutOrder(payments.OrderBalance{ID: o.ID, CustomerID: o.CustomerID, Total: o.TotalAmount, Paid: o.PaidAmount, PaymentStatus: o.PaymentStatus})
	return o, nil
}

func (tx *memoryTx) InsertItem(_ context.Context, it sales.OrderItem) (sales.OrderItem, error) {
	tx.repo.mu.Lock()
	defer tx.repo.mu.Unlock()
	tx.repo.nextItem++
	it.ID = tx.repo.nextItem
	o := tx.repo.orders[it.OrderID]
	o.Items = append(o.Items, it)
	tx.repo.orders[it.OrderID] = o
	return it, nil
}

func (tx *memoryTx) UpdateOrderFields(_ context.Context, id int64, status *sales.OrderStatus, notes *string) error {
	tx.repo.mu.Lock()
	defer tx.repo.mu.Unlock()
	o := tx.repo.orders[id]
	if status != nil {
		o.Status = *status
	}
	if notes != nil {
		o.Notes = *notes
	}
	tx.repo.orders[id] = o
	return nil
}

func (r *memoryRepo) Get(_ context.Context, id int64) (sales.Order, error) {
	r.mu.Lock()
	o, ok := r.orders[id]
	r.mu.Unlock()
	if !ok {
		return sales.Order{}, fmt.Errorf("order %d: %w", id, sales.ErrOrderNotFound)
	}
	balance := r.Store.Order(id)
	o.PaidAmount = balance.Paid
	o.PaymentStatus = balance.PaymentStatus
	return o, nil
}

func (r *memoryRepo) List(ctx context.Context, filter sales.ListFilter) ([]sales.Order, error) {
	r.mu.Lock()
	ids := make([]int64, 0, len(r.orders))
	for id := range r.orders {
		ids = append(ids, id)
	}
	r.mu.Unlock()
	sort.Slice(ids, func(i, j int) bool { return ids[i] > ids[j] })
	var out []sales.Order
	for _, id := range ids {
		o, _ := r.Get(ctx, id)
		if filter.CustomerID != nil && o.CustomerID != *filter.CustomerID {
			continue
		}
		if filter.PaymentStatus != "" && o.PaymentStatus != filter.PaymentStatus {
			continue
		}
		out = append(out, o)
	}
	return out, nil
}

func (r *memoryRepo) ListUnpaid(ctx context.Context, customerID *int64) ([]sales.UnpaidOrder, error) {
	orders, _ := r.List(ctx, sales.ListFilter{CustomerID: customerID})
	var out []sales.UnpaidOrder
	for _, o := range orders {
		if o.PaymentStatus == shared.PaymentPaid {
			continue
		}
		paid, _ := r.Store.SumActivePayments(ctx, o.ID)
		out = append(out, sales.UnpaidOrder{ID: o.ID, CustomerID: o.CustomerID, TotalAmount: o.TotalAmount, PaidAmount: paid, Outstanding: o.TotalAmount.Sub(paid), PaymentStatus: o.PaymentStatus})
	}
	return out, nil
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

func d(v string) decimal.Decimal { return decimal.RequireFromString(v) }

func int64p(v int64) *int64 { return &v }

func seeded() (*memoryRepo, *sales.Service) {
	repo := newMemoryRepo()
	repo.AddCustomer(ledger.Customer{ID: 1, Name: "Ravi Electricals"})
	repo.AddProduct(ledger.Product{ID: 1, Name: "Cable 4mm", StockQuantity: 50, CostPrice: d("4800"), IsActive: true})
	repo.AddProduct(ledger.Product{ID: 2, Name: "Wire 1.5mm", StockQuantity: 5, CostPrice: d("900"), IsActive: true})
	repo.AddAccount(ledger.Account{ID: 10, Name: "Cash", IsActive: true})
	return repo, sales.NewService(repo, repo.Store, nil, nil, nil, nil)
}

func TestLineTotal(t *testing.T) {
	require.True(t, sales.LineTotal(10, d("5995"), d("0")).Equal(d("59950")))
	require.True(t, sales.LineTotal(3, d("333.33"), d("10")).Equal(d("899.99")))
	require.True(t, sales.LineTotal(1, d("100"), d("100")).IsZero())
}

func TestTotalsRejectsOversizedDiscount(t *testing.T) {
	items := []sales.OrderItem{{LineTotal: d("100")}}
	_, _, err := sales.Totals(items, d("100.01"))
	require.ErrorIs(t, err, shared.ErrValidation)

	subtotal, total, err := sales.Totals(items, d("25"))
	require.NoError(t, err)
	require.True(t, subtotal.Equal(d("100")))
	require.True(t, total.Equal(d("75")))
}

func TestCreateOrderWithFullCashPayment(t *testing.T) {
	repo, svc := seeded()
	ctx := shared.ContextWithPrincipal(context.Background(), shared.Principal{UserID: "staff-1"})

	order, err := svc.CreateOrder(ctx, sales.CreateOrderInput{
		CustomerID: 1,
		Items:      []sales.LineInput{{ProductID: 1, Quantity: 10, UnitPrice: d("5995")}},
		Payment:    &payments.Tender{Amount: d("59950"), Method: shared.MethodCash, DepositAccountID: int64p(10)},
	}, "")
	require.NoError(t, err)
	require.True(t, order.TotalAmount.Equal(d("59950")))
	require.Equal(t, shared.PaymentPaid, order.PaymentStatus)
	require.True(t, order.PaidAmount.Equal(d("59950")))
	require.True(t, order.Profit.Equal(d("11950")))
	require.Equal(t, string(shared.MethodCash), order.PaymentMethod)

	require.Equal(t, 40, repo.Product(1).StockQuantity)
	require.True(t, repo.Customer(1).Outstanding.IsZero())
	require.True(t, repo.Account(10).Balance.Equal(d("59950")))

	moves := repo.Movements()
	require.Len(t, moves, 1)
	require.Equal(t, ledger.MovementSale, moves[0].Type)
	require.Equal(t, -10, moves[0].Quantity)
	require.Equal(t, "staff-1", moves[0].CreatedBy)
}

func TestCreateOrderOnCreditRaisesOutstanding(t *testing.T) {
	repo, svc := seeded()

	order, err := svc.CreateOrder(context.Background(), sales.CreateOrderInput{
		CustomerID:     1,
		Items:          []sales.LineInput{{ProductID: 1, Quantity: 2, UnitPrice: d("5000"), DiscountPercent: d("10")}},
		DiscountAmount: d("500"),
		Payment:        &payments.Tender{Amount: d("0")},
	}, "")
	require.NoError(t, err)
	require.True(t, order.Subtotal.Equal(d("9000")))
	require.True(t, order.TotalAmount.Equal(d("8500")))
	require.Equal(t, shared.PaymentUnpaid, order.PaymentStatus)
	require.True(t, repo.Customer(1).Outstanding.Equal(d("8500")))
	require.Empty(t, repo.Payments())
}

func TestCreateOrderPartialPayment(t *testing.T) {
	repo, svc := seeded()

	order, err := svc.CreateOrder(context.Background(), sales.CreateOrderInput{
		CustomerID: 1,
		Items:      []sales.LineInput{{ProductID: 2, Quantity: 5, UnitPrice: d("1000")}},
		Payment:    &payments.Tender{Amount: d("2000"), Method: shared.MethodCash, DepositAccountID: int64p(10)},
	}, "")
	require.NoError(t, err)
	require.Equal(t, shared.PaymentPartial, order.PaymentStatus)
	require.True(t, repo.Customer(1).Outstanding.Equal(d("3000")))
	require.Zero(t, repo.Product(2).StockQuantity)
}

func TestCreateOrderInsufficientStockLeavesNothing(t *testing.T) {
	repo, svc := seeded()

	_, err := svc.CreateOrder(context.Background(), sales.CreateOrderInput{
		CustomerID: 1,
		Items: []sales.LineInput{
			{ProductID: 1, Quantity: 1, UnitPrice: d("5000")},
			{ProductID: 2, Quantity: 10, UnitPrice: d("1000")},
		},
	}, "")
	require.ErrorIs(t, err, sales.ErrInsufficientStock)
	require.ErrorIs(t, err, shared.ErrConflict)

	require.Equal(t, 50, repo.Product(1).StockQuantity)
	require.Equal(t, 5, repo.Product(2).StockQuantity)
	require.Empty(t, repo.Movements())
	orders, err := svc.List(context.Background(), sales.ListFilter{})
	require.NoError(t, err)
	require.Empty(t, orders)
	require.True(t, repo.Customer(1).Outstanding.IsZero())
}

func TestCreateOrderSumsDuplicateLinesAgainstStock(t *testing.T) {
	repo, svc := seeded()

	_, err := svc.CreateOrder(context.Background(), sales.CreateOrderInput{
		CustomerID: 1,
		Items: []sales.LineInput{
			{ProductID: 2, Quantity: 3, UnitPrice: d("1000")},
			{ProductID: 2, Quantity: 3, UnitPrice: d("1000")},
		},
	}, "")
	require.ErrorIs(t, err, sales.ErrInsufficientStock)
	require.Equal(t, 5, repo.Product(2).StockQuantity)
}

func TestCreateOrderRollsBackOnPaymentFailure(t *testing.T) {
	repo, svc := seeded()

	_, err := svc.CreateOrder(context.Background(), sales.CreateOrderInput{
		CustomerID: 1,
		Items:      []sales.LineInput{{ProductID: 1, Quantity: 5, UnitPrice: d("5000")}},
		Payment:    &payments.Tender{Amount: d("100"), Method: shared.MethodBank, DepositAccountID: int64p(99)},
	}, "")
	require.ErrorIs(t, err, shared.ErrNotFound)
	require.Equal(t, 50, repo.Product(1).StockQuantity)
	require.True(t, repo.Customer(1).Outstanding.IsZero())
	require.Empty(t, repo.Movements())
}

func TestCreateOrderValidation(t *testing.T) {
	_, svc := seeded()
	ctx := context.Background()

	_, err := svc.CreateOrder(ctx, sales.CreateOrderInput{CustomerID: 1}, "")
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.CreateOrder(ctx, sales.CreateOrderInput{CustomerID: 1, Items: []sales.LineInput{{ProductID: 1, Quantity: 0}}}, "")
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.CreateOrder(ctx, sales.CreateOrderInput{
		CustomerID: 1,
		Items:      []sales.LineInput{{ProductID: 1, Quantity: 1, UnitPrice: d("10")}},
		Payment:    &payments.Tender{Amount: d("10"), Method: shared.MethodCheque},
	}, "")
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.CreateOrder(ctx, sales.CreateOrderInput{CustomerID: 404, Items: []sales.LineInput{{ProductID: 1, Quantity: 1}}}, "")
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestCreateOrderIdempotencyReplay(t *testing.T) {
	repo := newMemoryRepo()
	repo.AddCustomer(ledger.Customer{ID: 1, Name: "Ravi"})
	repo.AddProduct(ledger.Product{ID: 1, Name: "Cable", StockQuantity: 10, IsActive: true})
	svc := sales.NewService(repo, repo.Store, nil, &memoryIdempotency{}, nil, nil)
	in := sales.CreateOrderInput{CustomerID: 1, Items: []sales.LineInput{{ProductID: 1, Quantity: 2, UnitPrice: d("10")}}}

	_, err := svc.CreateOrder(context.Background(), in, "retry-1")
	require.NoError(t, err)
	_, err = svc.CreateOrder(context.Background(), in, "retry-1")
	require.ErrorIs(t, err, shared.ErrConflict)
	require.Equal(t, 8, repo.Product(1).StockQuantity)
}

func TestUpdateOrderRecomputesPaymentStatus(t *testing.T) {
	_, svc := seeded()
	ctx := context.Background()
	order, err := svc.CreateOrder(ctx, sales.CreateOrderInput{
		CustomerID: 1,
		Items:      []sales.LineInput{{ProductID: 1, Quantity: 1, UnitPrice: d("1000")}},
		Payment:    &payments.Tender{Amount: d("400"), Method: shared.MethodCash, DepositAccountID: int64p(10)},
	}, "")
	require.NoError(t, err)

	forced := shared.PaymentPaid
	status := sales.StatusShipped
	note := "left warehouse"
	updated, err := svc.UpdateOrder(ctx, order.ID, sales.UpdateOrderInput{Status: &status, PaymentStatus: &forced, Notes: &note})
	require.NoError(t, err)
	require.Equal(t, sales.StatusShipped, updated.Status)
	require.Equal(t, shared.PaymentPartial, updated.PaymentStatus)
	require.Equal(t, note, updated.Notes)
	require.Len(t, updated.Payments, 1)

	bad := sales.OrderStatus("cancelled")
	_, err = svc.UpdateOrder(ctx, order.ID, sales.UpdateOrderInput{Status: &bad})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.UpdateOrder(ctx, 999, sales.UpdateOrderInput{Status: &status})
	require.ErrorIs(t, err, shared.ErrNotFound)

	_, err = svc.UpdateOrder(ctx, order.ID, sales.UpdateOrderInput{})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestListUnpaid(t *testing.T) {
	_, svc := seeded()
	ctx := context.Background()
	_, err := svc.CreateOrder(ctx, sales.CreateOrderInput{
		CustomerID: 1,
		Items:      []sales.LineInput{{ProductID: 1, Quantity: 1, UnitPrice: d("1000")}},
		Payment:    &payments.Tender{Amount: d("1000"), Method: shared.MethodCash, DepositAccountID: int64p(10)},
	}, "")
	require.NoError(t, err)
	open, err := svc.CreateOrder(ctx, sales.CreateOrderInput{
		CustomerID: 1,
		Items:      []sales.LineInput{{ProductID: 1, Quantity: 2, UnitPrice: d("1000")}},
		Payment:    &payments.Tender{Amount: d("500"), Method: shared.MethodCash, DepositAccountID: int64p(10)},
	}, "")
	require.NoError(t, err)

	unpaid, err := svc.ListUnpaid(ctx, int64p(1))
	require.NoError(t, err)
	require.Len(t, unpaid, 1)
	require.Equal(t, open.ID, unpaid[0].ID)
	require.True(t, unpaid[0].Outstanding.Equal(d("1500")))
}
