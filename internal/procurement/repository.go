package procurement

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/sierra-distribution/sierra/internal/ledger"
	"github.com/sierra-distribution/sierra/internal/platform/db"
	"github.com/sierra-distribution/sierra/internal/shared"
)

// TxRepository exposes transactional operations used by service.
type TxRepository interface {
	ledger.Book
	LockSupplier(ctx context.Context, id int64) (Supplier, error)
	PrimarySupplier(ctx context.Context) (Supplier, error)
	InsertPurchase(ctx context.Context, p Purchase) (Purchase, error)
	LockPurchase(ctx context.Context, id int64) (Purchase, error)
	UpdatePurchase(ctx context.Context, p Purchase) error
	PurchaseItems(ctx context.Context, purchaseID int64) ([]PurchaseItem, error)
	DeleteItems(ctx context.Context, purchaseID int64) error
	InsertItem(ctx context.Context, it PurchaseItem) (PurchaseItem, error)
	SumActiveSupplierPayments(ctx context.Context, purchaseID int64) (decimal.Decimal, error)
	InsertSupplierPayment(ctx context.Context, sp SupplierPayment) (SupplierPayment, error)
	LockSupplierPayment(ctx context.Context, id int64) (SupplierPayment, error)
	SetSupplierChequeStatus(ctx context.Context, id int64, status shared.ChequeStatus) error
}

// Repository persists purchases and supplier payments in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type txRepo struct {
	*ledger.Queries
	conn db.DBTX
}

// WithTx executes the callback inside a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{Queries: ledger.New(tx), conn: tx})
	})
}

func (t *txRepo) LockSupplier(ctx context.Context, id int64) (Supplier, error) {
	var s Supplier
	err := t.conn.QueryRow(ctx, `SELECT id, name FROM suppliers WHERE id = $1 FOR SHARE`, id).Scan(&s.ID, &s.Name)
	if errors.Is(err, pgx.ErrNoRows) {
		return Supplier{}, fmt.Errorf("supplier %d: %w", id, ErrSupplierNotFound)
	}
	return s, err
}

func (t *txRepo) PrimarySupplier(ctx context.Context) (Supplier, error) {
	var s Supplier
	err := t.conn.QueryRow(ctx, `SELECT id, name FROM suppliers WHERE is_primary ORDER BY id LIMIT 1 FOR SHARE`).Scan(&s.ID, &s.Name)
	if errors.Is(err, pgx.ErrNoRows) {
		return Supplier{}, ErrNoPrimarySupplier
	}
	return s, err
}

const purchaseColumns = `p.id, p.purchase_number, p.supplier_id, s.name, p.purchase_date, p.subtotal, p.discount_amount,
p.total_amount, p.paid_amount, p.balance_due, p.payment_status, COALESCE(p.notes, ''), COALESCE(p.created_by, ''),
p.created_at, p.updated_at`

func scanPurchase(row pgx.Row) (Purchase, error) {
	var p Purchase
	err := row.Scan(&p.ID, &p.PurchaseNumber, &p.SupplierID, &p.SupplierName, &p.PurchaseDate, &p.Subtotal, &p.DiscountAmount,
		&p.TotalAmount, &p.PaidAmount, &p.BalanceDue, &p.PaymentStatus, &p.Notes, &p.CreatedBy,
		&p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func (t *txRepo) InsertPurchase(ctx context.Context, p Purchase) (Purchase, error) {
	err := t.conn.QueryRow(ctx, `INSERT INTO purchases (purchase_number, supplier_id, purchase_date, subtotal, discount_amount,
    total_amount, paid_amount, balance_due, payment_status, notes, created_by)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NULLIF($10, ''), NULLIF($11, ''))
RETURNING id, created_at, updated_at`,
		p.PurchaseNumber, p.SupplierID, p.PurchaseDate, p.Subtotal, p.DiscountAmount,
		p.TotalAmount, p.PaidAmount, p.BalanceDue, p.PaymentStatus, p.Notes, p.CreatedBy).
		Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func (t *txRepo) LockPurchase(ctx context.Context, id int64) (Purchase, error) {
	p, err := scanPurchase(t.conn.QueryRow(ctx, `SELECT `+purchaseColumns+`
FROM purchases p JOIN suppliers s ON s.id = p.supplier_id WHERE p.id = $1 FOR UPDATE OF p`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Purchase{}, fmt.Errorf("purchase %d: %w", id, ErrPurchaseNotFound)
	}
	return p, err
}

func (t *txRepo) UpdatePurchase(ctx context.Context, p Purchase) error {
	_, err := t.conn.Exec(ctx, `UPDATE purchases SET
    supplier_id = $2, purchase_date = $3, subtotal = $4, discount_amount = $5, total_amount = $6,
    paid_amount = $7, balance_due = $8, payment_status = $9, notes = NULLIF($10, ''), updated_at = NOW()
WHERE id = $1`,
		p.ID, p.SupplierID, p.PurchaseDate, p.Subtotal, p.DiscountAmount, p.TotalAmount,
		p.PaidAmount, p.BalanceDue, p.PaymentStatus, p.Notes)
	return err
}

func (t *txRepo) PurchaseItems(ctx context.Context, purchaseID int64) ([]PurchaseItem, error) {
	return queryItems(ctx, t.conn, purchaseID)
}

func (t *txRepo) DeleteItems(ctx context.Context, purchaseID int64) error {
	_, err := t.conn.Exec(ctx, `DELETE FROM purchase_items WHERE purchase_id = $1`, purchaseID)
	return err
}

func (t *txRepo) InsertItem(ctx context.Context, it PurchaseItem) (PurchaseItem, error) {
	err := t.conn.QueryRow(ctx, `INSERT INTO purchase_items (purchase_id, product_id, quantity, unit_cost, line_total)
VALUES ($1, $2, $3, $4, $5) RETURNING id`, it.PurchaseID, it.ProductID, it.Quantity, it.UnitCost, it.LineTotal).Scan(&it.ID)
	return it, err
}

func (t *txRepo) SumActiveSupplierPayments(ctx context.Context, purchaseID int64) (decimal.Decimal, error) {
	var sum decimal.Decimal
	err := t.conn.QueryRow(ctx, `SELECT COALESCE(SUM(amount), 0) FROM supplier_payments
WHERE purchase_id = $1 AND COALESCE(cheque_status, '') <> 'returned'`, purchaseID).Scan(&sum)
	return sum, err
}

const supplierPaymentColumns = `id, payment_number, purchase_id, supplier_id, amount, payment_method, account_id,
COALESCE(cheque_number, ''), cheque_date, COALESCE(cheque_status, ''), payment_date, COALESCE(notes, ''),
COALESCE(created_by, ''), created_at`

func scanSupplierPayment(row pgx.Row) (SupplierPayment, error) {
	var sp SupplierPayment
	err := row.Scan(&sp.ID, &sp.PaymentNumber, &sp.PurchaseID, &sp.SupplierID, &sp.Amount, &sp.Method, &sp.AccountID,
		&sp.ChequeNumber, &sp.ChequeDate, &sp.ChequeStatus, &sp.PaymentDate, &sp.Notes,
		&sp.CreatedBy, &sp.CreatedAt)
	return sp, err
}

func (t *txRepo) InsertSupplierPayment(ctx context.Context, sp SupplierPayment) (SupplierPayment, error) {
	return scanSupplierPayment(t.conn.QueryRow(ctx, `INSERT INTO supplier_payments (payment_number, purchase_id, supplier_id, amount,
    payment_method, account_id, cheque_number, cheque_date, cheque_status, payment_date, notes, created_by)
VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), $8, NULLIF($9, ''), $10, NULLIF($11, ''), NULLIF($12, ''))
RETURNING `+supplierPaymentColumns,
		sp.PaymentNumber, sp.PurchaseID, sp.SupplierID, sp.Amount,
		sp.Method, sp.AccountID, sp.ChequeNumber, sp.ChequeDate, sp.ChequeStatus, sp.PaymentDate, sp.Notes, sp.CreatedBy))
}

func (t *txRepo) LockSupplierPayment(ctx context.Context, id int64) (SupplierPayment, error) {
	sp, err := scanSupplierPayment(t.conn.QueryRow(ctx, `SELECT `+supplierPaymentColumns+` FROM supplier_payments WHERE id = $1 FOR UPDATE`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return SupplierPayment{}, fmt.Errorf("supplier payment %d: %w", id, ErrSupplierPaymentNotFound)
	}
	return sp, err
}

func (t *txRepo) SetSupplierChequeStatus(ctx context.Context, id int64, status shared.ChequeStatus) error {
	_, err := t.conn.Exec(ctx, `UPDATE supplier_payments SET cheque_status = $2, cheque_status_changed_at = NOW() WHERE id = $1`, id, status)
	return err
}

// Get loads a purchase with its items.
func (r *Repository) Get(ctx context.Context, id int64) (Purchase, error) {
	p, err := scanPurchase(r.pool.QueryRow(ctx, `SELECT `+purchaseColumns+`
FROM purchases p JOIN suppliers s ON s.id = p.supplier_id WHERE p.id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Purchase{}, fmt.Errorf("purchase %d: %w", id, ErrPurchaseNotFound)
	}
	if err != nil {
		return Purchase{}, err
	}
	p.Items, err = queryItems(ctx, r.pool, id)
	return p, err
}

// List returns purchases newest first without items.
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]Purchase, error) {
	query := `SELECT ` + purchaseColumns + ` FROM purchases p JOIN suppliers s ON s.id = p.supplier_id WHERE 1=1`
	args := []any{}
	add := func(cond string, v any) {
		args = append(args, v)
		query += fmt.Sprintf(cond, len(args))
	}
	if filter.SupplierID != nil {
		add(` AND p.supplier_id = $%d`, *filter.SupplierID)
	}
	if filter.PaymentStatus != "" {
		add(` AND p.payment_status = $%d`, filter.PaymentStatus)
	}
	if !filter.From.IsZero() {
		add(` AND p.purchase_date >= $%d`, filter.From)
	}
	if !filter.To.IsZero() {
		add(` AND p.purchase_date <= $%d`, filter.To)
	}
	query += ` ORDER BY p.purchase_date DESC, p.id DESC`
	if filter.Limit > 0 {
		add(` LIMIT $%d`, filter.Limit)
		add(` OFFSET $%d`, filter.Offset)
	}
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Purchase
	for rows.Next() {
		p, err := scanPurchase(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// ListSupplierPayments returns supplier payments newest first.
func (r *Repository) ListSupplierPayments(ctx context.Context, filter PaymentFilter) ([]SupplierPayment, error) {
	query := `SELECT ` + supplierPaymentColumns + ` FROM supplier_payments WHERE 1=1`
	args := []any{}
	add := func(cond string, v any) {
		args = append(args, v)
		query += fmt.Sprintf(cond, len(args))
	}
	if filter.SupplierID != nil {
		add(` AND supplier_id = $%d`, *filter.SupplierID)
	}
	if filter.PurchaseID != nil {
		add(` AND purchase_id = $%d`, *filter.PurchaseID)
	}
	if filter.ChequeStatus != "" {
		add(` AND cheque_status = $%d`, filter.ChequeStatus)
	}
	query += ` ORDER BY payment_date DESC, id DESC`
	if filter.Limit > 0 {
		add(` LIMIT $%d`, filter.Limit)
		add(` OFFSET $%d`, filter.Offset)
	}
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []SupplierPayment
	for rows.Next() {
		sp, err := scanSupplierPayment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sp)
	}
	return out, rows.Err()
}

// GetSupplierPayment loads one supplier payment.
func (r *Repository) GetSupplierPayment(ctx context.Context, id int64) (SupplierPayment, error) {
	sp, err := scanSupplierPayment(r.pool.QueryRow(ctx, `SELECT `+supplierPaymentColumns+` FROM supplier_payments WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return SupplierPayment{}, fmt.Errorf("supplier payment %d: %w", id, ErrSupplierPaymentNotFound)
	}
	return sp, err
}

func queryItems(ctx context.Context, conn db.DBTX, purchaseID int64) ([]PurchaseItem, error) {
	rows, err := conn.Query(ctx, `SELECT i.id, i.purchase_id, i.product_id, p.name, i.quantity, i.unit_cost, i.line_total
FROM purchase_items i JOIN products p ON p.id = i.product_id WHERE i.purchase_id = $1 ORDER BY i.id`, purchaseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []PurchaseItem
	for rows.Next() {
		var it PurchaseItem
		if err := rows.Scan(&it.ID, &it.PurchaseID, &it.ProductID, &it.ProductName, &it.Quantity, &it.UnitCost, &it.LineTotal); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}
