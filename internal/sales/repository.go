package sales

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sierra-distribution/sierra/internal/payments"
	"github.com/sierra-distribution/sierra/internal/platform/db"
)

// TxRepository exposes transactional operations used by service.
type TxRepository interface {
	payments.TxRepository
	InsertOrder(ctx context.Context, o Order) (Order, error)
	InsertItem(ctx context.Context, it OrderItem) (OrderItem, error)
	UpdateOrderFields(ctx context.Context, id int64, status *OrderStatus, notes *string) error
}

// Repository persists orders in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type txRepo struct {
	*payments.Queries
	tx pgx.Tx
}

// WithTx executes the callback inside a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{Queries: payments.NewQueries(tx), tx: tx})
	})
}

const orderColumns = `o.id, o.order_number, o.customer_id, c.name, o.order_date, o.status, o.subtotal, o.discount_amount,
o.total_amount, o.paid_amount, o.payment_status, COALESCE(o.payment_method, ''), COALESCE(o.notes, ''),
COALESCE(o.created_by, ''), o.created_at, o.updated_at`

func scanOrder(row pgx.Row) (Order, error) {
	var o Order
	err := row.Scan(&o.ID, &o.OrderNumber, &o.CustomerID, &o.CustomerName, &o.OrderDate, &o.Status, &o.Subtotal, &o.DiscountAmount,
		&o.TotalAmount, &o.PaidAmount, &o.PaymentStatus, &o.PaymentMethod, &o.Notes,
		&o.CreatedBy, &o.CreatedAt, &o.UpdatedAt)
	return o, err
}

func (t *txRepo) InsertOrder(ctx context.Context, o Order) (Order, error) {
	err := t.tx.QueryRow(ctx, `INSERT INTO orders (order_number, customer_id, order_date, status, subtotal, discount_amount,
    total_amount, paid_amount, payment_status, payment_method, notes, created_by)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NULLIF($10, ''), NULLIF($11, ''), NULLIF($12, ''))
RETURNING id, created_at, updated_at`,
		o.OrderNumber, o.CustomerID, o.OrderDate, o.Status, o.Subtotal, o.DiscountAmount,
		o.TotalAmount, o.PaidAmount, o.PaymentStatus, o.PaymentMethod, o.Notes, o.CreatedBy).
		Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt)
	return o, err
}

func (t *txRepo) InsertItem(ctx context.Context, it OrderItem) (OrderItem, error) {
	err := t.tx.QueryRow(ctx, `INSERT INTO order_items (order_id, product_id, quantity, unit_price, cost_price, discount_percent, line_total)
VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
		it.OrderID, it.ProductID, it.Quantity, it.UnitPrice, it.CostPrice, it.DiscountPercent, it.LineTotal).Scan(&it.ID)
	return it, err
}

func (t *txRepo) UpdateOrderFields(ctx context.Context, id int64, status *OrderStatus, notes *string) error {
	_, err := t.tx.Exec(ctx, `UPDATE orders SET status = COALESCE($2, status), notes = COALESCE($3, notes), updated_at = NOW() WHERE id = $1`,
		id, status, notes)
	return err
}

// Get loads an order with its items.
func (r *Repository) Get(ctx context.Context, id int64) (Order, error) {
	o, err := scanOrder(r.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders o JOIN customers c ON c.id = o.customer_id WHERE o.id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, fmt.Errorf("order %d: %w", id, ErrOrderNotFound)
	}
	if err != nil {
		return Order{}, err
	}
	rows, err := r.pool.Query(ctx, `SELECT i.id, i.order_id, i.product_id, p.name, i.quantity, i.unit_price, i.cost_price, i.discount_percent, i.line_total
FROM order_items i JOIN products p ON p.id = i.product_id WHERE i.order_id = $1 ORDER BY i.id`, id)
	if err != nil {
		return Order{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var it OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.ProductName, &it.Quantity, &it.UnitPrice, &it.CostPrice, &it.DiscountPercent, &it.LineTotal); err != nil {
			return Order{}, err
		}
		o.Items = append(o.Items, it)
	}
	return o, rows.Err()
}

// List returns orders newest first without items.
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders o JOIN customers c ON c.id = o.customer_id WHERE 1=1`
	args := []any{}
	add := func(cond string, v any) {
		args = append(args, v)
		query += fmt.Sprintf(cond, len(args))
	}
	if filter.CustomerID != nil {
		add(` AND o.customer_id = $%d`, *filter.CustomerID)
	}
	if filter.Status != "" {
		add(` AND o.status = $%d`, filter.Status)
	}
	if filter.PaymentStatus != "" {
		add(` AND o.payment_status = $%d`, filter.PaymentStatus)
	}
	if !filter.From.IsZero() {
		add(` AND o.order_date >= $%d`, filter.From)
	}
	if !filter.To.IsZero() {
		add(` AND o.order_date <= $%d`, filter.To)
	}
	query += ` ORDER BY o.order_date DESC, o.id DESC`
	if filter.Limit > 0 {
		add(` LIMIT $%d`, filter.Limit)
		add(` OFFSET $%d`, filter.Offset)
	}
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// ListUnpaid returns orders not fully paid with outstanding derived from non-returned payments.
func (r *Repository) ListUnpaid(ctx context.Context, customerID *int64) ([]UnpaidOrder, error) {
	rows, err := r.pool.Query(ctx, `SELECT o.id, o.order_number, o.customer_id, c.name, o.order_date, o.total_amount,
    COALESCE(p.paid, 0), o.total_amount - COALESCE(p.paid, 0), o.payment_status
FROM orders o
JOIN customers c ON c.id = o.customer_id
LEFT JOIN LATERAL (
    SELECT SUM(amount) AS paid FROM payments
    WHERE order_id = o.id AND COALESCE(cheque_status, '') <> 'returned'
) p ON TRUE
WHERE o.payment_status <> 'paid' AND ($1::bigint IS NULL OR o.customer_id = $1)
ORDER BY o.order_date ASC, o.id ASC`, customerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []UnpaidOrder
	for rows.Next() {
		var u UnpaidOrder
		if err := rows.Scan(&u.ID, &u.OrderNumber, &u.CustomerID, &u.CustomerName, &u.OrderDate, &u.TotalAmount,
			&u.PaidAmount, &u.Outstanding, &u.PaymentStatus); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}
