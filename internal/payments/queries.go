package payments

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/sierra-distribution/sierra/internal/ledger"
	"github.com/sierra-distribution/sierra/internal/platform/db"
	"github.com/sierra-distribution/sierra/internal/shared"
)

// Queries implements TxRepository on a pgx transaction. Order intake embeds it to book
// initial payments in the same transaction as the order.
type Queries struct {
	*ledger.Queries
	db db.DBTX
}

// NewQueries binds Queries to a transaction.
func NewQueries(conn db.DBTX) *Queries {
	return &Queries{Queries: ledger.New(conn), db: conn}
}

var _ TxRepository = (*Queries)(nil)

const paymentColumns = `id, payment_number, order_id, customer_id, amount, payment_method, payment_date,
deposit_account_id, COALESCE(cheque_number, ''), cheque_date, COALESCE(cheque_status, ''), bank_account_id,
COALESCE(notes, ''), COALESCE(created_by, ''), created_at`

func scanPayment(row pgx.Row) (Payment, error) {
	var p Payment
	err := row.Scan(&p.ID, &p.PaymentNumber, &p.OrderID, &p.CustomerID, &p.Amount, &p.Method, &p.PaymentDate,
		&p.DepositAccountID, &p.ChequeNumber, &p.ChequeDate, &p.ChequeStatus, &p.BankAccountID,
		&p.Notes, &p.CreatedBy, &p.CreatedAt)
	return p, err
}

func (q *Queries) LockOrder(ctx context.Context, id int64) (OrderBalance, error) {
	var o OrderBalance
	err := q.db.QueryRow(ctx, `SELECT id, customer_id, total_amount, paid_amount, payment_status FROM orders WHERE id = $1 FOR UPDATE`, id).
		Scan(&o.ID, &o.CustomerID, &o.Total, &o.Paid, &o.PaymentStatus)
	if errors.Is(err, pgx.ErrNoRows) {
		return OrderBalance{}, fmt.Errorf("order %d: %w", id, ErrOrderNotFound)
	}
	return o, err
}

func (q *Queries) SumActivePayments(ctx context.Context, orderID int64) (decimal.Decimal, error) {
	var sum decimal.Decimal
	err := q.db.QueryRow(ctx, `SELECT COALESCE(SUM(amount), 0) FROM payments
WHERE order_id = $1 AND COALESCE(cheque_status, '') <> 'returned'`, orderID).Scan(&sum)
	return sum, err
}

func (q *Queries) SetOrderPaid(ctx context.Context, orderID int64, paid decimal.Decimal, status shared.PaymentStatus) error {
	tag, err := q.db.Exec(ctx, `UPDATE orders SET paid_amount = $2, payment_status = $3, updated_at = NOW() WHERE id = $1`, orderID, paid, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("order %d: %w", orderID, ErrOrderNotFound)
	}
	return nil
}

func (q *Queries) InsertPayment(ctx context.Context, p Payment) (Payment, error) {
	return scanPayment(q.db.QueryRow(ctx, `INSERT INTO payments (payment_number, order_id, customer_id, amount, payment_method, payment_date,
    deposit_account_id, cheque_number, cheque_date, cheque_status, bank_account_id, notes, created_by)
VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, ''), $9, NULLIF($10, ''), $11, NULLIF($12, ''), NULLIF($13, ''))
RETURNING `+paymentColumns,
		p.PaymentNumber, p.OrderID, p.CustomerID, p.Amount, p.Method, p.PaymentDate,
		p.DepositAccountID, p.ChequeNumber, p.ChequeDate, p.ChequeStatus, p.BankAccountID, p.Notes, p.CreatedBy))
}

func (q *Queries) LockPayment(ctx context.Context, id int64) (Payment, error) {
	p, err := scanPayment(q.db.QueryRow(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id = $1 FOR UPDATE`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Payment{}, fmt.Errorf("payment %d: %w", id, ErrPaymentNotFound)
	}
	return p, err
}

func (q *Queries) SetChequeStatus(ctx context.Context, id int64, status shared.ChequeStatus) error {
	_, err := q.db.Exec(ctx, `UPDATE payments SET cheque_status = $2, cheque_status_changed_at = NOW() WHERE id = $1`, id, status)
	return err
}

// List returns payments newest first.
func (q *Queries) List(ctx context.Context, filter ListFilter) ([]Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE 1=1`
	args := []any{}
	if filter.CustomerID != nil {
		args = append(args, *filter.CustomerID)
		query += fmt.Sprintf(` AND customer_id = $%d`, len(args))
	}
	if filter.OrderID != nil {
		args = append(args, *filter.OrderID)
		query += fmt.Sprintf(` AND order_id = $%d`, len(args))
	}
	if filter.ChequeStatus != "" {
		args = append(args, filter.ChequeStatus)
		query += fmt.Sprintf(` AND cheque_status = $%d`, len(args))
	}
	query += ` ORDER BY payment_date DESC, id DESC`
	if filter.Limit > 0 {
		args = append(args, filter.Limit, filter.Offset)
		query += fmt.Sprintf(` LIMIT $%d OFFSET $%d`, len(args)-1, len(args))
	}
	rows, err := q.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Get loads a payment without locking it.
func (q *Queries) Get(ctx context.Context, id int64) (Payment, error) {
	p, err := scanPayment(q.db.QueryRow(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Payment{}, fmt.Errorf("payment %d: %w", id, ErrPaymentNotFound)
	}
	return p, err
}
