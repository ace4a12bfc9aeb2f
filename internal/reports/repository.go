package reports

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Repository reads report inputs from PostgreSQL. Range bounds are dates, inclusive; "before"
// bounds are exclusive instants.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) scalar(ctx context.Context, sql string, args ...any) (decimal.Decimal, error) {
	var v decimal.Decimal
	err := r.pool.QueryRow(ctx, sql, args...).Scan(&v)
	return v, err
}

// Revenue sums order totals dated within the range.
func (r *Repository) Revenue(ctx context.Context, from, to time.Time) (decimal.Decimal, error) {
	return r.scalar(ctx, `SELECT COALESCE(SUM(total_amount), 0) FROM orders WHERE order_date BETWEEN $1 AND $2`, from, to)
}

// CostOfGoodsSold sums the cost snapshot of every item sold within the range.
func (r *Repository) CostOfGoodsSold(ctx context.Context, from, to time.Time) (decimal.Decimal, error) {
	return r.scalar(ctx, `SELECT COALESCE(SUM(i.cost_price * i.quantity), 0)
FROM order_items i JOIN orders o ON o.id = i.order_id
WHERE o.order_date BETWEEN $1 AND $2`, from, to)
}

// Purchases sums purchase totals dated within the range.
func (r *Repository) Purchases(ctx context.Context, from, to time.Time) (decimal.Decimal, error) {
	return r.scalar(ctx, `SELECT COALESCE(SUM(total_amount), 0) FROM purchases WHERE purchase_date BETWEEN $1 AND $2`, from, to)
}

// ExpensesByCategory totals expenses per category within the range.
func (r *Repository) ExpensesByCategory(ctx context.Context, from, to time.Time) ([]ExpenseLine, error) {
	rows, err := r.pool.Query(ctx, `SELECT category, SUM(amount) FROM expenses
WHERE expense_date BETWEEN $1 AND $2 GROUP BY category ORDER BY category`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ExpenseLine
	for rows.Next() {
		var line ExpenseLine
		if err := rows.Scan(&line.Category, &line.Amount); err != nil {
			return nil, err
		}
		out = append(out, line)
	}
	return out, rows.Err()
}

// StockValueBefore values the stock held before the instant at current cost prices, replaying
// the inventory ledger.
func (r *Repository) StockValueBefore(ctx context.Context, before time.Time) (decimal.Decimal, error) {
	return r.scalar(ctx, `SELECT COALESCE(SUM(t.qty * p.cost_price), 0)
FROM (SELECT product_id, SUM(quantity) AS qty FROM inventory_transactions WHERE created_at < $1 GROUP BY product_id) t
JOIN products p ON p.id = t.product_id`, before)
}

// CashBefore sums every account ledger row posted before the instant.
func (r *Repository) CashBefore(ctx context.Context, before time.Time) (decimal.Decimal, error) {
	return r.scalar(ctx, `SELECT COALESCE(SUM(amount), 0) FROM account_transactions WHERE created_at < $1`, before)
}

// Receivables sums customer outstanding balances.
func (r *Repository) Receivables(ctx context.Context) (decimal.Decimal, error) {
	return r.scalar(ctx, `SELECT COALESCE(SUM(outstanding_balance), 0) FROM customers`)
}

// Payables sums balance due on purchases dated on or before the date.
func (r *Repository) Payables(ctx context.Context, asOf time.Time) (decimal.Decimal, error) {
	return r.scalar(ctx, `SELECT COALESCE(SUM(balance_due), 0) FROM purchases WHERE purchase_date <= $1`, asOf)
}
