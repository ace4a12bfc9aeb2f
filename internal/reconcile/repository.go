package reconcile

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository runs the drift queries against PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ProductStockDrift lists products whose stock differs from the sum of their inventory transactions.
func (r *Repository) ProductStockDrift(ctx context.Context) ([]Drift, error) {
	return r.query(ctx, KindProductStock, `SELECT p.id, p.name, p.stock_quantity::numeric, COALESCE(SUM(t.quantity), 0)::numeric
FROM products p LEFT JOIN inventory_transactions t ON t.product_id = p.id
GROUP BY p.id, p.name, p.stock_quantity
HAVING p.stock_quantity <> COALESCE(SUM(t.quantity), 0)
ORDER BY p.id`)
}

// AccountBalanceDrift lists accounts whose balance differs from the sum of their ledger rows.
func (r *Repository) AccountBalanceDrift(ctx context.Context) ([]Drift, error) {
	return r.query(ctx, KindAccountBalance, `SELECT a.id, a.account_name, a.current_balance, COALESCE(SUM(t.amount), 0)
FROM company_accounts a LEFT JOIN account_transactions t ON t.account_id = a.id
GROUP BY a.id, a.account_name, a.current_balance
HAVING a.current_balance <> COALESCE(SUM(t.amount), 0)
ORDER BY a.id`)
}

// CustomerOutstandingDrift lists customers whose outstanding balance differs from opening
// balance plus order totals minus non-returned payments.
func (r *Repository) CustomerOutstandingDrift(ctx context.Context) ([]Drift, error) {
	return r.query(ctx, KindCustomerOutstanding, `SELECT c.id, c.name, c.outstanding_balance, x.expected
FROM customers c
CROSS JOIN LATERAL (
    SELECT c.opening_balance
        + COALESCE((SELECT SUM(o.total_amount) FROM orders o WHERE o.customer_id = c.id), 0)
        - COALESCE((SELECT SUM(p.amount) FROM payments p
                    WHERE p.customer_id = c.id AND COALESCE(p.cheque_status, '') <> 'returned'), 0) AS expected
) x
WHERE c.outstanding_balance <> x.expected
ORDER BY c.id`)
}

func (r *Repository) query(ctx context.Context, kind Kind, sql string) ([]Drift, error) {
	rows, err := r.pool.Query(ctx, sql)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Drift, error) {
		d := Drift{Kind: kind}
		if err := row.Scan(&d.EntityID, &d.Name, &d.Stored, &d.Ledger); err != nil {
			return Drift{}, err
		}
		d.Difference = d.Stored.Sub(d.Ledger)
		return d, nil
	})
}
