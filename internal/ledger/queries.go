package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/sierra-distribution/sierra/internal/platform/db"
)

// Queries implements Book with raw SQL against a pool or transaction.
type Queries struct {
	db db.DBTX
}

// New binds Queries to a pool or transaction. Row locks only hold inside a transaction.
func New(conn db.DBTX) *Queries {
	return &Queries{db: conn}
}

var _ Book = (*Queries)(nil)

func (q *Queries) LockProduct(ctx context.Context, id int64) (Product, error) {
	var p Product
	err := q.db.QueryRow(ctx, `SELECT id, name, stock_quantity, cost_price, is_active FROM products WHERE id = $1 FOR UPDATE`, id).
		Scan(&p.ID, &p.Name, &p.StockQuantity, &p.CostPrice, &p.IsActive)
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, fmt.Errorf("product %d: %w", id, ErrProductNotFound)
	}
	return p, err
}

func (q *Queries) MoveStock(ctx context.Context, m StockMovement) (int, error) {
	if m.Quantity == 0 {
		return 0, errors.New("ledger: zero stock movement")
	}
	var after int
	err := q.db.QueryRow(ctx, `UPDATE products SET stock_quantity = stock_quantity + $2, updated_at = NOW() WHERE id = $1 RETURNING stock_quantity`, m.ProductID, m.Quantity).Scan(&after)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("product %d: %w", m.ProductID, ErrProductNotFound)
	}
	if err != nil {
		return 0, err
	}
	_, err = q.db.Exec(ctx, `INSERT INTO inventory_transactions (product_id, txn_type, quantity, balance_after, reference_type, reference_id, notes, created_by)
VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, NULLIF($7, ''), NULLIF($8, ''))`,
		m.ProductID, m.Type, m.Quantity, after, m.ReferenceType, nullableID(m.ReferenceID), m.Notes, m.CreatedBy)
	if err != nil {
		return 0, err
	}
	return after, nil
}

func (q *Queries) SetProductCost(ctx context.Context, id int64, cost decimal.Decimal) error {
	tag, err := q.db.Exec(ctx, `UPDATE products SET cost_price = $2, updated_at = NOW() WHERE id = $1`, id, cost)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("product %d: %w", id, ErrProductNotFound)
	}
	return nil
}

func (q *Queries) LockAccount(ctx context.Context, id int64) (Account, error) {
	var a Account
	err := q.db.QueryRow(ctx, `SELECT id, account_name, current_balance, is_active FROM company_accounts WHERE id = $1 FOR UPDATE`, id).
		Scan(&a.ID, &a.Name, &a.Balance, &a.IsActive)
	if errors.Is(err, pgx.ErrNoRows) {
		return Account{}, fmt.Errorf("account %d: %w", id, ErrAccountNotFound)
	}
	return a, err
}

func (q *Queries) PostEntry(ctx context.Context, e AccountEntry) (decimal.Decimal, error) {
	if e.Amount.IsZero() {
		return decimal.Zero, errors.New("ledger: zero account entry")
	}
	var after decimal.Decimal
	err := q.db.QueryRow(ctx, `UPDATE company_accounts SET current_balance = current_balance + $2, updated_at = NOW() WHERE id = $1 RETURNING current_balance`, e.AccountID, e.Amount).Scan(&after)
	if errors.Is(err, pgx.ErrNoRows) {
		return decimal.Zero, fmt.Errorf("account %d: %w", e.AccountID, ErrAccountNotFound)
	}
	if err != nil {
		return decimal.Zero, err
	}
	var group *uuid.UUID
	if e.TransferGroup != uuid.Nil {
		group = &e.TransferGroup
	}
	_, err = q.db.Exec(ctx, `INSERT INTO account_transactions (account_id, txn_type, amount, balance_after, reference_type, reference_id, transfer_group, description, created_by)
VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7, NULLIF($8, ''), NULLIF($9, ''))`,
		e.AccountID, e.Type, e.Amount, after, e.ReferenceType, nullableID(e.ReferenceID), group, e.Description, e.CreatedBy)
	if err != nil {
		return decimal.Zero, err
	}
	return after, nil
}

func (q *Queries) LockCustomer(ctx context.Context, id int64) (Customer, error) {
	var c Customer
	err := q.db.QueryRow(ctx, `SELECT id, name, outstanding_balance FROM customers WHERE id = $1 FOR UPDATE`, id).
		Scan(&c.ID, &c.Name, &c.Outstanding)
	if errors.Is(err, pgx.ErrNoRows) {
		return Customer{}, fmt.Errorf("customer %d: %w", id, ErrCustomerNotFound)
	}
	return c, err
}

func (q *Queries) AdjustOutstanding(ctx context.Context, customerID int64, delta decimal.Decimal, floorAtZero bool) (decimal.Decimal, error) {
	var after decimal.Decimal
	err := q.db.QueryRow(ctx, `UPDATE customers
SET outstanding_balance = CASE WHEN $3 THEN GREATEST(outstanding_balance + $2, 0) ELSE outstanding_balance + $2 END,
    updated_at = NOW()
WHERE id = $1
RETURNING outstanding_balance`, customerID, delta, floorAtZero).Scan(&after)
	if errors.Is(err, pgx.ErrNoRows) {
		return decimal.Zero, fmt.Errorf("customer %d: %w", customerID, ErrCustomerNotFound)
	}
	return after, err
}

// ListInventoryTransactions returns the newest stock movements for a product.
func (q *Queries) ListInventoryTransactions(ctx context.Context, productID int64, limit int) ([]InventoryTransaction, error) {
	rows, err := q.db.Query(ctx, `SELECT id, product_id, txn_type, quantity, balance_after, COALESCE(reference_type, ''), reference_id, COALESCE(notes, ''), created_at
FROM inventory_transactions WHERE product_id = $1 ORDER BY created_at DESC, id DESC LIMIT $2`, productID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []InventoryTransaction
	for rows.Next() {
		var t InventoryTransaction
		if err := rows.Scan(&t.ID, &t.ProductID, &t.Type, &t.Quantity, &t.BalanceAfter, &t.ReferenceType, &t.ReferenceID, &t.Notes, &t.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// ListAccountTransactions returns the newest entries for an account.
func (q *Queries) ListAccountTransactions(ctx context.Context, accountID int64, limit int) ([]AccountTransaction, error) {
	rows, err := q.db.Query(ctx, `SELECT id, account_id, txn_type, amount, balance_after, COALESCE(reference_type, ''), reference_id, transfer_group, COALESCE(description, ''), created_at
FROM account_transactions WHERE account_id = $1 ORDER BY created_at DESC, id DESC LIMIT $2`, accountID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []AccountTransaction
	for rows.Next() {
		var t AccountTransaction
		if err := rows.Scan(&t.ID, &t.AccountID, &t.Type, &t.Amount, &t.BalanceAfter, &t.ReferenceType, &t.ReferenceID, &t.TransferGroup, &t.Description, &t.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func nullableID(id int64) *int64 {
	if id == 0 {
		return nil
	}
	return &id
}
