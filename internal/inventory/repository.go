package inventory

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sierra-distribution/sierra/internal/ledger"
	"github.com/sierra-distribution/sierra/internal/platform/db"
)

// Repository persists products in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes transactional operations used by service.
type TxRepository interface {
	ledger.Book
	InsertProduct(ctx context.Context, in CreateProductInput) (int64, error)
}

type txRepo struct {
	*ledger.Queries
	tx pgx.Tx
}

// WithTx executes the callback inside a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{Queries: ledger.New(tx), tx: tx})
	})
}

const productColumns = `id, sku, name, COALESCE(unit, ''), stock_quantity, cost_price, mrp, reorder_level, is_active, created_at, updated_at`

func (t *txRepo) InsertProduct(ctx context.Context, in CreateProductInput) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `INSERT INTO products (sku, name, unit, cost_price, mrp, reorder_level)
VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6) RETURNING id`,
		in.SKU, in.Name, in.Unit, in.CostPrice, in.MRP, in.ReorderLevel).Scan(&id)
	if db.IsUniqueViolation(err) {
		return 0, ErrDuplicateSKU
	}
	return id, err
}

// List returns products ordered by name.
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE 1=1`
	args := []any{}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		query += fmt.Sprintf(` AND (name ILIKE $%d OR sku ILIKE $%d)`, len(args), len(args))
	}
	if filter.ActiveOnly {
		query += ` AND is_active`
	}
	query += ` ORDER BY name ASC, id ASC`
	if filter.Limit > 0 {
		args = append(args, filter.Limit, filter.Offset)
		query += ` LIMIT $` + strconv.Itoa(len(args)-1) + ` OFFSET $` + strconv.Itoa(len(args))
	}
	return r.query(ctx, query, args...)
}

// LowStock returns active products at or below their reorder level.
func (r *Repository) LowStock(ctx context.Context) ([]Product, error) {
	return r.query(ctx, `SELECT `+productColumns+` FROM products
WHERE is_active AND stock_quantity <= reorder_level
ORDER BY stock_quantity - reorder_level ASC, name ASC`)
}

func (r *Repository) Get(ctx context.Context, id int64) (Product, error) {
	p, err := scanProduct(r.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, fmt.Errorf("product %d: %w", id, ErrProductNotFound)
	}
	return p, err
}

func (r *Repository) Update(ctx context.Context, id int64, in UpdateProductInput) (Product, error) {
	p, err := scanProduct(r.pool.QueryRow(ctx, `UPDATE products SET
    name = COALESCE($2, name),
    unit = COALESCE($3, unit),
    cost_price = COALESCE($4, cost_price),
    mrp = COALESCE($5, mrp),
    reorder_level = COALESCE($6, reorder_level),
    is_active = COALESCE($7, is_active),
    updated_at = NOW()
WHERE id = $1
RETURNING `+productColumns, id, in.Name, in.Unit, in.CostPrice, in.MRP, in.ReorderLevel, in.IsActive))
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, fmt.Errorf("product %d: %w", id, ErrProductNotFound)
	}
	return p, err
}

// History lists the newest inventory transactions of a product.
func (r *Repository) History(ctx context.Context, productID int64, limit int) ([]ledger.InventoryTransaction, error) {
	return ledger.New(r.pool).ListInventoryTransactions(ctx, productID, limit)
}

func (r *Repository) query(ctx context.Context, sql string, args ...any) ([]Product, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.SKU, &p.Name, &p.Unit, &p.StockQuantity, &p.CostPrice, &p.MRP, &p.ReorderLevel, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}
