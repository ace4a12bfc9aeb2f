package customers

import (
	"context"
	"errors"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sierra-distribution/sierra/internal/masterdata/shared"
	core "github.com/sierra-distribution/sierra/internal/shared"
)

// ErrNotFound is returned when a customer id does not exist.
var ErrNotFound = core.NotFound("customer")

type Repository interface {
	List(ctx context.Context, filters shared.ListFilters) ([]Customer, int, error)
	Get(ctx context.Context, id int64) (Customer, error)
	Create(ctx context.Context, req CreateRequest) (Customer, error)
	Update(ctx context.Context, id int64, req UpdateRequest) (Customer, error)
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const customerColumns = `id, name, COALESCE(phone, ''), COALESCE(email, ''), COALESCE(address, ''), opening_balance, outstanding_balance, created_at, updated_at`

var sortable = map[string]string{
	"name":        "name",
	"outstanding": "outstanding_balance",
	"created_at":  "created_at",
}

func (r *repository) List(ctx context.Context, filters shared.ListFilters) ([]Customer, int, error) {
	where := ` WHERE 1=1`
	args := []any{}
	if pattern := shared.SearchPattern(filters.Search); pattern != "" {
		args = append(args, pattern)
		where += ` AND (name ILIKE $1 OR phone ILIKE $1 OR email ILIKE $1)`
	}

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM customers`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + customerColumns + ` FROM customers` + where +
		` ORDER BY ` + shared.SortClause(filters, sortable, "name ASC, id ASC")
	if filters.Limit > 0 {
		args = append(args, filters.Limit, filters.Offset)
		query += ` LIMIT $` + strconv.Itoa(len(args)-1) + ` OFFSET $` + strconv.Itoa(len(args))
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, c)
	}
	return out, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (Customer, error) {
	c, err := scanCustomer(r.db.QueryRow(ctx, `SELECT `+customerColumns+` FROM customers WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Customer{}, ErrNotFound
	}
	return c, err
}

func (r *repository) Create(ctx context.Context, req CreateRequest) (Customer, error) {
	return scanCustomer(r.db.QueryRow(ctx, `INSERT INTO customers (name, phone, email, address, opening_balance, outstanding_balance)
VALUES ($1, NULLIF($2, ''), NULLIF($3, ''), NULLIF($4, ''), $5, $5)
RETURNING `+customerColumns, req.Name, req.Phone, req.Email, req.Address, req.OpeningBalance))
}

func (r *repository) Update(ctx context.Context, id int64, req UpdateRequest) (Customer, error) {
	c, err := scanCustomer(r.db.QueryRow(ctx, `UPDATE customers SET
    name = COALESCE($2, name),
    phone = COALESCE($3, phone),
    email = COALESCE($4, email),
    address = COALESCE($5, address),
    updated_at = NOW()
WHERE id = $1
RETURNING `+customerColumns, id, req.Name, req.Phone, req.Email, req.Address))
	if errors.Is(err, pgx.ErrNoRows) {
		return Customer{}, ErrNotFound
	}
	return c, err
}

func scanCustomer(row pgx.Row) (Customer, error) {
	var c Customer
	err := row.Scan(&c.ID, &c.Name, &c.Phone, &c.Email, &c.Address, &c.OpeningBalance, &c.OutstandingBalance, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}
