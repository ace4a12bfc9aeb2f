package suppliers

import (
	"context"
	"errors"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sierra-distribution/sierra/internal/masterdata/shared"
	"github.com/sierra-distribution/sierra/internal/platform/db"
	core "github.com/sierra-distribution/sierra/internal/shared"
)

// ErrNotFound is returned when a supplier id does not exist.
var ErrNotFound = core.NotFound("supplier")

type Repository interface {
	List(ctx context.Context, filters shared.ListFilters) ([]Supplier, int, error)
	Get(ctx context.Context, id int64) (Supplier, error)
	Create(ctx context.Context, req CreateRequest) (Supplier, error)
	Update(ctx context.Context, id int64, req UpdateRequest) (Supplier, error)
}

type repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const supplierColumns = `id, name, COALESCE(phone, ''), COALESCE(email, ''), COALESCE(address, ''), is_primary, created_at, updated_at`

var sortable = map[string]string{"name": "name", "created_at": "created_at"}

func (r *repository) List(ctx context.Context, filters shared.ListFilters) ([]Supplier, int, error) {
	where := ` WHERE 1=1`
	args := []any{}
	if pattern := shared.SearchPattern(filters.Search); pattern != "" {
		args = append(args, pattern)
		where += ` AND (name ILIKE $1 OR phone ILIKE $1)`
	}
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM suppliers`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	query := `SELECT ` + supplierColumns + ` FROM suppliers` + where +
		` ORDER BY ` + shared.SortClause(filters, sortable, "is_primary DESC, name ASC, id ASC")
	if filters.Limit > 0 {
		args = append(args, filters.Limit, filters.Offset)
		query += ` LIMIT $` + strconv.Itoa(len(args)-1) + ` OFFSET $` + strconv.Itoa(len(args))
	}
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []Supplier
	for rows.Next() {
		s, err := scanSupplier(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, s)
	}
	return out, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (Supplier, error) {
	s, err := scanSupplier(r.pool.QueryRow(ctx, `SELECT `+supplierColumns+` FROM suppliers WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Supplier{}, ErrNotFound
	}
	return s, err
}

func (r *repository) Create(ctx context.Context, req CreateRequest) (Supplier, error) {
	var out Supplier
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if req.IsPrimary {
			if _, err := tx.Exec(ctx, `UPDATE suppliers SET is_primary = FALSE, updated_at = NOW() WHERE is_primary`); err != nil {
				return err
			}
		}
		var err error
		out, err = scanSupplier(tx.QueryRow(ctx, `INSERT INTO suppliers (name, phone, email, address, is_primary)
VALUES ($1, NULLIF($2, ''), NULLIF($3, ''), NULLIF($4, ''), $5)
RETURNING `+supplierColumns, req.Name, req.Phone, req.Email, req.Address, req.IsPrimary))
		return err
	})
	return out, err
}

func (r *repository) Update(ctx context.Context, id int64, req UpdateRequest) (Supplier, error) {
	var out Supplier
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if req.IsPrimary != nil && *req.IsPrimary {
			if _, err := tx.Exec(ctx, `UPDATE suppliers SET is_primary = FALSE, updated_at = NOW() WHERE is_primary AND id <> $1`, id); err != nil {
				return err
			}
		}
		var err error
		out, err = scanSupplier(tx.QueryRow(ctx, `UPDATE suppliers SET
    name = COALESCE($2, name),
    phone = COALESCE($3, phone),
    email = COALESCE($4, email),
    address = COALESCE($5, address),
    is_primary = COALESCE($6, is_primary),
    updated_at = NOW()
WHERE id = $1
RETURNING `+supplierColumns, id, req.Name, req.Phone, req.Email, req.Address, req.IsPrimary))
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return err
	})
	return out, err
}

func scanSupplier(row pgx.Row) (Supplier, error) {
	var s Supplier
	err := row.Scan(&s.ID, &s.Name, &s.Phone, &s.Email, &s.Address, &s.IsPrimary, &s.CreatedAt, &s.UpdatedAt)
	return s, err
}
