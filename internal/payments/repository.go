package payments

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sierra-distribution/sierra/internal/platform/db"
)

// Repository persists payments in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
	*Queries
}

// NewRepository constructs Repository. Reads run directly on the pool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool, Queries: NewQueries(pool)}
}

// WithTx executes the callback inside a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, NewQueries(tx))
	})
}
