package accounts

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sierra-distribution/sierra/internal/ledger"
	"github.com/sierra-distribution/sierra/internal/platform/db"
)

// TxRepository exposes transactional operations used by service.
type TxRepository interface {
	ledger.Book
	InsertAccount(ctx context.Context, in CreateAccountInput) (int64, error)
	InsertExpense(ctx context.Context, e Expense) (Expense, error)
}

// Repository persists accounts and expenses in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
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

func (t *txRepo) InsertAccount(ctx context.Context, in CreateAccountInput) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `INSERT INTO company_accounts (account_name, account_type, bank_name, account_number)
VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, '')) RETURNING id`,
		in.AccountName, in.AccountType, in.BankName, in.AccountNumber).Scan(&id)
	if db.IsUniqueViolation(err) {
		return 0, ErrDuplicateAccountNumber
	}
	return id, err
}

func (t *txRepo) InsertExpense(ctx context.Context, e Expense) (Expense, error) {
	err := t.tx.QueryRow(ctx, `INSERT INTO expenses (category, amount, expense_date, account_id, description, created_by)
VALUES ($1, $2, $3, $4, NULLIF($5, ''), NULLIF($6, '')) RETURNING id, created_at`,
		e.Category, e.Amount, e.ExpenseDate, e.AccountID, e.Description, e.CreatedBy).Scan(&e.ID, &e.CreatedAt)
	return e, err
}

const accountColumns = `id, account_name, account_type, COALESCE(bank_name, ''), COALESCE(account_number, ''), current_balance, is_active, created_at, updated_at`

func scanAccount(row pgx.Row) (Account, error) {
	var a Account
	err := row.Scan(&a.ID, &a.AccountName, &a.AccountType, &a.BankName, &a.AccountNumber, &a.CurrentBalance, &a.IsActive, &a.CreatedAt, &a.UpdatedAt)
	return a, err
}

// List returns every account ordered by name.
func (r *Repository) List(ctx context.Context) ([]Account, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+accountColumns+` FROM company_accounts ORDER BY account_name ASC, id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *Repository) Get(ctx context.Context, id int64) (Account, error) {
	a, err := scanAccount(r.pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM company_accounts WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Account{}, fmt.Errorf("account %d: %w", id, ErrAccountNotFound)
	}
	return a, err
}

// Transactions lists the newest ledger rows of an account.
func (r *Repository) Transactions(ctx context.Context, accountID int64, limit int) ([]ledger.AccountTransaction, error) {
	return ledger.New(r.pool).ListAccountTransactions(ctx, accountID, limit)
}

const expenseColumns = `id, category, amount, expense_date, account_id, COALESCE(description, ''), COALESCE(created_by, ''), created_at`

func (r *Repository) GetExpense(ctx context.Context, id int64) (Expense, error) {
	var e Expense
	err := r.pool.QueryRow(ctx, `SELECT `+expenseColumns+` FROM expenses WHERE id = $1`, id).
		Scan(&e.ID, &e.Category, &e.Amount, &e.ExpenseDate, &e.AccountID, &e.Description, &e.CreatedBy, &e.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Expense{}, fmt.Errorf("expense %d: %w", id, ErrExpenseNotFound)
	}
	return e, err
}

// ListExpenses returns expenses newest first.
func (r *Repository) ListExpenses(ctx context.Context, filter ExpenseFilter) ([]Expense, error) {
	query := `SELECT ` + expenseColumns + ` FROM expenses WHERE 1=1`
	args := []any{}
	add := func(cond string, v any) {
		args = append(args, v)
		query += fmt.Sprintf(cond, len(args))
	}
	if filter.Category != "" {
		add(` AND category = $%d`, filter.Category)
	}
	if filter.AccountID != nil {
		add(` AND account_id = $%d`, *filter.AccountID)
	}
	if !filter.From.IsZero() {
		add(` AND expense_date >= $%d`, filter.From)
	}
	if !filter.To.IsZero() {
		add(` AND expense_date <= $%d`, filter.To)
	}
	query += ` ORDER BY expense_date DESC, id DESC`
	if filter.Limit > 0 {
		add(` LIMIT $%d`, filter.Limit)
		add(` OFFSET $%d`, filter.Offset)
	}
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Expense
	for rows.Next() {
		var e Expense
		if err := rows.Scan(&e.ID, &e.Category, &e.Amount, &e.ExpenseDate, &e.AccountID, &e.Description, &e.CreatedBy, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
