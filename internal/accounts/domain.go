// Package accounts keeps the company's cash and bank accounts: deposits, transfers, the account
// ledger and expenses paid out of an account.
package accounts

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sierra-distribution/sierra/internal/ledger"
	"github.com/sierra-distribution/sierra/internal/shared"
)

var (
	ErrAccountNotFound = ledger.ErrAccountNotFound
	ErrExpenseNotFound = shared.NotFound("expense")
	// ErrDuplicateAccountNumber is returned when account_number is already registered.
	ErrDuplicateAccountNumber = fmt.Errorf("account number already exists: %w", shared.ErrConflict)
	// ErrInsufficientFunds is returned when a transfer source cannot cover the amount.
	ErrInsufficientFunds = fmt.Errorf("insufficient balance: %w", shared.ErrConflict)
	// ErrSameAccount is returned for a transfer whose source and destination match.
	ErrSameAccount = shared.Invalid("from_account_id and to_account_id must differ")
)

// AccountType distinguishes cash boxes from bank accounts.
type AccountType string

const (
	AccountCash AccountType = "cash"
	AccountBank AccountType = "bank"
)

// TransactionType enumerates the manual account movements.
type TransactionType string

const (
	TxDeposit  TransactionType = "deposit"
	TxTransfer TransactionType = "transfer"
)

// Account is a company cash or bank account.
type Account struct {
	ID             int64           `json:"id"`
	AccountName    string          `json:"account_name"`
	AccountType    AccountType     `json:"account_type"`
	BankName       string          `json:"bank_name,omitempty"`
	AccountNumber  string          `json:"account_number,omitempty"`
	CurrentBalance decimal.Decimal `json:"current_balance"`
	IsActive       bool            `json:"is_active"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// CreateAccountInput is the body of POST /api/accounts.
type CreateAccountInput struct {
	AccountName    string          `json:"account_name" validate:"required,max=120"`
	AccountType    AccountType     `json:"account_type" validate:"required,oneof=cash bank"`
	BankName       string          `json:"bank_name" validate:"omitempty,max=120"`
	AccountNumber  string          `json:"account_number" validate:"omitempty,max=64"`
	OpeningBalance decimal.Decimal `json:"opening_balance" validate:"gte=0"`
}

// TransactionInput is the body of POST /api/accounts/transaction. Deposits use AccountID,
// transfers use FromAccountID and ToAccountID.
type TransactionInput struct {
	Type          TransactionType `json:"type" validate:"required,oneof=deposit transfer"`
	AccountID     *int64          `json:"account_id" validate:"omitempty,gt=0"`
	FromAccountID *int64          `json:"from_account_id" validate:"omitempty,gt=0"`
	ToAccountID   *int64          `json:"to_account_id" validate:"omitempty,gt=0"`
	Amount        decimal.Decimal `json:"amount"`
	Description   string          `json:"description" validate:"omitempty,max=500"`
}

// Balance is an account balance after a movement.
type Balance struct {
	AccountID int64           `json:"account_id"`
	Balance   decimal.Decimal `json:"balance"`
}

// TransactionResult reports the balances touched by a deposit or transfer.
type TransactionResult struct {
	Type          TransactionType `json:"type"`
	Amount        decimal.Decimal `json:"amount"`
	TransferGroup *uuid.UUID      `json:"transfer_group,omitempty"`
	Balances      []Balance       `json:"balances"`
}

// Expense is money paid out of an account for running costs.
type Expense struct {
	ID          int64           `json:"id"`
	Category    string          `json:"category"`
	Amount      decimal.Decimal `json:"amount"`
	ExpenseDate time.Time       `json:"expense_date"`
	AccountID   int64           `json:"account_id"`
	Description string          `json:"description,omitempty"`
	CreatedBy   string          `json:"created_by,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// ExpenseInput is the body of POST /api/expenses.
type ExpenseInput struct {
	Category    string          `json:"category" validate:"required,max=80"`
	Amount      decimal.Decimal `json:"amount"`
	ExpenseDate shared.Date     `json:"expense_date"`
	AccountID   int64           `json:"account_id" validate:"required,gt=0"`
	Description string          `json:"description" validate:"omitempty,max=500"`
}

// ExpenseFilter narrows expense listings.
type ExpenseFilter struct {
	Category  string
	AccountID *int64
	From      time.Time
	To        time.Time
	Limit     int
	Offset    int
}
