// Package ledger owns the balance columns that several modules mutate: product stock,
// company account balances and customer outstanding balances. Every mutation happens on a
// locked row inside the caller's transaction and appends a ledger row in the same transaction.
package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sierra-distribution/sierra/internal/shared"
)

// MovementType classifies inventory_transactions rows.
type MovementType string

const (
	MovementOpening      MovementType = "opening"
	MovementSale         MovementType = "sale"
	MovementPurchase     MovementType = "purchase"
	MovementAdjustment   MovementType = "adjustment"
	MovementReturn       MovementType = "return"
	MovementPurchaseEdit MovementType = "purchase_edit"
)

// EntryType classifies account_transactions rows.
type EntryType string

const (
	EntryOpening         EntryType = "opening"
	EntryDeposit         EntryType = "deposit"
	EntryTransferIn      EntryType = "transfer_in"
	EntryTransferOut     EntryType = "transfer_out"
	EntryCustomerPayment EntryType = "customer_payment"
	EntryChequeCleared   EntryType = "cheque_cleared"
	EntrySupplierPayment EntryType = "supplier_payment"
	EntryExpense         EntryType = "expense"
)

var (
	ErrProductNotFound  = shared.NotFound("product")
	ErrAccountNotFound  = shared.NotFound("account")
	ErrCustomerNotFound = shared.NotFound("customer")
	ErrAccountInactive  = shared.Invalid("account is inactive")
)

// Product is the locked stock view of a product row.
type Product struct {
	ID            int64
	Name          string
	StockQuantity int
	CostPrice     decimal.Decimal
	IsActive      bool
}

// Account is the locked balance view of a company account.
type Account struct {
	ID       int64
	Name     string
	Balance  decimal.Decimal
	IsActive bool
}

// Customer is the locked balance view of a customer.
type Customer struct {
	ID          int64
	Name        string
	Outstanding decimal.Decimal
}

// StockMovement is one signed change to a product's stock.
type StockMovement struct {
	ProductID     int64
	Quantity      int
	Type          MovementType
	ReferenceType string
	ReferenceID   int64
	Notes         string
	CreatedBy     string
}

// AccountEntry is one signed change to an account balance.
type AccountEntry struct {
	AccountID     int64
	Type          EntryType
	Amount        decimal.Decimal
	ReferenceType string
	ReferenceID   int64
	TransferGroup uuid.UUID
	Description   string
	CreatedBy     string
}

// InventoryTransaction is a persisted stock movement.
type InventoryTransaction struct {
	ID            int64        `json:"id"`
	ProductID     int64        `json:"product_id"`
	Type          MovementType `json:"txn_type"`
	Quantity      int          `json:"quantity"`
	BalanceAfter  int          `json:"balance_after"`
	ReferenceType string       `json:"reference_type,omitempty"`
	ReferenceID   *int64       `json:"reference_id,omitempty"`
	Notes         string       `json:"notes,omitempty"`
	CreatedAt     time.Time    `json:"created_at"`
}

// AccountTransaction is a persisted account entry.
type AccountTransaction struct {
	ID            int64           `json:"id"`
	AccountID     int64           `json:"account_id"`
	Type          EntryType       `json:"txn_type"`
	Amount        decimal.Decimal `json:"amount"`
	BalanceAfter  decimal.Decimal `json:"balance_after"`
	ReferenceType string          `json:"reference_type,omitempty"`
	ReferenceID   *int64          `json:"reference_id,omitempty"`
	TransferGroup *uuid.UUID      `json:"transfer_group,omitempty"`
	Description   string          `json:"description,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// Book is the set of balance mutations shared by order, payment, purchase and account flows.
type Book interface {
	LockProduct(ctx context.Context, id int64) (Product, error)
	MoveStock(ctx context.Context, m StockMovement) (int, error)
	SetProductCost(ctx context.Context, id int64, cost decimal.Decimal) error
	LockAccount(ctx context.Context, id int64) (Account, error)
	PostEntry(ctx context.Context, e AccountEntry) (decimal.Decimal, error)
	LockCustomer(ctx context.Context, id int64) (Customer, error)
	AdjustOutstanding(ctx context.Context, customerID int64, delta decimal.Decimal, floorAtZero bool) (decimal.Decimal, error)
}

// LockActiveAccount locks an account and rejects inactive ones.
func LockActiveAccount(ctx context.Context, b Book, id int64) (Account, error) {
	acct, err := b.LockAccount(ctx, id)
	if err != nil {
		return Account{}, err
	}
	if !acct.IsActive {
		return Account{}, fmt.Errorf("account %d: %w", id, ErrAccountInactive)
	}
	return acct, nil
}
