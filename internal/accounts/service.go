package accounts

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/sierra-distribution/sierra/internal/ledger"
	"github.com/sierra-distribution/sierra/internal/shared"
)

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	List(ctx context.Context) ([]Account, error)
	Get(ctx context.Context, id int64) (Account, error)
	Transactions(ctx context.Context, accountID int64, limit int) ([]ledger.AccountTransaction, error)
	ListExpenses(ctx context.Context, filter ExpenseFilter) ([]Expense, error)
	GetExpense(ctx context.Context, id int64) (Expense, error)
}

// Service coordinates account bookkeeping.
type Service struct {
	repo        RepositoryPort
	audit       shared.AuditPort
	idempotency shared.IdempotencyPort
	cache       shared.Invalidator
	logger      *slog.Logger
}

// NewService builds Service. audit, idem and cache may be nil.
func NewService(repo RepositoryPort, audit shared.AuditPort, idem shared.IdempotencyPort, cache shared.Invalidator, logger *slog.Logger) *Service {
	return &Service{repo: repo, audit: audit, idempotency: idem, cache: cache, logger: logger}
}

// CreateAccount opens an account and books its opening balance.
func (s *Service) CreateAccount(ctx context.Context, in CreateAccountInput) (Account, error) {
	in.AccountName = strings.TrimSpace(in.AccountName)
	in.AccountNumber = strings.TrimSpace(in.AccountNumber)
	if in.AccountName == "" {
		return Account{}, shared.Invalid("account_name is required")
	}
	if in.AccountType != AccountCash && in.AccountType != AccountBank {
		return Account{}, shared.Invalid("account_type must be one of [cash bank]")
	}
	if in.OpeningBalance.IsNegative() {
		return Account{}, shared.Invalid("opening_balance cannot be negative")
	}
	actor := shared.ActorID(ctx)
	var id int64
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		if id, err = tx.InsertAccount(ctx, in); err != nil {
			return err
		}
		if in.OpeningBalance.IsZero() {
			return nil
		}
		_, err = tx.PostEntry(ctx, ledger.AccountEntry{
			AccountID:     id,
			Type:          ledger.EntryOpening,
			Amount:        shared.RoundMoney(in.OpeningBalance),
			ReferenceType: "account",
			ReferenceID:   id,
			Description:   "opening balance",
			CreatedBy:     actor,
		})
		return err
	})
	if err != nil {
		return Account{}, err
	}
	shared.AfterCommit(ctx, s.logger, s.audit, s.cache, shared.AuditLog{
		Action:   "accounts:account_created",
		Entity:   "company_account",
		EntityID: strconv.FormatInt(id, 10),
		Meta:     map[string]any{"account_type": in.AccountType, "opening_balance": in.OpeningBalance.String()},
	})
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]Account, error) {
	return s.repo.List(ctx)
}

func (s *Service) Get(ctx context.Context, id int64) (Account, error) {
	return s.repo.Get(ctx, id)
}

// Transactions returns the latest ledger rows of an account.
func (s *Service) Transactions(ctx context.Context, accountID int64, limit int) ([]ledger.AccountTransaction, error) {
	if _, err := s.repo.Get(ctx, accountID); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return s.repo.Transactions(ctx, accountID, limit)
}

// Transact applies a deposit or a transfer. Transfers lock both accounts in id order, reject an
// uncovered source and post both legs under one transfer group.
func (s *Service) Transact(ctx context.Context, in TransactionInput, idemKey string) (TransactionResult, error) {
	if !in.Amount.IsPositive() {
		return TransactionResult{}, shared.Invalid("amount must be greater than 0")
	}
	amount := shared.RoundMoney(in.Amount)
	actor := shared.ActorID(ctx)
	result := TransactionResult{Type: in.Type, Amount: amount}

	var run func(context.Context, TxRepository) error
	switch in.Type {
	case TxDeposit:
		if in.AccountID == nil {
			return TransactionResult{}, shared.Invalid("account_id is required for a deposit")
		}
		run = func(ctx context.Context, tx TxRepository) error {
			if _, err := ledger.LockActiveAccount(ctx, tx, *in.AccountID); err != nil {
				return err
			}
			after, err := tx.PostEntry(ctx, ledger.AccountEntry{
				AccountID:     *in.AccountID,
				Type:          ledger.EntryDeposit,
				Amount:        amount,
				ReferenceType: "manual",
				Description:   in.Description,
				CreatedBy:     actor,
			})
			result.Balances = []Balance{{AccountID: *in.AccountID, Balance: after}}
			return err
		}
	case TxTransfer:
		if in.FromAccountID == nil || in.ToAccountID == nil {
			return TransactionResult{}, shared.Invalid("from_account_id and to_account_id are required for a transfer")
		}
		from, to := *in.FromAccountID, *in.ToAccountID
		if from == to {
			return TransactionResult{}, ErrSameAccount
		}
		group := uuid.New()
		result.TransferGroup = &group
		run = func(ctx context.Context, tx TxRepository) error {
			locked := make(map[int64]ledger.Account, 2)
			first, second := from, to
			if second < first {
				first, second = second, first
			}
			for _, id := range []int64{first, second} {
				acct, err := ledger.LockActiveAccount(ctx, tx, id)
				if err != nil {
					return err
				}
				locked[id] = acct
			}
			if locked[from].Balance.LessThan(amount) {
				return fmt.Errorf("account %d holds %s, %s requested: %w", from, locked[from].Balance, amount, ErrInsufficientFunds)
			}
			legs := []ledger.AccountEntry{
				{AccountID: from, Type: ledger.EntryTransferOut, Amount: amount.Neg()},
				{AccountID: to, Type: ledger.EntryTransferIn, Amount: amount},
			}
			for _, leg := range legs {
				leg.ReferenceType = "transfer"
				leg.TransferGroup = group
				leg.Description = in.Description
				leg.CreatedBy = actor
				after, err := tx.PostEntry(ctx, leg)
				if err != nil {
					return err
				}
				result.Balances = append(result.Balances, Balance{AccountID: leg.AccountID, Balance: after})
			}
			return nil
		}
	default:
		return TransactionResult{}, shared.Invalid("type must be one of [deposit transfer]")
	}

	err := shared.Guard(ctx, s.idempotency, idemKey, "accounts", func() error {
		result.Balances = nil
		return s.repo.WithTx(ctx, run)
	})
	if err != nil {
		return TransactionResult{}, err
	}
	meta := map[string]any{"type": in.Type, "amount": amount.String()}
	if result.TransferGroup != nil {
		meta["transfer_group"] = result.TransferGroup.String()
	}
	shared.AfterCommit(ctx, s.logger, s.audit, s.cache, shared.AuditLog{
		Action:   "accounts:" + string(in.Type),
		Entity:   "company_account",
		EntityID: strconv.FormatInt(result.Balances[0].AccountID, 10),
		Meta:     meta,
	})
	return result, nil
}

// CreateExpense records an expense and debits the paying account. Overdraft is allowed.
func (s *Service) CreateExpense(ctx context.Context, in ExpenseInput, idemKey string) (Expense, error) {
	in.Category = strings.TrimSpace(in.Category)
	if in.Category == "" {
		return Expense{}, shared.Invalid("category is required")
	}
	if !in.Amount.IsPositive() {
		return Expense{}, shared.Invalid("amount must be greater than 0")
	}
	if in.AccountID <= 0 {
		return Expense{}, shared.Invalid("account_id is required")
	}
	actor := shared.ActorID(ctx)
	var out Expense
	err := shared.Guard(ctx, s.idempotency, idemKey, "expenses", func() error {
		return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
			if _, err := ledger.LockActiveAccount(ctx, tx, in.AccountID); err != nil {
				return err
			}
			e, err := tx.InsertExpense(ctx, Expense{
				Category:    in.Category,
				Amount:      shared.RoundMoney(in.Amount),
				ExpenseDate: in.ExpenseDate.OrToday(),
				AccountID:   in.AccountID,
				Description: in.Description,
				CreatedBy:   actor,
			})
			if err != nil {
				return err
			}
			if _, err := tx.PostEntry(ctx, ledger.AccountEntry{
				AccountID:     e.AccountID,
				Type:          ledger.EntryExpense,
				Amount:        e.Amount.Neg(),
				ReferenceType: "expense",
				ReferenceID:   e.ID,
				Description:   e.Category,
				CreatedBy:     actor,
			}); err != nil {
				return err
			}
			out = e
			return nil
		})
	})
	if err != nil {
		return Expense{}, err
	}
	shared.AfterCommit(ctx, s.logger, s.audit, s.cache, shared.AuditLog{
		Action:   "accounts:expense_recorded",
		Entity:   "expense",
		EntityID: strconv.FormatInt(out.ID, 10),
		Meta:     map[string]any{"category": out.Category, "amount": out.Amount.String(), "account_id": out.AccountID},
	})
	return out, nil
}

func (s *Service) GetExpense(ctx context.Context, id int64) (Expense, error) {
	if id <= 0 {
		return Expense{}, shared.Invalid("invalid expense id")
	}
	return s.repo.GetExpense(ctx, id)
}

func (s *Service) ListExpenses(ctx context.Context, filter ExpenseFilter) ([]Expense, error) {
	filter.Category = strings.TrimSpace(filter.Category)
	return s.repo.ListExpenses(ctx, filter)
}
