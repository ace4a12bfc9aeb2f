package procurement

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sierra-distribution/sierra/internal/ledger"
	"github.com/sierra-distribution/sierra/internal/shared"
)

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, id int64) (Purchase, error)
	List(ctx context.Context, filter ListFilter) ([]Purchase, error)
	ListSupplierPayments(ctx context.Context, filter PaymentFilter) ([]SupplierPayment, error)
	GetSupplierPayment(ctx context.Context, id int64) (SupplierPayment, error)
}

// Service coordinates purchases and supplier payments.
type Service struct {
	repo        RepositoryPort
	audit       shared.AuditPort
	idempotency shared.IdempotencyPort
	cache       shared.Invalidator
	logger      *slog.Logger
	now         func() time.Time
}

// NewService builds Service. audit, idem and cache may be nil.
func NewService(repo RepositoryPort, audit shared.AuditPort, idem shared.IdempotencyPort, cache shared.Invalidator, logger *slog.Logger) *Service {
	return &Service{
		repo:        repo,
		audit:       audit,
		idempotency: idem,
		cache:       cache,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// CreatePurchase records the bill, its items, the stock increments and the new cost prices in
// one transaction. Without supplier_id the primary supplier is billed.
func (s *Service) CreatePurchase(ctx context.Context, in PurchaseInput, idemKey string) (Purchase, error) {
	if len(in.Items) == 0 {
		return Purchase{}, shared.Invalid("at least one item is required")
	}
	if in.DiscountAmount.IsNegative() {
		return Purchase{}, shared.Invalid("discount_amount cannot be negative")
	}
	items, err := buildItems(in.Items)
	if err != nil {
		return Purchase{}, err
	}
	subtotal, total, err := totals(items, in.DiscountAmount)
	if err != nil {
		return Purchase{}, err
	}

	now := s.now()
	actor := shared.ActorID(ctx)
	var out Purchase
	err = shared.Guard(ctx, s.idempotency, idemKey, "procurement", func() error {
		return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
			supplier, err := resolveSupplier(ctx, tx, in.SupplierID)
			if err != nil {
				return err
			}
			names, err := lockProducts(ctx, tx, productIDs(items))
			if err != nil {
				return err
			}
			p, err := tx.InsertPurchase(ctx, Purchase{
				PurchaseNumber: shared.DocumentNumber("PUR", now),
				SupplierID:     supplier.ID,
				SupplierName:   supplier.Name,
				PurchaseDate:   in.PurchaseDate.OrToday(),
				Subtotal:       subtotal,
				DiscountAmount: in.DiscountAmount,
				TotalAmount:    total,
				PaidAmount:     decimal.Zero,
				BalanceDue:     total,
				PaymentStatus:  shared.DerivePaymentStatus(decimal.Zero, total),
				Notes:          in.Notes,
				CreatedBy:      actor,
			})
			if err != nil {
				return err
			}
			p.SupplierName = supplier.Name
			for i := range items {
				items[i].PurchaseID = p.ID
				items[i].ProductName = names[items[i].ProductID]
				if items[i], err = tx.InsertItem(ctx, items[i]); err != nil {
					return err
				}
				if _, err := tx.MoveStock(ctx, ledger.StockMovement{
					ProductID:     items[i].ProductID,
					Quantity:      items[i].Quantity,
					Type:          ledger.MovementPurchase,
					ReferenceType: "purchase",
					ReferenceID:   p.ID,
					Notes:         p.PurchaseNumber,
					CreatedBy:     actor,
				}); err != nil {
					return err
				}
				if err := tx.SetProductCost(ctx, items[i].ProductID, items[i].UnitCost); err != nil {
					return err
				}
			}
			p.Items = items
			out = p
			return nil
		})
	})
	if err != nil {
		return Purchase{}, err
	}
	shared.AfterCommit(ctx, s.logger, s.audit, s.cache, shared.AuditLog{
		Action:   "procurement:purchase_created",
		Entity:   "purchase",
		EntityID: strconv.FormatInt(out.ID, 10),
		Meta: map[string]any{
			"purchase_number": out.PurchaseNumber,
			"supplier_id":     out.SupplierID,
			"total":           out.TotalAmount.String(),
		},
	})
	return out, nil
}

// UpdatePurchase replaces the items of a purchase. Stock moves by the per-product difference
// between the old and new items, each change logged as purchase_edit. Totals, balance due and
// payment status are recomputed against the supplier payments already made.
func (s *Service) UpdatePurchase(ctx context.Context, id int64, in PurchaseInput) (Purchase, error) {
	if len(in.Items) == 0 {
		return Purchase{}, shared.Invalid("at least one item is required")
	}
	if in.DiscountAmount.IsNegative() {
		return Purchase{}, shared.Invalid("discount_amount cannot be negative")
	}
	items, err := buildItems(in.Items)
	if err != nil {
		return Purchase{}, err
	}
	subtotal, total, err := totals(items, in.DiscountAmount)
	if err != nil {
		return Purchase{}, err
	}

	actor := shared.ActorID(ctx)
	var deltas []StockDelta
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		p, err := tx.LockPurchase(ctx, id)
		if err != nil {
			return err
		}
		if in.SupplierID != nil && *in.SupplierID != p.SupplierID {
			supplier, err := tx.LockSupplier(ctx, *in.SupplierID)
			if err != nil {
				return err
			}
			p.SupplierID = supplier.ID
		}
		old, err := tx.PurchaseItems(ctx, id)
		if err != nil {
			return err
		}
		if _, err := lockProducts(ctx, tx, productIDs(append(append([]PurchaseItem(nil), old...), items...))); err != nil {
			return err
		}

		deltas = DiffItems(old, items)
		for _, d := range deltas {
			if _, err := tx.MoveStock(ctx, ledger.StockMovement{
				ProductID:     d.ProductID,
				Quantity:      d.Delta,
				Type:          ledger.MovementPurchaseEdit,
				ReferenceType: "purchase",
				ReferenceID:   id,
				Notes:         p.PurchaseNumber,
				CreatedBy:     actor,
			}); err != nil {
				return err
			}
		}
		if err := tx.DeleteItems(ctx, id); err != nil {
			return err
		}
		for i := range items {
			items[i].PurchaseID = id
			if items[i], err = tx.InsertItem(ctx, items[i]); err != nil {
				return err
			}
			if err := tx.SetProductCost(ctx, items[i].ProductID, items[i].UnitCost); err != nil {
				return err
			}
		}

		if !in.PurchaseDate.IsZero() {
			p.PurchaseDate = in.PurchaseDate.Time
		}
		p.Subtotal = subtotal
		p.DiscountAmount = in.DiscountAmount
		p.TotalAmount = total
		p.Notes = in.Notes
		return settle(ctx, tx, p)
	})
	if err != nil {
		return Purchase{}, err
	}
	out, err := s.Get(ctx, id)
	if err != nil {
		return Purchase{}, err
	}
	moves := make([]map[string]any, 0, len(deltas))
	for _, d := range deltas {
		moves = append(moves, map[string]any{"product_id": d.ProductID, "delta": d.Delta})
	}
	shared.AfterCommit(ctx, s.logger, s.audit, s.cache, shared.AuditLog{
		Action:   "procurement:purchase_edited",
		Entity:   "purchase",
		EntityID: strconv.FormatInt(id, 10),
		Meta:     map[string]any{"total": out.TotalAmount.String(), "stock_deltas": moves},
	})
	return out, nil
}

// RecordSupplierPayment books money paid to a supplier. Cash and bank debit the paying account
// at once, overdraft allowed; cheques wait as pending. A linked purchase is re-settled.
func (s *Service) RecordSupplierPayment(ctx context.Context, in SupplierPaymentInput, idemKey string) (SupplierPayment, error) {
	if err := in.Validate(); err != nil {
		return SupplierPayment{}, err
	}
	now := s.now()
	actor := shared.ActorID(ctx)
	amount := shared.RoundMoney(in.Amount)
	var out SupplierPayment
	err := shared.Guard(ctx, s.idempotency, idemKey, "procurement", func() error {
		return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
			var (
				purchase   Purchase
				supplierID int64
			)
			if in.PurchaseID != nil {
				var err error
				purchase, err = tx.LockPurchase(ctx, *in.PurchaseID)
				if err != nil {
					return err
				}
				if in.SupplierID != nil && *in.SupplierID != purchase.SupplierID {
					return shared.Invalid("supplier_id does not match the purchase's supplier")
				}
				supplierID = purchase.SupplierID
			} else {
				supplier, err := tx.LockSupplier(ctx, *in.SupplierID)
				if err != nil {
					return err
				}
				supplierID = supplier.ID
			}
			if _, err := ledger.LockActiveAccount(ctx, tx, in.AccountID); err != nil {
				return err
			}

			sp := SupplierPayment{
				PaymentNumber: shared.DocumentNumber("SPY", now),
				PurchaseID:    in.PurchaseID,
				SupplierID:    supplierID,
				Amount:        amount,
				Method:        in.Method,
				AccountID:     in.AccountID,
				PaymentDate:   in.PaymentDate.OrToday(),
				Notes:         in.Notes,
				CreatedBy:     actor,
			}
			if in.Method == shared.MethodCheque {
				sp.ChequeNumber = in.ChequeNumber
				sp.ChequeDate = in.ChequeDate.Ptr()
				sp.ChequeStatus = shared.ChequePending
			}
			sp, err := tx.InsertSupplierPayment(ctx, sp)
			if err != nil {
				return err
			}
			if sp.Method != shared.MethodCheque {
				if err := debit(ctx, tx, sp, actor); err != nil {
					return err
				}
			}
			if sp.PurchaseID != nil {
				if err := settle(ctx, tx, purchase); err != nil {
					return err
				}
			}
			out = sp
			return nil
		})
	})
	if err != nil {
		return SupplierPayment{}, err
	}
	shared.AfterCommit(ctx, s.logger, s.audit, s.cache, shared.AuditLog{
		Action:   "procurement:supplier_payment_recorded",
		Entity:   "supplier_payment",
		EntityID: strconv.FormatInt(out.ID, 10),
		Meta: map[string]any{
			"payment_number": out.PaymentNumber,
			"supplier_id":    out.SupplierID,
			"amount":         out.Amount.String(),
			"method":         out.Method,
		},
	})
	return out, nil
}

// TransitionSupplierCheque moves a pending supplier cheque to passed or returned. Passed debits
// the paying account. Returned re-settles the linked purchase without the cheque.
func (s *Service) TransitionSupplierCheque(ctx context.Context, id int64, next shared.ChequeStatus) (SupplierPayment, error) {
	if next != shared.ChequePassed && next != shared.ChequeReturned {
		return SupplierPayment{}, shared.Invalid("cheque_status must be one of [passed returned]")
	}
	actor := shared.ActorID(ctx)
	var out SupplierPayment
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		sp, err := tx.LockSupplierPayment(ctx, id)
		if err != nil {
			return err
		}
		if sp.Method != shared.MethodCheque {
			return ErrNotCheque
		}
		if !sp.ChequeStatus.CanTransition(next) {
			return fmt.Errorf("supplier payment %d is %s: %w", id, sp.ChequeStatus, ErrChequeFinal)
		}
		if err := tx.SetSupplierChequeStatus(ctx, id, next); err != nil {
			return err
		}
		sp.ChequeStatus = next
		switch next {
		case shared.ChequePassed:
			if _, err := tx.LockAccount(ctx, sp.AccountID); err != nil {
				return err
			}
			if err := debit(ctx, tx, sp, actor); err != nil {
				return err
			}
		case shared.ChequeReturned:
			if sp.PurchaseID != nil {
				p, err := tx.LockPurchase(ctx, *sp.PurchaseID)
				if err != nil {
					return err
				}
				if err := settle(ctx, tx, p); err != nil {
					return err
				}
			}
		}
		out = sp
		return nil
	})
	if err != nil {
		return SupplierPayment{}, err
	}
	shared.AfterCommit(ctx, s.logger, s.audit, s.cache, shared.AuditLog{
		Action:   "procurement:supplier_cheque_" + string(next),
		Entity:   "supplier_payment",
		EntityID: strconv.FormatInt(id, 10),
		Meta:     map[string]any{"amount": out.Amount.String(), "account_id": out.AccountID},
	})
	return out, nil
}

// Get returns a purchase with its items and supplier payments.
func (s *Service) Get(ctx context.Context, id int64) (Purchase, error) {
	p, err := s.repo.Get(ctx, id)
	if err != nil {
		return Purchase{}, err
	}
	p.Payments, err = s.repo.ListSupplierPayments(ctx, PaymentFilter{PurchaseID: &id})
	if err != nil {
		return Purchase{}, err
	}
	return p, nil
}

func (s *Service) List(ctx context.Context, filter ListFilter) ([]Purchase, error) {
	if filter.PaymentStatus != "" && !filter.PaymentStatus.Valid() {
		return nil, shared.Invalid("unknown payment_status filter")
	}
	return s.repo.List(ctx, filter)
}

func (s *Service) ListSupplierPayments(ctx context.Context, filter PaymentFilter) ([]SupplierPayment, error) {
	switch filter.ChequeStatus {
	case "", shared.ChequePending, shared.ChequePassed, shared.ChequeReturned:
	default:
		return nil, shared.Invalid("unknown cheque_status filter")
	}
	return s.repo.ListSupplierPayments(ctx, filter)
}

func (s *Service) GetSupplierPayment(ctx context.Context, id int64) (SupplierPayment, error) {
	return s.repo.GetSupplierPayment(ctx, id)
}

func resolveSupplier(ctx context.Context, tx TxRepository, id *int64) (Supplier, error) {
	if id == nil {
		return tx.PrimarySupplier(ctx)
	}
	return tx.LockSupplier(ctx, *id)
}

// lockProducts locks the given ids in order and returns their names.
func lockProducts(ctx context.Context, tx TxRepository, ids []int64) (map[int64]string, error) {
	names := make(map[int64]string, len(ids))
	for _, id := range ids {
		p, err := tx.LockProduct(ctx, id)
		if err != nil {
			return nil, err
		}
		names[id] = p.Name
	}
	return names, nil
}

// settle re-derives paid amount, balance due and payment status from non-returned supplier
// payments and writes the purchase header.
func settle(ctx context.Context, tx TxRepository, p Purchase) error {
	paid, err := tx.SumActiveSupplierPayments(ctx, p.ID)
	if err != nil {
		return err
	}
	p.PaidAmount = paid
	p.BalanceDue = p.TotalAmount.Sub(paid)
	p.PaymentStatus = shared.DerivePaymentStatus(paid, p.TotalAmount)
	return tx.UpdatePurchase(ctx, p)
}

func debit(ctx context.Context, tx TxRepository, sp SupplierPayment, actor string) error {
	_, err := tx.PostEntry(ctx, ledger.AccountEntry{
		AccountID:     sp.AccountID,
		Type:          ledger.EntrySupplierPayment,
		Amount:        sp.Amount.Neg(),
		ReferenceType: "supplier_payment",
		ReferenceID:   sp.ID,
		Description:   fmt.Sprintf("supplier payment %s", sp.PaymentNumber),
		CreatedBy:     actor,
	})
	return err
}
