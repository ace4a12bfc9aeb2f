package sales

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sierra-distribution/sierra/internal/ledger"
	"github.com/sierra-distribution/sierra/internal/payments"
	"github.com/sierra-distribution/sierra/internal/shared"
)

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, id int64) (Order, error)
	List(ctx context.Context, filter ListFilter) ([]Order, error)
	ListUnpaid(ctx context.Context, customerID *int64) ([]UnpaidOrder, error)
}

// PaymentLister loads the payments attached to an order.
type PaymentLister interface {
	List(ctx context.Context, filter payments.ListFilter) ([]payments.Payment, error)
}

// Service coordinates order intake.
type Service struct {
	repo        RepositoryPort
	payments    PaymentLister
	audit       shared.AuditPort
	idempotency shared.IdempotencyPort
	cache       shared.Invalidator
	logger      *slog.Logger
	now         func() time.Time
}

// NewService builds Service. audit, idem and cache may be nil.
func NewService(repo RepositoryPort, paymentLister PaymentLister, audit shared.AuditPort, idem shared.IdempotencyPort, cache shared.Invalidator, logger *slog.Logger) *Service {
	return &Service{
		repo:        repo,
		payments:    paymentLister,
		audit:       audit,
		idempotency: idem,
		cache:       cache,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// CreateOrder writes the order, its items, the stock issue, the customer balance and an
// optional initial payment in one transaction. Any failure leaves nothing behind.
func (s *Service) CreateOrder(ctx context.Context, in CreateOrderInput, idemKey string) (CreatedOrder, error) {
	if in.CustomerID <= 0 {
		return CreatedOrder{}, shared.Invalid("customer_id is required")
	}
	if len(in.Items) == 0 {
		return CreatedOrder{}, shared.Invalid("at least one item is required")
	}
	if in.DiscountAmount.IsNegative() {
		return CreatedOrder{}, shared.Invalid("discount_amount cannot be negative")
	}
	needed := make(map[int64]int, len(in.Items))
	for i, line := range in.Items {
		if line.ProductID <= 0 || line.Quantity <= 0 {
			return CreatedOrder{}, shared.Invalid(fmt.Sprintf("items[%d] requires product_id and a positive quantity", i))
		}
		if line.UnitPrice.IsNegative() || line.DiscountPercent.IsNegative() || line.DiscountPercent.GreaterThan(hundred) {
			return CreatedOrder{}, shared.Invalid(fmt.Sprintf("items[%d] has an invalid price or discount", i))
		}
		needed[line.ProductID] += line.Quantity
	}
	tender := in.Payment
	if tender != nil && tender.Amount.IsZero() {
		tender = nil
	}
	if tender != nil {
		if err := tender.Validate(); err != nil {
			return CreatedOrder{}, err
		}
	}

	now := s.now()
	actor := shared.ActorID(ctx)
	var out CreatedOrder
	err := shared.Guard(ctx, s.idempotency, idemKey, "sales", func() error {
		return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
			customer, err := tx.LockCustomer(ctx, in.CustomerID)
			if err != nil {
				return err
			}
			products, err := lockProducts(ctx, tx, needed)
			if err != nil {
				return err
			}

			items := make([]OrderItem, 0, len(in.Items))
			for _, line := range in.Items {
				items = append(items, OrderItem{
					ProductID:       line.ProductID,
					ProductName:     products[line.ProductID].Name,
					Quantity:        line.Quantity,
					UnitPrice:       line.UnitPrice,
					CostPrice:       products[line.ProductID].CostPrice,
					DiscountPercent: line.DiscountPercent,
					LineTotal:       LineTotal(line.Quantity, line.UnitPrice, line.DiscountPercent),
				})
			}
			subtotal, total, err := Totals(items, in.DiscountAmount)
			if err != nil {
				return err
			}

			order := Order{
				OrderNumber:    shared.DocumentNumber("ORD", now),
				CustomerID:     customer.ID,
				CustomerName:   customer.Name,
				OrderDate:      in.OrderDate.OrToday(),
				Status:         StatusConfirmed,
				Subtotal:       subtotal,
				DiscountAmount: in.DiscountAmount,
				TotalAmount:    total,
				PaidAmount:     decimal.Zero,
				PaymentStatus:  shared.DerivePaymentStatus(decimal.Zero, total),
				Notes:          in.Notes,
				CreatedBy:      actor,
			}
			if tender != nil {
				order.PaymentMethod = string(tender.Method)
			}
			order, err = tx.InsertOrder(ctx, order)
			if err != nil {
				return err
			}

			profit := decimal.Zero
			for i := range items {
				items[i].OrderID = order.ID
				if items[i], err = tx.InsertItem(ctx, items[i]); err != nil {
					return err
				}
				if _, err := tx.MoveStock(ctx, ledger.StockMovement{
					ProductID:     items[i].ProductID,
					Quantity:      -items[i].Quantity,
					Type:          ledger.MovementSale,
					ReferenceType: "order",
					ReferenceID:   order.ID,
					Notes:         order.OrderNumber,
					CreatedBy:     actor,
				}); err != nil {
					return err
				}
				profit = profit.Add(items[i].Profit())
			}
			order.Items = items

			if _, err := tx.AdjustOutstanding(ctx, customer.ID, total, false); err != nil {
				return err
			}
			if tender != nil {
				p, err := payments.Post(ctx, tx, payments.Posting{
					Tender:     *tender,
					OrderID:    &order.ID,
					CustomerID: customer.ID,
					CreatedBy:  actor,
					Now:        now,
				})
				if err != nil {
					return err
				}
				balance, err := tx.LockOrder(ctx, order.ID)
				if err != nil {
					return err
				}
				order.PaidAmount = balance.Paid
				order.PaymentStatus = balance.PaymentStatus
				order.Payments = []payments.Payment{p}
			}
			out = CreatedOrder{Order: order, Profit: shared.RoundMoney(profit)}
			return nil
		})
	})
	if err != nil {
		return CreatedOrder{}, err
	}
	shared.AfterCommit(ctx, s.logger, s.audit, s.cache, shared.AuditLog{
		Action:   "sales:order_created",
		Entity:   "order",
		EntityID: strconv.FormatInt(out.ID, 10),
		Meta: map[string]any{
			"order_number": out.OrderNumber,
			"customer_id":  out.CustomerID,
			"total":        out.TotalAmount.String(),
			"paid":         out.PaidAmount.String(),
		},
	})
	return out, nil
}

// lockProducts locks every product in ascending id order and checks stock against the summed
// quantity requested for it.
func lockProducts(ctx context.Context, tx TxRepository, needed map[int64]int) (map[int64]ledger.Product, error) {
	ids := make([]int64, 0, len(needed))
	for id := range needed {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make(map[int64]ledger.Product, len(ids))
	for _, id := range ids {
		p, err := tx.LockProduct(ctx, id)
		if err != nil {
			return nil, err
		}
		if !p.IsActive {
			return nil, fmt.Errorf("%s: %w", p.Name, ErrProductInactive)
		}
		if p.StockQuantity < needed[id] {
			return nil, fmt.Errorf("%s has %d in stock, %d requested: %w", p.Name, p.StockQuantity, needed[id], ErrInsufficientStock)
		}
		out[id] = p
	}
	return out, nil
}

// UpdateOrder changes status and notes. A supplied payment_status re-derives the stored value
// from the payment ledger instead of trusting the client.
func (s *Service) UpdateOrder(ctx context.Context, id int64, in UpdateOrderInput) (Order, error) {
	if in.Status == nil && in.PaymentStatus == nil && in.Notes == nil {
		return Order{}, shared.Invalid("nothing to update")
	}
	if in.Status != nil && !in.Status.Valid() {
		return Order{}, shared.Invalid("status must be one of [confirmed processing shipped delivered]")
	}
	if in.PaymentStatus != nil && !in.PaymentStatus.Valid() {
		return Order{}, shared.Invalid("payment_status must be one of [unpaid partial paid]")
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if _, err := tx.LockOrder(ctx, id); err != nil {
			return err
		}
		if in.Status != nil || in.Notes != nil {
			if err := tx.UpdateOrderFields(ctx, id, in.Status, in.Notes); err != nil {
				return err
			}
		}
		if in.PaymentStatus != nil {
			return payments.RecomputeOrder(ctx, tx, id)
		}
		return nil
	})
	if err != nil {
		return Order{}, err
	}
	order, err := s.Get(ctx, id)
	if err != nil {
		return Order{}, err
	}
	meta := map[string]any{"payment_status": order.PaymentStatus}
	if in.Status != nil {
		meta["status"] = *in.Status
	}
	shared.AfterCommit(ctx, s.logger, s.audit, s.cache, shared.AuditLog{
		Action:   "sales:order_updated",
		Entity:   "order",
		EntityID: strconv.FormatInt(id, 10),
		Meta:     meta,
	})
	return order, nil
}

// Get returns an order with its items and payments.
func (s *Service) Get(ctx context.Context, id int64) (Order, error) {
	order, err := s.repo.Get(ctx, id)
	if err != nil {
		return Order{}, err
	}
	if s.payments != nil {
		order.Payments, err = s.payments.List(ctx, payments.ListFilter{OrderID: &id})
		if err != nil {
			return Order{}, err
		}
	}
	return order, nil
}

func (s *Service) List(ctx context.Context, filter ListFilter) ([]Order, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, shared.Invalid("unknown status filter")
	}
	if filter.PaymentStatus != "" && !filter.PaymentStatus.Valid() {
		return nil, shared.Invalid("unknown payment_status filter")
	}
	return s.repo.List(ctx, filter)
}

// ListUnpaid returns orders still owing money, optionally for one customer.
func (s *Service) ListUnpaid(ctx context.Context, customerID *int64) ([]UnpaidOrder, error) {
	return s.repo.ListUnpaid(ctx, customerID)
}
