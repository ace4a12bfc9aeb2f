package inventory

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/sierra-distribution/sierra/internal/ledger"
	"github.com/sierra-distribution/sierra/internal/shared"
)

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	List(ctx context.Context, filter ListFilter) ([]Product, error)
	LowStock(ctx context.Context) ([]Product, error)
	Get(ctx context.Context, id int64) (Product, error)
	Update(ctx context.Context, id int64, in UpdateProductInput) (Product, error)
	History(ctx context.Context, productID int64, limit int) ([]ledger.InventoryTransaction, error)
}

// Service coordinates product and stock operations.
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

func (s *Service) List(ctx context.Context, filter ListFilter) ([]Product, error) {
	filter.Search = strings.TrimSpace(filter.Search)
	return s.repo.List(ctx, filter)
}

func (s *Service) LowStock(ctx context.Context) ([]Product, error) {
	return s.repo.LowStock(ctx)
}

func (s *Service) Get(ctx context.Context, id int64) (Product, error) {
	return s.repo.Get(ctx, id)
}

// CreateProduct inserts the product and books any opening stock through the inventory ledger.
func (s *Service) CreateProduct(ctx context.Context, in CreateProductInput) (Product, error) {
	in.SKU = strings.TrimSpace(in.SKU)
	in.Name = strings.TrimSpace(in.Name)
	if in.SKU == "" || in.Name == "" {
		return Product{}, shared.Invalid("sku and name are required")
	}
	if in.CostPrice.IsNegative() || in.MRP.IsNegative() {
		return Product{}, shared.Invalid("prices cannot be negative")
	}
	if in.OpeningStock < 0 {
		return Product{}, shared.Invalid("opening_stock cannot be negative")
	}
	actor := shared.ActorID(ctx)
	var id int64
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		id, err = tx.InsertProduct(ctx, in)
		if err != nil {
			return err
		}
		if in.OpeningStock == 0 {
			return nil
		}
		_, err = tx.MoveStock(ctx, ledger.StockMovement{
			ProductID:     id,
			Quantity:      in.OpeningStock,
			Type:          ledger.MovementOpening,
			ReferenceType: "product",
			ReferenceID:   id,
			Notes:         "opening stock",
			CreatedBy:     actor,
		})
		return err
	})
	if err != nil {
		return Product{}, err
	}
	shared.AfterCommit(ctx, s.logger, s.audit, s.cache, shared.AuditLog{
		Action:   "inventory:product_created",
		Entity:   "product",
		EntityID: strconv.FormatInt(id, 10),
		Meta:     map[string]any{"sku": in.SKU, "opening_stock": in.OpeningStock},
	})
	return s.repo.Get(ctx, id)
}

func (s *Service) UpdateProduct(ctx context.Context, id int64, in UpdateProductInput) (Product, error) {
	if in.Name != nil {
		trimmed := strings.TrimSpace(*in.Name)
		if trimmed == "" {
			return Product{}, shared.Invalid("name cannot be empty")
		}
		in.Name = &trimmed
	}
	if negative(in.CostPrice) || negative(in.MRP) {
		return Product{}, shared.Invalid("prices cannot be negative")
	}
	p, err := s.repo.Update(ctx, id, in)
	if err != nil {
		return Product{}, err
	}
	shared.AfterCommit(ctx, s.logger, s.audit, s.cache, shared.AuditLog{
		Action:   "inventory:product_updated",
		Entity:   "product",
		EntityID: strconv.FormatInt(id, 10),
	})
	return p, nil
}

// AdjustStock applies a signed change to a product's stock. The result may be negative.
func (s *Service) AdjustStock(ctx context.Context, productID int64, in AdjustStockInput, idemKey string) (StockAdjustment, error) {
	if in.Quantity == 0 {
		return StockAdjustment{}, ErrInvalidQuantity
	}
	switch in.Type {
	case ledger.MovementAdjustment, ledger.MovementReturn, ledger.MovementPurchase:
	default:
		return StockAdjustment{}, shared.Invalid("type must be adjustment, return or purchase")
	}
	actor := shared.ActorID(ctx)
	result := StockAdjustment{ProductID: productID, Type: in.Type, Quantity: in.Quantity}
	err := shared.Guard(ctx, s.idempotency, idemKey, "inventory", func() error {
		return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
			if _, err := tx.LockProduct(ctx, productID); err != nil {
				return err
			}
			after, err := tx.MoveStock(ctx, ledger.StockMovement{
				ProductID:     productID,
				Quantity:      in.Quantity,
				Type:          in.Type,
				ReferenceType: "manual",
				Notes:         in.Notes,
				CreatedBy:     actor,
			})
			result.StockQuantity = after
			return err
		})
	})
	if err != nil {
		return StockAdjustment{}, err
	}
	shared.AfterCommit(ctx, s.logger, s.audit, s.cache, shared.AuditLog{
		Action:   "inventory:" + string(in.Type),
		Entity:   "product",
		EntityID: strconv.FormatInt(productID, 10),
		Meta:     map[string]any{"quantity": in.Quantity, "stock_after": result.StockQuantity, "notes": in.Notes},
	})
	return result, nil
}

// History returns the latest stock movements of a product.
func (s *Service) History(ctx context.Context, productID int64, limit int) ([]ledger.InventoryTransaction, error) {
	if _, err := s.repo.Get(ctx, productID); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return s.repo.History(ctx, productID, limit)
}

func negative(d *decimal.Decimal) bool {
	return d != nil && d.IsNegative()
}
