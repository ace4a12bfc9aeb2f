package inventory

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sierra-distribution/sierra/internal/ledger"
	"github.com/sierra-distribution/sierra/internal/shared"
)

var (
	// ErrProductNotFound is returned for unknown product ids.
	ErrProductNotFound = ledger.ErrProductNotFound
	// ErrDuplicateSKU indicates another product already uses the SKU.
	ErrDuplicateSKU = fmt.Errorf("sku already exists: %w", shared.ErrConflict)
	// ErrInvalidQuantity indicates a zero adjustment.
	ErrInvalidQuantity = shared.Invalid("quantity must be non-zero")
)

// Product is a stocked item sold by the distributor.
type Product struct {
	ID            int64           `json:"id"`
	SKU           string          `json:"sku"`
	Name          string          `json:"name"`
	Unit          string          `json:"unit"`
	StockQuantity int             `json:"stock_quantity"`
	CostPrice     decimal.Decimal `json:"cost_price"`
	MRP           decimal.Decimal `json:"mrp"`
	ReorderLevel  int             `json:"reorder_level"`
	IsActive      bool            `json:"is_active"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// CreateProductInput describes a new product. OpeningStock is booked as an opening movement.
type CreateProductInput struct {
	SKU          string          `json:"sku" validate:"required,max=64"`
	Name         string          `json:"name" validate:"required,max=200"`
	Unit         string          `json:"unit" validate:"omitempty,max=20"`
	CostPrice    decimal.Decimal `json:"cost_price" validate:"gte=0"`
	MRP          decimal.Decimal `json:"mrp" validate:"gte=0"`
	ReorderLevel int             `json:"reorder_level" validate:"gte=0"`
	OpeningStock int             `json:"opening_stock" validate:"gte=0"`
}

// UpdateProductInput changes catalogue fields. Stock only moves through adjustments.
type UpdateProductInput struct {
	Name         *string          `json:"name" validate:"omitempty,min=1,max=200"`
	Unit         *string          `json:"unit" validate:"omitempty,max=20"`
	CostPrice    *decimal.Decimal `json:"cost_price"`
	MRP          *decimal.Decimal `json:"mrp"`
	ReorderLevel *int             `json:"reorder_level" validate:"omitempty,gte=0"`
	IsActive     *bool            `json:"is_active"`
}

// AdjustStockInput is a direct signed stock change.
type AdjustStockInput struct {
	Quantity int                 `json:"quantity"`
	Type     ledger.MovementType `json:"type" validate:"required,oneof=adjustment return purchase"`
	Notes    string              `json:"notes" validate:"omitempty,max=500"`
}

// StockAdjustment is the result of AdjustStock.
type StockAdjustment struct {
	ProductID     int64               `json:"product_id"`
	Type          ledger.MovementType `json:"type"`
	Quantity      int                 `json:"quantity"`
	StockQuantity int                 `json:"stock_quantity"`
}

// ListFilter narrows product listings.
type ListFilter struct {
	Search     string
	ActiveOnly bool
	Limit      int
	Offset     int
}
