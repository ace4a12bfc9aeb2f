package procurement

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/sierra-distribution/sierra/internal/shared"
)

// StockDelta is the net stock change for one product caused by a purchase edit.
type StockDelta struct {
	ProductID int64
	Delta     int
}

// DiffItems compares old and new purchase items by product: kept products move by new − old,
// removed products by −old and added products by +new. Zero deltas are dropped and the result
// is ordered by product id.
func DiffItems(old, updated []PurchaseItem) []StockDelta {
	net := make(map[int64]int)
	for _, it := range old {
		net[it.ProductID] -= it.Quantity
	}
	for _, it := range updated {
		net[it.ProductID] += it.Quantity
	}
	out := make([]StockDelta, 0, len(net))
	for id, delta := range net {
		if delta != 0 {
			out = append(out, StockDelta{ProductID: id, Delta: delta})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return out
}

func buildItems(in []ItemInput) ([]PurchaseItem, error) {
	items := make([]PurchaseItem, 0, len(in))
	for _, line := range in {
		if line.ProductID <= 0 || line.Quantity <= 0 {
			return nil, shared.Invalid("each item requires product_id and a positive quantity")
		}
		if line.UnitCost.IsNegative() {
			return nil, shared.Invalid("unit_cost cannot be negative")
		}
		items = append(items, PurchaseItem{
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			UnitCost:  line.UnitCost,
			LineTotal: shared.RoundMoney(line.UnitCost.Mul(decimal.NewFromInt(int64(line.Quantity)))),
		})
	}
	return items, nil
}

func totals(items []PurchaseItem, discount decimal.Decimal) (subtotal, total decimal.Decimal, err error) {
	subtotal = decimal.Zero
	for _, it := range items {
		subtotal = subtotal.Add(it.LineTotal)
	}
	total = shared.RoundMoney(subtotal.Sub(discount))
	if total.IsNegative() {
		return decimal.Zero, decimal.Zero, shared.Invalid("discount_amount exceeds subtotal")
	}
	return subtotal, total, nil
}

func productIDs(items []PurchaseItem) []int64 {
	seen := make(map[int64]struct{}, len(items))
	ids := make([]int64, 0, len(items))
	for _, it := range items {
		if _, ok := seen[it.ProductID]; ok {
			continue
		}
		seen[it.ProductID] = struct{}{}
		ids = append(ids, it.ProductID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
