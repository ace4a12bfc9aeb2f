package sales

import (
	"github.com/shopspring/decimal"

	"github.com/sierra-distribution/sierra/internal/shared"
)

var hundred = decimal.NewFromInt(100)

// LineTotal is quantity × unit price less the percentage discount, rounded to cents.
func LineTotal(quantity int, unitPrice, discountPercent decimal.Decimal) decimal.Decimal {
	gross := unitPrice.Mul(decimal.NewFromInt(int64(quantity)))
	return shared.RoundMoney(gross.Mul(hundred.Sub(discountPercent)).Div(hundred))
}

// Totals sums line totals and applies the bill-level discount.
func Totals(items []OrderItem, discount decimal.Decimal) (subtotal, total decimal.Decimal, err error) {
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
