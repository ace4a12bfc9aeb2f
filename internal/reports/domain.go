// Package reports builds the profit and loss statement, the trading account and the balance
// sheet from orders, purchases, expenses and the stock and account ledgers.
package reports

import (
	"time"

	"github.com/shopspring/decimal"
)

// Period is an inclusive date range.
type Period struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// ExpenseLine totals one expense category.
type ExpenseLine struct {
	Category string          `json:"category"`
	Amount   decimal.Decimal `json:"amount"`
}

// ProfitLoss is the income statement of a period.
type ProfitLoss struct {
	Period
	Revenue         decimal.Decimal `json:"revenue"`
	CostOfGoodsSold decimal.Decimal `json:"cost_of_goods_sold"`
	GrossProfit     decimal.Decimal `json:"gross_profit"`
	Expenses        []ExpenseLine   `json:"expenses"`
	TotalExpenses   decimal.Decimal `json:"total_expenses"`
	NetProfit       decimal.Decimal `json:"net_profit"`
}

// TradingAccount compares sales with the cost of stock moved through the period.
type TradingAccount struct {
	Period
	OpeningStock decimal.Decimal `json:"opening_stock"`
	Purchases    decimal.Decimal `json:"purchases"`
	ClosingStock decimal.Decimal `json:"closing_stock"`
	Sales        decimal.Decimal `json:"sales"`
	GrossProfit  decimal.Decimal `json:"gross_profit"`
}

// Assets groups what the business owns.
type Assets struct {
	CashAndBank decimal.Decimal `json:"cash_and_bank"`
	Receivables decimal.Decimal `json:"receivables"`
	Stock       decimal.Decimal `json:"stock"`
	Total       decimal.Decimal `json:"total"`
}

// Liabilities groups what the business owes.
type Liabilities struct {
	Payables decimal.Decimal `json:"payables"`
	Total    decimal.Decimal `json:"total"`
}

// BalanceSheet is the financial position at a date.
type BalanceSheet struct {
	AsOf        time.Time       `json:"as_of"`
	Assets      Assets          `json:"assets"`
	Liabilities Liabilities     `json:"liabilities"`
	Equity      decimal.Decimal `json:"equity"`
}
