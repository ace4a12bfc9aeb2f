// Package reconcile compares stored balances with the ledgers that should explain them and
// reports the rows that drifted. It never rewrites a balance.
package reconcile

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sierra-distribution/sierra/internal/shared"
)

// LockKey guards against overlapping runs.
const LockKey = "sierra:reconcile:run"

// ErrRunInProgress is returned when another run holds the lock.
var ErrRunInProgress = fmt.Errorf("reconciliation already running: %w", shared.ErrConflict)

// Kind names the balance being checked.
type Kind string

const (
	KindProductStock        Kind = "product_stock"
	KindAccountBalance      Kind = "account_balance"
	KindCustomerOutstanding Kind = "customer_outstanding"
)

// Kinds lists every check in report order.
var Kinds = []Kind{KindProductStock, KindAccountBalance, KindCustomerOutstanding}

// Drift is one row whose stored balance disagrees with its ledger.
type Drift struct {
	Kind       Kind            `json:"kind"`
	EntityID   int64           `json:"entity_id"`
	Name       string          `json:"name"`
	Stored     decimal.Decimal `json:"stored"`
	Ledger     decimal.Decimal `json:"ledger"`
	Difference decimal.Decimal `json:"difference"`
}

// Report is the outcome of one run.
type Report struct {
	RanAt    time.Time    `json:"ran_at"`
	Duration string       `json:"duration"`
	Counts   map[Kind]int `json:"counts"`
	Drifts   []Drift      `json:"drifts"`
}

// Clean reports whether no drift was found.
func (r Report) Clean() bool {
	return len(r.Drifts) == 0
}
