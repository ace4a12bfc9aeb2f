package customers

import (
	"time"

	"github.com/shopspring/decimal"
)

// Customer is a buyer with a running outstanding balance.
type Customer struct {
	ID                 int64           `json:"id"`
	Name               string          `json:"name"`
	Phone              string          `json:"phone,omitempty"`
	Email              string          `json:"email,omitempty"`
	Address            string          `json:"address,omitempty"`
	OpeningBalance     decimal.Decimal `json:"opening_balance"`
	OutstandingBalance decimal.Decimal `json:"outstanding_balance"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

// CreateRequest is the payload for POST /customers.
type CreateRequest struct {
	Name           string          `json:"name" validate:"required,max=200"`
	Phone          string          `json:"phone" validate:"omitempty,max=40"`
	Email          string          `json:"email" validate:"omitempty,email"`
	Address        string          `json:"address" validate:"omitempty,max=500"`
	OpeningBalance decimal.Decimal `json:"opening_balance" validate:"gte=0"`
}

// UpdateRequest is the partial payload for PUT /customers/{id}.
type UpdateRequest struct {
	Name    *string `json:"name" validate:"omitempty,min=1,max=200"`
	Phone   *string `json:"phone" validate:"omitempty,max=40"`
	Email   *string `json:"email" validate:"omitempty,email"`
	Address *string `json:"address" validate:"omitempty,max=500"`
}
