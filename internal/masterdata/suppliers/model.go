package suppliers

import "time"

// Supplier sells stock to the business. Exactly one supplier may be primary.
type Supplier struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone,omitempty"`
	Email     string    `json:"email,omitempty"`
	Address   string    `json:"address,omitempty"`
	IsPrimary bool      `json:"is_primary"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type CreateRequest struct {
	Name      string `json:"name" validate:"required,max=200"`
	Phone     string `json:"phone" validate:"omitempty,max=40"`
	Email     string `json:"email" validate:"omitempty,email"`
	Address   string `json:"address" validate:"omitempty,max=500"`
	IsPrimary bool   `json:"is_primary"`
}

type UpdateRequest struct {
	Name      *string `json:"name" validate:"omitempty,min=1,max=200"`
	Phone     *string `json:"phone" validate:"omitempty,max=40"`
	Email     *string `json:"email" validate:"omitempty,email"`
	Address   *string `json:"address" validate:"omitempty,max=500"`
	IsPrimary *bool   `json:"is_primary"`
}
