package customers

import (
	"strings"

	"github.com/sierra-distribution/sierra/internal/shared"
)

func (s *Service) validateCreate(req *CreateRequest) error {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return shared.Invalid("customer name is required")
	}
	if req.OpeningBalance.IsNegative() {
		return shared.Invalid("opening_balance cannot be negative")
	}
	return nil
}

func (s *Service) validateUpdate(req *UpdateRequest) error {
	if req.Name != nil {
		trimmed := strings.TrimSpace(*req.Name)
		if trimmed == "" {
			return shared.Invalid("customer name cannot be empty")
		}
		req.Name = &trimmed
	}
	if req.Name == nil && req.Phone == nil && req.Email == nil && req.Address == nil {
		return shared.Invalid("nothing to update")
	}
	return nil
}
