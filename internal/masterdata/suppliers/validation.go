package suppliers

import (
	"strings"

	core "github.com/sierra-distribution/sierra/internal/shared"
)

func (s *Service) validateCreate(req *CreateRequest) error {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return core.Invalid("supplier name is required")
	}
	return nil
}

func (s *Service) validateUpdate(req *UpdateRequest) error {
	if req.Name != nil {
		trimmed := strings.TrimSpace(*req.Name)
		if trimmed == "" {
			return core.Invalid("supplier name cannot be empty")
		}
		req.Name = &trimmed
	}
	if req.IsPrimary != nil && !*req.IsPrimary {
		return core.Invalid("mark another supplier as primary instead of clearing the flag")
	}
	return nil
}
