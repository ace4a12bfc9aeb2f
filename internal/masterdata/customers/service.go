package customers

import (
	"context"
	"fmt"

	"github.com/sierra-distribution/sierra/internal/masterdata/shared"
	core "github.com/sierra-distribution/sierra/internal/shared"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) List(ctx context.Context, filters shared.ListFilters) ([]Customer, int, error) {
	return s.repo.List(ctx, filters)
}

func (s *Service) Get(ctx context.Context, id int64) (Customer, error) {
	if id <= 0 {
		return Customer{}, core.Invalid("invalid customer id")
	}
	return s.repo.Get(ctx, id)
}

// Create stores a customer whose outstanding balance starts at the opening balance.
func (s *Service) Create(ctx context.Context, req CreateRequest) (Customer, error) {
	if err := s.validateCreate(&req); err != nil {
		return Customer{}, err
	}
	c, err := s.repo.Create(ctx, req)
	if err != nil {
		return Customer{}, fmt.Errorf("customers: create: %w", err)
	}
	return c, nil
}

func (s *Service) Update(ctx context.Context, id int64, req UpdateRequest) (Customer, error) {
	if id <= 0 {
		return Customer{}, core.Invalid("invalid customer id")
	}
	if err := s.validateUpdate(&req); err != nil {
		return Customer{}, err
	}
	return s.repo.Update(ctx, id, req)
}
