package suppliers

import (
	"context"

	"github.com/sierra-distribution/sierra/internal/masterdata/shared"
	core "github.com/sierra-distribution/sierra/internal/shared"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) List(ctx context.Context, filters shared.ListFilters) ([]Supplier, int, error) {
	return s.repo.List(ctx, filters)
}

func (s *Service) Get(ctx context.Context, id int64) (Supplier, error) {
	if id <= 0 {
		return Supplier{}, core.Invalid("invalid supplier id")
	}
	return s.repo.Get(ctx, id)
}

// Create stores a supplier. Marking it primary demotes the previous primary supplier.
func (s *Service) Create(ctx context.Context, req CreateRequest) (Supplier, error) {
	if err := s.validateCreate(&req); err != nil {
		return Supplier{}, err
	}
	return s.repo.Create(ctx, req)
}

func (s *Service) Update(ctx context.Context, id int64, req UpdateRequest) (Supplier, error) {
	if id <= 0 {
		return Supplier{}, core.Invalid("invalid supplier id")
	}
	if err := s.validateUpdate(&req); err != nil {
		return Supplier{}, err
	}
	return s.repo.Update(ctx, id, req)
}
