package rbac

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound indicates that the requested profile does not exist.
var ErrNotFound = errors.New("rbac: not found")

// ProfileStore loads profiles by token subject.
type ProfileStore interface {
	GetProfile(ctx context.Context, userID string) (Profile, error)
}

// Service resolves effective capabilities for a user.
type Service struct {
	store ProfileStore
}

// NewService constructs a Service.
func NewService(store ProfileStore) *Service {
	return &Service{store: store}
}

// EffectivePermissions returns the capabilities of userID. Users without a profile get none.
func (s *Service) EffectivePermissions(ctx context.Context, userID string) ([]string, error) {
	profile, err := s.store.GetProfile(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return profile.Role.Permissions(), nil
}

// Repository reads profiles from PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetProfile loads the profile row for userID.
func (r *Repository) GetProfile(ctx context.Context, userID string) (Profile, error) {
	var (
		p    Profile
		role string
	)
	err := r.pool.QueryRow(ctx, `SELECT user_id, COALESCE(full_name, ''), role FROM profiles WHERE user_id = $1`, userID).Scan(&p.UserID, &p.FullName, &role)
	if errors.Is(err, pgx.ErrNoRows) {
		return Profile{}, ErrNotFound
	}
	if err != nil {
		return Profile{}, err
	}
	p.Role = ParseRole(role)
	return p, nil
}
