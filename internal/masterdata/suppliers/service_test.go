package suppliers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/sierra-distribution/sierra/internal/masterdata/shared"
	"github.com/sierra-distribution/sierra/internal/rbac"
	core "github.com/sierra-distribution/sierra/internal/shared"
)

type memoryRepo struct {
	rows   map[int64]Supplier
	nextID int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{rows: make(map[int64]Supplier)}
}

func (r *memoryRepo) demote() {
	for id, s := range r.rows {
		s.IsPrimary = false
		r.rows[id] = s
	}
}

func (r *memoryRepo) List(_ context.Context, _ shared.ListFilters) ([]Supplier, int, error) {
	var out []Supplier
	for _, s := range r.rows {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, len(out), nil
}

func (r *memoryRepo) Get(_ context.Context, id int64) (Supplier, error) {
	s, ok := r.rows[id]
	if !ok {
		return Supplier{}, core.NotFound("supplier")
	}
	return s, nil
}

func (r *memoryRepo) Create(_ context.Context, req CreateRequest) (Supplier, error) {
	if req.IsPrimary {
		r.demote()
	}
	r.nextID++
	s := Supplier{ID: r.nextID, Name: req.Name, Phone: req.Phone, Email: req.Email, Address: req.Address, IsPrimary: req.IsPrimary}
	r.rows[s.ID] = s
	return s, nil
}

func (r *memoryRepo) Update(_ context.Context, id int64, req UpdateRequest) (Supplier, error) {
	s, ok := r.rows[id]
	if !ok {
		return Supplier{}, core.NotFound("supplier")
	}
	if req.IsPrimary != nil && *req.IsPrimary {
		r.demote()
		s.IsPrimary = true
	}
	if req.Name != nil {
		s.Name = *req.Name
	}
	r.rows[id] = s
	return s, nil
}

func TestCreatePrimarySupplierDemotesPrevious(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)
	ctx := context.Background()

	first, err := svc.Create(ctx, CreateRequest{Name: " Finolex ", IsPrimary: true})
	require.NoError(t, err)
	require.Equal(t, "Finolex", first.Name)

	second, err := svc.Create(ctx, CreateRequest{Name: "Polycab", IsPrimary: true})
	require.NoError(t, err)
	require.True(t, second.IsPrimary)
	require.False(t, repo.rows[first.ID].IsPrimary)

	_, err = svc.Create(ctx, CreateRequest{Name: ""})
	require.ErrorIs(t, err, core.ErrValidation)
}

func TestUpdateSupplierCannotClearPrimary(t *testing.T) {
	svc := NewService(newMemoryRepo())
	ctx := context.Background()
	s, err := svc.Create(ctx, CreateRequest{Name: "Finolex", IsPrimary: true})
	require.NoError(t, err)

	off := false
	_, err = svc.Update(ctx, s.ID, UpdateRequest{IsPrimary: &off})
	require.ErrorIs(t, err, core.ErrValidation)

	name := "Finolex Cables"
	updated, err := svc.Update(ctx, s.ID, UpdateRequest{Name: &name})
	require.NoError(t, err)
	require.Equal(t, name, updated.Name)
	require.True(t, updated.IsPrimary)

	_, err = svc.Get(ctx, -1)
	require.ErrorIs(t, err, core.ErrValidation)
}

type staticPermissions []string

func (p staticPermissions) EffectivePermissions(context.Context, string) ([]string, error) {
	return p, nil
}

func newRouter(svc *Service, perms ...string) http.Handler {
	h := NewHandler(svc, rbac.Middleware{Service: staticPermissions(perms)}, nil)
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(core.ContextWithPrincipal(req.Context(), core.Principal{UserID: "u-1"})))
		})
	})
	r.Route("/suppliers", h.MountRoutes)
	return r
}

func TestSupplierWritesAreAdminOnly(t *testing.T) {
	svc := NewService(newMemoryRepo())
	body := `{"name":"Polycab","is_primary":true}`

	rec := httptest.NewRecorder()
	newRouter(svc, core.StaffScopes()...).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/suppliers", strings.NewReader(body)))
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = httptest.NewRecorder()
	newRouter(svc, core.AdminScopes()...).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/suppliers", strings.NewReader(body)))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = httptest.NewRecorder()
	newRouter(svc, core.StaffScopes()...).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/suppliers", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"is_primary":true`)
}
