package rbac

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sierra-distribution/sierra/internal/shared"
)

type profileMap map[string]Profile

func (m profileMap) GetProfile(_ context.Context, userID string) (Profile, error) {
	p, ok := m[userID]
	if !ok {
		return Profile{}, ErrNotFound
	}
	return p, nil
}

type failingStore struct{}

func (failingStore) GetProfile(context.Context, string) (Profile, error) {
	return Profile{}, errors.New("db down")
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
}

func serve(t *testing.T, mw func(http.Handler) http.Handler, userID string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPut, "/api/purchases/1/update", nil)
	if userID != "" {
		req = req.WithContext(shared.ContextWithPrincipal(req.Context(), shared.Principal{UserID: userID}))
	}
	rr := httptest.NewRecorder()
	mw(okHandler()).ServeHTTP(rr, req)
	return rr
}

func TestRequireAnyAdminOnlyCapability(t *testing.T) {
	svc := NewService(profileMap{
		"admin-1": {UserID: "admin-1", Role: RoleAdmin},
		"staff-1": {UserID: "staff-1", Role: RoleStaff},
	})
	mw := Middleware{Service: svc}.RequireAny(shared.PermPurchasesEdit)

	assert.Equal(t, http.StatusNoContent, serve(t, mw, "admin-1").Code)

	rr := serve(t, mw, "staff-1")
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Contains(t, rr.Body.String(), `"error"`)

	assert.Equal(t, http.StatusForbidden, serve(t, mw, "no-profile").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(t, mw, "").Code)
}

func TestRequireAllNeedsEveryPermission(t *testing.T) {
	svc := NewService(profileMap{"staff-1": {UserID: "staff-1", Role: RoleStaff}})

	allowed := Middleware{Service: svc}.RequireAll(shared.PermSalesRead, shared.PermSalesWrite)
	assert.Equal(t, http.StatusNoContent, serve(t, allowed, "staff-1").Code)

	denied := Middleware{Service: svc}.RequireAll(shared.PermSalesRead, shared.PermReportsView)
	assert.Equal(t, http.StatusForbidden, serve(t, denied, "staff-1").Code)
}

func TestRequireAnyStoreFailure(t *testing.T) {
	mw := Middleware{Service: NewService(failingStore{})}.RequireAny(shared.PermSalesRead)
	assert.Equal(t, http.StatusInternalServerError, serve(t, mw, "someone").Code)
}

func TestParseRole(t *testing.T) {
	require.Equal(t, RoleAdmin, ParseRole(" ADMIN "))
	require.Equal(t, RoleStaff, ParseRole("staff"))
	require.Equal(t, Role(""), ParseRole("guest"))
	require.Empty(t, Role("").Permissions())
	require.Contains(t, RoleAdmin.Permissions(), shared.PermPurchasesEdit)
	require.NotContains(t, RoleStaff.Permissions(), shared.PermPurchasesEdit)
}
