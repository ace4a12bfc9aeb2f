package app

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/sierra-distribution/sierra/internal/auth"
	"github.com/sierra-distribution/sierra/internal/observability"
	"github.com/sierra-distribution/sierra/internal/rbac"
	"github.com/sierra-distribution/sierra/internal/reconcile"
	"github.com/sierra-distribution/sierra/internal/shared"
	"github.com/sierra-distribution/sierra/jobs"
)

const testSecret = "router-secret"

type rolePermissions map[string][]string

func (p rolePermissions) EffectivePermissions(_ context.Context, userID string) ([]string, error) {
	return p[userID], nil
}

func token(t *testing.T, sub string) string {
	t.Helper()
	claims := auth.Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   sub,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func newTestRouter() http.Handler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	perms := rolePermissions{"admin": shared.AdminScopes(), "staff": shared.StaffScopes()}
	mw := rbac.Middleware{Service: perms, Logger: logger}
	return NewRouter(RouterParams{
		Logger:           logger,
		Verifier:         auth.NewVerifier(testSecret, ""),
		Metrics:          observability.NewMetrics(),
		AuthHandler:      auth.NewHandler(logger, perms),
		ReconcileHandler: reconcile.NewHandler(logger, nil, nil, mw),
		JobHandler:       jobs.NewHandler(nil, logger),
	})
}

func do(router http.Handler, method, path, bearer string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func TestPublicEndpoints(t *testing.T) {
	router := newTestRouter()

	rr := do(router, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, rr.Code)
	require.JSONEq(t, `{"status":"ok"}`, rr.Body.String())

	rr = do(router, http.MethodGet, "/jobs/health", "")
	require.Equal(t, http.StatusOK, rr.Code)

	rr = do(router, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rr.Code)
	require.True(t, strings.Contains(rr.Body.String(), `sierra_http_requests_total{code="200",route="/healthz"}`))
}

func TestAPIRequiresBearerToken(t *testing.T) {
	router := newTestRouter()

	rr := do(router, http.MethodGet, "/api/me", "")
	require.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = do(router, http.MethodGet, "/api/me", "not-a-jwt")
	require.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = do(router, http.MethodGet, "/api/me", token(t, "staff"))
	require.Equal(t, http.StatusOK, rr.Code)
	var body struct {
		UserID      string   `json:"user_id"`
		Permissions []string `json:"permissions"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Equal(t, "staff", body.UserID)
	require.ElementsMatch(t, shared.StaffScopes(), body.Permissions)
}

func TestAdminOnlyRoutesAreGated(t *testing.T) {
	router := newTestRouter()

	rr := do(router, http.MethodPost, "/api/reconciliation/run", token(t, "staff"))
	require.Equal(t, http.StatusForbidden, rr.Code)

	// Admin passes the capability check; no queue is wired in this router.
	rr = do(router, http.MethodPost, "/api/reconciliation/run", token(t, "admin"))
	require.Equal(t, http.StatusServiceUnavailable, rr.Code)

	rr = do(router, http.MethodGet, "/api/orders", token(t, "admin"))
	require.Equal(t, http.StatusNotFound, rr.Code)
}
