package audithttp

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

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/sierra-distribution/sierra/internal/audit"
	"github.com/sierra-distribution/sierra/internal/rbac"
	"github.com/sierra-distribution/sierra/internal/shared"
)

type staticPermissions []string

func (s staticPermissions) EffectivePermissions(context.Context, string) ([]string, error) {
	return s, nil
}

type stubService struct {
	last audit.TimelineFilters
}

func (s *stubService) Timeline(_ context.Context, f audit.TimelineFilters) (audit.Result, error) {
	s.last = f
	return audit.Result{Rows: []audit.Entry{{ID: 1, Action: "sales:order_created", Entity: "order", EntityID: "4"}}, Paging: audit.PagingInfo{Page: 1, PageSize: 20}}, nil
}

func (s *stubService) Export(_ context.Context, f audit.TimelineFilters) ([]audit.Entry, error) {
	s.last = f
	return []audit.Entry{{ID: 1, At: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), Action: "x", Entity: "order", EntityID: "4"}}, nil
}

func newRouter(svc *stubService, perms []string) http.Handler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := NewHandler(logger, svc, rbac.Middleware{Service: staticPermissions(perms), Logger: logger})
	h.now = func() time.Time { return time.Date(2024, 5, 20, 15, 0, 0, 0, time.UTC) }
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := shared.ContextWithPrincipal(r.Context(), shared.Principal{UserID: "u-1"})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	})
	r.Route("/audit-logs", h.MountRoutes)
	return r
}

func TestTimelineRequiresAuditCapability(t *testing.T) {
	rr := httptest.NewRecorder()
	newRouter(&stubService{}, shared.StaffScopes()).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/audit-logs", nil))
	require.Equal(t, http.StatusForbidden, rr.Code)
}

func TestTimelineDefaultsToLastWeek(t *testing.T) {
	svc := &stubService{}
	rr := httptest.NewRecorder()
	newRouter(svc, shared.AdminScopes()).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/audit-logs?entity=order&page=2", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	require.True(t, svc.last.To.Equal(time.Date(2024, 5, 20, 0, 0, 0, 0, time.UTC)))
	require.True(t, svc.last.From.Equal(time.Date(2024, 5, 13, 0, 0, 0, 0, time.UTC)))
	require.Equal(t, "order", svc.last.Entity)
	require.Equal(t, 2, svc.last.Page)

	var body audit.Result
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Len(t, body.Rows, 1)
}

func TestTimelineRejectsMalformedDate(t *testing.T) {
	rr := httptest.NewRecorder()
	newRouter(&stubService{}, shared.AdminScopes()).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/audit-logs?from=yesterday", nil))
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestExportCSVIsRateLimited(t *testing.T) {
	router := newRouter(&stubService{}, shared.AdminScopes())

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/audit-logs/export.csv", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "text/csv; charset=utf-8", rr.Header().Get("Content-Type"))
	require.True(t, strings.HasPrefix(rr.Body.String(), "id,at,actor"))

	for i := 1; i < exportRateLimit; i++ {
		rr = httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/audit-logs/export.csv", nil))
		require.Equal(t, http.StatusOK, rr.Code)
	}
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/audit-logs/export.csv", nil))
	require.Equal(t, http.StatusTooManyRequests, rr.Code)
}
