package reconcile

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/sierra-distribution/sierra/internal/platform/cache"
	"github.com/sierra-distribution/sierra/internal/rbac"
	"github.com/sierra-distribution/sierra/internal/shared"
)

type fakeRepo struct {
	stock   []Drift
	failure error
}

func (f fakeRepo) ProductStockDrift(context.Context) ([]Drift, error) {
	return f.stock, nil
}

func (f fakeRepo) AccountBalanceDrift(context.Context) ([]Drift, error) {
	return nil, f.failure
}

func (f fakeRepo) CustomerOutstandingDrift(context.Context) ([]Drift, error) {
	return nil, nil
}

type gauges map[string]int

func (g gauges) SetDrift(kind string, count int) { g[kind] = count }

func newLocker(t *testing.T) *cache.Locker {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return cache.NewLocker(client)
}

func stockDrift() []Drift {
	return []Drift{{
		Kind:       KindProductStock,
		EntityID:   7,
		Name:       "Cable 4mm",
		Stored:     decimal.NewFromInt(12),
		Ledger:     decimal.NewFromInt(10),
		Difference: decimal.NewFromInt(2),
	}}
}

func TestRunReportsDriftAndGauges(t *testing.T) {
	g := gauges{}
	svc := NewService(fakeRepo{stock: stockDrift()}, newLocker(t), g, nil)

	report, err := svc.Run(context.Background())
	require.NoError(t, err)
	require.False(t, report.Clean())
	require.Len(t, report.Drifts, 1)
	require.Equal(t, 1, report.Counts[KindProductStock])
	require.Equal(t, 0, report.Counts[KindAccountBalance])
	require.Equal(t, gauges{"product_stock": 1, "account_balance": 0, "customer_outstanding": 0}, g)
}

func TestRunRejectsConcurrentRun(t *testing.T) {
	locker := newLocker(t)
	svc := NewService(fakeRepo{}, locker, nil, nil)
	ctx := context.Background()

	release, err := locker.Acquire(ctx, LockKey, time.Minute)
	require.NoError(t, err)

	_, err = svc.Run(ctx)
	require.ErrorIs(t, err, ErrRunInProgress)
	require.ErrorIs(t, err, shared.ErrConflict)

	release(ctx)
	report, err := svc.Run(ctx)
	require.NoError(t, err)
	require.True(t, report.Clean())

	// The lock is released after a run.
	release, err = locker.Acquire(ctx, LockKey, time.Minute)
	require.NoError(t, err)
	release(ctx)
}

func TestRunPropagatesQueryErrors(t *testing.T) {
	svc := NewService(fakeRepo{failure: errors.New("boom")}, nil, nil, nil)
	_, err := svc.Run(context.Background())
	require.EqualError(t, err, "boom")
}

type staticPermissions []string

func (p staticPermissions) EffectivePermissions(context.Context, string) ([]string, error) {
	return p, nil
}

type fakeEnqueuer struct{ calls int }

func (f *fakeEnqueuer) EnqueueReconcile(context.Context) (string, error) {
	f.calls++
	return "task-1", nil
}

func TestReconcileEndpoints(t *testing.T) {
	svc := NewService(fakeRepo{stock: stockDrift()}, nil, nil, nil)
	enq := &fakeEnqueuer{}
	router := func(scopes []string) http.Handler {
		h := NewHandler(nil, svc, enq, rbac.Middleware{Service: staticPermissions(scopes)})
		r := chi.NewRouter()
		r.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
				next.ServeHTTP(w, req.WithContext(shared.ContextWithPrincipal(req.Context(), shared.Principal{UserID: "u"})))
			})
		})
		r.Route("/reconciliation", h.MountRoutes)
		return r
	}

	rec := httptest.NewRecorder()
	router(shared.StaffScopes()).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/reconciliation/run", nil))
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Zero(t, enq.calls)

	admin := router(shared.AdminScopes())
	rec = httptest.NewRecorder()
	admin.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/reconciliation/run", nil))
	require.Equal(t, http.StatusAccepted, rec.Code)
	require.Contains(t, rec.Body.String(), "task-1")

	rec = httptest.NewRecorder()
	admin.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/reconciliation", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"product_stock":1`)
	require.Contains(t, rec.Body.String(), `"difference":"2"`)
}
