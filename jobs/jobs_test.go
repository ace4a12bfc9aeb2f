package jobs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	jobmetrics "github.com/sierra-distribution/sierra/internal/jobs"
	"github.com/sierra-distribution/sierra/internal/reconcile"
)

type fakeReconciler struct {
	calls  int
	report reconcile.Report
	err    error
}

func (f *fakeReconciler) Run(context.Context) (reconcile.Report, error) {
	f.calls++
	if f.report.RanAt.IsZero() {
		f.report.RanAt = time.Now()
	}
	return f.report, f.err
}

type fakeCleaner struct {
	retention time.Duration
	err       error
}

func (f *fakeCleaner) Cleanup(_ context.Context, olderThan time.Duration) error {
	f.retention = olderThan
	return f.err
}

type fakeInspector struct {
	info *asynq.QueueInfo
	err  error
}

func (f fakeInspector) GetQueueInfo(string) (*asynq.QueueInfo, error) {
	return f.info, f.err
}

func TestReconcileJobSkipsWhenRunInProgress(t *testing.T) {
	rec := &fakeReconciler{err: reconcile.ErrRunInProgress}
	job := NewReconcileJob(rec, nil, jobmetrics.NewMetrics(prometheus.NewRegistry()))

	task, err := NewReconcileTask(ReconcilePayload{RequestedBy: "admin-1"})
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
	require.Equal(t, 1, rec.calls)
}

func TestReconcileJobLogsFinishedRun(t *testing.T) {
	var buf bytes.Buffer
	rec := &fakeReconciler{report: reconcile.Report{
		Duration: "1.5s",
		Drifts:   []reconcile.Drift{{Kind: reconcile.KindProductStock, EntityID: 7}},
	}}
	job := NewReconcileJob(rec, slog.New(slog.NewTextHandler(&buf, nil)), jobmetrics.NewMetrics(prometheus.NewRegistry()))

	task, err := NewReconcileTask(ReconcilePayload{RequestedBy: "cron"})
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
	require.Contains(t, buf.String(), "reconciliation job finished")
	require.Contains(t, buf.String(), "duration=1.5s")
	require.Contains(t, buf.String(), "drifts=1")
}

func TestReconcileJobPropagatesFailure(t *testing.T) {
	boom := errors.New("db down")
	job := NewReconcileJob(&fakeReconciler{err: boom}, nil, nil)

	err := job.Handle(context.Background(), asynq.NewTask(TaskReconcile, nil))
	require.ErrorIs(t, err, boom)

	err = job.Handle(context.Background(), asynq.NewTask(TaskReconcile, []byte("{")))
	require.ErrorIs(t, err, asynq.SkipRetry)
}

func TestIdempotencyCleanupRetention(t *testing.T) {
	cleaner := &fakeCleaner{}
	job := NewIdempotencyCleanupJob(cleaner, 0, nil, nil)

	require.NoError(t, job.Handle(context.Background(), asynq.NewTask(TaskIdempotencyCleanup, nil)))
	require.Equal(t, 72*time.Hour, cleaner.retention)

	task, err := NewIdempotencyCleanupTask(CleanupPayload{RetentionHours: 6})
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
	require.Equal(t, 6*time.Hour, cleaner.retention)

	cleaner.err = errors.New("timeout")
	require.Error(t, job.Handle(context.Background(), task))
}

func TestHealthEndpoint(t *testing.T) {
	cases := []struct {
		name      string
		inspector QueueInspector
		status    int
		pending   int
	}{
		{name: "no inspector", status: http.StatusOK},
		{name: "queue info", inspector: fakeInspector{info: &asynq.QueueInfo{Queue: QueueDefault, Pending: 4}}, status: http.StatusOK, pending: 4},
		{name: "queue missing", inspector: fakeInspector{err: asynq.ErrQueueNotFound}, status: http.StatusOK},
		{name: "redis down", inspector: fakeInspector{err: errors.New("dial tcp")}, status: http.StatusServiceUnavailable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := chi.NewRouter()
			NewHandler(tc.inspector, slog.New(slog.NewTextHandler(io.Discard, nil))).MountRoutes(r)
			rr := httptest.NewRecorder()
			r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
			require.Equal(t, tc.status, rr.Code)
			if tc.status != http.StatusOK {
				return
			}
			var body queueHealth
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
			require.Equal(t, QueueDefault, body.Queue)
			require.Equal(t, tc.pending, body.Pending)
		})
	}
}
