package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/sierra-distribution/sierra/internal/jobs"
	"github.com/sierra-distribution/sierra/internal/reconcile"
)

// Reconciler runs one reconciliation pass.
type Reconciler interface {
	Run(ctx context.Context) (reconcile.Report, error)
}

// ReconcileJob executes TaskReconcile.
type ReconcileJob struct {
	reconciler Reconciler
	logger     *slog.Logger
	metrics    *jobmetrics.Metrics
}

// NewReconcileJob wires the reconciliation handler.
func NewReconcileJob(reconciler Reconciler, logger *slog.Logger, metrics *jobmetrics.Metrics) *ReconcileJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReconcileJob{reconciler: reconciler, logger: logger, metrics: metrics}
}

// Handle runs reconciliation. A run that finds another in progress is skipped without retry.
func (j *ReconcileJob) Handle(ctx context.Context, t *asynq.Task) (err error) {
	var payload ReconcilePayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}
	tracker := j.metrics.Track(TaskReconcile)
	defer func() { err = tracker.End(err) }()

	report, err := j.reconciler.Run(ctx)
	if errors.Is(err, reconcile.ErrRunInProgress) {
		j.logger.Info("reconciliation skipped, another run holds the lock", slog.String("requested_by", payload.RequestedBy))
		return nil
	}
	if err != nil {
		return err
	}
	j.logger.Info("reconciliation job finished",
		slog.String("requested_by", payload.RequestedBy),
		slog.Int("drifts", len(report.Drifts)),
		slog.String("duration", report.Duration),
	)
	return nil
}
