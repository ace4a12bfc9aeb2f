package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/sierra-distribution/sierra/internal/jobs"
)

// KeyCleaner deletes idempotency keys older than a retention window.
type KeyCleaner interface {
	Cleanup(ctx context.Context, olderThan time.Duration) error
}

// IdempotencyCleanupJob executes TaskIdempotencyCleanup.
type IdempotencyCleanupJob struct {
	store     KeyCleaner
	retention time.Duration
	logger    *slog.Logger
	metrics   *jobmetrics.Metrics
}

// NewIdempotencyCleanupJob wires the cleanup handler with its default retention.
func NewIdempotencyCleanupJob(store KeyCleaner, retention time.Duration, logger *slog.Logger, metrics *jobmetrics.Metrics) *IdempotencyCleanupJob {
	if retention <= 0 {
		retention = 72 * time.Hour
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &IdempotencyCleanupJob{store: store, retention: retention, logger: logger, metrics: metrics}
}

// Handle purges expired keys.
func (j *IdempotencyCleanupJob) Handle(ctx context.Context, t *asynq.Task) (err error) {
	var payload CleanupPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}
	retention := j.retention
	if payload.RetentionHours > 0 {
		retention = time.Duration(payload.RetentionHours) * time.Hour
	}
	tracker := j.metrics.Track(TaskIdempotencyCleanup)
	defer func() { err = tracker.End(err) }()

	if err := j.store.Cleanup(ctx, retention); err != nil {
		return err
	}
	j.logger.Info("idempotency keys purged", slog.Duration("retention", retention))
	return nil
}
