package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskReconcile compares stored balances with their ledgers.
	TaskReconcile = "reconcile:run"
	// TaskIdempotencyCleanup purges expired idempotency keys.
	TaskIdempotencyCleanup = "idempotency:cleanup"
)

// ReconcilePayload describes who asked for a reconciliation run.
type ReconcilePayload struct {
	RequestedBy string `json:"requested_by,omitempty"`
}

// CleanupPayload overrides the retention of the idempotency cleanup job.
type CleanupPayload struct {
	RetentionHours int `json:"retention_hours,omitempty"`
}

// NewReconcileTask constructs a reconciliation task.
func NewReconcileTask(payload ReconcilePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskReconcile, data, asynq.MaxRetry(1), asynq.Timeout(10*time.Minute)), nil
}

// NewIdempotencyCleanupTask constructs the cleanup task.
func NewIdempotencyCleanupTask(payload CleanupPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskIdempotencyCleanup, data, asynq.MaxRetry(3)), nil
}
