package shared

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// AuditLog represents a record stored in audit_logs.
type AuditLog struct {
	ActorID  string
	Action   string
	Entity   string
	EntityID string
	Meta     map[string]any
	At       time.Time
}

// AuditLogger writes records into audit_logs.
type AuditLogger struct {
	pool *pgxpool.Pool
}

// NewAuditLogger returns a new AuditLogger.
func NewAuditLogger(pool *pgxpool.Pool) *AuditLogger {
	return &AuditLogger{pool: pool}
}

// Record persists the log entry.
func (l *AuditLogger) Record(ctx context.Context, log AuditLog) error {
	if l == nil || l.pool == nil {
		return errors.New("audit logger not initialised")
	}
	if log.Action == "" || log.Entity == "" || log.EntityID == "" {
		return errors.New("audit log requires action/entity/entity_id")
	}
	metaJSON, err := json.Marshal(log.Meta)
	if err != nil {
		return err
	}
	var at *time.Time
	if !log.At.IsZero() {
		at = &log.At
	}
	_, err = l.pool.Exec(ctx, `INSERT INTO audit_logs (actor_id, action, entity, entity_id, meta, occurred_at) VALUES (NULLIF($1, ''), $2, $3, $4, $5, COALESCE($6, NOW()))`,
		log.ActorID, log.Action, log.Entity, log.EntityID, metaJSON, at)
	return err
}

// AfterCommit records the audit entry and invalidates cached reports once a write has committed.
// Failures are logged and not returned.
func AfterCommit(ctx context.Context, logger *slog.Logger, audit AuditPort, cache Invalidator, log AuditLog) {
	ctx = context.WithoutCancel(ctx)
	if log.ActorID == "" {
		log.ActorID = ActorID(ctx)
	}
	if audit != nil {
		if err := audit.Record(ctx, log); err != nil && logger != nil {
			logger.Warn("audit record failed", slog.String("action", log.Action), slog.String("entity_id", log.EntityID), slog.Any("error", err))
		}
	}
	if cache != nil {
		if err := cache.Bump(ctx); err != nil && logger != nil {
			logger.Warn("report cache bump failed", slog.Any("error", err))
		}
	}
}
