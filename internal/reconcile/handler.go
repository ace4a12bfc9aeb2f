package reconcile

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sierra-distribution/sierra/internal/platform/httpx"
	"github.com/sierra-distribution/sierra/internal/rbac"
	"github.com/sierra-distribution/sierra/internal/shared"
)

// Enqueuer schedules a background run and returns the task id.
type Enqueuer interface {
	EnqueueReconcile(ctx context.Context) (string, error)
}

// Handler exposes reconciliation over HTTP.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	enqueuer Enqueuer
	rbac     rbac.Middleware
}

// NewHandler constructs reconcile handler. enqueuer may be nil when no worker queue is configured.
func NewHandler(logger *slog.Logger, service *Service, enqueuer Enqueuer, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, enqueuer: enqueuer, rbac: rbac}
}

// MountRoutes registers reconciliation routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(h.rbac.RequireAny(shared.PermReconcileView)).Get("/", h.run)
	r.With(h.rbac.RequireAll(shared.PermReconcileRun)).Post("/run", h.enqueue)
}

func (h *Handler) run(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.Run(r.Context())
	if err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

func (h *Handler) enqueue(w http.ResponseWriter, r *http.Request) {
	if h.enqueuer == nil {
		httpx.Error(w, http.StatusServiceUnavailable, "job queue unavailable")
		return
	}
	id, err := h.enqueuer.EnqueueReconcile(r.Context())
	if err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusAccepted, map[string]string{"task_id": id})
}
