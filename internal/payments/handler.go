package payments

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sierra-distribution/sierra/internal/platform/httpx"
	"github.com/sierra-distribution/sierra/internal/rbac"
	"github.com/sierra-distribution/sierra/internal/shared"
)

// Handler wires HTTP endpoints for the payment ledger.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

// NewHandler constructs payments handler.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac}
}

// MountRoutes registers payment routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermPaymentsRead))
		r.Get("/", h.list)
		r.Get("/{id}", h.show)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermPaymentsWrite))
		r.Post("/", h.record)
		r.Patch("/{id}", h.transition)
	})
}

func (h *Handler) record(w http.ResponseWriter, r *http.Request) {
	var in RecordInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	p, err := h.service.Record(r.Context(), in, httpx.IdempotencyKey(r))
	if err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, p)
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var in TransitionInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	p, err := h.service.TransitionCheque(r.Context(), id, in.ChequeStatus)
	if err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	customerID, err := httpx.QueryInt64(r, "customer_id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	orderID, err := httpx.QueryInt64(r, "order_id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	page := httpx.Page(r)
	list, err := h.service.List(r.Context(), ListFilter{
		CustomerID:   customerID,
		OrderID:      orderID,
		ChequeStatus: shared.ChequeStatus(r.URL.Query().Get("cheque_status")),
		Limit:        page.Limit,
		Offset:       page.Offset,
	})
	if err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	if list == nil {
		list = []Payment{}
	}
	httpx.JSON(w, http.StatusOK, list)
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	p, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}
