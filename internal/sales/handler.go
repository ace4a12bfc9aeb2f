package sales

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sierra-distribution/sierra/internal/platform/httpx"
	"github.com/sierra-distribution/sierra/internal/rbac"
	"github.com/sierra-distribution/sierra/internal/shared"
)

// Handler wires HTTP endpoints for orders.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

// NewHandler constructs sales handler.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac}
}

// MountRoutes registers order routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermSalesRead))
		r.Get("/", h.list)
		r.Get("/unpaid", h.unpaid)
		r.Get("/{id}", h.show)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermSalesWrite))
		r.Post("/", h.create)
		r.Put("/{id}", h.update)
	})
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var in CreateOrderInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	order, err := h.service.CreateOrder(r.Context(), in, httpx.IdempotencyKey(r))
	if err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, order)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var in UpdateOrderInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	order, err := h.service.UpdateOrder(r.Context(), id, in)
	if err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, order)
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	order, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, order)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	customerID, err := httpx.QueryInt64(r, "customer_id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	from, err := httpx.QueryDate(r, "from")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	to, err := httpx.QueryDate(r, "to")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	page := httpx.Page(r)
	q := r.URL.Query()
	orders, err := h.service.List(r.Context(), ListFilter{
		CustomerID:    customerID,
		Status:        OrderStatus(q.Get("status")),
		PaymentStatus: shared.PaymentStatus(q.Get("payment_status")),
		From:          from,
		To:            to,
		Limit:         page.Limit,
		Offset:        page.Offset,
	})
	if err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	if orders == nil {
		orders = []Order{}
	}
	httpx.JSON(w, http.StatusOK, orders)
}

func (h *Handler) unpaid(w http.ResponseWriter, r *http.Request) {
	customerID, err := httpx.QueryInt64(r, "customer_id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	orders, err := h.service.ListUnpaid(r.Context(), customerID)
	if err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	if orders == nil {
		orders = []UnpaidOrder{}
	}
	httpx.JSON(w, http.StatusOK, orders)
}
