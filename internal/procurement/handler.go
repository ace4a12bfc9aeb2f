package procurement

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sierra-distribution/sierra/internal/platform/httpx"
	"github.com/sierra-distribution/sierra/internal/rbac"
	"github.com/sierra-distribution/sierra/internal/shared"
)

// Handler wires HTTP endpoints for purchases and supplier payments.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

// NewHandler constructs procurement handler.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac}
}

// MountPurchaseRoutes registers /purchases routes. Editing a recorded purchase needs purchases.edit.
func (h *Handler) MountPurchaseRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermPurchasesRead))
		r.Get("/", h.listPurchases)
		r.Get("/{id}", h.showPurchase)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermPurchasesWrite))
		r.Post("/", h.createPurchase)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermPurchasesEdit))
		r.Put("/{id}/update", h.updatePurchase)
	})
}

// MountSupplierPaymentRoutes registers /supplier-payments routes.
func (h *Handler) MountSupplierPaymentRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermPurchasesRead))
		r.Get("/", h.listSupplierPayments)
		r.Get("/{id}", h.showSupplierPayment)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermPurchasesWrite))
		r.Post("/", h.recordSupplierPayment)
		r.Patch("/{id}", h.transitionSupplierCheque)
	})
}

func (h *Handler) createPurchase(w http.ResponseWriter, r *http.Request) {
	var in PurchaseInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	p, err := h.service.CreatePurchase(r.Context(), in, httpx.IdempotencyKey(r))
	if err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, p)
}

func (h *Handler) updatePurchase(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var in PurchaseInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	p, err := h.service.UpdatePurchase(r.Context(), id, in)
	if err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func (h *Handler) listPurchases(w http.ResponseWriter, r *http.Request) {
	supplierID, err := httpx.QueryInt64(r, "supplier_id")
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
	list, err := h.service.List(r.Context(), ListFilter{
		SupplierID:    supplierID,
		PaymentStatus: shared.PaymentStatus(r.URL.Query().Get("payment_status")),
		From:          from,
		To:            to,
		Limit:         page.Limit,
		Offset:        page.Offset,
	})
	if err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	if list == nil {
		list = []Purchase{}
	}
	httpx.JSON(w, http.StatusOK, list)
}

func (h *Handler) showPurchase(w http.ResponseWriter, r *http.Request) {
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

func (h *Handler) recordSupplierPayment(w http.ResponseWriter, r *http.Request) {
	var in SupplierPaymentInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	sp, err := h.service.RecordSupplierPayment(r.Context(), in, httpx.IdempotencyKey(r))
	if err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, sp)
}

func (h *Handler) transitionSupplierCheque(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var in ChequeTransitionInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	sp, err := h.service.TransitionSupplierCheque(r.Context(), id, in.ChequeStatus)
	if err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, sp)
}

func (h *Handler) listSupplierPayments(w http.ResponseWriter, r *http.Request) {
	supplierID, err := httpx.QueryInt64(r, "supplier_id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	purchaseID, err := httpx.QueryInt64(r, "purchase_id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	page := httpx.Page(r)
	list, err := h.service.ListSupplierPayments(r.Context(), PaymentFilter{
		SupplierID:   supplierID,
		PurchaseID:   purchaseID,
		ChequeStatus: shared.ChequeStatus(r.URL.Query().Get("cheque_status")),
		Limit:        page.Limit,
		Offset:       page.Offset,
	})
	if err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	if list == nil {
		list = []SupplierPayment{}
	}
	httpx.JSON(w, http.StatusOK, list)
}

func (h *Handler) showSupplierPayment(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	sp, err := h.service.GetSupplierPayment(r.Context(), id)
	if err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, sp)
}
