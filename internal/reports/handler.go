package reports

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sierra-distribution/sierra/internal/platform/httpx"
	"github.com/sierra-distribution/sierra/internal/rbac"
	"github.com/sierra-distribution/sierra/internal/shared"
)

// Handler serves financial reports.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

// NewHandler constructs reports handler.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac}
}

// MountRoutes registers report routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermReportsView))
		r.Get("/profit-loss", h.profitLoss)
		r.Get("/trading-account", h.tradingAccount)
		r.Get("/balance-sheet", h.balanceSheet)
	})
}

func (h *Handler) profitLoss(w http.ResponseWriter, r *http.Request) {
	from, to, ok := h.rangeParams(w, r)
	if !ok {
		return
	}
	report, err := h.service.ProfitLoss(r.Context(), from, to)
	if err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

func (h *Handler) tradingAccount(w http.ResponseWriter, r *http.Request) {
	from, to, ok := h.rangeParams(w, r)
	if !ok {
		return
	}
	report, err := h.service.TradingAccount(r.Context(), from, to)
	if err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

func (h *Handler) balanceSheet(w http.ResponseWriter, r *http.Request) {
	asOf, err := httpx.QueryDate(r, "as_of")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	report, err := h.service.BalanceSheet(r.Context(), asOf)
	if err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

func (h *Handler) rangeParams(w http.ResponseWriter, r *http.Request) (from, to time.Time, ok bool) {
	from, err := httpx.QueryDate(r, "from")
	if err != nil {
		httpx.RespondError(w, err)
		return from, to, false
	}
	to, err = httpx.QueryDate(r, "to")
	if err != nil {
		httpx.RespondError(w, err)
		return from, to, false
	}
	return from, to, true
}
