package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/sierra-distribution/sierra/internal/accounts"
	audithttp "github.com/sierra-distribution/sierra/internal/audit/http"
	"github.com/sierra-distribution/sierra/internal/auth"
	"github.com/sierra-distribution/sierra/internal/inventory"
	"github.com/sierra-distribution/sierra/internal/masterdata/customers"
	"github.com/sierra-distribution/sierra/internal/masterdata/suppliers"
	"github.com/sierra-distribution/sierra/internal/observability"
	"github.com/sierra-distribution/sierra/internal/payments"
	"github.com/sierra-distribution/sierra/internal/procurement"
	"github.com/sierra-distribution/sierra/internal/reconcile"
	"github.com/sierra-distribution/sierra/internal/reports"
	"github.com/sierra-distribution/sierra/internal/sales"
	"github.com/sierra-distribution/sierra/jobs"
)

// RouterParams groups dependencies for building the HTTP router. Nil handlers are not mounted.
type RouterParams struct {
	Logger   *slog.Logger
	Config   *Config
	Verifier auth.TokenVerifier
	Metrics  *observability.Metrics

	AuthHandler        *auth.Handler
	CustomersHandler   *customers.Handler
	SuppliersHandler   *suppliers.Handler
	InventoryHandler   *inventory.Handler
	SalesHandler       *sales.Handler
	PaymentsHandler    *payments.Handler
	ProcurementHandler *procurement.Handler
	AccountsHandler    *accounts.Handler
	ReportsHandler     *reports.Handler
	ReconcileHandler   *reconcile.Handler
	AuditHandler       *audithttp.Handler
	JobHandler         *jobs.Handler
}

// NewRouter constructs the chi.Router with Sierra defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(auth.Middleware(params.Verifier, params.Logger))

		if params.AuthHandler != nil {
			params.AuthHandler.MountRoutes(r)
		}
		if params.CustomersHandler != nil {
			r.Route("/customers", params.CustomersHandler.MountRoutes)
		}
		if params.SuppliersHandler != nil {
			r.Route("/suppliers", params.SuppliersHandler.MountRoutes)
		}
		if params.InventoryHandler != nil {
			r.Route("/products", params.InventoryHandler.MountRoutes)
		}
		if params.SalesHandler != nil {
			r.Route("/orders", params.SalesHandler.MountRoutes)
		}
		if params.PaymentsHandler != nil {
			r.Route("/payments", params.PaymentsHandler.MountRoutes)
		}
		if params.ProcurementHandler != nil {
			r.Route("/purchases", params.ProcurementHandler.MountPurchaseRoutes)
			r.Route("/supplier-payments", params.ProcurementHandler.MountSupplierPaymentRoutes)
		}
		if params.AccountsHandler != nil {
			r.Route("/accounts", params.AccountsHandler.MountAccountRoutes)
			r.Route("/expenses", params.AccountsHandler.MountExpenseRoutes)
		}
		if params.ReportsHandler != nil {
			r.Route("/reports", params.ReportsHandler.MountRoutes)
		}
		if params.ReconcileHandler != nil {
			r.Route("/reconciliation", params.ReconcileHandler.MountRoutes)
		}
		if params.AuditHandler != nil {
			r.Route("/audit-logs", params.AuditHandler.MountRoutes)
		}
	})

	return r
}
