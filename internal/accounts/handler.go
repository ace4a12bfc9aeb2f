package accounts

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sierra-distribution/sierra/internal/ledger"
	"github.com/sierra-distribution/sierra/internal/platform/httpx"
	"github.com/sierra-distribution/sierra/internal/rbac"
	"github.com/sierra-distribution/sierra/internal/shared"
)

// Handler wires HTTP endpoints for accounts and expenses.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

// NewHandler constructs accounts handler.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac}
}

// MountAccountRoutes registers /accounts routes.
func (h *Handler) MountAccountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermAccountsRead))
		r.Get("/", h.listAccounts)
		r.Get("/{id}", h.showAccount)
		r.Get("/{id}/transactions", h.accountTransactions)
	})
	r.With(h.rbac.RequireAll(shared.PermAccountsManage)).Post("/", h.createAccount)
	r.With(h.rbac.RequireAll(shared.PermAccountsWrite)).Post("/transaction", h.transact)
}

// MountExpenseRoutes registers /expenses routes.
func (h *Handler) MountExpenseRoutes(r chi.Router) {
	r.With(h.rbac.RequireAny(shared.PermExpensesRead)).Get("/", h.listExpenses)
	r.With(h.rbac.RequireAny(shared.PermExpensesRead)).Get("/{id}", h.showExpense)
	r.With(h.rbac.RequireAll(shared.PermExpensesWrite)).Post("/", h.createExpense)
}

func (h *Handler) createAccount(w http.ResponseWriter, r *http.Request) {
	var in CreateAccountInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	acct, err := h.service.CreateAccount(r.Context(), in)
	if err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, acct)
}

func (h *Handler) listAccounts(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.List(r.Context())
	if err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	if list == nil {
		list = []Account{}
	}
	httpx.JSON(w, http.StatusOK, list)
}

func (h *Handler) showAccount(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	acct, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, acct)
}

func (h *Handler) accountTransactions(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	list, err := h.service.Transactions(r.Context(), id, limit)
	if err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	if list == nil {
		list = []ledger.AccountTransaction{}
	}
	httpx.JSON(w, http.StatusOK, list)
}

func (h *Handler) transact(w http.ResponseWriter, r *http.Request) {
	var in TransactionInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	res, err := h.service.Transact(r.Context(), in, httpx.IdempotencyKey(r))
	if err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, res)
}

func (h *Handler) createExpense(w http.ResponseWriter, r *http.Request) {
	var in ExpenseInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	e, err := h.service.CreateExpense(r.Context(), in, httpx.IdempotencyKey(r))
	if err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, e)
}

func (h *Handler) showExpense(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	e, err := h.service.GetExpense(r.Context(), id)
	if err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, e)
}

func (h *Handler) listExpenses(w http.ResponseWriter, r *http.Request) {
	accountID, err := httpx.QueryInt64(r, "account_id")
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
	list, err := h.service.ListExpenses(r.Context(), ExpenseFilter{
		Category:  r.URL.Query().Get("category"),
		AccountID: accountID,
		From:      from,
		To:        to,
		Limit:     page.Limit,
		Offset:    page.Offset,
	})
	if err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	if list == nil {
		list = []Expense{}
	}
	httpx.JSON(w, http.StatusOK, list)
}
