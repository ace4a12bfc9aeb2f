package customers

import (
	"log/slog"
	"net/http"

	"github.com/sierra-distribution/sierra/internal/masterdata/shared"
	"github.com/sierra-distribution/sierra/internal/platform/httpx"
	"github.com/sierra-distribution/sierra/internal/rbac"
)

type Handler struct {
	service *Service
	rbac    rbac.Middleware
	logger  *slog.Logger
}

func NewHandler(service *Service, rbac rbac.Middleware, logger *slog.Logger) *Handler {
	return &Handler{service: service, rbac: rbac, logger: logger}
}

type listResponse struct {
	Data  []Customer `json:"data"`
	Total int        `json:"total"`
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page := httpx.Page(r)
	q := r.URL.Query()
	items, total, err := h.service.List(r.Context(), shared.ListFilters{
		Limit:   page.Limit,
		Offset:  page.Offset,
		Search:  q.Get("search"),
		SortBy:  q.Get("sort"),
		SortDir: q.Get("dir"),
	})
	if err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	if items == nil {
		items = []Customer{}
	}
	httpx.JSON(w, http.StatusOK, listResponse{Data: items, Total: total})
}

func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	c, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, c)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	c, err := h.service.Create(r.Context(), req)
	if err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, c)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req UpdateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	c, err := h.service.Update(r.Context(), id, req)
	if err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, c)
}
