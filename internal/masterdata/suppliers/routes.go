package suppliers

import (
	"github.com/go-chi/chi/v5"

	core "github.com/sierra-distribution/sierra/internal/shared"
)

func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(core.PermSuppliersRead))
		r.Get("/", h.List)
		r.Get("/{id}", h.Show)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(core.PermSuppliersWrite))
		r.Post("/", h.Create)
		r.Put("/{id}", h.Update)
	})
}
