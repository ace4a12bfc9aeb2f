package auth

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sierra-distribution/sierra/internal/platform/httpx"
	"github.com/sierra-distribution/sierra/internal/shared"
)

// PermissionSource resolves capabilities for the current user.
type PermissionSource interface {
	EffectivePermissions(ctx context.Context, userID string) ([]string, error)
}

// Handler exposes the caller's identity.
type Handler struct {
	logger      *slog.Logger
	permissions PermissionSource
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, permissions PermissionSource) *Handler {
	return &Handler{logger: logger, permissions: permissions}
}

// MountRoutes registers /me.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/me", h.me)
}

type meResponse struct {
	UserID      string   `json:"user_id"`
	Email       string   `json:"email,omitempty"`
	Permissions []string `json:"permissions"`
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	principal, ok := shared.PrincipalFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.ErrUnauthorized)
		return
	}
	perms, err := h.permissions.EffectivePermissions(r.Context(), principal.UserID)
	if err != nil {
		h.logger.Error("load permissions", slog.String("user_id", principal.UserID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if perms == nil {
		perms = []string{}
	}
	httpx.JSON(w, http.StatusOK, meResponse{UserID: principal.UserID, Email: principal.Email, Permissions: perms})
}
