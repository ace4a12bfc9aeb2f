package auth

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/sierra-distribution/sierra/internal/platform/httpx"
	"github.com/sierra-distribution/sierra/internal/shared"
)

// TokenVerifier is satisfied by *Verifier.
type TokenVerifier interface {
	Verify(raw string) (shared.Principal, error)
}

// Middleware rejects requests without a valid bearer token and stores the principal in context.
func Middleware(verifier TokenVerifier, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			scheme, token, ok := strings.Cut(header, " ")
			if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
				httpx.Error(w, http.StatusUnauthorized, "missing bearer token")
				return
			}
			principal, err := verifier.Verify(token)
			if err != nil {
				if logger != nil {
					logger.Debug("token rejected", slog.String("path", r.URL.Path), slog.Any("error", err))
				}
				httpx.Error(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}
			next.ServeHTTP(w, r.WithContext(shared.ContextWithPrincipal(r.Context(), principal)))
		})
	}
}
