package shared

import "context"

// Principal identifies the authenticated caller.
type Principal struct {
	UserID string
	Email  string
}

type principalContextKey struct{}

// ContextWithPrincipal stores the principal in context.
func ContextWithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, p)
}

// PrincipalFromContext extracts the principal from context.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalContextKey{}).(Principal)
	return p, ok && p.UserID != ""
}

// ActorID returns the caller's user id or an empty string.
func ActorID(ctx context.Context) string {
	p, _ := PrincipalFromContext(ctx)
	return p.UserID
}
