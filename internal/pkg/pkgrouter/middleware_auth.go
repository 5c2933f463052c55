package pkgrouter

import (
	"context"
	"net/http"
	"strings"
)

// Authenticator resolves a credential token to a principal (owner) id.
// The scheme behind the token is an external concern; the router only
// carries the resolved identity.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (string, error)
}

type principalContextKey struct{}

// GetPrincipal returns the authenticated owner id stored in the request
// context, or an empty string when the request was not authenticated.
func GetPrincipal(ctx context.Context) string {
	principal, _ := ctx.Value(principalContextKey{}).(string)
	return principal
}

// SetPrincipal stores an owner id into the context. Exposed for tests.
func SetPrincipal(ctx context.Context, principal string) context.Context {
	return context.WithValue(ctx, principalContextKey{}, principal)
}

// MiddlewareAuth rejects requests without a resolvable credential and
// stores the principal in the request context. The Authorization header is
// accepted with or without a "Bearer " prefix.
func MiddlewareAuth(auth Authenticator) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := strings.TrimSpace(r.Header.Get("Authorization"))
			token = strings.TrimSpace(strings.TrimPrefix(token, "Bearer "))
			if token == "" {
				writeJSON(w, errorResponse{Message: "missing credentials"}, http.StatusUnauthorized)
				return
			}

			principal, err := auth.Authenticate(r.Context(), token)
			if err != nil || principal == "" {
				writeJSON(w, errorResponse{Message: "invalid credentials"}, http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(SetPrincipal(r.Context(), principal)))
		})
	}
}
