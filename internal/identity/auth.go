package identity

import (
	"context"
	"net/http"
	"strings"

	"ezfin/internal/core"
)

type userIDKey struct{}

// WithUserID returns a context carrying the authenticated user id.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey{}, userID)
}

// UserID returns the authenticated user id or core.ErrUnauthorized.
func UserID(ctx context.Context) (string, error) {
	id, _ := ctx.Value(userIDKey{}).(string)
	if id == "" {
		return "", core.ErrUnauthorized
	}
	return id, nil
}

// HeaderAuth trusts the user id set by the fronting auth proxy in header.
// Requests without it pass through unauthenticated; handlers decide whether
// that is an error.
func HeaderAuth(header string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if id := strings.TrimSpace(r.Header.Get(header)); id != "" {
				r = r.WithContext(WithUserID(r.Context(), id))
			}
			next.ServeHTTP(w, r)
		})
	}
}
